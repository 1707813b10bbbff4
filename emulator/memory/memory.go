/*
Copyright (c) 2019-2021 Andreas T Jonsson

This software is provided 'as-is', without any express or implied
warranty. In no event will the authors be held liable for any damages
arising from the use of this software.

Permission is granted to anyone to use this software for any purpose,
including commercial applications, and to alter it and redistribute it
freely, subject to the following restrictions:

1. The origin of this software must not be misrepresented; you must not
   claim that you wrote the original software. If you use this software
   in a product, an acknowledgment in the product documentation would be
   appreciated but is not required.
2. Altered source versions must be plainly marked as such, and must not be
   misrepresented as being the original software.
3. This notice may not be removed or altered from any source distribution.
*/

package memory

import (
	"fmt"

	log "github.com/sirupsen/logrus"
)

// OpenBus is returned for reads that no device answers.
const OpenBus = 0xFF

// Size of the real-mode physical address space.
const Size = 0x100000

type Pointer uint32

func NewPointer(seg, offset uint16) Pointer {
	return (Pointer(seg)<<4 + Pointer(offset)) & (Size - 1)
}

func (p Pointer) String() string {
	return fmt.Sprintf("0x%05X", uint32(p))
}

type Memory interface {
	ReadByte(addr Pointer) byte
	WriteByte(addr Pointer, data byte)
}

type IO interface {
	In(port uint16) byte
	Out(port uint16, data byte)
}

type DummyIO struct{}

func (m *DummyIO) In(port uint16) byte {
	log.WithField("port", fmt.Sprintf("0x%X", port)).Debug("reading unmapped IO port")
	return OpenBus
}

func (m *DummyIO) Out(port uint16, data byte) {
	log.WithField("port", fmt.Sprintf("0x%X", port)).Debug("writing unmapped IO port")
}

type DummyMemory struct{}

func (m *DummyMemory) ReadByte(addr Pointer) byte {
	log.WithField("addr", addr).Debug("reading unmapped memory")
	return OpenBus
}

func (m *DummyMemory) WriteByte(addr Pointer, data byte) {
	log.WithField("addr", addr).Debug("writing unmapped memory")
}
