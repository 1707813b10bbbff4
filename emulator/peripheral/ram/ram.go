/*
Copyright (c) 2019-2020 Andreas T Jonsson

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

package ram

import (
	"crypto/rand"

	"github.com/andreas-jonsson/i8088-core/emulator/memory"
	"github.com/andreas-jonsson/i8088-core/emulator/processor"
)

// Device is plain read/write memory mapped from Base. Size zero maps up to
// the end of the address space.
type Device struct {
	Clear bool
	Base  memory.Pointer
	Size  int

	mem []byte
}

func (m *Device) Install(p processor.Processor) error {
	size := m.Size
	if size <= 0 || int(m.Base)+size > memory.Size {
		size = memory.Size - int(m.Base)
	}
	m.mem = make([]byte, size)

	if !m.Clear {
		rand.Read(m.mem) // Scramble memory.
	}
	return p.InstallMemoryDevice(m, m.Base, m.Base+memory.Pointer(size-1))
}

func (m *Device) Name() string {
	return "RAM"
}

func (m *Device) Reset() {
}

// Load copies data into memory at addr without going through the bus.
func (m *Device) Load(addr memory.Pointer, data []byte) {
	copy(m.mem[addr-m.Base:], data)
}

func (m *Device) ReadByte(addr memory.Pointer) byte {
	return m.mem[addr-m.Base]
}

func (m *Device) WriteByte(addr memory.Pointer, data byte) {
	m.mem[addr-m.Base] = data
}
