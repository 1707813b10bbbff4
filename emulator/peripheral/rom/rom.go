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

package rom

import (
	"errors"
	"fmt"
	"io"
	"io/ioutil"

	"github.com/andreas-jonsson/i8088-core/emulator/memory"
	"github.com/andreas-jonsson/i8088-core/emulator/processor"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

var ErrNoImage = errors.New("no ROM image")

// Device maps a read-only image at Base. The image is taken from Reader if
// set, otherwise it is read from Path on Fs.
type Device struct {
	mem []byte

	Base    memory.Pointer
	RomName string

	Reader io.Reader
	Fs     afero.Fs
	Path   string
}

// ResetVectorBase returns the base address that places an image of the
// given size so it ends at the top of the address space, where the reset
// vector FFFF:0000 lands.
func ResetVectorBase(size int) memory.Pointer {
	return memory.Pointer(memory.Size - size)
}

func (m *Device) load() error {
	if m.Reader != nil {
		var err error
		m.mem, err = ioutil.ReadAll(m.Reader)
		return err
	}
	if m.Fs == nil || m.Path == "" {
		return ErrNoImage
	}

	fp, err := m.Fs.Open(m.Path)
	if err != nil {
		return err
	}
	defer fp.Close()

	if m.mem, err = ioutil.ReadAll(fp); err != nil {
		return fmt.Errorf("could not read %s: %w", m.Path, err)
	}
	if m.RomName == "" {
		m.RomName = m.Path
	}
	return nil
}

func (m *Device) Install(p processor.Processor) error {
	if err := m.load(); err != nil {
		return err
	}
	if len(m.mem) == 0 {
		return ErrNoImage
	}
	if int(m.Base)+len(m.mem) > memory.Size {
		return fmt.Errorf("ROM image of %d bytes does not fit at %v", len(m.mem), m.Base)
	}
	if m.RomName == "" {
		m.RomName = "ROM"
	}

	log.WithFields(log.Fields{
		"name": m.RomName,
		"base": m.Base,
		"size": len(m.mem),
	}).Info("ROM loaded")
	return p.InstallMemoryDevice(m, m.Base, m.Base+memory.Pointer(len(m.mem)-1))
}

func (m *Device) Name() string {
	return m.RomName
}

func (m *Device) Reset() {
}

func (m *Device) ReadByte(addr memory.Pointer) byte {
	return m.mem[addr-m.Base]
}

func (m *Device) WriteByte(addr memory.Pointer, data byte) {
	log.WithField("addr", addr).Debug("write to ROM ignored")
}
