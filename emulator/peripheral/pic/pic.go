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

package pic

import (
	"fmt"

	"github.com/andreas-jonsson/i8088-core/emulator/processor"
	log "github.com/sirupsen/logrus"
)

var ErrNoInterrupts = processor.ErrNoInterrupts

// Device is the subset of the Intel 8259 used by a single controller XT
// class machine: edge triggered requests, fixed priority, mask and EOI.
type Device struct {
	maskReg, requestReg, serviceReg byte
	icwStep, readMode               byte
	icw                             [5]byte
}

func (m *Device) Install(p processor.Processor) error {
	return p.InstallIODevice(m, 0x20, 0x21)
}

func (m *Device) Name() string {
	return "Programmable Interrupt Controller (Intel 8259)"
}

func (m *Device) Reset() {
	*m = Device{}
}

// Pending reports an unmasked request with higher priority than any
// interrupt in service. Nothing is acknowledged.
func (m *Device) Pending() bool {
	_, ok := m.next()
	return ok
}

func (m *Device) next() (int, bool) {
	has := m.requestReg & ^m.maskReg
	for i := 0; i < 8; i++ {
		bit := byte(1 << i)
		if m.serviceReg&bit != 0 {
			return 0, false
		}
		if has&bit != 0 {
			return i, true
		}
	}
	return 0, false
}

// GetInterrupt acknowledges the highest priority request and returns its
// vector.
func (m *Device) GetInterrupt() (int, error) {
	i, ok := m.next()
	if !ok {
		return 0, ErrNoInterrupts
	}

	bit := byte(1 << i)
	m.requestReg &^= bit
	if m.icw[4]&2 == 0 { // No automatic EOI.
		m.serviceReg |= bit
	}
	return int(m.icw[2]&0xF8) + i, nil
}

func (m *Device) IRQ(n int) {
	m.requestReg |= byte(1 << n)
}

func (m *Device) In(port uint16) byte {
	switch port {
	case 0x20:
		if m.readMode == 0 {
			return m.requestReg
		}
		return m.serviceReg
	case 0x21:
		return m.maskReg
	}
	return 0
}

func (m *Device) Out(port uint16, data byte) {
	switch port {
	case 0x20:
		if data&0x10 != 0 { // ICW1
			m.icw = [5]byte{}
			m.icwStep = 1
			m.maskReg = 0
			m.serviceReg = 0
			m.icw[m.icwStep] = data
			m.icwStep++
			return
		}
		if data&0x18 == 8 { // OCW3
			if data&2 != 0 {
				m.readMode = data & 1
			}
			return
		}
		if data&0xE0 == 0x20 { // OCW2, non specific EOI
			for i := 0; i < 8; i++ {
				if bit := byte(1 << i); m.serviceReg&bit != 0 {
					m.serviceReg &^= bit
					return
				}
			}
			return
		}
		if data&0xE0 == 0x60 { // OCW2, specific EOI
			m.serviceReg &^= 1 << (data & 7)
			return
		}
		log.WithField("command", fmt.Sprintf("0x%02X", data)).Warn("unsupported PIC OCW2 command")
	case 0x21:
		if m.icwStep > 0 && m.icwStep < 5 {
			m.icw[m.icwStep] = data
			m.icwStep++
			if m.icwStep == 3 && m.icw[1]&2 != 0 { // Single, skip ICW3.
				m.icwStep = 4
			}
			if m.icwStep == 4 && m.icw[1]&1 == 0 { // No ICW4.
				m.icwStep = 5
			}
			if m.icwStep == 5 {
				log.WithFields(log.Fields{
					"base": fmt.Sprintf("0x%02X", m.icw[2]&0xF8),
					"aeoi": m.icw[4]&2 != 0,
				}).Debug("PIC initialized")
			}
			return
		}
		m.maskReg = data // OCW1
	}
}
