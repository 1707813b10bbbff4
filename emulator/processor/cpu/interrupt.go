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

package cpu

import (
	"github.com/andreas-jonsson/i8088-core/emulator/processor"
)

// Flag bits stored by an interrupt entry.
const interruptFlagsMask = 0x0FD7

// interrupt performs the vectored call through the table at 0000:n*4.
func (p *CPU) interrupt(n byte) {
	p.stats.NumInterrupts++
	addr := uint16(n) << 2

	p.access(5)
	ip := p.readMemWord(0, addr)
	p.wait(1, false)

	p.access(6)
	cs := p.readMemWord(0, addr+2)
	p.clearQueue()

	p.access(39)
	p.push(p.flagsWord() & interruptFlagsMask)
	p.Clear(processor.InterruptEnable | processor.Trap)

	p.access(40)
	p.push(p.CS)
	ret := p.IP
	p.CS = cs

	p.access(68)
	p.setIP(ip)

	p.access(41)
	p.push(ret)
}

func (p *CPU) nmiPending() bool {
	return p.nmi && p.nmiEnable && p.nmiMask
}

func (p *CPU) irqPending() bool {
	return p.GetBool(processor.InterruptEnable) && p.pic != nil && p.pic.Pending()
}

// interruptPending is what stops a repeated string instruction.
func (p *CPU) interruptPending() bool {
	return p.nmiPending() || (!p.noInterrupt && (p.trap || p.irqPending()))
}

// checkInterrupts runs at every instruction boundary and services at most
// one source.
func (p *CPU) checkInterrupts() bool {
	switch {
	case p.trap && !p.noInterrupt:
		p.interrupt(1)
	case p.nmiPending():
		p.nmiEnable = false
		p.nmi = false
		p.interrupt(2)
	case p.irqPending() && !p.noInterrupt:
		p.repeating = false
		p.segOverride = false

		p.wait(3, false)
		p.wait(4, true) // INTA
		p.wait(1, false)
		p.wait(4, true) // INTA
		p.wait(1, false)
		p.wait(1, false)

		n, err := p.pic.GetInterrupt()
		p.wait(3, false)
		if err != nil {
			return false
		}
		p.interrupt(byte(n))
	default:
		return false
	}
	return true
}

// NMI latches a non-maskable interrupt. It is serviced at the next
// instruction boundary.
func (p *CPU) NMI() {
	p.nmi = true
}

// SetNMIMask models the chipset NMI gate.
func (p *CPU) SetNMIMask(enabled bool) {
	p.nmiMask = enabled
}
