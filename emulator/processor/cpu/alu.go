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

import "github.com/andreas-jonsson/i8088-core/emulator/processor"

// ALU operations in the order they are encoded in the opcode map.
const (
	aluADD = iota
	aluOR
	aluADC
	aluSBB
	aluAND
	aluSUB
	aluXOR
	aluCMP
)

func widthMask(wide bool) uint32 {
	if wide {
		return 0xFFFF
	}
	return 0xFF
}

func topBit(wide bool) uint32 {
	if wide {
		return 0x8000
	}
	return 0x80
}

func (p *CPU) setZNP(wide bool, v uint32) {
	p.Clear(processor.Zero | processor.Sign | processor.Parity)
	if wide {
		p.Set(znpTable16[v&0xFFFF])
	} else {
		p.Set(znpTable8[v&0xFF])
	}
}

func (p *CPU) setAZNP(wide bool, d, s, r uint32) {
	p.setZNP(wide, r)
	p.SetBool(processor.Adjust, (r^s^d)&0x10 != 0)
}

func (p *CPU) setOFAdd(wide bool, d, s, r uint32) {
	p.SetBool(processor.Overflow, (r^s)&(r^d)&topBit(wide) != 0)
}

func (p *CPU) setOFSub(wide bool, d, s, r uint32) {
	p.SetBool(processor.Overflow, (d^s)&(r^d)&topBit(wide) != 0)
}

func (p *CPU) carryBit(carryIn bool) uint32 {
	if carryIn && p.GetBool(processor.Carry) {
		return 1
	}
	return 0
}

// add computes d+s plus the carry for ADC. With carry in, an all-ones
// source leaves the destination unchanged and carry stays set.
func (p *CPU) add(wide bool, d, s uint32, carryIn bool) uint32 {
	mask := widthMask(wide)
	d &= mask
	s &= mask
	c := p.carryBit(carryIn)

	r := d + s + c
	p.setAZNP(wide, d, s, r)
	p.setOFAdd(wide, d, s, r)

	if c == 1 && s == mask {
		p.Set(processor.Carry)
		return d
	}
	p.SetBool(processor.Carry, r > mask)
	return r & mask
}

// sub computes d-s minus the borrow for SBB.
func (p *CPU) sub(wide bool, d, s uint32, borrowIn bool) uint32 {
	mask := widthMask(wide)
	d &= mask
	s &= mask
	c := p.carryBit(borrowIn)

	r := d - s - c
	p.setAZNP(wide, d, s, r)
	p.setOFSub(wide, d, s, r)

	if c == 1 && s == mask {
		p.Set(processor.Carry)
		return d
	}
	p.SetBool(processor.Carry, s+c > d)
	return r & mask
}

func (p *CPU) bitwise(wide bool, r uint32) uint32 {
	p.Clear(processor.Carry | processor.Adjust | processor.Overflow)
	p.setZNP(wide, r)
	return r & widthMask(wide)
}

// alu runs one of the eight group operations. The caller decides whether to
// write the result back, CMP never does.
func (p *CPU) alu(op int, wide bool, d, s uint32) uint32 {
	switch op {
	case aluADD:
		return p.add(wide, d, s, false)
	case aluOR:
		return p.bitwise(wide, d|s)
	case aluADC:
		return p.add(wide, d, s, true)
	case aluSBB:
		return p.sub(wide, d, s, true)
	case aluAND:
		return p.bitwise(wide, d&s)
	case aluXOR:
		return p.bitwise(wide, d^s)
	default: // SUB, CMP
		return p.sub(wide, d, s, false)
	}
}

func (p *CPU) incdec(wide bool, v uint32, dec bool) uint32 {
	cf := p.GetBool(processor.Carry)
	var r uint32
	if dec {
		r = p.sub(wide, v, 1, false)
	} else {
		r = p.add(wide, v, 1, false)
	}
	p.SetBool(processor.Carry, cf)
	return r
}

// DAA
func (p *CPU) decimalAdjustAdd() {
	p.decimalAdjust(false)
}

// DAS
func (p *CPU) decimalAdjustSub() {
	p.decimalAdjust(true)
}

func (p *CPU) decimalAdjust(subtract bool) {
	al := uint32(p.AL())
	oldAF := p.GetBool(processor.Adjust)
	p.Clear(processor.Overflow)

	limit := uint32(0x99)
	if oldAF {
		limit = 0x9F
	}

	adjust := func(v, n uint32) uint32 {
		var r uint32
		if subtract {
			r = v - n
			p.setOFSub(false, v, n, r)
		} else {
			r = v + n
			p.setOFAdd(false, v, n, r)
		}
		return r & 0xFF
	}

	d := al
	if oldAF || al&0xF > 9 {
		d = adjust(d, 6)
		p.Set(processor.Adjust)
	}
	if p.GetBool(processor.Carry) || al > limit {
		d = adjust(d, 0x60)
		p.Set(processor.Carry)
	}

	p.SetAL(byte(d))
	p.setZNP(false, d)
	p.wait(3, false)
}

// AAA and AAS
func (p *CPU) asciiAdjust(subtract bool) {
	p.wait(1, false)

	var s uint32
	if p.GetBool(processor.Adjust) || p.AL()&0xF > 9 {
		s = 6
		if subtract {
			p.SetAH(p.AH() - 1)
		} else {
			p.SetAH(p.AH() + 1)
		}
		p.Set(processor.Carry | processor.Adjust)
	} else {
		p.Clear(processor.Carry | processor.Adjust)
		p.wait(1, false)
	}

	d := uint32(p.AL())
	var r uint32
	if subtract {
		r = d - s
		p.setOFSub(false, d, s, r)
	} else {
		r = d + s
		p.setOFAdd(false, d, s, r)
	}

	p.setZNP(false, r)
	p.SetAL(byte(r & 0xF))
	p.wait(6, false)
}

// AAM
func (p *CPU) asciiAdjustMul(base byte) {
	if p.divide(false, false, uint16(p.AL()), 0, uint16(base), true) {
		p.setZNP(false, uint32(p.AL()))
	}
}

// AAD
func (p *CPU) asciiAdjustDiv() {
	p.wait(1, false)
	base := p.fetchByte()
	lo, _ := p.multiply(false, false, uint16(base), uint16(p.AH()), true)
	r := p.add(false, uint32(p.AL()), uint32(lo), false)
	p.SetAL(byte(r))
	p.SetAH(0)
}
