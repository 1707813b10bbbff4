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

func signExtend16(v byte) uint16 {
	return uint16(int16(int8(v)))
}

// segment resolves the segment for a memory operand, honoring an override prefix.
func (p *CPU) segment(def processor.Segment) uint16 {
	if p.segOverride {
		return p.Seg(p.overrideSeg)
	}
	return p.Seg(def)
}

// decodeModRM fetches the MOD/RM byte and, for memory operands, computes the
// effective address.
func (p *CPU) decodeModRM() {
	p.modRM = p.fetchByte()
	p.mod = p.modRM >> 6
	p.reg = (p.modRM >> 3) & 7
	p.rm = p.modRM & 7

	if p.mod == 3 {
		return
	}
	p.wait(1, false)

	// Direct address.
	if p.modRM&0xC7 == 6 {
		p.wait(1, false)
		p.eaOffset = p.fetchWord()
		p.eaSeg = p.segment(processor.SegDS)
		p.wait(1, false)
		return
	}

	if n := modRMCycles[p.rm]; n > 0 {
		p.wait(n, false)
	}

	offset := p.Reg16(modRMBase[p.rm])
	if idx := modRMIndex[p.rm]; idx != noRegister {
		offset += p.Reg16(idx)
	}
	p.eaSeg = p.segment(modRMSegment[p.rm])

	switch p.mod {
	case 1:
		p.wait(3, false)
		offset += signExtend16(p.fetchByte())
	case 2:
		p.wait(3, false)
		offset += p.fetchWord()
	}

	p.eaOffset = offset
	p.wait(2, false)
}

func (p *CPU) readEA(wide bool) uint16 {
	if p.mod == 3 {
		return p.readReg(wide, p.rm)
	}
	return p.readMem(wide, p.eaSeg, p.eaOffset)
}

func (p *CPU) writeEA(wide bool, v uint16) {
	if p.mod == 3 {
		p.writeReg(wide, p.rm, v)
		return
	}
	p.writeMem(wide, p.eaSeg, p.eaOffset, v)
}

// readEA2 reads the second word of a far pointer operand.
func (p *CPU) readEA2() uint16 {
	return p.readMemWord(p.eaSeg, p.eaOffset+2)
}

func (p *CPU) readReg(wide bool, n byte) uint16 {
	if wide {
		return p.Reg16(n)
	}
	return uint16(p.Reg8(n))
}

func (p *CPU) writeReg(wide bool, n byte, v uint16) {
	if wide {
		p.SetReg16(n, v)
		return
	}
	p.SetReg8(n, byte(v))
}

func (p *CPU) accumulator(wide bool) uint16 {
	return p.readReg(wide, 0)
}

func (p *CPU) setAccumulator(wide bool, v uint16) {
	p.writeReg(wide, 0, v)
}
