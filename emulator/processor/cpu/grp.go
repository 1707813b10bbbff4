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

// _ALU1 r/m,imm (0x80-0x83)
func (p *CPU) grp1(wide bool) {
	p.decodeModRM()
	p.access(47)
	d := p.readEA(wide)
	if p.mod != 3 {
		p.wait(3, false)
	} else {
		p.wait(1, false)
	}

	var s uint16
	switch p.opcode {
	case 0x81:
		s = p.fetchWord()
	case 0x83:
		s = signExtend16(p.fetchByte())
	default:
		s = uint16(p.fetchByte()) | 0xFF00
	}
	p.wait(1, false)

	op := int(p.reg)
	r := p.alu(op, wide, uint32(d), uint32(s))
	if op != aluCMP {
		p.access(11)
		p.writeEA(wide, uint16(r))
	} else if p.mod != 3 {
		p.wait(1, false)
	}
}

// _ROT r/m (0xD0-0xD3, 0xC0-0xC1)
func (p *CPU) grp2(wide bool) {
	p.decodeModRM()
	if p.mod == 3 {
		p.wait(1, false)
	}
	p.access(53)
	v := p.readEA(wide)

	var count int
	counted := true
	switch p.opcode {
	case 0xD0, 0xD1:
		count = 1
		counted = false
		if p.mod != 3 {
			p.wait(4, false)
		}
	case 0xD2, 0xD3:
		count = int(p.CL())
		if p.mod != 3 {
			p.wait(9, false)
		} else {
			p.wait(6, false)
		}
	default:
		count = int(p.fetchByte())
		p.wait(6, false)
	}

	r := p.shiftOrRotate(int(p.reg), wide, uint32(v), count, counted)
	p.access(17)
	p.writeEA(wide, uint16(r))
}

// _ALU2 r/m (0xF6-0xF7)
func (p *CPU) grp3(wide bool) {
	p.decodeModRM()
	p.access(55)
	v := p.readEA(wide)

	switch p.reg {
	case 0, 1: // TEST
		p.wait(2, false)
		if p.mod != 3 {
			p.wait(1, false)
		}
		s := p.fetch(wide)
		p.wait(1, false)
		p.bitwise(wide, uint32(v&s))
		if p.mod != 3 {
			p.wait(1, false)
		}
	case 2: // NOT
		p.wait(2, false)
		p.access(18)
		p.writeEA(wide, ^v)
	case 3: // NEG
		p.wait(2, false)
		r := p.sub(wide, 0, uint32(v), false)
		p.access(18)
		p.writeEA(wide, uint16(r))
	case 4, 5: // MUL, IMUL
		p.opMultiply(wide, p.reg == 5, v)
	case 6, 7: // DIV, IDIV
		l, h := uint16(p.AL()), uint16(p.AH())
		if wide {
			l, h = p.AX, p.DX
		}
		if p.divide(wide, p.reg == 7, l, h, v, false) {
			p.wait(1, false)
		}
	}
}

// _MISC r/m (0xFE-0xFF)
func (p *CPU) grp4(wide bool) {
	p.decodeModRM()
	p.access(56)
	v := p.readEA(wide)
	if !wide {
		// The byte form of the control transfers uses an undefined high byte.
		if p.reg >= 2 {
			v |= 0xFF00
		}
	}

	switch p.reg {
	case 0, 1: // INC, DEC
		r := p.incdec(wide, uint32(v), p.reg == 1)
		p.wait(2, false)
		p.access(19)
		p.writeEA(wide, uint16(r))
	case 2: // CALL
		p.access(63)
		p.wait(1, false)
		p.clearQueue()
		p.wait(4, false)
		if p.mod != 3 {
			p.wait(1, false)
		}
		p.wait(1, false)
		ret := p.IP
		p.setIP(v)
		p.wait(2, false)
		p.access(35)
		p.push(ret)
	case 3: // CALL FAR
		p.access(58)
		cs := p.readEA2()
		if !wide {
			cs |= 0xFF00
		}
		p.access(36)
		p.push(p.CS)
		p.access(64)
		p.wait(4, false)
		ret := p.IP
		p.CS = cs
		p.setIP(v)
		p.access(37)
		p.push(ret)
	case 4: // JMP
		p.access(65)
		p.setIP(v)
	case 5: // JMP FAR
		p.access(59)
		cs := p.readEA2()
		if !wide {
			cs |= 0xFF00
		}
		p.CS = cs
		p.access(66)
		p.setIP(v)
	default: // PUSH
		if p.mod != 3 {
			p.wait(1, false)
		}
		p.access(38)
		p.push(v)
	}
}
