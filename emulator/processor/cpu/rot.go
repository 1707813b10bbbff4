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

const (
	rotROL = iota
	rotROR
	rotRCL
	rotRCR
	rotSHL
	rotSHR
	rotSETMO
	rotSAR
)

// rotateStep shifts or rotates v by a single bit. The hardware iterates this
// once per count so flags always reflect the last step.
func (p *CPU) rotateStep(op int, wide bool, v uint32) uint32 {
	mask, top := widthMask(wide), topBit(wide)
	prev := v
	cf := p.GetBool(processor.Carry)

	switch op {
	case rotROL:
		p.SetBool(processor.Carry, v&top != 0)
		v <<= 1
		if p.GetBool(processor.Carry) {
			v |= 1
		}
		p.Clear(processor.Adjust)
	case rotROR:
		p.SetBool(processor.Carry, v&1 != 0)
		v >>= 1
		if p.GetBool(processor.Carry) {
			v |= top
		}
		p.Clear(processor.Adjust)
	case rotRCL:
		p.SetBool(processor.Carry, v&top != 0)
		v <<= 1
		if cf {
			v |= 1
		}
		p.Clear(processor.Adjust)
	case rotRCR:
		p.SetBool(processor.Carry, v&1 != 0)
		v >>= 1
		if cf {
			v |= top
		}
		p.Clear(processor.Adjust)
	case rotSHL:
		p.SetBool(processor.Carry, v&top != 0)
		v <<= 1
		p.SetBool(processor.Adjust, v&0x10 != 0)
		p.setZNP(wide, v)
	case rotSHR:
		p.SetBool(processor.Carry, v&1 != 0)
		v >>= 1
		p.Clear(processor.Adjust)
		p.setZNP(wide, v)
	case rotSETMO:
		v = p.bitwise(wide, 0xFFFF)
	case rotSAR:
		p.SetBool(processor.Carry, v&1 != 0)
		v = v>>1 | prev&top
		p.Clear(processor.Adjust)
		p.setZNP(wide, v)
	}

	v &= mask
	p.SetBool(processor.Overflow, (v^prev)&top != 0)
	return v
}

// shiftOrRotate applies op count times. Counted shifts cost four cycles per bit.
func (p *CPU) shiftOrRotate(op int, wide bool, v uint32, count int, counted bool) uint32 {
	for ; count > 0; count-- {
		v = p.rotateStep(op, wide, v)
		if counted {
			p.wait(4, false)
		}
	}
	return v
}
