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

// multiply is the microcoded shift-and-add loop. It returns the low and high
// half of the product. AAD enters the loop directly without the sign fixups.
func (p *CPU) multiply(wide, signed bool, a, b uint16, aad bool) (uint16, uint16) {
	bitCount := 8
	high := uint16(0x80)
	if wide {
		bitCount = 16
		high = 0x8000
	}
	mask := uint16(widthMask(wide))
	negate := false

	if !aad {
		if !wide {
			p.wait(8, false)
		}
		if signed {
			if a&high == 0 {
				if b&high != 0 {
					p.wait(1, false)
					if b&mask != high {
						p.wait(1, false)
					}
					b = ^b + 1
					negate = true
				}
			} else {
				p.wait(1, false)
				a = ^a + 1
				negate = true
				if b&high != 0 {
					b = ^b + 1
					negate = false
				} else {
					p.wait(4, false)
				}
			}
			p.wait(10, false)
		}
		p.wait(3, false)
	}

	var c uint16
	a &= mask
	b &= mask
	carry := a&1 != 0
	a >>= 1

	for i := 0; i < bitCount; i++ {
		p.wait(7, false)
		if carry {
			c = uint16(p.add(wide, uint32(b), uint32(c), false))
			p.wait(1, false)
			carry = p.GetBool(processor.Carry)
		}

		r := c >> 1
		if carry {
			r += high
		}
		carry = c&1 != 0
		c = r

		r = a >> 1
		if carry {
			r += high
		}
		carry = a&1 != 0
		a = r
	}

	if negate {
		c = ^c
		a = (^a + 1) & mask
		if a == 0 {
			c++
		}
		p.wait(9, false)
	}

	a &= mask
	c &= mask
	p.setSignParity(wide, a)
	p.Clear(processor.Adjust)
	return a, c
}

func (p *CPU) setSignParity(wide bool, v uint16) {
	p.SetBool(processor.Sign, uint32(v)&topBit(wide) != 0)
	p.SetBool(processor.Parity, parityLookup[v&0xFF])
}

func (p *CPU) setMulOverflow(overflow bool) {
	p.SetBool(processor.Carry, overflow)
	p.SetBool(processor.Overflow, overflow)
	p.SetBool(processor.Zero, !overflow)
	if !overflow {
		p.wait(1, false)
	}
}

// MUL and IMUL
func (p *CPU) opMultiply(wide, signed bool, v uint16) {
	zf := p.GetBool(processor.Zero)

	if wide {
		lo, hi := p.multiply(true, signed, p.AX, v, false)
		p.AX, p.DX = lo, hi

		var ext uint16
		if signed && lo&0x8000 != 0 {
			ext = 0xFFFF
		}
		p.setMulOverflow(hi != ext)
		p.setSignParity(true, hi)
	} else {
		lo, hi := p.multiply(false, signed, uint16(p.AL()), v, false)
		p.SetAL(byte(lo))
		p.SetAH(byte(hi))

		var ext uint16
		if signed && lo&0x80 != 0 {
			ext = 0xFF
		}
		p.setMulOverflow(hi != ext)
		if !p.variant.IsNEC() {
			p.setSignParity(false, hi)
		}
	}

	if p.variant.IsNEC() {
		p.SetBool(processor.Zero, zf)
	}
}

// divide is the microcoded restoring division. It raises a divide error and
// returns false without touching any register if the quotient does not fit.
func (p *CPU) divide(wide, signed bool, l, h, src uint16, aam bool) bool {
	bitCount := 8
	high := uint16(0x80)
	if wide {
		bitCount = 16
		high = 0x8000
	}
	mask := uint16(widthMask(wide))
	negative, dividendNegative := false, false

	if !aam {
		if signed {
			if h&high != 0 {
				h = ^h
				l = (^l + 1) & mask
				if l == 0 {
					h++
				}
				h &= mask
				negative = true
				dividendNegative = true
				p.wait(4, false)
			}
			if src&high != 0 {
				src = ^src + 1
				negative = !negative
			} else {
				p.wait(1, false)
			}
			p.wait(9, false)
		}
		p.wait(3, false)
	}

	p.wait(8, false)
	src &= mask
	if h >= src {
		if !aam {
			p.wait(1, false)
		}
		p.interrupt(0)
		return false
	}
	if !aam {
		p.wait(1, false)
	}
	p.wait(2, false)

	carry := true
	for b := 0; b < bitCount; b++ {
		r := l << 1
		if carry {
			r++
		}
		carry = l&high != 0
		l = r

		r = h << 1
		if carry {
			r++
		}
		carry = h&high != 0
		h = r

		p.wait(8, false)
		if carry {
			carry = false
			h -= src
			if b == bitCount-1 {
				p.wait(2, false)
			}
		} else {
			carry = src > h
			if !carry {
				h -= src
				p.wait(1, false)
				if b == bitCount-1 {
					p.wait(2, false)
				}
			}
		}
	}

	r := l << 1
	if carry {
		r++
	}
	l = ^r

	if !aam && signed {
		p.wait(4, false)
		if l&high != 0 {
			if p.mod == 3 {
				p.wait(1, false)
			}
			p.interrupt(0)
			return false
		}
		p.wait(7, false)
		if negative {
			l = ^l + 1
		}
		if dividendNegative {
			h = ^h + 1
		}
	}

	l &= mask
	h &= mask

	switch {
	case aam:
		p.SetAL(byte(h))
		p.SetAH(byte(l))
	case wide:
		p.DX, p.AX = h, l
	default:
		p.SetAH(byte(h))
		p.SetAL(byte(l))
	}
	return true
}
