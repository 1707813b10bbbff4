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

package processor

import (
	"fmt"
	"strings"
)

const (
	Carry           Flags = 0x001
	Parity          Flags = 0x004
	Adjust          Flags = 0x010
	Zero            Flags = 0x040
	Sign            Flags = 0x080
	Trap            Flags = 0x100
	InterruptEnable Flags = 0x200
	Direction       Flags = 0x400
	Overflow        Flags = 0x800
)

const AllFlags = Carry | Parity | Adjust | Zero | Sign | Trap | InterruptEnable | Direction | Overflow

// Bits that always read as one.
const (
	reservedIntel Flags = 0xF002
	reservedNEC   Flags = 0x8002
)

type Flags uint16

func (r *Flags) Get(f Flags) Flags {
	return *r & f
}

func (r *Flags) GetBool(f Flags) bool {
	return r.Get(f) != 0
}

func (r *Flags) Set(f Flags) {
	*r |= f
}

func (r *Flags) SetBool(f Flags, b bool) {
	if b {
		r.Set(f)
		return
	}
	r.Clear(f)
}

func (r *Flags) Clear(f Flags) {
	*r &= ^f
}

func (r *Flags) Store(f uint16) {
	*r = Flags(f) & AllFlags
}

func (r *Flags) Load() uint16 {
	return uint16(*r & AllFlags)
}

func (r Flags) String() string {
	const names = "CPAZSTIDO"
	bits := [...]Flags{Carry, Parity, Adjust, Zero, Sign, Trap, InterruptEnable, Direction, Overflow}

	var sb strings.Builder
	for i, f := range bits {
		if r&f != 0 {
			sb.WriteByte(names[i])
		} else {
			sb.WriteByte('-')
		}
	}
	return sb.String()
}

// Segment selects one of the four segment registers.
type Segment byte

const (
	SegES Segment = iota
	SegCS
	SegSS
	SegDS
)

func (s Segment) String() string {
	return [...]string{"ES", "CS", "SS", "DS"}[s&3]
}

type Registers struct {
	AX, CX, DX, BX,
	SP, BP, SI, DI uint16

	ES, CS, SS, DS uint16

	Flags

	IP    uint16
	Debug bool
}

func (r *Registers) Reset() {
	*r = Registers{}
}

func (r *Registers) AL() byte     { return byte(r.AX) }
func (r *Registers) AH() byte     { return byte(r.AX >> 8) }
func (r *Registers) SetAL(v byte) { r.AX = r.AX&0xFF00 | uint16(v) }
func (r *Registers) SetAH(v byte) { r.AX = r.AX&0xFF | uint16(v)<<8 }

func (r *Registers) BL() byte     { return byte(r.BX) }
func (r *Registers) BH() byte     { return byte(r.BX >> 8) }
func (r *Registers) SetBL(v byte) { r.BX = r.BX&0xFF00 | uint16(v) }
func (r *Registers) SetBH(v byte) { r.BX = r.BX&0xFF | uint16(v)<<8 }

func (r *Registers) CL() byte     { return byte(r.CX) }
func (r *Registers) CH() byte     { return byte(r.CX >> 8) }
func (r *Registers) SetCL(v byte) { r.CX = r.CX&0xFF00 | uint16(v) }
func (r *Registers) SetCH(v byte) { r.CX = r.CX&0xFF | uint16(v)<<8 }

func (r *Registers) DL() byte     { return byte(r.DX) }
func (r *Registers) DH() byte     { return byte(r.DX >> 8) }
func (r *Registers) SetDL(v byte) { r.DX = r.DX&0xFF00 | uint16(v) }
func (r *Registers) SetDH(v byte) { r.DX = r.DX&0xFF | uint16(v)<<8 }

// Reg16 returns a word register by its 3-bit encoding.
func (r *Registers) Reg16(n byte) uint16 {
	switch n & 7 {
	case 0:
		return r.AX
	case 1:
		return r.CX
	case 2:
		return r.DX
	case 3:
		return r.BX
	case 4:
		return r.SP
	case 5:
		return r.BP
	case 6:
		return r.SI
	default:
		return r.DI
	}
}

func (r *Registers) SetReg16(n byte, v uint16) {
	switch n & 7 {
	case 0:
		r.AX = v
	case 1:
		r.CX = v
	case 2:
		r.DX = v
	case 3:
		r.BX = v
	case 4:
		r.SP = v
	case 5:
		r.BP = v
	case 6:
		r.SI = v
	default:
		r.DI = v
	}
}

// Reg8 returns a byte register by its 3-bit encoding (AL,CL,DL,BL,AH,CH,DH,BH).
func (r *Registers) Reg8(n byte) byte {
	v := r.Reg16(n & 3)
	if n&4 != 0 {
		return byte(v >> 8)
	}
	return byte(v)
}

func (r *Registers) SetReg8(n byte, v byte) {
	w := r.Reg16(n & 3)
	if n&4 != 0 {
		w = w&0xFF | uint16(v)<<8
	} else {
		w = w&0xFF00 | uint16(v)
	}
	r.SetReg16(n&3, w)
}

func (r *Registers) Seg(s Segment) uint16 {
	switch s & 3 {
	case SegES:
		return r.ES
	case SegCS:
		return r.CS
	case SegSS:
		return r.SS
	default:
		return r.DS
	}
}

func (r *Registers) SetSeg(s Segment, v uint16) {
	switch s & 3 {
	case SegES:
		r.ES = v
	case SegCS:
		r.CS = v
	case SegSS:
		r.SS = v
	default:
		r.DS = v
	}
}

// State is a read-only snapshot of the programmer visible registers.
type State struct {
	AX, CX, DX, BX,
	SP, BP, SI, DI uint16

	ES, CS, SS, DS uint16

	IP    uint16
	Flags uint16
}

func (r *Registers) Snapshot(flags uint16) State {
	return State{
		AX: r.AX, CX: r.CX, DX: r.DX, BX: r.BX,
		SP: r.SP, BP: r.BP, SI: r.SI, DI: r.DI,
		ES: r.ES, CS: r.CS, SS: r.SS, DS: r.DS,
		IP: r.IP, Flags: flags,
	}
}

func (s State) String() string {
	return fmt.Sprintf(
		"AX %04X  BX %04X  CX %04X  DX %04X\nSP %04X  BP %04X  SI %04X  DI %04X\nES %04X  CS %04X  SS %04X  DS %04X\nIP %04X  FL %04X  %v",
		s.AX, s.BX, s.CX, s.DX,
		s.SP, s.BP, s.SI, s.DI,
		s.ES, s.CS, s.SS, s.DS,
		s.IP, s.Flags, Flags(s.Flags),
	)
}

// ReservedFlags returns the bits that read as one for the variant.
func (v Variant) ReservedFlags() Flags {
	if v.IsNEC() {
		return reservedNEC
	}
	return reservedIntel
}
