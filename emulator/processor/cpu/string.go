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
	repNone = 0
	repNE   = 0xF2
	repE    = 0xF3
)

func (p *CPU) stringDelta(wide bool) uint16 {
	n := uint16(1)
	if wide {
		n = 2
	}
	if p.GetBool(processor.Direction) {
		return -n
	}
	return n
}

func (p *CPU) updateSI(wide bool) {
	p.SI += p.stringDelta(wide)
}

func (p *CPU) updateDI(wide bool) {
	p.DI += p.stringDelta(wide)
}

func (p *CPU) lods(wide bool) uint16 {
	v := p.readMem(wide, p.segment(processor.SegDS), p.SI)
	p.updateSI(wide)
	return v
}

func (p *CPU) stos(wide bool, v uint16) {
	p.writeMem(wide, p.ES, p.DI, v)
	p.updateDI(wide)
}

// repAction runs before each element of a repeated string instruction. It
// returns true when the repetition is over, either because CX reached zero
// or because an interrupt must be serviced. In the latter case IP is moved
// back so the instruction restarts after the interrupt returns.
func (p *CPU) repAction() bool {
	if p.repeatMode == repNone {
		return false
	}
	p.wait(2, false)

	count := p.CX
	if p.repeating && p.interruptPending() {
		p.access(71)
		p.clearQueue()

		// Only the last prefix is recovered on Intel parts.
		if p.variant.IsNEC() && p.segOverride {
			p.setIP(p.IP - 3)
		} else {
			p.setIP(p.IP - 2)
		}
		count = 0
	}

	if count == 0 {
		p.wait(1, false)
		p.completed = true
		p.repeating = false
		return true
	}

	p.CX--
	p.completed = false
	p.wait(2, false)
	if !p.repeating {
		p.wait(2, false)
	}
	return false
}

// continueRepeat parks the instruction so the next dispatch resumes it
// without fetching a new opcode.
func (p *CPU) continueRepeat() {
	p.repeating = true
	p.state = stateRepeat
	p.clockEnd()
}

// MOVS and LODS
func (p *CPU) opMoveLoadString(wide bool) {
	load := p.opcode&8 != 0

	if !p.repeating {
		p.wait(1, false)
		if !load && p.repeatMode != repNone {
			p.wait(1, false)
		}
	}
	if p.repAction() {
		p.wait(1, false)
		if load {
			p.wait(1, false)
		}
		return
	}
	if p.repeatMode != repNone && load {
		p.wait(1, false)
	}

	v := p.lods(wide)
	if !load {
		p.access(27)
		p.stos(wide, v)
	} else {
		p.setAccumulator(wide, v)
		if p.repeatMode != repNone {
			p.wait(2, false)
		}
	}

	if p.repeatMode == repNone {
		p.wait(3, false)
		if load {
			p.wait(1, false)
		}
		return
	}
	p.continueRepeat()
}

// STOS
func (p *CPU) opStoreString(wide bool) {
	if !p.repeating {
		p.wait(1, false)
		if p.repeatMode != repNone {
			p.wait(1, false)
		}
	}
	if p.repAction() {
		p.wait(1, false)
		return
	}

	p.access(28)
	p.stos(wide, p.accumulator(wide))

	if p.repeatMode == repNone {
		p.wait(3, false)
		return
	}
	p.continueRepeat()
}

// CMPS and SCAS
func (p *CPU) opCompareString(wide bool) {
	scan := p.opcode&8 != 0

	if !p.repeating {
		p.wait(1, false)
	}
	if p.repAction() {
		p.wait(2, false)
		return
	}
	if p.repeatMode != repNone {
		p.wait(1, false)
	}
	p.wait(1, false)

	d := p.accumulator(wide)
	if !scan {
		p.access(21)
		d = p.lods(wide)
		p.wait(1, false)
	}

	p.access(2)
	s := p.readMem(wide, p.ES, p.DI)
	p.updateDI(wide)
	p.sub(wide, uint32(d), uint32(s), false)
	p.wait(2, false)

	if p.repeatMode == repNone {
		p.wait(3, false)
		return
	}

	if p.GetBool(processor.Zero) == (p.repeatMode == repNE) {
		p.completed = true
		p.repeating = false
		p.wait(4, false)
		return
	}
	p.continueRepeat()
}

// INS and OUTS are only decoded on parts with the 80186 extensions.
func (p *CPU) opPortString(wide bool) {
	out := p.opcode&2 != 0

	if !p.repeating {
		p.wait(1, false)
	}
	if p.repAction() {
		p.wait(1, false)
		return
	}

	if out {
		p.portOut(wide, p.DX, p.lods(wide))
	} else {
		p.stos(wide, p.portIn(wide, p.DX))
	}
	p.wait(4, false)

	if p.repeatMode == repNone {
		return
	}
	p.continueRepeat()
}
