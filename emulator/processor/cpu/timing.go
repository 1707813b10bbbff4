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
	"github.com/andreas-jonsson/i8088-core/emulator/memory"
)

// wait charges n cycles. Cycles spent on an EU bus transfer only advance the
// BIU phase, everything else may be used to fill the prefetch queue.
func (p *CPU) wait(n int, bus bool) {
	p.cycles -= n
	p.elapsed += uint64(n)
	p.addCycles(n, !bus)
}

// access charges the internal cycles of an instruction category.
func (p *CPU) access(class int) {
	mem := p.mod != 3
	switch class {
	case 5:
		if p.opcode == 0xCC {
			p.wait(7, false)
		} else {
			p.wait(4, false)
		}
	case 36:
		p.wait(1, false)
		p.clearQueue()
		p.wait(1, false)
		if mem {
			p.wait(1, false)
		}
		p.wait(3, false)
	case 43:
		p.wait(2, false)
		if mem {
			p.wait(1, false)
		}
	case 57:
		if mem {
			p.wait(2, false)
		}
		p.wait(4, false)
	case 58:
		if mem {
			p.wait(1, false)
		}
		p.wait(4, false)
	case 59:
		p.wait(2, false)
		p.clearQueue()
		if mem {
			p.wait(1, false)
		}
		p.wait(3, false)
	case 65:
		p.wait(1, false)
		p.clearQueue()
		p.wait(2, false)
		if mem {
			p.wait(1, false)
		}
	default:
		if n := accessCycles[class]; n > 0 {
			p.wait(n, false)
		}
	}
}

func (p *CPU) clockStart() {
	p.cycleMark = p.elapsed
}

// clockEnd reports the cycles since the last mark to the installed timers.
func (p *CPU) clockEnd() {
	diff := int(p.elapsed - p.cycleMark)
	p.cycleMark = p.elapsed
	if diff <= 0 {
		return
	}

	p.stats.Cycles += uint64(diff)
	for _, t := range p.timers {
		t.Advance(diff)
	}
}

func (p *CPU) readMemByte(seg, offset uint16) byte {
	p.wait(4, true)
	return p.ReadByte(memory.NewPointer(seg, offset))
}

func (p *CPU) writeMemByte(seg, offset uint16, data byte) {
	p.wait(4, true)
	p.WriteByte(memory.NewPointer(seg, offset), data)
}

// readMemWord costs one transfer on the 16-bit bus at even offsets, two
// otherwise. The high byte wraps within the segment.
func (p *CPU) readMemWord(seg, offset uint16) uint16 {
	p.wait(4, true)
	if p.variant.WideBus() && offset&1 == 0 {
		return p.ReadWord(memory.NewPointer(seg, offset))
	}
	p.wait(4, true)
	return uint16(p.ReadByte(memory.NewPointer(seg, offset))) | uint16(p.ReadByte(memory.NewPointer(seg, offset+1)))<<8
}

func (p *CPU) writeMemWord(seg, offset uint16, data uint16) {
	p.wait(4, true)
	if p.variant.WideBus() && offset&1 == 0 {
		p.WriteWord(memory.NewPointer(seg, offset), data)
		return
	}
	p.wait(4, true)
	p.WriteByte(memory.NewPointer(seg, offset), byte(data))
	p.WriteByte(memory.NewPointer(seg, offset+1), byte(data>>8))
}

func (p *CPU) readMem(wide bool, seg, offset uint16) uint16 {
	if wide {
		return p.readMemWord(seg, offset)
	}
	return uint16(p.readMemByte(seg, offset))
}

func (p *CPU) writeMem(wide bool, seg, offset uint16, data uint16) {
	if wide {
		p.writeMemWord(seg, offset, data)
		return
	}
	p.writeMemByte(seg, offset, byte(data))
}

func (p *CPU) portIn(wide bool, port uint16) uint16 {
	p.wait(4, true)
	if !wide {
		return uint16(p.InByte(port))
	}
	if !p.variant.WideBus() || port&1 != 0 {
		p.wait(4, true)
	}
	return p.InWord(port)
}

func (p *CPU) portOut(wide bool, port uint16, data uint16) {
	p.wait(4, true)
	if !wide {
		p.OutByte(port, byte(data))
		return
	}
	if !p.variant.WideBus() || port&1 != 0 {
		p.wait(4, true)
	}
	p.OutWord(port, data)
}

func (p *CPU) push(v uint16) {
	p.SP -= 2
	p.writeMemWord(p.SS, p.SP, v)
}

func (p *CPU) pop() uint16 {
	v := p.readMemWord(p.SS, p.SP)
	p.SP += 2
	return v
}
