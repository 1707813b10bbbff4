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
	"fmt"

	"github.com/andreas-jonsson/i8088-core/emulator/processor"
	log "github.com/sirupsen/logrus"
)

type dispatchState int

const (
	stateFetch dispatchState = iota
	statePrefix
	stateRepeat
	stateHalt
	stateDone
)

var stateNames = [...]string{"fetch", "prefix", "repeat", "halt", "done"}

func (s dispatchState) String() string {
	return stateNames[s]
}

type instructionState struct {
	opcode              byte
	modRM, mod, reg, rm byte
	eaSeg, eaOffset     uint16
	startIP             uint16

	segOverride bool
	overrideSeg processor.Segment
	repeatMode  byte
	lock        bool

	repeating, completed, halted bool
}

// dispatch advances the processor by one instruction, one prefix or one
// element of a repeated string instruction. It reports whether an
// instruction retired.
func (p *CPU) dispatch() bool {
	switch p.state {
	case stateHalt:
		p.idle()
		return false
	case stateRepeat:
	case stateFetch:
		p.startIP = p.IP
		fallthrough
	default:
		p.opcode = p.fetchByte()
	}

	p.completed = true
	p.execute()
	if !p.completed {
		return false
	}

	p.finish()
	return true
}

// finish runs the instruction boundary.
func (p *CPU) finish() {
	p.state = stateDone
	p.repeating = false
	p.segOverride = false
	p.repeatMode = repNone
	p.lock = false

	p.stats.NumInstructions++
	p.clockEnd()

	if p.checkInterrupts() {
		p.halted = false
	}
	p.noInterrupt = false
	p.trap = p.GetBool(processor.Trap)
	p.clockEnd()

	if p.halted {
		p.state = stateHalt
	} else {
		p.state = stateFetch
	}
}

const haltCycles = 4

func (p *CPU) canWake() bool {
	return p.trap || p.nmiPending() || p.GetBool(processor.InterruptEnable)
}

func (p *CPU) idle() {
	if p.trap || p.nmiPending() || p.irqPending() {
		p.halted = false
		p.state = stateFetch
		p.checkInterrupts()
		p.trap = p.GetBool(processor.Trap)
	} else {
		p.wait(haltCycles, false)
	}
	p.clockEnd()
}

// prefix keeps the instruction open so the next byte is decoded with the
// accumulated prefix state.
func (p *CPU) prefix() {
	p.completed = false
	p.state = statePrefix
}

func (p *CPU) invalidOpcode() {
	log.WithFields(log.Fields{
		"opcode": fmt.Sprintf("0x%02X", p.opcode),
		"cs":     fmt.Sprintf("0x%04X", p.CS),
		"ip":     fmt.Sprintf("0x%04X", p.startIP),
	}).Warn("undefined opcode")

	p.stats.NumInvalid++
	p.fetchByte()
	p.wait(8, false)
}

func (p *CPU) jump(delta uint16) uint16 {
	p.access(67)
	p.clearQueue()
	p.wait(5, false)
	ret := p.IP
	p.setIP(ret + delta)
	return ret
}

func (p *CPU) jumpShort(d byte) {
	p.jump(signExtend16(d))
}

func (p *CPU) jumpNear() uint16 {
	return p.jump(p.fetchWord())
}

func (p *CPU) jumpConditional() {
	p.wait(1, false)
	d := p.fetchByte()
	p.wait(1, false)
	if conditionLookup[p.opcode&0xF](p.Flags) {
		p.jumpShort(d)
	}
}

// flagsWord is the flags register as software sees it.
func (p *CPU) flagsWord() uint16 {
	return p.Load() | uint16(p.variant.ReservedFlags())
}

// ALU r/m,r and r,r/m
func (p *CPU) opALU(wide bool) {
	p.decodeModRM()
	p.access(46)
	ea := p.readEA(wide)

	op := int(p.opcode>>3) & 7
	toReg := p.opcode&2 != 0

	d, s := ea, p.readReg(wide, p.reg)
	if toReg {
		d, s = s, ea
	}
	if p.mod != 3 {
		p.wait(2, false)
	}
	p.wait(1, false)

	r := uint16(p.alu(op, wide, uint32(d), uint32(s)))
	switch {
	case op == aluCMP:
		p.wait(1, false)
	case toReg:
		p.writeReg(wide, p.reg, r)
		p.wait(1, false)
	default:
		p.access(10)
		p.writeEA(wide, r)
		if p.mod == 3 {
			p.wait(1, false)
		}
	}
}

// ALU AL/AX,imm
func (p *CPU) opALUImm(wide bool) {
	p.wait(1, false)
	s := p.fetch(wide)
	op := int(p.opcode>>3) & 7
	r := p.alu(op, wide, uint32(p.accumulator(wide)), uint32(s))
	if op != aluCMP {
		p.setAccumulator(wide, uint16(r))
	}
	p.wait(1, false)
}

// RET, RETF and their aliases
func (p *CPU) opReturn() {
	op := p.opcode
	far := op&8 != 0
	pop := op&1 == 0

	if op&9 != 1 {
		p.wait(1, false)
	}
	var n uint16
	if pop {
		n = p.fetchWord()
		p.wait(1, false)
	}
	if op&9 == 9 {
		p.wait(1, false)
	}

	p.clearQueue()
	p.access(26)
	ip := p.pop()
	p.wait(2, false)

	cs := p.CS
	if far {
		p.access(42)
		cs = p.pop()
		if !pop {
			p.wait(1, false)
		}
	}
	if pop {
		p.SP += n
		p.wait(1, false)
	}

	p.CS = cs
	p.access(72)
	p.setIP(ip)
}

func (p *CPU) execute() {
	op := p.opcode
	wide := op&1 != 0

	switch op {
	case 0x00, 0x01, 0x02, 0x03, // ADD
		0x08, 0x09, 0x0A, 0x0B, // OR
		0x10, 0x11, 0x12, 0x13, // ADC
		0x18, 0x19, 0x1A, 0x1B, // SBB
		0x20, 0x21, 0x22, 0x23, // AND
		0x28, 0x29, 0x2A, 0x2B, // SUB
		0x30, 0x31, 0x32, 0x33, // XOR
		0x38, 0x39, 0x3A, 0x3B: // CMP
		p.opALU(wide)
	case 0x04, 0x05, 0x0C, 0x0D, 0x14, 0x15, 0x1C, 0x1D,
		0x24, 0x25, 0x2C, 0x2D, 0x34, 0x35, 0x3C, 0x3D: // ALU AL/AX,imm
		p.opALUImm(wide)
	case 0x06, 0x0E, 0x16, 0x1E: // PUSH ES/CS/SS/DS
		p.access(29)
		p.push(p.Seg(processor.Segment(op>>3) & 3))
	case 0x07, 0x17, 0x1F: // POP ES/SS/DS
		p.access(22)
		p.SetSeg(processor.Segment(op>>3)&3, p.pop())
		p.wait(1, false)
		p.noInterrupt = true
	case 0x0F: // POP CS
		if p.variant.IsNEC() {
			p.invalidOpcode()
			break
		}
		p.access(22)
		p.CS = p.pop()
		p.setIP(p.IP)
		p.wait(1, false)
		p.noInterrupt = true
	case 0x26, 0x2E, 0x36, 0x3E: // ES: CS: SS: DS:
		p.segOverride = true
		p.overrideSeg = prefixSegment[(op>>3)&3]
		p.prefix()
	case 0x27: // DAA
		p.decimalAdjustAdd()
	case 0x2F: // DAS
		p.decimalAdjustSub()
	case 0x37: // AAA
		p.asciiAdjust(false)
	case 0x3F: // AAS
		p.asciiAdjust(true)
	case 0x40, 0x41, 0x42, 0x43, 0x44, 0x45, 0x46, 0x47: // INC AX/CX/DX/BX/SP/BP/SI/DI
		p.SetReg16(op&7, uint16(p.incdec(true, uint32(p.Reg16(op&7)), false)))
		p.wait(1, false)
	case 0x48, 0x49, 0x4A, 0x4B, 0x4C, 0x4D, 0x4E, 0x4F: // DEC AX/CX/DX/BX/SP/BP/SI/DI
		p.SetReg16(op&7, uint16(p.incdec(true, uint32(p.Reg16(op&7)), true)))
		p.wait(1, false)
	case 0x50, 0x51, 0x52, 0x53, 0x54, 0x55, 0x56, 0x57: // PUSH AX/CX/DX/BX/SP/BP/SI/DI
		p.access(30)
		if op == 0x54 && !p.variant.IsNEC() {
			p.SP -= 2
			p.writeMemWord(p.SS, p.SP, p.SP)
			break
		}
		p.push(p.Reg16(op & 7))
	case 0x58, 0x59, 0x5A, 0x5B, 0x5C, 0x5D, 0x5E, 0x5F: // POP AX/CX/DX/BX/SP/BP/SI/DI
		p.access(23)
		p.SetReg16(op&7, p.pop())
		p.wait(1, false)
	case 0x60, 0x61, 0x62, 0x63, 0x64, 0x65, 0x66, 0x67,
		0x68, 0x69, 0x6A, 0x6B, 0x6C, 0x6D, 0x6E, 0x6F:
		if p.variant.IsNEC() {
			p.execute186()
			break
		}
		p.jumpConditional()
	case 0x70, 0x71, 0x72, 0x73, 0x74, 0x75, 0x76, 0x77,
		0x78, 0x79, 0x7A, 0x7B, 0x7C, 0x7D, 0x7E, 0x7F: // Jcc
		p.jumpConditional()
	case 0x80, 0x81, 0x82, 0x83: // _ALU1 r/m,imm
		p.grp1(wide)
	case 0x84, 0x85: // TEST r/m,r
		p.decodeModRM()
		p.access(48)
		v := p.readEA(wide)
		p.bitwise(wide, uint32(v&p.readReg(wide, p.reg)))
		if p.mod == 3 {
			p.wait(2, false)
		}
		p.wait(2, false)
	case 0x86, 0x87: // XCHG r/m,r
		p.decodeModRM()
		p.access(49)
		v := p.readEA(wide)
		s := p.readReg(wide, p.reg)
		p.writeReg(wide, p.reg, v)
		p.wait(3, false)
		p.access(12)
		p.writeEA(wide, s)
	case 0x88, 0x89: // MOV r/m,r
		p.decodeModRM()
		p.wait(1, false)
		p.access(13)
		p.writeEA(wide, p.readReg(wide, p.reg))
	case 0x8A, 0x8B: // MOV r,r/m
		p.decodeModRM()
		p.access(50)
		p.writeReg(wide, p.reg, p.readEA(wide))
		p.wait(1, false)
		if p.mod != 3 {
			p.wait(2, false)
		}
	case 0x8C: // MOV r/m16,sreg
		p.decodeModRM()
		if p.mod == 3 {
			p.wait(1, false)
		}
		p.access(14)
		p.writeEA(true, p.Seg(processor.Segment(p.reg&3)))
	case 0x8D: // LEA r16,m
		p.decodeModRM()
		p.SetReg16(p.reg, p.eaOffset)
		p.wait(1, false)
		if p.mod != 3 {
			p.wait(2, false)
		}
	case 0x8E: // MOV sreg,r/m16
		p.decodeModRM()
		p.access(51)
		v := p.readEA(true)
		if seg := processor.Segment(p.reg & 3); seg == processor.SegCS {
			p.CS = v
			p.setIP(p.IP)
		} else {
			p.SetSeg(seg, v)
		}
		p.wait(1, false)
		if p.mod != 3 {
			p.wait(2, false)
		}
		p.noInterrupt = true
	case 0x8F: // POP r/m16
		p.decodeModRM()
		p.wait(1, false)
		p.access(24)
		if p.mod != 3 {
			p.wait(2, false)
		}
		v := p.pop()
		p.wait(2, false)
		p.access(15)
		p.writeEA(true, v)
	case 0x90: // NOP
		p.stats.NOP++
		p.wait(2, false)
	case 0x91, 0x92, 0x93, 0x94, 0x95, 0x96, 0x97: // XCHG AX,r16
		p.wait(2, false)
		v := p.Reg16(op & 7)
		p.SetReg16(op&7, p.AX)
		p.AX = v
	case 0x98: // CBW
		p.wait(1, false)
		if p.AL()&0x80 != 0 {
			p.SetAH(0xFF)
		} else {
			p.SetAH(0)
		}
	case 0x99: // CWD
		p.wait(4, false)
		if p.AX&0x8000 != 0 {
			p.wait(1, false)
			p.DX = 0xFFFF
		} else {
			p.DX = 0
		}
	case 0x9A: // CALL a16:a16
		p.wait(1, false)
		ip := p.fetchWord()
		p.wait(1, false)
		cs := p.fetchWord()
		p.clearQueue()
		p.access(31)
		p.push(p.CS)
		p.access(60)
		ret := p.IP
		p.CS = cs
		p.setIP(ip)
		p.access(32)
		p.push(ret)
	case 0x9B: // WAIT
		p.wait(3, false)
	case 0x9C: // PUSHF
		p.access(33)
		p.push(p.flagsWord())
	case 0x9D: // POPF
		p.access(25)
		p.Store(p.pop())
		p.wait(1, false)
	case 0x9E: // SAHF
		const mask = processor.Sign | processor.Zero | processor.Adjust | processor.Parity | processor.Carry
		p.wait(1, false)
		p.Clear(mask)
		p.Set(processor.Flags(p.AH()) & mask)
		p.wait(2, false)
	case 0x9F: // LAHF
		p.wait(1, false)
		p.SetAH(byte(p.flagsWord()))
	case 0xA0, 0xA1: // MOV AL/AX,[a16]
		p.wait(1, false)
		offset := p.fetchWord()
		p.access(1)
		p.setAccumulator(wide, p.readMem(wide, p.segment(processor.SegDS), offset))
		p.wait(1, false)
	case 0xA2, 0xA3: // MOV [a16],AL/AX
		p.wait(1, false)
		offset := p.fetchWord()
		p.access(7)
		p.writeMem(wide, p.segment(processor.SegDS), offset, p.accumulator(wide))
	case 0xA4, 0xA5, 0xAC, 0xAD: // MOVSB/MOVSW/LODSB/LODSW
		p.opMoveLoadString(wide)
	case 0xA6, 0xA7, 0xAE, 0xAF: // CMPSB/CMPSW/SCASB/SCASW
		p.opCompareString(wide)
	case 0xA8, 0xA9: // TEST AL/AX,imm
		p.wait(1, false)
		s := p.fetch(wide)
		p.bitwise(wide, uint32(p.accumulator(wide)&s))
		p.wait(1, false)
	case 0xAA, 0xAB: // STOSB/STOSW
		p.opStoreString(wide)
	case 0xB0, 0xB1, 0xB2, 0xB3, 0xB4, 0xB5, 0xB6, 0xB7: // MOV r8,imm8
		p.wait(1, false)
		p.SetReg8(op&7, p.fetchByte())
	case 0xB8, 0xB9, 0xBA, 0xBB, 0xBC, 0xBD, 0xBE, 0xBF: // MOV r16,imm16
		p.wait(1, false)
		p.SetReg16(op&7, p.fetchWord())
	case 0xC0, 0xC1: // RET alias, shift by imm8 on NEC
		if p.variant.IsNEC() {
			p.grp2(wide)
			break
		}
		p.opReturn()
	case 0xC2, 0xC3, 0xCA, 0xCB: // RET/RETF
		p.opReturn()
	case 0xC4, 0xC5: // LES/LDS r16,m32
		p.decodeModRM()
		p.access(52)
		p.SetReg16(p.reg, p.readEA(true))
		p.access(57)
		seg := p.readEA2()
		if op == 0xC4 {
			p.ES = seg
		} else {
			p.DS = seg
		}
		p.wait(1, false)
	case 0xC6, 0xC7: // MOV r/m,imm
		p.decodeModRM()
		p.wait(1, false)
		v := p.fetch(wide)
		p.access(16)
		if p.mod == 3 {
			p.wait(1, false)
		}
		p.writeEA(wide, v)
	case 0xC8, 0xC9: // RETF alias, ENTER/LEAVE on NEC
		if p.variant.IsNEC() {
			p.execute186()
			break
		}
		p.opReturn()
	case 0xCC: // INT 3
		p.interrupt(3)
	case 0xCD: // INT imm8
		p.wait(1, false)
		p.interrupt(p.fetchByte())
	case 0xCE: // INTO
		p.wait(3, false)
		if p.GetBool(processor.Overflow) {
			p.wait(2, false)
			p.interrupt(4)
		}
	case 0xCF: // IRET
		p.clearQueue()
		p.access(43)
		ip := p.pop()
		p.wait(3, false)
		p.access(44)
		p.CS = p.pop()
		p.access(62)
		p.setIP(ip)
		p.access(45)
		p.Store(p.pop())
		p.wait(5, false)
		p.noInterrupt = true
		p.nmiEnable = true
	case 0xD0, 0xD1, 0xD2, 0xD3: // _ROT r/m
		p.grp2(wide)
	case 0xD4: // AAM imm8
		p.asciiAdjustMul(p.fetchByte())
	case 0xD5: // AAD imm8
		p.asciiAdjustDiv()
	case 0xD6: // SALC
		if p.variant.IsNEC() {
			p.invalidOpcode()
			break
		}
		p.wait(3, false)
		if p.GetBool(processor.Carry) {
			p.SetAL(0xFF)
		} else {
			p.SetAL(0)
		}
	case 0xD7: // XLAT
		p.access(4)
		p.SetAL(p.readMemByte(p.segment(processor.SegDS), p.BX+uint16(p.AL())))
		p.wait(1, false)
	case 0xD8, 0xD9, 0xDA, 0xDB, 0xDC, 0xDD, 0xDE, 0xDF: // ESC
		p.decodeModRM()
		p.access(54)
		if p.mod != 3 {
			p.readEA(true)
		}
	case 0xE0, 0xE1, 0xE2, 0xE3: // LOOPNZ/LOOPZ/LOOP/JCXZ
		p.wait(3, false)
		d := p.fetchByte()
		if op != 0xE2 {
			p.wait(1, false)
		}

		var taken bool
		if op == 0xE3 {
			taken = p.CX == 0
		} else {
			p.CX--
			taken = p.CX != 0
			switch op {
			case 0xE0:
				taken = taken && !p.GetBool(processor.Zero)
			case 0xE1:
				taken = taken && p.GetBool(processor.Zero)
			}
		}
		if taken {
			p.jumpShort(d)
		}
	case 0xE4, 0xE5, 0xE6, 0xE7, 0xEC, 0xED, 0xEE, 0xEF: // IN/OUT
		if op&0x0E != 0x0C {
			p.wait(1, false)
		}
		port := p.DX
		if op&8 == 0 {
			port = uint16(p.fetchByte())
		}
		if op&2 == 0 {
			p.access(3)
			p.setAccumulator(wide, p.portIn(wide, port))
			p.wait(1, false)
			break
		}
		if op&8 == 0 {
			p.access(8)
		} else {
			p.access(9)
		}
		p.portOut(wide, port, p.accumulator(wide))
	case 0xE8: // CALL rel16
		p.wait(1, false)
		ret := p.jumpNear()
		p.access(34)
		p.push(ret)
	case 0xE9: // JMP rel16
		p.wait(1, false)
		p.jumpNear()
	case 0xEA: // JMP a16:a16
		p.wait(1, false)
		ip := p.fetchWord()
		p.wait(1, false)
		p.CS = p.fetchWord()
		p.access(70)
		p.clearQueue()
		p.setIP(ip)
	case 0xEB: // JMP rel8
		p.wait(1, false)
		p.jumpShort(p.fetchByte())
	case 0xF0, 0xF1: // LOCK
		p.lock = true
		p.wait(1, false)
		p.prefix()
	case 0xF2, 0xF3: // REPNE/REPNZ,REP/REPE/REPZ
		p.repeatMode = op
		p.wait(1, false)
		p.prefix()
	case 0xF4: // HLT
		p.wait(1, false)
		p.clearQueue()
		p.halted = true
	case 0xF5: // CMC
		p.wait(1, false)
		p.SetBool(processor.Carry, !p.GetBool(processor.Carry))
	case 0xF6, 0xF7: // _ALU2 r/m
		p.grp3(wide)
	case 0xF8: // CLC
		p.wait(1, false)
		p.Clear(processor.Carry)
	case 0xF9: // STC
		p.wait(1, false)
		p.Set(processor.Carry)
	case 0xFA: // CLI
		p.wait(1, false)
		p.Clear(processor.InterruptEnable)
	case 0xFB: // STI
		p.wait(1, false)
		p.Set(processor.InterruptEnable)
	case 0xFC: // CLD
		p.wait(1, false)
		p.Clear(processor.Direction)
	case 0xFD: // STD
		p.wait(1, false)
		p.Set(processor.Direction)
	case 0xFE, 0xFF: // _MISC r/m
		p.grp4(wide)
	default:
		p.invalidOpcode()
	}
}

// execute186 decodes the 80186 instructions found on NEC parts.
func (p *CPU) execute186() {
	op := p.opcode
	wide := op&1 != 0

	switch op {
	case 0x60: // PUSHA
		sp := p.SP
		p.wait(2, false)
		for _, r := range [...]uint16{p.AX, p.CX, p.DX, p.BX, sp, p.BP, p.SI, p.DI} {
			p.push(r)
		}
	case 0x61: // POPA
		p.wait(2, false)
		p.DI = p.pop()
		p.SI = p.pop()
		p.BP = p.pop()
		p.pop()
		p.BX = p.pop()
		p.DX = p.pop()
		p.CX = p.pop()
		p.AX = p.pop()
	case 0x62: // BOUND r16,m32
		p.decodeModRM()
		lo := int16(p.readEA(true))
		hi := int16(p.readEA2())
		p.wait(4, false)
		if idx := int16(p.Reg16(p.reg)); idx < lo || idx > hi {
			p.setIP(p.startIP)
			p.interrupt(5)
		}
	case 0x68: // PUSH imm16
		p.wait(1, false)
		v := p.fetchWord()
		p.access(30)
		p.push(v)
	case 0x6A: // PUSH imm8
		p.wait(1, false)
		v := signExtend16(p.fetchByte())
		p.access(30)
		p.push(v)
	case 0x69, 0x6B: // IMUL r16,r/m16,imm
		p.decodeModRM()
		v := p.readEA(true)
		var imm uint16
		if op == 0x69 {
			imm = p.fetchWord()
		} else {
			imm = signExtend16(p.fetchByte())
		}

		zf := p.GetBool(processor.Zero)
		lo, hi := p.multiply(true, true, v, imm, false)
		p.SetReg16(p.reg, lo)

		var ext uint16
		if lo&0x8000 != 0 {
			ext = 0xFFFF
		}
		p.setMulOverflow(hi != ext)
		p.SetBool(processor.Zero, zf)
	case 0x6C, 0x6D, 0x6E, 0x6F: // INSB/INSW/OUTSB/OUTSW
		p.opPortString(wide)
	case 0xC8: // ENTER imm16,imm8
		size := p.fetchWord()
		level := p.fetchByte() & 0x1F
		p.wait(2, false)

		p.push(p.BP)
		frame := p.SP
		if level > 0 {
			for i := byte(1); i < level; i++ {
				p.BP -= 2
				p.push(p.readMemWord(p.SS, p.BP))
			}
			p.push(frame)
		}
		p.BP = frame
		p.SP -= size
	case 0xC9: // LEAVE
		p.wait(2, false)
		p.SP = p.BP
		p.BP = p.pop()
	default:
		p.invalidOpcode()
	}
}
