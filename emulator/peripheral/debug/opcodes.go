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

package debug

import "github.com/andreas-jonsson/i8088-core/emulator/processor"

var (
	opcodeNames    [0x100]string
	necOpcodeNames = map[byte]string{
		0x0F: "(undefined)",
		0x60: "PUSHA",
		0x61: "POPA",
		0x62: "BOUND Gv,Ma",
		0x63: "(undefined)",
		0x64: "(undefined)",
		0x65: "(undefined)",
		0x66: "(undefined)",
		0x67: "(undefined)",
		0x68: "PUSH Iv",
		0x69: "IMUL Gv,Ev,Iv",
		0x6A: "PUSH Ib",
		0x6B: "IMUL Gv,Ev,Ib",
		0x6C: "INSB",
		0x6D: "INSW",
		0x6E: "OUTSB",
		0x6F: "OUTSW",
		0xC0: "GRP2 Eb,Ib",
		0xC1: "GRP2 Ev,Ib",
		0xC8: "ENTER Iw,Ib",
		0xC9: "LEAVE",
		0xD6: "(undefined)",
	}
)

func init() {
	alu := [...]string{"ADD", "OR", "ADC", "SBB", "AND", "SUB", "XOR", "CMP"}
	operands := [...]string{"Eb,Gb", "Ev,Gv", "Gb,Eb", "Gv,Ev", "AL,Ib", "AX,Iv"}
	for i, name := range alu {
		for j, o := range operands {
			opcodeNames[i*8+j] = name + " " + o
		}
	}

	regs8 := [...]string{"AL", "CL", "DL", "BL", "AH", "CH", "DH", "BH"}
	regs16 := [...]string{"AX", "CX", "DX", "BX", "SP", "BP", "SI", "DI"}
	for i := 0; i < 8; i++ {
		opcodeNames[0x40+i] = "INC " + regs16[i]
		opcodeNames[0x48+i] = "DEC " + regs16[i]
		opcodeNames[0x50+i] = "PUSH " + regs16[i]
		opcodeNames[0x58+i] = "POP " + regs16[i]
		opcodeNames[0x90+i] = "XCHG AX," + regs16[i]
		opcodeNames[0xB0+i] = "MOV " + regs8[i] + ",Ib"
		opcodeNames[0xB8+i] = "MOV " + regs16[i] + ",Iv"
		opcodeNames[0xD8+i] = "ESC"
	}

	jcc := [...]string{"JO", "JNO", "JB", "JNB", "JZ", "JNZ", "JBE", "JA", "JS", "JNS", "JPE", "JPO", "JL", "JGE", "JLE", "JG"}
	for i, name := range jcc {
		opcodeNames[0x60+i] = name + " Jb"
		opcodeNames[0x70+i] = name + " Jb"
	}

	for op, name := range map[byte]string{
		0x06: "PUSH ES", 0x07: "POP ES", 0x0E: "PUSH CS", 0x0F: "POP CS",
		0x16: "PUSH SS", 0x17: "POP SS", 0x1E: "PUSH DS", 0x1F: "POP DS",
		0x26: "ES:", 0x27: "DAA", 0x2E: "CS:", 0x2F: "DAS",
		0x36: "SS:", 0x37: "AAA", 0x3E: "DS:", 0x3F: "AAS",

		0x80: "GRP1 Eb,Ib", 0x81: "GRP1 Ev,Iv", 0x82: "GRP1 Eb,Ib", 0x83: "GRP1 Ev,Ib",
		0x84: "TEST Eb,Gb", 0x85: "TEST Ev,Gv", 0x86: "XCHG Eb,Gb", 0x87: "XCHG Ev,Gv",
		0x88: "MOV Eb,Gb", 0x89: "MOV Ev,Gv", 0x8A: "MOV Gb,Eb", 0x8B: "MOV Gv,Ev",
		0x8C: "MOV Ew,Sw", 0x8D: "LEA Gv,M", 0x8E: "MOV Sw,Ew", 0x8F: "POP Ev",

		0x90: "NOP", 0x98: "CBW", 0x99: "CWD", 0x9A: "CALL Ap",
		0x9B: "WAIT", 0x9C: "PUSHF", 0x9D: "POPF", 0x9E: "SAHF", 0x9F: "LAHF",

		0xA0: "MOV AL,Ob", 0xA1: "MOV AX,Ov", 0xA2: "MOV Ob,AL", 0xA3: "MOV Ov,AX",
		0xA4: "MOVSB", 0xA5: "MOVSW", 0xA6: "CMPSB", 0xA7: "CMPSW",
		0xA8: "TEST AL,Ib", 0xA9: "TEST AX,Iv", 0xAA: "STOSB", 0xAB: "STOSW",
		0xAC: "LODSB", 0xAD: "LODSW", 0xAE: "SCASB", 0xAF: "SCASW",

		0xC0: "RET Iw", 0xC1: "RET", 0xC2: "RET Iw", 0xC3: "RET",
		0xC4: "LES Gv,Mp", 0xC5: "LDS Gv,Mp", 0xC6: "MOV Eb,Ib", 0xC7: "MOV Ev,Iv",
		0xC8: "RETF Iw", 0xC9: "RETF", 0xCA: "RETF Iw", 0xCB: "RETF",
		0xCC: "INT 3", 0xCD: "INT Ib", 0xCE: "INTO", 0xCF: "IRET",

		0xD0: "GRP2 Eb,1", 0xD1: "GRP2 Ev,1", 0xD2: "GRP2 Eb,CL", 0xD3: "GRP2 Ev,CL",
		0xD4: "AAM Ib", 0xD5: "AAD Ib", 0xD6: "SALC", 0xD7: "XLAT",

		0xE0: "LOOPNZ Jb", 0xE1: "LOOPZ Jb", 0xE2: "LOOP Jb", 0xE3: "JCXZ Jb",
		0xE4: "IN AL,Ib", 0xE5: "IN AX,Ib", 0xE6: "OUT Ib,AL", 0xE7: "OUT Ib,AX",
		0xE8: "CALL Jv", 0xE9: "JMP Jv", 0xEA: "JMP Ap", 0xEB: "JMP Jb",
		0xEC: "IN AL,DX", 0xED: "IN AX,DX", 0xEE: "OUT DX,AL", 0xEF: "OUT DX,AX",

		0xF0: "LOCK", 0xF1: "LOCK", 0xF2: "REPNZ", 0xF3: "REPZ",
		0xF4: "HLT", 0xF5: "CMC", 0xF6: "GRP3 Eb", 0xF7: "GRP3 Ev",
		0xF8: "CLC", 0xF9: "STC", 0xFA: "CLI", 0xFB: "STI",
		0xFC: "CLD", 0xFD: "STD", 0xFE: "GRP4 Eb", 0xFF: "GRP5 Ev",
	} {
		opcodeNames[op] = name
	}
}

// OpcodeName returns the mnemonic and operand pattern of op as decoded by
// the given variant.
func OpcodeName(v processor.Variant, op byte) string {
	if v.IsNEC() {
		if name, ok := necOpcodeNames[op]; ok {
			return name
		}
	}
	return opcodeNames[op]
}
