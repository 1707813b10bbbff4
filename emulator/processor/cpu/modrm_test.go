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
	"testing"

	"github.com/andreas-jonsson/i8088-core/emulator/processor"
)

func TestEffectiveAddress(t *testing.T) {
	const (
		es = 0x3000
		ss = 0x2000
		ds = 0x1234
	)

	tests := []struct {
		name     string
		code     []byte
		override bool
		seg      uint16
		offset   uint16
		length   uint16
	}{
		{"[BX+SI]", []byte{0x00}, false, ds, 0x0120, 1},
		{"[BX+DI]", []byte{0x01}, false, ds, 0x0102, 1},
		{"[BP+SI]", []byte{0x02}, false, ss, 0x0320, 1},
		{"[BP+DI]", []byte{0x03}, false, ss, 0x0302, 1},
		{"[SI]", []byte{0x04}, false, ds, 0x0020, 1},
		{"[DI]", []byte{0x05}, false, ds, 0x0002, 1},
		{"[disp16]", []byte{0x06, 0x78, 0x56}, false, ds, 0x5678, 3},
		{"[BX]", []byte{0x07}, false, ds, 0x0100, 1},
		{"[BP+disp8]", []byte{0x46, 0x10}, false, ss, 0x0310, 2},
		{"[BP-disp8]", []byte{0x46, 0xF0}, false, ss, 0x02F0, 2},
		{"[BX+disp16]", []byte{0x87, 0x00, 0x10}, false, ds, 0x1100, 3},
		{"[SI+disp16] wraps", []byte{0x84, 0xF0, 0xFF}, false, ds, 0x0010, 3},
		{"ES:[BP]", []byte{0x46, 0x00}, true, es, 0x0300, 2},
		{"ES:[disp16]", []byte{0x06, 0x34, 0x12}, true, es, 0x1234, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _ := newMachine(t, processor.Intel8088, program{0x100: tt.code})
			p.ES, p.SS, p.DS = es, ss, ds
			p.BX, p.BP, p.SI, p.DI = 0x100, 0x300, 0x20, 0x2
			p.CS = 0xF000
			p.setIP(0x100)

			if tt.override {
				p.segOverride = true
				p.overrideSeg = processor.SegES
			}
			p.decodeModRM()

			if p.mod == 3 {
				t.Fatal("decoded as register operand")
			}
			if p.eaSeg != tt.seg || p.eaOffset != tt.offset {
				t.Errorf("got %04X:%04X, want %04X:%04X", p.eaSeg, p.eaOffset, tt.seg, tt.offset)
			}
			if n := p.IP - 0x100; n != tt.length {
				t.Errorf("consumed %d bytes, want %d", n, tt.length)
			}
		})
	}
}

func TestRegisterOperand(t *testing.T) {
	p, _ := newMachine(t, processor.Intel8088, program{0x100: {0xD8}}) // mod 3, reg 3, rm 0
	p.AX, p.BX = 0x1234, 0x5678
	p.CS = 0xF000
	p.setIP(0x100)

	p.decodeModRM()
	if p.mod != 3 || p.reg != 3 || p.rm != 0 {
		t.Fatalf("decoded mod=%d reg=%d rm=%d", p.mod, p.reg, p.rm)
	}
	if v := p.readEA(true); v != 0x1234 {
		t.Errorf("word operand 0x%X", v)
	}
	if v := p.readReg(false, p.reg); v != 0x78 {
		t.Errorf("byte register 0x%X", v)
	}

	p.writeEA(false, 0xAB)
	if p.AX != 0x12AB {
		t.Errorf("byte write gave AX=0x%X", p.AX)
	}
}

func TestAddressCalculationCost(t *testing.T) {
	cost := func(code []byte) uint64 {
		p, _ := newMachine(t, processor.Intel8088, program{0x100: code})
		p.CS = 0xF000
		p.setIP(0x100)
		start := p.elapsed
		p.decodeModRM()
		return p.elapsed - start
	}

	// Same instruction length, only the table cost differs.
	if bxsi, bpsi := cost([]byte{0x00}), cost([]byte{0x02}); bpsi != bxsi+1 {
		t.Errorf("[BX+SI] took %d cycles and [BP+SI] %d", bxsi, bpsi)
	}
	if bx, bxsi := cost([]byte{0x07}), cost([]byte{0x00}); bxsi != bx+2 {
		t.Errorf("[BX] took %d cycles and [BX+SI] %d", bx, bxsi)
	}
	if reg, mem := cost([]byte{0xC0}), cost([]byte{0x07}); mem <= reg {
		t.Errorf("register operand took %d cycles and memory %d", reg, mem)
	}
}
