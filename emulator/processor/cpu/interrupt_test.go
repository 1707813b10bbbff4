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

	"github.com/andreas-jonsson/i8088-core/emulator/memory"
	"github.com/andreas-jonsson/i8088-core/emulator/peripheral/pic"
	"github.com/andreas-jonsson/i8088-core/emulator/processor"
)

const counterAddr = 0x500

// countHandler increments the byte at 0000:0500 and returns.
var countHandler = []byte{0xFE, 0x06, 0x00, 0x05, 0xCF}

// initPIC programs a single controller with vector base 8 and automatic EOI.
func initPIC(ctrl *pic.Device) {
	ctrl.Out(0x20, 0x13)
	ctrl.Out(0x21, 0x08)
	ctrl.Out(0x21, 0x03)
}

// irqTimer raises IRQ 0 once the given number of cycles has passed and
// records CX at that point.
type irqTimer struct {
	p     *CPU
	ctrl  *pic.Device
	after int
	cx    uint16
}

func (t *irqTimer) Advance(n int) {
	if t.after <= 0 {
		return
	}
	if t.after -= n; t.after <= 0 {
		t.cx = t.p.CX
		t.ctrl.IRQ(0)
	}
}

func TestSoftwareInterrupt(t *testing.T) {
	for _, v := range allVariants {
		t.Run(v.String(), func(t *testing.T) {
			p, _ := newMachine(t, v, program{
				0: {
					0xFA,             // CLI
					0xBC, 0x00, 0x10, // MOV SP,0x1000
					0xCD, 0x21, //       INT 0x21
				},
				0x100: {
					0xB8, 0x34, 0x12, // MOV AX,0x1234
					0xCF, // IRET
				},
			})
			setVector(p, 0x21, 0x100)
			runUntilHalt(t, p)

			if p.AX != 0x1234 || p.SP != 0x1000 || p.IP != 0x0007 {
				t.Errorf("AX=0x%X SP=0x%X IP=0x%X", p.AX, p.SP, p.IP)
			}
			if ip := p.ReadWord(0x0FFA); ip != 0x0006 {
				t.Errorf("return IP 0x%X", ip)
			}
			if cs := p.ReadWord(0x0FFC); cs != 0xF000 {
				t.Errorf("return CS 0x%X", cs)
			}
			if fl := p.ReadWord(0x0FFE); fl != 0x0002 {
				t.Errorf("pushed flags 0x%X", fl)
			}
			if s := p.GetStats(); s.NumInterrupts != 1 {
				t.Errorf("%d interrupts counted", s.NumInterrupts)
			}
		})
	}
}

func TestInterruptClearsFlags(t *testing.T) {
	p, _ := newMachine(t, processor.Intel8088, program{
		0: {
			0xBC, 0x00, 0x10, // MOV SP,0x1000
			0xFB,       //       STI
			0xCD, 0x10, //       INT 0x10
		},
		0x100: {
			0x9C, // PUSHF
			0x58, // POP AX
			0xCF, // IRET
		},
	})
	setVector(p, 0x10, 0x100)
	runUntilHalt(t, p)

	if processor.Flags(p.AX)&(processor.InterruptEnable|processor.Trap) != 0 {
		t.Errorf("handler ran with flags 0x%X", p.AX)
	}
	if !p.GetBool(processor.InterruptEnable) {
		t.Error("IRET did not restore IF")
	}
}

func TestTrap(t *testing.T) {
	for _, v := range allVariants {
		t.Run(v.String(), func(t *testing.T) {
			p, _ := newMachine(t, v, program{
				0: {
					0xBC, 0x00, 0x10, // MOV SP,0x1000
					0xB8, 0x00, 0x01, // MOV AX,0x0100
					0x50,             // PUSH AX
					0x9D,             // POPF, TF is set
					0x90,             // NOP
					0x90,             // NOP
					0x9C,             // PUSHF
					0x58,             // POP AX
					0x80, 0xE4, 0xFE, // AND AH,0xFE
					0x50, // PUSH AX
					0x9D, // POPF, TF is cleared
				},
				0x100: countHandler,
			})
			setVector(p, 1, 0x100)
			runUntilHalt(t, p)

			// The instruction setting TF is not trapped but the one
			// clearing it is.
			if n := p.ReadByte(counterAddr); n != 7 {
				t.Errorf("%d single step interrupts, want 7", n)
			}
			if p.GetBool(processor.Trap) {
				t.Error("TF still set")
			}
		})
	}
}

func TestNMI(t *testing.T) {
	p, _ := newMachine(t, processor.Intel8088, program{
		0:     {0xBC, 0x00, 0x10}, // MOV SP,0x1000
		0x100: countHandler,
	})
	setVector(p, 2, 0x100)
	p.NMI()
	runUntilHalt(t, p)

	if n := p.ReadByte(counterAddr); n != 1 {
		t.Errorf("NMI handler ran %d times", n)
	}

	// A halted processor with IF clear is woken by NMI only.
	if _, err := p.Step(); err != processor.ErrCPUHalt {
		t.Fatalf("expected ErrCPUHalt, got %v", err)
	}
	p.NMI()
	if _, err := p.Step(); err != nil {
		t.Fatal(err)
	}
	runUntilHalt(t, p)

	if n := p.ReadByte(counterAddr); n != 2 {
		t.Errorf("NMI handler ran %d times", n)
	}
}

func TestNMIMask(t *testing.T) {
	p, _ := newMachine(t, processor.Intel8088, program{
		0:     {0xBC, 0x00, 0x10}, // MOV SP,0x1000
		0x100: countHandler,
	})
	setVector(p, 2, 0x100)
	p.SetNMIMask(false)
	p.NMI()
	runUntilHalt(t, p)

	if n := p.ReadByte(counterAddr); n != 0 {
		t.Errorf("masked NMI serviced %d times", n)
	}
}

func TestExternalInterrupt(t *testing.T) {
	p, ctrl := newMachine(t, processor.Intel8088, program{
		0: {
			0xBC, 0x00, 0x10, // MOV SP,0x1000
			0xFB, //             STI
			0x90, //             NOP
			0x90, //             NOP
		},
		0x100: countHandler,
	})
	initPIC(ctrl)
	setVector(p, 9, 0x100)
	ctrl.IRQ(1)
	runUntilHalt(t, p)

	if n := p.ReadByte(counterAddr); n != 1 {
		t.Errorf("IRQ 1 serviced %d times", n)
	}
	if ctrl.Pending() {
		t.Error("request still pending")
	}
}

func TestMaskedInterrupt(t *testing.T) {
	p, ctrl := newMachine(t, processor.Intel8088, program{
		0: {
			0xBC, 0x00, 0x10, // MOV SP,0x1000
			0x90, //             NOP, IF is clear
		},
		0x100: countHandler,
	})
	initPIC(ctrl)
	setVector(p, 8, 0x100)
	ctrl.IRQ(0)
	runUntilHalt(t, p)

	if n := p.ReadByte(counterAddr); n != 0 {
		t.Errorf("IRQ serviced with IF clear")
	}
	if !ctrl.Pending() {
		t.Error("request was acknowledged")
	}
}

func TestHaltWake(t *testing.T) {
	p, ctrl := newMachine(t, processor.Intel8088, program{
		0: {
			0xFB,       // STI
			0xF4,       // HLT
			0xB0, 0x42, // MOV AL,0x42
			0xFA, //       CLI
			0xF4, //       HLT
		},
		0x100: countHandler,
	})
	initPIC(ctrl)
	setVector(p, 8, 0x100)
	p.SP = 0x1000

	runUntilHalt(t, p)
	if p.IP != 0x0002 {
		t.Fatalf("halted at IP 0x%X", p.IP)
	}

	n, err := p.Step()
	if err != nil {
		t.Fatal(err)
	}
	if n != haltCycles || !p.Halted() {
		t.Errorf("idle step took %d cycles, halted %v", n, p.Halted())
	}

	ctrl.IRQ(0)
	if _, err := p.Step(); err != nil {
		t.Fatal(err)
	}
	if p.Halted() {
		t.Fatal("IRQ did not wake the processor")
	}
	runUntilHalt(t, p)

	if p.AL() != 0x42 || p.ReadByte(counterAddr) != 1 {
		t.Errorf("AL=0x%X, handler ran %d times", p.AL(), p.ReadByte(counterAddr))
	}
}

func TestInterruptedRepeat(t *testing.T) {
	for _, v := range allVariants {
		t.Run(v.String(), func(t *testing.T) {
			p, ctrl := newMachine(t, v, program{
				0: {
					0xBC, 0x00, 0x10, // MOV SP,0x1000
					0xB0, 0x13, 0xE6, 0x20, // OUT 0x20,0x13
					0xB0, 0x08, 0xE6, 0x21, // OUT 0x21,0x08
					0xB0, 0x03, 0xE6, 0x21, // OUT 0x21,0x03
					0xB9, 0x00, 0x01, // MOV CX,0x100
					0xBF, 0x00, 0x06, // MOV DI,0x600
					0xB0, 0xAA, //       MOV AL,0xAA
					0xFC,       //       CLD
					0xFB,       //       STI
					0xF3, 0xAA, //       REP STOSB
					0xFA, //             CLI
				},
				0x100: countHandler,
			})
			setVector(p, 8, 0x100)

			const repIP = 0x19
			for i := 0; p.IP != repIP; i++ {
				if i == maxSteps {
					t.Fatal("did not reach REP STOSB")
				}
				if _, err := p.Step(); err != nil {
					t.Fatal(err)
				}
			}

			timer := &irqTimer{p: p, ctrl: ctrl, after: 100}
			p.InstallTimer(timer)
			runUntilHalt(t, p)

			if p.ReadByte(counterAddr) != 1 {
				t.Error("IRQ was not serviced")
			}
			if timer.cx == 0 || timer.cx == 0x100 {
				t.Errorf("IRQ raised with CX=0x%X", timer.cx)
			}
			if p.CX != 0 || p.DI != 0x700 {
				t.Errorf("CX=0x%X DI=0x%X", p.CX, p.DI)
			}
			for i := 0; i < 0x100; i++ {
				if b := p.ReadByte(memory.Pointer(0x600 + i)); b != 0xAA {
					t.Fatalf("byte 0x%X is 0x%X", 0x600+i, b)
				}
			}
		})
	}
}
