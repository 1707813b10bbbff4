/*
Copyright (c) 2019-2020 Andreas T Jonsson

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
	"github.com/andreas-jonsson/i8088-core/emulator/peripheral"
	"github.com/andreas-jonsson/i8088-core/emulator/peripheral/pic"
	"github.com/andreas-jonsson/i8088-core/emulator/peripheral/ram"
	"github.com/andreas-jonsson/i8088-core/emulator/peripheral/rom"
	"github.com/andreas-jonsson/i8088-core/emulator/processor"
	"github.com/spf13/afero"
)

const (
	romBase  = 0xF0000
	romSize  = 0x10000
	maxSteps = 100000
)

var allVariants = []processor.Variant{
	processor.Intel8088,
	processor.Intel8086,
	processor.NECV20,
	processor.NECV30,
}

// program maps offsets in segment F000 to code.
type program map[uint16][]byte

// newMachine builds a machine with cleared RAM below F000:0000 and the
// program in ROM above it. Unused ROM is filled with HLT and the reset
// vector jumps to F000:0000.
func newMachine(t testing.TB, v processor.Variant, prog program, devices ...peripheral.Peripheral) (*CPU, *pic.Device) {
	t.Helper()

	img := make([]byte, romSize)
	for i := range img {
		img[i] = 0xF4
	}
	for off, code := range prog {
		copy(img[off:], code)
	}
	copy(img[0xFFF0:], []byte{0xEA, 0x00, 0x00, 0x00, 0xF0})

	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "test.bin", img, 0644); err != nil {
		t.Fatal(err)
	}

	ctrl := &pic.Device{}
	p, err := NewCPU(v, append([]peripheral.Peripheral{
		&ram.Device{Clear: true, Size: romBase},
		&rom.Device{RomName: "TEST", Base: romBase, Fs: fs, Path: "test.bin"},
		ctrl,
	}, devices...))
	if err != nil {
		t.Fatal(err)
	}
	return p, ctrl
}

func setVector(p *CPU, n int, ip uint16) {
	p.WriteWord(memory.Pointer(n*4), ip)
	p.WriteWord(memory.Pointer(n*4+2), 0xF000)
}

// checkQueue verifies that the queue is within capacity and only holds the
// bytes found at CS:IP.
func checkQueue(t *testing.T, p *CPU) {
	t.Helper()
	if p.QueueLen() > p.QueueCapacity() {
		t.Fatalf("queue length %d exceeds capacity %d", p.QueueLen(), p.QueueCapacity())
	}
	if n := int(p.queueIP - p.IP); n != p.QueueLen() {
		t.Fatalf("queue is %d bytes but covers %d", p.QueueLen(), n)
	}
	for i := 0; i < p.queueLen; i++ {
		addr := memory.NewPointer(p.CS, p.IP+uint16(i))
		if v := p.GetMappedMemoryDevice(addr).ReadByte(addr); v != p.queue[i] {
			t.Fatalf("stale byte in queue at %v: 0x%X != 0x%X", addr, p.queue[i], v)
		}
	}
}

func runUntilHalt(t *testing.T, p *CPU) {
	t.Helper()
	for i := 0; i < maxSteps; i++ {
		if p.Halted() {
			return
		}
		if _, err := p.Step(); err != nil {
			t.Fatal(err)
		}
		checkQueue(t, p)
	}
	t.Fatal("program did not halt")
}

type countingTimer struct {
	cycles int
}

func (c *countingTimer) Advance(n int) {
	c.cycles += n
}

func TestReset(t *testing.T) {
	for _, v := range allVariants {
		t.Run(v.String(), func(t *testing.T) {
			p, _ := newMachine(t, v, program{0: {0xB8, 0x34, 0x12}})
			runUntilHalt(t, p)

			p.Reset(true)
			s := p.DumpState()
			if s.CS != 0xFFFF || s.IP != 0 {
				t.Errorf("reset vector is %04X:%04X", s.CS, s.IP)
			}
			if s.AX != 0 {
				t.Errorf("AX = 0x%X after reset", s.AX)
			}
			if want := uint16(v.ReservedFlags()); s.Flags != want {
				t.Errorf("flags = 0x%X, want 0x%X", s.Flags, want)
			}
			if p.QueueLen() != 0 {
				t.Error("queue not empty after reset")
			}
			if p.QueueCapacity() != v.QueueSize() {
				t.Errorf("queue capacity %d, want %d", p.QueueCapacity(), v.QueueSize())
			}
			if p.Halted() {
				t.Error("halted after reset")
			}
		})
	}
}

func TestQueueCapacity(t *testing.T) {
	want := map[processor.Variant]int{
		processor.Intel8088: 4,
		processor.NECV20:    4,
		processor.Intel8086: 6,
		processor.NECV30:    6,
	}
	for v, n := range want {
		p, _ := newMachine(t, v, nil)
		if p.QueueCapacity() != n {
			t.Errorf("%v: queue capacity %d, want %d", v, p.QueueCapacity(), n)
		}
	}
}

func TestRun(t *testing.T) {
	p, _ := newMachine(t, processor.Intel8088, program{0: {0xEB, 0xFE}}) // JMP $
	timer := &countingTimer{}
	p.InstallTimer(timer)

	n, err := p.Run(1000)
	if err != nil {
		t.Fatal(err)
	}
	if n == 0 {
		t.Error("no instructions retired")
	}
	if p.cycles > 0 {
		t.Errorf("%d cycles left of the budget", p.cycles)
	}
	if p.Cycles() < 1000 {
		t.Errorf("only %d cycles charged", p.Cycles())
	}
	if uint64(timer.cycles) != p.Cycles() {
		t.Errorf("timer saw %d cycles, processor charged %d", timer.cycles, p.Cycles())
	}
	if s := p.GetStats(); s.Cycles != p.Cycles() || s.NumInstructions != uint64(n) {
		t.Errorf("unexpected stats: %+v", s)
	}
}

func TestRunStopsAtBoundary(t *testing.T) {
	t.Run("Prefix", func(t *testing.T) {
		p, _ := newMachine(t, processor.Intel8088, program{0: {
			0x26, 0x26, 0x26, 0x26, // ES: ES: ES: ES:
			0xA0, 0x10, 0x00, //       MOV AL,[0x10]
		}})
		runUntil(t, p, 0)

		if _, err := p.Run(1); err != nil {
			t.Fatal(err)
		}
		if p.state != stateFetch || p.DumpState().IP != 0x0007 {
			t.Errorf("stopped in state %v at IP 0x%X", p.state, p.DumpState().IP)
		}
	})

	t.Run("Repeat", func(t *testing.T) {
		p, _ := newMachine(t, processor.Intel8088, program{0: {
			0xB9, 0x00, 0x01, // MOV CX,0x100
			0xBF, 0x00, 0x06, // MOV DI,0x600
			0xFC,       //       CLD
			0xF3, 0xAA, //       REP STOSB
		}})
		runUntil(t, p, 0x0007)

		start := p.Cycles()
		if _, err := p.Run(1); err != nil {
			t.Fatal(err)
		}
		if p.state != stateFetch || p.IP != 0x0009 || p.CX != 0 || p.DI != 0x700 {
			t.Errorf("stopped in state %v at IP 0x%X with CX=0x%X DI=0x%X", p.state, p.IP, p.CX, p.DI)
		}
		if p.cycles > 0 || p.Cycles()-start < 0x100 {
			t.Errorf("REP took %d cycles, %d left of the budget", p.Cycles()-start, p.cycles)
		}
	})
}

// runUntil steps from the reset vector until IP reaches the given offset in
// segment F000.
func runUntil(t *testing.T, p *CPU, ip uint16) {
	t.Helper()
	for i := 0; p.CS != 0xF000 || p.IP != ip; i++ {
		if i == maxSteps {
			t.Fatalf("did not reach F000:%04X", ip)
		}
		if _, err := p.Step(); err != nil {
			t.Fatal(err)
		}
	}
}

func TestRunHalted(t *testing.T) {
	p, _ := newMachine(t, processor.Intel8088, program{0: {0xFA, 0xF4}}) // CLI, HLT

	if _, err := p.Run(10000); err != processor.ErrCPUHalt {
		t.Fatalf("expected ErrCPUHalt, got %v", err)
	}
	if !p.Halted() {
		t.Fatal("processor is not halted")
	}
	if _, err := p.Step(); err != processor.ErrCPUHalt {
		t.Errorf("expected ErrCPUHalt from Step, got %v", err)
	}
	if p.cycles > 0 {
		t.Errorf("%d cycles left of the budget", p.cycles)
	}
}

func TestStepDoesNotUseBudget(t *testing.T) {
	p, _ := newMachine(t, processor.Intel8088, program{0: {0x90, 0x90}})
	p.cycles = 123

	n, err := p.Step()
	if err != nil {
		t.Fatal(err)
	}
	if n <= 0 {
		t.Errorf("step took %d cycles", n)
	}
	if p.cycles != 123 {
		t.Errorf("budget changed to %d", p.cycles)
	}
}

func TestDumpState(t *testing.T) {
	p, _ := newMachine(t, processor.Intel8086, program{0: {0xB8, 0x34, 0x12, 0xBB, 0x78, 0x56}})
	runUntilHalt(t, p)

	elapsed, queueLen := p.Cycles(), p.QueueLen()
	a := p.DumpState()
	b := p.DumpState()
	if a != b {
		t.Error("snapshots differ")
	}
	if p.Cycles() != elapsed || p.QueueLen() != queueLen {
		t.Error("snapshot changed processor state")
	}
	if a.AX != 0x1234 || a.BX != 0x5678 || a.CS != 0xF000 {
		t.Errorf("unexpected state:\n%v", a)
	}
}

func TestInstallErrors(t *testing.T) {
	fs := afero.NewMemMapFs()
	_, err := NewCPU(processor.Intel8088, []peripheral.Peripheral{
		&rom.Device{Base: romBase, Fs: fs, Path: "missing.bin"},
	})
	if err == nil {
		t.Fatal("expected install error")
	}
}

func TestOpenBus(t *testing.T) {
	p, err := NewCPU(processor.Intel8088, nil)
	if err != nil {
		t.Fatal(err)
	}
	if v := p.ReadByte(0x12345); v != memory.OpenBus {
		t.Errorf("unmapped read 0x%X", v)
	}
	if v := p.InByte(0x3F8); v != memory.OpenBus {
		t.Errorf("unmapped port read 0x%X", v)
	}

	// Executing open bus must not stop the processor.
	if _, err := p.Run(1000); err != nil {
		t.Fatal(err)
	}
}

func BenchmarkRun(b *testing.B) {
	// Count down from 0x8000 with a bit of ALU work in the loop.
	p, _ := newMachine(b, processor.Intel8088, program{0: {
		0xB9, 0x00, 0x80, // MOV CX,0x8000
		0x01, 0xC8, //       ADD AX,CX
		0x31, 0xC3, //       XOR BX,AX
		0xE2, 0xFA, //       LOOP -6
		0xEB, 0xF5, //       JMP 0
	}})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := p.Run(4772727 / 60); err != nil {
			b.Fatal(err)
		}
	}
}
