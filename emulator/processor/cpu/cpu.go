/*
Copyright (C) 2019-2020 Andreas T Jonsson

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program.  If not, see <http://www.gnu.org/licenses/>.
*/

package cpu

import (
	"errors"
	"fmt"

	"github.com/andreas-jonsson/i8088-core/emulator/memory"
	"github.com/andreas-jonsson/i8088-core/emulator/peripheral"
	"github.com/andreas-jonsson/i8088-core/emulator/processor"
	log "github.com/sirupsen/logrus"
)

const MaxPeripherals = 32

var errNoPeripheral = errors.New("could not find peripheral")

type CPU struct {
	processor.Registers
	instructionState
	prefetchQueue

	variant processor.Variant
	state   dispatchState

	// Remaining budget of the current Run call.
	cycles int

	// Total cycles charged since power on and the last reported value.
	elapsed, cycleMark uint64

	trap, noInterrupt bool
	nmi, nmiEnable    bool
	nmiMask           bool

	stats       processor.Stats
	peripherals []peripheral.Peripheral
	pic         processor.InterruptController
	timers      []processor.Timer

	iomap         [0x10000]byte
	ioPeripherals [MaxPeripherals]memory.IO

	mmap           [memory.Size]byte
	memPeripherals [MaxPeripherals]memory.Memory
}

// NewCPU creates a processor of the given variant and installs the
// peripherals. The processor is left in the hard reset state.
func NewCPU(variant processor.Variant, peripherals []peripheral.Peripheral) (*CPU, error) {
	if len(peripherals) >= MaxPeripherals {
		return nil, fmt.Errorf("too many peripherals: %d", len(peripherals))
	}
	p := &CPU{variant: variant, peripherals: peripherals}

	dummyIO := &memory.DummyIO{}
	for i := range p.ioPeripherals[:] {
		p.ioPeripherals[i] = dummyIO
	}

	dummyMem := &memory.DummyMemory{}
	for i := range p.memPeripherals[:] {
		p.memPeripherals[i] = dummyMem
	}

	for i := 1; i <= len(peripherals); i++ {
		if dev, ok := peripherals[i-1].(memory.IO); ok {
			p.ioPeripherals[i] = dev
		}
		if dev, ok := peripherals[i-1].(memory.Memory); ok {
			p.memPeripherals[i] = dev
		}
	}

	if err := p.installPeripherals(); err != nil {
		return nil, err
	}
	p.Reset(true)
	return p, nil
}

func (p *CPU) installPeripherals() error {
	// The interrupt controller must be known before the devices that raise
	// interrupts are installed.
	for _, d := range p.peripherals {
		if pic, ok := d.(processor.InterruptController); ok {
			p.pic = pic
		}
	}
	if p.pic == nil {
		log.Warn("No interrupt controller detected!")
	}

	for _, d := range p.peripherals {
		if err := d.Install(p); err != nil {
			return fmt.Errorf("failed to install peripheral %q: %w", d.Name(), err)
		}
		log.WithField("device", d.Name()).Debug("peripheral installed")
	}
	return nil
}

func (p *CPU) Variant() processor.Variant {
	return p.variant
}

// Reset places the processor at the reset vector FFFF:0000. A hard reset
// also resets the bus unit, the NMI mask and all peripherals.
func (p *CPU) Reset(hard bool) {
	log.WithFields(log.Fields{"variant": p.variant, "hard": hard}).Info("CPU reset!")

	p.Registers.Reset()
	p.CS = 0xFFFF

	p.instructionState = instructionState{}
	p.state = stateFetch
	p.trap = false
	p.noInterrupt = false
	p.nmi = false
	p.nmiEnable = true

	if hard {
		p.queueSize = p.variant.QueueSize()
		p.biuCycles = 0
		p.cycles = 0
		p.nmiMask = true
		for _, d := range p.peripherals {
			d.Reset()
		}
	}

	p.setIP(0)
	p.clockStart()
}

// Run executes instructions until the cycle budget is exhausted and returns
// the number of instructions retired. Run only returns at an instruction
// boundary, so prefixes and repeated string instructions are always
// completed. Cycles overspent by the last instruction are carried over to
// the next call.
//
// ErrCPUHalt is returned when the processor is halted and nothing but a
// reset or an NMI from the host can wake it. The remaining budget is consumed.
func (p *CPU) Run(cycles int) (int, error) {
	p.cycles += cycles

	var n int
	for p.cycles > 0 || p.inInstruction() {
		if p.state == stateHalt && !p.canWake() {
			p.wait(p.cycles, false)
			p.clockEnd()
			return n, processor.ErrCPUHalt
		}
		if p.dispatch() {
			n++
		}
	}
	p.clockEnd()
	return n, nil
}

func (p *CPU) inInstruction() bool {
	return p.state == statePrefix || p.state == stateRepeat
}

// Step executes exactly one instruction, or one idle slice if the processor
// is halted, and returns the cycles it took. The Run budget is not affected.
func (p *CPU) Step() (int, error) {
	budget := p.cycles
	defer func() { p.cycles = budget }()

	start := p.elapsed
	if p.state == stateHalt {
		if !p.canWake() {
			return 0, processor.ErrCPUHalt
		}
		p.dispatch()
		return int(p.elapsed - start), nil
	}

	for !p.dispatch() {
	}
	return int(p.elapsed - start), nil
}

// DumpState returns a snapshot of the programmer visible state.
func (p *CPU) DumpState() processor.State {
	return p.Snapshot(p.flagsWord())
}

func (p *CPU) Halted() bool {
	return p.state == stateHalt
}

// Cycles is the total number of cycles charged since the processor was created.
func (p *CPU) Cycles() uint64 {
	return p.elapsed
}

func (p *CPU) InstallTimer(t processor.Timer) {
	p.timers = append(p.timers, t)
}

func (p *CPU) Close() {
	for _, d := range p.peripherals {
		if cd, b := d.(peripheral.PeripheralCloser); b {
			if err := cd.Close(); err != nil {
				log.WithError(err).Error("Failed to close peripheral")
			}
		}
	}
}

func (p *CPU) Break() {
	p.Debug = true
}

func (p *CPU) GetStats() processor.Stats {
	s := p.stats
	p.stats = processor.Stats{}
	return s
}

func (p *CPU) GetInterruptController() processor.InterruptController {
	return p.pic
}

func (p *CPU) GetMappedMemoryDevice(addr memory.Pointer) memory.Memory {
	return p.memPeripherals[p.mmap[addr&(memory.Size-1)]]
}

func (p *CPU) GetMappedIODevice(port uint16) memory.IO {
	return p.ioPeripherals[p.iomap[port]]
}

func (p *CPU) GetRegisters() *processor.Registers {
	return &p.Registers
}

func (p *CPU) InByte(port uint16) byte {
	p.stats.RX++
	return p.GetMappedIODevice(port).In(port)
}

func (p *CPU) OutByte(port uint16, data byte) {
	p.stats.TX++
	p.GetMappedIODevice(port).Out(port, data)
}

func (p *CPU) InWord(port uint16) uint16 {
	return uint16(p.InByte(port)) | (uint16(p.InByte(port+1)) << 8)
}

func (p *CPU) OutWord(port uint16, data uint16) {
	p.OutByte(port, byte(data&0xFF))
	p.OutByte(port+1, byte(data>>8))
}

func (p *CPU) ReadByte(addr memory.Pointer) byte {
	p.stats.RX++
	addr &= memory.Size - 1
	return p.GetMappedMemoryDevice(addr).ReadByte(addr)
}

func (p *CPU) WriteByte(addr memory.Pointer, data byte) {
	p.stats.TX++
	addr &= memory.Size - 1
	p.GetMappedMemoryDevice(addr).WriteByte(addr, data)
}

func (p *CPU) ReadWord(addr memory.Pointer) uint16 {
	return uint16(p.ReadByte(addr)) | (uint16(p.ReadByte(addr+1)) << 8)
}

func (p *CPU) WriteWord(addr memory.Pointer, data uint16) {
	p.WriteByte(addr, byte(data&0xFF))
	p.WriteByte(addr+1, byte(data>>8))
}

func (p *CPU) InstallMemoryDevice(device memory.Memory, from, to memory.Pointer) error {
	for i, d := range p.memPeripherals[:] {
		if d == device {
			for from <= to {
				p.mmap[from] = byte(i)
				from++
			}
			return nil
		}
	}
	return errNoPeripheral
}

func (p *CPU) InstallMemoryDeviceAt(device memory.Memory, addr ...memory.Pointer) error {
	for _, a := range addr {
		if err := p.InstallMemoryDevice(device, a, a); err != nil {
			return err
		}
	}
	return nil
}

func (p *CPU) InstallIODevice(device memory.IO, from, to uint16) error {
	for i, d := range p.ioPeripherals[:] {
		if d == device {
			for {
				p.iomap[from] = byte(i)
				if from == to {
					return nil
				}
				from++
			}
		}
	}
	return errNoPeripheral
}

func (p *CPU) InstallIODeviceAt(device memory.IO, port ...uint16) error {
	for _, a := range port {
		if err := p.InstallIODevice(device, a, a); err != nil {
			return err
		}
	}
	return nil
}
