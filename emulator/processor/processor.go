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

package processor

import (
	"errors"
	"fmt"
	"strings"

	"github.com/andreas-jonsson/i8088-core/emulator/memory"
)

type Stats struct {
	NumInterrupts   uint32
	NumInstructions uint64
	NumInvalid      uint64
	Cycles          uint64
	RX, TX          uint64
	NOP             uint64
}

var (
	ErrCPUHalt      = errors.New("CPU halt")
	ErrNoInterrupts = errors.New("no interrupts")
)

// Variant selects the bus width and the manufacturer specific behavior.
type Variant int

const (
	Intel8088 Variant = iota
	Intel8086
	NECV20
	NECV30
)

func (v Variant) String() string {
	switch v {
	case Intel8088:
		return "8088"
	case Intel8086:
		return "8086"
	case NECV20:
		return "V20"
	case NECV30:
		return "V30"
	}
	return fmt.Sprintf("Variant(%d)", int(v))
}

// WideBus reports if the part has a 16-bit data bus.
func (v Variant) WideBus() bool {
	return v == Intel8086 || v == NECV30
}

func (v Variant) IsNEC() bool {
	return v == NECV20 || v == NECV30
}

// QueueSize is the prefetch queue capacity in bytes.
func (v Variant) QueueSize() int {
	if v.WideBus() {
		return 6
	}
	return 4
}

func ParseVariant(s string) (Variant, error) {
	switch strings.ToUpper(s) {
	case "8088":
		return Intel8088, nil
	case "8086":
		return Intel8086, nil
	case "V20":
		return NECV20, nil
	case "V30":
		return NECV30, nil
	}
	return Intel8088, fmt.Errorf("unknown cpu variant: %q", s)
}

type Debug interface {
	Break()
	GetStats() Stats
}

// InterruptController is queried at instruction boundaries.
// GetInterrupt acknowledges and returns the highest priority vector or
// ErrNoInterrupts.
type InterruptController interface {
	GetInterrupt() (int, error)
	Pending() bool
	IRQ(n int)
}

// Timer receives the emulated cycles that elapsed since the last call.
type Timer interface {
	Advance(cycles int)
}

type Processor interface {
	Debug

	InByte(port uint16) byte
	OutByte(port uint16, data byte)

	ReadByte(addr memory.Pointer) byte
	WriteByte(addr memory.Pointer, data byte)
	ReadWord(addr memory.Pointer) uint16
	WriteWord(addr memory.Pointer, data uint16)

	GetRegisters() *Registers
	GetMappedMemoryDevice(addr memory.Pointer) memory.Memory
	GetMappedIODevice(port uint16) memory.IO

	InstallMemoryDevice(device memory.Memory, from, to memory.Pointer) error
	InstallMemoryDeviceAt(device memory.Memory, addr ...memory.Pointer) error
	InstallIODevice(device memory.IO, from, to uint16) error
	InstallIODeviceAt(device memory.IO, port ...uint16) error

	GetInterruptController() InterruptController
	InstallTimer(t Timer)
}
