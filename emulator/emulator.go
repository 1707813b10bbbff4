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


package emulator

import (
	"fmt"
	"time"

	"github.com/andreas-jonsson/i8088-core/emulator/memory"
	"github.com/andreas-jonsson/i8088-core/emulator/peripheral"
	"github.com/andreas-jonsson/i8088-core/emulator/peripheral/debug"
	"github.com/andreas-jonsson/i8088-core/emulator/peripheral/pic"
	"github.com/andreas-jonsson/i8088-core/emulator/peripheral/pit"
	"github.com/andreas-jonsson/i8088-core/emulator/peripheral/ram"
	"github.com/andreas-jonsson/i8088-core/emulator/peripheral/rom"
	"github.com/andreas-jonsson/i8088-core/emulator/processor"
	"github.com/andreas-jonsson/i8088-core/emulator/processor/cpu"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// ClockFrequency is the PC/XT processor clock in Hz.
const ClockFrequency = 4772727

// Slices per emulated second when running paced.
const slicesPerSecond = 100

type Config struct {
	Variant processor.Variant

	// Fs and BiosImage locate the ROM image. It is mapped so that it ends at
	// the top of the address space.
	Fs        afero.Fs
	BiosImage string

	// RAM in bytes mapped from address zero.
	MemorySize int

	// Console enables the machine monitor.
	Console      debug.LineReader
	BreakOnStart bool

	// Extra devices installed before the monitor.
	Peripherals []peripheral.Peripheral
}

// Machine is a processor with RAM, BIOS ROM, interrupt controller and timer.
type Machine struct {
	*cpu.CPU

	Timer   *pit.Device
	Monitor *debug.Device
}

func New(cfg Config) (*Machine, error) {
	if cfg.Fs == nil {
		cfg.Fs = afero.NewOsFs()
	}

	info, err := cfg.Fs.Stat(cfg.BiosImage)
	if err != nil {
		return nil, fmt.Errorf("could not open BIOS image: %w", err)
	}
	if info.Size() == 0 || info.Size() > memory.Size {
		return nil, fmt.Errorf("invalid BIOS image size: %d", info.Size())
	}
	biosBase := rom.ResetVectorBase(int(info.Size()))

	memSize := cfg.MemorySize
	if memSize <= 0 || memSize > int(biosBase) {
		memSize = int(biosBase)
	}

	m := &Machine{Timer: &pit.Device{}}
	peripherals := []peripheral.Peripheral{
		&ram.Device{Size: memSize}, // RAM must be installed before the monitor snoops it.
		&rom.Device{
			RomName: "BIOS",
			Base:    biosBase,
			Fs:      cfg.Fs,
			Path:    cfg.BiosImage,
		},
		&pic.Device{}, // Programmable Interrupt Controller
		m.Timer,       // Programmable Interval Timer
	}
	peripherals = append(peripherals, cfg.Peripherals...)

	if cfg.Console != nil {
		m.Monitor = &debug.Device{Console: cfg.Console, BreakOnStart: cfg.BreakOnStart}
		peripherals = append(peripherals, m.Monitor)
	}

	if m.CPU, err = cpu.NewCPU(cfg.Variant, peripherals); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"variant": cfg.Variant,
		"ram":     memSize,
		"bios":    biosBase,
	}).Info("machine created")
	return m, nil
}

// Execute runs the given number of cycles, or forever if zero. A non-zero
// frequency paces execution to real time.
func (m *Machine) Execute(cycles uint64, frequency int) error {
	slice := ClockFrequency / slicesPerSecond
	if frequency > 0 {
		slice = frequency / slicesPerSecond
	}

	start, t := m.Cycles(), time.Now()
	for {
		done := m.Cycles() - start
		if cycles > 0 && done >= cycles {
			return nil
		}

		n := slice
		if left := cycles - done; cycles > 0 && left < uint64(n) {
			n = int(left)
		}
		if _, err := m.Run(n); err != nil {
			return err
		}

		if frequency > 0 {
			target := time.Duration(float64(m.Cycles()-start) / float64(frequency) * float64(time.Second))
			if ahead := target - time.Since(t); ahead > 0 {
				time.Sleep(ahead)
			}
		}
	}
}
