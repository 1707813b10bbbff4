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

/*
References:
	https://wiki.osdev.org/Programmable_Interval_Timer
	fake86's - i8253.c
*/

package pit

import (
	"github.com/andreas-jonsson/i8088-core/emulator/processor"
	log "github.com/sirupsen/logrus"
)

const (
	modeLatchCount = iota
	modeLowByte
	modeHighByte
	modeToggle
)

const (
	// InputFrequency is the counter clock in Hz.
	InputFrequency = 1193182

	// The counters run at a quarter of the 4.77MHz processor clock.
	cpuClocksPerTick = 4
)

type pitChannel struct {
	enabled, toggle bool
	latched, high   bool
	frequency       float64
	effective       uint32
	remaining       uint32
	counter, data   uint16
	latch           uint16
	mode            byte
}

// Device is an Intel 8253 driven by the emulated processor clock. All
// channels run as rate generators and channel 0 raises IRQ 0 on terminal
// count.
type Device struct {
	pic      processor.InterruptController
	channels [3]pitChannel
	cycles   int
}

func (m *Device) Install(p processor.Processor) error {
	m.pic = p.GetInterruptController()
	p.InstallTimer(m)
	return p.InstallIODevice(m, 0x40, 0x43)
}

func (m *Device) Name() string {
	return "Programmable Interval Timer (Intel 8253)"
}

func (m *Device) Reset() {
	*m = Device{pic: m.pic}
}

// Advance counts down all enabled channels by the elapsed processor cycles.
func (m *Device) Advance(cycles int) {
	m.cycles += cycles
	ticks := uint32(m.cycles / cpuClocksPerTick)
	m.cycles %= cpuClocksPerTick
	if ticks == 0 {
		return
	}

	for i := range m.channels {
		ch := &m.channels[i]
		if !ch.enabled {
			continue
		}

		for n := ticks; n > 0; {
			if n < ch.remaining {
				ch.remaining -= n
				break
			}
			n -= ch.remaining
			ch.remaining = ch.effective
			if i == 0 && m.pic != nil {
				m.pic.IRQ(0)
			}
		}
		ch.counter = uint16(ch.remaining)
	}
}

func (m *Device) GetFrequency(channel int) float64 {
	return m.channels[channel].frequency
}

func (m *Device) In(port uint16) byte {
	if port == 0x43 {
		return 0
	}
	ch := &m.channels[port&3]

	v := ch.counter
	if ch.latched {
		v = ch.latch
	}

	var ret byte
	switch {
	case ch.mode == modeLowByte:
		ret = byte(v)
	case ch.mode == modeHighByte:
		ret = byte(v >> 8)
	case ch.high:
		ret = byte(v >> 8)
		ch.high = false
		ch.latched = false
	default:
		ret = byte(v)
		ch.high = true
	}

	if ch.mode != modeToggle {
		ch.latched = false
	}
	return ret
}

func (m *Device) Out(port uint16, data byte) {
	switch port {
	case 0x40, 0x41, 0x42:
		ch := &m.channels[port&3]
		data16 := uint16(data)

		if ch.mode == modeLowByte || (ch.mode == modeToggle && !ch.toggle) {
			ch.data = (ch.data & 0xFF00) | data16
		} else if ch.mode == modeHighByte || (ch.mode == modeToggle && ch.toggle) {
			ch.data = (ch.data & 0x00FF) | (data16 << 8)
		}

		if ch.mode == modeToggle {
			ch.toggle = !ch.toggle
			if ch.toggle {
				return // Wait for the high byte.
			}
		}

		if ch.data == 0 {
			ch.effective = 65536
		} else {
			ch.effective = uint32(ch.data)
		}
		ch.remaining = ch.effective
		ch.counter = ch.data
		ch.enabled = true
		ch.frequency = InputFrequency / float64(ch.effective)
		log.WithFields(log.Fields{
			"channel":   port & 3,
			"divisor":   ch.effective,
			"frequency": ch.frequency,
		}).Debug("PIT channel programmed")
	case 0x43: // Mode/Command register.
		sel := data >> 6
		if sel > 2 {
			log.WithField("command", data).Warn("PIT read-back command is not supported")
			return
		}
		ch := &m.channels[sel]

		mode := (data >> 4) & 3
		if mode == modeLatchCount {
			ch.latch = ch.counter
			ch.latched = true
			ch.high = false
			return
		}
		ch.mode = mode
		ch.toggle = false
		ch.high = false
		ch.latched = false
	}
}
