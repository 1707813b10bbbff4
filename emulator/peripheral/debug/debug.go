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

package debug

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/andreas-jonsson/i8088-core/emulator/memory"
	"github.com/andreas-jonsson/i8088-core/emulator/peripheral"
	"github.com/andreas-jonsson/i8088-core/emulator/processor"
	"github.com/peterh/liner"
	log "github.com/sirupsen/logrus"
)

var ErrQuit = errors.New("QUIT!")

const historySize = 128

// Machine is the processor as the monitor drives it.
type Machine interface {
	processor.Processor

	Run(cycles int) (int, error)
	Step() (int, error)
	Reset(hard bool)
	DumpState() processor.State
	Halted() bool
	NMI()
	Cycles() uint64
	Variant() processor.Variant
}

// LineReader is the interactive prompt. *liner.State satisfies it.
type LineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
	Close() error
}

var commands = []string{"s", "c", "r", "m ", "b ", "rb ", "cb", "w ", "cw", "i", "h", "ch", "t", "@", "p", "n", "x", "q"}

// NewConsole returns a line editor on the controlling terminal.
func NewConsole() *liner.State {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	line.SetCompleter(func(ln string) (c []string) {
		for _, cmd := range commands {
			if strings.HasPrefix(cmd, ln) {
				c = append(c, cmd)
			}
		}
		return
	})
	return line
}

// Device is the machine monitor. It must be installed after the memory
// devices since it snoops the bus on top of them.
type Device struct {
	Console      LineReader
	Output       io.Writer
	BreakOnStart bool
	NoHistory    bool

	signChan            chan os.Signal
	historyChan         chan string
	numInstructionsLost uint64
	debugBreak          bool
	stepping            bool
	breakOnIRET         bool

	mips        float64
	stats       processor.Stats
	updateStats time.Time
	breakpoints []memory.Pointer
	watchpoints []memory.Pointer

	memPeripherals [memory.Size]memory.Memory

	r    *processor.Registers
	p    processor.Processor
	mach Machine
}

func (m *Device) Install(p processor.Processor) error {
	mach, ok := p.(Machine)
	if !ok {
		return errors.New("processor can not be controlled by the monitor")
	}
	if m.Console == nil {
		return errors.New("no console")
	}

	m.historyChan = make(chan string, historySize)
	m.signChan = make(chan os.Signal, 1)
	signal.Notify(m.signChan, os.Interrupt)

	for i := range m.memPeripherals {
		m.memPeripherals[i] = p.GetMappedMemoryDevice(memory.Pointer(i))
	}
	if err := p.InstallMemoryDevice(m, 0x0, memory.Size-1); err != nil {
		return err
	}

	m.p = p
	m.mach = mach
	m.r = p.GetRegisters()
	m.debugBreak = m.BreakOnStart
	m.updateStats = time.Now()
	return nil
}

func (m *Device) out() io.Writer {
	if m.Output == nil {
		return os.Stdout
	}
	return m.Output
}

func (m *Device) printf(format string, a ...interface{}) {
	fmt.Fprintf(m.out(), format, a...)
}

func (m *Device) printRegisters() {
	r := m.r
	m.printf(
		"AL 0x%X (%d)\tCL 0x%X (%d)\tDL 0x%X (%d)\tBL 0x%X (%d)\nAH 0x%X (%d)\tCH 0x%X (%d)\tDH 0x%X (%d)\tBH 0x%X (%d)\n\n",
		r.AL(), r.AL(), r.CL(), r.CL(), r.DL(), r.DL(), r.BL(), r.BL(),
		r.AH(), r.AH(), r.CH(), r.CH(), r.DH(), r.DH(), r.BH(), r.BH(),
	)
	m.printf("%v\n", m.mach.DumpState())
}

func parseAddress(s string) (memory.Pointer, bool) {
	var seg, off uint16
	if n, _ := fmt.Sscanf(s, "%x:%x", &seg, &off); n == 2 {
		return memory.NewPointer(seg, off), true
	}
	var addr uint32
	if n, _ := fmt.Sscanf(s, "%x", &addr); n == 1 {
		return memory.Pointer(addr) & (memory.Size - 1), true
	}
	return 0, false
}

func (m *Device) showMemory(rng string) {
	parts := strings.SplitN(rng, ",", 2)
	from, ok := parseAddress(parts[0])
	if !ok {
		m.printf("invalid memory range\n")
		return
	}

	to := from
	if len(parts) == 2 {
		if to, ok = parseAddress(parts[1]); !ok {
			m.printf("invalid memory range\n")
			return
		}
	}

	if num := int(to+1) - int(from); num > 0 {
		buffer := make([]byte, num)
		for i := range buffer {
			buffer[i] = m.ReadByte(from + memory.Pointer(i))
		}
		m.printf("%v:\n%s", from, hex.Dump(buffer))
	}
}

func (m *Device) showBreakpoints() {
	for i, br := range m.breakpoints {
		m.printf("%d:\t%v\n", i, br)
	}
}

func (m *Device) setBreakpoint(br string) {
	if b, ok := parseAddress(br); ok {
		m.printf("Breakpoint set at: %v\n", b)
		m.breakpoints = append(m.breakpoints, b)
	}
}

func (m *Device) removeBreakpoint(br string) {
	var i int
	if n, _ := fmt.Sscanf(br, "%d", &i); n == 1 && i >= 0 && i < len(m.breakpoints) {
		m.printf("Removed breakpoint %d at: %v\n", i, m.breakpoints[i])
		m.breakpoints = append(m.breakpoints[:i], m.breakpoints[i+1:]...)
	}
}

func (m *Device) setWatchpoint(w string) {
	if a, ok := parseAddress(w); ok {
		m.printf("Watching writes to: %v\n", a)
		m.watchpoints = append(m.watchpoints, a)
	}
}

func (m *Device) showHistoryWithLength(hl string) {
	var num int
	if n, _ := fmt.Sscanf(hl, "%d", &num); n == 1 {
		if num <= 0 {
			num = historySize
		}
		m.showHistory(num)
		return
	}
	m.printf("invalid history range\n")
}

func (m *Device) showHistory(num int) {
	m.printf("| Lost instructions: %d\n", m.numInstructionsLost)
	for i, n := 0, len(m.historyChan); i < n; i++ {
		inst := <-m.historyChan
		if i >= n-num {
			m.printf("%s\n", inst)
		}
		m.historyChan <- inst
	}
}

func (m *Device) pushHistory(inst string) {
	select {
	case m.historyChan <- inst:
	default:
		<-m.historyChan
		m.numInstructionsLost++
		m.historyChan <- inst
	}
}

func (m *Device) clearHistory() {
	for {
		select {
		case <-m.historyChan:
			m.numInstructionsLost++
		default:
			return
		}
	}
}

func (m *Device) showMemMap() {
	var (
		startAddr      int
		lastDeviceName string
	)

	for i := 0; i < memory.Size; i++ {
		p, b := m.memPeripherals[i].(peripheral.Peripheral)
		name := "UNMAPPED"
		if b {
			name = p.Name()
		}

		isLast := i == memory.Size-1
		if (lastDeviceName != name || isLast) && i > 0 {
			if end := i - 1; startAddr == end {
				m.printf("0x%05X: %s\n", startAddr, lastDeviceName)
			} else {
				if isLast {
					end++
				}
				m.printf("0x%05X-0x%05X: %s\n", startAddr, end, lastDeviceName)
			}
			startAddr = i
		}
		lastDeviceName = name
	}
}

func (m *Device) ReadByte(addr memory.Pointer) byte {
	return m.memPeripherals[addr].ReadByte(addr)
}

func (m *Device) WriteByte(addr memory.Pointer, data byte) {
	m.memPeripherals[addr].WriteByte(addr, data)
	for _, w := range m.watchpoints {
		if w == addr {
			m.printf("WATCH: %v = 0x%02X\n", addr, data)
			m.Break()
		}
	}
}

func (m *Device) Break() {
	m.debugBreak = true
	m.r.Debug = true
}

func (m *Device) Continue() {
	m.debugBreak = false
	m.r.Debug = false
}

// Step is called before each instruction. It blocks in the prompt while the
// monitor is in break mode.
func (m *Device) Step() error {
	if time.Since(m.updateStats) >= time.Second {
		m.stats = m.p.GetStats()
		m.mips = float64(m.stats.NumInstructions) / 1000000.0
		m.updateStats = time.Now()
	}

	if m.r.Debug {
		m.debugBreak = true
	}

	select {
	case <-m.signChan:
		m.printf("BREAK!\n")
		m.Break()
	default:
	}

	state := m.mach.DumpState()
	ip := memory.NewPointer(state.CS, state.IP)
	op := m.ReadByte(ip)
	inst := OpcodeName(m.mach.Variant(), op)

	if m.stepping {
		m.stepping = false
		m.Break()
	}

	if m.breakOnIRET && op == 0xCF {
		m.Break()
		m.breakOnIRET = false
		m.printf("%s\n", inst)
	}

	for i, br := range m.breakpoints {
		if ip == br {
			m.printf("BREAK: %d\n", i)
			m.Break()
		}
	}

	for m.debugBreak {
		ln, err := m.Console.Prompt(fmt.Sprintf("[%04X:%04X] %s> ", state.CS, state.IP, inst))
		if err != nil {
			if err != io.EOF && err != liner.ErrPromptAborted {
				log.WithError(err).Error("could not read command")
			}
			return ErrQuit
		}

		ln = strings.TrimSpace(ln)
		if ln != "" {
			m.Console.AppendHistory(ln)
		}

		switch {
		case ln == "q":
			return ErrQuit
		case ln == "c":
			m.Continue()
		case ln == "" || ln == "s":
			m.Continue()
			m.stepping = true
		case ln == "i":
			m.Continue()
			m.breakOnIRET = true
		case ln == "r":
			m.printRegisters()
		case ln == "h":
			m.showHistory(16)
		case ln == "ch":
			m.printf("Clear history!\n")
			m.clearHistory()
		case ln == "t":
			m.printf("MIPS: %.2f\n", m.mips)
			m.printf("%+v\nCycles: %d\n", m.stats, m.mach.Cycles())
		case ln == "@":
			m.printf("%v %s (0x%02X)\n", ip, inst, op)
		case ln == "cb":
			m.printf("Clear breakpoints!\n")
			m.breakpoints = m.breakpoints[:0]
		case ln == "cw":
			m.printf("Clear watchpoints!\n")
			m.watchpoints = m.watchpoints[:0]
		case ln == "b":
			m.showBreakpoints()
		case ln == "p":
			m.showMemMap()
		case ln == "n":
			m.printf("NMI latched\n")
			m.mach.NMI()
		case ln == "x":
			m.mach.Reset(true)
			state = m.mach.DumpState()
			ip = memory.NewPointer(state.CS, state.IP)
			op = m.ReadByte(ip)
			inst = OpcodeName(m.mach.Variant(), op)
		case strings.HasPrefix(ln, "h "):
			m.showHistoryWithLength(ln[2:])
		case strings.HasPrefix(ln, "b "):
			m.setBreakpoint(ln[2:])
		case strings.HasPrefix(ln, "rb "):
			m.removeBreakpoint(ln[3:])
		case strings.HasPrefix(ln, "w "):
			m.setWatchpoint(ln[2:])
		case strings.HasPrefix(ln, "m "):
			m.showMemory(ln[2:])
		default:
			m.printf("unknown command: %s\n", ln)
		}
	}

	if !m.NoHistory {
		m.pushHistory(fmt.Sprintf("| [%04X:%04X] %s", state.CS, state.IP, inst))
	}
	return nil
}

// Run single steps the machine under monitor control until the user quits.
func (m *Device) Run() error {
	for {
		if err := m.Step(); err != nil {
			return err
		}
		if _, err := m.mach.Step(); err != nil {
			if err != processor.ErrCPUHalt {
				return err
			}
			m.printf("CPU halted!\n")
			m.Break()
		}
	}
}

func (m *Device) Name() string {
	return "Debug Device"
}

func (m *Device) Reset() {
}

func (m *Device) Close() error {
	if m.signChan != nil {
		signal.Stop(m.signChan)
	}
	if m.Console != nil {
		return m.Console.Close()
	}
	return nil
}
