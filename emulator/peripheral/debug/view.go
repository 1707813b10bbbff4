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

import (
	"fmt"
	"strings"
	"time"

	"github.com/andreas-jonsson/i8088-core/emulator/memory"
	"github.com/andreas-jonsson/i8088-core/emulator/processor"
	"github.com/gdamore/tcell"
)

const framesPerSecond = 30

var (
	styleText  = tcell.StyleDefault.Foreground(tcell.ColorSilver)
	styleTitle = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	styleIP    = tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorSilver)
	styleHelp  = tcell.StyleDefault.Foreground(tcell.ColorTeal)
)

// View is a full screen status display of a free running machine.
type View struct {
	screen tcell.Screen
	mach   Machine
	paused bool
	halted bool

	// CyclesPerFrame is the budget given to the processor between redraws.
	CyclesPerFrame int
}

func NewView(s tcell.Screen, mach Machine, cyclesPerFrame int) *View {
	return &View{screen: s, mach: mach, CyclesPerFrame: cyclesPerFrame}
}

func (v *View) print(x, y int, style tcell.Style, s string) {
	for i, c := range s {
		v.screen.SetContent(x+i, y, c, nil, style)
	}
}

func (v *View) peek(addr memory.Pointer) byte {
	return v.mach.GetMappedMemoryDevice(addr).ReadByte(addr)
}

// dump prints rows of 16 bytes starting at seg:off, marking the byte at mark.
func (v *View) dump(y int, seg, off uint16, rows int, mark memory.Pointer) {
	for r := 0; r < rows; r++ {
		o := off + uint16(r*16)
		v.print(0, y+r, styleText, fmt.Sprintf("%04X:%04X", seg, o))
		for i := 0; i < 16; i++ {
			addr := memory.NewPointer(seg, o+uint16(i))
			style := styleText
			if addr == mark {
				style = styleIP
			}
			v.print(11+i*3, y+r, style, fmt.Sprintf("%02X", v.peek(addr)))
		}
	}
}

// Draw renders registers, code at CS:IP and the top of the stack.
func (v *View) Draw() {
	s := v.screen
	s.Clear()

	state := v.mach.DumpState()
	y := 0
	v.print(0, y, styleTitle, fmt.Sprintf("CPU %v", v.mach.Variant()))
	y++
	for _, ln := range strings.Split(state.String(), "\n") {
		v.print(0, y, styleText, ln)
		y++
	}

	y++
	v.print(0, y, styleTitle, "CODE")
	ip := memory.NewPointer(state.CS, state.IP)
	v.print(6, y, styleText, OpcodeName(v.mach.Variant(), v.peek(ip)))
	v.dump(y+1, state.CS, state.IP&0xFFF0, 4, ip)
	y += 6

	v.print(0, y, styleTitle, "STACK")
	v.dump(y+1, state.SS, state.SP&0xFFF0, 4, memory.NewPointer(state.SS, state.SP))
	y += 6

	status := "RUNNING"
	switch {
	case v.paused:
		status = "PAUSED"
	case v.halted:
		status = "HALTED"
	}
	v.print(0, y, styleTitle, fmt.Sprintf("%-8s cycles %d", status, v.mach.Cycles()))
	v.print(0, y+1, styleHelp, "ESC/q quit  SPACE pause  s step  n NMI  r reset")
	s.Show()
}

func (v *View) frame() error {
	if v.paused {
		return nil
	}
	_, err := v.mach.Run(v.CyclesPerFrame)
	v.halted = err == processor.ErrCPUHalt
	if v.halted {
		return nil
	}
	return err
}

// Run drives the machine in real time and redraws until the user quits.
func (v *View) Run() error {
	events := make(chan tcell.Event, 16)
	quit := make(chan struct{})
	defer close(quit)

	go func() {
		for {
			ev := v.screen.PollEvent()
			if ev == nil {
				close(events)
				return
			}
			select {
			case events <- ev:
			case <-quit:
				return
			}
		}
	}()

	ticker := time.NewTicker(time.Second / framesPerSecond)
	defer ticker.Stop()

	v.Draw()
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			switch ev := ev.(type) {
			case *tcell.EventKey:
				if ev.Key() == tcell.KeyEscape || ev.Rune() == 'q' {
					return nil
				}
				switch ev.Rune() {
				case ' ':
					v.paused = !v.paused
				case 's':
					v.paused = true
					if _, err := v.mach.Step(); err != nil && err != processor.ErrCPUHalt {
						return err
					}
				case 'n':
					v.mach.NMI()
				case 'r':
					v.mach.Reset(true)
				}
			case *tcell.EventResize:
				v.screen.Sync()
			}
		case <-ticker.C:
			if err := v.frame(); err != nil {
				return err
			}
		}
		v.Draw()
	}
}
