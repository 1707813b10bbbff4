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
	"strings"
	"testing"

	"github.com/gdamore/tcell"
)

func newScreen(t *testing.T) tcell.SimulationScreen {
	t.Helper()
	s := tcell.NewSimulationScreen("")
	if err := s.Init(); err != nil {
		t.Fatal(err)
	}
	s.SetSize(80, 25)
	return s
}

func screenText(s tcell.SimulationScreen) string {
	cells, w, h := s.GetContents()
	var sb strings.Builder
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if r := cells[y*w+x].Runes; len(r) > 0 {
				sb.WriteRune(r[0])
			} else {
				sb.WriteByte(' ')
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func TestViewDraw(t *testing.T) {
	_, p, _, _ := newMonitor(t)
	for i := 0; i < 3; i++ {
		p.Step()
	}

	s := newScreen(t)
	defer s.Fini()

	NewView(s, p, 1000).Draw()
	text := screenText(s)
	for _, want := range []string{"CPU 8088", "AX 1234", "BX 5678", "CODE  MOV Ob,AL", "F000:0000", "STACK", "RUNNING"} {
		if !strings.Contains(text, want) {
			t.Errorf("%q not on screen:\n%s", want, text)
		}
	}
}

func TestViewRun(t *testing.T) {
	_, p, _, _ := newMonitor(t)

	s := newScreen(t)
	defer s.Fini()

	v := NewView(s, p, 1000)
	s.InjectKey(tcell.KeyRune, 's', tcell.ModNone)
	s.InjectKey(tcell.KeyRune, 'q', tcell.ModNone)
	if err := v.Run(); err != nil {
		t.Fatal(err)
	}
	if !v.paused {
		t.Error("single step did not pause")
	}
	if p.Cycles() == 0 {
		t.Error("processor did not run")
	}
}
