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

package main

import (
	"flag"
	"fmt"
	"io/ioutil"
	"os"

	"github.com/andreas-jonsson/i8088-core/emulator"
	"github.com/andreas-jonsson/i8088-core/emulator/peripheral/debug"
	"github.com/andreas-jonsson/i8088-core/emulator/processor"
	"github.com/andreas-jonsson/i8088-core/version"
	"github.com/gdamore/tcell"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

var (
	biosImage   = "bios/pcxtbios.bin"
	variantName = "8088"
	logLevel    = "info"
	memoryKB    = 640
	cycles      uint64
	clockMHz    = float64(emulator.ClockFrequency) / 1000000
)

var (
	monitor,
	breakOnStart,
	screen,
	ver bool
)

func init() {
	if p, ok := os.LookupEnv("I8088_DEFAULT_BIOS_PATH"); ok {
		biosImage = p
	}

	flag.BoolVar(&ver, "v", false, "Print version information")
	flag.BoolVar(&monitor, "monitor", false, "Run under the machine monitor")
	flag.BoolVar(&breakOnStart, "break", false, "Break into the monitor on startup")
	flag.BoolVar(&screen, "screen", false, "Show processor state in the terminal")

	flag.StringVar(&biosImage, "bios", biosImage, "Path to BIOS image")
	flag.StringVar(&variantName, "cpu", variantName, "Processor variant (8088, 8086, V20 or V30)")
	flag.StringVar(&logLevel, "log-level", logLevel, "Log level")
	flag.IntVar(&memoryKB, "ram", memoryKB, "Conventional memory in KB")
	flag.Uint64Var(&cycles, "cycles", 0, "Stop after this many cycles")
	flag.Float64Var(&clockMHz, "mhz", clockMHz, "Clock frequency, 0 runs unthrottled")
}

func main() {
	flag.Parse()

	if ver {
		fmt.Printf("%s (%s)\n", version.Current.FullString(), version.Hash)
		return
	}

	level, err := log.ParseLevel(logLevel)
	if err != nil {
		log.Fatal(err)
	}
	log.SetLevel(level)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	variant, err := processor.ParseVariant(variantName)
	if err != nil {
		log.Fatal(err)
	}

	cfg := emulator.Config{
		Variant:      variant,
		Fs:           afero.NewOsFs(),
		BiosImage:    biosImage,
		MemorySize:   memoryKB * 1024,
		BreakOnStart: breakOnStart,
	}
	if monitor {
		cfg.Console = debug.NewConsole()
	}

	m, err := emulator.New(cfg)
	if err != nil {
		log.WithError(err).Fatal("could not create machine")
	}
	defer m.Close()

	switch {
	case monitor:
		if err = m.Monitor.Run(); err == debug.ErrQuit {
			err = nil
		}
	case screen:
		err = runScreen(m)
	default:
		err = m.Execute(cycles, int(clockMHz*1000000))
	}

	if err != nil && err != processor.ErrCPUHalt {
		log.WithError(err).Error("machine stopped")
	}
	fmt.Println(m.DumpState())
	fmt.Printf("%d cycles\n", m.Cycles())
}

func runScreen(m *emulator.Machine) error {
	tcell.SetEncodingFallback(tcell.EncodingFallbackASCII)
	s, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err = s.Init(); err != nil {
		return err
	}
	defer s.Fini()

	s.HideCursor()
	s.DisableMouse()
	log.SetOutput(ioutil.Discard)

	perFrame := int(clockMHz*1000000) / 30
	if perFrame <= 0 {
		perFrame = emulator.ClockFrequency / 30
	}
	return debug.NewView(s, m.CPU, perFrame).Run()
}
