// Package periphgpio exposes chardev GPIO lines as periph.io pins.
//
// Importing the package registers every usefully named line of every GPIO
// chip on the system with gpioreg, so they resolve through
// gpioreg.ByName() once driverreg.Init() has run.
package periphgpio

// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

import (
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"periph.io/x/conn/v3/driver/driverreg"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/pin"

	"github.com/s2e-systems/gpiocdev"
)

// chips holds the GPIO chips found at Init, sorted pinctrl- first.
var chips []*gpiocdev.Chip

// Chips returns the GPIO chips found on the running device.
func Chips() []*gpiocdev.Chip {
	return chips
}

// Pin is one GPIO line presented as a periph.io pin.
//
// The line is requested lazily on the first In, Out or Read and held until
// Close, so an idle pin does not reserve its line.
type Pin struct {
	chip   *gpiocdev.Chip
	offset uint32
	name   string

	mu   sync.Mutex
	req  *gpiocdev.LineRequest
	dir  gpiocdev.LineDir
	edge gpio.Edge
	pull gpio.Pull
}

func newPin(chip *gpiocdev.Chip, info gpiocdev.LineInfo) *Pin {
	return &Pin{chip: chip, offset: info.Offset, name: info.Name}
}

// Name implements pin.Pin.
func (p *Pin) Name() string {
	return p.name
}

// Number returns the line offset on its chip, which has no relationship to
// any board pin numbering. Implements pin.Pin.
func (p *Pin) Number() int {
	return int(p.offset)
}

// String implements pin.Pin.
func (p *Pin) String() string {
	return fmt.Sprintf("%s:%d(%s)", p.chip.Name(), p.offset, p.name)
}

// Halt interrupts a pending WaitForEdge. Implements conn.Resource.
func (p *Pin) Halt() error {
	p.mu.Lock()
	req := p.req
	p.mu.Unlock()
	if req == nil {
		return nil
	}
	return req.Halt()
}

func settingsFor(dir gpiocdev.LineDir, edge gpio.Edge, pull gpio.Pull) gpiocdev.LineSettings {
	s := gpiocdev.LineSettings{Direction: dir}
	switch edge {
	case gpio.RisingEdge:
		s.Edge = gpiocdev.EdgeRising
	case gpio.FallingEdge:
		s.Edge = gpiocdev.EdgeFalling
	case gpio.BothEdges:
		s.Edge = gpiocdev.EdgeBoth
	}
	switch pull {
	case gpio.PullUp:
		s.Bias = gpiocdev.BiasPullUp
	case gpio.PullDown:
		s.Bias = gpiocdev.BiasPullDown
	case gpio.Float:
		s.Bias = gpiocdev.BiasDisabled
	}
	return s
}

// apply requests the line with the given settings, or reconfigures the
// existing request. Callers hold p.mu.
func (p *Pin) apply(s gpiocdev.LineSettings, out gpiocdev.LineValues) error {
	if p.req != nil {
		return p.req.Reconfigure(s)
	}
	req, err := p.chip.RequestLines(gpiocdev.LineConfig{
		Offsets:      []uint32{p.offset},
		Defaults:     s,
		OutputValues: out,
	})
	if err != nil {
		return err
	}
	p.req = req
	return nil
}

// In configures the line as an input. Implements gpio.PinIn.
func (p *Pin) In(pull gpio.Pull, edge gpio.Edge) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.apply(settingsFor(gpiocdev.LineInput, edge, pull), gpiocdev.LineValues{}); err != nil {
		return fmt.Errorf("periphgpio: %s In: %w", p, err)
	}
	p.dir = gpiocdev.LineInput
	p.edge = edge
	p.pull = pull
	return nil
}

// Out drives the line to the given level, configuring it as an output
// first if needed. Implements gpio.PinOut.
func (p *Pin) Out(l gpio.Level) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.dir != gpiocdev.LineOutput {
		s := settingsFor(gpiocdev.LineOutput, gpio.NoEdge, gpio.PullNoChange)
		if err := p.apply(s, gpiocdev.NewLineValues(bool(l))); err != nil {
			return fmt.Errorf("periphgpio: %s Out: %w", p, err)
		}
		p.dir = gpiocdev.LineOutput
		p.edge = gpio.NoEdge
		p.pull = gpio.PullNoChange
	}
	if err := p.req.SetValues(gpiocdev.NewLineValues(bool(l))); err != nil {
		return fmt.Errorf("periphgpio: %s Out: %w", p, err)
	}
	return nil
}

// Read returns the current level of the line, configuring it as an input
// first if needed. Implements gpio.PinIn.
func (p *Pin) Read() gpio.Level {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.req == nil {
		if err := p.apply(settingsFor(gpiocdev.LineInput, gpio.NoEdge, gpio.PullNoChange), gpiocdev.LineValues{}); err != nil {
			return gpio.Low
		}
		p.dir = gpiocdev.LineInput
	}
	v, err := p.req.Values()
	if err != nil {
		return gpio.Low
	}
	level, _ := v.Get(0)
	return gpio.Level(level)
}

// WaitForEdge blocks until the next edge, the timeout, or Halt. A zero
// timeout waits forever. The line must be configured with In and an edge
// first. Implements gpio.PinIn.
func (p *Pin) WaitForEdge(timeout time.Duration) bool {
	p.mu.Lock()
	req := p.req
	edge := p.edge
	p.mu.Unlock()
	if req == nil || edge == gpio.NoEdge {
		return false
	}
	_, err := req.WaitForEdge(timeout)
	return err == nil
}

// Pull returns the bias configured by the last In. Implements gpio.PinIn.
func (p *Pin) Pull() gpio.Pull {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pull
}

// DefaultPull implements gpio.PinIn. The chardev interface does not expose
// the power-on bias.
func (p *Pin) DefaultPull() gpio.Pull {
	return gpio.PullNoChange
}

// PWM implements gpio.PinOut. The chardev interface has no PWM support;
// that lives in the kernel PWM subsystem.
func (p *Pin) PWM(gpio.Duty, physic.Frequency) error {
	return errors.New("periphgpio: PWM not supported")
}

// Func implements pin.PinFunc.
func (p *Pin) Func() pin.Func {
	p.mu.Lock()
	dir := p.dir
	p.mu.Unlock()
	switch dir {
	case gpiocdev.LineInput:
		if p.Read() {
			return gpio.IN_HIGH
		}
		return gpio.IN_LOW
	case gpiocdev.LineOutput:
		if p.Read() {
			return gpio.OUT_HIGH
		}
		return gpio.OUT_LOW
	}
	return pin.FuncNone
}

// SupportedFuncs implements pin.PinFunc.
func (p *Pin) SupportedFuncs() []pin.Func {
	return []pin.Func{gpio.IN, gpio.OUT}
}

// SetFunc implements pin.PinFunc.
func (p *Pin) SetFunc(f pin.Func) error {
	switch f {
	case gpio.IN:
		return p.In(gpio.PullNoChange, gpio.NoEdge)
	case gpio.OUT, gpio.OUT_LOW:
		return p.Out(gpio.Low)
	case gpio.OUT_HIGH:
		return p.Out(gpio.High)
	}
	return fmt.Errorf("periphgpio: unsupported pin function %q", f)
}

// Function implements pin.Pin.
//
// Deprecated: use Func.
func (p *Pin) Function() string {
	return string(p.Func())
}

// Close releases the line. The pin re-requests it on the next use.
func (p *Pin) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.req == nil {
		return nil
	}
	err := p.req.Release()
	p.req = nil
	p.dir = gpiocdev.LineDirNotSet
	p.edge = gpio.NoEdge
	p.pull = gpio.PullNoChange
	return err
}

type driverGPIO struct{}

func (d *driverGPIO) String() string {
	return "periphgpio"
}

func (d *driverGPIO) Prerequisites() []string {
	return nil
}

func (d *driverGPIO) After() []string {
	return nil
}

// Init finds the GPIO chips on the system and registers their named lines
// with gpioreg.
func (d *driverGPIO) Init() (bool, error) {
	if runtime.GOOS != "linux" {
		return false, errors.New("periphgpio: chardev GPIO requires linux")
	}
	paths := gpiocdev.Chips()
	if len(paths) == 0 {
		return false, errors.New("periphgpio: no GPIO chips found")
	}
	seen := make(map[string]struct{})
	for _, path := range paths {
		chip, err := gpiocdev.OpenChip(path)
		if err != nil {
			continue
		}
		// A chip may appear under several nodes, e.g. symlinked
		// gpiochip4 on a Pi.
		if _, dup := seen[chip.Name()]; dup {
			chip.Close()
			continue
		}
		seen[chip.Name()] = struct{}{}
		chips = append(chips, chip)
	}
	// pinctrl- labelled chips first, the Pi kernel convention, so their
	// line names win registration races.
	sort.SliceStable(chips, func(i, j int) bool {
		pi := strings.HasPrefix(chips[i].Label(), "pinctrl-")
		pj := strings.HasPrefix(chips[j].Label(), "pinctrl-")
		if pi != pj {
			return pi
		}
		return chips[i].Label() < chips[j].Label()
	})
	registered := make(map[string]struct{})
	for _, p := range gpioreg.All() {
		registered[p.Name()] = struct{}{}
	}
	for _, chip := range chips {
		infos, err := chip.LineInfos()
		if err != nil {
			continue
		}
		for _, info := range infos {
			if info.Name == "" || info.Name == "_" || info.Name == "-" {
				continue
			}
			p := newPin(chip, info)
			if _, dup := registered[p.name]; dup {
				// Some boards export the same line name from
				// several chips.
				p.name = chip.Name() + "-" + p.name
				if _, dup := registered[p.name]; dup {
					continue
				}
			}
			registered[p.name] = struct{}{}
			if err := gpioreg.Register(p); err != nil {
				continue
			}
		}
	}
	return len(chips) > 0, nil
}

var drvGPIO driverGPIO

func init() {
	driverreg.MustRegister(&drvGPIO)
}

var _ gpio.PinIO = &Pin{}
var _ gpio.PinIn = &Pin{}
var _ gpio.PinOut = &Pin{}
var _ pin.PinFunc = &Pin{}
