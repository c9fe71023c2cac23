// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package bankgpio

import (
	"errors"
	"fmt"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/pin"
)

// Pin is one line of a Controller.
type Pin struct {
	c      *Controller
	number int
	name   string
}

// String implements conn.Resource.
func (p *Pin) String() string {
	return p.name
}

// Halt implements conn.Resource.
//
// There is no edge detection to stop.
func (p *Pin) Halt() error {
	return nil
}

// Name implements pin.Pin.
func (p *Pin) Name() string {
	return p.name
}

// Number implements pin.Pin.
//
// It is the line number within its controller.
func (p *Pin) Number() int {
	return p.number
}

// Function implements pin.Pin.
func (p *Pin) Function() string {
	return string(p.Func())
}

// Func implements pin.PinFunc.
func (p *Pin) Func() pin.Func {
	input, err := p.c.Direction(p.number)
	if err != nil {
		return pin.FuncNone
	}
	l, err := p.c.Read(p.number)
	if err != nil {
		return pin.FuncNone
	}
	if input {
		if l {
			return gpio.IN_HIGH
		}
		return gpio.IN_LOW
	}
	if l {
		return gpio.OUT_HIGH
	}
	return gpio.OUT_LOW
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
	case gpio.OUT_HIGH:
		return p.Out(gpio.High)
	case gpio.OUT, gpio.OUT_LOW:
		return p.Out(gpio.Low)
	default:
		return p.wrap(errors.New("unsupported function"))
	}
}

// In implements gpio.PinIn.
//
// Pull resistors and edge detection are not available on banked registers.
func (p *Pin) In(pull gpio.Pull, edge gpio.Edge) error {
	if pull != gpio.PullNoChange && pull != gpio.Float {
		return p.wrap(errors.New("doesn't support pull-up/pull-down"))
	}
	if edge != gpio.NoEdge {
		return p.wrap(errors.New("doesn't support edge detection"))
	}
	if err := p.c.SetDirection(p.number, true, gpio.Low); err != nil {
		return p.wrap(err)
	}
	return nil
}

// Read implements gpio.PinIn.
//
// It returns gpio.Low when the register can't be read.
func (p *Pin) Read() gpio.Level {
	l, err := p.c.Read(p.number)
	if err != nil {
		return gpio.Low
	}
	return l
}

// WaitForEdge implements gpio.PinIn.
//
// It always returns false.
func (p *Pin) WaitForEdge(time.Duration) bool {
	return false
}

// Pull implements gpio.PinIn.
func (p *Pin) Pull() gpio.Pull {
	return gpio.PullNoChange
}

// DefaultPull implements gpio.PinIn.
func (p *Pin) DefaultPull() gpio.Pull {
	return gpio.PullNoChange
}

// Out implements gpio.PinOut.
//
// An input is switched to output before the level is written.
func (p *Pin) Out(l gpio.Level) error {
	if err := p.c.out(p.number, l); err != nil {
		return p.wrap(err)
	}
	return nil
}

// PWM implements gpio.PinOut.
func (p *Pin) PWM(gpio.Duty, physic.Frequency) error {
	return p.wrap(errors.New("pwm is not supported"))
}

func (p *Pin) wrap(err error) error {
	return fmt.Errorf("bankgpio (%s): %w", p, err)
}

var _ conn.Resource = &Pin{}
var _ gpio.PinIn = &Pin{}
var _ gpio.PinOut = &Pin{}
var _ gpio.PinIO = &Pin{}
var _ pin.PinFunc = &Pin{}
