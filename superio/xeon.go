// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package superio

import (
	"fmt"

	"github.com/sonic-platform/chassis/bankgpio"
)

// Xeon PCH GPIO defaults.
const (
	XeonDefaultBase = 0x500
	XeonLines       = 96
)

// xeonBankOffsets are the register offsets of each bank relative to the
// window base.
var xeonBankOffsets = []bankgpio.RegisterBank{
	{Select: 0x00, Direction: 0x04, Level: 0x0C},
	{Select: 0x30, Direction: 0x34, Level: 0x38},
	{Select: 0x40, Direction: 0x44, Level: 0x48},
}

// XeonBanks returns the register layout of a Xeon GPIO block at base.
func XeonBanks(base uint16) []bankgpio.RegisterBank {
	out := make([]bankgpio.RegisterBank, len(xeonBankOffsets))
	for i, b := range xeonBankOffsets {
		out[i] = bankgpio.RegisterBank{
			Select:    base + b.Select,
			Direction: base + b.Direction,
			Level:     base + b.Level,
		}
	}
	return out
}

// Rebase moves absolute bank addresses laid out for base from to base to.
func Rebase(banks []bankgpio.RegisterBank, from, to uint16) []bankgpio.RegisterBank {
	out := make([]bankgpio.RegisterBank, len(banks))
	for i, b := range banks {
		out[i] = bankgpio.RegisterBank{
			Select:    b.Select - from + to,
			Direction: b.Direction - from + to,
			Level:     b.Level - from + to,
		}
	}
	return out
}

// XeonWindow is the bankgpio.Window of a Xeon GPIO block.
//
// The RegisterBank fields are absolute I/O ports of 32-bit registers.
type XeonWindow struct {
	Port Port
}

// BankWidth implements bankgpio.Window.
func (w *XeonWindow) BankWidth() int {
	return 32
}

// ReadRegister implements bankgpio.Window.
func (w *XeonWindow) ReadRegister(b bankgpio.RegisterBank, r bankgpio.Register) (uint32, error) {
	port, err := xeonPort(b, r)
	if err != nil {
		return 0, err
	}
	return w.Port.In32(port)
}

// WriteRegister implements bankgpio.Window.
func (w *XeonWindow) WriteRegister(b bankgpio.RegisterBank, r bankgpio.Register, v uint32) error {
	port, err := xeonPort(b, r)
	if err != nil {
		return err
	}
	return w.Port.Out32(port, v)
}

func xeonPort(b bankgpio.RegisterBank, r bankgpio.Register) (uint16, error) {
	switch r {
	case bankgpio.Function:
		return b.Select, nil
	case bankgpio.Direction:
		return b.Direction, nil
	case bankgpio.Level:
		return b.Level, nil
	default:
		return 0, fmt.Errorf("superio: unknown register %s", r)
	}
}

var _ bankgpio.Window = &XeonWindow{}
