// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package superio

import (
	"errors"
	"fmt"

	"github.com/sonic-platform/chassis/bankgpio"
	"github.com/sonic-platform/chassis/config"
)

// NCT6102D constants.
const (
	NCT6102DChipID = 0xc452
	NCT6102DLines  = 57
)

// NCT6102DConfigPorts are the configuration index ports the chip may be
// strapped to.
var NCT6102DConfigPorts = []uint16{0x2e, 0x4e}

// ErrNotFound is returned when no chip answers on the probed ports.
var ErrNotFound = errors.New("superio: chip not found")

const (
	enterKey = 0x87
	exitKey  = 0xaa

	crLDN      = 0x07
	crIDHigh   = 0x20
	crIDLow    = 0x21
	crActivate = 0x30
	crBaseHigh = 0x60
	crBaseLow  = 0x61

	gpioLDN = 8
)

// Offsets of the GPIO window ports.
const (
	winIndex     = 0
	winDirection = 1
	winData      = 2
)

// NCT6102D is a detected chip.
type NCT6102D struct {
	port   Port
	config uint16
	base   uint16
}

// DetectNCT6102D probes ports in order and returns the first chip whose ID
// matches.
func DetectNCT6102D(p Port, ports []uint16) (*NCT6102D, error) {
	for _, cp := range ports {
		d := &NCT6102D{port: p, config: cp}
		id, err := d.ChipID()
		if err != nil {
			return nil, err
		}
		logf("config port %#x: chip id %#04x", cp, id)
		if id == NCT6102DChipID {
			return d, nil
		}
	}
	return nil, fmt.Errorf("%w on ports %#x", ErrNotFound, ports)
}

// ConfigPort returns the configuration index port of the chip.
func (d *NCT6102D) ConfigPort() uint16 {
	return d.config
}

// Base returns the GPIO window base read by Enable.
func (d *NCT6102D) Base() uint16 {
	return d.base
}

// ChipID reads CR20:CR21.
func (d *NCT6102D) ChipID() (uint16, error) {
	if err := d.enter(); err != nil {
		return 0, err
	}
	hi, err := d.readCR(crIDHigh)
	if err != nil {
		return 0, err
	}
	lo, err := d.readCR(crIDLow)
	if err != nil {
		return 0, err
	}
	if err := d.exit(); err != nil {
		return 0, err
	}
	return uint16(hi)<<8 | uint16(lo), nil
}

// Enable activates the GPIO logical device, records its window base and
// applies the configuration space presets.
func (d *NCT6102D) Enable(presets []config.Preset) (err error) {
	if err := d.enter(); err != nil {
		return err
	}
	defer func() {
		if err2 := d.exit(); err == nil {
			err = err2
		}
	}()
	if err := d.writeCR(crLDN, gpioLDN); err != nil {
		return err
	}
	hi, err := d.readCR(crBaseHigh)
	if err != nil {
		return err
	}
	lo, err := d.readCR(crBaseLow)
	if err != nil {
		return err
	}
	d.base = uint16(hi)<<8 | uint16(lo)
	if d.base == 0 {
		return errors.New("superio: nct6102d: GPIO window base is not set")
	}
	act, err := d.readCR(crActivate)
	if err != nil {
		return err
	}
	if err := d.writeCR(crActivate, act|2); err != nil {
		return err
	}
	for _, p := range presets {
		if err := d.writeCR(crLDN, p.LDN); err != nil {
			return err
		}
		if err := d.writeCR(p.Register, p.Value); err != nil {
			return err
		}
	}
	return nil
}

// Window returns the GPIO window. Enable must have succeeded.
func (d *NCT6102D) Window() *NCT6102DWindow {
	return &NCT6102DWindow{Port: d.port, Base: d.base}
}

func (d *NCT6102D) enter() error {
	if err := d.port.Out8(d.config, enterKey); err != nil {
		return err
	}
	return d.port.Out8(d.config, enterKey)
}

func (d *NCT6102D) exit() error {
	return d.port.Out8(d.config, exitKey)
}

func (d *NCT6102D) readCR(reg uint8) (uint8, error) {
	if err := d.port.Out8(d.config, reg); err != nil {
		return 0, err
	}
	return d.port.In8(d.config + 1)
}

func (d *NCT6102D) writeCR(reg, v uint8) error {
	if err := d.port.Out8(d.config, reg); err != nil {
		return err
	}
	return d.port.Out8(d.config+1, v)
}

// NCT6102DBanks returns one bank per group of 8 lines. Select holds the
// group index.
func NCT6102DBanks(lines int) []bankgpio.RegisterBank {
	out := make([]bankgpio.RegisterBank, (lines+7)/8)
	for i := range out {
		out[i].Select = uint16(i)
	}
	return out
}

// NCT6102DWindow is the bankgpio.Window of the NCT6102D GPIO logical device.
//
// Only RegisterBank.Select, the group index, is used. Lines are always in
// GPIO function: the Function register reads all ones and ignores writes.
type NCT6102DWindow struct {
	Port Port
	Base uint16
}

// BankWidth implements bankgpio.Window.
func (w *NCT6102DWindow) BankWidth() int {
	return 8
}

// ReadRegister implements bankgpio.Window.
func (w *NCT6102DWindow) ReadRegister(b bankgpio.RegisterBank, r bankgpio.Register) (uint32, error) {
	off, err := windowOffset(r)
	if err != nil || r == bankgpio.Function {
		return 0xFF, err
	}
	if err := w.selectGroup(b.Select); err != nil {
		return 0, err
	}
	v, err := w.Port.In8(w.Base + off)
	return uint32(v), err
}

// WriteRegister implements bankgpio.Window.
func (w *NCT6102DWindow) WriteRegister(b bankgpio.RegisterBank, r bankgpio.Register, v uint32) error {
	off, err := windowOffset(r)
	if err != nil || r == bankgpio.Function {
		return err
	}
	if v > 0xFF {
		return fmt.Errorf("superio: nct6102d: value %#x doesn't fit a group", v)
	}
	if err := w.selectGroup(b.Select); err != nil {
		return err
	}
	if err := w.Port.Out8(w.Base+off, uint8(v)); err != nil {
		return err
	}
	// The chip latches the write on the following read.
	_, err = w.Port.In8(w.Base + off)
	return err
}

func (w *NCT6102DWindow) selectGroup(g uint16) error {
	if g > 0xFF {
		return fmt.Errorf("superio: nct6102d: invalid group %d", g)
	}
	if err := w.Port.Out8(w.Base+winIndex, uint8(g)); err != nil {
		return err
	}
	_, err := w.Port.In8(w.Base + winIndex)
	return err
}

func windowOffset(r bankgpio.Register) (uint16, error) {
	switch r {
	case bankgpio.Function:
		return 0, nil
	case bankgpio.Direction:
		return winDirection, nil
	case bankgpio.Level:
		return winData, nil
	default:
		return 0, fmt.Errorf("superio: unknown register %s", r)
	}
}

var _ bankgpio.Window = &NCT6102DWindow{}
