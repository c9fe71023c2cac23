// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package bankgpio

import (
	"strconv"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/pin"
)

// Bank is one bank of a Controller seen as a gpio.Group.
//
// Bit i of a GPIOValue is the line at offset i in the bank. Out and Read are
// a single register access each, so the masked lines change or are sampled
// together.
type Bank struct {
	c     *Controller
	index int
	pins  []*Pin
}

// String implements conn.Resource.
func (b *Bank) String() string {
	return b.c.name + "[" + strconv.Itoa(b.index) + "]"
}

// Halt implements conn.Resource.
func (b *Bank) Halt() error {
	return nil
}

// Pins implements gpio.Group.
func (b *Bank) Pins() []pin.Pin {
	pins := make([]pin.Pin, len(b.pins))
	for i, p := range b.pins {
		pins[i] = p
	}
	return pins
}

// ByOffset implements gpio.Group.
func (b *Bank) ByOffset(offset int) pin.Pin {
	if offset < 0 || offset >= len(b.pins) {
		return nil
	}
	return b.pins[offset]
}

// ByName implements gpio.Group.
func (b *Bank) ByName(name string) pin.Pin {
	for _, p := range b.pins {
		if p.name == name {
			return p
		}
	}
	return nil
}

// ByNumber implements gpio.Group.
func (b *Bank) ByNumber(number int) pin.Pin {
	for _, p := range b.pins {
		if p.number == number {
			return p
		}
	}
	return nil
}

// Out implements gpio.Group.
//
// It writes the level register only; the masked lines must already be
// outputs. A mask of 0 selects every line of the bank.
func (b *Bank) Out(value, mask gpio.GPIOValue) error {
	m := b.mask(mask)
	b.c.mu.Lock()
	defer b.c.mu.Unlock()
	return b.c.modify(b.pins[0].number, b.index, Level, m, uint32(value)&m)
}

// Read implements gpio.Group.
//
// A mask of 0 selects every line of the bank.
func (b *Bank) Read(mask gpio.GPIOValue) (gpio.GPIOValue, error) {
	m := b.mask(mask)
	b.c.mu.Lock()
	defer b.c.mu.Unlock()
	v, err := b.c.win.ReadRegister(b.c.banks[b.index], Level)
	if err != nil {
		return 0, b.c.wrap(b.pins[0].number, Level, err)
	}
	return gpio.GPIOValue(v & m), nil
}

// WaitForEdge implements gpio.Group.
//
// Edge detection is not available.
func (b *Bank) WaitForEdge(time.Duration) (int, gpio.Edge, error) {
	return 0, gpio.NoEdge, gpio.ErrGroupFeatureNotImplemented
}

func (b *Bank) mask(mask gpio.GPIOValue) uint32 {
	// Wraps to all ones for a 32 line bank.
	all := uint32(1)<<uint(len(b.pins)) - 1
	if mask == 0 {
		return all
	}
	return uint32(mask) & all
}

var _ gpio.Group = &Bank{}
