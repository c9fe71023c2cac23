// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package bankgpio

import (
	"errors"
	"fmt"
	"strconv"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
)

// ErrInvalidPin is returned for a line number that doesn't map to a
// configured bank.
var ErrInvalidPin = errors.New("bankgpio: invalid pin")

// Register selects one of the registers of a RegisterBank.
type Register int

const (
	// Function is the function select register. A set bit means the line is
	// a GPIO instead of an alternate function.
	Function Register = iota
	// Direction is the direction register. A set bit means input.
	Direction
	// Level is the level register.
	Level
)

func (r Register) String() string {
	switch r {
	case Function:
		return "function"
	case Direction:
		return "direction"
	case Level:
		return "level"
	default:
		return "Register(" + strconv.Itoa(int(r)) + ")"
	}
}

// RegisterBank is the set of registers serving one bank of lines.
//
// The meaning of each field is up to the Window: absolute port addresses for
// a direct window, a group index and offsets for an indexed window.
type RegisterBank struct {
	Select    uint16
	Direction uint16
	Level     uint16
}

// Window performs register access for one chip family.
//
// Implementations must perform any multi-step access sequence (index write,
// dummy read, data access) entirely within one call. The Controller
// guarantees that calls on a Window never overlap.
type Window interface {
	// BankWidth returns the number of lines per bank, at most 32.
	BankWidth() int
	ReadRegister(b RegisterBank, r Register) (uint32, error)
	WriteRegister(b RegisterBank, r Register, v uint32) error
}

// Controller drives the lines of one chip.
type Controller struct {
	name  string
	win   Window
	banks []RegisterBank
	lines int
	width int

	pins   []*Pin
	groups []*Bank

	mu sync.Mutex
}

// New returns a Controller for lines lines spread over banks.
//
// Pins are named name followed by their number, e.g. "GPIO12". banks is
// copied.
func New(name string, w Window, banks []RegisterBank, lines int) (*Controller, error) {
	width := w.BankWidth()
	if width <= 0 || width > 32 {
		return nil, fmt.Errorf("bankgpio: %s: invalid bank width %d", name, width)
	}
	if lines <= 0 {
		return nil, fmt.Errorf("bankgpio: %s: invalid line count %d", name, lines)
	}
	if need := (lines + width - 1) / width; need > len(banks) {
		return nil, fmt.Errorf("bankgpio: %s: %d lines need %d banks of %d, %d configured", name, lines, need, width, len(banks))
	}
	c := &Controller{
		name:  name,
		win:   w,
		banks: append([]RegisterBank(nil), banks...),
		lines: lines,
		width: width,
		pins:  make([]*Pin, lines),
	}
	for i := range c.pins {
		c.pins[i] = &Pin{c: c, number: i, name: name + strconv.Itoa(i)}
	}
	for i := 0; i*width < lines; i++ {
		n := width
		if (i+1)*width > lines {
			n = lines - i*width
		}
		c.groups = append(c.groups, &Bank{c: c, index: i, pins: c.pins[i*width : i*width+n]})
	}
	return c, nil
}

func (c *Controller) String() string {
	return c.name
}

// Lines returns the number of lines.
func (c *Controller) Lines() int {
	return c.lines
}

// BankWidth returns the number of lines per bank.
func (c *Controller) BankWidth() int {
	return c.width
}

// Pins returns every line as a Pin.
func (c *Controller) Pins() []*Pin {
	return append([]*Pin(nil), c.pins...)
}

// Pin returns line n or nil.
func (c *Controller) Pin(n int) *Pin {
	if n < 0 || n >= c.lines {
		return nil
	}
	return c.pins[n]
}

// Banks returns the number of banks holding lines.
func (c *Controller) Banks() int {
	return len(c.groups)
}

// Bank returns bank i as a gpio.Group, or nil.
func (c *Controller) Bank(i int) *Bank {
	if i < 0 || i >= len(c.groups) {
		return nil
	}
	return c.groups[i]
}

// Register registers every line in gpioreg.
func (c *Controller) Register() error {
	for _, p := range c.pins {
		if err := gpioreg.Register(p); err != nil {
			return err
		}
	}
	return nil
}

// Locate returns the bank and bit offset of line n.
//
// It fails with ErrInvalidPin without touching the hardware.
func (c *Controller) Locate(n int) (bank, offset int, err error) {
	if n < 0 || n >= c.lines {
		return 0, 0, fmt.Errorf("%w %d: %s has %d lines", ErrInvalidPin, n, c.name, c.lines)
	}
	bank = n / c.width
	if bank >= len(c.banks) {
		return 0, 0, fmt.Errorf("%w %d: %s has no bank %d", ErrInvalidPin, n, c.name, bank)
	}
	return bank, n % c.width, nil
}

// Read returns the level of line n.
func (c *Controller) Read(n int) (gpio.Level, error) {
	b, off, err := c.Locate(n)
	if err != nil {
		return gpio.Low, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	v, err := c.win.ReadRegister(c.banks[b], Level)
	if err != nil {
		return gpio.Low, c.wrap(n, Level, err)
	}
	return v&(1<<uint(off)) != 0, nil
}

// Write sets the level of line n.
func (c *Controller) Write(n int, l gpio.Level) error {
	b, off, err := c.Locate(n)
	if err != nil {
		return err
	}
	mask := uint32(1) << uint(off)
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.modify(n, b, Level, mask, bits(l, mask))
}

// SetDirection sets line n as an input or as an output driving l.
//
// l is ignored for an input. For an output the direction bit is cleared
// first, then the level is written, without releasing the lock in between.
func (c *Controller) SetDirection(n int, input bool, l gpio.Level) error {
	b, off, err := c.Locate(n)
	if err != nil {
		return err
	}
	mask := uint32(1) << uint(off)
	c.mu.Lock()
	defer c.mu.Unlock()
	if input {
		return c.modify(n, b, Direction, mask, mask)
	}
	if err := c.modify(n, b, Direction, mask, 0); err != nil {
		return err
	}
	return c.modify(n, b, Level, mask, bits(l, mask))
}

// Direction returns true if line n is an input.
func (c *Controller) Direction(n int) (input bool, err error) {
	b, off, err := c.Locate(n)
	if err != nil {
		return false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	v, err := c.win.ReadRegister(c.banks[b], Direction)
	if err != nil {
		return false, c.wrap(n, Direction, err)
	}
	return v&(1<<uint(off)) != 0, nil
}

// ConfigureAsGPIO selects the GPIO function for line n.
//
// The function select bit is only ever set. When it already is, nothing is
// written.
func (c *Controller) ConfigureAsGPIO(n int) error {
	b, off, err := c.Locate(n)
	if err != nil {
		return err
	}
	mask := uint32(1) << uint(off)
	c.mu.Lock()
	defer c.mu.Unlock()
	v, err := c.win.ReadRegister(c.banks[b], Function)
	if err != nil {
		return c.wrap(n, Function, err)
	}
	if v&mask != 0 {
		return nil
	}
	if err := c.win.WriteRegister(c.banks[b], Function, v|mask); err != nil {
		return c.wrap(n, Function, err)
	}
	return nil
}

// out drives line n to l, switching it to output only when needed.
func (c *Controller) out(n int, l gpio.Level) error {
	b, off, err := c.Locate(n)
	if err != nil {
		return err
	}
	mask := uint32(1) << uint(off)
	c.mu.Lock()
	defer c.mu.Unlock()
	d, err := c.win.ReadRegister(c.banks[b], Direction)
	if err != nil {
		return c.wrap(n, Direction, err)
	}
	if d&mask != 0 {
		if err := c.win.WriteRegister(c.banks[b], Direction, d&^mask); err != nil {
			return c.wrap(n, Direction, err)
		}
	}
	return c.modify(n, b, Level, mask, bits(l, mask))
}

// modify replaces the bits in mask of register r of bank b.
//
// c.mu must be held.
func (c *Controller) modify(n, b int, r Register, mask, v uint32) error {
	old, err := c.win.ReadRegister(c.banks[b], r)
	if err != nil {
		return c.wrap(n, r, err)
	}
	if err := c.win.WriteRegister(c.banks[b], r, old&^mask|v&mask); err != nil {
		return c.wrap(n, r, err)
	}
	return nil
}

func (c *Controller) wrap(n int, r Register, err error) error {
	return fmt.Errorf("bankgpio (%s): line %d %s register: %w", c.name, n, r, err)
}

func bits(l gpio.Level, mask uint32) uint32 {
	if l {
		return mask
	}
	return 0
}
