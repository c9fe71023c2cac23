// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package bankgpiotest is meant to be used to test drivers using
// bankgpio.Controller without hardware.
package bankgpiotest

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sonic-platform/chassis/bankgpio"
)

// Op is one recorded register access.
type Op struct {
	Bank     bankgpio.RegisterBank
	Register bankgpio.Register
	Write    bool
	Value    uint32
}

func (o Op) String() string {
	if o.Write {
		return fmt.Sprintf("write %s@%#x=%#x", o.Register, o.Bank.Select, o.Value)
	}
	return fmt.Sprintf("read %s@%#x=%#x", o.Register, o.Bank.Select, o.Value)
}

// Window is an in-memory bankgpio.Window that records every access.
//
// Registers are keyed by the bank Select field and the register kind. Fail,
// when set, is called before each access and its error is returned.
type Window struct {
	Width int

	sync.Mutex
	Regs map[Key]uint32
	Ops  []Op
	Fail func(op Op) error
}

// Key identifies a register in Window.Regs.
type Key struct {
	Select   uint16
	Register bankgpio.Register
}

// BankWidth implements bankgpio.Window.
func (w *Window) BankWidth() int {
	return w.Width
}

// ReadRegister implements bankgpio.Window.
func (w *Window) ReadRegister(b bankgpio.RegisterBank, r bankgpio.Register) (uint32, error) {
	w.Lock()
	defer w.Unlock()
	op := Op{Bank: b, Register: r}
	if w.Fail != nil {
		if err := w.Fail(op); err != nil {
			return 0, err
		}
	}
	op.Value = w.Regs[Key{b.Select, r}]
	w.Ops = append(w.Ops, op)
	return op.Value, nil
}

// WriteRegister implements bankgpio.Window.
func (w *Window) WriteRegister(b bankgpio.RegisterBank, r bankgpio.Register, v uint32) error {
	w.Lock()
	defer w.Unlock()
	op := Op{Bank: b, Register: r, Write: true, Value: v}
	if w.Fail != nil {
		if err := w.Fail(op); err != nil {
			return err
		}
	}
	if w.Regs == nil {
		w.Regs = map[Key]uint32{}
	}
	w.Regs[Key{b.Select, r}] = v
	w.Ops = append(w.Ops, op)
	return nil
}

// Writes returns the recorded writes.
func (w *Window) Writes() []Op {
	w.Lock()
	defer w.Unlock()
	var out []Op
	for _, op := range w.Ops {
		if op.Write {
			out = append(out, op)
		}
	}
	return out
}

// Reset forgets the recorded accesses, keeping the register values.
func (w *Window) Reset() {
	w.Lock()
	defer w.Unlock()
	w.Ops = nil
}

// Banks returns n banks with distinct Select values starting at 0.
func Banks(n int) []bankgpio.RegisterBank {
	out := make([]bankgpio.RegisterBank, n)
	for i := range out {
		out[i] = bankgpio.RegisterBank{Select: uint16(i), Direction: 1, Level: 2}
	}
	return out
}

// ErrInjected is a convenience error for Fail.
var ErrInjected = errors.New("bankgpiotest: injected failure")

var _ bankgpio.Window = &Window{}
