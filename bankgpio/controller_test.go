// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package bankgpio_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/sonic-platform/chassis/bankgpio"
	"github.com/sonic-platform/chassis/bankgpio/bankgpiotest"
	"periph.io/x/conn/v3/gpio"
)

func newController(t *testing.T, width, lines int) (*bankgpio.Controller, *bankgpiotest.Window) {
	w := &bankgpiotest.Window{Width: width}
	banks := bankgpiotest.Banks((lines + width - 1) / width)
	c, err := bankgpio.New("GPIO", w, banks, lines)
	if err != nil {
		t.Fatal(err)
	}
	return c, w
}

func TestNew_notEnoughBanks(t *testing.T) {
	w := &bankgpiotest.Window{Width: 8}
	if _, err := bankgpio.New("GPIO", w, bankgpiotest.Banks(7), 57); err == nil {
		t.Fatal("expected error")
	}
	if _, err := bankgpio.New("GPIO", w, bankgpiotest.Banks(8), 57); err != nil {
		t.Fatal(err)
	}
	if _, err := bankgpio.New("GPIO", &bankgpiotest.Window{Width: 64}, bankgpiotest.Banks(2), 57); err == nil {
		t.Fatal("expected error")
	}
}

func TestLocate(t *testing.T) {
	data := []struct {
		width, lines int
	}{
		{32, 96},
		{8, 57},
	}
	for _, line := range data {
		c, w := newController(t, line.width, line.lines)
		for p := 0; p < line.lines; p++ {
			b, off, err := c.Locate(p)
			if err != nil {
				t.Fatalf("%d: %v", p, err)
			}
			if b != p/line.width || off != p%line.width {
				t.Errorf("%d: got (%d, %d)", p, b, off)
			}
			if b >= c.Banks() {
				t.Errorf("%d: bank %d out of %d", p, b, c.Banks())
			}
		}
		for _, p := range []int{-1, line.lines, line.lines + line.width, 1 << 20} {
			if _, _, err := c.Locate(p); !errors.Is(err, bankgpio.ErrInvalidPin) {
				t.Errorf("%d: expected ErrInvalidPin, got %v", p, err)
			}
		}
		if len(w.Ops) != 0 {
			t.Fatalf("Locate touched the hardware: %v", w.Ops)
		}
	}
}

func TestInvalidPin_noAccess(t *testing.T) {
	c, w := newController(t, 8, 57)
	if _, err := c.Read(57); !errors.Is(err, bankgpio.ErrInvalidPin) {
		t.Errorf("Read: %v", err)
	}
	if err := c.Write(64, gpio.High); !errors.Is(err, bankgpio.ErrInvalidPin) {
		t.Errorf("Write: %v", err)
	}
	if err := c.SetDirection(-3, false, gpio.High); !errors.Is(err, bankgpio.ErrInvalidPin) {
		t.Errorf("SetDirection: %v", err)
	}
	if err := c.ConfigureAsGPIO(100); !errors.Is(err, bankgpio.ErrInvalidPin) {
		t.Errorf("ConfigureAsGPIO: %v", err)
	}
	if _, err := c.Direction(58); !errors.Is(err, bankgpio.ErrInvalidPin) {
		t.Errorf("Direction: %v", err)
	}
	if len(w.Ops) != 0 {
		t.Fatalf("invalid pins touched the hardware: %v", w.Ops)
	}
}

func TestWriteRead(t *testing.T) {
	for _, width := range []int{8, 32} {
		c, _ := newController(t, width, 96)
		for p := 0; p < c.Lines(); p++ {
			for _, v := range []gpio.Level{gpio.High, gpio.Low, gpio.High} {
				if err := c.Write(p, v); err != nil {
					t.Fatal(err)
				}
				if l, err := c.Read(p); err != nil || l != v {
					t.Fatalf("width %d pin %d: got %s, %v; want %s", width, p, l, err, v)
				}
			}
		}
		// Every line was left high.
		for p := 0; p < c.Lines(); p++ {
			if l, _ := c.Read(p); l != gpio.High {
				t.Fatalf("width %d pin %d lost its level", width, p)
			}
		}
	}
}

func TestSetDirection_output(t *testing.T) {
	c, w := newController(t, 32, 96)
	// Every line starts as an input, level low.
	w.Regs = map[bankgpiotest.Key]uint32{
		{Select: 1, Register: bankgpio.Direction}: 0xFFFFFFFF,
	}
	if err := c.SetDirection(37, false, gpio.High); err != nil {
		t.Fatal(err)
	}
	writes := w.Writes()
	if len(writes) != 2 {
		t.Fatalf("expected 2 writes, got %v", writes)
	}
	if writes[0].Register != bankgpio.Direction || writes[0].Value != 0xFFFFFFDF {
		t.Errorf("first write must clear the direction bit: %s", writes[0])
	}
	if writes[1].Register != bankgpio.Level || writes[1].Value != 0x20 {
		t.Errorf("second write must set the level: %s", writes[1])
	}
	// No access happens between the two writes other than reading the level
	// register back.
	var seq []bankgpio.Register
	for _, op := range w.Ops {
		seq = append(seq, op.Register)
	}
	want := []bankgpio.Register{bankgpio.Direction, bankgpio.Direction, bankgpio.Level, bankgpio.Level}
	if len(seq) != len(want) {
		t.Fatalf("got %v", w.Ops)
	}
	for i := range want {
		if seq[i] != want[i] {
			t.Fatalf("got %v", w.Ops)
		}
	}
	if l, err := c.Read(37); err != nil || l != gpio.High {
		t.Fatalf("got %s, %v", l, err)
	}
	if input, err := c.Direction(37); err != nil || input {
		t.Fatalf("expected output, got input=%t, %v", input, err)
	}
	if err := c.Write(37, gpio.Low); err != nil {
		t.Fatal(err)
	}
	if l, err := c.Read(37); err != nil || l != gpio.Low {
		t.Fatalf("got %s, %v", l, err)
	}
}

func TestSetDirection_input(t *testing.T) {
	c, w := newController(t, 8, 57)
	if err := c.SetDirection(10, true, gpio.High); err != nil {
		t.Fatal(err)
	}
	writes := w.Writes()
	if len(writes) != 1 || writes[0].Register != bankgpio.Direction || writes[0].Value != 0x04 {
		t.Fatalf("got %v", writes)
	}
	if input, err := c.Direction(10); err != nil || !input {
		t.Fatalf("expected input, got %t, %v", input, err)
	}
}

func TestConfigureAsGPIO_idempotent(t *testing.T) {
	c, w := newController(t, 32, 96)
	w.Regs = map[bankgpiotest.Key]uint32{
		{Select: 0, Register: bankgpio.Function}: 0x100,
	}
	for i := 0; i < 2; i++ {
		if err := c.ConfigureAsGPIO(17); err != nil {
			t.Fatal(err)
		}
	}
	if v := w.Regs[bankgpiotest.Key{Select: 0, Register: bankgpio.Function}]; v != 0x20100 {
		t.Fatalf("got %#x", v)
	}
	if writes := w.Writes(); len(writes) != 1 {
		t.Fatalf("expected a single write, got %v", writes)
	}
}

func TestRegisterError(t *testing.T) {
	c, w := newController(t, 8, 16)
	w.Fail = func(op bankgpiotest.Op) error {
		if op.Write {
			return bankgpiotest.ErrInjected
		}
		return nil
	}
	err := c.Write(3, gpio.High)
	if !errors.Is(err, bankgpiotest.ErrInjected) {
		t.Fatalf("expected the window error, got %v", err)
	}
	if errors.Is(err, bankgpio.ErrInvalidPin) {
		t.Fatal("window errors are not configuration errors")
	}
}

func TestConcurrentWriters(t *testing.T) {
	c, _ := newController(t, 32, 32)
	var wg sync.WaitGroup
	for p := 0; p < 32; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				if err := c.Write(p, gpio.High); err != nil {
					t.Error(err)
					return
				}
			}
		}(p)
	}
	wg.Wait()
	v, err := c.Bank(0).Read(0)
	if err != nil {
		t.Fatal(err)
	}
	if v != 0xFFFFFFFF {
		t.Fatalf("lost updates: %#x", v)
	}
}

func TestBank(t *testing.T) {
	c, w := newController(t, 8, 57)
	if c.Banks() != 8 {
		t.Fatalf("got %d banks", c.Banks())
	}
	last := c.Bank(7)
	if n := len(last.Pins()); n != 1 {
		t.Fatalf("last bank has %d lines", n)
	}
	if c.Bank(8) != nil {
		t.Fatal("expected nil")
	}
	b := c.Bank(2)
	if p := b.ByOffset(3); p == nil || p.Number() != 19 {
		t.Fatalf("got %v", p)
	}
	if p := b.ByName("GPIO20"); p == nil || p.Number() != 20 {
		t.Fatalf("got %v", p)
	}
	if p := b.ByNumber(5); p != nil {
		t.Fatalf("line 5 is not in bank 2: %v", p)
	}
	if err := b.Out(0xA5, 0x0F); err != nil {
		t.Fatal(err)
	}
	if v := w.Regs[bankgpiotest.Key{Select: 2, Register: bankgpio.Level}]; v != 0x05 {
		t.Fatalf("got %#x", v)
	}
	if v, err := b.Read(0); err != nil || v != 0x05 {
		t.Fatalf("got %#x, %v", v, err)
	}
	if l, _ := c.Read(18); l != gpio.High {
		t.Fatal("line 18 should be high")
	}
	if _, _, err := b.WaitForEdge(0); !errors.Is(err, gpio.ErrGroupFeatureNotImplemented) {
		t.Fatalf("got %v", err)
	}
	if s := b.String(); s != "GPIO[2]" {
		t.Fatal(s)
	}
}
