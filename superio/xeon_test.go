// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package superio

import (
	"errors"
	"testing"

	"github.com/sonic-platform/chassis/bankgpio"
	"github.com/sonic-platform/chassis/config"
	"periph.io/x/conn/v3/gpio"
)

func TestXeonBanks(t *testing.T) {
	b := XeonBanks(XeonDefaultBase)
	want := []bankgpio.RegisterBank{
		{Select: 0x500, Direction: 0x504, Level: 0x50C},
		{Select: 0x530, Direction: 0x534, Level: 0x538},
		{Select: 0x540, Direction: 0x544, Level: 0x548},
	}
	for i := range want {
		if b[i] != want[i] {
			t.Fatalf("#%d: got %+v, want %+v", i, b[i], want[i])
		}
	}
	r := Rebase(want, 0x500, 0x800)
	if r[1] != (bankgpio.RegisterBank{Select: 0x830, Direction: 0x834, Level: 0x838}) {
		t.Fatalf("got %+v", r[1])
	}
}

func TestXeonWindow(t *testing.T) {
	p := &regPort{}
	c, err := bankgpio.New("X", &XeonWindow{Port: p}, XeonBanks(0x500), XeonLines)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.SetDirection(33, false, gpio.High); err != nil {
		t.Fatal(err)
	}
	if v := p.regs[0x538]; v != 1<<1 {
		t.Fatalf("level = %#x", v)
	}
	if v := p.regs[0x534]; v != 0 {
		t.Fatalf("direction = %#x", v)
	}
	p.regs[0x50C] = 1 << 31
	if l, err := c.Read(31); err != nil || l != gpio.High {
		t.Fatalf("got %s, %v", l, err)
	}
	p.fail = true
	if _, err := c.Read(0); !errors.Is(err, errInjected) {
		t.Fatalf("got %v", err)
	}
}

func TestOpen_f9500(t *testing.T) {
	cfg, err := config.Builtin("f9500")
	if err != nil {
		t.Fatal(err)
	}
	p := &regPort{}
	c, err := open(cfg, p, t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if c.Lines() != 96 || c.String() != XeonPrefix {
		t.Fatalf("got %s with %d lines", c, c.Lines())
	}
	want := map[uint16]uint32{
		0x500: 1<<1 | 1<<6 | 1<<17 | 1<<22,
		0x530: 1<<0 | 1<<18,
		0x540: 1<<1 | 1<<3,
	}
	for port, v := range want {
		if p.regs[port] != v {
			t.Errorf("%#x = %#x, want %#x", port, p.regs[port], v)
		}
	}
}

func TestOpen_xeonDiscoveredBase(t *testing.T) {
	cfg, err := config.Builtin("f9500")
	if err != nil {
		t.Fatal(err)
	}
	cfg.GPIO.Base = 0
	cfg.GPIO.UseSelect = nil
	root := t.TempDir()
	createFile(t, root, "proc/ioports", "0000-0cf7 : PCI Bus 0000:00\n  0800-087f : gpio\n")
	p := &regPort{}
	c, err := open(cfg, p, root)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Write(95, gpio.High); err != nil {
		t.Fatal(err)
	}
	if v := p.regs[0x848]; v != 1<<31 {
		t.Fatalf("got %#x", v)
	}
}
