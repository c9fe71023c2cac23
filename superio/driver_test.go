// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package superio

import (
	"errors"
	"testing"

	"github.com/sonic-platform/chassis/config"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
)

func setHooks(t *testing.T, board string, p Port) {
	oldLoad, oldOpen, oldRoot := loadConfig, openPort, ioRoot
	t.Cleanup(func() {
		loadConfig, openPort, ioRoot = oldLoad, oldOpen, oldRoot
		ctrl = nil
	})
	loadConfig = func() (*config.Config, error) { return config.Builtin(board) }
	openPort = func() (Port, error) { return p, nil }
	ioRoot = t.TempDir()
}

func TestDriver_xeon(t *testing.T) {
	p := &regPort{}
	setHooks(t, "f9500", p)
	if ok, err := drvNCT6102D.Init(); ok || err == nil {
		t.Fatalf("nct6102d driver on a xeon board: %t, %v", ok, err)
	}
	ok, err := drvXeon.Init()
	if !ok || err != nil {
		t.Fatalf("got %t, %v", ok, err)
	}
	if Controller() == nil {
		t.Fatal("controller not set")
	}
	pin := gpioreg.ByName("XEON_GPIO40")
	if pin == nil {
		t.Fatal("pin not registered")
	}
	if err := pin.Out(gpio.High); err != nil {
		t.Fatal(err)
	}
	if v := p.regs[0x538]; v != 1<<8 {
		t.Fatalf("got %#x", v)
	}
}

func TestDriver_noBoard(t *testing.T) {
	setHooks(t, "f9500", &regPort{})
	loadConfig = func() (*config.Config, error) { return nil, config.ErrNoBoard }
	if ok, err := drvXeon.Init(); ok || !errors.Is(err, config.ErrNoBoard) {
		t.Fatalf("got %t, %v", ok, err)
	}
}

func TestDriver_chipMissing(t *testing.T) {
	setHooks(t, "s6500", newNCTChip(0x60, 0xa00))
	if ok, err := drvNCT6102D.Init(); !ok || !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %t, %v", ok, err)
	}
	if Controller() != nil {
		t.Fatal("unexpected controller")
	}
}

func TestDriver_String(t *testing.T) {
	if s := drvXeon.String(); s != "superio-xeon" {
		t.Fatal(s)
	}
	if s := drvNCT6102D.String(); s != "superio-nct6102d" {
		t.Fatal(s)
	}
	if drvXeon.Prerequisites() != nil || drvXeon.After() != nil {
		t.Fatal("unexpected dependencies")
	}
}
