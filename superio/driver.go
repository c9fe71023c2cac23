// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package superio

import (
	"fmt"

	"github.com/sonic-platform/chassis/bankgpio"
	"github.com/sonic-platform/chassis/config"
	"periph.io/x/conn/v3/driver/driverreg"
)

// Pin name prefixes in gpioreg.
const (
	XeonPrefix     = "XEON_GPIO"
	NCT6102DPrefix = "NCT_GPIO"
)

// Controller returns the controller set up by the driver, or nil when no
// driver succeeded.
//
// This global variable is initialized once at driver initialization and isn't
// mutated afterward.
func Controller() *bankgpio.Controller {
	return ctrl
}

var ctrl *bankgpio.Controller

// Open builds the controller of the chip described by cfg.
//
// The use-select lines are switched to GPIO function. Pins are not
// registered in gpioreg.
func Open(cfg *config.Config, p Port) (*bankgpio.Controller, error) {
	return open(cfg, p, ioRoot)
}

func open(cfg *config.Config, p Port, root string) (*bankgpio.Controller, error) {
	var c *bankgpio.Controller
	var err error
	switch g := &cfg.GPIO; g.Family {
	case config.Xeon:
		c, err = openXeon(g, p, root)
	case config.NCT6102D:
		c, err = openNCT6102D(g, p)
	default:
		return nil, fmt.Errorf("superio: unsupported family %q", g.Family)
	}
	if err != nil {
		return nil, err
	}
	for _, n := range cfg.GPIO.UseSelect {
		if err := c.ConfigureAsGPIO(n); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func openXeon(g *config.GPIO, p Port, root string) (*bankgpio.Controller, error) {
	base := g.Base
	if base == 0 {
		base = getXeonBase(root)
	}
	banks := XeonBanks(base)
	if len(g.Banks) != 0 {
		banks = Rebase(configBanks(g.Banks), XeonDefaultBase, base)
	}
	logf("xeon: base %#x, %d lines", base, g.Lines)
	return bankgpio.New(XeonPrefix, &XeonWindow{Port: p}, banks, g.Lines)
}

func openNCT6102D(g *config.GPIO, p Port) (*bankgpio.Controller, error) {
	ports := g.ConfigPorts
	if len(ports) == 0 {
		ports = NCT6102DConfigPorts
	}
	d, err := DetectNCT6102D(p, ports)
	if err != nil {
		return nil, err
	}
	if err := d.Enable(g.Presets); err != nil {
		return nil, err
	}
	w := d.Window()
	if g.Base != 0 {
		w.Base = g.Base
	}
	banks := NCT6102DBanks(g.Lines)
	if len(g.Banks) != 0 {
		banks = configBanks(g.Banks)
	}
	logf("nct6102d: config %#x, base %#x, %d lines", d.ConfigPort(), w.Base, g.Lines)
	return bankgpio.New(NCT6102DPrefix, w, banks, g.Lines)
}

func configBanks(in []config.Bank) []bankgpio.RegisterBank {
	out := make([]bankgpio.RegisterBank, len(in))
	for i, b := range in {
		out[i] = bankgpio.RegisterBank{Select: b.Select, Direction: b.Direction, Level: b.Level}
	}
	return out
}

// Hooks overridden in tests.
var (
	loadConfig = config.Detect
	openPort   = OpenPort
	ioRoot     = "/"
)

// driverGPIO implements periph.Driver for one chip family.
type driverGPIO struct {
	name   string
	family config.Family
}

func (d *driverGPIO) String() string {
	return d.name
}

func (d *driverGPIO) Prerequisites() []string {
	return nil
}

func (d *driverGPIO) After() []string {
	return nil
}

// Init detects the chassis, sets up its GPIO chip and registers every line
// in gpioreg.
func (d *driverGPIO) Init() (bool, error) {
	cfg, err := loadConfig()
	if err != nil {
		return false, err
	}
	if cfg.GPIO.Family != d.family {
		return false, fmt.Errorf("board %s uses %s", cfg.Board, cfg.GPIO.Family)
	}
	p, err := openPort()
	if err != nil {
		return false, err
	}
	c, err := open(cfg, p, ioRoot)
	if err != nil {
		return true, err
	}
	if err := c.Register(); err != nil {
		return true, err
	}
	ctrl = c
	return true, nil
}

func init() {
	if portIOAvailable {
		driverreg.MustRegister(&drvXeon)
		driverreg.MustRegister(&drvNCT6102D)
	}
}

var (
	drvXeon     = driverGPIO{name: "superio-xeon", family: config.Xeon}
	drvNCT6102D = driverGPIO{name: "superio-nct6102d", family: config.NCT6102D}
)
