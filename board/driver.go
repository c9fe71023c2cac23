// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package board

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/sonic-platform/chassis/bankgpio"
	"github.com/sonic-platform/chassis/config"
	"github.com/sonic-platform/chassis/i2cgpio"
	"github.com/sonic-platform/chassis/superio"
	"periph.io/x/conn/v3/driver/driverreg"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/pin"
	"periph.io/x/conn/v3/pin/pinreg"
)

// DefaultI2CName is the i2creg name of the I²C bus over GPIO when the
// description leaves it empty.
const DefaultI2CName = "I2C-GPIO"

// I2C returns the I²C bus over GPIO set up by the driver, or nil.
//
// This global variable is initialized once at driver initialization and isn't
// mutated afterward.
func I2C() *i2cgpio.Bus {
	return i2cBus
}

var i2cBus *i2cgpio.Bus

// Setup registers the functional pin names of cfg as gpioreg aliases of the
// lines of c, a pinreg header named after the board holding those pins, and
// the I²C bus over GPIO when cfg describes one.
//
// On failure, whatever Setup registered is unregistered.
func Setup(cfg *config.Config, c *bankgpio.Controller) (b *i2cgpio.Bus, err error) {
	var aliases []string
	header := ""
	defer func() {
		if err == nil {
			return
		}
		if header != "" {
			_ = pinreg.Unregister(header)
		}
		for _, n := range aliases {
			_ = gpioreg.Unregister(n)
		}
	}()
	names := make([]string, 0, len(cfg.GPIO.Names))
	for n := range cfg.GPIO.Names {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool {
		a, b := cfg.GPIO.Names[names[i]], cfg.GPIO.Names[names[j]]
		if a != b {
			return a < b
		}
		return names[i] < names[j]
	})
	var rows [][]pin.Pin
	for _, n := range names {
		p := c.Pin(cfg.GPIO.Names[n])
		if p == nil {
			return nil, fmt.Errorf("board: %s: no line %d for %s", cfg.Board, cfg.GPIO.Names[n], n)
		}
		if err := gpioreg.RegisterAlias(n, p.Name()); err != nil {
			return nil, err
		}
		aliases = append(aliases, n)
		rows = append(rows, []pin.Pin{p})
	}
	if len(rows) != 0 {
		h := strings.ToUpper(cfg.Board)
		if err := pinreg.Register(h, rows); err != nil {
			return nil, err
		}
		header = h
	}
	g := cfg.I2CGPIO
	if g == nil {
		return nil, nil
	}
	scl, sda := c.Pin(g.SCL), c.Pin(g.SDA)
	if scl == nil || sda == nil {
		return nil, fmt.Errorf("board: %s: i2c_gpio lines %d/%d out of range", cfg.Board, g.SCL, g.SDA)
	}
	name := g.Name
	if name == "" {
		name = DefaultI2CName
	}
	b, err = i2cgpio.New(name, scl, sda, &i2cgpio.Opts{HalfPeriod: g.HalfPeriod, StretchTimeout: g.StretchTimeout})
	if err != nil {
		return nil, err
	}
	if err := i2cgpio.Register(b, nil, g.Bus); err != nil {
		_ = b.Close()
		return nil, err
	}
	return b, nil
}

// Hooks overridden in tests.
var (
	loadConfig = config.Detect
	controller = superio.Controller
)

// driver implements periph.Driver.
type driver struct {
}

func (d *driver) String() string {
	return "chassis-board"
}

func (d *driver) Prerequisites() []string {
	return nil
}

// After the GPIO chip drivers, whichever one found the chip.
func (d *driver) After() []string {
	return []string{"superio-xeon", "superio-nct6102d"}
}

// Init registers the board names and buses on top of the GPIO controller.
func (d *driver) Init() (bool, error) {
	c := controller()
	if c == nil {
		return false, errors.New("no chassis GPIO controller")
	}
	cfg, err := loadConfig()
	if err != nil {
		return false, err
	}
	b, err := Setup(cfg, c)
	if err != nil {
		return true, err
	}
	i2cBus = b
	return true, nil
}

func init() {
	driverreg.MustRegister(&drv)
}

var drv driver
