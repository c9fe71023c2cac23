// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package config describes a chassis: its GPIO chip, its register bus
// devices and its fan modules.
//
// A Config is decoded once from YAML, validated, and then only read. The
// drivers and constructors of this module take it as an argument instead of
// holding their own tables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// Family is a GPIO chip family.
type Family string

// Supported chip families.
const (
	// Xeon is the PCH GPIO block reached through 32-bit I/O ports.
	Xeon Family = "xeon"
	// NCT6102D is the Nuvoton Super-I/O reached through an 8-bit indexed
	// window.
	NCT6102D Family = "nct6102d"
)

// Transport kinds for Transport.Kind.
const (
	SMBus = "smbus"
	I2C   = "i2c"
)

// Config describes one chassis.
type Config struct {
	Board   string              `yaml:"board"`
	Product []string            `yaml:"product"`
	GPIO    GPIO                `yaml:"gpio"`
	I2CGPIO *I2CGPIO            `yaml:"i2c_gpio"`
	Bus     Bus                 `yaml:"bus"`
	Devices map[string]Endpoint `yaml:"devices"`
	Fans    []Fan               `yaml:"fans"`
	CPLDMap string              `yaml:"cpld_map"`
}

// GPIO describes the GPIO chip.
type GPIO struct {
	Family Family `yaml:"family"`
	Lines  int    `yaml:"lines"`
	// Base is the first I/O port of the register window. 0 means discover it
	// or use the chip default.
	Base uint16 `yaml:"base"`
	// ConfigPorts are the Super-I/O configuration index ports to probe.
	ConfigPorts []uint16 `yaml:"config_ports"`
	// Banks overrides the chip default register layout.
	Banks []Bank `yaml:"banks"`
	// UseSelect lists the lines switched to the GPIO function at start.
	UseSelect []int `yaml:"use_select"`
	// Names maps functional names to line numbers.
	Names map[string]int `yaml:"names"`
	// Presets are configuration space writes applied once the chip is found.
	Presets []Preset `yaml:"presets"`
}

// Bank is one register bank.
type Bank struct {
	Select    uint16 `yaml:"select"`
	Direction uint16 `yaml:"direction"`
	Level     uint16 `yaml:"level"`
}

// Preset is a Super-I/O configuration register write.
type Preset struct {
	LDN      uint8 `yaml:"ldn"`
	Register uint8 `yaml:"register"`
	Value    uint8 `yaml:"value"`
}

// I2CGPIO describes an I²C bus bit-banged over two GPIO lines.
type I2CGPIO struct {
	Name           string        `yaml:"name"`
	Bus            int           `yaml:"bus"`
	SCL            int           `yaml:"scl"`
	SDA            int           `yaml:"sda"`
	HalfPeriod     time.Duration `yaml:"half_period"`
	StretchTimeout time.Duration `yaml:"stretch_timeout"`
}

// Bus holds the register bus retry policy and transport bindings.
type Bus struct {
	Attempts       int           `yaml:"attempts"`
	AttemptTimeout time.Duration `yaml:"attempt_timeout"`
	Deadline       time.Duration `yaml:"deadline"`
	RetryDelay     time.Duration `yaml:"retry_delay"`
	MaxRetryDelay  time.Duration `yaml:"max_retry_delay"`
	Transports     []Transport   `yaml:"transports"`
}

// Transport binds a bus number to a transport kind. Buses without a binding
// use SMBus.
type Transport struct {
	Bus  int    `yaml:"bus"`
	Kind string `yaml:"kind"`
	// Name is the i2creg bus name for the I2C kind.
	Name string `yaml:"name"`
}

// Endpoint is a device on a bus.
type Endpoint struct {
	Bus  int    `yaml:"bus"`
	Addr uint16 `yaml:"addr"`
}

// Fan is a fan module with an identification EEPROM.
type Fan struct {
	Name   string `yaml:"name"`
	Device string `yaml:"device"`
}

// Parse decodes and validates a YAML chassis description.
func Parse(b []byte) (*Config, error) {
	d := yaml.NewDecoder(bytes.NewReader(b))
	d.KnownFields(true)
	c := &Config{}
	if err := d.Decode(c); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Load reads and parses the file at path.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Validate checks the internal consistency of c.
func (c *Config) Validate() error {
	if c.Board == "" {
		return errors.New("config: board is required")
	}
	if err := c.GPIO.validate(); err != nil {
		return fmt.Errorf("config: %s: gpio: %w", c.Board, err)
	}
	if g := c.I2CGPIO; g != nil {
		if err := g.validate(c.GPIO.Lines); err != nil {
			return fmt.Errorf("config: %s: i2c_gpio: %w", c.Board, err)
		}
	}
	if err := c.Bus.validate(); err != nil {
		return fmt.Errorf("config: %s: bus: %w", c.Board, err)
	}
	for _, f := range c.Fans {
		if _, ok := c.Devices[f.Device]; !ok {
			return fmt.Errorf("config: %s: fan %q: unknown device %q", c.Board, f.Name, f.Device)
		}
	}
	return nil
}

// BankWidth returns the number of lines per bank of the chip family.
func (f Family) BankWidth() int {
	switch f {
	case Xeon:
		return 32
	case NCT6102D:
		return 8
	default:
		return 0
	}
}

// DeviceNames returns the configured device names in sorted order.
func (c *Config) DeviceNames() []string {
	out := make([]string, 0, len(c.Devices))
	for n := range c.Devices {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func (g *GPIO) validate() error {
	w := g.Family.BankWidth()
	if w == 0 {
		return fmt.Errorf("unknown family %q", g.Family)
	}
	if g.Lines <= 0 {
		return fmt.Errorf("invalid line count %d", g.Lines)
	}
	if len(g.Banks) != 0 && len(g.Banks)*w < g.Lines {
		return fmt.Errorf("%d banks of %d can't hold %d lines", len(g.Banks), w, g.Lines)
	}
	for _, n := range g.UseSelect {
		if n < 0 || n >= g.Lines {
			return fmt.Errorf("use_select line %d out of range", n)
		}
	}
	for name, n := range g.Names {
		if n < 0 || n >= g.Lines {
			return fmt.Errorf("name %q: line %d out of range", name, n)
		}
	}
	if len(g.Presets) != 0 && g.Family != NCT6102D {
		return fmt.Errorf("presets are not supported by %s", g.Family)
	}
	return nil
}

func (g *I2CGPIO) validate(lines int) error {
	if g.SCL < 0 || g.SCL >= lines || g.SDA < 0 || g.SDA >= lines {
		return fmt.Errorf("scl %d or sda %d out of range", g.SCL, g.SDA)
	}
	if g.SCL == g.SDA {
		return errors.New("scl and sda must differ")
	}
	if g.HalfPeriod < 0 || g.StretchTimeout < 0 {
		return errors.New("negative duration")
	}
	return nil
}

func (b *Bus) validate() error {
	if b.Attempts < 0 {
		return fmt.Errorf("invalid attempts %d", b.Attempts)
	}
	if b.AttemptTimeout < 0 || b.Deadline < 0 || b.RetryDelay < 0 || b.MaxRetryDelay < 0 {
		return errors.New("negative duration")
	}
	seen := map[int]bool{}
	for _, t := range b.Transports {
		if seen[t.Bus] {
			return fmt.Errorf("bus %d bound twice", t.Bus)
		}
		seen[t.Bus] = true
		switch t.Kind {
		case SMBus:
		case I2C:
			if t.Name == "" {
				return fmt.Errorf("bus %d: i2c transport needs a name", t.Bus)
			}
		default:
			return fmt.Errorf("bus %d: unknown transport %q", t.Bus, t.Kind)
		}
	}
	return nil
}
