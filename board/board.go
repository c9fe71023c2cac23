// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package board

import (
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/sonic-platform/chassis/config"
	"github.com/sonic-platform/chassis/cpld"
	"github.com/sonic-platform/chassis/cpldbus"
	"github.com/sonic-platform/chassis/fanmodule"
)

// Chassis is the register level view of one chassis.
type Chassis struct {
	Config *config.Config
	Bus    *cpldbus.Bus
	// CPLD is nil when the description names no register map.
	CPLD *cpld.Map
	Fans []*fanmodule.Module
}

// Opts overrides the collaborators of Open.
type Opts struct {
	// SMBus opens buses without a transport binding. Defaults to
	// cpldbus.OpenSMBus.
	SMBus cpldbus.Opener
	// I2C opens buses bound to the i2c kind. Defaults to
	// cpldbus.I2CByName.
	I2C   func(name string) cpldbus.Opener
	Clock clockwork.Clock
}

// Open builds the chassis described by cfg. No hardware is accessed.
func Open(cfg *config.Config, opts *Opts) (*Chassis, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := Opts{}
	if opts != nil {
		o = *opts
	}
	if o.SMBus == nil {
		o.SMBus = cpldbus.OpenerFunc(cpldbus.OpenSMBus)
	}
	if o.I2C == nil {
		o.I2C = cpldbus.I2CByName
	}
	table, err := Table(cfg)
	if err != nil {
		return nil, err
	}
	mux := &cpldbus.Mux{Default: o.SMBus, Buses: map[int]cpldbus.Opener{}}
	for _, t := range cfg.Bus.Transports {
		switch t.Kind {
		case config.I2C:
			mux.Buses[t.Bus] = o.I2C(t.Name)
		default:
			mux.Buses[t.Bus] = o.SMBus
		}
	}
	bus, err := cpldbus.New(table, mux, &cpldbus.Options{
		Attempts:       cfg.Bus.Attempts,
		AttemptTimeout: cfg.Bus.AttemptTimeout,
		Deadline:       cfg.Bus.Deadline,
		RetryDelay:     cfg.Bus.RetryDelay,
		MaxRetryDelay:  cfg.Bus.MaxRetryDelay,
		Clock:          o.Clock,
	})
	if err != nil {
		return nil, err
	}
	c := &Chassis{Config: cfg, Bus: bus}
	if cfg.CPLDMap != "" {
		if c.CPLD, err = cpld.ByName(cfg.CPLDMap); err != nil {
			return nil, err
		}
		for _, id := range c.CPLD.Devices() {
			if _, ok := table.Lookup(id); !ok {
				return nil, fmt.Errorf("board: %s: map %s uses %s which is not in devices", cfg.Board, c.CPLD, id)
			}
		}
	}
	for _, f := range cfg.Fans {
		id, err := cpldbus.ParseDeviceID(f.Device)
		if err != nil {
			return nil, fmt.Errorf("board: %s: fan %s: %w", cfg.Board, f.Name, err)
		}
		c.Fans = append(c.Fans, fanmodule.New(f.Name, id, bus))
	}
	return c, nil
}

// Fan returns the fan module called name, or nil.
func (c *Chassis) Fan(name string) *fanmodule.Module {
	for _, f := range c.Fans {
		if f.String() == name {
			return f
		}
	}
	return nil
}

// Table returns the device table of cfg.
func Table(cfg *config.Config) (cpldbus.Table, error) {
	m := make(map[cpldbus.DeviceID]cpldbus.Endpoint, len(cfg.Devices))
	for _, name := range cfg.DeviceNames() {
		id, err := cpldbus.ParseDeviceID(name)
		if err != nil {
			return cpldbus.Table{}, fmt.Errorf("board: %s: %w", cfg.Board, err)
		}
		ep := cfg.Devices[name]
		m[id] = cpldbus.Endpoint{Bus: ep.Bus, Addr: ep.Addr}
	}
	return cpldbus.NewTable(m), nil
}
