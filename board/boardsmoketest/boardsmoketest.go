// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package boardsmoketest verifies that the GPIO chip, the I²C bus over GPIO
// and the CPLDs of a chassis answer as expected.
package boardsmoketest

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/sonic-platform/chassis/board"
	"github.com/sonic-platform/chassis/cpld"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c"
)

// SmokeTest is imported by chassisctl.
type SmokeTest struct {
	// Chassis is the chassis under test.
	Chassis *board.Chassis
	// I2C is the I²C bus over GPIO, if any.
	I2C i2c.Bus
	// W receives the report. Defaults to io.Discard.
	W io.Writer
}

// Name implements the SmokeTest interface.
func (s *SmokeTest) Name() string {
	return "chassis"
}

// Description implements the SmokeTest interface.
func (s *SmokeTest) Description() string {
	return "Tests the GPIO chip, the I²C bus over GPIO and the CPLD registers"
}

// Run implements the SmokeTest interface.
func (s *SmokeTest) Run(f *flag.FlagSet, args []string) error {
	perfPin := f.String("pin", "", "GPIO line to time reads and writes on, e.g. CPLD_INT")
	loops := f.Int("loops", 1000, "iterations of the GPIO performance test")
	if err := f.Parse(args); err != nil {
		return err
	}
	if f.NArg() != 0 {
		f.Usage()
		return errors.New("unrecognized arguments")
	}
	if s.Chassis == nil {
		return errors.New("no chassis")
	}
	if s.W == nil {
		s.W = io.Discard
	}
	if *perfPin != "" {
		p := gpioreg.ByName(*perfPin)
		if p == nil {
			return fmt.Errorf("unknown pin %q", *perfPin)
		}
		if err := s.gpioPerfTest(p, *loops); err != nil {
			return err
		}
	}
	if s.I2C != nil {
		if err := s.i2cTest(); err != nil {
			return err
		}
	}
	return s.cpldTest(context.Background())
}

// gpioPerfTest reads the line then drives it Low in a tight loop to
// evaluate performance.
//
// It doesn't evaluate correctness.
func (s *SmokeTest) gpioPerfTest(p gpio.PinIO, loops int) error {
	fmt.Fprintf(s.W, "  GPIO performance on %s:\n", p)
	fmt.Fprintf(s.W, "    %d reads:  ", loops)
	if err := p.In(gpio.PullNoChange, gpio.NoEdge); err != nil {
		return err
	}
	start := time.Now()
	for i := 0; i < loops; i++ {
		p.Read()
	}
	d := time.Since(start)
	fmt.Fprintf(s.W, "%s; %s/op\n", d, d/time.Duration(loops))
	fmt.Fprintf(s.W, "    %d writes: ", loops)
	if err := p.Out(gpio.Low); err != nil {
		return err
	}
	start = time.Now()
	for i := 0; i < loops; i++ {
		if err := p.Out(gpio.Low); err != nil {
			return err
		}
	}
	d = time.Since(start)
	fmt.Fprintf(s.W, "%s; %s/op\n", d, d/time.Duration(loops))
	// Leave the line released.
	return p.In(gpio.PullNoChange, gpio.NoEdge)
}

// i2cTest probes every device bound to the bus number of the I²C bus over
// GPIO.
func (s *SmokeTest) i2cTest() error {
	fmt.Fprintf(s.W, "  I²C functionality on %s:\n", s.I2C)
	cfg := s.Chassis.Config
	if cfg.I2CGPIO == nil {
		return errors.New("no i2c_gpio in the chassis description")
	}
	found := 0
	for _, name := range cfg.DeviceNames() {
		ep := cfg.Devices[name]
		if ep.Bus != cfg.I2CGPIO.Bus {
			continue
		}
		if err := s.I2C.Tx(ep.Addr, nil, nil); err != nil {
			return fmt.Errorf("%s at %#x: %w", name, ep.Addr, err)
		}
		fmt.Fprintf(s.W, "    %s at %#x: ACK\n", name, ep.Addr)
		found++
	}
	fmt.Fprintf(s.W, "    OK, %d devices\n", found)
	return nil
}

// cpldTest reads every field of the register map.
func (s *SmokeTest) cpldTest(ctx context.Context) error {
	m := s.Chassis.CPLD
	if m == nil {
		return nil
	}
	fmt.Fprintf(s.W, "  CPLD registers of %s:\n", m)
	for _, f := range m.Fields() {
		r, err := m.Read(ctx, s.Chassis.Bus, f)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.W, "    %-14s %s\n", f, r)
	}
	// A field a map doesn't carry must be refused without bus access.
	for f := cpld.FanPresent; f <= cpld.Version; f++ {
		if _, ok := m.Lookup(f); !ok {
			if _, err := m.Read(ctx, s.Chassis.Bus, f); !errors.Is(err, cpld.ErrUnknownField) {
				return fmt.Errorf("%s: expected %v, got %v", f, cpld.ErrUnknownField, err)
			}
		}
	}
	fmt.Fprintf(s.W, "    OK\n")
	return nil
}
