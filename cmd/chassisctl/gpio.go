// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"

	"github.com/sonic-platform/chassis"
	"github.com/sonic-platform/chassis/bankgpio"
	"github.com/sonic-platform/chassis/superio"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
)

// initHost loads the periph drivers and returns the GPIO controller.
func initHost() (*bankgpio.Controller, error) {
	state, err := chassis.Init()
	if err != nil {
		return nil, err
	}
	for _, d := range state.Loaded {
		log.Printf("loaded driver %s", d)
	}
	for _, f := range state.Failed {
		log.Printf("driver %s failed: %v", f.D, f.Err)
	}
	c := superio.Controller()
	if c == nil {
		return nil, errors.New("no chassis GPIO controller found")
	}
	return c, nil
}

func gpioCmd(ctx context.Context, e *env, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: gpio <list|get|set|dir> ...")
	}
	c, err := initHost()
	if err != nil {
		return err
	}
	switch args[0] {
	case "list":
		return gpioList(e, c)
	case "get":
		if err := expect(args[1:], 1, 1, "gpio get <pin>"); err != nil {
			return err
		}
		p, err := lookupPin(args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(e.w, "%s\n", p.Read())
		return nil
	case "set":
		if err := expect(args[1:], 2, 2, "gpio set <pin> <0|1>"); err != nil {
			return err
		}
		p, err := lookupPin(args[1])
		if err != nil {
			return err
		}
		l, err := parseLevel(args[2])
		if err != nil {
			return err
		}
		return p.Out(l)
	case "dir":
		if err := expect(args[1:], 2, 3, "gpio dir <pin> <in|out> [0|1]"); err != nil {
			return err
		}
		p, err := lookupPin(args[1])
		if err != nil {
			return err
		}
		switch args[2] {
		case "in":
			return p.In(gpio.PullNoChange, gpio.NoEdge)
		case "out":
			l := gpio.Low
			if len(args) == 4 {
				if l, err = parseLevel(args[3]); err != nil {
					return err
				}
			}
			return p.Out(l)
		default:
			return fmt.Errorf("invalid direction %q", args[2])
		}
	default:
		return fmt.Errorf("unknown gpio command %q", args[0])
	}
}

func gpioList(e *env, c *bankgpio.Controller) error {
	aliases := map[string][]string{}
	for _, a := range gpioreg.Aliases() {
		if r, ok := a.(gpio.RealPin); ok {
			n := r.Real().Name()
			aliases[n] = append(aliases[n], a.Name())
		}
	}
	for _, p := range c.Pins() {
		names := aliases[p.Name()]
		sort.Strings(names)
		fmt.Fprintf(e.w, "%-12s %-6s %v\n", p.Name(), p.Func(), names)
	}
	return nil
}

func lookupPin(name string) (gpio.PinIO, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("unknown pin %q", name)
	}
	return p, nil
}

func parseLevel(s string) (gpio.Level, error) {
	switch s {
	case "0", "low", "Low":
		return gpio.Low, nil
	case "1", "high", "High":
		return gpio.High, nil
	}
	return gpio.Low, fmt.Errorf("invalid level %q", s)
}
