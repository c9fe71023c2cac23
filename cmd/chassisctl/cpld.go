// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strconv"

	"github.com/sonic-platform/chassis/board"
	"github.com/sonic-platform/chassis/config"
	"github.com/sonic-platform/chassis/cpld"
	"github.com/sonic-platform/chassis/cpldbus"
)

// openChassis builds the chassis selected by the global flags.
//
// The periph drivers are loaded first when a bus is bound to the I²C bus
// over GPIO, since that bus only exists once the board driver ran.
func openChassis(e *env) (*board.Chassis, error) {
	cfg, err := e.config()
	if err != nil {
		return nil, err
	}
	for _, t := range cfg.Bus.Transports {
		if t.Kind == config.I2C {
			if _, err := initHost(); err != nil {
				log.Printf("%s: %v", t.Name, err)
			}
			break
		}
	}
	return board.Open(cfg, nil)
}

func cpldCmd(ctx context.Context, e *env, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: cpld <read|write|dump|field> ...")
	}
	c, err := openChassis(e)
	if err != nil {
		return err
	}
	switch args[0] {
	case "read":
		if err := expect(args[1:], 2, 2, "cpld read <device> <offset>"); err != nil {
			return err
		}
		id, off, err := parseRegister(args[1], args[2])
		if err != nil {
			return err
		}
		v, err := c.Bus.ReadRegister(ctx, id, off)
		if err != nil {
			return err
		}
		fmt.Fprintf(e.w, "%02x\n", v)
		return nil
	case "write":
		if err := expect(args[1:], 3, 3, "cpld write <device> <offset> <value>"); err != nil {
			return err
		}
		id, off, err := parseRegister(args[1], args[2])
		if err != nil {
			return err
		}
		v, err := cpld.ParseByte(args[3])
		if err != nil {
			return err
		}
		return c.Bus.WriteRegister(ctx, id, off, v)
	case "dump":
		if err := expect(args[1:], 1, 1, "cpld dump <device>"); err != nil {
			return err
		}
		id, err := cpldbus.ParseDeviceID(args[1])
		if err != nil {
			return err
		}
		b, err := c.Bus.ReadBlock(ctx, id, 0, 256)
		// Print what was read even on failure.
		fmt.Fprint(e.w, hex.Dump(b))
		return err
	case "field":
		if err := expect(args[1:], 0, 2, "cpld field [name [value]]"); err != nil {
			return err
		}
		if c.CPLD == nil {
			return fmt.Errorf("%s has no CPLD register map", c.Config.Board)
		}
		if len(args) == 1 {
			for _, f := range c.CPLD.Fields() {
				fmt.Fprintf(e.w, "%s\n", f)
			}
			return nil
		}
		f, err := cpld.ParseField(args[1])
		if err != nil {
			return err
		}
		if len(args) == 3 {
			v, err := cpld.ParseByte(args[2])
			if err != nil {
				return err
			}
			return c.CPLD.Write(ctx, c.Bus, f, v)
		}
		r, err := c.CPLD.Read(ctx, c.Bus, f)
		if err != nil {
			return err
		}
		fmt.Fprintf(e.w, "%s\n", r)
		return nil
	default:
		return fmt.Errorf("unknown cpld command %q", args[0])
	}
}

// parseRegister parses a device name and a register offset. The offset
// accepts the 0x prefix.
func parseRegister(device, offset string) (cpldbus.DeviceID, uint8, error) {
	id, err := cpldbus.ParseDeviceID(device)
	if err != nil {
		return 0, 0, err
	}
	off, err := strconv.ParseUint(offset, 0, 8)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", cpldbus.ErrOffsetOutOfRange, offset)
	}
	return id, uint8(off), nil
}
