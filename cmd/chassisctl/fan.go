// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/sonic-platform/chassis/fanmodule"
)

func fanCmd(ctx context.Context, e *env, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: fan <info|dump> ...")
	}
	c, err := openChassis(e)
	if err != nil {
		return err
	}
	pick := func(name string) ([]*fanmodule.Module, error) {
		if name == "" {
			return c.Fans, nil
		}
		f := c.Fan(name)
		if f == nil {
			return nil, fmt.Errorf("unknown fan %q", name)
		}
		return []*fanmodule.Module{f}, nil
	}
	switch args[0] {
	case "info":
		if err := expect(args[1:], 0, 1, "fan info [name]"); err != nil {
			return err
		}
		name := ""
		if len(args) == 2 {
			name = args[1]
		}
		fans, err := pick(name)
		if err != nil {
			return err
		}
		for _, f := range fans {
			info, err := f.Info(ctx)
			if err != nil {
				fmt.Fprintf(e.w, "%s: %v\n", f, err)
				continue
			}
			fmt.Fprintf(e.w, "%s: hw_version=%q sn=%q type=%q\n", f, info.HardwareVersion, info.SerialNumber, info.ProductName)
		}
		return nil
	case "dump":
		if err := expect(args[1:], 1, 1, "fan dump <name>"); err != nil {
			return err
		}
		fans, err := pick(args[1])
		if err != nil {
			return err
		}
		b, err := fans[0].Dump(ctx)
		fmt.Fprint(e.w, hex.Dump(b))
		if err != nil {
			return err
		}
		records, err := fans[0].Records(ctx)
		for _, r := range records {
			fmt.Fprintf(e.w, "%-16s @%3d %q\n", r.Type, r.Offset, r.Value)
		}
		return err
	default:
		return fmt.Errorf("unknown fan command %q", args[0])
	}
}
