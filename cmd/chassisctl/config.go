// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/sonic-platform/chassis/config"
	"gopkg.in/yaml.v3"
)

func configCmd(ctx context.Context, e *env, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: config <show|boards>")
	}
	switch args[0] {
	case "show":
		cfg, err := e.config()
		if err != nil {
			return err
		}
		enc := yaml.NewEncoder(e.w)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return err
		}
		return enc.Close()
	case "boards":
		for _, b := range config.Boards() {
			c, err := config.Builtin(b)
			if err != nil {
				return err
			}
			fmt.Fprintf(e.w, "%-8s %-9s %v\n", b, c.GPIO.Family, c.Product)
		}
		return nil
	default:
		return fmt.Errorf("unknown config command %q", args[0])
	}
}
