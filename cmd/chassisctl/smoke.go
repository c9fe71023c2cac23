// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"context"
	"flag"
	"log"

	"github.com/sonic-platform/chassis/board"
	"github.com/sonic-platform/chassis/board/boardsmoketest"
)

func smokeCmd(ctx context.Context, e *env, args []string) error {
	if _, err := initHost(); err != nil {
		log.Printf("smoke: %v", err)
	}
	c, err := openChassis(e)
	if err != nil {
		return err
	}
	s := &boardsmoketest.SmokeTest{Chassis: c, W: e.w}
	if b := board.I2C(); b != nil {
		s.I2C = b
	}
	f := flag.NewFlagSet(s.Name(), flag.ContinueOnError)
	return s.Run(f, args)
}
