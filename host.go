// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package chassis registers the chassis drivers of this module with periph.
//
// After Init, the GPIO lines of the chassis are in gpioreg, the functional
// names of the board are gpioreg aliases and the I²C bus over GPIO is in
// i2creg.
package chassis

import (
	"periph.io/x/conn/v3/driver/driverreg"

	// The board driver runs on every platform and skips itself without a
	// GPIO controller.
	_ "github.com/sonic-platform/chassis/board"
)

// Init calls driverreg.Init() and returns it as-is.
//
// The only difference is that by calling chassis.Init(), you are guaranteed
// to have all the chassis drivers implemented in this module to be
// implicitly loaded.
func Init() (*driverreg.State, error) {
	return driverreg.Init()
}
