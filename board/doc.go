// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package board contains the chassis level logic.
//
// The chassis-board driver runs after the superio GPIO drivers. It registers
// the functional pin names of the board (I2C_SCL, CPLD_INT, JTAG_TCK...) as
// gpioreg aliases, a pinreg header holding those pins, and the I²C bus bit
// banged over GPIO in i2creg.
//
// Open assembles the register bus, the CPLD register map and the fan modules
// of a chassis from its description.
package board
