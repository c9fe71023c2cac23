// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package bankgpio exposes GPIO lines that live in banks of hardware
// registers as periph.io pins.
//
// Each bank is described by a RegisterBank holding a function select,
// a direction and a level register. A line number maps to
// (line / width, line % width) where width is the number of lines in one
// bank, 32 for a direct port window and 8 for an indexed window. The
// register access itself is delegated to a Window so the same Controller
// serves every chip family.
//
// All read-modify-write sequences on a Controller are serialized by one
// mutex spanning every bank of the chip. Contention is low enough on a
// switch chassis that per-bank locking is not worth the extra bookkeeping.
//
// Lines can be accessed via periph.io/x/conn/v3/gpio/gpioreg once
// Controller.Register has been called, one bank at a time as a gpio.Group
// via Controller.Bank, or directly by number with the Controller methods.
package bankgpio
