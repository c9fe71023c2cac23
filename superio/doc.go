// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package superio exposes the x86 GPIO chips found on switch chassis as
// bankgpio controllers.
//
// Two families are supported:
//
// The Xeon PCH GPIO block is a set of 32-bit registers at fixed I/O ports,
// three per bank of 32 lines.
//
// The Nuvoton NCT6102D Super-I/O hides its GPIO behind an indexed window of
// three 8-bit ports. The window base is read from the chip configuration
// space, which is unlocked by writing a key to the configuration index port.
//
// The drivers superio-xeon and superio-nct6102d are registered with
// driverreg and pick the chip described by config.Detect. Each line is
// registered in gpioreg as XEON_GPIO<n> or NCT_GPIO<n>.
//
// Port access needs CAP_SYS_RAWIO. Build with the tag chassis_superio_debug
// to trace every port access with log.Printf.
package superio
