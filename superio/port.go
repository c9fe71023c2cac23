// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package superio

import "errors"

// ErrPortIO is returned by OpenPort on platforms without x86 port I/O.
var ErrPortIO = errors.New("superio: port I/O is not supported on this platform")

// Port is the x86 I/O port space.
type Port interface {
	In8(port uint16) (uint8, error)
	Out8(port uint16, v uint8) error
	In32(port uint16) (uint32, error)
	Out32(port uint16, v uint32) error
}
