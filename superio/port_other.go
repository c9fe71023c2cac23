// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

//go:build !linux || !(amd64 || 386)

package superio

const portIOAvailable = false

// OpenPort returns ErrPortIO.
func OpenPort() (Port, error) {
	return nil, ErrPortIO
}
