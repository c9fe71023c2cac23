// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

//go:build !linux

package cpldbus

import "errors"

// OpenSMBus is only supported on linux.
func OpenSMBus(ep Endpoint) (Transport, error) {
	return nil, errors.New("cpldbus: smbus is not supported on this platform")
}
