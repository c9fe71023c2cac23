// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

//go:build amd64 || 386

package chassis

import (
	// Make sure the Super-I/O GPIO drivers are registered.
	_ "github.com/sonic-platform/chassis/superio"
)
