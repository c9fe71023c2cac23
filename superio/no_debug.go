// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

//go:build !chassis_superio_debug

package superio

// logf is disabled when the build tag chassis_superio_debug is not specified.
func logf(format string, v ...interface{}) {
}
