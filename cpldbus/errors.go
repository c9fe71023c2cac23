// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package cpldbus

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownDevice is returned for a DeviceID that has no endpoint.
	ErrUnknownDevice = errors.New("cpldbus: unknown device")
	// ErrAddressOutOfRange is returned when the bound address is outside
	// (AddrMin, AddrMax).
	ErrAddressOutOfRange = errors.New("cpldbus: address out of range")
	// ErrOffsetOutOfRange is returned for a register offset past 0xFF.
	ErrOffsetOutOfRange = errors.New("cpldbus: offset out of range")
	// ErrBusTransferFailed is matched by every *TransferError.
	ErrBusTransferFailed = errors.New("cpldbus: bus transfer failed")
	// ErrAttemptTimeout is the error of an attempt that exceeded
	// Options.AttemptTimeout.
	ErrAttemptTimeout = errors.New("cpldbus: attempt timed out")
)

// TransferError is returned once every attempt of an operation failed.
type TransferError struct {
	// Device is NoDevice when the call was made by Endpoint.
	Device   DeviceID
	Endpoint Endpoint
	Offset   int
	Op       string
	// Attempts is the number of attempts made. It is lower than
	// Options.Attempts when the context or the deadline stopped the retries.
	Attempts int
	// Err is the error of the last attempt.
	Err error
	// Partial holds the bytes read before a block read failed.
	Partial []byte
}

func (e *TransferError) Error() string {
	dev := ""
	if e.Device != NoDevice {
		dev = e.Device.String() + " "
	}
	return fmt.Sprintf("cpldbus: %s %s(%s) offset %#02x failed after %d attempts: %v", e.Op, dev, e.Endpoint, e.Offset, e.Attempts, e.Err)
}

// Unwrap returns ErrBusTransferFailed and the last attempt error.
func (e *TransferError) Unwrap() []error {
	return []error{ErrBusTransferFailed, e.Err}
}
