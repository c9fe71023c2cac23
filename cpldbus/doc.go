// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package cpldbus reads and writes the registers of the CPLDs and EEPROMs
// of a chassis through a bounded-retry register bus.
//
// Devices are named by DeviceID and bound to an Endpoint by an immutable
// Table. A Transport is opened for every attempt and closed before the
// attempt ends; no connection is reused across calls.
//
// Resolution errors (ErrUnknownDevice, ErrAddressOutOfRange,
// ErrOffsetOutOfRange) are reported immediately. Transport errors are
// retried up to Options.Attempts times and then reported as a
// *TransferError, which matches ErrBusTransferFailed.
//
// Calls against the same endpoint are serialized. Calls against different
// endpoints proceed concurrently.
package cpldbus
