// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package cpldbus

import "fmt"

// Transport is a byte register connection to one device.
type Transport interface {
	ReadRegister(reg uint8) (uint8, error)
	WriteRegister(reg, v uint8) error
	Close() error
}

// BlockReader is implemented by transports that read consecutive registers
// in one transaction.
type BlockReader interface {
	ReadBlock(reg uint8, p []byte) error
}

// BlockChunk is the largest block read in one transaction.
const BlockChunk = 32

// Opener opens a Transport to an endpoint.
type Opener interface {
	Open(ep Endpoint) (Transport, error)
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(ep Endpoint) (Transport, error)

// Open implements Opener.
func (f OpenerFunc) Open(ep Endpoint) (Transport, error) {
	return f(ep)
}

// Mux dispatches to an Opener by bus number.
type Mux struct {
	// Default serves the buses missing from Buses.
	Default Opener
	Buses   map[int]Opener
}

// Open implements Opener.
func (m *Mux) Open(ep Endpoint) (Transport, error) {
	if o, ok := m.Buses[ep.Bus]; ok {
		return o.Open(ep)
	}
	if m.Default == nil {
		return nil, fmt.Errorf("cpldbus: no transport for bus %d", ep.Bus)
	}
	return m.Default.Open(ep)
}
