// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

//go:build linux && (amd64 || 386)

package superio

import (
	"fmt"

	"github.com/u-root/u-root/pkg/memio"
)

const portIOAvailable = true

// IOPort is the Port of the running host.
type IOPort struct {
	In  func(uint16, memio.UintN) error
	Out func(uint16, memio.UintN) error
}

// OpenPort returns the host I/O port space.
func OpenPort() (Port, error) {
	return &IOPort{In: memio.In, Out: memio.Out}, nil
}

// In8 implements Port.
func (p *IOPort) In8(port uint16) (uint8, error) {
	var v memio.Uint8
	if err := p.In(port, &v); err != nil {
		return 0, p.wrap("inb", port, err)
	}
	logf("inb(%#x) = %#02x", port, uint8(v))
	return uint8(v), nil
}

// Out8 implements Port.
func (p *IOPort) Out8(port uint16, v uint8) error {
	logf("outb(%#02x, %#x)", v, port)
	d := memio.Uint8(v)
	return p.wrap("outb", port, p.Out(port, &d))
}

// In32 implements Port.
func (p *IOPort) In32(port uint16) (uint32, error) {
	var v memio.Uint32
	if err := p.In(port, &v); err != nil {
		return 0, p.wrap("inl", port, err)
	}
	logf("inl(%#x) = %#08x", port, uint32(v))
	return uint32(v), nil
}

// Out32 implements Port.
func (p *IOPort) Out32(port uint16, v uint32) error {
	logf("outl(%#08x, %#x)", v, port)
	d := memio.Uint32(v)
	return p.wrap("outl", port, p.Out(port, &d))
}

func (p *IOPort) wrap(op string, port uint16, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("superio: %s %#x: %w", op, port, err)
}

var _ Port = &IOPort{}
