// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

//go:build linux

package cpldbus

import (
	"fmt"

	"github.com/go-daq/smbus"
)

// SMBus is a Transport over /dev/i2c-<bus> using SMBus byte data
// transfers.
type SMBus struct {
	c    *smbus.Conn
	ep   Endpoint
	addr uint8
}

// OpenSMBus opens the adapter of ep.Bus and selects ep.Addr.
func OpenSMBus(ep Endpoint) (Transport, error) {
	c, err := smbus.Open(ep.Bus, uint8(ep.Addr))
	if err != nil {
		return nil, fmt.Errorf("cpldbus: smbus %s: %w", ep, err)
	}
	return &SMBus{c: c, ep: ep, addr: uint8(ep.Addr)}, nil
}

func (s *SMBus) String() string {
	return "smbus(" + s.ep.String() + ")"
}

// ReadRegister implements Transport.
func (s *SMBus) ReadRegister(reg uint8) (uint8, error) {
	v, err := s.c.ReadReg(s.addr, reg)
	return v, s.wrap(err)
}

// WriteRegister implements Transport.
func (s *SMBus) WriteRegister(reg, v uint8) error {
	return s.wrap(s.c.WriteReg(s.addr, reg, v))
}

// Close implements Transport.
func (s *SMBus) Close() error {
	return s.c.Close()
}

func (s *SMBus) wrap(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("cpldbus (%s): %w", s, err)
}

var _ Transport = &SMBus{}
