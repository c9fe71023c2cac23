// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package cpldbus

import (
	"encoding/binary"
	"fmt"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/mmr"
)

// I2C is a Transport over a periph I²C bus.
type I2C struct {
	b   i2c.BusCloser
	dev mmr.Dev8
}

// NewI2C returns a Transport to the device at addr. Close closes b.
func NewI2C(b i2c.BusCloser, addr uint16) *I2C {
	return &I2C{
		b:   b,
		dev: mmr.Dev8{Conn: &i2c.Dev{Bus: b, Addr: addr}, Order: binary.BigEndian},
	}
}

// I2COpener returns an Opener calling open for every transport.
func I2COpener(open func() (i2c.BusCloser, error)) Opener {
	return OpenerFunc(func(ep Endpoint) (Transport, error) {
		b, err := open()
		if err != nil {
			return nil, err
		}
		return NewI2C(b, ep.Addr), nil
	})
}

// I2CByName returns an Opener of the bus registered in i2creg as name.
func I2CByName(name string) Opener {
	return I2COpener(func() (i2c.BusCloser, error) {
		return i2creg.Open(name)
	})
}

func (i *I2C) String() string {
	return i.dev.String()
}

// ReadRegister implements Transport.
func (i *I2C) ReadRegister(reg uint8) (uint8, error) {
	v, err := i.dev.ReadUint8(reg)
	return v, i.wrap(err)
}

// WriteRegister implements Transport.
func (i *I2C) WriteRegister(reg, v uint8) error {
	return i.wrap(i.dev.WriteUint8(reg, v))
}

// ReadBlock implements BlockReader.
func (i *I2C) ReadBlock(reg uint8, p []byte) error {
	return i.wrap(i.dev.Tx([]byte{reg}, p))
}

// Close implements Transport.
func (i *I2C) Close() error {
	return i.b.Close()
}

func (i *I2C) wrap(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("cpldbus (%s): %w", i, err)
}

var _ Transport = &I2C{}
var _ BlockReader = &I2C{}
