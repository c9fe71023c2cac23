// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package fanmodule reads the identification EEPROM of a fan module.
//
// The EEPROM starts with a 6 byte header whose last two bytes are the
// big-endian length of the TLV records that follow it.
//
//	+-----+------+-------+------+--------+--------+---------
//	| ver | flag | hw_ver| type | len hi | len lo | records
//	+-----+------+-------+------+--------+--------+---------
package fanmodule

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/sonic-platform/chassis/cpldbus"
	"github.com/sonic-platform/chassis/tlv"
)

const (
	// HeaderSize is the size of the EEPROM header.
	HeaderSize = 6
	// EEPROMSize is the addressable size of the EEPROM.
	EEPROMSize = 256
	// MaxField is the largest value returned for a field.
	MaxField = 63
)

// Header is the EEPROM header.
type Header struct {
	Version         uint8
	Flag            uint8
	HardwareVersion uint8
	Type            uint8
	TLVLen          uint16
}

// ParseHeader decodes the first HeaderSize bytes of b.
func ParseHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, fmt.Errorf("fanmodule: header of %d bytes, want %d", len(b), HeaderSize)
	}
	return Header{
		Version:         b[0],
		Flag:            b[1],
		HardwareVersion: b[2],
		Type:            b[3],
		TLVLen:          uint16(b[4])<<8 | uint16(b[5]),
	}, nil
}

// Bus reads EEPROM bytes. *cpldbus.Bus implements it.
type Bus interface {
	ReadBlock(ctx context.Context, id cpldbus.DeviceID, off uint8, n int) ([]byte, error)
}

// Info is the identification of a fan module. A field the EEPROM does not
// hold is "".
type Info struct {
	HardwareVersion string
	SerialNumber    string
	ProductName     string
}

// Module is one fan module EEPROM.
type Module struct {
	name string
	id   cpldbus.DeviceID
	bus  Bus
	dec  tlv.Decoder
}

// New returns the module called name whose EEPROM is device id on bus.
func New(name string, id cpldbus.DeviceID, bus Bus) *Module {
	return &Module{name: name, id: id, bus: bus, dec: tlv.Decoder{MaxDeclared: tlv.MaxDeclaredLength}}
}

func (m *Module) String() string {
	return m.name
}

// Device returns the EEPROM device.
func (m *Module) Device() cpldbus.DeviceID {
	return m.id
}

// Header reads the EEPROM header.
func (m *Module) Header(ctx context.Context) (Header, error) {
	b, err := m.bus.ReadBlock(ctx, m.id, 0, HeaderSize)
	if err != nil {
		return Header{}, m.wrap(err)
	}
	h, err := ParseHeader(b)
	return h, m.wrap(err)
}

// Blob returns the TLV blob of the module: the declared length followed by
// the records, as accepted by the tlv package.
//
// The declared length is checked before the records are read. Records are
// read up to the end of the EEPROM.
func (m *Module) Blob(ctx context.Context) ([]byte, error) {
	hdr, err := m.bus.ReadBlock(ctx, m.id, 0, HeaderSize)
	if err != nil {
		return nil, m.wrap(err)
	}
	n, err := m.dec.DeclaredLength(hdr[HeaderSize-tlv.HeaderSize:])
	if err != nil {
		return nil, m.wrap(err)
	}
	if n > EEPROMSize-HeaderSize {
		n = EEPROMSize - HeaderSize
	}
	records, err := m.bus.ReadBlock(ctx, m.id, HeaderSize, n)
	if err != nil {
		return nil, m.wrap(err)
	}
	blob := make([]byte, 0, tlv.HeaderSize+len(records))
	blob = append(blob, hdr[HeaderSize-tlv.HeaderSize:]...)
	return append(blob, records...), nil
}

// Field returns the value of record t.
//
// The value ends at its first NUL byte. A record longer than MaxField
// returns tlv.ErrFieldTooLarge; a missing one tlv.ErrFieldNotFound.
func (m *Module) Field(ctx context.Context, t tlv.Type) (string, error) {
	blob, err := m.Blob(ctx)
	if err != nil {
		return "", err
	}
	return m.field(blob, t)
}

// Info reads the hardware version, serial number and product name.
func (m *Module) Info(ctx context.Context) (Info, error) {
	blob, err := m.Blob(ctx)
	if err != nil {
		return Info{}, err
	}
	var info Info
	for _, f := range []struct {
		t   tlv.Type
		dst *string
	}{
		{tlv.HardwareVersion, &info.HardwareVersion},
		{tlv.SerialNumber, &info.SerialNumber},
		{tlv.ProductName, &info.ProductName},
	} {
		v, err := m.field(blob, f.t)
		if err != nil && !errors.Is(err, tlv.ErrFieldNotFound) {
			return info, err
		}
		*f.dst = v
	}
	return info, nil
}

// Records returns every record of the module.
func (m *Module) Records(ctx context.Context) ([]tlv.Record, error) {
	blob, err := m.Blob(ctx)
	if err != nil {
		return nil, err
	}
	r, err := m.dec.Parse(blob)
	return r, m.wrap(err)
}

// Dump reads the whole EEPROM.
func (m *Module) Dump(ctx context.Context) ([]byte, error) {
	b, err := m.bus.ReadBlock(ctx, m.id, 0, EEPROMSize)
	return b, m.wrap(err)
}

func (m *Module) field(blob []byte, t tlv.Type) (string, error) {
	v, err := m.dec.DecodeField(blob, t, MaxField)
	if err != nil {
		return "", m.wrap(err)
	}
	if i := bytes.IndexByte(v, 0); i >= 0 {
		v = v[:i]
	}
	return string(v), nil
}

func (m *Module) wrap(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("fanmodule (%s): %w", m.name, err)
}
