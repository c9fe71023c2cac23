// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package tlv

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
)

// HeaderSize is the size of the declared length prefix.
const HeaderSize = 2

// MaxDeclaredLength is the largest declared length accepted by the default
// Decoder.
const MaxDeclaredLength = 0xFF

var (
	// ErrMalformedHeader is returned when the declared length is zero, too
	// large or missing.
	ErrMalformedHeader = errors.New("tlv: malformed header")
	// ErrTruncatedRecord is returned when a record extends past the declared
	// length.
	ErrTruncatedRecord = errors.New("tlv: truncated record")
	// ErrFieldTooLarge is returned when the matching record does not fit in
	// the caller's limit.
	ErrFieldTooLarge = errors.New("tlv: field too large")
	// ErrFieldNotFound is returned when no record has the requested type.
	//
	// It is an expected outcome for devices that were never provisioned with
	// the field.
	ErrFieldNotFound = errors.New("tlv: field not found")
)

// Type is a record type.
type Type uint8

// Record types used by fan and power modules.
const (
	MAC              Type = 1
	ProductName      Type = 2
	SerialNumber     Type = 3
	PowerConsumption Type = 4
	HardwareVersion  Type = 5
	DeviceType       Type = 6
)

var typeNames = map[Type]string{
	MAC:              "MAC",
	ProductName:      "ProductName",
	SerialNumber:     "SerialNumber",
	PowerConsumption: "PowerConsumption",
	HardwareVersion:  "HardwareVersion",
	DeviceType:       "DeviceType",
}

func (t Type) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return "Type(" + strconv.Itoa(int(t)) + ")"
}

// Record is one decoded record. Value aliases the blob it was decoded from.
type Record struct {
	Type   Type
	Offset int // Offset of the record header in the blob.
	Value  []byte
}

// DecodeError describes where in a blob decoding stopped.
type DecodeError struct {
	Offset int // Byte offset in the blob.
	Type   Type
	Length int
	Err    error
}

func (e *DecodeError) Error() string {
	switch e.Err {
	case ErrMalformedHeader:
		return fmt.Sprintf("%v: declared length %d", e.Err, e.Length)
	case ErrFieldNotFound:
		return fmt.Sprintf("%v: %s", e.Err, e.Type)
	}
	return fmt.Sprintf("%v: %s of length %d at offset %d", e.Err, e.Type, e.Length, e.Offset)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Decoder decodes blobs with a configurable bound on the declared length.
//
// The zero value uses MaxDeclaredLength.
type Decoder struct {
	MaxDeclared int
}

var defaultDecoder = Decoder{MaxDeclared: MaxDeclaredLength}

// DecodeField returns the value of the first record of type t in blob.
//
// It is a shorthand for a Decoder with MaxDeclaredLength.
func DecodeField(blob []byte, t Type, maxField int) ([]byte, error) {
	return defaultDecoder.DecodeField(blob, t, maxField)
}

// DeclaredLength returns the length held in the blob header.
func DeclaredLength(blob []byte) (int, error) {
	return defaultDecoder.DeclaredLength(blob)
}

// DeclaredLength validates and returns the length held in the blob header.
func (d *Decoder) DeclaredLength(blob []byte) (int, error) {
	if len(blob) < HeaderSize {
		return 0, &DecodeError{Length: len(blob), Err: ErrMalformedHeader}
	}
	n := int(binary.BigEndian.Uint16(blob))
	if n == 0 || n > d.max() {
		return 0, &DecodeError{Length: n, Err: ErrMalformedHeader}
	}
	return n, nil
}

// DecodeField returns the value of the first record of type t in blob.
//
// The returned slice aliases blob and its capacity ends with the value. A
// record longer than maxField returns ErrFieldTooLarge.
func (d *Decoder) DecodeField(blob []byte, t Type, maxField int) ([]byte, error) {
	var out []byte
	var tooLarge *DecodeError
	err := d.Walk(blob, func(r Record) bool {
		if r.Type != t {
			return true
		}
		if len(r.Value) > maxField {
			tooLarge = &DecodeError{Offset: r.Offset, Type: t, Length: len(r.Value), Err: ErrFieldTooLarge}
			return false
		}
		out = r.Value
		return false
	})
	if err != nil {
		return nil, err
	}
	if tooLarge != nil {
		return nil, tooLarge
	}
	if out == nil {
		return nil, &DecodeError{Type: t, Err: ErrFieldNotFound}
	}
	return out, nil
}

// Walk calls fn for each record in blob until fn returns false or the
// records are exhausted.
//
// Records are bounded by the declared length and by len(blob), whichever is
// smaller. A record crossing the bound stops the walk with
// ErrTruncatedRecord; fn is not called for it. So does a blob that ends
// before the declared length once its records are exhausted.
func (d *Decoder) Walk(blob []byte, fn func(r Record) bool) error {
	n, err := d.DeclaredLength(blob)
	if err != nil {
		return err
	}
	end := HeaderSize + n
	if end > len(blob) {
		end = len(blob)
	}
	c := HeaderSize
	for c < end {
		if c+2 > end {
			return &DecodeError{Offset: c, Type: Type(blob[c]), Length: end - c, Err: ErrTruncatedRecord}
		}
		t := Type(blob[c])
		l := int(blob[c+1])
		if c+2+l > end {
			return &DecodeError{Offset: c, Type: t, Length: l, Err: ErrTruncatedRecord}
		}
		v := blob[c+2 : c+2+l : c+2+l]
		if !fn(Record{Type: t, Offset: c, Value: v}) {
			return nil
		}
		c += 2 + l
	}
	if short := HeaderSize + n - len(blob); short > 0 {
		// The blob stopped on a record boundary before the declared end.
		return &DecodeError{Offset: c, Length: short, Err: ErrTruncatedRecord}
	}
	return nil
}

// Parse returns every record of blob.
func (d *Decoder) Parse(blob []byte) ([]Record, error) {
	var out []Record
	err := d.Walk(blob, func(r Record) bool {
		out = append(out, r)
		return true
	})
	return out, err
}

func (d *Decoder) max() int {
	if d.MaxDeclared <= 0 {
		return MaxDeclaredLength
	}
	return d.MaxDeclared
}

// Append appends one record to dst.
func Append(dst []byte, t Type, v []byte) ([]byte, error) {
	if len(v) > 0xFF {
		return dst, fmt.Errorf("tlv: %s value of %d bytes exceeds 255", t, len(v))
	}
	dst = append(dst, byte(t), byte(len(v)))
	return append(dst, v...), nil
}

// Build returns a blob holding records, header included.
func Build(records ...Record) ([]byte, error) {
	b := make([]byte, HeaderSize)
	var err error
	for _, r := range records {
		if b, err = Append(b, r.Type, r.Value); err != nil {
			return nil, err
		}
	}
	n := len(b) - HeaderSize
	if n > 0xFFFF {
		return nil, fmt.Errorf("tlv: %d bytes of records exceeds 65535", n)
	}
	binary.BigEndian.PutUint16(b, uint16(n))
	return b, nil
}
