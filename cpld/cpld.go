// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package cpld maps the functional registers of the chassis CPLDs (fan and
// PSU status, SFP presence, fan speed, version) to register bus accesses.
//
// A Map is a closed table from Field to Register. The tables of the
// supported chassis are F9500 and S6500.
package cpld

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/sonic-platform/chassis/cpldbus"
)

// Errors returned by Map.
var (
	ErrUnknownField = errors.New("cpld: field not present on this chassis")
	ErrReadOnly     = errors.New("cpld: field is read only")
)

// Field is a functional CPLD register.
type Field int

// Known fields.
const (
	FanPresent Field = iota
	FanStatus
	PSUStatus
	SFPPresence1
	SFPPresence2
	SFPPresence3
	SFPPresence4
	SFPPresence5
	Fan1Speed
	Fan2Speed
	Fan3Speed
	Fan4Speed
	Version

	numFields
)

var fieldNames = [numFields]string{
	"fan_present",
	"fan_status",
	"psu_status",
	"sfp_presence1",
	"sfp_presence2",
	"sfp_presence3",
	"sfp_presence4",
	"sfp_presence5",
	"fan1_input",
	"fan2_input",
	"fan3_input",
	"fan4_input",
	"cpld_version",
}

func (f Field) String() string {
	if f >= 0 && f < numFields {
		return fieldNames[f]
	}
	return "Field(" + strconv.Itoa(int(f)) + ")"
}

// ParseField returns the Field named s.
func ParseField(s string) (Field, error) {
	for i, n := range fieldNames {
		if n == s {
			return Field(i), nil
		}
	}
	return 0, fmt.Errorf("cpld: unknown field %q", s)
}

// Rule is how the bytes of a Register turn into a value.
type Rule int

const (
	// RuleByte is a single read-write byte.
	RuleByte Rule = iota
	// RuleRPM is a little endian tachometer period at Offset and Offset+1,
	// converted with RPM.
	RuleRPM
	// RuleWord is a little endian 16-bit value at Offset and Offset+1.
	RuleWord
	// RuleBlock is Len bytes starting at Offset.
	RuleBlock
)

// Register locates a Field.
type Register struct {
	Device cpldbus.DeviceID
	Offset uint8
	Rule   Rule
	// Len is the byte count of a RuleBlock register.
	Len int
}

// Map is the register table of one chassis.
type Map struct {
	name string
	regs map[Field]Register
}

// NewMap returns a Map named name over a copy of regs.
func NewMap(name string, regs map[Field]Register) *Map {
	m := &Map{name: name, regs: make(map[Field]Register, len(regs))}
	for f, r := range regs {
		m.regs[f] = r
	}
	return m
}

// F9500 is the register map of the F9500-32CQ.
//
// mac0-cpld1 (0x37) carries the fans and the PSU status, bcm-cpld1 (0x34)
// and mac0-cpld0 (0x36) the SFP presence bits.
var F9500 = NewMap("f9500", map[Field]Register{
	FanPresent:   {Device: cpldbus.MAC0CPLD1, Offset: 0x30},
	FanStatus:    {Device: cpldbus.MAC0CPLD1, Offset: 0x31},
	PSUStatus:    {Device: cpldbus.MAC0CPLD1, Offset: 0x51},
	Fan1Speed:    {Device: cpldbus.MAC0CPLD1, Offset: 0x1B, Rule: RuleRPM},
	Fan2Speed:    {Device: cpldbus.MAC0CPLD1, Offset: 0x1D, Rule: RuleRPM},
	Fan3Speed:    {Device: cpldbus.MAC0CPLD1, Offset: 0x1F, Rule: RuleRPM},
	Fan4Speed:    {Device: cpldbus.MAC0CPLD1, Offset: 0x21, Rule: RuleRPM},
	SFPPresence3: {Device: cpldbus.BCMCPLD1, Offset: 0x41},
	SFPPresence4: {Device: cpldbus.BCMCPLD1, Offset: 0x42},
	SFPPresence1: {Device: cpldbus.MAC0CPLD0, Offset: 0x41},
	SFPPresence2: {Device: cpldbus.MAC0CPLD0, Offset: 0x42},
	SFPPresence5: {Device: cpldbus.MAC0CPLD0, Offset: 0x43},
	Version:      {Device: cpldbus.MAC0CPLD1, Offset: 0, Rule: RuleBlock, Len: 4},
})

// S6500 is the register map of the S6500. Its single CPLD reports fan
// speed as a raw word.
var S6500 = NewMap("s6500", map[Field]Register{
	PSUStatus:    {Device: cpldbus.BCMCPLD0, Offset: 6},
	SFPPresence1: {Device: cpldbus.BCMCPLD0, Offset: 0x41},
	SFPPresence2: {Device: cpldbus.BCMCPLD0, Offset: 0x42},
	SFPPresence3: {Device: cpldbus.BCMCPLD0, Offset: 0x43},
	SFPPresence4: {Device: cpldbus.BCMCPLD0, Offset: 0x44},
	Fan1Speed:    {Device: cpldbus.BCMCPLD0, Offset: 0x25, Rule: RuleWord},
	Fan2Speed:    {Device: cpldbus.BCMCPLD0, Offset: 0x27, Rule: RuleWord},
	Fan3Speed:    {Device: cpldbus.BCMCPLD0, Offset: 0x29, Rule: RuleWord},
})

var maps = map[string]*Map{
	F9500.name: F9500,
	S6500.name: S6500,
}

// ByName returns the built-in map called name.
func ByName(name string) (*Map, error) {
	if m, ok := maps[strings.ToLower(name)]; ok {
		return m, nil
	}
	return nil, fmt.Errorf("cpld: unknown map %q", name)
}

func (m *Map) String() string {
	return m.name
}

// Fields returns the fields of m in ascending order.
func (m *Map) Fields() []Field {
	out := make([]Field, 0, len(m.regs))
	for f := range m.regs {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Lookup returns the register of f.
func (m *Map) Lookup(f Field) (Register, bool) {
	r, ok := m.regs[f]
	return r, ok
}

// Devices returns the devices referenced by m in ascending order.
func (m *Map) Devices() []cpldbus.DeviceID {
	seen := map[cpldbus.DeviceID]bool{}
	var out []cpldbus.DeviceID
	for _, r := range m.regs {
		if !seen[r.Device] {
			seen[r.Device] = true
			out = append(out, r.Device)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Bus is the register bus used by a Map. *cpldbus.Bus implements it.
type Bus interface {
	ReadRegister(ctx context.Context, id cpldbus.DeviceID, off uint8) (uint8, error)
	WriteRegister(ctx context.Context, id cpldbus.DeviceID, off, v uint8) error
	ReadBlock(ctx context.Context, id cpldbus.DeviceID, off uint8, n int) ([]byte, error)
}

// Reading is the value of a Field.
type Reading struct {
	Field Field
	Rule  Rule
	// Raw holds the bytes as read.
	Raw []byte
	// Value is the decoded value. Unused for RuleBlock.
	Value int
}

func (r Reading) String() string {
	switch r.Rule {
	case RuleRPM, RuleWord:
		return strconv.Itoa(r.Value)
	case RuleBlock:
		parts := make([]string, len(r.Raw))
		for i, b := range r.Raw {
			parts[i] = fmt.Sprintf("%02x", b)
		}
		return strings.Join(parts, " ")
	default:
		return fmt.Sprintf("%02x", r.Value)
	}
}

// Read reads f over bus.
func (m *Map) Read(ctx context.Context, bus Bus, f Field) (Reading, error) {
	r, ok := m.regs[f]
	if !ok {
		return Reading{}, fmt.Errorf("%w: %s on %s", ErrUnknownField, f, m.name)
	}
	out := Reading{Field: f, Rule: r.Rule}
	switch r.Rule {
	case RuleByte:
		v, err := bus.ReadRegister(ctx, r.Device, r.Offset)
		if err != nil {
			return out, err
		}
		out.Raw = []byte{v}
		out.Value = int(v)
	case RuleRPM, RuleWord:
		lo, err := bus.ReadRegister(ctx, r.Device, r.Offset)
		if err != nil {
			return out, err
		}
		hi, err := bus.ReadRegister(ctx, r.Device, r.Offset+1)
		if err != nil {
			return out, err
		}
		out.Raw = []byte{lo, hi}
		if r.Rule == RuleRPM {
			out.Value = RPM(lo, hi)
		} else {
			out.Value = int(hi)<<8 | int(lo)
		}
	case RuleBlock:
		b, err := bus.ReadBlock(ctx, r.Device, r.Offset, r.Len)
		out.Raw = b
		if err != nil {
			return out, err
		}
	default:
		return out, fmt.Errorf("cpld: %s: unknown rule %d", f, r.Rule)
	}
	return out, nil
}

// Write writes v to f over bus. Only RuleByte fields are writable.
func (m *Map) Write(ctx context.Context, bus Bus, f Field, v uint8) error {
	r, ok := m.regs[f]
	if !ok {
		return fmt.Errorf("%w: %s on %s", ErrUnknownField, f, m.name)
	}
	if r.Rule != RuleByte {
		return fmt.Errorf("%w: %s", ErrReadOnly, f)
	}
	return bus.WriteRegister(ctx, r.Device, r.Offset, v)
}

// RPMScale is the tachometer constant: RPM = RPMScale / period.
const RPMScale = 15000000

// RPM converts a tachometer period to revolutions per minute. A period of
// 0 (stopped) or 0xFFFF (absent fan) reads as 0.
func RPM(lo, hi uint8) int {
	period := int(hi)<<8 | int(lo)
	if period == 0 || period == 0xFFFF {
		return 0
	}
	return RPMScale / period
}

// ParseByte parses a register value written in hexadecimal, with or without
// a 0x prefix. Values above 0xFF are rejected.
func ParseByte(s string) (uint8, error) {
	t := strings.TrimSpace(s)
	t = strings.TrimPrefix(strings.TrimPrefix(t, "0x"), "0X")
	v, err := strconv.ParseUint(t, 16, 8)
	if err != nil {
		return 0, fmt.Errorf("cpld: invalid register value %q; enter 0x00 ~ 0xff", s)
	}
	return uint8(v), nil
}
