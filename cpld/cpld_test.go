// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package cpld

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/sonic-platform/chassis/cpldbus"
)

// regs is a register file per device.
type regs map[cpldbus.DeviceID]*[256]byte

func (r regs) dev(id cpldbus.DeviceID) *[256]byte {
	if r[id] == nil {
		r[id] = &[256]byte{}
	}
	return r[id]
}

// chipTransport serves one device of regs over the cpldbus.Transport
// interface.
type chipTransport struct {
	r *[256]byte
}

func (c *chipTransport) ReadRegister(reg uint8) (uint8, error) {
	return c.r[reg], nil
}

func (c *chipTransport) WriteRegister(reg, v uint8) error {
	c.r[reg] = v
	return nil
}

func (c *chipTransport) Close() error {
	return nil
}

func newBus(t *testing.T, r regs) *cpldbus.Bus {
	table := cpldbus.NewTable(map[cpldbus.DeviceID]cpldbus.Endpoint{
		cpldbus.BCMCPLD0:  {Bus: 6, Addr: 0x63},
		cpldbus.BCMCPLD1:  {Bus: 1, Addr: 0x34},
		cpldbus.MAC0CPLD0: {Bus: 1, Addr: 0x36},
		cpldbus.MAC0CPLD1: {Bus: 1, Addr: 0x37},
	})
	byEndpoint := map[cpldbus.Endpoint]cpldbus.DeviceID{}
	for _, id := range table.IDs() {
		ep, _ := table.Lookup(id)
		byEndpoint[ep] = id
	}
	open := cpldbus.OpenerFunc(func(ep cpldbus.Endpoint) (cpldbus.Transport, error) {
		return &chipTransport{r: r.dev(byEndpoint[ep])}, nil
	})
	b, err := cpldbus.New(table, open, nil)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestRPM(t *testing.T) {
	data := []struct {
		lo, hi uint8
		want   int
	}{
		{0, 0, 0},
		{0xFF, 0xFF, 0},
		{0x98, 0x3A, 1000},
		{0x01, 0x00, 15000000},
		{0xFF, 0x00, 58823},
	}
	for _, line := range data {
		if got := RPM(line.lo, line.hi); got != line.want {
			t.Errorf("RPM(%#x, %#x) = %d, want %d", line.lo, line.hi, got, line.want)
		}
	}
}

func TestParseByte(t *testing.T) {
	data := []struct {
		in   string
		want uint8
		ok   bool
	}{
		{"0", 0, true},
		{"ff", 0xFF, true},
		{"0x1B", 0x1B, true},
		{" 7f\n", 0x7F, true},
		{"100", 0, false},
		{"-1", 0, false},
		{"zz", 0, false},
		{"", 0, false},
	}
	for _, line := range data {
		got, err := ParseByte(line.in)
		if (err == nil) != line.ok || got != line.want {
			t.Errorf("ParseByte(%q) = %#x, %v", line.in, got, err)
		}
	}
}

func TestField(t *testing.T) {
	for f := FanPresent; f < numFields; f++ {
		got, err := ParseField(f.String())
		if err != nil || got != f {
			t.Errorf("%s: got %v, %v", f, got, err)
		}
	}
	if _, err := ParseField("fan9_input"); err == nil {
		t.Fatal("expected error")
	}
	if s := Field(99).String(); s != "Field(99)" {
		t.Fatal(s)
	}
}

func TestByName(t *testing.T) {
	if m, err := ByName("F9500"); err != nil || m != F9500 {
		t.Fatal(m, err)
	}
	if _, err := ByName("z9"); err == nil {
		t.Fatal("expected error")
	}
	devs := F9500.Devices()
	if len(devs) != 3 || devs[0] != cpldbus.BCMCPLD1 || devs[2] != cpldbus.MAC0CPLD1 {
		t.Fatalf("got %v", devs)
	}
	if fs := S6500.Fields(); len(fs) != 8 || fs[0] != PSUStatus {
		t.Fatalf("got %v", fs)
	}
}

func TestRead_f9500(t *testing.T) {
	r := regs{}
	fans := r.dev(cpldbus.MAC0CPLD1)
	fans[0x30] = 0x0F
	fans[0x1B], fans[0x1C] = 0x98, 0x3A
	fans[0x1D], fans[0x1E] = 0xFF, 0xFF
	copy(fans[0:], []byte{1, 2, 3, 4})
	r.dev(cpldbus.MAC0CPLD0)[0x43] = 0xA5
	b := newBus(t, r)
	ctx := context.Background()

	got, err := F9500.Read(ctx, b, FanPresent)
	if err != nil || got.Value != 0x0F || got.String() != "0f" {
		t.Fatalf("got %v, %v", got, err)
	}
	if got, err = F9500.Read(ctx, b, Fan1Speed); err != nil || got.Value != 1000 || got.String() != "1000" {
		t.Fatalf("got %v, %v", got, err)
	}
	if got, err = F9500.Read(ctx, b, Fan2Speed); err != nil || got.Value != 0 {
		t.Fatalf("got %v, %v", got, err)
	}
	if got, err = F9500.Read(ctx, b, SFPPresence5); err != nil || got.Value != 0xA5 {
		t.Fatalf("got %v, %v", got, err)
	}
	if got, err = F9500.Read(ctx, b, Version); err != nil || !bytes.Equal(got.Raw, []byte{1, 2, 3, 4}) || got.String() != "01 02 03 04" {
		t.Fatalf("got %v, %v", got, err)
	}
}

func TestRead_s6500(t *testing.T) {
	r := regs{}
	c := r.dev(cpldbus.BCMCPLD0)
	c[0x25], c[0x26] = 0x34, 0x12
	c[6] = 0x03
	b := newBus(t, r)
	got, err := S6500.Read(context.Background(), b, Fan1Speed)
	if err != nil || got.Value != 0x1234 {
		t.Fatalf("got %v, %v", got, err)
	}
	if got, err = S6500.Read(context.Background(), b, PSUStatus); err != nil || got.Value != 3 {
		t.Fatalf("got %v, %v", got, err)
	}
	if _, err = S6500.Read(context.Background(), b, Fan4Speed); !errors.Is(err, ErrUnknownField) {
		t.Fatalf("got %v", err)
	}
}

func TestWrite(t *testing.T) {
	r := regs{}
	b := newBus(t, r)
	ctx := context.Background()
	if err := F9500.Write(ctx, b, FanStatus, 0x5A); err != nil {
		t.Fatal(err)
	}
	if v := r.dev(cpldbus.MAC0CPLD1)[0x31]; v != 0x5A {
		t.Fatalf("got %#x", v)
	}
	if err := F9500.Write(ctx, b, Fan1Speed, 1); !errors.Is(err, ErrReadOnly) {
		t.Fatalf("got %v", err)
	}
	if err := S6500.Write(ctx, b, FanPresent, 1); !errors.Is(err, ErrUnknownField) {
		t.Fatalf("got %v", err)
	}
}

func TestRead_unbound(t *testing.T) {
	b := newBus(t, regs{})
	m := NewMap("lab", map[Field]Register{FanPresent: {Device: cpldbus.FanEEPROM1}})
	if _, err := m.Read(context.Background(), b, FanPresent); !errors.Is(err, cpldbus.ErrUnknownDevice) {
		t.Fatalf("got %v", err)
	}
}
