// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package cpldbus

import (
	"fmt"
	"sort"
	"strconv"
)

// DeviceID names a register-bearing device independently of its bus
// binding.
//
// The numeric value is the upper half of a packed address.
type DeviceID int

// Known devices, in packed-address order.
const (
	BCMCPLD0 DeviceID = iota
	BCMCPLD1
	MAC0CPLD0
	MAC1CPLD0
	MAC0CPLD1
	MAC1CPLD2
	FanEEPROM1
	FanEEPROM2
	FanEEPROM3
	FanEEPROM4

	numDevices
)

// NoDevice marks a TransferError for a call made by Endpoint.
const NoDevice DeviceID = -1

var deviceNames = [numDevices]string{
	"bcm-cpld0",
	"bcm-cpld1",
	"mac0-cpld0",
	"mac1-cpld0",
	"mac0-cpld1",
	"mac1-cpld2",
	"fan1-eeprom",
	"fan2-eeprom",
	"fan3-eeprom",
	"fan4-eeprom",
}

func (d DeviceID) String() string {
	if d >= 0 && d < numDevices {
		return deviceNames[d]
	}
	return "DeviceID(" + strconv.Itoa(int(d)) + ")"
}

// ParseDeviceID returns the DeviceID named s.
func ParseDeviceID(s string) (DeviceID, error) {
	for i, n := range deviceNames {
		if n == s {
			return DeviceID(i), nil
		}
	}
	return 0, fmt.Errorf("%w %q", ErrUnknownDevice, s)
}

// Devices returns every known DeviceID.
func Devices() []DeviceID {
	out := make([]DeviceID, numDevices)
	for i := range out {
		out[i] = DeviceID(i)
	}
	return out
}

// Valid 7-bit device addresses lie strictly between AddrMin and AddrMax.
const (
	AddrMin = 0x07
	AddrMax = 0x78
)

// Endpoint is a device address on a numbered bus.
type Endpoint struct {
	Bus  int
	Addr uint16
}

// String returns the Linux sysfs notation, e.g. "1-0037".
func (e Endpoint) String() string {
	return fmt.Sprintf("%d-%04x", e.Bus, e.Addr)
}

func (e Endpoint) valid() bool {
	return e.Addr > AddrMin && e.Addr < AddrMax
}

// Table binds devices to endpoints. It is immutable once built.
type Table struct {
	m map[DeviceID]Endpoint
}

// NewTable returns a Table holding a copy of m.
func NewTable(m map[DeviceID]Endpoint) Table {
	t := Table{m: make(map[DeviceID]Endpoint, len(m))}
	for id, ep := range m {
		t.m[id] = ep
	}
	return t
}

// Lookup returns the endpoint bound to id, without range checking.
func (t Table) Lookup(id DeviceID) (Endpoint, bool) {
	ep, ok := t.m[id]
	return ep, ok
}

// IDs returns the bound devices in ascending order.
func (t Table) IDs() []DeviceID {
	out := make([]DeviceID, 0, len(t.m))
	for id := range t.m {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Len returns the number of bound devices.
func (t Table) Len() int {
	return len(t.m)
}
