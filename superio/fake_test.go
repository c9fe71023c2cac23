// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package superio

import (
	"errors"
	"fmt"
)

var errInjected = errors.New("injected")

// regPort is a Port backed by a map of 32-bit registers.
type regPort struct {
	regs map[uint16]uint32
	ops  []string
	fail bool
}

func (p *regPort) In8(port uint16) (uint8, error) {
	v, err := p.In32(port)
	return uint8(v), err
}

func (p *regPort) Out8(port uint16, v uint8) error {
	return p.Out32(port, uint32(v))
}

func (p *regPort) In32(port uint16) (uint32, error) {
	if p.fail {
		return 0, errInjected
	}
	p.ops = append(p.ops, fmt.Sprintf("in %#x", port))
	return p.regs[port], nil
}

func (p *regPort) Out32(port uint16, v uint32) error {
	if p.fail {
		return errInjected
	}
	p.ops = append(p.ops, fmt.Sprintf("out %#x %#x", port, v))
	if p.regs == nil {
		p.regs = map[uint16]uint32{}
	}
	p.regs[port] = v
	return nil
}

// nctChip simulates an NCT6102D strapped at config.
type nctChip struct {
	config  uint16
	entered int
	index   uint8
	ldn     uint8
	cr      map[[2]uint8]uint8
	group   uint8
	dir     [8]uint8
	data    [8]uint8
	ops     []string
}

func newNCTChip(config, base uint16) *nctChip {
	c := &nctChip{config: config, cr: map[[2]uint8]uint8{}}
	c.cr[[2]uint8{0, crIDHigh}] = 0xc4
	c.cr[[2]uint8{0, crIDLow}] = 0x52
	c.cr[[2]uint8{gpioLDN, crBaseHigh}] = uint8(base >> 8)
	c.cr[[2]uint8{gpioLDN, crBaseLow}] = uint8(base)
	c.cr[[2]uint8{gpioLDN, crActivate}] = 0x01
	for i := range c.dir {
		c.dir[i] = 0xFF
	}
	return c
}

func (c *nctChip) base() uint16 {
	return uint16(c.cr[[2]uint8{gpioLDN, crBaseHigh}])<<8 | uint16(c.cr[[2]uint8{gpioLDN, crBaseLow}])
}

func (c *nctChip) key(reg uint8) [2]uint8 {
	if reg < 0x30 {
		return [2]uint8{0, reg}
	}
	return [2]uint8{c.ldn, reg}
}

func (c *nctChip) In8(port uint16) (uint8, error) {
	c.ops = append(c.ops, fmt.Sprintf("inb %#x", port))
	base := c.base()
	switch {
	case port == c.config+1:
		if c.entered < 2 {
			return 0xFF, nil
		}
		if c.index == crLDN {
			return c.ldn, nil
		}
		return c.cr[c.key(c.index)], nil
	case port == base+winIndex:
		return c.group, nil
	case port == base+winDirection:
		return c.dir[c.group], nil
	case port == base+winData:
		return c.data[c.group], nil
	}
	return 0xFF, nil
}

func (c *nctChip) Out8(port uint16, v uint8) error {
	c.ops = append(c.ops, fmt.Sprintf("outb %#x %#x", port, v))
	base := c.base()
	switch {
	case port == c.config:
		switch {
		case v == enterKey:
			c.entered++
		case v == exitKey:
			c.entered = 0
		case c.entered >= 2:
			c.index = v
		}
	case port == c.config+1:
		if c.entered < 2 {
			return nil
		}
		if c.index == crLDN {
			c.ldn = v
			return nil
		}
		c.cr[c.key(c.index)] = v
	case port == base+winIndex:
		c.group = v
	case port == base+winDirection:
		c.dir[c.group] = v
	case port == base+winData:
		c.data[c.group] = v
	}
	return nil
}

func (c *nctChip) In32(port uint16) (uint32, error) {
	return 0, errors.New("32-bit access")
}

func (c *nctChip) Out32(port uint16, v uint32) error {
	return errors.New("32-bit access")
}
