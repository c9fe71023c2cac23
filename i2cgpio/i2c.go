// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package i2cgpio implements an I²C master by bit banging two GPIO lines.
//
// The lines are driven open drain: a released line is an input pulled high
// by the board, a driven line is an output at Low. The bus never drives a
// line High.
//
// Clock stretching is supported: after releasing SCL the master waits for
// the line to read High, up to the stretch timeout.
package i2cgpio

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
)

// Errors returned by Tx.
var (
	ErrNACK           = errors.New("i2cgpio: got NAK")
	ErrClockStretch   = errors.New("i2cgpio: SCL held low past the stretch timeout")
	ErrAddressTooHigh = errors.New("i2cgpio: 10-bit addresses are not supported")
)

// Defaults used when Opts leaves a field to 0.
const (
	DefaultHalfPeriod     = 5 * time.Microsecond
	DefaultStretchTimeout = 10 * time.Millisecond
)

// Opts configures a Bus.
type Opts struct {
	// HalfPeriod is half of an SCL cycle. 5µs is 100kHz.
	HalfPeriod     time.Duration
	StretchTimeout time.Duration
	// Clock defaults to the real clock.
	Clock clockwork.Clock
}

// Bus is an I²C master over two GPIO lines.
type Bus struct {
	name     string
	scl, sda gpio.PinIO
	clock    clockwork.Clock
	stretch  time.Duration

	mu   sync.Mutex
	half time.Duration
}

// New returns a Bus using scl and sda and releases both lines.
func New(name string, scl, sda gpio.PinIO, opts *Opts) (*Bus, error) {
	if scl == nil || sda == nil {
		return nil, errors.New("i2cgpio: SCL and SDA are required")
	}
	b := &Bus{
		name:    name,
		scl:     scl,
		sda:     sda,
		half:    DefaultHalfPeriod,
		stretch: DefaultStretchTimeout,
	}
	if opts != nil {
		if opts.HalfPeriod < 0 || opts.StretchTimeout < 0 {
			return nil, errors.New("i2cgpio: negative timing")
		}
		if opts.HalfPeriod != 0 {
			b.half = opts.HalfPeriod
		}
		if opts.StretchTimeout != 0 {
			b.stretch = opts.StretchTimeout
		}
		b.clock = opts.Clock
	}
	if b.clock == nil {
		b.clock = clockwork.NewRealClock()
	}
	if err := b.idle(); err != nil {
		return nil, b.wrap(err)
	}
	return b, nil
}

func (b *Bus) String() string {
	return b.name
}

// Close releases both lines.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.wrap(b.idle())
}

// Duplex implements conn.Conn.
func (b *Bus) Duplex() conn.Duplex {
	return conn.Half
}

// SetSpeed implements i2c.Bus.
func (b *Bus) SetSpeed(f physic.Frequency) error {
	if f > 400*physic.KiloHertz {
		return fmt.Errorf("i2cgpio: invalid speed %s; maximum supported clock is 400kHz", f)
	}
	if f < 100*physic.Hertz {
		return fmt.Errorf("i2cgpio: invalid speed %s; minimum supported clock is 100Hz", f)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.half = f.Period() / 2
	return nil
}

// Tx implements i2c.Bus.
//
// A Tx with both w and r empty probes addr.
func (b *Bus) Tx(addr uint16, w, r []byte) error {
	if addr > 0x7F {
		return ErrAddressTooHigh
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.tx(uint8(addr), w, r); err != nil {
		// Leave the bus idle whatever happened.
		_ = b.stop()
		return b.wrap(err)
	}
	return b.wrap(b.stop())
}

// SCL implements i2c.Pins.
func (b *Bus) SCL() gpio.PinIO {
	return b.scl
}

// SDA implements i2c.Pins.
func (b *Bus) SDA() gpio.PinIO {
	return b.sda
}

func (b *Bus) tx(addr uint8, w, r []byte) error {
	if err := b.start(); err != nil {
		return err
	}
	if len(w) != 0 || len(r) == 0 {
		if err := b.writeByte(addr << 1); err != nil {
			return err
		}
		for _, c := range w {
			if err := b.writeByte(c); err != nil {
				return err
			}
		}
	}
	if len(r) == 0 {
		return nil
	}
	if len(w) != 0 {
		if err := b.start(); err != nil {
			return err
		}
	}
	if err := b.writeByte(addr<<1 | 1); err != nil {
		return err
	}
	for i := range r {
		v, err := b.readByte(i != len(r)-1)
		if err != nil {
			return err
		}
		r[i] = v
	}
	return nil
}

// start emits a START, or a repeated START within a transaction. SCL is
// left low.
func (b *Bus) start() error {
	if err := b.release(b.sda); err != nil {
		return err
	}
	if err := b.releaseSCL(); err != nil {
		return err
	}
	b.delay()
	if err := b.sda.Out(gpio.Low); err != nil {
		return err
	}
	b.delay()
	return b.scl.Out(gpio.Low)
}

// stop emits a STOP and leaves both lines released.
func (b *Bus) stop() error {
	if err := b.sda.Out(gpio.Low); err != nil {
		return err
	}
	b.delay()
	if err := b.releaseSCL(); err != nil {
		return err
	}
	b.delay()
	if err := b.release(b.sda); err != nil {
		return err
	}
	b.delay()
	return nil
}

// writeByte shifts out v MSB first and returns ErrNACK when the slave
// doesn't acknowledge.
func (b *Bus) writeByte(v uint8) error {
	for i := 7; i >= 0; i-- {
		if err := b.writeBit(v&(1<<uint(i)) != 0); err != nil {
			return err
		}
	}
	nack, err := b.readBit()
	if err != nil {
		return err
	}
	if nack {
		return ErrNACK
	}
	return nil
}

// readByte shifts in a byte MSB first then ACKs it, or NAKs the last byte.
func (b *Bus) readByte(ack bool) (uint8, error) {
	var v uint8
	for i := 0; i < 8; i++ {
		bit, err := b.readBit()
		if err != nil {
			return 0, err
		}
		v <<= 1
		if bit {
			v |= 1
		}
	}
	return v, b.writeBit(!ack)
}

func (b *Bus) writeBit(high bool) error {
	var err error
	if high {
		err = b.release(b.sda)
	} else {
		err = b.sda.Out(gpio.Low)
	}
	if err != nil {
		return err
	}
	b.delay()
	if err := b.releaseSCL(); err != nil {
		return err
	}
	b.delay()
	return b.scl.Out(gpio.Low)
}

func (b *Bus) readBit() (bool, error) {
	if err := b.release(b.sda); err != nil {
		return false, err
	}
	b.delay()
	if err := b.releaseSCL(); err != nil {
		return false, err
	}
	b.delay()
	v := b.sda.Read()
	return bool(v), b.scl.Out(gpio.Low)
}

// releaseSCL releases SCL and waits for slaves stretching the clock.
func (b *Bus) releaseSCL() error {
	if err := b.release(b.scl); err != nil {
		return err
	}
	if b.scl.Read() {
		return nil
	}
	deadline := b.clock.Now().Add(b.stretch)
	for !b.scl.Read() {
		if !b.clock.Now().Before(deadline) {
			return ErrClockStretch
		}
		b.delay()
	}
	return nil
}

func (b *Bus) release(p gpio.PinIO) error {
	return p.In(gpio.PullNoChange, gpio.NoEdge)
}

func (b *Bus) idle() error {
	if err := b.release(b.sda); err != nil {
		return err
	}
	return b.release(b.scl)
}

func (b *Bus) delay() {
	b.clock.Sleep(b.half)
}

func (b *Bus) wrap(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("i2cgpio (%s): %w", b.name, err)
}

// Register registers b in i2creg.
//
// Every Open returns a handle sharing b. Closing a handle leaves b usable.
func Register(b *Bus, aliases []string, number int) error {
	return i2creg.Register(b.name, aliases, number, func() (i2c.BusCloser, error) {
		return &handle{b}, nil
	})
}

type handle struct {
	*Bus
}

// Close leaves the shared bus idle.
func (h *handle) Close() error {
	return nil
}

var _ i2c.BusCloser = &Bus{}
var _ i2c.Pins = &Bus{}
var _ i2c.BusCloser = &handle{}
