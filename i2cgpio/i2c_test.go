// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package i2cgpio

import (
	"bytes"
	"errors"
	"sync"
	"testing"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
)

const (
	stIdle = iota
	stAddr
	stWrite
	stRead
)

// wire is an open drain two-line bus with one simulated register slave.
type wire struct {
	mu sync.Mutex

	// Lines pulled low by the master and the slave.
	mSCL, mSDA bool
	sSDA       bool
	// stuck holds SCL low.
	stuck bool

	addr     uint8
	regs     [256]byte
	ptr      uint8
	havePtr  bool
	state    int
	rw       bool
	bit      int
	shift    byte
	acking   bool
	ack      bool
	starts   int
	stops    int
	received []byte
}

func (w *wire) scl() bool {
	return !w.mSCL && !w.stuck
}

func (w *wire) sda() bool {
	return !w.mSDA && !w.sSDA
}

func (w *wire) setSCL(low bool) {
	before := w.scl()
	w.mSCL = low
	after := w.scl()
	switch {
	case !before && after:
		w.rising()
	case before && !after:
		w.falling()
	}
}

func (w *wire) setSDA(low bool) {
	before := w.sda()
	w.mSDA = low
	after := w.sda()
	if !w.scl() || before == after {
		return
	}
	if !after {
		w.starts++
		w.state = stAddr
		w.bit, w.shift, w.acking, w.sSDA = 0, 0, false, false
	} else {
		w.stops++
		w.state = stIdle
		w.havePtr = false
		w.sSDA = false
	}
}

func (w *wire) rising() {
	switch w.state {
	case stAddr, stWrite:
		if w.bit < 8 {
			w.shift <<= 1
			if w.sda() {
				w.shift |= 1
			}
			w.bit++
		}
	case stRead:
		if w.bit == 8 {
			w.ack = !w.sda()
		}
	}
}

func (w *wire) falling() {
	switch w.state {
	case stAddr, stWrite:
		if w.bit != 8 {
			return
		}
		if !w.acking {
			if !w.accept() {
				w.state = stIdle
				return
			}
			w.sSDA = true
			w.acking = true
			return
		}
		w.sSDA = false
		w.acking = false
		w.bit, w.shift = 0, 0
		if w.state == stAddr && w.rw {
			w.state = stRead
			w.load()
			return
		}
		w.state = stWrite
	case stRead:
		if w.bit < 8 {
			w.bit++
			if w.bit < 8 {
				w.drive()
			} else {
				w.sSDA = false
			}
			return
		}
		if w.ack {
			w.load()
			return
		}
		w.sSDA = false
		w.state = stIdle
	}
}

// accept handles a received byte and reports whether to ACK it.
func (w *wire) accept() bool {
	if w.state == stAddr {
		if w.shift>>1 != w.addr {
			return false
		}
		w.rw = w.shift&1 != 0
		return true
	}
	w.received = append(w.received, w.shift)
	if !w.havePtr {
		w.ptr = w.shift
		w.havePtr = true
		return true
	}
	w.regs[w.ptr] = w.shift
	w.ptr++
	return true
}

func (w *wire) load() {
	w.shift = w.regs[w.ptr]
	w.ptr++
	w.bit = 0
	w.drive()
}

func (w *wire) drive() {
	w.sSDA = w.shift&(0x80>>uint(w.bit)) == 0
}

// line is one end of the wire seen by the master.
type line struct {
	*gpiotest.Pin
	w     *wire
	clock bool
}

func (l *line) In(pull gpio.Pull, edge gpio.Edge) error {
	l.w.mu.Lock()
	defer l.w.mu.Unlock()
	if l.clock {
		l.w.setSCL(false)
	} else {
		l.w.setSDA(false)
	}
	return nil
}

func (l *line) Out(v gpio.Level) error {
	if v {
		return errors.New("open drain line driven high")
	}
	l.w.mu.Lock()
	defer l.w.mu.Unlock()
	if l.clock {
		l.w.setSCL(true)
	} else {
		l.w.setSDA(true)
	}
	return nil
}

func (l *line) Read() gpio.Level {
	l.w.mu.Lock()
	defer l.w.mu.Unlock()
	if l.clock {
		return gpio.Level(l.w.scl())
	}
	return gpio.Level(l.w.sda())
}

func newWire(t *testing.T, addr uint8) (*wire, *Bus) {
	w := &wire{addr: addr}
	scl := &line{Pin: &gpiotest.Pin{N: "SCL", Num: 1}, w: w, clock: true}
	sda := &line{Pin: &gpiotest.Pin{N: "SDA", Num: 17}, w: w}
	b, err := New("I2C-TEST", scl, sda, &Opts{HalfPeriod: time.Nanosecond, StretchTimeout: 5 * time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	return w, b
}

func TestTx_writeRegister(t *testing.T) {
	w, b := newWire(t, 0x37)
	if err := b.Tx(0x37, []byte{0x51, 0xA5, 0x5A}, nil); err != nil {
		t.Fatal(err)
	}
	if w.regs[0x51] != 0xA5 || w.regs[0x52] != 0x5A {
		t.Fatalf("got %#x %#x", w.regs[0x51], w.regs[0x52])
	}
	if w.starts != 1 || w.stops != 1 {
		t.Fatalf("%d starts, %d stops", w.starts, w.stops)
	}
	if !w.scl() || !w.sda() {
		t.Fatal("bus not idle")
	}
}

func TestTx_readRegister(t *testing.T) {
	w, b := newWire(t, 0x53)
	copy(w.regs[0x10:], []byte{0x81, 0x00, 0xFF, 0x3C})
	r := make([]byte, 4)
	if err := b.Tx(0x53, []byte{0x10}, r); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(r, []byte{0x81, 0x00, 0xFF, 0x3C}) {
		t.Fatalf("got %#v", r)
	}
	// START plus repeated START.
	if w.starts != 2 || w.stops != 1 {
		t.Fatalf("%d starts, %d stops", w.starts, w.stops)
	}
	if w.sSDA {
		t.Fatal("slave still drives SDA")
	}
}

func TestTx_nack(t *testing.T) {
	w, b := newWire(t, 0x37)
	err := b.Tx(0x36, []byte{0}, make([]byte, 1))
	if !errors.Is(err, ErrNACK) {
		t.Fatalf("got %v", err)
	}
	if !w.scl() || !w.sda() || w.stops != 1 {
		t.Fatal("bus not released after NAK")
	}
	// Probe.
	if err := b.Tx(0x37, nil, nil); err != nil {
		t.Fatal(err)
	}
	if err := b.Tx(0x38, nil, nil); !errors.Is(err, ErrNACK) {
		t.Fatalf("got %v", err)
	}
}

func TestTx_addressTooHigh(t *testing.T) {
	_, b := newWire(t, 0x37)
	if err := b.Tx(0x100, nil, nil); !errors.Is(err, ErrAddressTooHigh) {
		t.Fatalf("got %v", err)
	}
}

func TestTx_clockStretchTimeout(t *testing.T) {
	w, b := newWire(t, 0x37)
	w.stuck = true
	err := b.Tx(0x37, []byte{0}, nil)
	if !errors.Is(err, ErrClockStretch) {
		t.Fatalf("got %v", err)
	}
	w.stuck = false
	if err := b.Tx(0x37, []byte{0x20, 7}, nil); err != nil {
		t.Fatal(err)
	}
	if w.regs[0x20] != 7 {
		t.Fatalf("got %#x", w.regs[0x20])
	}
}

func TestSetSpeed(t *testing.T) {
	_, b := newWire(t, 0x37)
	if err := b.SetSpeed(100 * physic.KiloHertz); err != nil {
		t.Fatal(err)
	}
	if b.half != 5*time.Microsecond {
		t.Fatalf("got %s", b.half)
	}
	if err := b.SetSpeed(physic.MegaHertz); err == nil {
		t.Fatal("expected error")
	}
	if err := b.SetSpeed(physic.Hertz); err == nil {
		t.Fatal("expected error")
	}
}

func TestNew(t *testing.T) {
	if _, err := New("x", nil, nil, nil); err == nil {
		t.Fatal("expected error")
	}
	w, b := newWire(t, 0x37)
	if b.String() != "I2C-TEST" || b.SCL().Name() != "SCL" || b.SDA().Number() != 17 {
		t.Fatal("unexpected bus description")
	}
	if err := b.Close(); err != nil || !w.scl() || !w.sda() {
		t.Fatal("lines not released")
	}
}

func TestRegister(t *testing.T) {
	w, b := newWire(t, 0x34)
	b.name = "I2C-GPIO-TEST"
	if err := Register(b, []string{"CPLD_BUS_TEST"}, 42); err != nil {
		t.Fatal(err)
	}
	defer i2creg.Unregister("I2C-GPIO-TEST")
	bus, err := i2creg.Open("42")
	if err != nil {
		t.Fatal(err)
	}
	d := i2c.Dev{Bus: bus, Addr: 0x34}
	if err := d.Tx([]byte{0x05, 0x99}, nil); err != nil {
		t.Fatal(err)
	}
	if err := bus.Close(); err != nil {
		t.Fatal(err)
	}
	if w.regs[5] != 0x99 {
		t.Fatalf("got %#x", w.regs[5])
	}
	// The shared bus survives handle Close.
	bus2, err := i2creg.Open("CPLD_BUS_TEST")
	if err != nil {
		t.Fatal(err)
	}
	defer bus2.Close()
	if err := bus2.Tx(0x34, nil, nil); err != nil {
		t.Fatal(err)
	}
}
