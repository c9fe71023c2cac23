// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package cpldbus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/jpillora/backoff"
)

// DefaultAttempts is the number of attempts used when Options.Attempts is 0.
const DefaultAttempts = 3

// Options tunes the retry policy of a Bus.
type Options struct {
	// Attempts bounds the attempts of each single-byte operation and of each
	// chunk of a block read. Defaults to DefaultAttempts.
	Attempts int
	// AttemptTimeout abandons an attempt whose transport call doesn't
	// return in time. 0 means no limit.
	AttemptTimeout time.Duration
	// Deadline bounds a whole operation, retries included. 0 means no limit.
	Deadline time.Duration
	// RetryDelay is the first delay between attempts, doubled after each
	// retry up to MaxRetryDelay. 0 means retry immediately.
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration
	// Clock defaults to the real clock.
	Clock clockwork.Clock
}

// Bus performs register operations on the devices of a Table.
type Bus struct {
	table  Table
	opener Opener
	opts   Options
	clock  clockwork.Clock

	mu   sync.Mutex
	devs map[Endpoint]*device
}

// device is the per-endpoint state.
type device struct {
	mu   sync.Mutex
	last []byte
	// busy is closed when the transport call of an abandoned attempt
	// returns. Guarded by mu.
	busy chan struct{}
}

// settle waits for an abandoned attempt on d to return, bounded by ctx and
// deadline. d.mu must be held.
func (d *device) settle(ctx context.Context, clock clockwork.Clock, deadline time.Time) error {
	if d.busy == nil {
		return nil
	}
	var expired <-chan time.Time
	if !deadline.IsZero() {
		rem := deadline.Sub(clock.Now())
		if rem <= 0 {
			return context.DeadlineExceeded
		}
		t := clock.NewTimer(rem)
		defer t.Stop()
		expired = t.Chan()
	}
	select {
	case <-d.busy:
		d.busy = nil
		return nil
	case <-expired:
		return context.DeadlineExceeded
	case <-ctx.Done():
		return ctx.Err()
	}
}

// New returns a Bus resolving devices with t and reaching them with o.
func New(t Table, o Opener, opts *Options) (*Bus, error) {
	if o == nil {
		return nil, errors.New("cpldbus: nil Opener")
	}
	b := &Bus{table: t, opener: o, devs: map[Endpoint]*device{}}
	if opts != nil {
		b.opts = *opts
	}
	if b.opts.Attempts < 0 || b.opts.AttemptTimeout < 0 || b.opts.Deadline < 0 || b.opts.RetryDelay < 0 || b.opts.MaxRetryDelay < 0 {
		return nil, fmt.Errorf("cpldbus: invalid options %+v", b.opts)
	}
	if b.opts.Attempts == 0 {
		b.opts.Attempts = DefaultAttempts
	}
	b.clock = b.opts.Clock
	if b.clock == nil {
		b.clock = clockwork.NewRealClock()
	}
	return b, nil
}

// Table returns the device table.
func (b *Bus) Table() Table {
	return b.table
}

// Resolve returns the endpoint of id.
func (b *Bus) Resolve(id DeviceID) (Endpoint, error) {
	ep, ok := b.table.Lookup(id)
	if !ok {
		return Endpoint{}, fmt.Errorf("%w %s", ErrUnknownDevice, id)
	}
	if !ep.valid() {
		return Endpoint{}, fmt.Errorf("%w: %s at %s", ErrAddressOutOfRange, id, ep)
	}
	return ep, nil
}

// ReadUint8 reads the register at off and returns the number of attempts
// it took.
func (b *Bus) ReadUint8(ctx context.Context, ep Endpoint, off uint8) (uint8, int, error) {
	return b.readUint8(ctx, NoDevice, ep, off)
}

// WriteUint8 writes v to the register at off and returns the number of
// attempts it took.
func (b *Bus) WriteUint8(ctx context.Context, ep Endpoint, off, v uint8) (int, error) {
	return b.writeUint8(ctx, NoDevice, ep, off, v)
}

// ReadBlockAt reads n consecutive registers starting at off.
//
// Registers are read in chunks of BlockChunk bytes when the transport is a
// BlockReader, one byte at a time otherwise, each chunk retried on its own.
// On failure the bytes read so far are returned along with the error.
func (b *Bus) ReadBlockAt(ctx context.Context, ep Endpoint, off uint8, n int) ([]byte, error) {
	return b.readBlock(ctx, NoDevice, ep, off, n)
}

// ReadRegister reads the register at off of device id.
func (b *Bus) ReadRegister(ctx context.Context, id DeviceID, off uint8) (uint8, error) {
	ep, err := b.Resolve(id)
	if err != nil {
		return 0, err
	}
	v, _, err := b.readUint8(ctx, id, ep, off)
	return v, err
}

// WriteRegister writes v to the register at off of device id.
func (b *Bus) WriteRegister(ctx context.Context, id DeviceID, off, v uint8) error {
	ep, err := b.Resolve(id)
	if err != nil {
		return err
	}
	_, err = b.writeUint8(ctx, id, ep, off, v)
	return err
}

// ReadBlock reads n registers of device id starting at off.
func (b *Bus) ReadBlock(ctx context.Context, id DeviceID, off uint8, n int) ([]byte, error) {
	ep, err := b.Resolve(id)
	if err != nil {
		return nil, err
	}
	return b.readBlock(ctx, id, ep, off, n)
}

// Pack returns the packed address of register off of device id.
func Pack(id DeviceID, off uint16) uint32 {
	return uint32(id)<<16 | uint32(off)
}

// Unpack splits a packed address.
func Unpack(addr uint32) (DeviceID, uint16) {
	return DeviceID(addr >> 16), uint16(addr)
}

// ReadPacked reads the register at the packed address addr.
func (b *Bus) ReadPacked(ctx context.Context, addr uint32) (uint8, error) {
	id, off, err := b.unpack(addr)
	if err != nil {
		return 0, err
	}
	return b.ReadRegister(ctx, id, off)
}

// WritePacked writes v to the register at the packed address addr.
func (b *Bus) WritePacked(ctx context.Context, addr uint32, v uint8) error {
	id, off, err := b.unpack(addr)
	if err != nil {
		return err
	}
	return b.WriteRegister(ctx, id, off, v)
}

// LastRead returns a copy of the bytes of the last successful read of
// device id, or nil.
func (b *Bus) LastRead(id DeviceID) []byte {
	ep, err := b.Resolve(id)
	if err != nil {
		return nil
	}
	d := b.device(ep)
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.last == nil {
		return nil
	}
	return append([]byte(nil), d.last...)
}

func (b *Bus) unpack(addr uint32) (DeviceID, uint8, error) {
	id, off := Unpack(addr)
	if _, err := b.Resolve(id); err != nil {
		return 0, 0, err
	}
	if off > 0xFF {
		return 0, 0, fmt.Errorf("%w: %s offset %#x", ErrOffsetOutOfRange, id, off)
	}
	return id, uint8(off), nil
}

func (b *Bus) device(ep Endpoint) *device {
	b.mu.Lock()
	defer b.mu.Unlock()
	d := b.devs[ep]
	if d == nil {
		d = &device{}
		b.devs[ep] = d
	}
	return d
}

func (b *Bus) readUint8(ctx context.Context, id DeviceID, ep Endpoint, off uint8) (uint8, int, error) {
	if !ep.valid() {
		return 0, 0, fmt.Errorf("%w: %s", ErrAddressOutOfRange, ep)
	}
	d := b.device(ep)
	d.mu.Lock()
	defer d.mu.Unlock()
	v, n, err := retry(ctx, b, d, ep, func(t Transport) (uint8, error) {
		return t.ReadRegister(off)
	})
	if err != nil {
		return 0, n, &TransferError{Device: id, Endpoint: ep, Offset: int(off), Op: "read", Attempts: n, Err: err}
	}
	d.last = []byte{v}
	return v, n, nil
}

func (b *Bus) writeUint8(ctx context.Context, id DeviceID, ep Endpoint, off, v uint8) (int, error) {
	if !ep.valid() {
		return 0, fmt.Errorf("%w: %s", ErrAddressOutOfRange, ep)
	}
	d := b.device(ep)
	d.mu.Lock()
	defer d.mu.Unlock()
	_, n, err := retry(ctx, b, d, ep, func(t Transport) (struct{}, error) {
		return struct{}{}, t.WriteRegister(off, v)
	})
	if err != nil {
		return n, &TransferError{Device: id, Endpoint: ep, Offset: int(off), Op: "write", Attempts: n, Err: err}
	}
	return n, nil
}

func (b *Bus) readBlock(ctx context.Context, id DeviceID, ep Endpoint, off uint8, n int) ([]byte, error) {
	if !ep.valid() {
		return nil, fmt.Errorf("%w: %s", ErrAddressOutOfRange, ep)
	}
	if n < 0 || int(off)+n > 0x100 {
		return nil, fmt.Errorf("%w: %d bytes at %#x", ErrOffsetOutOfRange, n, off)
	}
	d := b.device(ep)
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]byte, 0, n)
	for len(out) < n {
		pos := int(off) + len(out)
		size := n - len(out)
		if size > BlockChunk {
			size = BlockChunk
		}
		chunk, attempts, err := retry(ctx, b, d, ep, func(t Transport) ([]byte, error) {
			return readChunk(t, uint8(pos), size)
		})
		if err != nil {
			return out, &TransferError{
				Device:   id,
				Endpoint: ep,
				Offset:   pos,
				Op:       "read block",
				Attempts: attempts,
				Err:      err,
				Partial:  append([]byte(nil), out...),
			}
		}
		out = append(out, chunk...)
	}
	d.last = append([]byte(nil), out...)
	return out, nil
}

// readChunk returns a fresh buffer so that an abandoned attempt never
// writes into memory seen by the caller.
func readChunk(t Transport, reg uint8, size int) ([]byte, error) {
	p := make([]byte, size)
	if br, ok := t.(BlockReader); ok {
		if err := br.ReadBlock(reg, p); err != nil {
			return nil, err
		}
		return p, nil
	}
	for i := range p {
		v, err := t.ReadRegister(reg + uint8(i))
		if err != nil {
			return nil, err
		}
		p[i] = v
	}
	return p, nil
}

// retry runs op until it succeeds, the attempts are exhausted, the deadline
// passes or ctx is done. It returns the number of attempts made.
func retry[T any](ctx context.Context, b *Bus, d *device, ep Endpoint, op func(Transport) (T, error)) (T, int, error) {
	var zero T
	var deadline time.Time
	if b.opts.Deadline > 0 {
		deadline = b.clock.Now().Add(b.opts.Deadline)
	}
	var bo *backoff.Backoff
	if b.opts.RetryDelay > 0 {
		ceiling := b.opts.MaxRetryDelay
		if ceiling < b.opts.RetryDelay {
			ceiling = b.opts.RetryDelay
		}
		bo = &backoff.Backoff{Min: b.opts.RetryDelay, Max: ceiling, Factor: 2}
	}
	var err error
	for n := 0; ; {
		if cerr := ctx.Err(); cerr != nil {
			return zero, n, stopped(cerr, err)
		}
		n++
		v, aerr := attempt(ctx, b, d, ep, op, deadline)
		if aerr == nil {
			return v, n, nil
		}
		err = aerr
		if n >= b.opts.Attempts {
			return zero, n, err
		}
		if !deadline.IsZero() && !b.clock.Now().Before(deadline) {
			return zero, n, stopped(context.DeadlineExceeded, err)
		}
		if bo == nil {
			continue
		}
		wait := bo.Duration()
		if !deadline.IsZero() {
			if rem := deadline.Sub(b.clock.Now()); rem < wait {
				wait = rem
			}
		}
		t := b.clock.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return zero, n, stopped(ctx.Err(), err)
		case <-t.Chan():
		}
	}
}

type result[T any] struct {
	v   T
	err error
}

// attempt runs op once against a freshly opened transport.
//
// When the attempt is abandoned on timeout or cancellation, op keeps running
// in its goroutine and the transport is closed once it returns. Until then d
// stays busy and the next attempt on d waits for it.
func attempt[T any](ctx context.Context, b *Bus, d *device, ep Endpoint, op func(Transport) (T, error), deadline time.Time) (T, error) {
	var zero T
	if err := d.settle(ctx, b.clock, deadline); err != nil {
		return zero, err
	}
	timeout := b.opts.AttemptTimeout
	if !deadline.IsZero() {
		rem := deadline.Sub(b.clock.Now())
		if rem <= 0 {
			return zero, context.DeadlineExceeded
		}
		if timeout == 0 || rem < timeout {
			timeout = rem
		}
	}
	if timeout == 0 && ctx.Done() == nil {
		return run(b, ep, op)
	}
	done := make(chan result[T], 1)
	busy := make(chan struct{})
	go func() {
		v, err := run(b, ep, op)
		close(busy)
		done <- result[T]{v, err}
	}()
	var expired <-chan time.Time
	if timeout > 0 {
		t := b.clock.NewTimer(timeout)
		defer t.Stop()
		expired = t.Chan()
	}
	select {
	case r := <-done:
		return r.v, r.err
	case <-expired:
		d.busy = busy
		return zero, ErrAttemptTimeout
	case <-ctx.Done():
		d.busy = busy
		return zero, ctx.Err()
	}
}

func run[T any](b *Bus, ep Endpoint, op func(Transport) (T, error)) (T, error) {
	t, err := b.opener.Open(ep)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("open %s: %w", ep, err)
	}
	// The register operation result wins over a Close error.
	defer t.Close()
	return op(t)
}

func stopped(cause, last error) error {
	if last == nil || errors.Is(last, cause) {
		return cause
	}
	return fmt.Errorf("%w: %w", cause, last)
}
