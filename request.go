package gpiocdev

// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/s2e-systems/gpiocdev/uapi"
)

// LineRequest is an exclusive reservation of a set of lines on one chip.
//
// The request owns its own file descriptor and outlives the Chip that
// created it. The reservation lasts until Release.
//
// Value and configuration methods are safe for concurrent use. Edge reads
// are serialized internally; one blocked reader at a time makes progress.
type LineRequest struct {
	chip string
	abi  ABI
	h    devHandle
	// isEvent marks a v1 event request, which serves a single line and
	// cannot be reconfigured or written.
	isEvent bool

	mu       sync.Mutex
	released bool
	// cfg is the effective configuration, kept current across
	// reconfigures so subset changes can be merged into a full config.
	cfg LineConfig

	evMu   sync.Mutex
	reader *EdgeEventReader
	halted atomic.Bool
	// streamActive guards against concurrent streams, under mu.
	streamActive bool
}

func newLineRequest(chip string, abi ABI, cfg *LineConfig, h devHandle) *LineRequest {
	r := &LineRequest{
		chip: chip,
		abi:  abi,
		h:    h,
		cfg:  *cfg,
	}
	r.cfg.Offsets = append([]uint32(nil), cfg.Offsets...)
	r.cfg.Overrides = append([]LineConfigOverride(nil), cfg.Overrides...)
	if cfg.edges() {
		r.isEvent = abi == ABIV1
		r.reader = newEdgeEventReader(h, abi, cfg.Offsets[0])
	}
	return r
}

// Offsets returns the chip offsets of the request, in request order. Bit
// positions in LineValues follow this order.
func (r *LineRequest) Offsets() []uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]uint32(nil), r.cfg.Offsets...)
}

// ABI returns the ABI generation serving the request.
func (r *LineRequest) ABI() ABI {
	return r.abi
}

// Chip returns the name of the chip the lines belong to.
func (r *LineRequest) Chip() string {
	return r.chip
}

func (r *LineRequest) checkLive() error {
	if r.released {
		return fmt.Errorf("%w: request released", ErrInvalidState)
	}
	return nil
}

// Values returns the logic levels of all lines of the request.
func (r *LineRequest) Values() (LineValues, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkLive(); err != nil {
		return LineValues{}, err
	}
	return r.values(fullMask(len(r.cfg.Offsets)))
}

// ValuesMasked returns the levels of the lines selected by mask, a bitmap in
// request order. Masks covering only part of the request require ABI v2.
func (r *LineRequest) ValuesMasked(mask uint64) (LineValues, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkLive(); err != nil {
		return LineValues{}, err
	}
	if err := r.checkMask(mask); err != nil {
		return LineValues{}, err
	}
	return r.values(mask)
}

func (r *LineRequest) checkMask(mask uint64) error {
	full := fullMask(len(r.cfg.Offsets))
	if mask == 0 {
		return fmt.Errorf("%w: empty line mask", ErrInvalidArgument)
	}
	if mask&^full != 0 {
		return fmt.Errorf("%w: mask selects lines outside the request", ErrInvalidArgument)
	}
	if r.abi == ABIV1 && mask != full {
		return fmt.Errorf("%w: masked line access requires ABI v2", ErrUnsupported)
	}
	return nil
}

func (r *LineRequest) values(mask uint64) (LineValues, error) {
	if r.abi == ABIV1 {
		var hd uapi.HandleData
		if err := r.h.Ioctl(uapi.GetLineValuesIoctl, unsafe.Pointer(&hd)); err != nil {
			return LineValues{}, classify("get line values", err)
		}
		v := LineValues{Mask: mask}
		for i := range r.cfg.Offsets {
			if hd[i] != 0 {
				v.Bits |= 1 << uint(i)
			}
		}
		return v, nil
	}
	lv := uapi.LineValues{Mask: mask}
	if err := r.h.Ioctl(uapi.GetLineValuesV2Ioctl, unsafe.Pointer(&lv)); err != nil {
		return LineValues{}, classify("get line values", err)
	}
	return LineValues{Bits: lv.Bits & mask, Mask: mask}, nil
}

// SetValues drives the output lines selected by values.Mask to values.Bits.
// Masks covering only part of the request require ABI v2.
func (r *LineRequest) SetValues(values LineValues) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkLive(); err != nil {
		return err
	}
	if err := r.checkMask(values.Mask); err != nil {
		return err
	}
	for i := range r.cfg.Offsets {
		if _, ok := values.Get(i); !ok {
			continue
		}
		if r.cfg.settingsFor(i).Direction == LineInput {
			return fmt.Errorf("%w: line %d is an input", ErrInvalidArgument, r.cfg.Offsets[i])
		}
	}
	if r.abi == ABIV1 {
		if r.isEvent {
			return fmt.Errorf("%w: v1 edge requests are read-only", ErrInvalidState)
		}
		var hd uapi.HandleData
		for i := range r.cfg.Offsets {
			if level, ok := values.Get(i); ok && level {
				hd[i] = 1
			}
		}
		if err := r.h.Ioctl(uapi.SetLineValuesIoctl, unsafe.Pointer(&hd)); err != nil {
			return classify("set line values", err)
		}
	} else {
		lv := uapi.LineValues{Bits: values.Bits & values.Mask, Mask: values.Mask}
		if err := r.h.Ioctl(uapi.SetLineValuesV2Ioctl, unsafe.Pointer(&lv)); err != nil {
			return classify("set line values", err)
		}
	}
	// Reconfigure re-submits the whole stored config, output values
	// included, so keep them at the driven levels.
	for i := range r.cfg.Offsets {
		if level, ok := values.Get(i); ok {
			r.cfg.OutputValues.Set(i, level)
		}
	}
	return nil
}

// Reconfigure changes the settings of the request's lines while the
// reservation is held.
//
// With no offsets the settings replace the defaults for every line,
// dropping any overrides. With offsets only those lines change; the rest
// keep their current configuration. Offsets must belong to the request.
//
// The kernel replaces the whole line configuration on each call, so the
// request re-submits its stored output values alongside the new settings.
// Changing edge detection, and any reconfigure of a v1 edge request,
// requires ABI v2.
func (r *LineRequest) Reconfigure(settings LineSettings, offsets ...uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkLive(); err != nil {
		return err
	}
	if r.isEvent {
		return fmt.Errorf("%w: reconfiguring a v1 edge request", ErrUnsupported)
	}
	cfg := r.cfg
	cfg.Offsets = append([]uint32(nil), r.cfg.Offsets...)
	cfg.Overrides = append([]LineConfigOverride(nil), r.cfg.Overrides...)
	if len(offsets) == 0 {
		cfg.Defaults = settings
		cfg.Overrides = nil
	} else {
		for _, o := range offsets {
			if cfg.index(o) < 0 {
				return fmt.Errorf("%w: offset %d outside the request", ErrInvalidArgument, o)
			}
		}
		if err := cfg.AddOverride(settings, offsets...); err != nil {
			return err
		}
	}
	if err := cfg.validate(0); err != nil {
		return err
	}
	if r.abi == ABIV1 {
		if cfg.edges() {
			return fmt.Errorf("%w: edge detection on a running request requires ABI v2", ErrUnsupported)
		}
		hc, err := encodeHandleConfig(&cfg)
		if err != nil {
			return err
		}
		if err := r.h.Ioctl(uapi.SetLineConfigIoctl, unsafe.Pointer(&hc)); err != nil {
			return classify("reconfigure lines", err)
		}
	} else {
		lc, err := encodeLineConfigV2(&cfg)
		if err != nil {
			return err
		}
		if err := r.h.Ioctl(uapi.SetLineConfigV2Ioctl, unsafe.Pointer(&lc)); err != nil {
			return classify("reconfigure lines", err)
		}
	}
	r.cfg = cfg
	return nil
}

// Release returns the lines to the kernel. The reservation ends and other
// requesters may claim them. Release is idempotent; any blocked edge read
// fails with ErrInvalidState or os.ErrClosed.
func (r *LineRequest) Release() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		return nil
	}
	r.released = true
	logger.Debugf("%s: released lines %v", r.chip, r.cfg.Offsets)
	return r.h.Close()
}

func (r *LineRequest) checkEdges() error {
	if r.reader == nil {
		return fmt.Errorf("%w: request has no edge detection", ErrInvalidState)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.checkLive()
}

// ReadEdgeEvent blocks until an edge event arrives and returns it. Halt and
// Release unblock a pending read, with ErrWouldBlock and ErrInvalidState
// respectively.
func (r *LineRequest) ReadEdgeEvent() (EdgeEvent, error) {
	return r.readEdgeEvent(time.Time{})
}

// WaitForEdge is ReadEdgeEvent bounded by a timeout, reported as
// ErrWouldBlock. A zero or negative timeout blocks indefinitely.
func (r *LineRequest) WaitForEdge(timeout time.Duration) (EdgeEvent, error) {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	return r.readEdgeEvent(deadline)
}

func (r *LineRequest) readEdgeEvent(deadline time.Time) (EdgeEvent, error) {
	if err := r.checkEdges(); err != nil {
		return EdgeEvent{}, err
	}
	r.evMu.Lock()
	defer r.evMu.Unlock()
	if err := r.h.SetReadDeadline(deadline); err != nil {
		return EdgeEvent{}, classify("read edge event", err)
	}
	// Ordered after the deadline reset so a Halt racing in cannot be
	// wiped: Halt sets the flag before it sets its own deadline.
	if r.halted.CompareAndSwap(true, false) {
		return EdgeEvent{}, fmt.Errorf("read edge event: halted: %w", ErrWouldBlock)
	}
	ev, err := r.reader.Read()
	if err != nil {
		switch {
		case errors.Is(err, os.ErrDeadlineExceeded):
			if r.halted.CompareAndSwap(true, false) {
				return EdgeEvent{}, fmt.Errorf("read edge event: halted: %w", ErrWouldBlock)
			}
			return EdgeEvent{}, fmt.Errorf("read edge event: timeout: %w", ErrWouldBlock)
		case errors.Is(err, os.ErrClosed):
			return EdgeEvent{}, fmt.Errorf("read edge event: %w", ErrInvalidState)
		}
		return EdgeEvent{}, classify("read edge event", err)
	}
	return ev, nil
}

// TryReadEdgeEvent returns a buffered edge event, or ErrWouldBlock without
// blocking when none is pending.
func (r *LineRequest) TryReadEdgeEvent() (EdgeEvent, error) {
	if err := r.checkEdges(); err != nil {
		return EdgeEvent{}, err
	}
	r.evMu.Lock()
	defer r.evMu.Unlock()
	return r.reader.TryRead()
}

// Halt unblocks a pending ReadEdgeEvent, or fails the next one if none is
// pending, with ErrWouldBlock. The request stays usable.
func (r *LineRequest) Halt() error {
	if r.reader == nil {
		return fmt.Errorf("%w: request has no edge detection", ErrInvalidState)
	}
	r.halted.Store(true)
	return r.h.SetReadDeadline(haltTime)
}

// EventOverflows returns the number of edge events known lost to kernel
// buffer overflow, counted from sequence number gaps. Always zero under v1.
func (r *LineRequest) EventOverflows() uint64 {
	if r.reader == nil {
		return 0
	}
	r.evMu.Lock()
	defer r.evMu.Unlock()
	return r.reader.Overflows()
}

// NewEventStream starts a goroutine reading edge events into a channel of
// the given capacity, 16 if zero or less. One stream at a time; stop it
// before starting another. A full channel blocks the goroutine, leaving
// backpressure to the kernel event buffer.
func (r *LineRequest) NewEventStream(capacity int) (*EventStream, error) {
	if err := r.checkEdges(); err != nil {
		return nil, err
	}
	if capacity <= 0 {
		capacity = 16
	}
	r.mu.Lock()
	if r.streamActive {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: another event stream is active", ErrInvalidState)
	}
	r.streamActive = true
	r.mu.Unlock()
	events := make(chan EdgeEvent, capacity)
	s := &EventStream{
		Events: events,
		req:    r,
		halt:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go s.run(events)
	return s, nil
}
