package gpiocdev

// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/s2e-systems/gpiocdev/uapi"
)

// EdgeEventReader turns the byte stream of a request fd into EdgeEvents.
//
// The kernel writes whole records, but reads may still deliver partial ones
// when the caller races an interrupted read, so the reader accumulates bytes
// across reads until a full record is buffered. Under v1 the record carries
// no offset; the reader stamps the one line the fd serves.
//
// Methods must not be called concurrently; LineRequest serializes access.
type EdgeEventReader struct {
	h          devHandle
	abi        ABI
	offset     uint32 // the line a v1 event fd serves
	recordSize int

	buf  []byte
	fill int

	// lastSeqno tracks v2 request-level sequence numbers; gaps mean the
	// kernel event buffer overflowed and events were lost.
	lastSeqno uint32
	overflows uint64
}

func newEdgeEventReader(h devHandle, abi ABI, offset uint32) *EdgeEventReader {
	recordSize := uapi.LineEventSize
	if abi == ABIV1 {
		recordSize = uapi.EventDataSize
	}
	return &EdgeEventReader{
		h:          h,
		abi:        abi,
		offset:     offset,
		recordSize: recordSize,
		buf:        make([]byte, 16*recordSize),
	}
}

// Overflows returns the number of events known lost to kernel buffer
// overflow, detected as gaps in the request sequence numbers. Always zero
// under v1, which has no sequence numbers.
func (r *EdgeEventReader) Overflows() uint64 {
	return r.overflows
}

// Read blocks until one event is available, the handle's read deadline
// expires, or the handle is closed.
func (r *EdgeEventReader) Read() (EdgeEvent, error) {
	for r.fill < r.recordSize {
		n, err := r.h.Read(r.buf[r.fill:])
		if err != nil {
			return EdgeEvent{}, err
		}
		r.fill += n
	}
	return r.pop()
}

// TryRead returns one event if the fd has one buffered, and ErrWouldBlock
// otherwise. It never blocks.
func (r *EdgeEventReader) TryRead() (EdgeEvent, error) {
	for r.fill < r.recordSize {
		n, err := r.h.TryRead(r.buf[r.fill:])
		if err != nil {
			if errors.Is(err, unix.EAGAIN) {
				return EdgeEvent{}, fmt.Errorf("read edge event: %w", ErrWouldBlock)
			}
			return EdgeEvent{}, classify("read edge event", err)
		}
		if n == 0 {
			return EdgeEvent{}, fmt.Errorf("read edge event: %w", ErrWouldBlock)
		}
		r.fill += n
	}
	return r.pop()
}

// pop decodes and removes the first buffered record.
func (r *EdgeEventReader) pop() (EdgeEvent, error) {
	record := r.buf[:r.recordSize]
	var ev EdgeEvent
	if r.abi == ABIV1 {
		ed, err := uapi.DecodeEventData(record)
		if err != nil {
			return EdgeEvent{}, fmt.Errorf("%w: %v", ErrDecode, err)
		}
		ev = decodeEdgeEventV1(ed, r.offset)
	} else {
		le, err := uapi.DecodeLineEvent(record)
		if err != nil {
			return EdgeEvent{}, fmt.Errorf("%w: %v", ErrDecode, err)
		}
		ev = decodeEdgeEventV2(le)
	}
	r.fill = copy(r.buf, r.buf[r.recordSize:r.fill])
	if ev.Edge == EdgeNone {
		return EdgeEvent{}, fmt.Errorf("%w: unknown edge event id", ErrDecode)
	}
	if ev.Seqno != 0 {
		if r.lastSeqno != 0 && ev.Seqno > r.lastSeqno+1 {
			lost := uint64(ev.Seqno - r.lastSeqno - 1)
			r.overflows += lost
			logger.Debugf("edge event seqno jumped %d to %d, %d events lost", r.lastSeqno, ev.Seqno, lost)
		}
		r.lastSeqno = ev.Seqno
	}
	return ev, nil
}

// EventStream delivers edge events on a channel, read by a dedicated
// goroutine.
//
// The channel closes when the stream is stopped, the request is released,
// or reading fails; Err distinguishes the last case. A full channel blocks
// the goroutine, pushing backpressure into the kernel event buffer rather
// than dropping events here.
type EventStream struct {
	// Events delivers the edge events in kernel order.
	Events <-chan EdgeEvent

	req  *LineRequest
	halt chan struct{}
	done chan struct{}

	mu      sync.Mutex
	stopped bool
	err     error
}

// Err returns the error that terminated the stream, if any, once the Events
// channel has closed.
func (s *EventStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Stop halts the stream's reader and closes the Events channel. Events
// already in the channel remain readable, though one in flight may be
// dropped. Stop is idempotent and does not release the request.
func (s *EventStream) Stop() {
	s.mu.Lock()
	if !s.stopped {
		s.stopped = true
		close(s.halt)
	}
	s.mu.Unlock()
	s.req.Halt()
	<-s.done
	// The reader may have exited on the halt channel while blocked
	// delivering, without consuming the pending halt. A fresh stream, or
	// a direct read, must not inherit it.
	s.req.halted.CompareAndSwap(true, false)
}

func (s *EventStream) run(events chan<- EdgeEvent) {
	defer close(s.done)
	defer close(events)
	defer func() {
		s.req.mu.Lock()
		s.req.streamActive = false
		s.req.mu.Unlock()
	}()
	for {
		ev, err := s.req.ReadEdgeEvent()
		if err != nil {
			s.mu.Lock()
			if !s.stopped && !errors.Is(err, os.ErrClosed) && !errors.Is(err, ErrInvalidState) && !errors.Is(err, ErrWouldBlock) {
				s.err = err
			}
			s.mu.Unlock()
			return
		}
		select {
		case events <- ev:
		case <-s.halt:
			return
		}
	}
}

// haltTime is the past deadline used to kick blocked readers.
var haltTime = time.UnixMilli(0)
