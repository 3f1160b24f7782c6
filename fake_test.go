package gpiocdev

// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

import (
	"os"
	"sync"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/s2e-systems/gpiocdev/uapi"
)

// fakeHandle stands in for a kernel fd. Ioctls are routed to a test-supplied
// closure that reads and writes the ABI structs in place, and reads are fed
// from a channel of byte chunks so tests control record boundaries.
type fakeHandle struct {
	ioctl func(req uintptr, arg unsafe.Pointer) error

	data chan []byte

	mu        sync.Mutex
	deadline  time.Time
	dlChanged chan struct{}
	closed    chan struct{}
	closeOnce sync.Once
	pending   []byte
}

func newFakeHandle(ioctl func(req uintptr, arg unsafe.Pointer) error) *fakeHandle {
	return &fakeHandle{
		ioctl:     ioctl,
		data:      make(chan []byte, 64),
		dlChanged: make(chan struct{}, 1),
		closed:    make(chan struct{}),
	}
}

func (h *fakeHandle) push(b []byte) {
	h.data <- b
}

func (h *fakeHandle) Ioctl(req uintptr, arg unsafe.Pointer) error {
	select {
	case <-h.closed:
		return os.ErrClosed
	default:
	}
	if h.ioctl == nil {
		return unix.ENOTTY
	}
	return h.ioctl(req, arg)
}

func (h *fakeHandle) Read(p []byte) (int, error) {
	for {
		if len(h.pending) > 0 {
			n := copy(p, h.pending)
			h.pending = h.pending[n:]
			return n, nil
		}
		h.mu.Lock()
		dl := h.deadline
		h.mu.Unlock()
		var timeout <-chan time.Time
		if !dl.IsZero() {
			d := time.Until(dl)
			if d <= 0 {
				return 0, os.ErrDeadlineExceeded
			}
			timer := time.NewTimer(d)
			defer timer.Stop()
			timeout = timer.C
		}
		select {
		case b := <-h.data:
			h.pending = b
		case <-h.closed:
			return 0, os.ErrClosed
		case <-timeout:
			return 0, os.ErrDeadlineExceeded
		case <-h.dlChanged:
		}
	}
}

func (h *fakeHandle) TryRead(p []byte) (int, error) {
	select {
	case <-h.closed:
		return 0, os.ErrClosed
	default:
	}
	if len(h.pending) == 0 {
		select {
		case b := <-h.data:
			h.pending = b
		default:
			return 0, unix.EAGAIN
		}
	}
	n := copy(p, h.pending)
	h.pending = h.pending[n:]
	return n, nil
}

func (h *fakeHandle) SetReadDeadline(t time.Time) error {
	h.mu.Lock()
	h.deadline = t
	h.mu.Unlock()
	select {
	case h.dlChanged <- struct{}{}:
	default:
	}
	return nil
}

func (h *fakeHandle) Close() error {
	h.closeOnce.Do(func() { close(h.closed) })
	return nil
}

// structBytes views a fixed-layout ABI struct as its native byte image, for
// feeding fake reads.
func structBytes[T any](v *T) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(v)), unsafe.Sizeof(*v))
}

// fakeV2Lines emulates the value state behind a v2 request fd for an
// n-line request.
type fakeV2Lines struct {
	mu   sync.Mutex
	bits uint64
	// lastConfig records the most recent set-config payload.
	lastConfig *uapi.LineConfig
}

func (k *fakeV2Lines) ioctl(req uintptr, arg unsafe.Pointer) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	switch req {
	case uapi.GetLineValuesV2Ioctl:
		lv := (*uapi.LineValues)(arg)
		lv.Bits = k.bits & lv.Mask
		return nil
	case uapi.SetLineValuesV2Ioctl:
		lv := (*uapi.LineValues)(arg)
		k.bits = k.bits&^lv.Mask | lv.Bits&lv.Mask
		return nil
	case uapi.SetLineConfigV2Ioctl:
		lc := *(*uapi.LineConfig)(arg)
		k.lastConfig = &lc
		return nil
	}
	return unix.EINVAL
}

// fakeV1Lines emulates the value state behind a v1 handle fd.
type fakeV1Lines struct {
	mu     sync.Mutex
	levels uapi.HandleData
}

func (k *fakeV1Lines) ioctl(req uintptr, arg unsafe.Pointer) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	switch req {
	case uapi.GetLineValuesIoctl:
		hd := (*uapi.HandleData)(arg)
		*hd = k.levels
		return nil
	case uapi.SetLineValuesIoctl:
		k.levels = *(*uapi.HandleData)(arg)
		return nil
	case uapi.SetLineConfigIoctl:
		return nil
	}
	return unix.EINVAL
}

// newV2Event builds the byte image of a v2 edge event.
func newV2Event(offset uint32, rising bool, seqno, lineSeqno uint32, ts uint64) []byte {
	le := uapi.LineEvent{
		Timestamp: ts,
		ID:        uapi.LineEventFallingEdgeID,
		Offset:    offset,
		Seqno:     seqno,
		LineSeqno: lineSeqno,
	}
	if rising {
		le.ID = uapi.LineEventRisingEdgeID
	}
	return append([]byte(nil), structBytes(&le)...)
}

// newV1Event builds the byte image of a v1 edge event.
func newV1Event(rising bool, ts uint64) []byte {
	ed := uapi.EventData{
		Timestamp: ts,
		ID:        uapi.EventFallingEdgeID,
	}
	if rising {
		ed.ID = uapi.EventRisingEdgeID
	}
	return append([]byte(nil), structBytes(&ed)...)
}
