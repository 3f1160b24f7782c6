//go:build !386

package uapi

// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// EventData is a v1 edge event, read from the event request fd.
//
// The kernel struct contains a u64 so on 64-bit alignment targets the
// record carries 4 bytes of trailing padding.
type EventData struct {
	// The time the event was detected, in nanoseconds.
	Timestamp uint64

	// The kind of edge, EventRisingEdgeID or EventFallingEdgeID.
	ID uint32

	// trailing padding on 64-bit alignment targets.
	_ uint32
}
