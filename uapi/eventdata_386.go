//go:build 386

package uapi

// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// EventData is a v1 edge event, read from the event request fd.
//
// i386 aligns u64 to 4 bytes so the record has no trailing padding there.
type EventData struct {
	// The time the event was detected, in nanoseconds.
	Timestamp uint64

	// The kind of edge, EventRisingEdgeID or EventFallingEdgeID.
	ID uint32
}
