package uapi

// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// The second generation of the GPIO chardev ABI, available since kernel
// 5.10. Adds per-line attributes, edge detection on handle requests,
// debounce and masked value access.

import "unsafe"

// LineFlagV2 are the v2 line flags, used in both line info and line config.
type LineFlagV2 uint64

const (
	// LineFlagV2Used indicates the line is in use.
	LineFlagV2Used LineFlagV2 = 1 << iota

	// LineFlagV2ActiveLow indicates the line is active low.
	LineFlagV2ActiveLow

	// LineFlagV2Input indicates the line is an input.
	LineFlagV2Input

	// LineFlagV2Output indicates the line is an output.
	LineFlagV2Output

	// LineFlagV2EdgeRising indicates rising edge detection is enabled.
	LineFlagV2EdgeRising

	// LineFlagV2EdgeFalling indicates falling edge detection is enabled.
	LineFlagV2EdgeFalling

	// LineFlagV2OpenDrain indicates the line is an open-drain output.
	LineFlagV2OpenDrain

	// LineFlagV2OpenSource indicates the line is an open-source output.
	LineFlagV2OpenSource

	// LineFlagV2BiasPullUp indicates the internal pull up is enabled.
	LineFlagV2BiasPullUp

	// LineFlagV2BiasPullDown indicates the internal pull down is enabled.
	LineFlagV2BiasPullDown

	// LineFlagV2BiasDisabled indicates the internal bias is disabled.
	LineFlagV2BiasDisabled

	// LineFlagV2EventClockRealtime indicates events carry realtime
	// timestamps instead of monotonic ones.
	LineFlagV2EventClockRealtime

	// LineFlagV2EventClockHTE indicates events are timestamped by a
	// hardware timestamping engine.
	LineFlagV2EventClockHTE
)

// LineFlagV2EdgeBoth is the mask of both edge detection flags.
const LineFlagV2EdgeBoth = LineFlagV2EdgeRising | LineFlagV2EdgeFalling

// Identifiers for the LineAttribute union.
const (
	// LineAttrIDFlags identifies the value as a LineFlagV2 set.
	LineAttrIDFlags uint32 = 1

	// LineAttrIDOutputValues identifies the value as a bitmap of output
	// values.
	LineAttrIDOutputValues uint32 = 2

	// LineAttrIDDebounce identifies the value as a debounce period in
	// microseconds, in the low 32 bits.
	LineAttrIDDebounce uint32 = 3
)

// LineAttribute is a configurable attribute of a line.
//
// Value is a union in the kernel; its interpretation depends on ID.
type LineAttribute struct {
	// The attribute identifier, one of the LineAttrID values.
	ID uint32

	// explicit padding, reserved.
	_ uint32

	// The attribute value.
	Value uint64
}

// LineConfigAttribute associates a LineAttribute with the requested lines it
// applies to.
type LineConfigAttribute struct {
	// The attribute to be applied.
	Attr LineAttribute

	// A bitmap identifying the lines the attribute applies to, by index
	// into the request offsets.
	Mask uint64
}

// LineConfig is the v2 configuration for a set of requested lines.
type LineConfig struct {
	// The flags applied to all lines, unless overridden by an attribute.
	Flags LineFlagV2

	// The number of attributes in Attrs.
	NumAttrs uint32

	// reserved for future use.
	_ [5]uint32

	// The per-line attribute overrides.
	Attrs [LineNumAttrsMax]LineConfigAttribute
}

// LineRequest is a v2 request for control of a set of lines.
type LineRequest struct {
	// The lines to be requested.
	Offsets [LinesMax]uint32

	// The string identifying the requester.
	Consumer [MaxNameSize]byte

	// The requested configuration.
	Config LineConfig

	// The number of lines being requested.
	Lines uint32

	// A suggested minimum size for the kernel edge event buffer. Zero
	// selects the kernel default.
	EventBufferSize uint32

	// reserved for future use.
	_ [5]uint32

	// The file descriptor for the requested lines, set by the kernel on
	// success.
	Fd int32
}

// LineValues carries the logic levels for a v2 request. Bit positions index
// the request offsets. Only the bits selected by Mask are significant.
type LineValues struct {
	// The logic levels.
	Bits uint64

	// The lines to get or set.
	Mask uint64
}

// LineInfoV2 is the v2 information about one line of a GPIO chip.
type LineInfoV2 struct {
	// The system name for this line.
	Name [MaxNameSize]byte

	// The consumer label of the current user, if requested.
	Consumer [MaxNameSize]byte

	// The offset of the line within the chip.
	Offset uint32

	// The number of attributes in Attrs.
	NumAttrs uint32

	// The current state of the line.
	Flags LineFlagV2

	// The configured attributes of the line.
	Attrs [LineNumAttrsMax]LineAttribute

	// reserved for future use.
	_ [4]uint32
}

// LineInfoChangedV2 is the v2 record delivered on the chip fd when info of a
// watched line changes.
type LineInfoChangedV2 struct {
	// The updated info.
	Info LineInfoV2

	// The time of the change, in nanoseconds.
	Timestamp uint64

	// The type of change.
	Type ChangeType

	// reserved for future use.
	_ [5]uint32
}

// ChangeType indicates the kind of change reported for a watched line.
type ChangeType uint32

const (
	_ ChangeType = iota

	// LineChangedRequested indicates the line has been requested.
	LineChangedRequested

	// LineChangedReleased indicates the line has been released.
	LineChangedReleased

	// LineChangedConfig indicates the line configuration has changed.
	LineChangedConfig
)

// LineEvent is a v2 edge event, read from the request fd.
type LineEvent struct {
	// The time the event was detected, in nanoseconds.
	Timestamp uint64

	// The kind of edge, LineEventRisingEdgeID or LineEventFallingEdgeID.
	ID uint32

	// The chip offset of the line on which the event occurred.
	Offset uint32

	// A sequence number for this event in all events on this request.
	Seqno uint32

	// A sequence number for this event in events on this line.
	LineSeqno uint32

	// reserved for future use.
	_ [6]uint32
}

// v2 edge event identifiers, in LineEvent.ID.
const (
	LineEventRisingEdgeID  uint32 = 1
	LineEventFallingEdgeID uint32 = 2
)

// V2 ioctl command codes.
var (
	GetLineInfoV2Ioctl   uintptr
	WatchLineInfoV2Ioctl uintptr
	GetLineIoctl         uintptr
	SetLineConfigV2Ioctl uintptr
	GetLineValuesV2Ioctl uintptr
	SetLineValuesV2Ioctl uintptr
)

func init() {
	var li LineInfoV2
	GetLineInfoV2Ioctl = _IOWR(Magic, 0x05, unsafe.Sizeof(li))
	WatchLineInfoV2Ioctl = _IOWR(Magic, 0x06, unsafe.Sizeof(li))
	var lr LineRequest
	GetLineIoctl = _IOWR(Magic, 0x07, unsafe.Sizeof(lr))
	var lc LineConfig
	SetLineConfigV2Ioctl = _IOWR(Magic, 0x0d, unsafe.Sizeof(lc))
	var lv LineValues
	GetLineValuesV2Ioctl = _IOWR(Magic, 0x0e, unsafe.Sizeof(lv))
	SetLineValuesV2Ioctl = _IOWR(Magic, 0x0f, unsafe.Sizeof(lv))
}
