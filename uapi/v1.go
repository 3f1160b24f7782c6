package uapi

// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// The first generation of the GPIO chardev ABI, deprecated in kernel 5.10
// but still the only one available on older kernels.

import "unsafe"

// ChipInfo is the information about a GPIO chip, common to both ABI
// generations.
type ChipInfo struct {
	// The system name of the device.
	Name [MaxNameSize]byte

	// An identifying label added by the device driver.
	Label [MaxNameSize]byte

	// The number of lines supported by this chip.
	Lines uint32
}

// LineInfo is the v1 information about one line of a GPIO chip.
type LineInfo struct {
	// The offset of the line within the chip.
	Offset uint32

	// The current state of the line.
	Flags LineFlag

	// The system name for this line.
	Name [MaxNameSize]byte

	// The consumer label of the current user, if requested.
	Consumer [MaxNameSize]byte
}

// LineInfoChanged is the v1 record delivered on the chip fd when info of a
// watched line changes.
type LineInfoChanged struct {
	// The updated info.
	Info LineInfo

	// The best estimate of the time of the change, in nanoseconds.
	Timestamp uint64

	// The type of change.
	Type ChangeType

	// reserved for future use.
	_ [5]uint32
}

// LineFlag are the v1 line info flags.
type LineFlag uint32

const (
	// LineFlagUsed indicates the line is in use, by the kernel or by a
	// request. A used line cannot be requested (again).
	LineFlagUsed LineFlag = 1 << iota

	// LineFlagIsOut indicates the line is an output.
	LineFlagIsOut

	// LineFlagActiveLow indicates the line is active low.
	LineFlagActiveLow

	// LineFlagOpenDrain indicates the line drives low but floats high.
	LineFlagOpenDrain

	// LineFlagOpenSource indicates the line drives high but floats low.
	LineFlagOpenSource

	// LineFlagBiasPullUp indicates the internal pull up is enabled.
	LineFlagBiasPullUp

	// LineFlagBiasPullDown indicates the internal pull down is enabled.
	LineFlagBiasPullDown

	// LineFlagBiasDisabled indicates the internal bias is disabled.
	LineFlagBiasDisabled
)

// HandleRequest is a v1 request for control of a set of lines.
type HandleRequest struct {
	// The lines to be requested.
	Offsets [LinesMax]uint32

	// The flags applied to all lines in the request.
	Flags HandleFlag

	// The initial values applied to output lines, one byte per line in
	// request order.
	DefaultValues [LinesMax]uint8

	// The string identifying the requester.
	Consumer [MaxNameSize]byte

	// The number of lines being requested.
	Lines uint32

	// The file descriptor for the requested lines, set by the kernel on
	// success.
	Fd int32
}

// HandleConfig changes the configuration of an existing handle request.
//
// Event requests cannot be reconfigured.
type HandleConfig struct {
	// The flags to apply to the lines.
	Flags HandleFlag

	// The values to apply to output lines.
	DefaultValues [LinesMax]uint8

	// reserved for future use.
	_ [4]uint32
}

// HandleData carries the logic level of each line in a handle request, in
// request order. Zero is low, any other value high.
type HandleData [LinesMax]uint8

// HandleFlag are the v1 request flags.
type HandleFlag uint32

const (
	// HandleRequestInput requests the lines as inputs.
	HandleRequestInput HandleFlag = 1 << iota

	// HandleRequestOutput requests the lines as outputs. Takes precedence
	// over HandleRequestInput if both are set.
	HandleRequestOutput

	// HandleRequestActiveLow requests the lines be active low.
	HandleRequestActiveLow

	// HandleRequestOpenDrain requests open-drain outputs. Mutually
	// exclusive with HandleRequestOpenSource.
	HandleRequestOpenDrain

	// HandleRequestOpenSource requests open-source outputs.
	HandleRequestOpenSource

	// HandleRequestBiasPullUp requests pull-up bias.
	HandleRequestBiasPullUp

	// HandleRequestBiasPullDown requests pull-down bias.
	HandleRequestBiasPullDown

	// HandleRequestBiasDisable requests bias be disabled.
	HandleRequestBiasDisable
)

// EventRequest is a v1 request for a single line with edge detection
// enabled. Each v1 event request owns its own fd.
type EventRequest struct {
	// The line to be requested.
	Offset uint32

	// The handle flags applied to the line. Edge detection implies input.
	HandleFlags HandleFlag

	// The edges to report.
	EventFlags EventFlag

	// The string identifying the requester.
	Consumer [MaxNameSize]byte

	// The file descriptor for the requested line, set by the kernel on
	// success.
	Fd int32
}

// EventFlag selects the edges reported by a v1 event request.
type EventFlag uint32

const (
	// EventRequestRisingEdge requests events on rising edges, in the
	// logical sense: low to high for active high lines, the inverse for
	// active low lines.
	EventRequestRisingEdge EventFlag = 1 << iota

	// EventRequestFallingEdge requests events on falling edges.
	EventRequestFallingEdge

	// EventRequestBothEdges requests events on both edges.
	EventRequestBothEdges = EventRequestRisingEdge | EventRequestFallingEdge
)

// v1 edge event identifiers, in EventData.ID.
const (
	EventRisingEdgeID  uint32 = 1
	EventFallingEdgeID uint32 = 2
)

// V1 ioctl command codes. Computed at init as they depend on struct sizes.
var (
	GetChipInfoIoctl     uintptr
	GetLineInfoIoctl     uintptr
	GetLineHandleIoctl   uintptr
	GetLineEventIoctl    uintptr
	GetLineValuesIoctl   uintptr
	SetLineValuesIoctl   uintptr
	SetLineConfigIoctl   uintptr
	WatchLineInfoIoctl   uintptr
	UnwatchLineInfoIoctl uintptr
)

func init() {
	var ci ChipInfo
	GetChipInfoIoctl = _IOR(Magic, 0x01, unsafe.Sizeof(ci))
	var li LineInfo
	GetLineInfoIoctl = _IOWR(Magic, 0x02, unsafe.Sizeof(li))
	var hr HandleRequest
	GetLineHandleIoctl = _IOWR(Magic, 0x03, unsafe.Sizeof(hr))
	var er EventRequest
	GetLineEventIoctl = _IOWR(Magic, 0x04, unsafe.Sizeof(er))
	var hd HandleData
	GetLineValuesIoctl = _IOWR(Magic, 0x08, unsafe.Sizeof(hd))
	SetLineValuesIoctl = _IOWR(Magic, 0x09, unsafe.Sizeof(hd))
	var hc HandleConfig
	SetLineConfigIoctl = _IOWR(Magic, 0x0a, unsafe.Sizeof(hc))
	WatchLineInfoIoctl = _IOWR(Magic, 0x0b, unsafe.Sizeof(li))
	// Unwatch takes a bare offset and is shared by both ABI generations.
	UnwatchLineInfoIoctl = _IOWR(Magic, 0x0c, unsafe.Sizeof(li.Offset))
}
