package gpiocdev

// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

import "time"

// LineDir is the direction of a GPIO line.
type LineDir uint8

const (
	// LineDirNotSet leaves the direction as-is.
	LineDirNotSet LineDir = iota
	// LineInput configures the line as an input.
	LineInput
	// LineOutput configures the line as an output.
	LineOutput
)

var directionLabels = []string{"NotSet", "Input", "Output"}

func (d LineDir) String() string {
	if int(d) >= len(directionLabels) {
		return "Unknown"
	}
	return directionLabels[d]
}

// Bias is the input termination of a GPIO line.
type Bias uint8

const (
	// BiasNotSet leaves the bias as-is.
	BiasNotSet Bias = iota
	// BiasDisabled disables the internal bias.
	BiasDisabled
	// BiasPullUp pulls the line up to the power rail.
	BiasPullUp
	// BiasPullDown pulls the line down to ground.
	BiasPullDown
)

var biasLabels = []string{"NotSet", "Disabled", "PullUp", "PullDown"}

func (b Bias) String() string {
	if int(b) >= len(biasLabels) {
		return "Unknown"
	}
	return biasLabels[b]
}

// Drive is the output driver mode of a GPIO line.
type Drive uint8

const (
	// DrivePushPull drives the line both high and low.
	DrivePushPull Drive = iota
	// DriveOpenDrain drives the line low and floats it high.
	DriveOpenDrain
	// DriveOpenSource drives the line high and floats it low.
	DriveOpenSource
)

var driveLabels = []string{"PushPull", "OpenDrain", "OpenSource"}

func (d Drive) String() string {
	if int(d) >= len(driveLabels) {
		return "Unknown"
	}
	return driveLabels[d]
}

// Edge is an edge detection setting, or the edge carried by an event.
type Edge uint8

const (
	// EdgeNone disables edge detection.
	EdgeNone Edge = iota
	// EdgeRising detects transitions from low to high.
	EdgeRising
	// EdgeFalling detects transitions from high to low.
	EdgeFalling
	// EdgeBoth detects both transitions.
	EdgeBoth
)

var edgeLabels = []string{"NoEdge", "RisingEdge", "FallingEdge", "BothEdges"}

func (e Edge) String() string {
	if int(e) >= len(edgeLabels) {
		return "Unknown"
	}
	return edgeLabels[e]
}

// ChipInfo is the static description of a GPIO chip.
type ChipInfo struct {
	// The kernel name of the device, e.g. "gpiochip0".
	Name string

	// The label added by the device driver. Falls back to Name if the
	// driver provides none.
	Label string

	// The number of lines the chip supports.
	Lines int
}

// LineInfo is a snapshot of the kernel-reported state of one line.
//
// It is not kept up to date; another process may request or reconfigure the
// line at any time. Re-query or watch the line to observe changes.
type LineInfo struct {
	// The offset of the line on its chip.
	Offset uint32

	// The name supplied by the device driver. May be empty.
	Name string

	// The consumer label of the current owner, if any.
	Consumer string

	// Used indicates the line is held by the kernel or by a request.
	Used bool

	// ActiveLow indicates logical and physical levels are inverted.
	ActiveLow bool

	// The direction of the line.
	Direction LineDir

	// The input bias of the line.
	Bias Bias

	// The output drive mode of the line.
	Drive Drive

	// The edge detection in effect. Always EdgeNone under ABI v1, which
	// does not report edge state.
	Edge Edge

	// The debounce period in effect. Always zero under ABI v1.
	Debounce time.Duration
}

// EdgeEvent is a single edge transition reported on a requested line.
type EdgeEvent struct {
	// The chip offset of the line. Supplied by the kernel under v2;
	// stamped by the reader under v1, where each event fd serves exactly
	// one line.
	Offset uint32

	// EdgeRising or EdgeFalling.
	Edge Edge

	// The kernel timestamp of the transition, nanoseconds in the
	// monotonic clock domain.
	Timestamp time.Duration

	// Sequence number of the event across all lines of the request.
	// Zero under v1, which has no sequence numbers. Gaps indicate
	// overflow of the kernel event buffer.
	Seqno uint32

	// Sequence number of the event on its line. Zero under v1.
	LineSeqno uint32
}

// ChangeKind is the kind of change reported for a watched line.
type ChangeKind uint8

const (
	// LineRequested indicates the line has been requested.
	LineRequested ChangeKind = iota + 1
	// LineReleased indicates the line has been released.
	LineReleased
	// LineReconfigured indicates the line configuration changed.
	LineReconfigured
)

var changeLabels = []string{"", "Requested", "Released", "Reconfigured"}

func (k ChangeKind) String() string {
	if k == 0 || int(k) >= len(changeLabels) {
		return "Unknown"
	}
	return changeLabels[k]
}

// LineInfoChangeEvent reports a change to the info of a watched line.
type LineInfoChangeEvent struct {
	// The kind of change.
	Kind ChangeKind

	// The info after the change.
	Info LineInfo

	// The kernel timestamp of the change, in nanoseconds.
	Timestamp time.Duration
}

// InfoChangeHandler receives info change events for a watched line. It is
// called from the chip's watch goroutine and must not block.
type InfoChangeHandler func(LineInfoChangeEvent)
