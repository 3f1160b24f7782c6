package gpiocdev

// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Translation between the package's typed model and the uapi structures of
// the two ABI generations. Pure transforms; the version-specific flag bit
// positions never leak past this file.

import (
	"fmt"
	"time"

	"github.com/s2e-systems/gpiocdev/uapi"
)

// v1HandleFlags maps settings to v1 request flags. Settings v1 cannot
// express fail with ErrUnsupported.
func v1HandleFlags(s LineSettings) (uapi.HandleFlag, error) {
	if s.Debounce != 0 {
		return 0, fmt.Errorf("%w: debounce requires ABI v2", ErrUnsupported)
	}
	var flags uapi.HandleFlag
	switch s.Direction {
	case LineInput:
		flags |= uapi.HandleRequestInput
	case LineOutput:
		flags |= uapi.HandleRequestOutput
	}
	if s.ActiveLow {
		flags |= uapi.HandleRequestActiveLow
	}
	switch s.Drive {
	case DriveOpenDrain:
		flags |= uapi.HandleRequestOpenDrain
	case DriveOpenSource:
		flags |= uapi.HandleRequestOpenSource
	}
	switch s.Bias {
	case BiasPullUp:
		flags |= uapi.HandleRequestBiasPullUp
	case BiasPullDown:
		flags |= uapi.HandleRequestBiasPullDown
	case BiasDisabled:
		flags |= uapi.HandleRequestBiasDisable
	}
	return flags, nil
}

// v1EventFlags maps an edge setting to v1 event request flags.
func v1EventFlags(e Edge) uapi.EventFlag {
	switch e {
	case EdgeRising:
		return uapi.EventRequestRisingEdge
	case EdgeFalling:
		return uapi.EventRequestFallingEdge
	case EdgeBoth:
		return uapi.EventRequestBothEdges
	}
	return 0
}

// v2Flags maps settings to v2 line flags. Debounce is an attribute, not a
// flag, and is handled by the config encoder.
func v2Flags(s LineSettings) uapi.LineFlagV2 {
	var flags uapi.LineFlagV2
	switch s.Direction {
	case LineInput:
		flags |= uapi.LineFlagV2Input
	case LineOutput:
		flags |= uapi.LineFlagV2Output
	}
	if s.ActiveLow {
		flags |= uapi.LineFlagV2ActiveLow
	}
	switch s.Drive {
	case DriveOpenDrain:
		flags |= uapi.LineFlagV2OpenDrain
	case DriveOpenSource:
		flags |= uapi.LineFlagV2OpenSource
	}
	switch s.Bias {
	case BiasPullUp:
		flags |= uapi.LineFlagV2BiasPullUp
	case BiasPullDown:
		flags |= uapi.LineFlagV2BiasPullDown
	case BiasDisabled:
		flags |= uapi.LineFlagV2BiasDisabled
	}
	switch s.Edge {
	case EdgeRising:
		flags |= uapi.LineFlagV2EdgeRising
	case EdgeFalling:
		flags |= uapi.LineFlagV2EdgeFalling
	case EdgeBoth:
		flags |= uapi.LineFlagV2EdgeBoth
	}
	return flags
}

// encodeLineConfigV2 produces the v2 line config for cfg.
//
// Per-line differences become config attributes. The kernel gives the
// lowest-index attribute of each kind precedence, so one attribute is
// emitted per distinct effective value, derived after override resolution.
func encodeLineConfigV2(cfg *LineConfig) (uapi.LineConfig, error) {
	var lc uapi.LineConfig
	lc.Flags = v2Flags(cfg.Defaults)
	defFlags := lc.Flags

	type group struct {
		value uint64
		mask  uint64
	}
	var flagGroups, debounceGroups []group
	addGroup := func(groups []group, value uint64, bit int) []group {
		for i := range groups {
			if groups[i].value == value {
				groups[i].mask |= 1 << uint(bit)
				return groups
			}
		}
		return append(groups, group{value: value, mask: 1 << uint(bit)})
	}

	for i := range cfg.Offsets {
		s := cfg.settingsFor(i)
		if f := v2Flags(s); f != defFlags {
			flagGroups = addGroup(flagGroups, uint64(f), i)
		}
		if s.Debounce != 0 {
			debounceGroups = addGroup(debounceGroups, uint64(s.Debounce/time.Microsecond), i)
		}
	}

	attrs := 0
	add := func(id uint32, value, mask uint64) error {
		if attrs == uapi.LineNumAttrsMax {
			return fmt.Errorf("%w: config needs more than %d attributes", ErrInvalidArgument, uapi.LineNumAttrsMax)
		}
		lc.Attrs[attrs] = uapi.LineConfigAttribute{
			Attr: uapi.LineAttribute{ID: id, Value: value},
			Mask: mask,
		}
		attrs++
		return nil
	}
	for _, g := range flagGroups {
		if err := add(uapi.LineAttrIDFlags, g.value, g.mask); err != nil {
			return lc, err
		}
	}
	for _, g := range debounceGroups {
		if err := add(uapi.LineAttrIDDebounce, g.value, g.mask); err != nil {
			return lc, err
		}
	}
	if cfg.OutputValues.Mask != 0 {
		mask := cfg.OutputValues.Mask & fullMask(len(cfg.Offsets))
		if err := add(uapi.LineAttrIDOutputValues, cfg.OutputValues.Bits&mask, mask); err != nil {
			return lc, err
		}
	}
	lc.NumAttrs = uint32(attrs)
	return lc, nil
}

// encodeLineRequest produces the v2 request for cfg.
func encodeLineRequest(cfg *LineConfig, consumer string) (uapi.LineRequest, error) {
	var lr uapi.LineRequest
	copy(lr.Offsets[:], cfg.Offsets)
	uapi.SetString(&lr.Consumer, consumer)
	lc, err := encodeLineConfigV2(cfg)
	if err != nil {
		return lr, err
	}
	lr.Config = lc
	lr.Lines = uint32(len(cfg.Offsets))
	lr.EventBufferSize = uint32(cfg.EventBufferSize)
	return lr, nil
}

// encodeHandleRequest produces the v1 handle request for cfg.
//
// v1 applies one flag set to every line, so configs with per-line setting
// differences are refused, as are edge detection (event requests carry
// that) and debounce.
func encodeHandleRequest(cfg *LineConfig, consumer string) (uapi.HandleRequest, error) {
	var hr uapi.HandleRequest
	if !cfg.uniform() {
		return hr, fmt.Errorf("%w: per-line config requires ABI v2", ErrUnsupported)
	}
	if cfg.Defaults.Edge != EdgeNone {
		return hr, fmt.Errorf("%w: edge detection on a multi-line request requires ABI v2", ErrUnsupported)
	}
	flags, err := v1HandleFlags(cfg.Defaults)
	if err != nil {
		return hr, err
	}
	copy(hr.Offsets[:], cfg.Offsets)
	hr.Flags = flags
	for i := range cfg.Offsets {
		if level, ok := cfg.OutputValues.Get(i); ok && level {
			hr.DefaultValues[i] = 1
		}
	}
	uapi.SetString(&hr.Consumer, consumer)
	hr.Lines = uint32(len(cfg.Offsets))
	return hr, nil
}

// encodeEventRequest produces the v1 event request for a single-line config
// with edge detection.
func encodeEventRequest(cfg *LineConfig, consumer string) (uapi.EventRequest, error) {
	var er uapi.EventRequest
	if len(cfg.Offsets) != 1 {
		return er, fmt.Errorf("%w: multi-line edge detection requires ABI v2", ErrUnsupported)
	}
	s := cfg.settingsFor(0)
	flags, err := v1HandleFlags(s)
	if err != nil {
		return er, err
	}
	er.Offset = cfg.Offsets[0]
	er.HandleFlags = flags
	er.EventFlags = v1EventFlags(s.Edge)
	uapi.SetString(&er.Consumer, consumer)
	return er, nil
}

// encodeHandleConfig produces the v1 set-config payload for cfg, used by
// reconfigure on a handle request.
func encodeHandleConfig(cfg *LineConfig) (uapi.HandleConfig, error) {
	var hc uapi.HandleConfig
	if !cfg.uniform() {
		return hc, fmt.Errorf("%w: per-line config requires ABI v2", ErrUnsupported)
	}
	if cfg.Defaults.Edge != EdgeNone {
		return hc, fmt.Errorf("%w: reconfiguring edge detection requires ABI v2", ErrUnsupported)
	}
	flags, err := v1HandleFlags(cfg.Defaults)
	if err != nil {
		return hc, err
	}
	hc.Flags = flags
	for i := range cfg.Offsets {
		if level, ok := cfg.OutputValues.Get(i); ok && level {
			hc.DefaultValues[i] = 1
		}
	}
	return hc, nil
}

// decodeChipInfo converts the kernel chip info, substituting the name for a
// missing label the way chip tooling expects.
func decodeChipInfo(ci uapi.ChipInfo) ChipInfo {
	info := ChipInfo{
		Name:  uapi.BytesToString(ci.Name[:]),
		Label: uapi.BytesToString(ci.Label[:]),
		Lines: int(ci.Lines),
	}
	if info.Label == "" {
		info.Label = info.Name
	}
	return info
}

// decodeLineInfoV1 converts v1 line info to the version-independent form.
// v1 does not report edge detection or debounce.
func decodeLineInfoV1(li uapi.LineInfo) LineInfo {
	info := LineInfo{
		Offset:    li.Offset,
		Name:      uapi.BytesToString(li.Name[:]),
		Consumer:  uapi.BytesToString(li.Consumer[:]),
		Used:      li.Flags&uapi.LineFlagUsed != 0,
		ActiveLow: li.Flags&uapi.LineFlagActiveLow != 0,
		Direction: LineInput,
	}
	if li.Flags&uapi.LineFlagIsOut != 0 {
		info.Direction = LineOutput
	}
	switch {
	case li.Flags&uapi.LineFlagOpenDrain != 0:
		info.Drive = DriveOpenDrain
	case li.Flags&uapi.LineFlagOpenSource != 0:
		info.Drive = DriveOpenSource
	}
	switch {
	case li.Flags&uapi.LineFlagBiasPullUp != 0:
		info.Bias = BiasPullUp
	case li.Flags&uapi.LineFlagBiasPullDown != 0:
		info.Bias = BiasPullDown
	case li.Flags&uapi.LineFlagBiasDisabled != 0:
		info.Bias = BiasDisabled
	}
	return info
}

// decodeLineInfoV2 converts v2 line info to the version-independent form.
func decodeLineInfoV2(li uapi.LineInfoV2) LineInfo {
	flags := li.Flags
	var debounce time.Duration
	n := int(li.NumAttrs)
	if n > uapi.LineNumAttrsMax {
		n = uapi.LineNumAttrsMax
	}
	for i := 0; i < n; i++ {
		switch li.Attrs[i].ID {
		case uapi.LineAttrIDFlags:
			flags = uapi.LineFlagV2(li.Attrs[i].Value)
		case uapi.LineAttrIDDebounce:
			debounce = time.Duration(uint32(li.Attrs[i].Value)) * time.Microsecond
		}
	}
	info := LineInfo{
		Offset:    li.Offset,
		Name:      uapi.BytesToString(li.Name[:]),
		Consumer:  uapi.BytesToString(li.Consumer[:]),
		Used:      flags&uapi.LineFlagV2Used != 0,
		ActiveLow: flags&uapi.LineFlagV2ActiveLow != 0,
		Direction: LineInput,
		Debounce:  debounce,
	}
	if flags&uapi.LineFlagV2Output != 0 {
		info.Direction = LineOutput
	}
	switch {
	case flags&uapi.LineFlagV2OpenDrain != 0:
		info.Drive = DriveOpenDrain
	case flags&uapi.LineFlagV2OpenSource != 0:
		info.Drive = DriveOpenSource
	}
	switch {
	case flags&uapi.LineFlagV2BiasPullUp != 0:
		info.Bias = BiasPullUp
	case flags&uapi.LineFlagV2BiasPullDown != 0:
		info.Bias = BiasPullDown
	case flags&uapi.LineFlagV2BiasDisabled != 0:
		info.Bias = BiasDisabled
	}
	switch flags & uapi.LineFlagV2EdgeBoth {
	case uapi.LineFlagV2EdgeRising:
		info.Edge = EdgeRising
	case uapi.LineFlagV2EdgeFalling:
		info.Edge = EdgeFalling
	case uapi.LineFlagV2EdgeBoth:
		info.Edge = EdgeBoth
	}
	return info
}

// decodeEdgeEventV1 converts a v1 event, stamping the offset the event fd
// serves, which the wire format does not carry.
func decodeEdgeEventV1(ed uapi.EventData, offset uint32) EdgeEvent {
	ev := EdgeEvent{
		Offset:    offset,
		Timestamp: time.Duration(ed.Timestamp),
	}
	switch ed.ID {
	case uapi.EventRisingEdgeID:
		ev.Edge = EdgeRising
	case uapi.EventFallingEdgeID:
		ev.Edge = EdgeFalling
	}
	return ev
}

// decodeEdgeEventV2 converts a v2 event.
func decodeEdgeEventV2(le uapi.LineEvent) EdgeEvent {
	ev := EdgeEvent{
		Offset:    le.Offset,
		Timestamp: time.Duration(le.Timestamp),
		Seqno:     le.Seqno,
		LineSeqno: le.LineSeqno,
	}
	switch le.ID {
	case uapi.LineEventRisingEdgeID:
		ev.Edge = EdgeRising
	case uapi.LineEventFallingEdgeID:
		ev.Edge = EdgeFalling
	}
	return ev
}

// decodeInfoChangeV1 converts a v1 info-changed record.
func decodeInfoChangeV1(lic uapi.LineInfoChanged) LineInfoChangeEvent {
	return LineInfoChangeEvent{
		Kind:      ChangeKind(lic.Type),
		Info:      decodeLineInfoV1(lic.Info),
		Timestamp: time.Duration(lic.Timestamp),
	}
}

// decodeInfoChangeV2 converts a v2 info-changed record.
func decodeInfoChangeV2(lic uapi.LineInfoChangedV2) LineInfoChangeEvent {
	return LineInfoChangeEvent{
		Kind:      ChangeKind(lic.Type),
		Info:      decodeLineInfoV2(lic.Info),
		Timestamp: time.Duration(lic.Timestamp),
	}
}
