package gpiocdev

// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s2e-systems/gpiocdev/uapi"
)

func TestV1HandleFlags(t *testing.T) {
	flags, err := v1HandleFlags(LineSettings{
		Direction: LineOutput,
		ActiveLow: true,
		Drive:     DriveOpenDrain,
		Bias:      BiasPullUp,
	})
	require.NoError(t, err)
	want := uapi.HandleRequestOutput | uapi.HandleRequestActiveLow |
		uapi.HandleRequestOpenDrain | uapi.HandleRequestBiasPullUp
	assert.Equal(t, want, flags)

	flags, err = v1HandleFlags(LineSettings{Direction: LineInput, Bias: BiasDisabled})
	require.NoError(t, err)
	assert.Equal(t, uapi.HandleRequestInput|uapi.HandleRequestBiasDisable, flags)

	_, err = v1HandleFlags(LineSettings{Direction: LineInput, Debounce: time.Millisecond})
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestV2FlagsRoundTrip(t *testing.T) {
	s := LineSettings{
		Direction: LineInput,
		Edge:      EdgeBoth,
		Bias:      BiasPullDown,
		ActiveLow: true,
	}
	info := decodeLineInfoV2(uapi.LineInfoV2{Flags: v2Flags(s)})
	assert.Equal(t, LineInput, info.Direction)
	assert.Equal(t, EdgeBoth, info.Edge)
	assert.Equal(t, BiasPullDown, info.Bias)
	assert.True(t, info.ActiveLow)
	assert.Equal(t, DrivePushPull, info.Drive)
}

func TestEncodeHandleRequest(t *testing.T) {
	cfg := LineConfig{
		Offsets:      []uint32{2, 5},
		Defaults:     LineSettings{Direction: LineOutput},
		OutputValues: NewLineValues(true, false),
	}
	hr, err := encodeHandleRequest(&cfg, "tester")
	require.NoError(t, err)
	assert.Equal(t, uint32(2), hr.Lines)
	assert.Equal(t, [2]uint32{2, 5}, [2]uint32{hr.Offsets[0], hr.Offsets[1]})
	assert.Equal(t, uint8(1), hr.DefaultValues[0])
	assert.Equal(t, uint8(0), hr.DefaultValues[1])
	assert.Equal(t, "tester", uapi.BytesToString(hr.Consumer[:]))

	over := cfg
	over.Overrides = []LineConfigOverride{{Offsets: []uint32{5}, Settings: LineSettings{Direction: LineInput}}}
	_, err = encodeHandleRequest(&over, "tester")
	assert.ErrorIs(t, err, ErrUnsupported)

	edged := LineConfig{
		Offsets:  []uint32{2, 5},
		Defaults: LineSettings{Direction: LineInput, Edge: EdgeRising},
	}
	_, err = encodeHandleRequest(&edged, "tester")
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestEncodeEventRequest(t *testing.T) {
	cfg := LineConfig{
		Offsets:  []uint32{3},
		Defaults: LineSettings{Direction: LineInput, Edge: EdgeBoth, Bias: BiasPullUp},
	}
	er, err := encodeEventRequest(&cfg, "tester")
	require.NoError(t, err)
	assert.Equal(t, uint32(3), er.Offset)
	assert.Equal(t, uapi.EventRequestBothEdges, er.EventFlags)
	assert.Equal(t, uapi.HandleRequestInput|uapi.HandleRequestBiasPullUp, er.HandleFlags)

	multi := LineConfig{
		Offsets:  []uint32{3, 4},
		Defaults: LineSettings{Direction: LineInput, Edge: EdgeBoth},
	}
	_, err = encodeEventRequest(&multi, "tester")
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestEncodeLineConfigV2(t *testing.T) {
	cfg := LineConfig{
		Offsets:      []uint32{0, 1, 2},
		Defaults:     LineSettings{Direction: LineOutput},
		OutputValues: NewLineValues(true, false, true),
	}
	require.NoError(t, cfg.AddOverride(LineSettings{Direction: LineInput, Debounce: 10 * time.Millisecond}, 1))
	lc, err := encodeLineConfigV2(&cfg)
	require.NoError(t, err)
	assert.Equal(t, v2Flags(cfg.Defaults), lc.Flags)
	require.Equal(t, uint32(3), lc.NumAttrs)

	flagAttr := lc.Attrs[0]
	assert.Equal(t, uapi.LineAttrIDFlags, flagAttr.Attr.ID)
	assert.Equal(t, uint64(0b010), flagAttr.Mask)
	assert.Equal(t, uint64(v2Flags(cfg.settingsFor(1))), flagAttr.Attr.Value)

	debounceAttr := lc.Attrs[1]
	assert.Equal(t, uapi.LineAttrIDDebounce, debounceAttr.Attr.ID)
	assert.Equal(t, uint64(0b010), debounceAttr.Mask)
	assert.Equal(t, uint64(10000), debounceAttr.Attr.Value, "debounce in microseconds")

	valueAttr := lc.Attrs[2]
	assert.Equal(t, uapi.LineAttrIDOutputValues, valueAttr.Attr.ID)
	assert.Equal(t, uint64(0b111), valueAttr.Mask)
	assert.Equal(t, uint64(0b101), valueAttr.Attr.Value)
}

func TestEncodeLineConfigV2AttrOverflow(t *testing.T) {
	cfg := LineConfig{
		Offsets:      []uint32{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
		Defaults:     LineSettings{Direction: LineOutput},
		OutputValues: NewLineValues(true),
	}
	// Ten distinct per-line debounce values plus the output values
	// attribute need more than the ten attribute slots.
	for i := uint32(0); i < 10; i++ {
		require.NoError(t, cfg.AddOverride(LineSettings{
			Direction: LineInput,
			Debounce:  time.Duration(i+1) * time.Millisecond,
		}, i))
	}
	_, err := encodeLineConfigV2(&cfg)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestEncodeLineRequest(t *testing.T) {
	cfg := LineConfig{
		Offsets:         []uint32{7, 3},
		Defaults:        LineSettings{Direction: LineInput, Edge: EdgeBoth},
		EventBufferSize: 32,
	}
	lr, err := encodeLineRequest(&cfg, "tester")
	require.NoError(t, err)
	assert.Equal(t, uint32(2), lr.Lines)
	assert.Equal(t, uint32(7), lr.Offsets[0])
	assert.Equal(t, uint32(3), lr.Offsets[1])
	assert.Equal(t, uint32(32), lr.EventBufferSize)
	assert.Equal(t, "tester", uapi.BytesToString(lr.Consumer[:]))
	assert.Equal(t, v2Flags(cfg.Defaults), lr.Config.Flags)
}

func TestDecodeLineInfoV1(t *testing.T) {
	var li uapi.LineInfo
	li.Offset = 4
	li.Flags = uapi.LineFlagUsed | uapi.LineFlagIsOut | uapi.LineFlagOpenSource | uapi.LineFlagBiasPullDown
	uapi.SetString(&li.Name, "LED1")
	uapi.SetString(&li.Consumer, "blinker")
	info := decodeLineInfoV1(li)
	assert.Equal(t, uint32(4), info.Offset)
	assert.Equal(t, "LED1", info.Name)
	assert.Equal(t, "blinker", info.Consumer)
	assert.True(t, info.Used)
	assert.Equal(t, LineOutput, info.Direction)
	assert.Equal(t, DriveOpenSource, info.Drive)
	assert.Equal(t, BiasPullDown, info.Bias)
	assert.Equal(t, EdgeNone, info.Edge, "v1 reports no edge state")
	assert.Zero(t, info.Debounce)
}

func TestDecodeLineInfoV2Attrs(t *testing.T) {
	var li uapi.LineInfoV2
	li.Offset = 9
	li.Flags = uapi.LineFlagV2Used | uapi.LineFlagV2Input
	li.NumAttrs = 2
	li.Attrs[0] = uapi.LineAttribute{ID: uapi.LineAttrIDFlags, Value: uint64(uapi.LineFlagV2Used | uapi.LineFlagV2Input | uapi.LineFlagV2EdgeRising)}
	li.Attrs[1] = uapi.LineAttribute{ID: uapi.LineAttrIDDebounce, Value: 5000}
	info := decodeLineInfoV2(li)
	assert.Equal(t, LineInput, info.Direction)
	assert.Equal(t, EdgeRising, info.Edge, "flags attribute overrides the top level flags")
	assert.Equal(t, 5*time.Millisecond, info.Debounce)
}

func TestDecodeEdgeEvents(t *testing.T) {
	ev := decodeEdgeEventV1(uapi.EventData{Timestamp: 1000, ID: uapi.EventFallingEdgeID}, 12)
	assert.Equal(t, EdgeFalling, ev.Edge)
	assert.Equal(t, uint32(12), ev.Offset, "v1 events carry the reader-stamped offset")
	assert.Equal(t, time.Duration(1000), ev.Timestamp)
	assert.Zero(t, ev.Seqno)

	ev = decodeEdgeEventV2(uapi.LineEvent{Timestamp: 2000, ID: uapi.LineEventRisingEdgeID, Offset: 3, Seqno: 7, LineSeqno: 4})
	assert.Equal(t, EdgeRising, ev.Edge)
	assert.Equal(t, uint32(3), ev.Offset)
	assert.Equal(t, uint32(7), ev.Seqno)
	assert.Equal(t, uint32(4), ev.LineSeqno)

	ev = decodeEdgeEventV2(uapi.LineEvent{ID: 99})
	assert.Equal(t, EdgeNone, ev.Edge, "unknown event ids must not decode as an edge")
}

func TestDecodeChipInfo(t *testing.T) {
	var ci uapi.ChipInfo
	uapi.SetString(&ci.Name, "gpiochip0")
	ci.Lines = 54
	info := decodeChipInfo(ci)
	assert.Equal(t, "gpiochip0", info.Name)
	assert.Equal(t, "gpiochip0", info.Label, "missing label falls back to the name")
	assert.Equal(t, 54, info.Lines)
}
