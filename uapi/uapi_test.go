package uapi

// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The kernel structs are fixed-layout; a size drift means the ioctl codes
// and every read record go wrong.
func TestStructSizes(t *testing.T) {
	assert.Equal(t, uintptr(68), unsafe.Sizeof(ChipInfo{}))
	assert.Equal(t, uintptr(72), unsafe.Sizeof(LineInfo{}))
	assert.Equal(t, uintptr(104), unsafe.Sizeof(LineInfoChanged{}))
	assert.Equal(t, uintptr(364), unsafe.Sizeof(HandleRequest{}))
	assert.Equal(t, uintptr(84), unsafe.Sizeof(HandleConfig{}))
	assert.Equal(t, uintptr(64), unsafe.Sizeof(HandleData{}))
	assert.Equal(t, uintptr(48), unsafe.Sizeof(EventRequest{}))

	assert.Equal(t, uintptr(16), unsafe.Sizeof(LineAttribute{}))
	assert.Equal(t, uintptr(24), unsafe.Sizeof(LineConfigAttribute{}))
	assert.Equal(t, uintptr(272), unsafe.Sizeof(LineConfig{}))
	assert.Equal(t, uintptr(592), unsafe.Sizeof(LineRequest{}))
	assert.Equal(t, uintptr(256), unsafe.Sizeof(LineInfoV2{}))
	assert.Equal(t, uintptr(288), unsafe.Sizeof(LineInfoChangedV2{}))
	assert.Equal(t, uintptr(48), unsafe.Sizeof(LineEvent{}))
}

// Command codes as published in the kernel's gpio.h.
func TestIoctlCodes(t *testing.T) {
	assert.Equal(t, uintptr(0x8044b401), GetChipInfoIoctl)
	assert.Equal(t, uintptr(0xc048b402), GetLineInfoIoctl)
	assert.Equal(t, uintptr(0xc16cb403), GetLineHandleIoctl)
	assert.Equal(t, uintptr(0xc030b404), GetLineEventIoctl)
	assert.Equal(t, uintptr(0xc040b408), GetLineValuesIoctl)
	assert.Equal(t, uintptr(0xc040b409), SetLineValuesIoctl)
	assert.Equal(t, uintptr(0xc054b40a), SetLineConfigIoctl)
	assert.Equal(t, uintptr(0xc048b40b), WatchLineInfoIoctl)
	assert.Equal(t, uintptr(0xc004b40c), UnwatchLineInfoIoctl)

	assert.Equal(t, uintptr(0xc100b405), GetLineInfoV2Ioctl)
	assert.Equal(t, uintptr(0xc100b406), WatchLineInfoV2Ioctl)
	assert.Equal(t, uintptr(0xc250b407), GetLineIoctl)
	assert.Equal(t, uintptr(0xc110b40d), SetLineConfigV2Ioctl)
	assert.Equal(t, uintptr(0xc010b40e), GetLineValuesV2Ioctl)
	assert.Equal(t, uintptr(0xc010b40f), SetLineValuesV2Ioctl)
}

func TestDecodeLineEvent(t *testing.T) {
	le := LineEvent{
		Timestamp: 123456789,
		ID:        LineEventRisingEdgeID,
		Offset:    7,
		Seqno:     3,
		LineSeqno: 2,
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(&le)), LineEventSize)
	got, err := DecodeLineEvent(b)
	require.NoError(t, err)
	assert.Equal(t, le, got)

	_, err = DecodeLineEvent(b[:LineEventSize-1])
	assert.ErrorIs(t, err, ErrShortRecord)
}

func TestDecodeEventData(t *testing.T) {
	ed := EventData{Timestamp: 42, ID: EventFallingEdgeID}
	b := unsafe.Slice((*byte)(unsafe.Pointer(&ed)), EventDataSize)
	got, err := DecodeEventData(b)
	require.NoError(t, err)
	assert.Equal(t, ed, got)

	_, err = DecodeEventData(b[:4])
	assert.ErrorIs(t, err, ErrShortRecord)
}

func TestDecodeLineInfoChangedV2(t *testing.T) {
	var lic LineInfoChangedV2
	lic.Info.Offset = 5
	lic.Timestamp = 99
	lic.Type = LineChangedConfig
	b := unsafe.Slice((*byte)(unsafe.Pointer(&lic)), LineInfoChangedV2Size)
	got, err := DecodeLineInfoChangedV2(b)
	require.NoError(t, err)
	assert.Equal(t, lic, got)

	_, err = DecodeLineInfoChangedV2(b[:10])
	assert.ErrorIs(t, err, ErrShortRecord)
}

func TestBytesToString(t *testing.T) {
	b := [MaxNameSize]byte{'g', 'p', 'i', 'o'}
	assert.Equal(t, "gpio", BytesToString(b[:]))
	assert.Equal(t, "", BytesToString(make([]byte, MaxNameSize)))

	full := make([]byte, 4)
	copy(full, "abcd")
	assert.Equal(t, "abcd", BytesToString(full), "no NUL means the whole array")
}

func TestSetString(t *testing.T) {
	var dst [MaxNameSize]byte
	SetString(&dst, "consumer")
	assert.Equal(t, "consumer", BytesToString(dst[:]))

	long := make([]byte, 80)
	for i := range long {
		long[i] = 'x'
	}
	SetString(&dst, string(long))
	s := BytesToString(dst[:])
	assert.Len(t, s, MaxNameSize-1, "truncated with room for the NUL")
}
