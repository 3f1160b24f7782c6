package uapi

// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Decoding of the records a request or chip fd produces when read, and the
// NUL-padded string convention shared by all the ABI structs. Everything
// here is a pure transform on byte slices.

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"unsafe"
)

// Record sizes, in bytes, as read from a request or chip fd. EventDataSize
// is target dependent, the v2 sizes are not.
var (
	EventDataSize         = int(unsafe.Sizeof(EventData{}))
	LineEventSize         = int(unsafe.Sizeof(LineEvent{}))
	LineInfoChangedSize   = int(unsafe.Sizeof(LineInfoChanged{}))
	LineInfoChangedV2Size = int(unsafe.Sizeof(LineInfoChangedV2{}))
)

// nativeEndian is the byte order the kernel writes records in.
var nativeEndian binary.ByteOrder

func init() {
	var x uint16 = 1
	if *(*byte)(unsafe.Pointer(&x)) == 1 {
		nativeEndian = binary.LittleEndian
	} else {
		nativeEndian = binary.BigEndian
	}
}

// ErrShortRecord indicates a buffer too small to hold the record being
// decoded.
var ErrShortRecord = errors.New("short record")

// DecodeEventData decodes one v1 edge event from b.
//
// b must hold at least EventDataSize bytes.
func DecodeEventData(b []byte) (EventData, error) {
	var ed EventData
	if len(b) < EventDataSize {
		return ed, fmt.Errorf("%w: event data needs %d bytes, have %d", ErrShortRecord, EventDataSize, len(b))
	}
	err := binary.Read(bytes.NewReader(b[:EventDataSize]), nativeEndian, &ed)
	return ed, err
}

// DecodeLineEvent decodes one v2 edge event from b.
//
// b must hold at least LineEventSize bytes.
func DecodeLineEvent(b []byte) (LineEvent, error) {
	var le LineEvent
	if len(b) < LineEventSize {
		return le, fmt.Errorf("%w: line event needs %d bytes, have %d", ErrShortRecord, LineEventSize, len(b))
	}
	err := binary.Read(bytes.NewReader(b[:LineEventSize]), nativeEndian, &le)
	return le, err
}

// DecodeLineInfoChanged decodes one v1 info-changed record from b.
func DecodeLineInfoChanged(b []byte) (LineInfoChanged, error) {
	var lic LineInfoChanged
	if len(b) < LineInfoChangedSize {
		return lic, fmt.Errorf("%w: info-changed needs %d bytes, have %d", ErrShortRecord, LineInfoChangedSize, len(b))
	}
	err := binary.Read(bytes.NewReader(b[:LineInfoChangedSize]), nativeEndian, &lic)
	return lic, err
}

// DecodeLineInfoChangedV2 decodes one v2 info-changed record from b.
func DecodeLineInfoChangedV2(b []byte) (LineInfoChangedV2, error) {
	var lic LineInfoChangedV2
	if len(b) < LineInfoChangedV2Size {
		return lic, fmt.Errorf("%w: info-changed needs %d bytes, have %d", ErrShortRecord, LineInfoChangedV2Size, len(b))
	}
	err := binary.Read(bytes.NewReader(b[:LineInfoChangedV2Size]), nativeEndian, &lic)
	return lic, err
}

// BytesToString converts a NUL-padded name or consumer array to a string.
func BytesToString(a []byte) string {
	n := bytes.IndexByte(a, 0)
	if n == -1 {
		return string(a)
	}
	return string(a[:n])
}

// SetString copies s into the NUL-padded array dst, leaving room for the
// terminating NUL. Longer strings are truncated, matching what the kernel
// itself would retain.
func SetString(dst *[MaxNameSize]byte, s string) {
	b := []byte(s)
	if len(b) >= MaxNameSize {
		b = b[:MaxNameSize-1]
	}
	copy(dst[:], b)
	for i := len(b); i < MaxNameSize; i++ {
		dst[i] = 0
	}
}
