package gpiocdev

// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

import (
	"fmt"
	"strings"
)

// LineValues bundles the logic levels of the lines of a request.
//
// Bit positions index the request's offsets in request order, not chip
// offsets. Only bits selected by Mask carry a meaningful level, which makes
// partial get/set expressible under ABI v2.
type LineValues struct {
	// The logic levels, one bit per line.
	Bits uint64

	// The bits that are significant.
	Mask uint64
}

// NewLineValues builds a LineValues with the given levels for lines
// 0..len(levels)-1, all masked significant.
func NewLineValues(levels ...bool) LineValues {
	var v LineValues
	for i, l := range levels {
		v.Set(i, l)
	}
	return v
}

// Get returns the level of the given bit, and whether the bit is inside the
// mask. Out of range bits are never inside the mask.
func (v LineValues) Get(bit int) (level, ok bool) {
	if bit < 0 || bit >= 64 {
		return false, false
	}
	m := uint64(1) << uint(bit)
	if v.Mask&m == 0 {
		return false, false
	}
	return v.Bits&m != 0, true
}

// Set sets the level of the given bit and marks it significant. Out of
// range bits are ignored.
func (v *LineValues) Set(bit int, level bool) {
	if bit < 0 || bit >= 64 {
		return
	}
	m := uint64(1) << uint(bit)
	v.Mask |= m
	if level {
		v.Bits |= m
	} else {
		v.Bits &^= m
	}
}

// fullMask returns the mask selecting the first n lines.
func fullMask(n int) uint64 {
	if n >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << uint(n)) - 1
}

// String renders the masked bits low to high, "-" for unmasked positions.
func (v LineValues) String() string {
	if v.Mask == 0 {
		return "[]"
	}
	hi := 63
	for hi > 0 && v.Mask>>uint(hi) == 0 {
		hi--
	}
	var sb strings.Builder
	sb.WriteByte('[')
	for i := 0; i <= hi; i++ {
		if i > 0 {
			sb.WriteByte(' ')
		}
		if level, ok := v.Get(i); !ok {
			sb.WriteByte('-')
		} else if level {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	sb.WriteByte(']')
	return sb.String()
}

var _ fmt.Stringer = LineValues{}
