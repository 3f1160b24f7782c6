package gpiocdev

// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// ABI selects one of the two generations of the kernel GPIO chardev
// interface.
type ABI uint8

const (
	// ABIAuto probes for v2 and falls back to v1. The probe result is
	// cached per chip.
	ABIAuto ABI = iota

	// ABIV1 is the original chardev interface, deprecated since kernel
	// 5.10 but the only one available before it.
	ABIV1

	// ABIV2 is the current chardev interface, available since kernel
	// 5.10.
	ABIV2
)

func (a ABI) String() string {
	switch a {
	case ABIV1:
		return "v1"
	case ABIV2:
		return "v2"
	}
	return "auto"
}

// Feature is a capability that depends on the ABI version in use.
type Feature uint8

const (
	// FeatureMaskedValues is partial get/set of a subset of the
	// requested lines.
	FeatureMaskedValues Feature = iota

	// FeatureDebounce is per-line input debouncing.
	FeatureDebounce

	// FeaturePerLineConfig is differing settings for lines of one
	// request.
	FeaturePerLineConfig

	// FeatureMultiLineEdge is edge detection on a request covering more
	// than one line. v1 event requests serve a single line each.
	FeatureMultiLineEdge

	// FeatureEventSeqno is sequence numbering and line offsets on edge
	// events.
	FeatureEventSeqno

	// FeatureReconfigureEdge is changing edge detection on an active
	// request.
	FeatureReconfigureEdge
)

// Supports reports whether the ABI version provides the feature. ABIAuto
// reports false; resolve the version first (Chip.ABI after open).
func (a ABI) Supports(f Feature) bool {
	if a != ABIV2 {
		return false
	}
	switch f {
	case FeatureMaskedValues, FeatureDebounce, FeaturePerLineConfig,
		FeatureMultiLineEdge, FeatureEventSeqno, FeatureReconfigureEdge:
		return true
	}
	return false
}
