package gpiocdev

// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

import (
	"fmt"
	"time"

	"github.com/s2e-systems/gpiocdev/uapi"
)

// LineSettings is the desired configuration for one or more lines.
//
// The zero value leaves direction unset and everything else at the kernel
// default: active high, no bias change, push-pull, no edge detection, no
// debounce.
type LineSettings struct {
	// The direction of the lines.
	Direction LineDir

	// The edges to detect on input lines.
	Edge Edge

	// The input bias.
	Bias Bias

	// The output drive mode.
	Drive Drive

	// ActiveLow inverts the logical sense of the lines.
	ActiveLow bool

	// Debounce is the input debounce period. Microsecond resolution;
	// requires ABI v2.
	Debounce time.Duration
}

// validate rejects combinations the kernel would refuse, so the whole
// request fails before any line is touched.
func (s LineSettings) validate() error {
	if s.Edge != EdgeNone && s.Direction == LineOutput {
		return fmt.Errorf("%w: edge detection on an output line", ErrInvalidArgument)
	}
	if s.Drive != DrivePushPull && s.Direction != LineOutput {
		return fmt.Errorf("%w: %s drive requires an output line", ErrInvalidArgument, s.Drive)
	}
	if s.Debounce < 0 {
		return fmt.Errorf("%w: negative debounce period", ErrInvalidArgument)
	}
	if s.Debounce != 0 && s.Direction == LineOutput {
		return fmt.Errorf("%w: debounce on an output line", ErrInvalidArgument)
	}
	return nil
}

// LineConfigOverride replaces the default settings for a subset of the
// requested lines.
type LineConfigOverride struct {
	// The chip offsets the override applies to. Must be part of the
	// request's offset set.
	Offsets []uint32

	// The settings for those lines, replacing the defaults wholesale.
	Settings LineSettings
}

// LineConfig describes a line request: which lines, with which settings.
//
// Offsets are chip line offsets, unique and between 1 and 64 of them. Their
// order fixes the bit positions used by LineValues and, under ABI v1, the
// kernel-side value array.
type LineConfig struct {
	// The lines to request, in request order.
	Offsets []uint32

	// The settings applied to all lines not covered by an override.
	Defaults LineSettings

	// Per-line setting overrides. At most uapi.LineNumAttrsMax entries;
	// requires ABI v2.
	Overrides []LineConfigOverride

	// Initial levels for output lines, indexed by request order. Lines
	// outside the mask start low.
	OutputValues LineValues

	// Consumer overrides the chip's consumer label for this request.
	Consumer string

	// EventBufferSize suggests a kernel edge event buffer size. Zero
	// selects the kernel default. v2 only; ignored under v1.
	EventBufferSize int
}

// AddOverride appends an override for the given offsets. Offsets not yet in
// the config are added to the request, matching how the kernel treats
// config attributes as part of the one request.
func (cfg *LineConfig) AddOverride(settings LineSettings, offsets ...uint32) error {
	if len(cfg.Overrides) == uapi.LineNumAttrsMax {
		return fmt.Errorf("%w: at most %d overrides per request", ErrInvalidArgument, uapi.LineNumAttrsMax)
	}
	for _, o := range offsets {
		if cfg.index(o) < 0 {
			cfg.Offsets = append(cfg.Offsets, o)
		}
	}
	cfg.Overrides = append(cfg.Overrides, LineConfigOverride{Offsets: offsets, Settings: settings})
	return nil
}

// index returns the request-order index of a chip offset, or -1.
func (cfg *LineConfig) index(offset uint32) int {
	for i, o := range cfg.Offsets {
		if o == offset {
			return i
		}
	}
	return -1
}

// settingsFor returns the effective settings of the line at the given
// request index. The last override naming the line wins.
func (cfg *LineConfig) settingsFor(idx int) LineSettings {
	s := cfg.Defaults
	off := cfg.Offsets[idx]
	for _, ov := range cfg.Overrides {
		for _, o := range ov.Offsets {
			if o == off {
				s = ov.Settings
			}
		}
	}
	return s
}

// uniform reports whether every line of the config shares the default
// settings, which is all v1 requests can express.
func (cfg *LineConfig) uniform() bool {
	for i := range cfg.Offsets {
		if cfg.settingsFor(i) != cfg.Defaults {
			return false
		}
	}
	return true
}

// edges reports whether any line of the config has edge detection enabled.
func (cfg *LineConfig) edges() bool {
	for i := range cfg.Offsets {
		if cfg.settingsFor(i).Edge != EdgeNone {
			return true
		}
	}
	return false
}

// validate checks the structural invariants of the config. numLines is the
// owning chip's line count, or 0 to skip range checking.
func (cfg *LineConfig) validate(numLines int) error {
	if len(cfg.Offsets) == 0 {
		return fmt.Errorf("%w: no lines in request", ErrInvalidArgument)
	}
	if len(cfg.Offsets) > uapi.LinesMax {
		return fmt.Errorf("%w: %d lines exceeds the request maximum of %d", ErrInvalidArgument, len(cfg.Offsets), uapi.LinesMax)
	}
	seen := make(map[uint32]struct{}, len(cfg.Offsets))
	for _, o := range cfg.Offsets {
		if _, dup := seen[o]; dup {
			return fmt.Errorf("%w: duplicate offset %d", ErrInvalidArgument, o)
		}
		seen[o] = struct{}{}
		if numLines > 0 && int(o) >= numLines {
			return fmt.Errorf("%w: offset %d out of range [0,%d)", ErrInvalidArgument, o, numLines)
		}
	}
	if len(cfg.Overrides) > uapi.LineNumAttrsMax {
		return fmt.Errorf("%w: at most %d overrides per request", ErrInvalidArgument, uapi.LineNumAttrsMax)
	}
	for _, ov := range cfg.Overrides {
		for _, o := range ov.Offsets {
			if _, known := seen[o]; !known {
				return fmt.Errorf("%w: override names offset %d outside the request", ErrInvalidArgument, o)
			}
		}
	}
	if err := cfg.Defaults.validate(); err != nil {
		return err
	}
	for i := range cfg.Offsets {
		if err := cfg.settingsFor(i).validate(); err != nil {
			return fmt.Errorf("line %d: %w", cfg.Offsets[i], err)
		}
	}
	if cfg.EventBufferSize < 0 {
		return fmt.Errorf("%w: negative event buffer size", ErrInvalidArgument)
	}
	return nil
}
