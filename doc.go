// Package gpiocdev accesses GPIO lines through the Linux character device,
// /dev/gpiochip*.
//
// The kernel serves two incompatible generations of the chardev ioctl
// interface. The package speaks both, probing the kernel at open and
// presenting one version-independent model; capabilities only the newer
// generation provides, like per-line configuration, debounce and masked
// value access, report ErrUnsupported when the kernel in use cannot serve
// them.
//
// Open a Chip to enumerate and inspect lines, then reserve lines with
// RequestLines. The returned LineRequest reads and drives levels and, for
// lines with edge detection enabled, delivers edge events either by
// blocking reads or through a channel-backed EventStream.
//
// The deprecated sysfs GPIO interface is not supported.
package gpiocdev

// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.
