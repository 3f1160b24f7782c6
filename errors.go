package gpiocdev

// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// Sentinel errors returned by the package. Operations wrap these so callers
// classify failures with errors.Is.
var (
	// ErrNotFound indicates the device or line does not exist.
	ErrNotFound = errors.New("not found")

	// ErrPermissionDenied indicates the device node is not accessible.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrBusy indicates a requested line is already reserved, here or by
	// another process.
	ErrBusy = errors.New("line busy")

	// ErrInvalidArgument indicates a bad offset, an oversized or empty
	// line set, or a contradictory combination of settings.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUnsupported indicates the selected ABI version lacks the
	// requested capability.
	ErrUnsupported = errors.New("unsupported by ABI version")

	// ErrInvalidState indicates an operation on a released request, or an
	// edge operation on a request without edge detection.
	ErrInvalidState = errors.New("invalid state")

	// ErrWouldBlock indicates a non-blocking read found no complete
	// event.
	ErrWouldBlock = errors.New("would block")

	// ErrDecode indicates a malformed or short kernel response.
	ErrDecode = errors.New("malformed kernel response")
)

// classifyErrno maps an ioctl errno to the package's typed errors, keeping
// the errno text and the failing operation in the chain.
func classifyErrno(op string, errno unix.Errno) error {
	var kind error
	switch errno {
	case unix.EBUSY:
		kind = ErrBusy
	case unix.EINVAL:
		kind = ErrInvalidArgument
	case unix.ENOTTY, unix.EOPNOTSUPP, unix.ENOSYS:
		kind = ErrUnsupported
	case unix.EPERM, unix.EACCES:
		kind = ErrPermissionDenied
	case unix.ENOENT, unix.ENXIO, unix.ENODEV:
		kind = ErrNotFound
	case unix.EAGAIN:
		kind = ErrWouldBlock
	default:
		return fmt.Errorf("%s: %w", op, errno)
	}
	return fmt.Errorf("%s: %w (%v)", op, kind, errno)
}

// classify maps any errno buried in err, leaving other errors wrapped with
// the operation only.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var errno unix.Errno
	if errors.As(err, &errno) {
		return classifyErrno(op, errno)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// classifyOpenErr maps errors from opening the device node.
func classifyOpenErr(path string, err error) error {
	switch {
	case errors.Is(err, unix.ENOENT):
		return fmt.Errorf("open %s: %w", path, ErrNotFound)
	case errors.Is(err, unix.EACCES), errors.Is(err, unix.EPERM):
		return fmt.Errorf("open %s: %w", path, ErrPermissionDenied)
	}
	return fmt.Errorf("open %s: %w", path, err)
}
