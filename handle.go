package gpiocdev

// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

import (
	"fmt"
	"os"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// devHandle is the fd-level surface of a chip or request file descriptor.
// The kernel-backed implementation is fileHandle; tests substitute fakes
// that emulate the kernel side.
type devHandle interface {
	// Ioctl issues the command with arg pointing at the ABI struct.
	Ioctl(req uintptr, arg unsafe.Pointer) error

	// Read blocks until data arrives, the read deadline expires, or the
	// handle is closed.
	Read(p []byte) (int, error)

	// TryRead reads whatever is immediately available. Returns
	// unix.EAGAIN when the fd has nothing buffered.
	TryRead(p []byte) (int, error)

	// SetReadDeadline bounds future and pending Read calls. The zero
	// time means no deadline.
	SetReadDeadline(t time.Time) error

	// Close releases the fd. Pending Reads fail with os.ErrClosed.
	Close() error
}

// fileHandle adapts an *os.File to devHandle.
//
// The file must be registered with the runtime poller, which requires the fd
// to be non-blocking before os.NewFile, so that SetReadDeadline works and
// Close wakes pending Reads. os.OpenFile arranges that itself for character
// devices.
type fileHandle struct {
	f *os.File
}

// openHandle opens the device node at path.
func openHandle(path string) (*fileHandle, error) {
	f, err := os.OpenFile(path, os.O_RDONLY, 0400)
	if err != nil {
		return nil, classifyOpenErr(path, err)
	}
	return &fileHandle{f: f}, nil
}

// wrapRequestFd adopts a request fd returned by the kernel from a line or
// event request ioctl.
func wrapRequestFd(fd int32, name string) (*fileHandle, error) {
	if err := unix.SetNonblock(int(fd), true); err != nil {
		unix.Close(int(fd))
		return nil, fmt.Errorf("set nonblock on %s: %w", name, err)
	}
	return &fileHandle{f: os.NewFile(uintptr(fd), name)}, nil
}

// Ioctl issues the command through the raw fd.
//
// SyscallConn rather than Fd() so the fd stays in the runtime poller and
// deadlines keep working.
func (h *fileHandle) Ioctl(req uintptr, arg unsafe.Pointer) error {
	rc, err := h.f.SyscallConn()
	if err != nil {
		return err
	}
	var ioctlErr error
	if err := rc.Control(func(fd uintptr) {
		if _, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, req, uintptr(arg)); errno != 0 {
			ioctlErr = errno
		}
	}); err != nil {
		return err
	}
	return ioctlErr
}

func (h *fileHandle) Read(p []byte) (int, error) {
	return h.f.Read(p)
}

// TryRead bypasses the poller and reads the non-blocking fd directly, so an
// empty fd reports unix.EAGAIN instead of blocking.
func (h *fileHandle) TryRead(p []byte) (int, error) {
	rc, err := h.f.SyscallConn()
	if err != nil {
		return 0, err
	}
	var n int
	var readErr error
	if err := rc.Control(func(fd uintptr) {
		for {
			n, readErr = unix.Read(int(fd), p)
			if readErr != unix.EINTR {
				break
			}
		}
		if n < 0 {
			n = 0
		}
	}); err != nil {
		return 0, err
	}
	return n, readErr
}

func (h *fileHandle) SetReadDeadline(t time.Time) error {
	return h.f.SetReadDeadline(t)
}

func (h *fileHandle) Close() error {
	return h.f.Close()
}
