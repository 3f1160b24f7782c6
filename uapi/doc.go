// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package uapi contains the kernel GPIO character device ABI: the fixed
// layout request/response structures, flag bits and ioctl command codes for
// both ABI generations, plus decoding of the byte streams a request file
// descriptor produces.
//
// The structures are copies of those in the kernel uapi/linux/gpio.h header.
// Layout is bit-exact; if that header changes this package must follow.
//
// Nothing in this package performs I/O. Issuing the ioctls and reads is the
// caller's business, normally through the gpiocdev package.
//
// https://docs.kernel.org/userspace-api/gpio/chardev.html
package uapi
