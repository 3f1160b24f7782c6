package gpiocdev

// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

import (
	"errors"
	"os"

	"github.com/s2e-systems/gpiocdev/uapi"
)

// watch runs as the chip's info watch goroutine, pumping info-changed
// records from the chip fd to the subscribed handlers. It exits when the
// read fails, which Close arranges by closing the fd.
func (c *Chip) watch(done chan struct{}) {
	defer close(done)
	recordSize := uapi.LineInfoChangedV2Size
	if c.abi == ABIV1 {
		recordSize = uapi.LineInfoChangedSize
	}
	// The kernel delivers whole records only, but a large read may carry
	// several at once.
	buf := make([]byte, 16*recordSize)
	for {
		n, err := c.h.Read(buf)
		if err != nil {
			if !errors.Is(err, os.ErrClosed) {
				logger.Debugf("%s: info watch read: %v", c.info.Name, err)
			}
			return
		}
		for off := 0; off+recordSize <= n; off += recordSize {
			ev, err := c.decodeInfoChange(buf[off : off+recordSize])
			if err != nil {
				logger.Debugf("%s: info watch decode: %v", c.info.Name, err)
				continue
			}
			if handler := c.handlerFor(ev.Info.Offset); handler != nil {
				handler(ev)
			}
		}
	}
}

func (c *Chip) decodeInfoChange(b []byte) (LineInfoChangeEvent, error) {
	if c.abi == ABIV1 {
		lic, err := uapi.DecodeLineInfoChanged(b)
		if err != nil {
			return LineInfoChangeEvent{}, err
		}
		return decodeInfoChangeV1(lic), nil
	}
	lic, err := uapi.DecodeLineInfoChangedV2(b)
	if err != nil {
		return LineInfoChangeEvent{}, err
	}
	return decodeInfoChangeV2(lic), nil
}
