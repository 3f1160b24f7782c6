package gpiocdev

// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

import (
	"fmt"
	"os"
	"testing"
	"time"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/s2e-systems/gpiocdev/uapi"
)

// newFakeChip builds a Chip over a fake handle, as OpenChip would after a
// successful probe.
func newFakeChip(abi ABI, lines int, ioctl func(req uintptr, arg unsafe.Pointer) error) (*Chip, *fakeHandle) {
	h := newFakeHandle(ioctl)
	c := &Chip{
		path:     "/dev/gpiochip0",
		h:        h,
		abi:      abi,
		info:     ChipInfo{Name: "gpiochip0", Label: "fake", Lines: lines},
		consumer: "tester",
		watches:  make(map[uint32]InfoChangeHandler),
	}
	return c, h
}

// lineInfoV2Ioctl serves GetLineInfoV2 with generated names.
func lineInfoV2Ioctl(req uintptr, arg unsafe.Pointer) error {
	if req != uapi.GetLineInfoV2Ioctl {
		return unix.EINVAL
	}
	li := (*uapi.LineInfoV2)(arg)
	li.Flags = uapi.LineFlagV2Input
	uapi.SetString(&li.Name, fmt.Sprintf("PIN%d", li.Offset))
	return nil
}

func TestChipLineInfo(t *testing.T) {
	c, _ := newFakeChip(ABIV2, 8, lineInfoV2Ioctl)
	defer c.Close()

	info, err := c.LineInfo(4)
	require.NoError(t, err)
	assert.Equal(t, uint32(4), info.Offset)
	assert.Equal(t, "PIN4", info.Name)
	assert.Equal(t, LineInput, info.Direction)

	_, err = c.LineInfo(8)
	assert.ErrorIs(t, err, ErrInvalidArgument, "offset out of range")
}

func TestChipLineInfos(t *testing.T) {
	c, _ := newFakeChip(ABIV2, 4, lineInfoV2Ioctl)
	defer c.Close()

	infos, err := c.LineInfos()
	require.NoError(t, err)
	require.Len(t, infos, 4)
	for i, info := range infos {
		assert.Equal(t, uint32(i), info.Offset)
	}
}

func TestChipLookupLine(t *testing.T) {
	c, _ := newFakeChip(ABIV2, 4, lineInfoV2Ioctl)
	defer c.Close()

	offset, err := c.LookupLine("PIN2")
	require.NoError(t, err)
	assert.Equal(t, uint32(2), offset)

	_, err = c.LookupLine("NOPE")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestChipClosed(t *testing.T) {
	c, _ := newFakeChip(ABIV2, 4, lineInfoV2Ioctl)
	require.NoError(t, c.Close())
	require.NoError(t, c.Close(), "close is idempotent")

	_, err := c.LineInfo(0)
	assert.ErrorIs(t, err, ErrInvalidState)
	_, err = c.RequestLines(LineConfig{Offsets: []uint32{0}})
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.ErrorIs(t, c.UnwatchLineInfo(0), ErrInvalidState)
}

func TestChipResolveABI(t *testing.T) {
	v1Kernel := func(req uintptr, arg unsafe.Pointer) error {
		if req == uapi.GetLineInfoV2Ioctl {
			return unix.ENOTTY
		}
		return nil
	}
	c, _ := newFakeChip(ABIAuto, 4, v1Kernel)
	require.NoError(t, c.resolveABI())
	assert.Equal(t, ABIV1, c.abi)

	c, _ = newFakeChip(ABIAuto, 4, lineInfoV2Ioctl)
	require.NoError(t, c.resolveABI())
	assert.Equal(t, ABIV2, c.abi)

	c, _ = newFakeChip(ABIV2, 4, v1Kernel)
	assert.ErrorIs(t, c.resolveABI(), ErrUnsupported, "pinned v2 on a v1 kernel")

	c, _ = newFakeChip(ABIV1, 4, v1Kernel)
	require.NoError(t, c.resolveABI())
	assert.Equal(t, ABIV1, c.abi)
}

func TestChipWatchLineInfo(t *testing.T) {
	watchOK := func(req uintptr, arg unsafe.Pointer) error {
		switch req {
		case uapi.WatchLineInfoV2Ioctl:
			li := (*uapi.LineInfoV2)(arg)
			li.Flags = uapi.LineFlagV2Input
			uapi.SetString(&li.Name, "BUTTON")
			return nil
		case uapi.UnwatchLineInfoIoctl:
			return nil
		}
		return unix.EINVAL
	}
	c, h := newFakeChip(ABIV2, 8, watchOK)
	defer c.Close()

	_, err := c.WatchLineInfo(3, nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	events := make(chan LineInfoChangeEvent, 4)
	info, err := c.WatchLineInfo(3, func(ev LineInfoChangeEvent) { events <- ev })
	require.NoError(t, err)
	assert.Equal(t, "BUTTON", info.Name)

	_, err = c.WatchLineInfo(3, func(LineInfoChangeEvent) {})
	assert.ErrorIs(t, err, ErrBusy, "one watch per line")

	var lic uapi.LineInfoChangedV2
	lic.Info.Offset = 3
	lic.Info.Flags = uapi.LineFlagV2Used | uapi.LineFlagV2Input
	lic.Timestamp = 5000
	lic.Type = uapi.LineChangedRequested
	h.push(append([]byte(nil), structBytes(&lic)...))

	select {
	case ev := <-events:
		assert.Equal(t, LineRequested, ev.Kind)
		assert.Equal(t, uint32(3), ev.Info.Offset)
		assert.True(t, ev.Info.Used)
		assert.Equal(t, time.Duration(5000), ev.Timestamp)
	case <-time.After(time.Second):
		t.Fatal("watch event not delivered")
	}

	// Changes on unwatched lines are dropped.
	lic.Info.Offset = 5
	h.push(append([]byte(nil), structBytes(&lic)...))

	require.NoError(t, c.UnwatchLineInfo(3))
	require.NoError(t, c.UnwatchLineInfo(3), "unwatching an unwatched line is a no-op")
	assert.Empty(t, events)
}

func TestSortChipPaths(t *testing.T) {
	paths := []string{"/dev/gpiochip10", "/dev/gpiochip2", "/dev/gpiochip0", "/dev/gpiochip1"}
	sortChipPaths(paths)
	assert.Equal(t, []string{"/dev/gpiochip0", "/dev/gpiochip1", "/dev/gpiochip2", "/dev/gpiochip10"}, paths)
}

func TestChipRequestLinesV2(t *testing.T) {
	pr, pw, err := os.Pipe()
	require.NoError(t, err)
	defer pr.Close()
	defer pw.Close()

	var captured uapi.LineRequest
	ioctl := func(req uintptr, arg unsafe.Pointer) error {
		if req != uapi.GetLineIoctl {
			return unix.EINVAL
		}
		lr := (*uapi.LineRequest)(arg)
		captured = *lr
		// The request takes ownership of its fd, so hand out a dup.
		fd, err := unix.Dup(int(pr.Fd()))
		if err != nil {
			return err
		}
		lr.Fd = int32(fd)
		return nil
	}
	c, _ := newFakeChip(ABIV2, 8, ioctl)
	defer c.Close()

	req, err := c.RequestLines(LineConfig{
		Offsets:      []uint32{2, 5},
		Defaults:     LineSettings{Direction: LineOutput},
		OutputValues: NewLineValues(true, false),
	})
	require.NoError(t, err)
	defer req.Release()

	assert.Equal(t, uint32(2), captured.Lines)
	assert.Equal(t, uint32(2), captured.Offsets[0])
	assert.Equal(t, uint32(5), captured.Offsets[1])
	assert.Equal(t, "tester", uapi.BytesToString(captured.Consumer[:]), "chip consumer label applies by default")
	assert.Equal(t, []uint32{2, 5}, req.Offsets())

	require.NoError(t, req.Release())
}

func TestChipRequestLinesBusy(t *testing.T) {
	busy := func(req uintptr, arg unsafe.Pointer) error {
		return unix.EBUSY
	}
	c, _ := newFakeChip(ABIV2, 8, busy)
	defer c.Close()

	_, err := c.RequestLines(LineConfig{
		Offsets:  []uint32{2},
		Defaults: LineSettings{Direction: LineInput},
	})
	assert.ErrorIs(t, err, ErrBusy)
}

func TestChipRequestLinesValidates(t *testing.T) {
	called := false
	ioctl := func(req uintptr, arg unsafe.Pointer) error {
		called = true
		return nil
	}
	c, _ := newFakeChip(ABIV2, 8, ioctl)
	defer c.Close()

	_, err := c.RequestLines(LineConfig{Offsets: []uint32{1, 1}})
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = c.RequestLines(LineConfig{Offsets: []uint32{12}})
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.False(t, called, "invalid configs must not reach the kernel")
}
