package gpiocdev

// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/s2e-systems/gpiocdev/uapi"
)

// defaultConsumer labels line requests that do not specify their own,
// program_name@pid.
var defaultConsumer = fmt.Sprintf("%s@%d", path.Base(os.Args[0]), os.Getpid())

// Chip is an open GPIO character device, e.g. /dev/gpiochip0.
//
// A Chip answers metadata queries and creates line requests. Closing the
// chip stops info watches but leaves line requests made through it alive;
// they hold their own file descriptors.
//
// Methods are safe for concurrent use.
type Chip struct {
	path     string
	h        devHandle
	abi      ABI
	info     ChipInfo
	consumer string

	mu      sync.Mutex
	closed  bool
	watches map[uint32]InfoChangeHandler
	// watchDone is non-nil once the watch goroutine runs, closed when it
	// exits.
	watchDone chan struct{}
}

// ChipOption adjusts how a chip is opened.
type ChipOption func(*Chip)

// WithConsumer sets the consumer label applied to line requests made through
// the chip. Defaults to program_name@pid.
func WithConsumer(consumer string) ChipOption {
	return func(c *Chip) {
		c.consumer = consumer
	}
}

// WithABI pins the chip to one ABI generation instead of probing. Opening
// fails with ErrUnsupported if the kernel does not provide that version.
func WithABI(abi ABI) ChipOption {
	return func(c *Chip) {
		c.abi = abi
	}
}

// IsChip checks that the file at path is a GPIO character device.
//
// The device node's major:minor is cross-checked against /sys/dev/char to
// guard against stale or mischievous nodes in /dev.
func IsChip(p string) error {
	var st unix.Stat_t
	if err := unix.Stat(p, &st); err != nil {
		return classifyOpenErr(p, err)
	}
	if st.Mode&unix.S_IFMT != unix.S_IFCHR {
		return fmt.Errorf("%w: %s is not a character device", ErrInvalidArgument, p)
	}
	sysfs := fmt.Sprintf("/sys/dev/char/%d:%d/subsystem", unix.Major(uint64(st.Rdev)), unix.Minor(uint64(st.Rdev)))
	target, err := os.Readlink(sysfs)
	if err != nil {
		return fmt.Errorf("%w: %s has no sysfs subsystem", ErrInvalidArgument, p)
	}
	if path.Base(target) != "gpio" {
		return fmt.Errorf("%w: %s belongs to subsystem %q, not gpio", ErrInvalidArgument, p, path.Base(target))
	}
	return nil
}

// Chips returns the paths of the GPIO character devices on the system, in
// chip number order.
func Chips() []string {
	matches, _ := filepath.Glob("/dev/gpiochip*")
	var chips []string
	for _, m := range matches {
		if IsChip(m) == nil {
			chips = append(chips, m)
		}
	}
	sortChipPaths(chips)
	return chips
}

// sortChipPaths orders device paths numerically by chip number, so
// gpiochip2 comes ahead of gpiochip10. Names without a number sort last,
// lexically.
func sortChipPaths(paths []string) {
	ordinal := func(p string) (int, bool) {
		n, err := strconv.Atoi(strings.TrimPrefix(path.Base(p), "gpiochip"))
		return n, err == nil
	}
	sort.Slice(paths, func(i, j int) bool {
		ni, iok := ordinal(paths[i])
		nj, jok := ordinal(paths[j])
		if iok && jok {
			return ni < nj
		}
		if iok != jok {
			return iok
		}
		return paths[i] < paths[j]
	})
}

// OpenChip opens the GPIO character device at path.
//
// path may be a full device path or a bare name like "gpiochip0".
func OpenChip(p string, opts ...ChipOption) (*Chip, error) {
	if !strings.ContainsRune(p, '/') {
		p = "/dev/" + p
	}
	if err := IsChip(p); err != nil {
		return nil, err
	}
	h, err := openHandle(p)
	if err != nil {
		return nil, err
	}
	c := &Chip{
		path:     p,
		h:        h,
		consumer: defaultConsumer,
		watches:  make(map[uint32]InfoChangeHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	var ci uapi.ChipInfo
	if err := c.h.Ioctl(uapi.GetChipInfoIoctl, unsafe.Pointer(&ci)); err != nil {
		h.Close()
		return nil, classify("get chip info", err)
	}
	c.info = decodeChipInfo(ci)
	if err := c.resolveABI(); err != nil {
		h.Close()
		return nil, err
	}
	logger.Debugf("opened %s: %q, %d lines, ABI %s", c.path, c.info.Label, c.info.Lines, c.abi)
	return c, nil
}

// resolveABI probes the kernel for v2 support when the ABI was left on auto,
// and verifies a pinned version is actually served.
func (c *Chip) resolveABI() error {
	probe := func(req uintptr, arg unsafe.Pointer) bool {
		err := c.h.Ioctl(req, arg)
		var errno unix.Errno
		if errors.As(err, &errno) && (errno == unix.ENOTTY || errno == unix.EINVAL) {
			return false
		}
		// Any other failure still proves the kernel parses the command.
		return true
	}
	switch c.abi {
	case ABIV2:
		var li uapi.LineInfoV2
		if !probe(uapi.GetLineInfoV2Ioctl, unsafe.Pointer(&li)) {
			return fmt.Errorf("%w: kernel does not serve ABI v2", ErrUnsupported)
		}
	case ABIV1:
		var li uapi.LineInfo
		if !probe(uapi.GetLineInfoIoctl, unsafe.Pointer(&li)) {
			return fmt.Errorf("%w: kernel does not serve ABI v1", ErrUnsupported)
		}
	default:
		var li uapi.LineInfoV2
		if probe(uapi.GetLineInfoV2Ioctl, unsafe.Pointer(&li)) {
			c.abi = ABIV2
		} else {
			c.abi = ABIV1
		}
	}
	return nil
}

// Path returns the device path the chip was opened from.
func (c *Chip) Path() string {
	return c.path
}

// Name returns the kernel name of the chip, e.g. "gpiochip0".
func (c *Chip) Name() string {
	return c.info.Name
}

// Label returns the driver-provided label of the chip.
func (c *Chip) Label() string {
	return c.info.Label
}

// Lines returns the number of lines the chip supports.
func (c *Chip) Lines() int {
	return c.info.Lines
}

// Info returns the chip description captured at open.
func (c *Chip) Info() ChipInfo {
	return c.info
}

// ABI returns the ABI generation in use, resolved at open.
func (c *Chip) ABI() ABI {
	return c.abi
}

func (c *Chip) checkOpen() error {
	if c.closed {
		return fmt.Errorf("%w: chip %s is closed", ErrInvalidState, c.info.Name)
	}
	return nil
}

func (c *Chip) checkOffset(offset uint32) error {
	if int(offset) >= c.info.Lines {
		return fmt.Errorf("%w: offset %d out of range [0,%d)", ErrInvalidArgument, offset, c.info.Lines)
	}
	return nil
}

// LineInfo returns a snapshot of the state of one line.
func (c *Chip) LineInfo(offset uint32) (LineInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkOpen(); err != nil {
		return LineInfo{}, err
	}
	return c.lineInfo(offset)
}

func (c *Chip) lineInfo(offset uint32) (LineInfo, error) {
	if err := c.checkOffset(offset); err != nil {
		return LineInfo{}, err
	}
	if c.abi == ABIV1 {
		var li uapi.LineInfo
		li.Offset = offset
		if err := c.h.Ioctl(uapi.GetLineInfoIoctl, unsafe.Pointer(&li)); err != nil {
			return LineInfo{}, classify("get line info", err)
		}
		return decodeLineInfoV1(li), nil
	}
	var li uapi.LineInfoV2
	li.Offset = offset
	if err := c.h.Ioctl(uapi.GetLineInfoV2Ioctl, unsafe.Pointer(&li)); err != nil {
		return LineInfo{}, classify("get line info", err)
	}
	return decodeLineInfoV2(li), nil
}

// LineInfos returns snapshots for every line of the chip, in offset order.
func (c *Chip) LineInfos() ([]LineInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	infos := make([]LineInfo, c.info.Lines)
	for offset := range infos {
		info, err := c.lineInfo(uint32(offset))
		if err != nil {
			return nil, err
		}
		infos[offset] = info
	}
	return infos, nil
}

// LookupLine returns the offset of the line with the given driver-assigned
// name. Line names are not guaranteed unique; the lowest matching offset
// wins.
func (c *Chip) LookupLine(name string) (uint32, error) {
	infos, err := c.LineInfos()
	if err != nil {
		return 0, err
	}
	for _, info := range infos {
		if info.Name == name {
			return info.Offset, nil
		}
	}
	return 0, fmt.Errorf("%w: chip %s has no line named %q", ErrNotFound, c.info.Name, name)
}

// WatchLineInfo subscribes to info changes on one line and returns its
// current info.
//
// handler is called from the chip's watch goroutine for every request,
// release or reconfigure of the line until UnwatchLineInfo or Close. At most
// one watch per line; a second subscription fails with ErrBusy.
//
// Info watching over ABI v1 needs kernel 5.7 or later; older kernels report
// ErrUnsupported.
func (c *Chip) WatchLineInfo(offset uint32, handler InfoChangeHandler) (LineInfo, error) {
	if handler == nil {
		return LineInfo{}, fmt.Errorf("%w: nil info change handler", ErrInvalidArgument)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkOpen(); err != nil {
		return LineInfo{}, err
	}
	if err := c.checkOffset(offset); err != nil {
		return LineInfo{}, err
	}
	if _, watched := c.watches[offset]; watched {
		return LineInfo{}, fmt.Errorf("%w: line %d is already watched", ErrBusy, offset)
	}
	var info LineInfo
	if c.abi == ABIV1 {
		var li uapi.LineInfo
		li.Offset = offset
		if err := c.h.Ioctl(uapi.WatchLineInfoIoctl, unsafe.Pointer(&li)); err != nil {
			return LineInfo{}, classify("watch line info", err)
		}
		info = decodeLineInfoV1(li)
	} else {
		var li uapi.LineInfoV2
		li.Offset = offset
		if err := c.h.Ioctl(uapi.WatchLineInfoV2Ioctl, unsafe.Pointer(&li)); err != nil {
			return LineInfo{}, classify("watch line info", err)
		}
		info = decodeLineInfoV2(li)
	}
	c.watches[offset] = handler
	if c.watchDone == nil {
		c.watchDone = make(chan struct{})
		go c.watch(c.watchDone)
	}
	return info, nil
}

// UnwatchLineInfo drops the info subscription on a line. Dropping a line
// that is not watched is not an error.
func (c *Chip) UnwatchLineInfo(offset uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkOpen(); err != nil {
		return err
	}
	if _, watched := c.watches[offset]; !watched {
		return nil
	}
	if err := c.h.Ioctl(uapi.UnwatchLineInfoIoctl, unsafe.Pointer(&offset)); err != nil {
		return classify("unwatch line info", err)
	}
	delete(c.watches, offset)
	return nil
}

// handlerFor returns the handler subscribed to offset, if any.
func (c *Chip) handlerFor(offset uint32) InfoChangeHandler {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.watches[offset]
}

// Close releases the chip fd and stops info watching. Line requests made
// through the chip stay alive. Close is idempotent.
func (c *Chip) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	done := c.watchDone
	c.mu.Unlock()
	// Closing the fd fails the watch goroutine's pending read.
	err := c.h.Close()
	if done != nil {
		<-done
	}
	return err
}

// RequestLines reserves lines of the chip per cfg and returns the live
// request.
func (c *Chip) RequestLines(cfg LineConfig) (*LineRequest, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	if err := cfg.validate(c.info.Lines); err != nil {
		return nil, err
	}
	consumer := cfg.Consumer
	if consumer == "" {
		consumer = c.consumer
	}
	if c.abi == ABIV1 {
		return c.requestLinesV1(&cfg, consumer)
	}
	return c.requestLinesV2(&cfg, consumer)
}

func (c *Chip) requestLinesV2(cfg *LineConfig, consumer string) (*LineRequest, error) {
	lr, err := encodeLineRequest(cfg, consumer)
	if err != nil {
		return nil, err
	}
	if err := c.h.Ioctl(uapi.GetLineIoctl, unsafe.Pointer(&lr)); err != nil {
		return nil, classify("request lines", err)
	}
	h, err := wrapRequestFd(lr.Fd, fmt.Sprintf("%s:lines", c.info.Name))
	if err != nil {
		return nil, err
	}
	logger.Debugf("%s: requested lines %v as %q", c.info.Name, cfg.Offsets, consumer)
	return newLineRequest(c.info.Name, c.abi, cfg, h), nil
}

func (c *Chip) requestLinesV1(cfg *LineConfig, consumer string) (*LineRequest, error) {
	if cfg.edges() {
		er, err := encodeEventRequest(cfg, consumer)
		if err != nil {
			return nil, err
		}
		if err := c.h.Ioctl(uapi.GetLineEventIoctl, unsafe.Pointer(&er)); err != nil {
			return nil, classify("request lines", err)
		}
		h, err := wrapRequestFd(er.Fd, fmt.Sprintf("%s:line%d", c.info.Name, er.Offset))
		if err != nil {
			return nil, err
		}
		logger.Debugf("%s: requested line %d with edge detection as %q", c.info.Name, er.Offset, consumer)
		return newLineRequest(c.info.Name, c.abi, cfg, h), nil
	}
	hr, err := encodeHandleRequest(cfg, consumer)
	if err != nil {
		return nil, err
	}
	if err := c.h.Ioctl(uapi.GetLineHandleIoctl, unsafe.Pointer(&hr)); err != nil {
		return nil, classify("request lines", err)
	}
	h, err := wrapRequestFd(hr.Fd, fmt.Sprintf("%s:lines", c.info.Name))
	if err != nil {
		return nil, err
	}
	logger.Debugf("%s: requested lines %v as %q", c.info.Name, cfg.Offsets, consumer)
	return newLineRequest(c.info.Name, c.abi, cfg, h), nil
}
