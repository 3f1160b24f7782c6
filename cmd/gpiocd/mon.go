package main

// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"zappem.net/pub/io/iotracer"

	"github.com/s2e-systems/gpiocdev"
)

func newMonCmd() *cobra.Command {
	var (
		edge      string
		bias      string
		activeLow bool
		debounce  time.Duration
		numEvents uint
		vcdFile   string
	)
	cmd := &cobra.Command{
		Use:   "mon <chip> <line>...",
		Short: "Monitor lines for edge events",
		Long: `Monitor lines for edge events.

Events print as they arrive, until --num-events is reached or the command
is interrupted. With --vcd the observed transitions are also recorded and
written out as a VCD waveform file on exit.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			chip, err := openChip(args[0])
			if err != nil {
				return err
			}
			defer chip.Close()
			offsets, err := parseOffsets(chip, args[1:])
			if err != nil {
				return err
			}
			e, err := parseEdge(edge)
			if err != nil {
				return err
			}
			b, err := parseBias(bias)
			if err != nil {
				return err
			}
			req, err := chip.RequestLines(gpiocdev.LineConfig{
				Offsets: offsets,
				Defaults: gpiocdev.LineSettings{
					Direction: gpiocdev.LineInput,
					Edge:      e,
					Bias:      b,
					ActiveLow: activeLow,
					Debounce:  debounce,
				},
			})
			if err != nil {
				return err
			}
			defer req.Release()

			var tr *iotracer.Trace
			if vcdFile != "" {
				tr = iotracer.NewTrace("gpiocd", 10000)
				for i, offset := range offsets {
					info, err := chip.LineInfo(offset)
					if err != nil || info.Name == "" {
						tr.Label(i, fmt.Sprintf("gpio%d", offset))
						continue
					}
					tr.Label(i, info.Name)
				}
			}

			stream, err := req.NewEventStream(0)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			go func() {
				<-ctx.Done()
				stream.Stop()
			}()

			mask := uint64(1)<<uint(len(offsets)) - 1
			var bits uint64
			var seen uint
			for ev := range stream.Events {
				fmt.Printf("%s line %d %s seqno %d\n", ev.Timestamp, ev.Offset, strings.ToLower(ev.Edge.String()), ev.Seqno)
				if tr != nil {
					for i, offset := range offsets {
						if offset != ev.Offset {
							continue
						}
						if ev.Edge == gpiocdev.EdgeRising {
							bits |= 1 << uint(i)
						} else {
							bits &^= 1 << uint(i)
						}
					}
					tr.Sample(mask, bits)
				}
				seen++
				if numEvents > 0 && seen >= numEvents {
					stream.Stop()
					break
				}
			}
			if err := stream.Err(); err != nil {
				return err
			}
			if lost := req.EventOverflows(); lost > 0 {
				log.Warnf("%d events lost to kernel buffer overflow", lost)
			}
			if tr != nil {
				return writeVCD(tr, vcdFile)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&edge, "edge", "both", "edges to monitor: rising, falling or both")
	cmd.Flags().StringVar(&bias, "bias", "", "input bias: pull-up, pull-down or disabled")
	cmd.Flags().BoolVar(&activeLow, "active-low", false, "treat the lines as active low")
	cmd.Flags().DurationVar(&debounce, "debounce", 0, "input debounce period (ABI v2 only)")
	cmd.Flags().UintVarP(&numEvents, "num-events", "n", 0, "exit after this many events, 0 for unlimited")
	cmd.Flags().StringVar(&vcdFile, "vcd", "", "write observed transitions to this VCD file")
	return cmd
}

func writeVCD(tr *iotracer.Trace, name string) error {
	rd, err := tr.VCD(100 * time.Nanosecond)
	if err != nil {
		return fmt.Errorf("generating VCD trace: %w", err)
	}
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := io.Copy(f, rd); err != nil {
		return err
	}
	log.Infof("wrote trace to %s", name)
	return nil
}
