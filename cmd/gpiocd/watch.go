package main

// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/s2e-systems/gpiocdev"
)

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch <chip> <line>...",
		Short: "Watch lines for configuration changes",
		Long: `Watch lines for configuration changes.

Reports when another process requests, releases or reconfigures the given
lines, until interrupted.`,
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
			for _, offset := range offsets {
				info, err := chip.WatchLineInfo(offset, func(ev gpiocdev.LineInfoChangeEvent) {
					fmt.Printf("%s line %d %s: %s\n", ev.Timestamp, ev.Info.Offset, strings.ToLower(ev.Kind.String()), describeLine(ev.Info))
				})
				if err != nil {
					return err
				}
				fmt.Printf("watching line %3d: %s\n", offset, describeLine(info))
			}
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			<-ctx.Done()
			return nil
		},
	}
}
