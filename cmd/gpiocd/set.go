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
	"time"

	"github.com/spf13/cobra"

	"github.com/s2e-systems/gpiocdev"
)

func newSetCmd() *cobra.Command {
	var (
		activeLow bool
		drive     string
		hold      time.Duration
	)
	cmd := &cobra.Command{
		Use:   "set <chip> <line>=<0|1>...",
		Short: "Drive a set of lines as outputs",
		Long: `Drive a set of lines as outputs.

The reservation ends when the command exits, after which the levels are up
to the driver again. Use --hold to keep driving for a while, or --hold=0
to hold until interrupted.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			chip, err := openChip(args[0])
			if err != nil {
				return err
			}
			defer chip.Close()
			var lineArgs []string
			levels := make([]bool, 0, len(args)-1)
			for _, arg := range args[1:] {
				ref, value, found := strings.Cut(arg, "=")
				if !found || (value != "0" && value != "1") {
					return fmt.Errorf("malformed %q, want <line>=<0|1>", arg)
				}
				lineArgs = append(lineArgs, ref)
				levels = append(levels, value == "1")
			}
			offsets, err := parseOffsets(chip, lineArgs)
			if err != nil {
				return err
			}
			d, err := parseDrive(drive)
			if err != nil {
				return err
			}
			req, err := chip.RequestLines(gpiocdev.LineConfig{
				Offsets: offsets,
				Defaults: gpiocdev.LineSettings{
					Direction: gpiocdev.LineOutput,
					ActiveLow: activeLow,
					Drive:     d,
				},
				OutputValues: gpiocdev.NewLineValues(levels...),
			})
			if err != nil {
				return err
			}
			defer req.Release()
			if !cmd.Flags().Changed("hold") {
				return nil
			}
			if hold > 0 {
				time.Sleep(hold)
				return nil
			}
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			log.Infof("holding %d lines, interrupt to release", len(offsets))
			<-ctx.Done()
			return nil
		},
	}
	cmd.Flags().BoolVar(&activeLow, "active-low", false, "treat the lines as active low")
	cmd.Flags().StringVar(&drive, "drive", "", "output drive: open-drain or open-source")
	cmd.Flags().DurationVar(&hold, "hold", 0, "keep driving for this long, 0 for until interrupted")
	return cmd
}

func parseDrive(s string) (gpiocdev.Drive, error) {
	switch s {
	case "":
		return gpiocdev.DrivePushPull, nil
	case "open-drain":
		return gpiocdev.DriveOpenDrain, nil
	case "open-source":
		return gpiocdev.DriveOpenSource, nil
	}
	return gpiocdev.DrivePushPull, fmt.Errorf("unknown drive %q, want open-drain or open-source", s)
}
