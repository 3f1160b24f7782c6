package main

// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/s2e-systems/gpiocdev"
)

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <chip> [line...]",
		Short: "Show line information for a chip",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			chip, err := openChip(args[0])
			if err != nil {
				return err
			}
			defer chip.Close()
			var infos []gpiocdev.LineInfo
			if len(args) == 1 {
				infos, err = chip.LineInfos()
				if err != nil {
					return err
				}
			} else {
				offsets, err := parseOffsets(chip, args[1:])
				if err != nil {
					return err
				}
				for _, offset := range offsets {
					info, err := chip.LineInfo(offset)
					if err != nil {
						return err
					}
					infos = append(infos, info)
				}
			}
			fmt.Printf("%s - %d lines:\n", chip.Name(), chip.Lines())
			for _, info := range infos {
				fmt.Printf("\tline %3d: %s\n", info.Offset, describeLine(info))
			}
			return nil
		},
	}
}

func describeLine(info gpiocdev.LineInfo) string {
	name := info.Name
	if name == "" {
		name = "unnamed"
	}
	attrs := []string{strings.ToLower(info.Direction.String())}
	if info.Used {
		consumer := info.Consumer
		if consumer == "" {
			consumer = "kernel"
		}
		attrs = append(attrs, fmt.Sprintf("used by %q", consumer))
	}
	if info.ActiveLow {
		attrs = append(attrs, "active-low")
	}
	if info.Bias != gpiocdev.BiasNotSet {
		attrs = append(attrs, "bias="+strings.ToLower(info.Bias.String()))
	}
	if info.Drive != gpiocdev.DrivePushPull {
		attrs = append(attrs, strings.ToLower(info.Drive.String()))
	}
	if info.Edge != gpiocdev.EdgeNone {
		attrs = append(attrs, "edges="+strings.ToLower(info.Edge.String()))
	}
	if info.Debounce != 0 {
		attrs = append(attrs, fmt.Sprintf("debounce=%s", info.Debounce))
	}
	return fmt.Sprintf("%-16q %s", name, strings.Join(attrs, ", "))
}
