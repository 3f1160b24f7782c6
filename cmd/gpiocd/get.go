package main

// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/s2e-systems/gpiocdev"
)

func newGetCmd() *cobra.Command {
	var (
		activeLow bool
		bias      string
	)
	cmd := &cobra.Command{
		Use:   "get <chip> <line>...",
		Short: "Read the levels of a set of lines",
		Args:  cobra.MinimumNArgs(2),
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
			b, err := parseBias(bias)
			if err != nil {
				return err
			}
			req, err := chip.RequestLines(gpiocdev.LineConfig{
				Offsets: offsets,
				Defaults: gpiocdev.LineSettings{
					Direction: gpiocdev.LineInput,
					ActiveLow: activeLow,
					Bias:      b,
				},
			})
			if err != nil {
				return err
			}
			defer req.Release()
			values, err := req.Values()
			if err != nil {
				return err
			}
			for i, offset := range offsets {
				level, _ := values.Get(i)
				v := 0
				if level {
					v = 1
				}
				fmt.Printf("line %d: %d\n", offset, v)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&activeLow, "active-low", false, "treat the lines as active low")
	cmd.Flags().StringVar(&bias, "bias", "", "input bias: pull-up, pull-down or disabled")
	return cmd
}
