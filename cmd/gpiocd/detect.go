package main

// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/s2e-systems/gpiocdev"
)

func newDetectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "detect",
		Short: "List the GPIO chips on the system",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			paths := gpiocdev.Chips()
			if len(paths) == 0 {
				return fmt.Errorf("no GPIO chips found")
			}
			for _, p := range paths {
				chip, err := openChip(p)
				if err != nil {
					log.Warnf("skipping %s: %v", p, err)
					continue
				}
				fmt.Printf("%s [%s] (%d lines, ABI %s)\n", chip.Name(), chip.Label(), chip.Lines(), chip.ABI())
				chip.Close()
			}
			return nil
		},
	}
}
