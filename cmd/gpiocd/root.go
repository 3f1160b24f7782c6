package main

// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

import (
	"fmt"
	"strconv"

	prefixed "github.com/BertoldVdb/logrus-prefixed-formatter"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/s2e-systems/gpiocdev"
)

var (
	flagABI      string
	flagConsumer string
	flagVerbose  bool

	log *logrus.Entry
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "gpiocd",
		Short:        "Inspect and drive GPIO lines through /dev/gpiochip*",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			l := logrus.New()
			formatter := new(prefixed.TextFormatter)
			formatter.TimestampFormat = "2006-01-02 15:04:05"
			formatter.FullTimestamp = true
			l.SetFormatter(formatter)
			if flagVerbose {
				l.SetLevel(logrus.DebugLevel)
			}
			log = l.WithField("prefix", "gpiocd")
			gpiocdev.SetLogger(log)
		},
	}
	root.PersistentFlags().StringVar(&flagABI, "abi", "auto", "kernel ABI generation to use: auto, v1 or v2")
	root.PersistentFlags().StringVar(&flagConsumer, "consumer", "", "consumer label for line requests")
	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	root.AddCommand(
		newDetectCmd(),
		newInfoCmd(),
		newGetCmd(),
		newSetCmd(),
		newMonCmd(),
		newWatchCmd(),
	)
	return root
}

func openChip(name string) (*gpiocdev.Chip, error) {
	var opts []gpiocdev.ChipOption
	switch flagABI {
	case "auto", "":
	case "v1":
		opts = append(opts, gpiocdev.WithABI(gpiocdev.ABIV1))
	case "v2":
		opts = append(opts, gpiocdev.WithABI(gpiocdev.ABIV2))
	default:
		return nil, fmt.Errorf("unknown ABI %q, want auto, v1 or v2", flagABI)
	}
	if flagConsumer != "" {
		opts = append(opts, gpiocdev.WithConsumer(flagConsumer))
	}
	return gpiocdev.OpenChip(name, opts...)
}

// parseOffsets resolves command line line references, numeric offsets or
// driver-assigned names, against the chip.
func parseOffsets(chip *gpiocdev.Chip, args []string) ([]uint32, error) {
	offsets := make([]uint32, 0, len(args))
	for _, arg := range args {
		if n, err := strconv.ParseUint(arg, 10, 32); err == nil {
			offsets = append(offsets, uint32(n))
			continue
		}
		offset, err := chip.LookupLine(arg)
		if err != nil {
			return nil, err
		}
		offsets = append(offsets, offset)
	}
	return offsets, nil
}

func parseEdge(s string) (gpiocdev.Edge, error) {
	switch s {
	case "rising":
		return gpiocdev.EdgeRising, nil
	case "falling":
		return gpiocdev.EdgeFalling, nil
	case "both":
		return gpiocdev.EdgeBoth, nil
	}
	return gpiocdev.EdgeNone, fmt.Errorf("unknown edge %q, want rising, falling or both", s)
}

func parseBias(s string) (gpiocdev.Bias, error) {
	switch s {
	case "":
		return gpiocdev.BiasNotSet, nil
	case "pull-up":
		return gpiocdev.BiasPullUp, nil
	case "pull-down":
		return gpiocdev.BiasPullDown, nil
	case "disabled":
		return gpiocdev.BiasDisabled, nil
	}
	return gpiocdev.BiasNotSet, fmt.Errorf("unknown bias %q, want pull-up, pull-down or disabled", s)
}
