// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"io"
	"log/slog"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/gogpu/planar"
)

// NewRootCommand returns the planar command tree writing results to stdout
// and logs to stderr.
func NewRootCommand(stdout, stderr io.Writer) *cobra.Command {
	var level string
	rc := &cobra.Command{
		Use:   "planar",
		Short: "Planar asset tool",
		Long: `Planar stores records column by column so every field can be bound to a
shader as its own storage buffer or atlas texture.

This tool packs TOML records into planar files, inspects schemas and files,
and drives the binding engine over a file on a headless device.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			lvl, err := log.ParseLevel(level)
			if err != nil {
				return err
			}
			logger := log.NewWithOptions(stderr, log.Options{
				Level:           lvl,
				ReportTimestamp: true,
				TimeFormat:      time.TimeOnly,
				Prefix:          "planar",
			})
			planar.SetLogger(slog.New(logger))
			return nil
		},
	}
	rc.SetOut(stdout)
	rc.SetErr(stderr)
	rc.PersistentFlags().StringVar(&level, "log-level", "warn", "log level (debug, info, warn, error)")

	rc.AddCommand(newInspectCommand())
	rc.AddCommand(newPackCommand())
	rc.AddCommand(newDumpCommand())
	rc.AddCommand(newRunCommand())
	return rc
}
