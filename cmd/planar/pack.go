// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/klauspost/compress/zstd"
	"github.com/spf13/cobra"

	"github.com/gogpu/planar"
	"github.com/gogpu/planar/asset"
)

func newPackCommand() *cobra.Command {
	var (
		output   string
		compress bool
		level    int
	)
	cmd := &cobra.Command{
		Use:   "pack <schema.toml> <records.toml>",
		Short: "Pack TOML records into a planar file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				return errors.New("pack: --output is required")
			}
			schema, err := planar.LoadSchema(args[0])
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[1])
			if err != nil {
				return fmt.Errorf("pack: %w", err)
			}
			records, err := planar.DecodeRecords(schema, data)
			if err != nil {
				return fmt.Errorf("pack: %s: %w", args[1], err)
			}
			store, err := planar.FromPacked(schema, records)
			if err != nil {
				return fmt.Errorf("pack: %w", err)
			}

			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("pack: %w", err)
			}
			opts := asset.EncodeOptions{Compress: compress, Level: zstd.EncoderLevelFromZstd(level)}
			if err := asset.Encode(f, store, opts); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("pack: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "packed %d %s records into %s\n", store.Len(), schema.Name(), output)
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&output, "output", "o", "", "planar file to write")
	flags.BoolVar(&compress, "compress", false, "zstd-compress the file body")
	flags.IntVar(&level, "level", 3, "zstd compression level (1-22)")
	return cmd
}
