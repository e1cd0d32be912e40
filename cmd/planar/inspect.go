// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/gogpu/gputypes"
	"github.com/spf13/cobra"

	"github.com/gogpu/planar"
	"github.com/gogpu/planar/bind"
	"github.com/gogpu/planar/wgsl"
)

func newInspectCommand() *cobra.Command {
	var (
		showWGSL bool
		mode     string
		group    uint32
	)
	cmd := &cobra.Command{
		Use:   "inspect <schema.toml>",
		Short: "Print a schema's fields and binding layout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, err := planar.LoadSchema(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printSchema(out, schema)
			if !showWGSL {
				return nil
			}
			m, err := bind.ParseMode(mode)
			if err != nil {
				return err
			}
			src, err := wgsl.Declarations(schema, wgsl.Options{Group: group, Mode: m})
			if err != nil {
				return err
			}
			fmt.Fprintln(out)
			fmt.Fprint(out, src)
			return nil
		},
	}
	flags := cmd.Flags()
	flags.BoolVar(&showWGSL, "wgsl", false, "print WGSL binding declarations")
	flags.StringVar(&mode, "mode", "storage", "binding mode for --wgsl (storage, texture)")
	flags.Uint32Var(&group, "group", 0, "bind group index for --wgsl")
	return cmd
}

func printSchema(w io.Writer, schema *planar.Schema) {
	fmt.Fprintf(w, "schema %s (fingerprint %v, %d bytes per record)\n",
		schema.Name(), schema.Fingerprint(), schema.RecordSize())
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "BINDING\tFIELD\tKIND\tCOUNT\tSIZE\tFORMAT")
	for i, f := range schema.Fields() {
		format := "-"
		if f.Format != gputypes.TextureFormatUndefined {
			format = f.Format.String()
		}
		fmt.Fprintf(tw, "%d\t%s\t%v\t%d\t%d\t%s\n", i, f.Name, f.Kind, f.Count, f.ByteSize(), format)
	}
	tw.Flush()
}
