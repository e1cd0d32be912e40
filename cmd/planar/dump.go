// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gogpu/planar/asset"
)

func newDumpCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "dump <file>",
		Short: "Print the schema and records of a planar file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("dump: %w", err)
			}
			defer f.Close()
			store, err := asset.Decode(f)
			if err != nil {
				return fmt.Errorf("dump: %s: %w", args[0], err)
			}

			out := cmd.OutOrStdout()
			printSchema(out, store.Schema())
			fmt.Fprintf(out, "%d records\n", store.Len())
			n := store.Len()
			if limit >= 0 {
				n = min(n, limit)
			}
			for i := range n {
				r, err := store.Get(i)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%d: %v\n", i, r)
			}
			if n < store.Len() {
				fmt.Fprintf(out, "... %d more\n", store.Len()-n)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum records to print (-1 for all)")
	return cmd
}
