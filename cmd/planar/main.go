// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Command planar packs, inspects and binds planar asset files.
//
//	planar inspect schema.toml
//	planar pack schema.toml records.toml -o data.plnr --compress
//	planar dump data.plnr
//	planar run data.plnr --mode texture --watch
package main

import (
	"context"
	"os"
	"os/signal"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := NewRootCommand(os.Stdout, os.Stderr).ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
