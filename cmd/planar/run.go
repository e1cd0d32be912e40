// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/gogpu/planar"
	"github.com/gogpu/planar/asset"
	"github.com/gogpu/planar/backend"
	"github.com/gogpu/planar/bind"
	"github.com/gogpu/planar/gpucore"
	"github.com/gogpu/planar/host"

	_ "github.com/gogpu/planar/backend/memory" // registers "memory"
	_ "github.com/gogpu/planar/backend/native" // registers "noop"
)

type runOptions struct {
	backend     string
	mode        string
	readWrite   bool
	ticks       int
	interval    time.Duration
	watch       bool
	metricsAddr string
}

func newRunCommand() *cobra.Command {
	var o runOptions
	cmd := &cobra.Command{
		Use:   "run <file>",
		Short: "Drive the binding engine over a planar file",
		Long: `Run loads a planar file, attaches it to one element and ticks the binding
engine until the element is bound. With --watch it keeps ticking and rebinds
the element whenever the file changes on disk.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args[0], o)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&o.backend, "backend", "", "device backend (default: highest priority registered)")
	flags.StringVar(&o.mode, "mode", "storage", "binding mode (storage, texture)")
	flags.BoolVar(&o.readWrite, "read-write", false, "bind storage buffers read-write")
	flags.IntVar(&o.ticks, "ticks", 0, "stop after this many ticks (0: no limit)")
	flags.DurationVar(&o.interval, "interval", 16*time.Millisecond, "time between ticks")
	flags.BoolVar(&o.watch, "watch", false, "keep running and rebind when the file changes")
	flags.StringVar(&o.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	return cmd
}

func openDevice(name string) (gpucore.Device, error) {
	if name != "" {
		return backend.Open(name)
	}
	dev, _, err := backend.Default()
	return dev, err
}

func run(cmd *cobra.Command, path string, o runOptions) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	log := planar.Logger()

	mode, err := bind.ParseMode(o.mode)
	if err != nil {
		return err
	}
	dev, err := openDevice(o.backend)
	if err != nil {
		return err
	}
	if c, ok := dev.(interface{ Close() }); ok {
		defer c.Close()
	}

	files, err := asset.NewFileServer()
	if err != nil {
		return err
	}
	defer files.Close()

	reg := prometheus.NewRegistry()
	metrics := bind.NewMetrics(reg)
	if o.metricsAddr != "" {
		srv := &http.Server{
			Addr:              o.metricsAddr,
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Warn("metrics server stopped", "err", err)
			}
		}()
		defer srv.Close()
	}

	world := host.NewWorld()
	engine := bind.NewEngine(dev, files, world,
		bind.WithMode(mode),
		bind.WithReadOnly(!o.readWrite),
		bind.WithMetrics(metrics),
	)
	defer engine.Close()

	h := files.Load(path)
	el := world.Spawn(h)

	changed := make(chan asset.Handle, 1)
	if o.watch {
		files.OnChange(func(h asset.Handle) {
			select {
			case changed <- h:
			default:
			}
		})
	}

	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	last := bind.State(255)
	for tick := 1; o.ticks == 0 || tick <= o.ticks; tick++ {
		if err := engine.Tick(ctx); err != nil {
			return err
		}
		state, _ := engine.State(el)
		if state != last {
			last = state
			report(out, world, el, state)
		}
		if files.LoadState(h) == asset.Missing {
			return fmt.Errorf("run: %s could not be loaded", path)
		}
		if state == bind.Bound && !o.watch {
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case h := <-changed:
			if n := engine.InvalidateHandle(h); n > 0 {
				fmt.Fprintf(out, "reloaded %s, rebinding %d element(s)\n", path, n)
			}
		case <-ticker.C:
		}
	}
	if last != bind.Bound {
		return fmt.Errorf("run: element not bound after %d ticks (state %v)", o.ticks, last)
	}
	return nil
}

func report(out io.Writer, world *host.World, el host.Element, state bind.State) {
	g, ok := host.Get[*bind.Group](world, el)
	if state != bind.Bound || !ok {
		fmt.Fprintf(out, "element %d: %v\n", el, state)
		return
	}
	fmt.Fprintf(out, "element %d: %v (%s, %d records, generation %d)\n", el, state, g.Mode, g.Len, g.Generation)
}
