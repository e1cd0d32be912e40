// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package bind

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the Prometheus collectors updated by an Engine.
type Metrics struct {
	// Transitions counts state transitions by target state.
	Transitions *prometheus.CounterVec

	// Elements is the number of tracked elements per state, set after
	// every tick.
	Elements *prometheus.GaugeVec

	// PrepareSeconds observes device resource preparation time per element.
	PrepareSeconds prometheus.Histogram

	// Failures counts fatal device errors.
	Failures prometheus.Counter
}

// NewMetrics creates the engine collectors and registers them with reg
// when reg is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "planar",
			Subsystem: "bind",
			Name:      "transitions_total",
			Help:      "Readiness state transitions by target state.",
		}, []string{"state"}),
		Elements: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "planar",
			Subsystem: "bind",
			Name:      "elements",
			Help:      "Tracked elements by readiness state.",
		}, []string{"state"}),
		PrepareSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "planar",
			Subsystem: "bind",
			Name:      "prepare_seconds",
			Help:      "Time spent creating device resources for one element.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		Failures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "planar",
			Subsystem: "bind",
			Name:      "device_failures_total",
			Help:      "Fatal device errors surfaced by Tick.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Transitions, m.Elements, m.PrepareSeconds, m.Failures)
	}
	return m
}

func (m *Metrics) transition(to State) {
	if m != nil {
		m.Transitions.WithLabelValues(to.String()).Inc()
	}
}

func (m *Metrics) prepared(start time.Time) {
	if m != nil {
		m.PrepareSeconds.Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) failed() {
	if m != nil {
		m.Failures.Inc()
	}
}

func (m *Metrics) census(counts [numStates]int) {
	if m == nil {
		return
	}
	for s, n := range counts {
		m.Elements.WithLabelValues(State(s).String()).Set(float64(n))
	}
}
