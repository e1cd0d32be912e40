// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package bind

import "fmt"

// State is the readiness of an element. States only move forward; the one
// way back is Engine.Invalidate, which drops the element's resources and
// restarts it at Loaded.
type State uint8

const (
	// Unresolved: the element holds a handle whose asset is not available.
	Unresolved State = iota

	// Loaded: the asset resolves to a store in host memory.
	Loaded

	// DeviceReady: device resources exist for a snapshot of the store.
	DeviceReady

	// Bound: a bind group over those resources is attached to the element.
	Bound

	numStates
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Unresolved:
		return "Unresolved"
	case Loaded:
		return "Loaded"
	case DeviceReady:
		return "DeviceReady"
	case Bound:
		return "Bound"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}
