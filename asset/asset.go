// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package asset provides the asset servers that hand planar stores to the
// readiness engine.
//
// A Server answers two questions for a Handle: what its load state is and,
// once loaded, which store it resolves to. MemoryServer keeps stores in
// memory and lets callers drive the load state by hand. FileServer decodes
// planar files in the background and reloads them when they change on disk.
package asset

import (
	"github.com/google/uuid"

	"github.com/gogpu/planar"
)

// Handle identifies an asset. The zero Handle refers to nothing.
type Handle uuid.UUID

// NewHandle returns a fresh random handle.
func NewHandle() Handle { return Handle(uuid.New()) }

// ParseHandle parses the textual form produced by Handle.String.
func ParseHandle(s string) (Handle, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return Handle{}, err
	}
	return Handle(id), nil
}

// IsZero reports whether h is the zero handle.
func (h Handle) IsZero() bool { return h == Handle{} }

// String returns the canonical UUID form of h.
func (h Handle) String() string { return uuid.UUID(h).String() }

// LoadState is the load state of an asset.
type LoadState uint8

const (
	// Loading means the asset is not available yet. Ask again next tick.
	Loading LoadState = iota

	// Loaded means the asset resolves to a store.
	Loaded

	// Missing means the asset does not exist or failed to load.
	Missing
)

// String returns the state name.
func (s LoadState) String() string {
	switch s {
	case Loading:
		return "Loading"
	case Loaded:
		return "Loaded"
	case Missing:
		return "Missing"
	default:
		return "LoadState(?)"
	}
}

// Server is the asset-loading collaborator of the readiness engine.
//
// Implementations must be safe for concurrent use.
type Server interface {
	// LoadState returns the current state of h. Unknown handles are Missing.
	LoadState(h Handle) LoadState

	// Resolve returns the store behind h once it is Loaded.
	Resolve(h Handle) (*planar.Store, bool)
}

// Ref is the component that links an element to the planar asset it
// renders. Element is the host's element ID.
type Ref struct {
	Element uint64
	Handle  Handle
}
