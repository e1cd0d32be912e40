// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package asset

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/planar"
)

// ErrUnknownHandle is returned when a handle is not known to a server.
var ErrUnknownHandle = errors.New("asset: unknown handle")

type entry struct {
	state LoadState
	store *planar.Store
}

// MemoryServer is a Server over stores held in memory. Its load states are
// driven explicitly: Reserve creates a Loading slot that later becomes
// Loaded through Fulfil or Missing through Fail.
type MemoryServer struct {
	mu      sync.RWMutex
	entries map[Handle]*entry
}

// NewMemoryServer returns an empty server.
func NewMemoryServer() *MemoryServer {
	return &MemoryServer{entries: make(map[Handle]*entry)}
}

// Add registers a loaded store and returns its handle.
func (m *MemoryServer) Add(store *planar.Store) Handle {
	h := NewHandle()
	m.mu.Lock()
	m.entries[h] = &entry{state: Loaded, store: store}
	m.mu.Unlock()
	return h
}

// Reserve returns the handle of an asset that is still loading.
func (m *MemoryServer) Reserve() Handle {
	h := NewHandle()
	m.mu.Lock()
	m.entries[h] = &entry{state: Loading}
	m.mu.Unlock()
	return h
}

// Fulfil marks a reserved asset as loaded with store.
func (m *MemoryServer) Fulfil(h Handle, store *planar.Store) error {
	return m.update(h, func(e *entry) {
		e.state, e.store = Loaded, store
	})
}

// Fail marks an asset as missing.
func (m *MemoryServer) Fail(h Handle) error {
	return m.update(h, func(e *entry) {
		e.state, e.store = Missing, nil
	})
}

// Replace swaps the store of a loaded asset. Elements bound to the old
// store must be invalidated by the caller.
func (m *MemoryServer) Replace(h Handle, store *planar.Store) error {
	return m.update(h, func(e *entry) {
		e.state, e.store = Loaded, store
	})
}

// Remove forgets h. Later queries report Missing.
func (m *MemoryServer) Remove(h Handle) {
	m.mu.Lock()
	delete(m.entries, h)
	m.mu.Unlock()
}

func (m *MemoryServer) update(h Handle, fn func(*entry)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[h]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownHandle, h)
	}
	fn(e)
	return nil
}

// LoadState implements Server.
func (m *MemoryServer) LoadState(h Handle) LoadState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if e, ok := m.entries[h]; ok {
		return e.state
	}
	return Missing
}

// Resolve implements Server.
func (m *MemoryServer) Resolve(h Handle) (*planar.Store, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[h]
	if !ok || e.state != Loaded || e.store == nil {
		return nil, false
	}
	return e.store, true
}

var _ Server = (*MemoryServer)(nil)
