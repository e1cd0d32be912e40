// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package bind

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/planar"
	"github.com/gogpu/planar/gpucore"
	"github.com/gogpu/planar/prepare"
)

// Mode selects how planar data is bound.
type Mode uint8

const (
	// ModeStorage binds one storage buffer per field.
	ModeStorage Mode = iota

	// ModeTexture binds one atlas texture per field.
	ModeTexture
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeStorage:
		return "storage"
	case ModeTexture:
		return "texture"
	default:
		return fmt.Sprintf("Mode(%d)", uint8(m))
	}
}

// ParseMode parses "storage" or "texture".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "storage":
		return ModeStorage, nil
	case "texture":
		return ModeTexture, nil
	default:
		return 0, fmt.Errorf("bind: unknown mode %q", s)
	}
}

// Binding visibilities.
const (
	StorageVisibility = gputypes.ShaderStagesAll
	TextureVisibility = gputypes.ShaderStagesVertexFragment | gputypes.ShaderStageCompute
)

// StorageLayoutEntries returns one storage buffer entry per field, in
// field order, with the field's element size as minimum binding size.
func StorageLayoutEntries(schema *planar.Schema, readOnly bool) []gputypes.BindGroupLayoutEntry {
	typ := gputypes.BufferBindingTypeStorage
	if readOnly {
		typ = gputypes.BufferBindingTypeReadOnlyStorage
	}
	sizes := schema.MinBindingSizes()
	entries := make([]gputypes.BindGroupLayoutEntry, len(sizes))
	for i, size := range sizes {
		entries[i] = gputypes.BindGroupLayoutEntry{
			Binding:    uint32(i),
			Visibility: StorageVisibility,
			Buffer: &gputypes.BufferBindingLayout{
				Type:           typ,
				MinBindingSize: uint64(size),
			},
		}
	}
	return entries
}

// TextureLayoutEntries returns one texture entry per field, in field
// order. The sample type follows the format; the view dimension is 2D, or
// 2D array when one element spans several texels.
func TextureLayoutEntries(schema *planar.Schema, formats []gputypes.TextureFormat) ([]gputypes.BindGroupLayoutEntry, error) {
	if err := prepare.CheckFormats(schema, formats); err != nil {
		return nil, err
	}
	entries := make([]gputypes.BindGroupLayoutEntry, schema.NumFields())
	for i, f := range schema.Fields() {
		bpt, _ := gpucore.BytesPerTexel(formats[i])
		atlas := prepare.AtlasLayout(0, f.ByteSize(), bpt)
		entries[i] = gputypes.BindGroupLayoutEntry{
			Binding:    uint32(i),
			Visibility: TextureVisibility,
			Texture: &gputypes.TextureBindingLayout{
				SampleType:    gpucore.SampleType(formats[i]),
				ViewDimension: atlas.ViewDimension,
			},
		}
	}
	return entries, nil
}

// LayoutDescriptor builds the bind group layout descriptor of schema in
// the given mode. Texture layouts use the formats declared on the schema.
func LayoutDescriptor(schema *planar.Schema, mode Mode, readOnly bool) (*gpucore.BindGroupLayoutDescriptor, error) {
	switch mode {
	case ModeStorage:
		return &gpucore.BindGroupLayoutDescriptor{
			Label:   schema.Label("bind_group_layout"),
			Entries: StorageLayoutEntries(schema, readOnly),
		}, nil
	case ModeTexture:
		entries, err := TextureLayoutEntries(schema, schema.TextureFormats())
		if err != nil {
			return nil, err
		}
		return &gpucore.BindGroupLayoutDescriptor{
			Label:   "texture_" + schema.Label("bind_group_layout"),
			Entries: entries,
		}, nil
	default:
		return nil, fmt.Errorf("bind: unknown mode %v", mode)
	}
}

// LayoutKey identifies a cached layout.
type LayoutKey struct {
	Schema   planar.Fingerprint
	Mode     Mode
	ReadOnly bool
}

func keyOf(schema *planar.Schema, mode Mode, readOnly bool) LayoutKey {
	if mode == ModeTexture {
		readOnly = false
	}
	return LayoutKey{Schema: schema.Fingerprint(), Mode: mode, ReadOnly: readOnly}
}

// CacheStats reports LayoutCache usage.
type CacheStats struct {
	Len    int
	Hits   uint64
	Misses uint64
}

// LayoutCache builds each schema's bind group layout once per device and
// shares it between elements. Layouts are never evicted; they live until
// Invalidate or Release.
//
// LayoutCache is safe for concurrent use.
type LayoutCache struct {
	device gpucore.Device

	mu      sync.RWMutex
	entries map[LayoutKey]gpucore.BindGroupLayoutID

	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewLayoutCache returns an empty cache creating layouts on device.
func NewLayoutCache(device gpucore.Device) *LayoutCache {
	return &LayoutCache{
		device:  device,
		entries: make(map[LayoutKey]gpucore.BindGroupLayoutID),
	}
}

// Get returns the layout for schema, creating it on first use.
func (c *LayoutCache) Get(schema *planar.Schema, mode Mode, readOnly bool) (gpucore.BindGroupLayoutID, error) {
	key := keyOf(schema, mode, readOnly)

	// Fast path: read lock
	c.mu.RLock()
	id, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		c.hits.Add(1)
		return id, nil
	}

	// Slow path: create under the write lock so concurrent callers share one layout
	c.mu.Lock()
	defer c.mu.Unlock()
	if id, ok := c.entries[key]; ok {
		c.hits.Add(1)
		return id, nil
	}
	c.misses.Add(1)

	desc, err := LayoutDescriptor(schema, mode, readOnly)
	if err != nil {
		return gpucore.InvalidID, err
	}
	id, err = c.device.CreateBindGroupLayout(desc)
	if err != nil {
		return gpucore.InvalidID, err
	}
	c.entries[key] = id
	planar.Logger().Debug("bind: layout created", "schema", schema.Name(), "mode", mode, "read_only", key.ReadOnly)
	return id, nil
}

// Invalidate destroys every layout built for schema and returns how many
// were dropped. Bind groups built against them must be rebuilt.
func (c *LayoutCache) Invalidate(schema *planar.Schema) int {
	fp := schema.Fingerprint()
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for key, id := range c.entries {
		if key.Schema == fp {
			c.device.DestroyBindGroupLayout(id)
			delete(c.entries, key)
			n++
		}
	}
	return n
}

// Release destroys every cached layout.
func (c *LayoutCache) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, id := range c.entries {
		c.device.DestroyBindGroupLayout(id)
		delete(c.entries, key)
	}
}

// Len returns the number of cached layouts.
func (c *LayoutCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns cache statistics.
func (c *LayoutCache) Stats() CacheStats {
	return CacheStats{Len: c.Len(), Hits: c.hits.Load(), Misses: c.misses.Load()}
}
