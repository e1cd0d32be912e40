// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package bind

import (
	"github.com/gogpu/planar"
	"github.com/gogpu/planar/gpucore"
	"github.com/gogpu/planar/prepare"
)

// StorageGroup binds the field buffers of set, in field order, against a
// storage layout.
func StorageGroup(device gpucore.Device, layout gpucore.BindGroupLayoutID, set *prepare.BufferSet) (gpucore.BindGroupID, error) {
	entries := make([]gpucore.BindGroupEntry, len(set.Fields))
	for i, id := range set.Fields {
		entries[i] = gpucore.BindGroupEntry{Binding: uint32(i), Buffer: id}
	}
	return device.CreateBindGroup(&gpucore.BindGroupDescriptor{
		Label:   set.Schema.Label("bind_group"),
		Layout:  layout,
		Entries: entries,
	})
}

// TextureGroup binds the field textures of set, in field order, against a
// texture layout.
func TextureGroup(device gpucore.Device, layout gpucore.BindGroupLayoutID, set *prepare.TextureSet) (gpucore.BindGroupID, error) {
	entries := make([]gpucore.BindGroupEntry, len(set.Fields))
	for i, id := range set.Fields {
		entries[i] = gpucore.BindGroupEntry{Binding: uint32(i), Texture: id}
	}
	return device.CreateBindGroup(&gpucore.BindGroupDescriptor{
		Label:   "texture_" + set.Schema.Label("bind_group"),
		Layout:  layout,
		Entries: entries,
	})
}

// BindBuffers prepares the field buffers of src and binds them in one step,
// for callers that track readiness themselves. The caller releases the set
// and destroys the group.
func BindBuffers(device gpucore.Device, layouts *LayoutCache, src planar.BufferBindable) (*prepare.BufferSet, gpucore.BindGroupID, error) {
	set, err := prepare.Buffers(device, src)
	if err != nil {
		return nil, gpucore.InvalidID, err
	}
	layout, err := layouts.Get(set.Schema, ModeStorage, src.ReadOnly())
	if err != nil {
		set.Release()
		return nil, gpucore.InvalidID, err
	}
	id, err := StorageGroup(device, layout, set)
	if err != nil {
		set.Release()
		return nil, gpucore.InvalidID, err
	}
	return set, id, nil
}
