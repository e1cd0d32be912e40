// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package prepare turns planar stores into device resources.
//
// Buffers creates one storage buffer per field plus an indirect draw
// argument buffer. Textures packs every column into a square texture atlas,
// tiled over array layers when one element spans several texels. Both read
// a consistent snapshot of the store and record its generation so that
// callers can tell when the resources have gone stale.
package prepare

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/planar"
	"github.com/gogpu/planar/gpucore"
)

// Usages of prepared buffers.
const (
	FieldBufferUsage    = gputypes.BufferUsageCopyDst | gputypes.BufferUsageStorage
	IndirectBufferUsage = gputypes.BufferUsageStorage | gputypes.BufferUsageCopySrc | gputypes.BufferUsageIndirect
)

// QuadVertexCount is the vertex count of the quad drawn once per element.
const QuadVertexCount = 4

// BufferSet holds the buffers prepared from one store snapshot.
type BufferSet struct {
	// Schema is the schema of the source store.
	Schema *planar.Schema

	// Fields holds one buffer per field, in field order.
	Fields []gpucore.BufferID

	// Sizes holds the byte size of each field buffer.
	Sizes []uint64

	// Indirect holds the draw arguments {4, Len, 0, 0}.
	Indirect gpucore.BufferID

	// Len is the element count of the snapshot.
	Len int

	// Generation is the store generation the snapshot was taken at.
	Generation uint64

	device gpucore.Device
}

// IndirectArgs returns the draw arguments for n elements: one instanced
// quad per element.
func IndirectArgs(n int) gpucore.DrawIndirectArgs {
	return gpucore.DrawIndirectArgs{VertexCount: QuadVertexCount, InstanceCount: uint32(n)}
}

// IndirectBuffer creates the indirect argument buffer for n elements of
// schema. Buffers creates one as part of every BufferSet; texture-bound
// data creates its own.
func IndirectBuffer(device gpucore.Device, schema *planar.Schema, n int) (gpucore.BufferID, error) {
	return device.CreateBuffer(&gpucore.BufferDescriptor{
		Label: schema.Label("indirect_buffer"),
		Size:  gpucore.DrawIndirectArgsSize,
		Usage: IndirectBufferUsage,
	}, IndirectArgs(n).Bytes())
}

// Buffers creates one buffer per field holding the column bytes, and the
// shared indirect argument buffer. An empty store yields zero-length field
// buffers. Any device failure is returned as is; buffers created before
// the failure are released.
func Buffers(device gpucore.Device, src planar.Columnar) (*BufferSet, error) {
	snap := src.Snapshot()
	schema := snap.Schema()

	set := &BufferSet{
		Schema:     schema,
		Fields:     make([]gpucore.BufferID, 0, schema.NumFields()),
		Sizes:      make([]uint64, 0, schema.NumFields()),
		Len:        snap.Len(),
		Generation: snap.Generation(),
		device:     device,
	}
	for i, f := range schema.Fields() {
		col := snap.Column(i)
		id, err := device.CreateBuffer(&gpucore.BufferDescriptor{
			Label: f.Name + "_buffer",
			Size:  uint64(len(col)),
			Usage: FieldBufferUsage,
		}, col)
		if err != nil {
			set.Release()
			return nil, err
		}
		set.Fields = append(set.Fields, id)
		set.Sizes = append(set.Sizes, uint64(len(col)))
	}

	id, err := IndirectBuffer(device, schema, set.Len)
	if err != nil {
		set.Release()
		return nil, err
	}
	set.Indirect = id

	planar.Logger().Debug("prepare: buffers created",
		"schema", schema.Name(), "len", set.Len, "fields", len(set.Fields), "generation", set.Generation)
	return set, nil
}

// Release destroys every buffer of the set. It is safe to call more than once.
func (s *BufferSet) Release() {
	if s == nil || s.device == nil {
		return
	}
	for _, id := range s.Fields {
		s.device.DestroyBuffer(id)
	}
	if s.Indirect != gpucore.InvalidID {
		s.device.DestroyBuffer(s.Indirect)
	}
	s.Fields, s.Indirect, s.device = nil, gpucore.InvalidID, nil
}
