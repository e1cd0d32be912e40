// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package planar converts fixed-schema records into a columnar layout and
// derives the GPU binding metadata needed to expose those columns to a
// render or compute pipeline.
//
// # Overview
//
// A [Schema] describes an ordered list of fixed-size fields. Records in the
// packed (row) form are plain [Record] values; a [Store] holds the same data
// as one contiguous little-endian column per field:
//
//	schema, _ := planar.NewSchema("my_struct",
//	    planar.Field{Name: "field", Kind: planar.Int32, Format: gputypes.TextureFormatR32Sint},
//	    planar.Field{Name: "field2", Kind: planar.Uint32, Format: gputypes.TextureFormatR32Uint},
//	    planar.Field{Name: "bool_field", Kind: planar.Bool, Format: gputypes.TextureFormatR8Unorm},
//	    planar.Field{Name: "array", Kind: planar.Uint32, Count: 4, Format: gputypes.TextureFormatRGBA32Uint},
//	)
//	store, _ := planar.FromPacked(schema, []planar.Record{
//	    {int32(0), uint32(1), true, []uint32{0, 1, 2, 3}},
//	})
//
// Struct types can describe the schema directly through reflection, see
// [SchemaOf], [FromStructs] and [ToStructs].
//
// # Field layout
//
// The schema doubles as the field layout reflector: [Schema.OrderedFieldNames]
// and [Schema.MinBindingSizes] report the positional binding order and the
// byte size of one element of every column. Column order, record field order
// and binding index order are always identical.
//
// # GPU resources
//
// The sub-packages derive device resources from a store snapshot:
//
//   - prepare: per-field storage buffers, the indirect draw arguments buffer
//     and square texture atlases
//   - bind: bind group layouts, bind groups and the per-element readiness
//     state machine that gates bind group assembly
//   - asset: asset handles, an in-memory and a file-backed asset server
//   - backend/native: gpucore.Device on top of gogpu/wgpu HAL devices
//
// # Concurrency
//
// A Store is safe for concurrent use, but the expected pattern is a single
// writer. Preparation always works on a [Store.Snapshot], and the store's
// [Store.Generation] tells whether resources derived from an earlier
// snapshot are stale.
package planar
