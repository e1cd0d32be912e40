package gpucore

import "github.com/gogpu/gputypes"

// Resource IDs
//
// These opaque IDs represent device resources. Each Device implementation
// maintains a mapping between IDs and actual backend resources.
// IDs are uint64 to accommodate various backend handle sizes.

// BufferID is an opaque handle to a GPU buffer.
type BufferID uint64

// TextureID is an opaque handle to a GPU texture together with its
// default view.
type TextureID uint64

// BindGroupLayoutID is an opaque handle to a bind group layout.
type BindGroupLayoutID uint64

// BindGroupID is an opaque handle to a bind group.
type BindGroupID uint64

// InvalidID is the zero value, representing an invalid/null resource.
const InvalidID = 0

// BufferDescriptor describes a buffer to create.
type BufferDescriptor struct {
	// Label is an optional debug label.
	Label string

	// Size is the logical size in bytes. Zero is valid; devices that
	// cannot allocate empty buffers round up internally.
	Size uint64

	// Usage is the set of allowed usages.
	Usage gputypes.BufferUsage
}

// TextureDescriptor describes a texture to create. The device also creates
// the texture's default view with ViewDimension.
type TextureDescriptor struct {
	// Label is an optional debug label.
	Label string

	// Size is the width, height and array layer count.
	Size gputypes.Extent3D

	// Dimension is the texture dimension, normally 2D.
	Dimension gputypes.TextureDimension

	// ViewDimension is the dimension of the default view.
	ViewDimension gputypes.TextureViewDimension

	// Format is the texel format.
	Format gputypes.TextureFormat

	// Usage is the set of allowed usages.
	Usage gputypes.TextureUsage
}

// BindGroupLayoutDescriptor describes a bind group layout. Entries use the
// gputypes vocabulary directly.
type BindGroupLayoutDescriptor = gputypes.BindGroupLayoutDescriptor

// BindGroupEntry describes a single binding in a bind group.
// Exactly one of Buffer and Texture is set.
type BindGroupEntry struct {
	// Binding is the binding index.
	Binding uint32

	// Buffer is the buffer to bind (for buffer bindings).
	Buffer BufferID

	// Offset is the offset into the buffer.
	Offset uint64

	// Size is the size of the buffer range to bind.
	// Use 0 to bind the entire buffer from offset.
	Size uint64

	// Texture is the texture whose default view is bound (for texture bindings).
	Texture TextureID
}

// BindGroupDescriptor describes a bind group.
type BindGroupDescriptor struct {
	// Label is an optional debug label.
	Label string

	// Layout is the bind group layout.
	Layout BindGroupLayoutID

	// Entries are the resource bindings.
	Entries []BindGroupEntry
}
