// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package planar

import "github.com/gogpu/gputypes"

// Columnar is implemented by values that expose their data in planar form.
// *Store implements it; host asset types usually embed or wrap a Store.
type Columnar interface {
	Schema() *Schema
	Len() int
	Column(i int) []byte
	Generation() uint64
	Snapshot() *Store
}

// BufferBindable is implemented by planar values that can be bound as one
// storage buffer per field.
type BufferBindable interface {
	Columnar

	// ReadOnly reports whether the storage bindings are read-only.
	ReadOnly() bool
}

// TextureBindable is implemented by planar values that can be bound as one
// texture per field.
type TextureBindable interface {
	Columnar

	// TextureFormats returns one texture format per field, in field order.
	TextureFormats() []gputypes.TextureFormat
}

// Bindable adapts a Store to BufferBindable and TextureBindable. The texture
// formats default to the formats declared on the schema fields.
type Bindable struct {
	*Store

	// Writable selects read-write storage bindings.
	Writable bool

	// Formats overrides the schema's texture formats when non-nil.
	Formats []gputypes.TextureFormat
}

// ReadOnly implements BufferBindable.
func (b Bindable) ReadOnly() bool { return !b.Writable }

// TextureFormats implements TextureBindable.
func (b Bindable) TextureFormats() []gputypes.TextureFormat {
	if b.Formats != nil {
		return b.Formats
	}
	return b.Store.Schema().TextureFormats()
}

var (
	_ Columnar        = (*Store)(nil)
	_ BufferBindable  = Bindable{}
	_ TextureBindable = Bindable{}
)
