// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package prepare

import (
	"math"

	"github.com/gogpu/gputypes"
)

// Atlas describes how a column of Len elements is laid out in a texture.
//
// The texture is Side x Side texels with Depth array layers. Depth is the
// number of texels one element occupies; the view is 2D when Depth is 1
// and a 2D array otherwise.
type Atlas struct {
	Side          uint32
	Depth         uint32
	BytesPerTexel int
	Len           int
	ViewDimension gputypes.TextureViewDimension
}

// AtlasLayout computes the atlas for n elements of elemSize bytes each,
// stored in a format with bpt bytes per texel.
//
// Side is ceil(sqrt(n)), at least 1 so that an empty column still yields
// a valid texture. Depth is ceil(elemSize / bpt).
func AtlasLayout(n, elemSize, bpt int) Atlas {
	side := max(ceilSqrt(n), 1)
	depth := max((elemSize+bpt-1)/bpt, 1)
	view := gputypes.TextureViewDimension2D
	if depth > 1 {
		view = gputypes.TextureViewDimension2DArray
	}
	return Atlas{
		Side:          uint32(side),
		Depth:         uint32(depth),
		BytesPerTexel: bpt,
		Len:           n,
		ViewDimension: view,
	}
}

// PaddedLen returns the byte length of the atlas: Side² × Depth × BytesPerTexel.
func (a Atlas) PaddedLen() int {
	return int(a.Side) * int(a.Side) * int(a.Depth) * a.BytesPerTexel
}

// Capacity returns the number of elements the atlas can hold.
func (a Atlas) Capacity() int {
	return int(a.Side) * int(a.Side)
}

// Extent returns the texture size.
func (a Atlas) Extent() gputypes.Extent3D {
	return gputypes.Extent3D{Width: a.Side, Height: a.Side, DepthOrArrayLayers: a.Depth}
}

// PackAtlas copies col into a zero-filled buffer of a.PaddedLen() bytes.
// The column bytes are copied verbatim; everything past them is zero.
func PackAtlas(col []byte, a Atlas) []byte {
	out := make([]byte, a.PaddedLen())
	copy(out, col)
	return out
}

// ceilSqrt returns the smallest s with s*s >= n.
func ceilSqrt(n int) int {
	if n <= 0 {
		return 0
	}
	s := int(math.Sqrt(float64(n)))
	for s*s < n {
		s++
	}
	for s > 0 && (s-1)*(s-1) >= n {
		s--
	}
	return s
}
