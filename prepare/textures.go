// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package prepare

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/planar"
	"github.com/gogpu/planar/gpucore"
)

// TextureUsage is the usage of prepared atlas textures.
const TextureUsage = gputypes.TextureUsageCopyDst | gputypes.TextureUsageTextureBinding

// ErrFormat reports a missing or unsupported per-field texture format.
var ErrFormat = errors.New("prepare: invalid texture format")

// TextureSet holds the atlas textures prepared from one store snapshot.
type TextureSet struct {
	// Schema is the schema of the source store.
	Schema *planar.Schema

	// Fields holds one texture per field, in field order.
	Fields []gpucore.TextureID

	// Formats holds the texel format of each field texture.
	Formats []gputypes.TextureFormat

	// Atlases holds the atlas layout of each field texture.
	Atlases []Atlas

	// Len is the element count of the snapshot.
	Len int

	// Generation is the store generation the snapshot was taken at.
	Generation uint64

	device gpucore.Device
}

// CheckFormats validates one texture format per schema field.
func CheckFormats(schema *planar.Schema, formats []gputypes.TextureFormat) error {
	if len(formats) != schema.NumFields() {
		return fmt.Errorf("%w: %d formats for %d fields of %s", ErrFormat, len(formats), schema.NumFields(), schema.Name())
	}
	for i, f := range formats {
		if _, ok := gpucore.BytesPerTexel(f); !ok {
			return fmt.Errorf("%w: field %q: %v", ErrFormat, schema.Field(i).Name, f)
		}
	}
	return nil
}

// Textures packs every column of src into an atlas texture of the given
// per-field format. A nil formats slice uses the formats declared on the
// schema fields.
func Textures(device gpucore.Device, src planar.Columnar, formats []gputypes.TextureFormat) (*TextureSet, error) {
	snap := src.Snapshot()
	schema := snap.Schema()
	if formats == nil {
		formats = schema.TextureFormats()
	}
	if err := CheckFormats(schema, formats); err != nil {
		return nil, err
	}

	set := &TextureSet{
		Schema:     schema,
		Fields:     make([]gpucore.TextureID, 0, schema.NumFields()),
		Formats:    append([]gputypes.TextureFormat(nil), formats...),
		Atlases:    make([]Atlas, 0, schema.NumFields()),
		Len:        snap.Len(),
		Generation: snap.Generation(),
		device:     device,
	}
	for i, f := range schema.Fields() {
		bpt, _ := gpucore.BytesPerTexel(formats[i])
		atlas := AtlasLayout(set.Len, f.ByteSize(), bpt)
		id, err := device.CreateTexture(&gpucore.TextureDescriptor{
			Label:         "texture_" + schema.Label(f.Name),
			Size:          atlas.Extent(),
			Dimension:     gputypes.TextureDimension2D,
			ViewDimension: atlas.ViewDimension,
			Format:        formats[i],
			Usage:         TextureUsage,
		}, PackAtlas(snap.Column(i), atlas))
		if err != nil {
			set.Release()
			return nil, err
		}
		set.Fields = append(set.Fields, id)
		set.Atlases = append(set.Atlases, atlas)
	}

	planar.Logger().Debug("prepare: textures created",
		"schema", schema.Name(), "len", set.Len, "fields", len(set.Fields), "generation", set.Generation)
	return set, nil
}

// ForTextures is Textures with the formats chosen by src.
func ForTextures(device gpucore.Device, src planar.TextureBindable) (*TextureSet, error) {
	return Textures(device, src, src.TextureFormats())
}

// Ready reports whether every texture of the set has finished uploading.
func (s *TextureSet) Ready() bool {
	if s == nil || s.device == nil {
		return false
	}
	for _, id := range s.Fields {
		if !gpucore.TextureReady(s.device, id) {
			return false
		}
	}
	return true
}

// Release destroys every texture of the set. It is safe to call more than once.
func (s *TextureSet) Release() {
	if s == nil || s.device == nil {
		return
	}
	for _, id := range s.Fields {
		s.device.DestroyTexture(id)
	}
	s.Fields, s.device = nil, nil
}
