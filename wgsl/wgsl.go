// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package wgsl generates the WGSL binding declarations matching the bind
// group layouts built by package bind, so shaders and layouts cannot drift
// apart.
package wgsl

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"

	"github.com/gogpu/planar"
	"github.com/gogpu/planar/bind"
	"github.com/gogpu/planar/gpucore"
	"github.com/gogpu/planar/prepare"
)

// Options controls declaration output.
type Options struct {
	// Group is the @group index of every binding.
	Group uint32

	// Mode selects storage arrays or atlas textures.
	Mode bind.Mode

	// ReadWrite declares storage arrays read_write instead of read.
	ReadWrite bool

	// Formats overrides the texture formats declared on the schema.
	Formats []gputypes.TextureFormat
}

// Binding describes one generated declaration.
type Binding struct {
	Binding uint32
	Name    string
	Type    string

	// Packed is set for storage fields whose scalar kind has no WGSL
	// storage type. Their columns are exposed as raw u32 words.
	Packed bool
}

// Bindings returns the declarations of schema in binding order.
func Bindings(schema *planar.Schema, opts Options) ([]Binding, error) {
	out := make([]Binding, schema.NumFields())
	switch opts.Mode {
	case bind.ModeStorage:
		for i, f := range schema.Fields() {
			typ, packed := storageType(f)
			out[i] = Binding{Binding: uint32(i), Name: ident(f.Name), Type: typ, Packed: packed}
		}
	case bind.ModeTexture:
		formats := opts.Formats
		if formats == nil {
			formats = schema.TextureFormats()
		}
		if err := prepare.CheckFormats(schema, formats); err != nil {
			return nil, err
		}
		for i, f := range schema.Fields() {
			bpt, _ := gpucore.BytesPerTexel(formats[i])
			atlas := prepare.AtlasLayout(0, f.ByteSize(), bpt)
			dim := "texture_2d"
			if atlas.ViewDimension == gputypes.TextureViewDimension2DArray {
				dim = "texture_2d_array"
			}
			out[i] = Binding{
				Binding: uint32(i),
				Name:    ident(f.Name),
				Type:    fmt.Sprintf("%s<%s>", dim, sampleScalar(formats[i])),
			}
		}
	default:
		return nil, fmt.Errorf("wgsl: unknown mode %v", opts.Mode)
	}
	return out, nil
}

// Declarations renders the @group/@binding declarations of schema, one
// line per field.
func Declarations(schema *planar.Schema, opts Options) (string, error) {
	bindings, err := Bindings(schema, opts)
	if err != nil {
		return "", err
	}
	access := "read"
	if opts.ReadWrite {
		access = "read_write"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "// %s\n", schema.Name())
	for _, b := range bindings {
		fmt.Fprintf(&sb, "@group(%d) @binding(%d) ", opts.Group, b.Binding)
		if opts.Mode == bind.ModeStorage {
			fmt.Fprintf(&sb, "var<storage, %s> %s: %s;", access, b.Name, b.Type)
		} else {
			fmt.Fprintf(&sb, "var %s: %s;", b.Name, b.Type)
		}
		if b.Packed {
			sb.WriteString(" // packed")
		}
		sb.WriteByte('\n')
	}
	return sb.String(), nil
}

// Validate parses, lowers and validates src with naga. Validation
// failures are joined into one error.
func Validate(src string) error {
	ast, err := naga.Parse(src)
	if err != nil {
		return fmt.Errorf("wgsl: %w", err)
	}
	module, err := naga.LowerWithSource(ast, src)
	if err != nil {
		return fmt.Errorf("wgsl: %w", err)
	}
	verrs, err := naga.Validate(module)
	if err != nil {
		return fmt.Errorf("wgsl: %w", err)
	}
	if len(verrs) == 0 {
		return nil
	}
	errs := make([]error, len(verrs))
	for i := range verrs {
		errs[i] = verrs[i]
	}
	return fmt.Errorf("wgsl: validation failed: %w", errors.Join(errs...))
}

// reserved lists WGSL keywords and predeclared type names that field
// names may collide with.
var reserved = map[string]bool{
	"alias": true, "array": true, "atomic": true, "bool": true, "break": true,
	"case": true, "const": true, "continue": true, "default": true, "discard": true,
	"else": true, "enable": true, "f16": true, "f32": true, "false": true,
	"fn": true, "for": true, "i32": true, "if": true, "let": true, "loop": true,
	"mat2x2": true, "mat3x3": true, "mat4x4": true, "override": true, "ptr": true,
	"return": true, "sampler": true, "struct": true, "switch": true, "true": true,
	"u32": true, "var": true, "vec2": true, "vec3": true, "vec4": true, "while": true,
}

// ident returns name, suffixed with an underscore when it is reserved.
func ident(name string) string {
	if reserved[name] {
		return name + "_"
	}
	return name
}

func storageType(f planar.Field) (string, bool) {
	var scalar string
	switch f.Kind {
	case planar.Int32:
		scalar = "i32"
	case planar.Uint32:
		scalar = "u32"
	case planar.Float32:
		scalar = "f32"
	default:
		return "array<u32>", true
	}
	if f.IsArray() {
		return fmt.Sprintf("array<array<%s, %d>>", scalar, f.Count), false
	}
	return fmt.Sprintf("array<%s>", scalar), false
}

func sampleScalar(f gputypes.TextureFormat) string {
	switch gpucore.SampleType(f) {
	case gputypes.TextureSampleTypeSint:
		return "i32"
	case gputypes.TextureSampleTypeUint:
		return "u32"
	default:
		return "f32"
	}
}
