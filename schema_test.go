// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package planar

import (
	"errors"
	"reflect"
	"testing"

	"github.com/gogpu/gputypes"
)

func TestSchemaReflector(t *testing.T) {
	s := myStructSchema(t)

	wantNames := []string{"field", "field2", "bool_field", "array"}
	if got := s.OrderedFieldNames(); !reflect.DeepEqual(got, wantNames) {
		t.Errorf("OrderedFieldNames() = %v, want %v", got, wantNames)
	}
	wantSizes := []int{4, 4, 1, 16}
	if got := s.MinBindingSizes(); !reflect.DeepEqual(got, wantSizes) {
		t.Errorf("MinBindingSizes() = %v, want %v", got, wantSizes)
	}
	if got := s.RecordSize(); got != 25 {
		t.Errorf("RecordSize() = %d, want 25", got)
	}
	if i := s.FieldIndex("bool_field"); i != 2 {
		t.Errorf("FieldIndex(bool_field) = %d, want 2", i)
	}
	if i := s.FieldIndex("nope"); i != -1 {
		t.Errorf("FieldIndex(nope) = %d, want -1", i)
	}
	if !s.SupportsTextures() {
		t.Error("SupportsTextures() = false, want true")
	}
}

func TestNewSchemaErrors(t *testing.T) {
	tests := []struct {
		name   string
		schema string
		fields []Field
	}{
		{"bad schema name", "my struct", nil},
		{"empty field name", "S", []Field{{Kind: Int32}}},
		{"duplicate", "S", []Field{{Name: "a", Kind: Int32}, {Name: "a", Kind: Uint8}}},
		{"invalid kind", "S", []Field{{Name: "a"}}},
		{"negative count", "S", []Field{{Name: "a", Kind: Int32, Count: -2}}},
		{"leading digit", "S", []Field{{Name: "1a", Kind: Int32}}},
		{"oversized array", "S", []Field{{Name: "a", Kind: Uint64, Count: 1 << 61}}},
		{"array past size cap", "S", []Field{{Name: "a", Kind: Uint32, Count: MaxFieldSize/4 + 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewSchema(tt.schema, tt.fields...); !errors.Is(err, ErrSchema) {
				t.Errorf("NewSchema() error = %v, want ErrSchema", err)
			}
		})
	}
}

func TestSchemaFingerprint(t *testing.T) {
	a := myStructSchema(t)
	b := myStructSchema(t)
	if a.Fingerprint() != b.Fingerprint() || !a.Equal(b) {
		t.Error("identical schemas should share a fingerprint")
	}
	c := MustSchema("MyStruct",
		Field{Name: "field2", Kind: Uint32},
		Field{Name: "field", Kind: Int32},
	)
	if a.Fingerprint() == c.Fingerprint() || a.Equal(c) {
		t.Error("different schemas should not share a fingerprint")
	}
	d := MustSchema("MyStruct", a.Fields()[:3]...)
	if d.Fingerprint() == a.Fingerprint() {
		t.Error("dropping a field should change the fingerprint")
	}
}

func TestSchemaLabel(t *testing.T) {
	tests := []struct {
		name, suffix, want string
	}{
		{"MyStruct", "bind_group", "my_struct_bind_group"},
		{"my_struct", "bind_group_layout", "my_struct_bind_group_layout"},
		{"HTTPCache", "", "http_cache"},
		{"Particle2D", "buffer", "particle2d_buffer"},
	}
	for _, tt := range tests {
		s := MustSchema(tt.name)
		if got := s.Label(tt.suffix); got != tt.want {
			t.Errorf("Schema(%q).Label(%q) = %q, want %q", tt.name, tt.suffix, got, tt.want)
		}
	}
}

func TestKind(t *testing.T) {
	tests := []struct {
		k    Kind
		size int
		name string
	}{
		{Bool, 1, "bool"},
		{Int8, 1, "i8"},
		{Uint16, 2, "u16"},
		{Int32, 4, "i32"},
		{Float32, 4, "f32"},
		{Uint64, 8, "u64"},
		{Float64, 8, "f64"},
	}
	for _, tt := range tests {
		if tt.k.Size() != tt.size {
			t.Errorf("%v.Size() = %d, want %d", tt.k, tt.k.Size(), tt.size)
		}
		if tt.k.String() != tt.name {
			t.Errorf("String() = %q, want %q", tt.k.String(), tt.name)
		}
		if k, err := ParseKind(tt.name); err != nil || k != tt.k {
			t.Errorf("ParseKind(%q) = %v, %v", tt.name, k, err)
		}
	}
	if k, err := ParseKind("Float32"); err != nil || k != Float32 {
		t.Errorf("ParseKind(Float32) = %v, %v", k, err)
	}
	if _, err := ParseKind("vec3"); !errors.Is(err, ErrSchema) {
		t.Errorf("ParseKind(vec3) error = %v, want ErrSchema", err)
	}
}

func TestTextureFormats(t *testing.T) {
	s := MustSchema("S",
		Field{Name: "a", Kind: Float32, Format: gputypes.TextureFormatR32Float},
		Field{Name: "b", Kind: Uint32},
	)
	if s.SupportsTextures() {
		t.Error("SupportsTextures() = true with an undefined format")
	}
	want := []gputypes.TextureFormat{gputypes.TextureFormatR32Float, gputypes.TextureFormatUndefined}
	if got := s.TextureFormats(); !reflect.DeepEqual(got, want) {
		t.Errorf("TextureFormats() = %v, want %v", got, want)
	}
}
