// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package planar

import (
	"bytes"
	"fmt"
	"os"
	"slices"

	"github.com/gogpu/gputypes"
	"github.com/pelletier/go-toml/v2"

	"github.com/gogpu/planar/gpucore"
)

// schemaDoc is the TOML form of a schema:
//
//	name = "MyStruct"
//
//	[[field]]
//	name = "array"
//	kind = "u32"
//	count = 4
//	format = "RGBA32Uint"
type schemaDoc struct {
	Name   string     `toml:"name"`
	Fields []fieldDoc `toml:"field"`
}

type fieldDoc struct {
	Name   string `toml:"name"`
	Kind   string `toml:"kind"`
	Count  int    `toml:"count,omitempty"`
	Format string `toml:"format,omitempty"`
}

// ParseSchema decodes a schema from its TOML description.
func ParseSchema(data []byte) (*Schema, error) {
	var doc schemaDoc
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchema, err)
	}
	fields := make([]Field, len(doc.Fields))
	for i, fd := range doc.Fields {
		kind, err := ParseKind(fd.Kind)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", fd.Name, err)
		}
		fields[i] = Field{Name: fd.Name, Kind: kind, Count: fd.Count}
		if fd.Format != "" {
			format, err := gpucore.ParseFormat(fd.Format)
			if err != nil {
				return nil, fmt.Errorf("%w: field %q: %v", ErrSchema, fd.Name, err)
			}
			fields[i].Format = format
		}
	}
	return NewSchema(doc.Name, fields...)
}

// LoadSchema reads and parses a TOML schema file.
func LoadSchema(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}
	s, err := ParseSchema(data)
	if err != nil {
		return nil, fmt.Errorf("load schema %s: %w", path, err)
	}
	return s, nil
}

// MarshalTOML encodes the schema in the form accepted by ParseSchema.
func (s *Schema) MarshalTOML() ([]byte, error) {
	doc := schemaDoc{Name: s.name, Fields: make([]fieldDoc, len(s.fields))}
	for i, f := range s.fields {
		doc.Fields[i] = fieldDoc{Name: f.Name, Kind: f.Kind.String(), Count: f.Count}
		if f.Format != gputypes.TextureFormatUndefined {
			doc.Fields[i].Format = f.Format.String()
		}
	}
	return toml.Marshal(doc)
}

// DecodeRecords decodes packed records from TOML. Every record is a table
// in the "record" array keyed by field name:
//
//	[[record]]
//	field = 0
//	bool_field = true
//	array = [0, 1, 2, 3]
//
// Missing and unknown keys are errors.
func DecodeRecords(s *Schema, data []byte) ([]Record, error) {
	var doc struct {
		Records []map[string]any `toml:"record"`
	}
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	out := make([]Record, len(doc.Records))
	for i, m := range doc.Records {
		r := make(Record, len(s.fields))
		for j, f := range s.fields {
			v, ok := m[f.Name]
			if !ok {
				return nil, fmt.Errorf("record %d: %w: missing field %q", i, ErrValueType, f.Name)
			}
			r[j] = v
		}
		if len(m) != len(s.fields) {
			extra := make([]string, 0, len(m))
			for k := range m {
				if s.FieldIndex(k) < 0 {
					extra = append(extra, k)
				}
			}
			slices.Sort(extra)
			return nil, fmt.Errorf("record %d: %w: unknown fields %v", i, ErrValueType, extra)
		}
		if err := s.CheckRecord(r); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		out[i] = r
	}
	return out, nil
}
