// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package planar

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/gogpu/planar/gpucore"
)

// structInfo caches the schema derived from a Go struct type together with
// the struct field index of every schema field.
type structInfo struct {
	schema *Schema
	index  [][]int
}

var structCache sync.Map // reflect.Type -> *structInfo

// SchemaOf derives a schema from the struct type T.
//
// Exported fields become schema fields in declaration order. Supported field
// types are bool, sized integers, float32, float64 and fixed-size arrays of
// those. The `planar` struct tag renames a field, sets its texture format or
// skips it:
//
//	type Particle struct {
//	    Position [4]float32 `planar:"position,format=RGBA32Float"`
//	    Age      uint32     `planar:",format=R32Uint"`
//	    scratch  int
//	    Debug    bool       `planar:"-"`
//	}
//
// Untagged fields are named in snake case ("BoolField" becomes "bool_field").
// T must be a struct; anything else returns an error wrapping ErrSchema.
func SchemaOf[T any]() (*Schema, error) {
	info, err := structInfoOf(reflect.TypeFor[T]())
	if err != nil {
		return nil, err
	}
	return info.schema, nil
}

// FromStructs converts a slice of structs into a store whose schema is
// SchemaOf[T].
func FromStructs[T any](items []T) (*Store, error) {
	info, err := structInfoOf(reflect.TypeFor[T]())
	if err != nil {
		return nil, err
	}
	records := make([]Record, len(items))
	for i := range items {
		v := reflect.ValueOf(&items[i]).Elem()
		r := make(Record, len(info.index))
		for j, idx := range info.index {
			r[j] = v.FieldByIndex(idx).Interface()
		}
		records[i] = r
	}
	return FromPacked(info.schema, records)
}

// ToStructs converts a store back into structs. The store's schema must
// equal SchemaOf[T].
func ToStructs[T any](s *Store) ([]T, error) {
	info, err := structInfoOf(reflect.TypeFor[T]())
	if err != nil {
		return nil, err
	}
	if !info.schema.Equal(s.Schema()) {
		return nil, fmt.Errorf("%w: store schema %s does not match %s", ErrSchema, s.Schema(), info.schema)
	}
	records := s.ToPacked()
	out := make([]T, len(records))
	for i, r := range records {
		v := reflect.ValueOf(&out[i]).Elem()
		for j, idx := range info.index {
			assign(v.FieldByIndex(idx), reflect.ValueOf(r[j]))
		}
	}
	return out, nil
}

// assign stores a decoded value into a struct field, converting to named
// types and copying slices into arrays.
func assign(dst, src reflect.Value) {
	if dst.Kind() == reflect.Array {
		for k := range dst.Len() {
			dst.Index(k).Set(src.Index(k).Convert(dst.Type().Elem()))
		}
		return
	}
	dst.Set(src.Convert(dst.Type()))
}

func structInfoOf(t reflect.Type) (*structInfo, error) {
	if cached, ok := structCache.Load(t); ok {
		return cached.(*structInfo), nil
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %v is not a struct", ErrSchema, t)
	}
	info := &structInfo{}
	var fields []Field
	for i := range t.NumField() {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		tag := sf.Tag.Get("planar")
		if tag == "-" {
			continue
		}
		f, err := fieldOf(sf, tag)
		if err != nil {
			return nil, fmt.Errorf("%v.%s: %w", t, sf.Name, err)
		}
		fields = append(fields, f)
		info.index = append(info.index, sf.Index)
	}
	name := t.Name()
	if name == "" {
		name = "anonymous"
	}
	schema, err := NewSchema(name, fields...)
	if err != nil {
		return nil, err
	}
	info.schema = schema
	actual, _ := structCache.LoadOrStore(t, info)
	return actual.(*structInfo), nil
}

func fieldOf(sf reflect.StructField, tag string) (Field, error) {
	f := Field{Name: snakeCase(sf.Name)}
	name, opts, _ := strings.Cut(tag, ",")
	if name != "" {
		f.Name = name
	}
	for opt := range strings.SplitSeq(opts, ",") {
		key, val, _ := strings.Cut(strings.TrimSpace(opt), "=")
		switch key {
		case "":
		case "format":
			format, err := gpucore.ParseFormat(val)
			if err != nil {
				return Field{}, fmt.Errorf("%w: %v", ErrSchema, err)
			}
			f.Format = format
		default:
			return Field{}, fmt.Errorf("%w: unknown tag option %q", ErrSchema, key)
		}
	}
	t := sf.Type
	if t.Kind() == reflect.Array {
		if t.Len() == 0 {
			return Field{}, fmt.Errorf("%w: zero-length array", ErrSchema)
		}
		f.Count = t.Len()
		t = t.Elem()
	}
	f.Kind = kindOf(t)
	if !f.Kind.Valid() {
		return Field{}, fmt.Errorf("%w: unsupported type %v", ErrSchema, sf.Type)
	}
	return f, nil
}
