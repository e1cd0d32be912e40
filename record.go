// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package planar

import (
	"encoding/binary"
	"fmt"
	"math"
	"reflect"
)

// Record is one packed row: one value per schema field, in field order.
//
// Scalar values use the Go type of the field's kind (int32 for Int32,
// bool for Bool, ...). Array values are slices or arrays of length
// Field.Count. Other numeric types are accepted on input when the value
// is representable; values read back from a Store always use the exact
// types ([]uint32 for an array of Uint32).
type Record []any

// CheckRecord reports whether r matches the schema.
func (s *Schema) CheckRecord(r Record) error {
	if len(r) != len(s.fields) {
		return fmt.Errorf("%w: record has %d values, schema %s has %d fields",
			ErrValueType, len(r), s.name, len(s.fields))
	}
	scratch := make([]byte, s.RecordSize())
	off := 0
	for i, f := range s.fields {
		if err := encodeValue(f, r[i], scratch[off:off+f.ByteSize()]); err != nil {
			return err
		}
		off += f.ByteSize()
	}
	return nil
}

// encodeValue writes v for field f into dst, which is f.ByteSize() long.
func encodeValue(f Field, v any, dst []byte) error {
	if !f.IsArray() {
		c, err := f.Kind.coerce(v)
		if err != nil {
			return fmt.Errorf("field %q: %w", f.Name, err)
		}
		putScalar(f.Kind, c, dst)
		return nil
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return fmt.Errorf("field %q: %w: want [%s; %d], got %T", f.Name, ErrValueType, f.Kind, f.Count, v)
	}
	if rv.Len() != f.Count {
		return fmt.Errorf("field %q: %w: want %d elements, got %d", f.Name, ErrValueType, f.Count, rv.Len())
	}
	sz := f.Kind.Size()
	for j := range f.Count {
		c, err := f.Kind.coerce(rv.Index(j).Interface())
		if err != nil {
			return fmt.Errorf("field %q[%d]: %w", f.Name, j, err)
		}
		putScalar(f.Kind, c, dst[j*sz:])
	}
	return nil
}

// decodeValue reads the value of field f from src.
func decodeValue(f Field, src []byte) any {
	if !f.IsArray() {
		return f.Kind.decode(src)
	}
	out := f.Kind.makeSlice(f.Count)
	if _, err := binary.Decode(src[:f.ByteSize()], binary.LittleEndian, out); err != nil {
		panic(fmt.Sprintf("planar: decode %s: %v", f.Name, err))
	}
	return out
}

// putScalar writes c, which already has the exact Go type of k.
func putScalar(k Kind, c any, dst []byte) {
	le := binary.LittleEndian
	switch k {
	case Bool:
		dst[0] = 0
		if c.(bool) {
			dst[0] = 1
		}
	case Int8:
		dst[0] = byte(c.(int8))
	case Uint8:
		dst[0] = c.(uint8)
	case Int16:
		le.PutUint16(dst, uint16(c.(int16)))
	case Uint16:
		le.PutUint16(dst, c.(uint16))
	case Int32:
		le.PutUint32(dst, uint32(c.(int32)))
	case Uint32:
		le.PutUint32(dst, c.(uint32))
	case Float32:
		le.PutUint32(dst, math.Float32bits(c.(float32)))
	case Int64:
		le.PutUint64(dst, uint64(c.(int64)))
	case Uint64:
		le.PutUint64(dst, c.(uint64))
	case Float64:
		le.PutUint64(dst, math.Float64bits(c.(float64)))
	}
}
