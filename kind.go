// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package planar

import (
	"encoding/binary"
	"fmt"
	"math"
	"reflect"
	"strings"
)

// Kind is the element type of a field. Every kind has a fixed byte size;
// values are stored little-endian.
type Kind uint8

// Supported element kinds.
const (
	KindInvalid Kind = iota
	Bool
	Int8
	Uint8
	Int16
	Uint16
	Int32
	Uint32
	Float32
	Int64
	Uint64
	Float64
)

var kindNames = [...]string{
	KindInvalid: "invalid",
	Bool:        "bool",
	Int8:        "i8",
	Uint8:       "u8",
	Int16:       "i16",
	Uint16:      "u16",
	Int32:       "i32",
	Uint32:      "u32",
	Float32:     "f32",
	Int64:       "i64",
	Uint64:      "u64",
	Float64:     "f64",
}

// goKindNames maps Go spellings accepted by ParseKind.
var goKindNames = map[string]Kind{
	"int8": Int8, "uint8": Uint8, "byte": Uint8,
	"int16": Int16, "uint16": Uint16,
	"int32": Int32, "uint32": Uint32, "float32": Float32,
	"int64": Int64, "uint64": Uint64, "float64": Float64,
}

// String returns the short name of the kind ("i32", "bool", ...).
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Valid reports whether k is one of the supported kinds.
func (k Kind) Valid() bool {
	return k > KindInvalid && k <= Float64
}

// Size returns the byte size of one element of kind k.
func (k Kind) Size() int {
	switch k {
	case Bool, Int8, Uint8:
		return 1
	case Int16, Uint16:
		return 2
	case Int32, Uint32, Float32:
		return 4
	case Int64, Uint64, Float64:
		return 8
	default:
		return 0
	}
}

// ParseKind parses a kind name. Both the short names returned by
// Kind.String and the Go type names ("int32", "float64") are accepted.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k := Bool; k <= Float64; k++ {
		if kindNames[k] == s {
			return k, nil
		}
	}
	if k, ok := goKindNames[s]; ok {
		return k, nil
	}
	return KindInvalid, fmt.Errorf("%w: unknown kind %q", ErrSchema, s)
}

// kindOf maps a Go scalar type to its kind.
func kindOf(t reflect.Type) Kind {
	switch t.Kind() {
	case reflect.Bool:
		return Bool
	case reflect.Int8:
		return Int8
	case reflect.Uint8:
		return Uint8
	case reflect.Int16:
		return Int16
	case reflect.Uint16:
		return Uint16
	case reflect.Int32:
		return Int32
	case reflect.Uint32:
		return Uint32
	case reflect.Float32:
		return Float32
	case reflect.Int64:
		return Int64
	case reflect.Uint64:
		return Uint64
	case reflect.Float64:
		return Float64
	default:
		return KindInvalid
	}
}

// decode reads one scalar of kind k from the front of src.
func (k Kind) decode(src []byte) any {
	le := binary.LittleEndian
	switch k {
	case Bool:
		return src[0] != 0
	case Int8:
		return int8(src[0])
	case Uint8:
		return src[0]
	case Int16:
		return int16(le.Uint16(src))
	case Uint16:
		return le.Uint16(src)
	case Int32:
		return int32(le.Uint32(src))
	case Uint32:
		return le.Uint32(src)
	case Float32:
		return math.Float32frombits(le.Uint32(src))
	case Int64:
		return int64(le.Uint64(src))
	case Uint64:
		return le.Uint64(src)
	case Float64:
		return math.Float64frombits(le.Uint64(src))
	default:
		panic("planar: decode of invalid kind")
	}
}

// makeSlice returns an empty typed slice ([]int32, []bool, ...) of length n.
func (k Kind) makeSlice(n int) any {
	switch k {
	case Bool:
		return make([]bool, n)
	case Int8:
		return make([]int8, n)
	case Uint8:
		return make([]uint8, n)
	case Int16:
		return make([]int16, n)
	case Uint16:
		return make([]uint16, n)
	case Int32:
		return make([]int32, n)
	case Uint32:
		return make([]uint32, n)
	case Float32:
		return make([]float32, n)
	case Int64:
		return make([]int64, n)
	case Uint64:
		return make([]uint64, n)
	case Float64:
		return make([]float64, n)
	default:
		panic("planar: slice of invalid kind")
	}
}

// coerce converts v to the exact Go type of kind k. Integers, unsigned
// integers and floats convert between each other when the value is
// representable without loss.
func (k Kind) coerce(v any) (any, error) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return nil, fmt.Errorf("%w: nil value for %s", ErrValueType, k)
	}
	var (
		out any
		ok  bool
	)
	switch rv.Kind() {
	case reflect.Bool:
		out, ok = rv.Bool(), k == Bool
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		out, ok = k.fromInt(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		out, ok = k.fromUint(rv.Uint())
	case reflect.Float32, reflect.Float64:
		out, ok = k.fromFloat(rv.Float())
	}
	if !ok {
		return nil, fmt.Errorf("%w: cannot use %v (%T) as %s", ErrValueType, v, v, k)
	}
	return out, nil
}

func (k Kind) fromInt(i int64) (any, bool) {
	switch k {
	case Int8:
		return int8(i), i >= math.MinInt8 && i <= math.MaxInt8
	case Uint8:
		return uint8(i), i >= 0 && i <= math.MaxUint8
	case Int16:
		return int16(i), i >= math.MinInt16 && i <= math.MaxInt16
	case Uint16:
		return uint16(i), i >= 0 && i <= math.MaxUint16
	case Int32:
		return int32(i), i >= math.MinInt32 && i <= math.MaxInt32
	case Uint32:
		return uint32(i), i >= 0 && i <= math.MaxUint32
	case Int64:
		return i, true
	case Uint64:
		return uint64(i), i >= 0
	case Float32:
		return float32(i), true
	case Float64:
		return float64(i), true
	default:
		return nil, false
	}
}

func (k Kind) fromUint(u uint64) (any, bool) {
	switch k {
	case Uint64:
		return u, true
	case Float32:
		return float32(u), true
	case Float64:
		return float64(u), true
	}
	if u > math.MaxInt64 {
		return nil, false
	}
	return k.fromInt(int64(u))
}

func (k Kind) fromFloat(f float64) (any, bool) {
	switch k {
	case Float32:
		return float32(f), true
	case Float64:
		return f, true
	case Bool, KindInvalid:
		return nil, false
	}
	if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return nil, false
	}
	return k.fromInt(int64(f))
}
