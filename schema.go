// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package planar

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
	"github.com/gogpu/gputypes"
)

// MaxFieldSize is the largest per-element byte size a field may have.
const MaxFieldSize = math.MaxInt32

// Field describes one fixed-size member of a record.
type Field struct {
	// Name is the field identifier. It must be unique within a schema.
	Name string

	// Kind is the element type.
	Kind Kind

	// Count is the fixed array length. Zero means a scalar field.
	Count int

	// Format is the texture format used when the column is bound as a
	// texture. It may be left undefined for buffer-only schemas.
	Format gputypes.TextureFormat
}

// IsArray reports whether the field is a fixed-length array.
func (f Field) IsArray() bool { return f.Count > 0 }

// Elems returns the number of scalar elements per record (1 for scalars).
func (f Field) Elems() int { return max(f.Count, 1) }

// ByteSize returns the number of bytes one record occupies in the column.
func (f Field) ByteSize() int { return f.Kind.Size() * f.Elems() }

// String returns the field in "name: kind" or "name: [kind; n]" form.
func (f Field) String() string {
	if f.IsArray() {
		return fmt.Sprintf("%s: [%s; %d]", f.Name, f.Kind, f.Count)
	}
	return fmt.Sprintf("%s: %s", f.Name, f.Kind)
}

// Fingerprint identifies a schema's layout. Two schemas with the same name
// and the same ordered fields have the same fingerprint.
type Fingerprint uint64

// String returns the fingerprint as 16 hex digits.
func (f Fingerprint) String() string {
	return fmt.Sprintf("%016x", uint64(f))
}

// Schema is an immutable, ordered description of a record type. It is also
// the field layout reflector: the field order defines column order, record
// field order and binding indices.
//
// A Schema is safe for concurrent use.
type Schema struct {
	name   string
	fields []Field
	index  map[string]int
	fp     Fingerprint
}

// NewSchema validates fields and returns a schema named name.
// A schema with no fields is valid; every store built from it is empty.
func NewSchema(name string, fields ...Field) (*Schema, error) {
	if !isIdent(name) {
		return nil, fmt.Errorf("%w: schema name %q is not an identifier", ErrSchema, name)
	}
	s := &Schema{
		name:   name,
		fields: make([]Field, len(fields)),
		index:  make(map[string]int, len(fields)),
	}
	for i, f := range fields {
		if !isIdent(f.Name) {
			return nil, fmt.Errorf("%w: field %d: name %q is not an identifier", ErrSchema, i, f.Name)
		}
		if _, dup := s.index[f.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate field %q", ErrSchema, f.Name)
		}
		if !f.Kind.Valid() {
			return nil, fmt.Errorf("%w: field %q: invalid kind %v", ErrSchema, f.Name, f.Kind)
		}
		if f.Count < 0 {
			return nil, fmt.Errorf("%w: field %q: negative array length %d", ErrSchema, f.Name, f.Count)
		}
		if f.Count > MaxFieldSize/f.Kind.Size() {
			return nil, fmt.Errorf("%w: field %q: array length %d exceeds %d bytes per element",
				ErrSchema, f.Name, f.Count, MaxFieldSize)
		}
		s.fields[i] = f
		s.index[f.Name] = i
	}
	s.fp = s.fingerprint()
	return s, nil
}

// MustSchema is like NewSchema but panics on error. It simplifies
// package-level schema variables.
func MustSchema(name string, fields ...Field) *Schema {
	s, err := NewSchema(name, fields...)
	if err != nil {
		panic(err)
	}
	return s
}

// Name returns the schema name.
func (s *Schema) Name() string { return s.name }

// NumFields returns the number of fields.
func (s *Schema) NumFields() int { return len(s.fields) }

// Field returns the i-th field.
func (s *Schema) Field(i int) Field { return s.fields[i] }

// Fields returns a copy of the ordered fields.
func (s *Schema) Fields() []Field {
	return append([]Field(nil), s.fields...)
}

// FieldIndex returns the position of the named field, or -1.
func (s *Schema) FieldIndex(name string) int {
	if i, ok := s.index[name]; ok {
		return i
	}
	return -1
}

// OrderedFieldNames returns the field names in declaration order.
func (s *Schema) OrderedFieldNames() []string {
	names := make([]string, len(s.fields))
	for i, f := range s.fields {
		names[i] = f.Name
	}
	return names
}

// MinBindingSizes returns the byte size of one element of every column,
// in declaration order.
func (s *Schema) MinBindingSizes() []int {
	sizes := make([]int, len(s.fields))
	for i, f := range s.fields {
		sizes[i] = f.ByteSize()
	}
	return sizes
}

// RecordSize returns the packed size of one record in bytes.
func (s *Schema) RecordSize() int {
	n := 0
	for _, f := range s.fields {
		n += f.ByteSize()
	}
	return n
}

// SupportsTextures reports whether every field declares a texture format.
func (s *Schema) SupportsTextures() bool {
	for _, f := range s.fields {
		if f.Format == gputypes.TextureFormatUndefined {
			return false
		}
	}
	return true
}

// TextureFormats returns the declared texture format of every field.
func (s *Schema) TextureFormats() []gputypes.TextureFormat {
	formats := make([]gputypes.TextureFormat, len(s.fields))
	for i, f := range s.fields {
		formats[i] = f.Format
	}
	return formats
}

// Fingerprint returns the schema identity used for layout caching.
func (s *Schema) Fingerprint() Fingerprint { return s.fp }

// Label returns a debug label "<snake name>_<suffix>", e.g.
// "my_struct_bind_group" for schema "MyStruct".
func (s *Schema) Label(suffix string) string {
	if suffix == "" {
		return snakeCase(s.name)
	}
	return snakeCase(s.name) + "_" + suffix
}

// Equal reports whether two schemas describe the same layout.
func (s *Schema) Equal(o *Schema) bool {
	if s == o {
		return true
	}
	if s == nil || o == nil || s.name != o.name || len(s.fields) != len(o.fields) {
		return false
	}
	for i := range s.fields {
		if s.fields[i] != o.fields[i] {
			return false
		}
	}
	return true
}

// String returns "Name { field: kind, ... }".
func (s *Schema) String() string {
	var b strings.Builder
	b.WriteString(s.name)
	b.WriteString(" {")
	for i, f := range s.fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte(' ')
		b.WriteString(f.String())
	}
	b.WriteString(" }")
	return b.String()
}

func (s *Schema) fingerprint() Fingerprint {
	d := xxhash.New()
	_, _ = d.WriteString(s.name)
	for _, f := range s.fields {
		_, _ = d.WriteString("\x00" + f.Name + "\x00" + f.Kind.String() +
			"\x00" + strconv.Itoa(f.Count) + "\x00" + strconv.FormatUint(uint64(f.Format), 10))
	}
	return Fingerprint(d.Sum64())
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '_' || unicode.IsLetter(r) || (i > 0 && unicode.IsDigit(r)) {
			continue
		}
		return false
	}
	return true
}

// snakeCase converts "MyStruct" to "my_struct". Names that are already
// snake case are returned unchanged.
func snakeCase(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && runes[i-1] != '_' &&
				(unicode.IsLower(runes[i-1]) || (i+1 < len(runes) && unicode.IsLower(runes[i+1]))) {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}
