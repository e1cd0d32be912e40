// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package planar

import (
	"bytes"
	"fmt"
	"sync"
	"sync/atomic"
)

// Store is the planar form of a record collection: one contiguous
// little-endian column per schema field, all holding Len() elements.
//
// A Store is mutated only by single-index Set, whole-column replacement
// (SetColumn, ReplaceColumns) or by building a new store (Subset). Every
// mutation advances the generation counter, which consumers use to detect
// that device resources derived from an earlier snapshot are stale.
//
// All methods are safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	schema *Schema
	cols   [][]byte
	n      int
	gen    atomic.Uint64
}

// NewStore returns an empty store for schema.
func NewStore(schema *Schema) *Store {
	return &Store{schema: schema, cols: make([][]byte, schema.NumFields())}
}

// FromPacked converts packed records into a store. The records are
// validated against the schema; the first mismatch is returned as an
// error wrapping ErrValueType.
//
// A schema without fields always yields an empty store.
func FromPacked(schema *Schema, records []Record) (*Store, error) {
	s := NewStore(schema)
	if schema.NumFields() == 0 {
		return s, nil
	}
	s.n = len(records)
	for j, f := range schema.fields {
		s.cols[j] = make([]byte, s.n*f.ByteSize())
	}
	for i, r := range records {
		if err := s.put(i, r); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
	}
	return s, nil
}

// FromColumns builds a store from raw column bytes, one slice per field
// in schema order. The slices are copied.
func FromColumns(schema *Schema, cols [][]byte) (*Store, error) {
	s := NewStore(schema)
	if err := s.replace(cols); err != nil {
		return nil, err
	}
	return s, nil
}

// Schema returns the store's schema.
func (s *Store) Schema() *Schema { return s.schema }

// Len returns the number of elements. It is 0 for a schema without fields.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.n
}

// IsEmpty reports whether Len() == 0.
func (s *Store) IsEmpty() bool { return s.Len() == 0 }

// Generation returns the mutation counter. It starts at zero and grows by
// one on every successful mutation.
func (s *Store) Generation() uint64 { return s.gen.Load() }

// Get returns the record at index i.
func (s *Store) Get(i int) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i < 0 || i >= s.n {
		return nil, fmt.Errorf("%w: get %d, len %d", ErrOutOfRange, i, s.n)
	}
	return s.get(i), nil
}

// Set overwrites the record at index i.
func (s *Store) Set(i int, r Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= s.n {
		return fmt.Errorf("%w: set %d, len %d", ErrOutOfRange, i, s.n)
	}
	if err := s.schema.CheckRecord(r); err != nil {
		return err
	}
	if err := s.put(i, r); err != nil {
		return err
	}
	s.gen.Add(1)
	return nil
}

// ToPacked converts the store back to records. FromPacked(ToPacked())
// yields an equal store.
func (s *Store) ToPacked() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Record, s.n)
	for i := range out {
		out[i] = s.get(i)
	}
	return out
}

// Subset returns a new store holding the elements at indices, in the
// given order. Indices may repeat. The new store starts at generation 0.
func (s *Store) Subset(indices []int) (*Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, i := range indices {
		if i < 0 || i >= s.n {
			return nil, fmt.Errorf("%w: subset index %d, len %d", ErrOutOfRange, i, s.n)
		}
	}
	out := NewStore(s.schema)
	if s.schema.NumFields() == 0 {
		return out, nil
	}
	out.n = len(indices)
	for j, f := range s.schema.fields {
		sz := f.ByteSize()
		col := make([]byte, 0, len(indices)*sz)
		for _, i := range indices {
			col = append(col, s.cols[j][i*sz:(i+1)*sz]...)
		}
		out.cols[j] = col
	}
	return out, nil
}

// Column returns the raw bytes of column i. The slice aliases the store
// and is only stable until the next mutation; take a Snapshot for a view
// that outlives concurrent writers. It must not be modified.
func (s *Store) Column(i int) []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cols[i]
}

// ColumnValues decodes column i of s into a slice of T. T is the Go type of
// the field's values: the scalar type for scalar fields and a slice of it
// for array fields ([]uint32 for a u32 array).
func ColumnValues[T any](s *Store, i int) ([]T, error) {
	if i < 0 || i >= len(s.schema.fields) {
		return nil, fmt.Errorf("%w: field %d, schema %s has %d", ErrOutOfRange, i, s.schema.name, len(s.schema.fields))
	}
	f := s.schema.fields[i]
	sz := f.ByteSize()
	if zero := decodeValue(f, make([]byte, sz)); !isType[T](zero) {
		return nil, fmt.Errorf("%w: field %q holds %T values", ErrValueType, f.Name, zero)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]T, s.n)
	for j := range out {
		out[j] = decodeValue(f, s.cols[i][j*sz:(j+1)*sz]).(T)
	}
	return out, nil
}

func isType[T any](v any) bool {
	_, ok := v.(T)
	return ok
}

// ColumnByName is like Column but selects the column by field name.
func (s *Store) ColumnByName(name string) ([]byte, error) {
	i := s.schema.FieldIndex(name)
	if i < 0 {
		return nil, fmt.Errorf("%w: no field %q in %s", ErrSchema, name, s.schema.name)
	}
	return s.Column(i), nil
}

// SetColumn replaces column i. The new column must hold exactly Len()
// elements; to change the length use ReplaceColumns.
func (s *Store) SetColumn(i int, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.cols) {
		return fmt.Errorf("%w: column %d of %d", ErrOutOfRange, i, len(s.cols))
	}
	if want := s.n * s.schema.fields[i].ByteSize(); len(data) != want {
		return fmt.Errorf("%w: column %q has %d bytes, want %d",
			ErrColumnLength, s.schema.fields[i].Name, len(data), want)
	}
	s.cols[i] = bytes.Clone(data)
	s.gen.Add(1)
	return nil
}

// ReplaceColumns replaces every column at once. All columns must describe
// the same number of elements, which becomes the new Len().
func (s *Store) ReplaceColumns(cols [][]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.replace(cols); err != nil {
		return err
	}
	s.gen.Add(1)
	return nil
}

// Snapshot returns a deep copy that shares nothing with s. The snapshot
// keeps the generation s had when it was taken.
func (s *Store) Snapshot() *Store {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := &Store{schema: s.schema, cols: make([][]byte, len(s.cols)), n: s.n}
	for j, c := range s.cols {
		out.cols[j] = bytes.Clone(c)
	}
	out.gen.Store(s.gen.Load())
	return out
}

// Equal reports whether both stores have equal schemas and identical
// column contents. Generations are not compared.
func (s *Store) Equal(o *Store) bool {
	if s == o {
		return true
	}
	if !s.schema.Equal(o.schema) {
		return false
	}
	// Compare against a copy so the two locks are never held together.
	o = o.Snapshot()
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.n != o.n {
		return false
	}
	for j := range s.cols {
		if !bytes.Equal(s.cols[j], o.cols[j]) {
			return false
		}
	}
	return true
}

// String returns a short description such as "MyStruct[3]".
func (s *Store) String() string {
	return fmt.Sprintf("%s[%d]", s.schema.name, s.Len())
}

func (s *Store) replace(cols [][]byte) error {
	if len(cols) != s.schema.NumFields() {
		return fmt.Errorf("%w: %d columns for %d fields", ErrColumnLength, len(cols), s.schema.NumFields())
	}
	n := 0
	for j, f := range s.schema.fields {
		sz := f.ByteSize()
		if len(cols[j])%sz != 0 {
			return fmt.Errorf("%w: column %q has %d bytes, not a multiple of %d",
				ErrColumnLength, f.Name, len(cols[j]), sz)
		}
		m := len(cols[j]) / sz
		if j > 0 && m != n {
			return fmt.Errorf("%w: column %q has %d elements, column %q has %d",
				ErrColumnLength, f.Name, m, s.schema.fields[0].Name, n)
		}
		n = m
	}
	next := make([][]byte, len(cols))
	for j, c := range cols {
		next[j] = bytes.Clone(c)
		if next[j] == nil {
			next[j] = []byte{}
		}
	}
	s.cols, s.n = next, n
	return nil
}

func (s *Store) get(i int) Record {
	r := make(Record, len(s.schema.fields))
	for j, f := range s.schema.fields {
		sz := f.ByteSize()
		r[j] = decodeValue(f, s.cols[j][i*sz:(i+1)*sz])
	}
	return r
}

// put encodes r at index i. On error the element may be partially written;
// Set validates the record first so that never happens to a live store.
func (s *Store) put(i int, r Record) error {
	if len(r) != len(s.schema.fields) {
		return fmt.Errorf("%w: record has %d values, schema %s has %d fields",
			ErrValueType, len(r), s.schema.name, len(s.schema.fields))
	}
	for j, f := range s.schema.fields {
		sz := f.ByteSize()
		if err := encodeValue(f, r[j], s.cols[j][i*sz:(i+1)*sz]); err != nil {
			return err
		}
	}
	return nil
}
