// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package planar

import (
	"bytes"
	"encoding/binary"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/gogpu/gputypes"
)

func myStructSchema(t testing.TB) *Schema {
	t.Helper()
	s, err := NewSchema("MyStruct",
		Field{Name: "field", Kind: Int32, Format: gputypes.TextureFormatR32Sint},
		Field{Name: "field2", Kind: Uint32, Format: gputypes.TextureFormatR32Uint},
		Field{Name: "bool_field", Kind: Bool, Format: gputypes.TextureFormatR8Unorm},
		Field{Name: "array", Kind: Uint32, Count: 4, Format: gputypes.TextureFormatRGBA32Uint},
	)
	if err != nil {
		t.Fatalf("NewSchema: %v", err)
	}
	return s
}

func myStructRecords() []Record {
	return []Record{
		{int32(0), uint32(1), true, []uint32{0, 1, 2, 3}},
		{int32(2), uint32(3), false, []uint32{4, 5, 6, 7}},
		{int32(4), uint32(5), true, []uint32{8, 9, 10, 11}},
	}
}

func leWords(words ...uint32) []byte {
	out := make([]byte, 0, 4*len(words))
	for _, w := range words {
		out = binary.LittleEndian.AppendUint32(out, w)
	}
	return out
}

func TestFromPackedColumns(t *testing.T) {
	s, err := FromPacked(myStructSchema(t), myStructRecords())
	if err != nil {
		t.Fatalf("FromPacked: %v", err)
	}
	if s.Len() != 3 || s.IsEmpty() {
		t.Fatalf("Len() = %d, IsEmpty() = %v, want 3, false", s.Len(), s.IsEmpty())
	}

	tests := []struct {
		name string
		want []byte
	}{
		{"field", leWords(0, 2, 4)},
		{"field2", leWords(1, 3, 5)},
		{"bool_field", []byte{1, 0, 1}},
		{"array", leWords(0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11)},
	}
	for _, tt := range tests {
		got, err := s.ColumnByName(tt.name)
		if err != nil {
			t.Fatalf("ColumnByName(%q): %v", tt.name, err)
		}
		if !bytes.Equal(got, tt.want) {
			t.Errorf("column %q = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestColumnValues(t *testing.T) {
	s, err := FromPacked(myStructSchema(t), myStructRecords())
	if err != nil {
		t.Fatalf("FromPacked: %v", err)
	}

	ints, err := ColumnValues[int32](s, 0)
	if err != nil || !reflect.DeepEqual(ints, []int32{0, 2, 4}) {
		t.Errorf("ColumnValues[int32](0) = %v, %v", ints, err)
	}
	bools, err := ColumnValues[bool](s, 2)
	if err != nil || !reflect.DeepEqual(bools, []bool{true, false, true}) {
		t.Errorf("ColumnValues[bool](2) = %v, %v", bools, err)
	}
	arrays, err := ColumnValues[[]uint32](s, 3)
	want := [][]uint32{{0, 1, 2, 3}, {4, 5, 6, 7}, {8, 9, 10, 11}}
	if err != nil || !reflect.DeepEqual(arrays, want) {
		t.Errorf("ColumnValues[[]uint32](3) = %v, %v", arrays, err)
	}

	if _, err := ColumnValues[uint32](s, 0); !errors.Is(err, ErrValueType) {
		t.Errorf("wrong type: err = %v, want ErrValueType", err)
	}
	if _, err := ColumnValues[int32](s, 4); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("bad index: err = %v, want ErrOutOfRange", err)
	}
}

func TestRoundTrip(t *testing.T) {
	records := myStructRecords()
	s, err := FromPacked(myStructSchema(t), records)
	if err != nil {
		t.Fatalf("FromPacked: %v", err)
	}
	got := s.ToPacked()
	if !reflect.DeepEqual(got, records) {
		t.Errorf("ToPacked() = %v, want %v", got, records)
	}

	again, err := FromPacked(s.Schema(), got)
	if err != nil {
		t.Fatalf("FromPacked(ToPacked()): %v", err)
	}
	if !again.Equal(s) {
		t.Error("FromPacked(ToPacked(s)) != s")
	}
}

func TestRoundTripAllKinds(t *testing.T) {
	schema := MustSchema("all",
		Field{Name: "b", Kind: Bool},
		Field{Name: "i8", Kind: Int8},
		Field{Name: "u8", Kind: Uint8},
		Field{Name: "i16", Kind: Int16},
		Field{Name: "u16", Kind: Uint16},
		Field{Name: "f32", Kind: Float32},
		Field{Name: "i64", Kind: Int64},
		Field{Name: "u64", Kind: Uint64},
		Field{Name: "f64", Kind: Float64, Count: 2},
	)
	records := []Record{
		{false, int8(-128), uint8(255), int16(-2), uint16(65535), float32(1.5), int64(-1 << 40), uint64(1 << 63), []float64{0.25, -3}},
		{true, int8(127), uint8(0), int16(300), uint16(1), float32(-0.5), int64(7), uint64(0), []float64{1e300, 0}},
	}
	s, err := FromPacked(schema, records)
	if err != nil {
		t.Fatalf("FromPacked: %v", err)
	}
	if got := s.ToPacked(); !reflect.DeepEqual(got, records) {
		t.Errorf("ToPacked() = %v, want %v", got, records)
	}
}

func TestFromPackedCoercesNumbers(t *testing.T) {
	s, err := FromPacked(myStructSchema(t), []Record{{0, 1, true, []int{0, 1, 2, 3}}})
	if err != nil {
		t.Fatalf("FromPacked: %v", err)
	}
	r, err := s.Get(0)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	want := Record{int32(0), uint32(1), true, []uint32{0, 1, 2, 3}}
	if !reflect.DeepEqual(r, want) {
		t.Errorf("Get(0) = %#v, want %#v", r, want)
	}
}

func TestFromPackedRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		rec  Record
	}{
		{"too few values", Record{int32(0), uint32(1), true}},
		{"bool for int", Record{true, uint32(1), true, []uint32{0, 0, 0, 0}}},
		{"negative unsigned", Record{int32(0), -1, true, []uint32{0, 0, 0, 0}}},
		{"int32 overflow", Record{int64(1 << 40), uint32(1), true, []uint32{0, 0, 0, 0}}},
		{"fraction for int", Record{0.5, uint32(1), true, []uint32{0, 0, 0, 0}}},
		{"short array", Record{int32(0), uint32(1), true, []uint32{0, 1}}},
		{"scalar for array", Record{int32(0), uint32(1), true, uint32(3)}},
		{"nil value", Record{nil, uint32(1), true, []uint32{0, 0, 0, 0}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromPacked(myStructSchema(t), []Record{tt.rec})
			if !errors.Is(err, ErrValueType) {
				t.Errorf("FromPacked() error = %v, want ErrValueType", err)
			}
		})
	}
}

func TestZeroFieldSchema(t *testing.T) {
	schema := MustSchema("Empty")
	s, err := FromPacked(schema, []Record{{}, {}, {}})
	if err != nil {
		t.Fatalf("FromPacked: %v", err)
	}
	if s.Len() != 0 || !s.IsEmpty() {
		t.Errorf("Len() = %d, want 0", s.Len())
	}
	if got := s.ToPacked(); got == nil || len(got) != 0 {
		t.Errorf("ToPacked() = %v, want empty non-nil slice", got)
	}
	for _, indices := range [][]int{{0}, {5, -1}} {
		if _, err := s.Subset(indices); !errors.Is(err, ErrOutOfRange) {
			t.Errorf("Subset(%v) on zero-field store error = %v, want ErrOutOfRange", indices, err)
		}
	}
	sub, err := s.Subset(nil)
	if err != nil {
		t.Fatalf("Subset(nil) on zero-field store: %v", err)
	}
	if sub.Len() != 0 {
		t.Errorf("Subset().Len() = %d, want 0", sub.Len())
	}
}

func TestGetSetBounds(t *testing.T) {
	s, err := FromPacked(myStructSchema(t), myStructRecords())
	if err != nil {
		t.Fatalf("FromPacked: %v", err)
	}
	for _, i := range []int{-1, 3, 100} {
		if _, err := s.Get(i); !errors.Is(err, ErrOutOfRange) {
			t.Errorf("Get(%d) error = %v, want ErrOutOfRange", i, err)
		}
		if err := s.Set(i, myStructRecords()[0]); !errors.Is(err, ErrOutOfRange) {
			t.Errorf("Set(%d) error = %v, want ErrOutOfRange", i, err)
		}
	}
	if s.Generation() != 0 {
		t.Errorf("failed Set changed generation to %d", s.Generation())
	}
}

func TestSetThenGet(t *testing.T) {
	s, err := FromPacked(myStructSchema(t), myStructRecords())
	if err != nil {
		t.Fatalf("FromPacked: %v", err)
	}
	rec := Record{int32(-9), uint32(99), false, []uint32{42, 43, 44, 45}}
	if err := s.Set(1, rec); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, _ := s.Get(1)
	if !reflect.DeepEqual(got, rec) {
		t.Errorf("Get(1) = %v, want %v", got, rec)
	}
	if s.Generation() != 1 {
		t.Errorf("Generation() = %d, want 1", s.Generation())
	}

	bad := Record{int32(1), uint32(1), true, []uint32{1}}
	if err := s.Set(0, bad); !errors.Is(err, ErrValueType) {
		t.Fatalf("Set(bad) error = %v, want ErrValueType", err)
	}
	if got, _ := s.Get(0); !reflect.DeepEqual(got, myStructRecords()[0]) {
		t.Errorf("rejected Set modified element 0: %v", got)
	}
}

func TestSubset(t *testing.T) {
	s, err := FromPacked(myStructSchema(t), myStructRecords())
	if err != nil {
		t.Fatalf("FromPacked: %v", err)
	}
	indices := []int{2, 0, 2}
	sub, err := s.Subset(indices)
	if err != nil {
		t.Fatalf("Subset: %v", err)
	}
	if sub.Len() != len(indices) {
		t.Fatalf("Subset().Len() = %d, want %d", sub.Len(), len(indices))
	}
	for k, i := range indices {
		want, _ := s.Get(i)
		got, _ := sub.Get(k)
		if !reflect.DeepEqual(got, want) {
			t.Errorf("Subset().Get(%d) = %v, want Get(%d) = %v", k, got, i, want)
		}
	}

	if _, err := s.Subset([]int{0, 3}); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("Subset with index 3 error = %v, want ErrOutOfRange", err)
	}
	empty, err := s.Subset(nil)
	if err != nil || !empty.IsEmpty() {
		t.Errorf("Subset(nil) = %v, %v; want empty store", empty, err)
	}
}

func TestSetColumn(t *testing.T) {
	s, err := FromPacked(myStructSchema(t), myStructRecords())
	if err != nil {
		t.Fatalf("FromPacked: %v", err)
	}
	if err := s.SetColumn(0, leWords(7, 8)); !errors.Is(err, ErrColumnLength) {
		t.Errorf("SetColumn(short) error = %v, want ErrColumnLength", err)
	}
	if err := s.SetColumn(9, nil); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("SetColumn(9) error = %v, want ErrOutOfRange", err)
	}

	col := leWords(7, 8, 9)
	if err := s.SetColumn(1, col); err != nil {
		t.Fatalf("SetColumn: %v", err)
	}
	col[0] = 0xFF // the store keeps its own copy
	r, _ := s.Get(0)
	if r[1] != uint32(7) {
		t.Errorf("field2[0] = %v, want 7", r[1])
	}
	if s.Generation() != 1 {
		t.Errorf("Generation() = %d, want 1", s.Generation())
	}
}

func TestReplaceColumns(t *testing.T) {
	s := NewStore(myStructSchema(t))
	err := s.ReplaceColumns([][]byte{leWords(1, 2), leWords(3, 4), {1, 0}, leWords(0, 0, 0, 0, 0, 0, 0, 0)})
	if err != nil {
		t.Fatalf("ReplaceColumns: %v", err)
	}
	if s.Len() != 2 {
		t.Errorf("Len() = %d, want 2", s.Len())
	}

	tests := []struct {
		name string
		cols [][]byte
	}{
		{"unequal lengths", [][]byte{leWords(1, 2), leWords(3), {1, 0}, leWords(0, 0, 0, 0, 0, 0, 0, 0)}},
		{"ragged bytes", [][]byte{{1, 2, 3}, leWords(3), {1}, leWords(0, 0, 0, 0)}},
		{"missing column", [][]byte{leWords(1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := s.ReplaceColumns(tt.cols); !errors.Is(err, ErrColumnLength) {
				t.Errorf("ReplaceColumns() error = %v, want ErrColumnLength", err)
			}
			if s.Len() != 2 {
				t.Errorf("failed ReplaceColumns changed Len() to %d", s.Len())
			}
		})
	}
}

func TestSnapshotIsolation(t *testing.T) {
	s, err := FromPacked(myStructSchema(t), myStructRecords())
	if err != nil {
		t.Fatalf("FromPacked: %v", err)
	}
	snap := s.Snapshot()
	if err := s.Set(0, Record{int32(100), uint32(0), false, []uint32{0, 0, 0, 0}}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	r, _ := snap.Get(0)
	if r[0] != int32(0) {
		t.Errorf("snapshot saw mutation: field = %v", r[0])
	}
	if snap.Generation() != 0 || s.Generation() != 1 {
		t.Errorf("generations = %d/%d, want 0/1", snap.Generation(), s.Generation())
	}
}

func TestEqualConcurrent(t *testing.T) {
	a, err := FromPacked(myStructSchema(t), myStructRecords())
	if err != nil {
		t.Fatalf("FromPacked: %v", err)
	}
	b := a.Snapshot()

	var wg sync.WaitGroup
	for _, pair := range [][2]*Store{{a, b}, {b, a}} {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for range 1000 {
				pair[0].Equal(pair[1])
			}
		}()
		go func() {
			defer wg.Done()
			for i := range 1000 {
				if err := pair[0].Set(i%3, Record{int32(i), uint32(i), true, []uint32{0, 1, 2, 3}}); err != nil {
					t.Errorf("Set: %v", err)
					return
				}
			}
		}()
	}
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("concurrent Equal calls did not finish")
	}
}

// checkColumns verifies that every column holds exactly Len records.
func checkColumns(t *testing.T, s *Store) {
	t.Helper()
	for i, f := range s.Schema().Fields() {
		if got, want := len(s.Column(i)), s.Len()*f.ByteSize(); got != want {
			t.Fatalf("column %q has %d bytes, want %d", f.Name, got, want)
		}
	}
}

func FuzzRoundTrip(f *testing.F) {
	f.Add([]byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20, 21, 22, 23, 24})
	f.Add(bytes.Repeat([]byte{0xFF}, 100))
	f.Add([]byte{})
	f.Fuzz(func(t *testing.T, data []byte) {
		schema := myStructSchema(t)
		const stride = 25
		records := make([]Record, 0, len(data)/stride)
		for b := data; len(b) >= stride; b = b[stride:] {
			le := binary.LittleEndian
			records = append(records, Record{
				int32(le.Uint32(b[0:])),
				le.Uint32(b[4:]),
				b[8]&1 == 1,
				[]uint32{le.Uint32(b[9:]), le.Uint32(b[13:]), le.Uint32(b[17:]), le.Uint32(b[21:])},
			})
		}

		s, err := FromPacked(schema, records)
		if err != nil {
			t.Fatalf("FromPacked: %v", err)
		}
		checkColumns(t, s)
		if got := s.ToPacked(); !reflect.DeepEqual(got, records) {
			t.Fatalf("ToPacked() = %v, want %v", got, records)
		}
		if len(records) == 0 {
			return
		}

		last := len(records) - 1
		if err := s.Set(0, records[last]); err != nil {
			t.Fatalf("Set: %v", err)
		}
		checkColumns(t, s)
		if got, _ := s.Get(0); !reflect.DeepEqual(got, records[last]) {
			t.Fatalf("Get(0) = %v, want %v", got, records[last])
		}

		sub, err := s.Subset([]int{last, 0, last})
		if err != nil {
			t.Fatalf("Subset: %v", err)
		}
		checkColumns(t, sub)
		if sub.Len() != 3 {
			t.Fatalf("Subset().Len() = %d, want 3", sub.Len())
		}

		if err := s.SetColumn(1, bytes.Clone(s.Column(0))); err != nil {
			t.Fatalf("SetColumn: %v", err)
		}
		checkColumns(t, s)
		if err := s.SetColumn(2, make([]byte, s.Len()+1)); !errors.Is(err, ErrColumnLength) {
			t.Fatalf("SetColumn(long) error = %v, want ErrColumnLength", err)
		}
		checkColumns(t, s)
	})
}

func BenchmarkFromPacked(b *testing.B) {
	schema := myStructSchema(b)
	records := make([]Record, 1024)
	for i := range records {
		records[i] = Record{int32(i), uint32(i), i%2 == 0, []uint32{1, 2, 3, 4}}
	}
	b.ReportAllocs()
	for b.Loop() {
		if _, err := FromPacked(schema, records); err != nil {
			b.Fatal(err)
		}
	}
}
