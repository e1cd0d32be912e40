// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package asset

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"slices"

	"github.com/klauspost/compress/zstd"

	"github.com/gogpu/planar"
)

// Planar file layout, all integers little-endian:
//
//	header  magic "PLNR" | version u16 | flags u16
//	body    schema length u32 | schema TOML | element count u64 | columns
//
// Columns follow in field order, each count × field size bytes. With
// FlagZstd set the whole body is one zstd stream.
const (
	Magic   = "PLNR"
	Version = 1

	headerSize = 8
	maxSchema  = 1 << 20
	readChunk  = 1 << 20
)

// Header flags.
const (
	FlagZstd uint16 = 1 << iota
)

// Codec errors.
var (
	ErrNotPlanar   = errors.New("asset: not a planar file")
	ErrVersion     = errors.New("asset: unsupported planar file version")
	ErrCorruptFile = errors.New("asset: corrupt planar file")
)

// EncodeOptions control Encode.
type EncodeOptions struct {
	// Compress writes the body as a zstd stream.
	Compress bool

	// Level is the zstd encoder level. Zero selects zstd.SpeedDefault.
	Level zstd.EncoderLevel
}

// Encode writes a consistent snapshot of store to w.
func Encode(w io.Writer, store planar.Columnar, opts EncodeOptions) error {
	snap := store.Snapshot()
	schema, err := snap.Schema().MarshalTOML()
	if err != nil {
		return fmt.Errorf("asset: encode schema: %w", err)
	}

	var flags uint16
	if opts.Compress {
		flags |= FlagZstd
	}
	header := make([]byte, 0, headerSize)
	header = append(header, Magic...)
	header = binary.LittleEndian.AppendUint16(header, Version)
	header = binary.LittleEndian.AppendUint16(header, flags)
	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("asset: write header: %w", err)
	}

	body := w
	var enc *zstd.Encoder
	if opts.Compress {
		level := opts.Level
		if level == 0 {
			level = zstd.SpeedDefault
		}
		enc, err = zstd.NewWriter(w, zstd.WithEncoderLevel(level))
		if err != nil {
			return fmt.Errorf("asset: zstd writer: %w", err)
		}
		body = enc
	}

	bw := bufio.NewWriter(body)
	var buf [8]byte
	binary.LittleEndian.PutUint32(buf[:4], uint32(len(schema)))
	bw.Write(buf[:4])
	bw.Write(schema)
	binary.LittleEndian.PutUint64(buf[:], uint64(snap.Len()))
	bw.Write(buf[:])
	for i := range snap.Schema().NumFields() {
		bw.Write(snap.Column(i))
	}
	if err := bw.Flush(); err != nil {
		if enc != nil {
			enc.Close()
		}
		return fmt.Errorf("asset: write body: %w", err)
	}
	if enc != nil {
		if err := enc.Close(); err != nil {
			return fmt.Errorf("asset: finish zstd stream: %w", err)
		}
	}
	return nil
}

// Decode reads a planar file written by Encode.
func Decode(r io.Reader) (*planar.Store, error) {
	var header [headerSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrNotPlanar, err)
	}
	if string(header[:4]) != Magic {
		return nil, fmt.Errorf("%w: magic %q", ErrNotPlanar, header[:4])
	}
	if v := binary.LittleEndian.Uint16(header[4:]); v != Version {
		return nil, fmt.Errorf("%w: %d", ErrVersion, v)
	}
	flags := binary.LittleEndian.Uint16(header[6:])

	body := r
	if flags&FlagZstd != 0 {
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("asset: zstd reader: %w", err)
		}
		defer dec.Close()
		body = dec
	}
	br := bufio.NewReader(body)

	var buf [8]byte
	if _, err := io.ReadFull(br, buf[:4]); err != nil {
		return nil, fmt.Errorf("%w: schema length: %v", ErrCorruptFile, err)
	}
	n := binary.LittleEndian.Uint32(buf[:4])
	if n > maxSchema {
		return nil, fmt.Errorf("%w: schema of %d bytes", ErrCorruptFile, n)
	}
	schemaText := make([]byte, n)
	if _, err := io.ReadFull(br, schemaText); err != nil {
		return nil, fmt.Errorf("%w: schema: %v", ErrCorruptFile, err)
	}
	schema, err := planar.ParseSchema(schemaText)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptFile, err)
	}

	if _, err := io.ReadFull(br, buf[:]); err != nil {
		return nil, fmt.Errorf("%w: element count: %v", ErrCorruptFile, err)
	}
	count := binary.LittleEndian.Uint64(buf[:])
	if schema.NumFields() > 0 && count > math.MaxInt32 {
		return nil, fmt.Errorf("%w: element count %d", ErrCorruptFile, count)
	}

	cols := make([][]byte, schema.NumFields())
	for i, f := range schema.Fields() {
		size := count * uint64(f.ByteSize())
		if size > math.MaxInt {
			return nil, fmt.Errorf("%w: column %q of %d bytes", ErrCorruptFile, f.Name, size)
		}
		col, err := readColumn(br, int(size))
		if err != nil {
			return nil, fmt.Errorf("%w: column %q: %v", ErrCorruptFile, f.Name, err)
		}
		cols[i] = col
	}
	return planar.FromColumns(schema, cols)
}

// readColumn reads size bytes from r, growing the buffer one chunk at a
// time so a forged element count fails on a short read before the whole
// column is allocated.
func readColumn(r io.Reader, size int) ([]byte, error) {
	col := make([]byte, 0, min(size, readChunk))
	for len(col) < size {
		n := min(size-len(col), readChunk)
		col = slices.Grow(col, n)
		if _, err := io.ReadFull(r, col[len(col):len(col)+n]); err != nil {
			return nil, err
		}
		col = col[:len(col)+n]
	}
	return col, nil
}
