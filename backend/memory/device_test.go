// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package memory

import (
	"bytes"
	"errors"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/planar/backend"
	"github.com/gogpu/planar/gpucore"
)

func storageLayout(bindings ...uint32) *gpucore.BindGroupLayoutDescriptor {
	desc := &gpucore.BindGroupLayoutDescriptor{Label: "test_layout"}
	for _, b := range bindings {
		desc.Entries = append(desc.Entries, gputypes.BindGroupLayoutEntry{
			Binding:    b,
			Visibility: gputypes.ShaderStagesAll,
			Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage, MinBindingSize: 4},
		})
	}
	return desc
}

func TestCreateBufferKeepsContents(t *testing.T) {
	d := New()
	id, err := d.CreateBuffer(&gpucore.BufferDescriptor{
		Label: "field_buffer",
		Size:  8,
		Usage: gputypes.BufferUsageCopyDst | gputypes.BufferUsageStorage,
	}, []byte{1, 2, 3})
	if err != nil {
		t.Fatalf("CreateBuffer: %v", err)
	}
	if id == gpucore.InvalidID {
		t.Fatal("CreateBuffer returned InvalidID")
	}
	buf, ok := d.Buffer(id)
	if !ok {
		t.Fatal("Buffer() not found")
	}
	if !bytes.Equal(buf.Contents, []byte{1, 2, 3, 0, 0, 0, 0, 0}) {
		t.Errorf("Contents = %v", buf.Contents)
	}

	d.DestroyBuffer(id)
	if _, ok := d.Buffer(id); ok {
		t.Error("buffer still present after DestroyBuffer")
	}
}

func TestCreateBufferOversizedContents(t *testing.T) {
	d := New()
	_, err := d.CreateBuffer(&gpucore.BufferDescriptor{Size: 2}, []byte{1, 2, 3})
	if !errors.Is(err, gpucore.ErrInvalidDescriptor) {
		t.Errorf("CreateBuffer error = %v, want ErrInvalidDescriptor", err)
	}
}

func TestCreateTextureValidatesData(t *testing.T) {
	d := New()
	desc := &gpucore.TextureDescriptor{
		Label:  "texture_field",
		Size:   gputypes.Extent3D{Width: 2, Height: 2, DepthOrArrayLayers: 1},
		Format: gputypes.TextureFormatR32Uint,
	}
	if _, err := d.CreateTexture(desc, make([]byte, 15)); !errors.Is(err, gpucore.ErrInvalidDescriptor) {
		t.Errorf("short data error = %v, want ErrInvalidDescriptor", err)
	}
	id, err := d.CreateTexture(desc, make([]byte, 16))
	if err != nil {
		t.Fatalf("CreateTexture: %v", err)
	}
	if !d.TextureReady(id) || !gpucore.TextureReady(d, id) {
		t.Error("texture without latency should be ready immediately")
	}

	bad := *desc
	bad.Format = gputypes.TextureFormatDepth24Plus
	if _, err := d.CreateTexture(&bad, make([]byte, 16)); !errors.Is(err, gpucore.ErrInvalidDescriptor) {
		t.Errorf("depth format error = %v, want ErrInvalidDescriptor", err)
	}
}

func TestUploadLatency(t *testing.T) {
	d := New()
	d.SetUploadLatency(2)
	id, err := d.CreateTexture(&gpucore.TextureDescriptor{
		Size:   gputypes.Extent3D{Width: 1, Height: 1, DepthOrArrayLayers: 1},
		Format: gputypes.TextureFormatR8Unorm,
	}, []byte{7})
	if err != nil {
		t.Fatalf("CreateTexture: %v", err)
	}
	for tick := range 2 {
		if d.TextureReady(id) {
			t.Fatalf("texture ready after %d ticks, want 2", tick)
		}
		d.Advance()
	}
	if !d.TextureReady(id) {
		t.Error("texture not ready after 2 ticks")
	}
}

func TestFailAfter(t *testing.T) {
	d := New()
	d.FailAfter(1)
	if _, err := d.CreateBuffer(&gpucore.BufferDescriptor{Size: 4}, nil); err != nil {
		t.Fatalf("first CreateBuffer: %v", err)
	}
	_, err := d.CreateBuffer(&gpucore.BufferDescriptor{Label: "second", Size: 4}, nil)
	if !errors.Is(err, gpucore.ErrAllocation) || !gpucore.IsFatal(err) {
		t.Errorf("second CreateBuffer error = %v, want ErrAllocation", err)
	}
	d.FailAfter(-1)
	if _, err := d.CreateBuffer(&gpucore.BufferDescriptor{Size: 4}, nil); err != nil {
		t.Errorf("CreateBuffer after disabling failures: %v", err)
	}
	if got := d.Stats().Buffers; got != 2 {
		t.Errorf("Stats().Buffers = %d, want 2", got)
	}
}

func TestCreateBindGroupValidation(t *testing.T) {
	d := New()
	layout, err := d.CreateBindGroupLayout(storageLayout(0, 1))
	if err != nil {
		t.Fatalf("CreateBindGroupLayout: %v", err)
	}
	a, _ := d.CreateBuffer(&gpucore.BufferDescriptor{Size: 4}, nil)
	b, _ := d.CreateBuffer(&gpucore.BufferDescriptor{Size: 4}, nil)

	tests := []struct {
		name    string
		desc    *gpucore.BindGroupDescriptor
		wantErr error
	}{
		{"unknown layout", &gpucore.BindGroupDescriptor{Layout: 999}, gpucore.ErrUnknownResource},
		{"entry count", &gpucore.BindGroupDescriptor{Layout: layout, Entries: []gpucore.BindGroupEntry{{Binding: 0, Buffer: a}}}, gpucore.ErrInvalidDescriptor},
		{"binding order", &gpucore.BindGroupDescriptor{Layout: layout, Entries: []gpucore.BindGroupEntry{{Binding: 1, Buffer: a}, {Binding: 0, Buffer: b}}}, gpucore.ErrInvalidDescriptor},
		{"unknown buffer", &gpucore.BindGroupDescriptor{Layout: layout, Entries: []gpucore.BindGroupEntry{{Binding: 0, Buffer: a}, {Binding: 1, Buffer: 12345}}}, gpucore.ErrUnknownResource},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := d.CreateBindGroup(tt.desc); !errors.Is(err, tt.wantErr) {
				t.Errorf("CreateBindGroup error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	id, err := d.CreateBindGroup(&gpucore.BindGroupDescriptor{
		Label:   "ok",
		Layout:  layout,
		Entries: []gpucore.BindGroupEntry{{Binding: 0, Buffer: a}, {Binding: 1, Buffer: b}},
	})
	if err != nil {
		t.Fatalf("CreateBindGroup: %v", err)
	}
	if g, ok := d.BindGroup(id); !ok || g.Label != "ok" || len(g.Entries) != 2 {
		t.Errorf("BindGroup() = %+v, %v", g, ok)
	}
}

func TestRegisteredAsMemoryBackend(t *testing.T) {
	dev, err := backend.Open(backend.BackendMemory)
	if err != nil {
		t.Fatalf("backend.Open(memory): %v", err)
	}
	if _, ok := dev.(*Device); !ok {
		t.Errorf("backend.Open(memory) = %T, want *memory.Device", dev)
	}
}
