// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package memory provides an in-memory gpucore.Device.
//
// The device keeps every resource's descriptor and contents so that tests
// and dry runs can inspect exactly what would have been uploaded. It can
// inject allocation failures and simulate asynchronous texture uploads.
package memory

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/planar/backend"
	"github.com/gogpu/planar/gpucore"
)

func init() {
	backend.Register(backend.BackendMemory, func() (gpucore.Device, error) {
		return New(), nil
	})
}

// errInjected is returned (wrapped in gpucore.ErrAllocation) by injected failures.
var errInjected = errors.New("memory: injected allocation failure")

// Buffer is a recorded buffer.
type Buffer struct {
	Desc     gpucore.BufferDescriptor
	Contents []byte
}

// Texture is a recorded texture. Data holds the uploaded texels.
type Texture struct {
	Desc gpucore.TextureDescriptor
	Data []byte

	readyAt uint64
}

// Stats counts live resources and creation calls.
type Stats struct {
	Buffers, Textures, Layouts, BindGroups int
	Creates                                int
}

// Device is an in-memory gpucore.Device. It is safe for concurrent use.
type Device struct {
	mu     sync.RWMutex
	nextID atomic.Uint64

	buffers    map[gpucore.BufferID]*Buffer
	textures   map[gpucore.TextureID]*Texture
	layouts    map[gpucore.BindGroupLayoutID]*gpucore.BindGroupLayoutDescriptor
	bindGroups map[gpucore.BindGroupID]*gpucore.BindGroupDescriptor

	creates   int
	failAfter int // -1 disables failure injection
	latency   uint64
	tick      uint64
}

// New returns an empty device.
func New() *Device {
	d := &Device{
		buffers:    make(map[gpucore.BufferID]*Buffer),
		textures:   make(map[gpucore.TextureID]*Texture),
		layouts:    make(map[gpucore.BindGroupLayoutID]*gpucore.BindGroupLayoutDescriptor),
		bindGroups: make(map[gpucore.BindGroupID]*gpucore.BindGroupDescriptor),
		failAfter:  -1,
	}
	// Start ID generation at 1 (0 is invalid)
	d.nextID.Store(1)
	return d
}

func (d *Device) newID() uint64 {
	return d.nextID.Add(1) - 1
}

// FailAfter makes every creation after the next n successful ones fail with
// gpucore.ErrAllocation. A negative n disables failure injection.
func (d *Device) FailAfter(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if n < 0 {
		d.failAfter = -1
		return
	}
	d.failAfter = d.creates + n
}

// SetUploadLatency makes textures created from now on report ready only
// after Advance has been called ticks times.
func (d *Device) SetUploadLatency(ticks uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.latency = ticks
}

// Advance moves the simulated upload clock forward by one tick.
func (d *Device) Advance() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tick++
}

// admit counts a creation and reports whether it must fail. Called with mu held.
func (d *Device) admit() bool {
	if d.failAfter >= 0 && d.creates >= d.failAfter {
		return false
	}
	d.creates++
	return true
}

// CreateBuffer implements gpucore.Device.
func (d *Device) CreateBuffer(desc *gpucore.BufferDescriptor, contents []byte) (gpucore.BufferID, error) {
	if desc == nil {
		return gpucore.InvalidID, fmt.Errorf("%w: nil buffer descriptor", gpucore.ErrInvalidDescriptor)
	}
	if uint64(len(contents)) > desc.Size {
		return gpucore.InvalidID, fmt.Errorf("%w: %d bytes of contents for buffer %q of size %d",
			gpucore.ErrInvalidDescriptor, len(contents), desc.Label, desc.Size)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.admit() {
		return gpucore.InvalidID, gpucore.AllocationError("buffer", desc.Label, errInjected)
	}
	buf := &Buffer{Desc: *desc, Contents: make([]byte, desc.Size)}
	copy(buf.Contents, contents)
	id := gpucore.BufferID(d.newID())
	d.buffers[id] = buf
	return id, nil
}

// DestroyBuffer implements gpucore.Device.
func (d *Device) DestroyBuffer(id gpucore.BufferID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.buffers, id)
}

// CreateTexture implements gpucore.Device.
func (d *Device) CreateTexture(desc *gpucore.TextureDescriptor, data []byte) (gpucore.TextureID, error) {
	if desc == nil {
		return gpucore.InvalidID, fmt.Errorf("%w: nil texture descriptor", gpucore.ErrInvalidDescriptor)
	}
	bpt, ok := gpucore.BytesPerTexel(desc.Format)
	if !ok {
		return gpucore.InvalidID, fmt.Errorf("%w: texture %q: unsupported format %v",
			gpucore.ErrInvalidDescriptor, desc.Label, desc.Format)
	}
	size := desc.Size
	if size.Width == 0 || size.Height == 0 || size.DepthOrArrayLayers == 0 {
		return gpucore.InvalidID, fmt.Errorf("%w: texture %q: empty extent %v",
			gpucore.ErrInvalidDescriptor, desc.Label, size)
	}
	want := int(size.Width) * int(size.Height) * int(size.DepthOrArrayLayers) * bpt
	if len(data) != want {
		return gpucore.InvalidID, fmt.Errorf("%w: texture %q: %d bytes of data, want %d",
			gpucore.ErrInvalidDescriptor, desc.Label, len(data), want)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.admit() {
		return gpucore.InvalidID, gpucore.AllocationError("texture", desc.Label, errInjected)
	}
	id := gpucore.TextureID(d.newID())
	d.textures[id] = &Texture{Desc: *desc, Data: bytes.Clone(data), readyAt: d.tick + d.latency}
	return id, nil
}

// DestroyTexture implements gpucore.Device.
func (d *Device) DestroyTexture(id gpucore.TextureID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.textures, id)
}

// TextureReady implements gpucore.UploadTracker.
func (d *Device) TextureReady(id gpucore.TextureID) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	tex, ok := d.textures[id]
	return ok && d.tick >= tex.readyAt
}

// CreateBindGroupLayout implements gpucore.Device.
func (d *Device) CreateBindGroupLayout(desc *gpucore.BindGroupLayoutDescriptor) (gpucore.BindGroupLayoutID, error) {
	if desc == nil {
		return gpucore.InvalidID, fmt.Errorf("%w: nil bind group layout descriptor", gpucore.ErrInvalidDescriptor)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.admit() {
		return gpucore.InvalidID, gpucore.AllocationError("bind group layout", desc.Label, errInjected)
	}
	cp := *desc
	cp.Entries = append(cp.Entries[:0:0], desc.Entries...)
	id := gpucore.BindGroupLayoutID(d.newID())
	d.layouts[id] = &cp
	return id, nil
}

// DestroyBindGroupLayout implements gpucore.Device.
func (d *Device) DestroyBindGroupLayout(id gpucore.BindGroupLayoutID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.layouts, id)
}

// CreateBindGroup implements gpucore.Device. Every entry must reference a
// live resource and match a layout entry of the same kind.
func (d *Device) CreateBindGroup(desc *gpucore.BindGroupDescriptor) (gpucore.BindGroupID, error) {
	if desc == nil {
		return gpucore.InvalidID, fmt.Errorf("%w: nil bind group descriptor", gpucore.ErrInvalidDescriptor)
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	layout, ok := d.layouts[desc.Layout]
	if !ok {
		return gpucore.InvalidID, fmt.Errorf("%w: bind group %q: layout %d", gpucore.ErrUnknownResource, desc.Label, desc.Layout)
	}
	if len(desc.Entries) != len(layout.Entries) {
		return gpucore.InvalidID, fmt.Errorf("%w: bind group %q has %d entries, layout has %d",
			gpucore.ErrInvalidDescriptor, desc.Label, len(desc.Entries), len(layout.Entries))
	}
	for i, e := range desc.Entries {
		le := layout.Entries[i]
		if e.Binding != le.Binding {
			return gpucore.InvalidID, fmt.Errorf("%w: bind group %q entry %d: binding %d, layout expects %d",
				gpucore.ErrInvalidDescriptor, desc.Label, i, e.Binding, le.Binding)
		}
		switch {
		case le.Buffer != nil:
			if _, ok := d.buffers[e.Buffer]; !ok {
				return gpucore.InvalidID, fmt.Errorf("%w: bind group %q binding %d: buffer %d",
					gpucore.ErrUnknownResource, desc.Label, e.Binding, e.Buffer)
			}
		case le.Texture != nil:
			if _, ok := d.textures[e.Texture]; !ok {
				return gpucore.InvalidID, fmt.Errorf("%w: bind group %q binding %d: texture %d",
					gpucore.ErrUnknownResource, desc.Label, e.Binding, e.Texture)
			}
		}
	}
	if !d.admit() {
		return gpucore.InvalidID, gpucore.AllocationError("bind group", desc.Label, errInjected)
	}
	cp := *desc
	cp.Entries = append(cp.Entries[:0:0], desc.Entries...)
	id := gpucore.BindGroupID(d.newID())
	d.bindGroups[id] = &cp
	return id, nil
}

// DestroyBindGroup implements gpucore.Device.
func (d *Device) DestroyBindGroup(id gpucore.BindGroupID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.bindGroups, id)
}

// Buffer returns a copy of a live buffer.
func (d *Device) Buffer(id gpucore.BufferID) (Buffer, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	b, ok := d.buffers[id]
	if !ok {
		return Buffer{}, false
	}
	return Buffer{Desc: b.Desc, Contents: bytes.Clone(b.Contents)}, true
}

// Texture returns a copy of a live texture.
func (d *Device) Texture(id gpucore.TextureID) (Texture, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	t, ok := d.textures[id]
	if !ok {
		return Texture{}, false
	}
	return Texture{Desc: t.Desc, Data: bytes.Clone(t.Data), readyAt: t.readyAt}, true
}

// BindGroupLayout returns a live layout descriptor.
func (d *Device) BindGroupLayout(id gpucore.BindGroupLayoutID) (gpucore.BindGroupLayoutDescriptor, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	l, ok := d.layouts[id]
	if !ok {
		return gpucore.BindGroupLayoutDescriptor{}, false
	}
	return *l, true
}

// BindGroup returns a live bind group descriptor.
func (d *Device) BindGroup(id gpucore.BindGroupID) (gpucore.BindGroupDescriptor, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	g, ok := d.bindGroups[id]
	if !ok {
		return gpucore.BindGroupDescriptor{}, false
	}
	return *g, true
}

// Stats returns live resource counts.
func (d *Device) Stats() Stats {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return Stats{
		Buffers:    len(d.buffers),
		Textures:   len(d.textures),
		Layouts:    len(d.layouts),
		BindGroups: len(d.bindGroups),
		Creates:    d.creates,
	}
}

var (
	_ gpucore.Device        = (*Device)(nil)
	_ gpucore.UploadTracker = (*Device)(nil)
)
