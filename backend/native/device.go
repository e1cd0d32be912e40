// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package native implements gpucore.Device on top of gogpu/wgpu/hal.
//
// A Device either owns a headless noop HAL device (NewHeadless, registered
// as the "noop" backend) or borrows the device and queue of a host
// application through a gpucontext.DeviceProvider (FromProvider).
package native

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/planar"
	"github.com/gogpu/planar/backend"
	"github.com/gogpu/planar/gpucore"
)

func init() {
	backend.Register(backend.BackendNoop, func() (gpucore.Device, error) {
		return NewHeadless()
	})
}

// copyAlignment is the granularity of queue buffer writes.
const copyAlignment = 4

// Errors returned by the native device.
var (
	// ErrClosed is returned when the device has been closed.
	ErrClosed = errors.New("native: device closed")

	// ErrNoAdapter is returned when the HAL instance exposes no adapter.
	ErrNoAdapter = errors.New("native: no adapter available")

	// ErrNotHAL is returned when a device provider does not expose HAL types.
	ErrNotHAL = errors.New("native: provider does not expose HAL device and queue")
)

type buffer struct {
	raw  hal.Buffer
	size uint64 // logical size, the allocation may be larger
}

type texture struct {
	raw  hal.Texture
	view hal.TextureView
}

// Device is a gpucore.Device backed by a hal.Device and hal.Queue.
//
// Thread Safety: Device is safe for concurrent use. Resource maps are
// guarded by a mutex; HAL calls are made outside of it.
type Device struct {
	mu     sync.RWMutex
	device hal.Device
	queue  hal.Queue

	// instance is non-nil when the device was opened by NewHeadless.
	instance hal.Instance
	external bool
	closed   bool

	// ID generation
	nextID atomic.Uint64

	buffers    map[gpucore.BufferID]buffer
	textures   map[gpucore.TextureID]texture
	layouts    map[gpucore.BindGroupLayoutID]hal.BindGroupLayout
	bindGroups map[gpucore.BindGroupID]hal.BindGroup
}

// New wraps an existing HAL device and queue. The caller keeps ownership:
// Close releases the resources created through the Device but not the
// HAL device itself.
func New(device hal.Device, queue hal.Queue) *Device {
	d := &Device{
		device:     device,
		queue:      queue,
		external:   true,
		buffers:    make(map[gpucore.BufferID]buffer),
		textures:   make(map[gpucore.TextureID]texture),
		layouts:    make(map[gpucore.BindGroupLayoutID]hal.BindGroupLayout),
		bindGroups: make(map[gpucore.BindGroupID]hal.BindGroup),
	}
	// Start ID generation at 1 (0 is invalid)
	d.nextID.Store(1)
	return d
}

// NewHeadless opens a device on the noop HAL backend. No GPU is required;
// buffer contents are kept in host memory and can be read back with
// ReadBuffer.
func NewHeadless() (*Device, error) {
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		return nil, fmt.Errorf("native: create instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, ErrNoAdapter
	}
	open, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("native: open %s: %w", adapters[0].Info.Name, err)
	}
	d := New(open.Device, open.Queue)
	d.instance = instance
	d.external = false
	planar.Logger().Info("native: device opened", "adapter", adapters[0].Info.Name)
	return d, nil
}

// FromProvider borrows the device and queue of a host application. The
// provider must implement HalDevice() any and HalQueue() any returning
// hal.Device and hal.Queue, as gogpu's application context does.
func FromProvider(provider gpucontext.DeviceProvider) (*Device, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, ErrNotHAL
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: HalDevice is %T", ErrNotHAL, hp.HalDevice())
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is %T", ErrNotHAL, hp.HalQueue())
	}
	return New(device, queue), nil
}

func (d *Device) newID() uint64 {
	return d.nextID.Add(1) - 1
}

func (d *Device) checkOpen() error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}
	return nil
}

// CreateBuffer implements gpucore.Device. The allocation is rounded up to
// the queue copy alignment; the logical size is kept for bindings.
func (d *Device) CreateBuffer(desc *gpucore.BufferDescriptor, contents []byte) (gpucore.BufferID, error) {
	if desc == nil {
		return gpucore.InvalidID, fmt.Errorf("%w: nil buffer descriptor", gpucore.ErrInvalidDescriptor)
	}
	if uint64(len(contents)) > desc.Size {
		return gpucore.InvalidID, fmt.Errorf("%w: %d bytes of contents for buffer %q of size %d",
			gpucore.ErrInvalidDescriptor, len(contents), desc.Label, desc.Size)
	}
	if err := d.checkOpen(); err != nil {
		return gpucore.InvalidID, err
	}

	alloc := alignUp(max(desc.Size, copyAlignment), copyAlignment)
	raw, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: desc.Label,
		Size:  alloc,
		Usage: desc.Usage,
	})
	if err != nil {
		return gpucore.InvalidID, gpucore.AllocationError("buffer", desc.Label, err)
	}
	if len(contents) > 0 {
		data := contents
		if pad := alignUp(uint64(len(data)), copyAlignment); pad != uint64(len(data)) {
			data = make([]byte, pad)
			copy(data, contents)
		}
		if err := d.queue.WriteBuffer(raw, 0, data); err != nil {
			d.device.DestroyBuffer(raw)
			return gpucore.InvalidID, gpucore.AllocationError("buffer upload", desc.Label, err)
		}
	}

	id := gpucore.BufferID(d.newID())
	d.mu.Lock()
	d.buffers[id] = buffer{raw: raw, size: desc.Size}
	d.mu.Unlock()

	planar.Logger().Debug("native: buffer created", "label", desc.Label, "size", desc.Size, "alloc", alloc)
	return id, nil
}

// DestroyBuffer implements gpucore.Device.
func (d *Device) DestroyBuffer(id gpucore.BufferID) {
	d.mu.Lock()
	buf, ok := d.buffers[id]
	delete(d.buffers, id)
	d.mu.Unlock()
	if ok {
		d.device.DestroyBuffer(buf.raw)
	}
}

// CreateTexture implements gpucore.Device. The texture gets a single mip
// level and its default view is created with desc.ViewDimension.
func (d *Device) CreateTexture(desc *gpucore.TextureDescriptor, data []byte) (gpucore.TextureID, error) {
	if desc == nil {
		return gpucore.InvalidID, fmt.Errorf("%w: nil texture descriptor", gpucore.ErrInvalidDescriptor)
	}
	bpt, ok := gpucore.BytesPerTexel(desc.Format)
	if !ok {
		return gpucore.InvalidID, fmt.Errorf("%w: texture %q: unsupported format %v",
			gpucore.ErrInvalidDescriptor, desc.Label, desc.Format)
	}
	size := hal.Extent3D{
		Width:              desc.Size.Width,
		Height:             desc.Size.Height,
		DepthOrArrayLayers: desc.Size.DepthOrArrayLayers,
	}
	if size.Width == 0 || size.Height == 0 || size.DepthOrArrayLayers == 0 {
		return gpucore.InvalidID, fmt.Errorf("%w: texture %q: empty extent %v",
			gpucore.ErrInvalidDescriptor, desc.Label, desc.Size)
	}
	bytesPerRow := size.Width * uint32(bpt)
	if want := int(bytesPerRow) * int(size.Height) * int(size.DepthOrArrayLayers); len(data) != want {
		return gpucore.InvalidID, fmt.Errorf("%w: texture %q: %d bytes of data, want %d",
			gpucore.ErrInvalidDescriptor, desc.Label, len(data), want)
	}
	if err := d.checkOpen(); err != nil {
		return gpucore.InvalidID, err
	}

	dim := desc.Dimension
	if dim == gputypes.TextureDimensionUndefined {
		dim = gputypes.TextureDimension2D
	}
	raw, err := d.device.CreateTexture(&hal.TextureDescriptor{
		Label:         desc.Label,
		Size:          size,
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     dim,
		Format:        desc.Format,
		Usage:         desc.Usage,
	})
	if err != nil {
		return gpucore.InvalidID, gpucore.AllocationError("texture", desc.Label, err)
	}
	view, err := d.device.CreateTextureView(raw, &hal.TextureViewDescriptor{
		Label:           desc.Label + "_view",
		Format:          desc.Format,
		Dimension:       desc.ViewDimension,
		Aspect:          gputypes.TextureAspectAll,
		MipLevelCount:   1,
		ArrayLayerCount: size.DepthOrArrayLayers,
	})
	if err != nil {
		d.device.DestroyTexture(raw)
		return gpucore.InvalidID, gpucore.AllocationError("texture view", desc.Label, err)
	}
	err = d.queue.WriteTexture(
		&hal.ImageCopyTexture{Texture: raw, Aspect: gputypes.TextureAspectAll},
		data,
		&hal.ImageDataLayout{BytesPerRow: bytesPerRow, RowsPerImage: size.Height},
		&size,
	)
	if err != nil {
		d.device.DestroyTextureView(view)
		d.device.DestroyTexture(raw)
		return gpucore.InvalidID, gpucore.AllocationError("texture upload", desc.Label, err)
	}

	id := gpucore.TextureID(d.newID())
	d.mu.Lock()
	d.textures[id] = texture{raw: raw, view: view}
	d.mu.Unlock()

	planar.Logger().Debug("native: texture created", "label", desc.Label,
		"width", size.Width, "height", size.Height, "layers", size.DepthOrArrayLayers, "format", desc.Format)
	return id, nil
}

// DestroyTexture implements gpucore.Device.
func (d *Device) DestroyTexture(id gpucore.TextureID) {
	d.mu.Lock()
	tex, ok := d.textures[id]
	delete(d.textures, id)
	d.mu.Unlock()
	if ok {
		d.device.DestroyTextureView(tex.view)
		d.device.DestroyTexture(tex.raw)
	}
}

// CreateBindGroupLayout implements gpucore.Device.
func (d *Device) CreateBindGroupLayout(desc *gpucore.BindGroupLayoutDescriptor) (gpucore.BindGroupLayoutID, error) {
	if desc == nil {
		return gpucore.InvalidID, fmt.Errorf("%w: nil bind group layout descriptor", gpucore.ErrInvalidDescriptor)
	}
	if err := d.checkOpen(); err != nil {
		return gpucore.InvalidID, err
	}
	raw, err := d.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   desc.Label,
		Entries: desc.Entries,
	})
	if err != nil {
		return gpucore.InvalidID, gpucore.AllocationError("bind group layout", desc.Label, err)
	}
	id := gpucore.BindGroupLayoutID(d.newID())
	d.mu.Lock()
	d.layouts[id] = raw
	d.mu.Unlock()
	return id, nil
}

// DestroyBindGroupLayout implements gpucore.Device.
func (d *Device) DestroyBindGroupLayout(id gpucore.BindGroupLayoutID) {
	d.mu.Lock()
	raw, ok := d.layouts[id]
	delete(d.layouts, id)
	d.mu.Unlock()
	if ok {
		d.device.DestroyBindGroupLayout(raw)
	}
}

// CreateBindGroup implements gpucore.Device.
func (d *Device) CreateBindGroup(desc *gpucore.BindGroupDescriptor) (gpucore.BindGroupID, error) {
	if desc == nil {
		return gpucore.InvalidID, fmt.Errorf("%w: nil bind group descriptor", gpucore.ErrInvalidDescriptor)
	}

	d.mu.RLock()
	if d.closed {
		d.mu.RUnlock()
		return gpucore.InvalidID, ErrClosed
	}
	layout, ok := d.layouts[desc.Layout]
	if !ok {
		d.mu.RUnlock()
		return gpucore.InvalidID, fmt.Errorf("%w: bind group %q: layout %d", gpucore.ErrUnknownResource, desc.Label, desc.Layout)
	}
	entries := make([]gputypes.BindGroupEntry, len(desc.Entries))
	for i, e := range desc.Entries {
		res, err := d.resolveEntry(e)
		if err != nil {
			d.mu.RUnlock()
			return gpucore.InvalidID, fmt.Errorf("bind group %q: %w", desc.Label, err)
		}
		entries[i] = gputypes.BindGroupEntry{Binding: e.Binding, Resource: res}
	}
	d.mu.RUnlock()

	raw, err := d.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   desc.Label,
		Layout:  layout,
		Entries: entries,
	})
	if err != nil {
		return gpucore.InvalidID, gpucore.AllocationError("bind group", desc.Label, err)
	}
	id := gpucore.BindGroupID(d.newID())
	d.mu.Lock()
	d.bindGroups[id] = raw
	d.mu.Unlock()
	return id, nil
}

// resolveEntry maps a gpucore entry to a native binding resource. Called
// with mu held.
func (d *Device) resolveEntry(e gpucore.BindGroupEntry) (gputypes.BindingResource, error) {
	if e.Texture != gpucore.InvalidID {
		tex, ok := d.textures[e.Texture]
		if !ok {
			return nil, fmt.Errorf("%w: binding %d: texture %d", gpucore.ErrUnknownResource, e.Binding, e.Texture)
		}
		return gputypes.TextureViewBinding{TextureView: tex.view.NativeHandle()}, nil
	}
	buf, ok := d.buffers[e.Buffer]
	if !ok {
		return nil, fmt.Errorf("%w: binding %d: buffer %d", gpucore.ErrUnknownResource, e.Binding, e.Buffer)
	}
	size := e.Size
	if size == 0 && buf.size > e.Offset {
		size = buf.size - e.Offset
	}
	return gputypes.BufferBinding{Buffer: buf.raw.NativeHandle(), Offset: e.Offset, Size: size}, nil
}

// DestroyBindGroup implements gpucore.Device.
func (d *Device) DestroyBindGroup(id gpucore.BindGroupID) {
	d.mu.Lock()
	raw, ok := d.bindGroups[id]
	delete(d.bindGroups, id)
	d.mu.Unlock()
	if ok {
		d.device.DestroyBindGroup(raw)
	}
}

// ReadBuffer maps a buffer and returns a copy of its logical contents.
// It only works on backends whose buffers are host visible, such as the
// headless noop device.
func (d *Device) ReadBuffer(id gpucore.BufferID) ([]byte, error) {
	d.mu.RLock()
	buf, ok := d.buffers[id]
	d.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: buffer %d", gpucore.ErrUnknownResource, id)
	}
	if buf.size == 0 {
		return []byte{}, nil
	}
	m, err := d.device.MapBuffer(buf.raw, 0, buf.size)
	if err != nil {
		return nil, fmt.Errorf("native: map buffer %d: %w", id, err)
	}
	out := make([]byte, buf.size)
	copy(out, unsafe.Slice((*byte)(m.Ptr), buf.size))
	if err := d.device.UnmapBuffer(buf.raw); err != nil {
		return nil, fmt.Errorf("native: unmap buffer %d: %w", id, err)
	}
	return out, nil
}

// Close releases every resource created through the Device and, for a
// headless device, the HAL device and instance. It is safe to call more
// than once.
func (d *Device) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	bindGroups, layouts, textures, buffers := d.bindGroups, d.layouts, d.textures, d.buffers
	d.bindGroups = make(map[gpucore.BindGroupID]hal.BindGroup)
	d.layouts = make(map[gpucore.BindGroupLayoutID]hal.BindGroupLayout)
	d.textures = make(map[gpucore.TextureID]texture)
	d.buffers = make(map[gpucore.BufferID]buffer)
	d.mu.Unlock()

	for _, g := range bindGroups {
		d.device.DestroyBindGroup(g)
	}
	for _, l := range layouts {
		d.device.DestroyBindGroupLayout(l)
	}
	for _, t := range textures {
		d.device.DestroyTextureView(t.view)
		d.device.DestroyTexture(t.raw)
	}
	for _, b := range buffers {
		d.device.DestroyBuffer(b.raw)
	}
	if d.external {
		return
	}
	d.device.Destroy()
	if d.instance != nil {
		d.instance.Destroy()
	}
	planar.Logger().Info("native: device closed")
}

func alignUp(n, a uint64) uint64 {
	return (n + a - 1) &^ (a - 1)
}

var _ gpucore.Device = (*Device)(nil)
