package gpucore

import (
	"errors"
	"fmt"
)

// Device abstracts over the GPU device used to materialise planar data.
//
// Implementations must be safe for concurrent use: the readiness engine
// prepares different elements in parallel against the same device.
//
// Resource lifecycle:
//   - Resources are created via Create* methods
//   - Resources must be explicitly destroyed via Destroy* methods
//   - Destroying a resource while in use is undefined behavior
//   - IDs become invalid after destruction and must not be reused
//
// Create* methods are synchronous. A returned error means the device could
// not allocate the resource; callers treat it as fatal and never retry.
type Device interface {
	// CreateBuffer creates a buffer and initialises it with contents.
	// len(contents) must not exceed desc.Size; the rest is zero.
	CreateBuffer(desc *BufferDescriptor, contents []byte) (BufferID, error)

	// DestroyBuffer releases a buffer.
	DestroyBuffer(id BufferID)

	// CreateTexture creates a texture and its default view and uploads data,
	// which is laid out layer by layer, row by row, without row padding.
	CreateTexture(desc *TextureDescriptor, data []byte) (TextureID, error)

	// DestroyTexture releases a texture and its default view.
	DestroyTexture(id TextureID)

	// CreateBindGroupLayout creates a bind group layout.
	CreateBindGroupLayout(desc *BindGroupLayoutDescriptor) (BindGroupLayoutID, error)

	// DestroyBindGroupLayout releases a bind group layout.
	DestroyBindGroupLayout(id BindGroupLayoutID)

	// CreateBindGroup creates a bind group against a layout.
	CreateBindGroup(desc *BindGroupDescriptor) (BindGroupID, error)

	// DestroyBindGroup releases a bind group.
	DestroyBindGroup(id BindGroupID)
}

// UploadTracker is implemented by devices whose texture uploads complete
// asynchronously. Bind groups referencing a texture are only assembled once
// TextureReady reports true.
type UploadTracker interface {
	TextureReady(id TextureID) bool
}

// TextureReady reports whether the texture's contents are available on d.
// Devices that do not implement UploadTracker upload synchronously.
func TextureReady(d Device, id TextureID) bool {
	if t, ok := d.(UploadTracker); ok {
		return t.TextureReady(id)
	}
	return true
}

// Device errors.
var (
	// ErrAllocation marks a device allocation failure. It is fatal: the
	// caller surfaces it to the host instead of retrying.
	ErrAllocation = errors.New("gpucore: device allocation failed")

	// ErrUnknownResource reports an ID that the device does not know.
	ErrUnknownResource = errors.New("gpucore: unknown resource")

	// ErrInvalidDescriptor reports a malformed descriptor.
	ErrInvalidDescriptor = errors.New("gpucore: invalid descriptor")
)

// AllocationError wraps a backend failure as a fatal allocation error.
func AllocationError(what, label string, err error) error {
	if label == "" {
		return fmt.Errorf("%w: %s: %w", ErrAllocation, what, err)
	}
	return fmt.Errorf("%w: %s %q: %w", ErrAllocation, what, label, err)
}

// IsFatal reports whether err is a device failure that must be surfaced
// to the host.
func IsFatal(err error) bool {
	return errors.Is(err, ErrAllocation) ||
		errors.Is(err, ErrUnknownResource) ||
		errors.Is(err, ErrInvalidDescriptor)
}
