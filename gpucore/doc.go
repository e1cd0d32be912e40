// Package gpucore provides the device abstraction planar derives resources on.
//
// This package defines the [Device] interface, which abstracts over GPU
// backends so that the same preparation and binding code works with:
//   - gogpu/wgpu HAL devices (backend/native), including the headless noop backend
//   - the in-memory recording device used in tests (backend/memory)
//
// # Resource Management
//
// GPU resources are managed via opaque IDs ([BufferID], [TextureID],
// [BindGroupLayoutID], [BindGroupID]). The Device interface provides
// creation and destruction methods for each resource type. Devices are
// responsible for tracking the mapping between IDs and backend resources.
//
// # Descriptors
//
// Descriptors use the gogpu/gputypes vocabulary (buffer and texture usages,
// texture formats, shader stages, bind group layout entries), so layouts
// built by planar can be passed to a wgpu device unchanged.
//
// # Errors
//
// Device failures wrap [ErrAllocation]. They are fatal and never retried;
// use [IsFatal] to tell them apart from ordinary errors.
//
// # Formats
//
// [BytesPerTexel] and [SampleType] describe the uncompressed color formats
// that texture atlases can use.
package gpucore
