// Package backend is the registry of gpucore.Device implementations.
//
// Backends register a factory from init, the way database/sql drivers do,
// and are selected by name:
//
//	import (
//	    "github.com/gogpu/planar/backend"
//	    _ "github.com/gogpu/planar/backend/native" // "noop"
//	    _ "github.com/gogpu/planar/backend/memory" // "memory"
//	)
//
//	dev, err := backend.Open(backend.BackendNoop)
//
// Default picks the first registered backend in priority order: the noop
// HAL device, then the in-memory device.
package backend
