package backend

import (
	"fmt"
	"slices"
	"sync"

	"github.com/gogpu/planar/gpucore"
)

// Registered backend names.
const (
	// BackendNoop is the headless gogpu/wgpu noop HAL device (backend/native).
	BackendNoop = "noop"

	// BackendMemory is the in-memory recording device (backend/memory).
	BackendMemory = "memory"
)

// Factory opens a new device instance.
// Factories are registered via Register() and called by Open().
type Factory func() (gpucore.Device, error)

var (
	registryMu sync.RWMutex
	factories  = make(map[string]Factory)

	// Priority order for Default (first registered wins).
	backendPriority = []string{BackendNoop, BackendMemory}
)

// Register registers a device factory with the given name.
// This function is typically called from init() in backend packages,
// following the database/sql driver pattern:
//
//	func init() {
//	    backend.Register(backend.BackendMemory, func() (gpucore.Device, error) {
//	        return New(), nil
//	    })
//	}
//
// Register panics if factory is nil or if a backend with the same name is
// already registered.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if factory == nil {
		panic("backend: Register factory is nil")
	}
	if _, dup := factories[name]; dup {
		panic("backend: Register called twice for " + name)
	}
	factories[name] = factory
}

// Unregister removes a backend from the registry.
// This is primarily useful for testing. Unknown names are a no-op.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(factories, name)
}

// Open creates a new device by backend name.
//
//	import _ "github.com/gogpu/planar/backend/native" // registers "noop"
//
//	dev, err := backend.Open("noop")
//
// The error for an unknown name includes a hint about forgotten imports.
func Open(name string) (gpucore.Device, error) {
	registryMu.RLock()
	factory, ok := factories[name]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("backend: unknown backend %q (forgotten import?)", name)
	}
	dev, err := factory()
	if err != nil {
		return nil, fmt.Errorf("backend: open %s: %w", name, err)
	}
	return dev, nil
}

// Default opens the highest-priority registered backend and reports its name.
func Default() (gpucore.Device, string, error) {
	for _, name := range backendPriority {
		if IsRegistered(name) {
			dev, err := Open(name)
			return dev, name, err
		}
	}
	names := Backends()
	if len(names) == 0 {
		return nil, "", fmt.Errorf("backend: no backends registered")
	}
	dev, err := Open(names[0])
	return dev, names[0], err
}

// Backends returns the sorted list of registered backend names.
func Backends() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// IsRegistered checks if a backend with the given name is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := factories[name]
	return ok
}
