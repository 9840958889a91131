package backend

import (
	"fmt"
	"slices"
	"sync"

	"github.com/gogpu/vg/gpucore"
)

var (
	registryMu sync.RWMutex
	factories  = make(map[string]Factory)
	// Selection order of Default; the first backend that opens wins.
	priority = []string{BackendWGPU, BackendHost, BackendNoop}
)

// Register registers a device factory under name, replacing any previous
// registration. It is typically called from init functions of backend
// packages.
func Register(name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	factories[name] = f
}

// Unregister removes a backend. It is useful in tests.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(factories, name)
}

// Available returns the registered backend names in sorted order.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Open opens a device of the named backend.
func Open(name string) (gpucore.Device, error) {
	registryMu.RLock()
	f, ok := factories[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrBackendNotAvailable, name)
	}
	d, err := f()
	if err != nil {
		return nil, fmt.Errorf("backend %q: %w", name, err)
	}
	return d, nil
}

// Default opens the first backend in priority order that succeeds, then
// any other registered backend. It returns the device and the name of the
// backend that opened it.
func Default() (gpucore.Device, string, error) {
	tried := make(map[string]bool)
	for _, name := range append(slices.Clone(priority), Available()...) {
		if tried[name] {
			continue
		}
		tried[name] = true
		if d, err := Open(name); err == nil {
			return d, name, nil
		}
	}
	return nil, "", ErrBackendNotAvailable
}
