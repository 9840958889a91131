package backend

import (
	"errors"

	"github.com/gogpu/vg/gpucore"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not
	// registered or cannot open a device.
	ErrBackendNotAvailable = errors.New("backend: not available")
)

// Backend names.
const (
	// BackendHost executes transfers in host memory.
	BackendHost = "host"

	// BackendWGPU runs on a gogpu/wgpu HAL device.
	BackendWGPU = "wgpu"

	// BackendNoop is a gogpu/wgpu HAL device that discards all work.
	BackendNoop = "noop"
)

// Factory opens a new device.
type Factory func() (gpucore.Device, error)
