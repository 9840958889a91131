// Package backend is the registry of gpucore device implementations.
//
// Backend packages register a factory from an init function; importing the
// package is enough to make it available:
//
//	import _ "github.com/gogpu/vg/backend/host"
//
//	dev, err := backend.Open(backend.BackendHost)
//
// Default picks the best available backend: a wgpu device when one can be
// opened, then the host backend.
package backend
