// Package wgpu implements gpucore.Device on top of gogpu/wgpu.
//
// The device wraps a hal.Device and hal.Queue, either opened by the caller,
// shared by a host application through gpucontext.DeviceProvider, or taken
// from the noop HAL for headless use.
//
// # Mapping
//
// WebGPU exposes a single queue and owns the memory of its resources, so the
// explicit contract is narrowed:
//
//   - QueueFamilies reports one family with every capability. Barriers that
//     move ownership between families are never produced and are dropped.
//   - Memory type 0 is device local. Binding a buffer or image to it only
//     records the placement.
//   - Memory type 1 is host visible and backed by a host shadow. Unmap
//     writes the shadow of every bound buffer with Queue.WriteBuffer.
//     Images cannot be bound to it.
//   - Image layout transitions become TransitionTextures with the usage
//     that corresponds to each layout.
//
// # Registration
//
// Importing the package registers the "noop" backend. A real adapter is
// registered under "wgpu" by the application once it has opened a device:
//
//	backend.Register(backend.BackendWGPU, func() (gpucore.Device, error) {
//		return wgpu.NewFromProvider(provider)
//	})
package wgpu
