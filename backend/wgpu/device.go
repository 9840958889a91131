//go:build !nogpu

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package wgpu

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/vg"
	"github.com/gogpu/vg/backend"
	"github.com/gogpu/vg/gpucore"
)

func init() {
	backend.Register(backend.BackendNoop, func() (gpucore.Device, error) {
		d, _, err := OpenNoop()
		return d, err
	})
}

// Memory type indices.
const (
	memDeviceLocal = 0
	memHostVisible = 1
)

// ErrNoHAL is returned when a provider does not expose HAL objects.
var ErrNoHAL = errors.New("wgpu: provider does not expose hal.Device and hal.Queue")

// Device is a gpucore.Device over a hal.Device.
type Device struct {
	dev    hal.Device
	queue  hal.Queue
	format gputypes.TextureFormat
	limits gpucore.Limits
	q      *Queue

	mu   sync.Mutex
	lost bool
}

var _ gpucore.Device = (*Device)(nil)

// New wraps an opened HAL device and its queue.
func New(dev hal.Device, queue hal.Queue) *Device {
	limits := gpucore.DefaultLimits()
	// WebGPU requires bytesPerRow of buffer-texture copies to be a
	// multiple of 256.
	limits.OptimalCopyRowPitchAlignment = 256
	limits.OptimalCopyOffsetAlignment = 4
	d := &Device{dev: dev, queue: queue, limits: limits, format: gputypes.TextureFormatBGRA8Unorm}
	d.q = &Queue{dev: d}
	return d
}

// NewFromProvider wraps the device shared by a host application. The
// provider must implement HalDevice() any and HalQueue() any returning
// hal.Device and hal.Queue.
func NewFromProvider(provider gpucontext.DeviceProvider) (*Device, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, ErrNoHAL
	}
	dev, ok := hp.HalDevice().(hal.Device)
	if !ok || dev == nil {
		return nil, fmt.Errorf("%w: HalDevice is %T", ErrNoHAL, hp.HalDevice())
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is %T", ErrNoHAL, hp.HalQueue())
	}
	d := New(dev, queue)
	if f := provider.SurfaceFormat(); f != gputypes.TextureFormatUndefined {
		d.format = f
	}
	vg.Logger().Info("wgpu: using provider device", "surface_format", d.format)
	return d, nil
}

// OpenNoop opens a device on the noop HAL. The returned function destroys
// the device and its instance.
func OpenNoop() (*Device, func(), error) {
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		return nil, nil, fmt.Errorf("wgpu: noop instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, nil, fmt.Errorf("%w: noop has no adapter", backend.ErrBackendNotAvailable)
	}
	open, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, nil, fmt.Errorf("wgpu: open noop adapter: %w", err)
	}
	closeFn := func() {
		open.Device.Destroy()
		instance.Destroy()
	}
	return New(open.Device, open.Queue), closeFn, nil
}

// HAL returns the wrapped device and queue.
func (d *Device) HAL() (hal.Device, hal.Queue) { return d.dev, d.queue }

// SurfaceFormat returns the presentation format of the provider, or
// BGRA8Unorm for devices without one.
func (d *Device) SurfaceFormat() gputypes.TextureFormat { return d.format }

// QueueFamilies implements gpucore.Device.
func (d *Device) QueueFamilies() []gpucore.QueueFamily {
	return []gpucore.QueueFamily{{Index: 0, Flags: gpucore.QueueGraphics | gpucore.QueueCompute | gpucore.QueueTransfer}}
}

// MemoryTypes implements gpucore.Device.
func (d *Device) MemoryTypes() []gpucore.MemoryType {
	return []gpucore.MemoryType{
		memDeviceLocal: {Properties: gpucore.MemoryDeviceLocal},
		memHostVisible: {Properties: gpucore.MemoryHostVisible | gpucore.MemoryHostCoherent},
	}
}

// Limits implements gpucore.Device.
func (d *Device) Limits() gpucore.Limits { return d.limits }

// Queue implements gpucore.Device.
func (d *Device) Queue(family uint32) (gpucore.Queue, error) {
	if family != 0 {
		return nil, fmt.Errorf("%w: %d", gpucore.ErrNoQueue, family)
	}
	return d.q, nil
}

// CreateBuffer implements gpucore.Device. The HAL buffer is created
// immediately; binding only records the placement.
func (d *Device) CreateBuffer(desc gpucore.BufferDesc) (gpucore.Buffer, error) {
	raw, err := d.dev.CreateBuffer(&hal.BufferDescriptor{
		Label: desc.Label,
		Size:  gpucore.AlignUp(desc.Size, 4),
		Usage: bufferUsage(desc.Usage),
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create buffer %q: %w", desc.Label, err)
	}
	return &Buffer{dev: d, desc: desc, raw: raw}, nil
}

// CreateImage implements gpucore.Device.
func (d *Device) CreateImage(desc gpucore.ImageDesc) (gpucore.Image, error) {
	if desc.ArrayLayers == 0 {
		desc.ArrayLayers = 1
	}
	if desc.Tiling == gpucore.TilingLinear {
		return nil, fmt.Errorf("%w: image %q: linear tiling", gpucore.ErrInvalidUsage, desc.Label)
	}
	raw, err := d.dev.CreateTexture(&hal.TextureDescriptor{
		Label:         desc.Label,
		Size:          hal.Extent3D{Width: desc.Extent.Width, Height: desc.Extent.Height, DepthOrArrayLayers: desc.ArrayLayers},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        desc.Format,
		Usage:         textureUsage(desc.Usage),
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create image %q: %w", desc.Label, err)
	}
	return &Image{dev: d, desc: desc, raw: raw}, nil
}

// BufferRequirements implements gpucore.Device.
func (d *Device) BufferRequirements(b gpucore.Buffer) gpucore.MemoryRequirements {
	return gpucore.MemoryRequirements{
		Size:      gpucore.AlignUp(b.Desc().Size, 4),
		Alignment: 4,
		TypeBits:  1<<memDeviceLocal | 1<<memHostVisible,
	}
}

// ImageRequirements implements gpucore.Device. Textures own their storage,
// so every image asks for its own allocation.
func (d *Device) ImageRequirements(i gpucore.Image) gpucore.MemoryRequirements {
	desc := i.Desc()
	size := uint64(desc.Extent.Width) * uint64(desc.Extent.Height) * uint64(desc.ArrayLayers) * uint64(gpucore.TexelSize(desc.Format))
	return gpucore.MemoryRequirements{
		Size:              gpucore.AlignUp(size, 256),
		Alignment:         256,
		TypeBits:          1 << memDeviceLocal,
		RequiresDedicated: true,
	}
}

// AllocateMemory implements gpucore.Device.
func (d *Device) AllocateMemory(size uint64, typeIndex int) (gpucore.Memory, error) {
	switch typeIndex {
	case memDeviceLocal:
		return &Memory{dev: d, size: size, typeIndex: typeIndex}, nil
	case memHostVisible:
		return &Memory{dev: d, size: size, typeIndex: typeIndex, shadow: make([]byte, size)}, nil
	}
	return nil, fmt.Errorf("wgpu: invalid memory type %d", typeIndex)
}

// BindBufferMemory implements gpucore.Device.
func (d *Device) BindBufferMemory(b gpucore.Buffer, m gpucore.Memory, offset uint64) error {
	wb, wm := b.(*Buffer), m.(*Memory)
	if offset+wb.desc.Size > wm.size {
		return fmt.Errorf("wgpu: buffer %q does not fit memory at offset %d", wb.desc.Label, offset)
	}
	wb.mem, wb.offset = wm, offset
	if wm.shadow != nil {
		wm.mu.Lock()
		wm.bound = append(wm.bound, wb)
		wm.mu.Unlock()
	}
	return nil
}

// BindImageMemory implements gpucore.Device.
func (d *Device) BindImageMemory(i gpucore.Image, m gpucore.Memory, offset uint64) error {
	wi, wm := i.(*Image), m.(*Memory)
	if wm.typeIndex != memDeviceLocal {
		return fmt.Errorf("%w: image %q bound to host-visible memory", gpucore.ErrInvalidUsage, wi.desc.Label)
	}
	wi.mem = wm
	return nil
}

// NewCommandBuffer implements gpucore.Device.
func (d *Device) NewCommandBuffer(family uint32) (gpucore.CommandBuffer, error) {
	if family != 0 {
		return nil, fmt.Errorf("%w: %d", gpucore.ErrNoQueue, family)
	}
	enc, err := d.dev.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "vg_commands"})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create command encoder: %w", err)
	}
	if err := enc.BeginEncoding("vg_commands"); err != nil {
		return nil, fmt.Errorf("wgpu: begin encoding: %w", err)
	}
	return &CommandBuffer{dev: d, enc: enc}, nil
}

// CreateFence implements gpucore.Device.
func (d *Device) CreateFence() (gpucore.Fence, error) {
	raw, err := d.dev.CreateFence()
	if err != nil {
		return nil, fmt.Errorf("wgpu: create fence: %w", err)
	}
	return &Fence{dev: d, raw: raw}, nil
}

func (d *Device) markLost(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.lost {
		vg.Logger().Error("wgpu: device lost", "err", err)
	}
	d.lost = true
}

func (d *Device) isLost() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lost
}

func bufferUsage(u gpucore.BufferUsage) gputypes.BufferUsage {
	var r gputypes.BufferUsage
	if u&gpucore.BufferTransferSrc != 0 {
		r |= gputypes.BufferUsageCopySrc
	}
	if u&gpucore.BufferTransferDst != 0 {
		r |= gputypes.BufferUsageCopyDst
	}
	if u&gpucore.BufferVertex != 0 {
		r |= gputypes.BufferUsageVertex
	}
	if u&gpucore.BufferIndex != 0 {
		r |= gputypes.BufferUsageIndex
	}
	if u&gpucore.BufferUniform != 0 {
		r |= gputypes.BufferUsageUniform
	}
	if u&gpucore.BufferStorage != 0 {
		r |= gputypes.BufferUsageStorage
	}
	// Host-visible shadows are flushed with WriteBuffer.
	return r | gputypes.BufferUsageCopyDst
}

func textureUsage(u gpucore.ImageUsage) gputypes.TextureUsage {
	var r gputypes.TextureUsage
	if u&gpucore.ImageTransferSrc != 0 {
		r |= gputypes.TextureUsageCopySrc
	}
	if u&gpucore.ImageTransferDst != 0 {
		r |= gputypes.TextureUsageCopyDst
	}
	if u&(gpucore.ImageSampled|gpucore.ImageStorage) != 0 {
		r |= gputypes.TextureUsageTextureBinding
	}
	if u&gpucore.ImageColorAttachment != 0 {
		r |= gputypes.TextureUsageRenderAttachment
	}
	return r
}

// layoutUsage returns the texture usage a layout stands for.
func layoutUsage(l gpucore.ImageLayout) gputypes.TextureUsage {
	switch l {
	case gpucore.LayoutTransferDst, gpucore.LayoutGeneral:
		return gputypes.TextureUsageCopyDst
	case gpucore.LayoutTransferSrc:
		return gputypes.TextureUsageCopySrc
	case gpucore.LayoutShaderReadOnly:
		return gputypes.TextureUsageTextureBinding
	case gpucore.LayoutColorAttachment, gpucore.LayoutPresentSrc:
		return gputypes.TextureUsageRenderAttachment
	}
	return 0
}
