// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package host implements gpucore.Device in host memory.
//
// Memory allocations are byte slices, copies execute at submit time and
// every barrier is checked against the tracked image layout and queue
// family owner. The device keeps a log of executed commands, which makes it
// the reference backend for tests of the transfer, atlas and mesh passes.
package host

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/vg"
	"github.com/gogpu/vg/backend"
	"github.com/gogpu/vg/gpucore"
)

func init() {
	backend.Register(backend.BackendHost, func() (gpucore.Device, error) {
		return New(DefaultConfig()), nil
	})
}

// Op names a device operation for failure injection.
type Op string

// Injectable operations.
const (
	OpCreateBuffer  Op = "CreateBuffer"
	OpCreateImage   Op = "CreateImage"
	OpAllocate      Op = "AllocateMemory"
	OpBind          Op = "Bind"
	OpMap           Op = "Map"
	OpCommandBuffer Op = "NewCommandBuffer"
	OpCreateFence   Op = "CreateFence"
	OpSubmit        Op = "Submit"
)

// ErrInjected is the default error returned by Config.FailOn.
var ErrInjected = errors.New("host: injected failure")

// Config describes the simulated device.
type Config struct {
	Families    []gpucore.QueueFamily
	MemoryTypes []gpucore.MemoryType
	Limits      gpucore.Limits

	// DedicatedThreshold makes objects of at least this many bytes prefer
	// a dedicated allocation. Zero disables dedicated allocations.
	DedicatedThreshold uint64

	// MemoryBudget bounds the sum of live allocations. Zero is unlimited.
	MemoryBudget uint64

	// Fail is consulted before every injectable operation; a non-nil
	// result fails the operation.
	Fail func(Op) error
}

// DefaultConfig returns a device with one universal queue family, a
// device-local and a host-visible memory type.
func DefaultConfig() Config {
	return Config{
		Families: []gpucore.QueueFamily{
			{Index: 0, Flags: gpucore.QueueGraphics | gpucore.QueueCompute | gpucore.QueueTransfer},
		},
		MemoryTypes: []gpucore.MemoryType{
			{Properties: gpucore.MemoryDeviceLocal},
			{Properties: gpucore.MemoryHostVisible | gpucore.MemoryHostCoherent},
		},
		Limits: gpucore.DefaultLimits(),
	}
}

// SplitQueuesConfig returns DefaultConfig with a graphics-only family 0
// and a transfer-only family 1.
func SplitQueuesConfig() Config {
	c := DefaultConfig()
	c.Families = []gpucore.QueueFamily{
		{Index: 0, Flags: gpucore.QueueGraphics | gpucore.QueueCompute},
		{Index: 1, Flags: gpucore.QueueTransfer},
	}
	return c
}

// FailOn returns a Fail hook that fails op on its nth invocation, counting
// from 1, and every later one when sticky is set.
func FailOn(op Op, nth int, sticky bool) func(Op) error {
	var mu sync.Mutex
	n := 0
	return func(o Op) error {
		if o != op {
			return nil
		}
		mu.Lock()
		defer mu.Unlock()
		n++
		if n == nth || (sticky && n > nth) {
			return fmt.Errorf("%w: %s #%d", ErrInjected, op, n)
		}
		return nil
	}
}

// Counts is the number of live objects of each kind.
type Counts struct {
	Buffers, Images, Memories, Fences int
	MemoryBytes                       uint64
}

// Device is a host-memory gpucore.Device. It is safe for concurrent use.
type Device struct {
	cfg Config

	mu     sync.Mutex
	queues map[uint32]*Queue
	live   Counts
	log    []Event
	lost   bool

	// exec serializes submissions and guards object state.
	exec sync.Mutex
}

var _ gpucore.Device = (*Device)(nil)

// New creates a device.
func New(cfg Config) *Device {
	if len(cfg.Families) == 0 {
		cfg.Families = DefaultConfig().Families
	}
	if len(cfg.MemoryTypes) == 0 {
		cfg.MemoryTypes = DefaultConfig().MemoryTypes
	}
	if cfg.Limits == (gpucore.Limits{}) {
		cfg.Limits = gpucore.DefaultLimits()
	}
	d := &Device{cfg: cfg, queues: make(map[uint32]*Queue)}
	for _, f := range cfg.Families {
		d.queues[f.Index] = &Queue{dev: d, family: f.Index}
	}
	return d
}

func (d *Device) fail(op Op) error {
	if d.cfg.Fail == nil {
		return nil
	}
	return d.cfg.Fail(op)
}

// QueueFamilies implements gpucore.Device.
func (d *Device) QueueFamilies() []gpucore.QueueFamily { return d.cfg.Families }

// MemoryTypes implements gpucore.Device.
func (d *Device) MemoryTypes() []gpucore.MemoryType { return d.cfg.MemoryTypes }

// Limits implements gpucore.Device.
func (d *Device) Limits() gpucore.Limits { return d.cfg.Limits }

// Queue implements gpucore.Device.
func (d *Device) Queue(family uint32) (gpucore.Queue, error) {
	q, ok := d.queues[family]
	if !ok {
		return nil, fmt.Errorf("%w: %d", gpucore.ErrNoQueue, family)
	}
	return q, nil
}

// Live returns the number of live objects.
func (d *Device) Live() Counts {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.live
}

// Log returns a copy of the executed command log.
func (d *Device) Log() []Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Event(nil), d.log...)
}

// ResetLog clears the command log.
func (d *Device) ResetLog() {
	d.mu.Lock()
	d.log = d.log[:0]
	d.mu.Unlock()
}

// Lose marks the device lost; later submissions fail with
// gpucore.ErrDeviceLost.
func (d *Device) Lose() {
	d.mu.Lock()
	d.lost = true
	d.mu.Unlock()
}

func (d *Device) allTypes() uint32 { return 1<<uint(len(d.cfg.MemoryTypes)) - 1 }

// CreateBuffer implements gpucore.Device.
func (d *Device) CreateBuffer(desc gpucore.BufferDesc) (gpucore.Buffer, error) {
	if err := d.fail(OpCreateBuffer); err != nil {
		return nil, err
	}
	if desc.Size == 0 {
		return nil, fmt.Errorf("host: buffer %q: zero size", desc.Label)
	}
	d.mu.Lock()
	d.live.Buffers++
	d.mu.Unlock()
	return &Buffer{dev: d, desc: desc, owner: noOwner}, nil
}

// CreateImage implements gpucore.Device.
func (d *Device) CreateImage(desc gpucore.ImageDesc) (gpucore.Image, error) {
	if err := d.fail(OpCreateImage); err != nil {
		return nil, err
	}
	if gpucore.TexelSize(desc.Format) == 0 {
		return nil, fmt.Errorf("host: image %q: unsupported format %v", desc.Label, desc.Format)
	}
	e := desc.Extent
	limit := d.cfg.Limits.MaxImageDimension2D
	if e.Width == 0 || e.Height == 0 || e.Width > limit || e.Height > limit {
		return nil, fmt.Errorf("host: image %q: invalid extent %dx%d", desc.Label, e.Width, e.Height)
	}
	if desc.ArrayLayers == 0 {
		desc.ArrayLayers = 1
	}
	d.mu.Lock()
	d.live.Images++
	d.mu.Unlock()
	return &Image{dev: d, desc: desc, owner: noOwner}, nil
}

// BufferRequirements implements gpucore.Device.
func (d *Device) BufferRequirements(b gpucore.Buffer) gpucore.MemoryRequirements {
	size := gpucore.AlignUp(b.Desc().Size, 4)
	return gpucore.MemoryRequirements{
		Size:             size,
		Alignment:        16,
		TypeBits:         d.allTypes(),
		PrefersDedicated: d.cfg.DedicatedThreshold > 0 && size >= d.cfg.DedicatedThreshold,
	}
}

// ImageRequirements implements gpucore.Device.
func (d *Device) ImageRequirements(i gpucore.Image) gpucore.MemoryRequirements {
	desc := i.Desc()
	size := imageBytes(desc)
	align := uint64(256)
	if desc.Tiling == gpucore.TilingLinear {
		align = 64
	}
	return gpucore.MemoryRequirements{
		Size:             gpucore.AlignUp(size, align),
		Alignment:        align,
		TypeBits:         d.allTypes(),
		PrefersDedicated: d.cfg.DedicatedThreshold > 0 && size >= d.cfg.DedicatedThreshold,
	}
}

func imageBytes(desc gpucore.ImageDesc) uint64 {
	layers := uint64(max(desc.ArrayLayers, 1))
	return uint64(desc.Extent.Width) * uint64(desc.Extent.Height) * layers * uint64(gpucore.TexelSize(desc.Format))
}

// AllocateMemory implements gpucore.Device.
func (d *Device) AllocateMemory(size uint64, typeIndex int) (gpucore.Memory, error) {
	if err := d.fail(OpAllocate); err != nil {
		return nil, err
	}
	if typeIndex < 0 || typeIndex >= len(d.cfg.MemoryTypes) {
		return nil, fmt.Errorf("host: invalid memory type %d", typeIndex)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cfg.MemoryBudget > 0 && d.live.MemoryBytes+size > d.cfg.MemoryBudget {
		return nil, fmt.Errorf("%w: %d bytes requested, %d of %d in use",
			gpucore.ErrOutOfDeviceMemory, size, d.live.MemoryBytes, d.cfg.MemoryBudget)
	}
	d.live.Memories++
	d.live.MemoryBytes += size
	return &Memory{dev: d, data: make([]byte, size), typeIndex: typeIndex}, nil
}

// BindBufferMemory implements gpucore.Device.
func (d *Device) BindBufferMemory(b gpucore.Buffer, m gpucore.Memory, offset uint64) error {
	if err := d.fail(OpBind); err != nil {
		return err
	}
	hb, hm := b.(*Buffer), m.(*Memory)
	if hb.mem != nil {
		return fmt.Errorf("host: buffer %q already bound", hb.desc.Label)
	}
	if offset+hb.desc.Size > uint64(len(hm.data)) {
		return fmt.Errorf("host: buffer %q does not fit memory at offset %d", hb.desc.Label, offset)
	}
	hb.mem, hb.offset = hm, offset
	return nil
}

// BindImageMemory implements gpucore.Device.
func (d *Device) BindImageMemory(i gpucore.Image, m gpucore.Memory, offset uint64) error {
	if err := d.fail(OpBind); err != nil {
		return err
	}
	hi, hm := i.(*Image), m.(*Memory)
	if hi.mem != nil {
		return fmt.Errorf("host: image %q already bound", hi.desc.Label)
	}
	if offset+imageBytes(hi.desc) > uint64(len(hm.data)) {
		return fmt.Errorf("host: image %q does not fit memory at offset %d", hi.desc.Label, offset)
	}
	hi.mem, hi.offset = hm, offset
	return nil
}

// NewCommandBuffer implements gpucore.Device.
func (d *Device) NewCommandBuffer(family uint32) (gpucore.CommandBuffer, error) {
	if err := d.fail(OpCommandBuffer); err != nil {
		return nil, err
	}
	if _, ok := d.queues[family]; !ok {
		return nil, fmt.Errorf("%w: %d", gpucore.ErrNoQueue, family)
	}
	return &CommandBuffer{dev: d, family: family}, nil
}

// CreateFence implements gpucore.Device.
func (d *Device) CreateFence() (gpucore.Fence, error) {
	if err := d.fail(OpCreateFence); err != nil {
		return nil, err
	}
	d.mu.Lock()
	d.live.Fences++
	d.mu.Unlock()
	return &Fence{dev: d, done: make(chan struct{})}, nil
}

func (d *Device) record(e Event) {
	d.mu.Lock()
	d.log = append(d.log, e)
	d.mu.Unlock()
	vg.Logger().Debug("host: executed", "event", e.String())
}
