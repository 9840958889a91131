package gpucore

import (
	"context"
	"errors"
)

// Errors shared by device implementations.
var (
	// ErrOutOfDeviceMemory is returned when an allocation cannot be served.
	ErrOutOfDeviceMemory = errors.New("gpucore: out of device memory")

	// ErrNotHostVisible is returned when mapping device-only memory.
	ErrNotHostVisible = errors.New("gpucore: memory is not host visible")

	// ErrNoQueue is returned for an unknown queue family.
	ErrNoQueue = errors.New("gpucore: no queue for family")

	// ErrDeviceLost is returned once a device can no longer execute work.
	ErrDeviceLost = errors.New("gpucore: device lost")

	// ErrInvalidUsage is returned for operations the object was not
	// created for, such as copying into a buffer without BufferTransferDst.
	ErrInvalidUsage = errors.New("gpucore: invalid usage")
)

// Object is the part common to buffers and images: a label, explicit
// destruction and a slot for one pending queue-family release.
type Object interface {
	Label() string
	Destroy()

	// SetPending records a release barrier the next consumer must
	// acquire. It panics if one is already pending.
	SetPending(PendingBarrier)

	// HasPending reports whether a release is waiting to be acquired.
	HasPending() bool

	// Pending returns the waiting release without consuming it.
	Pending() (PendingBarrier, bool)

	// AcquirePending consumes the pending release. It panics when nothing
	// is pending, which covers acquiring twice.
	AcquirePending() PendingBarrier
}

// Buffer is a linear device buffer.
type Buffer interface {
	Object
	Desc() BufferDesc
}

// Image is a 2D image, possibly layered.
type Image interface {
	Object
	Desc() ImageDesc
}

// Memory is a device memory allocation.
type Memory interface {
	Size() uint64
	TypeIndex() int

	// Map returns the whole allocation for host access. It fails with
	// ErrNotHostVisible for device-only memory.
	Map() ([]byte, error)

	// Unmap ends host access and makes host writes visible to the device.
	Unmap()

	Free()
}

// CommandBuffer records work for one queue family.
type CommandBuffer interface {
	Family() uint32
	CopyBuffer(src, dst Buffer, regions ...BufferCopy)
	CopyBufferToImage(src Buffer, dst Image, regions ...BufferImageCopy)
	PipelineBarrier(src, dst Stage, buffers []BufferBarrier, images []ImageBarrier)

	// End finishes recording. Recording errors surface here.
	End() error
}

// Fence is signaled when submitted work completes.
type Fence interface {
	Wait(ctx context.Context) error
	Signaled() bool
	Destroy()
}

// Queue executes command buffers.
type Queue interface {
	Family() uint32
	Submit(cmds []CommandBuffer, fence Fence) error
}

// Device creates objects and memory and hands out queues.
type Device interface {
	QueueFamilies() []QueueFamily
	MemoryTypes() []MemoryType
	Limits() Limits
	Queue(family uint32) (Queue, error)

	CreateBuffer(BufferDesc) (Buffer, error)
	CreateImage(ImageDesc) (Image, error)
	BufferRequirements(Buffer) MemoryRequirements
	ImageRequirements(Image) MemoryRequirements

	AllocateMemory(size uint64, typeIndex int) (Memory, error)
	BindBufferMemory(b Buffer, m Memory, offset uint64) error
	BindImageMemory(i Image, m Memory, offset uint64) error

	NewCommandBuffer(family uint32) (CommandBuffer, error)
	CreateFence() (Fence, error)
}

// FindMemoryType returns the first memory type allowed by typeBits that has
// all of the wanted properties.
func FindMemoryType(types []MemoryType, typeBits uint32, want MemoryProperty) (int, bool) {
	for i, t := range types {
		if typeBits&(1<<uint(i)) != 0 && t.Properties.Has(want) {
			return i, true
		}
	}
	return -1, false
}

// FindFamily returns the first family that has all of want and none of
// avoid, falling back to the first family that has want.
func FindFamily(families []QueueFamily, want, avoid QueueFlags) (uint32, bool) {
	fallback, found := uint32(0), false
	for _, f := range families {
		if !f.Flags.Has(want) {
			continue
		}
		if f.Flags&avoid == 0 {
			return f.Index, true
		}
		if !found {
			fallback, found = f.Index, true
		}
	}
	return fallback, found
}

// AlignUp rounds v up to a multiple of a. Zero and one leave v unchanged.
func AlignUp(v, a uint64) uint64 {
	if a <= 1 {
		return v
	}
	return (v + a - 1) / a * a
}
