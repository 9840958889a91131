package gpucore

import "github.com/gogpu/gputypes"

// QueueFlags describe the capabilities of a queue family.
type QueueFlags uint32

// Queue capabilities.
const (
	QueueGraphics QueueFlags = 1 << iota
	QueueCompute
	QueueTransfer
)

// Has reports whether all bits of o are set in f.
func (f QueueFlags) Has(o QueueFlags) bool { return f&o == o }

// QueueFamily describes one family of queues.
type QueueFamily struct {
	Index uint32
	Flags QueueFlags
}

// FamilyIgnored marks a barrier that does not transfer ownership.
const FamilyIgnored = ^uint32(0)

// MemoryProperty flags describe a memory type.
type MemoryProperty uint32

// Memory properties.
const (
	MemoryDeviceLocal MemoryProperty = 1 << iota
	MemoryHostVisible
	MemoryHostCoherent
)

// Has reports whether all bits of o are set in p.
func (p MemoryProperty) Has(o MemoryProperty) bool { return p&o == o }

// MemoryType is one memory type of a device.
type MemoryType struct {
	Properties MemoryProperty
}

// Limits are device limits relevant to resource placement and copies.
type Limits struct {
	// BufferImageGranularity is the page size at which linear and optimal
	// resources bound to the same memory must not alias.
	BufferImageGranularity uint64

	// OptimalCopyOffsetAlignment aligns buffer offsets of buffer-to-image
	// copies.
	OptimalCopyOffsetAlignment uint64

	// OptimalCopyRowPitchAlignment aligns the row pitch of buffer-to-image
	// copies.
	OptimalCopyRowPitchAlignment uint64

	// MaxImageDimension2D bounds the width and height of 2D images.
	MaxImageDimension2D uint32
}

// DefaultLimits returns conservative limits.
func DefaultLimits() Limits {
	return Limits{
		BufferImageGranularity:       1024,
		OptimalCopyOffsetAlignment:   4,
		OptimalCopyRowPitchAlignment: 1,
		MaxImageDimension2D:          8192,
	}
}

// BufferUsage is a bitmask of buffer uses.
type BufferUsage uint32

// Buffer usages.
const (
	BufferTransferSrc BufferUsage = 1 << iota
	BufferTransferDst
	BufferVertex
	BufferIndex
	BufferUniform
	BufferStorage
)

// ImageUsage is a bitmask of image uses.
type ImageUsage uint32

// Image usages.
const (
	ImageTransferSrc ImageUsage = 1 << iota
	ImageTransferDst
	ImageSampled
	ImageStorage
	ImageColorAttachment
)

// ImageTiling selects the memory arrangement of an image.
type ImageTiling uint8

// Tilings.
const (
	TilingOptimal ImageTiling = iota
	TilingLinear
)

func (t ImageTiling) String() string {
	if t == TilingLinear {
		return "Linear"
	}
	return "Optimal"
}

// ImageLayout is the layout an image is in for a particular use.
type ImageLayout uint8

// Image layouts.
const (
	LayoutUndefined ImageLayout = iota
	LayoutGeneral
	LayoutTransferDst
	LayoutTransferSrc
	LayoutShaderReadOnly
	LayoutColorAttachment
	LayoutPresentSrc
)

var layoutNames = [...]string{"Undefined", "General", "TransferDst", "TransferSrc", "ShaderReadOnly", "ColorAttachment", "PresentSrc"}

func (l ImageLayout) String() string {
	if int(l) < len(layoutNames) {
		return layoutNames[l]
	}
	return "Unknown"
}

// Extent3D is the size of an image or copy region in texels.
type Extent3D struct {
	Width, Height, Depth uint32
}

// Offset2D is a texel offset inside an image.
type Offset2D struct {
	X, Y uint32
}

// BufferDesc describes a buffer.
type BufferDesc struct {
	Label string
	Size  uint64
	Usage BufferUsage
}

// ImageDesc describes a 2D image.
type ImageDesc struct {
	Label       string
	Format      gputypes.TextureFormat
	Extent      Extent3D
	ArrayLayers uint32
	Usage       ImageUsage
	Tiling      ImageTiling
}

// MemoryRequirements are the placement constraints of an object.
type MemoryRequirements struct {
	Size      uint64
	Alignment uint64

	// TypeBits has bit i set when memory type i can back the object.
	TypeBits uint32

	PrefersDedicated  bool
	RequiresDedicated bool
}

// Dedicated reports whether the object should get its own allocation.
func (r MemoryRequirements) Dedicated() bool {
	return r.PrefersDedicated || r.RequiresDedicated
}

// BufferCopy is one buffer-to-buffer copy region.
type BufferCopy struct {
	SrcOffset, DstOffset, Size uint64
}

// BufferImageCopy is one buffer-to-image copy region. The source rows are
// RowLength texels apart; zero means tightly packed.
type BufferImageCopy struct {
	BufferOffset uint64
	RowLength    uint32
	ImageOffset  Offset2D
	ImageExtent  Extent3D
	ArrayLayer   uint32
}

// TexelSize returns the size of one texel of f in bytes, or 0 for formats
// that cannot be copied texel by texel.
func TexelSize(f gputypes.TextureFormat) uint32 {
	switch f {
	case gputypes.TextureFormatR8Unorm:
		return 1
	case gputypes.TextureFormatRGBA8Unorm, gputypes.TextureFormatBGRA8Unorm:
		return 4
	}
	return 0
}
