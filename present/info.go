// Package present orders frame submission and presentation on a swapchain.
//
// Every frame gets a serial from the swapchain's submission counter. A
// frame presents only after its image was acquired, its render pass
// finished, every frame it depends on succeeded and every earlier frame
// has been presented or dropped. A failed frame cancels the frames that
// depend on it.
package present

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/vg/gpucore"
)

// ErrInvalidInfo reports swapchain image info a device cannot create.
var ErrInvalidInfo = errors.New("present: invalid image info")

// ImageInfo describes the images of a swapchain. Images are 2D with a
// single layer.
type ImageInfo struct {
	Format      gputypes.TextureFormat
	Width       uint32
	Height      uint32
	ArrayLayers uint32
	Usage       gpucore.ImageUsage
	Tiling      gpucore.ImageTiling
}

// NewImageInfo returns the info of optimal-tiled color-attachment images.
// transferDst adds copy-destination usage.
func NewImageInfo(format gputypes.TextureFormat, width, height uint32, transferDst bool) ImageInfo {
	usage := gpucore.ImageColorAttachment
	if transferDst {
		usage |= gpucore.ImageTransferDst
	}
	return ImageInfo{
		Format:      format,
		Width:       width,
		Height:      height,
		ArrayLayers: 1,
		Usage:       usage,
		Tiling:      gpucore.TilingOptimal,
	}
}

// Desc returns the image description of one swapchain image.
func (i ImageInfo) Desc(label string) gpucore.ImageDesc {
	return gpucore.ImageDesc{
		Label:       label,
		Format:      i.Format,
		Extent:      gpucore.Extent3D{Width: i.Width, Height: i.Height, Depth: 1},
		ArrayLayers: i.ArrayLayers,
		Usage:       i.Usage,
		Tiling:      i.Tiling,
	}
}

// Validate checks i against the device limits.
func (i ImageInfo) Validate(lim gpucore.Limits) error {
	switch {
	case i.Width == 0 || i.Height == 0:
		return fmt.Errorf("%w: empty extent %dx%d", ErrInvalidInfo, i.Width, i.Height)
	case i.Width > lim.MaxImageDimension2D || i.Height > lim.MaxImageDimension2D:
		return fmt.Errorf("%w: extent %dx%d exceeds %d", ErrInvalidInfo, i.Width, i.Height, lim.MaxImageDimension2D)
	case i.ArrayLayers != 1:
		return fmt.Errorf("%w: %d array layers", ErrInvalidInfo, i.ArrayLayers)
	case i.Usage&gpucore.ImageColorAttachment == 0:
		return fmt.Errorf("%w: usage %v lacks ColorAttachment", ErrInvalidInfo, i.Usage)
	case gpucore.TexelSize(i.Format) == 0:
		return fmt.Errorf("%w: format %v", ErrInvalidInfo, i.Format)
	}
	return nil
}
