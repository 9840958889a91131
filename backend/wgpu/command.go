//go:build !nogpu

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package wgpu

import (
	"context"
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/vg"
	"github.com/gogpu/vg/gpucore"
)

// CommandBuffer records into a hal.CommandEncoder.
type CommandBuffer struct {
	dev *Device
	enc hal.CommandEncoder
	raw hal.CommandBuffer
	err error
}

var _ gpucore.CommandBuffer = (*CommandBuffer)(nil)

// Family implements gpucore.CommandBuffer.
func (c *CommandBuffer) Family() uint32 { return 0 }

// CopyBuffer implements gpucore.CommandBuffer.
func (c *CommandBuffer) CopyBuffer(src, dst gpucore.Buffer, regions ...gpucore.BufferCopy) {
	if c.enc == nil {
		c.fail(errors.New("wgpu: recording into an ended command buffer"))
		return
	}
	r := make([]hal.BufferCopy, len(regions))
	for i, g := range regions {
		r[i] = hal.BufferCopy{SrcOffset: g.SrcOffset, DstOffset: g.DstOffset, Size: g.Size}
	}
	c.enc.CopyBufferToBuffer(src.(*Buffer).raw, dst.(*Buffer).raw, r)
}

// CopyBufferToImage implements gpucore.CommandBuffer. Row lengths are
// converted to byte pitches; they must honour the 256-byte row alignment
// reported by Limits.
func (c *CommandBuffer) CopyBufferToImage(src gpucore.Buffer, dst gpucore.Image, regions ...gpucore.BufferImageCopy) {
	if c.enc == nil {
		c.fail(errors.New("wgpu: recording into an ended command buffer"))
		return
	}
	img := dst.(*Image)
	ts := gpucore.TexelSize(img.desc.Format)
	r := make([]hal.BufferTextureCopy, len(regions))
	for i, g := range regions {
		rowLength := g.RowLength
		if rowLength == 0 {
			rowLength = g.ImageExtent.Width
		}
		r[i] = hal.BufferTextureCopy{
			BufferLayout: hal.ImageDataLayout{
				Offset:       g.BufferOffset,
				BytesPerRow:  rowLength * ts,
				RowsPerImage: g.ImageExtent.Height,
			},
			TextureBase: hal.ImageCopyTexture{
				Texture:  img.raw,
				MipLevel: 0,
				Origin:   hal.Origin3D{X: g.ImageOffset.X, Y: g.ImageOffset.Y, Z: g.ArrayLayer},
				Aspect:   gputypes.TextureAspectAll,
			},
			Size: hal.Extent3D{Width: g.ImageExtent.Width, Height: g.ImageExtent.Height, DepthOrArrayLayers: 1},
		}
	}
	c.enc.CopyBufferToTexture(src.(*Buffer).raw, img.raw, r)
}

// PipelineBarrier implements gpucore.CommandBuffer. Buffer barriers and
// queue-family transfers have no WebGPU equivalent and are dropped.
func (c *CommandBuffer) PipelineBarrier(_, _ gpucore.Stage, _ []gpucore.BufferBarrier, images []gpucore.ImageBarrier) {
	if c.enc == nil {
		c.fail(errors.New("wgpu: recording into an ended command buffer"))
		return
	}
	var tb []hal.TextureBarrier
	for _, b := range images {
		if b.OwnershipTransfer() {
			vg.Logger().Debug("wgpu: dropping queue-family transfer", "image", b.Image.Label())
			continue
		}
		if b.OldLayout == b.NewLayout {
			continue
		}
		tb = append(tb, hal.TextureBarrier{
			Texture: b.Image.(*Image).raw,
			Usage: hal.TextureUsageTransition{
				OldUsage: layoutUsage(b.OldLayout),
				NewUsage: layoutUsage(b.NewLayout),
			},
		})
	}
	if len(tb) > 0 {
		c.enc.TransitionTextures(tb)
	}
}

// End implements gpucore.CommandBuffer.
func (c *CommandBuffer) End() error {
	if c.enc == nil {
		return errors.New("wgpu: command buffer already ended")
	}
	if c.err != nil {
		c.enc.DiscardEncoding()
		c.enc = nil
		return c.err
	}
	raw, err := c.enc.EndEncoding()
	c.enc = nil
	if err != nil {
		return fmt.Errorf("wgpu: end encoding: %w", err)
	}
	c.raw = raw
	return nil
}

func (c *CommandBuffer) fail(err error) {
	if c.err == nil {
		c.err = err
	}
}

// Queue submits to the hal.Queue.
type Queue struct {
	dev *Device
}

var _ gpucore.Queue = (*Queue)(nil)

// Family implements gpucore.Queue.
func (q *Queue) Family() uint32 { return 0 }

// Submit implements gpucore.Queue. Without a fence the submission is
// waited for before returning.
func (q *Queue) Submit(cmds []gpucore.CommandBuffer, fence gpucore.Fence) error {
	d := q.dev
	if d.isLost() {
		return gpucore.ErrDeviceLost
	}
	raws := make([]hal.CommandBuffer, 0, len(cmds))
	for n, c := range cmds {
		cb, ok := c.(*CommandBuffer)
		if !ok || cb.dev != d {
			return fmt.Errorf("wgpu: command buffer %d belongs to another device", n)
		}
		if cb.raw == nil {
			return fmt.Errorf("wgpu: command buffer %d not ended or already submitted", n)
		}
		raws = append(raws, cb.raw)
		cb.raw = nil
	}

	f, _ := fence.(*Fence)
	if f == nil {
		tmp, err := d.CreateFence()
		if err != nil {
			return err
		}
		f = tmp.(*Fence)
		defer f.Destroy()
	}
	value := f.arm(raws)
	if err := d.queue.Submit(raws, f.raw, value); err != nil {
		d.markLost(err)
		return fmt.Errorf("%w: submit: %w", gpucore.ErrDeviceLost, err)
	}
	if fence == nil {
		return f.Wait(context.Background())
	}
	return nil
}
