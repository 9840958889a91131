// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package host

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/gogpu/vg/gpucore"
)

// ErrValidation is returned by Submit when a command violates the usage,
// layout or ownership rules of the device.
var ErrValidation = errors.New("host: validation failed")

// EventKind classifies log events.
type EventKind uint8

// Event kinds.
const (
	EventCopyBuffer EventKind = iota
	EventCopyBufferToImage
	EventTransition
	EventRelease
	EventAcquire
	EventBufferBarrier
	EventSubmit
)

var eventNames = [...]string{"CopyBuffer", "CopyBufferToImage", "Transition", "Release", "Acquire", "BufferBarrier", "Submit"}

func (k EventKind) String() string {
	if int(k) < len(eventNames) {
		return eventNames[k]
	}
	return fmt.Sprintf("EventKind(%d)", k)
}

// Event is one executed command.
type Event struct {
	Kind                 EventKind
	Queue                uint32
	Object               string
	SrcFamily, DstFamily uint32
	OldLayout, NewLayout gpucore.ImageLayout
	Bytes                uint64
}

func (e Event) String() string {
	switch e.Kind {
	case EventRelease, EventAcquire:
		return fmt.Sprintf("q%d %s %s %d->%d %s->%s", e.Queue, e.Kind, e.Object, e.SrcFamily, e.DstFamily, e.OldLayout, e.NewLayout)
	case EventTransition:
		return fmt.Sprintf("q%d %s %s %s->%s", e.Queue, e.Kind, e.Object, e.OldLayout, e.NewLayout)
	}
	return fmt.Sprintf("q%d %s %s %dB", e.Queue, e.Kind, e.Object, e.Bytes)
}

type command interface {
	exec(d *Device, queue uint32) error
}

// CommandBuffer records commands that execute when submitted.
type CommandBuffer struct {
	dev       *Device
	family    uint32
	cmds      []command
	ended     bool
	err       error
	submitted atomic.Bool
}

var _ gpucore.CommandBuffer = (*CommandBuffer)(nil)

// Family implements gpucore.CommandBuffer.
func (c *CommandBuffer) Family() uint32 { return c.family }

func (c *CommandBuffer) add(cmd command) {
	if c.ended {
		if c.err == nil {
			c.err = errors.New("host: recording into an ended command buffer")
		}
		return
	}
	c.cmds = append(c.cmds, cmd)
}

// CopyBuffer implements gpucore.CommandBuffer.
func (c *CommandBuffer) CopyBuffer(src, dst gpucore.Buffer, regions ...gpucore.BufferCopy) {
	c.add(copyBuffer{src: src.(*Buffer), dst: dst.(*Buffer), regions: regions})
}

// CopyBufferToImage implements gpucore.CommandBuffer.
func (c *CommandBuffer) CopyBufferToImage(src gpucore.Buffer, dst gpucore.Image, regions ...gpucore.BufferImageCopy) {
	c.add(copyBufferToImage{src: src.(*Buffer), dst: dst.(*Image), regions: regions})
}

// PipelineBarrier implements gpucore.CommandBuffer. Stage masks are not
// checked; execution is already ordered.
func (c *CommandBuffer) PipelineBarrier(_, _ gpucore.Stage, buffers []gpucore.BufferBarrier, images []gpucore.ImageBarrier) {
	c.add(barrier{
		buffers: append([]gpucore.BufferBarrier(nil), buffers...),
		images:  append([]gpucore.ImageBarrier(nil), images...),
	})
}

// End implements gpucore.CommandBuffer.
func (c *CommandBuffer) End() error {
	if c.ended {
		return errors.New("host: command buffer already ended")
	}
	c.ended = true
	return c.err
}

// Queue executes command buffers synchronously.
type Queue struct {
	dev    *Device
	family uint32
}

var _ gpucore.Queue = (*Queue)(nil)

// Family implements gpucore.Queue.
func (q *Queue) Family() uint32 { return q.family }

// Submit implements gpucore.Queue. The commands have executed when it
// returns; fence is signaled only if all of them succeed.
func (q *Queue) Submit(cmds []gpucore.CommandBuffer, fence gpucore.Fence) error {
	d := q.dev
	if err := d.fail(OpSubmit); err != nil {
		return err
	}
	d.mu.Lock()
	lost := d.lost
	d.mu.Unlock()
	if lost {
		return gpucore.ErrDeviceLost
	}

	d.exec.Lock()
	defer d.exec.Unlock()
	for n, c := range cmds {
		cb, ok := c.(*CommandBuffer)
		if !ok || cb.dev != d {
			return fmt.Errorf("host: command buffer %d belongs to another device", n)
		}
		if cb.family != q.family {
			return fmt.Errorf("%w: command buffer for family %d submitted to queue %d", ErrValidation, cb.family, q.family)
		}
		if !cb.ended {
			return fmt.Errorf("%w: command buffer %d not ended", ErrValidation, n)
		}
		if cb.submitted.Swap(true) {
			return fmt.Errorf("%w: command buffer %d submitted twice", ErrValidation, n)
		}
		for _, cmd := range cb.cmds {
			if err := cmd.exec(d, q.family); err != nil {
				return err
			}
		}
		d.record(Event{Kind: EventSubmit, Queue: q.family, Bytes: uint64(len(cb.cmds))})
	}
	if fence != nil {
		fence.(*Fence).fire()
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrValidation}, args...)...)
}

// use claims an unowned object for queue and rejects use from any other
// family or while a transfer is in flight.
func use(label string, owner *uint32, tr *transit, queue uint32) error {
	if tr != nil {
		return invalid("%s used on family %d before acquiring its transfer to %d", label, queue, tr.dst)
	}
	if *owner == noOwner {
		*owner = queue
		return nil
	}
	if *owner != queue {
		return invalid("%s used on family %d while owned by %d", label, queue, *owner)
	}
	return nil
}

type copyBuffer struct {
	src, dst *Buffer
	regions  []gpucore.BufferCopy
}

func (c copyBuffer) exec(d *Device, queue uint32) error {
	if c.src.desc.Usage&gpucore.BufferTransferSrc == 0 {
		return invalid("%s: copy source without TransferSrc usage", c.src.desc.Label)
	}
	if c.dst.desc.Usage&gpucore.BufferTransferDst == 0 {
		return invalid("%s: copy destination without TransferDst usage", c.dst.desc.Label)
	}
	if c.src.mem == nil || c.dst.mem == nil {
		return invalid("copy %s -> %s: unbound buffer", c.src.desc.Label, c.dst.desc.Label)
	}
	if err := use(c.src.desc.Label, &c.src.owner, c.src.transit, queue); err != nil {
		return err
	}
	if err := use(c.dst.desc.Label, &c.dst.owner, c.dst.transit, queue); err != nil {
		return err
	}
	var total uint64
	for _, r := range c.regions {
		if r.SrcOffset+r.Size > c.src.desc.Size || r.DstOffset+r.Size > c.dst.desc.Size {
			return invalid("copy %s -> %s: region %+v out of range", c.src.desc.Label, c.dst.desc.Label, r)
		}
		copy(c.dst.bytes()[r.DstOffset:r.DstOffset+r.Size], c.src.bytes()[r.SrcOffset:r.SrcOffset+r.Size])
		total += r.Size
	}
	d.record(Event{Kind: EventCopyBuffer, Queue: queue, Object: c.dst.desc.Label, Bytes: total})
	return nil
}

type copyBufferToImage struct {
	src     *Buffer
	dst     *Image
	regions []gpucore.BufferImageCopy
}

func (c copyBufferToImage) exec(d *Device, queue uint32) error {
	img := c.dst
	if c.src.desc.Usage&gpucore.BufferTransferSrc == 0 {
		return invalid("%s: copy source without TransferSrc usage", c.src.desc.Label)
	}
	if img.desc.Usage&gpucore.ImageTransferDst == 0 {
		return invalid("%s: copy destination without TransferDst usage", img.desc.Label)
	}
	if c.src.mem == nil || img.mem == nil {
		return invalid("copy %s -> %s: unbound object", c.src.desc.Label, img.desc.Label)
	}
	if img.layout != gpucore.LayoutTransferDst && img.layout != gpucore.LayoutGeneral {
		return invalid("%s: copy into layout %s", img.desc.Label, img.layout)
	}
	if err := use(c.src.desc.Label, &c.src.owner, c.src.transit, queue); err != nil {
		return err
	}
	if err := use(img.desc.Label, &img.owner, img.transit, queue); err != nil {
		return err
	}

	ts := uint64(gpucore.TexelSize(img.desc.Format))
	width := uint64(img.desc.Extent.Width)
	src, dst := c.src.bytes(), img.bytes()
	var total uint64
	for _, r := range c.regions {
		e := r.ImageExtent
		if r.ArrayLayer >= img.desc.ArrayLayers ||
			r.ImageOffset.X+e.Width > img.desc.Extent.Width ||
			r.ImageOffset.Y+e.Height > img.desc.Extent.Height {
			return invalid("%s: region %+v outside the image", img.desc.Label, r)
		}
		pitch := uint64(r.RowLength)
		if pitch == 0 {
			pitch = uint64(e.Width)
		}
		pitch *= ts
		row := uint64(e.Width) * ts
		if e.Height > 0 && r.BufferOffset+uint64(e.Height-1)*pitch+row > uint64(len(src)) {
			return invalid("%s: region %+v reads past the end of %s", img.desc.Label, r, c.src.desc.Label)
		}
		base := uint64(r.ArrayLayer) * img.layerSize()
		for y := range uint64(e.Height) {
			s := r.BufferOffset + y*pitch
			o := base + ((uint64(r.ImageOffset.Y)+y)*width+uint64(r.ImageOffset.X))*ts
			copy(dst[o:o+row], src[s:s+row])
		}
		total += row * uint64(e.Height)
	}
	d.record(Event{Kind: EventCopyBufferToImage, Queue: queue, Object: img.desc.Label, Bytes: total})
	return nil
}

type barrier struct {
	buffers []gpucore.BufferBarrier
	images  []gpucore.ImageBarrier
}

func (b barrier) exec(d *Device, queue uint32) error {
	for _, ib := range b.images {
		if err := imageBarrier(d, queue, ib); err != nil {
			return err
		}
	}
	for _, bb := range b.buffers {
		if err := bufferBarrier(d, queue, bb); err != nil {
			return err
		}
	}
	return nil
}

func imageBarrier(d *Device, queue uint32, b gpucore.ImageBarrier) error {
	img := b.Image.(*Image)
	label := img.desc.Label
	ev := Event{Queue: queue, Object: label, SrcFamily: b.SrcFamily, DstFamily: b.DstFamily, OldLayout: b.OldLayout, NewLayout: b.NewLayout}

	if !b.OwnershipTransfer() {
		if err := use(label, &img.owner, img.transit, queue); err != nil {
			return err
		}
		if b.OldLayout != gpucore.LayoutUndefined && b.OldLayout != img.layout {
			return invalid("%s: transition from %s, image is in %s", label, b.OldLayout, img.layout)
		}
		img.layout = b.NewLayout
		ev.Kind = EventTransition
		d.record(ev)
		return nil
	}

	switch queue {
	case b.SrcFamily:
		if img.transit != nil {
			return invalid("%s: released twice", label)
		}
		if img.owner != noOwner && img.owner != queue {
			return invalid("%s: released by family %d while owned by %d", label, queue, img.owner)
		}
		if b.OldLayout != gpucore.LayoutUndefined && b.OldLayout != img.layout {
			return invalid("%s: release from %s, image is in %s", label, b.OldLayout, img.layout)
		}
		img.owner = noOwner
		img.layout = b.NewLayout
		img.transit = &transit{dst: b.DstFamily, layout: b.NewLayout}
		ev.Kind = EventRelease
	case b.DstFamily:
		if img.transit == nil || img.transit.dst != queue {
			return invalid("%s: acquire on family %d without a matching release", label, queue)
		}
		if img.transit.layout != b.NewLayout {
			return invalid("%s: acquire into %s, released into %s", label, b.NewLayout, img.transit.layout)
		}
		img.owner = queue
		img.transit = nil
		ev.Kind = EventAcquire
	default:
		return invalid("%s: transfer %d->%d recorded on family %d", label, b.SrcFamily, b.DstFamily, queue)
	}
	d.record(ev)
	return nil
}

func bufferBarrier(d *Device, queue uint32, b gpucore.BufferBarrier) error {
	buf := b.Buffer.(*Buffer)
	label := buf.desc.Label
	ev := Event{Kind: EventBufferBarrier, Queue: queue, Object: label, SrcFamily: b.SrcFamily, DstFamily: b.DstFamily}

	if !b.OwnershipTransfer() {
		if err := use(label, &buf.owner, buf.transit, queue); err != nil {
			return err
		}
		d.record(ev)
		return nil
	}

	switch queue {
	case b.SrcFamily:
		if buf.transit != nil {
			return invalid("%s: released twice", label)
		}
		if buf.owner != noOwner && buf.owner != queue {
			return invalid("%s: released by family %d while owned by %d", label, queue, buf.owner)
		}
		buf.owner = noOwner
		buf.transit = &transit{dst: b.DstFamily}
		ev.Kind = EventRelease
	case b.DstFamily:
		if buf.transit == nil || buf.transit.dst != queue {
			return invalid("%s: acquire on family %d without a matching release", label, queue)
		}
		buf.owner = queue
		buf.transit = nil
		ev.Kind = EventAcquire
	default:
		return invalid("%s: transfer %d->%d recorded on family %d", label, b.SrcFamily, b.DstFamily, queue)
	}
	d.record(ev)
	return nil
}
