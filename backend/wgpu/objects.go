//go:build !nogpu

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package wgpu

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/vg/gpucore"
)

// defaultWait bounds Fence.Wait when the context has no deadline.
const defaultWait = 5 * time.Second

// Memory is an allocation record. Host-visible memory carries a shadow
// that is written to the bound buffers on Unmap.
type Memory struct {
	dev       *Device
	size      uint64
	typeIndex int
	shadow    []byte

	mu    sync.Mutex
	bound []*Buffer
}

var _ gpucore.Memory = (*Memory)(nil)

// Size implements gpucore.Memory.
func (m *Memory) Size() uint64 { return m.size }

// TypeIndex implements gpucore.Memory.
func (m *Memory) TypeIndex() int { return m.typeIndex }

// Map implements gpucore.Memory.
func (m *Memory) Map() ([]byte, error) {
	if m.shadow == nil {
		return nil, fmt.Errorf("%w: memory type %d", gpucore.ErrNotHostVisible, m.typeIndex)
	}
	return m.shadow, nil
}

// Unmap implements gpucore.Memory.
func (m *Memory) Unmap() {
	if m.shadow == nil {
		return
	}
	m.mu.Lock()
	bound := slices.Clone(m.bound)
	m.mu.Unlock()
	for _, b := range bound {
		if b.raw == nil {
			continue
		}
		// WriteBuffer sizes must be a multiple of 4.
		end := min(b.offset+gpucore.AlignUp(b.desc.Size, 4), uint64(len(m.shadow)))
		m.dev.queue.WriteBuffer(b.raw, 0, m.shadow[b.offset:end])
	}
}

// Free implements gpucore.Memory.
func (m *Memory) Free() {
	m.mu.Lock()
	m.bound = nil
	m.mu.Unlock()
	m.shadow = nil
}

func (m *Memory) unbind(b *Buffer) {
	m.mu.Lock()
	m.bound = slices.DeleteFunc(m.bound, func(x *Buffer) bool { return x == b })
	m.mu.Unlock()
}

// Buffer wraps a hal.Buffer.
type Buffer struct {
	gpucore.PendingSlot

	dev    *Device
	desc   gpucore.BufferDesc
	raw    hal.Buffer
	mem    *Memory
	offset uint64
	once   sync.Once
}

var _ gpucore.Buffer = (*Buffer)(nil)

// Label implements gpucore.Object.
func (b *Buffer) Label() string { return b.desc.Label }

// Desc implements gpucore.Buffer.
func (b *Buffer) Desc() gpucore.BufferDesc { return b.desc }

// Raw returns the HAL buffer.
func (b *Buffer) Raw() hal.Buffer { return b.raw }

// Destroy implements gpucore.Object.
func (b *Buffer) Destroy() {
	b.once.Do(func() {
		if b.mem != nil {
			b.mem.unbind(b)
		}
		b.dev.dev.DestroyBuffer(b.raw)
		b.raw = nil
	})
}

// Image wraps a hal.Texture.
type Image struct {
	gpucore.PendingSlot

	dev  *Device
	desc gpucore.ImageDesc
	raw  hal.Texture
	mem  *Memory
	once sync.Once
}

var _ gpucore.Image = (*Image)(nil)

// Label implements gpucore.Object.
func (i *Image) Label() string { return i.desc.Label }

// Desc implements gpucore.Image.
func (i *Image) Desc() gpucore.ImageDesc { return i.desc }

// Raw returns the HAL texture.
func (i *Image) Raw() hal.Texture { return i.raw }

// Destroy implements gpucore.Object.
func (i *Image) Destroy() {
	i.once.Do(func() {
		i.dev.dev.DestroyTexture(i.raw)
		i.raw = nil
	})
}

// Fence wraps a hal.Fence. Each submission signals the next value.
type Fence struct {
	dev *Device
	raw hal.Fence

	mu      sync.Mutex
	value   uint64
	done    bool
	pending []hal.CommandBuffer
}

var _ gpucore.Fence = (*Fence)(nil)

// arm prepares the fence for a submission and returns the value it will
// reach.
func (f *Fence) arm(cmds []hal.CommandBuffer) uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.value++
	f.done = false
	f.pending = append(f.pending, cmds...)
	return f.value
}

// Wait implements gpucore.Fence. The command buffers of the submission are
// freed once it completes.
func (f *Fence) Wait(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.done || f.value == 0 {
		return nil
	}
	timeout := defaultWait
	if dl, ok := ctx.Deadline(); ok {
		timeout = time.Until(dl)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	ok, err := f.dev.dev.Wait(f.raw, f.value, timeout)
	if err != nil {
		f.dev.markLost(err)
		return fmt.Errorf("%w: %w", gpucore.ErrDeviceLost, err)
	}
	if !ok {
		if err := ctx.Err(); err != nil {
			return err
		}
		return context.DeadlineExceeded
	}
	f.done = true
	for _, c := range f.pending {
		f.dev.dev.FreeCommandBuffer(c)
	}
	f.pending = nil
	return nil
}

// Signaled implements gpucore.Fence.
func (f *Fence) Signaled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.done {
		return true
	}
	ok, err := f.dev.dev.Wait(f.raw, f.value, 0)
	return err == nil && ok
}

// Destroy implements gpucore.Fence.
func (f *Fence) Destroy() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.pending {
		f.dev.dev.FreeCommandBuffer(c)
	}
	f.pending = nil
	if f.raw != nil {
		f.dev.dev.DestroyFence(f.raw)
		f.raw = nil
	}
}
