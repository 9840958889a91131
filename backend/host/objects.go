// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package host

import (
	"context"
	"fmt"
	"sync"

	"github.com/gogpu/vg/gpucore"
)

// noOwner marks an object that no queue family has used yet, or one that is
// in transit between a release and its acquire.
const noOwner = gpucore.FamilyIgnored

// transit is a released ownership transfer waiting for its acquire.
type transit struct {
	dst    uint32
	layout gpucore.ImageLayout
}

// Memory is a host allocation.
type Memory struct {
	dev       *Device
	data      []byte
	typeIndex int
	mapped    bool
	freed     sync.Once
}

var _ gpucore.Memory = (*Memory)(nil)

// Size implements gpucore.Memory.
func (m *Memory) Size() uint64 { return uint64(len(m.data)) }

// TypeIndex implements gpucore.Memory.
func (m *Memory) TypeIndex() int { return m.typeIndex }

// Map implements gpucore.Memory.
func (m *Memory) Map() ([]byte, error) {
	if err := m.dev.fail(OpMap); err != nil {
		return nil, err
	}
	if !m.dev.cfg.MemoryTypes[m.typeIndex].Properties.Has(gpucore.MemoryHostVisible) {
		return nil, fmt.Errorf("%w: memory type %d", gpucore.ErrNotHostVisible, m.typeIndex)
	}
	m.mapped = true
	return m.data, nil
}

// Unmap implements gpucore.Memory.
func (m *Memory) Unmap() { m.mapped = false }

// Free implements gpucore.Memory.
func (m *Memory) Free() {
	m.freed.Do(func() {
		m.dev.mu.Lock()
		m.dev.live.Memories--
		m.dev.live.MemoryBytes -= uint64(len(m.data))
		m.dev.mu.Unlock()
	})
}

// Buffer is a host buffer.
type Buffer struct {
	gpucore.PendingSlot

	dev    *Device
	desc   gpucore.BufferDesc
	mem    *Memory
	offset uint64

	// guarded by dev.exec
	owner   uint32
	transit *transit

	destroyed sync.Once
}

var _ gpucore.Buffer = (*Buffer)(nil)

// Label implements gpucore.Object.
func (b *Buffer) Label() string { return b.desc.Label }

// Desc implements gpucore.Buffer.
func (b *Buffer) Desc() gpucore.BufferDesc { return b.desc }

// Destroy implements gpucore.Object.
func (b *Buffer) Destroy() {
	b.destroyed.Do(func() {
		b.dev.mu.Lock()
		b.dev.live.Buffers--
		b.dev.mu.Unlock()
	})
}

// Contents returns a copy of the bytes bound to the buffer, or nil if it
// has no memory.
func (b *Buffer) Contents() []byte {
	if b.mem == nil {
		return nil
	}
	return append([]byte(nil), b.bytes()...)
}

func (b *Buffer) bytes() []byte { return b.mem.data[b.offset : b.offset+b.desc.Size] }

// Owner returns the queue family that owns the buffer. ok is false before
// the first use and while an ownership transfer is in flight.
func (b *Buffer) Owner() (family uint32, ok bool) {
	b.dev.exec.Lock()
	defer b.dev.exec.Unlock()
	return b.owner, b.owner != noOwner
}

// Image is a host image stored as tightly packed rows, layer after layer.
type Image struct {
	gpucore.PendingSlot

	dev    *Device
	desc   gpucore.ImageDesc
	mem    *Memory
	offset uint64

	// guarded by dev.exec
	layout  gpucore.ImageLayout
	owner   uint32
	transit *transit

	destroyed sync.Once
}

var _ gpucore.Image = (*Image)(nil)

// Label implements gpucore.Object.
func (i *Image) Label() string { return i.desc.Label }

// Desc implements gpucore.Image.
func (i *Image) Desc() gpucore.ImageDesc { return i.desc }

// Destroy implements gpucore.Object.
func (i *Image) Destroy() {
	i.destroyed.Do(func() {
		i.dev.mu.Lock()
		i.dev.live.Images--
		i.dev.mu.Unlock()
	})
}

// Contents returns a copy of the texels of the image.
func (i *Image) Contents() []byte {
	if i.mem == nil {
		return nil
	}
	return append([]byte(nil), i.bytes()...)
}

// Layer returns a copy of one array layer.
func (i *Image) Layer(layer uint32) []byte {
	if i.mem == nil || layer >= i.desc.ArrayLayers {
		return nil
	}
	n := i.layerSize()
	return append([]byte(nil), i.bytes()[uint64(layer)*n:uint64(layer+1)*n]...)
}

func (i *Image) bytes() []byte { return i.mem.data[i.offset : i.offset+imageBytes(i.desc)] }

func (i *Image) layerSize() uint64 {
	return uint64(i.desc.Extent.Width) * uint64(i.desc.Extent.Height) * uint64(gpucore.TexelSize(i.desc.Format))
}

// Layout returns the current layout of the image.
func (i *Image) Layout() gpucore.ImageLayout {
	i.dev.exec.Lock()
	defer i.dev.exec.Unlock()
	return i.layout
}

// Owner returns the queue family that owns the image. ok is false before
// the first use and while an ownership transfer is in flight.
func (i *Image) Owner() (family uint32, ok bool) {
	i.dev.exec.Lock()
	defer i.dev.exec.Unlock()
	return i.owner, i.owner != noOwner
}

// Fence is signaled when the submission it was passed to has executed.
type Fence struct {
	dev       *Device
	done      chan struct{}
	signal    sync.Once
	destroyed sync.Once
}

var _ gpucore.Fence = (*Fence)(nil)

// Wait implements gpucore.Fence.
func (f *Fence) Wait(ctx context.Context) error {
	select {
	case <-f.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Signaled implements gpucore.Fence.
func (f *Fence) Signaled() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Destroy implements gpucore.Fence.
func (f *Fence) Destroy() {
	f.destroyed.Do(func() {
		f.dev.mu.Lock()
		f.dev.live.Fences--
		f.dev.mu.Unlock()
	})
}

func (f *Fence) fire() { f.signal.Do(func() { close(f.done) }) }
