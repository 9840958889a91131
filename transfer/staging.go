package transfer

import (
	"context"
	"errors"
	"fmt"

	"github.com/gogpu/vg/gpucore"
)

// Staging is a host-visible transfer source buffer with its memory mapped.
type Staging struct {
	Buffer gpucore.Buffer
	Memory gpucore.Memory

	// Bytes is the mapped buffer range. It is valid until Flush.
	Bytes []byte
}

// NewStaging creates a mapped host-visible buffer of size bytes.
func NewStaging(dev gpucore.Device, label string, size uint64) (*Staging, error) {
	buf, err := dev.CreateBuffer(gpucore.BufferDesc{Label: label, Size: size, Usage: gpucore.BufferTransferSrc})
	if err != nil {
		return nil, fmt.Errorf("transfer: create staging buffer: %w", err)
	}
	req := dev.BufferRequirements(buf)
	idx, ok := gpucore.FindMemoryType(dev.MemoryTypes(), req.TypeBits, gpucore.MemoryHostVisible)
	if !ok {
		buf.Destroy()
		return nil, fmt.Errorf("%w: staging needs host-visible memory", ErrNoMemoryType)
	}
	mem, err := dev.AllocateMemory(req.Size, idx)
	if err != nil {
		buf.Destroy()
		return nil, fmt.Errorf("transfer: allocate staging memory: %w", err)
	}
	if err := dev.BindBufferMemory(buf, mem, 0); err != nil {
		buf.Destroy()
		mem.Free()
		return nil, fmt.Errorf("transfer: bind staging memory: %w", err)
	}
	p, err := mem.Map()
	if err != nil {
		buf.Destroy()
		mem.Free()
		return nil, fmt.Errorf("transfer: map staging memory: %w", err)
	}
	return &Staging{Buffer: buf, Memory: mem, Bytes: p[:size]}, nil
}

// Flush unmaps the memory, making host writes visible to the device.
func (s *Staging) Flush() {
	if s.Bytes != nil {
		s.Memory.Unmap()
		s.Bytes = nil
	}
}

// Destroy releases the buffer and its memory.
func (s *Staging) Destroy() {
	if s == nil {
		return
	}
	s.Flush()
	s.Buffer.Destroy()
	s.Memory.Free()
}

// Submit records a command buffer for family with record, submits it and
// waits for its fence.
func Submit(ctx context.Context, dev gpucore.Device, family uint32, record func(gpucore.CommandBuffer) error) error {
	q, err := dev.Queue(family)
	if err != nil {
		return err
	}
	cmd, err := dev.NewCommandBuffer(family)
	if err != nil {
		return fmt.Errorf("transfer: command buffer: %w", err)
	}
	if err := record(cmd); err != nil {
		return errors.Join(err, cmd.End())
	}
	if err := cmd.End(); err != nil {
		return fmt.Errorf("transfer: record: %w", err)
	}
	fence, err := dev.CreateFence()
	if err != nil {
		return fmt.Errorf("transfer: create fence: %w", err)
	}
	defer fence.Destroy()
	if err := q.Submit([]gpucore.CommandBuffer{cmd}, fence); err != nil {
		return fmt.Errorf("transfer: submit: %w", err)
	}
	if err := fence.Wait(ctx); err != nil {
		return fmt.Errorf("transfer: wait: %w", err)
	}
	return nil
}
