package gpucore

import (
	"fmt"
	"sync"

	"github.com/gogpu/vg"
)

// Stage is a bitmask of pipeline stages.
type Stage uint32

// Pipeline stages.
const (
	StageTopOfPipe Stage = 1 << iota
	StageHost
	StageTransfer
	StageVertexInput
	StageVertexShader
	StageFragmentShader
	StageColorOutput
	StageBottomOfPipe
	StageAllCommands
)

// Access is a bitmask of memory accesses.
type Access uint32

// Accesses.
const (
	AccessHostWrite Access = 1 << iota
	AccessTransferRead
	AccessTransferWrite
	AccessVertexRead
	AccessIndexRead
	AccessShaderRead
	AccessColorWrite
)

// ImageBarrier is a layout transition and/or queue-family ownership
// transfer of an image.
type ImageBarrier struct {
	Image                Image
	OldLayout, NewLayout ImageLayout
	SrcFamily, DstFamily uint32
	SrcAccess, DstAccess Access
}

// OwnershipTransfer reports whether the barrier moves the image between
// queue families.
func (b ImageBarrier) OwnershipTransfer() bool {
	return b.SrcFamily != b.DstFamily && b.SrcFamily != FamilyIgnored && b.DstFamily != FamilyIgnored
}

// BufferBarrier is a queue-family ownership transfer or memory dependency
// on a buffer range. Size zero means the whole buffer.
type BufferBarrier struct {
	Buffer               Buffer
	Offset, Size         uint64
	SrcFamily, DstFamily uint32
	SrcAccess, DstAccess Access
}

// OwnershipTransfer reports whether the barrier moves the buffer between
// queue families.
func (b BufferBarrier) OwnershipTransfer() bool {
	return b.SrcFamily != b.DstFamily && b.SrcFamily != FamilyIgnored && b.DstFamily != FamilyIgnored
}

// PendingBarrier is a queue-family release recorded on an object by the
// pass that produced it. The consuming pass acquires it exactly once by
// recording the matching barrier on its own queue.
type PendingBarrier struct {
	SrcFamily, DstFamily uint32

	// OldLayout and NewLayout are the layouts of the release; ignored for
	// buffers.
	OldLayout, NewLayout ImageLayout

	DstAccess Access
	DstStage  Stage
}

// ImageAcquire returns the acquire half of the transfer for img.
func (p PendingBarrier) ImageAcquire(img Image) ImageBarrier {
	return ImageBarrier{
		Image:     img,
		OldLayout: p.OldLayout,
		NewLayout: p.NewLayout,
		SrcFamily: p.SrcFamily,
		DstFamily: p.DstFamily,
		DstAccess: p.DstAccess,
	}
}

// BufferAcquire returns the acquire half of the transfer for buf.
func (p PendingBarrier) BufferAcquire(buf Buffer) BufferBarrier {
	return BufferBarrier{
		Buffer:    buf,
		SrcFamily: p.SrcFamily,
		DstFamily: p.DstFamily,
		DstAccess: p.DstAccess,
	}
}

// PendingSlot stores at most one PendingBarrier. Backends embed it in their
// buffer and image types to implement the pending part of Object.
type PendingSlot struct {
	mu  sync.Mutex
	p   PendingBarrier
	set bool
}

// SetPending implements Object.
func (s *PendingSlot) SetPending(p PendingBarrier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.set {
		vg.Logger().Error("gpucore: pending barrier already set",
			"src", s.p.SrcFamily, "dst", s.p.DstFamily)
		panic("gpucore: pending barrier already set")
	}
	s.p, s.set = p, true
}

// HasPending implements Object.
func (s *PendingSlot) HasPending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.set
}

// Pending implements Object.
func (s *PendingSlot) Pending() (PendingBarrier, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.p, s.set
}

// AcquirePending implements Object.
func (s *PendingSlot) AcquirePending() PendingBarrier {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.set {
		vg.Logger().Error("gpucore: acquire without pending release")
		panic("gpucore: acquire without pending release")
	}
	p := s.p
	s.p, s.set = PendingBarrier{}, false
	return p
}

// RecordAcquires consumes the pending releases of the given objects and
// records the matching acquire barriers on cmd. Objects without a pending
// release are skipped. It fails when a release targets another family; in
// that case no release is consumed.
func RecordAcquires(cmd CommandBuffer, dstStage Stage, images []Image, buffers []Buffer) error {
	var imgs []Image
	for _, img := range images {
		if img == nil {
			continue
		}
		if p, ok := img.Pending(); ok {
			if p.DstFamily != cmd.Family() {
				return fmt.Errorf("gpucore: %s released to family %d, acquired on %d", img.Label(), p.DstFamily, cmd.Family())
			}
			imgs = append(imgs, img)
		}
	}
	var bufs []Buffer
	for _, buf := range buffers {
		if buf == nil {
			continue
		}
		if p, ok := buf.Pending(); ok {
			if p.DstFamily != cmd.Family() {
				return fmt.Errorf("gpucore: %s released to family %d, acquired on %d", buf.Label(), p.DstFamily, cmd.Family())
			}
			bufs = append(bufs, buf)
		}
	}
	if len(imgs) == 0 && len(bufs) == 0 {
		return nil
	}

	ib := make([]ImageBarrier, 0, len(imgs))
	for _, img := range imgs {
		ib = append(ib, img.AcquirePending().ImageAcquire(img))
	}
	bb := make([]BufferBarrier, 0, len(bufs))
	for _, buf := range bufs {
		bb = append(bb, buf.AcquirePending().BufferAcquire(buf))
	}
	cmd.PipelineBarrier(StageTopOfPipe, dstStage, bb, ib)
	return nil
}
