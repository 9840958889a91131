package transfer

import (
	"slices"

	"github.com/gogpu/vg/gpucore"
)

// class orders pooled objects inside a memory block. Optimal images come
// first so a single granularity boundary separates them from the linear
// resources.
type class uint8

const (
	classOptimal class = iota
	classLinearImage
	classBuffer
)

func (c class) linear() bool { return c != classOptimal }

// placement is one object placed in a pooled block.
type placement struct {
	index  int // position in the object list
	class  class
	req    gpucore.MemoryRequirements
	offset uint64
}

// layoutPool sorts the placements by class, keeping the original order
// inside a class, and assigns offsets that honour each alignment and the
// buffer-image granularity between linear and optimal resources. It returns
// the block size and the memory type bits every placement accepts.
func layoutPool(ps []placement, granularity uint64) (size uint64, typeBits uint32) {
	slices.SortStableFunc(ps, func(a, b placement) int { return int(a.class) - int(b.class) })
	typeBits = ^uint32(0)
	var cursor uint64
	for i := range ps {
		p := &ps[i]
		align := max(p.req.Alignment, 1)
		if i > 0 && ps[i-1].class.linear() != p.class.linear() {
			align = max(align, granularity)
		}
		p.offset = gpucore.AlignUp(cursor, align)
		cursor = p.offset + p.req.Size
		typeBits &= p.req.TypeBits
	}
	return cursor, typeBits
}
