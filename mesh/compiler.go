package mesh

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/vg"
	"github.com/gogpu/vg/gpucore"
	"github.com/gogpu/vg/transfer"
)

// ErrClosed is reported for passes interrupted by Close.
var ErrClosed = errors.New("mesh: closed")

// Config configures a Compiler.
type Config struct {
	// Library provides meshes that are not yet resident. Keys it does not
	// know are skipped.
	Library Library

	// ConsumerFamily is the queue family that reads the consolidated
	// buffers. When it differs from the orchestrator's family the buffers
	// are released to it and the acquire is left pending on them.
	// FamilyIgnored keeps them on the transfer family.
	ConsumerFamily uint32
}

// Compiler uploads meshes on demand and keeps one device copy of each
// mesh used by any of its attachments.
type Compiler struct {
	orch *transfer.Orchestrator
	cfg  Config

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	resident map[Key]*resident
}

// resident is the device copy of one mesh, shared by every set that
// holds it.
type resident struct {
	res      *transfer.Result
	vertices uint32
	indices  uint32
	refs     int
}

// NewCompiler creates a compiler uploading through orch.
func NewCompiler(orch *transfer.Orchestrator, cfg Config) *Compiler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Compiler{
		orch:     orch,
		cfg:      cfg,
		ctx:      ctx,
		cancel:   cancel,
		resident: make(map[Key]*resident),
	}
}

// Resident reports whether key has a device copy.
func (c *Compiler) Resident(key Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.resident[key]
	return ok
}

// Close cancels running passes and destroys every device copy. Close the
// attachments first.
func (c *Compiler) Close() {
	c.cancel()
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, r := range c.resident {
		r.res.Destroy()
		delete(c.resident, k)
	}
}

// acquire returns the device copy of key, uploading it when needed, and
// takes a reference. ok is false for keys the library does not know.
func (c *Compiler) acquire(ctx context.Context, key Key) (_ *resident, ok bool, _ error) {
	c.mu.Lock()
	if r, hit := c.resident[key]; hit {
		r.refs++
		c.mu.Unlock()
		return r, true, nil
	}
	c.mu.Unlock()

	if c.cfg.Library == nil {
		return nil, false, nil
	}
	src, found := c.cfg.Library.Mesh(key)
	if !found || src.Empty() {
		return nil, false, nil
	}
	res, err := c.orch.Upload(ctx, transfer.Descriptor{
		Label: "mesh_" + string(key),
		Buffers: []transfer.BufferSpec{
			{
				Desc: gpucore.BufferDesc{
					Label: string(key) + "_vertices",
					Size:  uint64(len(src.Vertices)) * VertexSize,
					Usage: gpucore.BufferVertex | gpucore.BufferTransferSrc,
				},
				Data: src.vertexBytes(),
			},
			{
				Desc: gpucore.BufferDesc{
					Label: string(key) + "_indices",
					Size:  uint64(len(src.Indices)) * indexSize,
					Usage: gpucore.BufferIndex | gpucore.BufferTransferSrc,
				},
				Data: src.indexBytes(),
			},
		},
		DstFamily: gpucore.FamilyIgnored,
	})
	if err != nil {
		return nil, false, fmt.Errorf("mesh: upload %q: %w", key, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if r, hit := c.resident[key]; hit {
		// Another attachment uploaded it meanwhile.
		res.Destroy()
		r.refs++
		return r, true, nil
	}
	r := &resident{res: res, vertices: uint32(len(src.Vertices)), indices: uint32(len(src.Indices)), refs: 1}
	c.resident[key] = r
	vg.Logger().Debug("mesh: resident", "key", key, "vertices", r.vertices, "indices", r.indices)
	return r, true, nil
}

// release drops one reference to each key and destroys unreferenced
// copies.
func (c *Compiler) release(keys []Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		r, ok := c.resident[k]
		if !ok {
			continue
		}
		if r.refs--; r.refs <= 0 {
			r.res.Destroy()
			delete(c.resident, k)
		}
	}
}

// compile builds the set that results from applying req to base.
func (c *Compiler) compile(ctx context.Context, label string, base []Key, req Request) (_ *MeshSet, err error) {
	keys := req.apply(base)

	var held []Key
	defer func() {
		if err != nil {
			c.release(held)
		}
	}()
	set := &MeshSet{}
	sources := make([]*resident, 0, len(keys))
	var vertices, indices uint32
	for _, k := range keys {
		r, ok, err := c.acquire(ctx, k)
		if err != nil {
			return nil, err
		}
		if !ok {
			vg.Logger().Debug("mesh: unknown mesh skipped", "attachment", label, "key", k)
			continue
		}
		held = append(held, k)
		sources = append(sources, r)
		set.Entries = append(set.Entries, Entry{
			Key:          k,
			IndexOffset:  indices,
			IndexCount:   r.indices,
			VertexOffset: vertices,
			VertexCount:  r.vertices,
		})
		vertices += r.vertices
		indices += r.indices
	}
	if len(set.Entries) == 0 {
		return set, nil
	}

	res, err := c.orch.Allocate(transfer.Descriptor{
		Label: label,
		Buffers: []transfer.BufferSpec{
			{Desc: gpucore.BufferDesc{Label: label + "_vertices", Size: uint64(vertices) * VertexSize, Usage: gpucore.BufferVertex}},
			{Desc: gpucore.BufferDesc{Label: label + "_indices", Size: uint64(indices) * indexSize, Usage: gpucore.BufferIndex}},
		},
		DstFamily: gpucore.FamilyIgnored,
	})
	if err != nil {
		return nil, err
	}
	set.res, set.Vertex, set.Index = res, res.Buffers[0], res.Buffers[1]

	err = transfer.Submit(ctx, c.orch.Device(), c.orch.Family(), func(cmd gpucore.CommandBuffer) error {
		c.record(cmd, set, sources)
		return nil
	})
	if err != nil {
		set.release()
		return nil, err
	}
	return set, nil
}

// record copies every source into the set's buffers and releases them to
// the consumer family when it differs.
func (c *Compiler) record(cmd gpucore.CommandBuffer, set *MeshSet, sources []*resident) {
	for i, e := range set.Entries {
		src := sources[i].res
		cmd.CopyBuffer(src.Buffers[0], set.Vertex, gpucore.BufferCopy{
			DstOffset: uint64(e.VertexOffset) * VertexSize,
			Size:      uint64(e.VertexCount) * VertexSize,
		})
		cmd.CopyBuffer(src.Buffers[1], set.Index, gpucore.BufferCopy{
			DstOffset: uint64(e.IndexOffset) * indexSize,
			Size:      uint64(e.IndexCount) * indexSize,
		})
	}

	fam, dst := c.orch.Family(), c.cfg.ConsumerFamily
	if dst == gpucore.FamilyIgnored || dst == fam {
		return
	}
	var barriers []gpucore.BufferBarrier
	for _, b := range []struct {
		buf    gpucore.Buffer
		access gpucore.Access
	}{{set.Vertex, gpucore.AccessVertexRead}, {set.Index, gpucore.AccessIndexRead}} {
		barriers = append(barriers, gpucore.BufferBarrier{
			Buffer:    b.buf,
			SrcFamily: fam,
			DstFamily: dst,
			SrcAccess: gpucore.AccessTransferWrite,
			DstAccess: b.access,
		})
		b.buf.SetPending(gpucore.PendingBarrier{
			SrcFamily: fam,
			DstFamily: dst,
			DstAccess: b.access,
			DstStage:  gpucore.StageVertexInput,
		})
	}
	cmd.PipelineBarrier(gpucore.StageTransfer, gpucore.StageBottomOfPipe, barriers, nil)
}
