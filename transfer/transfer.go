package transfer

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/gogpu/vg"
	"github.com/gogpu/vg/gpucore"
)

// Errors returned by the orchestrator.
var (
	// ErrEmptyDescriptor is returned for a descriptor without objects.
	ErrEmptyDescriptor = errors.New("transfer: empty descriptor")

	// ErrPayloadSize is returned when inline data does not fit its object.
	ErrPayloadSize = errors.New("transfer: payload size mismatch")

	// ErrNoMemoryType is returned when no memory type satisfies an object.
	ErrNoMemoryType = errors.New("transfer: no suitable memory type")
)

// Producer writes the payload of one object into dst, which has exactly
// the size of the payload. Producers run concurrently.
type Producer func(dst []byte) error

// BufferSpec describes one buffer to create. Data is copied when set,
// otherwise Produce fills the buffer; with neither the buffer is only
// allocated.
type BufferSpec struct {
	Desc    gpucore.BufferDesc
	Data    []byte
	Produce Producer
}

func (s BufferSpec) hasPayload() bool { return s.Data != nil || s.Produce != nil }

// ImageSpec describes one image to create. The payload is tightly packed
// rows, layer after layer.
type ImageSpec struct {
	Desc    gpucore.ImageDesc
	Data    []byte
	Produce Producer

	// FinalLayout is the layout after the upload. Zero means
	// LayoutShaderReadOnly.
	FinalLayout gpucore.ImageLayout
}

func (s ImageSpec) hasPayload() bool { return s.Data != nil || s.Produce != nil }

func (s ImageSpec) finalLayout() gpucore.ImageLayout {
	if s.FinalLayout == gpucore.LayoutUndefined {
		return gpucore.LayoutShaderReadOnly
	}
	return s.FinalLayout
}

func (s ImageSpec) payloadSize() uint64 {
	d := s.Desc
	return uint64(d.Extent.Width) * uint64(d.Extent.Height) * uint64(max(d.ArrayLayers, 1)) * uint64(gpucore.TexelSize(d.Format))
}

// Descriptor is a set of objects uploaded together.
type Descriptor struct {
	Label   string
	Buffers []BufferSpec
	Images  []ImageSpec

	// DstFamily is the queue family that consumes the objects. When it
	// differs from the transfer family the upload ends with a release and
	// leaves the acquire pending on each object. FamilyIgnored keeps the
	// objects on the transfer family.
	DstFamily uint32
}

// Result owns the objects of a finished upload and their memory.
type Result struct {
	Label   string
	Buffers []gpucore.Buffer
	Images  []gpucore.Image

	// Family is the queue family the objects were produced on.
	Family uint32

	memory []gpucore.Memory
}

// Destroy releases the objects and their memory.
func (r *Result) Destroy() {
	if r == nil {
		return
	}
	for _, b := range r.Buffers {
		b.Destroy()
	}
	for _, i := range r.Images {
		i.Destroy()
	}
	for _, m := range r.memory {
		m.Free()
	}
	r.Buffers, r.Images, r.memory = nil, nil, nil
}

// Orchestrator uploads descriptors to device-local memory on the transfer
// queue of a device.
type Orchestrator struct {
	dev     gpucore.Device
	family  uint32
	workers int
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithFamily selects the queue family used for uploads.
func WithFamily(f uint32) Option { return func(o *Orchestrator) { o.family = f } }

// WithWorkers bounds the number of producers run concurrently.
func WithWorkers(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.workers = n
		}
	}
}

// New creates an orchestrator. It uploads on a transfer family without
// graphics support when the device has one.
func New(dev gpucore.Device, opts ...Option) (*Orchestrator, error) {
	fam, ok := gpucore.FindFamily(dev.QueueFamilies(), gpucore.QueueTransfer, gpucore.QueueGraphics)
	if !ok {
		return nil, fmt.Errorf("%w: no transfer-capable family", gpucore.ErrNoQueue)
	}
	o := &Orchestrator{dev: dev, family: fam, workers: runtime.GOMAXPROCS(0)}
	for _, opt := range opts {
		opt(o)
	}
	if _, err := dev.Queue(o.family); err != nil {
		return nil, err
	}
	return o, nil
}

// Device returns the device uploads are made on.
func (o *Orchestrator) Device() gpucore.Device { return o.dev }

// Family returns the queue family uploads are submitted to.
func (o *Orchestrator) Family() uint32 { return o.family }

// UploadAsync runs Upload in a new goroutine and reports the outcome to
// done. done is the only place the caller learns whether the objects are
// usable.
func (o *Orchestrator) UploadAsync(ctx context.Context, desc Descriptor, done func(*Result, error)) {
	go func() {
		done(o.Upload(ctx, desc))
	}()
}

// job is one object's payload bound to its destination.
type job struct {
	label   string
	data    []byte
	produce Producer
	size    uint64
}

// run writes the payload into dst, which holds size bytes.
func (j job) run(dst []byte) error {
	if j.data != nil {
		copy(dst, j.data)
		return nil
	}
	if err := j.produce(dst); err != nil {
		return fmt.Errorf("transfer: produce %q: %w", j.label, err)
	}
	return nil
}

// upload is the state of one Upload call.
type upload struct {
	o      *Orchestrator
	desc   Descriptor
	res    *Result
	bufReq []gpucore.MemoryRequirements
	imgReq []gpucore.MemoryRequirements

	// hostBuffers holds the mapped range of buffers written directly.
	hostBuffers map[int][]byte
	hostMemory  []gpucore.Memory
}

// Upload creates the objects of desc in device-local memory, writes their
// payloads and waits for the copies. On failure every object created so
// far is destroyed.
func (o *Orchestrator) Upload(ctx context.Context, desc Descriptor) (*Result, error) {
	res, err := o.upload(ctx, desc, true)
	if err != nil {
		vg.Logger().Warn("transfer: upload failed", "label", desc.Label, "err", err)
	}
	return res, err
}

// Allocate creates and binds the objects of desc without writing
// payloads. Images stay in LayoutUndefined.
func (o *Orchestrator) Allocate(desc Descriptor) (*Result, error) {
	return o.upload(context.Background(), desc, false)
}

func (o *Orchestrator) upload(ctx context.Context, desc Descriptor, transfer bool) (*Result, error) {
	if len(desc.Buffers) == 0 && len(desc.Images) == 0 {
		return nil, ErrEmptyDescriptor
	}
	if err := validate(desc); err != nil {
		return nil, err
	}
	u := &upload{
		o:           o,
		desc:        desc,
		res:         &Result{Label: desc.Label, Family: o.family},
		hostBuffers: make(map[int][]byte),
	}
	err := u.create()
	if err == nil {
		err = u.bind()
	}
	if err == nil && transfer {
		err = u.transfer(ctx)
	}
	for _, m := range u.hostMemory {
		m.Unmap()
	}
	if err != nil {
		u.res.Destroy()
		return nil, err
	}
	vg.Logger().Debug("transfer: uploaded", "label", desc.Label,
		"buffers", len(desc.Buffers), "images", len(desc.Images), "family", o.family)
	return u.res, nil
}

func validate(desc Descriptor) error {
	for _, b := range desc.Buffers {
		if b.Data != nil && uint64(len(b.Data)) > b.Desc.Size {
			return fmt.Errorf("%w: buffer %q: %d bytes into %d", ErrPayloadSize, b.Desc.Label, len(b.Data), b.Desc.Size)
		}
	}
	for _, i := range desc.Images {
		if gpucore.TexelSize(i.Desc.Format) == 0 {
			return fmt.Errorf("transfer: image %q: format %v cannot be uploaded", i.Desc.Label, i.Desc.Format)
		}
		if i.Data != nil && uint64(len(i.Data)) != i.payloadSize() {
			return fmt.Errorf("%w: image %q: %d bytes, want %d", ErrPayloadSize, i.Desc.Label, len(i.Data), i.payloadSize())
		}
	}
	return nil
}

// create makes every object with TransferDst usage forced on.
func (u *upload) create() error {
	dev := u.o.dev
	for _, s := range u.desc.Buffers {
		d := s.Desc
		d.Usage |= gpucore.BufferTransferDst
		b, err := dev.CreateBuffer(d)
		if err != nil {
			return fmt.Errorf("transfer: create buffer %q: %w", d.Label, err)
		}
		u.res.Buffers = append(u.res.Buffers, b)
		u.bufReq = append(u.bufReq, dev.BufferRequirements(b))
	}
	for _, s := range u.desc.Images {
		d := s.Desc
		d.Usage |= gpucore.ImageTransferDst
		if d.ArrayLayers == 0 {
			d.ArrayLayers = 1
		}
		i, err := dev.CreateImage(d)
		if err != nil {
			return fmt.Errorf("transfer: create image %q: %w", d.Label, err)
		}
		u.res.Images = append(u.res.Images, i)
		u.imgReq = append(u.imgReq, dev.ImageRequirements(i))
	}
	return nil
}

// bind allocates one pooled block and the dedicated allocations, binds
// every object and maps host-visible buffers for direct writes.
func (u *upload) bind() error {
	dev := u.o.dev
	types := dev.MemoryTypes()
	nb := len(u.res.Buffers)

	var pool []placement
	dedicated := func(index int, req gpucore.MemoryRequirements) error {
		idx, ok := pickType(types, req.TypeBits)
		if !ok {
			return fmt.Errorf("%w: type bits %b", ErrNoMemoryType, req.TypeBits)
		}
		m, err := dev.AllocateMemory(req.Size, idx)
		if err != nil {
			return fmt.Errorf("transfer: dedicated allocation: %w", err)
		}
		u.res.memory = append(u.res.memory, m)
		return u.bindOne(index, m, 0, types[idx])
	}
	for i, req := range u.bufReq {
		if req.Dedicated() {
			if err := dedicated(i, req); err != nil {
				return err
			}
			continue
		}
		pool = append(pool, placement{index: i, class: classBuffer, req: req})
	}
	for i, req := range u.imgReq {
		if req.Dedicated() {
			if err := dedicated(nb+i, req); err != nil {
				return err
			}
			continue
		}
		c := classOptimal
		if u.desc.Images[i].Desc.Tiling == gpucore.TilingLinear {
			c = classLinearImage
		}
		pool = append(pool, placement{index: nb + i, class: c, req: req})
	}
	if len(pool) == 0 {
		return nil
	}

	size, bits := layoutPool(pool, dev.Limits().BufferImageGranularity)
	idx, ok := pickType(types, bits)
	if !ok {
		return fmt.Errorf("%w: pooled objects share no memory type", ErrNoMemoryType)
	}
	m, err := dev.AllocateMemory(size, idx)
	if err != nil {
		return fmt.Errorf("transfer: pooled allocation of %d bytes: %w", size, err)
	}
	u.res.memory = append(u.res.memory, m)
	for _, p := range pool {
		if err := u.bindOne(p.index, m, p.offset, types[idx]); err != nil {
			return err
		}
	}
	return nil
}

// pickType prefers device-local memory and falls back to any allowed type.
func pickType(types []gpucore.MemoryType, bits uint32) (int, bool) {
	if i, ok := gpucore.FindMemoryType(types, bits, gpucore.MemoryDeviceLocal); ok {
		return i, true
	}
	return gpucore.FindMemoryType(types, bits, 0)
}

func (u *upload) bindOne(index int, m gpucore.Memory, offset uint64, t gpucore.MemoryType) error {
	dev := u.o.dev
	nb := len(u.res.Buffers)
	if index >= nb {
		img := u.res.Images[index-nb]
		if err := dev.BindImageMemory(img, m, offset); err != nil {
			return fmt.Errorf("transfer: bind image %q: %w", img.Label(), err)
		}
		return nil
	}
	buf := u.res.Buffers[index]
	if err := dev.BindBufferMemory(buf, m, offset); err != nil {
		return fmt.Errorf("transfer: bind buffer %q: %w", buf.Label(), err)
	}
	if !t.Properties.Has(gpucore.MemoryHostVisible) || !u.desc.Buffers[index].hasPayload() {
		return nil
	}
	p, err := m.Map()
	if err != nil {
		return fmt.Errorf("transfer: map buffer %q: %w", buf.Label(), err)
	}
	if !containsMemory(u.hostMemory, m) {
		u.hostMemory = append(u.hostMemory, m)
	}
	u.hostBuffers[index] = p[offset : offset+buf.Desc().Size]
	return nil
}

func containsMemory(ms []gpucore.Memory, m gpucore.Memory) bool {
	for _, x := range ms {
		if x == m {
			return true
		}
	}
	return false
}

// stagedImage is one image copied through the staging buffer.
type stagedImage struct {
	index  int
	offset uint64
	pitch  uint64 // bytes between rows in staging
	row    uint64 // payload bytes per row
}

// transfer writes the payloads and records the copies.
func (u *upload) transfer(ctx context.Context) error {
	dev := u.o.dev
	lim := dev.Limits()
	offAlign := max(lim.OptimalCopyOffsetAlignment, 4)

	// Plan the staging layout.
	var cursor uint64
	stagedBuffers := map[int]uint64{}
	for i, s := range u.desc.Buffers {
		if !s.hasPayload() {
			continue
		}
		if _, direct := u.hostBuffers[i]; direct {
			continue
		}
		cursor = gpucore.AlignUp(cursor, offAlign)
		stagedBuffers[i] = cursor
		cursor += s.Desc.Size
	}
	var images []stagedImage
	for i, s := range u.desc.Images {
		if !s.hasPayload() {
			continue
		}
		ts := uint64(gpucore.TexelSize(s.Desc.Format))
		row := uint64(s.Desc.Extent.Width) * ts
		pitch := gpucore.AlignUp(row, max(lim.OptimalCopyRowPitchAlignment, 1))
		if pitch%ts != 0 {
			pitch = gpucore.AlignUp(pitch, ts)
		}
		cursor = gpucore.AlignUp(cursor, max(offAlign, ts))
		images = append(images, stagedImage{index: i, offset: cursor, pitch: pitch, row: row})
		layers := uint64(max(s.Desc.ArrayLayers, 1))
		cursor += pitch * uint64(s.Desc.Extent.Height) * layers
	}

	var staging *Staging
	if cursor > 0 {
		var err error
		staging, err = NewStaging(dev, u.desc.Label+"_staging", cursor)
		if err != nil {
			return err
		}
		defer staging.Destroy()
	}

	// Produce every payload concurrently into its destination.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(u.o.workers)
	for i, s := range u.desc.Buffers {
		if !s.hasPayload() {
			continue
		}
		j := job{label: s.Desc.Label, data: s.Data, produce: s.Produce, size: s.Desc.Size}
		dst, direct := u.hostBuffers[i]
		if !direct {
			off := stagedBuffers[i]
			dst = staging.Bytes[off : off+s.Desc.Size]
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return j.run(dst)
		})
	}
	for _, si := range images {
		s := u.desc.Images[si.index]
		j := job{label: s.Desc.Label, data: s.Data, produce: s.Produce, size: s.payloadSize()}
		region := staging.Bytes[si.offset:]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if si.pitch == si.row {
				return j.run(region[:j.size])
			}
			tight := make([]byte, j.size)
			if err := j.run(tight); err != nil {
				return err
			}
			rows := j.size / si.row
			for r := range rows {
				copy(region[r*si.pitch:r*si.pitch+si.row], tight[r*si.row:(r+1)*si.row])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if staging == nil && !u.needsCommands() {
		return nil
	}
	if staging != nil {
		staging.Flush()
	}

	return Submit(ctx, dev, u.o.family, func(cmd gpucore.CommandBuffer) error {
		u.record(cmd, staging, stagedBuffers, images)
		return nil
	})
}

// needsCommands reports whether images need a layout transition or
// objects need a release even without staged copies.
func (u *upload) needsCommands() bool {
	return len(u.res.Images) > 0 || u.releases()
}

func (u *upload) releases() bool {
	dst := u.desc.DstFamily
	return dst != gpucore.FamilyIgnored && dst != u.o.family
}

func (u *upload) record(cmd gpucore.CommandBuffer, staging *Staging, stagedBuffers map[int]uint64, images []stagedImage) {
	fam := u.o.family
	ign := gpucore.FamilyIgnored

	var pre []gpucore.ImageBarrier
	for _, img := range u.res.Images {
		pre = append(pre, gpucore.ImageBarrier{
			Image:     img,
			OldLayout: gpucore.LayoutUndefined,
			NewLayout: gpucore.LayoutTransferDst,
			SrcFamily: ign,
			DstFamily: ign,
			DstAccess: gpucore.AccessTransferWrite,
		})
	}
	if len(pre) > 0 {
		cmd.PipelineBarrier(gpucore.StageTopOfPipe, gpucore.StageTransfer, nil, pre)
	}

	for i, off := range stagedBuffers {
		buf := u.res.Buffers[i]
		cmd.CopyBuffer(staging.Buffer, buf, gpucore.BufferCopy{SrcOffset: off, Size: buf.Desc().Size})
	}
	for _, si := range images {
		img := u.res.Images[si.index]
		d := img.Desc()
		ts := uint64(gpucore.TexelSize(d.Format))
		layerBytes := si.pitch * uint64(d.Extent.Height)
		regions := make([]gpucore.BufferImageCopy, d.ArrayLayers)
		for l := range d.ArrayLayers {
			regions[l] = gpucore.BufferImageCopy{
				BufferOffset: si.offset + uint64(l)*layerBytes,
				RowLength:    uint32(si.pitch / ts),
				ImageExtent:  gpucore.Extent3D{Width: d.Extent.Width, Height: d.Extent.Height, Depth: 1},
				ArrayLayer:   l,
			}
		}
		cmd.CopyBufferToImage(staging.Buffer, img, regions...)
	}

	src, dst := ign, ign
	release := u.releases()
	if release {
		src, dst = fam, u.desc.DstFamily
	}
	var post []gpucore.ImageBarrier
	for i, img := range u.res.Images {
		final := u.desc.Images[i].finalLayout()
		post = append(post, gpucore.ImageBarrier{
			Image:     img,
			OldLayout: gpucore.LayoutTransferDst,
			NewLayout: final,
			SrcFamily: src,
			DstFamily: dst,
			SrcAccess: gpucore.AccessTransferWrite,
			DstAccess: gpucore.AccessShaderRead,
		})
		if release {
			img.SetPending(gpucore.PendingBarrier{
				SrcFamily: src,
				DstFamily: dst,
				OldLayout: gpucore.LayoutTransferDst,
				NewLayout: final,
				DstAccess: gpucore.AccessShaderRead,
				DstStage:  gpucore.StageFragmentShader,
			})
		}
	}
	var bufPost []gpucore.BufferBarrier
	if release {
		for _, buf := range u.res.Buffers {
			bufPost = append(bufPost, gpucore.BufferBarrier{
				Buffer:    buf,
				SrcFamily: src,
				DstFamily: dst,
				SrcAccess: gpucore.AccessTransferWrite,
				DstAccess: gpucore.AccessVertexRead | gpucore.AccessIndexRead,
			})
			buf.SetPending(gpucore.PendingBarrier{
				SrcFamily: src,
				DstFamily: dst,
				DstAccess: gpucore.AccessVertexRead | gpucore.AccessIndexRead,
				DstStage:  gpucore.StageVertexInput,
			})
		}
	}
	if len(post) > 0 || len(bufPost) > 0 {
		cmd.PipelineBarrier(gpucore.StageTransfer, gpucore.StageBottomOfPipe, bufPost, post)
	}
}
