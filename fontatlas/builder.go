package fontatlas

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/vg"
	"github.com/gogpu/vg/gpucore"
	"github.com/gogpu/vg/internal/parallel"
	"github.com/gogpu/vg/text"
	"github.com/gogpu/vg/transfer"
)

// Builder errors.
var (
	// ErrStagingFull is returned when the rendered glyphs exceed
	// Config.StagingLimit.
	ErrStagingFull = errors.New("fontatlas: staging buffer full")

	// ErrClosed is returned by Build after Close.
	ErrClosed = errors.New("fontatlas: builder closed")
)

// DefaultPadding is the gap between glyphs when Config.Padding is zero.
const DefaultPadding = 1

// Config configures a Builder.
type Config struct {
	// Fonts maps font ids to renderers. Requests for other fonts are
	// skipped.
	Fonts map[FontID]text.GlyphRenderer

	// Workers is the size of the rendering pool. Zero means GOMAXPROCS.
	Workers int

	// ConsumerFamily is the queue family that samples the atlas. When it
	// differs from the orchestrator's family the image is released to it
	// and the acquire is left pending on the image. FamilyIgnored keeps the
	// image on the transfer family.
	ConsumerFamily uint32

	// Padding is the gap between glyphs in texels. Zero selects
	// DefaultPadding.
	Padding uint32

	// StagingLimit caps the staging buffer in bytes. Zero means no cap.
	StagingLimit uint64
}

// Builder builds atlases one at a time and keeps the persistent glyph
// store between builds. It is safe for concurrent use; builds are
// serialized.
type Builder struct {
	orch *transfer.Orchestrator
	cfg  Config
	pool *parallel.Pool

	mu         sync.Mutex
	current    *Atlas
	persistent *Persistent
	generation uint64
	closed     bool
}

// New creates a builder uploading through orch.
func New(orch *transfer.Orchestrator, cfg Config) *Builder {
	if cfg.Padding == 0 {
		cfg.Padding = DefaultPadding
	}
	return &Builder{
		orch: orch,
		cfg:  cfg,
		pool: parallel.New(cfg.Workers),
	}
}

// Current returns the last published atlas, or nil.
func (b *Builder) Current() *Atlas {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

// Persistent returns the persistent glyph store, or nil before the first
// build.
func (b *Builder) Persistent() *Persistent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.persistent
}

// Build renders the missing glyphs of reqs, packs every requested glyph
// into a new atlas and publishes it. The previously published atlas is
// destroyed. On failure the previous atlas and store stay current.
func (b *Builder) Build(ctx context.Context, reqs []Request) (*Atlas, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}
	a, err := b.build(ctx, reqs)
	if err != nil {
		vg.Logger().Warn("fontatlas: build failed", "requests", len(reqs), "err", err)
		return nil, err
	}
	prev := b.current
	if prev != nil && prev.Extent != a.Extent {
		vg.Logger().Info("fontatlas: atlas resized",
			"from", fmt.Sprintf("%dx%d", prev.Extent.Width, prev.Extent.Height),
			"to", fmt.Sprintf("%dx%d", a.Extent.Width, a.Extent.Height))
	}
	b.generation = a.Generation
	b.current = a
	b.persistent = a.Persistent
	prev.Destroy()
	return a, nil
}

// BuildAsync runs Build in a new goroutine and reports to done.
func (b *Builder) BuildAsync(ctx context.Context, reqs []Request, done func(*Atlas, error)) {
	go func() {
		a, err := b.Build(ctx, reqs)
		if done != nil {
			done(a, err)
		}
	}()
}

// Close destroys the current atlas and the persistent store and stops the
// rendering pool.
func (b *Builder) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	b.current.Destroy()
	b.persistent.Destroy()
	b.current, b.persistent = nil, nil
	b.pool.Close()
}

// glyphJob is a glyph rendered in this build.
type glyphJob struct {
	id         ObjectID
	char       rune
	renderer   text.GlyphRenderer
	persistent bool

	img    *text.GlyphImage
	skip   bool
	pitch  uint32 // staging row pitch in texels
	size   uint64 // reserved staging bytes
	offset uint64 // staging offset
}

func (j *glyphJob) sized() bool { return !j.skip && j.size > 0 }

// stagingCursor hands out aligned ranges of the staging buffer to
// concurrent writers.
type stagingCursor struct {
	next  atomic.Uint64
	limit uint64
}

func (c *stagingCursor) reserve(size, align uint64) (uint64, bool) {
	for {
		cur := c.next.Load()
		off := gpucore.AlignUp(cur, align)
		if off+size > c.limit {
			return 0, false
		}
		if c.next.CompareAndSwap(cur, off+size) {
			return off, true
		}
	}
}

func underlineGlyph() *text.GlyphImage {
	m := image.NewAlpha(image.Rect(0, 0, 1, 1))
	m.Pix[0] = 0xff
	return &text.GlyphImage{Mask: m, Bounds: m.Rect}
}

func (b *Builder) build(ctx context.Context, reqs []Request) (_ *Atlas, err error) {
	dev := b.orch.Device()
	lim := dev.Limits()
	offAlign := max(lim.OptimalCopyOffsetAlignment, 4)
	rowAlign := max(lim.OptimalCopyRowPitchAlignment, 1)
	prev := b.persistent
	log := vg.Logger()

	// Split into cached and missing glyphs.
	var cached []ObjectID
	var missing []*glyphJob
	seen := make(map[ObjectID]*glyphJob, len(reqs))
	for _, r := range reqs {
		id := r.ID()
		if j, ok := seen[id]; ok {
			if j != nil && r.Persistent {
				j.persistent = true
			}
			continue
		}
		if _, ok := prev.Lookup(id); ok {
			seen[id] = nil
			cached = append(cached, id)
			continue
		}
		rend, ok := b.cfg.Fonts[r.Font]
		if !ok {
			log.Debug("fontatlas: unknown font", "glyph", id)
			seen[id] = nil
			continue
		}
		j := &glyphJob{id: id, char: r.Char, renderer: rend, persistent: r.Persistent}
		seen[id] = j
		missing = append(missing, j)
	}
	_, hasUnderline := prev.Lookup(UnderlineID)

	// Render on the pool and size each bitmap's staging range.
	err = b.pool.ForEach(ctx, len(missing), func(i int) error {
		j := missing[i]
		img, err := j.renderer.RenderGlyph(j.char)
		if errors.Is(err, text.ErrGlyphNotFound) {
			j.skip = true
			return nil
		}
		if err != nil {
			return fmt.Errorf("fontatlas: render %v: %w", j.id, err)
		}
		j.img = img
		j.pitch = uint32(gpucore.AlignUp(uint64(img.Width()), rowAlign))
		j.size = gpucore.AlignUp(uint64(j.pitch)*uint64(img.Height()), offAlign)
		return nil
	})
	if err != nil {
		return nil, err
	}

	var need uint64
	for _, j := range missing {
		need += j.size
	}
	if b.cfg.StagingLimit > 0 && need > b.cfg.StagingLimit {
		return nil, fmt.Errorf("%w: %d bytes needed, limit %d", ErrStagingFull, need, b.cfg.StagingLimit)
	}
	underlinePitch := uint32(gpucore.AlignUp(1, rowAlign))
	underlineSize := gpucore.AlignUp(uint64(underlinePitch), offAlign)
	capacity := need
	if !hasUnderline {
		capacity += underlineSize
	}
	if b.cfg.StagingLimit > 0 {
		capacity = min(capacity, b.cfg.StagingLimit)
	}

	var staging *transfer.Staging
	if capacity > 0 {
		staging, err = transfer.NewStaging(dev, "fontatlas_staging", capacity)
		if err != nil {
			return nil, err
		}
		defer staging.Destroy()
	}

	// Write the bitmaps through the shared cursor.
	cursor := &stagingCursor{limit: capacity}
	err = b.pool.ForEach(ctx, len(missing), func(i int) error {
		j := missing[i]
		if !j.sized() {
			return nil
		}
		off, ok := cursor.reserve(j.size, offAlign)
		if !ok {
			return fmt.Errorf("%w: %v", ErrStagingFull, j.id)
		}
		j.offset = off
		j.img.CopyTo(staging.Bytes[off:off+j.size], int(j.pitch))
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !hasUnderline {
		if off, ok := cursor.reserve(underlineSize, offAlign); ok {
			j := &glyphJob{
				id:         UnderlineID,
				persistent: true,
				img:        underlineGlyph(),
				pitch:      underlinePitch,
				size:       underlineSize,
				offset:     off,
			}
			j.img.CopyTo(staging.Bytes[off:off+underlineSize], int(underlinePitch))
			missing = append(missing, j)
		} else {
			log.Warn("fontatlas: no staging room for the underline pixel", "capacity", capacity)
		}
	}
	if staging != nil {
		staging.Flush()
	}

	// Lay out every glyph with an area.
	items := make([]packItem, 0, len(cached)+len(missing))
	for _, id := range cached {
		if e := prev.Entries[id]; e.Width > 0 && e.Height > 0 {
			items = append(items, packItem{id: id, w: e.Width, h: e.Height})
		}
	}
	for _, j := range missing {
		if j.sized() {
			items = append(items, packItem{id: j.id, w: uint32(j.img.Width()), h: uint32(j.img.Height())})
		}
	}
	width, height, err := emplace(items, b.cfg.Padding, lim.MaxImageDimension2D)
	if err != nil {
		return nil, err
	}
	placed := make(map[ObjectID]Region, len(items))
	for _, it := range items {
		placed[it.id] = it.at
	}
	ext := gpucore.Extent3D{Width: width, Height: height, Depth: 1}

	gen := b.generation + 1
	imgRes, err := b.orch.Allocate(transfer.Descriptor{
		Label: "fontatlas",
		Images: []transfer.ImageSpec{{Desc: gpucore.ImageDesc{
			Label:       fmt.Sprintf("fontatlas_%d", gen),
			Format:      gputypes.TextureFormatR8Unorm,
			Extent:      ext,
			ArrayLayers: 1,
			Usage:       gpucore.ImageSampled | gpucore.ImageTransferDst,
			Tiling:      gpucore.TilingOptimal,
		}}},
		DstFamily: gpucore.FamilyIgnored,
	})
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			imgRes.Destroy()
		}
	}()

	// Append the new persistent bitmaps to one fresh buffer.
	newIndex := len(prev.bufferList())
	added := make(map[ObjectID]Entry)
	var keep []gpucore.BufferCopy
	var keepBytes uint64
	for _, j := range missing {
		if j.skip || !j.persistent {
			continue
		}
		e := Entry{
			Buffer:  -1,
			Pitch:   j.pitch,
			Width:   uint32(j.img.Width()),
			Height:  uint32(j.img.Height()),
			Bearing: j.img.Bounds.Min,
			Advance: float32(j.img.Advance),
		}
		if j.sized() {
			e.Buffer, e.Offset = newIndex, keepBytes
			keep = append(keep, gpucore.BufferCopy{SrcOffset: j.offset, DstOffset: keepBytes, Size: j.size})
			keepBytes += j.size
		}
		added[j.id] = e
	}
	var bufRes *transfer.Result
	if keepBytes > 0 {
		bufRes, err = b.orch.Allocate(transfer.Descriptor{
			Label: "fontatlas_persistent",
			Buffers: []transfer.BufferSpec{{Desc: gpucore.BufferDesc{
				Label: fmt.Sprintf("fontatlas_persistent_%d", gen),
				Size:  keepBytes,
				Usage: gpucore.BufferTransferSrc | gpucore.BufferTransferDst,
			}}},
			DstFamily: gpucore.FamilyIgnored,
		})
		if err != nil {
			return nil, err
		}
		defer func() {
			if err != nil {
				bufRes.Destroy()
			}
		}()
	}

	img := imgRes.Images[0]
	err = transfer.Submit(ctx, dev, b.orch.Family(), func(cmd gpucore.CommandBuffer) error {
		b.record(cmd, img, staging, prev, cached, missing, placed, bufRes, keep)
		return nil
	})
	if err != nil {
		return nil, err
	}

	a := &Atlas{
		Image:      img,
		Extent:     ext,
		Generation: gen,
		Glyphs:     make(map[ObjectID]Glyph, len(cached)+len(missing)),
		Anchors:    make(map[AnchorKey]AnchorRecord, 4*(len(cached)+len(missing))),
		Persistent: prev.extend(bufRes, added),
		res:        imgRes,
	}
	for _, id := range cached {
		e := prev.Entries[id]
		a.Glyphs[id] = Glyph{Region: placed[id], Bearing: e.Bearing, Advance: e.Advance}
	}
	for _, j := range missing {
		if j.skip {
			continue
		}
		a.Glyphs[j.id] = Glyph{Region: placed[j.id], Bearing: j.img.Bounds.Min, Advance: float32(j.img.Advance)}
	}
	for id, g := range a.Glyphs {
		anchors(id, g.Region, ext, a.Anchors)
	}
	log.Debug("fontatlas: built", "generation", gen,
		"cached", len(cached), "rendered", len(missing), "persistent", a.Persistent.Len(),
		"extent", fmt.Sprintf("%dx%d", width, height))
	return a, nil
}

// record encodes the three copy groups between the layout barriers.
func (b *Builder) record(
	cmd gpucore.CommandBuffer,
	img gpucore.Image,
	staging *transfer.Staging,
	prev *Persistent,
	cached []ObjectID,
	missing []*glyphJob,
	placed map[ObjectID]Region,
	keepBuf *transfer.Result,
	keep []gpucore.BufferCopy,
) {
	ign := gpucore.FamilyIgnored
	cmd.PipelineBarrier(gpucore.StageTopOfPipe, gpucore.StageTransfer, nil, []gpucore.ImageBarrier{{
		Image:     img,
		OldLayout: gpucore.LayoutUndefined,
		NewLayout: gpucore.LayoutTransferDst,
		SrcFamily: ign,
		DstFamily: ign,
		DstAccess: gpucore.AccessTransferWrite,
	}})

	// Staging to image for every rendered glyph.
	var fresh []gpucore.BufferImageCopy
	for _, j := range missing {
		if j.sized() {
			fresh = append(fresh, imageCopy(j.offset, j.pitch, placed[j.id]))
		}
	}
	if len(fresh) > 0 {
		cmd.CopyBufferToImage(staging.Buffer, img, fresh...)
	}

	// Persistent buffers to image for every cached glyph.
	bySrc := make(map[int][]gpucore.BufferImageCopy)
	for _, id := range cached {
		e := prev.Entries[id]
		if e.Buffer < 0 {
			continue
		}
		bySrc[e.Buffer] = append(bySrc[e.Buffer], imageCopy(e.Offset, e.Pitch, placed[id]))
	}
	for i, buf := range prev.bufferList() {
		if regions := bySrc[i]; len(regions) > 0 {
			cmd.CopyBufferToImage(buf, img, regions...)
		}
	}

	// Staging to the new persistent buffer.
	if keepBuf != nil {
		cmd.CopyBuffer(staging.Buffer, keepBuf.Buffers[0], keep...)
	}

	fam := b.orch.Family()
	src, dst := ign, ign
	release := b.cfg.ConsumerFamily != ign && b.cfg.ConsumerFamily != fam
	if release {
		src, dst = fam, b.cfg.ConsumerFamily
	}
	cmd.PipelineBarrier(gpucore.StageTransfer, gpucore.StageBottomOfPipe, nil, []gpucore.ImageBarrier{{
		Image:     img,
		OldLayout: gpucore.LayoutTransferDst,
		NewLayout: gpucore.LayoutShaderReadOnly,
		SrcFamily: src,
		DstFamily: dst,
		SrcAccess: gpucore.AccessTransferWrite,
		DstAccess: gpucore.AccessShaderRead,
	}})
	if release {
		img.SetPending(gpucore.PendingBarrier{
			SrcFamily: src,
			DstFamily: dst,
			OldLayout: gpucore.LayoutTransferDst,
			NewLayout: gpucore.LayoutShaderReadOnly,
			DstAccess: gpucore.AccessShaderRead,
			DstStage:  gpucore.StageFragmentShader,
		})
	}
}

func imageCopy(offset uint64, pitch uint32, r Region) gpucore.BufferImageCopy {
	return gpucore.BufferImageCopy{
		BufferOffset: offset,
		RowLength:    pitch,
		ImageOffset:  gpucore.Offset2D{X: r.X, Y: r.Y},
		ImageExtent:  gpucore.Extent3D{Width: r.Width, Height: r.Height, Depth: 1},
	}
}
