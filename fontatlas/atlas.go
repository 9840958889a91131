package fontatlas

import (
	"cmp"
	"image"
	"maps"
	"slices"

	"github.com/gogpu/vg/gpucore"
	"github.com/gogpu/vg/transfer"
)

// Corner selects one corner of a glyph quad.
type Corner uint8

// Quad corners, in the order a quad emits them.
const (
	BottomLeft Corner = iota
	TopLeft
	TopRight
	BottomRight
)

func (c Corner) String() string {
	switch c {
	case BottomLeft:
		return "BottomLeft"
	case TopLeft:
		return "TopLeft"
	case TopRight:
		return "TopRight"
	case BottomRight:
		return "BottomRight"
	}
	return "Corner(?)"
}

// AnchorKey addresses one corner of one glyph in the metadata table.
type AnchorKey uint64

// KeyOf returns the anchor key of corner c of glyph id.
func KeyOf(id ObjectID, c Corner) AnchorKey { return AnchorKey(id)<<2 | AnchorKey(c&3) }

// ID returns the glyph of the key.
func (k AnchorKey) ID() ObjectID { return ObjectID(k >> 2) }

// Corner returns the corner of the key.
func (k AnchorKey) Corner() Corner { return Corner(k & 3) }

// AnchorRecord is one corner of a glyph quad. Pos is in image texels with
// Y growing downwards; UV is Pos divided by the image extent.
type AnchorRecord struct {
	Key AnchorKey
	Pos [2]float32
	UV  [2]float32
}

// Glyph is the placement and metrics of one glyph in an atlas.
type Glyph struct {
	Region Region

	// Bearing is the offset of the bitmap's top-left corner from the pen
	// position on the baseline.
	Bearing image.Point
	Advance float32
}

// Atlas is the result of one build: a sampled R8 image and its metadata.
type Atlas struct {
	Image  gpucore.Image
	Extent gpucore.Extent3D

	// Generation counts successful builds of the builder, starting at 1.
	Generation uint64

	Glyphs  map[ObjectID]Glyph
	Anchors map[AnchorKey]AnchorRecord

	// Persistent is the glyph store the next build starts from. It is
	// owned by the builder.
	Persistent *Persistent

	res *transfer.Result
}

// Glyph returns the placement of id.
func (a *Atlas) Glyph(id ObjectID) (Glyph, bool) {
	g, ok := a.Glyphs[id]
	return g, ok
}

// Anchor returns corner c of glyph id.
func (a *Atlas) Anchor(id ObjectID, c Corner) (AnchorRecord, bool) {
	r, ok := a.Anchors[KeyOf(id, c)]
	return r, ok
}

// Records returns the metadata table ordered by key.
func (a *Atlas) Records() []AnchorRecord {
	recs := slices.Collect(maps.Values(a.Anchors))
	slices.SortFunc(recs, func(x, y AnchorRecord) int { return cmp.Compare(x.Key, y.Key) })
	return recs
}

// HasUnderline reports whether the atlas holds the underline pixel.
func (a *Atlas) HasUnderline() bool {
	_, ok := a.Glyphs[UnderlineID]
	return ok
}

// Destroy releases the image. The persistent store is not affected.
func (a *Atlas) Destroy() {
	if a == nil {
		return
	}
	a.res.Destroy()
	a.res = nil
	a.Image = nil
}

// anchors fills the four corner records of region r.
func anchors(id ObjectID, r Region, ext gpucore.Extent3D, out map[AnchorKey]AnchorRecord) {
	x0, y0 := float32(r.X), float32(r.Y)
	x1, y1 := x0+float32(r.Width), y0+float32(r.Height)
	w, h := float32(ext.Width), float32(ext.Height)
	for c, p := range [4][2]float32{
		BottomLeft:  {x0, y1},
		TopLeft:     {x0, y0},
		TopRight:    {x1, y0},
		BottomRight: {x1, y1},
	} {
		k := KeyOf(id, Corner(c))
		out[k] = AnchorRecord{Key: k, Pos: p, UV: [2]float32{p[0] / w, p[1] / h}}
	}
}

// Entry locates a persistent glyph bitmap in device memory.
type Entry struct {
	// Buffer indexes Persistent.Buffers; -1 for blank glyphs, which have
	// no bitmap.
	Buffer int
	Offset uint64

	// Pitch is the distance between rows in texels.
	Pitch uint32

	Width, Height uint32
	Bearing       image.Point
	Advance       float32
}

// Persistent is the device-resident glyph store carried from build to
// build. Every build that adds glyphs appends one buffer.
type Persistent struct {
	Buffers []gpucore.Buffer
	Entries map[ObjectID]Entry

	results []*transfer.Result
}

// Lookup returns the entry of id.
func (p *Persistent) Lookup(id ObjectID) (Entry, bool) {
	if p == nil {
		return Entry{}, false
	}
	e, ok := p.Entries[id]
	return e, ok
}

// Len returns the number of stored glyphs.
func (p *Persistent) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Entries)
}

// extend returns a store holding p's entries plus added, with the buffer
// of res appended when res is non-nil.
func (p *Persistent) extend(res *transfer.Result, added map[ObjectID]Entry) *Persistent {
	np := &Persistent{Entries: make(map[ObjectID]Entry, p.Len()+len(added))}
	if p != nil {
		np.Buffers = slices.Clone(p.Buffers)
		np.results = slices.Clone(p.results)
		maps.Copy(np.Entries, p.Entries)
	}
	if res != nil {
		np.Buffers = append(np.Buffers, res.Buffers[0])
		np.results = append(np.results, res)
	}
	maps.Copy(np.Entries, added)
	return np
}

func (p *Persistent) bufferList() []gpucore.Buffer {
	if p == nil {
		return nil
	}
	return p.Buffers
}

// Destroy releases every persistent buffer.
func (p *Persistent) Destroy() {
	if p == nil {
		return
	}
	for _, r := range p.results {
		r.Destroy()
	}
	p.results, p.Buffers = nil, nil
	clear(p.Entries)
}
