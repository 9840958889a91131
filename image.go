package vg

import (
	"maps"
	"slices"
	"strconv"
	"weak"
)

// DrawEntry is one element of an image draw list.
type DrawEntry struct {
	PathID string
	// CacheID lets renderers reuse tessellated output across snapshots.
	// Zero disables caching for the entry.
	CacheID   uint64
	Transform Mat4
}

// imageTables is the part of an image shared with snapshots.
type imageTables struct {
	paths map[string]*Path
	ids   []string // insertion order
	draw  []DrawEntry
}

func (t *imageTables) clone() *imageTables {
	return &imageTables{
		paths: maps.Clone(t.paths),
		ids:   slices.Clone(t.ids),
		draw:  slices.Clone(t.draw),
	}
}

// Image is an ordered collection of paths drawn with per-entry transforms.
//
// PopData returns an immutable snapshot that shares storage with the image.
// The next mutation clones the shared tables once and each path the first
// time it is touched, so snapshots never observe later edits.
//
// An Image is not safe for concurrent mutation; snapshots may be read from
// any goroutine.
type Image struct {
	size             Size
	viewBox          Rect
	viewBoxTransform Mat4

	tables *imageTables
	shared bool            // tables referenced by a snapshot
	owned  map[string]bool // paths cloned since the last snapshot

	nextID     uint64
	generation uint64
	dirty      bool
	snapshot   *ImageData
}

// NewImage creates an empty image with a view box covering its size.
func NewImage(width, height float64) *Image {
	img := &Image{
		size: Size{Width: width, Height: height},
		tables: &imageTables{
			paths: make(map[string]*Path),
		},
		owned: make(map[string]bool),
		dirty: true,
	}
	img.setViewBox(Rect{Width: width, Height: height})
	return img
}

// Size returns the logical image size in pixels.
func (img *Image) Size() Size { return img.size }

// SetSize changes the logical image size.
func (img *Image) SetSize(s Size) {
	img.size = s
	img.touch()
}

// ViewBox returns the view box.
func (img *Image) ViewBox() Rect { return img.viewBox }

// SetViewBox sets the view box and resets the view-box transform to map the
// box origin to the content origin.
func (img *Image) SetViewBox(r Rect) {
	img.setViewBox(r)
	img.touch()
}

func (img *Image) setViewBox(r Rect) {
	img.viewBox = r
	img.viewBoxTransform = Translate(-r.X, -r.Y)
}

// ViewBoxTransform returns the view-box-to-content transform.
func (img *Image) ViewBoxTransform() Mat4 { return img.viewBoxTransform }

// SetViewBoxTransform overrides the view-box-to-content transform.
func (img *Image) SetViewBoxTransform(m Mat4) {
	img.viewBoxTransform = m
	img.touch()
}

// IsDirty reports whether the image changed since the last PopData.
func (img *Image) IsDirty() bool { return img.dirty }

// ClearDirty resets the dirty flag without taking a snapshot.
func (img *Image) ClearDirty() { img.dirty = false }

func (img *Image) touch() {
	img.dirty = true
	img.snapshot = nil
}

// writable returns tables the image may mutate, forking them off a snapshot
// if necessary.
func (img *Image) writable() *imageTables {
	if img.shared {
		img.tables = img.tables.clone()
		img.shared = false
	}
	img.touch()
	return img.tables
}

// writablePath returns a private copy of the path with the given id.
func (img *Image) writablePath(id string) *Path {
	if _, ok := img.tables.paths[id]; !ok {
		return nil
	}
	t := img.writable()
	p := t.paths[id]
	if !img.owned[id] {
		p = p.Clone()
		t.paths[id] = p
		img.owned[id] = true
	}
	return p
}

// AddPath inserts a copy of p under id and appends a draw entry for it.
// An empty id is replaced by a generated "auto-N" id. If id already exists
// its path is replaced and the draw list is left untouched.
func (img *Image) AddPath(p *Path, id string, cacheID uint64, transform Mat4) PathRef {
	t := img.writable()
	if id == "" {
		id = img.autoID(t)
	}
	if p == nil {
		p = NewPath()
	}
	if _, exists := t.paths[id]; !exists {
		t.ids = append(t.ids, id)
		t.draw = append(t.draw, DrawEntry{PathID: id, CacheID: cacheID, Transform: transform})
	}
	t.paths[id] = p.Clone()
	img.owned[id] = true
	return PathRef{id: id, img: weak.Make(img)}
}

func (img *Image) autoID(t *imageTables) string {
	for {
		img.nextID++
		id := "auto-" + strconv.FormatUint(img.nextID, 10)
		if _, taken := t.paths[id]; !taken {
			return id
		}
	}
}

// RemovePath removes the path and all of its draw entries.
// Unknown ids are ignored.
func (img *Image) RemovePath(id string) {
	if _, ok := img.tables.paths[id]; !ok {
		return
	}
	t := img.writable()
	delete(t.paths, id)
	delete(img.owned, id)
	t.ids = slices.DeleteFunc(t.ids, func(s string) bool { return s == id })
	t.draw = slices.DeleteFunc(t.draw, func(e DrawEntry) bool { return e.PathID == id })
}

// GetPath returns a handle to the path with the given id. The handle is
// invalid if no such path exists.
func (img *Image) GetPath(id string) PathRef {
	if _, ok := img.tables.paths[id]; !ok {
		return PathRef{}
	}
	return PathRef{id: id, img: weak.Make(img)}
}

// PathIDs returns path ids in insertion order.
func (img *Image) PathIDs() []string { return slices.Clone(img.tables.ids) }

// DrawOrder returns a copy of the draw list.
func (img *Image) DrawOrder() []DrawEntry { return slices.Clone(img.tables.draw) }

// SetDrawOrder replaces the draw list wholesale. Entries referencing
// unknown paths are kept; renderers skip them.
func (img *Image) SetDrawOrder(entries []DrawEntry) {
	t := img.writable()
	t.draw = slices.Clone(entries)
}

// ResetDrawOrder rebuilds the draw list from the path set in insertion
// order, with identity transforms and no cache ids.
func (img *Image) ResetDrawOrder() {
	t := img.writable()
	t.draw = make([]DrawEntry, 0, len(t.ids))
	for _, id := range t.ids {
		t.draw = append(t.draw, DrawEntry{PathID: id, Transform: Identity()})
	}
}

// PopData returns an immutable snapshot of the image and clears the dirty
// flag. Consecutive calls without intervening mutation return the same
// snapshot.
func (img *Image) PopData() *ImageData {
	img.dirty = false
	if img.snapshot != nil {
		return img.snapshot
	}
	img.generation++
	img.shared = true
	clear(img.owned)
	img.snapshot = &ImageData{
		size:             img.size,
		viewBox:          img.viewBox,
		viewBoxTransform: img.viewBoxTransform,
		tables:           img.tables,
		generation:       img.generation,
	}
	return img.snapshot
}

// Clone returns an independent deep copy of the image.
func (img *Image) Clone() *Image {
	t := img.tables.clone()
	owned := make(map[string]bool, len(t.paths))
	for id, p := range t.paths {
		t.paths[id] = p.Clone()
		owned[id] = true
	}
	return &Image{
		size:             img.size,
		viewBox:          img.viewBox,
		viewBoxTransform: img.viewBoxTransform,
		tables:           t,
		owned:            owned,
		nextID:           img.nextID,
		dirty:            true,
	}
}

// ImageData is an immutable snapshot of an Image.
type ImageData struct {
	size             Size
	viewBox          Rect
	viewBoxTransform Mat4
	tables           *imageTables
	generation       uint64
}

// Size returns the logical image size.
func (d *ImageData) Size() Size { return d.size }

// ViewBox returns the view box.
func (d *ImageData) ViewBox() Rect { return d.viewBox }

// ViewBoxTransform returns the view-box-to-content transform.
func (d *ImageData) ViewBoxTransform() Mat4 { return d.viewBoxTransform }

// Generation identifies the snapshot within its image. Later snapshots of
// the same image have larger generations.
func (d *ImageData) Generation() uint64 { return d.generation }

// Path returns the path with the given id, or nil. The path must not be
// modified.
func (d *ImageData) Path(id string) *Path { return d.tables.paths[id] }

// PathCount returns the number of paths.
func (d *ImageData) PathCount() int { return len(d.tables.paths) }

// DrawList returns the draw list. The slice must not be modified.
func (d *ImageData) DrawList() []DrawEntry { return d.tables.draw }

// Copy returns a deep copy of the snapshot.
func (d *ImageData) Copy() *ImageData {
	t := d.tables.clone()
	for id, p := range t.paths {
		t.paths[id] = p.Clone()
	}
	c := *d
	c.tables = t
	return &c
}

// Equal reports whether both snapshots describe the same image content.
// The generation is not compared.
func (d *ImageData) Equal(o *ImageData) bool {
	if d == nil || o == nil {
		return d == o
	}
	if d.size != o.size || d.viewBox != o.viewBox || d.viewBoxTransform != o.viewBoxTransform {
		return false
	}
	if !slices.Equal(d.tables.ids, o.tables.ids) || !slices.Equal(d.tables.draw, o.tables.draw) {
		return false
	}
	return maps.EqualFunc(d.tables.paths, o.tables.paths, (*Path).Equal)
}
