package fontatlas

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"math/bits"
	"slices"
)

// ErrAtlasTooLarge is returned when the glyphs do not fit an image of the
// device's maximum dimension.
var ErrAtlasTooLarge = errors.New("fontatlas: glyphs exceed the maximum image size")

// Region is a rectangle of the atlas image in texels.
type Region struct {
	X, Y          uint32
	Width, Height uint32
}

// Empty reports whether the region has no area.
func (r Region) Empty() bool { return r.Width == 0 || r.Height == 0 }

func (r Region) String() string {
	return fmt.Sprintf("Region(%d,%d %dx%d)", r.X, r.Y, r.Width, r.Height)
}

// packItem is one rectangle to place.
type packItem struct {
	id   ObjectID
	w, h uint32
	at   Region
}

// shelf is a horizontal band of the shelf-packing algorithm.
type shelf struct {
	y      uint32
	height uint32
	nextX  uint32
}

// shelfPacker places rectangles left to right on shelves stacked top to
// bottom. With items sorted by descending height the first item of a
// shelf sets its height.
type shelfPacker struct {
	width, height uint32
	padding       uint32
	shelves       []shelf
}

func (p *shelfPacker) place(w, h uint32) (Region, bool) {
	if w > p.width || h > p.height {
		return Region{}, false
	}
	pw := w + p.padding
	if n := len(p.shelves); n > 0 {
		s := &p.shelves[n-1]
		if s.nextX+w <= p.width && h <= s.height {
			r := Region{X: s.nextX, Y: s.y, Width: w, Height: h}
			s.nextX += pw
			return r, true
		}
	}
	var y uint32
	if n := len(p.shelves); n > 0 {
		last := p.shelves[n-1]
		y = last.y + last.height + p.padding
	}
	if y+h > p.height {
		return Region{}, false
	}
	p.shelves = append(p.shelves, shelf{y: y, height: h, nextX: pw})
	return Region{X: 0, Y: y, Width: w, Height: h}, true
}

// sortItems orders items by height, then width, both descending. Ties are
// broken by id so layouts are reproducible.
func sortItems(items []packItem) {
	slices.SortFunc(items, func(a, b packItem) int {
		if c := cmp.Compare(b.h, a.h); c != 0 {
			return c
		}
		if c := cmp.Compare(b.w, a.w); c != 0 {
			return c
		}
		return cmp.Compare(a.id, b.id)
	})
}

// emplace sorts items and places them in the smallest power-of-two extent
// that holds them all, growing the shorter side until they fit. Items must
// have a non-zero size.
func emplace(items []packItem, padding, maxDim uint32) (width, height uint32, err error) {
	if len(items) == 0 {
		return 1, 1, nil
	}
	sortItems(items)

	var area uint64
	var maxW, maxH uint32
	for _, it := range items {
		area += uint64(it.w+padding) * uint64(it.h+padding)
		maxW, maxH = max(maxW, it.w), max(maxH, it.h)
	}
	side := nextPow2(uint32(math.Ceil(math.Sqrt(float64(area)))))
	width, height = max(side, nextPow2(maxW)), max(side, nextPow2(maxH))

	for width <= maxDim && height <= maxDim {
		if tryPack(items, width, height, padding) {
			return width, height, nil
		}
		if height < width {
			height *= 2
		} else {
			width *= 2
		}
	}
	return 0, 0, fmt.Errorf("%w: %d glyphs, limit %d", ErrAtlasTooLarge, len(items), maxDim)
}

func tryPack(items []packItem, width, height, padding uint32) bool {
	p := shelfPacker{width: width, height: height, padding: padding}
	for i := range items {
		r, ok := p.place(items[i].w, items[i].h)
		if !ok {
			return false
		}
		items[i].at = r
	}
	return true
}

func nextPow2(v uint32) uint32 {
	if v <= 1 {
		return 1
	}
	return 1 << bits.Len32(v-1)
}
