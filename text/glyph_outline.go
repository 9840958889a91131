package text

import (
	"bytes"
	"fmt"
	"image"
	"math"

	"github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/font/opentype"
	"golang.org/x/image/vector"
)

// OutlineRenderer fills go-text glyph outlines with the x/image/vector
// rasterizer.
//
// font.Font is read-only and safe for concurrent use, unlike font.Face, so
// every render creates its own lightweight face.
type OutlineRenderer struct {
	font  *font.Font
	scale float32
}

var _ GlyphRenderer = (*OutlineRenderer)(nil)

// NewOutlineRenderer parses TrueType or OpenType data and returns a
// renderer at the given pixel size. WithHinting is ignored.
func NewOutlineRenderer(data []byte, size float64, opts ...Option) (*OutlineRenderer, error) {
	if len(data) == 0 {
		return nil, ErrEmptyFontData
	}
	if size <= 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSize, size)
	}
	face, err := font.ParseTTF(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("text: parse font: %w", err)
	}
	o := buildOptions(opts)
	px := size * o.dpi / 72
	return &OutlineRenderer{
		font:  face.Font,
		scale: float32(px) / float32(face.Upem()),
	}, nil
}

// RenderGlyph implements GlyphRenderer.
func (r *OutlineRenderer) RenderGlyph(ch rune) (*GlyphImage, error) {
	face := font.NewFace(r.font)
	gid, ok := face.Cmap.Lookup(ch)
	if !ok || gid == 0 {
		return nil, fmt.Errorf("%w: %q", ErrGlyphNotFound, ch)
	}
	outline, ok := face.GlyphData(gid).(font.GlyphOutline)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedGlyph, ch)
	}
	advance := float64(face.HorizontalAdvance(gid) * r.scale)

	bounds := r.bounds(outline.Segments)
	mask := image.NewAlpha(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	if !bounds.Empty() {
		r.fill(mask, outline.Segments, bounds.Min)
	}
	return &GlyphImage{Mask: mask, Bounds: bounds, Advance: advance}, nil
}

// point scales a font-unit point to pixels with Y pointing down.
func (r *OutlineRenderer) point(p opentype.SegmentPoint) (float32, float32) {
	return p.X * r.scale, -p.Y * r.scale
}

// bounds returns the pixel box of the outline control points.
func (r *OutlineRenderer) bounds(segs []opentype.Segment) image.Rectangle {
	if len(segs) == 0 {
		return image.Rectangle{}
	}
	minX, minY := float32(math.MaxFloat32), float32(math.MaxFloat32)
	maxX, maxY := -minX, -minY
	for _, s := range segs {
		for _, p := range s.Args[:argCount(s.Op)] {
			x, y := r.point(p)
			minX, maxX = min(minX, x), max(maxX, x)
			minY, maxY = min(minY, y), max(maxY, y)
		}
	}
	return image.Rect(
		int(math.Floor(float64(minX))), int(math.Floor(float64(minY))),
		int(math.Ceil(float64(maxX))), int(math.Ceil(float64(maxY))),
	)
}

func (r *OutlineRenderer) fill(mask *image.Alpha, segs []opentype.Segment, origin image.Point) {
	ox, oy := float32(origin.X), float32(origin.Y)
	at := func(p opentype.SegmentPoint) (float32, float32) {
		x, y := r.point(p)
		return x - ox, y - oy
	}

	z := vector.NewRasterizer(mask.Rect.Dx(), mask.Rect.Dy())
	open := false
	for _, s := range segs {
		switch s.Op {
		case opentype.SegmentOpMoveTo:
			if open {
				z.ClosePath()
			}
			z.MoveTo(at(s.Args[0]))
			open = true
		case opentype.SegmentOpLineTo:
			z.LineTo(at(s.Args[0]))
		case opentype.SegmentOpQuadTo:
			bx, by := at(s.Args[0])
			cx, cy := at(s.Args[1])
			z.QuadTo(bx, by, cx, cy)
		case opentype.SegmentOpCubeTo:
			bx, by := at(s.Args[0])
			cx, cy := at(s.Args[1])
			dx, dy := at(s.Args[2])
			z.CubeTo(bx, by, cx, cy, dx, dy)
		}
	}
	if open {
		z.ClosePath()
	}
	z.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})
}

func argCount(op opentype.SegmentOp) int {
	switch op {
	case opentype.SegmentOpQuadTo:
		return 2
	case opentype.SegmentOpCubeTo:
		return 3
	default:
		return 1
	}
}
