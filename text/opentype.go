package text

import (
	"fmt"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
)

// OpenTypeRenderer renders glyphs with the golang.org/x/image rasterizer.
//
// An opentype face keeps scratch state between calls, so faces are pooled
// and each render borrows one.
type OpenTypeRenderer struct {
	font *sfnt.Font
	opts opentype.FaceOptions

	faces   sync.Pool
	buffers sync.Pool
}

var _ GlyphRenderer = (*OpenTypeRenderer)(nil)

// NewOpenTypeRenderer parses TrueType or OpenType data and returns a
// renderer at the given size.
func NewOpenTypeRenderer(data []byte, size float64, opts ...Option) (*OpenTypeRenderer, error) {
	if len(data) == 0 {
		return nil, ErrEmptyFontData
	}
	if size <= 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSize, size)
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("text: parse font: %w", err)
	}
	o := buildOptions(opts)
	r := &OpenTypeRenderer{
		font: f,
		opts: opentype.FaceOptions{Size: size, DPI: o.dpi, Hinting: mapHinting(o.hinting)},
	}
	// The first face validates the options; later ones cannot fail.
	face, err := opentype.NewFace(f, &r.opts)
	if err != nil {
		return nil, fmt.Errorf("text: create face: %w", err)
	}
	r.faces.Put(face)
	r.buffers.New = func() any { return new(sfnt.Buffer) }
	return r, nil
}

// RenderGlyph implements GlyphRenderer.
func (r *OpenTypeRenderer) RenderGlyph(ch rune) (*GlyphImage, error) {
	buf := r.buffers.Get().(*sfnt.Buffer)
	idx, err := r.font.GlyphIndex(buf, ch)
	r.buffers.Put(buf)
	if err != nil {
		return nil, fmt.Errorf("text: glyph index %q: %w", ch, err)
	}
	if idx == 0 {
		return nil, fmt.Errorf("%w: %q", ErrGlyphNotFound, ch)
	}

	face, err := r.face()
	if err != nil {
		return nil, err
	}
	defer r.faces.Put(face)

	dr, mask, maskp, advance, ok := face.Glyph(fixed.Point26_6{}, ch)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrGlyphNotFound, ch)
	}
	return &GlyphImage{
		Mask:    crop(dr, mask, maskp),
		Bounds:  dr,
		Advance: float64(advance) / 64,
	}, nil
}

func (r *OpenTypeRenderer) face() (font.Face, error) {
	if f, ok := r.faces.Get().(font.Face); ok {
		return f, nil
	}
	f, err := opentype.NewFace(r.font, &r.opts)
	if err != nil {
		return nil, fmt.Errorf("text: create face: %w", err)
	}
	return f, nil
}

// mapHinting converts Hinting to font.Hinting.
func mapHinting(h Hinting) font.Hinting {
	switch h {
	case HintingVertical:
		return font.HintingVertical
	case HintingFull:
		return font.HintingFull
	default:
		return font.HintingNone
	}
}
