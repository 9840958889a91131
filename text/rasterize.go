package text

import (
	"image"

	"golang.org/x/image/draw"
)

// GlyphImage represents a rasterized glyph.
type GlyphImage struct {
	// Mask is the coverage mask. Its bounds start at (0, 0) and may be
	// empty for blank glyphs such as a space.
	Mask *image.Alpha

	// Bounds is the mask placement relative to the glyph origin on the
	// baseline, with Y growing downwards.
	Bounds image.Rectangle

	// Advance width in pixels.
	Advance float64
}

// Width returns the mask width in pixels.
func (g *GlyphImage) Width() int { return g.Bounds.Dx() }

// Height returns the mask height in pixels.
func (g *GlyphImage) Height() int { return g.Bounds.Dy() }

// CopyTo writes the mask rows into dst, stride bytes apart. dst must hold
// at least (Height-1)*stride+Width bytes.
func (g *GlyphImage) CopyTo(dst []byte, stride int) {
	w, h := g.Width(), g.Height()
	for y := range h {
		row := g.Mask.Pix[y*g.Mask.Stride : y*g.Mask.Stride+w]
		copy(dst[y*stride:y*stride+w], row)
	}
}

// GlyphRenderer rasterizes single runes of one font at one size.
// Implementations must be safe for concurrent use.
type GlyphRenderer interface {
	RenderGlyph(r rune) (*GlyphImage, error)
}

// Hinting selects outline hinting for OpenTypeRenderer.
type Hinting uint8

const (
	// HintingNone renders unhinted outlines.
	HintingNone Hinting = iota
	// HintingVertical snaps vertical metrics only.
	HintingVertical
	// HintingFull snaps both axes.
	HintingFull
)

// options configures a renderer.
type options struct {
	hinting Hinting
	dpi     float64
}

// Option configures a renderer.
type Option func(*options)

// WithHinting sets the hinting mode. The outline renderer ignores it.
func WithHinting(h Hinting) Option {
	return func(o *options) { o.hinting = h }
}

// WithDPI sets the resolution used to convert the point size to pixels.
// The default is 72, so the size is in pixels.
func WithDPI(dpi float64) Option {
	return func(o *options) {
		if dpi > 0 {
			o.dpi = dpi
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{hinting: HintingNone, dpi: 72}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// crop copies the part of src at sp with the size of dr into a fresh mask
// anchored at (0, 0).
func crop(dr image.Rectangle, src image.Image, sp image.Point) *image.Alpha {
	dst := image.NewAlpha(image.Rect(0, 0, dr.Dx(), dr.Dy()))
	if !dr.Empty() {
		draw.Draw(dst, dst.Bounds(), src, sp, draw.Src)
	}
	return dst
}
