package text

import "errors"

// Sentinel errors for text package.
var (
	// ErrEmptyFontData is returned when font data is empty.
	ErrEmptyFontData = errors.New("text: empty font data")

	// ErrInvalidSize is returned for a non-positive pixel size.
	ErrInvalidSize = errors.New("text: invalid font size")

	// ErrGlyphNotFound is returned when the font has no glyph for a rune.
	ErrGlyphNotFound = errors.New("text: glyph not found")

	// ErrUnsupportedGlyph is returned for glyphs without vector outlines,
	// such as bitmap or SVG glyphs.
	ErrUnsupportedGlyph = errors.New("text: unsupported glyph format")
)
