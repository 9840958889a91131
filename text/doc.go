// Package text renders single glyphs into 8-bit coverage masks for the
// font atlas.
//
// Two renderers are provided:
//
//   - OpenTypeRenderer uses golang.org/x/image/font/opentype and its
//     built-in rasterizer.
//   - OutlineRenderer reads glyph outlines with go-text/typesetting and
//     fills them with golang.org/x/image/vector.
//
// Both are safe for concurrent use, so a single renderer can serve every
// worker of an atlas build.
//
// Font parsing, shaping and layout are left to the caller.
package text
