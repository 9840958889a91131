// Package fontatlas builds per-frame glyph atlases on a gpucore device.
//
// A build takes a set of glyph requests. Glyphs found in the persistent
// store of earlier builds are copied from device memory; the others are
// rendered on a worker pool into a shared staging buffer. All glyphs are
// packed into a new single-channel image, and every glyph gets four anchor
// records (one per quad corner) holding its image-space position and
// normalized texture coordinates.
//
// Glyphs marked persistent are also appended to the persistent store, so
// the next build copies them instead of rendering them again.
package fontatlas
