package canvas

import "github.com/gogpu/vg"

// Option configures a Canvas during creation.
//
// Example:
//
//	c := canvas.New(
//		canvas.WithQuality(2),
//		canvas.WithColor(vg.RGBA(255, 255, 255, 128)),
//	)
type Option func(*options)

type options struct {
	quality    float64
	color      vg.Color
	aaWidth    float64
	delaunay   bool
	arenaLimit int
	cache      *VertexCache
}

func defaultOptions() options {
	return options{
		quality: 1,
		color:   vg.White,
		aaWidth: 1,
	}
}

// WithQuality sets the flattening quality factor. Higher values produce
// finer polylines; the tolerance at quality 1 is a quarter pixel.
// Non-positive values are ignored.
func WithQuality(q float64) Option {
	return func(o *options) {
		if q > 0 {
			o.quality = q
		}
	}
}

// WithColor sets the global color every fill and stroke color is
// multiplied by.
func WithColor(c vg.Color) Option {
	return func(o *options) {
		o.color = c
	}
}

// WithAAWidth sets the width of the antialiasing rim in target pixels.
func WithAAWidth(px float64) Option {
	return func(o *options) {
		if px > 0 {
			o.aaWidth = px
		}
	}
}

// WithDelaunay enables edge-flip refinement of fill triangulations.
func WithDelaunay(on bool) Option {
	return func(o *options) {
		o.delaunay = on
	}
}

// WithArenaLimit caps the number of mesh elements a single path may use
// during tessellation. Paths over the limit draw nothing. Zero means no
// limit.
func WithArenaLimit(n int) Option {
	return func(o *options) {
		o.arenaLimit = max(n, 0)
	}
}

// WithCache makes the canvas look up and store per-path vertex data in c.
// Only draw entries with a non-zero cache id are cached.
func WithCache(c *VertexCache) Option {
	return func(o *options) {
		o.cache = c
	}
}
