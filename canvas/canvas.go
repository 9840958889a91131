// Package canvas turns image snapshots into GPU vertex data.
//
// A Canvas walks the draw list of a vg.ImageData, flattens every path,
// tessellates fills and stroke outlines and returns one Output per draw
// entry:
//
//	c := canvas.New(canvas.WithQuality(1))
//	outs, err := c.Draw(img.PopData(), vg.Size{Width: 800, Height: 600})
//	for _, o := range outs {
//		upload(o.Transform, o.Data.VertexBytes(), o.Data.IndexBytes())
//	}
//
// Vertex positions are in path space after the path's own style transform;
// Output.Transform maps them to the target.
//
// A Canvas is not safe for concurrent use. DrawAsync runs on a copy.
package canvas

import (
	"errors"
	"fmt"
	"math"

	"github.com/gogpu/vg"
	"github.com/gogpu/vg/internal/flatten"
	"github.com/gogpu/vg/internal/stroke"
	"github.com/gogpu/vg/internal/tess"
)

var (
	// ErrNilImage is returned by Draw for a nil snapshot.
	ErrNilImage = errors.New("canvas: nil image data")

	// ErrInvalidSize is returned by Draw for a non-positive target size.
	ErrInvalidSize = errors.New("canvas: invalid target size")

	// ErrPathDiscarded wraps the error of a path whose tessellation failed.
	// The path draws nothing; the rest of the image is unaffected.
	ErrPathDiscarded = errors.New("canvas: path discarded")
)

// Canvas converts image snapshots to vertex data.
type Canvas struct {
	opts  options
	stack []vg.Mat4
	cur   vg.Mat4

	arena *tess.Arena
	flat  flatten.Flattener
	rings [][]vg.Point
}

// New creates a canvas.
func New(opts ...Option) *Canvas {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Canvas{
		opts:  o,
		cur:   vg.Identity(),
		arena: tess.NewArena(o.arenaLimit),
	}
}

// Quality returns the flattening quality factor.
func (c *Canvas) Quality() float64 { return c.opts.quality }

// Color returns the global color.
func (c *Canvas) Color() vg.Color { return c.opts.color }

// SetColor sets the global color.
func (c *Canvas) SetColor(col vg.Color) { c.opts.color = col }

// Push saves the current transform.
func (c *Canvas) Push() { c.stack = append(c.stack, c.cur) }

// Pop restores the most recently pushed transform. It reports false when
// the stack is empty.
func (c *Canvas) Pop() bool {
	if len(c.stack) == 0 {
		return false
	}
	c.cur = c.stack[len(c.stack)-1]
	c.stack = c.stack[:len(c.stack)-1]
	return true
}

// Transform post-multiplies the current transform by m.
func (c *Canvas) Transform(m vg.Mat4) { c.cur = c.cur.Multiply(m) }

// SetTransform replaces the current transform.
func (c *Canvas) SetTransform(m vg.Mat4) { c.cur = m }

// Current returns the current transform.
func (c *Canvas) Current() vg.Mat4 { return c.cur }

// Depth returns the number of saved transforms.
func (c *Canvas) Depth() int { return len(c.stack) }

// Draw tessellates every entry of data's draw list for a target of the
// given size.
//
// Each non-empty entry yields one Output. Runs of entries that draw nothing
// and share a transform collapse into a single Output with empty data.
// When a path fails to tessellate, Draw still returns the outputs of all
// other entries together with an error wrapping ErrPathDiscarded.
func (c *Canvas) Draw(data *vg.ImageData, target vg.Size) ([]Output, error) {
	if data == nil {
		return nil, ErrNilImage
	}
	if !(target.Width > 0) || !(target.Height > 0) ||
		math.IsInf(target.Width, 0) || math.IsInf(target.Height, 0) {
		return nil, fmt.Errorf("%w: %gx%g", ErrInvalidSize, target.Width, target.Height)
	}

	base := c.cur.Multiply(viewBoxToTarget(data, target)).Multiply(data.ViewBoxTransform())

	var (
		outs      []Output
		errs      []error
		lastEmpty bool
	)
	for i, e := range data.DrawList() {
		instance := base.Multiply(e.Transform)
		var vd *VertexData
		if p := data.Path(e.PathID); p != nil {
			var err error
			vd, err = c.drawPath(p, e.CacheID, instance, uint32(i))
			if err != nil {
				vg.Logger().Warn("canvas: path discarded", "path", e.PathID, "err", err)
				errs = append(errs, fmt.Errorf("%w: path %q: %w", ErrPathDiscarded, e.PathID, err))
			}
		}
		if vd.Empty() {
			if lastEmpty && outs[len(outs)-1].Transform == instance {
				continue
			}
			outs = append(outs, Output{Transform: instance, Data: &VertexData{}})
			lastEmpty = true
			continue
		}
		outs = append(outs, Output{Transform: instance, Data: vd})
		lastEmpty = false
	}

	vg.Logger().Debug("canvas: draw",
		"entries", len(data.DrawList()),
		"outputs", len(outs),
		"generation", data.Generation())
	return outs, errors.Join(errs...)
}

// viewBoxToTarget scales the view box, or the image rectangle when the view
// box is empty, to the target size. The view-box origin is handled by the
// image's view-box transform.
func viewBoxToTarget(data *vg.ImageData, target vg.Size) vg.Mat4 {
	vb := data.ViewBox()
	if vb.Empty() {
		s := data.Size()
		vb = vg.Rect{Width: s.Width, Height: s.Height}
	}
	if vb.Empty() {
		return vg.Identity()
	}
	return vg.Scale(target.Width/vb.Width, target.Height/vb.Height)
}

// drawPath tessellates one path. instance maps path space to the target
// and only determines the flattening tolerance and the rim width.
func (c *Canvas) drawPath(p *vg.Path, cacheID uint64, instance vg.Mat4, object uint32) (*VertexData, error) {
	if p.Empty() {
		return nil, nil
	}
	style := p.Style()
	scale := instance.MaxScale()
	if !(scale > 0) {
		return nil, nil
	}
	tol := flatten.ToleranceForQuality(c.opts.quality, scale)
	aa := c.opts.aaWidth / scale

	var key cacheKey
	if c.opts.cache != nil && cacheID != 0 {
		key = cacheKey{id: cacheID, path: p, tolerance: tol, aaWidth: aa}
		if vd, ok := c.opts.cache.get(key); ok {
			return withObject(vd, object), nil
		}
	}

	c.flat.Tolerance = tol
	contours := c.flat.Path(p.Commands(), p.Params(), style.Transform)
	if len(contours) == 0 {
		return nil, nil
	}

	vd := &VertexData{}
	if style.DrawMode.Fills() {
		t := tess.New(c.arena)
		for _, ct := range contours {
			t.AddContour(ct.Points)
		}
		res, err := t.Tessellate(tess.Options{
			Winding:   tess.RuleFor(style.Winding),
			Antialias: style.Antialias,
			AAWidth:   aa,
			Delaunay:  c.opts.delaunay,
		})
		if err != nil {
			return nil, fmt.Errorf("fill: %w", err)
		}
		vd.appendTriangles(res.Vertices, res.Intensity, res.Indices, c.opts.color.Modulate(style.FillColor), object)
	}

	if style.DrawMode.Strokes() {
		o := stroke.NewOutliner(stroke.FromStyle(style, style.Transform.MaxScale()))
		o.SetTolerance(tol)
		rings := c.rings[:0]
		for _, ct := range contours {
			rings = o.Outline(rings, ct.Points, ct.Closed)
		}
		c.rings = rings[:0]

		if len(rings) > 0 {
			t := tess.New(c.arena)
			for _, r := range rings {
				t.AddContour(r)
			}
			res, err := t.Tessellate(tess.Options{
				Winding:   tess.WindingNonZero,
				Antialias: style.Antialias,
				AAWidth:   aa,
			})
			if err != nil {
				return nil, fmt.Errorf("stroke: %w", err)
			}
			vd.appendTriangles(res.Vertices, res.Intensity, res.Indices, c.opts.color.Modulate(style.StrokeColor), object)
		}
	}

	if key.path != nil {
		c.opts.cache.put(key, vd)
	}
	return vd, nil
}

// withObject returns vd with every vertex tagged with object, copying when
// the cached data carries a different id.
func withObject(vd *VertexData, object uint32) *VertexData {
	if len(vd.Vertices) == 0 || vd.Vertices[0].Object == object {
		return vd
	}
	out := &VertexData{
		Vertices: make([]Vertex, len(vd.Vertices)),
		Indices:  vd.Indices,
	}
	for i, v := range vd.Vertices {
		v.Object = object
		out.Vertices[i] = v
	}
	return out
}

// clone returns a canvas with the same settings and transform and its own
// working memory.
func (c *Canvas) clone() *Canvas {
	return &Canvas{
		opts:  c.opts,
		cur:   c.cur,
		arena: tess.NewArena(c.opts.arenaLimit),
	}
}
