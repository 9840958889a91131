package vg

import "weak"

// PathRef is a handle to a path owned by an Image. It holds the path id
// and a weak reference to the image; once the image is gone or the path
// removed, every method is a no-op.
//
// Mutations go through the image's copy-on-write machinery: the first
// mutation after PopData forks the image tables and the target path, so the
// snapshot keeps the old content.
type PathRef struct {
	id  string
	img weak.Pointer[Image]
}

// ID returns the path id, or "" for an invalid handle.
func (r PathRef) ID() string { return r.id }

// Valid reports whether the handle still refers to a live path.
func (r PathRef) Valid() bool {
	img := r.img.Value()
	if img == nil {
		return false
	}
	_, ok := img.tables.paths[r.id]
	return ok
}

// Path returns the current path for reading, or nil. The result must not
// be modified; use Edit or the builder methods instead.
func (r PathRef) Path() *Path {
	img := r.img.Value()
	if img == nil {
		return nil
	}
	return img.tables.paths[r.id]
}

// Edit applies fn to a private copy of the path.
func (r PathRef) Edit(fn func(p *Path)) PathRef {
	img := r.img.Value()
	if img == nil {
		return r
	}
	if p := img.writablePath(r.id); p != nil {
		fn(p)
	}
	return r
}

// MoveTo starts a new subpath.
func (r PathRef) MoveTo(x, y float64) PathRef {
	return r.Edit(func(p *Path) { p.MoveTo(x, y) })
}

// LineTo draws a line.
func (r PathRef) LineTo(x, y float64) PathRef {
	return r.Edit(func(p *Path) { p.LineTo(x, y) })
}

// QuadTo draws a quadratic Bezier curve.
func (r PathRef) QuadTo(cx, cy, x, y float64) PathRef {
	return r.Edit(func(p *Path) { p.QuadTo(cx, cy, x, y) })
}

// CubicTo draws a cubic Bezier curve.
func (r PathRef) CubicTo(c1x, c1y, c2x, c2y, x, y float64) PathRef {
	return r.Edit(func(p *Path) { p.CubicTo(c1x, c1y, c2x, c2y, x, y) })
}

// ArcTo draws an elliptical arc.
func (r PathRef) ArcTo(rx, ry, rotation float64, largeArc, sweep bool, x, y float64) PathRef {
	return r.Edit(func(p *Path) { p.ArcTo(rx, ry, rotation, largeArc, sweep, x, y) })
}

// ClosePath closes the current subpath.
func (r PathRef) ClosePath() PathRef {
	return r.Edit(func(p *Path) { p.ClosePath() })
}

// Clear removes all commands.
func (r PathRef) Clear() PathRef {
	return r.Edit(func(p *Path) { p.Clear() })
}

// AddSVG appends SVG path data; see Path.AddSVG.
// It returns false for an invalid handle.
func (r PathRef) AddSVG(d string) bool {
	ok := false
	r.Edit(func(p *Path) { ok = p.AddSVG(d) })
	return ok
}

// SetTransform sets the path transform.
func (r PathRef) SetTransform(m Mat4) PathRef {
	return r.Edit(func(p *Path) { p.SetTransform(m) })
}

// SetFillColor sets the fill color.
func (r PathRef) SetFillColor(c Color) PathRef {
	return r.Edit(func(p *Path) { p.SetFillColor(c) })
}

// SetStrokeColor sets the stroke color.
func (r PathRef) SetStrokeColor(c Color) PathRef {
	return r.Edit(func(p *Path) { p.SetStrokeColor(c) })
}

// SetStrokeWidth sets the stroke width.
func (r PathRef) SetStrokeWidth(w float64) PathRef {
	return r.Edit(func(p *Path) { p.SetStrokeWidth(w) })
}

// SetWinding sets the fill rule.
func (r PathRef) SetWinding(w Winding) PathRef {
	return r.Edit(func(p *Path) { p.SetWinding(w) })
}

// SetLineCap sets the cap style.
func (r PathRef) SetLineCap(c LineCap) PathRef {
	return r.Edit(func(p *Path) { p.SetLineCap(c) })
}

// SetLineJoin sets the join style.
func (r PathRef) SetLineJoin(j LineJoin) PathRef {
	return r.Edit(func(p *Path) { p.SetLineJoin(j) })
}

// SetMiterLimit sets the miter limit.
func (r PathRef) SetMiterLimit(l float64) PathRef {
	return r.Edit(func(p *Path) { p.SetMiterLimit(l) })
}

// SetDrawMode selects fill, stroke or both.
func (r PathRef) SetDrawMode(m DrawMode) PathRef {
	return r.Edit(func(p *Path) { p.SetDrawMode(m) })
}

// SetAntialias toggles antialiasing.
func (r PathRef) SetAntialias(aa bool) PathRef {
	return r.Edit(func(p *Path) { p.SetAntialias(aa) })
}

// SetStyle replaces the style block.
func (r PathRef) SetStyle(s Style) PathRef {
	return r.Edit(func(p *Path) { p.SetStyle(s) })
}
