// Package flatten converts path commands into polylines.
//
// Curves are subdivided until every output segment stays within a distance
// tolerance of the true curve. All subdivision happens after the path
// transform is applied, so the tolerance is measured in output pixels.
package flatten

import "github.com/gogpu/vg"

// DefaultTolerance is the tolerance used at quality 1 and unit scale.
const DefaultTolerance = 0.25

// Tolerance bounds.
const (
	MinTolerance = 1e-4
	MaxTolerance = 4.0
)

// maxDepth bounds curve subdivision; 2^16 segments per curve is far beyond
// any useful resolution.
const maxDepth = 16

// ToleranceForQuality returns the flattening distance tolerance for a
// quality factor and the transform scale, clamped to [MinTolerance,
// MaxTolerance]. Non-positive inputs are treated as 1.
func ToleranceForQuality(quality, scale float64) float64 {
	if !(quality > 0) {
		quality = 1
	}
	if !(scale > 0) {
		scale = 1
	}
	return min(max(DefaultTolerance/(quality*scale), MinTolerance), MaxTolerance)
}

// Contour is a flattened subpath.
type Contour struct {
	Points []vg.Point
	Closed bool
}

// Flattener converts curves to line segments. The zero value uses
// DefaultTolerance. A Flattener reuses its point storage between calls to
// Path; it is not safe for concurrent use.
type Flattener struct {
	Tolerance float64

	buf   []vg.Point
	spans []span
}

type span struct {
	start, end int
	closed     bool
}

func (f *Flattener) tolerance() float64 {
	if f.Tolerance > 0 {
		return f.Tolerance
	}
	return DefaultTolerance
}

// Quad appends the flattened quadratic Bezier p0-p1-p2 to dst, excluding p0.
func (f *Flattener) Quad(dst []vg.Point, p0, p1, p2 vg.Point) []vg.Point {
	return quadRec(dst, p0, p1, p2, f.tolerance(), 0)
}

func quadRec(dst []vg.Point, p0, p1, p2 vg.Point, tol float64, depth int) []vg.Point {
	if depth >= maxDepth || distanceToLine(p1, p0, p2) < tol {
		return append(dst, p2)
	}
	q0 := p0.Lerp(p1, 0.5)
	q1 := p1.Lerp(p2, 0.5)
	q2 := q0.Lerp(q1, 0.5)

	dst = quadRec(dst, p0, q0, q2, tol, depth+1)
	return quadRec(dst, q2, q1, p2, tol, depth+1)
}

// Cubic appends the flattened cubic Bezier p0-p1-p2-p3 to dst, excluding p0.
func (f *Flattener) Cubic(dst []vg.Point, p0, p1, p2, p3 vg.Point) []vg.Point {
	return cubicRec(dst, p0, p1, p2, p3, f.tolerance(), 0)
}

func cubicRec(dst []vg.Point, p0, p1, p2, p3 vg.Point, tol float64, depth int) []vg.Point {
	d := max(distanceToLine(p1, p0, p3), distanceToLine(p2, p0, p3))
	if depth >= maxDepth || d < tol {
		return append(dst, p3)
	}
	// de Casteljau split at t=0.5
	q0 := p0.Lerp(p1, 0.5)
	q1 := p1.Lerp(p2, 0.5)
	q2 := p2.Lerp(p3, 0.5)
	r0 := q0.Lerp(q1, 0.5)
	r1 := q1.Lerp(q2, 0.5)
	s := r0.Lerp(r1, 0.5)

	dst = cubicRec(dst, p0, q0, r0, s, tol, depth+1)
	return cubicRec(dst, s, r1, q2, p3, tol, depth+1)
}

// distanceToLine returns the distance from p to the segment (a, b).
func distanceToLine(p, a, b vg.Point) float64 {
	ab := b.Sub(a)
	l2 := ab.Dot(ab)
	if l2 < 1e-20 {
		return p.Distance(a)
	}
	t := p.Sub(a).Dot(ab) / l2
	switch {
	case t < 0:
		return p.Distance(a)
	case t > 1:
		return p.Distance(b)
	}
	return p.Distance(a.Add(ab.Mul(t)))
}

// Path flattens a command stream under transform m. LineTo and curve
// commands issued before any MoveTo start at the origin. The returned
// contours share storage owned by f and stay valid until the next call.
//
// For closed contours the final point is dropped when it lies within the
// tolerance of the first one. Consecutive duplicate points are dropped and
// contours with fewer than two points are discarded.
func (f *Flattener) Path(commands []vg.Command, params []float64, m vg.Mat4) []Contour {
	f.buf = f.buf[:0]
	f.spans = f.spans[:0]
	tol := f.tolerance()

	var cur, start vg.Point // path space
	open := -1              // start index of the contour being built
	begin := func(p vg.Point) {
		f.finish(open, false, tol)
		open = len(f.buf)
		f.buf = append(f.buf, m.TransformPoint(p))
		start, cur = p, p
	}
	ensure := func() {
		if open < 0 {
			begin(cur)
		}
	}

	off := 0
	for _, c := range commands {
		n := c.NumParams()
		if off+n > len(params) {
			break
		}
		a := params[off : off+n]
		off += n

		switch c {
		case vg.CmdMoveTo:
			begin(vg.Pt(a[0], a[1]))
		case vg.CmdLineTo:
			ensure()
			cur = vg.Pt(a[0], a[1])
			f.buf = append(f.buf, m.TransformPoint(cur))
		case vg.CmdQuadTo:
			ensure()
			last := f.buf[len(f.buf)-1]
			c1, p := vg.Pt(a[0], a[1]), vg.Pt(a[2], a[3])
			f.buf = quadRec(f.buf, last, m.TransformPoint(c1), m.TransformPoint(p), tol, 0)
			cur = p
		case vg.CmdCubicTo:
			ensure()
			last := f.buf[len(f.buf)-1]
			c1, c2, p := vg.Pt(a[0], a[1]), vg.Pt(a[2], a[3]), vg.Pt(a[4], a[5])
			f.buf = cubicRec(f.buf, last, m.TransformPoint(c1), m.TransformPoint(c2), m.TransformPoint(p), tol, 0)
			cur = p
		case vg.CmdArcTo:
			ensure()
			p := vg.Pt(a[5], a[6])
			f.buf = arcPoints(f.buf, cur, a[0], a[1], a[2], a[3] != 0, a[4] != 0, p, m, tol)
			cur = p
		case vg.CmdClosePath:
			if open >= 0 {
				f.finish(open, true, tol)
				open = -1
			}
			cur = start
		}
	}
	f.finish(open, false, tol)

	out := make([]Contour, len(f.spans))
	for i, s := range f.spans {
		out[i] = Contour{Points: f.buf[s.start:s.end:s.end], Closed: s.closed}
	}
	return out
}

// finish compacts the contour starting at buf[start] and records it.
func (f *Flattener) finish(start int, closed bool, tol float64) {
	if start < 0 {
		return
	}
	eps2 := tol * tol * 1e-4
	w := start + 1
	for r := start + 1; r < len(f.buf); r++ {
		if sqDist(f.buf[r], f.buf[w-1]) > eps2 {
			f.buf[w] = f.buf[r]
			w++
		}
	}
	if closed && w-start > 1 && sqDist(f.buf[w-1], f.buf[start]) < tol*tol {
		w--
	}
	f.buf = f.buf[:w]
	if w-start < 2 {
		f.buf = f.buf[:start]
		return
	}
	f.spans = append(f.spans, span{start: start, end: w, closed: closed})
}

func sqDist(a, b vg.Point) float64 {
	d := a.Sub(b)
	return d.Dot(d)
}

// Length returns the length of the polyline, including the closing edge
// for closed contours.
func (c Contour) Length() float64 {
	var l float64
	for i := 1; i < len(c.Points); i++ {
		l += c.Points[i].Distance(c.Points[i-1])
	}
	if c.Closed && len(c.Points) > 2 {
		l += c.Points[0].Distance(c.Points[len(c.Points)-1])
	}
	return l
}

// SignedArea returns the shoelace area of the contour treated as closed.
// Positive means counter-clockwise in a y-up frame.
func (c Contour) SignedArea() float64 {
	var a float64
	n := len(c.Points)
	for i := range n {
		p, q := c.Points[i], c.Points[(i+1)%n]
		a += p.X*q.Y - q.X*p.Y
	}
	return a / 2
}
