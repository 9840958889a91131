package stroke

import (
	"math"

	"github.com/gogpu/vg"
)

// Stroke defines the style for outlining.
type Stroke struct {
	Width      float64
	Cap        vg.LineCap
	Join       vg.LineJoin
	MiterLimit float64
}

// DefaultStroke returns a stroke with default settings.
func DefaultStroke() Stroke {
	return Stroke{
		Width:      1.0,
		Cap:        vg.CapButt,
		Join:       vg.JoinMiter,
		MiterLimit: vg.DefaultMiterLimit,
	}
}

// FromStyle extracts stroke parameters from a path style. The width is
// multiplied by scale so that it matches polylines flattened in device
// space.
func FromStyle(s vg.Style, scale float64) Stroke {
	return Stroke{
		Width:      s.StrokeWidth * scale,
		Cap:        s.LineCap,
		Join:       s.LineJoin,
		MiterLimit: s.MiterLimit,
	}
}

// Outliner converts polylines to outline rings.
// It reuses internal buffers and is not safe for concurrent use.
type Outliner struct {
	style     Stroke
	tolerance float64

	forward  []vg.Point
	backward []vg.Point
	pts      []vg.Point
}

// NewOutliner creates an outliner for the given style.
func NewOutliner(style Stroke) *Outliner {
	if style.MiterLimit < 1 {
		style.MiterLimit = 1
	}
	return &Outliner{
		style:     style,
		tolerance: 0.25,
	}
}

// SetTolerance sets the chord tolerance for round joins and caps.
// Non-positive values are ignored.
func (o *Outliner) SetTolerance(tolerance float64) {
	if tolerance > 0 {
		o.tolerance = tolerance
	}
}

// Outline appends the outline rings of the polyline to dst. Each ring is a
// freshly allocated slice without a repeated closing point.
func (o *Outliner) Outline(dst [][]vg.Point, points []vg.Point, closed bool) [][]vg.Point {
	hw := o.style.Width / 2
	if !(hw > 0) {
		return dst
	}
	pts := o.pts[:0]
	for _, p := range points {
		if len(pts) == 0 || p != pts[len(pts)-1] {
			pts = append(pts, p)
		}
	}
	if closed && len(pts) > 1 && pts[0] == pts[len(pts)-1] {
		pts = pts[:len(pts)-1]
	}
	o.pts = pts

	switch {
	case len(pts) == 0:
		return dst
	case len(pts) == 1:
		return o.dot(dst, pts[0], hw)
	case closed && len(pts) > 2:
		return o.closed(dst, pts, hw)
	default:
		return o.open(dst, pts, hw)
	}
}

// normal returns the left normal of tangent t scaled to length hw.
func normal(t vg.Point, hw float64) vg.Point {
	l := t.Length()
	return vg.Point{X: -t.Y * hw / l, Y: t.X * hw / l}
}

func (o *Outliner) open(dst [][]vg.Point, pts []vg.Point, hw float64) [][]vg.Point {
	o.forward = o.forward[:0]
	o.backward = o.backward[:0]

	t0 := pts[1].Sub(pts[0])
	n0 := normal(t0, hw)
	o.forward = append(o.forward, pts[0].Sub(n0))
	o.backward = append(o.backward, pts[0].Add(n0))

	prevT, prevN := t0, n0
	for i := 0; i+1 < len(pts); i++ {
		t := pts[i+1].Sub(pts[i])
		n := normal(t, hw)
		if i > 0 {
			o.join(pts[i], prevT, t, prevN, n, hw)
		}
		o.forward = append(o.forward, pts[i+1].Sub(n))
		o.backward = append(o.backward, pts[i+1].Add(n))
		prevT, prevN = t, n
	}

	ring := make([]vg.Point, 0, len(o.forward)+len(o.backward)+8)
	ring = append(ring, o.forward...)
	ring = o.appendCap(ring, pts[len(pts)-1], prevN.Mul(-1), unit(prevT), hw)
	for i := len(o.backward) - 1; i >= 0; i-- {
		ring = append(ring, o.backward[i])
	}
	ring = o.appendCap(ring, pts[0], n0, unit(t0).Mul(-1), hw)
	return append(dst, ring)
}

func (o *Outliner) closed(dst [][]vg.Point, pts []vg.Point, hw float64) [][]vg.Point {
	o.forward = o.forward[:0]
	o.backward = o.backward[:0]

	n := len(pts)
	prevT := pts[0].Sub(pts[n-1])
	prevN := normal(prevT, hw)
	for i := range n {
		next := pts[(i+1)%n]
		t := next.Sub(pts[i])
		nn := normal(t, hw)
		o.join(pts[i], prevT, t, prevN, nn, hw)
		o.forward = append(o.forward, next.Sub(nn))
		o.backward = append(o.backward, next.Add(nn))
		prevT, prevN = t, nn
	}

	outer := make([]vg.Point, len(o.forward))
	copy(outer, o.forward)
	inner := make([]vg.Point, len(o.backward))
	for i, p := range o.backward {
		inner[len(inner)-1-i] = p
	}
	return append(dst, outer, inner)
}

// join connects the segment ending with tangent ab to the one starting
// with tangent cd at p. Both sides end at p -/+ n.
func (o *Outliner) join(p, ab, cd, lastN, n vg.Point, hw float64) {
	cross := ab.Cross(cd)
	dot := ab.Dot(cd)
	hypot := math.Hypot(cross, dot)

	// Insignificant direction change: keep both sides continuous.
	if dot > 0 && math.Abs(cross) < hypot*1e-9 {
		o.forward = append(o.forward, p.Sub(n))
		o.backward = append(o.backward, p.Add(n))
		return
	}

	// cross > 0 turns left, so the forward (right) side is outer.
	outer, inner := &o.forward, &o.backward
	side := -1.0
	if cross < 0 {
		outer, inner = inner, outer
		side = 1
	}
	*inner = append(*inner, p)

	switch o.style.Join {
	case vg.JoinMiter:
		sum := lastN.Add(n)
		l2 := sum.Dot(sum)
		// miter ratio 1/cos(theta/2) = 2*hw/|lastN+n|
		if l2 > 0 && 4*hw*hw <= o.style.MiterLimit*o.style.MiterLimit*l2 {
			*outer = append(*outer, p.Add(sum.Mul(side*2*hw*hw/l2)))
		}
	case vg.JoinRound:
		from := lastN.Mul(side)
		angle := math.Atan2(cross, dot)
		*outer = o.appendArc(*outer, p, from, angle, hw)
	}
	o.forward = append(o.forward, p.Sub(n))
	o.backward = append(o.backward, p.Add(n))
}

// appendArc appends chord points of the arc around c starting at offset
// from and turning by angle, excluding both endpoints.
func (o *Outliner) appendArc(dst []vg.Point, c, from vg.Point, angle, r float64) []vg.Point {
	steps := o.arcSteps(angle, r)
	sin, cos := math.Sincos(angle / float64(steps))
	v := from
	for range steps - 1 {
		v = vg.Point{X: v.X*cos - v.Y*sin, Y: v.X*sin + v.Y*cos}
		dst = append(dst, c.Add(v))
	}
	return dst
}

func (o *Outliner) arcSteps(angle, r float64) int {
	step := math.Pi / 2
	if r > o.tolerance {
		step = min(step, 2*math.Acos(1-o.tolerance/r))
	}
	return max(int(math.Ceil(math.Abs(angle)/step)), 1)
}

// appendCap appends the cap at center going from center+from to
// center-from, bulging towards dir (a unit vector).
func (o *Outliner) appendCap(ring []vg.Point, center, from, dir vg.Point, hw float64) []vg.Point {
	switch o.style.Cap {
	case vg.CapSquare:
		ext := dir.Mul(hw)
		ring = append(ring, center.Add(from).Add(ext), center.Sub(from).Add(ext))
	case vg.CapRound:
		// turn from 'from' towards dir: sign of from x dir
		angle := math.Pi
		if from.Cross(dir) < 0 {
			angle = -math.Pi
		}
		ring = o.appendArc(ring, center, from, angle, hw)
	}
	return ring
}

// dot outlines a zero-length subpath: round and square caps draw a dot,
// butt caps draw nothing.
func (o *Outliner) dot(dst [][]vg.Point, c vg.Point, hw float64) [][]vg.Point {
	switch o.style.Cap {
	case vg.CapSquare:
		return append(dst, []vg.Point{
			{X: c.X - hw, Y: c.Y - hw}, {X: c.X + hw, Y: c.Y - hw},
			{X: c.X + hw, Y: c.Y + hw}, {X: c.X - hw, Y: c.Y + hw},
		})
	case vg.CapRound:
		ring := []vg.Point{{X: c.X + hw, Y: c.Y}}
		ring = o.appendArc(ring, c, vg.Pt(hw, 0), 2*math.Pi, hw)
		return append(dst, ring)
	}
	return dst
}

func unit(v vg.Point) vg.Point {
	l := v.Length()
	if l == 0 {
		return vg.Point{}
	}
	return v.Mul(1 / l)
}
