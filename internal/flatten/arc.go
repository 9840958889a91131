package flatten

import (
	"math"

	"github.com/gogpu/vg"
)

// minArcSteps is the minimum number of segments per quarter turn of an arc
// whose radius is at least fullStepRadius tolerances. Smaller arcs get
// proportionally fewer, down to one.
const (
	minArcSteps    = 8
	fullStepRadius = 4
)

// Arc appends the flattened elliptical arc from p0 to p1 (both in path
// space, SVG endpoint parameterization, phi in radians) to dst after
// transforming each sample by m. p0 itself is not appended.
func (f *Flattener) Arc(dst []vg.Point, p0 vg.Point, rx, ry, phi float64, largeArc, sweep bool, p1 vg.Point, m vg.Mat4) []vg.Point {
	return arcPoints(dst, p0, rx, ry, phi, largeArc, sweep, p1, m, f.tolerance())
}

// ArcCenter is the center parameterization of an elliptical arc.
type ArcCenter struct {
	Center         vg.Point
	RX, RY, Phi    float64
	Theta1, DTheta float64
}

// Point returns the arc point at angle theta.
func (a ArcCenter) Point(theta float64) vg.Point {
	sinPhi, cosPhi := math.Sincos(a.Phi)
	sin, cos := math.Sincos(theta)
	x := a.RX * cos
	y := a.RY * sin
	return vg.Point{
		X: a.Center.X + cosPhi*x - sinPhi*y,
		Y: a.Center.Y + sinPhi*x + cosPhi*y,
	}
}

// EndpointToCenter converts an SVG arc to center form, scaling the radii up
// when they are too small to reach p1. ok is false when the arc degenerates
// to a straight line (zero radius) or to nothing (p0 == p1).
func EndpointToCenter(p0 vg.Point, rx, ry, phi float64, largeArc, sweep bool, p1 vg.Point) (arc ArcCenter, ok bool) {
	if p0 == p1 {
		return ArcCenter{}, false
	}
	rx, ry = math.Abs(rx), math.Abs(ry)
	if rx == 0 || ry == 0 {
		return ArcCenter{}, false
	}
	sinPhi, cosPhi := math.Sincos(phi)

	// Step 1: compute (x1', y1')
	dx := (p0.X - p1.X) / 2
	dy := (p0.Y - p1.Y) / 2
	x1p := cosPhi*dx + sinPhi*dy
	y1p := -sinPhi*dx + cosPhi*dy

	// Correct out-of-range radii
	if lambda := (x1p*x1p)/(rx*rx) + (y1p*y1p)/(ry*ry); lambda > 1 {
		s := math.Sqrt(lambda)
		rx *= s
		ry *= s
	}

	// Step 2: compute (cx', cy')
	rx2, ry2 := rx*rx, ry*ry
	den := rx2*y1p*y1p + ry2*x1p*x1p
	if den == 0 {
		return ArcCenter{}, false
	}
	sq := math.Sqrt(max(rx2*ry2-den, 0) / den)
	if largeArc == sweep {
		sq = -sq
	}
	cxp := sq * rx * y1p / ry
	cyp := -sq * ry * x1p / rx

	// Step 3: compute (cx, cy)
	cx := cosPhi*cxp - sinPhi*cyp + (p0.X+p1.X)/2
	cy := sinPhi*cxp + cosPhi*cyp + (p0.Y+p1.Y)/2

	// Step 4: angles
	ux, uy := (x1p-cxp)/rx, (y1p-cyp)/ry
	vx, vy := (-x1p-cxp)/rx, (-y1p-cyp)/ry
	theta1 := math.Atan2(uy, ux)
	dTheta := math.Atan2(ux*vy-uy*vx, ux*vx+uy*vy)
	if !sweep && dTheta > 0 {
		dTheta -= 2 * math.Pi
	} else if sweep && dTheta < 0 {
		dTheta += 2 * math.Pi
	}
	return ArcCenter{
		Center: vg.Pt(cx, cy),
		RX:     rx, RY: ry, Phi: phi,
		Theta1: theta1, DTheta: dTheta,
	}, true
}

// arcSteps returns the number of segments for sweeping dTheta on a circle of
// radius r with chord error below tol.
func arcSteps(r, dTheta, tol float64) int {
	floor := minArcSteps
	if tol > 0 && r < fullStepRadius*tol {
		floor = max(int(math.Ceil(minArcSteps*r/(fullStepRadius*tol))), 1)
	}
	step := math.Pi / (2 * float64(floor))
	if r > tol {
		step = min(step, 2*math.Acos(1-tol/r))
	}
	n := int(math.Ceil(math.Abs(dTheta) / step))
	return max(n, 1)
}

func arcPoints(dst []vg.Point, p0 vg.Point, rx, ry, phi float64, largeArc, sweep bool, p1 vg.Point, m vg.Mat4, tol float64) []vg.Point {
	arc, ok := EndpointToCenter(p0, rx, ry, phi, largeArc, sweep, p1)
	if !ok {
		if p0 == p1 {
			return dst
		}
		return append(dst, m.TransformPoint(p1))
	}
	r := max(arc.RX, arc.RY) * m.MaxScale()
	n := arcSteps(r, arc.DTheta, tol)
	for i := 1; i < n; i++ {
		theta := arc.Theta1 + arc.DTheta*float64(i)/float64(n)
		dst = append(dst, m.TransformPoint(arc.Point(theta)))
	}
	// land exactly on the endpoint
	return append(dst, m.TransformPoint(p1))
}
