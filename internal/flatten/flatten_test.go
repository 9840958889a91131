package flatten

import (
	"math"
	"testing"

	"github.com/gogpu/vg"
)

func flattenSVG(t *testing.T, f *Flattener, d string, m vg.Mat4) []Contour {
	t.Helper()
	p, ok := vg.ParseSVG(d)
	if !ok {
		t.Fatalf("ParseSVG(%q) failed", d)
	}
	return f.Path(p.Commands(), p.Params(), m)
}

func TestToleranceForQuality(t *testing.T) {
	tests := []struct {
		q, s, want float64
	}{
		{1, 1, 0.25},
		{2, 1, 0.125},
		{1, 4, 0.0625},
		{0, 1, 0.25},
		{-1, math.NaN(), 0.25},
		{1e9, 1, MinTolerance},
		{0.001, 1, MaxTolerance},
	}
	for _, tt := range tests {
		if got := ToleranceForQuality(tt.q, tt.s); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("ToleranceForQuality(%v, %v) = %v, want %v", tt.q, tt.s, got, tt.want)
		}
	}
}

func TestQuadWithinTolerance(t *testing.T) {
	f := &Flattener{Tolerance: 0.1}
	p0, p1, p2 := vg.Pt(0, 0), vg.Pt(50, 100), vg.Pt(100, 0)
	pts := f.Quad(nil, p0, p1, p2)
	if len(pts) < 4 {
		t.Fatalf("expected subdivision, got %d points", len(pts))
	}
	if pts[len(pts)-1] != p2 {
		t.Errorf("last point = %v, want %v", pts[len(pts)-1], p2)
	}
	// sample the true curve and check distance to the polyline
	poly := append([]vg.Point{p0}, pts...)
	for i := range 101 {
		tt := float64(i) / 100
		u := 1 - tt
		q := vg.Pt(u*u*p0.X+2*u*tt*p1.X+tt*tt*p2.X, u*u*p0.Y+2*u*tt*p1.Y+tt*tt*p2.Y)
		if d := polyDistance(q, poly); d > 0.2 {
			t.Errorf("curve point %v is %v from polyline", q, d)
		}
	}
}

func TestCubicFlatLine(t *testing.T) {
	f := &Flattener{}
	pts := f.Cubic(nil, vg.Pt(0, 0), vg.Pt(1, 0), vg.Pt(2, 0), vg.Pt(3, 0))
	if len(pts) != 1 || pts[0] != vg.Pt(3, 0) {
		t.Errorf("straight cubic should flatten to its endpoint, got %v", pts)
	}
}

func TestCubicDepthBounded(t *testing.T) {
	f := &Flattener{Tolerance: 1e-300}
	pts := f.Cubic(nil, vg.Pt(0, 0), vg.Pt(0, 1), vg.Pt(1, 1), vg.Pt(1, 0))
	if len(pts) > 1<<maxDepth {
		t.Errorf("subdivision exceeded depth bound: %d points", len(pts))
	}
}

func TestPathRectangle(t *testing.T) {
	f := &Flattener{}
	cs := flattenSVG(t, f, "M 0,0 L 10,0 L 10,5 L 0,5 Z", vg.Identity())
	if len(cs) != 1 {
		t.Fatalf("got %d contours, want 1", len(cs))
	}
	c := cs[0]
	if !c.Closed || len(c.Points) != 4 {
		t.Fatalf("contour = %+v, want 4 closed points", c)
	}
	if a := c.SignedArea(); a != 50 {
		t.Errorf("SignedArea() = %v, want 50", a)
	}
	if l := c.Length(); l != 30 {
		t.Errorf("Length() = %v, want 30", l)
	}
}

func TestPathClosingPointElided(t *testing.T) {
	f := &Flattener{}
	cs := flattenSVG(t, f, "M0 0 L10 0 L10 10 L0 0.01 Z", vg.Identity())
	if got := len(cs[0].Points); got != 3 {
		t.Errorf("points = %d, want 3 (last within tolerance of first)", got)
	}
}

func TestPathUnitCircleArcs(t *testing.T) {
	f := &Flattener{Tolerance: ToleranceForQuality(1, 1)}
	cs := flattenSVG(t, f,
		"M 1,0 A 1,1 0 0 0 0,-1 A 1,1 0 0 0 -1,0 A 1,1 0 0 0 0,1 A 1,1 0 0 0 1,0 Z",
		vg.Identity())
	if len(cs) != 1 || !cs[0].Closed {
		t.Fatalf("want one closed contour, got %+v", cs)
	}
	pts := cs[0].Points
	if len(pts) < 32 {
		t.Errorf("vertex count = %d, want >= 32", len(pts))
	}
	for _, p := range pts {
		if d := math.Abs(p.Length() - 1); d > 0.01 {
			t.Errorf("point %v is %v off the unit circle", p, d)
		}
	}
	// clockwise in y-up coordinates, convex
	if cs[0].SignedArea() >= 0 {
		t.Errorf("SignedArea() = %v, want negative", cs[0].SignedArea())
	}
	n := len(pts)
	for i := range n {
		a, b, c := pts[i], pts[(i+1)%n], pts[(i+2)%n]
		if b.Sub(a).Cross(c.Sub(b)) > 1e-12 {
			t.Fatalf("polygon not convex at %d", i)
		}
	}
}

func TestPathTransformScalesArcResolution(t *testing.T) {
	f := &Flattener{Tolerance: 0.25}
	small := flattenSVG(t, f, "M 1,0 A 1,1 0 0 0 -1,0 Z", vg.Identity())
	n1 := len(small[0].Points)
	big := flattenSVG(t, f, "M 1,0 A 1,1 0 0 0 -1,0 Z", vg.Scale(500, 500))
	n2 := len(big[0].Points)
	if n2 <= n1 {
		t.Errorf("magnified arc has %d points, unmagnified %d", n2, n1)
	}
	for _, p := range big[0].Points {
		if d := math.Abs(p.Length() - 500); d > 1e-6 {
			t.Fatalf("transformed point %v off the circle by %v", p, d)
		}
	}
}

func TestArcStepsFollowRadius(t *testing.T) {
	const tol = 0.25
	tests := []struct {
		name string
		r    float64
		want int
	}{
		{"sub-pixel", 0.1, 4},
		{"half pixel", 0.5, 16},
		{"one pixel", 1, 32},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := arcSteps(tt.r, 2*math.Pi, tol); got != tt.want {
				t.Errorf("arcSteps(%v) = %d, want %d", tt.r, got, tt.want)
			}
		})
	}
	if big := arcSteps(100, 2*math.Pi, tol); big <= 32 {
		t.Errorf("arcSteps(100) = %d, want more than the floor", big)
	}
}

func TestPathEdgeCases(t *testing.T) {
	f := &Flattener{}
	tests := []struct {
		name     string
		d        string
		contours int
	}{
		{"empty", "", 0},
		{"move and close", "M 5 5 Z", 0},
		{"single move", "M 1 1", 0},
		{"lineto without moveto", "L 10 0 L 10 10 Z", 1},
		{"two subpaths", "M0 0 L1 0 L1 1 Z M5 5 L6 5 L6 6 Z", 2},
		{"open polyline", "M0 0 L5 5", 1},
		{"degenerate arc", "M0 0 A 0 0 0 0 0 5 5", 1},
		{"arc to self", "M0 0 A 1 1 0 0 0 0 0", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := vg.NewPath()
			p.AddSVG(tt.d)
			cs := f.Path(p.Commands(), p.Params(), vg.Identity())
			if len(cs) != tt.contours {
				t.Errorf("contours = %d, want %d: %+v", len(cs), tt.contours, cs)
			}
		})
	}
}

func TestPathLineToWithoutMoveToStartsAtOrigin(t *testing.T) {
	f := &Flattener{}
	p := vg.NewPath().LineTo(10, 0).LineTo(10, 10).ClosePath()
	cs := f.Path(p.Commands(), p.Params(), vg.Identity())
	if cs[0].Points[0] != vg.Pt(0, 0) {
		t.Errorf("first point = %v, want origin", cs[0].Points[0])
	}
}

func TestEndpointToCenter(t *testing.T) {
	arc, ok := EndpointToCenter(vg.Pt(1, 0), 1, 1, 0, false, true, vg.Pt(-1, 0))
	if !ok {
		t.Fatal("EndpointToCenter failed")
	}
	if arc.Center.Length() > 1e-9 || math.Abs(arc.DTheta-math.Pi) > 1e-9 {
		t.Errorf("arc = %+v, want center origin, dTheta pi", arc)
	}
	// radii too small are scaled up
	arc, _ = EndpointToCenter(vg.Pt(0, 0), 1, 1, 0, false, true, vg.Pt(10, 0))
	if math.Abs(arc.RX-5) > 1e-9 {
		t.Errorf("corrected rx = %v, want 5", arc.RX)
	}
}

func polyDistance(p vg.Point, poly []vg.Point) float64 {
	best := math.Inf(1)
	for i := 1; i < len(poly); i++ {
		best = min(best, distanceToLine(p, poly[i-1], poly[i]))
	}
	return best
}
