// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package tess

import (
	"errors"
	"math"
	"testing"

	"github.com/gogpu/vg"
)

func pts(xy ...float64) []vg.Point {
	out := make([]vg.Point, 0, len(xy)/2)
	for i := 0; i+1 < len(xy); i += 2 {
		out = append(out, vg.Pt(xy[i], xy[i+1]))
	}
	return out
}

func rect(x, y, w, h float64) []vg.Point {
	return pts(x, y, x+w, y, x+w, y+h, x, y+h)
}

func reversed(p []vg.Point) []vg.Point {
	out := make([]vg.Point, len(p))
	for i, q := range p {
		out[len(p)-1-i] = q
	}
	return out
}

func regular(cx, cy, r float64, n int) []vg.Point {
	out := make([]vg.Point, n)
	for i := range n {
		a := 2 * math.Pi * float64(i) / float64(n)
		out[i] = vg.Pt(cx+r*math.Cos(a), cy+r*math.Sin(a))
	}
	return out
}

func star(cx, cy, outer, inner float64, spikes int) []vg.Point {
	out := make([]vg.Point, 0, 2*spikes)
	for i := range 2 * spikes {
		r := outer
		if i%2 == 1 {
			r = inner
		}
		a := math.Pi * float64(i) / float64(spikes)
		out = append(out, vg.Pt(cx+r*math.Cos(a), cy+r*math.Sin(a)))
	}
	return out
}

func polygonArea(p []vg.Point) float64 {
	a := 0.0
	for i := range p {
		q := p[(i+1)%len(p)]
		a += p[i].X*q.Y - q.X*p[i].Y
	}
	return a / 2
}

func triArea(r *Result, i int) float64 {
	a := r.Vertices[r.Indices[i]]
	b := r.Vertices[r.Indices[i+1]]
	c := r.Vertices[r.Indices[i+2]]
	return b.Sub(a).Cross(c.Sub(a)) / 2
}

// solidArea sums the signed area of the solid triangles.
func solidArea(t *testing.T, r *Result) float64 {
	t.Helper()
	sum := 0.0
	for i := 0; i < r.SolidIndexCount; i += 3 {
		a := triArea(r, i)
		if a < -1e-9 {
			t.Errorf("triangle %d is clockwise (area %g)", i/3, a)
		}
		sum += a
	}
	return sum
}

func tessellate(t *testing.T, opts Options, contours ...[]vg.Point) *Result {
	t.Helper()
	ts := New(nil)
	for _, c := range contours {
		ts.AddContour(c)
	}
	res, err := ts.Tessellate(opts)
	if err != nil {
		t.Fatalf("Tessellate: %v", err)
	}
	if len(res.Intensity) != len(res.Vertices) {
		t.Fatalf("len(Intensity) = %d, len(Vertices) = %d", len(res.Intensity), len(res.Vertices))
	}
	for _, idx := range res.Indices {
		if int(idx) >= len(res.Vertices) {
			t.Fatalf("index %d out of range (%d vertices)", idx, len(res.Vertices))
		}
	}
	return res
}

func TestRectangle(t *testing.T) {
	res := tessellate(t, Options{Winding: WindingNonZero}, rect(0, 0, 10, 5))
	if res.Triangles() != 2 {
		t.Errorf("Triangles() = %d, want 2", res.Triangles())
	}
	if len(res.Vertices) != 4 {
		t.Errorf("len(Vertices) = %d, want 4", len(res.Vertices))
	}
	if got := solidArea(t, res); math.Abs(got-50) > 1e-9 {
		t.Errorf("area = %g, want 50", got)
	}
	for i, v := range res.Intensity {
		if v != 1 {
			t.Errorf("Intensity[%d] = %g, want 1", i, v)
		}
	}
}

func TestWindingRules(t *testing.T) {
	bowtie := pts(0, 0, 10, 10, 10, 0, 0, 10)
	a := rect(0, 0, 10, 10)
	b := rect(5, 5, 10, 10)
	outer := rect(0, 0, 10, 10)
	hole := rect(2, 2, 6, 6)

	tests := []struct {
		name     string
		rule     WindingRule
		contours [][]vg.Point
		area     float64
	}{
		{"bowtie nonzero", WindingNonZero, [][]vg.Point{bowtie}, 50},
		{"bowtie odd", WindingOdd, [][]vg.Point{bowtie}, 50},
		{"bowtie positive", WindingPositive, [][]vg.Point{bowtie}, 25},
		{"bowtie negative", WindingNegative, [][]vg.Point{bowtie}, 25},
		{"bowtie abs geq two", WindingAbsGeqTwo, [][]vg.Point{bowtie}, 0},
		{"overlap nonzero", WindingNonZero, [][]vg.Point{a, b}, 175},
		{"overlap odd", WindingOdd, [][]vg.Point{a, b}, 150},
		{"overlap abs geq two", WindingAbsGeqTwo, [][]vg.Point{a, b}, 25},
		{"overlap negative", WindingNegative, [][]vg.Point{a, b}, 0},
		{"hole reversed nonzero", WindingNonZero, [][]vg.Point{outer, reversed(hole)}, 64},
		{"hole same direction nonzero", WindingNonZero, [][]vg.Point{outer, hole}, 100},
		{"hole same direction odd", WindingOdd, [][]vg.Point{outer, hole}, 64},
		{"clockwise positive", WindingPositive, [][]vg.Point{reversed(outer)}, 0},
		{"clockwise negative", WindingNegative, [][]vg.Point{reversed(outer)}, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := tessellate(t, Options{Winding: tt.rule}, tt.contours...)
			if got := solidArea(t, res); math.Abs(got-tt.area) > 1e-6 {
				t.Errorf("area = %g, want %g", got, tt.area)
			}
		})
	}
}

func TestBowtieTriangles(t *testing.T) {
	bowtie := pts(0, 0, 10, 10, 10, 0, 0, 10)
	for _, rule := range []WindingRule{WindingNonZero, WindingOdd} {
		res := tessellate(t, Options{Winding: rule}, bowtie)
		if res.Triangles() != 2 {
			t.Errorf("%v: Triangles() = %d, want 2", rule, res.Triangles())
		}
		if a := solidArea(t, res); math.Abs(a-50) > 1e-6 {
			t.Errorf("%v: area = %g, want 50", rule, a)
		}
		// The crossing point is shared by both lobes.
		found := false
		for _, v := range res.Vertices {
			if math.Abs(v.X-5) < 1e-9 && math.Abs(v.Y-5) < 1e-9 {
				found = true
			}
		}
		if !found {
			t.Errorf("%v: intersection vertex (5, 5) missing from %v", rule, res.Vertices)
		}
	}
}

func TestCircle(t *testing.T) {
	const n = 64
	circle := regular(0, 0, 10, n)
	res := tessellate(t, Options{Winding: WindingNonZero}, circle)
	if res.Triangles() != n-2 {
		t.Errorf("Triangles() = %d, want %d", res.Triangles(), n-2)
	}
	want := polygonArea(circle)
	if got := solidArea(t, res); math.Abs(got-want) > 1e-9*want {
		t.Errorf("area = %g, want %g", got, want)
	}
}

func TestDegenerateInput(t *testing.T) {
	tests := []struct {
		name     string
		contours [][]vg.Point
		area     float64
		tris     int
	}{
		{"empty", nil, 0, 0},
		{"single point", [][]vg.Point{pts(1, 1)}, 0, 0},
		{"two points", [][]vg.Point{pts(0, 0, 5, 5)}, 0, 0},
		{"collinear", [][]vg.Point{pts(0, 0, 5, 0, 10, 0)}, 0, -1},
		{"repeated closing point", [][]vg.Point{pts(0, 0, 10, 0, 10, 5, 0, 5, 0, 0)}, 50, 2},
		{"duplicate vertices", [][]vg.Point{pts(0, 0, 10, 0, 10, 0, 10, 5, 0, 5)}, 50, 2},
		{"non-finite skipped", [][]vg.Point{pts(0, 0, math.NaN(), 1, 10, 0, 10, 5, math.Inf(1), 0, 0, 5)}, 50, 2},
		{"coincident contours cancel", [][]vg.Point{rect(0, 0, 4, 4), reversed(rect(0, 0, 4, 4))}, 0, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := tessellate(t, Options{Winding: WindingNonZero}, tt.contours...)
			if got := solidArea(t, res); math.Abs(got-tt.area) > 1e-9 {
				t.Errorf("area = %g, want %g", got, tt.area)
			}
			if tt.tris >= 0 && res.Triangles() != tt.tris {
				t.Errorf("Triangles() = %d, want %d", res.Triangles(), tt.tris)
			}
		})
	}
}

func TestAntialiasRim(t *testing.T) {
	solid := tessellate(t, Options{Winding: WindingNonZero}, rect(0, 0, 10, 5))
	res := tessellate(t, Options{Winding: WindingNonZero, Antialias: true, AAWidth: 1}, rect(0, 0, 10, 5))

	if res.SolidIndexCount != len(solid.Indices) {
		t.Fatalf("SolidIndexCount = %d, want %d", res.SolidIndexCount, len(solid.Indices))
	}
	for i := range res.SolidIndexCount {
		if res.Vertices[res.Indices[i]] != solid.Vertices[solid.Indices[i]] {
			t.Fatalf("solid part differs from the plain tessellation at index %d", i)
		}
	}
	// Four boundary edges, two rim triangles each, one outer twin per corner.
	if got := (len(res.Indices) - res.SolidIndexCount) / 3; got != 8 {
		t.Errorf("rim triangles = %d, want 8", got)
	}
	if len(res.Vertices) != 8 {
		t.Errorf("len(Vertices) = %d, want 8", len(res.Vertices))
	}

	var outer []vg.Point
	for i, v := range res.Vertices {
		switch res.Intensity[i] {
		case 0:
			outer = append(outer, v)
		case 1:
		default:
			t.Errorf("Intensity[%d] = %g", i, res.Intensity[i])
		}
	}
	want := map[vg.Point]bool{
		vg.Pt(-1, -1): true, vg.Pt(11, -1): true, vg.Pt(11, 6): true, vg.Pt(-1, 6): true,
	}
	for _, p := range outer {
		q := vg.Pt(math.Round(p.X*1e9)/1e9, math.Round(p.Y*1e9)/1e9)
		if !want[q] {
			t.Errorf("unexpected rim vertex %v", p)
		}
	}

	total := 0.0
	for i := 0; i < len(res.Indices); i += 3 {
		a := triArea(res, i)
		if a < -1e-9 {
			t.Errorf("triangle %d is clockwise", i/3)
		}
		total += a
	}
	if math.Abs(total-12*7) > 1e-9 {
		t.Errorf("area with rim = %g, want %g", total, 12.0*7)
	}
}

func TestDelaunayFlip(t *testing.T) {
	// A flat rhombus: the short diagonal B-D is the Delaunay one.
	a, b, c, d := vg.Pt(0, 0), vg.Pt(4, -1), vg.Pt(8, 0), vg.Pt(4, 1)
	res := tessellate(t, Options{Winding: WindingNonZero, Delaunay: true}, []vg.Point{a, b, c, d})
	if res.Triangles() != 2 {
		t.Fatalf("Triangles() = %d, want 2", res.Triangles())
	}
	for i := 0; i < len(res.Indices); i += 3 {
		hasB, hasD := false, false
		for _, idx := range res.Indices[i : i+3] {
			hasB = hasB || res.Vertices[idx] == b
			hasD = hasD || res.Vertices[idx] == d
		}
		if !hasB || !hasD {
			t.Errorf("triangle %d does not use the short diagonal", i/3)
		}
	}
	if got := solidArea(t, res); math.Abs(got-8) > 1e-9 {
		t.Errorf("area = %g, want 8", got)
	}
}

func TestLargeStarDelaunay(t *testing.T) {
	s := star(0, 0, 100, 50, 5000)
	res := tessellate(t, Options{Winding: WindingNonZero, Delaunay: true}, s)
	faces := res.Triangles()
	if faces < len(s)-2 {
		t.Errorf("Triangles() = %d, want at least %d", faces, len(s)-2)
	}
	if res.DelaunayIterations > faces*faces {
		t.Errorf("DelaunayIterations = %d exceeds cap %d", res.DelaunayIterations, faces*faces)
	}
	want := polygonArea(s)
	if got := solidArea(t, res); math.Abs(got-want) > 1e-6*want {
		t.Errorf("area = %g, want %g", got, want)
	}
}

func TestArenaLimit(t *testing.T) {
	arena := NewArena(64)
	ts := New(arena)
	ts.AddContour(regular(0, 0, 10, 128))
	if _, err := ts.Tessellate(Options{}); !errors.Is(err, ErrOutOfMemory) {
		t.Fatalf("Tessellate error = %v, want ErrOutOfMemory", err)
	}

	// The same arena works again once the limit is lifted.
	arena.MaxElements = 0
	ts = New(arena)
	ts.AddContour(rect(0, 0, 1, 1))
	res, err := ts.Tessellate(Options{Winding: WindingNonZero})
	if err != nil {
		t.Fatalf("Tessellate after reset: %v", err)
	}
	if res.Triangles() != 2 {
		t.Errorf("Triangles() = %d, want 2", res.Triangles())
	}
	if arena.Len() == 0 {
		t.Error("arena reports no elements in use")
	}
}

func TestRuleFor(t *testing.T) {
	if RuleFor(vg.NonZero) != WindingNonZero || RuleFor(vg.EvenOdd) != WindingOdd {
		t.Error("RuleFor mapping wrong")
	}
	if WindingAbsGeqTwo.String() != "AbsGeqTwo" {
		t.Errorf("String() = %q", WindingAbsGeqTwo.String())
	}
}
