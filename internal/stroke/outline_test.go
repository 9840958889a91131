package stroke

import (
	"math"
	"testing"

	"github.com/gogpu/vg"
)

func area(ring []vg.Point) float64 {
	var a float64
	for i := range ring {
		p, q := ring[i], ring[(i+1)%len(ring)]
		a += p.X*q.Y - q.X*p.Y
	}
	return a / 2
}

// winding returns the non-zero winding number of p with respect to rings.
func winding(rings [][]vg.Point, p vg.Point) int {
	w := 0
	for _, r := range rings {
		for i := range r {
			a, b := r[i], r[(i+1)%len(r)]
			if a.Y <= p.Y {
				if b.Y > p.Y && b.Sub(a).Cross(p.Sub(a)) > 0 {
					w++
				}
			} else if b.Y <= p.Y && b.Sub(a).Cross(p.Sub(a)) < 0 {
				w--
			}
		}
	}
	return w
}

func TestOutlineOpenLineCaps(t *testing.T) {
	line := []vg.Point{{X: 0, Y: 0}, {X: 10, Y: 0}}
	tests := []struct {
		name string
		cap  vg.LineCap
		want float64
		tol  float64
	}{
		{"butt", vg.CapButt, 20, 1e-9},
		{"square", vg.CapSquare, 24, 1e-9},
		{"round", vg.CapRound, 20 + math.Pi, 0.1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := NewOutliner(Stroke{Width: 2, Cap: tt.cap, Join: vg.JoinMiter, MiterLimit: 4})
			o.SetTolerance(0.01)
			rings := o.Outline(nil, line, false)
			if len(rings) != 1 {
				t.Fatalf("rings = %d, want 1", len(rings))
			}
			if a := math.Abs(area(rings[0])); math.Abs(a-tt.want) > tt.tol {
				t.Errorf("area = %v, want %v", a, tt.want)
			}
		})
	}
}

func TestOutlineClosedSquareJoins(t *testing.T) {
	square := []vg.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}}
	tests := []struct {
		name    string
		join    vg.LineJoin
		inside  []vg.Point
		outside []vg.Point
	}{
		{
			name:    "miter",
			join:    vg.JoinMiter,
			inside:  []vg.Point{{X: 5, Y: 0.5}, {X: 5, Y: -0.5}, {X: 10.9, Y: 10.9}, {X: 9.5, Y: 0.5}},
			outside: []vg.Point{{X: 5, Y: 5}, {X: 5, Y: -1.5}, {X: 11.1, Y: 11.1}},
		},
		{
			name:    "bevel",
			join:    vg.JoinBevel,
			inside:  []vg.Point{{X: 5, Y: 0.5}, {X: 10.4, Y: 10.4}},
			outside: []vg.Point{{X: 5, Y: 5}, {X: 10.9, Y: 10.9}},
		},
		{
			name:    "round",
			join:    vg.JoinRound,
			inside:  []vg.Point{{X: 10.6, Y: 10.6}},
			outside: []vg.Point{{X: 5, Y: 5}, {X: 10.8, Y: 10.8}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := NewOutliner(Stroke{Width: 2, Join: tt.join, MiterLimit: 4})
			o.SetTolerance(0.01)
			rings := o.Outline(nil, square, true)
			if len(rings) != 2 {
				t.Fatalf("rings = %d, want 2", len(rings))
			}
			for _, p := range tt.inside {
				if winding(rings, p) == 0 {
					t.Errorf("%v should be covered", p)
				}
			}
			for _, p := range tt.outside {
				if w := winding(rings, p); w != 0 {
					t.Errorf("%v should not be covered (winding %d)", p, w)
				}
			}
		})
	}
}

func TestOutlineMiterLimitFallsBackToBevel(t *testing.T) {
	sharp := []vg.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 0, Y: 1}}
	o := NewOutliner(Stroke{Width: 2, Join: vg.JoinMiter, MiterLimit: 4})
	rings := o.Outline(nil, sharp, false)
	for _, p := range rings[0] {
		best := math.Inf(1)
		for _, q := range sharp {
			best = min(best, p.Distance(q))
		}
		if best > 1+1e-9 {
			t.Errorf("outline point %v is %v from the polyline vertices", p, best)
		}
	}

	o = NewOutliner(Stroke{Width: 2, Join: vg.JoinMiter, MiterLimit: 100})
	rings = o.Outline(nil, sharp, false)
	far := 0.0
	for _, p := range rings[0] {
		far = max(far, p.X)
	}
	if far < 15 {
		t.Errorf("high miter limit should produce a long tip, max x = %v", far)
	}
}

func TestOutlineRoundJoinRadius(t *testing.T) {
	corner := []vg.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}}
	o := NewOutliner(Stroke{Width: 4, Join: vg.JoinRound})
	rings := o.Outline(nil, corner, false)
	joint := vg.Pt(10, 0)
	n := 0
	for _, p := range rings[0] {
		if p.X > 10 && p.Y < 0 {
			n++
			if d := p.Distance(joint); math.Abs(d-2) > 1e-9 {
				t.Errorf("round join point %v at distance %v, want 2", p, d)
			}
		}
	}
	if n == 0 {
		t.Error("round join produced no arc points")
	}
}

func TestOutlineDegenerate(t *testing.T) {
	pt := []vg.Point{{X: 3, Y: 3}, {X: 3, Y: 3}}
	tests := []struct {
		name  string
		style Stroke
		in    []vg.Point
		rings int
	}{
		{"zero width", Stroke{Width: 0}, []vg.Point{{X: 0, Y: 0}, {X: 1, Y: 0}}, 0},
		{"empty", DefaultStroke(), nil, 0},
		{"dot butt", Stroke{Width: 2, Cap: vg.CapButt}, pt, 0},
		{"dot square", Stroke{Width: 2, Cap: vg.CapSquare}, pt, 1},
		{"dot round", Stroke{Width: 2, Cap: vg.CapRound}, pt, 1},
		{"closed two points", DefaultStroke(), []vg.Point{{X: 0, Y: 0}, {X: 5, Y: 0}}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewOutliner(tt.style).Outline(nil, tt.in, tt.name == "closed two points")
			if len(got) != tt.rings {
				t.Errorf("rings = %d, want %d", len(got), tt.rings)
			}
		})
	}
}

func TestFromStyle(t *testing.T) {
	s := vg.DefaultStyle()
	s.StrokeWidth = 3
	s.LineCap = vg.CapRound
	st := FromStyle(s, 2)
	if st.Width != 6 || st.Cap != vg.CapRound || st.MiterLimit != vg.DefaultMiterLimit {
		t.Errorf("FromStyle = %+v", st)
	}
}
