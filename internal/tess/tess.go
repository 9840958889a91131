// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package tess

import (
	"math"

	"github.com/gogpu/vg"
)

// WindingRule decides which regions of the input are filled, based on the
// winding number of each region.
type WindingRule uint8

const (
	// WindingOdd fills regions with an odd winding number.
	WindingOdd WindingRule = iota
	// WindingNonZero fills regions with a non-zero winding number.
	WindingNonZero
	// WindingPositive fills regions with a positive winding number.
	WindingPositive
	// WindingNegative fills regions with a negative winding number.
	WindingNegative
	// WindingAbsGeqTwo fills regions whose winding number is at least 2 in
	// absolute value.
	WindingAbsGeqTwo
)

// String returns the rule name.
func (w WindingRule) String() string {
	switch w {
	case WindingOdd:
		return "Odd"
	case WindingNonZero:
		return "NonZero"
	case WindingPositive:
		return "Positive"
	case WindingNegative:
		return "Negative"
	case WindingAbsGeqTwo:
		return "AbsGeqTwo"
	}
	return "Unknown"
}

// RuleFor maps a path fill rule to a winding rule.
func RuleFor(w vg.Winding) WindingRule {
	if w == vg.EvenOdd {
		return WindingOdd
	}
	return WindingNonZero
}

// DefaultAAWidth is the rim width used when Options.AAWidth is not set.
const DefaultAAWidth = 1.0

// Options control a single tessellation.
type Options struct {
	// Winding selects the fill rule.
	Winding WindingRule

	// Antialias adds a feathered rim around the filled area: every
	// boundary vertex gets an outer twin at distance AAWidth with
	// intensity 0, and every boundary edge becomes a quad between the two.
	Antialias bool

	// AAWidth is the rim width in input units. Zero means DefaultAAWidth.
	AAWidth float64

	// Delaunay enables edge-flip refinement of the triangulation.
	Delaunay bool
}

// Result is an indexed triangle list.
type Result struct {
	Vertices []vg.Point

	// Intensity holds one coverage value per vertex: 1 for vertices of the
	// filled area, 0 for the outer rim.
	Intensity []float32

	// Indices holds three entries per triangle, counter-clockwise in a
	// y-up frame. The first SolidIndexCount entries are the filled area,
	// the rest are rim triangles.
	Indices []uint32

	SolidIndexCount int

	// DelaunayIterations is the number of edge-flip iterations performed.
	DelaunayIterations int
}

// Triangles returns the number of triangles in r.
func (r *Result) Triangles() int { return len(r.Indices) / 3 }

// Tessellator converts a set of closed contours into triangles covering the
// area selected by a winding rule. Self-intersections, overlaps and
// coincident edges are resolved.
//
// A Tessellator is single-use: add all contours, then call Tessellate once.
// It takes over its arena until Tessellate returns.
type Tessellator struct {
	arena *Arena
	m     *mesh

	rule  WindingRule
	event int

	bmin, bmax st
	vertices   int
	err        error
}

// New returns a tessellator working in arena. The arena is reset. A nil
// arena allocates a private one without element limit.
func New(arena *Arena) *Tessellator {
	if arena == nil {
		arena = NewArena(0)
	}
	arena.Reset()
	t := &Tessellator{
		arena: arena,
		m:     &arena.mesh,
		event: nilIdx,
		bmin:  st{math.Inf(1), math.Inf(1)},
		bmax:  st{math.Inf(-1), math.Inf(-1)},
	}
	t.guard(t.m.init)
	return t
}

// AddContour adds a closed ring. The last point connects back to the first;
// a repeated closing point is harmless. Counter-clockwise rings (in a y-up
// frame) add +1 to the winding number of the area they enclose. Points with
// non-finite coordinates are skipped.
func (t *Tessellator) AddContour(points []vg.Point) {
	if t.err != nil {
		return
	}
	t.guard(func() {
		m := t.m
		e := nilIdx
		for _, p := range points {
			if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsInf(p.X, 0) || math.IsInf(p.Y, 0) {
				continue
			}
			if e == nilIdx {
				// A single vertex with a self-loop edge.
				e = m.newEdge()
				m.meshSplice(e, e^1)
			} else {
				m.splitEdge(e)
				e = m.e[e].lnext
			}
			o := m.e[e].org
			m.v[o].s, m.v[o].t = p.X, p.Y
			m.e[e].winding = 1
			m.e[e^1].winding = -1

			t.bmin.s = min(t.bmin.s, p.X)
			t.bmin.t = min(t.bmin.t, p.Y)
			t.bmax.s = max(t.bmax.s, p.X)
			t.bmax.t = max(t.bmax.t, p.Y)
			t.vertices++
		}
	})
}

// Tessellate runs the sweep and returns the triangles. It returns
// ErrOutOfMemory when the arena limit was reached at any point, including
// while adding contours.
func (t *Tessellator) Tessellate(opts Options) (*Result, error) {
	if t.err != nil {
		return nil, t.err
	}
	t.rule = opts.Winding
	if t.vertices == 0 {
		return &Result{}, nil
	}

	var res *Result
	t.guard(func() {
		t.computeInterior()
		t.tessellateInterior()
		iters := 0
		if opts.Delaunay {
			iters = t.refineDelaunay()
		}
		res = t.export(opts)
		res.DelaunayIterations = iters
	})
	if t.err != nil {
		return nil, t.err
	}
	vg.Logger().Debug("tess: tessellated",
		"vertices", len(res.Vertices),
		"triangles", res.Triangles(),
		"rule", t.rule.String(),
		"arena", t.arena.Len())
	return res, nil
}

// guard runs fn and converts an arena overflow into t.err.
func (t *Tessellator) guard(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(outOfMemory); !ok {
				panic(r)
			}
			t.err = ErrOutOfMemory
		}
	}()
	fn()
}

func (t *Tessellator) invariant(msg string) {
	vg.Logger().Error("tess: invariant violated", "reason", msg)
	panic("tess: " + msg)
}

func (t *Tessellator) queue() eventQueue { return eventQueue{t.m} }

// export emits the inside faces as an indexed triangle list, followed by
// the antialiasing rim when requested.
func (t *Tessellator) export(opts Options) *Result {
	m := t.m
	res := &Result{}

	index := func(v int) uint32 {
		if m.v[v].out == nilIdx {
			m.v[v].out = len(res.Vertices)
			res.Vertices = append(res.Vertices, vg.Point{X: m.v[v].s, Y: m.v[v].t})
			res.Intensity = append(res.Intensity, 1)
		}
		return uint32(m.v[v].out)
	}

	for f := m.f[fHead].next; f != fHead; f = m.f[f].next {
		if !m.f[f].inside {
			continue
		}
		start := m.f[f].anEdge
		first := index(m.e[start].org)
		// Inside faces are triangles after tessellateInterior; a fan keeps
		// the output valid should a larger face slip through.
		for e := m.e[start].lnext; m.e[e].lnext != start; e = m.e[e].lnext {
			res.Indices = append(res.Indices, first, index(m.e[e].org), index(m.dst(e)))
		}
	}
	res.SolidIndexCount = len(res.Indices)

	if opts.Antialias {
		w := opts.AAWidth
		if !(w > 0) {
			w = DefaultAAWidth
		}
		t.exportRim(res, w, index)
	}
	return res
}

// exportRim adds an outer twin for every boundary vertex and two triangles
// per boundary edge.
func (t *Tessellator) exportRim(res *Result, width float64, index func(int) uint32) {
	m := t.m

	type rimVertex struct {
		normal vg.Point
		count  int
		outer  uint32
		placed bool
	}
	rim := make(map[int]*rimVertex)
	var boundary []int

	for f := m.f[fHead].next; f != fHead; f = m.f[f].next {
		if !m.f[f].inside {
			continue
		}
		e := m.f[f].anEdge
		for {
			if !m.internalEdge(e) {
				boundary = append(boundary, e)
				// The face is on the left, so the outward normal is the
				// right-hand normal of the edge.
				d := vg.Point{X: m.v[m.dst(e)].s - m.v[m.e[e].org].s, Y: m.v[m.dst(e)].t - m.v[m.e[e].org].t}
				if l := d.Length(); l > 0 {
					n := vg.Point{X: d.Y / l, Y: -d.X / l}
					for _, v := range [2]int{m.e[e].org, m.dst(e)} {
						rv := rim[v]
						if rv == nil {
							rv = &rimVertex{}
							rim[v] = rv
						}
						rv.normal = rv.normal.Add(n)
						rv.count++
					}
				}
			}
			e = m.e[e].lnext
			if e == m.f[f].anEdge {
				break
			}
		}
	}

	twin := func(v int) *rimVertex {
		rv := rim[v]
		if rv == nil || rv.placed {
			return rv
		}
		rv.placed = true
		avg := rv.normal.Mul(1 / float64(rv.count))
		l2 := avg.Dot(avg)
		var off vg.Point
		switch {
		case l2 < 1e-12:
			off = vg.Point{}
		case l2 < 1.0/16:
			// Sharp spike: limit the rim to four widths.
			off = avg.Mul(4 * width / math.Sqrt(l2))
		default:
			off = avg.Mul(width / l2)
		}
		p := vg.Point{X: m.v[v].s, Y: m.v[v].t}.Add(off)
		rv.outer = uint32(len(res.Vertices))
		res.Vertices = append(res.Vertices, p)
		res.Intensity = append(res.Intensity, 0)
		return rv
	}

	for _, e := range boundary {
		org, dst := m.e[e].org, m.dst(e)
		ro, rd := twin(org), twin(dst)
		if ro == nil || rd == nil {
			continue
		}
		a, b := index(org), index(dst)
		res.Indices = append(res.Indices,
			a, ro.outer, rd.outer,
			a, rd.outer, b,
		)
	}
}
