// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package tess

import "math"

// Vertex predicates work on the sweep coordinates (s, t). The sweep line
// moves in increasing s; ties are broken by t.

func (m *mesh) vertEq(u, v int) bool {
	return m.v[u].s == m.v[v].s && m.v[u].t == m.v[v].t
}

func (m *mesh) vertLeq(u, v int) bool {
	a, b := &m.v[u], &m.v[v]
	return a.s < b.s || (a.s == b.s && a.t <= b.t)
}

func (m *mesh) edgeGoesLeft(e int) bool  { return m.vertLeq(m.dst(e), m.e[e].org) }
func (m *mesh) edgeGoesRight(e int) bool { return m.vertLeq(m.e[e].org, m.dst(e)) }

type st struct{ s, t float64 }

func (m *mesh) st(v int) st { return st{m.v[v].s, m.v[v].t} }

func leq(u, v st) bool      { return u.s < v.s || (u.s == v.s && u.t <= v.t) }
func transLeq(u, v st) bool { return u.t < v.t || (u.t == v.t && u.s <= v.s) }

// edgeEval returns the signed t-distance from v to the edge uw, evaluated
// at v.s. Requires u <= v <= w.
func edgeEval(u, v, w st) float64 {
	gapL := v.s - u.s
	gapR := w.s - v.s
	if gapL+gapR > 0 {
		if gapL < gapR {
			return (v.t - u.t) + (u.t-w.t)*(gapL/(gapL+gapR))
		}
		return (v.t - w.t) + (w.t-u.t)*(gapR/(gapL+gapR))
	}
	return 0
}

// edgeSign has the sign of edgeEval but avoids the division.
func edgeSign(u, v, w st) float64 {
	gapL := v.s - u.s
	gapR := w.s - v.s
	if gapL+gapR > 0 {
		return (v.t-w.t)*gapL + (v.t-u.t)*gapR
	}
	return 0
}

func transEval(u, v, w st) float64 {
	return edgeEval(st{u.t, u.s}, st{v.t, v.s}, st{w.t, w.s})
}

func transSign(u, v, w st) float64 {
	return edgeSign(st{u.t, u.s}, st{v.t, v.s}, st{w.t, w.s})
}

func (m *mesh) edgeSign(u, v, w int) float64 { return edgeSign(m.st(u), m.st(v), m.st(w)) }

// interpolate blends x and y with weights proportional to the distances
// b and a. Negative distances count as zero.
func interpolate(a, x, b, y float64) float64 {
	a = max(a, 0)
	b = max(b, 0)
	if a <= b {
		if b == 0 {
			return (x + y) / 2
		}
		return x + (y-x)*(a/(a+b))
	}
	return y + (x-y)*(b/(a+b))
}

// intersect computes the intersection of edges o1d1 and o2d2. The result
// is clamped to the region where the two edges overlap in each coordinate,
// so it is well defined even for nearly parallel edges.
func intersect(o1, d1, o2, d2 st) st {
	var v st
	if !leq(o1, d1) {
		o1, d1 = d1, o1
	}
	if !leq(o2, d2) {
		o2, d2 = d2, o2
	}
	if !leq(o1, o2) {
		o1, o2 = o2, o1
		d1, d2 = d2, d1
	}
	switch {
	case !leq(o2, d1):
		v.s = (o2.s + d1.s) / 2
	case leq(d1, d2):
		z1 := edgeEval(o1, o2, d1)
		z2 := edgeEval(o2, d1, d2)
		if z1+z2 < 0 {
			z1, z2 = -z1, -z2
		}
		v.s = interpolate(z1, o2.s, z2, d1.s)
	default:
		z1 := edgeSign(o1, o2, d1)
		z2 := -edgeSign(o1, d2, d1)
		if z1+z2 < 0 {
			z1, z2 = -z1, -z2
		}
		v.s = interpolate(z1, o2.s, z2, d2.s)
	}

	if !transLeq(o1, d1) {
		o1, d1 = d1, o1
	}
	if !transLeq(o2, d2) {
		o2, d2 = d2, o2
	}
	if !transLeq(o1, o2) {
		o1, o2 = o2, o1
		d1, d2 = d2, d1
	}
	switch {
	case !transLeq(o2, d1):
		v.t = (o2.t + d1.t) / 2
	case transLeq(d1, d2):
		z1 := transEval(o1, o2, d1)
		z2 := transEval(o2, d1, d2)
		if z1+z2 < 0 {
			z1, z2 = -z1, -z2
		}
		v.t = interpolate(z1, o2.t, z2, d1.t)
	default:
		z1 := transSign(o1, o2, d1)
		z2 := -transSign(o1, d2, d1)
		if z1+z2 < 0 {
			z1, z2 = -z1, -z2
		}
		v.t = interpolate(z1, o2.t, z2, d2.t)
	}
	return v
}

// angle returns the angle at b in the triangle abc.
func angle(a, b, c st) float64 {
	ux, uy := a.s-b.s, a.t-b.t
	vx, vy := c.s-b.s, c.t-b.t
	l := math.Sqrt((ux*ux + uy*uy) * (vx*vx + vy*vy))
	if l == 0 {
		return 0
	}
	return math.Acos(max(-1, min(1, (ux*vx+uy*vy)/l)))
}

// locallyDelaunay reports whether the two angles opposite to the shared
// edge e sum to at most pi (with a small slack).
func (m *mesh) locallyDelaunay(e int) bool {
	a := m.e[e].lnext
	b := m.e[e^1].lnext
	sum := angle(m.st(m.e[a].org), m.st(m.dst(a)), m.st(m.e[e].org)) +
		angle(m.st(m.e[b].org), m.st(m.dst(b)), m.st(m.e[e^1].org))
	return sum < math.Pi+0.01
}
