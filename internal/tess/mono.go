// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package tess

// tessellateMonoRegion triangulates a face that is monotone in s. The
// boundary is split into an upper and a lower chain, which are merged from
// left to right while emitting diagonals to every vertex that can be
// reached without leaving the face.
func (t *Tessellator) tessellateMonoRegion(f int) {
	m := t.m
	up := m.f[f].anEdge
	if m.e[up].lnext == up || m.e[m.e[up].lnext].lnext == up {
		return
	}

	// Find the leftmost vertex; up becomes the first edge of the upper
	// chain, lo the last edge of the lower chain.
	for m.vertLeq(m.dst(up), m.e[up].org) {
		up = m.lprev(up)
	}
	for m.vertLeq(m.e[up].org, m.dst(up)) {
		up = m.e[up].lnext
	}
	lo := m.lprev(up)

	for m.e[up].lnext != lo {
		if m.vertLeq(m.dst(up), m.e[lo].org) {
			// up.Dst is on the left: connect the lower chain to it as long
			// as the diagonals stay inside.
			for m.e[lo].lnext != up && (m.edgeGoesLeft(m.e[lo].lnext) ||
				m.edgeSign(m.e[lo].org, m.dst(lo), m.dst(m.e[lo].lnext)) <= 0) {
				lo = m.connect(m.e[lo].lnext, lo) ^ 1
			}
			lo = m.lprev(lo)
		} else {
			for m.e[lo].lnext != up && (m.edgeGoesRight(m.lprev(up)) ||
				m.edgeSign(m.dst(up), m.e[up].org, m.e[m.lprev(up)].org) >= 0) {
				up = m.connect(up, m.lprev(up)) ^ 1
			}
			up = m.e[up].lnext
		}
	}

	// The rightmost vertex is reached; fan out the remaining chain.
	for m.e[m.e[lo].lnext].lnext != up {
		lo = m.connect(m.e[lo].lnext, lo) ^ 1
	}
}

func (t *Tessellator) tessellateInterior() {
	m := t.m
	var next int
	for f := m.f[fHead].next; f != fHead; f = next {
		// Faces created by the split are linked before f and never
		// revisited.
		next = m.f[f].next
		if m.f[f].inside {
			t.tessellateMonoRegion(f)
		}
	}
}

func (m *mesh) internalEdge(e int) bool {
	rf := m.rface(e)
	return rf != nilIdx && m.f[rf].inside
}

// refineDelaunay flips internal edges that are not locally Delaunay. The
// angle test is not exact, so the number of iterations is capped at the
// square of the triangle count. It returns the number of iterations.
func (t *Tessellator) refineDelaunay() int {
	m := t.m
	var stack []int
	faces := 0
	for f := m.f[fHead].next; f != fHead; f = m.f[f].next {
		if !m.f[f].inside {
			continue
		}
		faces++
		e := m.f[f].anEdge
		for {
			if !m.e[e].mark && m.internalEdge(e) {
				m.e[e].mark = true
				m.e[e^1].mark = true
				stack = append(stack, e)
			}
			e = m.e[e].lnext
			if e == m.f[f].anEdge {
				break
			}
		}
	}

	maxIter := faces * faces
	iter := 0
	for len(stack) > 0 && iter < maxIter {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		m.e[e].mark = false
		m.e[e^1].mark = false
		if !m.locallyDelaunay(e) {
			m.flipEdge(e)
			opposite := [4]int{
				m.e[e].lnext,
				m.e[m.e[e].lnext].lnext,
				m.e[e^1].lnext,
				m.e[m.e[e^1].lnext].lnext,
			}
			for _, o := range opposite {
				if !m.e[o].mark && m.internalEdge(o) {
					m.e[o].mark = true
					m.e[o^1].mark = true
					stack = append(stack, o)
				}
			}
		}
		iter++
	}
	return iter
}
