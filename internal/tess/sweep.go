// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package tess

// The sweep moves a vertical line across the vertices in (s, t) order.
// Active edges crossing the line are kept in the edge dictionary; the
// regions between them carry the winding number. Every face of the mesh
// that is finished by the sweep is marked inside or outside, and by
// construction each inside face is monotone in s.

func (t *Tessellator) isWindingInside(n int) bool {
	switch t.rule {
	case WindingOdd:
		return n&1 != 0
	case WindingNonZero:
		return n != 0
	case WindingPositive:
		return n > 0
	case WindingNegative:
		return n < 0
	case WindingAbsGeqTwo:
		return n >= 2 || n <= -2
	}
	return false
}

func (t *Tessellator) deleteRegion(r int) {
	m := t.m
	if m.r[r].fixUpperEdge && m.e[m.r[r].eUp].winding != 0 {
		t.invariant("temporary edge with non-zero winding")
	}
	m.e[m.r[r].eUp].region = nilIdx
	t.dictDelete(m.r[r].nodeUp)
}

// fixUpperEdge replaces the temporary upper edge of r with newEdge.
func (t *Tessellator) fixUpperEdge(r, newEdge int) {
	m := t.m
	m.deleteEdge(m.r[r].eUp)
	m.r[r].fixUpperEdge = false
	m.r[r].eUp = newEdge
	m.e[newEdge].region = r
}

func (t *Tessellator) topLeftRegion(r int) int {
	m := t.m
	org := m.e[m.r[r].eUp].org
	for {
		r = t.regionAbove(r)
		if m.e[m.r[r].eUp].org != org {
			break
		}
	}
	if m.r[r].fixUpperEdge {
		e := m.connect(m.r[t.regionBelow(r)].eUp^1, m.e[m.r[r].eUp].lnext)
		t.fixUpperEdge(r, e)
		r = t.regionAbove(r)
	}
	return r
}

func (t *Tessellator) topRightRegion(r int) int {
	m := t.m
	dst := m.dst(m.r[r].eUp)
	for {
		r = t.regionAbove(r)
		if m.dst(m.r[r].eUp) != dst {
			return r
		}
	}
}

// addRegionBelow inserts a new region just below regAbove, bounded above
// by eNewUp.
func (t *Tessellator) addRegionBelow(regAbove, eNewUp int) int {
	m := t.m
	r := m.newRegion(eNewUp)
	node := t.dictInsertBefore(m.r[regAbove].nodeUp, r)
	m.r[r].nodeUp = node
	m.e[eNewUp].region = r
	return r
}

func (t *Tessellator) computeWinding(r int) {
	m := t.m
	m.r[r].windingNumber = m.r[t.regionAbove(r)].windingNumber + m.e[m.r[r].eUp].winding
	m.r[r].inside = t.isWindingInside(m.r[r].windingNumber)
}

// finishRegion marks the face left of the region's upper edge and drops
// the region.
func (t *Tessellator) finishRegion(r int) {
	m := t.m
	e := m.r[r].eUp
	f := m.e[e].lface
	m.f[f].inside = m.r[r].inside
	m.f[f].anEdge = e
	t.deleteRegion(r)
}

// finishLeftRegions finishes the regions from regFirst down to regLast
// (exclusive; nilIdx for all regions sharing the origin) and links their
// edges into the Org ring of the event. It returns the bottommost
// left-going edge.
func (t *Tessellator) finishLeftRegions(regFirst, regLast int) int {
	m := t.m
	regPrev := regFirst
	ePrev := m.r[regFirst].eUp
	for regPrev != regLast {
		m.r[regPrev].fixUpperEdge = false
		reg := t.regionBelow(regPrev)
		e := m.r[reg].eUp
		if m.e[e].org != m.e[ePrev].org {
			if !m.r[reg].fixUpperEdge {
				t.finishRegion(regPrev)
				break
			}
			e = m.connect(m.lprev(ePrev), e^1)
			t.fixUpperEdge(reg, e)
		}
		if m.e[ePrev].onext != e {
			m.meshSplice(m.oprev(e), e)
			m.meshSplice(ePrev, e)
		}
		t.finishRegion(regPrev)
		ePrev = m.r[reg].eUp
		regPrev = reg
	}
	return ePrev
}

func (m *mesh) addWinding(eDst, eSrc int) {
	m.e[eDst].winding += m.e[eSrc].winding
	m.e[eDst^1].winding += m.e[eSrc^1].winding
}

// addRightEdges inserts the right-going edges eFirst..eLast (exclusive,
// in Onext order) below regUp and computes their regions' windings.
func (t *Tessellator) addRightEdges(regUp, eFirst, eLast, eTopLeft int, cleanUp bool) {
	m := t.m
	e := eFirst
	for {
		t.addRegionBelow(regUp, e^1)
		e = m.e[e].onext
		if e == eLast {
			break
		}
	}
	if eTopLeft == nilIdx {
		eTopLeft = m.rprev(m.r[t.regionBelow(regUp)].eUp)
	}
	regPrev := regUp
	ePrev := eTopLeft
	firstTime := true
	var reg int
	for {
		reg = t.regionBelow(regPrev)
		e = m.r[reg].eUp ^ 1
		if m.e[e].org != m.e[ePrev].org {
			break
		}
		if m.e[e].onext != ePrev {
			m.meshSplice(m.oprev(e), e)
			m.meshSplice(m.oprev(ePrev), e)
		}
		m.r[reg].windingNumber = m.r[regPrev].windingNumber - m.e[e].winding
		m.r[reg].inside = t.isWindingInside(m.r[reg].windingNumber)
		m.r[regPrev].dirty = true
		if !firstTime && t.checkForRightSplice(regPrev) {
			m.addWinding(e, ePrev)
			t.deleteRegion(regPrev)
			m.deleteEdge(ePrev)
		}
		firstTime = false
		regPrev = reg
		ePrev = e
	}
	m.r[regPrev].dirty = true
	if cleanUp {
		t.walkDirtyRegions(regPrev)
	}
}

func (t *Tessellator) spliceMergeVertices(e1, e2 int) {
	t.m.meshSplice(e1, e2)
}

// checkForRightSplice handles the case where the origins of the edges
// above and below regUp are not in the expected order. One edge is split
// at the other's origin and the two are spliced together.
func (t *Tessellator) checkForRightSplice(regUp int) bool {
	m := t.m
	regLo := t.regionBelow(regUp)
	eUp := m.r[regUp].eUp
	eLo := m.r[regLo].eUp
	if m.vertLeq(m.e[eUp].org, m.e[eLo].org) {
		if m.edgeSign(m.dst(eLo), m.e[eUp].org, m.e[eLo].org) > 0 {
			return false
		}
		if !m.vertEq(m.e[eUp].org, m.e[eLo].org) {
			m.splitEdge(eLo ^ 1)
			m.meshSplice(eUp, m.oprev(eLo))
			m.r[regUp].dirty = true
			m.r[regLo].dirty = true
		} else if m.e[eUp].org != m.e[eLo].org {
			t.queue().remove(m.e[eUp].org)
			t.spliceMergeVertices(m.oprev(eLo), eUp)
		}
	} else {
		if m.edgeSign(m.dst(eUp), m.e[eLo].org, m.e[eUp].org) < 0 {
			return false
		}
		m.r[t.regionAbove(regUp)].dirty = true
		m.r[regUp].dirty = true
		m.splitEdge(eUp ^ 1)
		m.meshSplice(m.oprev(eLo), eUp)
	}
	return true
}

// checkForLeftSplice is the mirror of checkForRightSplice for the
// destinations of the two edges.
func (t *Tessellator) checkForLeftSplice(regUp int) bool {
	m := t.m
	regLo := t.regionBelow(regUp)
	eUp := m.r[regUp].eUp
	eLo := m.r[regLo].eUp
	if m.vertLeq(m.dst(eUp), m.dst(eLo)) {
		if m.edgeSign(m.dst(eUp), m.dst(eLo), m.e[eUp].org) < 0 {
			return false
		}
		m.r[t.regionAbove(regUp)].dirty = true
		m.r[regUp].dirty = true
		e := m.splitEdge(eUp)
		m.meshSplice(eLo^1, e)
		m.f[m.e[e].lface].inside = m.r[regUp].inside
	} else {
		if m.edgeSign(m.dst(eLo), m.dst(eUp), m.e[eLo].org) > 0 {
			return false
		}
		m.r[regUp].dirty = true
		m.r[regLo].dirty = true
		e := m.splitEdge(eLo)
		m.meshSplice(m.e[eUp].lnext, eLo^1)
		m.f[m.rface(e)].inside = m.r[regUp].inside
	}
	return true
}

// checkForIntersect tests the edges above and below regUp for an
// intersection to the right of the event. A found intersection becomes a
// new vertex on both edges and a new event. It returns true if the
// regions above regUp were changed and the caller must stop walking.
func (t *Tessellator) checkForIntersect(regUp int) bool {
	m := t.m
	regLo := t.regionBelow(regUp)
	eUp := m.r[regUp].eUp
	eLo := m.r[regLo].eUp
	orgUp, orgLo := m.e[eUp].org, m.e[eLo].org
	dstUp, dstLo := m.dst(eUp), m.dst(eLo)
	ev := t.event

	if orgUp == orgLo {
		return false
	}
	tMinUp := min(m.v[orgUp].t, m.v[dstUp].t)
	tMaxLo := max(m.v[orgLo].t, m.v[dstLo].t)
	if tMinUp > tMaxLo {
		return false
	}
	if m.vertLeq(orgUp, orgLo) {
		if m.edgeSign(dstLo, orgUp, orgLo) > 0 {
			return false
		}
	} else if m.edgeSign(dstUp, orgLo, orgUp) < 0 {
		return false
	}

	isect := intersect(m.st(dstUp), m.st(orgUp), m.st(dstLo), m.st(orgLo))
	evp := m.st(ev)
	if leq(isect, evp) {
		// Round-off pushed the point to the left of the sweep line.
		isect = evp
	}
	orgMin := orgLo
	if m.vertLeq(orgUp, orgLo) {
		orgMin = orgUp
	}
	if leq(m.st(orgMin), isect) {
		isect = m.st(orgMin)
	}
	if isect == m.st(orgUp) || isect == m.st(orgLo) {
		t.checkForRightSplice(regUp)
		return false
	}

	if (!m.vertEq(dstUp, ev) && edgeSign(m.st(dstUp), evp, isect) >= 0) ||
		(!m.vertEq(dstLo, ev) && edgeSign(m.st(dstLo), evp, isect) <= 0) {
		// The intersection is very close to the event. Split the edge that
		// passes through the event instead of adding a new vertex.
		if dstLo == ev {
			m.splitEdge(eUp ^ 1)
			m.meshSplice(eLo^1, eUp)
			regUp = t.topLeftRegion(regUp)
			eUp = m.r[t.regionBelow(regUp)].eUp
			t.finishLeftRegions(t.regionBelow(regUp), regLo)
			t.addRightEdges(regUp, m.oprev(eUp), eUp, eUp, true)
			return true
		}
		if dstUp == ev {
			m.splitEdge(eLo ^ 1)
			m.meshSplice(m.e[eUp].lnext, m.oprev(eLo))
			regLo = regUp
			regUp = t.topRightRegion(regUp)
			e := m.rprev(m.r[t.regionBelow(regUp)].eUp)
			m.r[regLo].eUp = m.oprev(eLo)
			eLo = t.finishLeftRegions(regLo, nilIdx)
			t.addRightEdges(regUp, m.e[eLo].onext, m.rprev(eUp), e, true)
			return true
		}
		if edgeSign(m.st(dstUp), evp, isect) >= 0 {
			m.r[t.regionAbove(regUp)].dirty = true
			m.r[regUp].dirty = true
			m.splitEdge(eUp ^ 1)
			o := m.e[eUp].org
			m.v[o].s, m.v[o].t = evp.s, evp.t
		}
		if edgeSign(m.st(dstLo), evp, isect) <= 0 {
			m.r[regUp].dirty = true
			m.r[regLo].dirty = true
			m.splitEdge(eLo ^ 1)
			o := m.e[eLo].org
			m.v[o].s, m.v[o].t = evp.s, evp.t
		}
		return false
	}

	// General case: split both edges, splice them at the new vertex and
	// schedule it as an event.
	m.splitEdge(eUp ^ 1)
	m.splitEdge(eLo ^ 1)
	m.meshSplice(m.oprev(eLo), eUp)
	o := m.e[eUp].org
	m.v[o].s, m.v[o].t = isect.s, isect.t
	t.queue().insert(o)
	m.r[t.regionAbove(regUp)].dirty = true
	m.r[regUp].dirty = true
	m.r[regLo].dirty = true
	return false
}

// walkDirtyRegions restores the dictionary invariants for every region
// marked dirty, starting at regUp and moving down and up as needed.
func (t *Tessellator) walkDirtyRegions(regUp int) {
	m := t.m
	regLo := t.regionBelow(regUp)
	for {
		for m.r[regLo].dirty {
			below := t.regionBelow(regLo)
			if below == nilIdx {
				m.r[regLo].dirty = false
				break
			}
			regUp = regLo
			regLo = below
		}
		if !m.r[regUp].dirty {
			regLo = regUp
			regUp = t.regionAbove(regUp)
			if regUp == nilIdx || !m.r[regUp].dirty {
				return
			}
		}
		m.r[regUp].dirty = false
		eUp := m.r[regUp].eUp
		eLo := m.r[regLo].eUp

		if m.dst(eUp) != m.dst(eLo) {
			if t.checkForLeftSplice(regUp) {
				switch {
				case m.r[regLo].fixUpperEdge:
					t.deleteRegion(regLo)
					m.deleteEdge(eLo)
					regLo = t.regionBelow(regUp)
					eLo = m.r[regLo].eUp
				case m.r[regUp].fixUpperEdge:
					t.deleteRegion(regUp)
					m.deleteEdge(eUp)
					regUp = t.regionAbove(regLo)
					eUp = m.r[regUp].eUp
				}
			}
		}
		if m.e[eUp].org != m.e[eLo].org {
			if m.dst(eUp) != m.dst(eLo) && !m.r[regUp].fixUpperEdge && !m.r[regLo].fixUpperEdge &&
				(m.dst(eUp) == t.event || m.dst(eLo) == t.event) {
				if t.checkForIntersect(regUp) {
					return
				}
			} else {
				t.checkForRightSplice(regUp)
			}
		}
		if m.e[eUp].org == m.e[eLo].org && m.dst(eUp) == m.dst(eLo) {
			// Two edges with the same endpoints: merge their windings.
			m.addWinding(eLo, eUp)
			t.deleteRegion(regUp)
			m.deleteEdge(eUp)
			regUp = t.regionAbove(regLo)
		}
	}
}

// connectRightVertex handles an event with no right-going edges. The
// region below the event is closed off by connecting the event to a
// vertex further right, so that every face stays monotone.
func (t *Tessellator) connectRightVertex(regUp, eBottomLeft int) {
	m := t.m
	eTopLeft := m.e[eBottomLeft].onext
	regLo := t.regionBelow(regUp)
	eUp := m.r[regUp].eUp
	eLo := m.r[regLo].eUp
	degenerate := false

	if m.dst(eUp) != m.dst(eLo) {
		if t.checkForIntersect(regUp) {
			return
		}
	}
	if m.vertEq(m.e[eUp].org, t.event) {
		m.meshSplice(m.oprev(eTopLeft), eUp)
		regUp = t.topLeftRegion(regUp)
		eTopLeft = m.r[t.regionBelow(regUp)].eUp
		t.finishLeftRegions(t.regionBelow(regUp), regLo)
		degenerate = true
	}
	if m.vertEq(m.e[eLo].org, t.event) {
		m.meshSplice(eBottomLeft, m.oprev(eLo))
		eBottomLeft = t.finishLeftRegions(regLo, nilIdx)
		degenerate = true
	}
	if degenerate {
		t.addRightEdges(regUp, m.e[eBottomLeft].onext, eTopLeft, eTopLeft, true)
		return
	}

	// Connect to the leftmost of the two origins.
	eNew := eUp
	if m.vertLeq(m.e[eLo].org, m.e[eUp].org) {
		eNew = m.oprev(eLo)
	}
	eNew = m.connect(m.lprev(eBottomLeft), eNew)
	t.addRightEdges(regUp, eNew, m.e[eNew].onext, m.e[eNew].onext, false)
	m.r[m.e[eNew^1].region].fixUpperEdge = true
	t.walkDirtyRegions(regUp)
}

// connectLeftDegenerate handles an event that lies on an active edge.
func (t *Tessellator) connectLeftDegenerate(regUp, vEvent int) {
	m := t.m
	e := m.r[regUp].eUp
	if m.vertEq(m.e[e].org, vEvent) {
		t.spliceMergeVertices(e, m.v[vEvent].anEdge)
		return
	}
	if !m.vertEq(m.dst(e), vEvent) {
		// Split e at the event and splice the event's edges into it.
		m.splitEdge(e ^ 1)
		if m.r[regUp].fixUpperEdge {
			m.deleteEdge(m.e[e].onext)
			m.r[regUp].fixUpperEdge = false
		}
		m.meshSplice(m.v[vEvent].anEdge, e)
		t.sweepEvent(vEvent)
		return
	}

	// The event coincides with e.Dst, which was already processed.
	regUp = t.topRightRegion(regUp)
	reg := t.regionBelow(regUp)
	eTopRight := m.r[reg].eUp ^ 1
	eTopLeft := m.e[eTopRight].onext
	eLast := eTopLeft
	if m.r[reg].fixUpperEdge {
		t.deleteRegion(reg)
		m.deleteEdge(eTopRight)
		eTopRight = m.oprev(eTopLeft)
	}
	m.meshSplice(m.v[vEvent].anEdge, eTopRight)
	if !m.edgeGoesLeft(eTopLeft) {
		eTopLeft = nilIdx
	}
	t.addRightEdges(regUp, m.e[eTopRight].onext, eLast, eTopLeft, true)
}

// connectLeftVertex handles an event with no left-going edges: it opens
// new regions, connecting the event to the left when it falls inside.
func (t *Tessellator) connectLeftVertex(vEvent int) {
	m := t.m
	regUp := m.d[t.dictSearch(m.v[vEvent].anEdge^1)].key
	if regUp == nilIdx {
		return
	}
	regLo := t.regionBelow(regUp)
	if regLo == nilIdx {
		return
	}
	eUp := m.r[regUp].eUp
	eLo := m.r[regLo].eUp

	if m.edgeSign(m.dst(eUp), vEvent, m.e[eUp].org) == 0 {
		t.connectLeftDegenerate(regUp, vEvent)
		return
	}

	reg := regLo
	if m.vertLeq(m.dst(eLo), m.dst(eUp)) {
		reg = regUp
	}
	if m.r[regUp].inside || m.r[reg].fixUpperEdge {
		var eNew int
		if reg == regUp {
			eNew = m.connect(m.v[vEvent].anEdge^1, m.e[eUp].lnext)
		} else {
			eNew = m.connect(m.dnext(eLo), m.v[vEvent].anEdge) ^ 1
		}
		if m.r[reg].fixUpperEdge {
			t.fixUpperEdge(reg, eNew)
		} else {
			t.computeWinding(t.addRegionBelow(regUp, eNew))
		}
		t.sweepEvent(vEvent)
		return
	}
	t.addRightEdges(regUp, m.v[vEvent].anEdge, m.v[vEvent].anEdge, nilIdx, true)
}

// sweepEvent processes one event vertex.
func (t *Tessellator) sweepEvent(vEvent int) {
	m := t.m
	t.event = vEvent

	e := m.v[vEvent].anEdge
	for m.e[e].region == nilIdx {
		e = m.e[e].onext
		if e == m.v[vEvent].anEdge {
			t.connectLeftVertex(vEvent)
			return
		}
	}

	regUp := t.topLeftRegion(m.e[e].region)
	reg := t.regionBelow(regUp)
	eTopLeft := m.r[reg].eUp
	eBottomLeft := t.finishLeftRegions(reg, nilIdx)

	if m.e[eBottomLeft].onext == eTopLeft {
		t.connectRightVertex(regUp, eBottomLeft)
	} else {
		t.addRightEdges(regUp, m.e[eBottomLeft].onext, eTopLeft, eTopLeft, true)
	}
}

// addSentinel adds a horizontal edge at height tt spanning the whole
// input, so that every event has a region above and below it.
func (t *Tessellator) addSentinel(smin, smax, tt float64) {
	m := t.m
	e := m.newEdge()
	o, d := m.e[e].org, m.dst(e)
	m.v[o].s, m.v[o].t = smax, tt
	m.v[d].s, m.v[d].t = smin, tt
	t.event = d

	r := m.newRegion(e)
	m.r[r].sentinel = true
	m.r[r].nodeUp = t.dictInsertBefore(dictHead, r)
	m.e[e].region = r
}

func (t *Tessellator) initEdgeDict() {
	t.dictInit()
	w := t.bmax.s - t.bmin.s
	h := t.bmax.t - t.bmin.t
	smin, smax := t.bmin.s-w-1, t.bmax.s+w+1
	tmin, tmax := t.bmin.t-h-1, t.bmax.t+h+1
	t.addSentinel(smin, smax, tmin)
	t.addSentinel(smin, smax, tmax)
}

func (t *Tessellator) doneEdgeDict() {
	m := t.m
	for {
		r := m.d[m.d[dictHead].next].key
		if r == nilIdx {
			return
		}
		if !m.r[r].sentinel && !m.r[r].fixUpperEdge {
			t.invariant("non-sentinel region left after sweep")
		}
		t.deleteRegion(r)
	}
}

// removeDegenerateEdges merges zero-length edges and drops contours with
// fewer than three edges.
func (t *Tessellator) removeDegenerateEdges() {
	m := t.m
	var eNext int
	for e := m.e[eHead].next; e != eHead; e = eNext {
		eNext = m.e[e].next
		eLnext := m.e[e].lnext

		if m.vertEq(m.e[e].org, m.dst(e)) && m.e[eLnext].lnext != e {
			t.spliceMergeVertices(eLnext, e)
			m.deleteEdge(e)
			e = eLnext
			eLnext = m.e[e].lnext
		}
		if m.e[eLnext].lnext == e {
			if eLnext != e {
				if eLnext == eNext || eLnext == eNext^1 {
					eNext = m.e[eNext].next
				}
				m.deleteEdge(eLnext)
			}
			if e == eNext || e == eNext^1 {
				eNext = m.e[eNext].next
			}
			m.deleteEdge(e)
		}
	}
}

// removeDegenerateFaces deletes faces with only two edges, folding their
// winding into the neighbouring edge.
func (t *Tessellator) removeDegenerateFaces() {
	m := t.m
	var fNext int
	for f := m.f[fHead].next; f != fHead; f = fNext {
		fNext = m.f[f].next
		e := m.f[f].anEdge
		if m.e[m.e[e].lnext].lnext == e {
			m.addWinding(m.e[e].onext, e)
			m.deleteEdge(e)
		}
	}
}

// computeInterior runs the sweep and leaves every face of the mesh marked
// inside or outside.
func (t *Tessellator) computeInterior() {
	m := t.m
	t.removeDegenerateEdges()
	q := t.queue()
	q.init()
	t.initEdgeDict()

	for v := q.extractMin(); v != nilIdx; v = q.extractMin() {
		for {
			next := q.min()
			if next == nilIdx || !m.vertEq(next, v) {
				break
			}
			next = q.extractMin()
			t.spliceMergeVertices(m.v[v].anEdge, m.v[next].anEdge)
		}
		t.sweepEvent(v)
	}

	t.event = m.e[m.r[m.d[m.d[dictHead].next].key].eUp].org
	t.doneEdgeDict()
	t.removeDegenerateFaces()
}
