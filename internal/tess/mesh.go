// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package tess

// The mesh is a winged-edge structure stored in flat slices. Half-edges are
// allocated in pairs so that the symmetric half-edge of e is e^1. Element 0
// of the vertex and face slices and edges 0/1 are list heads.
//
// Derived adjacency, for a half-edge e:
//
//	Sym   = e^1             Dst   = Sym.Org
//	Rface = Sym.Lface       Oprev = Sym.Lnext
//	Lprev = Onext.Sym       Dprev = Lnext.Sym
//	Rprev = Sym.Onext       Dnext = Rprev.Sym
//	Rnext = Oprev.Sym

type vertex struct {
	next, prev int
	anEdge     int
	s, t       float64
	pqHandle   int
	out        int
}

type face struct {
	next, prev int
	anEdge     int
	inside     bool
}

type halfEdge struct {
	next    int
	onext   int
	lnext   int
	org     int
	lface   int
	region  int
	winding int
	mark    bool
}

type mesh struct {
	v []vertex
	f []face
	e []halfEdge
	r []region
	d []dictNode

	heap  []int
	limit int
}

const (
	vHead = 0
	fHead = 0
	eHead = 0
)

func (m *mesh) init() {
	m.v = append(m.v, vertex{next: vHead, prev: vHead, anEdge: nilIdx, pqHandle: nilIdx, out: nilIdx})
	m.f = append(m.f, face{next: fHead, prev: fHead, anEdge: nilIdx})
	m.e = append(m.e,
		halfEdge{next: eHead, onext: nilIdx, lnext: nilIdx, org: nilIdx, lface: nilIdx, region: nilIdx},
		halfEdge{next: eHead ^ 1, onext: nilIdx, lnext: nilIdx, org: nilIdx, lface: nilIdx, region: nilIdx},
	)
}

func (m *mesh) dst(e int) int   { return m.e[e^1].org }
func (m *mesh) rface(e int) int { return m.e[e^1].lface }
func (m *mesh) oprev(e int) int { return m.e[e^1].lnext }
func (m *mesh) lprev(e int) int { return m.e[e].onext ^ 1 }
func (m *mesh) rprev(e int) int { return m.e[e^1].onext }
func (m *mesh) dnext(e int) int { return m.e[e^1].onext ^ 1 }

// makeEdgePair creates a new half-edge pair inserted into the edge list
// before eNext. Both halves form their own one-edge loops.
func (m *mesh) makeEdgePair(eNext int) int {
	m.reserve(2)
	e := len(m.e)
	eSym := e + 1
	if eNext&1 == 1 {
		eNext ^= 1
	}
	ePrev := m.e[eNext^1].next
	m.e = append(m.e,
		halfEdge{next: eNext, onext: e, lnext: eSym, org: nilIdx, lface: nilIdx, region: nilIdx},
		halfEdge{next: ePrev, onext: eSym, lnext: e, org: nilIdx, lface: nilIdx, region: nilIdx},
	)
	m.e[ePrev^1].next = e
	m.e[eNext^1].next = eSym
	return e
}

// splice exchanges a.Onext and b.Onext. It joins two Org rings into one or
// splits one into two, and does the dual for the left face rings.
func (m *mesh) splice(a, b int) {
	aOnext := m.e[a].onext
	bOnext := m.e[b].onext
	m.e[aOnext^1].lnext = b
	m.e[bOnext^1].lnext = a
	m.e[a].onext = bOnext
	m.e[b].onext = aOnext
}

// makeVertex attaches a new vertex to every edge in eOrig's Org ring and
// links it into the vertex list before vNext.
func (m *mesh) makeVertex(eOrig, vNext int) int {
	m.reserve(1)
	v := len(m.v)
	vPrev := m.v[vNext].prev
	m.v = append(m.v, vertex{next: vNext, prev: vPrev, anEdge: eOrig, pqHandle: nilIdx, out: nilIdx})
	m.v[vPrev].next = v
	m.v[vNext].prev = v
	e := eOrig
	for {
		m.e[e].org = v
		e = m.e[e].onext
		if e == eOrig {
			break
		}
	}
	return v
}

// makeFace attaches a new face to every edge in eOrig's left ring and
// links it into the face list before fNext.
func (m *mesh) makeFace(eOrig, fNext int) int {
	m.reserve(1)
	f := len(m.f)
	fPrev := m.f[fNext].prev
	m.f = append(m.f, face{next: fNext, prev: fPrev, anEdge: eOrig, inside: m.f[fNext].inside})
	m.f[fPrev].next = f
	m.f[fNext].prev = f
	e := eOrig
	for {
		m.e[e].lface = f
		e = m.e[e].lnext
		if e == eOrig {
			break
		}
	}
	return f
}

func (m *mesh) killEdge(eDel int) {
	if eDel&1 == 1 {
		eDel ^= 1
	}
	eNext := m.e[eDel].next
	ePrev := m.e[eDel^1].next
	m.e[eNext^1].next = ePrev
	m.e[ePrev^1].next = eNext
	m.e[eDel].next = nilIdx
	m.e[eDel^1].next = nilIdx
}

func (m *mesh) killVertex(vDel, newOrg int) {
	eStart := m.v[vDel].anEdge
	e := eStart
	for {
		m.e[e].org = newOrg
		e = m.e[e].onext
		if e == eStart {
			break
		}
	}
	vPrev, vNext := m.v[vDel].prev, m.v[vDel].next
	m.v[vNext].prev = vPrev
	m.v[vPrev].next = vNext
}

func (m *mesh) killFace(fDel, newLface int) {
	eStart := m.f[fDel].anEdge
	e := eStart
	for {
		m.e[e].lface = newLface
		e = m.e[e].lnext
		if e == eStart {
			break
		}
	}
	fPrev, fNext := m.f[fDel].prev, m.f[fDel].next
	m.f[fNext].prev = fPrev
	m.f[fPrev].next = fNext
}

// newEdge creates one edge with two new vertices and a new face: a loop
// consisting of the edge and its symmetric half.
func (m *mesh) newEdge() int {
	e := m.makeEdgePair(eHead)
	m.makeVertex(e, vHead)
	m.makeVertex(e^1, vHead)
	m.makeFace(e, fHead)
	return e
}

// meshSplice is the topological splice with vertex and face bookkeeping:
// rings that become joined lose a vertex or face, rings that get split
// gain one.
func (m *mesh) meshSplice(eOrg, eDst int) {
	if eOrg == eDst {
		return
	}
	joiningVertices := false
	if m.e[eDst].org != m.e[eOrg].org {
		joiningVertices = true
		m.killVertex(m.e[eDst].org, m.e[eOrg].org)
	}
	joiningLoops := false
	if m.e[eDst].lface != m.e[eOrg].lface {
		joiningLoops = true
		m.killFace(m.e[eDst].lface, m.e[eOrg].lface)
	}
	m.splice(eDst, eOrg)
	if !joiningVertices {
		old := m.e[eOrg].org
		v := m.makeVertex(eDst, old)
		m.v[v].s, m.v[v].t = m.v[old].s, m.v[old].t
		m.v[old].anEdge = eOrg
	}
	if !joiningLoops {
		m.makeFace(eDst, m.e[eOrg].lface)
		m.f[m.e[eOrg].lface].anEdge = eOrg
	}
}

// deleteEdge removes eDel, merging or splitting faces and dropping vertices
// that become isolated.
func (m *mesh) deleteEdge(eDel int) {
	eDelSym := eDel ^ 1
	joiningLoops := false
	if m.e[eDel].lface != m.rface(eDel) {
		joiningLoops = true
		m.killFace(m.e[eDel].lface, m.rface(eDel))
	}
	if m.e[eDel].onext == eDel {
		m.killVertex(m.e[eDel].org, nilIdx)
	} else {
		m.f[m.rface(eDel)].anEdge = m.oprev(eDel)
		m.v[m.e[eDel].org].anEdge = m.e[eDel].onext
		m.splice(eDel, m.oprev(eDel))
		if !joiningLoops {
			m.makeFace(eDel, m.e[eDel].lface)
		}
	}
	if m.e[eDelSym].onext == eDelSym {
		m.killVertex(m.e[eDelSym].org, nilIdx)
		m.killFace(m.e[eDelSym].lface, nilIdx)
	} else {
		m.f[m.e[eDel].lface].anEdge = m.oprev(eDelSym)
		m.v[m.e[eDelSym].org].anEdge = m.e[eDelSym].onext
		m.splice(eDelSym, m.oprev(eDelSym))
	}
	m.killEdge(eDel)
}

// addEdgeVertex creates a new edge eNew such that eNew == eOrg.Lnext and
// eNew.Dst is a new vertex. eOrg and eNew share the same left face.
func (m *mesh) addEdgeVertex(eOrg int) int {
	eNew := m.makeEdgePair(eOrg)
	eNewSym := eNew ^ 1
	m.splice(eNew, m.e[eOrg].lnext)
	m.e[eNew].org = m.dst(eOrg)
	m.makeVertex(eNewSym, m.e[eNew].org)
	lf := m.e[eOrg].lface
	m.e[eNew].lface = lf
	m.e[eNewSym].lface = lf
	return eNew
}

// splitEdge splits eOrg into eOrg and eNew such that eNew == eOrg.Lnext.
// The new vertex is eOrg.Dst == eNew.Org.
func (m *mesh) splitEdge(eOrg int) int {
	eNew := m.addEdgeVertex(eOrg) ^ 1
	eOrgSym := eOrg ^ 1
	m.splice(eOrgSym, m.oprev(eOrgSym))
	m.splice(eOrgSym, eNew)
	m.e[eOrgSym].org = m.e[eNew].org
	m.v[m.dst(eNew)].anEdge = eNew ^ 1
	m.e[eNew^1].lface = m.rface(eOrg)
	m.e[eNew].winding = m.e[eOrg].winding
	m.e[eNew^1].winding = m.e[eOrgSym].winding
	return eNew
}

// connect creates an edge from eOrg.Dst to eDst.Org and returns it. If
// the two edges bound the same face, that face is split in two.
func (m *mesh) connect(eOrg, eDst int) int {
	eNew := m.makeEdgePair(eOrg)
	eNewSym := eNew ^ 1
	joiningLoops := false
	if m.e[eDst].lface != m.e[eOrg].lface {
		joiningLoops = true
		m.killFace(m.e[eDst].lface, m.e[eOrg].lface)
	}
	m.splice(eNew, m.e[eOrg].lnext)
	m.splice(eNewSym, eDst)
	m.e[eNew].org = m.dst(eOrg)
	m.e[eNewSym].org = m.e[eDst].org
	lf := m.e[eOrg].lface
	m.e[eNew].lface = lf
	m.e[eNewSym].lface = lf
	m.f[lf].anEdge = eNewSym
	if !joiningLoops {
		m.makeFace(eNew, lf)
	}
	return eNew
}

// flipEdge replaces the diagonal e of the quad formed by its two adjacent
// triangles with the other diagonal.
func (m *mesh) flipEdge(edge int) {
	a0 := edge
	a1 := m.e[a0].lnext
	a2 := m.e[a1].lnext
	b0 := edge ^ 1
	b1 := m.e[b0].lnext
	b2 := m.e[b1].lnext

	aOrg := m.e[a0].org
	aOpp := m.e[a2].org
	bOrg := m.e[b0].org
	bOpp := m.e[b2].org

	fa := m.e[a0].lface
	fb := m.e[b0].lface

	m.e[a0].org = bOpp
	m.e[a0].onext = b1 ^ 1
	m.e[b0].org = aOpp
	m.e[b0].onext = a1 ^ 1
	m.e[a2].onext = b0
	m.e[b2].onext = a0
	m.e[b1].onext = a2 ^ 1
	m.e[a1].onext = b2 ^ 1

	m.e[a0].lnext = a2
	m.e[a2].lnext = b1
	m.e[b1].lnext = a0

	m.e[b0].lnext = b2
	m.e[b2].lnext = a1
	m.e[a1].lnext = b0

	m.e[a1].lface = fb
	m.e[b1].lface = fa

	m.f[fa].anEdge = a0
	m.f[fb].anEdge = b0

	if m.v[aOrg].anEdge == a0 {
		m.v[aOrg].anEdge = b1
	}
	if m.v[bOrg].anEdge == b0 {
		m.v[bOrg].anEdge = a1
	}
}
