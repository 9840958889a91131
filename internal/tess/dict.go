// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package tess

// region is the area between two adjacent active edges. eUp is the edge
// above the region; the edge below is the eUp of the region below.
type region struct {
	eUp           int
	nodeUp        int
	windingNumber int
	inside        bool
	sentinel      bool
	dirty         bool
	fixUpperEdge  bool
}

// dictNode is an element of the edge dictionary: a doubly linked list of
// regions sorted bottom to top along the sweep line. Node 0 is the head;
// its key is nilIdx.
type dictNode struct {
	key        int
	next, prev int
}

const dictHead = 0

func (m *mesh) newRegion(eUp int) int {
	m.reserve(1)
	m.r = append(m.r, region{eUp: eUp, nodeUp: nilIdx})
	return len(m.r) - 1
}

func (t *Tessellator) dictInit() {
	m := t.m
	m.d = append(m.d[:0], dictNode{key: nilIdx, next: dictHead, prev: dictHead})
}

// dictInsertBefore walks down from node until it finds the place for key
// and links a new node there.
func (t *Tessellator) dictInsertBefore(node, key int) int {
	m := t.m
	for {
		node = m.d[node].prev
		if m.d[node].key == nilIdx || t.regionLeq(m.d[node].key, key) {
			break
		}
	}
	m.reserve(1)
	n := len(m.d)
	next := m.d[node].next
	m.d = append(m.d, dictNode{key: key, next: next, prev: node})
	m.d[next].prev = n
	m.d[node].next = n
	return n
}

func (t *Tessellator) dictDelete(node int) {
	m := t.m
	next, prev := m.d[node].next, m.d[node].prev
	m.d[next].prev = prev
	m.d[prev].next = next
}

// dictSearch returns the node of the lowest region whose upper edge lies
// above eUp.
func (t *Tessellator) dictSearch(eUp int) int {
	m := t.m
	node := dictHead
	for {
		node = m.d[node].next
		if m.d[node].key == nilIdx || t.edgeLeq(eUp, m.r[m.d[node].key].eUp) {
			return node
		}
	}
}

func (t *Tessellator) regionBelow(r int) int { return t.m.d[t.m.d[t.m.r[r].nodeUp].prev].key }
func (t *Tessellator) regionAbove(r int) int { return t.m.d[t.m.d[t.m.r[r].nodeUp].next].key }

func (t *Tessellator) regionLeq(r1, r2 int) bool {
	return t.edgeLeq(t.m.r[r1].eUp, t.m.r[r2].eUp)
}

// edgeLeq orders two active edges at the current event. When both edges
// end at the event they are compared by slope; otherwise each edge is
// evaluated at the event's s and the t values are compared.
func (t *Tessellator) edgeLeq(e1, e2 int) bool {
	m := t.m
	ev := t.event
	if m.dst(e1) == ev {
		if m.dst(e2) == ev {
			if m.vertLeq(m.e[e1].org, m.e[e2].org) {
				return m.edgeSign(m.dst(e2), m.e[e1].org, m.e[e2].org) <= 0
			}
			return m.edgeSign(m.dst(e1), m.e[e2].org, m.e[e1].org) >= 0
		}
		return m.edgeSign(m.dst(e2), ev, m.e[e2].org) <= 0
	}
	if m.dst(e2) == ev {
		return m.edgeSign(m.dst(e1), ev, m.e[e1].org) >= 0
	}
	t1 := edgeEval(m.st(m.dst(e1)), m.st(ev), m.st(m.e[e1].org))
	t2 := edgeEval(m.st(m.dst(e2)), m.st(ev), m.st(m.e[e2].org))
	return t1 >= t2
}
