// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package tess

import "container/heap"

// eventQueue is a min-heap of vertices ordered by (s, t). Each vertex keeps
// its heap position in pqHandle so that it can be removed early.
type eventQueue struct{ m *mesh }

func (q eventQueue) Len() int { return len(q.m.heap) }

func (q eventQueue) Less(i, j int) bool {
	return q.m.vertLeq(q.m.heap[i], q.m.heap[j])
}

func (q eventQueue) Swap(i, j int) {
	h := q.m.heap
	h[i], h[j] = h[j], h[i]
	q.m.v[h[i]].pqHandle = i
	q.m.v[h[j]].pqHandle = j
}

func (q eventQueue) Push(x any) {
	v := x.(int)
	q.m.v[v].pqHandle = len(q.m.heap)
	q.m.heap = append(q.m.heap, v)
}

func (q eventQueue) Pop() any {
	h := q.m.heap
	v := h[len(h)-1]
	q.m.heap = h[:len(h)-1]
	q.m.v[v].pqHandle = nilIdx
	return v
}

func (q eventQueue) insert(v int) { heap.Push(q, v) }

func (q eventQueue) min() int {
	if len(q.m.heap) == 0 {
		return nilIdx
	}
	return q.m.heap[0]
}

func (q eventQueue) extractMin() int {
	if len(q.m.heap) == 0 {
		return nilIdx
	}
	return heap.Pop(q).(int)
}

func (q eventQueue) remove(v int) {
	if i := q.m.v[v].pqHandle; i != nilIdx {
		heap.Remove(q, i)
	}
}

// init builds the queue from every vertex in the mesh.
func (q eventQueue) init() {
	q.m.heap = q.m.heap[:0]
	for v := q.m.v[vHead].next; v != vHead; v = q.m.v[v].next {
		q.m.v[v].pqHandle = len(q.m.heap)
		q.m.heap = append(q.m.heap, v)
	}
	heap.Init(q)
}
