// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package tess

import "errors"

// ErrOutOfMemory is returned when a tessellation needs more mesh elements
// than the arena allows. The output of the draw must be discarded.
var ErrOutOfMemory = errors.New("tess: arena element limit exceeded")

// nilIdx marks a missing element reference.
const nilIdx = -1

// Arena owns all working memory of a tessellation: mesh vertices, faces
// and half-edges, sweep regions and dictionary nodes. Elements refer to
// each other by index, so the whole structure, cycles included, is
// released at once by Reset.
//
// An Arena is used by one Tessellator at a time and can be reused for the
// next draw after Reset.
type Arena struct {
	// MaxElements bounds the total number of elements allocated between
	// resets. Zero means unlimited.
	MaxElements int

	mesh mesh
}

// NewArena creates an arena with the given element limit.
func NewArena(maxElements int) *Arena {
	return &Arena{MaxElements: maxElements}
}

// Reset releases all elements while keeping the allocated capacity.
func (a *Arena) Reset() {
	m := &a.mesh
	m.v = m.v[:0]
	m.f = m.f[:0]
	m.e = m.e[:0]
	m.r = m.r[:0]
	m.d = m.d[:0]
	m.heap = m.heap[:0]
	m.limit = a.MaxElements
}

// Len returns the number of elements allocated since the last Reset.
func (a *Arena) Len() int { return a.mesh.count() }

// outOfMemory is the panic value used to unwind a tessellation that hit
// the arena limit.
type outOfMemory struct{}

func (m *mesh) count() int {
	return len(m.v) + len(m.f) + len(m.e) + len(m.r) + len(m.d)
}

func (m *mesh) reserve(n int) {
	if m.limit > 0 && m.count()+n > m.limit {
		panic(outOfMemory{})
	}
}
