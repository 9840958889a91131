package mesh

import (
	"github.com/gogpu/vg/gpucore"
	"github.com/gogpu/vg/transfer"
)

// Entry places one mesh in a MeshSet. Offsets count elements, not bytes;
// the mesh's indices are relative to VertexOffset.
type Entry struct {
	Key          Key
	IndexOffset  uint32
	IndexCount   uint32
	VertexOffset uint32
	VertexCount  uint32
}

// MeshSet is a consolidated pair of device buffers holding the meshes of
// an attachment back to back. An empty set has no buffers.
type MeshSet struct {
	Index   gpucore.Buffer
	Vertex  gpucore.Buffer
	Entries []Entry

	// Generation counts the sets published by the attachment, starting
	// at 1.
	Generation uint64

	res *transfer.Result
}

// Keys returns the meshes of the set in placement order.
func (s *MeshSet) Keys() []Key {
	if s == nil {
		return nil
	}
	keys := make([]Key, len(s.Entries))
	for i, e := range s.Entries {
		keys[i] = e.Key
	}
	return keys
}

// Lookup returns the placement of key.
func (s *MeshSet) Lookup(key Key) (Entry, bool) {
	if s == nil {
		return Entry{}, false
	}
	for _, e := range s.Entries {
		if e.Key == key {
			return e, true
		}
	}
	return Entry{}, false
}

// Contains reports whether key is in the set.
func (s *MeshSet) Contains(key Key) bool {
	_, ok := s.Lookup(key)
	return ok
}

// release destroys the consolidated buffers.
func (s *MeshSet) release() {
	if s == nil {
		return
	}
	s.res.Destroy()
	s.res, s.Index, s.Vertex = nil, nil, nil
}
