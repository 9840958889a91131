package mesh

import "honnef.co/go/safeish"

// VertexSize is the size of Vertex in bytes.
const VertexSize = 48

// Vertex is the bundle vertex record.
type Vertex struct {
	Pos   [4]float32
	Norm  [4]float32
	Tex   [2]float32
	User1 uint32
	User2 uint32
}

// Key names a mesh.
type Key string

// Source is the CPU copy of one mesh. Indices address Vertices.
type Source struct {
	Key      Key
	Vertices []Vertex
	Indices  []uint32
}

// Empty reports whether the mesh has nothing to draw.
func (s Source) Empty() bool { return len(s.Indices) == 0 || len(s.Vertices) == 0 }

func (s Source) vertexBytes() []byte { return safeish.SliceCast[[]byte](s.Vertices) }
func (s Source) indexBytes() []byte  { return safeish.SliceCast[[]byte](s.Indices) }

// Library provides meshes by key.
type Library interface {
	Mesh(key Key) (Source, bool)
}

// MapLibrary is a Library backed by a map.
type MapLibrary map[Key]Source

// Mesh implements Library.
func (m MapLibrary) Mesh(key Key) (Source, bool) {
	s, ok := m[key]
	return s, ok
}
