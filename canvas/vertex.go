package canvas

import (
	"unsafe"

	"honnef.co/go/safeish"

	"github.com/gogpu/vg"
)

// Vertex is the GPU vertex record. Its layout matches the vertex shader
// input: position and color at locations 0 and 1, texture coordinate at 2,
// material and object ids at 3 and 4.
type Vertex struct {
	Position [4]float32
	Color    [4]float32
	TexCoord [2]float32
	Material uint32
	Object   uint32
}

// VertexSize is the byte size of one Vertex.
const VertexSize = int(unsafe.Sizeof(Vertex{}))

// VertexData is an indexed triangle list ready for upload.
type VertexData struct {
	Vertices []Vertex
	Indices  []uint32
}

// Empty reports whether d holds no triangles.
func (d *VertexData) Empty() bool { return d == nil || len(d.Indices) == 0 }

// Triangles returns the number of triangles.
func (d *VertexData) Triangles() int {
	if d == nil {
		return 0
	}
	return len(d.Indices) / 3
}

// VertexBytes returns the vertex array as bytes. The slice aliases d.
func (d *VertexData) VertexBytes() []byte {
	return safeish.SliceCast[[]byte](d.Vertices)
}

// IndexBytes returns the index array as bytes. The slice aliases d.
func (d *VertexData) IndexBytes() []byte {
	return safeish.SliceCast[[]byte](d.Indices)
}

// Bytes returns a freshly allocated buffer holding the vertices followed by
// the indices, and the byte offset of the index block.
func (d *VertexData) Bytes() (data []byte, indexOffset int) {
	vb, ib := d.VertexBytes(), d.IndexBytes()
	data = make([]byte, 0, len(vb)+len(ib))
	data = append(data, vb...)
	data = append(data, ib...)
	return data, len(vb)
}

// appendTriangles appends a tessellation result in path space with the
// given color. Intensity scales the alpha channel.
func (d *VertexData) appendTriangles(pts []vg.Point, intensity []float32, indices []uint32, color [4]float32, object uint32) {
	base := uint32(len(d.Vertices))
	for i, p := range pts {
		c := color
		if i < len(intensity) {
			c[3] *= intensity[i]
		}
		d.Vertices = append(d.Vertices, Vertex{
			Position: [4]float32{float32(p.X), float32(p.Y), 0, 1},
			Color:    c,
			Object:   object,
		})
	}
	for _, i := range indices {
		d.Indices = append(d.Indices, base+i)
	}
}

// Output pairs vertex data with the transform it is drawn under.
type Output struct {
	Transform vg.Mat4
	Data      *VertexData
}
