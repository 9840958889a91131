package vg

import "math"

// Mat4 is a 4x4 transformation matrix stored in column-major order, the
// layout GPU uniform buffers expect:
//
//	| M[0]  M[4]  M[8]   M[12] |
//	| M[1]  M[5]  M[9]   M[13] |
//	| M[2]  M[6]  M[10]  M[14] |
//	| M[3]  M[7]  M[11]  M[15] |
//
// 2D geometry is transformed as the column vector (x, y, 0, 1).
type Mat4 struct {
	M [16]float64
}

// Identity returns the identity matrix.
func Identity() Mat4 {
	return Mat4{M: [16]float64{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}}
}

// Translate creates a translation matrix.
func Translate(x, y float64) Mat4 {
	m := Identity()
	m.M[12] = x
	m.M[13] = y
	return m
}

// Scale creates a scaling matrix.
func Scale(x, y float64) Mat4 {
	m := Identity()
	m.M[0] = x
	m.M[5] = y
	return m
}

// Rotate creates a rotation matrix around the Z axis (angle in radians).
func Rotate(angle float64) Mat4 {
	cos, sin := math.Cos(angle), math.Sin(angle)
	m := Identity()
	m.M[0] = cos
	m.M[1] = sin
	m.M[4] = -sin
	m.M[5] = cos
	return m
}

// Affine builds a matrix from the 2D affine coefficients
//
//	x' = a*x + c*y + e
//	y' = b*x + d*y + f
//
// which is the order SVG transform="matrix(a b c d e f)" uses.
func Affine(a, b, c, d, e, f float64) Mat4 {
	m := Identity()
	m.M[0], m.M[1] = a, b
	m.M[4], m.M[5] = c, d
	m.M[12], m.M[13] = e, f
	return m
}

// Multiply returns m * other. The result applies other first, then m.
func (m Mat4) Multiply(other Mat4) Mat4 {
	var r Mat4
	for col := range 4 {
		for row := range 4 {
			var sum float64
			for k := range 4 {
				sum += m.M[k*4+row] * other.M[col*4+k]
			}
			r.M[col*4+row] = sum
		}
	}
	return r
}

// TransformPoint applies the transformation to a point.
func (m Mat4) TransformPoint(p Point) Point {
	x := m.M[0]*p.X + m.M[4]*p.Y + m.M[12]
	y := m.M[1]*p.X + m.M[5]*p.Y + m.M[13]
	w := m.M[3]*p.X + m.M[7]*p.Y + m.M[15]
	if w != 1 && w != 0 {
		x /= w
		y /= w
	}
	return Point{X: x, Y: y}
}

// TransformVector applies the transformation to a vector (no translation).
func (m Mat4) TransformVector(p Point) Point {
	return Point{
		X: m.M[0]*p.X + m.M[4]*p.Y,
		Y: m.M[1]*p.X + m.M[5]*p.Y,
	}
}

// ScaleFactors returns the lengths of the transformed unit X and Y axes.
func (m Mat4) ScaleFactors() (sx, sy float64) {
	return math.Hypot(m.M[0], m.M[1]), math.Hypot(m.M[4], m.M[5])
}

// MaxScale returns max(scaleX, scaleY), used to derive flattening quality.
func (m Mat4) MaxScale() float64 {
	sx, sy := m.ScaleFactors()
	return max(sx, sy)
}

// Invert returns the inverse of the 2D affine part of the matrix.
// Returns the identity matrix if the matrix is not invertible.
func (m Mat4) Invert() Mat4 {
	a, b, c, d := m.M[0], m.M[1], m.M[4], m.M[5]
	e, f := m.M[12], m.M[13]
	det := a*d - b*c
	if math.Abs(det) < 1e-12 {
		return Identity()
	}
	inv := 1 / det
	return Affine(
		d*inv, -b*inv,
		-c*inv, a*inv,
		(c*f-d*e)*inv, (b*e-a*f)*inv,
	)
}

// IsIdentity returns true if the matrix is the identity matrix.
func (m Mat4) IsIdentity() bool {
	return m == Identity()
}

// Float32 returns the matrix as float32 values for GPU upload.
func (m Mat4) Float32() [16]float32 {
	var out [16]float32
	for i, v := range m.M {
		out[i] = float32(v)
	}
	return out
}
