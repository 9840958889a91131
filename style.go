package vg

// Winding is the fill rule used to decide which regions of a path are inside.
type Winding uint8

const (
	// NonZero fills regions with a non-zero winding number.
	NonZero Winding = iota
	// EvenOdd fills regions with an odd winding number.
	EvenOdd
)

// String returns the SVG name of the rule.
func (w Winding) String() string {
	if w == EvenOdd {
		return "evenodd"
	}
	return "nonzero"
}

// LineCap specifies the shape of the endpoints of open stroked contours.
type LineCap uint8

const (
	CapButt LineCap = iota
	CapRound
	CapSquare
)

// LineJoin specifies the shape of the corners of stroked contours.
type LineJoin uint8

const (
	JoinMiter LineJoin = iota
	JoinRound
	JoinBevel
)

// DrawMode selects which parts of a path are rendered.
type DrawMode uint8

const (
	DrawFill DrawMode = iota
	DrawStroke
	DrawFillAndStroke
)

// Fills reports whether the mode includes the interior.
func (m DrawMode) Fills() bool { return m == DrawFill || m == DrawFillAndStroke }

// Strokes reports whether the mode includes the outline.
func (m DrawMode) Strokes() bool { return m == DrawStroke || m == DrawFillAndStroke }

// DefaultMiterLimit is the SVG default miter limit.
const DefaultMiterLimit = 4.0

// Style is the render-style block carried by every path.
type Style struct {
	Transform   Mat4
	FillColor   Color
	StrokeColor Color
	StrokeWidth float64
	Winding     Winding
	LineCap     LineCap
	LineJoin    LineJoin
	MiterLimit  float64
	DrawMode    DrawMode
	Antialias   bool
}

// DefaultStyle returns the style of a freshly created path:
// identity transform, opaque black fill, 1px black stroke, non-zero winding,
// butt caps, miter joins, fill only, no antialiasing.
func DefaultStyle() Style {
	return Style{
		Transform:   Identity(),
		FillColor:   Black,
		StrokeColor: Black,
		StrokeWidth: 1,
		Winding:     NonZero,
		LineCap:     CapButt,
		LineJoin:    JoinMiter,
		MiterLimit:  DefaultMiterLimit,
		DrawMode:    DrawFill,
	}
}
