package vg

import (
	"math"
	"slices"
	"strconv"
	"strings"
)

// Command is a path drawing command.
type Command uint8

// Command codes double as the binary serialization codes.
const (
	CmdMoveTo Command = iota
	CmdLineTo
	CmdQuadTo
	CmdCubicTo
	CmdArcTo
	CmdClosePath
)

// NumParams returns the number of float operands stored for the command.
// ArcTo stores rx, ry, rotation, largeArc, sweep, x, y with the two flags
// as 0 or 1.
func (c Command) NumParams() int {
	switch c {
	case CmdMoveTo, CmdLineTo:
		return 2
	case CmdQuadTo:
		return 4
	case CmdCubicTo:
		return 6
	case CmdArcTo:
		return 7
	default:
		return 0
	}
}

func (c Command) String() string {
	switch c {
	case CmdMoveTo:
		return "M"
	case CmdLineTo:
		return "L"
	case CmdQuadTo:
		return "Q"
	case CmdCubicTo:
		return "C"
	case CmdArcTo:
		return "A"
	case CmdClosePath:
		return "Z"
	default:
		return "?"
	}
}

// Path is a mutable vector path: two parallel sequences of commands and
// float operands plus a style block. Builder methods return the path so
// calls can be chained.
//
// Commands are not validated. Renderers treat a LineTo with no preceding
// MoveTo as starting at (0, 0).
type Path struct {
	commands []Command
	params   []float64
	style    Style
}

// NewPath creates an empty path with the default style.
func NewPath() *Path {
	return &Path{
		commands: make([]Command, 0, 8),
		params:   make([]float64, 0, 16),
		style:    DefaultStyle(),
	}
}

func (p *Path) push(c Command, args ...float64) *Path {
	p.commands = append(p.commands, c)
	p.params = append(p.params, args...)
	return p
}

// MoveTo starts a new subpath at (x, y).
func (p *Path) MoveTo(x, y float64) *Path { return p.push(CmdMoveTo, x, y) }

// LineTo draws a line to (x, y).
func (p *Path) LineTo(x, y float64) *Path { return p.push(CmdLineTo, x, y) }

// QuadTo draws a quadratic Bezier curve with control point (cx, cy).
func (p *Path) QuadTo(cx, cy, x, y float64) *Path { return p.push(CmdQuadTo, cx, cy, x, y) }

// CubicTo draws a cubic Bezier curve.
func (p *Path) CubicTo(c1x, c1y, c2x, c2y, x, y float64) *Path {
	return p.push(CmdCubicTo, c1x, c1y, c2x, c2y, x, y)
}

// ArcTo draws an elliptical arc to (x, y) using SVG endpoint
// parameterization. rotation is the x-axis rotation in radians.
func (p *Path) ArcTo(rx, ry, rotation float64, largeArc, sweep bool, x, y float64) *Path {
	return p.push(CmdArcTo, rx, ry, rotation, boolFlag(largeArc), boolFlag(sweep), x, y)
}

// ClosePath closes the current subpath.
func (p *Path) ClosePath() *Path { return p.push(CmdClosePath) }

func boolFlag(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// SetTransform sets the path transform.
func (p *Path) SetTransform(m Mat4) *Path { p.style.Transform = m; return p }

// ApplyTransform post-multiplies the path transform with m.
func (p *Path) ApplyTransform(m Mat4) *Path {
	p.style.Transform = p.style.Transform.Multiply(m)
	return p
}

// SetFillColor sets the fill color.
func (p *Path) SetFillColor(c Color) *Path { p.style.FillColor = c; return p }

// SetStrokeColor sets the stroke color.
func (p *Path) SetStrokeColor(c Color) *Path { p.style.StrokeColor = c; return p }

// SetStrokeWidth sets the stroke width.
func (p *Path) SetStrokeWidth(w float64) *Path { p.style.StrokeWidth = w; return p }

// SetWinding sets the fill rule.
func (p *Path) SetWinding(w Winding) *Path { p.style.Winding = w; return p }

// SetLineCap sets the cap style for open contours.
func (p *Path) SetLineCap(c LineCap) *Path { p.style.LineCap = c; return p }

// SetLineJoin sets the join style.
func (p *Path) SetLineJoin(j LineJoin) *Path { p.style.LineJoin = j; return p }

// SetMiterLimit sets the miter limit.
func (p *Path) SetMiterLimit(l float64) *Path { p.style.MiterLimit = l; return p }

// SetDrawMode selects fill, stroke or both.
func (p *Path) SetDrawMode(m DrawMode) *Path { p.style.DrawMode = m; return p }

// SetAntialias toggles the antialiasing rim.
func (p *Path) SetAntialias(aa bool) *Path { p.style.Antialias = aa; return p }

// SetStyle replaces the whole style block.
func (p *Path) SetStyle(s Style) *Path { p.style = s; return p }

// Style returns a copy of the style block.
func (p *Path) Style() Style { return p.style }

// Commands returns the command sequence. The slice must not be modified.
func (p *Path) Commands() []Command { return p.commands }

// Params returns the operand sequence. The slice must not be modified.
func (p *Path) Params() []float64 { return p.params }

// Len returns the number of commands.
func (p *Path) Len() int { return len(p.commands) }

// Empty reports whether the path has no commands.
func (p *Path) Empty() bool { return len(p.commands) == 0 }

// Clear removes all commands while keeping the style.
func (p *Path) Clear() *Path {
	p.commands = p.commands[:0]
	p.params = p.params[:0]
	return p
}

// Clone creates a deep copy of the path.
func (p *Path) Clone() *Path {
	return &Path{
		commands: slices.Clone(p.commands),
		params:   slices.Clone(p.params),
		style:    p.style,
	}
}

// Equal reports whether both paths have identical commands, operands and style.
// NaN operands never compare equal.
func (p *Path) Equal(o *Path) bool {
	if p == nil || o == nil {
		return p == o
	}
	return p.style == o.style &&
		slices.Equal(p.commands, o.commands) &&
		slices.Equal(p.params, o.params)
}

// EqualCommands compares only the command stream, ignoring style.
func (p *Path) EqualCommands(o *Path) bool {
	return slices.Equal(p.commands, o.commands) && slices.Equal(p.params, o.params)
}

// Walk calls fn for every command with its operands.
func (p *Path) Walk(fn func(cmd Command, args []float64)) {
	off := 0
	for _, c := range p.commands {
		n := c.NumParams()
		fn(c, p.params[off:off+n])
		off += n
	}
}

// Bounds returns the bounding box of all operand points in path space.
// Control points are included, so curves may be over-approximated.
func (p *Path) Bounds() Rect {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	add := func(x, y float64) {
		minX, minY = min(minX, x), min(minY, y)
		maxX, maxY = max(maxX, x), max(maxY, y)
	}
	p.Walk(func(cmd Command, a []float64) {
		switch cmd {
		case CmdArcTo:
			add(a[5], a[6])
		case CmdClosePath:
		default:
			for i := 0; i+1 < len(a); i += 2 {
				add(a[i], a[i+1])
			}
		}
	})
	if minX > maxX {
		return Rect{}
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// String returns the path in SVG path data notation. ArcTo rotation is
// printed in degrees so the output can be fed back to AddSVG.
func (p *Path) String() string {
	var sb strings.Builder
	p.Walk(func(cmd Command, a []float64) {
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(cmd.String())
		for i, v := range a {
			if cmd == CmdArcTo && i == 2 {
				v = v * 180 / math.Pi
			}
			sb.WriteByte(' ')
			sb.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
		}
	})
	return sb.String()
}
