// path_shapes.go

package vg

import "math"

// Rect adds a closed rectangle subpath.
func (p *Path) Rect(x, y, w, h float64) *Path {
	return p.MoveTo(x, y).
		LineTo(x+w, y).
		LineTo(x+w, y+h).
		LineTo(x, y+h).
		ClosePath()
}

// RoundRect adds a rectangle with rounded corners built from quarter arcs.
// The radii are clamped to half the respective side.
func (p *Path) RoundRect(x, y, w, h, rx, ry float64) *Path {
	rx = min(rx, w/2)
	ry = min(ry, h/2)
	if rx <= 0 || ry <= 0 {
		return p.Rect(x, y, w, h)
	}
	return p.MoveTo(x+rx, y).
		LineTo(x+w-rx, y).
		ArcTo(rx, ry, 0, false, true, x+w, y+ry).
		LineTo(x+w, y+h-ry).
		ArcTo(rx, ry, 0, false, true, x+w-rx, y+h).
		LineTo(x+rx, y+h).
		ArcTo(rx, ry, 0, false, true, x, y+h-ry).
		LineTo(x, y+ry).
		ArcTo(rx, ry, 0, false, true, x+rx, y).
		ClosePath()
}

// Circle adds a circle subpath.
func (p *Path) Circle(cx, cy, r float64) *Path {
	return p.Ellipse(cx, cy, r, r)
}

// Ellipse adds an axis-aligned ellipse subpath made of two half arcs.
func (p *Path) Ellipse(cx, cy, rx, ry float64) *Path {
	return p.MoveTo(cx+rx, cy).
		ArcTo(rx, ry, 0, false, true, cx-rx, cy).
		ArcTo(rx, ry, 0, false, true, cx+rx, cy).
		ClosePath()
}

// Polygon adds a regular polygon subpath. Fewer than 3 sides adds nothing.
func (p *Path) Polygon(cx, cy, radius float64, sides int) *Path {
	if sides < 3 {
		return p
	}
	angleStep := 2 * math.Pi / float64(sides)
	startAngle := -math.Pi / 2 // Start at top

	for i := range sides {
		angle := startAngle + float64(i)*angleStep
		x := cx + radius*math.Cos(angle)
		y := cy + radius*math.Sin(angle)
		if i == 0 {
			p.MoveTo(x, y)
		} else {
			p.LineTo(x, y)
		}
	}
	return p.ClosePath()
}

// Star adds a star subpath alternating between the outer and inner radius.
func (p *Path) Star(cx, cy, outerRadius, innerRadius float64, points int) *Path {
	if points < 3 {
		return p
	}
	angleStep := math.Pi / float64(points)
	startAngle := -math.Pi / 2

	for i := range points * 2 {
		angle := startAngle + float64(i)*angleStep
		r := outerRadius
		if i%2 == 1 {
			r = innerRadius
		}
		x := cx + r*math.Cos(angle)
		y := cy + r*math.Sin(angle)
		if i == 0 {
			p.MoveTo(x, y)
		} else {
			p.LineTo(x, y)
		}
	}
	return p.ClosePath()
}
