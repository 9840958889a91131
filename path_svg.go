package vg

import (
	"math"

	"github.com/tdewolff/parse/v2/strconv"
)

// svgArgCount is the operand count per SVG path command letter.
var svgArgCount = map[byte]int{
	'M': 2,
	'Z': 0,
	'L': 2,
	'H': 1,
	'V': 1,
	'C': 6,
	'S': 4,
	'Q': 4,
	'T': 2,
	'A': 7,
}

func skipCommaWhitespace(d []byte) int {
	i := 0
	for i < len(d) && (d[i] == ' ' || d[i] == ',' || d[i] == '\n' || d[i] == '\r' || d[i] == '\t' || d[i] == '\f') {
		i++
	}
	return i
}

func isNumberStart(c byte) bool {
	return c >= '0' && c <= '9' || c == '.' || c == '-' || c == '+'
}

// AddSVG appends the commands of an SVG path data string ("d" attribute).
// Supported commands are M, L, H, V, C, S, Q, T, A and Z with their
// relative variants; implicit command repetition is honoured and arc
// rotation is read in degrees.
//
// Parsing is best-effort: it stops at the first unrecognised token or
// incomplete operand set and returns false, keeping every command parsed
// before that point.
func (p *Path) AddSVG(d string) bool {
	buf := []byte(d)
	i := skipCommaWhitespace(buf)

	var f [7]float64
	var cur, start, lastCtrl Point
	prev := byte(0)
	for i < len(buf) {
		cmd := prev
		if !isNumberStart(buf[i]) {
			cmd = buf[i]
			i++
			i += skipCommaWhitespace(buf[i:])
		} else if prev == 0 || prev == 'Z' || prev == 'z' {
			// numbers with no command to repeat
			return false
		}

		upper := cmd
		if 'a' <= cmd && cmd <= 'z' {
			upper -= 'a' - 'A'
		}
		n, ok := svgArgCount[upper]
		if !ok {
			return false
		}
		for j := range n {
			if upper == 'A' && (j == 3 || j == 4) {
				if i >= len(buf) || (buf[i] != '0' && buf[i] != '1') {
					return false
				}
				f[j] = float64(buf[i] - '0')
				i++
			} else {
				num, m := strconv.ParseFloat(buf[i:])
				if m == 0 {
					return false
				}
				f[j] = num
				i += m
			}
			i += skipCommaWhitespace(buf[i:])
		}

		rel := cmd != upper
		abs := func(x, y float64) Point {
			if rel {
				return Point{X: cur.X + x, Y: cur.Y + y}
			}
			return Point{X: x, Y: y}
		}

		next := cmd
		switch upper {
		case 'M':
			cur = abs(f[0], f[1])
			start = cur
			p.MoveTo(cur.X, cur.Y)
			// subsequent pairs are implicit LineTo
			next = 'L'
			if rel {
				next = 'l'
			}
		case 'Z':
			p.ClosePath()
			cur = start
		case 'L':
			cur = abs(f[0], f[1])
			p.LineTo(cur.X, cur.Y)
		case 'H':
			if rel {
				cur.X += f[0]
			} else {
				cur.X = f[0]
			}
			p.LineTo(cur.X, cur.Y)
		case 'V':
			if rel {
				cur.Y += f[0]
			} else {
				cur.Y = f[0]
			}
			p.LineTo(cur.X, cur.Y)
		case 'C':
			c1, c2, end := abs(f[0], f[1]), abs(f[2], f[3]), abs(f[4], f[5])
			p.CubicTo(c1.X, c1.Y, c2.X, c2.Y, end.X, end.Y)
			lastCtrl, cur = c2, end
		case 'S':
			c1 := cur
			if prev == 'C' || prev == 'c' || prev == 'S' || prev == 's' {
				c1 = cur.Mul(2).Sub(lastCtrl)
			}
			c2, end := abs(f[0], f[1]), abs(f[2], f[3])
			p.CubicTo(c1.X, c1.Y, c2.X, c2.Y, end.X, end.Y)
			lastCtrl, cur = c2, end
		case 'Q':
			c, end := abs(f[0], f[1]), abs(f[2], f[3])
			p.QuadTo(c.X, c.Y, end.X, end.Y)
			lastCtrl, cur = c, end
		case 'T':
			c := cur
			if prev == 'Q' || prev == 'q' || prev == 'T' || prev == 't' {
				c = cur.Mul(2).Sub(lastCtrl)
			}
			end := abs(f[0], f[1])
			p.QuadTo(c.X, c.Y, end.X, end.Y)
			lastCtrl, cur = c, end
		case 'A':
			end := abs(f[5], f[6])
			p.ArcTo(f[0], f[1], f[2]*math.Pi/180, f[3] == 1, f[4] == 1, end.X, end.Y)
			cur = end
		}
		prev = next
	}
	return true
}

// ParseSVG creates a new path from SVG path data. The boolean result
// reports whether the whole string was consumed.
func ParseSVG(d string) (*Path, bool) {
	p := NewPath()
	ok := p.AddSVG(d)
	return p, ok
}
