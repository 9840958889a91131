package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/gogpu/vg"
)

// Scene is the TOML description of an image.
type Scene struct {
	Width      float64    `toml:"width"`
	Height     float64    `toml:"height"`
	ViewBox    []float64  `toml:"viewbox"`
	Background string     `toml:"background"`
	Paths      []PathSpec `toml:"path"`
}

// PathSpec describes one path. Geometry comes from SVG path data, a
// named shape, or both.
type PathSpec struct {
	ID          string    `toml:"id"`
	SVG         string    `toml:"svg"`
	Shape       string    `toml:"shape"`
	Params      []float64 `toml:"params"`
	Fill        string    `toml:"fill"`
	Stroke      string    `toml:"stroke"`
	StrokeWidth float64   `toml:"stroke_width"`
	Mode        string    `toml:"mode"`
	Winding     string    `toml:"winding"`
	Cap         string    `toml:"cap"`
	Join        string    `toml:"join"`
	MiterLimit  float64   `toml:"miter_limit"`
	Antialias   bool      `toml:"antialias"`
	Transform   []float64 `toml:"transform"`
	CacheID     uint64    `toml:"cache_id"`
}

var errScene = errors.New("vgtess: invalid scene")

// LoadScene reads a scene file.
func LoadScene(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseScene(data)
}

// ParseScene decodes a TOML scene. Unknown keys are rejected.
func ParseScene(data []byte) (*Scene, error) {
	var s Scene
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&s); err != nil {
		var de *toml.DecodeError
		if errors.As(err, &de) {
			row, col := de.Position()
			return nil, fmt.Errorf("%w: line %d column %d: %v", errScene, row, col, de)
		}
		return nil, fmt.Errorf("%w: %w", errScene, err)
	}
	if !(s.Width > 0) || !(s.Height > 0) {
		return nil, fmt.Errorf("%w: size %gx%g", errScene, s.Width, s.Height)
	}
	if n := len(s.ViewBox); n != 0 && n != 4 {
		return nil, fmt.Errorf("%w: viewbox needs 4 numbers, got %d", errScene, n)
	}
	return &s, nil
}

// Image builds the vector image of the scene.
func (s *Scene) Image() (*vg.Image, error) {
	img := vg.NewImage(s.Width, s.Height)
	if len(s.ViewBox) == 4 {
		img.SetViewBox(vg.Rect{X: s.ViewBox[0], Y: s.ViewBox[1], Width: s.ViewBox[2], Height: s.ViewBox[3]})
	}
	for i, ps := range s.Paths {
		p, err := ps.path()
		if err != nil {
			return nil, fmt.Errorf("path %d %q: %w", i, ps.ID, err)
		}
		m, err := affine(ps.Transform)
		if err != nil {
			return nil, fmt.Errorf("path %d %q: %w", i, ps.ID, err)
		}
		img.AddPath(p, ps.ID, ps.CacheID, m)
	}
	return img, nil
}

func affine(t []float64) (vg.Mat4, error) {
	switch len(t) {
	case 0:
		return vg.Identity(), nil
	case 6:
		return vg.Affine(t[0], t[1], t[2], t[3], t[4], t[5]), nil
	}
	return vg.Mat4{}, fmt.Errorf("%w: transform needs 6 numbers, got %d", errScene, len(t))
}

func (ps *PathSpec) path() (*vg.Path, error) {
	p := vg.NewPath()
	if ps.SVG != "" && !p.AddSVG(ps.SVG) {
		return nil, fmt.Errorf("%w: malformed svg path data", errScene)
	}
	if ps.Shape != "" {
		if err := addShape(p, ps.Shape, ps.Params); err != nil {
			return nil, err
		}
	}

	style := vg.DefaultStyle()
	if ps.Fill != "" {
		style.FillColor = vg.Hex(ps.Fill)
	}
	if ps.Stroke != "" {
		style.StrokeColor = vg.Hex(ps.Stroke)
	}
	if ps.StrokeWidth > 0 {
		style.StrokeWidth = ps.StrokeWidth
	}
	if ps.MiterLimit > 0 {
		style.MiterLimit = ps.MiterLimit
	}
	style.Antialias = ps.Antialias

	var ok bool
	if style.DrawMode, ok = lookup(ps.Mode, map[string]vg.DrawMode{
		"": vg.DrawFill, "fill": vg.DrawFill, "stroke": vg.DrawStroke, "fill+stroke": vg.DrawFillAndStroke,
	}); !ok {
		return nil, fmt.Errorf("%w: mode %q", errScene, ps.Mode)
	}
	if style.Winding, ok = lookup(ps.Winding, map[string]vg.Winding{
		"": vg.NonZero, "nonzero": vg.NonZero, "evenodd": vg.EvenOdd,
	}); !ok {
		return nil, fmt.Errorf("%w: winding %q", errScene, ps.Winding)
	}
	if style.LineCap, ok = lookup(ps.Cap, map[string]vg.LineCap{
		"": vg.CapButt, "butt": vg.CapButt, "round": vg.CapRound, "square": vg.CapSquare,
	}); !ok {
		return nil, fmt.Errorf("%w: cap %q", errScene, ps.Cap)
	}
	if style.LineJoin, ok = lookup(ps.Join, map[string]vg.LineJoin{
		"": vg.JoinMiter, "miter": vg.JoinMiter, "round": vg.JoinRound, "bevel": vg.JoinBevel,
	}); !ok {
		return nil, fmt.Errorf("%w: join %q", errScene, ps.Join)
	}
	return p.SetStyle(style), nil
}

func lookup[T any](name string, table map[string]T) (T, bool) {
	v, ok := table[strings.ToLower(name)]
	return v, ok
}

func addShape(p *vg.Path, shape string, a []float64) error {
	want := map[string]int{"rect": 4, "roundrect": 6, "circle": 3, "ellipse": 4, "polygon": 4, "star": 5}
	n, ok := want[shape]
	if !ok {
		return fmt.Errorf("%w: unknown shape %q", errScene, shape)
	}
	if len(a) != n {
		return fmt.Errorf("%w: %s needs %d params, got %d", errScene, shape, n, len(a))
	}
	switch shape {
	case "rect":
		p.Rect(a[0], a[1], a[2], a[3])
	case "roundrect":
		p.RoundRect(a[0], a[1], a[2], a[3], a[4], a[5])
	case "circle":
		p.Circle(a[0], a[1], a[2])
	case "ellipse":
		p.Ellipse(a[0], a[1], a[2], a[3])
	case "polygon":
		p.Polygon(a[0], a[1], a[2], int(a[3]))
	case "star":
		p.Star(a[0], a[1], a[2], a[3], int(a[4]))
	}
	return nil
}
