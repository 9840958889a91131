package main

import (
	"errors"
	"image/color"
	"strings"
	"testing"

	"github.com/gogpu/vg"
	"github.com/gogpu/vg/canvas"
)

const testScene = `
width = 40
height = 40
background = "#ffffff"

[[path]]
id = "box"
shape = "rect"
params = [0, 0, 20, 20]
fill = "#ff0000"

[[path]]
id = "outline"
svg = "M 25 25 L 35 25 L 35 35 Z"
mode = "stroke"
stroke = "#0000ff"
stroke_width = 2
join = "round"
`

func TestParseScene(t *testing.T) {
	s, err := ParseScene([]byte(testScene))
	if err != nil {
		t.Fatal(err)
	}
	if s.Width != 40 || s.Height != 40 || len(s.Paths) != 2 {
		t.Fatalf("scene = %+v", s)
	}
	if s.Paths[1].Mode != "stroke" || s.Paths[1].StrokeWidth != 2 {
		t.Errorf("path 1 = %+v", s.Paths[1])
	}
	img, err := s.Image()
	if err != nil {
		t.Fatal(err)
	}
	if got := len(img.PopData().DrawList()); got != 2 {
		t.Errorf("draw list has %d entries, want 2", got)
	}
}

func TestParseSceneErrors(t *testing.T) {
	tests := []struct {
		name  string
		scene string
	}{
		{"unknown key", "width = 1\nheight = 1\ncolour = 'red'"},
		{"zero size", "width = 0\nheight = 10"},
		{"viewbox", "width = 10\nheight = 10\nviewbox = [0, 0, 10]"},
		{"syntax", "width = = 10"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseScene([]byte(tt.scene)); !errors.Is(err, errScene) {
				t.Errorf("err = %v, want errScene", err)
			}
		})
	}
}

func TestSceneImageErrors(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{"mode", `mode = "hatch"`},
		{"winding", `winding = "odd"`},
		{"cap", `cap = "arrow"`},
		{"join", `join = "mitre"`},
		{"shape", `shape = "blob"`},
		{"params", "shape = \"circle\"\nparams = [1, 2]"},
		{"transform", "svg = \"M0 0 L1 1\"\ntransform = [1, 0, 0]"},
		{"svg", `svg = "M 0 0 Q"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := ParseScene([]byte("width = 10\nheight = 10\n[[path]]\n" + tt.path))
			if err != nil {
				t.Fatal(err)
			}
			if _, err := s.Image(); !errors.Is(err, errScene) {
				t.Errorf("err = %v, want errScene", err)
			}
		})
	}
}

func TestPreview(t *testing.T) {
	s, err := ParseScene([]byte(strings.Split(testScene, "[[path]]\nid = \"outline\"")[0]))
	if err != nil {
		t.Fatal(err)
	}
	img, err := s.Image()
	if err != nil {
		t.Fatal(err)
	}
	outs, err := canvas.New().Draw(img.PopData(), vg.Size{Width: s.Width, Height: s.Height})
	if err != nil {
		t.Fatal(err)
	}
	dst := preview(outs, 40, 40, vg.Hex(s.Background))

	if got := dst.RGBAAt(4, 12); got != (color.RGBA{R: 255, A: 255}) {
		t.Errorf("inside = %v, want red", got)
	}
	if got := dst.RGBAAt(30, 30); got != (color.RGBA{R: 255, G: 255, B: 255, A: 255}) {
		t.Errorf("outside = %v, want background", got)
	}
}
