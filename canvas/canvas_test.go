package canvas

import (
	"errors"
	"math"
	"slices"
	"testing"

	"github.com/gogpu/vg"
	"github.com/gogpu/vg/internal/tess"
)

func singlePathImage(t *testing.T, p *vg.Path) *vg.ImageData {
	t.Helper()
	img := vg.NewImage(10, 5)
	img.AddPath(p, "p", 0, vg.Identity())
	return img.PopData()
}

func draw(t *testing.T, c *Canvas, data *vg.ImageData, size vg.Size) []Output {
	t.Helper()
	outs, err := c.Draw(data, size)
	if err != nil {
		t.Fatalf("Draw: %v", err)
	}
	return outs
}

// meshArea sums the unsigned triangle areas of d.
func meshArea(d *VertexData) float64 {
	var a float64
	for i := 0; i+2 < len(d.Indices); i += 3 {
		p := d.Vertices[d.Indices[i]].Position
		q := d.Vertices[d.Indices[i+1]].Position
		r := d.Vertices[d.Indices[i+2]].Position
		cross := float64((q[0]-p[0])*(r[1]-p[1]) - (q[1]-p[1])*(r[0]-p[0]))
		a += math.Abs(cross) / 2
	}
	return a
}

func TestDrawRectangleFill(t *testing.T) {
	p, ok := vg.ParseSVG("M 0,0 L 10,0 L 10,5 L 0,5 Z")
	if !ok {
		t.Fatal("ParseSVG failed")
	}
	p.SetFillColor(vg.RGBA(255, 0, 0, 255))

	outs := draw(t, New(), singlePathImage(t, p), vg.Size{Width: 10, Height: 5})
	if len(outs) != 1 {
		t.Fatalf("len(outs) = %d, want 1", len(outs))
	}
	d := outs[0].Data
	if len(d.Vertices) != 4 || len(d.Indices) != 6 {
		t.Fatalf("got %d vertices, %d indices; want 4, 6", len(d.Vertices), len(d.Indices))
	}

	var got [][2]float32
	for _, v := range d.Vertices {
		got = append(got, [2]float32{v.Position[0], v.Position[1]})
		if v.Color != [4]float32{1, 0, 0, 1} {
			t.Errorf("vertex color = %v, want (1,0,0,1)", v.Color)
		}
		if v.Position[2] != 0 || v.Position[3] != 1 {
			t.Errorf("position zw = %v, %v", v.Position[2], v.Position[3])
		}
	}
	want := [][2]float32{{0, 0}, {10, 0}, {10, 5}, {0, 5}}
	for _, w := range want {
		if !slices.Contains(got, w) {
			t.Errorf("missing vertex %v in %v", w, got)
		}
	}
	if a := meshArea(d); math.Abs(a-50) > 1e-6 {
		t.Errorf("area = %v, want 50", a)
	}
	if outs[0].Transform != vg.Identity() {
		t.Errorf("transform = %v, want identity", outs[0].Transform)
	}
}

func TestDrawBowtieWinding(t *testing.T) {
	for _, rule := range []vg.Winding{vg.NonZero, vg.EvenOdd} {
		p := vg.NewPath()
		if !p.AddSVG("M 0,0 L 10,10 L 10,0 L 0,10 Z") {
			t.Fatal("AddSVG failed")
		}
		p.SetWinding(rule)
		img := vg.NewImage(10, 10)
		img.AddPath(p, "bowtie", 0, vg.Identity())

		d := draw(t, New(), img.PopData(), vg.Size{Width: 10, Height: 10})[0].Data
		// Each lobe has winding ±1, so both rules fill the same two
		// triangles meeting at (5, 5).
		if d.Triangles() != 2 {
			t.Errorf("winding %v: triangles = %d, want 2", rule, d.Triangles())
		}
		if a := meshArea(d); math.Abs(a-50) > 1e-6 {
			t.Errorf("winding %v: area = %v, want 50", rule, a)
		}
	}
}

func TestDrawDegeneratePaths(t *testing.T) {
	tests := []struct {
		name string
		p    *vg.Path
	}{
		{"empty", vg.NewPath()},
		{"moveto close", vg.NewPath().MoveTo(3, 3).ClosePath()},
		{"single line", vg.NewPath().MoveTo(0, 0).LineTo(5, 0).ClosePath()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outs := draw(t, New(), singlePathImage(t, tt.p), vg.Size{Width: 10, Height: 5})
			if len(outs) != 1 {
				t.Fatalf("len(outs) = %d, want 1", len(outs))
			}
			if d := outs[0].Data; len(d.Vertices) != 0 || len(d.Indices) != 0 {
				t.Errorf("got %d vertices, %d indices; want none", len(d.Vertices), len(d.Indices))
			}
		})
	}
}

func TestDrawGlobalColorAndAntialias(t *testing.T) {
	p := vg.NewPath().Rect(0, 0, 10, 5).SetFillColor(vg.RGBA(255, 255, 255, 255)).SetAntialias(true)
	c := New(WithColor(vg.RGBA(0, 255, 0, 255)))
	d := draw(t, c, singlePathImage(t, p), vg.Size{Width: 10, Height: 5})[0].Data

	var solid, rim int
	for _, v := range d.Vertices {
		if v.Color[0] != 0 || v.Color[1] != 1 || v.Color[2] != 0 {
			t.Fatalf("rgb = %v, want (0,1,0)", v.Color[:3])
		}
		switch v.Color[3] {
		case 1:
			solid++
		case 0:
			rim++
		default:
			t.Errorf("unexpected alpha %v", v.Color[3])
		}
	}
	if solid != 4 || rim != 4 {
		t.Errorf("solid=%d rim=%d, want 4 and 4", solid, rim)
	}
	// 10x5 solid plus a 1px rim: 12x7.
	if a := meshArea(d); math.Abs(a-84) > 1e-4 {
		t.Errorf("area = %v, want 84", a)
	}
}

func TestDrawStroke(t *testing.T) {
	p := vg.NewPath().MoveTo(0, 0).LineTo(10, 0).
		SetDrawMode(vg.DrawStroke).
		SetStrokeWidth(2).
		SetStrokeColor(vg.RGBA(0, 0, 255, 255))
	d := draw(t, New(), singlePathImage(t, p), vg.Size{Width: 10, Height: 5})[0].Data
	if d.Empty() {
		t.Fatal("stroke produced no triangles")
	}
	if a := meshArea(d); math.Abs(a-20) > 1e-4 {
		t.Errorf("stroke area = %v, want 20", a)
	}
	for _, v := range d.Vertices {
		if v.Color != [4]float32{0, 0, 1, 1} {
			t.Fatalf("color = %v, want stroke color", v.Color)
		}
	}
}

func TestDrawFillAndStrokeShareData(t *testing.T) {
	p := vg.NewPath().Rect(0, 0, 10, 10).SetDrawMode(vg.DrawFillAndStroke).SetStrokeWidth(2)
	d := draw(t, New(), singlePathImage(t, p), vg.Size{Width: 10, Height: 5})[0].Data
	// fill 100 + closed stroke band (12x12 - 8x8 = 80)
	if a := meshArea(d); math.Abs(a-180) > 1e-3 {
		t.Errorf("area = %v, want 180", a)
	}
}

func TestDrawTransforms(t *testing.T) {
	img := vg.NewImage(10, 5)
	img.AddPath(vg.NewPath().Rect(0, 0, 1, 1), "a", 0, vg.Translate(3, 0))
	data := img.PopData()

	c := New()
	c.Push()
	c.Transform(vg.Translate(1, 0))
	outs := draw(t, c, data, vg.Size{Width: 20, Height: 10})
	want := vg.Translate(1, 0).Multiply(vg.Scale(2, 2)).Multiply(vg.Translate(3, 0))
	if outs[0].Transform != want {
		t.Errorf("transform = %v, want %v", outs[0].Transform, want)
	}
	if !c.Pop() || c.Current() != vg.Identity() {
		t.Error("Pop did not restore the identity transform")
	}
	if c.Pop() {
		t.Error("Pop on an empty stack should report false")
	}

	img.SetViewBox(vg.Rect{X: 5, Y: 0, Width: 5, Height: 5})
	outs = draw(t, c, img.PopData(), vg.Size{Width: 10, Height: 10})
	want = vg.Scale(2, 2).Multiply(vg.Translate(-5, 0)).Multiply(vg.Translate(3, 0))
	if outs[0].Transform != want {
		t.Errorf("view box transform = %v, want %v", outs[0].Transform, want)
	}
}

func TestDrawCoalescesEmptyEntries(t *testing.T) {
	img := vg.NewImage(10, 10)
	img.AddPath(vg.NewPath(), "e1", 0, vg.Identity())
	img.AddPath(vg.NewPath().MoveTo(1, 1).ClosePath(), "e2", 0, vg.Identity())
	img.AddPath(vg.NewPath(), "e3", 0, vg.Translate(1, 1))
	img.AddPath(vg.NewPath().Rect(0, 0, 2, 2), "r", 0, vg.Identity())
	img.AddPath(vg.NewPath(), "e4", 0, vg.Identity())

	outs := draw(t, New(), img.PopData(), vg.Size{Width: 10, Height: 10})
	empties := []bool{true, true, false, true}
	if len(outs) != len(empties) {
		t.Fatalf("len(outs) = %d, want %d", len(outs), len(empties))
	}
	for i, o := range outs {
		if o.Data == nil || o.Data.Empty() != empties[i] {
			t.Errorf("outs[%d] empty = %v, want %v", i, o.Data.Empty(), empties[i])
		}
	}
	if outs[2].Data.Vertices[0].Object != 3 {
		t.Errorf("object id = %d, want draw entry index 3", outs[2].Data.Vertices[0].Object)
	}
}

func TestDrawArenaLimitDiscardsPath(t *testing.T) {
	img := vg.NewImage(100, 100)
	img.AddPath(vg.NewPath().Polygon(50, 50, 40, 512), "big", 0, vg.Identity())
	img.AddPath(vg.NewPath().Rect(0, 0, 10, 10), "small", 0, vg.Translate(1, 0))

	outs, err := New(WithArenaLimit(200)).Draw(img.PopData(), vg.Size{Width: 100, Height: 100})
	if !errors.Is(err, ErrPathDiscarded) || !errors.Is(err, tess.ErrOutOfMemory) {
		t.Fatalf("err = %v, want ErrPathDiscarded wrapping ErrOutOfMemory", err)
	}
	if len(outs) != 2 {
		t.Fatalf("len(outs) = %d, want 2", len(outs))
	}
	if !outs[0].Data.Empty() {
		t.Error("discarded path should draw nothing")
	}
	if outs[1].Data.Triangles() != 2 {
		t.Errorf("small path triangles = %d, want 2", outs[1].Data.Triangles())
	}
}

func TestDrawInvalidInput(t *testing.T) {
	c := New()
	if _, err := c.Draw(nil, vg.Size{Width: 1, Height: 1}); !errors.Is(err, ErrNilImage) {
		t.Errorf("nil data: err = %v", err)
	}
	data := vg.NewImage(1, 1).PopData()
	for _, s := range []vg.Size{{}, {Width: -1, Height: 1}, {Width: math.NaN(), Height: 1}, {Width: math.Inf(1), Height: 1}} {
		if _, err := c.Draw(data, s); !errors.Is(err, ErrInvalidSize) {
			t.Errorf("size %v: err = %v, want ErrInvalidSize", s, err)
		}
	}
}

func TestDrawVertexCache(t *testing.T) {
	vc := NewVertexCache(8)
	img := vg.NewImage(10, 10)
	img.AddPath(vg.NewPath().Rect(0, 0, 4, 4), "a", 7, vg.Identity())
	img.AddPath(vg.NewPath().Rect(5, 5, 2, 2), "b", 0, vg.Identity())
	c := New(WithCache(vc))
	size := vg.Size{Width: 10, Height: 10}

	first := draw(t, c, img.PopData(), size)
	img.GetPath("b").SetFillColor(vg.Red)
	second := draw(t, c, img.PopData(), size)
	if first[0].Data != second[0].Data {
		t.Error("unchanged cached path was tessellated again")
	}
	if s := vc.Stats(); s.Hits != 1 || s.Misses != 1 || vc.Len() != 1 {
		t.Errorf("stats = %+v, len = %d", s, vc.Len())
	}

	img.GetPath("a").SetFillColor(vg.Blue)
	third := draw(t, c, img.PopData(), size)
	if third[0].Data == second[0].Data {
		t.Error("mutated path served from cache")
	}
	if n := vc.Invalidate(7); n != 2 {
		t.Errorf("Invalidate removed %d entries, want 2", n)
	}
}

func TestVertexDataBytes(t *testing.T) {
	d := &VertexData{
		Vertices: make([]Vertex, 3),
		Indices:  []uint32{0, 1, 2},
	}
	if VertexSize != 48 {
		t.Fatalf("VertexSize = %d, want 48", VertexSize)
	}
	data, off := d.Bytes()
	if off != 3*VertexSize || len(data) != off+12 {
		t.Errorf("Bytes() len=%d off=%d", len(data), off)
	}
	if data[off+4] != 1 || data[off+8] != 2 {
		t.Errorf("index block = %v", data[off:])
	}
}
