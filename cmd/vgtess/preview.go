package main

import (
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"

	"golang.org/x/image/vector"

	"github.com/gogpu/vg"
	"github.com/gogpu/vg/canvas"
)

// preview rasterizes the tessellated outputs on the CPU. Each triangle is
// filled with the color of its first vertex; the vertex alpha carries the
// antialiasing rim.
func preview(outs []canvas.Output, w, h int, bg vg.Color) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(bg.NRGBA()), image.Point{}, draw.Src)

	r := vector.NewRasterizer(w, h)
	for _, out := range outs {
		vd := out.Data
		for t := 0; t+2 < len(vd.Indices); t += 3 {
			a := vd.Vertices[vd.Indices[t]]
			b := vd.Vertices[vd.Indices[t+1]]
			c := vd.Vertices[vd.Indices[t+2]]
			pa, pb, pc := project(out.Transform, a), project(out.Transform, b), project(out.Transform, c)

			r.Reset(w, h)
			r.DrawOp = draw.Over
			r.MoveTo(pa[0], pa[1])
			r.LineTo(pb[0], pb[1])
			r.LineTo(pc[0], pc[1])
			r.ClosePath()
			r.Draw(dst, dst.Bounds(), image.NewUniform(premul(a.Color)), image.Point{})
		}
	}
	return dst
}

func project(m vg.Mat4, v canvas.Vertex) [2]float32 {
	p := m.TransformPoint(vg.Pt(float64(v.Position[0]), float64(v.Position[1])))
	return [2]float32{float32(p.X), float32(p.Y)}
}

func premul(c [4]float32) color.RGBA {
	clamp := func(v float32) float32 { return min(max(v, 0), 1) }
	a := clamp(c[3])
	return color.RGBA{
		R: uint8(clamp(c[0])*a*255 + 0.5),
		G: uint8(clamp(c[1])*a*255 + 0.5),
		B: uint8(clamp(c[2])*a*255 + 0.5),
		A: uint8(a*255 + 0.5),
	}
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
