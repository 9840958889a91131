// Command vgtess tessellates a TOML scene, uploads the vertex streams to a
// GPU backend and optionally writes a PNG preview of the triangles.
//
// Usage:
//
//	vgtess -scene scene.toml [-out preview.png] [-backend host] [-text "Hello"]
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"golang.org/x/image/font/gofont/goregular"

	"github.com/gogpu/vg"
	"github.com/gogpu/vg/backend"
	_ "github.com/gogpu/vg/backend/host"
	_ "github.com/gogpu/vg/backend/wgpu"
	"github.com/gogpu/vg/canvas"
	"github.com/gogpu/vg/fontatlas"
	"github.com/gogpu/vg/gpucore"
	"github.com/gogpu/vg/text"
	"github.com/gogpu/vg/transfer"
)

func main() {
	var (
		scenePath = flag.String("scene", "", "TOML scene file")
		output    = flag.String("out", "", "PNG preview file")
		backendID = flag.String("backend", "", "GPU backend (default: first available)")
		quality   = flag.Float64("quality", 1, "flattening quality")
		aaWidth   = flag.Float64("aa", 1, "antialiasing rim width in pixels")
		delaunay  = flag.Bool("delaunay", false, "refine fills towards a Delaunay triangulation")
		glyphs    = flag.String("text", "", "build a font atlas for this text")
		fontSize  = flag.Float64("size", 24, "font size in pixels for -text")
		verbose   = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()
	if *scenePath == "" {
		flag.Usage()
		os.Exit(2)
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	vg.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	scene, err := LoadScene(*scenePath)
	if err != nil {
		log.Fatal(err)
	}
	img, err := scene.Image()
	if err != nil {
		log.Fatal(err)
	}

	cv := canvas.New(
		canvas.WithQuality(*quality),
		canvas.WithAAWidth(*aaWidth),
		canvas.WithDelaunay(*delaunay),
		canvas.WithCache(canvas.NewVertexCache(256)),
	)
	start := time.Now()
	outs, err := cv.Draw(img.PopData(), vg.Size{Width: scene.Width, Height: scene.Height})
	if err != nil {
		// Discarded paths are reported; the rest of the image still draws.
		log.Print(err)
	}
	st := statsOf(outs)
	fmt.Printf("tessellated %d outputs, %d triangles, %d vertices in %v\n",
		len(outs), st.triangles, st.vertices, time.Since(start).Round(time.Microsecond))

	if *output != "" {
		bg := vg.Color{}
		if scene.Background != "" {
			bg = vg.Hex(scene.Background)
		}
		if err := writePNG(*output, preview(outs, int(scene.Width), int(scene.Height), bg)); err != nil {
			log.Fatal(err)
		}
		fmt.Printf("preview written to %s\n", *output)
	}

	dev, name, err := openDevice(*backendID)
	if err != nil {
		log.Fatal(err)
	}
	orch, err := transfer.New(dev)
	if err != nil {
		log.Fatal(err)
	}
	ctx := context.Background()
	n, err := upload(ctx, orch, outs)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("uploaded %d bytes of vertex data to the %s backend\n", n, name)

	if *glyphs != "" {
		if err := buildAtlas(ctx, orch, *glyphs, *fontSize); err != nil {
			log.Fatal(err)
		}
	}
}

type stats struct {
	triangles, vertices int
}

func statsOf(outs []canvas.Output) stats {
	var s stats
	for _, o := range outs {
		s.triangles += o.Data.Triangles()
		s.vertices += len(o.Data.Vertices)
	}
	return s
}

func openDevice(name string) (gpucore.Device, string, error) {
	if name == "" {
		return backend.Default()
	}
	dev, err := backend.Open(name)
	return dev, name, err
}

// upload sends every non-empty output to the device as a vertex and an
// index buffer and returns the number of bytes uploaded.
func upload(ctx context.Context, orch *transfer.Orchestrator, outs []canvas.Output) (uint64, error) {
	desc := transfer.Descriptor{Label: "scene", DstFamily: gpucore.FamilyIgnored}
	var total uint64
	for i, o := range outs {
		if o.Data.Empty() {
			continue
		}
		vb, ib := o.Data.VertexBytes(), o.Data.IndexBytes()
		desc.Buffers = append(desc.Buffers,
			transfer.BufferSpec{
				Desc: gpucore.BufferDesc{Label: fmt.Sprintf("output%d_vertices", i), Size: uint64(len(vb)), Usage: gpucore.BufferVertex},
				Data: vb,
			},
			transfer.BufferSpec{
				Desc: gpucore.BufferDesc{Label: fmt.Sprintf("output%d_indices", i), Size: uint64(len(ib)), Usage: gpucore.BufferIndex},
				Data: ib,
			})
		total += uint64(len(vb) + len(ib))
	}
	if len(desc.Buffers) == 0 {
		return 0, nil
	}
	res, err := orch.Upload(ctx, desc)
	if err != nil {
		return 0, err
	}
	res.Destroy()
	return total, nil
}

func buildAtlas(ctx context.Context, orch *transfer.Orchestrator, s string, size float64) error {
	r, err := text.NewOpenTypeRenderer(goregular.TTF, size)
	if err != nil {
		return err
	}
	b := fontatlas.New(orch, fontatlas.Config{
		Fonts:          map[fontatlas.FontID]text.GlyphRenderer{0: r},
		ConsumerFamily: gpucore.FamilyIgnored,
	})
	defer b.Close()
	atlas, err := b.Build(ctx, fontatlas.RequestsForString(0, s, false))
	if err != nil {
		return err
	}
	fmt.Printf("font atlas %dx%d with %d glyphs\n", atlas.Extent.Width, atlas.Extent.Height, len(atlas.Glyphs))
	return nil
}
