// Package vg is the data model of a tessellating 2D vector-graphics core.
//
// # Overview
//
// vg holds retained vector content that is turned into GPU vertex streams by
// the canvas package. A Path is a list of SVG-like drawing commands with a
// style block; an Image is an ordered draw list of paths with per-entry
// transforms.
//
// # Quick Start
//
//	img := vg.NewImage(64, 64)
//	ref := img.AddPath(vg.NewPath().Circle(32, 32, 20), "dot", 0, vg.Identity())
//	ref.SetFillColor(vg.Red).SetAntialias(true)
//
//	snap := img.PopData() // immutable, safe to hand to a worker
//	out, err := canvas.New(canvas.WithQuality(1)).Draw(snap, vg.Size{Width: 128, Height: 128})
//
// # Copy-on-write
//
// PopData returns an ImageData snapshot that shares storage with the image.
// Mutations made afterwards, directly or through a PathRef, fork the shared
// tables and the touched path, so snapshots stay valid while the image keeps
// changing on the main goroutine.
//
// # Architecture
//
// The module is organized into:
//   - Public model: Path, Image, PathRef, ImageData, Style, Mat4, Color
//   - Internal: flatten (curves to polylines), stroke (outlines), tess (sweep-line tessellator)
//   - Rendering: canvas (image snapshot to vertex data)
//   - GPU: gpucore (device contract), backend/host, backend/wgpu, transfer, fontatlas, mesh, resource, present
//
// # Logging
//
// vg and its sub-packages log through log/slog. Logging is off by default;
// see SetLogger.
package vg
