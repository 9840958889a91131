// Package tess triangulates polygons with a sweep line.
//
// Contours are loaded into a half-edge mesh that lives in an Arena. A
// sweep over the vertices in (x, y) order maintains the active edges,
// splits edges at intersections and degenerate vertices, and assigns
// every face a winding number. The faces selected by the winding rule are
// monotone and are triangulated in one pass each. An optional edge-flip
// pass improves triangle shape, and an optional rim of zero-intensity
// vertices provides antialiased edges.
//
//	t := tess.New(arena)
//	t.AddContour(outer)
//	t.AddContour(hole)
//	res, err := t.Tessellate(tess.Options{Winding: tess.WindingNonZero})
package tess
