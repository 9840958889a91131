// Package stroke outlines flattened polylines into fillable rings.
//
// # Algorithm Overview
//
// Outlining builds two parallel offset polylines:
//   - Forward side: offset by -width/2 along the segment normal
//   - Backward side: offset by +width/2 along the segment normal
//
// For an open contour the ring is:
//  1. Forward side in order
//  2. End cap connecting forward to backward
//  3. Backward side reversed
//  4. Start cap back to the first forward point
//
// A closed contour yields two rings, the forward side and the reversed
// backward side, which fill as an annulus under the non-zero rule.
//
// At each join the inner side passes through the joint itself, so inner
// overlaps never cancel coverage under non-zero winding.
//
// # Line Caps
//
//   - Butt: flat cap ending exactly at the endpoint
//   - Round: semicircle with radius width/2, approximated by chords
//   - Square: square cap extending width/2 beyond the endpoint
//
// # Line Joins
//
//   - Miter: sharp corner, falls back to bevel past the miter limit
//   - Round: circular arc approximated by chords
//   - Bevel: straight line across the corner
package stroke
