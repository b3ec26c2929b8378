// Package raster rasterizes the line segment between two grid cells using a
// standard Bresenham traversal, for use by the scan matcher's active-area and
// registration passes.
package raster

import "github.com/openslam-go/scanmatch/geom"

// DefaultCapacity is the minimum scratch buffer capacity, sized for the
// longest beam line expected across a map (range divided by cell size).
const DefaultCapacity = 20000

// Rasterizer holds a fixed-capacity scratch buffer reused across calls to
// avoid per-beam allocation. A Rasterizer is not safe for concurrent use —
// callers must consume the slice returned by Line before calling it again.
type Rasterizer struct {
	buf []geom.IntPoint
}

// New creates a Rasterizer with the given scratch capacity. Callers driving
// a full scan matcher should use at least DefaultCapacity; New does not
// enforce a minimum so tests can exercise the overflow panic cheaply.
func New(capacity int) *Rasterizer {
	return &Rasterizer{buf: make([]geom.IntPoint, capacity)}
}

// Line rasterizes the segment from p0 to p1 inclusive of both endpoints and
// returns the ordered sequence of cells visited, backed by the Rasterizer's
// scratch buffer. The number of points is max(|dx|,|dy|)+1. Panics if the
// line is longer than the scratch buffer's capacity: that is a programming
// error (map/laser range misconfiguration), not a runtime condition to
// recover from.
func (r *Rasterizer) Line(p0, p1 geom.IntPoint) []geom.IntPoint {
	dx := p1.X - p0.X
	dy := p1.Y - p0.Y
	adx, ady := abs(dx), abs(dy)

	n := adx
	if ady > n {
		n = ady
	}
	numPoints := n + 1
	if numPoints > len(r.buf) {
		panic("raster: line exceeds scratch buffer capacity")
	}

	sx, sy := 1, 1
	if dx < 0 {
		sx = -1
	}
	if dy < 0 {
		sy = -1
	}

	x, y := p0.X, p0.Y
	if adx >= ady {
		// x-major: the tie-break branch taken when |dx| == |dy|.
		errAcc := adx / 2
		for i := 0; i < numPoints; i++ {
			r.buf[i] = geom.IntPoint{X: x, Y: y}
			errAcc -= ady
			if errAcc < 0 {
				y += sy
				errAcc += adx
			}
			x += sx
		}
	} else {
		errAcc := ady / 2
		for i := 0; i < numPoints; i++ {
			r.buf[i] = geom.IntPoint{X: x, Y: y}
			errAcc -= adx
			if errAcc < 0 {
				x += sx
				errAcc += ady
			}
			y += sy
		}
	}
	return r.buf[:numPoints]
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
