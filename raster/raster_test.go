package raster

import (
	"testing"

	"github.com/openslam-go/scanmatch/geom"
)

// TestLineEndpoints exercises the invariant that the first returned point is
// p0, the last is p1, and the point count is max(|dx|,|dy|)+1.
func TestLineEndpoints(t *testing.T) {
	cases := []struct{ p0, p1 geom.IntPoint }{
		{geom.IntPoint{0, 0}, geom.IntPoint{5, 0}},
		{geom.IntPoint{0, 0}, geom.IntPoint{0, 5}},
		{geom.IntPoint{0, 0}, geom.IntPoint{5, 5}},
		{geom.IntPoint{0, 0}, geom.IntPoint{5, 2}},
		{geom.IntPoint{0, 0}, geom.IntPoint{2, 5}},
		{geom.IntPoint{3, 4}, geom.IntPoint{-2, -9}},
		{geom.IntPoint{-5, -5}, geom.IntPoint{5, 5}},
		{geom.IntPoint{7, 7}, geom.IntPoint{7, 7}},
	}
	r := New(DefaultCapacity)
	for _, c := range cases {
		line := r.Line(c.p0, c.p1)
		dx, dy := abs(c.p1.X-c.p0.X), abs(c.p1.Y-c.p0.Y)
		n := dx
		if dy > n {
			n = dy
		}
		wantLen := n + 1
		if len(line) != wantLen {
			t.Fatalf("Line(%v,%v): len = %d, want %d", c.p0, c.p1, len(line), wantLen)
		}
		if line[0] != c.p0 {
			t.Fatalf("Line(%v,%v): first point = %v, want %v", c.p0, c.p1, line[0], c.p0)
		}
		if line[len(line)-1] != c.p1 {
			t.Fatalf("Line(%v,%v): last point = %v, want %v", c.p0, c.p1, line[len(line)-1], c.p1)
		}
	}
}

func TestLineStepsAreUnitChebyshev(t *testing.T) {
	r := New(DefaultCapacity)
	line := r.Line(geom.IntPoint{0, 0}, geom.IntPoint{10, 3})
	for i := 1; i < len(line); i++ {
		dx := abs(line[i].X - line[i-1].X)
		dy := abs(line[i].Y - line[i-1].Y)
		if dx > 1 || dy > 1 {
			t.Fatalf("step %d->%d not unit Chebyshev: %v -> %v", i-1, i, line[i-1], line[i])
		}
	}
}

func TestLinePanicsOverCapacity(t *testing.T) {
	r := New(4)
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for line exceeding scratch capacity")
		}
	}()
	r.Line(geom.IntPoint{0, 0}, geom.IntPoint{10, 0})
}
