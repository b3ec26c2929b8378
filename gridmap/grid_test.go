package gridmap

import (
	"testing"

	"github.com/openslam-go/scanmatch/geom"
)

// TestWorldMapRoundTrip exercises the invariant that Map2World(World2Map(p))
// recovers p to within one cell's resolution (delta/2 in each axis), since
// World2Map floors to a cell and Map2World returns its center.
func TestWorldMapRoundTrip(t *testing.T) {
	g := NewGrid(-10, -10, 10, 10, 0.05, DefaultPatchSize)
	pts := []geom.Point{
		{X: 0, Y: 0},
		{X: 1.234, Y: -5.678},
		{X: -9.99, Y: 9.99},
		{X: 3.0, Y: 3.0},
	}
	for _, p := range pts {
		ip := g.World2Map(p)
		back := g.Map2World(ip)
		half := g.Delta/2 + 1e-9
		if diff := p.Sub(back); diff.X < -half || diff.X > half || diff.Y < -half || diff.Y > half {
			t.Fatalf("round trip for %+v drifted beyond one cell: got %+v", p, back)
		}
	}
}

func TestIsInsideCellBounds(t *testing.T) {
	g := NewGrid(0, 0, 1, 1, 0.1, 8)
	if !g.IsInsideCell(geom.IntPoint{X: 0, Y: 0}) {
		t.Fatal("origin cell should be inside")
	}
	if g.IsInsideCell(geom.IntPoint{X: -1, Y: 0}) {
		t.Fatal("negative cell should be outside")
	}
	if g.IsInsideCell(geom.IntPoint{X: g.W, Y: 0}) {
		t.Fatal("cell at W should be outside (half-open)")
	}
}

// TestResizePreservesData exercises property 5's prerequisite: growing the
// grid must not disturb previously written cells at the same world
// coordinates, only translate their cell indices.
func TestResizePreservesData(t *testing.T) {
	g := NewGrid(0, 0, 1, 1, 0.1, 8)
	p := geom.Point{X: 0.5, Y: 0.5}
	ip := g.World2Map(p)
	g.SetActiveArea(ActiveAreaSet{g.PatchIndex(ip): {}}, true)
	g.AllocActiveArea()
	cell := g.MutableCell(ip)
	cell.Update(true, p)

	g.Resize(-2, -2, 3, 3)

	newIP := g.World2Map(p)
	got := g.Cell(newIP)
	if got.Visits != 1 || got.Hits != 1 {
		t.Fatalf("cell data lost across resize: got %+v", got)
	}
}

// TestActiveAreaSufficiency exercises property 5: after AllocActiveArea,
// every patch named by the active area is allocated and owned (refs==1),
// i.e. writable via MutableCell without panicking.
func TestActiveAreaSufficiency(t *testing.T) {
	g := NewGrid(0, 0, 100, 100, 1, 8)
	area := ActiveAreaSet{}
	cells := []geom.IntPoint{{X: 0, Y: 0}, {X: 9, Y: 9}, {X: 50, Y: 50}, {X: 80, Y: 3}}
	for _, c := range cells {
		area[g.PatchIndex(c)] = struct{}{}
	}
	g.SetActiveArea(area, true)
	g.AllocActiveArea()

	for _, c := range cells {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Fatalf("MutableCell(%v) panicked after AllocActiveArea: %v", c, r)
				}
			}()
			g.MutableCell(c).Update(true, g.Map2World(c))
		}()
	}
}

// TestCloneSharesUntilWritten exercises the copy-on-write sharing contract:
// a clone reads the same data as its parent, writing to the clone after
// AllocActiveArea does not disturb the parent, and an untouched patch
// remains shared (cheap) rather than eagerly copied.
func TestCloneSharesUntilWritten(t *testing.T) {
	g := NewGrid(0, 0, 100, 100, 1, 8)
	ip := geom.IntPoint{X: 4, Y: 4}
	area := ActiveAreaSet{g.PatchIndex(ip): {}}
	g.SetActiveArea(area, true)
	g.AllocActiveArea()
	g.MutableCell(ip).Update(true, g.Map2World(ip))

	clone := g.Clone()
	if got := clone.Cell(ip); got.Visits != 1 {
		t.Fatalf("clone should see parent's data before divergence, got %+v", got)
	}

	clone.SetActiveArea(area, true)
	clone.AllocActiveArea()
	clone.MutableCell(ip).Update(false, geom.Point{})

	if got := clone.Cell(ip); got.Visits != 2 {
		t.Fatalf("clone write did not apply, got %+v", got)
	}
	if got := g.Cell(ip); got.Visits != 1 {
		t.Fatalf("clone write leaked into parent: got %+v", got)
	}
}
