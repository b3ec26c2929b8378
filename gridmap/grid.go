// Package gridmap implements the hierarchical 2D occupancy grid used by the
// scan matcher: a dynamically resizable array of CellAccumulator cells laid
// out as a coarse grid of fixed-size, lazily-allocated patches.
//
// Patches are reference-counted so that Clone is O(patch-grid): an external
// particle filter can cheaply snapshot a Grid per particle, and only the
// patches a subsequent write pass actually touches are copied, via
// AllocActiveArea's copy-on-write.
package gridmap

import (
	"fmt"
	"math"

	"github.com/openslam-go/scanmatch/geom"
)

// DefaultPatchSize is 2^5 = 32 cells per patch side, a typical patch size
// for this style of hierarchical occupancy grid.
const DefaultPatchSize = 32

// PatchCoord is a coarse coordinate identifying one patch in the patch grid.
type PatchCoord struct {
	X, Y int
}

// ActiveAreaSet is the set of patches a pending write pass will touch.
type ActiveAreaSet map[PatchCoord]struct{}

type patch struct {
	cells []CellAccumulator
	refs  int
}

// Grid is a hierarchical occupancy grid: world origin, cell size, grid
// dimensions in cells, and a coarser grid of patches.
type Grid struct {
	XMin, YMin float64
	Delta      float64
	W, H       int // dimensions in cells
	PatchSize  int

	patchW, patchH int
	patches        [][]*patch
	activeArea     ActiveAreaSet
}

// NewGrid creates a Grid covering at least [xMin,xMax) x [yMin,yMax) at the
// given cell size, with patches of patchSize cells per side. The grid is
// grown to the next whole multiple of patchSize so every patch is
// full-sized; no patches are allocated until written.
func NewGrid(xMin, yMin, xMax, yMax, delta float64, patchSize int) *Grid {
	if patchSize <= 0 {
		patchSize = DefaultPatchSize
	}
	w := ceilToPatch(cellSpan(xMax-xMin, delta), patchSize)
	h := ceilToPatch(cellSpan(yMax-yMin, delta), patchSize)
	if w == 0 {
		w = patchSize
	}
	if h == 0 {
		h = patchSize
	}
	pw, ph := w/patchSize, h/patchSize
	patches := make([][]*patch, pw)
	for i := range patches {
		patches[i] = make([]*patch, ph)
	}
	return &Grid{
		XMin: xMin, YMin: yMin, Delta: delta,
		W: w, H: h, PatchSize: patchSize,
		patchW: pw, patchH: ph, patches: patches,
	}
}

func cellSpan(metersSpan, delta float64) int {
	if metersSpan <= 0 {
		return 0
	}
	return int(math.Ceil(metersSpan / delta))
}

func ceilToPatch(cells, patchSize int) int {
	if cells <= 0 {
		return 0
	}
	n := (cells + patchSize - 1) / patchSize
	return n * patchSize
}

// World2Map maps a world point to its enclosing cell: floor((p-origin)/delta).
func (g *Grid) World2Map(p geom.Point) geom.IntPoint {
	return geom.IntPoint{
		X: int(math.Floor((p.X - g.XMin) / g.Delta)),
		Y: int(math.Floor((p.Y - g.YMin) / g.Delta)),
	}
}

// Map2World maps a cell to its center in world coordinates:
// origin + (cell + 0.5) * delta.
func (g *Grid) Map2World(ip geom.IntPoint) geom.Point {
	return geom.Point{
		X: g.XMin + (float64(ip.X)+0.5)*g.Delta,
		Y: g.YMin + (float64(ip.Y)+0.5)*g.Delta,
	}
}

// IsInsideCell reports whether ip lies within [0,W) x [0,H).
func (g *Grid) IsInsideCell(ip geom.IntPoint) bool {
	return ip.X >= 0 && ip.X < g.W && ip.Y >= 0 && ip.Y < g.H
}

// IsInsideWorld reports whether p's enclosing cell lies within the grid.
func (g *Grid) IsInsideWorld(p geom.Point) bool {
	return g.IsInsideCell(g.World2Map(p))
}

// PatchIndex divides a cell coordinate by the patch size to find which patch
// it falls into.
func (g *Grid) PatchIndex(ip geom.IntPoint) PatchCoord {
	return PatchCoord{X: ip.X / g.PatchSize, Y: ip.Y / g.PatchSize}
}

func (g *Grid) localIndex(ip geom.IntPoint) int {
	lx, ly := ip.X%g.PatchSize, ip.Y%g.PatchSize
	return lx*g.PatchSize + ly
}

// Cell reads the accumulator at ip. An unallocated patch reads as the
// neutral (zero-value) accumulator. Panics if ip is out of bounds: that is
// a programming error, and callers must Resize first.
func (g *Grid) Cell(ip geom.IntPoint) CellAccumulator {
	if !g.IsInsideCell(ip) {
		panic(fmt.Sprintf("gridmap: cell %v out of bounds [0,%d)x[0,%d)", ip, g.W, g.H))
	}
	pc := g.PatchIndex(ip)
	p := g.patches[pc.X][pc.Y]
	if p == nil {
		return CellAccumulator{}
	}
	return p.cells[g.localIndex(ip)]
}

// CellOrZero behaves like Cell but returns the neutral accumulator instead
// of panicking when ip lies outside the grid. Scoring kernels probe a
// window around a hit cell that may extend past the map edge; those
// probes should read as "empty", not crash.
func (g *Grid) CellOrZero(ip geom.IntPoint) CellAccumulator {
	if !g.IsInsideCell(ip) {
		return CellAccumulator{}
	}
	return g.Cell(ip)
}

// MutableCell returns a pointer to the accumulator at ip for in-place
// update. The enclosing patch must already be allocated and exclusively
// owned by this Grid (via AllocActiveArea) — writing to a shared or
// unallocated patch is a programming error and panics.
func (g *Grid) MutableCell(ip geom.IntPoint) *CellAccumulator {
	if !g.IsInsideCell(ip) {
		panic(fmt.Sprintf("gridmap: cell %v out of bounds [0,%d)x[0,%d)", ip, g.W, g.H))
	}
	pc := g.PatchIndex(ip)
	p := g.patches[pc.X][pc.Y]
	if p == nil {
		panic(fmt.Sprintf("gridmap: write to unallocated patch %v; call AllocActiveArea first", pc))
	}
	if p.refs > 1 {
		panic(fmt.Sprintf("gridmap: write to shared patch %v; AllocActiveArea did not uniquify it", pc))
	}
	return &p.cells[g.localIndex(ip)]
}

// Resize grows the grid so the world rectangle [xMin,yMin]-[xMax,yMax] lies
// strictly inside it, preserving existing cell data at the same world
// coordinates. New patches are unallocated. Growth is rounded out to whole
// patches so existing patch pointers need only be translated, never split.
func (g *Grid) Resize(xMin, yMin, xMax, yMax float64) {
	curXMax := g.XMin + float64(g.W)*g.Delta
	curYMax := g.YMin + float64(g.H)*g.Delta

	extendLeft := 0
	if xMin < g.XMin {
		extendLeft = ceilToPatch(cellSpan(g.XMin-xMin, g.Delta), g.PatchSize)
	}
	extendBottom := 0
	if yMin < g.YMin {
		extendBottom = ceilToPatch(cellSpan(g.YMin-yMin, g.Delta), g.PatchSize)
	}
	extendRight := 0
	if xMax > curXMax {
		extendRight = ceilToPatch(cellSpan(xMax-curXMax, g.Delta), g.PatchSize)
	}
	extendTop := 0
	if yMax > curYMax {
		extendTop = ceilToPatch(cellSpan(yMax-curYMax, g.Delta), g.PatchSize)
	}
	if extendLeft == 0 && extendRight == 0 && extendBottom == 0 && extendTop == 0 {
		return
	}

	offPX, offPY := extendLeft/g.PatchSize, extendBottom/g.PatchSize
	newPatchW := g.patchW + offPX + extendRight/g.PatchSize
	newPatchH := g.patchH + offPY + extendTop/g.PatchSize

	newPatches := make([][]*patch, newPatchW)
	for i := range newPatches {
		newPatches[i] = make([]*patch, newPatchH)
	}
	for x := 0; x < g.patchW; x++ {
		for y := 0; y < g.patchH; y++ {
			newPatches[x+offPX][y+offPY] = g.patches[x][y]
		}
	}

	g.patches = newPatches
	g.XMin -= float64(extendLeft) * g.Delta
	g.YMin -= float64(extendBottom) * g.Delta
	g.W += extendLeft + extendRight
	g.H += extendBottom + extendTop
	g.patchW = newPatchW
	g.patchH = newPatchH
}

// SetActiveArea installs the set of patches the next write pass may touch.
// When replace is false, coords are merged into any existing active area.
func (g *Grid) SetActiveArea(coords ActiveAreaSet, replace bool) {
	if replace || g.activeArea == nil {
		g.activeArea = coords
		return
	}
	for pc := range coords {
		g.activeArea[pc] = struct{}{}
	}
}

// AllocActiveArea ensures every patch named by the current active area is
// allocated and exclusively owned by this Grid, copying shared patches
// (copy-on-write) and allocating unallocated ones. Idempotent.
func (g *Grid) AllocActiveArea() {
	for pc := range g.activeArea {
		p := g.patches[pc.X][pc.Y]
		switch {
		case p == nil:
			g.patches[pc.X][pc.Y] = &patch{cells: make([]CellAccumulator, g.PatchSize*g.PatchSize), refs: 1}
		case p.refs > 1:
			owned := &patch{cells: append([]CellAccumulator(nil), p.cells...), refs: 1}
			p.refs--
			g.patches[pc.X][pc.Y] = owned
		}
	}
}

// Clone returns a snapshot of g in O(patch-grid) time: the patch grid is
// copied but patches themselves are shared (refcounted) until one of the
// snapshots writes to them via AllocActiveArea. The clone starts with no
// active area — callers must compute one before writing to it.
func (g *Grid) Clone() *Grid {
	newPatches := make([][]*patch, g.patchW)
	for x := range g.patches {
		row := make([]*patch, g.patchH)
		for y, p := range g.patches[x] {
			if p != nil {
				p.refs++
			}
			row[y] = p
		}
		newPatches[x] = row
	}
	return &Grid{
		XMin: g.XMin, YMin: g.YMin, Delta: g.Delta,
		W: g.W, H: g.H, PatchSize: g.PatchSize,
		patchW: g.patchW, patchH: g.patchH, patches: newPatches,
	}
}
