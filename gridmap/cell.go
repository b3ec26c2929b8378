package gridmap

import "github.com/openslam-go/scanmatch/geom"

// CellAccumulator holds per-cell sufficient statistics: a visit count, a hit
// count, and the running sum of hit coordinates. The zero value is the
// neutral accumulator an unallocated patch reads as.
type CellAccumulator struct {
	Visits uint32
	Hits   uint32

	SumHitX float64
	SumHitY float64
}

// Update always increments Visits; if hit, increments Hits and accumulates
// p's coordinates into the running sum.
func (c *CellAccumulator) Update(hit bool, p geom.Point) {
	c.Visits++
	if hit {
		c.Hits++
		c.SumHitX += p.X
		c.SumHitY += p.Y
	}
}

// Mean returns the mean hit position and true when Hits > 0; otherwise the
// zero point and false — callers must guard on the boolean, not on the
// returned point.
func (c CellAccumulator) Mean() (geom.Point, bool) {
	if c.Hits == 0 {
		return geom.Point{}, false
	}
	n := float64(c.Hits)
	return geom.Point{X: c.SumHitX / n, Y: c.SumHitY / n}, true
}

// Fullness returns Hits/Visits, or 0 if the cell has never been visited.
func (c CellAccumulator) Fullness() float64 {
	if c.Visits == 0 {
		return 0
	}
	return float64(c.Hits) / float64(c.Visits)
}
