package scanmatch

import (
	"math"

	"github.com/openslam-go/scanmatch/geom"
	"github.com/openslam-go/scanmatch/gridmap"
)

// RegisterScan writes readings taken at pose into grid: in GenerateMap mode
// it rasterizes each beam from the laser center to its hit point, marking
// every traversed cell as free and the hit cell (if within UsableRange) as
// occupied; otherwise it only marks hit cells, never carving free space.
// Computes the active area first if ComputeActiveArea hasn't already been
// called for this pose+scan.
//
// Preserves the source's double update of cells within Chebyshev distance 1
// of the hit cell (they get Update(false, ...) applied twice per traversal):
// this repo does not treat it as a bug to fix, since the weight it lends to
// near-hit free cells is an unresolved property of the reference algorithm.
//
// The returned float64 is reserved, matching registerScan's own
// always-zero return in the source; it carries no meaning today.
func (m *Matcher) RegisterScan(grid *gridmap.Grid, pose geom.OrientedPoint, readings []float64) (float64, error) {
	if !m.activeAreaComputed {
		if err := m.ComputeActiveArea(grid, pose, readings); err != nil {
			return 0, err
		}
	}
	grid.AllocActiveArea()

	lp := laserPose(m.laser, pose)
	p0 := grid.World2Map(lp)

	skip := m.cfg.InitialBeamsSkip
	n := len(readings)
	if len(m.laser.Angles) < n {
		n = len(m.laser.Angles)
	}
	for i := skip; i < n; i++ {
		r := readings[i]
		angle := m.laser.Angles[i]

		if m.cfg.GenerateMap {
			d := r
			if d > m.cfg.MaxRange || d == 0 || math.IsNaN(d) {
				continue
			}
			if d > m.cfg.UsableRange {
				d = m.cfg.UsableRange
			}
			cos, sin := cosSin(lp.Theta + angle)
			phit := geom.Point{X: lp.X + d*cos, Y: lp.Y + d*sin}
			p1 := grid.World2Map(phit)

			line := m.rasterizer.Line(p0, p1)
			for i := 0; i < len(line)-1; i++ {
				ip := line[i]
				if iabs(ip.X-p1.X) <= 1 && iabs(ip.Y-p1.Y) <= 1 {
					grid.MutableCell(ip).Update(false, geom.Point{})
				}
				grid.MutableCell(ip).Update(false, geom.Point{})
			}
			if d < m.cfg.UsableRange {
				grid.MutableCell(p1).Update(true, phit)
			}
		} else {
			if r > m.cfg.MaxRange || r > m.cfg.UsableRange || r == 0 || math.IsNaN(r) {
				continue
			}
			cos, sin := cosSin(lp.Theta + angle)
			phit := geom.Point{X: lp.X + r*cos, Y: lp.Y + r*sin}
			p1 := grid.World2Map(phit)
			grid.MutableCell(p1).Update(true, phit)
		}
	}
	return 0, nil
}

func iabs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
