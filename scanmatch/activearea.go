package scanmatch

import (
	"math"

	"github.com/openslam-go/scanmatch/geom"
	"github.com/openslam-go/scanmatch/gridmap"
	"github.com/openslam-go/scanmatch/internal/monitoring"
)

// ComputeActiveArea determines which map patches a scan taken at pose will
// touch, growing grid first if any beam would land outside it, then marks
// those patches as the grid's active area so a subsequent RegisterScan can
// allocate them before writing. A no-op if an active area is already
// pending (see InvalidateActiveArea). The error return is reserved for
// future use, mirroring RegisterScan's own reserved scalar; every current
// failure mode is a programming error and panics instead.
func (m *Matcher) ComputeActiveArea(grid *gridmap.Grid, pose geom.OrientedPoint, readings []float64) error {
	if m.activeAreaComputed {
		return nil
	}
	lp := laserPose(m.laser, pose)

	min := grid.Map2World(geom.IntPoint{X: 0, Y: 0})
	max := grid.Map2World(geom.IntPoint{X: grid.W - 1, Y: grid.H - 1})
	if lp.X < min.X {
		min.X = lp.X
	}
	if lp.Y < min.Y {
		min.Y = lp.Y
	}
	if lp.X > max.X {
		max.X = lp.X
	}
	if lp.Y > max.Y {
		max.Y = lp.Y
	}

	skip := m.cfg.InitialBeamsSkip
	n := len(readings)
	if len(m.laser.Angles) < n {
		n = len(m.laser.Angles)
	}
	for i := skip; i < n; i++ {
		r := readings[i]
		if r > m.cfg.MaxRange || r == 0 || math.IsNaN(r) {
			continue
		}
		d := r
		if d > m.cfg.UsableRange {
			d = m.cfg.UsableRange
		}
		cos, sin := cosSin(lp.Theta + m.laser.Angles[i])
		phit := geom.Point{X: lp.X + d*cos, Y: lp.Y + d*sin}
		if phit.X < min.X {
			min.X = phit.X
		}
		if phit.Y < min.Y {
			min.Y = phit.Y
		}
		if phit.X > max.X {
			max.X = phit.X
		}
		if phit.Y > max.Y {
			max.Y = phit.Y
		}
	}

	if !grid.IsInsideWorld(min) || !grid.IsInsideWorld(max) {
		lmin := grid.Map2World(geom.IntPoint{X: 0, Y: 0})
		lmax := grid.Map2World(geom.IntPoint{X: grid.W - 1, Y: grid.H - 1})
		step := m.cfg.EnlargeStep
		newMinX, newMaxX := min.X, max.X
		newMinY, newMaxY := min.Y, max.Y
		if newMinX >= lmin.X {
			newMinX = lmin.X
		} else {
			newMinX -= step
		}
		if newMaxX <= lmax.X {
			newMaxX = lmax.X
		} else {
			newMaxX += step
		}
		if newMinY >= lmin.Y {
			newMinY = lmin.Y
		} else {
			newMinY -= step
		}
		if newMaxY <= lmax.Y {
			newMaxY = lmax.Y
		} else {
			newMaxY += step
		}
		monitoring.Logf("scanmatch: enlarging grid to [%.2f,%.2f]-[%.2f,%.2f]", newMinX, newMinY, newMaxX, newMaxY)
		grid.Resize(newMinX, newMinY, newMaxX, newMaxY)
	}

	active := gridmap.ActiveAreaSet{}
	p0 := grid.World2Map(lp)
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
				active[grid.PatchIndex(line[i])] = struct{}{}
			}
			if d < m.cfg.UsableRange {
				active[grid.PatchIndex(p1)] = struct{}{}
			}
		} else {
			if r > m.cfg.MaxRange || r > m.cfg.UsableRange || r == 0 || math.IsNaN(r) {
				continue
			}
			cos, sin := cosSin(lp.Theta + angle)
			phit := geom.Point{X: lp.X + r*cos, Y: lp.Y + r*sin}
			p1 := grid.World2Map(phit)
			active[grid.PatchIndex(p1)] = struct{}{}
		}
	}
	grid.SetActiveArea(active, true)
	m.activeAreaComputed = true
	return nil
}
