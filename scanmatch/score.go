package scanmatch

import (
	"math"

	"github.com/openslam-go/scanmatch/geom"
	"github.com/openslam-go/scanmatch/gridmap"
)

// searchCell looks for the occupied cell nearest phit within a
// (2*KernelSize+1)^2 window around iphit, skipping any candidate whose
// paired free-space probe (offset by ipfree-iphit) reads as occupied too —
// that candidate is behind a wall, not the surface the beam actually saw.
// Returns the displacement from phit to the nearest matching cell's mean
// hit position, and whether any candidate was found at all. Shared by
// Score and LikelihoodAndScore.
func (m *Matcher) searchCell(grid *gridmap.Grid, phit geom.Point, iphit, ipfree geom.IntPoint) (geom.Point, bool) {
	mu, _, found := m.searchCellMean(grid, phit, iphit, ipfree)
	return mu, found
}

// searchCellMean is searchCell's full result: the displacement to the
// nearest matching cell (mu), that cell's own mean hit position, and
// whether any candidate was found. ICPOptimize needs the mean itself to
// build point correspondences; Score/LikelihoodAndScore only need mu.
func (m *Matcher) searchCellMean(grid *gridmap.Grid, phit geom.Point, iphit, ipfree geom.IntPoint) (mu, mean geom.Point, found bool) {
	offX, offY := ipfree.X-iphit.X, ipfree.Y-iphit.Y
	k := m.cfg.KernelSize
	for xx := -k; xx <= k; xx++ {
		for yy := -k; yy <= k; yy++ {
			pr := geom.IntPoint{X: iphit.X + xx, Y: iphit.Y + yy}
			pf := geom.IntPoint{X: pr.X + offX, Y: pr.Y + offY}
			cell := grid.CellOrZero(pr)
			fcell := grid.CellOrZero(pf)
			if cell.Fullness() <= m.cfg.FullnessThreshold || fcell.Fullness() > m.cfg.FullnessThreshold {
				continue
			}
			cellMean, _ := cell.Mean()
			candidateMu := phit.Sub(cellMean)
			if !found {
				mu, mean, found = candidateMu, cellMean, true
			} else if candidateMu.DistSq(geom.Point{}) < mu.DistSq(geom.Point{}) {
				mu, mean = candidateMu, cellMean
			}
		}
	}
	return mu, mean, found
}

// beamHitAndFree computes a beam's hit point and the map cells for the hit
// and a slightly-short "free space" probe behind it, used to gate
// searchCell against matching a cell on the far side of a surface.
func (m *Matcher) beamHitAndFree(grid *gridmap.Grid, lp geom.OrientedPoint, angle, r float64) (phit geom.Point, iphit, ipfree geom.IntPoint) {
	cos, sin := cosSin(lp.Theta + angle)
	phit = geom.Point{X: lp.X + r*cos, Y: lp.Y + r*sin}
	iphit = grid.World2Map(phit)
	freeDelta := grid.Delta * m.cfg.FreeCellRatio
	pfree := geom.Point{X: lp.X + (r-freeDelta)*cos, Y: lp.Y + (r-freeDelta)*sin}
	ipfree = grid.World2Map(pfree)
	return phit, iphit, ipfree
}

// Score computes the scan's correlation with the map at pose: for each
// usable beam it searches the kernel window for the nearest occupied cell
// and sums a Gaussian falloff of the squared displacement. Higher is
// better; Score has no fixed upper bound.
func (m *Matcher) Score(grid *gridmap.Grid, pose geom.OrientedPoint, readings []float64) float64 {
	s, _ := m.scoreAndCount(grid, pose, readings)
	return s
}

func (m *Matcher) scoreAndCount(grid *gridmap.Grid, pose geom.OrientedPoint, readings []float64) (score float64, matched int) {
	lp := laserPose(m.laser, pose)
	skip := m.cfg.InitialBeamsSkip
	n := len(readings)
	if len(m.laser.Angles) < n {
		n = len(m.laser.Angles)
	}
	skipCounter := 0
	for i := skip; i < n; i++ {
		skipCounter++
		if skipCounter > m.cfg.LikelihoodSkip {
			skipCounter = 0
		}
		r := readings[i]
		if skipCounter != 0 || r > m.cfg.UsableRange || r == 0 || math.IsNaN(r) {
			continue
		}
		phit, iphit, ipfree := m.beamHitAndFree(grid, lp, m.laser.Angles[i], r)
		mu, found := m.searchCell(grid, phit, iphit, ipfree)
		if found {
			score += math.Exp(-1 / m.cfg.GaussianSigma * mu.DistSq(geom.Point{}))
			matched++
		}
	}
	return score, matched
}

// LikelihoodAndScore computes both Score's correlation score and a
// per-scan log-likelihood: beams with no matching cell are charged
// nullLikelihood/LikelihoodSigma, beams with a match are charged
// -mu^2/LikelihoodSigma. Returns the number of beams that found a match.
func (m *Matcher) LikelihoodAndScore(grid *gridmap.Grid, pose geom.OrientedPoint, readings []float64) (score, likelihood float64, matched int) {
	lp := laserPose(m.laser, pose)
	noHit := nullLikelihood / m.cfg.LikelihoodSigma
	skip := m.cfg.InitialBeamsSkip
	n := len(readings)
	if len(m.laser.Angles) < n {
		n = len(m.laser.Angles)
	}
	skipCounter := 0
	for i := skip; i < n; i++ {
		skipCounter++
		if skipCounter > m.cfg.LikelihoodSkip {
			skipCounter = 0
		}
		r := readings[i]
		if r > m.cfg.UsableRange || r == 0 || math.IsNaN(r) {
			continue
		}
		if skipCounter != 0 {
			continue
		}
		phit, iphit, ipfree := m.beamHitAndFree(grid, lp, m.laser.Angles[i], r)
		mu, found := m.searchCell(grid, phit, iphit, ipfree)
		distSq := mu.DistSq(geom.Point{})
		if found {
			score += math.Exp(-1 / m.cfg.GaussianSigma * distSq)
			matched++
			likelihood += -distSq / m.cfg.LikelihoodSigma
		} else {
			likelihood += noHit
		}
	}
	return score, likelihood, matched
}
