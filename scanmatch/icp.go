package scanmatch

import (
	"math"

	"github.com/openslam-go/scanmatch/geom"
	"github.com/openslam-go/scanmatch/gridmap"
	"gonum.org/v1/gonum/mat"
)

// ICPOptimize repeatedly runs one point-to-point ICP correspondence-and-fit
// step from start and keeps iterating while the score keeps improving,
// returning the last pose whose step did not improve on its predecessor's
// score.
func (m *Matcher) ICPOptimize(grid *gridmap.Grid, start geom.OrientedPoint, readings []float64) (geom.OrientedPoint, float64) {
	currentScore := m.Score(grid, start, readings)
	pose := start
	for {
		nextPose, nextScore := m.icpStep(grid, pose, readings)
		if nextScore <= currentScore {
			return pose, currentScore
		}
		currentScore = nextScore
		pose = nextPose
	}
}

// icpStep builds point correspondences between each beam's hit point and
// its nearest matching cell's mean hit position (the same kernel search
// Score uses), fits the rigid 2D transform that best aligns them via a
// closed-form Kabsch solve, and applies it as an additive correction to p —
// applying it as a plain-addition correction to p rather than a proper pose
// composition, since the correction is assumed small.
func (m *Matcher) icpStep(grid *gridmap.Grid, p geom.OrientedPoint, readings []float64) (geom.OrientedPoint, float64) {
	lp := laserPose(m.laser, p)
	var from, to []geom.Point

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
		if r > m.cfg.UsableRange || r == 0 || math.IsNaN(r) || skipCounter != 0 {
			continue
		}
		phit, iphit, ipfree := m.beamHitAndFree(grid, lp, m.laser.Angles[i], r)
		_, mean, found := m.searchCellMean(grid, phit, iphit, ipfree)
		if found {
			from = append(from, phit)
			to = append(to, mean)
		}
	}

	if len(from) < 2 {
		return p, m.Score(grid, p, readings)
	}

	delta := fitRigid2D(from, to)
	pnew := p.Add(delta)
	return pnew, m.Score(grid, pnew, readings)
}

// fitRigid2D finds the rigid rotation+translation that best maps from onto
// to in a least-squares sense (Kabsch's algorithm via SVD of the 2x2
// cross-covariance), and returns it as an OrientedPoint delta: Theta is the
// rotation angle, X/Y the translation.
func fitRigid2D(from, to []geom.Point) geom.OrientedPoint {
	n := len(from)
	var meanFrom, meanTo geom.Point
	for i := range from {
		meanFrom = meanFrom.Add(from[i])
		meanTo = meanTo.Add(to[i])
	}
	meanFrom = meanFrom.Scale(1 / float64(n))
	meanTo = meanTo.Scale(1 / float64(n))

	var h00, h01, h10, h11 float64
	for i := range from {
		a := from[i].Sub(meanFrom)
		b := to[i].Sub(meanTo)
		h00 += a.X * b.X
		h01 += a.X * b.Y
		h10 += a.Y * b.X
		h11 += a.Y * b.Y
	}
	h := mat.NewDense(2, 2, []float64{h00, h01, h10, h11})

	var svd mat.SVD
	if !svd.Factorize(h, mat.SVDFull) {
		return geom.OrientedPoint{}
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	var r mat.Dense
	r.Mul(&v, u.T())
	if mat.Det(&r) < 0 {
		// Reflection instead of rotation: flip the sign of V's last column
		// and recompute, the standard Kabsch correction.
		v.Set(0, 1, -v.At(0, 1))
		v.Set(1, 1, -v.At(1, 1))
		r.Mul(&v, u.T())
	}

	theta := math.Atan2(r.At(1, 0), r.At(0, 0))
	rotatedMeanFrom := geom.Point{
		X: r.At(0, 0)*meanFrom.X + r.At(0, 1)*meanFrom.Y,
		Y: r.At(1, 0)*meanFrom.X + r.At(1, 1)*meanFrom.Y,
	}
	t := meanTo.Sub(rotatedMeanFrom)
	return geom.OrientedPoint{X: t.X, Y: t.Y, Theta: theta}
}
