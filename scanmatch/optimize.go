package scanmatch

import (
	"math"

	"github.com/openslam-go/scanmatch/geom"
	"github.com/openslam-go/scanmatch/gridmap"
)

// ScoredMove is one candidate pose visited during hill-climbing, with the
// Score and log-likelihood computed there.
type ScoredMove struct {
	Pose       geom.OrientedPoint
	Score      float64
	Likelihood float64
}

// the six coordinate moves tried from the current pose each hill-climbing
// round, in the order they are visited.
type move int

const (
	moveFront move = iota
	moveBack
	moveLeft
	moveRight
	moveTurnLeft
	moveTurnRight
	moveDone
)

func (m *Matcher) odometryGain(init, candidate geom.OrientedPoint) float64 {
	gain := 1.0
	if m.cfg.AngularOdometryReliability > 0 {
		dth := geom.NormalizeAngle(init.Theta - candidate.Theta)
		gain *= math.Exp(-m.cfg.AngularOdometryReliability * dth * dth)
	}
	if m.cfg.LinearOdometryReliability > 0 {
		dx, dy := init.X-candidate.X, init.Y-candidate.Y
		gain *= math.Exp(-m.cfg.LinearOdometryReliability * (dx*dx + dy*dy))
	}
	return gain
}

func applyMove(pose geom.OrientedPoint, mv move, ldelta, adelta float64) geom.OrientedPoint {
	switch mv {
	case moveFront:
		pose.X += ldelta
	case moveBack:
		pose.X -= ldelta
	case moveLeft:
		pose.Y -= ldelta
	case moveRight:
		pose.Y += ldelta
	case moveTurnLeft:
		pose.Theta = geom.NormalizeAngle(pose.Theta + adelta)
	case moveTurnRight:
		pose.Theta = geom.NormalizeAngle(pose.Theta - adelta)
	}
	return pose
}

// Optimize hill-climbs from init to the locally best-scoring pose: each
// round it tries one step in each of six directions (forward, back, left,
// right, turn left, turn right), keeps the best-scoring candidate, and
// halves the step sizes whenever a round fails to improve on the previous
// best, stopping once OptRecursiveIterations halvings have passed without
// further improvement.
func (m *Matcher) Optimize(grid *gridmap.Grid, init geom.OrientedPoint, readings []float64) (geom.OrientedPoint, float64) {
	bestScore := -1.0
	currentPose := init
	currentScore := m.Score(grid, currentPose, readings)
	adelta, ldelta := m.cfg.OptAngularDelta, m.cfg.OptLinearDelta
	refinement := 0

	for currentScore > bestScore || refinement < m.cfg.OptRecursiveIterations {
		if bestScore >= currentScore {
			refinement++
			adelta *= 0.5
			ldelta *= 0.5
		}
		bestScore = currentScore
		bestLocalPose := currentPose

		for mv := moveFront; mv != moveDone; mv++ {
			localPose := applyMove(currentPose, mv, ldelta, adelta)
			gain := m.odometryGain(init, localPose)
			localScore := gain * m.Score(grid, localPose, readings)
			if localScore > currentScore {
				currentScore = localScore
				bestLocalPose = localPose
			}
		}
		currentPose = bestLocalPose
	}
	return currentPose, bestScore
}

// OptimizeWithCovariance runs the same hill-climbing search as Optimize but
// additionally tracks every candidate pose's score and likelihood, and on
// convergence returns a posterior mean and covariance over those candidates
// via log-sum-exp-normalized likelihood weights — a coarse, cheap
// alternative to Likelihood's dedicated sampling grid. The error return is
// always nil today — candidate moves always include at least init itself —
// but is part of the signature for symmetry with Likelihood's ErrNoMatch.
func (m *Matcher) OptimizeWithCovariance(grid *gridmap.Grid, init geom.OrientedPoint, readings []float64) (mean geom.OrientedPoint, cov geom.Covariance3, bestScore float64, err error) {
	currentPose := init
	score0, likelihood0, _ := m.LikelihoodAndScore(grid, currentPose, readings)
	currentScore := score0
	moves := []ScoredMove{{Pose: currentPose, Score: score0, Likelihood: likelihood0}}

	bestScore = -1.0
	adelta, ldelta := m.cfg.OptAngularDelta, m.cfg.OptLinearDelta
	refinement := 0

	for currentScore > bestScore || refinement < m.cfg.OptRecursiveIterations {
		if bestScore >= currentScore {
			refinement++
			adelta *= 0.5
			ldelta *= 0.5
		}
		bestScore = currentScore
		bestLocalPose := currentPose

		for mv := moveFront; mv != moveDone; mv++ {
			localPose := applyMove(currentPose, mv, ldelta, adelta)
			// The source computes a gain-weighted score here, then
			// immediately discards it by overwriting the same variable
			// with LikelihoodAndScore's (ungated) result before the
			// comparison below — so odometry gating has no effect on
			// this overload, only on the plain Optimize. Preserved as-is.
			_ = m.odometryGain(init, localPose)
			localScore, localLikelihood, _ := m.LikelihoodAndScore(grid, localPose, readings)
			if localScore > currentScore {
				currentScore = localScore
				bestLocalPose = localPose
			}
			moves = append(moves, ScoredMove{Pose: localPose, Score: localScore, Likelihood: localLikelihood})
		}
		currentPose = bestLocalPose
	}

	mean, cov = weightedPosterior(moves)
	return mean, cov, bestScore, nil
}

// weightedPosterior log-sum-exp normalizes a list of scored moves'
// likelihoods into weights, then returns their weighted mean pose (using a
// circular mean for theta) and weighted covariance about that mean.
func weightedPosterior(moves []ScoredMove) (geom.OrientedPoint, geom.Covariance3) {
	lmax := moves[0].Likelihood
	for _, mv := range moves[1:] {
		if mv.Likelihood > lmax {
			lmax = mv.Likelihood
		}
	}
	weights := make([]float64, len(moves))
	lacc := 0.0
	for i, mv := range moves {
		w := math.Exp(mv.Likelihood - lmax)
		weights[i] = w
		lacc += w
	}

	var meanX, meanY, s, c float64
	for i, mv := range moves {
		w := weights[i] / lacc
		meanX += mv.Pose.X * w
		meanY += mv.Pose.Y * w
		s += w * math.Sin(mv.Pose.Theta)
		c += w * math.Cos(mv.Pose.Theta)
	}
	mean := geom.OrientedPoint{X: meanX, Y: meanY, Theta: math.Atan2(s, c)}

	var cov geom.Covariance3
	for i, mv := range moves {
		w := weights[i] / lacc
		dx := mv.Pose.X - mean.X
		dy := mv.Pose.Y - mean.Y
		dt := geom.NormalizeAngle(mv.Pose.Theta - mean.Theta)
		cov.XX += dx * dx * w
		cov.YY += dy * dy * w
		cov.TT += dt * dt * w
		cov.XY += dx * dy * w
		cov.XT += dx * dt * w
		cov.YT += dy * dt * w
	}
	return mean, cov
}
