package scanmatch

import (
	"math"

	"github.com/openslam-go/scanmatch/geom"
	"github.com/openslam-go/scanmatch/gridmap"
	"gonum.org/v1/gonum/mat"
)

// Gaussian3 is a 3D (x, y, theta) Gaussian, typically an odometry motion
// model, used to bias Likelihood's posterior toward odometry-consistent
// poses.
type Gaussian3 struct {
	Mean geom.OrientedPoint
	Cov  geom.Covariance3
}

// Eval returns the (unnormalized by the constant term) log-density of p
// under the Gaussian, via a Cholesky solve against the covariance — stable
// for the near-singular covariances a tightly peaked odometry model
// produces.
func (g Gaussian3) Eval(p geom.OrientedPoint) float64 {
	sym := mat.NewSymDense(3, []float64{
		g.Cov.XX, g.Cov.XY, g.Cov.XT,
		g.Cov.XY, g.Cov.YY, g.Cov.YT,
		g.Cov.XT, g.Cov.YT, g.Cov.TT,
	})
	var chol mat.Cholesky
	if ok := chol.Factorize(sym); !ok {
		return math.Inf(-1)
	}
	delta := mat.NewVecDense(3, []float64{
		p.X - g.Mean.X,
		p.Y - g.Mean.Y,
		geom.NormalizeAngle(p.Theta - g.Mean.Theta),
	})
	var solved mat.VecDense
	if err := chol.SolveVecTo(&solved, delta); err != nil {
		return math.Inf(-1)
	}
	mahalanobis := mat.Dot(delta, &solved)
	return -0.5*mahalanobis - 0.5*chol.LogDet()
}

// Likelihood samples a dense grid of poses around p — LinearSampleRange
// and AngularSampleRange wide, at LinearSampleStep/AngularSampleStep
// resolution — scores each with LikelihoodAndScore, and reduces the
// samples to a posterior mean, covariance, max log-likelihood, and
// log-evidence via log-sum-exp. Returns ErrNoMatch if every sample scored
// -Inf (e.g. the scan and map share no overlap at all).
func (m *Matcher) Likelihood(grid *gridmap.Grid, p geom.OrientedPoint, readings []float64) (mean geom.OrientedPoint, cov geom.Covariance3, lmax, logEvidence float64, err error) {
	return m.likelihood(grid, p, readings, nil, 1)
}

// LikelihoodWithOdometry is Likelihood with each sample's log-likelihood
// additionally biased by odometry.Eval(pose)/gain, pulling the posterior
// toward the motion model where the scan match alone is ambiguous.
func (m *Matcher) LikelihoodWithOdometry(grid *gridmap.Grid, p geom.OrientedPoint, readings []float64, odometry Gaussian3, gain float64) (mean geom.OrientedPoint, cov geom.Covariance3, lmax, logEvidence float64, err error) {
	return m.likelihood(grid, p, readings, &odometry, gain)
}

func (m *Matcher) likelihood(grid *gridmap.Grid, p geom.OrientedPoint, readings []float64, odometry *Gaussian3, gain float64) (geom.OrientedPoint, geom.Covariance3, float64, float64, error) {
	var moves []ScoredMove
	for xx := -m.cfg.LinearSampleRange; xx <= m.cfg.LinearSampleRange; xx += m.cfg.LinearSampleStep {
		for yy := -m.cfg.LinearSampleRange; yy <= m.cfg.LinearSampleRange; yy += m.cfg.LinearSampleStep {
			for tt := -m.cfg.AngularSampleRange; tt <= m.cfg.AngularSampleRange; tt += m.cfg.AngularSampleStep {
				rp := geom.OrientedPoint{X: p.X + xx, Y: p.Y + yy, Theta: geom.NormalizeAngle(p.Theta + tt)}
				score, likelihood, _ := m.LikelihoodAndScore(grid, rp, readings)
				if odometry != nil {
					likelihood += odometry.Eval(rp) / gain
				}
				moves = append(moves, ScoredMove{Pose: rp, Score: score, Likelihood: likelihood})
			}
		}
	}
	if len(moves) == 0 {
		return geom.OrientedPoint{}, geom.Covariance3{}, 0, 0, ErrNoMatch

	}

	likelihoods := make([]float64, len(moves))
	for i, mv := range moves {
		likelihoods[i] = mv.Likelihood
	}
	lmax, lcum := logSumExp(likelihoods)
	if math.IsInf(lmax, -1) {
		return geom.OrientedPoint{}, geom.Covariance3{}, 0, 0, ErrNoMatch
	}
	if lcum == 0 {
		return geom.OrientedPoint{}, geom.Covariance3{}, 0, 0, ErrNoMatch
	}

	mean, cov := weightedPosterior(moves)
	logEvidence := math.Log(lcum) + lmax
	return mean, cov, lmax, logEvidence, nil
}

// logSumExp reduces a list of log-likelihoods via the usual max-subtraction
// trick: lmax is the maximum value, sum is Σ exp(l - lmax). Shifting every
// input by a constant k shifts lmax by k and leaves sum unchanged, so
// lmax+log(sum) — the log-marginal — also shifts by exactly k.
func logSumExp(likelihoods []float64) (lmax, sum float64) {
	lmax = likelihoods[0]
	for _, l := range likelihoods[1:] {
		if l > lmax {
			lmax = l
		}
	}
	for _, l := range likelihoods {
		sum += math.Exp(l - lmax)
	}
	return lmax, sum
}
