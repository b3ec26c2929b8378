// Package scanmatch implements the 2D laser scan matching core: given an
// occupancy grid and a laser scan, it registers the scan into the grid, and
// searches for the rigid pose that best explains the scan against the grid.
package scanmatch

import (
	"errors"
	"fmt"
	"math"

	"github.com/openslam-go/scanmatch/config"
	"github.com/openslam-go/scanmatch/geom"
	"github.com/openslam-go/scanmatch/raster"
)

// nullLikelihood, divided by LikelihoodSigma, is the per-beam log-likelihood
// charged to a beam that finds no occupied cell near its endpoint.
const nullLikelihood = -0.5

// laserMaxBeams is the largest number of beams a LaserGeometry may have.
const laserMaxBeams = 2048

// ErrNoMatch is returned when a posterior or optimization pass finds not a
// single candidate pose with nonzero likelihood — e.g. the scan and map
// share no overlap at all.
var ErrNoMatch = errors.New("scanmatch: no candidate pose matched the map")

// Matcher holds the tuning parameters and scratch state for one laser's
// scan matching passes. A Matcher is not safe for concurrent use: its
// rasterizer scratch buffer and activeAreaComputed flag are mutated by
// ComputeActiveArea and RegisterScan. Run one Matcher per goroutine.
type Matcher struct {
	cfg   config.MatcherConfig
	laser LaserGeometry

	rasterizer *raster.Rasterizer

	activeAreaComputed bool
}

// NewMatcher validates cfg and builds a Matcher for the given laser
// geometry. Returns an error if cfg fails validation or the laser has no
// beams or more than laserMaxBeams, rather than panicking, since both are
// caller-supplied data that can legitimately be wrong (malformed config
// file, misconfigured driver).
func NewMatcher(cfg config.MatcherConfig, laser LaserGeometry) (*Matcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(laser.Angles) == 0 {
		return nil, errors.New("scanmatch: laser geometry has no beams")
	}
	if len(laser.Angles) > laserMaxBeams {
		return nil, fmt.Errorf("scanmatch: laser geometry has %d beams, more than the maximum %d", len(laser.Angles), laserMaxBeams)
	}
	return &Matcher{
		cfg:        cfg,
		laser:      laser,
		rasterizer: raster.New(cfg.RasterCapacity),
	}, nil
}

// Config returns the matcher's tuning parameters.
func (m *Matcher) Config() config.MatcherConfig { return m.cfg }

// InvalidateActiveArea forces the next RegisterScan (or explicit
// ComputeActiveArea call) to recompute the active area, even if one was
// already computed for the current pose. Call this whenever the pose a
// scan will be registered at changes after the active area was last
// computed.
func (m *Matcher) InvalidateActiveArea() {
	m.activeAreaComputed = false
}

func cosSin(theta float64) (cos, sin float64) {
	return math.Cos(theta), math.Sin(theta)
}

// usableReading reports whether beam reading r should be used at all, and
// the distance clamped to the usable range.
func (m *Matcher) usableReading(r float64) (d float64, ok bool) {
	if r > m.cfg.MaxRange || r == 0 || math.IsNaN(r) {
		return 0, false
	}
	d = r
	if d > m.cfg.UsableRange {
		d = m.cfg.UsableRange
	}
	return d, true
}
