package scanmatch

import "github.com/openslam-go/scanmatch/geom"

// LaserGeometry describes the fixed mounting of a single beam laser on its
// carrier: its pose in the carrier frame, and the bearing of each beam
// relative to the laser's own heading.
type LaserGeometry struct {
	Pose   geom.OrientedPoint
	Angles []float64
}

// laserPose returns the laser's pose in world coordinates given the
// carrier's pose, rotating the laser's mounting offset into the carrier's
// heading before composing.
func laserPose(geomLP LaserGeometry, p geom.OrientedPoint) geom.OrientedPoint {
	cos, sin := cosSin(p.Theta)
	return geom.OrientedPoint{
		X:     p.X + cos*geomLP.Pose.X - sin*geomLP.Pose.Y,
		Y:     p.Y + sin*geomLP.Pose.X + cos*geomLP.Pose.Y,
		Theta: geom.NormalizeAngle(p.Theta + geomLP.Pose.Theta),
	}
}
