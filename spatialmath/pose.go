package spatialmath

import "github.com/golang/geo/r2"

// Pose is a planar robot pose: a field-relative position in meters and a
// heading in radians.
type Pose struct {
	Position r2.Point
	Theta    float64
}

// NewPose returns a pose at (x, y) meters with the given heading in radians.
func NewPose(x, y, theta float64) Pose {
	return Pose{Position: r2.Point{X: x, Y: y}, Theta: theta}
}
