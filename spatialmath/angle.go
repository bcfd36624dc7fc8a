// Package spatialmath provides the planar geometry and angle primitives used
// by the path model and the trajectory simulation.
package spatialmath

import "math"

// DegToRad converts degrees to radians.
func DegToRad(degrees float64) float64 {
	return degrees * math.Pi / 180
}

// RadToDeg converts radians to degrees.
func RadToDeg(radians float64) float64 {
	return radians * 180 / math.Pi
}

// WrapAngle normalizes an angle in radians to [-pi, pi].
func WrapAngle(theta float64) float64 {
	for theta > math.Pi {
		theta -= 2 * math.Pi
	}
	for theta < -math.Pi {
		theta += 2 * math.Pi
	}
	return theta
}

// ShortestAngularDistance returns the signed smallest rotation that takes
// current to target, in [-pi, pi].
func ShortestAngularDistance(target, current float64) float64 {
	return WrapAngle(target - current)
}
