// Package pathmodel defines the path data model consumed by the trajectory
// simulation: ordered path elements, flat constraints, and ranged constraints
// scoped to anchor or rotation-event ordinals.
package pathmodel

import "github.com/golang/geo/r2"

// PathElement is the closed set of element variants a path may contain.
type PathElement interface {
	isPathElement()
}

// TranslationTarget is an anchor: it contributes a vertex to the segment
// polyline. HandoffRadiusMeters, when set, overrides the default radius at
// which the simulation may hand off to the next segment early.
type TranslationTarget struct {
	XMeters             float64
	YMeters             float64
	HandoffRadiusMeters *float64
}

// Point returns the anchor position.
func (t *TranslationTarget) Point() r2.Point {
	return r2.Point{X: t.XMeters, Y: t.YMeters}
}

func (t *TranslationTarget) isPathElement() {}

// RotationTarget is a heading keyframe located between its neighboring
// anchors by TRatio (0 at the previous anchor, 1 at the next). A profiled
// target is approached by interpolation; a non-profiled target becomes the
// heading setpoint as soon as the chassis enters its interval.
type RotationTarget struct {
	RotationRadians float64
	TRatio          float64
	Profiled        bool

	// LegacyPosition carries the raw field position older path files stored
	// instead of TRatio. The loader converts it to TRatio once and clears it;
	// the simulation never reads it.
	LegacyPosition *r2.Point
}

func (r *RotationTarget) isPathElement() {}

// Waypoint is both an anchor and a rotation event. Its rotation is pinned to
// the waypoint's own position; the embedded TRatio is ignored.
type Waypoint struct {
	Translation TranslationTarget
	Rotation    RotationTarget
}

func (w *Waypoint) isPathElement() {}

// EventTrigger marks a command hook along the path. It has no effect on
// simulated motion and exists only so paths round-trip through persistence.
type EventTrigger struct {
	TRatio float64
	LibKey string
}

func (e *EventTrigger) isPathElement() {}
