package simulation

import (
	"math"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"

	"go.bline.dev/bline/pathmodel"
	"go.bline.dev/bline/spatialmath"
)

// DefaultDTSeconds is the integration step used when Options.DTSeconds is
// zero. Callers wanting higher fidelity pass a smaller step (e.g. 0.001).
const DefaultDTSeconds = 0.02

// Termination epsilons. Position and heading snap to the exact end state
// once within these, independent of the configured end tolerances.
const (
	epsPositionMeters = 1e-3
	epsAngleRadians   = 1e-3

	// Heading only snaps near the endpoint so a matching start/end heading
	// does not short-circuit an intermediate rotation event.
	rotationSnapProximityMeters = 0.1
)

// RotationControlMode selects how the desired angular velocity is derived
// from heading error each step.
type RotationControlMode int

const (
	// RotationControlTrapezoidal solves for the fastest angular speed that
	// the acceleration limit can still bring to rest without overshooting the
	// target within discrete steps. This is the default.
	RotationControlTrapezoidal RotationControlMode = iota
	// RotationControl2AD applies the same 2ad law as translation:
	// omega = sign(err) * min(maxOmega, sqrt(2*alpha*|err|)).
	RotationControl2AD
)

// HeadingSeedMode selects the heading the chassis starts with (and holds
// before the first rotation event).
type HeadingSeedMode int

const (
	// HeadingSeedFirstRotation seeds from the first rotation-bearing element
	// when the path has any, else from the first segment's direction. This is
	// the default.
	HeadingSeedFirstRotation HeadingSeedMode = iota
	// HeadingSeedPathDirection always seeds from the first segment's
	// direction.
	HeadingSeedPathDirection
)

// Options tune a simulation run. The zero value uses DefaultDTSeconds,
// trapezoidal rotation control, and first-rotation heading seeding.
type Options struct {
	// DTSeconds is the integration step. Zero selects DefaultDTSeconds;
	// negative is rejected.
	DTSeconds       float64
	RotationControl RotationControlMode
	HeadingSeed     HeadingSeedMode
	Logger          golog.Logger
}

// chassisSpeeds is the commanded field-relative velocity vector.
type chassisSpeeds struct {
	vx, vy float64
	omega  float64
}

// limitAcceleration bounds the change from last to desired over dt: the
// translational delta magnitude by maxTransAccel (direction preserved) and
// the angular delta by maxAngularAccel.
func limitAcceleration(desired, last chassisSpeeds, dt, maxTransAccel, maxAngularAccel float64) chassisSpeeds {
	if dt <= 0 {
		return last
	}

	dvx := desired.vx - last.vx
	dvy := desired.vy - last.vy
	desiredAcc := math.Hypot(dvx, dvy) / dt
	obtainableAcc := math.Max(0, math.Min(desiredAcc, maxTransAccel))
	dir := 0.0
	if math.Abs(dvx)+math.Abs(dvy) > 0 {
		dir = math.Atan2(dvy, dvx)
	}

	desiredAlpha := (desired.omega - last.omega) / dt
	obtainableAlpha := math.Max(-maxAngularAccel, math.Min(desiredAlpha, maxAngularAccel))

	return chassisSpeeds{
		vx:    last.vx + math.Cos(dir)*obtainableAcc*dt,
		vy:    last.vy + math.Sin(dir)*obtainableAcc*dt,
		omega: last.omega + obtainableAlpha*dt,
	}
}

// remainingDistanceFrom sums the exact point-to-point chain from the current
// position through every remaining segment endpoint. This intentionally
// measures straight-line hops rather than projected arc length.
func remainingDistanceFrom(segments []segment, segIdx int, x, y float64) float64 {
	remaining := 0.0
	px, py := x, y
	for k := segIdx; k < len(segments); k++ {
		remaining += math.Hypot(segments[k].b.X-px, segments[k].b.Y-py)
		px, py = segments[k].b.X, segments[k].b.Y
	}
	return remaining
}

// guardTime bounds the integration loop for unreachable or misconfigured
// paths, derived from the slowest rate limits across all ranged constraints.
func guardTime(path *pathmodel.Path, totalLength, baseMaxV, baseMaxOmega float64) float64 {
	minTransV := baseMaxV
	minRotOmegaDeg := spatialmath.RadToDeg(baseMaxOmega)
	for _, rc := range path.RangedConstraints {
		if rc.Value <= 0 {
			continue
		}
		switch rc.Key {
		case pathmodel.KeyMaxVelocityMetersPerSec:
			minTransV = math.Min(minTransV, rc.Value)
		case pathmodel.KeyMaxVelocityDegPerSec:
			minRotOmegaDeg = math.Min(minRotOmegaDeg, rc.Value)
		}
	}
	minRotOmega := spatialmath.DegToRad(math.Max(1e-3, minRotOmegaDeg))
	minTransV = math.Max(0.1, minTransV)
	return math.Max(3.0, 2.0*totalLength/minTransV+1.5*math.Pi/minRotOmega)
}

func roundToMillis(t float64) float64 {
	return math.Round(t*1000) / 1000
}

// SimulatePath integrates idealized robot motion along the path at a fixed
// time step and returns the full time-indexed trace.
//
// Malformed geometry never fails: degenerate segments, missing constraints,
// and paths with fewer than two anchors all degrade to well-defined results.
// The only rejected input is a negative time step.
func SimulatePath(path *pathmodel.Path, cfg Config, opts Options) (*Result, error) {
	if opts.DTSeconds < 0 {
		return nil, errors.Errorf("time step must be non-negative, got %f", opts.DTSeconds)
	}
	dt := opts.DTSeconds
	if dt == 0 {
		dt = DefaultDTSeconds
	}
	logger := opts.Logger
	if logger == nil {
		logger = golog.Global()
	}
	if path == nil {
		path = &pathmodel.Path{}
	}

	segments, anchors, anchorElementIndices := buildSegments(path)

	builder := newResultBuilder()
	if len(anchors) < 2 || len(segments) == 0 {
		if len(anchors) > 0 {
			builder.record(0, spatialmath.Pose{Position: anchors[0]})
		}
		return builder.finish(0), nil
	}

	c := path.Constraints
	baseMaxV := resolveConstraint(c.MaxVelocityMetersPerSec, cfg.DefaultMaxVelocityMetersPerSec, defaultMaxVelocityMetersPerSec)
	baseMaxA := resolveConstraint(c.MaxAccelerationMetersPerSec2, cfg.DefaultMaxAccelerationMetersPerSec2, defaultMaxAccelerationMetersPerSec2)
	baseMaxOmega := spatialmath.DegToRad(
		resolveConstraint(c.MaxVelocityDegPerSec, cfg.DefaultMaxVelocityDegPerSec, defaultMaxVelocityDegPerSec))
	baseMaxAlpha := spatialmath.DegToRad(
		resolveConstraint(c.MaxAccelerationDegPerSec2, cfg.DefaultMaxAccelerationDegPerSec2, defaultMaxAccelerationDegPerSec2))
	endTransTol := resolveConstraint(c.EndTranslationToleranceMeters, cfg.DefaultEndTranslationToleranceMeters, defaultEndTranslationToleranceMeters)
	endRotTol := spatialmath.DegToRad(
		resolveConstraint(c.EndRotationToleranceDeg, cfg.DefaultEndRotationToleranceDeg, defaultEndRotationToleranceDeg))
	defaultHandoff := resolveConstraint(nil, cfg.DefaultHandoffRadiusMeters, defaultHandoffRadiusMeters)

	cumLengths := cumulativeLengths(segments)
	totalLength := cumLengths[len(cumLengths)-1]

	frames := buildGlobalKeyframes(path, anchorElementIndices, cumLengths)

	firstSeg := segments[0]
	startHeading := math.Atan2(firstSeg.b.Y-firstSeg.a.Y, firstSeg.b.X-firstSeg.a.X)
	if opts.HeadingSeed == HeadingSeedFirstRotation && len(frames) > 0 {
		startHeading = frames[0].theta
	}
	initialHeading, _, _ := desiredHeading(frames, 0, startHeading)
	endHeadingTarget, _, _ := desiredHeading(frames, totalLength, startHeading)

	guard := guardTime(path, totalLength, baseMaxV, baseMaxOmega)
	logger.Debugw("starting simulation",
		"dt_s", dt,
		"segments", len(segments),
		"total_length_m", totalLength,
		"rotation_events", len(frames),
		"max_v_mps", baseMaxV,
		"max_omega_radps", baseMaxOmega,
		"guard_time_s", guard,
	)

	x, y := firstSeg.a.X, firstSeg.a.Y
	theta := initialHeading
	speeds := chassisSpeeds{}
	endX, endY := anchors[len(anchors)-1].X, anchors[len(anchors)-1].Y

	t := 0.0
	segIdx := 0
	terminated := false

	for t <= guard {
		seg := segments[segIdx]
		distToTarget := math.Hypot(seg.b.X-x, seg.b.Y-y)
		projectedS := clampFloat((x-seg.a.X)*seg.dir.X+(y-seg.a.Y)*seg.dir.Y, 0, seg.length)
		radius := handoffRadiusForSegment(path, segIdx, anchorElementIndices, defaultHandoff)

		// Early handoff, repeated so a step landing inside two radii can skip
		// a segment entirely. Never applies to the last segment.
		for segIdx < len(segments)-1 && distToTarget <= radius {
			segIdx++
			seg = segments[segIdx]
			distToTarget = math.Hypot(seg.b.X-x, seg.b.Y-y)
			projectedS = clampFloat((x-seg.a.X)*seg.dir.X+(y-seg.a.Y)*seg.dir.Y, 0, seg.length)
			radius = handoffRadiusForSegment(path, segIdx, anchorElementIndices, defaultHandoff)
		}
		lastSegment := segIdx == len(segments)-1

		ux, uy := 1.0, 0.0
		if distToTarget > 1e-9 {
			ux = (seg.b.X - x) / distToTarget
			uy = (seg.b.Y - y) / distToTarget
		}

		globalS := cumLengths[segIdx] + projectedS
		desiredTheta, _, _ := desiredHeading(frames, globalS, startHeading)
		remaining := remainingDistanceFrom(segments, segIdx, x, y)

		// Effective limits: translation keyed to the 1-based ordinal of the
		// anchor this segment leads into, rotation keyed to the event ahead
		// of the current path distance.
		nextAnchorOrdinal := segIdx + 2
		maxV, maxA := baseMaxV, baseMaxA
		if v, ok := activeTranslationLimit(path, pathmodel.KeyMaxVelocityMetersPerSec, nextAnchorOrdinal); ok {
			maxV = v
		}
		if v, ok := activeTranslationLimit(path, pathmodel.KeyMaxAccelerationMetersPerSec, nextAnchorOrdinal); ok {
			maxA = v
		}
		maxOmega, maxAlpha := baseMaxOmega, baseMaxAlpha
		if v, ok := activeRotationLimit(path, frames, pathmodel.KeyMaxVelocityDegPerSec, globalS); ok {
			maxOmega = spatialmath.DegToRad(v)
		}
		if v, ok := activeRotationLimit(path, frames, pathmodel.KeyMaxAccelerationDegPerSec, globalS); ok {
			maxAlpha = spatialmath.DegToRad(v)
		}

		// 2ad speed law toward the end of the path. The braking-distance term
		// keeps the base acceleration even under a segment-local override.
		vDes := math.Min(maxV, math.Sqrt(2*baseMaxA*remaining))
		if lastSegment && vDes <= 1e-9 && distToTarget > epsPositionMeters {
			// Collapsed to zero short of the end: nudge the rest of the way.
			vDes = math.Min(maxV, distToTarget/math.Max(dt, 1e-9))
		}

		angularErr := spatialmath.ShortestAngularDistance(desiredTheta, theta)
		var omegaDes float64
		switch opts.RotationControl {
		case RotationControl2AD:
			omegaDes = math.Copysign(
				math.Min(maxOmega, math.Sqrt(2*maxAlpha*math.Abs(angularErr))), angularErr)
		default:
			// Largest speed this step that deceleration at maxAlpha can still
			// stop within the remaining error: w*dt + w^2/(2*alpha) <= |err|.
			alphaDt := maxAlpha * dt
			noOvershoot := math.Sqrt(alphaDt*alphaDt+2*maxAlpha*math.Abs(angularErr)) - alphaDt
			omegaDes = math.Copysign(math.Min(maxOmega, noOvershoot), angularErr)
		}

		limited := limitAcceleration(chassisSpeeds{vDes * ux, vDes * uy, omegaDes}, speeds, dt, maxA, maxAlpha)
		// Acceleration limiting can push omega past the cap by one step.
		if math.Abs(limited.omega) > maxOmega && maxOmega > 0 {
			limited.omega = math.Copysign(maxOmega, limited.omega)
		}

		stepDX, stepDY := limited.vx*dt, limited.vy*dt
		if lastSegment && math.Hypot(stepDX, stepDY) >= math.Max(0, distToTarget-epsPositionMeters) {
			// Overshoot past the endpoint: clamp there and stop translating.
			x, y = endX, endY
			limited.vx, limited.vy = 0, 0
		} else {
			x += stepDX
			y += stepDY
		}
		theta = spatialmath.WrapAngle(theta + limited.omega*dt)

		tKey := roundToMillis(t)
		builder.record(tKey, spatialmath.NewPose(x, y, theta))

		if lastSegment {
			distToFinal := math.Hypot(endX-x, endY-y)
			rotErr := math.Abs(spatialmath.ShortestAngularDistance(endHeadingTarget, theta))

			// Primary termination: inside both configured end tolerances.
			if distToFinal <= endTransTol && rotErr <= endRotTol {
				x, y, theta = endX, endY, endHeadingTarget
				builder.amendLast(tKey, spatialmath.NewPose(x, y, theta))
				speeds = chassisSpeeds{}
				terminated = true
				break
			}

			// Numerical safety net: epsilon snapping.
			snappedPos, snappedRot := false, false
			if distToFinal <= epsPositionMeters {
				x, y = endX, endY
				distToFinal = 0
				snappedPos = true
			}
			if distToFinal < rotationSnapProximityMeters && rotErr <= epsAngleRadians {
				theta = endHeadingTarget
				snappedRot = true
			}
			if snappedPos || snappedRot {
				builder.amendLast(tKey, spatialmath.NewPose(x, y, theta))
				if snappedPos {
					limited.vx, limited.vy = 0, 0
					speeds.vx, speeds.vy = 0, 0
				}
				if snappedRot {
					limited.omega = 0
					speeds.omega = 0
				}
				if snappedPos && snappedRot {
					speeds = chassisSpeeds{}
					terminated = true
					break
				}
			}
		}

		t += dt
		speeds = limited
	}

	if !terminated {
		logger.Debugw("simulation halted by guard time", "t_s", t, "guard_time_s", guard)
	}
	return builder.finish(roundToMillis(t)), nil
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
