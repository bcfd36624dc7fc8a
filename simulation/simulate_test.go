package simulation

import (
	"math"
	"testing"

	"github.com/edaniels/golog"
	"go.viam.com/test"

	"go.bline.dev/bline/pathmodel"
)

func straightPath(c pathmodel.Constraints) *pathmodel.Path {
	return &pathmodel.Path{
		Elements: []pathmodel.PathElement{
			&pathmodel.TranslationTarget{XMeters: 0, YMeters: 0},
			&pathmodel.TranslationTarget{XMeters: 10, YMeters: 0},
		},
		Constraints: c,
	}
}

func TestSimulateNegativeStepRejected(t *testing.T) {
	_, err := SimulatePath(straightPath(pathmodel.Constraints{}), Config{}, Options{
		DTSeconds: -0.01,
		Logger:    golog.NewTestLogger(t),
	})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestSimulateDegenerateInputs(t *testing.T) {
	logger := golog.NewTestLogger(t)

	res, err := SimulatePath(nil, Config{}, Options{Logger: logger})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Times, test.ShouldBeEmpty)

	res, err = SimulatePath(&pathmodel.Path{Elements: []pathmodel.PathElement{
		&pathmodel.TranslationTarget{XMeters: 2, YMeters: 3},
	}}, Config{}, Options{Logger: logger})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Times, test.ShouldResemble, []float64{0})
	test.That(t, res.TotalTime, test.ShouldEqual, 0.0)
	pose, ok := res.PoseAtTime(0)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, pose.Position.X, test.ShouldEqual, 2.0)
	test.That(t, pose.Position.Y, test.ShouldEqual, 3.0)
}

func TestSimulateStraightLine(t *testing.T) {
	maxV, maxA := 2.0, 1.0
	path := straightPath(pathmodel.Constraints{
		MaxVelocityMetersPerSec:      pathmodel.Float(maxV),
		MaxAccelerationMetersPerSec2: pathmodel.Float(maxA),
	})
	dt := 0.02
	res, err := SimulatePath(path, Config{}, Options{DTSeconds: dt, Logger: golog.NewTestLogger(t)})
	test.That(t, err, test.ShouldBeNil)

	// Ends exactly at the endpoint with the path-direction heading held.
	final, ok := res.PoseAtTime(res.TotalTime)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, final.Position.X, test.ShouldEqual, 10.0)
	test.That(t, final.Position.Y, test.ShouldEqual, 0.0)
	test.That(t, final.Theta, test.ShouldAlmostEqual, 0)

	// Accelerate 2s, cruise 3s, decelerate 2s, minus the end tolerance.
	test.That(t, res.TotalTime, test.ShouldBeGreaterThan, 6.0)
	test.That(t, res.TotalTime, test.ShouldBeLessThan, 8.5)
	test.That(t, res.TotalTime, test.ShouldBeLessThan, guardTime(path, 10, maxV, math.Pi))

	// Monotonic time axis, speed and acceleration caps respected.
	prevSpeed := 0.0
	for i := 1; i < len(res.Times); i++ {
		test.That(t, res.Times[i], test.ShouldBeGreaterThan, res.Times[i-1])

		a := res.PosesByTime[res.Times[i-1]].Position
		b := res.PosesByTime[res.Times[i]].Position
		stepDist := math.Hypot(b.X-a.X, b.Y-a.Y)
		test.That(t, stepDist, test.ShouldBeLessThan, maxV*dt+2e-3)

		if i < len(res.Times)-1 {
			speed := stepDist / dt
			test.That(t, math.Abs(speed-prevSpeed)/dt, test.ShouldBeLessThan, maxA+1e-6)
			prevSpeed = speed
		}
	}
}

func TestSimulateIdempotent(t *testing.T) {
	path := straightPath(pathmodel.Constraints{})
	logger := golog.NewTestLogger(t)
	first, err := SimulatePath(path, Config{}, Options{Logger: logger})
	test.That(t, err, test.ShouldBeNil)
	second, err := SimulatePath(path, Config{}, Options{Logger: logger})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, second, test.ShouldResemble, first)
}

func TestSimulateZeroStepUsesDefault(t *testing.T) {
	res, err := SimulatePath(straightPath(pathmodel.Constraints{}), Config{}, Options{Logger: golog.NewTestLogger(t)})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(res.Times), test.ShouldBeGreaterThan, 2)
	test.That(t, res.Times[1]-res.Times[0], test.ShouldAlmostEqual, DefaultDTSeconds)
}

func TestSimulateRangedVelocitySlowsSegment(t *testing.T) {
	logger := golog.NewTestLogger(t)
	base := &pathmodel.Path{Elements: []pathmodel.PathElement{
		&pathmodel.TranslationTarget{XMeters: 0, YMeters: 0},
		&pathmodel.TranslationTarget{XMeters: 5, YMeters: 0},
		&pathmodel.TranslationTarget{XMeters: 10, YMeters: 0},
	}}
	unconstrained, err := SimulatePath(base, Config{}, Options{Logger: logger})
	test.That(t, err, test.ShouldBeNil)

	slowed := base.Clone()
	slowed.RangedConstraints = []pathmodel.RangedConstraint{{
		Key:          pathmodel.KeyMaxVelocityMetersPerSec,
		Value:        0.5,
		StartOrdinal: 2,
		EndOrdinal:   2,
	}}
	constrained, err := SimulatePath(slowed, Config{}, Options{Logger: logger})
	test.That(t, err, test.ShouldBeNil)

	// The first segment leads into anchor 2, so it crawls at 0.5 m/s while
	// the rest of the path keeps the base limit.
	test.That(t, constrained.TotalTime, test.ShouldBeGreaterThan, unconstrained.TotalTime+3)
}

func TestSimulateRotationReachesTarget(t *testing.T) {
	for _, mode := range []RotationControlMode{RotationControlTrapezoidal, RotationControl2AD} {
		path := &pathmodel.Path{Elements: []pathmodel.PathElement{
			&pathmodel.TranslationTarget{XMeters: 0, YMeters: 0},
			&pathmodel.RotationTarget{RotationRadians: math.Pi / 2, TRatio: 1.0, Profiled: true},
			&pathmodel.TranslationTarget{XMeters: 10, YMeters: 0},
		}}
		res, err := SimulatePath(path, Config{}, Options{
			RotationControl: mode,
			HeadingSeed:     HeadingSeedPathDirection,
			Logger:          golog.NewTestLogger(t),
		})
		test.That(t, err, test.ShouldBeNil)

		final, ok := res.PoseAtTime(res.TotalTime)
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, final.Position.X, test.ShouldEqual, 10.0)
		test.That(t, final.Theta, test.ShouldAlmostEqual, math.Pi/2)
	}
}

func TestSimulateTrapezoidalNoOvershoot(t *testing.T) {
	// A non-profiled event steps the setpoint to 1.2 rad almost immediately;
	// the heading must approach it without ever crossing.
	target := 1.2
	path := &pathmodel.Path{Elements: []pathmodel.PathElement{
		&pathmodel.TranslationTarget{XMeters: 0, YMeters: 0},
		&pathmodel.RotationTarget{RotationRadians: target, TRatio: 0.05, Profiled: false},
		&pathmodel.TranslationTarget{XMeters: 20, YMeters: 0},
	}}
	res, err := SimulatePath(path, Config{}, Options{
		HeadingSeed: HeadingSeedPathDirection,
		Logger:      golog.NewTestLogger(t),
	})
	test.That(t, err, test.ShouldBeNil)

	for _, tk := range res.Times {
		test.That(t, res.PosesByTime[tk].Theta, test.ShouldBeLessThan, target+1e-6)
	}
	final, _ := res.PoseAtTime(res.TotalTime)
	test.That(t, final.Theta, test.ShouldAlmostEqual, target)
}

func TestSimulateHeadingSeedModes(t *testing.T) {
	path := &pathmodel.Path{Elements: []pathmodel.PathElement{
		&pathmodel.TranslationTarget{XMeters: 0, YMeters: 0},
		&pathmodel.RotationTarget{RotationRadians: 1.0, TRatio: 0.5, Profiled: true},
		&pathmodel.TranslationTarget{XMeters: 0, YMeters: 10},
	}}

	res, err := SimulatePath(path, Config{}, Options{
		HeadingSeed: HeadingSeedFirstRotation,
		Logger:      golog.NewTestLogger(t),
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.PosesByTime[res.Times[0]].Theta, test.ShouldAlmostEqual, 1.0)

	res, err = SimulatePath(path, Config{}, Options{
		HeadingSeed: HeadingSeedPathDirection,
		Logger:      golog.NewTestLogger(t),
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.PosesByTime[res.Times[0]].Theta, test.ShouldAlmostEqual, math.Pi/2)
}

func TestSimulateHandoffCutsCorner(t *testing.T) {
	logger := golog.NewTestLogger(t)
	corner := func(radius *float64) *pathmodel.Path {
		return &pathmodel.Path{
			Elements: []pathmodel.PathElement{
				&pathmodel.TranslationTarget{XMeters: 0, YMeters: 0},
				&pathmodel.TranslationTarget{XMeters: 5, YMeters: 0, HandoffRadiusMeters: radius},
				&pathmodel.TranslationTarget{XMeters: 5, YMeters: 5},
			},
			Constraints: pathmodel.Constraints{MaxVelocityMetersPerSec: pathmodel.Float(1.0)},
		}
	}
	closestToCorner := func(res *Result) float64 {
		closest := math.Inf(1)
		for _, p := range res.Trail {
			closest = math.Min(closest, math.Hypot(p.X-5, p.Y))
		}
		return closest
	}

	wide, err := SimulatePath(corner(pathmodel.Float(1.0)), Config{}, Options{Logger: logger})
	test.That(t, err, test.ShouldBeNil)
	tight, err := SimulatePath(corner(nil), Config{}, Options{Logger: logger})
	test.That(t, err, test.ShouldBeNil)

	test.That(t, closestToCorner(wide), test.ShouldBeGreaterThan, 0.4)
	test.That(t, closestToCorner(tight), test.ShouldBeLessThan, 0.3)

	for _, res := range []*Result{wide, tight} {
		final, ok := res.PoseAtTime(res.TotalTime)
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, final.Position.X, test.ShouldEqual, 5.0)
		test.That(t, final.Position.Y, test.ShouldEqual, 5.0)
	}
}

func TestGuardTime(t *testing.T) {
	path := &pathmodel.Path{}
	test.That(t, guardTime(path, 10, 3, math.Pi),
		test.ShouldAlmostEqual, 2.0*10/3+1.5, 1e-9)

	// Short paths still get the floor.
	test.That(t, guardTime(path, 0.1, 3, 100), test.ShouldEqual, 3.0)

	// Ranged limits drag the guard out with them.
	path.RangedConstraints = []pathmodel.RangedConstraint{{
		Key:          pathmodel.KeyMaxVelocityMetersPerSec,
		Value:        0.5,
		StartOrdinal: 1,
		EndOrdinal:   1,
	}}
	test.That(t, guardTime(path, 10, 3, math.Pi),
		test.ShouldAlmostEqual, 2.0*10/0.5+1.5, 1e-9)
}

func TestLimitAcceleration(t *testing.T) {
	last := chassisSpeeds{vx: 1, vy: 0, omega: 0}
	desired := chassisSpeeds{vx: 3, vy: 0, omega: 2}

	limited := limitAcceleration(desired, last, 0.1, 5, 4)
	test.That(t, limited.vx, test.ShouldAlmostEqual, 1.5)
	test.That(t, limited.vy, test.ShouldAlmostEqual, 0)
	test.That(t, limited.omega, test.ShouldAlmostEqual, 0.4)

	// Within limits the desired speeds pass through unchanged.
	limited = limitAcceleration(desired, last, 1.0, 5, 4)
	test.That(t, limited.vx, test.ShouldAlmostEqual, 3)
	test.That(t, limited.omega, test.ShouldAlmostEqual, 2)

	// Deceleration obeys the same bound.
	limited = limitAcceleration(chassisSpeeds{}, chassisSpeeds{vx: 2, omega: -3}, 0.1, 5, 4)
	test.That(t, limited.vx, test.ShouldAlmostEqual, 1.5)
	test.That(t, limited.omega, test.ShouldAlmostEqual, -2.6)
}
