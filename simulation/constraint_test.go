package simulation

import (
	"testing"

	"go.viam.com/test"

	"go.bline.dev/bline/pathmodel"
)

func TestResolveConstraintChain(t *testing.T) {
	test.That(t, resolveConstraint(pathmodel.Float(1.5), 4.5, 3.0), test.ShouldEqual, 1.5)
	test.That(t, resolveConstraint(nil, 4.5, 3.0), test.ShouldEqual, 4.5)
	test.That(t, resolveConstraint(nil, 0, 3.0), test.ShouldEqual, 3.0)
	// Non-positive values are treated as unset.
	test.That(t, resolveConstraint(pathmodel.Float(0), 0, 3.0), test.ShouldEqual, 3.0)
	test.That(t, resolveConstraint(pathmodel.Float(-1), 4.5, 3.0), test.ShouldEqual, 4.5)
}

func TestConfigFromMapWeakTypes(t *testing.T) {
	cfg, err := ConfigFromMap(map[string]interface{}{
		"default_max_velocity_meters_per_sec": 4,
		"default_max_velocity_deg_per_sec":    "720",
		"unknown_key":                         true,
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.DefaultMaxVelocityMetersPerSec, test.ShouldEqual, 4.0)
	test.That(t, cfg.DefaultMaxVelocityDegPerSec, test.ShouldEqual, 720.0)
	test.That(t, cfg.DefaultHandoffRadiusMeters, test.ShouldEqual, 0.0)
}

func TestMinRangedValueOverlapTakesMin(t *testing.T) {
	ranged := []pathmodel.RangedConstraint{
		{Key: pathmodel.KeyMaxVelocityMetersPerSec, Value: 2.0, StartOrdinal: 1, EndOrdinal: 3},
		{Key: pathmodel.KeyMaxVelocityMetersPerSec, Value: 1.0, StartOrdinal: 2, EndOrdinal: 2},
		{Key: pathmodel.KeyMaxAccelerationMetersPerSec, Value: 0.5, StartOrdinal: 2, EndOrdinal: 2},
	}

	v, ok := minRangedValue(ranged, pathmodel.KeyMaxVelocityMetersPerSec, 2, 3)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, v, test.ShouldEqual, 1.0)

	v, ok = minRangedValue(ranged, pathmodel.KeyMaxVelocityMetersPerSec, 3, 3)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, v, test.ShouldEqual, 2.0)

	_, ok = minRangedValue(ranged, pathmodel.KeyMaxAccelerationMetersPerSec, 1, 3)
	test.That(t, ok, test.ShouldBeFalse)
}

func TestMinRangedValueIgnoresNonPositive(t *testing.T) {
	ranged := []pathmodel.RangedConstraint{
		{Key: pathmodel.KeyMaxVelocityMetersPerSec, Value: 0, StartOrdinal: 1, EndOrdinal: 3},
	}
	_, ok := minRangedValue(ranged, pathmodel.KeyMaxVelocityMetersPerSec, 2, 3)
	test.That(t, ok, test.ShouldBeFalse)
}

func TestMinRangedValueClampsOrdinals(t *testing.T) {
	// Out-of-domain bounds clamp to the valid ordinal range rather than
	// excluding the constraint.
	ranged := []pathmodel.RangedConstraint{
		{Key: pathmodel.KeyMaxVelocityMetersPerSec, Value: 1.5, StartOrdinal: 0, EndOrdinal: 99},
	}
	v, ok := minRangedValue(ranged, pathmodel.KeyMaxVelocityMetersPerSec, 3, 3)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, v, test.ShouldEqual, 1.5)
}

func TestRotationTargetEventOrdinal(t *testing.T) {
	frames := []globalKeyframe{
		{s: 2, theta: 1, ordinal: 1},
		{s: 5, theta: 2, ordinal: 2},
	}

	ord, ok := rotationTargetEventOrdinal(frames, 0)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, ord, test.ShouldEqual, 1)

	// Exactly at an event the chassis is already rotating toward the next.
	ord, _ = rotationTargetEventOrdinal(frames, 2)
	test.That(t, ord, test.ShouldEqual, 2)

	ord, _ = rotationTargetEventOrdinal(frames, 3.5)
	test.That(t, ord, test.ShouldEqual, 2)

	// At or past the last event it stays the target.
	ord, _ = rotationTargetEventOrdinal(frames, 5)
	test.That(t, ord, test.ShouldEqual, 2)
	ord, _ = rotationTargetEventOrdinal(frames, 50)
	test.That(t, ord, test.ShouldEqual, 2)

	_, ok = rotationTargetEventOrdinal(nil, 0)
	test.That(t, ok, test.ShouldBeFalse)
}

func TestActiveRotationLimit(t *testing.T) {
	path := &pathmodel.Path{
		Elements: []pathmodel.PathElement{
			&pathmodel.TranslationTarget{XMeters: 0, YMeters: 0},
			&pathmodel.RotationTarget{RotationRadians: 1, TRatio: 0.2, Profiled: true},
			&pathmodel.RotationTarget{RotationRadians: 2, TRatio: 0.8, Profiled: true},
			&pathmodel.TranslationTarget{XMeters: 10, YMeters: 0},
		},
		RangedConstraints: []pathmodel.RangedConstraint{
			{Key: pathmodel.KeyMaxVelocityDegPerSec, Value: 90, StartOrdinal: 2, EndOrdinal: 2},
		},
	}
	frames := buildFrames(t, path)

	// While heading toward event 1 no ranged value applies.
	_, ok := activeRotationLimit(path, frames, pathmodel.KeyMaxVelocityDegPerSec, 0)
	test.That(t, ok, test.ShouldBeFalse)

	v, ok := activeRotationLimit(path, frames, pathmodel.KeyMaxVelocityDegPerSec, 5)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, v, test.ShouldEqual, 90.0)
}
