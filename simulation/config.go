// Package simulation implements the BLine trajectory simulation: an
// idealistic, time-stepped kinematic integration of a path under velocity and
// acceleration limits.
//
// The simulation assumes instant drivetrain response to commanded velocities
// and computes desired speeds from remaining distance with a 2ad law
// (v = sqrt(2*a*d)). It is meant for visualization and first-pass validation
// of a path, not as a stand-in for the robot's real path follower.
package simulation

import (
	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
)

// Hard defaults applied when neither the path constraints nor the project
// config provide a value.
const (
	defaultMaxVelocityMetersPerSec       = 3.0
	defaultMaxAccelerationMetersPerSec2  = 2.5
	defaultMaxVelocityDegPerSec          = 180.0
	defaultMaxAccelerationDegPerSec2     = 360.0
	defaultHandoffRadiusMeters           = 0.05
	defaultEndTranslationToleranceMeters = 0.03
	defaultEndRotationToleranceDeg       = 2.0
)

// Config carries the project-level fallback defaults for path constraints.
// Zero fields are treated as unset and fall through to the hard defaults.
type Config struct {
	DefaultMaxVelocityMetersPerSec       float64 `json:"default_max_velocity_meters_per_sec,omitempty" mapstructure:"default_max_velocity_meters_per_sec"`
	DefaultMaxAccelerationMetersPerSec2  float64 `json:"default_max_acceleration_meters_per_sec2,omitempty" mapstructure:"default_max_acceleration_meters_per_sec2"`
	DefaultMaxVelocityDegPerSec          float64 `json:"default_max_velocity_deg_per_sec,omitempty" mapstructure:"default_max_velocity_deg_per_sec"`
	DefaultMaxAccelerationDegPerSec2     float64 `json:"default_max_acceleration_deg_per_sec2,omitempty" mapstructure:"default_max_acceleration_deg_per_sec2"`
	DefaultHandoffRadiusMeters           float64 `json:"default_intermediate_handoff_radius_meters,omitempty" mapstructure:"default_intermediate_handoff_radius_meters"`
	DefaultEndTranslationToleranceMeters float64 `json:"default_end_translation_tolerance_meters,omitempty" mapstructure:"default_end_translation_tolerance_meters"`
	DefaultEndRotationToleranceDeg       float64 `json:"default_end_rotation_tolerance_deg,omitempty" mapstructure:"default_end_rotation_tolerance_deg"`
}

// ConfigFromMap decodes a raw configuration mapping, accepting weakly typed
// values (e.g. integers for floats) the way project config files supply them.
// Unknown keys are ignored.
func ConfigFromMap(m map[string]interface{}) (Config, error) {
	var cfg Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return Config{}, err
	}
	if err := decoder.Decode(m); err != nil {
		return Config{}, errors.Wrap(err, "cannot decode simulation config")
	}
	return cfg, nil
}

// resolveConstraint returns value if set and positive, else fallback if
// positive, else def. All constraint fallback chains go through here.
func resolveConstraint(value *float64, fallback, def float64) float64 {
	if value != nil && *value > 0 {
		return *value
	}
	if fallback > 0 {
		return fallback
	}
	return def
}
