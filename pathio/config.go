package pathio

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"

	"go.bline.dev/bline/simulation"
)

// DefaultProjectConfig returns the defaults written into a fresh project's
// config.json.
func DefaultProjectConfig() simulation.Config {
	return simulation.Config{
		DefaultMaxVelocityMetersPerSec:       4.5,
		DefaultMaxAccelerationMetersPerSec2:  7.0,
		DefaultHandoffRadiusMeters:           0.2,
		DefaultMaxVelocityDegPerSec:          720.0,
		DefaultMaxAccelerationDegPerSec2:     1500.0,
		DefaultEndTranslationToleranceMeters: 0.03,
		DefaultEndRotationToleranceDeg:       2.0,
	}
}

// LoadProjectConfig reads a project config.json. Unknown keys are ignored;
// weakly typed values (integers for floats) are accepted.
func LoadProjectConfig(filename string) (simulation.Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return simulation.Config{}, errors.Wrapf(err, "cannot read config file %q", filename)
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return simulation.Config{}, errors.Wrapf(err, "cannot parse config file %q", filename)
	}
	return simulation.ConfigFromMap(raw)
}

// SaveProjectConfig writes a project config.json.
func SaveProjectConfig(filename string, cfg simulation.Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return errors.Wrapf(os.WriteFile(filename, data, 0o644), "cannot write config file %q", filename)
}

// ConfigDefaultLookup adapts a project config into the per-element default
// lookup path loading uses, keyed by un-prefixed constraint names.
func ConfigDefaultLookup(cfg simulation.Config) DefaultLookup {
	data, err := json.Marshal(cfg)
	if err != nil {
		return func(string) (float64, bool) { return 0, false }
	}
	var raw map[string]float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return func(string) (float64, bool) { return 0, false }
	}
	return func(key string) (float64, bool) {
		if v, ok := raw["default_"+key]; ok && v > 0 {
			return v, true
		}
		if v, ok := raw[key]; ok && v > 0 {
			return v, true
		}
		return 0, false
	}
}

// IsNotExist reports whether the error from a load was a missing file, which
// callers treat as "use defaults" rather than a failure.
func IsNotExist(err error) bool {
	return err != nil && os.IsNotExist(errors.Cause(err))
}
