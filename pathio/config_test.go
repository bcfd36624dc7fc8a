package pathio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/edaniels/golog"
	"go.viam.com/test"

	"go.bline.dev/bline/simulation"
)

func TestProjectConfigRoundTrip(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "config.json")
	cfg := DefaultProjectConfig()
	test.That(t, SaveProjectConfig(filename, cfg), test.ShouldBeNil)

	loaded, err := LoadProjectConfig(filename)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, loaded, test.ShouldResemble, cfg)
}

func TestLoadProjectConfigWeakTypesAndUnknownKeys(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "config.json")
	doc := []byte(`{
		"default_max_velocity_meters_per_sec": 4,
		"field_image": "field.png"
	}`)
	test.That(t, os.WriteFile(filename, doc, 0o644), test.ShouldBeNil)

	loaded, err := LoadProjectConfig(filename)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, loaded.DefaultMaxVelocityMetersPerSec, test.ShouldEqual, 4.0)
	test.That(t, loaded.DefaultMaxAccelerationMetersPerSec2, test.ShouldEqual, 0.0)
}

func TestLoadProjectConfigMissingFile(t *testing.T) {
	_, err := LoadProjectConfig(filepath.Join(t.TempDir(), "nope.json"))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, IsNotExist(err), test.ShouldBeTrue)

	test.That(t, IsNotExist(nil), test.ShouldBeFalse)
}

func TestConfigDefaultLookup(t *testing.T) {
	lookup := ConfigDefaultLookup(simulation.Config{DefaultHandoffRadiusMeters: 0.2})

	v, ok := lookup("intermediate_handoff_radius_meters")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, v, test.ShouldEqual, 0.2)

	// Zero-valued and unknown keys report no default.
	_, ok = lookup("max_velocity_meters_per_sec")
	test.That(t, ok, test.ShouldBeFalse)
	_, ok = lookup("not_a_key")
	test.That(t, ok, test.ShouldBeFalse)
}

func TestWriteExamplePaths(t *testing.T) {
	dir := t.TempDir()
	test.That(t, WriteExamplePaths(dir), test.ShouldBeNil)

	for _, name := range []string{"example_a.json", "example_b.json"} {
		loaded, err := ReadPathFile(filepath.Join(dir, name), nil)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, loaded.AnchorCount(), test.ShouldBeGreaterThanOrEqualTo, 3)

		res, err := simulation.SimulatePath(loaded, DefaultProjectConfig(), simulation.Options{
			Logger: golog.NewTestLogger(t),
		})
		test.That(t, err, test.ShouldBeNil)
		test.That(t, res.TotalTime, test.ShouldBeGreaterThan, 0.0)
	}
}
