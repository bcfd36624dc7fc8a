package pathio

import (
	"path/filepath"

	"go.bline.dev/bline/pathmodel"
)

// WriteExamplePaths seeds a paths directory with two starter paths: a mixed
// rotation/waypoint path and a three-anchor path with a mid-segment rotation.
func WriteExamplePaths(pathsDir string) error {
	exampleA := &pathmodel.Path{Elements: []pathmodel.PathElement{
		&pathmodel.TranslationTarget{XMeters: 2.0, YMeters: 2.0},
		&pathmodel.RotationTarget{RotationRadians: 0.0, TRatio: 0.5, Profiled: true},
		&pathmodel.Waypoint{
			Translation: pathmodel.TranslationTarget{XMeters: 6.0, YMeters: 4.0},
			Rotation:    pathmodel.RotationTarget{RotationRadians: 0.5, Profiled: true},
		},
		&pathmodel.TranslationTarget{XMeters: 10.0, YMeters: 6.0},
	}}
	if err := WritePathFile(filepath.Join(pathsDir, "example_a.json"), exampleA); err != nil {
		return err
	}

	exampleB := &pathmodel.Path{Elements: []pathmodel.PathElement{
		&pathmodel.TranslationTarget{XMeters: 1.0, YMeters: 7.5},
		&pathmodel.TranslationTarget{XMeters: 5.0, YMeters: 6.0},
		&pathmodel.RotationTarget{RotationRadians: 1.2, TRatio: 0.5, Profiled: true},
		&pathmodel.TranslationTarget{XMeters: 12.5, YMeters: 3.0},
	}}
	return WritePathFile(filepath.Join(pathsDir, "example_b.json"), exampleB)
}
