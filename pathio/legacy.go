package pathio

import (
	"github.com/golang/geo/r2"

	"go.bline.dev/bline/pathmodel"
)

// convertLegacyPositions rewrites rotation targets that carry a raw field
// position into the t-ratio form by projecting the position onto the chord
// between the neighboring anchors, clamped to [0, 1]. Runs once at load; the
// legacy position is cleared afterwards.
func convertLegacyPositions(path *pathmodel.Path) {
	for idx, elem := range path.Elements {
		var target *pathmodel.RotationTarget
		switch e := elem.(type) {
		case *pathmodel.RotationTarget:
			target = e
		case *pathmodel.Waypoint:
			target = &e.Rotation
		default:
			continue
		}
		if target.LegacyPosition == nil {
			continue
		}

		pos := *target.LegacyPosition
		prev, okPrev := neighborAnchor(path.Elements, idx, true)
		next, okNext := neighborAnchor(path.Elements, idx, false)
		if !okPrev || !okNext {
			target.TRatio = 0
		} else {
			target.TRatio = projectRatio(pos, prev, next)
		}
		target.LegacyPosition = nil
	}
}

func projectRatio(pos, a, b r2.Point) float64 {
	d := b.Sub(a)
	denom := d.Dot(d)
	if denom <= 0 {
		return 0
	}
	t := pos.Sub(a).Dot(d) / denom
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}

func neighborAnchor(elements []pathmodel.PathElement, start int, reverse bool) (r2.Point, bool) {
	step := 1
	if reverse {
		step = -1
	}
	for idx := start + step; idx >= 0 && idx < len(elements); idx += step {
		switch e := elements[idx].(type) {
		case *pathmodel.TranslationTarget:
			return e.Point(), true
		case *pathmodel.Waypoint:
			return e.Translation.Point(), true
		}
	}
	return r2.Point{}, false
}
