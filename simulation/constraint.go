package simulation

import (
	"math"

	"go.bline.dev/bline/pathmodel"
)

// activeTranslationLimit returns the most restrictive ranged value of the
// given translation key covering the 1-based next-anchor ordinal. ok is false
// when no ranged constraint applies and the caller should use the base value.
func activeTranslationLimit(path *pathmodel.Path, key pathmodel.ConstraintKey, nextAnchorOrdinal int) (float64, bool) {
	return minRangedValue(path.RangedConstraints, key, nextAnchorOrdinal, path.AnchorCount())
}

// activeRotationLimit returns the most restrictive ranged value of the given
// rotation key for the rotation event currently targeted at path distance s.
func activeRotationLimit(path *pathmodel.Path, frames []globalKeyframe, key pathmodel.ConstraintKey, s float64) (float64, bool) {
	ordinal, ok := rotationTargetEventOrdinal(frames, s)
	if !ok {
		return 0, false
	}
	return minRangedValue(path.RangedConstraints, key, ordinal, path.RotationEventCount())
}

// rotationTargetEventOrdinal resolves which rotation event the chassis is
// currently rotating toward at path distance s: the first keyframe strictly
// ahead; at a keyframe exactly, the next one if it exists; past the last
// keyframe, the last one.
func rotationTargetEventOrdinal(frames []globalKeyframe, s float64) (int, bool) {
	if len(frames) == 0 {
		return 0, false
	}
	const tol = 1e-6
	for i, kf := range frames {
		if s < kf.s-tol {
			return kf.ordinal, true
		}
		if math.Abs(s-kf.s) <= tol {
			if i+1 < len(frames) {
				return frames[i+1].ordinal, true
			}
			return kf.ordinal, true
		}
	}
	return frames[len(frames)-1].ordinal, true
}

func minRangedValue(ranged []pathmodel.RangedConstraint, key pathmodel.ConstraintKey, ordinal, domainSize int) (float64, bool) {
	best := 0.0
	found := false
	for _, rc := range ranged {
		if rc.Key != key || rc.Value <= 0 {
			continue
		}
		if !rc.Contains(ordinal, domainSize) {
			continue
		}
		if !found || rc.Value < best {
			best = rc.Value
			found = true
		}
	}
	return best, found
}
