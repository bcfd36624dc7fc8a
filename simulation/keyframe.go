package simulation

import (
	"math"

	"go.bline.dev/bline/pathmodel"
	"go.bline.dev/bline/spatialmath"
)

// globalKeyframe is a rotation event placed at an absolute path distance.
// ordinal is the 1-based position of the event among rotation-bearing
// elements in path order, which is the domain ranged rotation constraints
// index into.
type globalKeyframe struct {
	s        float64
	theta    float64
	ordinal  int
	profiled bool
}

// buildGlobalKeyframes maps every rotation event to an absolute path
// distance. RotationTargets interpolate between their surrounding anchors
// (which need not be adjacent) by t ratio; Waypoint rotations sit exactly at
// the waypoint's cumulative distance. The result is sorted by distance with
// coincident entries collapsed, keeping the later one.
func buildGlobalKeyframes(path *pathmodel.Path, anchorElementIndices []int, cumLengths []float64) []globalKeyframe {
	anchorOrdinalByElement := make(map[int]int, len(anchorElementIndices))
	for ord, idx := range anchorElementIndices {
		anchorOrdinalByElement[idx] = ord
	}

	var frames []globalKeyframe
	eventOrdinal := 0
	for idx, elem := range path.Elements {
		switch e := elem.(type) {
		case *pathmodel.RotationTarget:
			prevOrd, okPrev := precedingAnchorOrdinal(idx, anchorOrdinalByElement)
			nextOrd, okNext := followingAnchorOrdinal(path.Elements, idx, anchorOrdinalByElement)
			if !okPrev || !okNext {
				continue
			}
			s0 := cumLengths[prevOrd]
			s1 := cumLengths[nextOrd]
			span := math.Max(s1-s0, coincidentTol)
			eventOrdinal++
			frames = append(frames, globalKeyframe{
				s:        s0 + clamp01(e.TRatio)*span,
				theta:    e.RotationRadians,
				ordinal:  eventOrdinal,
				profiled: e.Profiled,
			})
		case *pathmodel.Waypoint:
			ord, ok := anchorOrdinalByElement[idx]
			if !ok {
				continue
			}
			eventOrdinal++
			frames = append(frames, globalKeyframe{
				s:        cumLengths[ord],
				theta:    e.Rotation.RotationRadians,
				ordinal:  eventOrdinal,
				profiled: e.Rotation.Profiled,
			})
		}
	}
	if len(frames) == 0 {
		return nil
	}

	stableSortByS(frames)
	dedup := frames[:1]
	for _, kf := range frames[1:] {
		if math.Abs(kf.s-dedup[len(dedup)-1].s) < coincidentTol {
			dedup[len(dedup)-1] = kf
		} else {
			dedup = append(dedup, kf)
		}
	}
	return dedup
}

func stableSortByS(frames []globalKeyframe) {
	for i := 1; i < len(frames); i++ {
		for j := i; j > 0 && frames[j].s < frames[j-1].s; j-- {
			frames[j], frames[j-1] = frames[j-1], frames[j]
		}
	}
}

// desiredHeading returns the heading setpoint at absolute path distance s,
// along with the interval's dtheta/ds slope and whether the governing
// interval is profiled.
//
// A virtual frame (0, startHeading, profiled) prefixes the list when the
// first keyframe sits past the path start. At or before a frame the heading
// holds; inside a profiled interval it interpolates by shortest angular
// distance; inside a non-profiled interval it steps straight to the target.
// Past the last frame it holds the final heading.
func desiredHeading(frames []globalKeyframe, s, startHeading float64) (theta, dthetaDS float64, profiled bool) {
	if len(frames) == 0 {
		return startHeading, 0, true
	}

	type frame struct {
		s        float64
		theta    float64
		profiled bool
	}
	virtual := make([]frame, 0, len(frames)+1)
	if frames[0].s > coincidentTol {
		virtual = append(virtual, frame{0, startHeading, true})
	}
	for _, kf := range frames {
		virtual = append(virtual, frame{kf.s, kf.theta, kf.profiled})
	}

	for i := 0; i+1 < len(virtual); i++ {
		f0, f1 := virtual[i], virtual[i+1]
		delta := spatialmath.ShortestAngularDistance(f1.theta, f0.theta)
		slope := delta / math.Max(f1.s-f0.s, coincidentTol)
		if s <= f0.s+1e-12 {
			return f0.theta, slope, f1.profiled
		}
		if s <= f1.s+1e-12 {
			if !f1.profiled {
				return f1.theta, 0, false
			}
			ratio := (s - f0.s) / math.Max(f1.s-f0.s, coincidentTol)
			return spatialmath.WrapAngle(f0.theta + delta*ratio), slope, true
		}
	}

	last := virtual[len(virtual)-1]
	return last.theta, 0, last.profiled
}
