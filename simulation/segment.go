package simulation

import (
	"math"

	"github.com/golang/geo/r2"
	"gonum.org/v1/gonum/floats"

	"go.bline.dev/bline/pathmodel"
)

const coincidentTol = 1e-9

// rotationKeyframe is a heading target pinned to a segment-local t ratio.
type rotationKeyframe struct {
	tRatio   float64
	theta    float64
	profiled bool
}

// segment is one straight piece of the anchor polyline.
type segment struct {
	a, b   r2.Point
	length float64
	dir    r2.Point // unit direction; (1, 0) when the segment is degenerate

	// keyframes are the segment-local heading targets, ordered by tRatio.
	// The integrator's heading source is the global keyframe list; these
	// remain for segment-local lookups.
	keyframes []rotationKeyframe
}

// buildSegments scans the path elements in order, collecting an anchor point
// per TranslationTarget/Waypoint and a segment per consecutive anchor pair.
// It returns the segments, the anchor points, and the element index of each
// anchor.
func buildSegments(path *pathmodel.Path) ([]segment, []r2.Point, []int) {
	var anchors []r2.Point
	var anchorElementIndices []int
	for idx, elem := range path.Elements {
		switch e := elem.(type) {
		case *pathmodel.TranslationTarget:
			anchors = append(anchors, e.Point())
			anchorElementIndices = append(anchorElementIndices, idx)
		case *pathmodel.Waypoint:
			anchors = append(anchors, e.Translation.Point())
			anchorElementIndices = append(anchorElementIndices, idx)
		}
	}

	if len(anchors) < 2 {
		return nil, anchors, anchorElementIndices
	}

	anchorOrdinalByElement := make(map[int]int, len(anchorElementIndices))
	for ord, idx := range anchorElementIndices {
		anchorOrdinalByElement[idx] = ord
	}

	segments := make([]segment, 0, len(anchors)-1)
	for i := 0; i+1 < len(anchors); i++ {
		a, b := anchors[i], anchors[i+1]
		d := b.Sub(a)
		length := math.Hypot(d.X, d.Y)
		if length <= coincidentTol {
			segments = append(segments, segment{a: a, b: b, length: 0, dir: r2.Point{X: 1, Y: 0}})
			continue
		}
		segments = append(segments, segment{a: a, b: b, length: length, dir: d.Mul(1 / length)})
	}

	for idx, elem := range path.Elements {
		switch e := elem.(type) {
		case *pathmodel.RotationTarget:
			prevOrd, okPrev := precedingAnchorOrdinal(idx, anchorOrdinalByElement)
			nextOrd, okNext := followingAnchorOrdinal(path.Elements, idx, anchorOrdinalByElement)
			if !okPrev || !okNext || nextOrd != prevOrd+1 {
				// Local keyframes only attach between adjacent anchors.
				continue
			}
			segments[prevOrd].keyframes = append(segments[prevOrd].keyframes, rotationKeyframe{
				tRatio:   clamp01(e.TRatio),
				theta:    e.RotationRadians,
				profiled: e.Profiled,
			})
		case *pathmodel.Waypoint:
			ord, ok := anchorOrdinalByElement[idx]
			if !ok {
				continue
			}
			// Pin the waypoint heading on both sides: leaving the waypoint on
			// the segment that starts here, arriving on the one that ends here.
			kf := rotationKeyframe{theta: e.Rotation.RotationRadians, profiled: e.Rotation.Profiled}
			if ord < len(segments) {
				kf.tRatio = 0
				segments[ord].keyframes = append(segments[ord].keyframes, kf)
			}
			if ord > 0 {
				kf.tRatio = 1
				segments[ord-1].keyframes = append(segments[ord-1].keyframes, kf)
			}
		}
	}

	for i := range segments {
		segments[i].keyframes = sortAndDedupKeyframes(segments[i].keyframes)
	}
	return segments, anchors, anchorElementIndices
}

// sortAndDedupKeyframes orders keyframes by tRatio and collapses coincident
// ratios, keeping the later entry.
func sortAndDedupKeyframes(kfs []rotationKeyframe) []rotationKeyframe {
	if len(kfs) == 0 {
		return kfs
	}
	stableSortByT(kfs)
	dedup := kfs[:1]
	for _, kf := range kfs[1:] {
		if math.Abs(kf.tRatio-dedup[len(dedup)-1].tRatio) < coincidentTol {
			dedup[len(dedup)-1] = kf
		} else {
			dedup = append(dedup, kf)
		}
	}
	return dedup
}

// stableSortByT is an insertion sort so coincident ratios keep insertion
// order ahead of last-wins dedup.
func stableSortByT(kfs []rotationKeyframe) {
	for i := 1; i < len(kfs); i++ {
		for j := i; j > 0 && kfs[j].tRatio < kfs[j-1].tRatio; j-- {
			kfs[j], kfs[j-1] = kfs[j-1], kfs[j]
		}
	}
}

func precedingAnchorOrdinal(idx int, byElement map[int]int) (int, bool) {
	for j := idx - 1; j >= 0; j-- {
		if ord, ok := byElement[j]; ok {
			return ord, true
		}
	}
	return 0, false
}

func followingAnchorOrdinal(elements []pathmodel.PathElement, idx int, byElement map[int]int) (int, bool) {
	for j := idx + 1; j < len(elements); j++ {
		if ord, ok := byElement[j]; ok {
			return ord, true
		}
	}
	return 0, false
}

// cumulativeLengths returns prefix sums of segment lengths; entry 0 is 0 and
// the final entry is the total path length.
func cumulativeLengths(segments []segment) []float64 {
	lengths := make([]float64, len(segments))
	for i, seg := range segments {
		lengths[i] = math.Max(seg.length, 0)
	}
	cum := make([]float64, len(segments)+1)
	floats.CumSum(cum[1:], lengths)
	return cum
}

// handoffRadiusForSegment returns the early-transition radius for a segment,
// read from the anchor the segment leads into, falling back to the default.
func handoffRadiusForSegment(path *pathmodel.Path, segIndex int, anchorElementIndices []int, defaultRadius float64) float64 {
	if segIndex < 0 || segIndex >= len(anchorElementIndices)-1 {
		return defaultRadius
	}
	targetIdx := anchorElementIndices[segIndex+1]
	if targetIdx >= len(path.Elements) {
		return defaultRadius
	}
	var radius *float64
	switch e := path.Elements[targetIdx].(type) {
	case *pathmodel.TranslationTarget:
		radius = e.HandoffRadiusMeters
	case *pathmodel.Waypoint:
		radius = e.Translation.HandoffRadiusMeters
	}
	if radius != nil && *radius > 0 {
		return *radius
	}
	return defaultRadius
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
