package simulation

import (
	"sort"

	"github.com/golang/geo/r2"

	"go.bline.dev/bline/spatialmath"
)

// Result is the complete trace of one simulation run. It is immutable once
// returned; playback layers index PosesByTime through PoseAtTime.
type Result struct {
	// PosesByTime maps a time key (seconds, rounded to the millisecond) to
	// the pose recorded at that step.
	PosesByTime map[float64]spatialmath.Pose
	// Times holds the recorded time keys in increasing order, deduplicated.
	Times []float64
	// TotalTime is the simulated duration in seconds.
	TotalTime float64
	// Trail lists the position at every recorded step, for drawing the
	// traveled path independently of the pose map.
	Trail []r2.Point
}

// PoseAtTime returns the pose recorded at the nearest time key at or before
// t. ok is false when the result is empty or t precedes the first sample.
func (r *Result) PoseAtTime(t float64) (spatialmath.Pose, bool) {
	if r == nil || len(r.Times) == 0 {
		return spatialmath.Pose{}, false
	}
	i := sort.SearchFloat64s(r.Times, t)
	if i < len(r.Times) && r.Times[i] == t {
		return r.PosesByTime[r.Times[i]], true
	}
	if i == 0 {
		return spatialmath.Pose{}, false
	}
	return r.PosesByTime[r.Times[i-1]], true
}

// resultBuilder accumulates per-step samples during integration.
type resultBuilder struct {
	poses map[float64]spatialmath.Pose
	times []float64
	trail []r2.Point
}

func newResultBuilder() *resultBuilder {
	return &resultBuilder{poses: map[float64]spatialmath.Pose{}}
}

// record stores the pose under the given time key. Duplicate keys overwrite
// the pose; the time axis is deduplicated on finish.
func (b *resultBuilder) record(tKey float64, pose spatialmath.Pose) {
	b.poses[tKey] = pose
	b.times = append(b.times, tKey)
	b.trail = append(b.trail, pose.Position)
}

// amendLast replaces the most recent sample in place, used when a snap
// adjusts the pose after it was recorded.
func (b *resultBuilder) amendLast(tKey float64, pose spatialmath.Pose) {
	b.poses[tKey] = pose
	if len(b.trail) > 0 {
		b.trail[len(b.trail)-1] = pose.Position
	}
}

// finish closes the trace. When the loop exited without recording at
// finalTime (guard-time exit), the last pose is repeated there so playback
// covers the whole duration.
func (b *resultBuilder) finish(finalTime float64) *Result {
	if len(b.times) > 0 {
		if _, ok := b.poses[finalTime]; !ok {
			b.poses[finalTime] = b.poses[b.times[len(b.times)-1]]
			b.times = append(b.times, finalTime)
		}
	}

	seen := make(map[float64]struct{}, len(b.times))
	uniq := make([]float64, 0, len(b.times))
	for _, tk := range b.times {
		if _, ok := seen[tk]; ok {
			continue
		}
		seen[tk] = struct{}{}
		uniq = append(uniq, tk)
	}

	total := 0.0
	if len(uniq) > 0 {
		total = uniq[len(uniq)-1]
	}
	return &Result{PosesByTime: b.poses, Times: uniq, TotalTime: total, Trail: b.trail}
}
