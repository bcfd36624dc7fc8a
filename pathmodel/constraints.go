package pathmodel

// ConstraintKey identifies a limit that a ranged constraint may override.
type ConstraintKey string

// The four ranged constraint kinds. Translation keys range over anchor
// ordinals; rotation keys range over rotation-event ordinals.
const (
	KeyMaxVelocityMetersPerSec     ConstraintKey = "max_velocity_meters_per_sec"
	KeyMaxAccelerationMetersPerSec ConstraintKey = "max_acceleration_meters_per_sec2"
	KeyMaxVelocityDegPerSec        ConstraintKey = "max_velocity_deg_per_sec"
	KeyMaxAccelerationDegPerSec    ConstraintKey = "max_acceleration_deg_per_sec2"
)

// RangedConstraintKeys lists every valid ranged constraint kind.
var RangedConstraintKeys = []ConstraintKey{
	KeyMaxVelocityMetersPerSec,
	KeyMaxAccelerationMetersPerSec,
	KeyMaxVelocityDegPerSec,
	KeyMaxAccelerationDegPerSec,
}

// IsTranslation reports whether the key ranges over the anchor domain.
func (k ConstraintKey) IsTranslation() bool {
	return k == KeyMaxVelocityMetersPerSec || k == KeyMaxAccelerationMetersPerSec
}

// IsRotation reports whether the key ranges over the rotation-event domain.
func (k ConstraintKey) IsRotation() bool {
	return k == KeyMaxVelocityDegPerSec || k == KeyMaxAccelerationDegPerSec
}

// Valid reports whether the key is one of the four ranged kinds.
func (k ConstraintKey) Valid() bool {
	return k.IsTranslation() || k.IsRotation()
}

// Constraints are the path-level flat limits. Nil fields fall back to the
// project config and then to hard defaults when the simulation resolves them.
type Constraints struct {
	MaxVelocityMetersPerSec       *float64
	MaxAccelerationMetersPerSec2  *float64
	MaxVelocityDegPerSec          *float64
	MaxAccelerationDegPerSec2     *float64
	EndTranslationToleranceMeters *float64
	EndRotationToleranceDeg       *float64
}

// RangedConstraint scopes a limit to a contiguous 1-based inclusive ordinal
// range. The domain (anchors vs rotation events) follows from Key. Ranges of
// the same key may overlap; the simulation takes the minimum applicable value.
type RangedConstraint struct {
	Key          ConstraintKey
	Value        float64
	StartOrdinal int
	EndOrdinal   int
}

// Contains reports whether the 1-based ordinal falls inside the range after
// clamping the range bounds to [1, domainSize]. A non-positive domainSize
// matches nothing.
func (rc RangedConstraint) Contains(ordinal, domainSize int) bool {
	if domainSize <= 0 {
		return false
	}
	lo, hi := rc.StartOrdinal, rc.EndOrdinal
	if lo < 1 {
		lo = 1
	}
	if hi > domainSize {
		hi = domainSize
	}
	return lo <= ordinal && ordinal <= hi
}
