package pathmodel

// Path is an ordered list of elements plus its constraints. The editor keeps
// the first and last elements as anchors; the simulation tolerates any input.
type Path struct {
	Elements          []PathElement
	Constraints       Constraints
	RangedConstraints []RangedConstraint
}

// AnchorCount returns the size of the anchor ordinal domain: the number of
// TranslationTarget and Waypoint elements in order.
func (p *Path) AnchorCount() int {
	n := 0
	for _, elem := range p.Elements {
		switch elem.(type) {
		case *TranslationTarget, *Waypoint:
			n++
		}
	}
	return n
}

// RotationEventCount returns the size of the rotation-event ordinal domain:
// the number of RotationTarget and Waypoint elements in order.
func (p *Path) RotationEventCount() int {
	n := 0
	for _, elem := range p.Elements {
		switch elem.(type) {
		case *RotationTarget, *Waypoint:
			n++
		}
	}
	return n
}

// Clone returns a deep copy. Callers hand the copy to a simulation run so a
// live model can keep mutating without torn reads.
func (p *Path) Clone() *Path {
	if p == nil {
		return nil
	}
	out := &Path{
		Elements:          make([]PathElement, 0, len(p.Elements)),
		Constraints:       cloneConstraints(p.Constraints),
		RangedConstraints: append([]RangedConstraint(nil), p.RangedConstraints...),
	}
	for _, elem := range p.Elements {
		out.Elements = append(out.Elements, cloneElement(elem))
	}
	return out
}

func cloneElement(elem PathElement) PathElement {
	switch e := elem.(type) {
	case *TranslationTarget:
		c := *e
		c.HandoffRadiusMeters = cloneFloat(e.HandoffRadiusMeters)
		return &c
	case *RotationTarget:
		c := *e
		if e.LegacyPosition != nil {
			pos := *e.LegacyPosition
			c.LegacyPosition = &pos
		}
		return &c
	case *Waypoint:
		c := Waypoint{Translation: *cloneElement(&e.Translation).(*TranslationTarget)}
		c.Rotation = *cloneElement(&e.Rotation).(*RotationTarget)
		return &c
	case *EventTrigger:
		c := *e
		return &c
	default:
		return elem
	}
}

func cloneConstraints(c Constraints) Constraints {
	return Constraints{
		MaxVelocityMetersPerSec:       cloneFloat(c.MaxVelocityMetersPerSec),
		MaxAccelerationMetersPerSec2:  cloneFloat(c.MaxAccelerationMetersPerSec2),
		MaxVelocityDegPerSec:          cloneFloat(c.MaxVelocityDegPerSec),
		MaxAccelerationDegPerSec2:     cloneFloat(c.MaxAccelerationDegPerSec2),
		EndTranslationToleranceMeters: cloneFloat(c.EndTranslationToleranceMeters),
		EndRotationToleranceDeg:       cloneFloat(c.EndRotationToleranceDeg),
	}
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// Float is a convenience for building optional constraint fields.
func Float(v float64) *float64 { return &v }
