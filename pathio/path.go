// Package pathio reads and writes the on-disk JSON documents the simulator
// consumes: path files and the project config. Ranged constraint ordinals are
// 0-based on disk and 1-based in memory; the conversion happens here and
// never inside the simulation.
package pathio

import (
	"encoding/json"
	"os"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"

	"go.bline.dev/bline/pathmodel"
)

// Element type discriminators in path documents.
const (
	typeTranslation  = "translation"
	typeRotation     = "rotation"
	typeWaypoint     = "waypoint"
	typeEventTrigger = "event_trigger"
)

// DefaultLookup supplies project-config defaults for per-element fields left
// out of a path file. Keys are the un-prefixed constraint names (e.g.
// "intermediate_handoff_radius_meters"). ok is false when no default exists.
type DefaultLookup func(key string) (value float64, ok bool)

type translationJSON struct {
	XMeters       float64  `json:"x_meters"`
	YMeters       float64  `json:"y_meters"`
	HandoffRadius *float64 `json:"intermediate_handoff_radius_meters,omitempty"`
}

type rotationJSON struct {
	RotationRadians float64  `json:"rotation_radians"`
	TRatio          *float64 `json:"t_ratio,omitempty"`
	Profiled        *bool    `json:"profiled_rotation,omitempty"`

	// Legacy files stored a field position instead of a t ratio.
	XMeters *float64 `json:"x_meters,omitempty"`
	YMeters *float64 `json:"y_meters,omitempty"`
}

type elementJSON struct {
	Type string `json:"type"`

	// translation / legacy rotation fields
	XMeters       *float64 `json:"x_meters,omitempty"`
	YMeters       *float64 `json:"y_meters,omitempty"`
	HandoffRadius *float64 `json:"intermediate_handoff_radius_meters,omitempty"`

	// rotation
	RotationRadians *float64 `json:"rotation_radians,omitempty"`
	TRatio          *float64 `json:"t_ratio,omitempty"`
	Profiled        *bool    `json:"profiled_rotation,omitempty"`

	// event trigger
	LibKey *string `json:"lib_key,omitempty"`

	// waypoint
	Translation *translationJSON `json:"translation_target,omitempty"`
	Rotation    *rotationJSON    `json:"rotation_target,omitempty"`
}

type rangedJSON struct {
	Value        float64 `json:"value"`
	StartOrdinal int     `json:"start_ordinal"`
	EndOrdinal   int     `json:"end_ordinal"`
}

type pathJSON struct {
	Elements    []elementJSON              `json:"path_elements"`
	Constraints map[string]json.RawMessage `json:"constraints,omitempty"`
}

var flatConstraintKeys = []string{
	"max_velocity_meters_per_sec",
	"max_acceleration_meters_per_sec2",
	"end_translation_tolerance_meters",
	"max_velocity_deg_per_sec",
	"max_acceleration_deg_per_sec2",
	"end_rotation_tolerance_deg",
}

// MarshalPath renders a path as the on-disk JSON document.
func MarshalPath(path *pathmodel.Path) ([]byte, error) {
	doc := pathJSON{Elements: []elementJSON{}}
	for _, elem := range path.Elements {
		switch e := elem.(type) {
		case *pathmodel.TranslationTarget:
			doc.Elements = append(doc.Elements, elementJSON{
				Type:          typeTranslation,
				XMeters:       floatPtr(e.XMeters),
				YMeters:       floatPtr(e.YMeters),
				HandoffRadius: e.HandoffRadiusMeters,
			})
		case *pathmodel.RotationTarget:
			profiled := e.Profiled
			doc.Elements = append(doc.Elements, elementJSON{
				Type:            typeRotation,
				RotationRadians: floatPtr(e.RotationRadians),
				TRatio:          floatPtr(e.TRatio),
				Profiled:        &profiled,
			})
		case *pathmodel.EventTrigger:
			libKey := e.LibKey
			doc.Elements = append(doc.Elements, elementJSON{
				Type:   typeEventTrigger,
				TRatio: floatPtr(e.TRatio),
				LibKey: &libKey,
			})
		case *pathmodel.Waypoint:
			profiled := e.Rotation.Profiled
			doc.Elements = append(doc.Elements, elementJSON{
				Type: typeWaypoint,
				Translation: &translationJSON{
					XMeters:       e.Translation.XMeters,
					YMeters:       e.Translation.YMeters,
					HandoffRadius: e.Translation.HandoffRadiusMeters,
				},
				Rotation: &rotationJSON{
					RotationRadians: e.Rotation.RotationRadians,
					Profiled:        &profiled,
				},
			})
		}
	}

	constraints, err := marshalConstraints(path)
	if err != nil {
		return nil, err
	}
	doc.Constraints = constraints
	return json.MarshalIndent(doc, "", "  ")
}

func marshalConstraints(path *pathmodel.Path) (map[string]json.RawMessage, error) {
	obj := map[string]json.RawMessage{}

	// Grouped ranged lists take a key's slot over its flat value.
	rangedKeys := map[pathmodel.ConstraintKey]bool{}
	grouped := map[pathmodel.ConstraintKey][]rangedJSON{}
	for _, rc := range path.RangedConstraints {
		if !rc.Key.Valid() {
			continue
		}
		rangedKeys[rc.Key] = true
		grouped[rc.Key] = append(grouped[rc.Key], rangedJSON{
			Value:        rc.Value,
			StartOrdinal: maxInt(rc.StartOrdinal-1, 0),
			EndOrdinal:   maxInt(rc.EndOrdinal-1, 0),
		})
	}

	flat := map[string]*float64{
		"max_velocity_meters_per_sec":      path.Constraints.MaxVelocityMetersPerSec,
		"max_acceleration_meters_per_sec2": path.Constraints.MaxAccelerationMetersPerSec2,
		"max_velocity_deg_per_sec":         path.Constraints.MaxVelocityDegPerSec,
		"max_acceleration_deg_per_sec2":    path.Constraints.MaxAccelerationDegPerSec2,
		"end_translation_tolerance_meters": path.Constraints.EndTranslationToleranceMeters,
		"end_rotation_tolerance_deg":       path.Constraints.EndRotationToleranceDeg,
	}
	for _, key := range flatConstraintKeys {
		value := flat[key]
		if value == nil || rangedKeys[pathmodel.ConstraintKey(key)] {
			continue
		}
		raw, err := json.Marshal(*value)
		if err != nil {
			return nil, err
		}
		obj[key] = raw
	}
	for key, entries := range grouped {
		raw, err := json.Marshal(entries)
		if err != nil {
			return nil, err
		}
		obj[string(key)] = raw
	}

	if len(obj) == 0 {
		return nil, nil
	}
	return obj, nil
}

// UnmarshalPath parses a path document. Malformed entries are skipped rather
// than failing the load; only JSON syntax errors are returned. Legacy
// rotation positions convert to t ratios and legacy "default_"-prefixed flat
// constraint keys are accepted.
func UnmarshalPath(data []byte, defaults DefaultLookup) (*pathmodel.Path, error) {
	path := &pathmodel.Path{}

	var doc pathJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		// Oldest files were a bare element list.
		var list []elementJSON
		if listErr := json.Unmarshal(data, &list); listErr != nil {
			return nil, errors.Wrap(err, "cannot parse path document")
		}
		doc = pathJSON{Elements: list}
	}

	for _, item := range doc.Elements {
		if elem := decodeElement(item, defaults); elem != nil {
			path.Elements = append(path.Elements, elem)
		}
	}

	applyFlatConstraints(path, doc.Constraints)
	convertLegacyPositions(path)
	loadRangedConstraints(path, doc.Constraints)
	return path, nil
}

// ReadPathFile loads a path document from disk.
func ReadPathFile(filename string, defaults DefaultLookup) (*pathmodel.Path, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read path file %q", filename)
	}
	return UnmarshalPath(data, defaults)
}

// WritePathFile stores a path document to disk.
func WritePathFile(filename string, path *pathmodel.Path) error {
	data, err := MarshalPath(path)
	if err != nil {
		return err
	}
	return errors.Wrapf(os.WriteFile(filename, data, 0o644), "cannot write path file %q", filename)
}

func decodeElement(item elementJSON, defaults DefaultLookup) pathmodel.PathElement {
	switch item.Type {
	case typeTranslation:
		return &pathmodel.TranslationTarget{
			XMeters:             floatOr(item.XMeters, 0),
			YMeters:             floatOr(item.YMeters, 0),
			HandoffRadiusMeters: handoffOrDefault(item.HandoffRadius, defaults),
		}
	case typeRotation:
		rt := &pathmodel.RotationTarget{
			RotationRadians: floatOr(item.RotationRadians, 0),
			TRatio:          floatOr(item.TRatio, 0),
			Profiled:        boolOr(item.Profiled, true),
		}
		if item.TRatio == nil && item.XMeters != nil && item.YMeters != nil {
			rt.LegacyPosition = &r2.Point{X: *item.XMeters, Y: *item.YMeters}
		}
		return rt
	case typeEventTrigger:
		libKey := ""
		if item.LibKey != nil {
			libKey = *item.LibKey
		}
		return &pathmodel.EventTrigger{TRatio: floatOr(item.TRatio, 0), LibKey: libKey}
	case typeWaypoint:
		var trans translationJSON
		if item.Translation != nil {
			trans = *item.Translation
		}
		var rot rotationJSON
		if item.Rotation != nil {
			rot = *item.Rotation
		}
		wp := &pathmodel.Waypoint{
			Translation: pathmodel.TranslationTarget{
				XMeters:             trans.XMeters,
				YMeters:             trans.YMeters,
				HandoffRadiusMeters: handoffOrDefault(trans.HandoffRadius, defaults),
			},
			Rotation: pathmodel.RotationTarget{
				RotationRadians: rot.RotationRadians,
				TRatio:          floatOr(rot.TRatio, 0),
				Profiled:        boolOr(rot.Profiled, true),
			},
		}
		if rot.TRatio == nil && rot.XMeters != nil && rot.YMeters != nil {
			wp.Rotation.LegacyPosition = &r2.Point{X: *rot.XMeters, Y: *rot.YMeters}
		}
		return wp
	default:
		return nil
	}
}

func applyFlatConstraints(path *pathmodel.Path, block map[string]json.RawMessage) {
	read := func(key string) *float64 {
		if raw, ok := block[key]; ok {
			var v float64
			if err := json.Unmarshal(raw, &v); err == nil {
				return &v
			}
		}
		// Legacy files prefixed flat keys with "default_".
		if raw, ok := block["default_"+key]; ok {
			var v float64
			if err := json.Unmarshal(raw, &v); err == nil {
				return &v
			}
		}
		return nil
	}
	path.Constraints = pathmodel.Constraints{
		MaxVelocityMetersPerSec:       read("max_velocity_meters_per_sec"),
		MaxAccelerationMetersPerSec2:  read("max_acceleration_meters_per_sec2"),
		MaxVelocityDegPerSec:          read("max_velocity_deg_per_sec"),
		MaxAccelerationDegPerSec2:     read("max_acceleration_deg_per_sec2"),
		EndTranslationToleranceMeters: read("end_translation_tolerance_meters"),
		EndRotationToleranceDeg:       read("end_rotation_tolerance_deg"),
	}
}

// loadRangedConstraints collects grouped ranged lists out of the constraints
// object and converts their on-disk 0-based ordinals to the in-memory 1-based
// convention. Files predating the 0-based convention (any ordinal beyond the
// domain) are taken as already 1-based.
func loadRangedConstraints(path *pathmodel.Path, block map[string]json.RawMessage) {
	anchorCount := path.AnchorCount()
	rotationCount := path.RotationEventCount()

	for _, key := range pathmodel.RangedConstraintKeys {
		raw, ok := block[string(key)]
		if !ok {
			continue
		}
		var entries []rangedJSON
		if err := json.Unmarshal(raw, &entries); err != nil {
			continue
		}
		domainSize := anchorCount
		if key.IsRotation() {
			domainSize = rotationCount
		}
		for _, entry := range entries {
			if entry.Value <= 0 {
				continue
			}
			start, end := entry.StartOrdinal, entry.EndOrdinal
			inDomain := domainSize > 0 &&
				start >= 0 && start <= domainSize-1 &&
				end >= 0 && end <= domainSize-1
			if inDomain || start == 0 || end == 0 {
				start++
				end++
			}
			path.RangedConstraints = append(path.RangedConstraints, pathmodel.RangedConstraint{
				Key:          key,
				Value:        entry.Value,
				StartOrdinal: start,
				EndOrdinal:   end,
			})
		}
	}
}

func handoffOrDefault(value *float64, defaults DefaultLookup) *float64 {
	if value != nil {
		return value
	}
	if defaults == nil {
		return nil
	}
	if v, ok := defaults("intermediate_handoff_radius_meters"); ok {
		return &v
	}
	return nil
}

func floatPtr(v float64) *float64 { return &v }

func floatOr(v *float64, def float64) float64 {
	if v != nil {
		return *v
	}
	return def
}

func boolOr(v *bool, def bool) bool {
	if v != nil {
		return *v
	}
	return def
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
