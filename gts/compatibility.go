/*
Copyright © 2025 Global Type System
Released under Apache License 2.0
*/

package gts

// CompatibilityResult reports whether old data validates under the new
// schema (backward) and new data validates under the old schema
// (forward), along with the specific property-level reasons for any
// incompatibility found in either direction.
type CompatibilityResult struct {
	FromID                 string              `json:"from"`
	ToID                   string              `json:"to"`
	OldID                  string              `json:"old"`
	NewID                  string              `json:"new"`
	Direction              string              `json:"direction"`
	AddedProperties        []string            `json:"added_properties"`
	RemovedProperties      []string            `json:"removed_properties"`
	ChangedProperties      []map[string]string `json:"changed_properties"`
	IsFullyCompatible      bool                `json:"is_fully_compatible"`
	IsBackwardCompatible   bool                `json:"is_backward_compatible"`
	IsForwardCompatible    bool                `json:"is_forward_compatible"`
	IncompatibilityReasons []string            `json:"incompatibility_reasons"`
	BackwardErrors         []string            `json:"backward_errors"`
	ForwardErrors          []string            `json:"forward_errors"`
	Error                  string              `json:"error,omitempty"`
}

// compatibilityFailure builds the result shape returned whenever the two
// schemas can't even be compared (missing entity, empty content), with
// the same message filed under both error slices.
func compatibilityFailure(oldSchemaID, newSchemaID, reason string) *CompatibilityResult {
	return &CompatibilityResult{
		FromID:                 oldSchemaID,
		ToID:                   newSchemaID,
		OldID:                  oldSchemaID,
		NewID:                  newSchemaID,
		Direction:              "unknown",
		AddedProperties:        []string{},
		RemovedProperties:      []string{},
		ChangedProperties:      []map[string]string{},
		IncompatibilityReasons: []string{},
		BackwardErrors:         []string{reason},
		ForwardErrors:          []string{reason},
	}
}

// CheckCompatibility compares two registered schemas and reports backward
// and forward compatibility independently, plus the inferred version
// direction between them.
func (s *Registry) CheckCompatibility(oldSchemaID, newSchemaID string) *CompatibilityResult {
	oldEntity := s.Get(oldSchemaID)
	newEntity := s.Get(newSchemaID)
	if oldEntity == nil || newEntity == nil {
		return compatibilityFailure(oldSchemaID, newSchemaID, "Schema not found")
	}

	oldSchema, newSchema := oldEntity.Content, newEntity.Content
	if oldSchema == nil || newSchema == nil {
		return compatibilityFailure(oldSchemaID, newSchemaID, "Invalid schema content")
	}

	isBackward, backwardErrors := checkSchemaCompatibility(oldSchema, newSchema, true)
	isForward, forwardErrors := checkSchemaCompatibility(oldSchema, newSchema, false)

	return &CompatibilityResult{
		FromID:                 oldSchemaID,
		ToID:                   newSchemaID,
		OldID:                  oldSchemaID,
		NewID:                  newSchemaID,
		Direction:              inferDirection(oldSchemaID, newSchemaID),
		AddedProperties:        []string{},
		RemovedProperties:      []string{},
		ChangedProperties:      []map[string]string{},
		IsFullyCompatible:      isBackward && isForward,
		IsBackwardCompatible:   isBackward,
		IsForwardCompatible:    isForward,
		IncompatibilityReasons: []string{},
		BackwardErrors:         backwardErrors,
		ForwardErrors:          forwardErrors,
	}
}

// inferDirection compares the trailing minor version of each identifier's
// final segment to say whether newID moves up, down, or stays level
// relative to oldID; anything without a minor version on both sides is
// "unknown".
func inferDirection(oldID, newID string) string {
	oldGtsID, err1 := NewGtsID(oldID)
	newGtsID, err2 := NewGtsID(newID)
	if err1 != nil || err2 != nil || len(oldGtsID.Segments) == 0 || len(newGtsID.Segments) == 0 {
		return "unknown"
	}

	oldSeg := oldGtsID.Segments[len(oldGtsID.Segments)-1]
	newSeg := newGtsID.Segments[len(newGtsID.Segments)-1]
	if oldSeg.VerMinor == nil || newSeg.VerMinor == nil {
		return "unknown"
	}

	switch {
	case *newSeg.VerMinor > *oldSeg.VerMinor:
		return "up"
	case *newSeg.VerMinor < *oldSeg.VerMinor:
		return "down"
	default:
		return "none"
	}
}

// flattenSchema recursively inlines allOf branches into a single
// properties/required/additionalProperties view, last-allOf-entry and
// then the schema's own top-level keys taking precedence.
func flattenSchema(schema map[string]any) map[string]any {
	flat := map[string]any{
		"properties": map[string]any{},
		"required":   []any{},
	}
	mergeInto := func(sub map[string]any) {
		flatProps := flat["properties"].(map[string]any)
		for k, v := range schemaProperties(sub) {
			flatProps[k] = v
		}
		if req, ok := fieldAs[[]any](sub, "required"); ok {
			flat["required"] = append(flat["required"].([]any), req...)
		}
		if addProps, ok := sub["additionalProperties"]; ok {
			flat["additionalProperties"] = addProps
		}
	}

	if allOf, ok := fieldAs[[]any](schema, "allOf"); ok {
		for _, branch := range allOf {
			if sub, ok := branch.(map[string]any); ok {
				mergeInto(flattenSchema(sub))
			}
		}
	}
	mergeInto(schema)
	return flat
}

// checkSchemaCompatibility is the shared engine behind both compatibility
// directions: backward asks "can the new schema still validate old data"
// (no newly required fields, no added enum values, no tightened or newly
// introduced min/max bounds), forward asks the mirror question about old
// schemas validating new data.
func checkSchemaCompatibility(oldSchema, newSchema map[string]any, backward bool) (bool, []string) {
	var errs []string

	oldFlat, newFlat := flattenSchema(oldSchema), flattenSchema(newSchema)
	oldProps, newProps := schemaProperties(oldFlat), schemaProperties(newFlat)
	oldRequired, newRequired := requiredFieldSet(oldFlat), requiredFieldSet(newFlat)

	if backward {
		if added := setSubtract(newRequired, oldRequired); len(added) > 0 {
			errs = append(errs, "Added required properties: "+commaJoin(added))
		}
	} else if removed := setSubtract(oldRequired, newRequired); len(removed) > 0 {
		errs = append(errs, "Removed required properties: "+commaJoin(removed))
	}

	for _, prop := range setCommon(mapKeys(oldProps), mapKeys(newProps)) {
		oldPropSchema := oldProps[prop].(map[string]any)
		newPropSchema := newProps[prop].(map[string]any)
		errs = append(errs, checkPropertyCompatibility(prop, oldPropSchema, newPropSchema, backward)...)
	}

	return len(errs) == 0, errs
}

// checkPropertyCompatibility compares a single property present in both
// schemas: its declared type, enum values, numeric/length/size
// constraints, and (recursively) nested object or array item schemas.
func checkPropertyCompatibility(prop string, oldPropSchema, newPropSchema map[string]any, backward bool) []string {
	var errs []string

	oldType := stringField(oldPropSchema, "type")
	newType := stringField(newPropSchema, "type")
	if oldType != "" && newType != "" && oldType != newType {
		errs = append(errs, "Property '"+prop+"' type changed from "+oldType+" to "+newType)
	}

	oldEnum, newEnum := stringSliceField(oldPropSchema, "enum"), stringSliceField(newPropSchema, "enum")
	if len(oldEnum) > 0 && len(newEnum) > 0 {
		oldEnumSet, newEnumSet := toSet(oldEnum), toSet(newEnum)
		if backward {
			if added := setSubtract(newEnumSet, oldEnumSet); len(added) > 0 {
				errs = append(errs, "Property '"+prop+"' added enum values: "+commaJoin(added))
			}
		} else if removed := setSubtract(oldEnumSet, newEnumSet); len(removed) > 0 {
			errs = append(errs, "Property '"+prop+"' removed enum values: "+commaJoin(removed))
		}
	}

	errs = append(errs, checkConstraintCompatibility(prop, oldPropSchema, newPropSchema, backward)...)

	if oldType == "object" && newType == "object" {
		if ok, nested := checkSchemaCompatibility(oldPropSchema, newPropSchema, backward); !ok {
			for _, err := range nested {
				errs = append(errs, "Property '"+prop+"': "+err)
			}
		}
	}
	if oldType == "array" && newType == "array" {
		oldItems, newItems := mapField(oldPropSchema, "items"), mapField(newPropSchema, "items")
		if oldItems != nil && newItems != nil {
			if ok, nested := checkSchemaCompatibility(oldItems, newItems, backward); !ok {
				for _, err := range nested {
					errs = append(errs, "Property '"+prop+"' array items: "+err)
				}
			}
		}
	}

	return errs
}

// checkConstraintCompatibility dispatches to the min/max pair that
// applies to a property's declared type: numeric bounds, string length,
// or array size.
func checkConstraintCompatibility(prop string, oldPropSchema, newPropSchema map[string]any, backward bool) []string {
	switch stringField(oldPropSchema, "type") {
	case "number", "integer":
		return checkMinMaxConstraint(prop, oldPropSchema, newPropSchema, "minimum", "maximum", backward)
	case "string":
		return checkMinMaxConstraint(prop, oldPropSchema, newPropSchema, "minLength", "maxLength", backward)
	case "array":
		return checkMinMaxConstraint(prop, oldPropSchema, newPropSchema, "minItems", "maxItems", backward)
	default:
		return nil
	}
}

// checkMinMaxConstraint compares a lower/upper bound pair under the given
// key names. Backward compatibility forbids tightening (raising the
// minimum or lowering the maximum); forward compatibility forbids
// relaxing or dropping a bound the old schema relied on.
func checkMinMaxConstraint(prop string, oldSchema, newSchema map[string]any, minKey, maxKey string, backward bool) []string {
	var errs []string

	oldMin, newMin := numberField(oldSchema, minKey), numberField(newSchema, minKey)
	switch {
	case backward && oldMin != nil && newMin != nil && *newMin > *oldMin:
		errs = append(errs, "Property '"+prop+"' "+minKey+" increased from "+trimmedFloat(*oldMin)+" to "+trimmedFloat(*newMin))
	case backward && oldMin == nil && newMin != nil:
		errs = append(errs, "Property '"+prop+"' added "+minKey+" constraint: "+trimmedFloat(*newMin))
	case !backward && oldMin != nil && newMin != nil && *newMin < *oldMin:
		errs = append(errs, "Property '"+prop+"' "+minKey+" decreased from "+trimmedFloat(*oldMin)+" to "+trimmedFloat(*newMin))
	case !backward && oldMin != nil && newMin == nil:
		errs = append(errs, "Property '"+prop+"' removed "+minKey+" constraint")
	}

	oldMax, newMax := numberField(oldSchema, maxKey), numberField(newSchema, maxKey)
	switch {
	case backward && oldMax != nil && newMax != nil && *newMax < *oldMax:
		errs = append(errs, "Property '"+prop+"' "+maxKey+" decreased from "+trimmedFloat(*oldMax)+" to "+trimmedFloat(*newMax))
	case backward && oldMax == nil && newMax != nil:
		errs = append(errs, "Property '"+prop+"' added "+maxKey+" constraint: "+trimmedFloat(*newMax))
	case !backward && oldMax != nil && newMax != nil && *newMax > *oldMax:
		errs = append(errs, "Property '"+prop+"' "+maxKey+" increased from "+trimmedFloat(*oldMax)+" to "+trimmedFloat(*newMax))
	case !backward && oldMax != nil && newMax == nil:
		errs = append(errs, "Property '"+prop+"' removed "+maxKey+" constraint")
	}

	return errs
}
