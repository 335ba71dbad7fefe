/*
Copyright © 2025 Global Type System
Released under Apache License 2.0
*/

package gts

import (
	"fmt"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// CastResult reports the outcome of reshaping an instance to a target
// schema version: the same compatibility metrics CheckCompatibility
// produces, plus the reshaped entity itself when casting succeeded.
type CastResult struct {
	*CompatibilityResult
	CastedEntity map[string]any `json:"casted_entity,omitempty"`
}

// Cast reshapes a registered instance so it conforms to toSchemaID,
// filling in defaults for newly required fields, dropping fields the
// target schema no longer declares (when additionalProperties is
// false), and recursing into nested objects and arrays of objects.
func (s *Registry) Cast(instanceID, toSchemaID string) (*CastResult, error) {
	instanceEntity := s.Get(instanceID)
	if instanceEntity == nil {
		return nil, &StoreGtsObjectNotFoundError{EntityID: instanceID}
	}
	if instanceEntity.IsSchema {
		return nil, &StoreGtsCastFromSchemaNotAllowedError{FromID: instanceID}
	}

	toSchema := s.Get(toSchemaID)
	if toSchema == nil {
		return nil, &StoreGtsSchemaNotFoundError{EntityID: toSchemaID}
	}

	fromSchemaID := instanceEntity.SchemaID
	if fromSchemaID == "" {
		return nil, &StoreGtsSchemaForInstanceNotFoundError{EntityID: instanceID}
	}
	fromSchema := s.Get(fromSchemaID)
	if fromSchema == nil {
		return nil, &StoreGtsSchemaNotFoundError{EntityID: fromSchemaID}
	}

	return reshapeInstance(instanceID, toSchemaID, instanceEntity.Content, fromSchema.Content, toSchema.Content, s)
}

// reshapeInstance orders old/new schemas by the inferred version
// direction, checks compatibility between them, applies the field-level
// transformation, and validates the result against the target schema
// (with GTS-identifier consts widened, see validateCastTarget) before
// returning a CastResult.
func reshapeInstance(
	fromInstanceID, toSchemaID string,
	instanceContent, fromSchemaContent, toSchemaContent map[string]any,
	store *Registry,
) (*CastResult, error) {
	direction := inferDirection(fromInstanceID, toSchemaID)

	oldSchema, newSchema := fromSchemaContent, toSchemaContent
	if direction == "down" {
		oldSchema, newSchema = toSchemaContent, fromSchemaContent
	}
	isBackward, backwardErrors := checkSchemaCompatibility(oldSchema, newSchema, true)
	isForward, forwardErrors := checkSchemaCompatibility(oldSchema, newSchema, false)

	casted, added, removed, reasons := reshapeToSchema(cloneMap(instanceContent), flattenSchema(toSchemaContent), "")

	isFullyCompatible := false
	if casted != nil {
		if err := validateCastTarget(casted, toSchemaContent, store); err != nil {
			reasons = append(reasons, err.Error())
		} else {
			isFullyCompatible = true
		}
	}

	return &CastResult{
		CompatibilityResult: &CompatibilityResult{
			FromID:                 fromInstanceID,
			ToID:                   toSchemaID,
			OldID:                  fromInstanceID,
			NewID:                  toSchemaID,
			Direction:              direction,
			AddedProperties:        sortedUnique(added),
			RemovedProperties:      sortedUnique(removed),
			ChangedProperties:      []map[string]string{},
			IsFullyCompatible:      isFullyCompatible,
			IsBackwardCompatible:   isBackward,
			IsForwardCompatible:    isForward,
			IncompatibilityReasons: reasons,
			BackwardErrors:         backwardErrors,
			ForwardErrors:          forwardErrors,
		},
		CastedEntity: casted,
	}, nil
}

// reshapeToSchema walks instance and schema in lockstep, returning the
// adjusted object along with the dotted paths of every field it added or
// dropped and any field it could not reconcile at all.
func reshapeToSchema(instance, schema map[string]any, basePath string) (result map[string]any, added, removed, reasons []string) {
	if instance == nil {
		return nil, nil, nil, []string{"Instance must be an object for casting"}
	}

	targetProps := schemaProperties(schema)
	required := requiredFieldSet(schema)
	result = cloneMap(instance)

	added, reasons = fillRequiredDefaults(result, targetProps, required, basePath)
	fillOptionalDefaults(result, targetProps, required, basePath, &added)
	syncGtsIDConstants(result, targetProps)

	if !additionalPropertiesAllowed(schema) {
		removed = dropUndeclaredFields(result, targetProps, basePath)
	}

	nestedAdded, nestedRemoved, nestedReasons := descendIntoNestedSchemas(result, targetProps, basePath)
	added = append(added, nestedAdded...)
	removed = append(removed, nestedRemoved...)
	reasons = append(reasons, nestedReasons...)

	return result, added, removed, reasons
}

// fillRequiredDefaults fills in a declared default for any required
// field missing from result, and records a reason for any required field
// with no default to fall back on.
func fillRequiredDefaults(result map[string]any, targetProps map[string]any, required map[string]bool, basePath string) (added, reasons []string) {
	for prop := range required {
		if _, exists := result[prop]; exists {
			continue
		}
		propSchema := mapField(targetProps, prop)
		if propSchema == nil {
			continue
		}
		if defaultVal, hasDefault := propSchema["default"]; hasDefault {
			result[prop] = cloneValue(defaultVal)
			added = append(added, buildPath(basePath, prop))
		} else {
			reasons = append(reasons, fmt.Sprintf("Missing required property '%s' and no default is defined", buildPath(basePath, prop)))
		}
	}
	return added, reasons
}

// fillOptionalDefaults fills a declared default into any optional field
// still missing from result, appending each newly-added path to added.
func fillOptionalDefaults(result map[string]any, targetProps map[string]any, required map[string]bool, basePath string, added *[]string) {
	for prop, propSchemaAny := range targetProps {
		if required[prop] {
			continue
		}
		propSchema, ok := propSchemaAny.(map[string]any)
		if !ok {
			continue
		}
		if _, exists := result[prop]; exists {
			continue
		}
		if defaultVal, hasDefault := propSchema["default"]; hasDefault {
			result[prop] = cloneValue(defaultVal)
			*added = append(*added, buildPath(basePath, prop))
		}
	}
}

// syncGtsIDConstants overwrites a field's value with the schema's const
// whenever both the existing value and the const are well-formed
// identifiers and they differ, so casting across versions keeps a
// schema-linked id field pointed at the new schema.
func syncGtsIDConstants(result map[string]any, targetProps map[string]any) {
	for prop, propSchemaAny := range targetProps {
		propSchema, ok := propSchemaAny.(map[string]any)
		if !ok {
			continue
		}
		constVal, hasConst := propSchema["const"]
		if !hasConst {
			continue
		}
		existingVal, exists := result[prop]
		if !exists {
			continue
		}
		constStr, constIsStr := constVal.(string)
		existingStr, existingIsStr := existingVal.(string)
		if constIsStr && existingIsStr && IsValidGtsID(constStr) && IsValidGtsID(existingStr) && existingStr != constStr {
			result[prop] = constStr
		}
	}
}

// dropUndeclaredFields removes every field from result that the target
// schema doesn't declare, returning the paths of everything removed.
func dropUndeclaredFields(result map[string]any, targetProps map[string]any, basePath string) []string {
	var removed []string
	for prop := range result {
		if _, inTarget := targetProps[prop]; inTarget {
			continue
		}
		delete(result, prop)
		removed = append(removed, buildPath(basePath, prop))
	}
	return removed
}

// descendIntoNestedSchemas recurses reshapeToSchema into any object-typed
// property and into each object-typed element of an array-typed property.
func descendIntoNestedSchemas(result map[string]any, targetProps map[string]any, basePath string) (added, removed, reasons []string) {
	for prop, propSchemaAny := range targetProps {
		val, exists := result[prop]
		if !exists {
			continue
		}
		propSchema, ok := propSchemaAny.(map[string]any)
		if !ok {
			continue
		}

		switch stringField(propSchema, "type") {
		case "object":
			if valMap, isMap := val.(map[string]any); isMap {
				newObj, a, r, e := reshapeToSchema(valMap, effectiveObjectSchema(propSchema), buildPath(basePath, prop))
				result[prop] = newObj
				added, removed, reasons = append(added, a...), append(removed, r...), append(reasons, e...)
			}
		case "array":
			valArray, isArray := val.([]any)
			itemsSchema := mapField(propSchema, "items")
			if !isArray || itemsSchema == nil || stringField(itemsSchema, "type") != "object" {
				continue
			}
			nestedSchema := effectiveObjectSchema(itemsSchema)
			newList := make([]any, 0, len(valArray))
			for idx, item := range valArray {
				itemMap, isMap := item.(map[string]any)
				if !isMap {
					newList = append(newList, item)
					continue
				}
				newItem, a, r, e := reshapeToSchema(itemMap, nestedSchema, buildPath(basePath, fmt.Sprintf("%s[%d]", prop, idx)))
				newList = append(newList, newItem)
				added, removed, reasons = append(added, a...), append(removed, r...), append(reasons, e...)
			}
			result[prop] = newList
		}
	}
	return added, removed, reasons
}

// effectiveObjectSchema returns schema itself if it declares properties
// or required directly, or the first allOf branch that does, falling
// back to schema unchanged when neither applies.
func effectiveObjectSchema(schema map[string]any) map[string]any {
	if schema == nil {
		return map[string]any{}
	}
	if declaresObjectShape(schema) {
		return schema
	}
	if allOf, ok := fieldAs[[]any](schema, "allOf"); ok {
		for _, branch := range allOf {
			if part, ok := branch.(map[string]any); ok && declaresObjectShape(part) {
				return part
			}
		}
	}
	return schema
}

func declaresObjectShape(schema map[string]any) bool {
	_, hasProps := schema["properties"]
	_, hasReq := schema["required"]
	return hasProps || hasReq
}

// validateCastTarget validates a reshaped instance against the target
// schema, tolerating GTS ID const fields by widening them to a plain
// string type before compiling — the cast already reconciled those
// values via syncGtsIDConstants.
func validateCastTarget(instance, schema map[string]any, store *Registry) error {
	normalizer := NewSchemaNormalizer()
	tolerant := widenGtsIDConstants(normalizer.Normalize(schema))

	compiler := jsonschema.NewCompiler()
	compiler.UseLoader(&gtsURLLoader{store: store, normalizer: normalizer})
	for _, entity := range store.GetAll() {
		if entity.IsSchema && entity.GtsID != nil {
			compiler.AddResource(entity.GtsID.ID, normalizer.Normalize(entity.Content))
		}
	}

	const resourceID = "_cast_validation"
	compiler.AddResource(resourceID, tolerant)
	compiled, err := compiler.Compile(resourceID)
	if err != nil {
		return fmt.Errorf("failed to compile schema: %w", err)
	}
	if err := compiled.Validate(instance); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}

// widenGtsIDConstants recursively replaces any const constraint whose
// value is a GTS identifier with a bare string type constraint.
func widenGtsIDConstants(schema any) any {
	switch v := schema.(type) {
	case map[string]any:
		result := make(map[string]any, len(v))
		for key, value := range v {
			if key == "const" {
				if strVal, ok := value.(string); ok && IsValidGtsID(strVal) {
					result["type"] = "string"
					continue
				}
			}
			result[key] = widenGtsIDConstants(value)
		}
		return result
	case []any:
		result := make([]any, len(v))
		for i, item := range v {
			result[i] = widenGtsIDConstants(item)
		}
		return result
	default:
		return v
	}
}

// additionalPropertiesAllowed reports a schema's additionalProperties
// setting, defaulting to true when unspecified.
func additionalPropertiesAllowed(schema map[string]any) bool {
	if v, ok := fieldAs[bool](schema, "additionalProperties"); ok {
		return v
	}
	return true
}

// buildPath appends prop to base with a dot, except when prop is already
// a bracketed array index.
func buildPath(base, prop string) string {
	if base == "" {
		return prop
	}
	if strings.HasPrefix(prop, "[") {
		return base + prop
	}
	return base + "." + prop
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	result := make(map[string]any, len(m))
	for k, v := range m {
		result[k] = cloneValue(v)
	}
	return result
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return cloneMap(val)
	case []any:
		result := make([]any, len(val))
		for i, item := range val {
			result[i] = cloneValue(item)
		}
		return result
	default:
		return v
	}
}

// sortedUnique returns the sorted, duplicate-free contents of items.
func sortedUnique(items []string) []string {
	seen := make(map[string]bool, len(items))
	result := make([]string, 0, len(items))
	for _, item := range items {
		if !seen[item] {
			seen[item] = true
			result = append(result, item)
		}
	}
	sort.Strings(result)
	return result
}
