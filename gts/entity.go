/*
Copyright © 2025 Global Type System
Released under Apache License 2.0
*/

package gts

import (
	"fmt"
	"strings"
)

// JsonFile represents a JSON file containing one or more entities
type JsonFile struct {
	Path    string
	Name    string
	Content any
}

// JsonEntity represents a JSON object with extracted GTS identifiers
type JsonEntity struct {
	GtsID                 *GtsID
	SchemaID              string
	SelectedEntityField   string
	SelectedSchemaIDField string
	IsSchema              bool
	Content               map[string]any
	File                  *JsonFile
	ListSequence          *int
	Label                 string
	GtsRefs               []*GtsReference // All GTS ID references found in content
}

// ExtractIDResult holds the result of extracting ID information from JSON content
type ExtractIDResult struct {
	ID                    string  `json:"id"`
	SchemaID              *string `json:"schema_id"`
	SelectedEntityField   *string `json:"selected_entity_field"`
	SelectedSchemaIDField *string `json:"selected_schema_id_field"`
	IsSchema              bool    `json:"is_schema"`
}

// NewJsonEntity creates a JsonEntity from JSON content using the provided config
func NewJsonEntity(content map[string]any, cfg *GtsConfig) *JsonEntity {
	return NewJsonEntityWithFile(content, cfg, nil, nil)
}

// NewJsonEntityWithFile creates a JsonEntity with file and sequence information
func NewJsonEntityWithFile(content map[string]any, cfg *GtsConfig, file *JsonFile, listSequence *int) *JsonEntity {
	if cfg == nil {
		cfg = DefaultGtsConfig()
	}

	entity := &JsonEntity{
		Content:      content,
		IsSchema:     isJSONSchema(content),
		File:         file,
		ListSequence: listSequence,
	}

	// Extract entity ID
	entityIDValue := entity.calcJSONEntityID(cfg)

	// Extract schema ID
	entity.SchemaID = entity.calcJSONSchemaID(cfg, entityIDValue)

	// ID extraction logic based on entity type
	if entity.IsSchema {
		// For schemas: use entity ID (should be from $id field)
		if entityIDValue != "" && IsValidGtsID(entityIDValue) {
			gtsID, _ := NewGtsID(entityIDValue)
			entity.GtsID = gtsID
		} else if entity.SchemaID != "" && IsValidGtsID(entity.SchemaID) {
			// No entity-id field carried its own id (e.g. only $schema is
			// present); the schema is self-identified by its type id.
			gtsID, _ := NewGtsID(entity.SchemaID)
			entity.GtsID = gtsID
		}
	} else {
		// For instances: different logic based on well-known vs anonymous
		if entityIDValue != "" && IsValidGtsID(entityIDValue) {
			// Well-known instance: GTS ID in id field
			gtsID, _ := NewGtsID(entityIDValue)
			entity.GtsID = gtsID
			// Schema ID should be derived from the chain if not explicitly set
			if entity.SchemaID == "" && entity.SelectedEntityField != "" {
				entity.SchemaID = entity.calcJSONSchemaID(cfg, entityIDValue)
			}
		} else {
			// Anonymous instance: non-GTS ID in id field, GTS type in type field
			// GtsID remains nil for anonymous instances
			// entity.SchemaID should be set from type field
		}
	}

	// Extract GTS references from content
	entity.GtsRefs = extractGtsReferences(content)

	// Set label
	entity.setLabel()

	return entity
}

// setLabel sets the entity's label based on file, sequence, or GTS ID
func (e *JsonEntity) setLabel() {
	if e.File != nil && e.ListSequence != nil {
		e.Label = fmt.Sprintf("%s#%d", e.File.Name, *e.ListSequence)
	} else if e.File != nil {
		e.Label = e.File.Name
	} else if e.GtsID != nil {
		e.Label = e.GtsID.ID
	} else {
		e.Label = ""
	}
}

// isJSONSchema reports whether content is a JSON Schema document: it has a
// $schema/$$schema field whose value is either a JSON Schema meta-schema URL
// or a GTS type reference (gts:// or gts. prefixed). Presence of the field
// alone is not enough — a plain instance may carry an unrelated $schema-like
// value and must not be misclassified.
func isJSONSchema(content map[string]any) bool {
	if content == nil {
		return false
	}

	val, ok := content["$schema"]
	if !ok {
		val, ok = content["$$schema"]
	}
	if !ok {
		return false
	}

	strVal, ok := val.(string)
	if !ok {
		return false
	}
	strVal = strings.TrimSpace(strVal)

	return isJSONSchemaURL(strVal) ||
		strings.HasPrefix(strVal, GtsURIPrefix) ||
		strings.HasPrefix(strVal, GtsPrefix)
}

// getFieldValue retrieves a string value from content field
// For the "$id" field (JSON Schema), it strips the "gts://" URI prefix if present
func (e *JsonEntity) getFieldValue(field string) string {
	if e.Content == nil {
		return ""
	}

	val, ok := e.Content[field]
	if !ok {
		return ""
	}

	strVal, ok := val.(string)
	if !ok {
		return ""
	}

	trimmed := strings.TrimSpace(strVal)
	if trimmed == "" {
		return ""
	}

	// Strip the "gts://" URI prefix ONLY for $id field (JSON Schema compatibility)
	// The gts:// prefix is ONLY valid in the $id field of JSON Schema
	if field == "$id" {
		trimmed = strings.TrimPrefix(trimmed, GtsURIPrefix)
	}

	return trimmed
}

// firstNonEmptyField finds the first non-empty field, preferring valid GTS IDs
func (e *JsonEntity) firstNonEmptyField(fields []string) (string, string) {
	// First pass: look for valid GTS IDs
	for _, field := range fields {
		val := e.getFieldValue(field)
		if val != "" && IsValidGtsID(val) {
			return field, val
		}
	}

	// Second pass: any non-empty string
	for _, field := range fields {
		val := e.getFieldValue(field)
		if val != "" {
			return field, val
		}
	}

	return "", ""
}

// calcJSONEntityID extracts the entity ID from JSON content
func (e *JsonEntity) calcJSONEntityID(cfg *GtsConfig) string {
	field, value := e.firstNonEmptyField(cfg.EntityIDFields)
	e.SelectedEntityField = field
	return value
}

// calcJSONSchemaID extracts the schema ID from JSON content
func (e *JsonEntity) calcJSONSchemaID(cfg *GtsConfig, entityIDValue string) string {
	if e.IsSchema {
		// For a derived schema (a chain of two or more type segments), the
		// parent type is everything up to and including the second-to-last
		// tilde: the last segment is this schema's own type, everything
		// before it is what it derives from.
		if entityIDValue != "" && IsValidGtsID(entityIDValue) && strings.HasSuffix(entityIDValue, "~") {
			if positions := tildePositions(entityIDValue); len(positions) >= 2 {
				e.SelectedSchemaIDField = e.SelectedEntityField
				return entityIDValue[:positions[len(positions)-2]+1]
			}
		}

		// For base schemas: get schema ID from $schema field
		if schemaValue := e.getFieldValue("$schema"); schemaValue != "" {
			e.SelectedSchemaIDField = "$schema"
			return schemaValue
		}
		return ""
	}

	// For instances, an entity id that is itself type-shaped (ends in ~) is
	// its own schema id; no separate field selected it.
	if entityIDValue != "" && IsValidGtsID(entityIDValue) && strings.HasSuffix(entityIDValue, "~") {
		return entityIDValue
	}

	// A chained entity id (well-known instance of a derived type) carries
	// its schema id as everything up to and including the last tilde, but
	// only when that id didn't already come from an explicit id field —
	// $id/id values name the instance itself, not a type chain.
	fromIDField := e.SelectedEntityField == "$id" || e.SelectedEntityField == "id"
	if entityIDValue != "" && IsValidGtsID(entityIDValue) && !fromIDField {
		if lastTilde := strings.LastIndex(entityIDValue, "~"); lastTilde > 0 {
			e.SelectedSchemaIDField = e.SelectedEntityField
			return entityIDValue[:lastTilde+1]
		}
	}

	// Otherwise use SchemaIDFields to find an explicit schema reference.
	field, value := e.firstNonEmptyField(cfg.SchemaIDFields)
	if value != "" {
		e.SelectedSchemaIDField = field
		return value
	}

	return ""
}

// tildePositions returns the byte offsets of every '~' in s, in order.
func tildePositions(s string) []int {
	var positions []int
	for i := 0; i < len(s); i++ {
		if s[i] == '~' {
			positions = append(positions, i)
		}
	}
	return positions
}

// ExtractID extracts GTS ID information from JSON content
func ExtractID(content map[string]any, cfg *GtsConfig) *ExtractIDResult {
	entity := NewJsonEntity(content, cfg)

	result := &ExtractIDResult{
		IsSchema: entity.IsSchema,
	}

	// Set SchemaID as pointer (nil if empty)
	if entity.SchemaID != "" {
		result.SchemaID = &entity.SchemaID
	}

	// Set SelectedEntityField as pointer (nil if empty)
	if entity.SelectedEntityField != "" {
		result.SelectedEntityField = &entity.SelectedEntityField
	}

	// Set SelectedSchemaIDField as pointer (nil if empty)
	if entity.SelectedSchemaIDField != "" {
		result.SelectedSchemaIDField = &entity.SelectedSchemaIDField
	}

	// Return effective_id() based on entity type
	if entity.IsSchema || (entity.GtsID != nil) {
		// For schemas and well-known instances: return GTS ID
		if entity.GtsID != nil {
			result.ID = entity.GtsID.ID
		}
	} else {
		// For anonymous instances: return instance_id (UUID or non-GTS value from id field)
		if entity.SelectedEntityField != "" {
			if val, ok := content[entity.SelectedEntityField]; ok {
				if strVal, ok := val.(string); ok {
					result.ID = strVal
				}
			}
		}
	}

	return result
}
