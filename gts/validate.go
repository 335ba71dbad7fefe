/*
Copyright © 2025 Global Type System
Released under Apache License 2.0
*/

package gts

import (
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// gtsURLLoader implements jsonschema.URLLoader for GTS ID reference resolution.
// Schema content is normalized before being handed to the compiler so that
// double-dollar aliases, gts:// prefixes, and x-gts-ref branches never reach
// the underlying JSON-Schema engine directly.
type gtsURLLoader struct {
	store      *Registry
	normalizer *SchemaNormalizer
}

// Load resolves GTS ID references to their normalized schema content.
func (l *gtsURLLoader) Load(url string) (any, error) {
	if !IsValidGtsID(url) {
		return nil, fmt.Errorf("unsupported URL: %s", url)
	}
	entity := l.store.Get(url)
	if entity == nil {
		return nil, fmt.Errorf("unresolvable GTS reference: %s", url)
	}
	if !entity.IsSchema {
		return nil, fmt.Errorf("GTS reference is not a schema: %s", url)
	}
	return l.normalizer.Normalize(entity.Content), nil
}

// ValidationResult represents the result of validating an instance
type ValidationResult struct {
	ID    string `json:"id"`
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// ValidateInstance validates an object instance against its schema,
// composing JSON-Schema structural validation with x-gts-ref reference
// validation. Returns ValidationResult with ok=true if both pass.
func (s *Registry) ValidateInstance(gtsID string) *ValidationResult {
	gid, err := NewGtsID(gtsID)
	if err != nil {
		return &ValidationResult{ID: gtsID, OK: false, Error: fmt.Sprintf("Invalid GTS ID: %v", err)}
	}

	obj := s.Get(gid.ID)
	if obj == nil {
		return &ValidationResult{ID: gtsID, OK: false, Error: (&StoreGtsObjectNotFoundError{EntityID: gtsID}).Error()}
	}

	if obj.SchemaID == "" {
		return &ValidationResult{ID: gtsID, OK: false, Error: (&StoreGtsSchemaForInstanceNotFoundError{EntityID: gid.ID}).Error()}
	}

	schemaEntity := s.Get(obj.SchemaID)
	if schemaEntity == nil {
		return &ValidationResult{ID: gtsID, OK: false, Error: (&StoreGtsSchemaNotFoundError{EntityID: obj.SchemaID}).Error()}
	}

	if !schemaEntity.IsSchema {
		return &ValidationResult{ID: gtsID, OK: false, Error: fmt.Sprintf("entity '%s' is not a schema", obj.SchemaID)}
	}

	var msgs []string

	if err := s.validateWithSchema(obj.Content, schemaEntity.Content); err != nil {
		msgs = append(msgs, formatSchemaError(err))
	}

	xrefValidator := NewXGtsRefValidator(s)
	for _, xerr := range xrefValidator.ValidateInstance(obj.Content, schemaEntity.Content, "") {
		msgs = append(msgs, fmt.Sprintf("%s %s", xerr.FieldPath, xerr.Reason))
	}

	if len(msgs) > 0 {
		return &ValidationResult{ID: gtsID, OK: false, Error: strings.Join(msgs, "; ")}
	}

	return &ValidationResult{ID: gtsID, OK: true, Error: ""}
}

// ValidateInstanceWithXGtsRef validates only the x-gts-ref reference
// constraints of an instance against its schema, skipping plain JSON-Schema
// structural validation. Useful when the caller already trusts the shape
// and only wants to confirm every referenced GTS id is well-formed and
// resolvable.
func (s *Registry) ValidateInstanceWithXGtsRef(gtsID string) error {
	gid, err := NewGtsID(gtsID)
	if err != nil {
		return fmt.Errorf("Invalid GTS ID: %v", err)
	}

	obj := s.Get(gid.ID)
	if obj == nil {
		return &StoreGtsObjectNotFoundError{EntityID: gtsID}
	}

	if obj.SchemaID == "" {
		return &StoreGtsSchemaForInstanceNotFoundError{EntityID: gid.ID}
	}

	schemaEntity := s.Get(obj.SchemaID)
	if schemaEntity == nil {
		return &StoreGtsSchemaNotFoundError{EntityID: obj.SchemaID}
	}

	if !schemaEntity.IsSchema {
		return fmt.Errorf("entity '%s' is not a schema", obj.SchemaID)
	}

	xrefValidator := NewXGtsRefValidator(s)
	xerrs := xrefValidator.ValidateInstance(obj.Content, schemaEntity.Content, "")
	if len(xerrs) == 0 {
		return nil
	}

	msgs := make([]string, 0, len(xerrs))
	for _, xerr := range xerrs {
		msgs = append(msgs, fmt.Sprintf("%s %s", xerr.FieldPath, xerr.Reason))
	}
	return fmt.Errorf("%s", strings.Join(msgs, "; "))
}

// validateWithSchema performs JSON-Schema structural validation: the schema
// is normalized first (canonical keys, gts:// stripped, x-gts-ref and
// ref-only combinator branches removed), then compiled and checked against
// the jsonschema/v6 engine.
func (s *Registry) validateWithSchema(instance map[string]any, schema map[string]any) error {
	normalizer := NewSchemaNormalizer()
	normalizedSchema := normalizer.Normalize(schema)

	compiler := jsonschema.NewCompiler()

	// Format assertions are treated as annotations only, not hard
	// constraints; register every format keyword as a no-op.
	lenientValidator := func(v any) error { return nil }
	formats := []string{
		"uuid", "date-time", "date", "time", "email", "hostname",
		"ipv4", "ipv6", "uri", "uri-reference", "iri", "iri-reference",
		"uri-template", "json-pointer", "relative-json-pointer", "regex",
	}
	for _, f := range formats {
		compiler.RegisterFormat(&jsonschema.Format{Name: f, Validate: lenientValidator})
	}

	compiler.UseLoader(&gtsURLLoader{store: s, normalizer: normalizer})

	schemaID, ok := normalizedSchema["$id"].(string)
	if !ok || schemaID == "" {
		return fmt.Errorf("schema must have a valid $id field")
	}

	if err := compiler.AddResource(schemaID, normalizedSchema); err != nil {
		return fmt.Errorf("add schema resource: %v", err)
	}

	// Pre-load every other registered schema, normalized, so internal
	// $ref/x-gts-ref targets resolve without a round trip through the
	// loader.
	for _, entity := range s.GetAll() {
		if entity.IsSchema && entity.GtsID != nil && entity.GtsID.ID != schemaID {
			normalized := normalizer.Normalize(entity.Content)
			if err := compiler.AddResource(entity.GtsID.ID, normalized); err != nil {
				continue
			}
		}
	}

	compiledSchema, err := compiler.Compile(schemaID)
	if err != nil {
		return fmt.Errorf("compile schema: %v", err)
	}

	if err := compiledSchema.Validate(instance); err != nil {
		return err
	}

	return nil
}

// formatSchemaError renders a jsonschema/v6 validation error as a sequence
// of "instancePath message" leaves joined by "; ", matching the shape
// consumers of this library expect from a JSON-Schema error report. A
// missing-required-property leaf is special-cased to read "instancePath
// must have required property 'P'" rather than the engine's own wording.
func formatSchemaError(err error) string {
	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return err.Error()
	}

	leaves := collectLeafErrors(verr)
	if len(leaves) == 0 {
		leaves = []*jsonschema.ValidationError{verr}
	}

	msgs := make([]string, 0, len(leaves))
	for _, leaf := range leaves {
		msgs = append(msgs, formatLeafError(leaf))
	}
	return strings.Join(msgs, "; ")
}

// collectLeafErrors descends into Causes, returning only nodes that carry
// no further causes of their own.
func collectLeafErrors(verr *jsonschema.ValidationError) []*jsonschema.ValidationError {
	if len(verr.Causes) == 0 {
		return []*jsonschema.ValidationError{verr}
	}
	var leaves []*jsonschema.ValidationError
	for _, cause := range verr.Causes {
		leaves = append(leaves, collectLeafErrors(cause)...)
	}
	return leaves
}

func formatLeafError(leaf *jsonschema.ValidationError) string {
	path := "/" + strings.Join(leaf.InstanceLocation, "/")

	msg := leaf.Error()
	if idx := strings.LastIndex(msg, ": "); idx >= 0 {
		msg = msg[idx+2:]
	}

	if prop, ok := parseMissingRequiredProperty(msg); ok {
		return fmt.Sprintf("%s must have required property '%s'", path, prop)
	}

	return fmt.Sprintf("%s %s", path, msg)
}

// parseMissingRequiredProperty recognizes a handful of missing-required
// error phrasings jsonschema/v6 is known to produce and extracts the single
// offending property name.
func parseMissingRequiredProperty(msg string) (string, bool) {
	markers := []string{"missing properties '", "missing property '"}
	for _, marker := range markers {
		if idx := strings.Index(msg, marker); idx >= 0 {
			rest := msg[idx+len(marker):]
			if end := strings.Index(rest, "'"); end >= 0 {
				return rest[:end], true
			}
		}
	}
	return "", false
}
