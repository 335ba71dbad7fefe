/*
Copyright © 2025 Global Type System
Released under Apache License 2.0
*/

package gts

import (
	"fmt"
	"log"
	"strings"
	"sync"
)

// StoreGtsObjectNotFoundError is returned when a GTS entity is not found in the store
type StoreGtsObjectNotFoundError struct {
	EntityID string
}

func (e *StoreGtsObjectNotFoundError) Error() string {
	return fmt.Sprintf("JSON object with GTS ID '%s' not found in store", e.EntityID)
}

// StoreGtsSchemaNotFoundError is returned when a GTS schema is not found in the store
type StoreGtsSchemaNotFoundError struct {
	EntityID string
}

func (e *StoreGtsSchemaNotFoundError) Error() string {
	return fmt.Sprintf("JSON schema with GTS ID '%s' not found in store", e.EntityID)
}

// StoreGtsSchemaForInstanceNotFoundError is returned when a schema ID cannot be determined for an instance
type StoreGtsSchemaForInstanceNotFoundError struct {
	EntityID string
}

func (e *StoreGtsSchemaForInstanceNotFoundError) Error() string {
	return fmt.Sprintf("Can't determine JSON schema ID for instance with GTS ID '%s'", e.EntityID)
}

// StoreGtsCastFromSchemaNotAllowedError is returned when attempting to cast from a schema ID
type StoreGtsCastFromSchemaNotAllowedError struct {
	FromID string
}

func (e *StoreGtsCastFromSchemaNotAllowedError) Error() string {
	return fmt.Sprintf("Cannot cast from schema ID '%s'. The from_id must be an instance (not ending with '~').", e.FromID)
}

// Registry holds a collection of JSON entities and schemas keyed by GTS id.
// Reads and writes are safe for concurrent use: writers serialize behind a
// single mutex, and a registered entity's content is never mutated in
// place, so concurrent readers never observe a torn entity.
type Registry struct {
	mu     sync.RWMutex
	byID   map[string]*JsonEntity
	order  []string // insertion order, for deterministic enumeration
	config *RegistryConfig
}

// NewRegistry creates a new, empty Registry with the default configuration.
func NewRegistry() *Registry {
	return NewRegistryWithConfig(DefaultRegistryConfig())
}

// NewRegistryWithConfig creates a new, empty Registry with custom configuration
func NewRegistryWithConfig(config *RegistryConfig) *Registry {
	if config == nil {
		config = DefaultRegistryConfig()
	}

	store := &Registry{
		byID:   make(map[string]*JsonEntity),
		config: config,
	}

	log.Printf("Created Registry (validation: %v)", config.ValidateRefs)
	return store
}

// put inserts or overwrites an entity, tracking insertion order. The
// caller must hold s.mu for writing.
func (s *Registry) put(id string, entity *JsonEntity) {
	if _, exists := s.byID[id]; !exists {
		s.order = append(s.order, id)
	}
	s.byID[id] = entity
}

// Register adds a JsonEntity to the store with optional GTS reference validation
func (s *Registry) Register(entity *JsonEntity) error {
	if entity.GtsID == nil || entity.GtsID.ID == "" {
		return fmt.Errorf("entity must have a valid gts_id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Perform validation if enabled
	if s.config.ValidateRefs {
		if err := s.validateEntityGtsReferences(entity); err != nil {
			return fmt.Errorf("GTS reference validation failed for entity %s: %w", entity.GtsID.ID, err)
		}
	}

	s.put(entity.GtsID.ID, entity)
	log.Printf("Registered entity: %s (schema: %v, refs: %d)", entity.GtsID.ID, entity.IsSchema, len(entity.GtsRefs))
	return nil
}

// RegisterSchema registers a schema with the given type ID
// This is a legacy method for backward compatibility
func (s *Registry) RegisterSchema(typeID string, schema map[string]any) error {
	if typeID[len(typeID)-1] != '~' {
		return fmt.Errorf("schema type_id must end with '~'")
	}

	// Parse to validate
	gtsID, err := NewGtsID(typeID)
	if err != nil {
		return err
	}

	entity := &JsonEntity{
		GtsID:    gtsID,
		Content:  schema,
		IsSchema: true,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(typeID, entity)
	return nil
}

// Get retrieves a JsonEntity by its ID, or nil if not registered.
func (s *Registry) Get(entityID string) *JsonEntity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byID[entityID]
}

// GetSchemaContent retrieves schema content as a map (legacy method)
func (s *Registry) GetSchemaContent(typeID string) (map[string]any, error) {
	entity := s.Get(typeID)
	if entity == nil {
		return nil, fmt.Errorf("schema not found: %s", typeID)
	}
	if !entity.IsSchema {
		return nil, fmt.Errorf("entity is not a schema: %s", typeID)
	}
	return entity.Content, nil
}

// Items returns a snapshot of all entity ID/entity pairs.
func (s *Registry) Items() map[string]*JsonEntity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]*JsonEntity, len(s.byID))
	for k, v := range s.byID {
		out[k] = v
	}
	return out
}

// GetAll returns every registered entity in insertion order.
func (s *Registry) GetAll() []*JsonEntity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*JsonEntity, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}

// Count returns the number of entities in the store
func (s *Registry) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// EntityInfo represents basic information about an entity
type EntityInfo struct {
	ID       string `json:"id"`
	SchemaID string `json:"schema_id"`
	IsSchema bool   `json:"is_schema"`
}

// ListResult represents the result of listing entities
type ListResult struct {
	Entities []EntityInfo `json:"entities"`
	Count    int          `json:"count"`
	Total    int          `json:"total"`
}

// List returns a list of entities in insertion order, up to limit.
func (s *Registry) List(limit int) *ListResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := len(s.order)
	entities := []EntityInfo{}

	for _, id := range s.order {
		if len(entities) >= limit {
			break
		}
		entity := s.byID[id]
		entities = append(entities, EntityInfo{
			ID:       id,
			SchemaID: entity.SchemaID,
			IsSchema: entity.IsSchema,
		})
	}

	return &ListResult{
		Entities: entities,
		Count:    len(entities),
		Total:    total,
	}
}

// validateEntityGtsReferences validates all GTS references in an entity
func (s *Registry) validateEntityGtsReferences(entity *JsonEntity) error {
	if entity == nil || len(entity.GtsRefs) == 0 {
		return nil
	}

	var errors []string

	for _, ref := range entity.GtsRefs {
		if ref.ID == entity.GtsID.ID {
			// Skip self-references
			continue
		}

		// Skip JSON Schema meta-schema references
		if strings.HasPrefix(ref.ID, "http://json-schema.org") ||
			strings.HasPrefix(ref.ID, "https://json-schema.org") {
			continue
		}

		// Check if the referenced entity exists in the store. Called with
		// s.mu already held for writing, so look up the map directly
		// rather than through Get (which would re-lock and deadlock).
		referencedEntity := s.byID[ref.ID]
		if referencedEntity == nil {
			errors = append(errors, fmt.Sprintf("referenced entity not found: %s (at %s)", ref.ID, ref.SourcePath))
			continue
		}

		// Additional validation for schema references
		if entity.IsSchema {
			if strings.Contains(ref.SourcePath, "$ref") {
				// This is a schema reference - the referenced entity should be a schema
				if !referencedEntity.IsSchema {
					errors = append(errors, fmt.Sprintf("schema reference points to non-schema entity: %s (at %s)", ref.ID, ref.SourcePath))
				}
			}
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("GTS reference validation errors: %s", strings.Join(errors, "; "))
	}

	return nil
}

// ValidateSchema checks that a registered schema has content, that its GTS
// references resolve, and that its x-gts-ref patterns are well formed. The
// content is not validated against the JSON Schema meta-schema.
func (s *Registry) ValidateSchema(gtsID string) error {
	if !strings.HasSuffix(gtsID, "~") {
		return fmt.Errorf("ID '%s' is not a schema (must end with '~')", gtsID)
	}

	entity := s.Get(gtsID)
	if entity == nil {
		return &StoreGtsSchemaNotFoundError{EntityID: gtsID}
	}

	if !entity.IsSchema {
		return fmt.Errorf("entity '%s' is not a schema", gtsID)
	}

	log.Printf("Validating schema %s", gtsID)

	// Require schema content (no meta-schema check is made)
	if entity.Content == nil {
		return fmt.Errorf("schema content is nil")
	}

	// Validate GTS references in the schema
	s.mu.RLock()
	err := s.validateEntityGtsReferences(entity)
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("schema GTS reference validation failed: %w", err)
	}

	// Validate x-gts-ref pattern well-formedness throughout the schema tree
	xrefValidator := NewXGtsRefValidator(s)
	if xerrs := xrefValidator.ValidateSchema(entity.Content, "", entity.Content); len(xerrs) > 0 {
		msgs := make([]string, 0, len(xerrs))
		for _, xerr := range xerrs {
			msgs = append(msgs, fmt.Sprintf("%s %s", xerr.FieldPath, xerr.Reason))
		}
		return fmt.Errorf("x-gts-ref validation failed: %s", strings.Join(msgs, "; "))
	}

	log.Printf("Schema %s passed validation", gtsID)
	return nil
}
