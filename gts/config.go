/*
Copyright © 2025 Global Type System
Released under Apache License 2.0
*/

package gts

// GtsConfig holds the prioritized candidate field lists the Extractor uses
// to find the entity id and schema id inside an arbitrary JSON document.
// The first populated field in each list wins.
type GtsConfig struct {
	EntityIDFields []string
	SchemaIDFields []string
}

// DefaultGtsConfig returns the default candidate field lists.
func DefaultGtsConfig() *GtsConfig {
	return &GtsConfig{
		EntityIDFields: []string{
			"$id",
			"$$id",
			"gtsId",
			"gtsIid",
			"gtsOid",
			"gtsI",
			"gts_id",
			"gts_oid",
			"gts_iid",
			"id",
		},
		SchemaIDFields: []string{
			"$schema",
			"$$schema",
			"gtsTid",
			"gtsType",
			"gtsT",
			"gts_t",
			"gts_tid",
			"gts_type",
			"type",
			"schema",
		},
	}
}

// RegistryConfig configures Registry behavior.
type RegistryConfig struct {
	// ValidateRefs rejects registration of an entity whose discovered
	// references include an identifier not already present in the registry.
	ValidateRefs bool
	// StrictMode is reserved for future use; it has no observable effect
	// beyond ValidateRefs today.
	StrictMode bool
}

// DefaultRegistryConfig returns the permissive default registry configuration.
func DefaultRegistryConfig() *RegistryConfig {
	return &RegistryConfig{ValidateRefs: false, StrictMode: false}
}
