/*
Copyright © 2025 Global Type System
Released under Apache License 2.0
*/

package gts

// SchemaNormalizer rewrites a raw GTS schema tree into a form a standard
// JSON-Schema engine can compile: it strips x-gts-ref (handled separately
// by XRefValidator), canonicalizes the double-dollar key aliases, strips
// gts:// URI prefixes, and prunes ref-only combinator branches.
type SchemaNormalizer struct{}

// NewSchemaNormalizer creates a SchemaNormalizer.
func NewSchemaNormalizer() *SchemaNormalizer {
	return &SchemaNormalizer{}
}

var keyAliases = map[string]string{
	"$$id":     "$id",
	"$$schema": "$schema",
	"$$ref":    "$ref",
	"$$defs":   "$defs",
}

var combinatorKeys = map[string]bool{
	"oneOf": true, "anyOf": true, "allOf": true,
}

// Normalize returns a new, normalized copy of schema. The input is never
// mutated in place.
func (n *SchemaNormalizer) Normalize(schema map[string]any) map[string]any {
	result, _ := n.normalizeNode(schema).(map[string]any)
	return result
}

// normalizeNode depth-first rewrites one JSON value.
func (n *SchemaNormalizer) normalizeNode(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, val := range v {
			if key == "x-gts-ref" {
				continue
			}

			outKey := key
			if renamed, ok := keyAliases[key]; ok {
				outKey = renamed
			}

			if branches, ok := val.([]any); ok && combinatorKeys[outKey] {
				pruned := n.normalizeCombinator(branches)
				if len(pruned) == 0 {
					continue
				}
				out[outKey] = pruned
				continue
			}

			normalized := n.normalizeNode(val)
			if outKey == "$id" || outKey == "$ref" {
				if s, ok := normalized.(string); ok {
					normalized = stripGtsURIPrefix(s)
				}
			}
			out[outKey] = normalized
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = n.normalizeNode(item)
		}
		return out
	default:
		return value
	}
}

// normalizeCombinator normalizes every branch, dropping any branch whose
// original form was exactly {"x-gts-ref": ...} (a ref-only branch). A
// branch whose original form is the empty object {} is intentional and
// kept.
func (n *SchemaNormalizer) normalizeCombinator(branches []any) []any {
	out := make([]any, 0, len(branches))
	for _, branch := range branches {
		branchMap, ok := branch.(map[string]any)
		if ok && len(branchMap) == 1 {
			if _, onlyRef := branchMap["x-gts-ref"]; onlyRef {
				continue
			}
		}
		out = append(out, n.normalizeNode(branch))
	}
	return out
}

func stripGtsURIPrefix(s string) string {
	if len(s) >= len(GtsURIPrefix) && s[:len(GtsURIPrefix)] == GtsURIPrefix {
		return s[len(GtsURIPrefix):]
	}
	return s
}
