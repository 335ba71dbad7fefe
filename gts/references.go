/*
Copyright © 2025 Global Type System
Released under Apache License 2.0
*/

package gts

import (
	"fmt"
	"strings"
)

// GtsReference represents a GTS ID reference found in JSON content
type GtsReference struct {
	ID         string
	SourcePath string
}

// extractGtsReferences walks through JSON content and extracts all GTS ID references
func extractGtsReferences(content any) []*GtsReference {
	refs := make([]*GtsReference, 0)
	seen := make(map[string]bool)

	walkAndCollectRefs(content, "", &refs, seen)
	return refs
}

// walkAndCollectRefs recursively walks JSON structure to find GTS IDs
func walkAndCollectRefs(node any, path string, refs *[]*GtsReference, seen map[string]bool) {
	if node == nil {
		return
	}

	// Check if current node is a GTS ID string
	if str, ok := node.(string); ok {
		if IsValidGtsID(str) {
			recordRef(str, path, refs, seen)
		}
		return
	}

	// Recurse into map
	if m, ok := node.(map[string]any); ok {
		for k, v := range m {
			nextPath := k
			if path != "" {
				nextPath = path + "." + k
			}

			switch k {
			case "$ref", "$$ref":
				if str, ok := v.(string); ok && IsValidGtsID(stripGtsURIPrefix(str)) {
					recordRef(stripGtsURIPrefix(str), nextPath, refs, seen)
				}
				continue
			case "x-gts-ref":
				// Only absolute gts.* patterns are references into other
				// entities; relative JSON pointers (leading "/") point
				// within the same document and carry no external id.
				if str, ok := v.(string); ok && strings.HasPrefix(str, GtsPrefix) {
					recordRef(str, nextPath, refs, seen)
				}
				continue
			}

			walkAndCollectRefs(v, nextPath, refs, seen)
		}
		return
	}

	// Recurse into slice
	if arr, ok := node.([]any); ok {
		for i, v := range arr {
			nextPath := fmt.Sprintf("[%d]", i)
			if path != "" {
				nextPath = path + nextPath
			}
			walkAndCollectRefs(v, nextPath, refs, seen)
		}
	}
}

// recordRef appends a deduplicated reference, rewriting an empty path to
// "root" so top-level ids are still reported with a source location.
func recordRef(id, path string, refs *[]*GtsReference, seen map[string]bool) {
	if id == "" {
		return
	}
	sourcePath := path
	if sourcePath == "" {
		sourcePath = "root"
	}
	key := id + "|" + sourcePath
	if seen[key] {
		return
	}
	*refs = append(*refs, &GtsReference{ID: id, SourcePath: sourcePath})
	seen[key] = true
}
