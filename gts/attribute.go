/*
Copyright © 2025 Global Type System
Released under Apache License 2.0
*/

package gts

import (
	"fmt"
	"strconv"
	"strings"
)

// AttributeResult is the outcome of resolving a "gts_id@path.to.field"
// selector against a registered entity's content.
type AttributeResult struct {
	GtsID           string   `json:"gts_id"`
	Path            string   `json:"path"`
	Value           any      `json:"value,omitempty"`
	Resolved        bool     `json:"resolved"`
	Error           string   `json:"error,omitempty"`
	AvailableFields []string `json:"available_fields,omitempty"`
}

// GetAttribute looks up the entity named before "@" in gtsWithPath and
// resolves the dotted/bracketed path after it against that entity's
// content.
func (s *Registry) GetAttribute(gtsWithPath string) *AttributeResult {
	gtsID, path, hasPath := strings.Cut(gtsWithPath, "@")
	if !hasPath {
		return &AttributeResult{GtsID: gtsID, Resolved: false, Error: "Attribute selector requires '@path' in the identifier"}
	}

	entity := s.Get(gtsID)
	if entity == nil {
		return &AttributeResult{GtsID: gtsID, Path: path, Resolved: false, Error: fmt.Sprintf("Entity not found: %s", gtsID)}
	}

	return walkAttributePath(gtsID, path, entity.Content)
}

// walkAttributePath descends content one path segment at a time,
// switching between map-field lookup and array-index lookup depending on
// the node's runtime type, and reports a list of sibling fields/indices
// whenever a segment can't be resolved.
func walkAttributePath(gtsID, path string, content map[string]any) *AttributeResult {
	result := &AttributeResult{GtsID: gtsID, Path: path, AvailableFields: []string{}}

	var current any = content
	for _, segment := range splitPathSegments(path) {
		next, availableFields, err := descend(current, segment)
		if err != "" {
			result.Error = err
			result.AvailableFields = availableFields
			return result
		}
		current = next
	}

	result.Value = current
	result.Resolved = true
	return result
}

// descend resolves a single path segment against node, which must be
// either a map[string]any (segment is a field name) or a []any (segment
// is a bare or bracketed index).
func descend(node any, segment string) (next any, availableFields []string, errMsg string) {
	switch v := node.(type) {
	case map[string]any:
		if isBracketedIndex(segment) {
			return nil, siblingFields(v, ""), fmt.Sprintf("Path not found at segment '%s', see available fields", segment)
		}
		val, exists := v[segment]
		if !exists {
			return nil, siblingFields(v, ""), fmt.Sprintf("Path not found at segment '%s', see available fields", segment)
		}
		return val, nil, ""

	case []any:
		idx, ok := parseIndex(segment)
		if !ok {
			return nil, siblingFields(v, ""), fmt.Sprintf("Expected list index at segment '%s'", segment)
		}
		if idx < 0 || idx >= len(v) {
			return nil, siblingFields(v, ""), fmt.Sprintf("Index out of range at segment '%s'", segment)
		}
		return v[idx], nil, ""

	default:
		return nil, nil, fmt.Sprintf("Cannot descend into %T at segment '%s'", node, segment)
	}
}

func isBracketedIndex(segment string) bool {
	return strings.HasPrefix(segment, "[") && strings.HasSuffix(segment, "]")
}

// parseIndex accepts either a bare integer segment or one already
// wrapped in brackets.
func parseIndex(segment string) (int, bool) {
	if isBracketedIndex(segment) {
		segment = segment[1 : len(segment)-1]
	}
	idx, err := strconv.Atoi(segment)
	return idx, err == nil
}

// splitPathSegments normalizes "/" to "." as an alternate separator,
// splits on ".", and further splits each dotted segment wherever a
// bracketed array index appears inside it (so "items[0].name" yields
// "items", "[0]", "name").
func splitPathSegments(path string) []string {
	normalized := strings.ReplaceAll(path, "/", ".")

	var segments []string
	for _, dotted := range strings.Split(normalized, ".") {
		if dotted != "" {
			segments = append(segments, splitBracketedIndices(dotted)...)
		}
	}
	return segments
}

// splitBracketedIndices splits one dotted segment into its leading field
// name (if any) and each "[N]" index suffix it carries.
func splitBracketedIndices(segment string) []string {
	var parts []string
	buf := strings.Builder{}

	for i := 0; i < len(segment); {
		if segment[i] != '[' {
			buf.WriteByte(segment[i])
			i++
			continue
		}
		if buf.Len() > 0 {
			parts = append(parts, buf.String())
			buf.Reset()
		}
		end := strings.IndexByte(segment[i+1:], ']')
		if end == -1 {
			buf.WriteString(segment[i:])
			break
		}
		end += i + 1
		parts = append(parts, segment[i:end+1])
		i = end + 1
	}
	if buf.Len() > 0 {
		parts = append(parts, buf.String())
	}
	return parts
}

// siblingFields lists every field/index path reachable from node,
// recursing into nested maps and arrays, for reporting in an
// AttributeResult's AvailableFields when a lookup fails.
func siblingFields(node any, prefix string) []string {
	var fields []string
	switch v := node.(type) {
	case map[string]any:
		for key, val := range v {
			path := joinFieldPath(prefix, key)
			fields = append(fields, path)
			fields = append(fields, siblingFields(val, path)...)
		}
	case []any:
		for i, val := range v {
			path := prefix + fmt.Sprintf("[%d]", i)
			fields = append(fields, path)
			fields = append(fields, siblingFields(val, path)...)
		}
	}
	return fields
}

func joinFieldPath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}
