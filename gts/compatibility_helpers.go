/*
Copyright © 2025 Global Type System
Released under Apache License 2.0
*/

package gts

import (
	"fmt"
	"sort"
	"strings"
)

// fieldAs reads schema[key] and type-asserts it to T, returning the zero
// value of T on a missing key or a type mismatch. Used throughout
// compatibility and cast logic to read loosely-typed JSON Schema fields
// without a type switch at every call site.
func fieldAs[T any](schema map[string]any, key string) (T, bool) {
	var zero T
	val, present := schema[key]
	if !present {
		return zero, false
	}
	typed, ok := val.(T)
	return typed, ok
}

func schemaProperties(schema map[string]any) map[string]any {
	if props, ok := fieldAs[map[string]any](schema, "properties"); ok {
		return props
	}
	return map[string]any{}
}

func requiredFieldSet(schema map[string]any) map[string]bool {
	set := make(map[string]bool)
	req, ok := fieldAs[[]any](schema, "required")
	if !ok {
		return set
	}
	for _, item := range req {
		if name, ok := item.(string); ok {
			set[name] = true
		}
	}
	return set
}

func stringField(m map[string]any, key string) string {
	s, _ := fieldAs[string](m, key)
	return s
}

func mapField(m map[string]any, key string) map[string]any {
	v, _ := fieldAs[map[string]any](m, key)
	return v
}

// numberField reads a numeric field, accepting any of JSON decoding's
// float64 or the plain int/int64 a caller might construct in tests.
func numberField(m map[string]any, key string) *float64 {
	val, present := m[key]
	if !present {
		return nil
	}
	switch v := val.(type) {
	case float64:
		return &v
	case int:
		f := float64(v)
		return &f
	case int64:
		f := float64(v)
		return &f
	default:
		return nil
	}
}

func stringSliceField(m map[string]any, key string) []string {
	items, ok := fieldAs[[]any](m, key)
	if !ok {
		return nil
	}
	result := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			result = append(result, s)
		}
	}
	return result
}

func mapKeys(m map[string]any) map[string]bool {
	keys := make(map[string]bool, len(m))
	for k := range m {
		keys[k] = true
	}
	return keys
}

// setSubtract returns the sorted elements of a absent from b.
func setSubtract(a, b map[string]bool) []string {
	var diff []string
	for k := range a {
		if !b[k] {
			diff = append(diff, k)
		}
	}
	sort.Strings(diff)
	return diff
}

// setCommon returns the sorted elements present in both a and b.
func setCommon(a, b map[string]bool) []string {
	var common []string
	for k := range a {
		if b[k] {
			common = append(common, k)
		}
	}
	sort.Strings(common)
	return common
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, s := range items {
		set[s] = true
	}
	return set
}

func commaJoin(items []string) string {
	return strings.Join(items, ", ")
}

// trimmedFloat renders f without trailing zeros, so "3.0" prints as "3"
// and "3.5" keeps its fraction.
func trimmedFloat(f float64) string {
	s := fmt.Sprintf("%.10f", f)
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}
