/*
Copyright © 2025 Global Type System
Released under Apache License 2.0
*/

// Package gts implements the Global Type System core: identifier grammar
// and algebra, entity extraction, a typed in-memory registry with
// cross-reference validation, and a schema evolution engine (structural
// compatibility analysis plus instance casting).
package gts

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

const (
	// GtsPrefix is the required prefix for every GTS identifier.
	GtsPrefix = "gts."
	// GtsURIPrefix is the URI-compatible form used in JSON Schema $id/$ref
	// fields ("gts://gts.x.y..."). Only ever stripped on the way in and
	// added back by external presentation layers, never stored.
	GtsURIPrefix = "gts://"
	// MaxIDLength is the maximum allowed byte length of a GTS identifier.
	MaxIDLength = 1024
)

// GtsNamespace is the UUID namespace all GTS identifier UUIDs are derived
// from: uuid5(NAMESPACE_URL, "gts").
var GtsNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("gts"))

// segmentTokenRegex validates an individual dotted token: vendor,
// package, namespace, or type.
var segmentTokenRegex = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// InvalidGtsIDError reports a malformed GTS identifier at the whole-id level.
type InvalidGtsIDError struct {
	GtsID string
	Cause string
}

func (e *InvalidGtsIDError) Error() string {
	if e.Cause != "" {
		return fmt.Sprintf("invalid GTS identifier: %s: %s", e.GtsID, e.Cause)
	}
	return fmt.Sprintf("invalid GTS identifier: %s", e.GtsID)
}

// InvalidSegmentError reports a malformed chain segment, with its ordinal
// and byte offset within the original identifier string.
type InvalidSegmentError struct {
	Num     int
	Offset  int
	Segment string
	Cause   string
}

func (e *InvalidSegmentError) Error() string {
	if e.Cause != "" {
		return fmt.Sprintf("invalid GTS segment #%d @ offset %d: '%s': %s", e.Num, e.Offset, e.Segment, e.Cause)
	}
	return fmt.Sprintf("invalid GTS segment #%d @ offset %d: '%s'", e.Num, e.Offset, e.Segment)
}

// GtsIDSegment is one parsed chain segment of a GTS identifier.
type GtsIDSegment struct {
	Num        int
	Offset     int
	Segment    string
	Vendor     string
	Package    string
	Namespace  string
	Type       string
	VerMajor   int
	VerMinor   *int
	IsType     bool
	IsWildcard bool
}

// GtsID is a validated, parsed GTS identifier.
type GtsID struct {
	ID       string
	Segments []*GtsIDSegment
}

// NewGtsID parses and validates a GTS identifier, returning a distinguished
// InvalidGtsIDError or InvalidSegmentError on failure.
func NewGtsID(id string) (*GtsID, error) {
	raw := strings.TrimSpace(id)

	if raw != strings.ToLower(raw) {
		return nil, &InvalidGtsIDError{GtsID: id, Cause: "must be lower case"}
	}
	if strings.Contains(raw, "-") {
		return nil, &InvalidGtsIDError{GtsID: id, Cause: "must not contain '-'"}
	}
	if !strings.HasPrefix(raw, GtsPrefix) {
		return nil, &InvalidGtsIDError{GtsID: id, Cause: fmt.Sprintf("does not start with '%s'", GtsPrefix)}
	}
	if len(raw) > MaxIDLength {
		return nil, &InvalidGtsIDError{GtsID: id, Cause: "too long"}
	}
	if strings.Contains(raw, "..") {
		return nil, &InvalidGtsIDError{GtsID: id, Cause: "must not contain '..'"}
	}
	if strings.Contains(raw, "~~") {
		return nil, &InvalidGtsIDError{GtsID: id, Cause: "must not contain '~~'"}
	}
	if strings.HasSuffix(raw, ".") {
		return nil, &InvalidGtsIDError{GtsID: id, Cause: "must not end in '.'"}
	}

	gtsID := &GtsID{ID: raw, Segments: make([]*GtsIDSegment, 0)}

	remainder := raw[len(GtsPrefix):]
	parts := splitPreservingTilde(remainder)

	offset := len(GtsPrefix)
	for i, part := range parts {
		if part == "" {
			return nil, &InvalidGtsIDError{GtsID: id, Cause: fmt.Sprintf("chain segment #%d @ offset %d is empty", i+1, offset)}
		}

		segment, err := parseSegment(i+1, offset, part)
		if err != nil {
			return nil, err
		}

		gtsID.Segments = append(gtsID.Segments, segment)
		offset += len(part)
	}

	return gtsID, nil
}

// IsValidGtsID reports whether s parses as a valid GTS identifier.
func IsValidGtsID(s string) bool {
	if !strings.HasPrefix(s, GtsPrefix) {
		return false
	}
	_, err := NewGtsID(s)
	return err == nil
}

// IsType reports whether the identifier is a type identifier: every chain
// segment ends with '~'.
func (g *GtsID) IsType() bool {
	return strings.HasSuffix(g.ID, "~")
}

// ToUUID derives the deterministic UUIDv5 for this identifier, computed as
// uuid5(GtsNamespace, id). Stable across processes and Go versions.
func (g *GtsID) ToUUID() uuid.UUID {
	return uuid.NewSHA1(GtsNamespace, []byte(g.ID))
}

// splitPreservingTilde splits the remainder after the "gts." prefix into
// chain segments, keeping the terminating '~' attached to each type
// segment. The optional final instance segment carries no '~'.
func splitPreservingTilde(s string) []string {
	raw := strings.Split(s, "~")
	parts := make([]string, 0, len(raw))

	for i := 0; i < len(raw); i++ {
		if i < len(raw)-1 {
			parts = append(parts, raw[i]+"~")
			if i == len(raw)-2 && raw[i+1] == "" {
				break
			}
		} else {
			parts = append(parts, raw[i])
		}
	}

	return parts
}

// parseSegment parses a single chain segment: up to six dot-separated
// tokens, optionally terminated by '~' to mark a type segment.
func parseSegment(num, offset int, segment string) (*GtsIDSegment, error) {
	seg := &GtsIDSegment{
		Num:     num,
		Offset:  offset,
		Segment: strings.TrimSpace(segment),
	}

	working := seg.Segment

	if strings.Count(working, "~") > 0 {
		if strings.Count(working, "~") > 1 {
			return nil, &InvalidSegmentError{Num: num, Offset: offset, Segment: segment, Cause: "too many '~' characters"}
		}
		if !strings.HasSuffix(working, "~") {
			return nil, &InvalidSegmentError{Num: num, Offset: offset, Segment: segment, Cause: "'~' must be at the end"}
		}
		seg.IsType = true
		working = working[:len(working)-1]
	}

	tokens := strings.Split(working, ".")

	if len(tokens) > 6 {
		return nil, &InvalidSegmentError{Num: num, Offset: offset, Segment: segment, Cause: "too many tokens"}
	}

	if !strings.HasSuffix(working, "*") {
		if len(tokens) < 5 {
			return nil, &InvalidSegmentError{Num: num, Offset: offset, Segment: segment, Cause: "too few tokens"}
		}
		for t := 0; t < 4; t++ {
			if !segmentTokenRegex.MatchString(tokens[t]) {
				return nil, &InvalidSegmentError{Num: num, Offset: offset, Segment: segment, Cause: "invalid segment token: " + tokens[t]}
			}
		}
	}

	if len(tokens) > 0 {
		if tokens[0] == "*" {
			seg.IsWildcard = true
			return seg, nil
		}
		seg.Vendor = tokens[0]
	}
	if len(tokens) > 1 {
		if tokens[1] == "*" {
			seg.IsWildcard = true
			return seg, nil
		}
		seg.Package = tokens[1]
	}
	if len(tokens) > 2 {
		if tokens[2] == "*" {
			seg.IsWildcard = true
			return seg, nil
		}
		seg.Namespace = tokens[2]
	}
	if len(tokens) > 3 {
		if tokens[3] == "*" {
			seg.IsWildcard = true
			return seg, nil
		}
		seg.Type = tokens[3]
	}

	if len(tokens) > 4 {
		if tokens[4] == "*" {
			seg.IsWildcard = true
			return seg, nil
		}
		if !strings.HasPrefix(tokens[4], "v") {
			return nil, &InvalidSegmentError{Num: num, Offset: offset, Segment: segment, Cause: "major version must start with 'v'"}
		}
		majorStr := tokens[4][1:]
		major, err := strconv.Atoi(majorStr)
		if err != nil || major < 0 || strconv.Itoa(major) != majorStr {
			return nil, &InvalidSegmentError{Num: num, Offset: offset, Segment: segment, Cause: "major version must be a canonical non-negative integer"}
		}
		seg.VerMajor = major
	}

	if len(tokens) > 5 {
		if tokens[5] == "*" {
			seg.IsWildcard = true
			return seg, nil
		}
		minor, err := strconv.Atoi(tokens[5])
		if err != nil || minor < 0 || strconv.Itoa(minor) != tokens[5] {
			return nil, &InvalidSegmentError{Num: num, Offset: offset, Segment: segment, Cause: "minor version must be a canonical non-negative integer"}
		}
		seg.VerMinor = &minor
	}

	return seg, nil
}
