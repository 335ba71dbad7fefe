/*
Copyright © 2025 Global Type System
Released under Apache License 2.0
*/

package gts

import (
	"fmt"
	"strings"
)

// MatchIDResult is the outcome of testing a candidate identifier against a
// wildcard pattern.
type MatchIDResult struct {
	Candidate string `json:"candidate"`
	Pattern   string `json:"pattern"`
	Match     bool   `json:"match"`
	Error     string `json:"error"`
}

// InvalidWildcardError reports a pattern that is not a legal GTS wildcard:
// more than one '*', a '*' not at the tail of its segment, or a pattern body
// that otherwise fails identifier parsing.
type InvalidWildcardError struct {
	Pattern string
	Cause   string
}

func (e *InvalidWildcardError) Error() string {
	if e.Cause == "" {
		return fmt.Sprintf("invalid GTS wildcard pattern: %s", e.Pattern)
	}
	return fmt.Sprintf("invalid GTS wildcard pattern: %s: %s", e.Pattern, e.Cause)
}

// MatchIDPattern reports whether candidate satisfies pattern. candidate must
// parse as a concrete GTS identifier; pattern may carry at most one trailing
// wildcard segment. Any parse failure on either side is surfaced through
// Result.Error rather than a Go error return, matching the rest of this
// package's result-record convention.
func MatchIDPattern(candidate, pattern string) MatchIDResult {
	result := MatchIDResult{Candidate: candidate, Pattern: pattern}

	candidateID, err := NewGtsID(candidate)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	patternID, err := parseWildcardPattern(pattern)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	result.Match = segmentsMatch(patternID.Segments, candidateID.Segments)
	return result
}

// parseWildcardPattern checks the wildcard-specific shape constraints (at
// most one '*', only at the tail of its segment) before handing the pattern
// body to the identifier parser.
func parseWildcardPattern(pattern string) (*GtsID, error) {
	trimmed := strings.TrimSpace(pattern)

	if !strings.HasPrefix(trimmed, GtsPrefix) {
		return nil, &InvalidWildcardError{Pattern: pattern, Cause: fmt.Sprintf("does not start with '%s'", GtsPrefix)}
	}

	switch strings.Count(trimmed, "*") {
	case 0:
		// plain identifier, no wildcard at all
	case 1:
		if !strings.HasSuffix(trimmed, ".*") && !strings.HasSuffix(trimmed, "~*") {
			return nil, &InvalidWildcardError{Pattern: pattern, Cause: "the '*' token may only appear at the end of the pattern"}
		}
	default:
		return nil, &InvalidWildcardError{Pattern: pattern, Cause: "the '*' token may appear at most once"}
	}

	id, err := NewGtsID(trimmed)
	if err != nil {
		return nil, &InvalidWildcardError{Pattern: pattern, Cause: err.Error()}
	}
	return id, nil
}

// segmentsMatch compares a pattern's chain segments against a candidate's,
// position by position. A pattern longer than the candidate can never
// match. Reaching a wildcard segment ends the comparison immediately,
// successfully or not, per spec: the wildcard absorbs everything from its
// position onward.
func segmentsMatch(pattern, candidate []*GtsIDSegment) bool {
	if len(pattern) > len(candidate) {
		return false
	}

	for i, pSeg := range pattern {
		cSeg := candidate[i]
		if pSeg.IsWildcard {
			return wildcardSegmentAccepts(pSeg, cSeg)
		}
		if !segmentsEqual(pSeg, cSeg) {
			return false
		}
	}
	return true
}

// wildcardSegmentAccepts reports whether a candidate segment satisfies a
// wildcard pattern segment: every field the pattern actually set (vendor,
// package, namespace, type, major, type-flag) must equal the candidate's;
// an unset pattern field imposes no constraint. Minor version is unset iff
// the pattern never carried one.
func wildcardSegmentAccepts(pattern, candidate *GtsIDSegment) bool {
	if pattern.Vendor != "" && pattern.Vendor != candidate.Vendor {
		return false
	}
	if pattern.Package != "" && pattern.Package != candidate.Package {
		return false
	}
	if pattern.Namespace != "" && pattern.Namespace != candidate.Namespace {
		return false
	}
	if pattern.Type != "" && pattern.Type != candidate.Type {
		return false
	}
	// A wildcard segment with more than five tokens spells out its major
	// version, so an explicit v0 constrains the candidate too.
	majorSet := pattern.VerMajor != 0 || len(strings.Split(strings.TrimSuffix(pattern.Segment, "~"), ".")) > 5
	if majorSet && pattern.VerMajor != candidate.VerMajor {
		return false
	}
	if pattern.VerMinor != nil && (candidate.VerMinor == nil || *pattern.VerMinor != *candidate.VerMinor) {
		return false
	}
	if pattern.IsType && pattern.IsType != candidate.IsType {
		return false
	}
	return true
}

// segmentsEqual reports whether two non-wildcard segments denote the same
// vendor/package/namespace/type, the same major version, the same type
// flag, and a compatible minor version: an absent pattern minor matches any
// candidate minor (the one deliberate asymmetry with major, which is always
// required), while a present pattern minor must match exactly.
func segmentsEqual(pattern, candidate *GtsIDSegment) bool {
	if pattern.Vendor != candidate.Vendor ||
		pattern.Package != candidate.Package ||
		pattern.Namespace != candidate.Namespace ||
		pattern.Type != candidate.Type {
		return false
	}
	if pattern.VerMajor != candidate.VerMajor {
		return false
	}
	if pattern.VerMinor != nil {
		if candidate.VerMinor == nil || *pattern.VerMinor != *candidate.VerMinor {
			return false
		}
	}
	return pattern.IsType == candidate.IsType
}
