/*
Copyright © 2025 Global Type System
Released under Apache License 2.0
*/

package gts

import (
	"errors"
	"fmt"
	"strings"
)

// QueryResult is the outcome of running a query expression against the
// registry: every matching entity's content, insertion-ordered, capped at
// Limit.
type QueryResult struct {
	Error   string           `json:"error"`
	Count   int              `json:"count"`
	Limit   int              `json:"limit"`
	Results []map[string]any `json:"results"`
}

const defaultQueryLimit = 100

// gtsQuery is a parsed query expression: an id pattern (exact or
// wildcard-terminated) plus an optional bracketed set of "field=value"
// filters applied to instance content after the id matches.
//
//	gts.x.core.events.event.v1~                          exact
//	gts.x.core.events.*                                   wildcard
//	gts.x.core.events.event.v1~x.app._.order.v1[status=active]  exact + filter
//	gts.x.core.*[status=active, category=*]               wildcard + filters
type gtsQuery struct {
	pattern    string
	isWildcard bool
	filters    map[string]string
}

// Query evaluates expr against every registered entity and returns up to
// limit matches in insertion order. A non-positive limit falls back to
// defaultQueryLimit.
func (s *Registry) Query(expr string, limit int) *QueryResult {
	if limit <= 0 {
		limit = defaultQueryLimit
	}

	result := &QueryResult{Limit: limit, Results: make([]map[string]any, 0)}

	q, err := parseGtsQuery(expr)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.order {
		if len(result.Results) >= limit {
			break
		}
		entity := s.byID[id]
		if len(entity.Content) == 0 || entity.GtsID == nil {
			continue
		}
		if !q.matchesID(entity.GtsID) {
			continue
		}
		if !q.matchesContent(entity.Content) {
			continue
		}
		result.Results = append(result.Results, entity.Content)
	}

	result.Count = len(result.Results)
	return result
}

// parseGtsQuery splits a bracketed filter suffix off the id pattern,
// validates the pattern shape, and parses any filter clauses.
func parseGtsQuery(expr string) (*gtsQuery, error) {
	head, filterBody, hasFilters := cutQueryFilters(expr)

	q := &gtsQuery{
		pattern:    head,
		isWildcard: strings.Contains(head, "*"),
		filters:    map[string]string{},
	}

	if hasFilters {
		if strings.HasSuffix(head, "~") || strings.HasSuffix(head, "~*") {
			return nil, errors.New("invalid query: filters cannot be used with type patterns (ending with ~ or ~*)")
		}
		q.filters = parseFilterClauses(filterBody)
	}

	if err := q.validatePattern(); err != nil {
		return nil, err
	}
	return q, nil
}

// cutQueryFilters splits expr at its first '[', returning the id pattern
// and the filter body with its closing ']' stripped. hasFilters is false
// when expr carries no bracket at all.
func cutQueryFilters(expr string) (pattern, filterBody string, hasFilters bool) {
	before, after, found := strings.Cut(expr, "[")
	pattern = strings.TrimSpace(before)
	if !found {
		return pattern, "", false
	}
	after = strings.TrimSpace(after)
	filterBody = strings.TrimSuffix(after, "]")
	return pattern, filterBody, true
}

// parseFilterClauses parses a comma-separated "key=value" list, trimming
// whitespace and any surrounding quotes from each value. Clauses missing
// an '=' are silently skipped.
func parseFilterClauses(body string) map[string]string {
	filters := make(map[string]string)
	if body == "" {
		return filters
	}
	for _, clause := range strings.Split(body, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(clause), "=")
		if !ok {
			continue
		}
		filters[strings.TrimSpace(key)] = strings.Trim(strings.TrimSpace(value), `"'`)
	}
	return filters
}

// validatePattern rejects a pattern that is neither a well-formed
// wildcard nor a complete, version-bearing identifier. Filters placed
// after a type pattern are rejected earlier, by parseGtsQuery.
func (q *gtsQuery) validatePattern() error {
	if !q.isWildcard {
		gtsID, err := NewGtsID(q.pattern)
		if err != nil {
			return fmt.Errorf("invalid query: %w", err)
		}
		if len(gtsID.Segments) == 0 {
			return errors.New("invalid query: GTS ID has no valid segments")
		}
		last := gtsID.Segments[len(gtsID.Segments)-1]
		if !last.IsType && last.VerMajor == 0 {
			return errors.New("invalid query: incomplete GTS ID pattern")
		}
		return nil
	}

	if !strings.HasSuffix(q.pattern, ".*") && !strings.HasSuffix(q.pattern, "~*") {
		return errors.New("invalid query: wildcard patterns must end with .* or ~*")
	}
	if _, err := parseWildcardPattern(q.pattern); err != nil {
		return fmt.Errorf("invalid query: %w", err)
	}
	return nil
}

// matchesID reports whether an entity's identifier satisfies the query's
// id pattern, reusing the same wildcard semantics as MatchIDPattern.
func (q *gtsQuery) matchesID(entityID *GtsID) bool {
	if entityID == nil {
		return false
	}
	return MatchIDPattern(entityID.ID, q.pattern).Match
}

// matchesContent reports whether entity content satisfies every filter
// clause. A filter value of "*" requires the field to be present and
// non-empty; any other value requires exact string equality against
// fmt.Sprintf("%v", ...) of the field.
func (q *gtsQuery) matchesContent(content map[string]any) bool {
	for field, want := range q.filters {
		got := fmt.Sprintf("%v", content[field])
		if want == "*" {
			if got == "" || got == "<nil>" {
				return false
			}
			continue
		}
		if got != want {
			return false
		}
	}
	return true
}
