// Package services provides the read-only query facades over the cached
// design-system dataset: tokens, components and guidelines. Each facade
// routes every public method through its own named circuit breaker; input
// validation happens before the breaker so bad input never counts against
// breaker health.
package services

import (
	"fmt"
	"strings"

	"designkit/internal/data"
	"designkit/internal/errdefs"
)

// Breaker names, one per facade type.
const (
	TokenBreakerName     = "token-service"
	ComponentBreakerName = "component-service"
	GuidelineBreakerName = "guideline-service"
)

// requireIdentifier validates a required string parameter before any breaker
// interaction. Empty or whitespace-only values fail with ValidationFailed.
func requireIdentifier(param, value string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", errdefs.Newf(errdefs.ValidationFailed, "parameter %q must be a non-empty string", param).
			WithContext("parameter", param).
			WithSuggestions(fmt.Sprintf("Provide a non-empty value for %q", param))
	}
	return trimmed, nil
}

// snapshotOrError fetches the current snapshot inside a guarded operation.
func snapshotOrError(m *data.Manager) (*data.Snapshot, error) {
	snapshot := m.Cached()
	if snapshot == nil {
		return nil, errdefs.New(errdefs.InvalidData, "no design system data loaded").
			WithSuggestions(
				"Initialize the data manager before querying",
				"Check the data directory configuration",
			)
	}
	return snapshot, nil
}

// containsFold reports whether s contains substr, case-insensitively.
func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// anyContainsFold reports whether any list entry contains substr,
// case-insensitively.
func anyContainsFold(list []string, substr string) bool {
	for _, s := range list {
		if containsFold(s, substr) {
			return true
		}
	}
	return false
}

// anyEqualFold reports case-insensitive membership of name in list.
func anyEqualFold(list []string, name string) bool {
	for _, s := range list {
		if strings.EqualFold(s, name) {
			return true
		}
	}
	return false
}

// availableList formats the known identifiers for a not-found suggestion.
func availableList(noun string, keys []string) string {
	return fmt.Sprintf("Available %s: %s", noun, strings.Join(keys, ", "))
}
