package engine

import (
	"path"
	"strings"

	"wafaudit/internal/azure"
	"wafaudit/internal/config"
)

// FilterScopes applies include/exclude patterns and the scope cap to the
// discovered subscription scopes. Patterns use Go path.Match syntax and are
// tried against both the subscription display name and its ID.
func FilterScopes(scopes []azure.Scope, cfg *config.Config) []azure.Scope {
	if cfg == nil {
		panic("engine.FilterScopes: cfg must not be nil")
	}

	includePatterns := cfg.Targeting.Include
	excludePatterns := cfg.Targeting.Exclude

	var filtered []azure.Scope
	for _, s := range scopes {
		// If Include is set, must match at least one
		if len(includePatterns) > 0 && !matchesAnyPattern(includePatterns, s) {
			continue
		}

		// If Exclude is set, must not match any
		if len(excludePatterns) > 0 && matchesAnyPattern(excludePatterns, s) {
			continue
		}

		filtered = append(filtered, s)
	}

	// Max scopes
	if cfg.Targeting.MaxScopes > 0 && len(filtered) > cfg.Targeting.MaxScopes {
		filtered = filtered[:cfg.Targeting.MaxScopes]
	}

	return filtered
}

func matchesAnyPattern(patterns []string, s azure.Scope) bool {
	for _, p := range patterns {
		if matchPattern(p, s) {
			return true
		}
	}
	return false
}

func matchPattern(pattern string, s azure.Scope) bool {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return false
	}
	if s.Name != "" {
		if matched, _ := path.Match(pattern, s.Name); matched {
			return true
		}
	}
	matched, _ := path.Match(strings.ToLower(pattern), strings.ToLower(s.SubscriptionID))
	return matched
}
