package engine

import "wafaudit/internal/data"

// ScopeExecutionResult represents the outcome of fetching all planned
// dependencies for a single scope (one subscription, or the tenant).
//
// It is emitted by the scheduler and consumed by the engine during streaming
// audit execution. Err marks a total scope failure (for example the scope
// timeout elapsed before any data arrived); DepErrs records individual
// dependency fetch failures for a scope that otherwise completed.
type ScopeExecutionResult struct {
	ScopeKey string
	Data     data.DataContext
	DepErrs  map[data.DependencyKey]error
	Err      error
}
