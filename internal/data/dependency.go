package data

// DependencyKey uniquely identifies an Azure data dependency.
type DependencyKey string

// FetchScope declares the evaluation boundary a dependency is fetched at.
type FetchScope string

const (
	// ScopeSubscription marks data fetched once per subscription.
	ScopeSubscription FetchScope = "subscription"

	// ScopeTenant marks data fetched once per tenant, regardless of how many
	// subscriptions are audited.
	ScopeTenant FetchScope = "tenant"
)

// DependencyRequest represents a request for a specific dependency with optional parameters.
type DependencyRequest struct {
	Key    DependencyKey
	Params map[string]string
}
