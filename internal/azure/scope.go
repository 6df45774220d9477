package azure

import "fmt"

// Scope is the evaluation boundary for one dispatcher pass: either a single
// subscription or the tenant as a whole. It is always passed explicitly;
// there is no ambient "current subscription" anywhere in the codebase.
type Scope struct {
	TenantID       string
	SubscriptionID string // empty for the tenant scope
	Name           string // display name, informational only
}

func TenantScope(tenantID string) Scope {
	return Scope{TenantID: tenantID}
}

func SubscriptionScope(tenantID, subscriptionID, name string) Scope {
	return Scope{TenantID: tenantID, SubscriptionID: subscriptionID, Name: name}
}

func (s Scope) IsTenant() bool {
	return s.SubscriptionID == ""
}

// Key returns a deterministic identifier used for plan maps and fetch
// deduplication keys.
func (s Scope) Key() string {
	if s.IsTenant() {
		return "tenant:" + s.TenantID
	}
	return s.SubscriptionID
}

func (s Scope) String() string {
	if s.IsTenant() {
		return fmt.Sprintf("tenant %s", s.TenantID)
	}
	if s.Name != "" {
		return fmt.Sprintf("%s (%s)", s.Name, s.SubscriptionID)
	}
	return s.SubscriptionID
}
