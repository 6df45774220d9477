package models

import "strings"

// ManagementGroup is one node of the tenant's management group tree.
type ManagementGroup struct {
	ID          string
	Name        string
	DisplayName string
	ParentID    string
}

// SubscriptionEntity is a subscription as it appears in the management group
// hierarchy, carrying the management group it is parented under.
type SubscriptionEntity struct {
	ID          string
	Name        string
	DisplayName string
	ParentID    string
}

// TenantHierarchy is the management group tree of a tenant, flattened into
// groups and subscription placements. The root group carries an empty ParentID.
type TenantHierarchy struct {
	TenantID      string
	Groups        []ManagementGroup
	Subscriptions []SubscriptionEntity
}

// RootGroupID returns the ARM ID of the tenant root management group, or ""
// when the hierarchy is empty.
func (h *TenantHierarchy) RootGroupID() string {
	if h == nil {
		return ""
	}
	for _, g := range h.Groups {
		if g.ParentID == "" {
			return g.ID
		}
	}
	return ""
}

// Depth returns the number of levels below the tenant root group.
// A tenant with only the root group has depth 0.
func (h *TenantHierarchy) Depth() int {
	if h == nil || len(h.Groups) == 0 {
		return 0
	}
	parents := make(map[string]string, len(h.Groups))
	for _, g := range h.Groups {
		parents[g.ID] = g.ParentID
	}
	max := 0
	for _, g := range h.Groups {
		depth := 0
		id := g.ID
		// Walk to the root; bail out on cycles or dangling parents.
		for i := 0; i < len(h.Groups); i++ {
			parent, ok := parents[id]
			if !ok || parent == "" {
				break
			}
			depth++
			id = parent
		}
		if depth > max {
			max = depth
		}
	}
	return max
}

// GroupByDisplayName returns the first group whose display name contains the
// given pattern, case-insensitively, or nil when no group matches.
func (h *TenantHierarchy) GroupByDisplayName(pattern string) *ManagementGroup {
	if h == nil || pattern == "" {
		return nil
	}
	needle := strings.ToLower(pattern)
	for i := range h.Groups {
		if strings.Contains(strings.ToLower(h.Groups[i].DisplayName), needle) {
			return &h.Groups[i]
		}
	}
	return nil
}
