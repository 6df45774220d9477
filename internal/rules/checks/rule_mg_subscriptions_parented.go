package checks

import (
	"context"
	"fmt"

	"wafaudit/internal/azure"
	"wafaudit/internal/data"
	"wafaudit/internal/rules"
)

// MGSubscriptionsParentedRule detects subscriptions that hang directly off
// the tenant root group, or off nothing at all. Those subscriptions inherit
// no policy assignments from the hierarchy.
type MGSubscriptionsParentedRule struct{}

func init() {
	rules.Register(&MGSubscriptionsParentedRule{})
}

func (r *MGSubscriptionsParentedRule) ID() string {
	return "mg-subscriptions-parented"
}

func (r *MGSubscriptionsParentedRule) Title() string {
	return "Subscriptions Under Management Groups"
}

func (r *MGSubscriptionsParentedRule) Description() string {
	return "Verifies that every subscription is parented under a management group other than the tenant root."
}

func (r *MGSubscriptionsParentedRule) Category() string {
	return rules.CategoryGovernance
}

func (r *MGSubscriptionsParentedRule) SubCategory() string {
	return "Management Groups"
}

func (r *MGSubscriptionsParentedRule) Pillar() string {
	return rules.PillarOperational
}

func (r *MGSubscriptionsParentedRule) Severity() rules.Severity {
	return rules.SeverityMedium
}

func (r *MGSubscriptionsParentedRule) Level() data.FetchScope {
	return data.ScopeTenant
}

func (r *MGSubscriptionsParentedRule) Dependencies(ctx context.Context, scope azure.Scope) ([]data.DependencyKey, error) {
	return []data.DependencyKey{
		data.DepTenantHierarchy,
	}, nil
}

func (r *MGSubscriptionsParentedRule) Evaluate(ctx context.Context, scope azure.Scope, dc data.DataContext) ([]rules.Result, error) {
	hierarchy, err := tenantHierarchyFromContext(dc)
	if err != nil {
		return nil, err
	}

	rootID := hierarchy.RootGroupID()

	var results []rules.Result
	for _, sub := range hierarchy.Subscriptions {
		name := sub.DisplayName
		if name == "" {
			name = sub.Name
		}
		switch {
		case sub.ParentID == "":
			results = append(results, rules.WithRaw(rules.FailResult(r, scope, sub.ID, name, "management group", "none",
				fmt.Sprintf("Subscription %s is not parented under any management group", name)), sub))
		case rootID != "" && sub.ParentID == rootID:
			results = append(results, rules.WithRaw(rules.FailResult(r, scope, sub.ID, name, "management group", "tenant root",
				fmt.Sprintf("Subscription %s hangs directly off the tenant root group", name)), sub))
		default:
			results = append(results, rules.WithRaw(rules.PassResult(r, scope, sub.ID, name, "management group", sub.ParentID), sub))
		}
	}
	return results, nil
}
