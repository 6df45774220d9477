package checks

import (
	"context"
	"fmt"

	"wafaudit/internal/azure"
	"wafaudit/internal/data"
	"wafaudit/internal/rules"
)

const minBackendIPConfigurations = 2

// LBBackendRedundancyRule detects load balancers whose backend pools hold
// fewer than two IP configurations. A one-member backend is a load balancer
// in name only.
type LBBackendRedundancyRule struct{}

func init() {
	rules.Register(&LBBackendRedundancyRule{})
}

func (r *LBBackendRedundancyRule) ID() string {
	return "lb-backend-redundancy"
}

func (r *LBBackendRedundancyRule) Title() string {
	return "Load Balancer Backend Redundancy"
}

func (r *LBBackendRedundancyRule) Description() string {
	return fmt.Sprintf("Verifies that each load balancer's backend pools hold at least %d IP configurations "+
		"in total. Exactly %d passes.", minBackendIPConfigurations, minBackendIPConfigurations)
}

func (r *LBBackendRedundancyRule) Category() string {
	return rules.CategoryNetwork
}

func (r *LBBackendRedundancyRule) SubCategory() string {
	return "Load Balancers"
}

func (r *LBBackendRedundancyRule) Pillar() string {
	return rules.PillarReliability
}

func (r *LBBackendRedundancyRule) Severity() rules.Severity {
	return rules.SeverityHigh
}

func (r *LBBackendRedundancyRule) Level() data.FetchScope {
	return data.ScopeSubscription
}

func (r *LBBackendRedundancyRule) Dependencies(ctx context.Context, scope azure.Scope) ([]data.DependencyKey, error) {
	return []data.DependencyKey{
		data.DepLoadBalancers,
	}, nil
}

func (r *LBBackendRedundancyRule) Evaluate(ctx context.Context, scope azure.Scope, dc data.DataContext) ([]rules.Result, error) {
	lbs, err := loadBalancersFromContext(dc)
	if err != nil {
		return nil, err
	}

	var results []rules.Result
	for _, lb := range lbs {
		n := lb.BackendIPConfigurations
		if n >= minBackendIPConfigurations {
			results = append(results, rules.WithRaw(rules.PassResult(r, scope, lb.ID, lb.Name, minBackendIPConfigurations, n), lb))
			continue
		}
		msg := fmt.Sprintf("Backend pools hold %d IP configurations, need at least %d", n, minBackendIPConfigurations)
		if lb.BackendPools == 0 {
			msg = "Load balancer has no backend pools"
		}
		results = append(results, rules.WithRaw(rules.FailResult(r, scope, lb.ID, lb.Name, minBackendIPConfigurations, n, msg), lb))
	}
	return results, nil
}
