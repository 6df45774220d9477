package checks

import (
	"context"
	"fmt"

	"wafaudit/internal/azure"
	"wafaudit/internal/data"
	"wafaudit/internal/data/models"
	"wafaudit/internal/rules"
)

// LBStandardSKURule detects load balancers on the Basic SKU, which carries no
// availability SLA and no zone support.
type LBStandardSKURule struct{}

func init() {
	rules.Register(&LBStandardSKURule{})
}

func (r *LBStandardSKURule) ID() string {
	return "lb-standard-sku"
}

func (r *LBStandardSKURule) Title() string {
	return "Load Balancer Uses Standard SKU"
}

func (r *LBStandardSKURule) Description() string {
	return "Verifies that each load balancer uses the Standard SKU."
}

func (r *LBStandardSKURule) Category() string {
	return rules.CategoryNetwork
}

func (r *LBStandardSKURule) SubCategory() string {
	return "Load Balancers"
}

func (r *LBStandardSKURule) Pillar() string {
	return rules.PillarReliability
}

func (r *LBStandardSKURule) Severity() rules.Severity {
	return rules.SeverityMedium
}

func (r *LBStandardSKURule) Level() data.FetchScope {
	return data.ScopeSubscription
}

func (r *LBStandardSKURule) Dependencies(ctx context.Context, scope azure.Scope) ([]data.DependencyKey, error) {
	return []data.DependencyKey{
		data.DepLoadBalancers,
	}, nil
}

func (r *LBStandardSKURule) Evaluate(ctx context.Context, scope azure.Scope, dc data.DataContext) ([]rules.Result, error) {
	lbs, err := loadBalancersFromContext(dc)
	if err != nil {
		return nil, err
	}

	var results []rules.Result
	for _, lb := range lbs {
		if lb.SKU == "Standard" {
			results = append(results, rules.WithRaw(rules.PassResult(r, scope, lb.ID, lb.Name, "Standard", lb.SKU), lb))
			continue
		}
		results = append(results, rules.WithRaw(rules.FailResult(r, scope, lb.ID, lb.Name, "Standard", lb.SKU,
			fmt.Sprintf("Load balancer uses %q SKU", lb.SKU)), lb))
	}
	return results, nil
}

func loadBalancersFromContext(dc data.DataContext) ([]models.LoadBalancer, error) {
	val, ok := dc.Get(data.DepLoadBalancers)
	if !ok {
		return nil, fmt.Errorf("dependency %s missing", data.DepLoadBalancers)
	}
	lbs, ok := val.([]models.LoadBalancer)
	if !ok {
		return nil, fmt.Errorf("dependency %s has unexpected type %T", data.DepLoadBalancers, val)
	}
	return lbs, nil
}
