package checks

import (
	"context"
	"fmt"

	"wafaudit/internal/azure"
	"wafaudit/internal/data"
	"wafaudit/internal/data/models"
	"wafaudit/internal/rules"
)

// VMSSAutomaticRepairsRule detects scale sets running without the automatic
// instance repairs policy.
type VMSSAutomaticRepairsRule struct{}

func init() {
	rules.Register(&VMSSAutomaticRepairsRule{})
}

func (r *VMSSAutomaticRepairsRule) ID() string {
	return "vmss-automatic-repairs"
}

func (r *VMSSAutomaticRepairsRule) Title() string {
	return "Scale Set Automatic Repairs Enabled"
}

func (r *VMSSAutomaticRepairsRule) Description() string {
	return "Verifies that each virtual machine scale set has the automatic instance repairs policy enabled."
}

func (r *VMSSAutomaticRepairsRule) Category() string {
	return rules.CategoryCompute
}

func (r *VMSSAutomaticRepairsRule) SubCategory() string {
	return "Scale Sets"
}

func (r *VMSSAutomaticRepairsRule) Pillar() string {
	return rules.PillarReliability
}

func (r *VMSSAutomaticRepairsRule) Severity() rules.Severity {
	return rules.SeverityMedium
}

func (r *VMSSAutomaticRepairsRule) Level() data.FetchScope {
	return data.ScopeSubscription
}

func (r *VMSSAutomaticRepairsRule) Dependencies(ctx context.Context, scope azure.Scope) ([]data.DependencyKey, error) {
	return []data.DependencyKey{
		data.DepScaleSets,
	}, nil
}

func (r *VMSSAutomaticRepairsRule) Evaluate(ctx context.Context, scope azure.Scope, dc data.DataContext) ([]rules.Result, error) {
	sets, err := scaleSetsFromContext(dc)
	if err != nil {
		return nil, err
	}

	var results []rules.Result
	for _, ss := range sets {
		if ss.AutomaticRepairsEnabled {
			results = append(results, rules.WithRaw(rules.PassResult(r, scope, ss.ID, ss.Name, true, true), ss))
			continue
		}
		results = append(results, rules.WithRaw(rules.FailResult(r, scope, ss.ID, ss.Name, true, false,
			"Scale set does not have automatic instance repairs enabled"), ss))
	}
	return results, nil
}

func scaleSetsFromContext(dc data.DataContext) ([]models.ScaleSet, error) {
	val, ok := dc.Get(data.DepScaleSets)
	if !ok {
		return nil, fmt.Errorf("dependency %s missing", data.DepScaleSets)
	}
	sets, ok := val.([]models.ScaleSet)
	if !ok {
		return nil, fmt.Errorf("dependency %s has unexpected type %T", data.DepScaleSets, val)
	}
	return sets, nil
}
