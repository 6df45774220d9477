package checks

import (
	"context"
	"fmt"

	"wafaudit/internal/azure"
	"wafaudit/internal/data"
	"wafaudit/internal/rules"
)

const minZoneSpread = 2

// VMSSZoneSpreadRule detects scale sets that do not span at least two
// availability zones. A scale set pinned to one zone fails with that zone.
type VMSSZoneSpreadRule struct{}

func init() {
	rules.Register(&VMSSZoneSpreadRule{})
}

func (r *VMSSZoneSpreadRule) ID() string {
	return "vmss-zone-spread"
}

func (r *VMSSZoneSpreadRule) Title() string {
	return "Scale Set Spans Multiple Zones"
}

func (r *VMSSZoneSpreadRule) Description() string {
	return fmt.Sprintf("Verifies that each virtual machine scale set spans at least %d availability zones. "+
		"Exactly %d zones passes.", minZoneSpread, minZoneSpread)
}

func (r *VMSSZoneSpreadRule) Category() string {
	return rules.CategoryCompute
}

func (r *VMSSZoneSpreadRule) SubCategory() string {
	return "Scale Sets"
}

func (r *VMSSZoneSpreadRule) Pillar() string {
	return rules.PillarReliability
}

func (r *VMSSZoneSpreadRule) Severity() rules.Severity {
	return rules.SeverityHigh
}

func (r *VMSSZoneSpreadRule) Level() data.FetchScope {
	return data.ScopeSubscription
}

func (r *VMSSZoneSpreadRule) Dependencies(ctx context.Context, scope azure.Scope) ([]data.DependencyKey, error) {
	return []data.DependencyKey{
		data.DepScaleSets,
	}, nil
}

func (r *VMSSZoneSpreadRule) Evaluate(ctx context.Context, scope azure.Scope, dc data.DataContext) ([]rules.Result, error) {
	sets, err := scaleSetsFromContext(dc)
	if err != nil {
		return nil, err
	}

	var results []rules.Result
	for _, ss := range sets {
		zones := len(ss.Zones)
		if zones >= minZoneSpread {
			results = append(results, rules.WithRaw(rules.PassResult(r, scope, ss.ID, ss.Name, minZoneSpread, zones), ss))
			continue
		}
		results = append(results, rules.WithRaw(rules.FailResult(r, scope, ss.ID, ss.Name, minZoneSpread, zones,
			fmt.Sprintf("Scale set spans %d zones, need at least %d", zones, minZoneSpread)), ss))
	}
	return results, nil
}
