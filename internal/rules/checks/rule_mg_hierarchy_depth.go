package checks

import (
	"context"
	"fmt"

	"wafaudit/internal/azure"
	"wafaudit/internal/data"
	"wafaudit/internal/data/models"
	"wafaudit/internal/rules"
)

const (
	minHierarchyDepth = 1
	maxHierarchyDepth = 4
)

// MGHierarchyDepthRule checks that the management group tree has at least one
// level below the tenant root and no more than four. A flat tenant has no
// place to target policy; a deep one is unmanageable.
type MGHierarchyDepthRule struct{}

func init() {
	rules.Register(&MGHierarchyDepthRule{})
}

func (r *MGHierarchyDepthRule) ID() string {
	return "mg-hierarchy-depth"
}

func (r *MGHierarchyDepthRule) Title() string {
	return "Management Group Depth In Range"
}

func (r *MGHierarchyDepthRule) Description() string {
	return fmt.Sprintf("Verifies that the management group hierarchy is between %d and %d levels deep "+
		"below the tenant root group.", minHierarchyDepth, maxHierarchyDepth)
}

func (r *MGHierarchyDepthRule) Category() string {
	return rules.CategoryGovernance
}

func (r *MGHierarchyDepthRule) SubCategory() string {
	return "Management Groups"
}

func (r *MGHierarchyDepthRule) Pillar() string {
	return rules.PillarOperational
}

func (r *MGHierarchyDepthRule) Severity() rules.Severity {
	return rules.SeverityLow
}

func (r *MGHierarchyDepthRule) Level() data.FetchScope {
	return data.ScopeTenant
}

func (r *MGHierarchyDepthRule) Dependencies(ctx context.Context, scope azure.Scope) ([]data.DependencyKey, error) {
	return []data.DependencyKey{
		data.DepTenantHierarchy,
	}, nil
}

func (r *MGHierarchyDepthRule) Evaluate(ctx context.Context, scope azure.Scope, dc data.DataContext) ([]rules.Result, error) {
	hierarchy, err := tenantHierarchyFromContext(dc)
	if err != nil {
		return nil, err
	}

	depth := hierarchy.Depth()
	expected := fmt.Sprintf("%d-%d", minHierarchyDepth, maxHierarchyDepth)
	root := hierarchy.RootGroupID()

	if depth >= minHierarchyDepth && depth <= maxHierarchyDepth {
		return []rules.Result{rules.WithRaw(rules.PassResult(r, scope, root, "managementGroups", expected, depth), hierarchy.Groups)}, nil
	}

	msg := fmt.Sprintf("Management group hierarchy is %d levels deep, expected between %d and %d", depth, minHierarchyDepth, maxHierarchyDepth)
	if depth == 0 {
		msg = "No management groups exist below the tenant root"
	}
	return []rules.Result{rules.WithRaw(rules.FailResult(r, scope, root, "managementGroups", expected, depth, msg), hierarchy.Groups)}, nil
}

func tenantHierarchyFromContext(dc data.DataContext) (*models.TenantHierarchy, error) {
	val, ok := dc.Get(data.DepTenantHierarchy)
	if !ok {
		return nil, fmt.Errorf("dependency %s missing", data.DepTenantHierarchy)
	}
	hierarchy, ok := val.(*models.TenantHierarchy)
	if !ok {
		return nil, fmt.Errorf("dependency %s has unexpected type %T", data.DepTenantHierarchy, val)
	}
	return hierarchy, nil
}
