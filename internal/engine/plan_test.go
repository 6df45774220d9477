package engine

import (
	"context"
	"testing"

	"wafaudit/internal/azure"
	"wafaudit/internal/data"
	"wafaudit/internal/rules"
)

// planRule is a minimal Rule for plan and scheduler tests.
type planRule struct {
	id    string
	level data.FetchScope
	deps  []data.DependencyKey
}

func (p planRule) ID() string               { return p.id }
func (p planRule) Title() string            { return p.id }
func (p planRule) Description() string      { return "" }
func (p planRule) Category() string         { return "Compute" }
func (p planRule) SubCategory() string      { return "" }
func (p planRule) Pillar() string           { return rules.PillarReliability }
func (p planRule) Severity() rules.Severity { return rules.SeverityLow }
func (p planRule) Level() data.FetchScope   { return p.level }

func (p planRule) Dependencies(ctx context.Context, scope azure.Scope) ([]data.DependencyKey, error) {
	return p.deps, nil
}

func (p planRule) Evaluate(ctx context.Context, scope azure.Scope, dc data.DataContext) ([]rules.Result, error) {
	return nil, nil
}

func TestAddScopeFiltersByLevel(t *testing.T) {
	selected := []rules.Rule{
		planRule{id: "sub-rule", level: data.ScopeSubscription, deps: []data.DependencyKey{data.DepVirtualMachines}},
		planRule{id: "tenant-rule", level: data.ScopeTenant, deps: []data.DependencyKey{data.DepTenantHierarchy}},
	}

	plan := NewAuditPlan()
	sub := azure.SubscriptionScope("t1", "s1", "Prod")
	tenant := azure.TenantScope("t1")
	if err := plan.AddScope(context.Background(), sub, selected); err != nil {
		t.Fatalf("AddScope(sub): %v", err)
	}
	if err := plan.AddScope(context.Background(), tenant, selected); err != nil {
		t.Fatalf("AddScope(tenant): %v", err)
	}

	sp := plan.ScopePlans["s1"]
	if sp == nil {
		t.Fatal("subscription scope not planned")
	}
	if len(sp.Rules) != 1 || sp.Rules[0].ID() != "sub-rule" {
		t.Errorf("subscription rules = %v", sp.Rules)
	}
	if _, ok := sp.Dependencies[data.DepVirtualMachines]; !ok {
		t.Error("subscription plan missing VM dependency")
	}
	if _, ok := sp.Dependencies[data.DepTenantHierarchy]; ok {
		t.Error("tenant dependency leaked into subscription plan")
	}

	tp := plan.ScopePlans["tenant:t1"]
	if tp == nil {
		t.Fatal("tenant scope not planned")
	}
	if len(tp.Rules) != 1 || tp.Rules[0].ID() != "tenant-rule" {
		t.Errorf("tenant rules = %v", tp.Rules)
	}
}

func TestAddScopeSkipsScopeWithNoApplicableRules(t *testing.T) {
	selected := []rules.Rule{planRule{id: "tenant-only", level: data.ScopeTenant}}
	plan := NewAuditPlan()
	if err := plan.AddScope(context.Background(), azure.SubscriptionScope("t1", "s1", ""), selected); err != nil {
		t.Fatalf("AddScope: %v", err)
	}
	if len(plan.ScopePlans) != 0 {
		t.Errorf("ScopePlans = %v, want empty", plan.ScopePlans)
	}
}

func TestAddScopeDeduplicatesDependencies(t *testing.T) {
	selected := []rules.Rule{
		planRule{id: "a", level: data.ScopeSubscription, deps: []data.DependencyKey{data.DepVirtualMachines}},
		planRule{id: "b", level: data.ScopeSubscription, deps: []data.DependencyKey{data.DepVirtualMachines, data.DepReplicationProtection}},
	}
	plan := NewAuditPlan()
	if err := plan.AddScope(context.Background(), azure.SubscriptionScope("t1", "s1", ""), selected); err != nil {
		t.Fatalf("AddScope: %v", err)
	}
	sp := plan.ScopePlans["s1"]
	if len(sp.Dependencies) != 2 {
		t.Errorf("Dependencies = %v, want 2 distinct keys", sp.Dependencies)
	}
}

func TestSortedDependenciesPriorityOrder(t *testing.T) {
	sp := &ScopePlan{
		Dependencies: map[data.DependencyKey]data.DependencyRequest{
			data.DepReplicationProtection: {Key: data.DepReplicationProtection},
			data.DepVirtualMachines:       {Key: data.DepVirtualMachines},
			data.DepScaleSets:             {Key: data.DepScaleSets},
		},
	}
	keys := sp.SortedDependencies()
	if len(keys) != 3 {
		t.Fatalf("got %d keys", len(keys))
	}
	if keys[0] != data.DepVirtualMachines {
		t.Errorf("keys[0] = %s, want %s", keys[0], data.DepVirtualMachines)
	}
	for i := 1; i < len(keys); i++ {
		pi, pj := data.Priority(keys[i-1]), data.Priority(keys[i])
		if pi > pj {
			t.Errorf("priority order violated: %s (%d) before %s (%d)", keys[i-1], pi, keys[i], pj)
		}
	}
}

func TestSortedScopeKeys(t *testing.T) {
	plan := NewAuditPlan()
	selected := []rules.Rule{planRule{id: "r", level: data.ScopeSubscription}}
	for _, id := range []string{"s3", "s1", "s2"} {
		if err := plan.AddScope(context.Background(), azure.SubscriptionScope("t1", id, ""), selected); err != nil {
			t.Fatalf("AddScope(%s): %v", id, err)
		}
	}
	keys := plan.SortedScopeKeys()
	want := []string{"s1", "s2", "s3"}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("keys = %v, want %v", keys, want)
		}
	}
}
