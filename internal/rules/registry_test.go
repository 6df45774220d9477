package rules

import (
	"context"
	"strings"
	"testing"

	"wafaudit/internal/azure"
	"wafaudit/internal/data"
)

// fakeRule is a minimal Rule for registry tests. IDs must be unique because
// the registry is process-global.
type fakeRule struct {
	id       string
	category string
}

func (f fakeRule) ID() string             { return f.id }
func (f fakeRule) Title() string          { return "fake " + f.id }
func (f fakeRule) Description() string    { return "" }
func (f fakeRule) Category() string       { return f.category }
func (f fakeRule) SubCategory() string    { return "" }
func (f fakeRule) Pillar() string         { return PillarReliability }
func (f fakeRule) Severity() Severity     { return SeverityLow }
func (f fakeRule) Level() data.FetchScope { return data.ScopeSubscription }

func (f fakeRule) Dependencies(ctx context.Context, scope azure.Scope) ([]data.DependencyKey, error) {
	return nil, nil
}

func (f fakeRule) Evaluate(ctx context.Context, scope azure.Scope, dc data.DataContext) ([]Result, error) {
	return nil, nil
}

func TestRegistryResolve(t *testing.T) {
	Register(fakeRule{id: "test-registry-alpha", category: "TestCategory"})
	Register(fakeRule{id: "test-registry-beta", category: "TestCategory"})

	got, err := Resolve("test-registry-beta, test-registry-alpha")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Resolve returned %d rules, want 2", len(got))
	}

	if _, err := Resolve("no-such-rule"); err == nil {
		t.Error("Resolve with unknown ID succeeded, want error")
	} else if !strings.Contains(err.Error(), "rule not found: no-such-rule") {
		t.Errorf("unexpected error: %v", err)
	}

	all, err := Resolve("")
	if err != nil {
		t.Fatalf("Resolve(\"\"): %v", err)
	}
	if len(all) < 2 {
		t.Errorf("Resolve(\"\") returned %d rules, want at least 2", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i-1].ID() >= all[i].ID() {
			t.Fatalf("List not sorted: %s before %s", all[i-1].ID(), all[i].ID())
		}
	}
}

func TestRegistryListCategory(t *testing.T) {
	Register(fakeRule{id: "test-registry-gamma", category: "TestListCategory"})

	got := ListCategory("testlistcategory")
	if len(got) != 1 || got[0].ID() != "test-registry-gamma" {
		t.Errorf("ListCategory(case-insensitive) = %v", got)
	}
	if got := ListCategory("no-such-category"); len(got) != 0 {
		t.Errorf("ListCategory(unknown) = %v, want empty", got)
	}
}

func TestRegisterDuplicatePanics(t *testing.T) {
	Register(fakeRule{id: "test-registry-dup", category: "TestCategory"})
	defer func() {
		if recover() == nil {
			t.Error("duplicate Register did not panic")
		}
	}()
	Register(fakeRule{id: "test-registry-dup", category: "TestCategory"})
}
