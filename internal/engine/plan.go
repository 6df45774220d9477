package engine

import (
	"context"
	"fmt"
	"sort"

	"wafaudit/internal/azure"
	"wafaudit/internal/data"
	"wafaudit/internal/rules"
)

// AuditPlan holds the per-scope work for one category pass: which rules run
// against which scope, and the union of dependencies those rules declared.
type AuditPlan struct {
	ScopePlans map[string]*ScopePlan
}

type ScopePlan struct {
	Scope        azure.Scope
	Dependencies map[data.DependencyKey]data.DependencyRequest
	Rules        []rules.Rule
}

func NewAuditPlan() *AuditPlan {
	return &AuditPlan{
		ScopePlans: make(map[string]*ScopePlan),
	}
}

// AddScope plans the given scope against the selected rules. Rules whose
// Level does not match the scope kind are left out; a scope that no rule
// applies to is not added at all.
func (p *AuditPlan) AddScope(ctx context.Context, scope azure.Scope, selectedRules []rules.Rule) error {
	if ctx == nil {
		return fmt.Errorf("context is nil")
	}
	if p == nil {
		return fmt.Errorf("audit plan is nil")
	}
	if p.ScopePlans == nil {
		return fmt.Errorf("audit plan is not initialized (ScopePlans is nil); use NewAuditPlan")
	}
	if scope.Key() == "" {
		return fmt.Errorf("scope has no tenant or subscription ID")
	}

	level := data.ScopeSubscription
	if scope.IsTenant() {
		level = data.ScopeTenant
	}

	sp := &ScopePlan{
		Scope:        scope,
		Dependencies: make(map[data.DependencyKey]data.DependencyRequest),
	}

	for _, r := range selectedRules {
		if r.Level() != level {
			continue
		}
		deps, err := r.Dependencies(ctx, scope)
		if err != nil {
			return fmt.Errorf("failed to get dependencies for rule %s: %w", r.ID(), err)
		}

		sp.Rules = append(sp.Rules, r)
		for _, d := range deps {
			// Simple deduplication by key.
			if _, exists := sp.Dependencies[d]; !exists {
				sp.Dependencies[d] = data.DependencyRequest{Key: d}
			}
		}
	}

	if len(sp.Rules) == 0 {
		return nil
	}

	p.ScopePlans[scope.Key()] = sp
	return nil
}

// SortedScopeKeys returns the plan's scope keys in a stable order.
func (p *AuditPlan) SortedScopeKeys() []string {
	keys := make([]string, 0, len(p.ScopePlans))
	for k := range p.ScopePlans {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SortedDependencies returns the list of dependency keys sorted by priority (P0 first).
func (sp *ScopePlan) SortedDependencies() []data.DependencyKey {
	keys := make([]data.DependencyKey, 0, len(sp.Dependencies))
	for k := range sp.Dependencies {
		keys = append(keys, k)
	}

	sort.Slice(keys, func(i, j int) bool {
		p1 := data.Priority(keys[i])
		p2 := data.Priority(keys[j])
		if p1 != p2 {
			return p1 < p2
		}
		return keys[i] < keys[j] // Stable sort for same priority
	})

	return keys
}
