package checks

import (
	"context"
	"fmt"
	"strings"

	"wafaudit/internal/azure"
	"wafaudit/internal/data"
	"wafaudit/internal/rules"
)

const defaultArchetypePatterns = "platform,connectivity,identity,management,landingzones,sandbox,decommissioned"

// MGArchetypeAlignedRule checks that the management group hierarchy carries
// the expected landing zone archetypes. Each configured pattern must match
// the display name of at least one group, case-insensitively; the first
// matching group wins.
//
// The pattern list is configurable per run:
//
//	wafaudit audit --set mg-archetype-aligned.patterns=corp,online,sandbox
type MGArchetypeAlignedRule struct {
	patterns []string
}

func init() {
	rules.Register(&MGArchetypeAlignedRule{})
}

func (r *MGArchetypeAlignedRule) ID() string {
	return "mg-archetype-aligned"
}

func (r *MGArchetypeAlignedRule) Title() string {
	return "Landing Zone Archetypes Present"
}

func (r *MGArchetypeAlignedRule) Description() string {
	return "Verifies that each expected landing zone archetype is represented by a management group " +
		"whose display name contains the archetype pattern (case-insensitive)."
}

func (r *MGArchetypeAlignedRule) Category() string {
	return rules.CategoryGovernance
}

func (r *MGArchetypeAlignedRule) SubCategory() string {
	return "Management Groups"
}

func (r *MGArchetypeAlignedRule) Pillar() string {
	return rules.PillarOperational
}

func (r *MGArchetypeAlignedRule) Severity() rules.Severity {
	return rules.SeverityLow
}

func (r *MGArchetypeAlignedRule) Level() data.FetchScope {
	return data.ScopeTenant
}

func (r *MGArchetypeAlignedRule) Options() []rules.Option {
	return []rules.Option{
		{
			Name:        "patterns",
			Description: "Comma-separated archetype name patterns matched against management group display names",
			Default:     defaultArchetypePatterns,
		},
	}
}

func (r *MGArchetypeAlignedRule) Configure(opts map[string]string) error {
	raw, ok := opts["patterns"]
	if !ok {
		return nil
	}
	var patterns []string
	for _, p := range strings.Split(raw, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		patterns = append(patterns, p)
	}
	if len(patterns) == 0 {
		return fmt.Errorf("patterns must name at least one archetype")
	}
	r.patterns = patterns
	return nil
}

func (r *MGArchetypeAlignedRule) effectivePatterns() []string {
	if len(r.patterns) > 0 {
		return r.patterns
	}
	return strings.Split(defaultArchetypePatterns, ",")
}

func (r *MGArchetypeAlignedRule) Dependencies(ctx context.Context, scope azure.Scope) ([]data.DependencyKey, error) {
	return []data.DependencyKey{
		data.DepTenantHierarchy,
	}, nil
}

func (r *MGArchetypeAlignedRule) Evaluate(ctx context.Context, scope azure.Scope, dc data.DataContext) ([]rules.Result, error) {
	hierarchy, err := tenantHierarchyFromContext(dc)
	if err != nil {
		return nil, err
	}

	var results []rules.Result
	for _, pattern := range r.effectivePatterns() {
		if g := hierarchy.GroupByDisplayName(pattern); g != nil {
			results = append(results, rules.WithRaw(rules.PassResult(r, scope, g.ID, g.DisplayName, pattern, g.DisplayName), g))
			continue
		}
		results = append(results, rules.WithRaw(rules.FailResult(r, scope, "", pattern, pattern, nil,
			fmt.Sprintf("No management group matches archetype %q", pattern)), hierarchy.Groups))
	}
	return results, nil
}
