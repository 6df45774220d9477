package rules

import (
	"context"

	"wafaudit/internal/azure"
	"wafaudit/internal/data"
)

// Well-Architected pillars. Metadata only; never evaluated.
const (
	PillarReliability = "Reliability"
	PillarSecurity    = "Security"
	PillarOperational = "Operational Excellence"
)

// Audit categories. Each rule belongs to exactly one; categories run
// strictly one after another.
const (
	CategoryCompute    = "Compute"
	CategoryNetwork    = "Network"
	CategoryDatabase   = "Database"
	CategoryIdentity   = "Identity"
	CategoryGovernance = "Governance"
)

type Rule interface {
	ID() string
	Title() string
	Description() string
	Category() string
	SubCategory() string
	Pillar() string
	Severity() Severity

	// Level declares whether the rule evaluates per subscription or once per
	// tenant. The dispatcher routes the rule to the matching scope enumeration.
	Level() data.FetchScope

	// Dependencies declares the fetched data the rule needs for this scope.
	Dependencies(ctx context.Context, scope azure.Scope) ([]data.DependencyKey, error)

	// Evaluate runs rule logic using only DataContext, producing one Result
	// per evaluated resource. Rules MUST NOT call Azure APIs.
	// Zero applicable resources yields an empty slice, not an error.
	Evaluate(ctx context.Context, scope azure.Scope, dc data.DataContext) ([]Result, error)
}

type Option struct {
	Name        string
	Description string
	Default     string
}

type ConfigurableRule interface {
	Rule
	Options() []Option
	Configure(opts map[string]string) error
}
