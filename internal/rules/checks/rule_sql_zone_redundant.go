package checks

import (
	"context"

	"wafaudit/internal/azure"
	"wafaudit/internal/data"
	"wafaudit/internal/rules"
)

// SQLZoneRedundantRule detects SQL databases without zone redundant storage
// and compute.
type SQLZoneRedundantRule struct{}

func init() {
	rules.Register(&SQLZoneRedundantRule{})
}

func (r *SQLZoneRedundantRule) ID() string {
	return "sql-zone-redundant"
}

func (r *SQLZoneRedundantRule) Title() string {
	return "SQL Database Zone Redundant"
}

func (r *SQLZoneRedundantRule) Description() string {
	return "Verifies that each SQL database is configured as zone redundant."
}

func (r *SQLZoneRedundantRule) Category() string {
	return rules.CategoryDatabase
}

func (r *SQLZoneRedundantRule) SubCategory() string {
	return "Azure SQL"
}

func (r *SQLZoneRedundantRule) Pillar() string {
	return rules.PillarReliability
}

func (r *SQLZoneRedundantRule) Severity() rules.Severity {
	return rules.SeverityMedium
}

func (r *SQLZoneRedundantRule) Level() data.FetchScope {
	return data.ScopeSubscription
}

func (r *SQLZoneRedundantRule) Dependencies(ctx context.Context, scope azure.Scope) ([]data.DependencyKey, error) {
	return []data.DependencyKey{
		data.DepSQLDatabases,
	}, nil
}

func (r *SQLZoneRedundantRule) Evaluate(ctx context.Context, scope azure.Scope, dc data.DataContext) ([]rules.Result, error) {
	dbs, err := sqlDatabasesFromContext(dc)
	if err != nil {
		return nil, err
	}

	var results []rules.Result
	for _, db := range dbs {
		if db.ZoneRedundant {
			results = append(results, rules.WithRaw(rules.PassResult(r, scope, db.ID, db.Name, true, true), db))
			continue
		}
		results = append(results, rules.WithRaw(rules.FailResult(r, scope, db.ID, db.Name, true, false,
			"Database is not zone redundant"), db))
	}
	return results, nil
}
