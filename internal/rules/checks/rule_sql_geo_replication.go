package checks

import (
	"context"
	"fmt"

	"wafaudit/internal/azure"
	"wafaudit/internal/data"
	"wafaudit/internal/data/models"
	"wafaudit/internal/rules"
)

// SQLGeoReplicationRule detects SQL databases with no geo-replication link.
// A database that is itself a geo-secondary counts as replicated.
type SQLGeoReplicationRule struct{}

func init() {
	rules.Register(&SQLGeoReplicationRule{})
}

func (r *SQLGeoReplicationRule) ID() string {
	return "sql-geo-replication"
}

func (r *SQLGeoReplicationRule) Title() string {
	return "SQL Database Geo-Replicated"
}

func (r *SQLGeoReplicationRule) Description() string {
	return "Verifies that each SQL database has at least one geo-replication link, " +
		"or is itself a geo-secondary replica."
}

func (r *SQLGeoReplicationRule) Category() string {
	return rules.CategoryDatabase
}

func (r *SQLGeoReplicationRule) SubCategory() string {
	return "Azure SQL"
}

func (r *SQLGeoReplicationRule) Pillar() string {
	return rules.PillarReliability
}

func (r *SQLGeoReplicationRule) Severity() rules.Severity {
	return rules.SeverityCritical
}

func (r *SQLGeoReplicationRule) Level() data.FetchScope {
	return data.ScopeSubscription
}

func (r *SQLGeoReplicationRule) Dependencies(ctx context.Context, scope azure.Scope) ([]data.DependencyKey, error) {
	return []data.DependencyKey{
		data.DepSQLDatabases,
	}, nil
}

func (r *SQLGeoReplicationRule) Evaluate(ctx context.Context, scope azure.Scope, dc data.DataContext) ([]rules.Result, error) {
	dbs, err := sqlDatabasesFromContext(dc)
	if err != nil {
		return nil, err
	}

	var results []rules.Result
	for _, db := range dbs {
		if db.GeoReplicated() {
			results = append(results, rules.WithRaw(rules.PassResult(r, scope, db.ID, db.Name, true, true), db))
			continue
		}
		results = append(results, rules.WithRaw(rules.FailResult(r, scope, db.ID, db.Name, true, false,
			fmt.Sprintf("Database %s/%s has no geo-replication link", db.ServerName, db.Name)), db))
	}
	return results, nil
}

func sqlDatabasesFromContext(dc data.DataContext) ([]models.SQLDatabase, error) {
	val, ok := dc.Get(data.DepSQLDatabases)
	if !ok {
		return nil, fmt.Errorf("dependency %s missing", data.DepSQLDatabases)
	}
	dbs, ok := val.([]models.SQLDatabase)
	if !ok {
		return nil, fmt.Errorf("dependency %s has unexpected type %T", data.DepSQLDatabases, val)
	}
	return dbs, nil
}
