package providers

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/sql/armsql"

	"wafaudit/internal/azure"
	"wafaudit/internal/data"
	"wafaudit/internal/data/models"
	"wafaudit/internal/fetcher"
)

type sqlDatabasesFetcher struct{}

func (s *sqlDatabasesFetcher) Key() data.DependencyKey {
	return data.DepSQLDatabases
}

func (s *sqlDatabasesFetcher) Scope() data.FetchScope {
	return data.ScopeSubscription
}

// Fetch walks every logical SQL server in the subscription and flattens its
// user databases. A failure on one server degrades to skipping that server so
// the rest of the subscription still gets audited.
func (s *sqlDatabasesFetcher) Fetch(ctx context.Context, scope azure.Scope, _ map[string]string, f *fetcher.Fetcher) (any, error) {
	servers, err := f.Client().SQLServers(scope.SubscriptionID)
	if err != nil {
		return nil, fmt.Errorf("sql servers client: %w", err)
	}
	databases, err := f.Client().SQLDatabases(scope.SubscriptionID)
	if err != nil {
		return nil, fmt.Errorf("sql databases client: %w", err)
	}
	links, err := f.Client().SQLReplicationLinks(scope.SubscriptionID)
	if err != nil {
		return nil, fmt.Errorf("sql replication links client: %w", err)
	}

	var out []models.SQLDatabase
	serverPager := servers.NewListPager(nil)
	for serverPager.More() {
		page, err := serverPager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list sql servers: %w", err)
		}
		for _, srv := range page.Value {
			if srv == nil || srv.ID == nil || srv.Name == nil {
				continue
			}
			dbs, err := listServerDatabases(ctx, databases, links, *srv.ID, *srv.Name)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Warning: skipping sql server %s: %v\n", *srv.Name, err)
				continue
			}
			out = append(out, dbs...)
		}
	}
	return out, nil
}

func listServerDatabases(ctx context.Context, databases *armsql.DatabasesClient, links *armsql.ReplicationLinksClient, serverID, serverName string) ([]models.SQLDatabase, error) {
	rg := azure.ParseResourceGroup(serverID)
	var out []models.SQLDatabase

	pager := databases.NewListByServerPager(rg, serverName, nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list databases: %w", err)
		}
		for _, db := range page.Value {
			if db == nil || db.ID == nil || db.Name == nil {
				continue
			}
			if strings.EqualFold(*db.Name, "master") {
				continue
			}
			m := models.SQLDatabase{
				ID:            *db.ID,
				Name:          *db.Name,
				ServerName:    serverName,
				ResourceGroup: rg,
			}
			if db.Properties != nil && db.Properties.ZoneRedundant != nil {
				m.ZoneRedundant = *db.Properties.ZoneRedundant
			}

			linkCount, isSecondary, err := countReplicationLinks(ctx, links, rg, serverName, *db.Name)
			if err != nil {
				// Missing link data must not hide the database itself; the
				// geo-replication rule will see zero links and fail it, with
				// the reason logged here.
				fmt.Fprintf(os.Stderr, "Warning: replication links for %s/%s: %v\n", serverName, *db.Name, err)
			}
			m.ReplicationLinks = linkCount
			m.IsSecondary = isSecondary

			out = append(out, m)
		}
	}
	return out, nil
}

func countReplicationLinks(ctx context.Context, links *armsql.ReplicationLinksClient, rg, serverName, dbName string) (count int, isSecondary bool, err error) {
	pager := links.NewListByDatabasePager(rg, serverName, dbName, nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return count, isSecondary, fmt.Errorf("list replication links: %w", err)
		}
		for _, link := range page.Value {
			if link == nil {
				continue
			}
			count++
			if link.Properties != nil && link.Properties.Role != nil {
				switch *link.Properties.Role {
				case armsql.ReplicationRoleSecondary, armsql.ReplicationRoleNonReadableSecondary:
					isSecondary = true
				}
			}
		}
	}
	return count, isSecondary, nil
}

func init() {
	fetcher.RegisterDataFetcher(&sqlDatabasesFetcher{})
}
