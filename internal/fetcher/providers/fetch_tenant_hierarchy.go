package providers

import (
	"context"
	"fmt"
	"strings"

	"wafaudit/internal/azure"
	"wafaudit/internal/data"
	"wafaudit/internal/data/models"
	"wafaudit/internal/fetcher"
)

type tenantHierarchyFetcher struct{}

func (t *tenantHierarchyFetcher) Key() data.DependencyKey {
	return data.DepTenantHierarchy
}

func (t *tenantHierarchyFetcher) Scope() data.FetchScope {
	return data.ScopeTenant
}

// Fetch reads the management group entities feed, which lists both groups and
// subscriptions together with their parent group, and splits it into the
// typed hierarchy the governance rules consume.
func (t *tenantHierarchyFetcher) Fetch(ctx context.Context, scope azure.Scope, _ map[string]string, f *fetcher.Fetcher) (any, error) {
	entities, err := f.Client().ManagementGroupEntities()
	if err != nil {
		return nil, fmt.Errorf("management group entities client: %w", err)
	}

	hierarchy := &models.TenantHierarchy{TenantID: scope.TenantID}
	pager := entities.NewListPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list management group entities: %w", err)
		}
		for _, e := range page.Value {
			if e == nil || e.ID == nil || e.Name == nil || e.Type == nil {
				continue
			}
			displayName := ""
			parentID := ""
			if e.Properties != nil {
				if e.Properties.DisplayName != nil {
					displayName = *e.Properties.DisplayName
				}
				if e.Properties.Parent != nil && e.Properties.Parent.ID != nil {
					parentID = *e.Properties.Parent.ID
				}
			}

			switch {
			case strings.Contains(strings.ToLower(*e.Type), "managementgroups"):
				hierarchy.Groups = append(hierarchy.Groups, models.ManagementGroup{
					ID:          *e.ID,
					Name:        *e.Name,
					DisplayName: displayName,
					ParentID:    parentID,
				})
			case strings.Contains(strings.ToLower(*e.Type), "subscriptions"):
				hierarchy.Subscriptions = append(hierarchy.Subscriptions, models.SubscriptionEntity{
					ID:          *e.ID,
					Name:        *e.Name,
					DisplayName: displayName,
					ParentID:    parentID,
				})
			}
		}
	}
	return hierarchy, nil
}

func init() {
	fetcher.RegisterDataFetcher(&tenantHierarchyFetcher{})
}
