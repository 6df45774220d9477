package providers

import (
	"context"
	"fmt"

	"wafaudit/internal/azure"
	"wafaudit/internal/data"
	"wafaudit/internal/data/models"
	"wafaudit/internal/fetcher"
)

type scaleSetsFetcher struct{}

func (s *scaleSetsFetcher) Key() data.DependencyKey {
	return data.DepScaleSets
}

func (s *scaleSetsFetcher) Scope() data.FetchScope {
	return data.ScopeSubscription
}

func (s *scaleSetsFetcher) Fetch(ctx context.Context, scope azure.Scope, _ map[string]string, f *fetcher.Fetcher) (any, error) {
	client, err := f.Client().ScaleSets(scope.SubscriptionID)
	if err != nil {
		return nil, fmt.Errorf("scale sets client: %w", err)
	}

	var out []models.ScaleSet
	pager := client.NewListAllPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list scale sets: %w", err)
		}
		for _, ss := range page.Value {
			if ss == nil || ss.ID == nil || ss.Name == nil {
				continue
			}
			m := models.ScaleSet{
				ID:            *ss.ID,
				Name:          *ss.Name,
				ResourceGroup: azure.ParseResourceGroup(*ss.ID),
			}
			if ss.Location != nil {
				m.Location = *ss.Location
			}
			for _, z := range ss.Zones {
				if z != nil && *z != "" {
					m.Zones = append(m.Zones, *z)
				}
			}
			if ss.Properties != nil &&
				ss.Properties.AutomaticRepairsPolicy != nil &&
				ss.Properties.AutomaticRepairsPolicy.Enabled != nil {
				m.AutomaticRepairsEnabled = *ss.Properties.AutomaticRepairsPolicy.Enabled
			}
			out = append(out, m)
		}
	}
	return out, nil
}

func init() {
	fetcher.RegisterDataFetcher(&scaleSetsFetcher{})
}
