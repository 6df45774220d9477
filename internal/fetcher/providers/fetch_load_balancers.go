package providers

import (
	"context"
	"fmt"

	"wafaudit/internal/azure"
	"wafaudit/internal/data"
	"wafaudit/internal/data/models"
	"wafaudit/internal/fetcher"
)

type loadBalancersFetcher struct{}

func (l *loadBalancersFetcher) Key() data.DependencyKey {
	return data.DepLoadBalancers
}

func (l *loadBalancersFetcher) Scope() data.FetchScope {
	return data.ScopeSubscription
}

func (l *loadBalancersFetcher) Fetch(ctx context.Context, scope azure.Scope, _ map[string]string, f *fetcher.Fetcher) (any, error) {
	client, err := f.Client().LoadBalancers(scope.SubscriptionID)
	if err != nil {
		return nil, fmt.Errorf("load balancers client: %w", err)
	}

	var out []models.LoadBalancer
	pager := client.NewListAllPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list load balancers: %w", err)
		}
		for _, lb := range page.Value {
			if lb == nil || lb.ID == nil || lb.Name == nil {
				continue
			}
			m := models.LoadBalancer{
				ID:            *lb.ID,
				Name:          *lb.Name,
				ResourceGroup: azure.ParseResourceGroup(*lb.ID),
			}
			if lb.SKU != nil && lb.SKU.Name != nil {
				m.SKU = string(*lb.SKU.Name)
			}
			if lb.Properties != nil {
				for _, pool := range lb.Properties.BackendAddressPools {
					if pool == nil {
						continue
					}
					m.BackendPools++
					if pool.Properties == nil {
						continue
					}
					// NIC-attached configurations and address-based backends
					// both count toward redundancy.
					m.BackendIPConfigurations += len(pool.Properties.BackendIPConfigurations)
					m.BackendIPConfigurations += len(pool.Properties.LoadBalancerBackendAddresses)
				}
			}
			out = append(out, m)
		}
	}
	return out, nil
}

func init() {
	fetcher.RegisterDataFetcher(&loadBalancersFetcher{})
}
