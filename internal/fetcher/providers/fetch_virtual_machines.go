package providers

import (
	"context"
	"fmt"

	"wafaudit/internal/azure"
	"wafaudit/internal/data"
	"wafaudit/internal/data/models"
	"wafaudit/internal/fetcher"
)

type virtualMachinesFetcher struct{}

func (v *virtualMachinesFetcher) Key() data.DependencyKey {
	return data.DepVirtualMachines
}

func (v *virtualMachinesFetcher) Scope() data.FetchScope {
	return data.ScopeSubscription
}

func (v *virtualMachinesFetcher) Fetch(ctx context.Context, scope azure.Scope, _ map[string]string, f *fetcher.Fetcher) (any, error) {
	client, err := f.Client().VirtualMachines(scope.SubscriptionID)
	if err != nil {
		return nil, fmt.Errorf("virtual machines client: %w", err)
	}

	var out []models.VirtualMachine
	pager := client.NewListAllPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list virtual machines: %w", err)
		}
		for _, vm := range page.Value {
			if vm == nil || vm.ID == nil || vm.Name == nil {
				continue
			}
			m := models.VirtualMachine{
				ID:            *vm.ID,
				Name:          *vm.Name,
				ResourceGroup: azure.ParseResourceGroup(*vm.ID),
			}
			if vm.Location != nil {
				m.Location = *vm.Location
			}
			for _, z := range vm.Zones {
				if z != nil && *z != "" {
					m.Zones = append(m.Zones, *z)
				}
			}
			if vm.Properties != nil && vm.Properties.AvailabilitySet != nil && vm.Properties.AvailabilitySet.ID != nil {
				m.AvailabilitySetID = *vm.Properties.AvailabilitySet.ID
			}
			out = append(out, m)
		}
	}
	return out, nil
}

func init() {
	fetcher.RegisterDataFetcher(&virtualMachinesFetcher{})
}
