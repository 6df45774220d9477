package providers

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/recoveryservicessiterecovery/armrecoveryservicessiterecovery/v2"

	"wafaudit/internal/azure"
	"wafaudit/internal/data"
	"wafaudit/internal/data/models"
	"wafaudit/internal/fetcher"
)

type asrProtectionFetcher struct{}

func (a *asrProtectionFetcher) Key() data.DependencyKey {
	return data.DepReplicationProtection
}

func (a *asrProtectionFetcher) Scope() data.FetchScope {
	return data.ScopeSubscription
}

// Fetch aggregates Site Recovery protection across every Recovery Services
// vault in the subscription. A vault that cannot be read is skipped with a
// warning; its items simply don't appear in the set.
func (a *asrProtectionFetcher) Fetch(ctx context.Context, scope azure.Scope, _ map[string]string, f *fetcher.Fetcher) (any, error) {
	vaults, err := f.Client().RecoveryVaults(scope.SubscriptionID)
	if err != nil {
		return nil, fmt.Errorf("recovery vaults client: %w", err)
	}
	items, err := f.Client().ReplicationProtectedItems(scope.SubscriptionID)
	if err != nil {
		return nil, fmt.Errorf("replication protected items client: %w", err)
	}

	protection := &models.ReplicationProtection{}
	vaultPager := vaults.NewListBySubscriptionIDPager(nil)
	for vaultPager.More() {
		page, err := vaultPager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list recovery vaults: %w", err)
		}
		for _, vault := range page.Value {
			if vault == nil || vault.ID == nil || vault.Name == nil {
				continue
			}
			protection.VaultCount++
			if err := collectVaultItems(ctx, items, *vault.ID, *vault.Name, protection); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: skipping vault %s: %v\n", *vault.Name, err)
			}
		}
	}
	return protection, nil
}

func collectVaultItems(ctx context.Context, items *armrecoveryservicessiterecovery.ReplicationProtectedItemsClient, vaultID, vaultName string, protection *models.ReplicationProtection) error {
	rg := azure.ParseResourceGroup(vaultID)
	pager := items.NewListPager(rg, vaultName, nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("list protected items: %w", err)
		}
		for _, item := range page.Value {
			if item == nil || item.Properties == nil {
				continue
			}
			if name := item.Properties.FriendlyName; name != nil && *name != "" {
				protection.FriendlyNames = append(protection.FriendlyNames, *name)
			}
			// Azure-to-Azure replication reports the source VM's ARM ID.
			if a2a, ok := item.Properties.ProviderSpecificDetails.(*armrecoveryservicessiterecovery.A2AReplicationDetails); ok {
				if a2a.FabricObjectID != nil && *a2a.FabricObjectID != "" {
					protection.ProtectedIDs = append(protection.ProtectedIDs, strings.ToLower(*a2a.FabricObjectID))
				}
			}
		}
	}
	return nil
}

func init() {
	fetcher.RegisterDataFetcher(&asrProtectionFetcher{})
}
