package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armsubscriptions"

	"wafaudit/internal/azure"
	"wafaudit/internal/config"
)

// ResolveScopes resolves the set of subscription scopes to audit.
//
// It first resolves the tenant of the active credential, which doubles as
// the fail-fast authentication check: an expired or missing login surfaces
// here, before any plan is built. When cfg pins a tenant, subscriptions
// homed in other tenants are dropped from discovery.
//
// With an explicit --subscriptions list every listed subscription must
// resolve; a typo is an error, not a silent skip. Without one, every
// enabled subscription visible to the credential is audited.
func ResolveScopes(ctx context.Context, client *azure.Client, cfg *config.Config) (azure.Scope, []azure.Scope, error) {
	if client == nil {
		return azure.Scope{}, nil, fmt.Errorf("azure client is nil")
	}
	if cfg == nil {
		return azure.Scope{}, nil, fmt.Errorf("config is nil")
	}

	tenantID, err := client.CurrentTenant(ctx)
	if err != nil {
		return azure.Scope{}, nil, fmt.Errorf("resolve tenant (are you logged in?): %w", err)
	}
	if cfg.Targeting.Tenant != "" {
		tenantID = cfg.Targeting.Tenant
	}
	tenant := azure.TenantScope(tenantID)

	if len(cfg.Targeting.Subscriptions) > 0 {
		scopes, err := resolveExplicitSubscriptions(ctx, client, tenant, cfg.Targeting.Subscriptions)
		if err != nil {
			return azure.Scope{}, nil, err
		}
		return tenant, scopes, nil
	}

	scopes, err := listEnabledSubscriptions(ctx, client, tenant)
	if err != nil {
		return azure.Scope{}, nil, err
	}
	return tenant, scopes, nil
}

func resolveExplicitSubscriptions(ctx context.Context, client *azure.Client, tenant azure.Scope, ids []string) ([]azure.Scope, error) {
	subs, err := client.Subscriptions()
	if err != nil {
		return nil, fmt.Errorf("subscriptions client: %w", err)
	}

	seen := make(map[string]struct{}, len(ids))
	scopes := make([]azure.Scope, 0, len(ids))
	for _, id := range ids {
		id = strings.ToLower(strings.TrimSpace(id))
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		resp, err := subs.Get(ctx, id, nil)
		if err != nil {
			return nil, fmt.Errorf("resolve subscription %s: %w", id, err)
		}
		name := ""
		if resp.DisplayName != nil {
			name = *resp.DisplayName
		}
		scopes = append(scopes, azure.SubscriptionScope(tenant.TenantID, id, name))
	}
	return scopes, nil
}

func listEnabledSubscriptions(ctx context.Context, client *azure.Client, tenant azure.Scope) ([]azure.Scope, error) {
	subs, err := client.Subscriptions()
	if err != nil {
		return nil, fmt.Errorf("subscriptions client: %w", err)
	}

	var scopes []azure.Scope
	pager := subs.NewListPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list subscriptions: %w", err)
		}
		for _, sub := range page.Value {
			if sub == nil || sub.SubscriptionID == nil {
				continue
			}
			if sub.State == nil || *sub.State != armsubscriptions.SubscriptionStateEnabled {
				continue
			}
			if sub.TenantID != nil && !strings.EqualFold(*sub.TenantID, tenant.TenantID) {
				continue
			}
			name := ""
			if sub.DisplayName != nil {
				name = *sub.DisplayName
			}
			scopes = append(scopes, azure.SubscriptionScope(tenant.TenantID, *sub.SubscriptionID, name))
		}
	}
	return scopes, nil
}
