package fetcher

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"wafaudit/internal/azure"
	"wafaudit/internal/data"
	"wafaudit/internal/graph"
)

// Fetcher is the collector: it resolves dependency keys to registered
// DataFetchers and guarantees each (scope, key, params) triple is fetched at
// most once per run, no matter how many rules declare it.
type Fetcher struct {
	client *azure.Client
	graph  graph.Client
	group  Group
	cache  *Cache
}

type fetchChainKey struct{}

func NewFetcher(client *azure.Client, graphClient graph.Client) *Fetcher {
	return &Fetcher{
		client: client,
		graph:  graphClient,
		cache:  NewCache(),
	}
}

func (f *Fetcher) Client() *azure.Client {
	return f.client
}

func (f *Fetcher) Graph() graph.Client {
	return f.graph
}

func (f *Fetcher) Fetch(ctx context.Context, scope azure.Scope, key data.DependencyKey, params map[string]string) (any, error) {
	if ctx == nil {
		return nil, fmt.Errorf("Fetch: nil context")
	}
	if f == nil {
		return nil, fmt.Errorf("Fetch: nil Fetcher")
	}
	if f.client == nil {
		return nil, fmt.Errorf("Fetch: nil Azure client (use NewFetcher)")
	}
	if f.cache == nil {
		return nil, fmt.Errorf("Fetch: nil cache (use NewFetcher)")
	}
	if key == "" {
		return nil, fmt.Errorf("Fetch: empty dependency key")
	}

	fetchImpl, ok := ResolveDataFetcher(key)
	if !ok {
		return nil, fmt.Errorf("unsupported dependency key: %s", key)
	}

	// Cache key (must be deterministic)
	flightKey, err := makeFlightKey(scope, fetchImpl.Scope(), key, params)
	if err != nil {
		return nil, err
	}

	ctx, err = withFetchChain(ctx, flightKey)
	if err != nil {
		return nil, err
	}

	// Cache lookup
	if val, ok := f.cache.Get(flightKey); ok {
		return val, nil
	}

	// Single-flight (dedupe concurrent identical requests)
	val, err, _ := f.group.Do(flightKey, func() (any, error) {
		return fetchImpl.Fetch(ctx, scope, params, f)
	})

	if err == nil {
		f.cache.Set(flightKey, val)
	}

	return val, err
}

func withFetchChain(ctx context.Context, flightKey string) (context.Context, error) {
	chain := getFetchChain(ctx)
	for _, existing := range chain {
		if existing == flightKey {
			return nil, fmt.Errorf("Fetch: dependency cycle detected: %s -> %s", strings.Join(chain, " -> "), flightKey)
		}
	}

	updated := make([]string, 0, len(chain)+1)
	updated = append(updated, chain...)
	updated = append(updated, flightKey)
	return context.WithValue(ctx, fetchChainKey{}, updated), nil
}

func getFetchChain(ctx context.Context) []string {
	if ctx == nil {
		return nil
	}
	v := ctx.Value(fetchChainKey{})
	chain, ok := v.([]string)
	if !ok {
		return nil
	}
	return chain
}

func makeFlightKey(scope azure.Scope, fetchScope data.FetchScope, key data.DependencyKey, params map[string]string) (string, error) {
	var prefix string
	switch fetchScope {
	case data.ScopeTenant:
		if scope.TenantID == "" {
			return "", fmt.Errorf("Fetch: tenant id is required for tenant-scoped dependency: %s", key)
		}
		prefix = "tenant:" + strings.ToLower(scope.TenantID)
	case data.ScopeSubscription:
		if scope.SubscriptionID == "" {
			return "", fmt.Errorf("Fetch: subscription id is required for subscription-scoped dependency: %s", key)
		}
		prefix = strings.ToLower(scope.SubscriptionID)
	default:
		return "", fmt.Errorf("Fetch: unknown fetch scope %q for dependency: %s", fetchScope, key)
	}

	return prefix + ":" + string(key) + ":" + stableParamsKey(params), nil
}

func stableParamsKey(params map[string]string) string {
	if len(params) == 0 {
		return ""
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+params[k])
	}
	return strings.Join(parts, "&")
}
