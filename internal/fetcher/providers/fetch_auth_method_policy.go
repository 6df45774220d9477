package providers

import (
	"context"
	"errors"
	"fmt"

	"wafaudit/internal/azure"
	"wafaudit/internal/data"
	"wafaudit/internal/data/models"
	"wafaudit/internal/fetcher"
)

type authMethodPolicyFetcher struct{}

func (a *authMethodPolicyFetcher) Key() data.DependencyKey {
	return data.DepAuthMethodPolicy
}

func (a *authMethodPolicyFetcher) Scope() data.FetchScope {
	return data.ScopeTenant
}

func (a *authMethodPolicyFetcher) Fetch(ctx context.Context, _ azure.Scope, _ map[string]string, f *fetcher.Fetcher) (any, error) {
	g := f.Graph()
	if g == nil {
		return nil, errors.New("graph client not configured")
	}
	methods, err := g.AuthMethodPolicy(ctx)
	if err != nil {
		return nil, fmt.Errorf("authentication methods policy: %w", err)
	}
	return &models.AuthMethodPolicy{Methods: methods}, nil
}

func init() {
	fetcher.RegisterDataFetcher(&authMethodPolicyFetcher{})
}
