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

type secureScoreFetcher struct{}

func (s *secureScoreFetcher) Key() data.DependencyKey {
	return data.DepSecureScore
}

func (s *secureScoreFetcher) Scope() data.FetchScope {
	return data.ScopeTenant
}

func (s *secureScoreFetcher) Fetch(ctx context.Context, _ azure.Scope, _ map[string]string, f *fetcher.Fetcher) (any, error) {
	g := f.Graph()
	if g == nil {
		return nil, errors.New("graph client not configured")
	}
	score, err := g.SecureScore(ctx)
	if err != nil {
		return nil, fmt.Errorf("secure score: %w", err)
	}
	return &models.SecureScore{Current: score.Current, Max: score.Max}, nil
}

func init() {
	fetcher.RegisterDataFetcher(&secureScoreFetcher{})
}
