package engine

import (
	"testing"

	"wafaudit/internal/azure"
	"wafaudit/internal/config"
)

func scopeIDs(scopes []azure.Scope) []string {
	ids := make([]string, 0, len(scopes))
	for _, s := range scopes {
		ids = append(ids, s.SubscriptionID)
	}
	return ids
}

func TestFilterScopes(t *testing.T) {
	scopes := []azure.Scope{
		azure.SubscriptionScope("t1", "sub-prod-1", "prod-payments"),
		azure.SubscriptionScope("t1", "sub-prod-2", "prod-web"),
		azure.SubscriptionScope("t1", "sub-dev-1", "dev-sandbox"),
	}

	tests := []struct {
		name    string
		include []string
		exclude []string
		max     int
		want    []string
	}{
		{"no filters", nil, nil, 0, []string{"sub-prod-1", "sub-prod-2", "sub-dev-1"}},
		{"include by name", []string{"prod-*"}, nil, 0, []string{"sub-prod-1", "sub-prod-2"}},
		{"include by id", []string{"SUB-DEV-*"}, nil, 0, []string{"sub-dev-1"}},
		{"exclude wins over include", []string{"prod-*"}, []string{"prod-web"}, 0, []string{"sub-prod-1"}},
		{"max scopes truncates", nil, nil, 2, []string{"sub-prod-1", "sub-prod-2"}},
		{"include nothing", []string{"staging-*"}, nil, 0, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.New()
			cfg.Targeting.Include = tt.include
			cfg.Targeting.Exclude = tt.exclude
			cfg.Targeting.MaxScopes = tt.max

			got := scopeIDs(FilterScopes(scopes, cfg))
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Fatalf("got %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestMatchPattern(t *testing.T) {
	s := azure.SubscriptionScope("t1", "ABC-123", "Prod Payments")
	tests := []struct {
		pattern string
		want    bool
	}{
		{"Prod *", true},
		{"prod *", false}, // name match is case-sensitive
		{"abc-*", true},   // ID match is not
		{"", false},
		{"  ", false},
	}
	for _, tt := range tests {
		if got := matchPattern(tt.pattern, s); got != tt.want {
			t.Errorf("matchPattern(%q) = %v, want %v", tt.pattern, got, tt.want)
		}
	}
}
