package azure

import "testing"

func TestScopeKey(t *testing.T) {
	tenant := TenantScope("t1")
	if !tenant.IsTenant() {
		t.Error("TenantScope not reported as tenant")
	}
	if got := tenant.Key(); got != "tenant:t1" {
		t.Errorf("tenant Key() = %q, want %q", got, "tenant:t1")
	}

	sub := SubscriptionScope("t1", "s1", "Production")
	if sub.IsTenant() {
		t.Error("SubscriptionScope reported as tenant")
	}
	if got := sub.Key(); got != "s1" {
		t.Errorf("subscription Key() = %q, want %q", got, "s1")
	}
}

func TestScopeString(t *testing.T) {
	tests := []struct {
		name  string
		scope Scope
		want  string
	}{
		{"tenant", TenantScope("t1"), "tenant t1"},
		{"named subscription", SubscriptionScope("t1", "s1", "Production"), "Production (s1)"},
		{"unnamed subscription", SubscriptionScope("t1", "s1", ""), "s1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.scope.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}
