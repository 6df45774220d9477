package engine

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"

	"wafaudit/internal/azure"
	"wafaudit/internal/data"
	"wafaudit/internal/rules"
)

func TestExitCodeForRun(t *testing.T) {
	tests := []struct {
		name     string
		fatal    bool
		partial  bool
		failures bool
		want     int
	}{
		{"clean", false, false, false, 0},
		{"failures only", false, false, true, 1},
		{"partial only", false, true, false, 2},
		{"partial beats failures", false, true, true, 2},
		{"fatal beats everything", true, true, true, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCodeForRun(tt.fatal, tt.partial, tt.failures); got != tt.want {
				t.Errorf("exitCodeForRun(%v, %v, %v) = %d, want %d", tt.fatal, tt.partial, tt.failures, got, tt.want)
			}
		})
	}
}

func TestUndeclaredDependencyAccesses(t *testing.T) {
	declared := []data.DependencyKey{data.DepVirtualMachines}
	accessed := []data.DependencyKey{data.DepVirtualMachines, data.DepScaleSets, data.DepLoadBalancers}

	got := undeclaredDependencyAccesses(accessed, declared)
	want := []string{string(data.DepLoadBalancers), string(data.DepScaleSets)}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}

	if got := undeclaredDependencyAccesses(nil, declared); got != nil {
		t.Errorf("no accesses: got %v, want nil", got)
	}
	if got := undeclaredDependencyAccesses(declared, declared); got != nil {
		t.Errorf("all declared: got %v, want nil", got)
	}
}

func TestRuleResultIfDependenciesMissingOrFailed(t *testing.T) {
	deps := []data.DependencyKey{data.DepVirtualMachines, data.DepReplicationProtection}

	t.Run("all present", func(t *testing.T) {
		dc := data.NewMapDataContext(map[data.DependencyKey]any{
			data.DepVirtualMachines:       "vms",
			data.DepReplicationProtection: "asr",
		})
		_, _, synthetic := ruleResultIfDependenciesMissingOrFailed(dc, deps, nil, false)
		if synthetic {
			t.Error("synthetic result produced with all dependencies present")
		}
	})

	t.Run("missing without recorded error", func(t *testing.T) {
		dc := data.NewMapDataContext(map[data.DependencyKey]any{data.DepVirtualMachines: "vms"})
		status, msg, synthetic := ruleResultIfDependenciesMissingOrFailed(dc, deps, nil, false)
		if !synthetic || status != rules.StatusError {
			t.Fatalf("status = %s, synthetic = %v", status, synthetic)
		}
		if !strings.Contains(msg, "Missing dependencies") {
			t.Errorf("msg = %q", msg)
		}
	})

	t.Run("single hard failure drops key prefix", func(t *testing.T) {
		dc := data.NewMapDataContext(map[data.DependencyKey]any{data.DepVirtualMachines: "vms"})
		depErrs := map[data.DependencyKey]error{
			data.DepReplicationProtection: &azcore.ResponseError{StatusCode: 403, ErrorCode: "AuthorizationFailed"},
		}
		status, msg, synthetic := ruleResultIfDependenciesMissingOrFailed(dc, deps, depErrs, false)
		if !synthetic || status != rules.StatusError {
			t.Fatalf("status = %s, synthetic = %v", status, synthetic)
		}
		if strings.HasPrefix(msg, string(data.DepReplicationProtection)) {
			t.Errorf("single-failure message kept key prefix: %q", msg)
		}
		if !strings.Contains(msg, "AuthorizationFailed") {
			t.Errorf("msg = %q", msg)
		}
	})

	t.Run("all failures skippable means skipped", func(t *testing.T) {
		dc := data.NewMapDataContext(nil)
		depErrs := map[data.DependencyKey]error{
			data.DepVirtualMachines:       &azcore.ResponseError{StatusCode: 404},
			data.DepReplicationProtection: &azcore.ResponseError{StatusCode: 409, ErrorCode: "MissingSubscriptionRegistration"},
		}
		status, msg, synthetic := ruleResultIfDependenciesMissingOrFailed(dc, deps, depErrs, false)
		if !synthetic || status != rules.StatusSkipped {
			t.Fatalf("status = %s, synthetic = %v, msg = %q", status, synthetic, msg)
		}
	})

	t.Run("mixed failures stay errors", func(t *testing.T) {
		dc := data.NewMapDataContext(nil)
		depErrs := map[data.DependencyKey]error{
			data.DepVirtualMachines:       &azcore.ResponseError{StatusCode: 404},
			data.DepReplicationProtection: &azcore.ResponseError{StatusCode: 500},
		}
		status, _, synthetic := ruleResultIfDependenciesMissingOrFailed(dc, deps, depErrs, false)
		if !synthetic || status != rules.StatusError {
			t.Fatalf("status = %s, synthetic = %v", status, synthetic)
		}
	})
}

func TestFilterRulesByCategories(t *testing.T) {
	selected := []rules.Rule{
		planRule{id: "a", level: data.ScopeSubscription},
		categoryRule{planRule{id: "b"}, "Network"},
		categoryRule{planRule{id: "c"}, "Governance"},
	}

	got, err := filterRulesByCategories(selected, []string{"network", " GOVERNANCE "})
	if err != nil {
		t.Fatalf("filterRulesByCategories: %v", err)
	}
	if len(got) != 2 || got[0].ID() != "b" || got[1].ID() != "c" {
		t.Errorf("got %v", got)
	}

	if _, err := filterRulesByCategories(selected, []string{"storage"}); err == nil {
		t.Error("unknown category accepted")
	}

	all, err := filterRulesByCategories(selected, nil)
	if err != nil || len(all) != len(selected) {
		t.Errorf("empty filter: %v, %v", all, err)
	}
}

// categoryRule overrides planRule's category.
type categoryRule struct {
	planRule
	category string
}

func (c categoryRule) Category() string { return c.category }

type quotaCredential struct{}

func (quotaCredential) GetToken(ctx context.Context, opts policy.TokenRequestOptions) (azcore.AccessToken, error) {
	return azcore.AccessToken{Token: "token"}, nil
}

func TestWriteRemainingQuota(t *testing.T) {
	var buf bytes.Buffer
	writeRemainingQuota(&buf, nil)
	if buf.Len() != 0 {
		t.Errorf("nil client wrote %q", buf.String())
	}
	writeRemainingQuota(&buf, &azure.Client{})
	if buf.Len() != 0 {
		t.Errorf("client without a budget wrote %q", buf.String())
	}

	client, err := azure.NewClient(context.Background(), quotaCredential{})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	writeRemainingQuota(&buf, client)
	if got := buf.String(); !strings.Contains(got, "ARM read quota remaining: 12000") {
		t.Errorf("quota line = %q", got)
	}
}
