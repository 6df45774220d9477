package checks

import (
	"context"

	"wafaudit/internal/azure"
	"wafaudit/internal/data"
	"wafaudit/internal/rules"
)

// IdentityFIDO2EnabledRule checks that FIDO2 security keys are enabled in the
// tenant's authentication methods policy.
type IdentityFIDO2EnabledRule struct{}

func init() {
	rules.Register(&IdentityFIDO2EnabledRule{})
}

func (r *IdentityFIDO2EnabledRule) ID() string {
	return "identity-fido2-enabled"
}

func (r *IdentityFIDO2EnabledRule) Title() string {
	return "FIDO2 Security Keys Enabled"
}

func (r *IdentityFIDO2EnabledRule) Description() string {
	return "Verifies that the FIDO2 authentication method is enabled tenant-wide, " +
		"giving users a phishing-resistant sign-in option."
}

func (r *IdentityFIDO2EnabledRule) Category() string {
	return rules.CategoryIdentity
}

func (r *IdentityFIDO2EnabledRule) SubCategory() string {
	return "Authentication Methods"
}

func (r *IdentityFIDO2EnabledRule) Pillar() string {
	return rules.PillarSecurity
}

func (r *IdentityFIDO2EnabledRule) Severity() rules.Severity {
	return rules.SeverityMedium
}

func (r *IdentityFIDO2EnabledRule) Level() data.FetchScope {
	return data.ScopeTenant
}

func (r *IdentityFIDO2EnabledRule) Dependencies(ctx context.Context, scope azure.Scope) ([]data.DependencyKey, error) {
	return []data.DependencyKey{
		data.DepAuthMethodPolicy,
	}, nil
}

func (r *IdentityFIDO2EnabledRule) Evaluate(ctx context.Context, scope azure.Scope, dc data.DataContext) ([]rules.Result, error) {
	policy, err := authMethodPolicyFromContext(dc)
	if err != nil {
		return nil, err
	}

	if policy.Enabled("fido2") {
		return []rules.Result{rules.WithRaw(rules.PassResult(r, scope, "", "fido2", true, true), policy)}, nil
	}
	return []rules.Result{rules.WithRaw(rules.FailResult(r, scope, "", "fido2", true, false,
		"FIDO2 security keys are not enabled in the authentication methods policy"), policy)}, nil
}
