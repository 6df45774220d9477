package checks

import (
	"context"
	"fmt"

	"wafaudit/internal/azure"
	"wafaudit/internal/data"
	"wafaudit/internal/data/models"
	"wafaudit/internal/rules"
)

// IdentityAuthenticatorEnabledRule checks that the Microsoft Authenticator
// method is enabled in the tenant's authentication methods policy.
type IdentityAuthenticatorEnabledRule struct{}

func init() {
	rules.Register(&IdentityAuthenticatorEnabledRule{})
}

func (r *IdentityAuthenticatorEnabledRule) ID() string {
	return "identity-authenticator-enabled"
}

func (r *IdentityAuthenticatorEnabledRule) Title() string {
	return "Microsoft Authenticator Enabled"
}

func (r *IdentityAuthenticatorEnabledRule) Description() string {
	return "Verifies that the Microsoft Authenticator authentication method is enabled tenant-wide."
}

func (r *IdentityAuthenticatorEnabledRule) Category() string {
	return rules.CategoryIdentity
}

func (r *IdentityAuthenticatorEnabledRule) SubCategory() string {
	return "Authentication Methods"
}

func (r *IdentityAuthenticatorEnabledRule) Pillar() string {
	return rules.PillarSecurity
}

func (r *IdentityAuthenticatorEnabledRule) Severity() rules.Severity {
	return rules.SeverityHigh
}

func (r *IdentityAuthenticatorEnabledRule) Level() data.FetchScope {
	return data.ScopeTenant
}

func (r *IdentityAuthenticatorEnabledRule) Dependencies(ctx context.Context, scope azure.Scope) ([]data.DependencyKey, error) {
	return []data.DependencyKey{
		data.DepAuthMethodPolicy,
	}, nil
}

func (r *IdentityAuthenticatorEnabledRule) Evaluate(ctx context.Context, scope azure.Scope, dc data.DataContext) ([]rules.Result, error) {
	policy, err := authMethodPolicyFromContext(dc)
	if err != nil {
		return nil, err
	}

	enabled := policy.Enabled("microsoftAuthenticator")
	if enabled {
		return []rules.Result{rules.WithRaw(rules.PassResult(r, scope, "", "microsoftAuthenticator", true, true), policy)}, nil
	}
	return []rules.Result{rules.WithRaw(rules.FailResult(r, scope, "", "microsoftAuthenticator", true, false,
		"Microsoft Authenticator is not enabled in the authentication methods policy"), policy)}, nil
}

func authMethodPolicyFromContext(dc data.DataContext) (*models.AuthMethodPolicy, error) {
	val, ok := dc.Get(data.DepAuthMethodPolicy)
	if !ok {
		return nil, fmt.Errorf("dependency %s missing", data.DepAuthMethodPolicy)
	}
	policy, ok := val.(*models.AuthMethodPolicy)
	if !ok {
		return nil, fmt.Errorf("dependency %s has unexpected type %T", data.DepAuthMethodPolicy, val)
	}
	return policy, nil
}
