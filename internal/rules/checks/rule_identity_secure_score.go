package checks

import (
	"context"
	"fmt"
	"math"

	"wafaudit/internal/azure"
	"wafaudit/internal/data"
	"wafaudit/internal/data/models"
	"wafaudit/internal/rules"
)

const minSecureScorePercent = 70.0

// IdentitySecureScoreRule checks the tenant's Microsoft Secure Score against
// a minimum percentage. The threshold is inclusive: exactly 70% passes.
type IdentitySecureScoreRule struct{}

func init() {
	rules.Register(&IdentitySecureScoreRule{})
}

func (r *IdentitySecureScoreRule) ID() string {
	return "identity-secure-score"
}

func (r *IdentitySecureScoreRule) Title() string {
	return "Secure Score Above Minimum"
}

func (r *IdentitySecureScoreRule) Description() string {
	return fmt.Sprintf("Verifies that the tenant's most recent secure score is at least %.0f%% of the "+
		"achievable points.", minSecureScorePercent)
}

func (r *IdentitySecureScoreRule) Category() string {
	return rules.CategoryIdentity
}

func (r *IdentitySecureScoreRule) SubCategory() string {
	return "Security Posture"
}

func (r *IdentitySecureScoreRule) Pillar() string {
	return rules.PillarSecurity
}

func (r *IdentitySecureScoreRule) Severity() rules.Severity {
	return rules.SeverityHigh
}

func (r *IdentitySecureScoreRule) Level() data.FetchScope {
	return data.ScopeTenant
}

func (r *IdentitySecureScoreRule) Dependencies(ctx context.Context, scope azure.Scope) ([]data.DependencyKey, error) {
	return []data.DependencyKey{
		data.DepSecureScore,
	}, nil
}

func (r *IdentitySecureScoreRule) Evaluate(ctx context.Context, scope azure.Scope, dc data.DataContext) ([]rules.Result, error) {
	val, ok := dc.Get(data.DepSecureScore)
	if !ok {
		return nil, fmt.Errorf("dependency %s missing", data.DepSecureScore)
	}
	score, ok := val.(*models.SecureScore)
	if !ok {
		return nil, fmt.Errorf("dependency %s has unexpected type %T", data.DepSecureScore, val)
	}

	expected := fmt.Sprintf("%.0f%%", minSecureScorePercent)
	// Truncate the rendered percentage so a fractional score just under the
	// threshold never displays as the threshold next to a failing verdict.
	actual := fmt.Sprintf("%.0f%%", math.Floor(score.Percent()))
	if score.Percent() >= minSecureScorePercent {
		return []rules.Result{rules.WithRaw(rules.PassResult(r, scope, "", "secureScore", expected, actual), score)}, nil
	}
	return []rules.Result{rules.WithRaw(rules.FailResult(r, scope, "", "secureScore", expected, actual,
		fmt.Sprintf("Secure score is %s, below the %s minimum", score, expected)), score)}, nil
}
