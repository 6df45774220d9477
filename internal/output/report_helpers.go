package output

import (
	"fmt"
	"sort"
	"strings"

	"wafaudit/internal/rules"
)

// Risk areas group rule findings into the themes the report leads with.
const (
	RiskAreaSinglePoints   = "Workloads run without zone or set redundancy"
	RiskAreaUnrecoverable  = "Workloads have no disaster recovery path"
	RiskAreaDataLoss       = "Databases cannot fail over to another region"
	RiskAreaWeakIdentity   = "Identity controls below recommended posture"
	RiskAreaLooseGoverance = "Subscriptions sit outside the governance hierarchy"
	RiskAreaOther          = "Other"
)

var ruleRiskAreas = map[string]string{
	"vm-availability-zones":  RiskAreaSinglePoints,
	"vmss-zone-spread":       RiskAreaSinglePoints,
	"vmss-automatic-repairs": RiskAreaSinglePoints,
	"lb-standard-sku":        RiskAreaSinglePoints,
	"lb-backend-redundancy":  RiskAreaSinglePoints,

	"vm-asr-protected": RiskAreaUnrecoverable,

	"sql-geo-replication": RiskAreaDataLoss,
	"sql-zone-redundant":  RiskAreaDataLoss,

	"identity-authenticator-enabled": RiskAreaWeakIdentity,
	"identity-fido2-enabled":         RiskAreaWeakIdentity,
	"identity-secure-score":          RiskAreaWeakIdentity,

	"mg-hierarchy-depth":        RiskAreaLooseGoverance,
	"mg-archetype-aligned":      RiskAreaLooseGoverance,
	"mg-subscriptions-parented": RiskAreaLooseGoverance,
}

var riskAreaDescription = map[string]string{
	RiskAreaSinglePoints:   "A single zone or host failure takes the workload down with it.",
	RiskAreaUnrecoverable:  "Without Site Recovery protection, a regional outage means rebuilding from scratch.",
	RiskAreaDataLoss:       "A regional outage loses committed data when no geo-secondary exists.",
	RiskAreaWeakIdentity:   "Weak authentication posture is the most common entry point for account takeover.",
	RiskAreaLooseGoverance: "Unparented subscriptions inherit no policy, budget, or RBAC guardrails.",
}

func riskArea(ruleID string) string {
	if area, ok := ruleRiskAreas[ruleID]; ok {
		return area
	}
	return RiskAreaOther
}

// normalizeErrorReason collapses whitespace, strips rule prefixes, and keeps
// blocker groups readable.
func normalizeErrorReason(errText string) string {
	s := strings.TrimSpace(errText)
	fields := strings.Fields(s)
	s = strings.Join(fields, " ")

	if idx := strings.Index(s, ": "); idx != -1 {
		// Heuristic: if the prefix looks like a dependency key or package
		// path, strip it. e.g. "sub.sql_databases: ..."
		prefix := s[:idx]
		if strings.Contains(prefix, ".") || strings.Contains(prefix, "_") {
			s = s[idx+2:]
		}
	}

	if len(s) > 120 {
		return s[:117] + "..."
	}
	return s
}

type scopeStats struct {
	Scope   string
	Pass    int
	Fail    int
	Skipped int
	Error   int
	Results []rules.Result
}

func (s *scopeStats) KeyRisks() []string {
	var risks []string
	failedRules := make(map[string]bool)
	for _, res := range s.Results {
		if res.Status == rules.StatusFail {
			failedRules[res.TestName] = true
		}
	}

	check := func(ruleID, label string) {
		if len(risks) >= 3 {
			return
		}
		if failedRules[ruleID] {
			risks = append(risks, label)
		}
	}

	check("vm-asr-protected", "VMs without disaster recovery")
	check("vm-availability-zones", "VMs outside availability zones")
	check("sql-geo-replication", "Databases without geo-replica")
	check("lb-backend-redundancy", "Load balancers with thin backends")
	check("sql-zone-redundant", "Databases pinned to one zone")
	check("vmss-zone-spread", "Scale sets in a single zone")
	check("lb-standard-sku", "Basic SKU load balancers")
	check("vmss-automatic-repairs", "Scale sets without auto-repair")

	return risks
}

type riskAreaStats struct {
	Name           string
	ScopesWithFail int
	FailsByRule    map[string]int
	Representative []string // Top 3 rule IDs
}

func computeRiskAreaStats(results []rules.Result) []*riskAreaStats {
	areas := []string{
		RiskAreaUnrecoverable,
		RiskAreaSinglePoints,
		RiskAreaDataLoss,
		RiskAreaWeakIdentity,
		RiskAreaLooseGoverance,
	}

	stats := make(map[string]*riskAreaStats)
	scopeFailsByArea := make(map[string]map[string]bool)
	for _, a := range areas {
		stats[a] = &riskAreaStats{Name: a, FailsByRule: make(map[string]int)}
		scopeFailsByArea[a] = make(map[string]bool)
	}

	for _, r := range results {
		if r.Status != rules.StatusFail {
			continue
		}
		area := riskArea(r.TestName)
		if s, ok := stats[area]; ok {
			s.FailsByRule[r.TestName]++
			scopeFailsByArea[area][scopeLabel(r)] = true
		}
	}

	var out []*riskAreaStats
	for _, a := range areas {
		s := stats[a]
		s.ScopesWithFail = len(scopeFailsByArea[a])

		type ruleCount struct {
			ID    string
			Count int
		}
		var rc []ruleCount
		for id, count := range s.FailsByRule {
			rc = append(rc, ruleCount{id, count})
		}
		sort.Slice(rc, func(i, j int) bool {
			if rc[i].Count != rc[j].Count {
				return rc[i].Count > rc[j].Count
			}
			return rc[i].ID < rc[j].ID
		})

		limit := 3
		if len(rc) < limit {
			limit = len(rc)
		}
		for i := 0; i < limit; i++ {
			s.Representative = append(s.Representative, rc[i].ID)
		}

		if s.ScopesWithFail > 0 {
			out = append(out, s)
		}
	}
	return out
}

type auditStats struct {
	FullyAudited     int
	PartiallyAudited int
	Blocked          int
	Blockers         []blockerInfo
}

type blockerInfo struct {
	Reason        string
	ScopeCount    int
	ExampleScopes []string
	ImpactedRules []string
}

func computeAuditStats(perScope map[string]*scopeStats) *auditStats {
	s := &auditStats{}

	blockedGroups := make(map[string][]string)
	groupImpactedRules := make(map[string]map[string]int)

	for _, ss := range perScope {
		totalEvaluated := ss.Pass + ss.Fail + ss.Error
		if ss.Error == 0 || totalEvaluated == 0 {
			s.FullyAudited++
			continue
		}

		isBlocked := float64(ss.Error)/float64(totalEvaluated) >= 0.5
		if !isBlocked {
			s.PartiallyAudited++
			continue
		}

		s.Blocked++

		// Find primary blocker reason for this scope, with deterministic
		// tie-breaking.
		reasons := make(map[string]int)
		for _, r := range ss.Results {
			if r.Status == rules.StatusError {
				reasons[normalizeErrorReason(r.Message)]++
			}
		}

		primaryReason := "Unknown coverage blocker"
		maxCount := 0
		var sortedReasons []string
		for r := range reasons {
			sortedReasons = append(sortedReasons, r)
		}
		sort.Strings(sortedReasons)
		for _, r := range sortedReasons {
			if reasons[r] > maxCount {
				maxCount = reasons[r]
				primaryReason = r
			}
		}

		blockedGroups[primaryReason] = append(blockedGroups[primaryReason], ss.Scope)

		if _, ok := groupImpactedRules[primaryReason]; !ok {
			groupImpactedRules[primaryReason] = make(map[string]int)
		}
		for _, r := range ss.Results {
			if r.Status == rules.StatusError {
				groupImpactedRules[primaryReason][r.TestName]++
			}
		}
	}

	for reason, scopes := range blockedGroups {
		bi := blockerInfo{
			Reason:     reason,
			ScopeCount: len(scopes),
		}

		sort.Strings(scopes)
		if len(scopes) > 5 {
			bi.ExampleScopes = scopes[:5]
		} else {
			bi.ExampleScopes = scopes
		}

		type rc struct {
			ID    string
			Count int
		}
		var rcs []rc
		for id, count := range groupImpactedRules[reason] {
			rcs = append(rcs, rc{id, count})
		}
		sort.Slice(rcs, func(i, j int) bool {
			if rcs[i].Count != rcs[j].Count {
				return rcs[i].Count > rcs[j].Count
			}
			return rcs[i].ID < rcs[j].ID
		})
		limit := 5
		if len(rcs) < limit {
			limit = len(rcs)
		}
		for i := 0; i < limit; i++ {
			bi.ImpactedRules = append(bi.ImpactedRules, rcs[i].ID)
		}

		s.Blockers = append(s.Blockers, bi)
	}

	sort.Slice(s.Blockers, func(i, j int) bool {
		if s.Blockers[i].ScopeCount != s.Blockers[j].ScopeCount {
			return s.Blockers[i].ScopeCount > s.Blockers[j].ScopeCount
		}
		return s.Blockers[i].Reason < s.Blockers[j].Reason
	})

	return s
}

func computeRiskScore(ss *scopeStats) int {
	score := ss.Fail*10 + ss.Error*3

	hasFail := func(ruleID string) bool {
		for _, r := range ss.Results {
			if r.TestName == ruleID && r.Status == rules.StatusFail {
				return true
			}
		}
		return false
	}

	if hasFail("vm-asr-protected") {
		score += 30
	}
	if hasFail("sql-geo-replication") {
		score += 30
	}
	if hasFail("vm-availability-zones") {
		score += 25
	}
	if hasFail("lb-backend-redundancy") {
		score += 20
	}
	if hasFail("sql-zone-redundant") {
		score += 15
	}
	if hasFail("vmss-zone-spread") {
		score += 10
	}

	return score
}

func topRiskiestScopes(perScope map[string]*scopeStats, n int) []*scopeStats {
	var all []*scopeStats
	for _, ss := range perScope {
		all = append(all, ss)
	}

	sort.Slice(all, func(i, j int) bool {
		s1 := computeRiskScore(all[i])
		s2 := computeRiskScore(all[j])
		if s1 != s2 {
			return s1 > s2
		}
		return all[i].Scope < all[j].Scope
	})

	if len(all) > n {
		return all[:n]
	}
	return all
}

func scopeLabel(r rules.Result) string {
	if r.SubscriptionID != "" {
		return r.SubscriptionID
	}
	return "tenant"
}

func formatScopeList(scopes []string, max int) string {
	if len(scopes) == 0 {
		return ""
	}
	if len(scopes) <= max {
		return fmt.Sprintf("%d subscriptions (%s)", len(scopes), strings.Join(scopes, ", "))
	}
	return fmt.Sprintf("%d subscriptions (%s, +%d more)", len(scopes), strings.Join(scopes[:max], ", "), len(scopes)-max)
}
