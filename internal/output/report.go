package output

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"wafaudit/internal/rules"
)

type ReportSink struct {
	path         string
	file         *os.File
	mu           sync.Mutex
	results      []rules.Result
	scopes       map[string]struct{}
	exitCode     int
	haveExitCode bool
}

func NewReportSink(path string) (*ReportSink, error) {
	if path == "" {
		return nil, fmt.Errorf("report path required")
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create report file: %w", err)
	}

	return &ReportSink{
		path:   path,
		file:   f,
		scopes: make(map[string]struct{}),
	}, nil
}

func (s *ReportSink) Write(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch t := v.(type) {
	case rules.Result:
		s.results = append(s.results, t)
		s.scopes[scopeLabel(t)] = struct{}{}
	case Event:
		if t.Scope != "" {
			s.scopes[t.Scope] = struct{}{}
		}
		if t.Type == "run.finished" {
			s.exitCode = t.ExitCode
			s.haveExitCode = true
		}
	}
	return nil
}

func (s *ReportSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Deterministic scope list (collected from lifecycle events and results).
	var scopes []string
	for scope := range s.scopes {
		scopes = append(scopes, scope)
	}
	sort.Strings(scopes)

	// 1. Aggregate Data
	perScope := make(map[string]*scopeStats)
	for _, scope := range scopes {
		perScope[scope] = &scopeStats{Scope: scope}
	}

	var fails, errs []rules.Result
	for _, r := range s.results {
		label := scopeLabel(r)
		if _, ok := perScope[label]; !ok {
			perScope[label] = &scopeStats{Scope: label}
		}
		ss := perScope[label]
		ss.Results = append(ss.Results, r)
		switch r.Status {
		case rules.StatusPass:
			ss.Pass++
		case rules.StatusFail:
			ss.Fail++
			fails = append(fails, r)
		case rules.StatusSkipped:
			ss.Skipped++
		case rules.StatusError:
			ss.Error++
			errs = append(errs, r)
		}
	}

	areaStats := computeRiskAreaStats(s.results)
	audit := computeAuditStats(perScope)

	// 2. Build Report
	var b strings.Builder
	b.WriteString("# Well-Architected Audit Report\n\n")

	// --- Executive Risk Brief ---
	countFails := func(ruleID string) int {
		n := 0
		for _, r := range s.results {
			if r.TestName == ruleID && r.Status == rules.StatusFail {
				n++
			}
		}
		return n
	}

	unprotectedVMs := countFails("vm-asr-protected")
	zonelessVMs := countFails("vm-availability-zones")
	unreplicatedDBs := countFails("sql-geo-replication")
	identityFails := countFails("identity-authenticator-enabled") +
		countFails("identity-fido2-enabled") +
		countFails("identity-secure-score")
	orphanSubs := countFails("mg-subscriptions-parented")

	b.WriteString("### Executive Risk Brief\n\n")
	b.WriteString("**What the audit found**\n")
	if unprotectedVMs > 0 {
		b.WriteString(fmt.Sprintf("- **%d VMs have no Site Recovery protection.**\n", unprotectedVMs))
	}
	if zonelessVMs > 0 {
		b.WriteString(fmt.Sprintf("- **%d VMs run outside availability zones.**\n", zonelessVMs))
	}
	if unreplicatedDBs > 0 {
		b.WriteString(fmt.Sprintf("- **%d SQL databases have no geo-replica.**\n", unreplicatedDBs))
	}
	if identityFails > 0 {
		b.WriteString(fmt.Sprintf("- **%d identity posture checks are failing at tenant level.**\n", identityFails))
	}
	if orphanSubs > 0 {
		b.WriteString(fmt.Sprintf("- **%d subscriptions sit outside the management group hierarchy.**\n", orphanSubs))
	}
	if unprotectedVMs == 0 && zonelessVMs == 0 && unreplicatedDBs == 0 && identityFails == 0 && orphanSubs == 0 {
		b.WriteString("- No critical high-level risks found.\n")
	}

	b.WriteString("\n**Why this matters**\n")
	if unprotectedVMs > 0 || unreplicatedDBs > 0 {
		b.WriteString("- A regional outage is unrecoverable for workloads with no replication target.\n")
	}
	if zonelessVMs > 0 {
		b.WriteString("- A single zone failure takes down every instance pinned to it.\n")
	}
	if identityFails > 0 {
		b.WriteString("- Weak authentication posture is the most common entry point for account takeover.\n")
	}
	if orphanSubs > 0 {
		b.WriteString("- Unparented subscriptions inherit no policy, budget, or RBAC guardrails.\n")
	}
	if unprotectedVMs == 0 && zonelessVMs == 0 && unreplicatedDBs == 0 && identityFails == 0 && orphanSubs == 0 {
		b.WriteString("- Continuous auditing keeps the reliability and security posture from drifting.\n")
	}

	b.WriteString("\n**What to do first**\n")
	if unprotectedVMs > 0 {
		b.WriteString("- Enroll production VMs in Azure Site Recovery, starting with the most exposed subscriptions.\n")
	}
	if unreplicatedDBs > 0 {
		b.WriteString("- Add geo-secondaries for production databases.\n")
	}
	if zonelessVMs > 0 {
		b.WriteString("- Redeploy single-instance VMs into availability zones or availability sets.\n")
	}
	if identityFails > 0 {
		b.WriteString("- Enable Microsoft Authenticator and FIDO2 tenant-wide and work down the secure score recommendations.\n")
	}
	if unprotectedVMs == 0 && unreplicatedDBs == 0 && zonelessVMs == 0 && identityFails == 0 {
		if len(fails) > 0 {
			b.WriteString("- Review and remediate the remaining findings starting with the riskiest subscriptions.\n")
		} else {
			b.WriteString("- No immediate actions required.\n")
		}
	}
	b.WriteString("\n")

	// --- Top Risk Areas ---
	b.WriteString("### Top Risk Areas\n\n")
	if len(areaStats) == 0 {
		b.WriteString("- No top risk areas found.\n")
	} else {
		b.WriteString("| Risk Area | Subscriptions | Representative Rules |\n")
		b.WriteString("| --- | ---: | --- |\n")
		for _, as := range areaStats {
			desc := riskAreaDescription[as.Name]
			nameWithDesc := fmt.Sprintf("**%s**<br>_%s_", as.Name, desc)
			b.WriteString(fmt.Sprintf("| %s | %d | %s |\n", nameWithDesc, as.ScopesWithFail, strings.Join(as.Representative, ", ")))
		}
	}
	b.WriteString("\n")

	// --- Top Riskiest Subscriptions ---
	b.WriteString("## Top Riskiest Subscriptions\n\n")
	riskiest := topRiskiestScopes(perScope, 5)
	if len(riskiest) == 0 {
		b.WriteString("No risky subscriptions found.\n\n")
	} else {
		b.WriteString("| Scope | FAIL | ERROR | Key Risks |\n")
		b.WriteString("| --- | ---: | ---: | --- |\n")
		for _, ss := range riskiest {
			b.WriteString(fmt.Sprintf("| %s | %d | %d | %s |\n", ss.Scope, ss.Fail, ss.Error, strings.Join(ss.KeyRisks(), ", ")))
		}
		b.WriteString("\n")
	}

	// --- Findings by Category ---
	b.WriteString("## Findings by Category\n\n")
	writeCategoryBreakdown(&b, s.results)

	// --- Overall Posture ---
	b.WriteString("## Overall Posture\n\n")
	b.WriteString(fmt.Sprintf("The audit covered %d scopes. ", len(scopes)))
	b.WriteString("See the Executive Risk Brief above for critical counts.\n\n")

	var priorities []string
	if unprotectedVMs > 0 || unreplicatedDBs > 0 {
		priorities = append(priorities, "establish disaster recovery for unprotected workloads")
	}
	if zonelessVMs > 0 {
		priorities = append(priorities, "spread single-instance workloads across zones")
	}
	if identityFails > 0 {
		priorities = append(priorities, "harden tenant authentication")
	}
	if audit.Blocked > 0 {
		priorities = append(priorities, "resolve audit blockers")
	}
	if len(priorities) > 0 {
		limit := 2
		if len(priorities) < limit {
			limit = len(priorities)
		}
		b.WriteString(fmt.Sprintf("Immediate priority should be to %s.\n\n", strings.Join(priorities[:limit], " and ")))
	} else {
		b.WriteString("Maintain the current posture.\n\n")
	}

	// --- Audit Coverage ---
	b.WriteString("## Audit Coverage\n\n")
	b.WriteString("The audit does not guess when coverage is incomplete. Coverage blockers are reported as ERROR to avoid false PASS results.\n")
	b.WriteString("Blocked coverage creates blind spots that can hide drift; resolving blockers is critical for an accurate picture.\n\n")

	if len(audit.Blockers) == 0 {
		b.WriteString("No blockers found.\n\n")
	} else {
		b.WriteString("### Blockers\n")
		for _, bInfo := range audit.Blockers {
			scopeList := formatScopeList(bInfo.ExampleScopes, 3)
			b.WriteString(fmt.Sprintf("- **%s**: %s", bInfo.Reason, scopeList))
			if len(bInfo.ImpactedRules) > 0 {
				b.WriteString(fmt.Sprintf(" (impacted rules: %s)", strings.Join(bInfo.ImpactedRules, ", ")))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	b.WriteString(fmt.Sprintf("Fully audited: %d, partially audited: %d, blocked: %d\n\n", audit.FullyAudited, audit.PartiallyAudited, audit.Blocked))

	if s.haveExitCode {
		b.WriteString(fmt.Sprintf("Exit code: %d\n", s.exitCode))
	}

	if _, err := s.file.WriteString(b.String()); err != nil {
		_ = s.file.Close()
		return err
	}
	return s.file.Close()
}

func writeCategoryBreakdown(b *strings.Builder, results []rules.Result) {
	type catCount struct {
		Pass, Fail, Skipped, Error int
	}
	byCategory := make(map[string]*catCount)
	var order []string
	for _, r := range results {
		cat := r.Category
		if cat == "" {
			cat = "Uncategorized"
		}
		cc, ok := byCategory[cat]
		if !ok {
			cc = &catCount{}
			byCategory[cat] = cc
			order = append(order, cat)
		}
		switch r.Status {
		case rules.StatusPass:
			cc.Pass++
		case rules.StatusFail:
			cc.Fail++
		case rules.StatusSkipped:
			cc.Skipped++
		case rules.StatusError:
			cc.Error++
		}
	}

	if len(order) == 0 {
		b.WriteString("No findings.\n\n")
		return
	}

	b.WriteString("| Category | PASS | FAIL | SKIPPED | ERROR |\n")
	b.WriteString("| --- | ---: | ---: | ---: | ---: |\n")
	for _, cat := range order {
		cc := byCategory[cat]
		b.WriteString(fmt.Sprintf("| %s | %d | %d | %d | %d |\n", cat, cc.Pass, cc.Fail, cc.Skipped, cc.Error))
	}
	b.WriteString("\n")
}
