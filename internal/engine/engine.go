package engine

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"wafaudit/internal/azure"
	"wafaudit/internal/config"
	"wafaudit/internal/data"
	"wafaudit/internal/fetcher"
	"wafaudit/internal/graph"
	"wafaudit/internal/output"
	"wafaudit/internal/rules"
)

// categoryOrder is the fixed execution order for audit categories. Categories
// run strictly one after another; scopes inside a category run concurrently.
var categoryOrder = []string{
	rules.CategoryCompute,
	rules.CategoryNetwork,
	rules.CategoryDatabase,
	rules.CategoryIdentity,
	rules.CategoryGovernance,
}

func exitCodeForRun(fatal, partial, failures bool) int {
	// Exit code contract:
	// 0 = clean run, no failing findings
	// 1 = failing findings detected
	// 2 = partial failure (some rules/scopes errored)
	// 3 = fatal error (audit did not run to completion)
	if fatal {
		return 3
	}
	if partial {
		return 2
	}
	if failures {
		return 1
	}
	return 0
}

func setupOutputManager(cfg *config.Config) (*output.Manager, error) {
	outMgr := output.NewManager()

	// Console Sink
	if !cfg.Output.NoConsole {
		if err := outMgr.AddSink(output.NewConsoleSink(nil, cfg.Output.ConsoleFormat, cfg.Output.ConsoleFilterStatus)); err != nil {
			outMgr.Close()
			return nil, err
		}
	}

	// Emit Sinks (additional structured streams)
	for _, emit := range cfg.Output.Emit {
		es, err := output.NewEmitSink(os.Stdout, emit)
		if err != nil {
			outMgr.Close()
			return nil, err
		}
		if err := outMgr.AddSink(es); err != nil {
			outMgr.Close()
			return nil, err
		}
	}

	// File Sink
	if cfg.Output.Out != "" {
		fs, err := output.NewFileSink(cfg.Output.Out, cfg.Output.OutFormat)
		if err != nil {
			outMgr.Close()
			return nil, err
		}
		if err := outMgr.AddSink(fs); err != nil {
			outMgr.Close()
			return nil, err
		}
	}

	// Report Sink
	if cfg.Output.Report != "" {
		rs, err := output.NewReportSink(cfg.Output.Report)
		if err != nil {
			outMgr.Close()
			return nil, err
		}
		if err := outMgr.AddSink(rs); err != nil {
			outMgr.Close()
			return nil, err
		}
	}

	return outMgr, nil
}

// applyRuleOptionsIfAny applies per-rule configuration supplied via repeated
// --set flags.
//
// --set values are parsed as "ruleID.option=value" and routed to the matching
// rule's Configure method (only rules that implement rules.ConfigurableRule).
//
// Example:
//
//	wafaudit audit --set mg-archetype-aligned.patterns=corp,online
func applyRuleOptionsIfAny(cfg *config.Config) error {
	if len(cfg.Rules.Set) == 0 {
		return nil
	}

	assignments, err := config.ParseRuleOptionAssignments(cfg.Rules.Set)
	if err != nil {
		return err
	}

	all := rules.List()
	byID := make(map[string]rules.Rule, len(all))
	for _, r := range all {
		byID[r.ID()] = r
	}

	for ruleID, opts := range assignments {
		r, ok := byID[ruleID]
		if !ok {
			return fmt.Errorf("unknown rule ID %q", ruleID)
		}
		cr, ok := r.(rules.ConfigurableRule)
		if !ok {
			return fmt.Errorf("rule %q does not support options", ruleID)
		}

		allowed := make(map[string]struct{})
		for _, opt := range cr.Options() {
			allowed[opt.Name] = struct{}{}
		}
		for name := range opts {
			if _, ok := allowed[name]; !ok {
				return fmt.Errorf("unknown option %q for rule %q", name, ruleID)
			}
		}

		if err := cr.Configure(opts); err != nil {
			return fmt.Errorf("configure rule %q: %w", ruleID, err)
		}
	}

	return nil
}

// ruleResultIfDependenciesMissingOrFailed returns a synthetic rule status and
// message when required dependencies are missing or failed to fetch.
//
// A "dependency" is a required piece of Azure-derived data identified by a
// data.DependencyKey. Dependencies are fetched ahead of evaluation and placed
// into the scope's data.DataContext; if a required key is missing (or failed
// to fetch), the rule can't be evaluated normally.
func ruleResultIfDependenciesMissingOrFailed(dc data.DataContext, deps []data.DependencyKey, scopeDepErrs map[data.DependencyKey]error, verbose bool) (rules.Status, string, bool) {
	var missing []string
	var failedDepMessages []string
	hasSkippableFailure := false
	hasHardFailure := false

	for _, d := range deps {
		if _, ok := dc.Get(d); ok {
			continue
		}
		if scopeDepErrs != nil {
			if depErr := scopeDepErrs[d]; depErr != nil {
				pres := presentDependencyError(d, depErr, verbose)
				// If multiple deps fail, include the dependency key so the user can tell what failed.
				// If exactly one dep fails, emit only the message for a cleaner UX.
				failedDepMessages = append(failedDepMessages, fmt.Sprintf("%s: %s", d, pres.message))
				if pres.disposition == depErrDispositionSkip {
					hasSkippableFailure = true
				} else {
					hasHardFailure = true
				}
				continue
			}
		}
		missing = append(missing, string(d))
	}

	if len(failedDepMessages) > 0 {
		status := rules.StatusError
		if hasSkippableFailure && !hasHardFailure {
			status = rules.StatusSkipped
		}

		msg := strings.Join(failedDepMessages, "; ")
		if len(failedDepMessages) == 1 {
			if _, after, ok := strings.Cut(failedDepMessages[0], ": "); ok {
				msg = after
			}
		}
		return status, msg, true
	}

	if len(missing) > 0 {
		return rules.StatusError, fmt.Sprintf("Missing dependencies: %v", missing), true
	}

	return "", "", false
}

type Engine struct {
	Client *azure.Client
	Graph  graph.Client

	// schedulerExecute is a test seam for streaming execution.
	// If nil, Engine uses the real fetcher + scheduler.
	schedulerExecute func(ctx context.Context, cfg *config.Config, plan *AuditPlan) (<-chan ScopeExecutionResult, <-chan error)
}

func NewEngine(client *azure.Client, graphClient graph.Client) *Engine {
	return &Engine{
		Client: client,
		Graph:  graphClient,
	}
}

func (e *Engine) executePlanStream(ctx context.Context, cfg *config.Config, plan *AuditPlan) (<-chan ScopeExecutionResult, <-chan error) {
	if e.schedulerExecute != nil {
		return e.schedulerExecute(ctx, cfg, plan)
	}

	f := fetcher.NewFetcher(e.Client, e.Graph)

	scheduler, err := NewScheduler(f, cfg.Runtime.Concurrency, cfg.Runtime.ScopeTimeout, cfg.Runtime.Sequential)
	if err != nil {
		resCh := make(chan ScopeExecutionResult)
		errCh := make(chan error, 1)
		close(resCh)
		errCh <- err
		close(errCh)
		return resCh, errCh
	}
	return scheduler.Execute(ctx, plan)
}

// evaluateStreamingResults receives streamed per-scope execution results
// (fetched dependencies plus any fetch errors), validates that each rule's
// required dependencies are present, executes rule logic, and forwards
// results and events to the configured output sinks.
func evaluateStreamingResults(ctx context.Context, cfg *config.Config, category string, plan *AuditPlan, resCh <-chan ScopeExecutionResult, outMgr *output.Manager) (hasErrors bool, hasFailures bool) {
	for res := range resCh {
		sp := plan.ScopePlans[res.ScopeKey]
		if sp == nil {
			hasErrors = true
			continue
		}

		scopeLabel := sp.Scope.String()
		_ = outMgr.Write(output.Event{Type: "scope.started", Scope: scopeLabel, Category: category})

		// Total scope failure: every planned rule reports an error, once, and
		// the scope is flagged so downstream consumers can tell it apart from
		// a scope whose rules all ran.
		if res.Err != nil {
			for _, rule := range sp.Rules {
				r := rules.ErrorResult(rule, sp.Scope, "", "", fmt.Sprintf("Scope not evaluated: %v", res.Err))
				r.Raw = rules.MarshalRaw(res.Err.Error())
				_ = outMgr.Write(r)
			}
			_ = outMgr.Write(output.Event{Type: "scope.failed", Scope: scopeLabel, Category: category})
			hasErrors = true
			continue
		}

		dc := res.Data
		if dc == nil {
			dc = data.NewMapDataContext(map[data.DependencyKey]any{})
		}

		for _, rule := range sp.Rules {
			deps, err := rule.Dependencies(ctx, sp.Scope)
			if err != nil {
				_ = outMgr.Write(rules.ErrorResult(rule, sp.Scope, "", "", fmt.Sprintf("Failed to determine dependencies: %v", err)))
				hasErrors = true
				continue
			}

			if status, msg, ok := ruleResultIfDependenciesMissingOrFailed(dc, deps, res.DepErrs, cfg.Runtime.Verbose); ok {
				synthetic := rules.NewResult(rule, sp.Scope, "", "", status, nil, nil)
				synthetic.Message = msg
				_ = outMgr.Write(synthetic)
				if status == rules.StatusError {
					hasErrors = true
				}
				continue
			}

			// Enforce the rules contract: a rule must not read dependency keys
			// it did not declare in Dependencies(). This prevents rules from
			// implicitly relying on other rules' data.
			tracked := data.NewTrackingDataContext(dc)
			ruleResults, err := rule.Evaluate(ctx, sp.Scope, tracked)
			undeclared := undeclaredDependencyAccesses(tracked.AccessedKeys(), deps)
			if len(undeclared) > 0 {
				msg := fmt.Sprintf("Rule accessed undeclared dependencies: %s. Declare them in Dependencies().", strings.Join(undeclared, ", "))
				if err != nil {
					msg = fmt.Sprintf("%s (evaluation error: %v)", msg, err)
				}
				_ = outMgr.Write(rules.ErrorResult(rule, sp.Scope, "", "", msg))
				hasErrors = true
				continue
			}
			if err != nil {
				r := rules.ErrorResult(rule, sp.Scope, "", "", fmt.Sprintf("Evaluation failed: %v", err))
				r.Raw = rules.MarshalRaw(err.Error())
				_ = outMgr.Write(r)
				hasErrors = true
				continue
			}

			for _, rr := range ruleResults {
				// Backfill identifiers so output stays consistent and
				// well-formed. Rules usually care about status, operands and
				// message; the engine already knows the rule and scope, so it
				// stamps them here to keep sinks (ndjson/report/etc) happy.
				if rr.TestName == "" {
					rr.TestName = rule.ID()
				}
				if rr.Category == "" {
					rr.Category = rule.Category()
				}
				if rr.SubscriptionID == "" {
					rr.SubscriptionID = sp.Scope.SubscriptionID
				}

				switch rr.Status {
				case rules.StatusFail:
					hasFailures = true
				case rules.StatusError:
					hasErrors = true
				}

				_ = outMgr.Write(rr)
			}
		}

		_ = outMgr.Write(output.Event{Type: "scope.finished", Scope: scopeLabel, Category: category})
	}

	return hasErrors, hasFailures
}

func undeclaredDependencyAccesses(accessed []data.DependencyKey, declared []data.DependencyKey) []string {
	if len(accessed) == 0 {
		return nil
	}
	decl := make(map[data.DependencyKey]struct{}, len(declared))
	for _, d := range declared {
		decl[d] = struct{}{}
	}

	var out []string
	for _, k := range accessed {
		if _, ok := decl[k]; ok {
			continue
		}
		out = append(out, string(k))
	}
	sort.Strings(out)
	return out
}

// writeRemainingQuota reports how much of the ARM subscription-reads quota
// the run left unspent. Only meaningful for clients built by azure.NewClient;
// a zero client has no budget and produces no output.
func writeRemainingQuota(w io.Writer, client *azure.Client) {
	if client == nil {
		return
	}
	b := client.Budget()
	if b == nil {
		return
	}
	fmt.Fprintf(w, "ARM read quota remaining: %d\n", b.Remaining())
}

func (e *Engine) discoverScopes(ctx context.Context, cfg *config.Config) (azure.Scope, []azure.Scope, bool) {
	if !cfg.Output.NoConsole {
		fmt.Fprintln(os.Stderr, "Discovering subscriptions...")
	}
	tenant, scopes, err := ResolveScopes(ctx, e.Client, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error discovering subscriptions: %v\n", err)
		return azure.Scope{}, nil, false
	}
	return tenant, scopes, true
}

func maybeDryRun(cfg *config.Config, tenant azure.Scope, scopes []azure.Scope) (int, bool) {
	if !cfg.Targeting.DryRun {
		return 0, false
	}

	names := make([]string, 0, len(scopes))
	for _, s := range scopes {
		names = append(names, s.String())
	}
	sort.Strings(names)
	fmt.Printf("Tenant: %s\n", tenant.TenantID)
	fmt.Println("Resolved subscriptions:")
	for _, n := range names {
		fmt.Println(n)
	}
	return 0, true
}

func resolveAndConfigureRules(cfg *config.Config) ([]rules.Rule, bool) {
	if !cfg.Output.NoConsole {
		fmt.Fprintln(os.Stderr, "Resolving rules...")
	}
	selectedRules, err := rules.Resolve(cfg.Rules.Selector)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error resolving rules: %v\n", err)
		return nil, false
	}
	selectedRules, err = filterRulesByCategories(selectedRules, cfg.Rules.Categories)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error resolving rules: %v\n", err)
		return nil, false
	}

	if err := applyRuleOptionsIfAny(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error configuring rules: %v\n", err)
		return nil, false
	}

	if !cfg.Output.NoConsole {
		fmt.Fprintf(os.Stderr, "Selected %d rules.\n", len(selectedRules))
	}
	return selectedRules, true
}

func filterRulesByCategories(selected []rules.Rule, categories []string) ([]rules.Rule, error) {
	if len(categories) == 0 {
		return selected, nil
	}

	known := make(map[string]struct{}, len(categoryOrder))
	for _, c := range categoryOrder {
		known[strings.ToLower(c)] = struct{}{}
	}
	wanted := make(map[string]struct{}, len(categories))
	for _, c := range categories {
		lc := strings.ToLower(strings.TrimSpace(c))
		if _, ok := known[lc]; !ok {
			return nil, fmt.Errorf("unknown category %q (must be one of: %s)", c, strings.Join(categoryOrder, ", "))
		}
		wanted[lc] = struct{}{}
	}

	var out []rules.Rule
	for _, r := range selected {
		if _, ok := wanted[strings.ToLower(r.Category())]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func buildPlanForCategory(ctx context.Context, tenant azure.Scope, scopes []azure.Scope, catRules []rules.Rule) (*AuditPlan, bool) {
	plan := NewAuditPlan()
	if err := plan.AddScope(ctx, tenant, catRules); err != nil {
		fmt.Fprintf(os.Stderr, "Error adding tenant scope to plan: %v\n", err)
		return nil, false
	}
	for _, scope := range scopes {
		if err := plan.AddScope(ctx, scope, catRules); err != nil {
			fmt.Fprintf(os.Stderr, "Error adding scope %s to plan: %v\n", scope, err)
			return nil, false
		}
	}
	return plan, true
}

func (e *Engine) Run(ctx context.Context, cfg *config.Config) int {
	tenant, scopes, ok := e.discoverScopes(ctx, cfg)
	if !ok {
		return exitCodeForRun(true, false, false)
	}

	scopes = FilterScopes(scopes, cfg)
	if !cfg.Output.NoConsole {
		fmt.Fprintf(os.Stderr, "Found %d subscriptions.\n", len(scopes))
	}

	if code, ok := maybeDryRun(cfg, tenant, scopes); ok {
		return code
	}

	selectedRules, ok := resolveAndConfigureRules(cfg)
	if !ok {
		return exitCodeForRun(true, false, false)
	}

	outMgr, err := setupOutputManager(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output sinks: %v\n", err)
		return exitCodeForRun(true, false, false)
	}
	defer outMgr.Close()

	_ = outMgr.Write(output.Event{Type: "run.started", Scopes: len(scopes) + 1, Rules: len(selectedRules)})

	byCategory := make(map[string][]rules.Rule)
	for _, r := range selectedRules {
		byCategory[r.Category()] = append(byCategory[r.Category()], r)
	}

	var hasErrors, hasFailures, fatal bool
	for _, category := range categoryOrder {
		catRules := byCategory[category]
		if len(catRules) == 0 {
			continue
		}

		plan, ok := buildPlanForCategory(ctx, tenant, scopes, catRules)
		if !ok {
			fatal = true
			break
		}
		if len(plan.ScopePlans) == 0 {
			continue
		}

		_ = outMgr.Write(output.Event{Type: "category.started", Category: category})

		resCh, errCh := e.executePlanStream(ctx, cfg, plan)

		catErrors, catFailures := evaluateStreamingResults(ctx, cfg, category, plan, resCh, outMgr)
		hasErrors = hasErrors || catErrors
		hasFailures = hasFailures || catFailures

		var schedErr error
		// Drain scheduler errors; we only need to know whether any fatal error occurred (keep one non-nil error).
		for err := range errCh {
			if err != nil {
				schedErr = err
			}
		}
		if schedErr != nil {
			fmt.Fprintf(os.Stderr, "Error executing category %s: %v\n", category, schedErr)
			fatal = true
			break
		}

		if cfg.Runtime.FailFast && (catErrors || catFailures) {
			break
		}
	}

	if cfg.Runtime.Verbose {
		writeRemainingQuota(os.Stderr, e.Client)
	}

	code := exitCodeForRun(fatal, hasErrors, hasFailures)
	_ = outMgr.Write(output.Event{Type: "run.finished", ExitCode: code})
	return code
}
