package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

type Config struct {
	// MAINTAINER NOTE: If you add/change/remove config fields that affect audit
	// behavior, keep the CLI flags in internal/cli/audit.go in sync.
	Targeting Targeting
	Rules     Rules
	Output    Output
	Runtime   Runtime
}

type Targeting struct {
	// Tenant pins the audit to a specific Entra tenant ID (see --tenant).
	// Empty means the tenant of the active credential.
	Tenant string

	// Subscriptions is an explicit list of subscription IDs to audit (see
	// --subscriptions). Values may be provided as repeated flags and/or
	// comma-separated lists. Empty means every enabled subscription visible
	// to the credential.
	Subscriptions []string

	// Include filters subscriptions using Go path.Match style (see --include).
	// Patterns match the subscription display name or its ID.
	Include []string

	// Exclude filters subscriptions using Go path.Match style (see --exclude).
	// Same matching rules as Include.
	Exclude []string

	// MaxScopes limits how many subscriptions to audit (see --max-scopes).
	// 0 means unlimited. Tenant-level checks are not counted.
	MaxScopes int

	// DryRun resolves the scope set and prints the audit plan without
	// calling any resource APIs (see --dry-run).
	DryRun bool
}

type Rules struct {
	// Categories restricts the run to the named audit categories (see
	// --categories). Values may be repeated and/or comma-separated; matching
	// is case-insensitive. Empty means all categories.
	Categories []string

	// Selector selects which rules to run by ID.
	// Empty means all rules; otherwise a comma-separated ID list (see --rules).
	Selector string

	// Set provides per-rule option overrides from the CLI.
	// Entries are of the form ruleID.option=value (repeatable; see --set).
	// Values may contain commas, so entries are never comma-split.
	Set []string
}

type Output struct {
	// ConsoleFormat controls the human-facing console sink format (see --console-format).
	// Allowed values: text, json, ndjson.
	ConsoleFormat string

	// ConsoleFilterStatus filters console output by result status (see --console-filter-status).
	// Allowed values: PASS, FAIL, SKIPPED, ERROR.
	ConsoleFilterStatus []string

	// Report writes a Markdown report to this path (see --report).
	Report string

	// Out writes structured output to this path (see --out).
	Out string

	// OutFormat selects the format for --out (see --out-format).
	// Allowed values: json, ndjson. If empty, it is inferred from the --out file extension.
	OutFormat string

	// Emit writes an additional structured event stream to stdout (see --emit).
	// Allowed values: json, ndjson.
	Emit []string

	// NoConsole suppresses the console sink (see --no-console).
	// Use with --emit/--out/--report for machine-readable output.
	NoConsole bool
}

type Runtime struct {
	// Concurrency controls how many subscriptions are processed in parallel
	// (see --concurrency). Must be >= 1. Ignored when Sequential is set.
	Concurrency int

	// Sequential processes scopes one at a time in discovery order (see
	// --sequential). Useful for reproducing ordering-sensitive issues.
	Sequential bool

	// Timeout is the global timeout for the run (see --timeout).
	// Must be > 0.
	Timeout time.Duration

	// ScopeTimeout bounds dependency fetching for a single scope (see
	// --scope-timeout). Must be > 0.
	ScopeTimeout time.Duration

	// GraphTransport selects how Microsoft Graph is called (see --graph-transport).
	// Allowed values: sdk, rest.
	GraphTransport string

	// FailFast stops the audit on the first fatal error (see --fail-fast).
	FailFast bool

	// Verbose enables more detailed diagnostics (primarily for dependency/fetch
	// failures and HTTP tracing).
	Verbose bool
}

func New() *Config {
	return &Config{
		Output: Output{
			ConsoleFormat: "text",
		},
		Runtime: Runtime{
			Concurrency:    5,
			Timeout:        30 * time.Minute,
			ScopeTimeout:   5 * time.Minute,
			GraphTransport: "sdk",
		},
	}
}

func (c *Config) Validate() error {
	// Normalize comma-delimited list inputs.
	c.Targeting.Subscriptions = splitCommaList(c.Targeting.Subscriptions)
	c.Rules.Categories = splitCommaList(c.Rules.Categories)

	c.Targeting.Tenant = strings.TrimSpace(c.Targeting.Tenant)
	for i, s := range c.Targeting.Subscriptions {
		c.Targeting.Subscriptions[i] = strings.ToLower(strings.TrimSpace(s))
	}

	// Output validation
	c.Output.ConsoleFormat = normalizeEnumValue(c.Output.ConsoleFormat)
	if c.Output.ConsoleFormat == "" {
		return errors.New("--console-format must be one of: text, json, ndjson")
	}
	if c.Output.ConsoleFormat != "text" && c.Output.ConsoleFormat != "json" && c.Output.ConsoleFormat != "ndjson" {
		return fmt.Errorf("unsupported --console-format: %s (must be one of: text, json, ndjson)", c.Output.ConsoleFormat)
	}

	for _, emit := range c.Output.Emit {
		v := normalizeEnumValue(emit)
		if v == "" {
			return errors.New("--emit must be one of: json, ndjson")
		}
		if v != "json" && v != "ndjson" {
			return fmt.Errorf("unsupported --emit value: %s (must be one of: json, ndjson)", v)
		}
	}

	// Runtime validation
	if c.Targeting.MaxScopes < 0 {
		return errors.New("--max-scopes must be >= 0")
	}
	if c.Runtime.Concurrency <= 0 {
		return errors.New("--concurrency must be >= 1")
	}
	if c.Runtime.Timeout <= 0 {
		return errors.New("--timeout must be > 0")
	}
	if c.Runtime.ScopeTimeout <= 0 {
		return errors.New("--scope-timeout must be > 0")
	}

	c.Runtime.GraphTransport = normalizeEnumValue(c.Runtime.GraphTransport)
	if c.Runtime.GraphTransport == "" {
		c.Runtime.GraphTransport = "sdk"
	}
	if c.Runtime.GraphTransport != "sdk" && c.Runtime.GraphTransport != "rest" {
		return fmt.Errorf("unsupported --graph-transport: %s (must be one of: sdk, rest)", c.Runtime.GraphTransport)
	}

	if c.Output.Out != "" {
		c.Output.OutFormat = normalizeEnumValue(c.Output.OutFormat)
		if c.Output.OutFormat == "" {
			ext := strings.ToLower(filepath.Ext(c.Output.Out))
			switch ext {
			case ".json":
				c.Output.OutFormat = "json"
			case ".ndjson":
				c.Output.OutFormat = "ndjson"
			default:
				if ext == "" {
					return errors.New("cannot infer output format from file extension (missing extension); use --out-format")
				}
				return fmt.Errorf("cannot infer output format from file extension %q; use --out-format", ext)
			}
		} else {
			if c.Output.OutFormat != "json" && c.Output.OutFormat != "ndjson" {
				return fmt.Errorf("unsupported output format: %s", c.Output.OutFormat)
			}
		}
	}

	// Rule option syntax validation (rule.option=value)
	if len(c.Rules.Set) > 0 {
		if _, err := ParseRuleOptionAssignments(c.Rules.Set); err != nil {
			return err
		}
	}

	return nil
}

func normalizeEnumValue(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// ParseRuleOptionAssignments parses values of the form "ruleID.option=value".
//
// Notes:
// - Entries are repeatable flags; values may contain commas (e.g. pattern lists).
// - This validates syntax only (no validation of rule IDs or option names).
// - Empty values are allowed ("rule.option=").
func ParseRuleOptionAssignments(values []string) (map[string]map[string]string, error) {
	out := make(map[string]map[string]string)
	for _, raw := range values {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		left, value, ok := strings.Cut(raw, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --set entry %q: expected rule.option=value", raw)
		}
		left = strings.TrimSpace(left)
		value = strings.TrimSpace(value)
		ruleID, opt, ok := strings.Cut(left, ".")
		if !ok {
			return nil, fmt.Errorf("invalid --set entry %q: expected rule.option=value", raw)
		}
		ruleID = strings.TrimSpace(ruleID)
		opt = strings.TrimSpace(opt)
		if ruleID == "" || opt == "" {
			return nil, fmt.Errorf("invalid --set entry %q: expected non-empty rule and option", raw)
		}
		if _, ok := out[ruleID]; !ok {
			out[ruleID] = make(map[string]string)
		}
		out[ruleID][opt] = value
	}
	return out, nil
}

func splitCommaList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			p := strings.TrimSpace(part)
			if p == "" {
				continue
			}
			out = append(out, p)
		}
	}
	return out
}
