package config

import (
	"strings"
	"testing"
	"time"
)

func TestValidateDefaults(t *testing.T) {
	cfg := New()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() on defaults: %v", err)
	}
	if cfg.Output.ConsoleFormat != "text" {
		t.Errorf("ConsoleFormat = %q, want text", cfg.Output.ConsoleFormat)
	}
	if cfg.Runtime.Concurrency != 5 {
		t.Errorf("Concurrency = %d, want 5", cfg.Runtime.Concurrency)
	}
	if cfg.Runtime.GraphTransport != "sdk" {
		t.Errorf("GraphTransport = %q, want sdk", cfg.Runtime.GraphTransport)
	}
}

func TestValidateNormalizesLists(t *testing.T) {
	cfg := New()
	cfg.Targeting.Subscriptions = []string{"SUB-A, Sub-B", " sub-c "}
	cfg.Rules.Categories = []string{"Compute,Network", "Identity"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	wantSubs := []string{"sub-a", "sub-b", "sub-c"}
	if len(cfg.Targeting.Subscriptions) != len(wantSubs) {
		t.Fatalf("Subscriptions = %v, want %v", cfg.Targeting.Subscriptions, wantSubs)
	}
	for i, want := range wantSubs {
		if cfg.Targeting.Subscriptions[i] != want {
			t.Errorf("Subscriptions[%d] = %q, want %q", i, cfg.Targeting.Subscriptions[i], want)
		}
	}
	if len(cfg.Rules.Categories) != 3 {
		t.Errorf("Categories = %v, want 3 entries", cfg.Rules.Categories)
	}
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			"bad console format",
			func(c *Config) { c.Output.ConsoleFormat = "yaml" },
			"unsupported --console-format",
		},
		{
			"bad emit",
			func(c *Config) { c.Output.Emit = []string{"csv"} },
			"unsupported --emit value",
		},
		{
			"negative max scopes",
			func(c *Config) { c.Targeting.MaxScopes = -1 },
			"--max-scopes must be >= 0",
		},
		{
			"zero concurrency",
			func(c *Config) { c.Runtime.Concurrency = 0 },
			"--concurrency must be >= 1",
		},
		{
			"zero timeout",
			func(c *Config) { c.Runtime.Timeout = 0 },
			"--timeout must be > 0",
		},
		{
			"zero scope timeout",
			func(c *Config) { c.Runtime.ScopeTimeout = 0 },
			"--scope-timeout must be > 0",
		},
		{
			"bad graph transport",
			func(c *Config) { c.Runtime.GraphTransport = "grpc" },
			"unsupported --graph-transport",
		},
		{
			"out without inferable extension",
			func(c *Config) { c.Output.Out = "results.txt" },
			"cannot infer output format",
		},
		{
			"out without extension",
			func(c *Config) { c.Output.Out = "results" },
			"missing extension",
		},
		{
			"bad out format",
			func(c *Config) { c.Output.Out = "results.json"; c.Output.OutFormat = "xml" },
			"unsupported output format",
		},
		{
			"bad set entry",
			func(c *Config) { c.Rules.Set = []string{"no-equals-sign"} },
			"expected rule.option=value",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			cfg.Runtime.Timeout = 30 * time.Minute
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() succeeded, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateInfersOutFormat(t *testing.T) {
	tests := []struct {
		out  string
		want string
	}{
		{"results.json", "json"},
		{"results.NDJSON", "ndjson"},
	}
	for _, tt := range tests {
		t.Run(tt.out, func(t *testing.T) {
			cfg := New()
			cfg.Output.Out = tt.out
			if err := cfg.Validate(); err != nil {
				t.Fatalf("Validate: %v", err)
			}
			if cfg.Output.OutFormat != tt.want {
				t.Errorf("OutFormat = %q, want %q", cfg.Output.OutFormat, tt.want)
			}
		})
	}
}

func TestParseRuleOptionAssignments(t *testing.T) {
	got, err := ParseRuleOptionAssignments([]string{"rule-a.opt=value", "rule-a.other="})
	if err != nil {
		t.Fatalf("ParseRuleOptionAssignments: %v", err)
	}
	if got["rule-a"]["opt"] != "value" {
		t.Errorf(`got["rule-a"]["opt"] = %q, want "value"`, got["rule-a"]["opt"])
	}
	if v, ok := got["rule-a"]["other"]; !ok || v != "" {
		t.Errorf("empty value assignment not preserved: %v", got["rule-a"])
	}

	got, err = ParseRuleOptionAssignments([]string{"mg-archetype-aligned.patterns=platform,connectivity"})
	if err != nil {
		t.Fatalf("ParseRuleOptionAssignments with comma value: %v", err)
	}
	if got["mg-archetype-aligned"]["patterns"] != "platform,connectivity" {
		t.Errorf("comma value mangled: %v", got["mg-archetype-aligned"])
	}

	for _, bad := range []string{"noequals", "=value", "ruleonly=value", "rule.=value", ".opt=value"} {
		if _, err := ParseRuleOptionAssignments([]string{bad}); err == nil {
			t.Errorf("ParseRuleOptionAssignments(%q) succeeded, want error", bad)
		}
	}
}
