package flags

// Package flags defines canonical CLI flag names shared across the CLI and
// engine. Keeping these as constants helps avoid drift between Cobra flag
// wiring and other code paths that need to reference flags by name.
// IMPORTANT: These are flag *names* without leading dashes.
// Example usage:
//
//	cmd.Flags().StringVar(&cfg.Targeting.Tenant, flags.FlagTenant, "", "...")
//	arg := "--" + flags.FlagTenant
const (
	// Targeting
	FlagTenant        = "tenant"
	FlagSubscriptions = "subscriptions"
	FlagInclude       = "include"
	FlagExclude       = "exclude"
	FlagMaxScopes     = "max-scopes"
	FlagDryRun        = "dry-run"

	// Rules
	FlagCategories = "categories"
	FlagRules      = "rules"
	FlagSet        = "set"

	// Output
	FlagConsoleFormat       = "console-format"
	FlagConsoleFilterStatus = "console-filter-status"
	FlagReport              = "report"
	FlagOut                 = "out"
	FlagOutFormat           = "out-format"
	FlagEmit                = "emit"
	FlagNoConsole           = "no-console"

	// Runtime
	FlagConcurrency    = "concurrency"
	FlagSequential     = "sequential"
	FlagTimeout        = "timeout"
	FlagScopeTimeout   = "scope-timeout"
	FlagGraphTransport = "graph-transport"
	FlagFailFast       = "fail-fast"
)
