package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"wafaudit/internal/azure"
	"wafaudit/internal/config"
	"wafaudit/internal/engine"
	"wafaudit/internal/flags"
	"wafaudit/internal/graph"
)

var cfg = config.New()

const auditHelpTemplate = `{{with (or .Long .Short)}}{{. | trimTrailingWhitespaces}}

{{end}}Usage:
  {{.UseLine}}

{{if .HasAvailableLocalFlags}}Flags:
{{.LocalFlags.FlagUsages | trimTrailingWhitespaces}}

{{end}}{{if .HasAvailableInheritedFlags}}Global Flags:
{{.InheritedFlags.FlagUsages | trimTrailingWhitespaces}}

{{end}}Environment:
	wafaudit authenticates to Azure with a token credential.

	Sources (in order):
	1) Service principal from AZURE_TENANT_ID / AZURE_CLIENT_ID plus
	   AZURE_CLIENT_SECRET or AZURE_CLIENT_CERTIFICATE_PATH
	2) Azure CLI login (az login)

  Permission guidance (brief):
  - ARM: Reader on the audited subscriptions and management groups.
  - Microsoft Graph: Policy.Read.All and SecurityEvents.Read.All for the
    Identity category.

  Examples:
    # macOS/Linux
    az login
    wafaudit audit

    # Service principal
    export AZURE_TENANT_ID="<tenant>"
    export AZURE_CLIENT_ID="<app>"
    export AZURE_CLIENT_SECRET="<secret>"
    wafaudit audit

{{if .HasAvailableSubCommands}}Available Commands:
{{range .Commands}}{{if (or .IsAvailableCommand (eq .Name "help"))}}
  {{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}

{{end}}{{if .HasHelpSubCommands}}Additional help topics:
{{range .Commands}}{{if .IsAdditionalHelpTopicCommand}}
  {{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}

{{end}}{{if .HasAvailableSubCommands}}Use "{{.CommandPath}} [command] --help" for more information about a command.
{{end}}`

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Audit a tenant and its subscriptions",
	Long: `Audit an Azure tenant and its subscriptions against Well-Architected
reliability, security, and governance checks.

wafaudit is audit-only: it reads resource metadata via the ARM and Microsoft
Graph APIs and never mutates state.

Authentication:
  wafaudit prefers a service principal configured via AZURE_* environment
  variables, falling back to the Azure CLI login.

Output:
	Console output is controlled by --console-format (default: text).
	Structured outputs can be written via:
	- --out / --out-format: write an aggregate JSON array or NDJSON stream to a file
	- --emit: write an additional structured stream to stdout (json or ndjson)
	- --report: write a Markdown report to a file
	- --no-console: suppress the console sink (use with --emit/--out for machine output)

	NDJSON mode emits one JSON object per line. Objects are lifecycle Events with a
	"type" field (run.started, category.started, scope.started, rule.result,
	scope.finished, scope.failed, run.finished). Rule results are represented as an
	Event with type "rule.result" carrying the result fields inline.

Exit codes:
	0 = clean run, no failing findings
	1 = failing findings detected
	2 = partial failure (some rules/scopes errored)
	3 = fatal error (audit did not run)

Examples:
  # Audit everything the credential can see
  az login
  wafaudit audit

  # Only the compute and database categories, sequentially
  wafaudit audit --categories compute,database --sequential

	# AI Agent: stream machine-readable events to stdout
	wafaudit audit --no-console --emit ndjson
`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(3)
		}

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Runtime.Timeout)
		defer cancel()

		cred, source, err := azure.ResolveCredential()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to resolve Azure credential: %v\n", err)
			os.Exit(3)
		}
		if cfg.Runtime.Verbose {
			fmt.Fprintf(os.Stderr, "Using credential source: %s\n", source)
		}

		client, err := azure.NewClient(ctx, cred, azure.WithVerbose(cfg.Runtime.Verbose, nil))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to create Azure client: %v\n", err)
			os.Exit(3)
		}

		transport, err := graph.ParseTransport(cfg.Runtime.GraphTransport)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(3)
		}
		graphClient, err := graph.NewClient(cred, transport, nil)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to create Graph client: %v\n", err)
			os.Exit(3)
		}

		eng := engine.NewEngine(client, graphClient)
		os.Exit(eng.Run(ctx, cfg))
	},
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.SetHelpTemplate(auditHelpTemplate)

	// Targeting
	auditCmd.Flags().StringVar(&cfg.Targeting.Tenant, flags.FlagTenant, "", "Entra tenant ID to audit (default: tenant of the active credential)")
	auditCmd.Flags().StringSliceVar(&cfg.Targeting.Subscriptions, flags.FlagSubscriptions, nil, "Subscription IDs to audit (repeatable; comma-separated accepted; default: all enabled)")
	auditCmd.Flags().StringSliceVar(&cfg.Targeting.Include, flags.FlagInclude, nil, "Include pattern(s) (repeatable; comma-separated accepted). Go path.Match style against subscription name or ID")
	auditCmd.Flags().StringSliceVar(&cfg.Targeting.Exclude, flags.FlagExclude, nil, "Exclude pattern(s) (repeatable; comma-separated accepted). Same matching rules as --include")
	auditCmd.Flags().IntVar(&cfg.Targeting.MaxScopes, flags.FlagMaxScopes, 0, "Maximum number of subscriptions to audit (0 = unlimited)")
	auditCmd.Flags().BoolVar(&cfg.Targeting.DryRun, flags.FlagDryRun, false, "Resolve scopes and print plan without auditing (still requires a credential)")

	// Rules
	auditCmd.Flags().StringSliceVar(&cfg.Rules.Categories, flags.FlagCategories, nil, "Audit categories to run: Compute|Network|Database|Identity|Governance (repeatable; comma-separated accepted; empty = all)")
	auditCmd.Flags().StringVar(&cfg.Rules.Selector, flags.FlagRules, "", "Comma-separated rule IDs (empty = all rules)")
	auditCmd.Flags().StringArrayVar(&cfg.Rules.Set, flags.FlagSet, nil, "Per-rule option as ruleID.option=value (repeatable; values may contain commas)")

	// Output
	auditCmd.Flags().StringVar(&cfg.Output.ConsoleFormat, flags.FlagConsoleFormat, "text", "Console output format: text|json|ndjson (default: text)")
	auditCmd.Flags().StringSliceVar(&cfg.Output.ConsoleFilterStatus, flags.FlagConsoleFilterStatus, nil, "Filter console output by status (PASS, FAIL, SKIPPED, ERROR). Comma-separated.")
	auditCmd.Flags().StringVar(&cfg.Output.Report, flags.FlagReport, "", "Write a Markdown report to this path")
	auditCmd.Flags().StringVar(&cfg.Output.Out, flags.FlagOut, "", "Write structured output to this path")
	auditCmd.Flags().StringVar(&cfg.Output.OutFormat, flags.FlagOutFormat, "", "Structured output format for --out: json|ndjson (default: inferred from file extension)")
	auditCmd.Flags().StringSliceVar(&cfg.Output.Emit, flags.FlagEmit, nil, "Emit additional structured stream to stdout: json|ndjson (repeatable; comma-separated accepted)")
	auditCmd.Flags().BoolVar(&cfg.Output.NoConsole, flags.FlagNoConsole, false, "Suppress console output (use with --emit/--out/--report)")

	// Runtime
	auditCmd.Flags().IntVar(&cfg.Runtime.Concurrency, flags.FlagConcurrency, 5, "Concurrent subscription workers (default: 5)")
	auditCmd.Flags().BoolVar(&cfg.Runtime.Sequential, flags.FlagSequential, false, "Process scopes one at a time in discovery order (default: false)")
	auditCmd.Flags().DurationVar(&cfg.Runtime.Timeout, flags.FlagTimeout, cfg.Runtime.Timeout, "Global timeout (default: 30m)")
	auditCmd.Flags().DurationVar(&cfg.Runtime.ScopeTimeout, flags.FlagScopeTimeout, cfg.Runtime.ScopeTimeout, "Per-scope fetch timeout (default: 5m)")
	auditCmd.Flags().StringVar(&cfg.Runtime.GraphTransport, flags.FlagGraphTransport, "sdk", "Microsoft Graph transport: sdk|rest (default: sdk)")
	auditCmd.Flags().BoolVar(&cfg.Runtime.FailFast, flags.FlagFailFast, false, "Stop after the first category with failures or errors (default: false)")
}
