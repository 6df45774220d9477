package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	buildVersion = "dev"
	buildCommit  = "unknown"
	buildDate    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "wafaudit",
	Short: "Audit Azure tenants against Well-Architected reliability and security checks",
	Long: `wafaudit audits an Azure tenant and its subscriptions via the ARM and
Microsoft Graph APIs and reports Well-Architected divergences.

wafaudit is audit-only: it finds divergences, does not fix them, and never
mutates Azure state.

Examples:
	# Show available commands and global flags
	wafaudit --help

	# Audit every enabled subscription in the current tenant
	wafaudit audit

	# Audit two specific subscriptions
	wafaudit audit --subscriptions 00000000-0000-0000-0000-000000000001,00000000-0000-0000-0000-000000000002

	# List rules
	wafaudit rules list

	# Print build info
	wafaudit version

Output:
	By default, commands write human-readable output to stdout.
	Some commands support structured output via emitter flags (see each command's --help).`,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&cfg.Runtime.Verbose, "verbose", false, "Enable verbose logging (prints every Azure API call and full error details)")
}

func SetBuildInfo(version, commit, date string) {
	if version != "" {
		buildVersion = version
	}
	if commit != "" {
		buildCommit = commit
	}
	if date != "" {
		buildDate = date
	}

	rootCmd.Version = fmt.Sprintf("%s (%s) %s", buildVersion, buildCommit, buildDate)
	rootCmd.SetVersionTemplate("{{.Version}}\n")
}

func BuildInfo() (version, commit, date string) {
	return buildVersion, buildCommit, buildDate
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
