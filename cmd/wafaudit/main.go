package main

import (
	"wafaudit/internal/cli"
	_ "wafaudit/internal/fetcher/providers"
	_ "wafaudit/internal/rules/checks"
)

// These variables are populated by the build via -ldflags.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	cli.SetBuildInfo(version, commit, date)
	cli.Execute()
}
