package cli

import (
	"fmt"
	"os"
	"tmssync/internal/engine"
	"tmssync/internal/flags"

	"github.com/spf13/cobra"
)

var (
	buildVersion = "dev"
	buildCommit  = "unknown"
	buildDate    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "tmssync",
	Short: "Run Go tests and sync the passing ones to a test management system",
	Long: `tmssync runs go test (or replays recorded go test -json output), writes an
Allure-style result per test case and records every passing test as a test case
in a test management system (TMS).

Tests describe themselves through log lines:
	t.Log("DESCRIPTION: buyer can check out")
	t.Log("STEP: open cart")

Syncing is best-effort: a TMS failure is reported but never fails the run.

Examples:
	# Show available commands and global flags
	tmssync --help

	# Run all packages and sync to GitHub issues
	tmssync run --tms-backend github --tms-repo acme/qa ./...

	# Replay a recorded run into a YAML catalog
	go test -json ./... > events.json
	tmssync replay --tms-backend file --tms-file qa/cases.yaml events.json

	# List TMS backends
	tmssync backends list

	# Print build info
	tmssync version`,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&cfg.Runtime.Verbose, flags.FlagVerbose, false, "Enable verbose logging (prints capture misses and every GitHub API call)")
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

// Execute runs the root command. Usage errors exit like any other fatal error so
// that 1 keeps meaning "tests failed".
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(engine.ExitFatal)
	}
}
