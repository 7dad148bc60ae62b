package flags

// Package flags defines canonical CLI flag names shared across the CLI and engine.
// The Markdown report renders a reproduction command from these, so they must match
// the Cobra wiring.
// IMPORTANT: These are flag *names* without leading dashes.
// Example usage:
//
//	cmd.Flags().StringVar(&cfg.TMS.Repo, flags.FlagTMSRepo, "", "...")
//	arg := "--" + flags.FlagTMSRepo
const (
	// Run
	FlagGo         = "go"
	FlagGoTestArg  = "go-test-arg"
	FlagDir        = "dir"
	FlagResultsDir = "results-dir"

	// TMS
	FlagTMSBackend = "tms-backend"
	FlagTMSRepo    = "tms-repo"
	FlagTMSLabel   = "tms-label"
	FlagTMSBaseURL = "tms-base-url"
	FlagTMSFile    = "tms-file"
	FlagTMSDB      = "tms-db"
	FlagDryRun     = "dry-run"

	// Output
	FlagConsoleFormat = "console-format"
	FlagReport        = "report"
	FlagOut           = "out"
	FlagOutFormat     = "out-format"
	FlagEmit          = "emit"
	FlagNoConsole     = "no-console"

	FlagConsoleFilterAction = "console-filter-action"

	// Runtime
	FlagConcurrency     = "concurrency"
	FlagSyncConcurrency = "sync-concurrency"
	FlagTimeout         = "timeout"
	FlagSyncTimeout     = "sync-timeout"
	FlagVerbose         = "verbose"
)
