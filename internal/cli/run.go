package cli

import (
	"context"
	"fmt"
	"os"
	"tmssync/internal/config"
	"tmssync/internal/engine"
	"tmssync/internal/flags"

	"github.com/spf13/cobra"
)

var cfg = config.New()

const syncHelpTemplate = `{{with (or .Long .Short)}}{{. | trimTrailingWhitespaces}}

{{end}}Usage:
  {{.UseLine}}

{{if .HasAvailableLocalFlags}}Flags:
{{.LocalFlags.FlagUsages | trimTrailingWhitespaces}}

{{end}}{{if .HasAvailableInheritedFlags}}Global Flags:
{{.InheritedFlags.FlagUsages | trimTrailingWhitespaces}}

{{end}}Environment:
  The github backend authenticates with an access token.

  Sources (in order):
  1) GITHUB_TOKEN environment variable
  2) GH_TOKEN (github.com) or GH_ENTERPRISE_TOKEN (--tms-base-url hosts)
  3) GitHub CLI (gh) authentication via gh auth token (if gh is installed and logged in)

  Token guidance (brief):
  - PAT (classic): needs repo (or public_repo for a public --tms-repo).
  - Fine-grained PAT: grant access to --tms-repo with Issues: Read and write.

  Examples:
    # macOS/Linux
    export GITHUB_TOKEN="<your_token>"
    tmssync run --tms-backend github --tms-repo acme/qa

    # GitHub CLI auth
    gh auth login
    tmssync run --tms-backend github --tms-repo acme/qa

    # Windows PowerShell
    $env:GITHUB_TOKEN = "<your_token>"
    tmssync run --tms-backend github --tms-repo acme/qa

{{if .HasAvailableSubCommands}}Available Commands:
{{range .Commands}}{{if (or .IsAvailableCommand (eq .Name "help"))}}
  {{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}

{{end}}{{if .HasHelpSubCommands}}Additional help topics:
{{range .Commands}}{{if .IsAdditionalHelpTopicCommand}}
  {{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}

{{end}}{{if .HasAvailableSubCommands}}Use "{{.CommandPath}} [command] --help" for more information about a command.
{{end}}`

const syncHelpOutput = `Output:
	Console output is controlled by --console-format (default: text) and can be
	narrowed with --console-filter-action.
	Structured outputs can be written via:
	- --out / --out-format: write an aggregate JSON array or NDJSON stream to a file
	- --emit: write an additional structured stream to stdout (json or ndjson)
	- --report: write a Markdown summary
	- --no-console: suppress the console sink (use with --emit/--out for machine output)

	NDJSON mode emits one JSON object per line. Objects are lifecycle Events with a
	"type" field (run.started, test.captured, sync.result, run.finished).
	Captured test cases are nested under "record"; sync results carry the result
	fields (test, package, case, status, action, id, message) inline.

Exit codes:
	0 = every test passed or was skipped
	1 = failed or unknown tests (TMS sync failures never change the exit code)
	3 = fatal error (invalid flags, unreadable input, TMS unreachable at startup)
`

var runCmd = &cobra.Command{
	Use:   "run [packages...]",
	Short: "Run go test and sync passing tests to the TMS",
	Long: `Run go test -json for each package pattern (default ./...) and sync every
passing test case to the TMS selected by --tms-backend.

Each pattern runs as its own go test invocation; --concurrency of them run at once.
Only PASSED test cases are synced. A test case is matched by its name with the
parameter suffix Go adds to duplicate subtest names removed.

` + syncHelpOutput + `
Examples:
  # Sync to GitHub issues labelled test-case
  export GITHUB_TOKEN="<your_token>"
  tmssync run --tms-backend github --tms-repo acme/qa ./...

  # Preview without changing anything
  tmssync run --tms-backend github --tms-repo acme/qa --dry-run ./...

  # Integration tests only, into a SQLite catalog
  tmssync run --go-test-arg=-tags=integration --tms-backend sqlite --tms-db qa.db ./...

  # AI Agent: stream machine-readable events to stdout
  tmssync run --no-console --emit ndjson ./...
`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg.Run.Packages = args
		os.Exit(runSync(cmd, cfg))
	},
}

// runSync validates cfg and runs the engine with the command's streams.
func runSync(cmd *cobra.Command, cfg *config.Config) int {
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		return engine.ExitFatal
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	eng := &engine.Engine{
		Stdout: cmd.OutOrStdout(),
		Stderr: cmd.ErrOrStderr(),
		Stdin:  cmd.InOrStdin(),
	}
	return eng.Run(ctx, cfg)
}

// addSyncFlags binds the flags shared by run and replay.
//
// MAINTAINER NOTE: If you add/change/remove any run-affecting flags here,
// keep the report reproducibility command generator in sync:
// internal/engine/command.go:buildReproducibilityCommand.
//
// Output flags are intentionally omitted from the reproducibility command.
func addSyncFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()

	// Reporting
	f.StringVar(&cfg.Report.ResultsDir, flags.FlagResultsDir, cfg.Report.ResultsDir, "Write one <uuid>-result.json per test case here (empty disables)")

	// TMS
	f.StringVar(&cfg.TMS.Backend, flags.FlagTMSBackend, cfg.TMS.Backend, "TMS backend: github|file|sqlite|none (see: tmssync backends list)")
	f.StringVar(&cfg.TMS.Repo, flags.FlagTMSRepo, "", "github: repository holding test case issues as OWNER/REPO (or URL)")
	f.StringVar(&cfg.TMS.Label, flags.FlagTMSLabel, cfg.TMS.Label, "github: label marking test case issues")
	f.StringVar(&cfg.TMS.BaseURL, flags.FlagTMSBaseURL, "", "github: GitHub Enterprise API URL, e.g. https://ghe.example.com/api/v3/")
	f.StringVar(&cfg.TMS.File, flags.FlagTMSFile, "", "file: YAML catalog path (created on first write)")
	f.StringVar(&cfg.TMS.Database, flags.FlagTMSDB, "", "sqlite: database path (created if missing)")
	f.BoolVar(&cfg.TMS.DryRun, flags.FlagDryRun, false, "Look test cases up but never create or update them")

	// Output
	f.StringVar(&cfg.Output.ConsoleFormat, flags.FlagConsoleFormat, cfg.Output.ConsoleFormat, "Console output format: text|json|ndjson (default: text)")
	f.StringSliceVar(&cfg.Output.ConsoleFilterActions, flags.FlagConsoleFilterAction, nil, "Only show these sync actions on the console: created, updated, unchanged, skipped, error. Comma-separated.")
	f.StringVar(&cfg.Output.Report, flags.FlagReport, "", "Write a Markdown report to this path")
	f.StringVar(&cfg.Output.Out, flags.FlagOut, "", "Write structured output to this path")
	f.StringVar(&cfg.Output.OutFormat, flags.FlagOutFormat, "", "Structured output format for --out: json|ndjson (default: inferred from file extension)")
	f.StringSliceVar(&cfg.Output.Emit, flags.FlagEmit, nil, "Emit additional structured stream to stdout: json|ndjson (repeatable; comma-separated accepted)")
	f.BoolVar(&cfg.Output.NoConsole, flags.FlagNoConsole, false, "Suppress console output (use with --emit/--out/--report)")

	// Runtime
	f.IntVar(&cfg.Runtime.Concurrency, flags.FlagConcurrency, cfg.Runtime.Concurrency, "Test streams consumed at once (default: 1)")
	f.IntVar(&cfg.Runtime.SyncConcurrency, flags.FlagSyncConcurrency, cfg.Runtime.SyncConcurrency, "Concurrent TMS reconciliations (default: 4)")
	f.DurationVar(&cfg.Runtime.Timeout, flags.FlagTimeout, cfg.Runtime.Timeout, "Timeout for running the tests; the TMS sync is bounded by --sync-timeout (default: 30m)")
	f.DurationVar(&cfg.Runtime.SyncTimeout, flags.FlagSyncTimeout, cfg.Runtime.SyncTimeout, "Timeout for the TMS sync, starting when the tests finished (default: 5m)")
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.SetHelpTemplate(syncHelpTemplate)

	// go test
	runCmd.Flags().StringVar(&cfg.Run.GoBinary, flags.FlagGo, cfg.Run.GoBinary, "Go toolchain binary")
	runCmd.Flags().StringArrayVar(&cfg.Run.GoTestArgs, flags.FlagGoTestArg, nil, "Extra go test argument, e.g. -run=TestLogin (repeatable; taken verbatim)")
	runCmd.Flags().StringVar(&cfg.Run.Dir, flags.FlagDir, "", "Working directory for go test (default: current directory)")

	addSyncFlags(runCmd, cfg)
}
