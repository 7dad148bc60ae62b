package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var replayCmd = &cobra.Command{
	Use:   "replay <file|->...",
	Short: "Replay recorded go test -json output and sync passing tests to the TMS",
	Long: `Replay one or more recorded go test -json streams and sync every passing
test case to the TMS selected by --tms-backend. "-" reads a stream from stdin.

Use replay when tests run somewhere tmssync cannot (CI matrix jobs, containers):
record with go test -json and replay the files afterwards. A test that never reported
a verdict in its stream counts as unknown.

` + syncHelpOutput + `
Examples:
  # Record, then sync into a YAML catalog kept in the repository
  go test -json ./... > events.json
  tmssync replay --tms-backend file --tms-file qa/cases.yaml events.json

  # Pipe straight from go test
  go test -json ./... | tmssync replay --tms-backend sqlite --tms-db qa.db -
`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg.Run.Inputs = args
		os.Exit(runSync(cmd, cfg))
	},
}

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.SetHelpTemplate(syncHelpTemplate)
	addSyncFlags(replayCmd, cfg)
}
