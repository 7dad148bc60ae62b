package cli

import (
	"fmt"
	"io"
	"tmssync/internal/tms"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var backendsListQuiet bool

var backendsCmd = &cobra.Command{
	Use:   "backends",
	Short: "List TMS backends",
	Long: `Inspect the test management backends compiled into this build.

A backend is selected with --tms-backend on run and replay.

Examples:
  # List all backends
  tmssync backends list
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var backendsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available TMS backends",
	Long: `List all TMS backends registered in this build, sorted by name.

Examples:
  tmssync backends list

Output:
  A vertical list of backends:
    ----------------------------------------
    BACKEND: {NAME}
    ----------------------------------------
    {DESCRIPTION}
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, b := range tms.List() {
			if backendsListQuiet {
				fmt.Fprintln(cmd.OutOrStdout(), b.Name)
			} else {
				printBackend(cmd.OutOrStdout(), b)
			}
		}
		return nil
	},
}

func printBackend(w io.Writer, b tms.Backend) {
	bold := color.New(color.Bold)
	fmt.Fprintln(w, "----------------------------------------")
	bold.Fprintf(w, "BACKEND: %s\n", b.Name)
	fmt.Fprintln(w, "----------------------------------------")
	if b.Description != "" {
		fmt.Fprintln(w, b.Description)
	}
	fmt.Fprintln(w)
}

func init() {
	rootCmd.AddCommand(backendsCmd)
	backendsCmd.AddCommand(backendsListCmd)
	backendsListCmd.Flags().BoolVarP(&backendsListQuiet, "quiet", "q", false, "Only print backend names")
}
