package cmd

import (
	"github.com/huangsam/insight/core"
	"github.com/spf13/cobra"
)

// warningsCmd prints the parse and tracking diagnostics.
var warningsCmd = &cobra.Command{
	Use:   "warnings [repo-path]",
	Short: "Show oddities found while tracking file identities.",
	Long: `List diagnostics such as edits or deletes of paths the tracker never saw
added. They usually point at history that predates the synced range or at
paths moved in from outside the working copy.`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: sharedSetupWrapper,
	Run:     runExecutor(core.ExecuteWarnings, "Cannot list warnings"),
}
