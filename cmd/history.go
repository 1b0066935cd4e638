package cmd

import (
	"github.com/huangsam/insight/core"
	"github.com/spf13/cobra"
)

// historyCmd lists the tracked changes.
var historyCmd = &cobra.Command{
	Use:   "history [repo-path]",
	Short: "List changes, or the full lineage of one file.",
	Long: `Print the synced history one change per line, newest first.

With --artifact only the changes of that file's identity are shown, which
includes the changes it had under earlier names.

Examples:
  # Everything that ever happened to a file
  insight history --artifact internal/server.go

  # Machine readable history
  insight history --output json --output-file history.json`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: sharedSetupWrapper,
	Run:     runExecutor(core.ExecuteHistory, "Cannot list history"),
}
