package cmd

import (
	"github.com/huangsam/insight/core"
	"github.com/spf13/cobra"
)

// summaryCmd ranks the files of the synced history.
var summaryCmd = &cobra.Command{
	Use:   "summary [repo-path]",
	Short: "Rank files by their activity across renames and copies.",
	Long: `Summarize every file of the synced history and rank them by score.

A file keeps its identity when it is renamed or copied, so its commits,
committers and work items add up across all of the paths it had. Scores
combine commit count, committer count, work item count, lines of code and
recency using the configured weights.

Examples:
  # Top 20 files with all metric columns
  insight summary --limit 20 --detail

  # Show which metrics drive each score
  insight summary --explain

  # Only files under src/, exported for a spreadsheet
  insight summary --filter src/ --output csv --output-file summary.csv`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: sharedSetupWrapper,
	Run:     runExecutor(core.ExecuteSummary, "Cannot summarize history"),
}
