package cmd

import (
	"github.com/huangsam/insight/core"
	"github.com/spf13/cobra"
)

// syncCmd exports the repository log into the cache.
var syncCmd = &cobra.Command{
	Use:   "sync [repo-path]",
	Short: "Export the repository log into the cache.",
	Long: `Run 'git log' or 'svn log' once and store the compressed export.

Every other reporting command reads the stored export, so history is only
fetched from the server when you ask for it. Run sync again to pick up new
commits.

Examples:
  # Sync the Git repository in the current directory
  insight sync

  # Sync a Subversion working copy into a badger store
  insight sync ~/src/project --backend svn --cache-backend badger`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: sharedSetupWrapper,
	Run:     runExecutor(core.ExecuteSync, "Cannot sync repository"),
}
