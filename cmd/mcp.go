package cmd

import (
	"github.com/huangsam/insight/internal/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command.
var mcpCmd = &cobra.Command{
	Use:   "mcp [repo-path]",
	Short: "Start the Insight MCP server",
	Long: `Launch an MCP server on stdio so AI agents can sync the repository and
query summaries, histories and warnings. Logs go to stderr and never mix
with the protocol.`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		return mcp.StartMCPServer(rootCtx, cfg, vcsClient, cacheManager)
	},
}
