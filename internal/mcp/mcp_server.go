// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/huangsam/insight/internal/contract"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer initializes and configures the Insight MCP server without starting it.
// The server is bound to the repository already resolved in baseCfg.
func NewMCPServer(baseCfg *contract.Config, client contract.VCSClient, mgr contract.CacheManager) *server.MCPServer {
	s := server.NewMCPServer(
		"Insight History Server",
		"1.0.0",
		server.WithLogging(),
	)

	h := &toolHandler{
		baseCfg: baseCfg,
		client:  client,
		mgr:     mgr,
	}

	s.AddTool(mcp.NewTool("sync_repository",
		mcp.WithDescription("Export the repository log into the cache so later queries see the latest changes."),
	), h.handleSync)

	s.AddTool(mcp.NewTool("get_summary",
		mcp.WithDescription("Rank the files of the synced history by commits, committers, work items, size and recency."),
		mcp.WithNumber("limit", mcp.Description("Limit the number of results returned.")),
		mcp.WithString("filter", mcp.Description("Only include files under this repository-relative path.")),
	), h.handleGetSummary)

	s.AddTool(mcp.NewTool("get_history",
		mcp.WithDescription("List changesets of the synced history, following renames and copies."),
		mcp.WithString("artifact", mcp.Description("Repository-relative path whose full lineage should be returned. Omit for all changes.")),
	), h.handleGetHistory)

	s.AddTool(mcp.NewTool("get_warnings",
		mcp.WithDescription("List diagnostics recorded while parsing and tracking the history."),
	), h.handleGetWarnings)

	return s
}

// StartMCPServer starts the Insight MCP server on stdio.
func StartMCPServer(_ context.Context, baseCfg *contract.Config, client contract.VCSClient, mgr contract.CacheManager) error {
	s := NewMCPServer(baseCfg, client, mgr)
	return server.ServeStdio(s)
}
