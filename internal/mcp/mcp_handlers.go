package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/huangsam/insight/core"
	"github.com/huangsam/insight/internal/contract"
	"github.com/huangsam/insight/schema"
	"github.com/mark3labs/mcp-go/mcp"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg *contract.Config
	client  contract.VCSClient
	mgr     contract.CacheManager
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}

// cleanRelative rejects absolute or escaping paths passed in by a client.
func cleanRelative(p string) (string, error) {
	p = strings.TrimSpace(p)
	if p == "" {
		return "", nil
	}
	cleaned := path.Clean(strings.ReplaceAll(p, "\\", "/"))
	if path.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("path %q must be relative to the repository", p)
	}
	if cleaned == "." {
		return "", nil
	}
	return cleaned, nil
}

func (h *toolHandler) handleSync(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := core.Sync(ctx, h.baseCfg.Clone(), h.client, h.mgr)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("sync failed: %v", err)), nil
	}
	return jsonResult(result)
}

func (h *toolHandler) handleGetSummary(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg := h.baseCfg.Clone()
	if l := request.GetInt("limit", 0); l > 0 {
		cfg.ResultLimit = l
	}
	filter, err := cleanRelative(request.GetString("filter", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid filter: %v", err)), nil
	}
	if filter != "" {
		cfg.PathFilter = filter
	}

	result, err := core.GetSummary(ctx, cfg, h.client, h.mgr)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("summary failed: %v", err)), nil
	}
	return jsonResult(schema.RankArtifacts(result.Artifacts))
}

func (h *toolHandler) handleGetHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg := h.baseCfg.Clone()
	artifact, err := cleanRelative(request.GetString("artifact", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid artifact: %v", err)), nil
	}
	cfg.ArtifactPath = artifact

	hist, err := core.GetHistory(ctx, cfg, h.client, h.mgr)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("history failed: %v", err)), nil
	}
	return jsonResult(hist)
}

func (h *toolHandler) handleGetWarnings(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	warnings, err := core.GetWarnings(ctx, h.baseCfg.Clone(), h.client, h.mgr)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("warnings failed: %v", err)), nil
	}
	if warnings == nil {
		warnings = []schema.Warning{}
	}
	return jsonResult(warnings)
}
