// Package core has the orchestration logic for syncing, loading and summarizing change history.
package core

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/huangsam/insight/core/history"
	"github.com/huangsam/insight/internal/contract"
	"github.com/huangsam/insight/internal/outwriter"
	"github.com/huangsam/insight/schema"
)

// ExecutorFunc defines the function signature shared by the command entry points.
type ExecutorFunc func(ctx context.Context, cfg *contract.Config, client contract.VCSClient, mgr contract.CacheManager) error

// ExecuteSync exports the repository log into the cache and reports what was stored.
func ExecuteSync(ctx context.Context, cfg *contract.Config, client contract.VCSClient, mgr contract.CacheManager) error {
	start := time.Now()
	result, err := Sync(ctx, cfg, client, mgr)
	if err != nil {
		return err
	}
	return outwriter.NewOutWriter().WriteSync(result, cfg, time.Since(start))
}

// ExecuteSummary ranks the artifacts of the synced history and prints them.
// It serves as the main entry point for the 'summary' command.
func ExecuteSummary(ctx context.Context, cfg *contract.Config, client contract.VCSClient, mgr contract.CacheManager) error {
	start := time.Now()
	result, err := GetSummary(ctx, cfg, client, mgr)
	if err != nil {
		return err
	}
	return outwriter.NewOutWriter().WriteSummary(schema.RankArtifacts(result.Artifacts), cfg, time.Since(start))
}

// ExecuteHistory prints the tracked history, or the lineage of one artifact.
func ExecuteHistory(ctx context.Context, cfg *contract.Config, client contract.VCSClient, mgr contract.CacheManager) error {
	start := time.Now()
	h, err := GetHistory(ctx, cfg, client, mgr)
	if err != nil {
		return err
	}
	return outwriter.NewOutWriter().WriteHistory(h, cfg, time.Since(start))
}

// ExecuteWarnings prints the diagnostics recorded while parsing and tracking.
func ExecuteWarnings(ctx context.Context, cfg *contract.Config, client contract.VCSClient, mgr contract.CacheManager) error {
	start := time.Now()
	warnings, err := GetWarnings(ctx, cfg, client, mgr)
	if err != nil {
		return err
	}
	return outwriter.NewOutWriter().WriteWarnings(warnings, cfg, time.Since(start))
}

// GetSummary returns the ranked artifact summary without printing it.
func GetSummary(ctx context.Context, cfg *contract.Config, client contract.VCSClient, mgr contract.CacheManager) (*schema.SummaryResult, error) {
	return runSummaryCore(ctx, cfg, client, mgr)
}

// GetHistory returns the cleaned history. When cfg.ArtifactPath is set only
// the lineage of the artifact currently at that path is returned.
func GetHistory(ctx context.Context, cfg *contract.Config, client contract.VCSClient, mgr contract.CacheManager) (*schema.History, error) {
	result, err := LoadHistory(ctx, cfg, client, mgr)
	if err != nil {
		return nil, err
	}
	if cfg.ArtifactPath == "" {
		return result.History, nil
	}

	local := filepath.Join(cfg.RepoPath, filepath.FromSlash(cfg.ArtifactPath))
	if cfg.CaseInsensitive {
		local = strings.ToLower(local)
	}
	id, ok := history.IdentityAt(result.History, local)
	if !ok {
		return nil, fmt.Errorf("no history found for %s", cfg.ArtifactPath)
	}
	return history.Lineage(result.History, id), nil
}

// GetWarnings returns the parse and tracking warnings of the synced history.
func GetWarnings(ctx context.Context, cfg *contract.Config, client contract.VCSClient, mgr contract.CacheManager) ([]schema.Warning, error) {
	result, err := LoadHistory(ctx, cfg, client, mgr)
	if err != nil {
		return nil, err
	}
	return result.Warnings, nil
}
