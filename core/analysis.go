package core

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/huangsam/insight/core/history"
	"github.com/huangsam/insight/internal/contract"
	"github.com/huangsam/insight/schema"
	"go.uber.org/zap"
)

// runSummaryCore loads the history, projects it into artifacts and scores them.
func runSummaryCore(ctx context.Context, cfg *contract.Config, client contract.VCSClient, mgr contract.CacheManager) (*schema.SummaryResult, error) {
	// Add cache manager to context for use in worker goroutines
	ctx = contextWithCacheManager(ctx, mgr)

	// --- 0. Begin Analysis Tracking (if configured) ---
	var analysisID int64
	analysisStore := mgr.GetAnalysisStore()
	if analysisStore != nil {
		configParams := map[string]any{
			"backend":         string(cfg.Backend),
			"repo_path":       cfg.RepoPath,
			"path_filter":     cfg.PathFilter,
			"liveness":        string(cfg.Liveness),
			"shared_history":  string(cfg.SharedHistory),
			"noise_threshold": cfg.NoiseThreshold,
			"workers":         cfg.Workers,
			"result_limit":    cfg.ResultLimit,
		}
		var err error
		analysisID, err = analysisStore.BeginAnalysis(time.Now(), configParams)
		if err != nil {
			contract.LogWarn("Analysis tracking initialization failed", err)
		} else if analysisID > 0 {
			ctx = withAnalysisID(ctx, analysisID)
		}
	}

	// Every run that began is closed, with 0 artifacts when it fails early.
	total := 0
	if analysisStore != nil && analysisID > 0 {
		defer func() {
			if err := analysisStore.EndAnalysis(analysisID, time.Now(), total); err != nil {
				contract.LogWarn("Failed to finalize analysis tracking", err)
			}
		}()
	}

	// --- 1. History Phase (with caching) ---
	result, err := LoadHistory(ctx, cfg, client, mgr)
	if err != nil {
		return nil, err
	}

	// --- 2. Summary Projection ---
	liveness, err := buildLiveness(ctx, cfg, client)
	if err != nil {
		return nil, err
	}
	artifacts := history.Summarize(result.History, history.Options{
		NoiseThreshold: cfg.NoiseThreshold,
		Liveness:       liveness,
		Accept:         buildAcceptFilter(cfg),
	})

	// --- 3. Enrichment and Scoring ---
	artifacts = analyzeArtifacts(ctx, cfg, artifacts, time.Now())
	total = len(artifacts)
	ranked := rankArtifacts(artifacts, cfg.ResultLimit)

	return &schema.SummaryResult{
		Artifacts: ranked,
		Warnings:  result.Warnings,
	}, nil
}

// buildLiveness picks the liveness check for the configured mode.
func buildLiveness(ctx context.Context, cfg *contract.Config, client contract.VCSClient) (history.Liveness, error) {
	switch cfg.Liveness {
	case schema.NoLiveness:
		return nil, nil
	case schema.FileSystemLiveness:
		return history.NewFileSystem(history.DefaultFileSystemMemo)
	}

	if cfg.KnownFilesPath != "" {
		f, err := os.Open(cfg.KnownFilesPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open known files: %w", err)
		}
		defer func() { _ = f.Close() }()
		return history.LoadKnownFiles(f, cfg.RepoPath)
	}

	tracked, err := client.ListTrackedFiles(ctx, cfg.RepoPath)
	if err != nil {
		return nil, fmt.Errorf("failed to list tracked files: %w", err)
	}
	paths := make([]string, len(tracked))
	for i, rel := range tracked {
		paths[i] = filepath.Join(cfg.RepoPath, filepath.FromSlash(rel))
	}
	return history.NewKnownFiles(paths), nil
}

// buildAcceptFilter applies the path filter and exclude patterns to local paths.
// Paths outside the working copy are never accepted.
func buildAcceptFilter(cfg *contract.Config) func(localPath string) bool {
	root := cfg.RepoPath
	filter := cfg.PathFilter
	if cfg.CaseInsensitive {
		root = strings.ToLower(root)
		filter = strings.ToLower(filter)
	}
	return func(localPath string) bool {
		if localPath == "" {
			return false
		}
		rel := contract.RelativePath(root, localPath)
		if rel == ".." || strings.HasPrefix(rel, "../") {
			return false
		}
		if filter != "" && !strings.HasPrefix(rel, filter) {
			return false
		}
		return !contract.ShouldIgnore(rel, cfg.Excludes)
	}
}

// analyzeArtifacts enriches all artifacts in parallel using a worker pool.
// It spawns cfg.Workers goroutines; each writes only its own slot of the
// result slice, so the input order is preserved.
func analyzeArtifacts(ctx context.Context, cfg *contract.Config, artifacts []schema.Artifact, now time.Time) []schema.Artifact {
	results := make([]schema.Artifact, len(artifacts))
	indexCh := make(chan int, len(artifacts))
	var wg sync.WaitGroup

	workers := max(cfg.Workers, 1)
	for range workers {
		wg.Go(func() {
			for i := range indexCh {
				results[i] = analyzeArtifact(ctx, cfg, artifacts[i], now)
			}
		})
	}

	for i := range artifacts {
		indexCh <- i
	}
	close(indexCh)
	wg.Wait()

	return results
}

// analyzeArtifact computes file stats, language and score for one artifact.
func analyzeArtifact(ctx context.Context, cfg *contract.Config, artifact schema.Artifact, now time.Time) schema.Artifact {
	result := NewArtifactBuilder(cfg, artifact, now).
		FetchFileStats().
		ClassifyLanguage().
		CalculateAge().
		CalculateScore().
		Build()

	if analysisID, ok := getAnalysisID(ctx); ok && analysisID > 0 {
		recordArtifactAnalysis(ctx, analysisID, now, result)
	}
	return result
}

// recordArtifactAnalysis stores one scored artifact in the analysis store.
func recordArtifactAnalysis(ctx context.Context, analysisID int64, analysisTime time.Time, artifact schema.Artifact) {
	mgr := cacheManagerFromContext(ctx)
	if mgr == nil {
		return
	}
	store := mgr.GetAnalysisStore()
	if store == nil {
		return
	}
	if err := store.RecordArtifact(analysisID, analysisTime, artifact); err != nil {
		contract.Logger().Warn("Analysis tracking failed",
			zap.String("artifact", artifact.ID),
			zap.String("path", artifact.LocalPath),
			zap.Error(err))
	}
}
