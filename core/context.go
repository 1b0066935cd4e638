package core

import (
	"context"

	"github.com/huangsam/insight/internal/contract"
)

// Context keys for values shared with worker goroutines
type contextKey string

const (
	analysisIDKey   contextKey = "analysisID"
	cacheManagerKey contextKey = "cacheManager"
)

// withAnalysisID stores the id of the analysis run being tracked.
func withAnalysisID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, analysisIDKey, id)
}

// getAnalysisID returns the tracked analysis run, if any.
func getAnalysisID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(analysisIDKey).(int64)
	return id, ok
}

// contextWithCacheManager makes the cache manager reachable from worker goroutines.
func contextWithCacheManager(ctx context.Context, mgr contract.CacheManager) context.Context {
	return context.WithValue(ctx, cacheManagerKey, mgr)
}

// cacheManagerFromContext returns the cache manager stored in ctx or nil.
func cacheManagerFromContext(ctx context.Context) contract.CacheManager {
	mgr, _ := ctx.Value(cacheManagerKey).(contract.CacheManager)
	return mgr
}
