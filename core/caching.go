package core

import (
	"bytes"
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/huangsam/insight/core/graph"
	"github.com/huangsam/insight/core/history"
	"github.com/huangsam/insight/core/parse"
	"github.com/huangsam/insight/internal/contract"
	"github.com/huangsam/insight/schema"
	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"
)

// currentCacheVersion defines the version of the cache schema
const currentCacheVersion = 1

// ErrNotSynced is returned when the log cache holds no export for the repository.
var ErrNotSynced = errors.New("repository has not been synced; run `insight sync` first")

// isCacheMiss reports whether a store error means the key is absent.
func isCacheMiss(err error) bool {
	return errors.Is(err, sql.ErrNoRows) || errors.Is(err, badger.ErrKeyNotFound)
}

// Both are safe for concurrent EncodeAll and DecodeAll calls.
var (
	zstdEncoder = sync.OnceValues(func() (*zstd.Encoder, error) { return zstd.NewWriter(nil) })
	zstdDecoder = sync.OnceValues(func() (*zstd.Decoder, error) { return zstd.NewReader(nil) })
)

func compress(data []byte) ([]byte, error) {
	enc, err := zstdEncoder()
	if err != nil {
		return nil, err
	}
	return enc.EncodeAll(data, make([]byte, 0, len(data)/4)), nil
}

func decompress(data []byte) ([]byte, error) {
	dec, err := zstdDecoder()
	if err != nil {
		return nil, err
	}
	return dec.DecodeAll(data, nil)
}

// hashKey turns the parts of a cache key into a fixed-width digest.
func hashKey(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

// exportKey identifies the raw export of one working copy.
func exportKey(cfg *contract.Config) string {
	return hashKey("export", string(cfg.Backend), cfg.RepoPath)
}

func exportMetaKey(cfg *contract.Config) string {
	return exportKey(cfg) + ":meta"
}

// parseKey identifies a parse of one exact export. Anything that changes
// identities or local paths must be part of it.
func parseKey(cfg *contract.Config, exportDigest string) string {
	return hashKey("parse", string(cfg.Backend), cfg.RepoPath, exportDigest,
		cfg.WorkItemRegex, fmt.Sprint(cfg.CaseInsensitive))
}

// Sync exports the complete log of the working copy and stores it in the log cache.
func Sync(ctx context.Context, cfg *contract.Config, client contract.VCSClient, mgr contract.CacheManager) (*schema.SyncResult, error) {
	store := mgr.GetLogStore()
	if store == nil || cfg.CacheBackend == schema.NoneBackend {
		return nil, errors.New("sync needs a cache backend other than none")
	}

	revision, err := client.GetHeadRevision(ctx, cfg.RepoPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve head revision: %w", err)
	}
	raw, err := client.ExportLog(ctx, cfg.RepoPath)
	if err != nil {
		return nil, fmt.Errorf("failed to export log: %w", err)
	}

	stored, err := compress(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to compress export: %w", err)
	}
	now := time.Now()
	if err := store.Set(exportKey(cfg), stored, currentCacheVersion, now.Unix()); err != nil {
		return nil, fmt.Errorf("failed to store export: %w", err)
	}

	result := &schema.SyncResult{
		Backend:     client.Backend(),
		Revision:    revision,
		RawBytes:    len(raw),
		StoredBytes: len(stored),
		ExportedAt:  now,
	}
	meta, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	if err := store.Set(exportMetaKey(cfg), meta, currentCacheVersion, now.Unix()); err != nil {
		return nil, fmt.Errorf("failed to store export metadata: %w", err)
	}

	contract.Logger().Debug("export stored",
		zap.String("repo", cfg.RepoPath),
		zap.String("revision", revision),
		zap.Int("raw_bytes", result.RawBytes),
		zap.Int("stored_bytes", result.StoredBytes))
	return result, nil
}

// LastSync returns the metadata of the most recent Sync, or ErrNotSynced.
func LastSync(cfg *contract.Config, mgr contract.CacheManager) (*schema.SyncResult, error) {
	store := mgr.GetLogStore()
	if store == nil {
		return nil, ErrNotSynced
	}
	data, version, _, err := store.Get(exportMetaKey(cfg))
	if isCacheMiss(err) {
		return nil, ErrNotSynced
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read sync metadata: %w", err)
	}
	if version != currentCacheVersion {
		return nil, ErrNotSynced
	}
	var result schema.SyncResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("corrupt sync metadata: %w", err)
	}
	return &result, nil
}

// loadExport returns the raw export for the working copy. Without a cache
// backend the log is exported on every run instead.
func loadExport(ctx context.Context, cfg *contract.Config, client contract.VCSClient, mgr contract.CacheManager) ([]byte, error) {
	store := mgr.GetLogStore()
	if store == nil || cfg.CacheBackend == schema.NoneBackend {
		return client.ExportLog(ctx, cfg.RepoPath)
	}
	data, version, _, err := store.Get(exportKey(cfg))
	if isCacheMiss(err) {
		return nil, ErrNotSynced
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cached export: %w", err)
	}
	if version != currentCacheVersion {
		return nil, ErrNotSynced
	}
	raw, err := decompress(data)
	if err != nil {
		return nil, fmt.Errorf("corrupt cached export, run sync again: %w", err)
	}
	return raw, nil
}

// LoadHistory parses the synced export into a tracked history, applies the
// shared-history policy and removes deleted artifacts. Parses are cached per
// export so repeated runs skip the parser.
func LoadHistory(ctx context.Context, cfg *contract.Config, client contract.VCSClient, mgr contract.CacheManager) (*schema.ParseResult, error) {
	raw, err := loadExport(ctx, cfg, client, mgr)
	if err != nil {
		return nil, err
	}

	digest := fmt.Sprintf("%x", sha256.Sum256(raw))
	key := parseKey(cfg, digest)
	store := mgr.GetLogStore()

	result := checkCacheHit(store, key)
	if result == nil {
		result, err = parseExport(ctx, cfg, client, raw)
		if err != nil {
			return nil, err
		}
		storeParseResult(store, key, result)
	}

	pruned := applySharedHistoryPolicy(result, cfg.SharedHistory)
	items, sets := history.Cleanup(result.History)
	contract.Logger().Debug("history loaded",
		zap.Int("changesets", len(result.History.ChangeSets)),
		zap.Int("pruned_items", pruned),
		zap.Int("deleted_items", items),
		zap.Int("dropped_changesets", sets))
	return result, nil
}

// checkCacheHit attempts to retrieve and validate a cached parse
func checkCacheHit(store contract.CacheStore, key string) *schema.ParseResult {
	if store == nil {
		return nil
	}
	data, version, _, err := store.Get(key)
	if err != nil || version != currentCacheVersion {
		return nil
	}
	plain, err := decompress(data)
	if err != nil {
		return nil
	}
	var result schema.ParseResult
	if err := json.Unmarshal(plain, &result); err != nil || result.History == nil {
		return nil
	}
	return &result
}

// storeParseResult caches a fresh parse. Failures only cost the next run a reparse.
func storeParseResult(store contract.CacheStore, key string, result *schema.ParseResult) {
	if store == nil {
		return
	}
	plain, err := json.Marshal(result)
	if err != nil {
		contract.LogWarn("Failed to encode parsed history", err)
		return
	}
	data, err := compress(plain)
	if err != nil {
		contract.LogWarn("Failed to compress parsed history", err)
		return
	}
	if err := store.Set(key, data, currentCacheVersion, time.Now().Unix()); err != nil {
		contract.LogWarn("Failed to cache parsed history", err)
	}
}

// parseExport runs the backend parser over a raw export.
func parseExport(ctx context.Context, cfg *contract.Config, client contract.VCSClient, raw []byte) (*schema.ParseResult, error) {
	prefix, err := client.GetServerPrefix(ctx, cfg.RepoPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve server prefix: %w", err)
	}
	workItems, err := parse.NewWorkItemExtractor(cfg.WorkItemRegex)
	if err != nil {
		return nil, err
	}
	parser, err := parse.New(cfg.Backend, parse.Options{
		PathMapper: contract.NewPathMapper(cfg.RepoPath, prefix, cfg.CaseInsensitive),
		WorkItems:  workItems,
	})
	if err != nil {
		return nil, err
	}
	return parser.Parse(bytes.NewReader(raw))
}

// applySharedHistoryPolicy prunes the pre-copy history of inherited copies
// when the policy asks for it and returns the number of removed items.
func applySharedHistoryPolicy(result *schema.ParseResult, policy schema.SharedHistoryPolicy) int {
	if policy != schema.PruneCopiedHistory || len(result.Branches) == 0 {
		return 0
	}
	g := graph.FromEdges(result.Edges)
	removals := make(map[string]string)
	for _, bp := range result.Branches {
		if !bp.Inherited() {
			continue
		}
		if _, ok := removals[bp.Identity]; ok {
			continue
		}
		if parents := g.Parents(bp.ChangeSetID); len(parents) > 0 {
			removals[bp.Identity] = parents[0]
		}
	}
	return g.DeleteSharedHistory(result.History, removals)
}
