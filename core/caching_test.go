package core

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"sync"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/huangsam/insight/internal/contract"
	"github.com/huangsam/insight/internal/iocache"
	"github.com/huangsam/insight/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

//go:embed testdata/git_export.txt
var gitExportFixture []byte

// memStore is an in-memory CacheStore.
type memStore struct {
	mu      sync.Mutex
	entries map[string]memEntry
	sets    int
}

type memEntry struct {
	value   []byte
	version int
	ts      int64
}

func newMemStore() *memStore {
	return &memStore{entries: make(map[string]memEntry)}
}

func (s *memStore) Get(key string) ([]byte, int, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return nil, 0, 0, sql.ErrNoRows
	}
	return e.value, e.version, e.ts, nil
}

func (s *memStore) Set(key string, value []byte, version int, ts int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = memEntry{value: value, version: version, ts: ts}
	s.sets++
	return nil
}

func (s *memStore) GetStatus() (schema.CacheStatus, error) {
	return schema.CacheStatus{Backend: "memory", Connected: true, TotalEntries: len(s.entries)}, nil
}

func (s *memStore) Close() error { return nil }

func testConfig(root string) *contract.Config {
	return &contract.Config{
		RepoPath:       root,
		Backend:        schema.GitBackend,
		ResultLimit:    10,
		Workers:        2,
		WorkItemRegex:  contract.DefaultWorkItemRegex,
		Liveness:       schema.NoLiveness,
		SharedHistory:  schema.KeepSharedHistory,
		CacheBackend:   schema.SQLiteBackend,
		Weights:        schema.DefaultWeights(),
		Excludes:       contract.DefaultExcludes,
		NoiseThreshold: 0,
	}
}

func gitClient(root string, export []byte) *contract.MockVCSClient {
	client := &contract.MockVCSClient{}
	client.On("Backend").Return(schema.GitBackend).Maybe()
	client.On("GetHeadRevision", mock.Anything, root).Return("4444444", nil).Maybe()
	client.On("GetServerPrefix", mock.Anything, root).Return("", nil).Maybe()
	client.On("ExportLog", mock.Anything, root).Return(export, nil).Maybe()
	return client
}

func managerWith(store contract.CacheStore, analysis contract.AnalysisStore) *iocache.MockCacheManager {
	mgr := &iocache.MockCacheManager{}
	mgr.On("GetLogStore").Return(store)
	mgr.On("GetAnalysisStore").Return(analysis)
	return mgr
}

func TestCompressRoundTrip(t *testing.T) {
	packed, err := compress(gitExportFixture)
	require.NoError(t, err)
	assert.Less(t, len(packed), len(gitExportFixture))

	plain, err := decompress(packed)
	require.NoError(t, err)
	assert.Equal(t, gitExportFixture, plain)

	_, err = decompress([]byte("not zstd"))
	assert.Error(t, err)
}

func TestCacheKeys(t *testing.T) {
	cfg := testConfig("/repo")
	other := testConfig("/other")

	assert.NotEqual(t, exportKey(cfg), exportKey(other))
	assert.Len(t, exportKey(cfg), 64)
	assert.NotEqual(t, parseKey(cfg, "a"), parseKey(cfg, "b"))

	ci := testConfig("/repo")
	ci.CaseInsensitive = true
	assert.NotEqual(t, parseKey(cfg, "a"), parseKey(ci, "a"), "local path casing changes the parse")

	svn := testConfig("/repo")
	svn.Backend = schema.SVNBackend
	assert.NotEqual(t, exportKey(cfg), exportKey(svn))
}

func TestSyncThenLoadHistory(t *testing.T) {
	ctx := context.Background()
	root := "/repo"
	store := newMemStore()
	client := gitClient(root, gitExportFixture)
	mgr := managerWith(store, nil)
	cfg := testConfig(root)

	synced, err := Sync(ctx, cfg, client, mgr)
	require.NoError(t, err)
	assert.Equal(t, "4444444", synced.Revision)
	assert.Equal(t, schema.GitBackend, synced.Backend)
	assert.Equal(t, len(gitExportFixture), synced.RawBytes)
	assert.Equal(t, 2, store.sets)

	last, err := LastSync(cfg, mgr)
	require.NoError(t, err)
	assert.Equal(t, synced.Revision, last.Revision)

	first, err := LoadHistory(ctx, cfg, client, mgr)
	require.NoError(t, err)
	assert.Equal(t, 3, store.sets, "fresh parse is cached")

	second, err := LoadHistory(ctx, cfg, client, mgr)
	require.NoError(t, err)
	assert.Equal(t, 3, store.sets, "cached parse is reused")
	assert.Equal(t, first.History.ItemCount(), second.History.ItemCount())

	client.AssertNumberOfCalls(t, "ExportLog", 1)

	for _, cs := range first.History.ChangeSets {
		assert.NotEmpty(t, cs.Items)
		for _, item := range cs.Items {
			assert.NotEqual(t, "docs/old.md", item.ServerPath, "deleted artifacts are cleaned up")
		}
	}
}

func TestLoadHistoryNotSynced(t *testing.T) {
	client := gitClient("/repo", gitExportFixture)
	mgr := managerWith(newMemStore(), nil)

	_, err := LoadHistory(context.Background(), testConfig("/repo"), client, mgr)
	assert.ErrorIs(t, err, ErrNotSynced)
	client.AssertNotCalled(t, "ExportLog", mock.Anything, mock.Anything)

	_, err = LastSync(testConfig("/repo"), mgr)
	assert.ErrorIs(t, err, ErrNotSynced)
}

func TestLoadHistoryStoreFailure(t *testing.T) {
	store := &iocache.MockCacheStore{}
	store.On("Get", mock.Anything).Return(nil, 0, int64(0), assert.AnError)
	client := gitClient("/repo", gitExportFixture)
	mgr := managerWith(store, nil)

	_, err := LoadHistory(context.Background(), testConfig("/repo"), client, mgr)
	require.ErrorIs(t, err, assert.AnError)
	assert.NotErrorIs(t, err, ErrNotSynced)

	_, err = LastSync(testConfig("/repo"), mgr)
	require.ErrorIs(t, err, assert.AnError)
	assert.NotErrorIs(t, err, ErrNotSynced)
}

func TestIsCacheMiss(t *testing.T) {
	assert.True(t, isCacheMiss(sql.ErrNoRows))
	assert.True(t, isCacheMiss(fmt.Errorf("lookup: %w", badger.ErrKeyNotFound)))
	assert.False(t, isCacheMiss(assert.AnError))
	assert.False(t, isCacheMiss(nil))
}

func TestLoadHistoryWithoutCache(t *testing.T) {
	cfg := testConfig("/repo")
	cfg.CacheBackend = schema.NoneBackend
	client := gitClient("/repo", gitExportFixture)
	mgr := managerWith(nil, nil)

	result, err := LoadHistory(context.Background(), cfg, client, mgr)
	require.NoError(t, err)
	assert.Len(t, result.History.ChangeSets, 4)
	client.AssertNumberOfCalls(t, "ExportLog", 1)

	_, err = Sync(context.Background(), cfg, client, mgr)
	assert.Error(t, err)
}

func TestLoadHistoryFormatError(t *testing.T) {
	cfg := testConfig("/repo")
	cfg.CacheBackend = schema.NoneBackend
	client := gitClient("/repo", []byte("M\tstray.go\n"))

	_, err := LoadHistory(context.Background(), cfg, client, managerWith(nil, nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed export")
}

func TestApplySharedHistoryPolicy(t *testing.T) {
	build := func() *schema.ParseResult {
		item := func(id, cs string, kind schema.KindOfChange) *schema.ChangeItem {
			return &schema.ChangeItem{ID: id, ChangeSetID: cs, ServerPath: id + ".go", Kind: kind}
		}
		return &schema.ParseResult{
			History: &schema.History{ChangeSets: []*schema.ChangeSet{
				{ID: "c3", Items: []*schema.ChangeItem{item("copy", "c3", schema.Edit)}},
				{ID: "c2", Items: []*schema.ChangeItem{item("copy", "c2", schema.Edit), item("other", "c2", schema.Edit)}},
				{ID: "c1", Items: []*schema.ChangeItem{item("copy", "c1", schema.Add)}},
			}},
			Edges:    map[string][]string{"c3": {"c2"}, "c2": {"c1"}, "c1": {}},
			Branches: []schema.BranchPoint{{Identity: "copy", ChangeSetID: "c3"}, {Identity: "other", SourceIdentity: "x", ChangeSetID: "c2"}},
		}
	}

	kept := build()
	assert.Zero(t, applySharedHistoryPolicy(kept, schema.KeepSharedHistory))
	assert.Equal(t, 4, kept.History.ItemCount())

	pruned := build()
	assert.Equal(t, 2, applySharedHistoryPolicy(pruned, schema.PruneCopiedHistory))
	assert.Len(t, pruned.History.ChangeSets[0].Items, 1, "the copy itself stays")
	require.Len(t, pruned.History.ChangeSets[1].Items, 1)
	assert.Equal(t, "other", pruned.History.ChangeSets[1].Items[0].ID, "branches with their own source are kept")
	assert.Empty(t, pruned.History.ChangeSets[2].Items)
}
