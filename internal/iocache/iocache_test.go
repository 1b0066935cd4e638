package iocache

import (
	"bytes"
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/huangsam/insight/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetGlobals lets a test call InitCaching and CloseCaching again.
func resetGlobals(t *testing.T) {
	t.Helper()
	initOnce = sync.Once{}
	closeOnce = sync.Once{}
	Manager = &CacheStoreManager{}
	t.Cleanup(func() {
		CloseCaching()
		initOnce = sync.Once{}
		closeOnce = sync.Once{}
		Manager = &CacheStoreManager{}
	})
}

func TestInitCaching(t *testing.T) {
	t.Run("sqlite stores", func(t *testing.T) {
		resetGlobals(t)
		dir := t.TempDir()
		cachePath := filepath.Join(dir, "cache.db")
		analysisPath := filepath.Join(dir, "analysis.db")

		require.NoError(t, InitCaching(schema.SQLiteBackend, cachePath, schema.SQLiteBackend, analysisPath))
		assert.NotNil(t, Manager.GetLogStore())
		assert.NotNil(t, Manager.GetAnalysisStore())

		// Later calls are no-ops.
		require.NoError(t, InitCaching(schema.NoneBackend, "", schema.NoneBackend, ""))
		status, err := Manager.GetLogStore().GetStatus()
		require.NoError(t, err)
		assert.Equal(t, "sqlite", status.Backend)

		CloseCaching()
		CloseCaching()
		_, err = os.Stat(cachePath)
		assert.NoError(t, err, "database file should be created")
	})

	t.Run("empty backends leave stores unset", func(t *testing.T) {
		resetGlobals(t)
		require.NoError(t, InitCaching("", "", "", ""))
		assert.Nil(t, Manager.GetLogStore())
		assert.Nil(t, Manager.GetAnalysisStore())
	})

	t.Run("unsupported backend", func(t *testing.T) {
		resetGlobals(t)
		err := InitCaching("oracle", "", "", "")
		assert.ErrorContains(t, err, "failed to initialize log cache")
	})

	t.Run("badger cannot hold analysis", func(t *testing.T) {
		resetGlobals(t)
		err := InitCaching(schema.NoneBackend, "", schema.BadgerBackend, t.TempDir())
		assert.ErrorContains(t, err, "unsupported analysis backend")
	})
}

func TestValidateTableName(t *testing.T) {
	tests := []struct {
		name      string
		tableName string
		wantErr   bool
	}{
		{"simple", "insight_log_cache", false},
		{"leading underscore", "_cache", false},
		{"mixed case and digits", "Cache_2", false},
		{"empty", "", true},
		{"leading digit", "1cache", true},
		{"space", "log cache", true},
		{"injection", "cache; DROP TABLE x", true},
		{"dash", "log-cache", true},
		{"quote", `log"cache`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateTableName(tt.tableName)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestQuoteAndPlaceholders(t *testing.T) {
	assert.Equal(t, "`t`", quoteTableName("t", schema.MySQLBackend))
	assert.Equal(t, `"t"`, quoteTableName("t", schema.PostgreSQLBackend))
	assert.Equal(t, `"t"`, quoteTableName("t", schema.SQLiteBackend))

	assert.Equal(t, "?, ?, ?", placeholderList(schema.SQLiteBackend, 3))
	assert.Equal(t, "?, ?", placeholderList(schema.MySQLBackend, 2))
	assert.Equal(t, "$1, $2, $3", placeholderList(schema.PostgreSQLBackend, 3))
}

func TestDriverFor(t *testing.T) {
	tests := map[schema.DatabaseBackend]string{
		schema.SQLiteBackend:     "sqlite",
		schema.MySQLBackend:      "mysql",
		schema.PostgreSQLBackend: "pgx",
	}
	for backend, want := range tests {
		got, err := driverFor(backend)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := driverFor(schema.BadgerBackend)
	assert.Error(t, err)
}

func TestQueries(t *testing.T) {
	mysqlStore := &SQLCacheStore{tableName: "c", backend: schema.MySQLBackend}
	assert.Contains(t, mysqlStore.getUpsertQuery(), "ON DUPLICATE KEY UPDATE")
	pgStore := &SQLCacheStore{tableName: "c", backend: schema.PostgreSQLBackend}
	assert.Contains(t, pgStore.getUpsertQuery(), "ON CONFLICT (cache_key)")
	sqliteStore := &SQLCacheStore{tableName: "c", backend: schema.SQLiteBackend}
	assert.Contains(t, sqliteStore.getUpsertQuery(), "INSERT OR REPLACE")

	assert.Contains(t, getCreateTableQuery("c", schema.MySQLBackend), "LONGBLOB")
	assert.Contains(t, getCreateTableQuery("c", schema.PostgreSQLBackend), "BYTEA")
	assert.Contains(t, getCreateTableQuery("c", schema.SQLiteBackend), "BLOB")
}

func TestSQLiteCacheStore(t *testing.T) {
	store, err := NewCacheStore(logTable, schema.SQLiteBackend, filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	_, _, _, err = store.Get("missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)

	require.NoError(t, store.Set("k", []byte("one"), 1, 100))
	require.NoError(t, store.Set("k", []byte("two"), 2, 200))
	require.NoError(t, store.Set("other", []byte("x"), 1, 50))

	value, version, ts, err := store.Get("k")
	require.NoError(t, err)
	assert.Equal(t, []byte("two"), value)
	assert.Equal(t, 2, version)
	assert.Equal(t, int64(200), ts)

	status, err := store.GetStatus()
	require.NoError(t, err)
	assert.True(t, status.Connected)
	assert.Equal(t, 2, status.TotalEntries)
	assert.Equal(t, time.Unix(200, 0), status.LastEntryTime)
	assert.Equal(t, time.Unix(50, 0), status.OldestEntryTime)
	assert.Positive(t, status.TableSizeBytes)
}

func TestNoneCacheStore(t *testing.T) {
	store, err := NewCacheStore(logTable, schema.NoneBackend, "")
	require.NoError(t, err)

	require.NoError(t, store.Set("k", []byte("v"), 1, 1))
	_, _, _, err = store.Get("k")
	assert.ErrorIs(t, err, sql.ErrNoRows)

	status, err := store.GetStatus()
	require.NoError(t, err)
	assert.False(t, status.Connected)
	assert.NoError(t, store.Close())
}

func TestNewCacheStoreErrors(t *testing.T) {
	_, err := NewCacheStore("bad name", schema.SQLiteBackend, "")
	assert.ErrorContains(t, err, "invalid table name")

	_, err = NewCacheStore(logTable, "oracle", "")
	assert.ErrorContains(t, err, "unsupported cache backend")
}

func TestBadgerStore(t *testing.T) {
	dir := t.TempDir()
	store, err := NewCacheStore(logTable, schema.BadgerBackend, dir)
	require.NoError(t, err)

	_, _, _, err = store.Get("missing")
	assert.ErrorIs(t, err, badger.ErrKeyNotFound)

	require.NoError(t, store.Set("a", []byte("alpha"), 1, 300))
	require.NoError(t, store.Set("b", []byte("beta"), 1, 100))
	require.NoError(t, store.Set("a", []byte("alpha2"), 3, 400))

	value, version, ts, err := store.Get("a")
	require.NoError(t, err)
	assert.Equal(t, []byte("alpha2"), value)
	assert.Equal(t, 3, version)
	assert.Equal(t, int64(400), ts)

	status, err := store.GetStatus()
	require.NoError(t, err)
	assert.Equal(t, "badger", status.Backend)
	assert.Equal(t, 2, status.TotalEntries)
	assert.Equal(t, time.Unix(400, 0), status.LastEntryTime)
	assert.Equal(t, time.Unix(100, 0), status.OldestEntryTime)
	require.NoError(t, store.Close())

	// Data survives a reopen.
	reopened, err := NewBadgerStore(dir, logTable)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()
	value, _, _, err = reopened.Get("b")
	require.NoError(t, err)
	assert.Equal(t, []byte("beta"), value)
}

func TestBadgerEntryEncoding(t *testing.T) {
	raw := encodeEntry([]byte("payload"), 7, 1700000000)
	value, version, ts, err := decodeEntry(raw)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), value)
	assert.Equal(t, 7, version)
	assert.Equal(t, int64(1700000000), ts)

	_, _, _, err = decodeEntry([]byte{1, 2})
	assert.Error(t, err)
}

func TestClearCache(t *testing.T) {
	t.Run("sqlite", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "cache.db")
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
		require.NoError(t, ClearCache(schema.SQLiteBackend, path))
		_, err := os.Stat(path)
		assert.True(t, os.IsNotExist(err))

		// Removing a missing file is fine.
		assert.NoError(t, ClearCache(schema.SQLiteBackend, path))
	})

	t.Run("badger", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "badger")
		store, err := NewBadgerStore(dir, logTable)
		require.NoError(t, err)
		require.NoError(t, store.Close())

		require.NoError(t, ClearCache(schema.BadgerBackend, dir))
		_, err = os.Stat(dir)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("none and unsupported", func(t *testing.T) {
		assert.NoError(t, ClearCache(schema.NoneBackend, ""))
		assert.Error(t, ClearCache("oracle", ""))
		assert.NoError(t, ClearAnalysis(schema.NoneBackend, ""))
		assert.Error(t, ClearAnalysis(schema.BadgerBackend, ""))
	})
}

func TestCacheStoreManagerConcurrency(t *testing.T) {
	mgr := &CacheStoreManager{}
	store := &MockCacheStore{}

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Go(func() {
			if i%2 == 0 {
				mgr.Lock()
				mgr.log = store
				mgr.Unlock()
				return
			}
			_ = mgr.GetLogStore()
		})
	}
	wg.Wait()
	assert.Same(t, store, mgr.GetLogStore())
}

func TestPrintStatus(t *testing.T) {
	now := time.Now()

	var buf bytes.Buffer
	PrintCacheStatus(&buf, schema.CacheStatus{
		Backend: "sqlite", Connected: true, TotalEntries: 1200,
		LastEntryTime: now, OldestEntryTime: now.Add(-time.Hour), TableSizeBytes: 2048,
	})
	out := buf.String()
	assert.Contains(t, out, "Cache Backend: sqlite")
	assert.Contains(t, out, "Total Entries: 1,200")
	assert.Contains(t, out, "Size: 2.0 kB")

	buf.Reset()
	PrintAnalysisStatus(&buf, schema.AnalysisStatus{
		Backend: "sqlite", Connected: true, TotalRuns: 2, LastRunID: 2,
		LastRunTime: now, OldestRunTime: now, TotalArtifactsAnalyzed: 40,
		TableSizes: map[string]int64{artifactScoresTable: 40, analysisRunsTable: 2},
	})
	out = buf.String()
	assert.Contains(t, out, "Total Artifacts Analyzed: 40")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte(analysisRunsTable)), bytes.Index(buf.Bytes(), []byte(artifactScoresTable)))

	buf.Reset()
	PrintCacheStatus(&buf, schema.CacheStatus{Backend: "none"})
	assert.NotContains(t, buf.String(), "Total Entries")
}
