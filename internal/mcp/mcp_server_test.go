package mcp_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"

	"github.com/huangsam/insight/internal/contract"
	"github.com/huangsam/insight/internal/iocache"
	mcp_internal "github.com/huangsam/insight/internal/mcp"
	"github.com/huangsam/insight/schema"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const export = `START_HEADER
bbbbbbb
Alice
2024-03-02T10:00:00+00:00
aaaaaaa
Rename main #3

END_HEADER

R100	main.go	cmd/main.go

START_HEADER
aaaaaaa
Bob
2024-03-01T10:00:00+00:00

Initial import

END_HEADER

A	main.go
A	README.md
`

func newServerFixture(t *testing.T) (*contract.Config, *contract.MockVCSClient, *iocache.MockCacheManager) {
	t.Helper()
	root := t.TempDir()
	cfg := &contract.Config{
		RepoPath:      root,
		Backend:       schema.GitBackend,
		ResultLimit:   10,
		Workers:       1,
		Precision:     1,
		WorkItemRegex: contract.DefaultWorkItemRegex,
		Liveness:      schema.NoLiveness,
		SharedHistory: schema.KeepSharedHistory,
		CacheBackend:  schema.NoneBackend,
		Weights:       schema.DefaultWeights(),
	}

	client := &contract.MockVCSClient{}
	client.On("Backend").Return(schema.GitBackend).Maybe()
	client.On("GetServerPrefix", mock.Anything, root).Return("", nil).Maybe()
	client.On("ExportLog", mock.Anything, root).Return([]byte(export), nil).Maybe()

	mgr := &iocache.MockCacheManager{}
	mgr.On("GetLogStore").Return(nil)
	mgr.On("GetAnalysisStore").Return(nil)
	return cfg, client, mgr
}

func callTool(t *testing.T, cfg *contract.Config, client contract.VCSClient, mgr contract.CacheManager, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	s := mcp_internal.NewMCPServer(cfg, client, mgr)
	tool := s.GetTool(name)
	require.NotNil(t, tool, "tool %s should exist", name)

	res, err := tool.Handler(context.Background(), mcp.CallToolRequest{
		Params: mcp.CallToolParams{Name: name, Arguments: args},
	})
	require.NoError(t, err, "tool failures are reported in the result, not as raw errors")
	require.NotEmpty(t, res.Content)
	return res
}

func text(res *mcp.CallToolResult) string {
	return res.Content[0].(mcp.TextContent).Text
}

func TestGetSummaryTool(t *testing.T) {
	cfg, client, mgr := newServerFixture(t)
	res := callTool(t, cfg, client, mgr, "get_summary", map[string]any{"limit": 1.0})
	require.False(t, res.IsError, text(res))

	var ranked []schema.RankedArtifact
	require.NoError(t, json.Unmarshal([]byte(text(res)), &ranked))
	require.Len(t, ranked, 1)
	assert.Equal(t, 1, ranked[0].Rank)
	assert.Equal(t, 2, ranked[0].Commits, "the renamed file carries both commits")
}

func TestGetHistoryTool(t *testing.T) {
	cfg, client, mgr := newServerFixture(t)

	t.Run("lineage", func(t *testing.T) {
		res := callTool(t, cfg, client, mgr, "get_history", map[string]any{"artifact": "cmd/main.go"})
		require.False(t, res.IsError, text(res))

		var h schema.History
		require.NoError(t, json.Unmarshal([]byte(text(res)), &h))
		assert.Equal(t, 2, h.ItemCount())
	})

	t.Run("escaping path", func(t *testing.T) {
		res := callTool(t, cfg, client, mgr, "get_history", map[string]any{"artifact": "../etc/passwd"})
		assert.True(t, res.IsError)
		assert.Contains(t, text(res), "must be relative")
	})

	t.Run("unknown path", func(t *testing.T) {
		res := callTool(t, cfg, client, mgr, "get_history", map[string]any{"artifact": "nope.go"})
		assert.True(t, res.IsError)
		assert.Contains(t, text(res), "no history found")
	})
}

func TestGetWarningsTool(t *testing.T) {
	cfg, client, mgr := newServerFixture(t)
	res := callTool(t, cfg, client, mgr, "get_warnings", nil)
	require.False(t, res.IsError, text(res))
	assert.JSONEq(t, "[]", text(res))
}

func TestToolsRequireSync(t *testing.T) {
	cfg, client, _ := newServerFixture(t)
	cfg.CacheBackend = schema.SQLiteBackend

	store := &iocache.MockCacheStore{}
	store.On("Get", mock.Anything).Return(nil, 0, int64(0), sql.ErrNoRows)
	mgr := &iocache.MockCacheManager{}
	mgr.On("GetLogStore").Return(store)
	mgr.On("GetAnalysisStore").Return(nil)

	for _, name := range []string{"get_summary", "get_history", "get_warnings"} {
		t.Run(name, func(t *testing.T) {
			res := callTool(t, cfg, client, mgr, name, nil)
			assert.True(t, res.IsError)
			assert.Contains(t, text(res), "has not been synced")
		})
	}
}
