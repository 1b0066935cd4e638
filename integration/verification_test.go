//go:build integration

// Package integration contains integration tests for insight.
// These tests are excluded from normal test runs due to build tags.
// To run these tests: go test -tags integration ./integration
package integration

import (
	"encoding/csv"
	"encoding/json"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/huangsam/insight/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolateStores keeps the cache and analysis databases inside the test.
func isolateStores(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("INSIGHT_CACHE_BACKEND", "sqlite")
	t.Setenv("INSIGHT_CACHE_DB_CONNECT", filepath.Join(dir, "cache.db"))
	t.Setenv("INSIGHT_ANALYSIS_BACKEND", "sqlite")
	t.Setenv("INSIGHT_ANALYSIS_DB_CONNECT", filepath.Join(dir, "analysis.db"))
	t.Setenv("INSIGHT_COLOR", "no")
}

// summaryCommits maps server paths to the commit column of a CSV summary.
func summaryCommits(t *testing.T, out string) map[string]int {
	t.Helper()
	records, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.NotEmpty(t, records)

	header := records[0]
	pathCol, commitCol := -1, -1
	for i, name := range header {
		switch name {
		case "server_path":
			pathCol = i
		case "commits":
			commitCol = i
		}
	}
	require.NotEqual(t, -1, pathCol)
	require.NotEqual(t, -1, commitCol)

	commits := make(map[string]int)
	for _, rec := range records[1:] {
		n, err := strconv.Atoi(rec[commitCol])
		require.NoError(t, err)
		commits[rec[pathCol]] = n
	}
	return commits
}

// TestSummaryFollowsRenames checks commit counts against git log --follow.
func TestSummaryFollowsRenames(t *testing.T) {
	isolateStores(t)
	repo := renameFixture(t)

	out, err := runInsight(t, repo.dir, "sync")
	require.NoError(t, err)
	assert.Contains(t, out, "Synced git log")

	out, err = runInsight(t, repo.dir, "summary", "--detail", "--output", "csv")
	require.NoError(t, err)
	commits := summaryCommits(t, out)
	require.Contains(t, commits, "helpers.go")
	assert.NotContains(t, commits, "util.go", "the old name is folded into the new one")

	for file, got := range commits {
		t.Run(file, func(t *testing.T) {
			gitCmd := exec.Command("git", "log", "--follow", "--oneline", "--", file)
			gitCmd.Dir = repo.dir
			gitOutput, err := gitCmd.Output()
			require.NoError(t, err)
			lines := strings.Split(strings.TrimSpace(string(gitOutput)), "\n")
			assert.Equal(t, len(lines), got, "commit count mismatch for %s", file)
		})
	}
}

func TestHistoryLineage(t *testing.T) {
	isolateStores(t)
	repo := renameFixture(t)

	_, err := runInsight(t, repo.dir, "sync")
	require.NoError(t, err)

	out, err := runInsight(t, repo.dir, "history", "--artifact", "helpers.go", "--output", "json")
	require.NoError(t, err)

	var h schema.History
	require.NoError(t, json.Unmarshal([]byte(out), &h))
	require.Len(t, h.ChangeSets, 3)
	require.NoError(t, h.Validate())

	oldest := h.ChangeSets[2].Items[0]
	assert.Equal(t, schema.Add, oldest.Kind)
	assert.Equal(t, "util.go", oldest.ServerPath)
	assert.Equal(t, schema.Rename, h.ChangeSets[1].Items[0].Kind)

	out, err = runInsight(t, repo.dir, "warnings", "--output", "json")
	require.NoError(t, err)
	assert.JSONEq(t, "[]", out)
}

func TestAnalysisRecordedAndExported(t *testing.T) {
	isolateStores(t)
	repo := renameFixture(t)

	_, err := runInsight(t, repo.dir, "sync")
	require.NoError(t, err)
	_, err = runInsight(t, repo.dir, "summary")
	require.NoError(t, err)

	out, err := runInsight(t, repo.dir, "analysis", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "sqlite")

	prefix := filepath.Join(t.TempDir(), "export")
	out, err = runInsight(t, repo.dir, "analysis", "export", "--output-file", prefix)
	require.NoError(t, err)
	assert.Contains(t, out, "Exported 1 analysis runs")
	assert.FileExists(t, prefix+".artifact_scores.parquet")
}

func TestCommandsRequireSync(t *testing.T) {
	isolateStores(t)
	repo := renameFixture(t)

	_, err := runInsight(t, repo.dir, "summary")
	assert.Error(t, err)
}
