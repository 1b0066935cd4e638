package parquet

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/insight/schema"
	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll[T any](t *testing.T, r io.ReaderAt) []T {
	t.Helper()
	reader := parquet.NewGenericReader[T](r)
	defer func() { _ = reader.Close() }()

	rows := make([]T, reader.NumRows())
	n, err := reader.Read(rows)
	if err != nil && err != io.EOF {
		require.NoError(t, err)
	}
	return rows[:n]
}

func TestStructTags(t *testing.T) {
	tests := []struct {
		name    string
		schema  *parquet.Schema
		columns []string
	}{
		{
			name:    "analysis runs",
			schema:  parquet.SchemaOf(new(AnalysisRun)),
			columns: []string{"analysis_id", "start_time", "end_time", "run_duration_ms", "total_artifacts_analyzed", "config_params"},
		},
		{
			name:   "artifact scores",
			schema: parquet.SchemaOf(new(ArtifactScore)),
			columns: []string{
				"analysis_id", "artifact_id", "local_path", "analysis_time", "revision", "last_change",
				"commits", "committer_count", "work_item_count", "lines_of_code", "language", "score", "score_label",
			},
		},
		{
			name:    "summary rows",
			schema:  parquet.SchemaOf(new(SummaryRow)),
			columns: []string{"rank", "label", "score", "local_path", "committers", "work_items", "age_days"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, col := range tt.columns {
				_, ok := tt.schema.Lookup(col)
				assert.True(t, ok, "column %s should exist", col)
			}
		})
	}
}

func TestWriteFileAnalysisRuns(t *testing.T) {
	now := time.Now()
	end := now.Add(time.Minute)
	duration := int32(60000)
	params := `{"backend":"git"}`
	runs := ConvertAnalysisRunRecords([]schema.AnalysisRunRecord{
		{AnalysisID: 1, StartTime: now, EndTime: &end, RunDurationMs: &duration, TotalArtifactsAnalyzed: 12, ConfigParams: &params},
		{AnalysisID: 2, StartTime: now},
	})

	path := filepath.Join(t.TempDir(), "runs.parquet")
	require.NoError(t, WriteFile(path, runs))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	got := readAll[AnalysisRun](t, bytes.NewReader(data))
	require.Len(t, got, 2)

	assert.Equal(t, int32(12), got[0].TotalArtifactsAnalyzed)
	require.NotNil(t, got[0].EndTime)
	assert.WithinDuration(t, end, *got[0].EndTime, time.Nanosecond)
	assert.Equal(t, params, *got[0].ConfigParams)

	assert.Nil(t, got[1].EndTime)
	assert.Nil(t, got[1].RunDurationMs)
	assert.Nil(t, got[1].ConfigParams)
}

func TestWriteArtifactScores(t *testing.T) {
	lang := "Go"
	scores := ConvertArtifactScoreRecords([]schema.ArtifactScoreRecord{
		{AnalysisID: 3, ArtifactID: "a-1", LocalPath: "/repo/main.go", Commits: 7, CommitterCount: 2, Language: &lang, Score: 71.5, ScoreLabel: "High"},
		{AnalysisID: 3, ArtifactID: "a-2", LocalPath: "/repo/README"},
	})

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, scores))

	got := readAll[ArtifactScore](t, bytes.NewReader(buf.Bytes()))
	require.Len(t, got, 2)
	assert.Equal(t, "/repo/main.go", got[0].LocalPath)
	assert.Equal(t, int32(7), got[0].Commits)
	assert.InDelta(t, 71.5, got[0].Score, 1e-9)
	require.NotNil(t, got[0].Language)
	assert.Equal(t, "Go", *got[0].Language)
	assert.Nil(t, got[1].Language)
}

func TestConvertRankedArtifacts(t *testing.T) {
	ranked := schema.RankArtifacts([]schema.Artifact{{
		ID: "x", LocalPath: "/repo/a.go", Commits: 4,
		Committers: []string{"ann", "bob"}, WorkItems: []string{"12"}, Score: 85,
	}})

	rows := ConvertRankedArtifacts(ranked)
	require.Len(t, rows, 1)
	assert.Equal(t, int32(1), rows[0].Rank)
	assert.Equal(t, "Critical", rows[0].Label)
	assert.Equal(t, "ann,bob", rows[0].Committers)
	assert.Equal(t, "12", rows[0].WorkItems)
}

func TestWriteEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.parquet")
	require.NoError(t, WriteFile(path, []ArtifactScore{}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size(), "schema is written even without rows")
}

func TestWriteFileInvalidPath(t *testing.T) {
	err := WriteFile("/nonexistent/directory/output.parquet", []AnalysisRun{{AnalysisID: 1}})
	require.Error(t, err)
}

func TestConvertHistory(t *testing.T) {
	date := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	h := &schema.History{ChangeSets: []*schema.ChangeSet{
		{ID: "r2", Date: date, Committer: "ann", WorkItems: []string{"7", "9"}, Items: []*schema.ChangeItem{
			{ID: "a", ServerPath: "/trunk/b.go", FromServerPath: "/trunk/a.go", Kind: schema.Rename},
			{ID: "c", ServerPath: "/trunk/c.go", Kind: schema.Edit},
		}},
		{ID: "r1", Date: date.Add(-time.Hour), Committer: "bob", Items: []*schema.ChangeItem{
			{ID: "a", ServerPath: "/trunk/a.go", Kind: schema.Add},
		}},
	}}

	rows := ConvertHistory(h)
	require.Len(t, rows, 3)
	assert.Equal(t, "rename", rows[0].Kind)
	require.NotNil(t, rows[0].FromServerPath)
	assert.Equal(t, "/trunk/a.go", *rows[0].FromServerPath)
	assert.Equal(t, "7,9", rows[0].WorkItems)
	assert.Nil(t, rows[1].FromServerPath)
	assert.Equal(t, "r1", rows[2].ChangeSetID)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, rows))
	got := readAll[ChangeRow](t, bytes.NewReader(buf.Bytes()))
	assert.Len(t, got, 3)

	warnings := ConvertWarnings([]schema.Warning{{ChangeSetID: "r2", Identity: "a", Message: "odd"}})
	assert.Equal(t, WarningRow{ChangeSetID: "r2", Identity: "a", Message: "odd"}, warnings[0])
}
