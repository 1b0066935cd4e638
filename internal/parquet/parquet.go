// Package parquet provides row types and writers for exporting insight data
// to Parquet files using github.com/parquet-go/parquet-go.
package parquet

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/huangsam/insight/schema"
	"github.com/parquet-go/parquet-go"
)

// AnalysisRun maps to the insight_analysis_runs table.
type AnalysisRun struct {
	AnalysisID             int64      `parquet:"analysis_id,snappy"`
	StartTime              time.Time  `parquet:"start_time,snappy"`
	EndTime                *time.Time `parquet:"end_time,optional,snappy"`
	RunDurationMs          *int32     `parquet:"run_duration_ms,optional,snappy"`
	TotalArtifactsAnalyzed int32      `parquet:"total_artifacts_analyzed,snappy"`

	// ConfigParams contains the JSON-encoded configuration of the run
	ConfigParams *string `parquet:"config_params,optional,snappy"`
}

// ArtifactScore maps to the insight_artifact_scores table.
type ArtifactScore struct {
	AnalysisID     int64     `parquet:"analysis_id,snappy"`
	ArtifactID     string    `parquet:"artifact_id,snappy"`
	LocalPath      string    `parquet:"local_path,snappy"`
	AnalysisTime   time.Time `parquet:"analysis_time,snappy"`
	Revision       string    `parquet:"revision,snappy"`
	LastChange     time.Time `parquet:"last_change,snappy"`
	Commits        int32     `parquet:"commits,snappy"`
	CommitterCount int32     `parquet:"committer_count,snappy"`
	WorkItemCount  int32     `parquet:"work_item_count,snappy"`
	LinesOfCode    int32     `parquet:"lines_of_code,snappy"`
	Language       *string   `parquet:"language,optional,snappy"`
	Score          float64   `parquet:"score,snappy"`
	ScoreLabel     string    `parquet:"score_label,snappy"`
}

// SummaryRow is one ranked artifact of a summary, flattened for columnar output.
type SummaryRow struct {
	Rank        int32     `parquet:"rank,snappy"`
	Label       string    `parquet:"label,snappy"`
	Score       float64   `parquet:"score,snappy"`
	ArtifactID  string    `parquet:"artifact_id,snappy"`
	LocalPath   string    `parquet:"local_path,snappy"`
	ServerPath  string    `parquet:"server_path,snappy"`
	Revision    string    `parquet:"revision,snappy"`
	LastChange  time.Time `parquet:"last_change,snappy"`
	Commits     int32     `parquet:"commits,snappy"`
	Committers  string    `parquet:"committers,snappy"` // comma separated
	WorkItems   string    `parquet:"work_items,snappy"` // comma separated
	Language    string    `parquet:"language,snappy"`
	LinesOfCode int32     `parquet:"lines_of_code,snappy"`
	SizeBytes   int64     `parquet:"size_bytes,snappy"`
	AgeDays     int32     `parquet:"age_days,snappy"`
}

// Write encodes rows as a Parquet file into w. The schema is derived from
// the struct tags of T.
func Write[T any](w io.Writer, rows []T) error {
	writer := parquet.NewGenericWriter[T](w)
	if _, err := writer.Write(rows); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finish parquet file: %w", err)
	}
	return nil
}

// WriteFile creates outputPath and writes rows to it.
func WriteFile[T any](outputPath string, rows []T) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := Write(file, rows); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

// ConvertAnalysisRunRecords converts stored analysis runs for export.
func ConvertAnalysisRunRecords(records []schema.AnalysisRunRecord) []AnalysisRun {
	result := make([]AnalysisRun, len(records))
	for i, record := range records {
		result[i] = AnalysisRun{
			AnalysisID:             record.AnalysisID,
			StartTime:              record.StartTime,
			EndTime:                record.EndTime,
			RunDurationMs:          record.RunDurationMs,
			TotalArtifactsAnalyzed: record.TotalArtifactsAnalyzed,
			ConfigParams:           record.ConfigParams,
		}
	}
	return result
}

// ConvertArtifactScoreRecords converts stored artifact scores for export.
func ConvertArtifactScoreRecords(records []schema.ArtifactScoreRecord) []ArtifactScore {
	result := make([]ArtifactScore, len(records))
	for i, r := range records {
		result[i] = ArtifactScore{
			AnalysisID:     r.AnalysisID,
			ArtifactID:     r.ArtifactID,
			LocalPath:      r.LocalPath,
			AnalysisTime:   r.AnalysisTime,
			Revision:       r.Revision,
			LastChange:     r.LastChange,
			Commits:        r.Commits,
			CommitterCount: r.CommitterCount,
			WorkItemCount:  r.WorkItemCount,
			LinesOfCode:    r.LinesOfCode,
			Language:       r.Language,
			Score:          r.Score,
			ScoreLabel:     r.ScoreLabel,
		}
	}
	return result
}

// ConvertRankedArtifacts flattens a ranked summary into Parquet rows.
func ConvertRankedArtifacts(artifacts []schema.RankedArtifact) []SummaryRow {
	result := make([]SummaryRow, len(artifacts))
	for i, a := range artifacts {
		result[i] = SummaryRow{
			Rank:        int32(a.Rank),
			Label:       a.Label,
			Score:       a.Score,
			ArtifactID:  a.ID,
			LocalPath:   a.LocalPath,
			ServerPath:  a.ServerPath,
			Revision:    a.Revision,
			LastChange:  a.Date,
			Commits:     int32(a.Commits),
			Committers:  strings.Join(a.Committers, ","),
			WorkItems:   strings.Join(a.WorkItems, ","),
			Language:    a.Language,
			LinesOfCode: int32(a.LinesOfCode),
			SizeBytes:   a.SizeBytes,
			AgeDays:     int32(a.AgeDays),
		}
	}
	return result
}

// ChangeRow is one change item of a history listing.
type ChangeRow struct {
	ChangeSetID    string    `parquet:"changeset_id,snappy"`
	Date           time.Time `parquet:"date,snappy"`
	Committer      string    `parquet:"committer,snappy"`
	WorkItems      string    `parquet:"work_items,snappy"` // comma separated
	Kind           string    `parquet:"kind,snappy"`
	ArtifactID     string    `parquet:"artifact_id,snappy"`
	ServerPath     string    `parquet:"server_path,snappy"`
	LocalPath      string    `parquet:"local_path,snappy"`
	FromServerPath *string   `parquet:"from_server_path,optional,snappy"`
}

// WarningRow is one advisory warning.
type WarningRow struct {
	ChangeSetID string `parquet:"changeset_id,snappy"`
	Identity    string `parquet:"identity,snappy"`
	Message     string `parquet:"message,snappy"`
}

// ConvertHistory flattens a history into one row per change item, newest first.
func ConvertHistory(h *schema.History) []ChangeRow {
	result := make([]ChangeRow, 0, h.ItemCount())
	for _, cs := range h.ChangeSets {
		workItems := strings.Join(cs.WorkItems, ",")
		for _, item := range cs.Items {
			row := ChangeRow{
				ChangeSetID: cs.ID,
				Date:        cs.Date,
				Committer:   cs.Committer,
				WorkItems:   workItems,
				Kind:        item.Kind.String(),
				ArtifactID:  item.ID,
				ServerPath:  item.ServerPath,
				LocalPath:   item.LocalPath,
			}
			if item.FromServerPath != "" {
				from := item.FromServerPath
				row.FromServerPath = &from
			}
			result = append(result, row)
		}
	}
	return result
}

// ConvertWarnings converts warnings for columnar output.
func ConvertWarnings(warnings []schema.Warning) []WarningRow {
	result := make([]WarningRow, len(warnings))
	for i, w := range warnings {
		result[i] = WarningRow{ChangeSetID: w.ChangeSetID, Identity: w.Identity, Message: w.Message}
	}
	return result
}
