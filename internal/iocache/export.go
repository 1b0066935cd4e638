package iocache

import (
	"errors"
	"fmt"
	"io"

	"github.com/huangsam/insight/internal/contract"
	"github.com/huangsam/insight/internal/parquet"
)

// ExportAnalysis writes every analysis run and artifact score held by store
// to two Parquet files derived from outputFile, and reports progress to w.
func ExportAnalysis(w io.Writer, store contract.AnalysisStore, outputFile string) error {
	if outputFile == "" {
		return errors.New("--output-file is required for export command")
	}
	if store == nil {
		return errors.New("analysis tracking is not configured")
	}

	status, err := store.GetStatus()
	if err != nil {
		return fmt.Errorf("failed to get analysis status: %w", err)
	}
	if status.TotalRuns == 0 {
		return errors.New("no analysis data found to export")
	}
	_, _ = fmt.Fprintf(w, "Exporting data from %s backend...\n", status.Backend)

	runs, err := store.GetAllAnalysisRuns()
	if err != nil {
		return fmt.Errorf("failed to retrieve analysis runs: %w", err)
	}
	scores, err := store.GetAllArtifactScores()
	if err != nil {
		return fmt.Errorf("failed to retrieve artifact scores: %w", err)
	}

	runsFile := outputFile + ".analysis_runs.parquet"
	if err := parquet.WriteFile(runsFile, parquet.ConvertAnalysisRunRecords(runs)); err != nil {
		return fmt.Errorf("failed to write analysis runs: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d analysis runs to: %s\n", len(runs), runsFile)

	scoresFile := outputFile + ".artifact_scores.parquet"
	if err := parquet.WriteFile(scoresFile, parquet.ConvertArtifactScoreRecords(scores)); err != nil {
		return fmt.Errorf("failed to write artifact scores: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d artifact scores to: %s\n", len(scores), scoresFile)
	return nil
}
