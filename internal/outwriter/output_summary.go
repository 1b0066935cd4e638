package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/huangsam/insight/internal/contract"
	"github.com/huangsam/insight/internal/parquet"
	"github.com/huangsam/insight/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// WriteSummaryResults outputs ranked artifacts in the configured format.
func WriteSummaryResults(artifacts []schema.RankedArtifact, cfg *contract.Config, duration time.Duration) error {
	fmtFloat, fmtInt := createFormatters(cfg.Precision)

	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, artifacts)
		}, "JSON summary")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeSummaryCSV(w, artifacts, fmtFloat, fmtInt)
		}, "CSV summary")
	case schema.ParquetOut:
		return writeParquet(cfg.OutputFile, parquet.ConvertRankedArtifacts(artifacts), "Parquet summary")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeSummaryTable(w, artifacts, cfg, fmtFloat, fmtInt, duration)
		}, "summary table")
	}
}

// writeSummaryTable renders the human-readable summary.
func writeSummaryTable(w io.Writer, artifacts []schema.RankedArtifact, cfg *contract.Config, fmtFloat func(float64) string, fmtInt func(int) string, duration time.Duration) error {
	table := tablewriter.NewWriter(w)

	headers := []string{"Rank", "Path", "Score", "Label"}
	if cfg.Detail {
		headers = append(headers, "Commits", "Committers", "Items", "LOC", "Lang", "Age")
	}
	if cfg.Explain {
		headers = append(headers, "Explain")
	}
	table.Header(headers)
	table.Configure(func(c *tablewriter.Config) {
		c.Row.Alignment.Global = tw.AlignRight
	})

	pathWidth := GetMaxTablePathWidth(cfg)
	root := cfg.RepoPath
	var data [][]string
	for _, a := range artifacts {
		row := []string{
			fmtInt(a.Rank),
			contract.TruncatePath(displayPath(root, a.LocalPath), pathWidth),
			fmtFloat(a.Score),
			contract.GetColorLabel(a.Score),
		}
		if cfg.Detail {
			row = append(row,
				fmtInt(a.Commits),
				fmtInt(len(a.Committers)),
				fmtInt(len(a.WorkItems)),
				fmtInt(a.LinesOfCode),
				a.Language,
				fmtInt(a.AgeDays),
			)
		}
		if cfg.Explain {
			row = append(row, formatTopMetricBreakdown(a.Breakdown))
		}
		data = append(data, row)
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	totalCommits := 0
	for _, a := range artifacts {
		totalCommits += a.Commits
	}
	if _, err := fmt.Fprintf(w, "Showing top %d artifacts (total commits: %d)\n", len(artifacts), totalCommits); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Summary completed in %v with %d workers. Cache backend: %s\n", duration, cfg.Workers, cfg.CacheBackend)
	return err
}

// writeSummaryCSV writes one record per ranked artifact.
func writeSummaryCSV(w io.Writer, artifacts []schema.RankedArtifact, fmtFloat func(float64) string, fmtInt func(int) string) error {
	header := []string{
		"rank", "local_path", "server_path", "score", "label", "revision", "last_change",
		"commits", "committers", "work_items", "lines_of_code", "size_bytes", "language", "age_days", "id",
	}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, a := range artifacts {
			rec := []string{
				fmtInt(a.Rank),
				a.LocalPath,
				a.ServerPath,
				fmtFloat(a.Score),
				a.Label,
				a.Revision,
				a.Date.Format(time.RFC3339),
				fmtInt(a.Commits),
				strings.Join(a.Committers, "|"),
				strings.Join(a.WorkItems, "|"),
				fmtInt(a.LinesOfCode),
				fmt.Sprintf("%d", a.SizeBytes),
				a.Language,
				fmtInt(a.AgeDays),
				a.ID,
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}

// displayPath shows local paths relative to the repository root when possible.
func displayPath(root, localPath string) string {
	if rel := contract.RelativePath(root, localPath); rel != "" && !strings.HasPrefix(rel, "..") {
		return rel
	}
	return localPath
}

const (
	metricContribMinimum = 0.5
	topNMetrics          = 3
)

// formatTopMetricBreakdown names the metrics that contribute most to a score.
func formatTopMetricBreakdown(breakdown map[schema.BreakdownKey]float64) string {
	type contribution struct {
		name  string
		value float64
	}

	var metrics []contribution
	for k, v := range breakdown {
		if v >= metricContribMinimum {
			metrics = append(metrics, contribution{name: string(k), value: v})
		}
	}
	if len(metrics) == 0 {
		return "Not applicable"
	}

	slices.SortFunc(metrics, func(a, b contribution) int {
		if d := math.Abs(b.value) - math.Abs(a.value); d != 0 {
			if d > 0 {
				return 1
			}
			return -1
		}
		return strings.Compare(a.name, b.name)
	})

	parts := make([]string, 0, topNMetrics)
	for _, m := range metrics[:min(len(metrics), topNMetrics)] {
		parts = append(parts, m.name)
	}
	return strings.Join(parts, " > ")
}
