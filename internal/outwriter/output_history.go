package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/huangsam/insight/internal/contract"
	"github.com/huangsam/insight/internal/parquet"
	"github.com/huangsam/insight/schema"
	"github.com/olekukonko/tablewriter"
)

const historyDateLayout = "2006-01-02 15:04"

// WriteHistoryResults outputs a history, one line per change item.
func WriteHistoryResults(h *schema.History, cfg *contract.Config, duration time.Duration) error {
	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, h)
		}, "JSON history")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeHistoryCSV(w, h)
		}, "CSV history")
	case schema.ParquetOut:
		return writeParquet(cfg.OutputFile, parquet.ConvertHistory(h), "Parquet history")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeHistoryTable(w, h, cfg, duration)
		}, "history table")
	}
}

func writeHistoryTable(w io.Writer, h *schema.History, cfg *contract.Config, duration time.Duration) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Changeset", "Date", "Committer", "Kind", "Path", "From"})

	pathWidth := getMaxHistoryPathWidth(cfg)
	var data [][]string
	for _, cs := range h.ChangeSets {
		for _, item := range cs.Items {
			kind := item.Kind.String()
			if item.IsDelete() {
				kind = contract.DeletedColor.Sprint(kind)
			}
			data = append(data, []string{
				shortRevision(cs.ID),
				cs.Date.Local().Format(historyDateLayout),
				cs.Committer,
				kind,
				contract.TruncatePath(displayPath(cfg.RepoPath, item.LocalPath), pathWidth),
				contract.TruncatePath(item.FromServerPath, pathWidth),
			})
		}
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Listed %d changes in %d changesets in %v\n", len(data), len(h.ChangeSets), duration)
	return err
}

func writeHistoryCSV(w io.Writer, h *schema.History) error {
	header := []string{"changeset", "date", "committer", "work_items", "kind", "id", "server_path", "local_path", "from_server_path"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, cs := range h.ChangeSets {
			date := cs.Date.Format(time.RFC3339)
			workItems := strings.Join(cs.WorkItems, "|")
			for _, item := range cs.Items {
				rec := []string{cs.ID, date, cs.Committer, workItems, item.Kind.String(), item.ID, item.ServerPath, item.LocalPath, item.FromServerPath}
				if err := cw.Write(rec); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// shortRevision abbreviates git hashes. SVN revision numbers are left alone.
func shortRevision(id string) string {
	if len(id) == 40 {
		return id[:10]
	}
	return id
}
