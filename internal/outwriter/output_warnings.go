package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/huangsam/insight/internal/contract"
	"github.com/huangsam/insight/internal/parquet"
	"github.com/huangsam/insight/schema"
	"github.com/olekukonko/tablewriter"
)

// WriteWarningResults outputs the diagnostics gathered while parsing and tracking.
func WriteWarningResults(warnings []schema.Warning, cfg *contract.Config, duration time.Duration) error {
	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			if warnings == nil {
				warnings = []schema.Warning{}
			}
			return writeJSON(w, warnings)
		}, "JSON warnings")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCSVWithHeader(w, []string{"changeset", "identity", "message"}, func(cw *csv.Writer) error {
				for _, warn := range warnings {
					if err := cw.Write([]string{warn.ChangeSetID, warn.Identity, warn.Message}); err != nil {
						return err
					}
				}
				return nil
			})
		}, "CSV warnings")
	case schema.ParquetOut:
		return writeParquet(cfg.OutputFile, parquet.ConvertWarnings(warnings), "Parquet warnings")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeWarningTable(w, warnings, duration)
		}, "warning table")
	}
}

func writeWarningTable(w io.Writer, warnings []schema.Warning, duration time.Duration) error {
	if len(warnings) == 0 {
		_, err := fmt.Fprintf(w, "No warnings (%v)\n", duration)
		return err
	}

	table := tablewriter.NewWriter(w)
	table.Header([]string{"Changeset", "Identity", "Message"})
	data := make([][]string, 0, len(warnings))
	for _, warn := range warnings {
		data = append(data, []string{shortRevision(warn.ChangeSetID), warn.Identity, warn.Message})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d warnings in %v\n", len(warnings), duration)
	return err
}
