// Package outwriter renders sync, summary, history and warning results as
// tables, CSV, JSON or Parquet.
package outwriter

import (
	"time"

	"github.com/huangsam/insight/internal/contract"
	"github.com/huangsam/insight/schema"
)

// OutWriter provides a unified interface for all output operations.
type OutWriter struct{}

// NewOutWriter creates a new instance of the output writer.
func NewOutWriter() *OutWriter {
	return &OutWriter{}
}

// WriteSync prints the outcome of a log export.
func (ow *OutWriter) WriteSync(result *schema.SyncResult, cfg *contract.Config, duration time.Duration) error {
	return WriteSyncResult(result, cfg, duration)
}

// WriteSummary prints ranked artifacts using the configured output format.
func (ow *OutWriter) WriteSummary(artifacts []schema.RankedArtifact, cfg *contract.Config, duration time.Duration) error {
	return WriteSummaryResults(artifacts, cfg, duration)
}

// WriteHistory prints a history using the configured output format.
func (ow *OutWriter) WriteHistory(h *schema.History, cfg *contract.Config, duration time.Duration) error {
	return WriteHistoryResults(h, cfg, duration)
}

// WriteWarnings prints warnings using the configured output format.
func (ow *OutWriter) WriteWarnings(warnings []schema.Warning, cfg *contract.Config, duration time.Duration) error {
	return WriteWarningResults(warnings, cfg, duration)
}
