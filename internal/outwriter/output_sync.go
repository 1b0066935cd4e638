package outwriter

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/huangsam/insight/internal/contract"
	"github.com/huangsam/insight/schema"
)

// WriteSyncResult reports what a sync stored in the log cache.
func WriteSyncResult(result *schema.SyncResult, cfg *contract.Config, duration time.Duration) error {
	if cfg.Output == schema.JSONOut {
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, result)
		}, "JSON sync result")
	}
	return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
		return writeSyncText(w, result, cfg, duration)
	}, "sync result")
}

func writeSyncText(w io.Writer, result *schema.SyncResult, cfg *contract.Config, duration time.Duration) error {
	_, err := fmt.Fprintf(w,
		"Synced %s log at revision %s\n  exported: %s\n  stored:   %s (%s backend)\n  took:     %v\n",
		result.Backend,
		shortRevision(result.Revision),
		humanize.Bytes(uint64(result.RawBytes)),
		humanize.Bytes(uint64(result.StoredBytes)),
		cfg.CacheBackend,
		duration.Round(time.Millisecond),
	)
	return err
}
