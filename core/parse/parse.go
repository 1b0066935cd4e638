// Package parse turns exported VCS logs into a tracked change history.
//
// Both parsers read their export one record at a time and collect raw
// changesets. Once the export is fully read, the changesets are fed newest
// first through an identity.Tracker so every item leaves with its identity set.
package parse

import (
	"fmt"
	"io"
	"sort"

	"github.com/huangsam/insight/core/graph"
	"github.com/huangsam/insight/core/identity"
	"github.com/huangsam/insight/internal/contract"
	"github.com/huangsam/insight/schema"
	"go.uber.org/zap"
)

// Parser produces a tracked history from a raw export.
type Parser interface {
	Parse(r io.Reader) (*schema.ParseResult, error)
}

// Options are shared by every parser.
type Options struct {
	PathMapper     contract.PathMapper // Defaults to returning the server path unchanged
	WorkItems      *WorkItemExtractor  // Nil extracts no work items
	TrackerOptions []identity.Option
}

// New returns the parser for backend.
func New(backend schema.VCSBackend, opts Options) (Parser, error) {
	switch backend {
	case schema.GitBackend:
		return NewGitParser(opts), nil
	case schema.SVNBackend:
		return NewSVNParser(opts), nil
	default:
		return nil, fmt.Errorf("no parser for backend %q", backend)
	}
}

// FormatError reports a structurally broken export. No partial history is
// returned alongside it; the log must be exported again.
type FormatError struct {
	Record      int    // 1-based record number within the export
	ChangeSetID string // Empty when the id was not read yet
	Line        int    // 1-based line, 0 when unknown
	Msg         string
}

func (e *FormatError) Error() string {
	loc := fmt.Sprintf("record %d", e.Record)
	if e.ChangeSetID != "" {
		loc += fmt.Sprintf(" (%s)", e.ChangeSetID)
	}
	if e.Line > 0 {
		loc += fmt.Sprintf(", line %d", e.Line)
	}
	return fmt.Sprintf("malformed export at %s: %s", loc, e.Msg)
}

// builder collects changesets during one parse and finishes them into a ParseResult.
type builder struct {
	opts     Options
	graph    *graph.Graph
	sets     []*schema.ChangeSet
	seen     map[string]struct{}
	warnings []schema.Warning
}

func newBuilder(opts Options) *builder {
	if opts.PathMapper == nil {
		opts.PathMapper = func(serverPath string) string { return serverPath }
	}
	return &builder{
		opts:  opts,
		graph: graph.New(),
		seen:  make(map[string]struct{}),
	}
}

// add keeps cs unless its id was already seen. It reports whether cs was kept.
func (b *builder) add(cs *schema.ChangeSet) bool {
	_, dup := b.seen[cs.ID]
	if !contract.Assert(!dup, "changeset %s appears twice in the export", cs.ID) {
		b.warn("", cs.ID, "duplicate changeset skipped")
		return false
	}
	b.seen[cs.ID] = struct{}{}
	cs.WorkItems = b.opts.WorkItems.Extract(cs.Comment)
	for _, item := range cs.Items {
		item.ChangeSetID = cs.ID
		item.LocalPath = b.opts.PathMapper(item.ServerPath)
	}
	b.sets = append(b.sets, cs)
	return true
}

func (b *builder) warn(identity, csID, msg string) {
	b.warnings = append(b.warnings, schema.Warning{Identity: identity, Message: msg, ChangeSetID: csID})
}

// decodePath decodes a git path, keeping the best-effort prefix on failure.
func (b *builder) decodePath(raw, csID string) string {
	decoded, err := DecodePath(raw)
	if err != nil {
		contract.LogWarn("Keeping partially decoded path", err)
		b.warn("", csID, err.Error())
	}
	return decoded
}

// finish orders the history newest first and runs identity tracking over it.
func (b *builder) finish() *schema.ParseResult {
	history := &schema.History{ChangeSets: b.sets}
	if err := history.Validate(); err != nil {
		contract.Assert(false, "%v", err)
		b.warn("", "", "export was not ordered newest first and has been re-sorted")
		sort.SliceStable(history.ChangeSets, func(i, j int) bool {
			return history.ChangeSets[i].Date.After(history.ChangeSets[j].Date)
		})
	}

	tracker := identity.NewTracker(b.opts.TrackerOptions...)
	for _, cs := range history.ChangeSets {
		tracker.BeginChangeSet(cs)
		for _, item := range cs.Items {
			tracker.Track(item)
		}
		tracker.ApplyChangeSet()
	}

	contract.Logger().Debug("parsed history",
		zap.Int("changesets", len(history.ChangeSets)),
		zap.Int("items", history.ItemCount()),
		zap.Int("warnings", len(b.warnings)+len(tracker.Warnings())))

	return &schema.ParseResult{
		History:  history,
		Edges:    b.graph.Edges(),
		Warnings: append(tracker.Warnings(), b.warnings...),
		Branches: tracker.Branches(),
	}
}
