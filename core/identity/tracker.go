// Package identity assigns stable artifact identities to change items while
// history is scanned newest first.
package identity

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/huangsam/insight/internal/contract"
	"github.com/huangsam/insight/schema"
	"go.uber.org/zap"
)

// ScanDirection names the order in which changesets must be fed to a Tracker.
type ScanDirection int

// NewestFirst is the only supported direction. Identities propagate backward
// in time from the latest path of a file to the paths it used to have.
const NewestFirst ScanDirection = iota

// Option configures a Tracker.
type Option func(*Tracker)

// WithIdentityGenerator replaces the random UUID generator, mostly for tests.
func WithIdentityGenerator(gen func() string) Option {
	return func(t *Tracker) {
		t.newID = gen
	}
}

// Tracker owns the path to identity table for one parse run. It must not be
// shared between runs or used from more than one goroutine.
type Tracker struct {
	live     map[string]string // server path -> identity live there, as of the last applied changeset
	newID    func() string
	current  *schema.ChangeSet
	pending  []*schema.ChangeItem
	warnings []schema.Warning
	branches []schema.BranchPoint
	applied  int

	previousDate *time.Time
}

// NewTracker returns an empty tracker.
func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{
		live:  make(map[string]string),
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Direction reports the scan direction the tracker expects.
func (t *Tracker) Direction() ScanDirection {
	return NewestFirst
}

// BeginChangeSet starts collecting items for cs. Changesets must arrive with
// non-increasing dates.
func (t *Tracker) BeginChangeSet(cs *schema.ChangeSet) {
	if t.current != nil {
		t.warn("", t.current.ID, "changeset %s was never applied", t.current.ID)
		t.ApplyChangeSet()
	}
	if t.previousDate != nil {
		contract.Assert(!cs.Date.After(*t.previousDate),
			"changeset %s (%s) is newer than the one before it", cs.ID, cs.Date)
	}
	date := cs.Date
	t.previousDate = &date
	t.current = cs
	t.pending = t.pending[:0]
}

// Track queues an item of the current changeset. Identities are only resolved
// once the whole changeset is known.
func (t *Tracker) Track(item *schema.ChangeItem) {
	if t.current == nil {
		t.warn(item.ID, item.ChangeSetID, "item %s tracked outside of a changeset", item.ServerPath)
		return
	}
	t.pending = append(t.pending, item)
}

// binding is one path update computed for a changeset.
type binding struct {
	path string
	id   string
}

// ApplyChangeSet resolves every queued item against the table as it was before
// this changeset, then applies all clears and binds at once.
func (t *Tracker) ApplyChangeSet() {
	if t.current == nil {
		return
	}
	csID := t.current.ID

	// Resolve every item first so copies can see sources touched in the same changeset.
	resolved := make(map[string]string, len(t.pending))
	touched := make(map[string]string, len(t.pending))
	for _, item := range t.pending {
		id, ok := t.live[item.ServerPath]
		if !ok {
			id, ok = resolved[item.ServerPath]
		}
		if !ok {
			id = t.newID()
		}
		item.ID = id
		resolved[item.ServerPath] = id
		if item.Kind != schema.Copy {
			touched[item.ServerPath] = id
		}
	}

	var clears []string
	var binds []binding
	for _, item := range t.pending {
		id := item.ID
		switch item.Kind {
		case schema.Rename:
			clears = append(clears, item.ServerPath)
			binds = append(binds, binding{item.FromServerPath, id})
		case schema.Copy:
			// The destination did not exist before the copy.
			clears = append(clears, item.ServerPath)
			source, taken := t.live[item.FromServerPath]
			if !taken {
				source, taken = touched[item.FromServerPath]
			}
			if taken && source != id {
				t.branches = append(t.branches, schema.BranchPoint{Identity: id, SourceIdentity: source, ChangeSetID: csID})
				continue
			}
			t.branches = append(t.branches, schema.BranchPoint{Identity: id, ChangeSetID: csID})
			binds = append(binds, binding{item.FromServerPath, id})
		case schema.Add:
			clears = append(clears, item.ServerPath)
		case schema.Edit, schema.Delete:
			binds = append(binds, binding{item.ServerPath, id})
		default:
			t.warn(id, csID, "item %s has no kind of change", item.ServerPath)
		}
	}

	for _, path := range clears {
		delete(t.live, path)
	}
	bound := make(map[string]string, len(binds))
	for _, b := range binds {
		if prev, seen := bound[b.path]; seen {
			if prev != b.id {
				t.warn(b.id, csID, "path %s claimed by identities %s and %s, keeping the first", b.path, prev, b.id)
			}
			continue
		}
		bound[b.path] = b.id
		t.live[b.path] = b.id
	}

	t.applied++
	t.current = nil
	t.pending = t.pending[:0]
}

// Live returns the identity currently bound to path.
func (t *Tracker) Live(path string) (string, bool) {
	id, ok := t.live[path]
	return id, ok
}

// Applied returns the number of changesets applied so far.
func (t *Tracker) Applied() int {
	return t.applied
}

// Warnings returns the ambiguities recorded so far.
func (t *Tracker) Warnings() []schema.Warning {
	return t.warnings
}

// Branches returns every copy seen so far.
func (t *Tracker) Branches() []schema.BranchPoint {
	return t.branches
}

func (t *Tracker) warn(id, csID, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	contract.Logger().Debug("identity ambiguity",
		zap.String("identity", id), zap.String("changeset", csID), zap.String("detail", msg))
	t.warnings = append(t.warnings, schema.Warning{Identity: id, Message: msg, ChangeSetID: csID})
}
