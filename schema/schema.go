// Package schema has the change history model, summaries and status records shared by all parts of insight.
package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// KindOfChange classifies a single file-level change within a changeset.
type KindOfChange int

// All kinds of change supported.
const (
	None KindOfChange = iota
	Add
	Edit
	Delete
	Rename
	Copy
)

var kindNames = [...]string{
	None:   "none",
	Add:    "add",
	Edit:   "edit",
	Delete: "delete",
	Rename: "rename",
	Copy:   "copy",
}

// String returns the lower-case name of the kind.
func (k KindOfChange) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseKindOfChange converts a lower-case name back into a KindOfChange.
func ParseKindOfChange(s string) (KindOfChange, error) {
	for i, name := range kindNames {
		if strings.EqualFold(name, s) {
			return KindOfChange(i), nil
		}
	}
	return None, fmt.Errorf("unknown kind of change: %q", s)
}

// MarshalJSON encodes the kind as its name.
func (k KindOfChange) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON decodes a kind from its name.
func (k *KindOfChange) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseKindOfChange(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// HasSource reports whether the kind carries a moved-from path.
func (k KindOfChange) HasSource() bool {
	return k == Rename || k == Copy
}

// ChangeItem is one file-level change within a ChangeSet.
type ChangeItem struct {
	ID             string       `json:"id"`             // Artifact identity, assigned by the tracker
	ChangeSetID    string       `json:"changeset_id"`   // Owning changeset
	ServerPath     string       `json:"server_path"`    // Path as reported by the backend
	LocalPath      string       `json:"local_path"`     // Path on the local filesystem
	FromServerPath string       `json:"from_server_path,omitempty"`
	Kind           KindOfChange `json:"kind"`
}

// ErrMissingSource is returned when a rename or copy has no moved-from path.
var ErrMissingSource = errors.New("rename or copy without source path")

// ErrUnexpectedSource is returned when an add, edit or delete carries a moved-from path.
var ErrUnexpectedSource = errors.New("source path on a change that is not a rename or copy")

// Validate checks the moved-from invariant of the item.
func (c *ChangeItem) Validate() error {
	switch {
	case c.ServerPath == "":
		return fmt.Errorf("changeset %s: empty server path", c.ChangeSetID)
	case c.Kind.HasSource() && c.FromServerPath == "":
		return fmt.Errorf("changeset %s, %s: %w", c.ChangeSetID, c.ServerPath, ErrMissingSource)
	case !c.Kind.HasSource() && c.FromServerPath != "":
		return fmt.Errorf("changeset %s, %s: %w", c.ChangeSetID, c.ServerPath, ErrUnexpectedSource)
	}
	return nil
}

// IsDelete reports whether the item deletes its artifact.
func (c *ChangeItem) IsDelete() bool {
	return c.Kind == Delete
}

// ChangeSet is one commit's metadata plus its file-level changes.
type ChangeSet struct {
	ID        string        `json:"id"`
	Committer string        `json:"committer"`
	Date      time.Time     `json:"date"`
	Comment   string        `json:"comment"`
	WorkItems []string      `json:"work_items,omitempty"`
	Items     []*ChangeItem `json:"items"`
}

// RemoveItems drops every item for which drop returns true and reports how many were removed.
func (cs *ChangeSet) RemoveItems(drop func(*ChangeItem) bool) int {
	kept := cs.Items[:0]
	for _, item := range cs.Items {
		if !drop(item) {
			kept = append(kept, item)
		}
	}
	removed := len(cs.Items) - len(kept)
	for i := len(kept); i < len(cs.Items); i++ {
		cs.Items[i] = nil
	}
	cs.Items = kept
	return removed
}

// History is an ordered sequence of changesets, newest first.
type History struct {
	ChangeSets []*ChangeSet `json:"changesets"`
}

// ErrHistoryOrder is returned when a history is not sorted newest first.
var ErrHistoryOrder = errors.New("history is not ordered newest first")

// Validate checks that commit timestamps never increase along the history.
func (h *History) Validate() error {
	for i := 1; i < len(h.ChangeSets); i++ {
		prev, cur := h.ChangeSets[i-1], h.ChangeSets[i]
		if cur.Date.After(prev.Date) {
			return fmt.Errorf("%w: %s (%s) precedes %s (%s)", ErrHistoryOrder,
				prev.ID, prev.Date.Format(time.RFC3339), cur.ID, cur.Date.Format(time.RFC3339))
		}
	}
	return nil
}

// Index returns the changesets keyed by id.
func (h *History) Index() map[string]*ChangeSet {
	index := make(map[string]*ChangeSet, len(h.ChangeSets))
	for _, cs := range h.ChangeSets {
		index[cs.ID] = cs
	}
	return index
}

// ItemCount returns the number of change items across all changesets.
func (h *History) ItemCount() int {
	n := 0
	for _, cs := range h.ChangeSets {
		n += len(cs.Items)
	}
	return n
}

// Warning is an advisory diagnostic recorded while parsing or tracking.
type Warning struct {
	Identity    string `json:"identity"`
	Message     string `json:"message"`
	ChangeSetID string `json:"changeset_id"`
}

// BranchPoint records a copy whose source kept its own identity.
type BranchPoint struct {
	Identity       string `json:"identity"`        // Identity of the copy
	SourceIdentity string `json:"source_identity"` // Identity live at the copy source, empty if inherited
	ChangeSetID    string `json:"changeset_id"`
}

// Inherited reports whether the copy took over its source's older history.
func (b BranchPoint) Inherited() bool {
	return b.SourceIdentity == ""
}

// ParseResult is everything produced by one parse of an exported log.
type ParseResult struct {
	History  *History            `json:"history"`
	Edges    map[string][]string `json:"edges"`
	Warnings []Warning           `json:"warnings,omitempty"`
	Branches []BranchPoint       `json:"branches,omitempty"`
}
