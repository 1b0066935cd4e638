// Package history cleans a tracked change history and projects it into
// per-artifact summaries.
package history

import (
	"github.com/huangsam/insight/schema"
)

// Cleanup removes the whole history of every artifact that was deleted at any
// point, then drops changesets left without items. It returns the number of
// removed items and changesets.
func Cleanup(h *schema.History) (items, changeSets int) {
	deleted := make(map[string]struct{})
	for _, cs := range h.ChangeSets {
		for _, item := range cs.Items {
			if item.IsDelete() {
				deleted[item.ID] = struct{}{}
			}
		}
	}

	if len(deleted) > 0 {
		for _, cs := range h.ChangeSets {
			items += cs.RemoveItems(func(item *schema.ChangeItem) bool {
				_, gone := deleted[item.ID]
				return gone
			})
		}
	}
	changeSets = DropEmpty(h)
	return items, changeSets
}

// DropEmpty removes changesets without items and returns how many were removed.
func DropEmpty(h *schema.History) int {
	kept := h.ChangeSets[:0]
	for _, cs := range h.ChangeSets {
		if len(cs.Items) > 0 {
			kept = append(kept, cs)
		}
	}
	removed := len(h.ChangeSets) - len(kept)
	clear(h.ChangeSets[len(kept):])
	h.ChangeSets = kept
	return removed
}
