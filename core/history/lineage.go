package history

import (
	"github.com/huangsam/insight/schema"
)

// IdentityAt returns the identity whose latest sighting is at localPath.
// Only the newest sighting of each identity counts, so a path that was
// renamed away resolves to whatever lives there now.
func IdentityAt(h *schema.History, localPath string) (string, bool) {
	seen := make(map[string]struct{})
	for _, cs := range h.ChangeSets {
		for _, item := range cs.Items {
			if _, ok := seen[item.ID]; ok {
				continue
			}
			seen[item.ID] = struct{}{}
			if item.LocalPath == localPath {
				return item.ID, true
			}
		}
	}
	return "", false
}

// Lineage returns the changesets that touched one identity, each holding only
// that identity's items. The input history is not modified.
func Lineage(h *schema.History, id string) *schema.History {
	out := &schema.History{}
	for _, cs := range h.ChangeSets {
		var items []*schema.ChangeItem
		for _, item := range cs.Items {
			if item.ID == id {
				items = append(items, item)
			}
		}
		if len(items) == 0 {
			continue
		}
		copied := *cs
		copied.Items = items
		out.ChangeSets = append(out.ChangeSets, &copied)
	}
	return out
}
