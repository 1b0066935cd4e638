// Package graph records parentage between changesets and prunes history that
// two artifact lineages would otherwise share.
package graph

import (
	"github.com/huangsam/insight/schema"
)

// NoParent marks a root changeset in RecordEdge.
const NoParent = ""

// Graph maps a changeset id to its parent ids. It only holds ids; changesets
// themselves are looked up in the history when needed.
type Graph struct {
	// parents[child] lists direct parents in recording order.
	// A root has an empty, non-nil entry; an unknown id has no entry.
	parents map[string][]string
}

// New creates an empty Graph.
func New() *Graph {
	return &Graph{parents: make(map[string][]string)}
}

// FromEdges rebuilds a Graph from the map returned by Edges.
func FromEdges(edges map[string][]string) *Graph {
	g := New()
	for child, parents := range edges {
		g.touch(child)
		for _, p := range parents {
			g.RecordEdge(child, p)
		}
	}
	return g
}

func (g *Graph) touch(id string) {
	if _, ok := g.parents[id]; !ok {
		g.parents[id] = []string{}
	}
}

// RecordEdge registers parent as a direct predecessor of child. Passing
// NoParent records child as a root. Calling it again for the same child adds
// another parent, which is how merges are expressed.
func (g *Graph) RecordEdge(child, parent string) {
	g.touch(child)
	if parent == NoParent {
		return
	}
	for _, p := range g.parents[child] {
		if p == parent {
			return
		}
	}
	g.parents[child] = append(g.parents[child], parent)
}

// HasNode reports whether id has been recorded as a child.
func (g *Graph) HasNode(id string) bool {
	_, ok := g.parents[id]
	return ok
}

// IsRoot reports whether id was recorded and has no parents.
func (g *Graph) IsRoot(id string) bool {
	parents, ok := g.parents[id]
	return ok && len(parents) == 0
}

// Parents returns the direct parents of id.
func (g *Graph) Parents(id string) []string {
	return g.parents[id]
}

// Len returns the number of recorded nodes.
func (g *Graph) Len() int {
	return len(g.parents)
}

// Edges returns a copy of the parent lists keyed by child.
func (g *Graph) Edges() map[string][]string {
	edges := make(map[string][]string, len(g.parents))
	for child, parents := range g.parents {
		edges[child] = append([]string{}, parents...)
	}
	return edges
}

// Ancestors returns start followed by every changeset reachable through
// parent links, breadth first. Each id appears once even if the graph has cycles.
func (g *Graph) Ancestors(start string) []string {
	visited := map[string]struct{}{start: {}}
	order := []string{start}
	for i := 0; i < len(order); i++ {
		for _, p := range g.parents[order[i]] {
			if _, seen := visited[p]; seen {
				continue
			}
			visited[p] = struct{}{}
			order = append(order, p)
		}
	}
	return order
}

// DeleteSharedHistory removes, for every identity in removals, all of its items
// from the starting changeset and from each of its ancestors. Changesets left
// without items stay in the history. It returns the number of removed items.
func (g *Graph) DeleteSharedHistory(history *schema.History, removals map[string]string) int {
	if len(removals) == 0 {
		return 0
	}
	index := history.Index()
	removed := 0
	for identity, start := range removals {
		for _, id := range g.Ancestors(start) {
			cs, ok := index[id]
			if !ok {
				continue
			}
			removed += cs.RemoveItems(func(item *schema.ChangeItem) bool {
				return item.ID == identity
			})
		}
	}
	return removed
}
