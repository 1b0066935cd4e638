package history

import (
	"sort"

	"github.com/huangsam/insight/internal/contract"
	"github.com/huangsam/insight/schema"
)

// Options shape a summary projection.
type Options struct {
	// NoiseThreshold skips changesets referencing at least this many distinct
	// work items. Zero or less keeps every changeset.
	NoiseThreshold int

	// Liveness rejects artifacts whose latest path no longer exists. Nil accepts all.
	Liveness Liveness

	// Accept filters artifacts by their latest local path. Nil accepts all.
	Accept func(localPath string) bool
}

// summary accumulates one artifact while the history is scanned.
type summary struct {
	artifact   schema.Artifact
	committers map[string]struct{}
	workItems  map[string]struct{}
}

// Summarize projects a newest-first history into one Artifact per identity.
// The first sighting of an identity is its latest state; older sightings only
// add commits, committers and work items. Deleted artifacts are left out.
// Artifacts come back in the order they were first seen.
func Summarize(h *schema.History, opts Options) []schema.Artifact {
	var order []*summary
	byID := make(map[string]*summary)
	ignored := make(map[string]struct{})
	seenSets := make(map[string]struct{}, len(h.ChangeSets))

	for _, cs := range h.ChangeSets {
		_, dup := seenSets[cs.ID]
		if !contract.Assert(!dup, "changeset %s appears twice in history", cs.ID) {
			continue
		}
		seenSets[cs.ID] = struct{}{}

		if opts.NoiseThreshold > 0 && len(cs.WorkItems) >= opts.NoiseThreshold {
			continue
		}

		counted := make(map[string]struct{}, len(cs.Items))
		for _, item := range cs.Items {
			if _, skip := ignored[item.ID]; skip {
				continue
			}

			s, known := byID[item.ID]
			if !known {
				if !accepts(opts, item) {
					ignored[item.ID] = struct{}{}
					continue
				}
				s = newSummary(cs, item)
				byID[item.ID] = s
				order = append(order, s)
			} else if !contract.Assert(!cs.Date.After(s.artifact.Date),
				"changeset %s is newer than the latest state %s of %s", cs.ID, s.artifact.Revision, item.ID) {
				continue
			}

			if _, done := counted[item.ID]; done {
				continue
			}
			counted[item.ID] = struct{}{}
			s.add(cs)
		}
	}

	artifacts := make([]schema.Artifact, 0, len(order))
	for _, s := range order {
		if s.artifact.IsDeleted {
			continue
		}
		artifacts = append(artifacts, s.finish())
	}
	return artifacts
}

// accepts decides whether a first sighting becomes an artifact. Deleted
// artifacts skip the liveness check since they are dropped from the output anyway.
func accepts(opts Options, item *schema.ChangeItem) bool {
	if opts.Accept != nil && !opts.Accept(item.LocalPath) {
		return false
	}
	if item.IsDelete() || opts.Liveness == nil {
		return true
	}
	return opts.Liveness.Exists(item)
}

func newSummary(cs *schema.ChangeSet, item *schema.ChangeItem) *summary {
	return &summary{
		artifact: schema.Artifact{
			ID:         item.ID,
			LocalPath:  item.LocalPath,
			ServerPath: item.ServerPath,
			Revision:   cs.ID,
			Date:       cs.Date,
			IsDeleted:  item.IsDelete(),
		},
		committers: make(map[string]struct{}),
		workItems:  make(map[string]struct{}),
	}
}

func (s *summary) add(cs *schema.ChangeSet) {
	s.artifact.Commits++
	s.committers[cs.Committer] = struct{}{}
	for _, wi := range cs.WorkItems {
		if _, ok := s.workItems[wi]; ok {
			continue
		}
		s.workItems[wi] = struct{}{}
		s.artifact.WorkItems = append(s.artifact.WorkItems, wi)
	}
}

func (s *summary) finish() schema.Artifact {
	a := s.artifact
	a.Committers = make([]string, 0, len(s.committers))
	for c := range s.committers {
		a.Committers = append(a.Committers, c)
	}
	sort.Strings(a.Committers)
	a.WorkItems = append([]string{}, s.artifact.WorkItems...)
	return a
}
