package core

import (
	"cmp"
	"slices"

	"github.com/huangsam/insight/schema"
)

// rankArtifacts sorts artifacts by score in descending order and returns the
// top 'limit' artifacts. Ties fall back to commits, then path, so the order is
// stable across runs. A limit of zero or less keeps everything.
func rankArtifacts(artifacts []schema.Artifact, limit int) []schema.Artifact {
	slices.SortStableFunc(artifacts, func(a, b schema.Artifact) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		if c := cmp.Compare(b.Commits, a.Commits); c != 0 {
			return c
		}
		return cmp.Compare(a.LocalPath, b.LocalPath)
	})
	if limit > 0 && len(artifacts) > limit {
		return artifacts[:limit]
	}
	return artifacts
}
