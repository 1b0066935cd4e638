package core

import (
	"math"

	"github.com/huangsam/insight/schema"
)

// Tunable maxima to normalize metrics.
const (
	maxCommits    = 500.0  // commits beyond this saturate
	maxCommitters = 20.0   // committers beyond this saturate
	maxWorkItems  = 50.0   // referenced work items beyond this saturate
	maxLOC        = 5000.0 // lines of code beyond this saturate
	maxAgeDays    = 3650.0 // ~10 years
)

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// computeScore calculates an artifact's hotspot score (0-100) from its summary
// and file stats, and stores the weighted components in a.Breakdown.
func computeScore(a *schema.Artifact, weights map[schema.BreakdownKey]float64) float64 {
	// An empty file has nothing worth pointing at.
	if a.SizeBytes <= 0 {
		a.Breakdown = nil
		return 0.0
	}
	if weights == nil {
		weights = schema.DefaultWeights()
	}

	// --- Normalized Metrics [0,1] ---
	nCommits := clamp01(float64(a.Commits) / maxCommits)
	nCommitters := clamp01(float64(len(a.Committers)) / maxCommitters)
	nWorkItems := clamp01(float64(len(a.WorkItems)) / maxWorkItems)
	nLOC := clamp01(float64(a.LinesOfCode) / maxLOC)
	nAge := clamp01(math.Log1p(float64(max(a.AgeDays, 0))) / math.Log1p(maxAgeDays))

	normalized := map[schema.BreakdownKey]float64{
		schema.BreakdownCommits:    nCommits,
		schema.BreakdownCommitters: nCommitters,
		schema.BreakdownWorkItems:  nWorkItems,
		schema.BreakdownLOC:        nLOC,
		schema.BreakdownRecency:    1.0 - nAge,
	}

	var raw float64
	a.Breakdown = make(map[schema.BreakdownKey]float64, len(normalized))
	for key, value := range normalized {
		contribution := weights[key] * value
		raw += contribution
		// Saved as percent contributions for explain mode.
		a.Breakdown[key] = contribution * 100.0
	}
	return raw * 100.0
}
