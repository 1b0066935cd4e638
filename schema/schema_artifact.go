package schema

import "time"

// Artifact is the flattened summary of one logical file across its history.
type Artifact struct {
	ID          string                   `json:"id"`
	LocalPath   string                   `json:"local_path"`
	ServerPath  string                   `json:"server_path"`
	Revision    string                   `json:"revision"` // Latest changeset touching the artifact
	Date        time.Time                `json:"date"`     // Timestamp of that changeset
	Commits     int                      `json:"commits"`
	Committers  []string                 `json:"committers"`
	WorkItems   []string                 `json:"work_items"`
	IsDeleted   bool                     `json:"is_deleted"`
	Language    string                   `json:"language,omitempty"`
	LinesOfCode int                      `json:"lines_of_code"`
	SizeBytes   int64                    `json:"size_bytes"`
	AgeDays     int                      `json:"age_days"` // Days since the latest change
	Score       float64                  `json:"score"`
	Breakdown   map[BreakdownKey]float64 `json:"breakdown,omitempty"`
}

// RankedArtifact adds presentation data to an Artifact.
type RankedArtifact struct {
	Rank  int    `json:"rank"`
	Label string `json:"label"`
	Artifact
}

// GetPlainLabel returns a plain text label indicating the criticality level
// based on the hotspot score.
func GetPlainLabel(score float64) string {
	switch {
	case score >= 80:
		return "Critical"
	case score >= 60:
		return "High"
	case score >= 40:
		return "Moderate"
	default:
		return "Low"
	}
}

// RankArtifacts adds rank and label to an already sorted list of artifacts.
func RankArtifacts(artifacts []Artifact) []RankedArtifact {
	output := make([]RankedArtifact, len(artifacts))
	for i, a := range artifacts {
		output[i] = RankedArtifact{
			Rank:     i + 1,
			Label:    GetPlainLabel(a.Score),
			Artifact: a,
		}
	}
	return output
}

// SummaryResult is the output of a summary run.
type SummaryResult struct {
	Artifacts []Artifact `json:"artifacts"`
	Warnings  []Warning  `json:"warnings,omitempty"`
}
