package schema

import "time"

// CacheStatus represents the status of the cache store.
type CacheStatus struct {
	Backend         string    `json:"backend"`
	Connected       bool      `json:"connected"`
	TotalEntries    int       `json:"total_entries"`
	LastEntryTime   time.Time `json:"last_entry_time"`
	OldestEntryTime time.Time `json:"oldest_entry_time"`
	TableSizeBytes  int64     `json:"table_size_bytes"`
}

// AnalysisStatus represents the status of the analysis store.
type AnalysisStatus struct {
	Backend                string           `json:"backend"`
	Connected              bool             `json:"connected"`
	TotalRuns              int              `json:"total_runs"`
	LastRunID              int64            `json:"last_run_id"`
	LastRunTime            time.Time        `json:"last_run_time"`
	OldestRunTime          time.Time        `json:"oldest_run_time"`
	TotalArtifactsAnalyzed int              `json:"total_artifacts_analyzed"`
	TableSizes             map[string]int64 `json:"table_sizes"`
}

// AnalysisRunRecord represents a row from the insight_analysis_runs table.
type AnalysisRunRecord struct {
	AnalysisID             int64
	StartTime              time.Time
	EndTime                *time.Time
	RunDurationMs          *int32
	TotalArtifactsAnalyzed int32
	ConfigParams           *string
}

// ArtifactScoreRecord represents a row from the insight_artifact_scores table.
type ArtifactScoreRecord struct {
	AnalysisID     int64
	ArtifactID     string
	LocalPath      string
	AnalysisTime   time.Time
	Revision       string
	LastChange     time.Time
	Commits        int32
	CommitterCount int32
	WorkItemCount  int32
	LinesOfCode    int32
	Language       *string
	Score          float64
	ScoreLabel     string
}

// SyncResult describes one log export stored by a sync.
type SyncResult struct {
	Backend     VCSBackend `json:"backend"`
	Revision    string     `json:"revision"`
	RawBytes    int        `json:"raw_bytes"`
	StoredBytes int        `json:"stored_bytes"`
	ExportedAt  time.Time  `json:"exported_at"`
}
