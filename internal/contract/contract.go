// Package contract provides interfaces and shared utilities for internal architecture.
package contract

import (
	"context"
	"time"

	"github.com/huangsam/insight/schema"
)

// VCSClient defines the operations insight needs from a version-control backend.
// This allows the core logic to be tested without needing a real git or svn executable.
type VCSClient interface {
	// Backend returns which version-control system the client talks to.
	Backend() schema.VCSBackend

	// Run executes a backend command and returns its output.
	// Its use should be minimized in favor of the explicit methods below.
	Run(ctx context.Context, repoPath string, args ...string) ([]byte, error)

	// GetRepoRoot returns the absolute path to the root of the working copy
	// containing the given context path.
	GetRepoRoot(ctx context.Context, contextPath string) (string, error)

	// GetHeadRevision returns the revision the working copy is currently at.
	GetHeadRevision(ctx context.Context, repoPath string) (string, error)

	// GetServerPrefix returns the server path the working copy root maps to.
	// It is empty for backends whose log paths are already repository-relative.
	GetServerPrefix(ctx context.Context, repoPath string) (string, error)

	// ExportLog returns the complete history export, newest first, in the
	// format the matching parser reads.
	ExportLog(ctx context.Context, repoPath string) ([]byte, error)

	// ListTrackedFiles returns all files under version control, relative to the root.
	ListTrackedFiles(ctx context.Context, repoPath string) ([]string, error)
}

// CacheManager defines the interface for managing cache stores.
// This allows the cache layer to be mocked for testing.
type CacheManager interface {
	GetLogStore() CacheStore
	GetAnalysisStore() AnalysisStore
}

// CacheStore defines the interface for cache data storage.
// This allows mocking the store for testing.
type CacheStore interface {
	Get(key string) ([]byte, int, int64, error)
	Set(key string, value []byte, version int, timestamp int64) error
	GetStatus() (schema.CacheStatus, error)
	Close() error
}

// AnalysisStore defines the interface for tracking analysis runs and storing scores.
type AnalysisStore interface {
	// BeginAnalysis creates a new analysis run and returns its unique ID
	BeginAnalysis(startTime time.Time, configParams map[string]any) (int64, error)

	// EndAnalysis updates the analysis run with completion data
	EndAnalysis(analysisID int64, endTime time.Time, totalArtifacts int) error

	// RecordArtifact stores the summary and score of one artifact
	RecordArtifact(analysisID int64, analysisTime time.Time, artifact schema.Artifact) error

	// GetStatus returns status information about the analysis store
	GetStatus() (schema.AnalysisStatus, error)

	// GetAllAnalysisRuns retrieves all analysis runs from the database
	GetAllAnalysisRuns() ([]schema.AnalysisRunRecord, error)

	// GetAllArtifactScores retrieves all recorded artifact scores from the database
	GetAllArtifactScores() ([]schema.ArtifactScoreRecord, error)

	// Close closes the underlying connection
	Close() error
}
