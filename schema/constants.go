package schema

// Custom string types for type safety.
type (
	// BreakdownKey represents keys used in scoring breakdowns.
	BreakdownKey string

	// OutputMode represents the format of the output.
	OutputMode string

	// VCSBackend represents the version-control system a repository lives in.
	VCSBackend string

	// DatabaseBackend represents the database backend for caching.
	DatabaseBackend string

	// LivenessMode represents how the summary decides that an artifact still exists.
	LivenessMode string

	// SharedHistoryPolicy represents when copied history is pruned.
	SharedHistoryPolicy string
)

// Breakdown keys used in the scoring logic.
const (
	BreakdownCommits    BreakdownKey = "commits"    // nCommits
	BreakdownCommitters BreakdownKey = "committers" // nCommitters
	BreakdownWorkItems  BreakdownKey = "work_items" // nWorkItems
	BreakdownLOC        BreakdownKey = "loc"        // nLOC
	BreakdownRecency    BreakdownKey = "recency"    // 1 - nAge
)

// All output modes supported.
const (
	CSVOut     OutputMode = "csv"
	TextOut    OutputMode = "text" // default
	JSONOut    OutputMode = "json"
	ParquetOut OutputMode = "parquet"
)

// All version-control backends supported.
const (
	GitBackend VCSBackend = "git" // default
	SVNBackend VCSBackend = "svn"
)

// All cache backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite" // default
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	BadgerBackend     DatabaseBackend = "badger"
	NoneBackend       DatabaseBackend = "none"
)

// All liveness modes supported.
const (
	TrackedLiveness    LivenessMode = "tracked" // default
	FileSystemLiveness LivenessMode = "filesystem"
	NoLiveness         LivenessMode = "none"
)

// All shared history policies supported.
const (
	KeepSharedHistory  SharedHistoryPolicy = "keep" // default
	PruneCopiedHistory SharedHistoryPolicy = "copies"
)

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	CSVOut:     {},
	TextOut:    {},
	JSONOut:    {},
	ParquetOut: {},
}

// ValidVCSBackends lists all valid version-control backends.
var ValidVCSBackends = map[VCSBackend]struct{}{
	GitBackend: {},
	SVNBackend: {},
}

// ValidCacheBackends lists all valid cache backends.
var ValidCacheBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	BadgerBackend:     {},
	NoneBackend:       {},
}

// ValidAnalysisBackends lists backends that can hold analysis runs.
// Badger is a key-value store and has no relational tables to migrate.
var ValidAnalysisBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	NoneBackend:       {},
}

// ValidLivenessModes lists all valid liveness modes.
var ValidLivenessModes = map[LivenessMode]struct{}{
	TrackedLiveness:    {},
	FileSystemLiveness: {},
	NoLiveness:         {},
}

// ValidSharedHistoryPolicies lists all valid shared history policies.
var ValidSharedHistoryPolicies = map[SharedHistoryPolicy]struct{}{
	KeepSharedHistory:  {},
	PruneCopiedHistory: {},
}

// DefaultWeights returns the weights used by the hotspot score.
func DefaultWeights() map[BreakdownKey]float64 {
	return map[BreakdownKey]float64{
		BreakdownCommits:    0.40,
		BreakdownCommitters: 0.15,
		BreakdownWorkItems:  0.10,
		BreakdownLOC:        0.25,
		BreakdownRecency:    0.10,
	}
}
