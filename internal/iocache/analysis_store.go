package iocache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/huangsam/insight/internal/contract"
	"github.com/huangsam/insight/schema"
)

// Table names for analysis tracking.
const (
	analysisRunsTable   = "insight_analysis_runs"
	artifactScoresTable = "insight_artifact_scores"
)

// analysisTables lists every table owned by the analysis store.
var analysisTables = []string{analysisRunsTable, artifactScoresTable, migrationsTable}

// AnalysisStoreImpl implements the AnalysisStore interface.
type AnalysisStoreImpl struct {
	db      *sql.DB
	backend schema.DatabaseBackend
}

var _ contract.AnalysisStore = &AnalysisStoreImpl{} // Compile-time check

// NewAnalysisStore creates a new AnalysisStore with the specified backend and
// brings its schema up to the latest migration.
func NewAnalysisStore(backend schema.DatabaseBackend, connStr string) (contract.AnalysisStore, error) {
	if backend == schema.NoneBackend {
		return &AnalysisStoreImpl{backend: backend}, nil
	}
	if _, ok := schema.ValidAnalysisBackends[backend]; !ok {
		return nil, fmt.Errorf("unsupported analysis backend: %s", backend)
	}

	driverName, err := driverFor(backend)
	if err != nil {
		return nil, err
	}
	if backend == schema.SQLiteBackend && connStr == "" {
		connStr = contract.GetAnalysisDBFilePath()
	}

	if _, err := MigrateAnalysis(backend, connStr, -1); err != nil {
		return nil, fmt.Errorf("failed to prepare analysis tables: %w", err)
	}

	db, err := sql.Open(driverName, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", backend, err)
	}
	if backend == schema.SQLiteBackend {
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to %s database: %w. Verify the database server is running and accessible", backend, err)
	}

	return &AnalysisStoreImpl{db: db, backend: backend}, nil
}

func (as *AnalysisStoreImpl) disabled() bool {
	return as.backend == schema.NoneBackend || as.db == nil
}

func (as *AnalysisStoreImpl) table(name string) string {
	return quoteTableName(name, as.backend)
}

// BeginAnalysis creates a new analysis run and returns its unique ID.
func (as *AnalysisStoreImpl) BeginAnalysis(startTime time.Time, configParams map[string]any) (int64, error) {
	if as.disabled() {
		return 0, nil
	}

	configJSON, err := json.Marshal(configParams)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal config params: %w", err)
	}

	var analysisID int64
	if as.backend == schema.PostgreSQLBackend {
		query := fmt.Sprintf(`INSERT INTO %s (start_time, config_params) VALUES ($1, $2) RETURNING analysis_id`, as.table(analysisRunsTable))
		err = as.db.QueryRow(query, startTime, string(configJSON)).Scan(&analysisID)
	} else {
		query := fmt.Sprintf(`INSERT INTO %s (start_time, config_params) VALUES (?, ?)`, as.table(analysisRunsTable))
		var result sql.Result
		result, err = as.db.Exec(query, formatTime(startTime, as.backend), string(configJSON))
		if err == nil {
			analysisID, err = result.LastInsertId()
		}
	}
	if err != nil {
		return 0, fmt.Errorf("failed to insert analysis run: %w", err)
	}
	return analysisID, nil
}

// EndAnalysis updates the analysis run with completion data.
func (as *AnalysisStoreImpl) EndAnalysis(analysisID int64, endTime time.Time, totalArtifacts int) error {
	if as.disabled() {
		return nil
	}

	query := fmt.Sprintf(`SELECT start_time FROM %s WHERE analysis_id = %s`, as.table(analysisRunsTable), placeholder(as.backend, 1))
	startTime, err := as.scanTime(as.db.QueryRow(query, analysisID))
	if err != nil {
		return fmt.Errorf("failed to get start_time for analysis %d: %w", analysisID, err)
	}

	update := fmt.Sprintf(`UPDATE %s SET end_time = %s, run_duration_ms = %s, total_artifacts_analyzed = %s WHERE analysis_id = %s`,
		as.table(analysisRunsTable),
		placeholder(as.backend, 1), placeholder(as.backend, 2), placeholder(as.backend, 3), placeholder(as.backend, 4))
	durationMs := endTime.Sub(startTime).Milliseconds()
	if _, err := as.db.Exec(update, formatTime(endTime, as.backend), durationMs, totalArtifacts, analysisID); err != nil {
		return fmt.Errorf("failed to update analysis run: %w", err)
	}
	return nil
}

// RecordArtifact stores the summary and score of one artifact.
func (as *AnalysisStoreImpl) RecordArtifact(analysisID int64, analysisTime time.Time, a schema.Artifact) error {
	if as.disabled() {
		return nil
	}

	var language *string
	if a.Language != "" {
		language = &a.Language
	}

	query := fmt.Sprintf(`INSERT INTO %s (analysis_id, artifact_id, local_path, analysis_time, revision, last_change,
		commits, committer_count, work_item_count, lines_of_code, language, score, score_label)
		VALUES (%s)`, as.table(artifactScoresTable), placeholderList(as.backend, 13))
	_, err := as.db.Exec(query,
		analysisID, a.ID, a.LocalPath, formatTime(analysisTime, as.backend), a.Revision, formatTime(a.Date, as.backend),
		a.Commits, len(a.Committers), len(a.WorkItems), a.LinesOfCode, language, a.Score, schema.GetPlainLabel(a.Score),
	)
	if err != nil {
		return fmt.Errorf("failed to insert artifact score for %s: %w", a.LocalPath, err)
	}
	return nil
}

// Close closes the underlying connection.
func (as *AnalysisStoreImpl) Close() error {
	if as.db != nil {
		return as.db.Close()
	}
	return nil
}

// GetStatus returns status information about the analysis store.
func (as *AnalysisStoreImpl) GetStatus() (schema.AnalysisStatus, error) {
	status := schema.AnalysisStatus{
		Backend:    string(as.backend),
		Connected:  as.db != nil,
		TableSizes: make(map[string]int64),
	}
	if as.disabled() {
		return status, nil
	}

	runs := as.table(analysisRunsTable)
	query := fmt.Sprintf("SELECT COUNT(*), COALESCE(SUM(total_artifacts_analyzed), 0) FROM %s", runs)
	if err := as.db.QueryRow(query).Scan(&status.TotalRuns, &status.TotalArtifactsAnalyzed); err != nil {
		return status, fmt.Errorf("failed to get total runs: %w", err)
	}

	if status.TotalRuns > 0 {
		var err error
		row := as.db.QueryRow(fmt.Sprintf("SELECT analysis_id FROM %s ORDER BY analysis_id DESC LIMIT 1", runs))
		if err = row.Scan(&status.LastRunID); err != nil {
			return status, fmt.Errorf("failed to get last run id: %w", err)
		}
		row = as.db.QueryRow(fmt.Sprintf("SELECT start_time FROM %s ORDER BY analysis_id DESC LIMIT 1", runs))
		if status.LastRunTime, err = as.scanTime(row); err != nil {
			return status, fmt.Errorf("failed to get last run time: %w", err)
		}
		row = as.db.QueryRow(fmt.Sprintf("SELECT start_time FROM %s ORDER BY analysis_id ASC LIMIT 1", runs))
		if status.OldestRunTime, err = as.scanTime(row); err != nil {
			return status, fmt.Errorf("failed to get oldest run time: %w", err)
		}
	}

	for _, table := range []string{analysisRunsTable, artifactScoresTable} {
		var count int64
		if err := as.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", as.table(table))).Scan(&count); err != nil {
			return status, fmt.Errorf("failed to get count for table %s: %w", table, err)
		}
		status.TableSizes[table] = count
	}
	return status, nil
}

// GetAllAnalysisRuns retrieves all analysis runs from the store.
func (as *AnalysisStoreImpl) GetAllAnalysisRuns() ([]schema.AnalysisRunRecord, error) {
	if as.disabled() {
		return nil, nil
	}

	query := fmt.Sprintf("SELECT analysis_id, start_time, end_time, run_duration_ms, total_artifacts_analyzed, config_params FROM %s ORDER BY analysis_id",
		as.table(analysisRunsTable))
	rows, err := as.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query analysis runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.AnalysisRunRecord
	for rows.Next() {
		var (
			record    schema.AnalysisRunRecord
			startTime timeColumn
			endTime   timeColumn
		)
		startTime.backend, endTime.backend = as.backend, as.backend
		if err := rows.Scan(&record.AnalysisID, &startTime, &endTime, &record.RunDurationMs, &record.TotalArtifactsAnalyzed, &record.ConfigParams); err != nil {
			return nil, fmt.Errorf("failed to scan analysis run: %w", err)
		}
		record.StartTime = startTime.Time
		if endTime.Valid {
			end := endTime.Time
			record.EndTime = &end
		}
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating analysis runs: %w", err)
	}
	return results, nil
}

// GetAllArtifactScores retrieves all recorded artifact scores from the store.
func (as *AnalysisStoreImpl) GetAllArtifactScores() ([]schema.ArtifactScoreRecord, error) {
	if as.disabled() {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT analysis_id, artifact_id, local_path, analysis_time, revision, last_change,
		commits, committer_count, work_item_count, lines_of_code, language, score, score_label
		FROM %s ORDER BY analysis_id, local_path`, as.table(artifactScoresTable))
	rows, err := as.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query artifact scores: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.ArtifactScoreRecord
	for rows.Next() {
		var (
			record       schema.ArtifactScoreRecord
			analysisTime = timeColumn{backend: as.backend}
			lastChange   = timeColumn{backend: as.backend}
		)
		if err := rows.Scan(&record.AnalysisID, &record.ArtifactID, &record.LocalPath, &analysisTime, &record.Revision, &lastChange,
			&record.Commits, &record.CommitterCount, &record.WorkItemCount, &record.LinesOfCode,
			&record.Language, &record.Score, &record.ScoreLabel); err != nil {
			return nil, fmt.Errorf("failed to scan artifact score: %w", err)
		}
		record.AnalysisTime = analysisTime.Time
		record.LastChange = lastChange.Time
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating artifact scores: %w", err)
	}
	return results, nil
}

// scanTime reads a single time column from row.
func (as *AnalysisStoreImpl) scanTime(row *sql.Row) (time.Time, error) {
	col := timeColumn{backend: as.backend}
	if err := row.Scan(&col); err != nil {
		return time.Time{}, err
	}
	return col.Time, nil
}

// formatTime converts a time.Time to the appropriate format for the backend.
// SQLite has no native timestamp type so times are stored as RFC 3339 text.
func formatTime(t time.Time, backend schema.DatabaseBackend) any {
	if backend == schema.SQLiteBackend {
		return t.UTC().Format(time.RFC3339Nano)
	}
	return t
}

// timeColumn scans a nullable timestamp stored either natively or as text.
type timeColumn struct {
	backend schema.DatabaseBackend
	Time    time.Time
	Valid   bool
}

// Scan implements sql.Scanner.
func (c *timeColumn) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		c.Time, c.Valid = time.Time{}, false
		return nil
	case time.Time:
		c.Time, c.Valid = v, true
		return nil
	case string:
		return c.parse(v)
	case []byte:
		return c.parse(string(v))
	default:
		return fmt.Errorf("cannot scan %T into a %s timestamp", src, c.backend)
	}
}

// MySQL hands DATETIME back as text unless the DSN sets parseTime=true.
var timeLayouts = []string{time.RFC3339Nano, "2006-01-02 15:04:05.999999", time.DateTime}

func (c *timeColumn) parse(s string) error {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			c.Time, c.Valid = t, true
			return nil
		}
	}
	return fmt.Errorf("failed to parse timestamp %q", s)
}
