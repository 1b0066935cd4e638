package contract

import (
	"context"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/huangsam/insight/schema"
)

// Default values for configuration.
const (
	DefaultResultLimit   = 50
	MaxResultLimit       = 1000
	DefaultPrecision     = 1
	DefaultWorkItemRegex = `#(\d+)`
	DefaultLogLevel      = "info"
)

// DefaultWorkers is the default number of concurrent workers to use.
var DefaultWorkers = runtime.GOMAXPROCS(0)

// DefaultExcludes are path patterns never worth summarizing.
var DefaultExcludes = []string{
	"Cargo.lock", "go.sum", "package-lock.json", "yarn.lock", "pnpm-lock.yaml", "composer.lock", "uv.lock",
	".min.js", ".min.css",
	".jpg", ".jpeg", ".png", ".gif", ".svg", ".ico", ".mp4", ".mov", ".webm", ".mp3", ".ogg", ".pdf", ".webp",
	".DS_Store", ".gitignore",
	"dist/", "build/", "out/", "target/", "bin/", "vendor/", "node_modules/",
}

// ProfileConfig holds profiling settings.
type ProfileConfig struct {
	Enabled bool
	Prefix  string
}

// WeightsRawInput holds custom hotspot weights from the YAML config file.
// Pointers distinguish "not provided" from an explicit zero.
type WeightsRawInput struct {
	Commits    *float64 `mapstructure:"commits"`
	Committers *float64 `mapstructure:"committers"`
	WorkItems  *float64 `mapstructure:"work_items"`
	LOC        *float64 `mapstructure:"loc"`
	Recency    *float64 `mapstructure:"recency"`
}

// Config holds the runtime configuration for insight.
// This struct remains the "final, validated" config.
type Config struct {
	RepoPath     string
	Backend      schema.VCSBackend
	PathFilter   string
	ArtifactPath string // Limits history output to the lineage of one file
	ResultLimit  int
	Workers      int
	Excludes     []string
	Detail       bool
	Explain      bool
	Precision    int
	Output       schema.OutputMode
	OutputFile   string
	Width        int // Terminal width override (0 = auto-detect)

	NoiseThreshold  int // Changesets with at least this many work items are skipped, 0 disables
	WorkItemRegex   string
	KnownFilesPath  string
	Liveness        schema.LivenessMode
	SharedHistory   schema.SharedHistoryPolicy
	CaseInsensitive bool

	CacheBackend   schema.DatabaseBackend
	CacheDBConnect string // Please use env var as this is plaintext

	AnalysisBackend   schema.DatabaseBackend
	AnalysisDBConnect string // Please use env var as this is plaintext

	// Weights is the final hotspot weight map, defaults merged with custom overrides
	Weights map[schema.BreakdownKey]float64

	UseColors bool
	LogLevel  string
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// This is set manually from positional args, so no tag
	RepoPathStr string

	// --- Fields from rootCmd.PersistentFlags() ---
	Backend           string `mapstructure:"backend"`
	Filter            string `mapstructure:"filter"`
	OutputFile        string `mapstructure:"output-file"`
	Limit             int    `mapstructure:"limit"`
	Workers           int    `mapstructure:"workers"`
	Exclude           string `mapstructure:"exclude"`
	Precision         int    `mapstructure:"precision"`
	Output            string `mapstructure:"output"`
	Width             int    `mapstructure:"width"`
	CacheBackend      string `mapstructure:"cache-backend"`
	CacheDBConnect    string `mapstructure:"cache-db-connect"`
	AnalysisBackend   string `mapstructure:"analysis-backend"`
	AnalysisDBConnect string `mapstructure:"analysis-db-connect"`
	Color             string `mapstructure:"color"`
	LogLevel          string `mapstructure:"log-level"`
	CaseInsensitive   bool   `mapstructure:"case-insensitive"`

	// --- History shaping, shared by summary/history/warnings ---
	NoiseThreshold int    `mapstructure:"noise-threshold"`
	WorkItemRegex  string `mapstructure:"work-item-regex"`
	KnownFiles     string `mapstructure:"known-files"`
	Liveness       string `mapstructure:"liveness"`
	SharedHistory  string `mapstructure:"shared-history"`

	// --- Fields from summaryCmd.Flags() ---
	Detail  bool `mapstructure:"detail"`
	Explain bool `mapstructure:"explain"`

	// --- Fields from historyCmd.Flags() ---
	Artifact string `mapstructure:"artifact"`

	// --- Custom weights from config file ---
	Weights WeightsRawInput `mapstructure:"weights"`
}

// Clone returns a deep copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	if c.Excludes != nil {
		clone.Excludes = make([]string, len(c.Excludes))
		copy(clone.Excludes, c.Excludes)
	}
	if c.Weights != nil {
		clone.Weights = make(map[schema.BreakdownKey]float64, len(c.Weights))
		maps.Copy(clone.Weights, c.Weights)
	}
	return &clone
}

// NewVCSClient returns the local client for a backend.
func NewVCSClient(backend schema.VCSBackend) (VCSClient, error) {
	switch backend {
	case schema.GitBackend, "":
		return NewLocalGitClient(), nil
	case schema.SVNBackend:
		return NewLocalSVNClient(), nil
	default:
		return nil, fmt.Errorf("invalid backend '%s'. must be git, svn", backend)
	}
}

// ParseBackend validates the backend name from raw input.
func ParseBackend(raw string) (schema.VCSBackend, error) {
	backend := schema.VCSBackend(strings.ToLower(strings.TrimSpace(raw)))
	if backend == "" {
		return schema.GitBackend, nil
	}
	if _, ok := schema.ValidVCSBackends[backend]; !ok {
		return "", fmt.Errorf("invalid backend '%s'. must be git, svn", raw)
	}
	return backend, nil
}

// ProcessAndValidate performs all complex parsing and validation on the raw inputs
// and updates the final Config struct.
func ProcessAndValidate(ctx context.Context, cfg *Config, client VCSClient, input *ConfigRawInput) error {
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := processHistoryShaping(cfg, input); err != nil {
		return err
	}
	if err := processCustomWeights(cfg, input); err != nil {
		return err
	}
	if err := resolveRepoPathAndFilter(ctx, cfg, client, input); err != nil {
		return err
	}
	return nil
}

// ValidateDatabaseConnectionString validates the format of database connection strings
// for MySQL and PostgreSQL backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend, schema.BadgerBackend, schema.NoneBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	}
	return nil
}

// validateBackendConfigs validates cache and analysis backend configurations.
func validateBackendConfigs(cfg *Config, input *ConfigRawInput) error {
	// --- Cache Backend Validation ---
	cfg.CacheBackend = schema.DatabaseBackend(strings.ToLower(input.CacheBackend))
	if _, ok := schema.ValidCacheBackends[cfg.CacheBackend]; !ok {
		return fmt.Errorf("invalid cache backend '%s'. must be sqlite, mysql, postgresql, badger, none", input.CacheBackend)
	}
	cfg.CacheDBConnect = input.CacheDBConnect
	if err := ValidateDatabaseConnectionString(cfg.CacheBackend, cfg.CacheDBConnect); err != nil {
		return err
	}

	// --- Analysis Backend Validation ---
	cfg.AnalysisBackend = schema.DatabaseBackend(strings.ToLower(input.AnalysisBackend))
	if cfg.AnalysisBackend == "" {
		cfg.AnalysisBackend = schema.NoneBackend
		return nil
	}
	if _, ok := schema.ValidAnalysisBackends[cfg.AnalysisBackend]; !ok {
		return fmt.Errorf("invalid analysis backend '%s'. must be sqlite, mysql, postgresql, none", input.AnalysisBackend)
	}
	cfg.AnalysisDBConnect = input.AnalysisDBConnect
	if err := ValidateDatabaseConnectionString(cfg.AnalysisBackend, cfg.AnalysisDBConnect); err != nil {
		return err
	}

	// For SQLite, resolve to actual file paths to catch default path conflicts
	if cfg.CacheBackend == schema.SQLiteBackend && cfg.AnalysisBackend == schema.SQLiteBackend {
		cacheDBPath := cfg.CacheDBConnect
		if cacheDBPath == "" {
			cacheDBPath = GetCacheDBFilePath()
		}
		analysisDBPath := cfg.AnalysisDBConnect
		if analysisDBPath == "" {
			analysisDBPath = GetAnalysisDBFilePath()
		}
		if cacheDBPath == analysisDBPath {
			return fmt.Errorf("cache and analysis storage must use different SQLite database files. Both resolve to %q", cacheDBPath)
		}
	}
	return nil
}

// validateSimpleInputs processes and validates all non-path related fields.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	// --- 0. Transfer simple non-validated fields from input -> cfg ---
	cfg.PathFilter = input.Filter
	cfg.OutputFile = input.OutputFile
	cfg.Detail = input.Detail
	cfg.Explain = input.Explain
	cfg.Width = input.Width
	cfg.CaseInsensitive = input.CaseInsensitive

	backend, err := ParseBackend(input.Backend)
	if err != nil {
		return err
	}
	cfg.Backend = backend

	colors, err := ParseBoolString(input.Color)
	if err != nil {
		return fmt.Errorf("invalid --color value: %w", err)
	}
	cfg.UseColors = colors

	cfg.LogLevel = strings.ToLower(input.LogLevel)
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}

	// --- 1. ResultLimit Validation ---
	if input.Limit <= 0 || input.Limit > MaxResultLimit {
		return fmt.Errorf("limit must be greater than 0 and cannot exceed %d (received %d)", MaxResultLimit, input.Limit)
	}
	cfg.ResultLimit = input.Limit

	// --- 2. Workers Validation ---
	if input.Workers <= 0 {
		return fmt.Errorf("workers must be greater than 0 (received %d)", input.Workers)
	}
	cfg.Workers = input.Workers

	// --- 3. Precision and Output Validation ---
	if input.Precision < 1 || input.Precision > 2 {
		return fmt.Errorf("precision must be 1 or 2 (received %d)", input.Precision)
	}
	cfg.Precision = input.Precision

	cfg.Output = schema.OutputMode(strings.ToLower(input.Output))
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return fmt.Errorf("invalid output format '%s'. must be text, csv, json, parquet", cfg.Output)
	}
	if cfg.Output == schema.ParquetOut && cfg.OutputFile == "" {
		return fmt.Errorf("parquet output requires --output-file")
	}

	// --- 4. Backend Validation ---
	if err := validateBackendConfigs(cfg, input); err != nil {
		return err
	}

	// --- 5. Excludes Processing ---
	cfg.Excludes = append([]string{}, DefaultExcludes...)
	if input.Exclude != "" {
		for p := range strings.SplitSeq(input.Exclude, ",") {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				cfg.Excludes = append(cfg.Excludes, trimmed)
			}
		}
	}

	return nil
}

// processHistoryShaping validates the options that shape history and summary building.
func processHistoryShaping(cfg *Config, input *ConfigRawInput) error {
	if input.NoiseThreshold < 0 {
		return fmt.Errorf("noise-threshold cannot be negative (received %d)", input.NoiseThreshold)
	}
	cfg.NoiseThreshold = input.NoiseThreshold

	cfg.WorkItemRegex = input.WorkItemRegex
	if cfg.WorkItemRegex == "" {
		cfg.WorkItemRegex = DefaultWorkItemRegex
	}
	if _, err := regexp.Compile(cfg.WorkItemRegex); err != nil {
		return fmt.Errorf("invalid work-item-regex %q: %w", cfg.WorkItemRegex, err)
	}

	cfg.Liveness = schema.LivenessMode(strings.ToLower(input.Liveness))
	if cfg.Liveness == "" {
		cfg.Liveness = schema.TrackedLiveness
	}
	if _, ok := schema.ValidLivenessModes[cfg.Liveness]; !ok {
		return fmt.Errorf("invalid liveness '%s'. must be tracked, filesystem, none", input.Liveness)
	}

	cfg.SharedHistory = schema.SharedHistoryPolicy(strings.ToLower(input.SharedHistory))
	if cfg.SharedHistory == "" {
		cfg.SharedHistory = schema.KeepSharedHistory
	}
	if _, ok := schema.ValidSharedHistoryPolicies[cfg.SharedHistory]; !ok {
		return fmt.Errorf("invalid shared-history '%s'. must be keep, copies", input.SharedHistory)
	}

	cfg.KnownFilesPath = strings.TrimSpace(input.KnownFiles)
	if cfg.KnownFilesPath != "" {
		if _, err := os.Stat(cfg.KnownFilesPath); err != nil {
			return fmt.Errorf("known-files: %w", err)
		}
	}
	return nil
}

// ProcessWeightsRawInput converts WeightsRawInput into a partial weights map.
// If validateSum is true, it validates that the provided weights sum to 1.0.
func ProcessWeightsRawInput(weights WeightsRawInput, validateSum bool) (map[schema.BreakdownKey]float64, error) {
	result := make(map[schema.BreakdownKey]float64)
	sum := 0.0
	add := func(key schema.BreakdownKey, v *float64) {
		if v != nil {
			result[key] = *v
			sum += *v
		}
	}
	add(schema.BreakdownCommits, weights.Commits)
	add(schema.BreakdownCommitters, weights.Committers)
	add(schema.BreakdownWorkItems, weights.WorkItems)
	add(schema.BreakdownLOC, weights.LOC)
	add(schema.BreakdownRecency, weights.Recency)

	if len(result) > 0 && validateSum && (sum < 0.999 || sum > 1.001) {
		return nil, fmt.Errorf("custom weights must sum to 1.0, got %.3f", sum)
	}
	return result, nil
}

// processCustomWeights merges custom weights over the defaults.
// A partial override replaces the whole set so the weights still sum to 1.0.
func processCustomWeights(cfg *Config, input *ConfigRawInput) error {
	custom, err := ProcessWeightsRawInput(input.Weights, true)
	if err != nil {
		return err
	}
	if len(custom) > 0 {
		cfg.Weights = custom
		return nil
	}
	cfg.Weights = schema.DefaultWeights()
	return nil
}

// ProcessProfilingConfig handles the profiling flag and sets up profiling configuration.
func ProcessProfilingConfig(profile *ProfileConfig, profilePrefix string) error {
	if profilePrefix != "" {
		profile.Enabled = true
		profile.Prefix = profilePrefix
	}
	return nil
}

// resolveRepoPathAndFilter resolves the working copy root and sets the implicit path filter.
func resolveRepoPathAndFilter(ctx context.Context, cfg *Config, client VCSClient, input *ConfigRawInput) error {
	searchPath := input.RepoPathStr
	if searchPath == "" {
		searchPath = "."
	}
	absSearchPath, err := filepath.Abs(searchPath)
	if err != nil {
		return err
	}
	absSearchPath = filepath.Clean(absSearchPath)

	info, statErr := os.Stat(absSearchPath)
	contextPath := absSearchPath
	if statErr == nil && !info.IsDir() {
		contextPath = filepath.Dir(absSearchPath)
	}

	root, err := client.GetRepoRoot(ctx, contextPath)
	if err != nil {
		return err
	}
	cfg.RepoPath = root

	if input.Artifact != "" {
		artifact, err := NormalizeRepoPath(root, input.Artifact)
		if err != nil {
			return err
		}
		cfg.ArtifactPath = artifact
	}

	if cfg.PathFilter != "" { // User-provided --filter flag takes precedence
		return nil
	}

	if absSearchPath != root {
		relativePath, err := filepath.Rel(root, absSearchPath)
		if err != nil {
			return err
		}
		if relativePath != "." {
			filter := relativePath
			if statErr == nil && info.IsDir() {
				filter += "/"
			}
			cfg.PathFilter = filepath.ToSlash(filter)
		}
	}
	return nil
}
