package cmd

import (
	"fmt"
	"os"

	"github.com/huangsam/insight/internal/contract"
	"github.com/huangsam/insight/internal/iocache"
	"github.com/huangsam/insight/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// analysisConfig reads and validates the analysis backend settings.
func analysisConfig() error {
	if err := loadConfigFile(); err != nil {
		return err
	}

	backend := schema.DatabaseBackend(viper.GetString("analysis-backend"))
	if backend == "" {
		backend = schema.NoneBackend
	}
	if _, ok := schema.ValidAnalysisBackends[backend]; !ok {
		return fmt.Errorf("invalid analysis backend '%s'. must be sqlite, mysql, postgresql, none", backend)
	}
	connStr := viper.GetString("analysis-db-connect")
	if err := contract.ValidateDatabaseConnectionString(backend, connStr); err != nil {
		return err
	}

	cfg.AnalysisBackend = backend
	cfg.AnalysisDBConnect = connStr
	cfg.OutputFile = viper.GetString("output-file")
	return nil
}

// analysisSetup opens the analysis store. Opening it also brings the schema
// up to date.
func analysisSetup(_ *cobra.Command, _ []string) error {
	if err := analysisConfig(); err != nil {
		return err
	}
	if err := iocache.InitCaching("", "", cfg.AnalysisBackend, cfg.AnalysisDBConnect); err != nil {
		return fmt.Errorf("failed to initialize analysis: %w", err)
	}
	return nil
}

// analysisCmd focused on analysis data management.
var analysisCmd = &cobra.Command{
	Use:   "analysis",
	Short: "Manage recorded summary runs and exports",
	Long: `Manage the record of summary runs kept for trend tracking and reporting.

When an analysis backend is configured, every summary stores its run
metadata and the score of each file it ranked.

Supported backends: SQLite, MySQL, PostgreSQL, or None (disabled, default)

Subcommands:
  status  - Show analysis tracking statistics
  export  - Export data to Parquet for analytics
  clear   - Remove all tracking data
  migrate - Run database schema migrations

Examples:
  insight analysis status
  insight analysis export --output-file runs`,
}

// analysisClearCmd clears the analysis data.
var analysisClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all recorded analysis runs",
	Long: `Delete all stored analysis runs and artifact scores.

WARNING: This action cannot be undone. Consider exporting data first.`,
	PreRunE: func(_ *cobra.Command, _ []string) error {
		return analysisConfig()
	},
	Run: func(_ *cobra.Command, _ []string) {
		if err := iocache.ClearAnalysis(cfg.AnalysisBackend, cfg.AnalysisDBConnect); err != nil {
			contract.LogFatal("Failed to clear analysis data", err)
		}
		fmt.Println("Analysis data cleared successfully.")
	},
}

// analysisStatusCmd shows analysis status.
var analysisStatusCmd = &cobra.Command{
	Use:     "status",
	Short:   "Display analysis tracking statistics and connection details",
	PreRunE: analysisSetup,
	Run: func(_ *cobra.Command, _ []string) {
		status, err := iocache.Manager.GetAnalysisStore().GetStatus()
		if err != nil {
			contract.LogFatal("Failed to get analysis status", err)
		}
		iocache.PrintAnalysisStatus(os.Stdout, status)
	},
}

// analysisExportCmd exports analysis data to Parquet files.
var analysisExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export recorded runs to Parquet for BI tools and analytics",
	Long: `Export all stored analysis data to two Parquet files:

  <output-file>.analysis_runs.parquet    one row per summary run
  <output-file>.artifact_scores.parquet  one row per ranked file per run

Requires: --output-file parameter

Examples:
  insight analysis export --output-file insight
  duckdb -c "SELECT * FROM read_parquet('insight.artifact_scores.parquet') LIMIT 10"`,
	PreRunE: analysisSetup,
	Run: func(_ *cobra.Command, _ []string) {
		if err := iocache.ExportAnalysis(os.Stdout, iocache.Manager.GetAnalysisStore(), cfg.OutputFile); err != nil {
			contract.LogFatal("Failed to export analysis data", err)
		}
	},
}

// analysisMigrateCmd runs database migrations for the analysis store.
// It skips store initialization so it can run against a fresh database.
var analysisMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database schema migrations (upgrades/downgrades)",
	Long: `Manage schema versions of the analysis tracking store.

By default, migrates to the latest version. Use --target-version for specific versions.

Examples:
  # Migrate to latest version (default)
  insight analysis migrate

  # Rollback everything
  insight analysis migrate --target-version 0`,
	PreRunE: func(_ *cobra.Command, _ []string) error {
		return analysisConfig()
	},
	Run: func(_ *cobra.Command, _ []string) {
		result, err := iocache.MigrateAnalysis(cfg.AnalysisBackend, cfg.AnalysisDBConnect, viper.GetInt("target-version"))
		if err != nil {
			contract.LogFatal("Failed to run migrations", err)
		}
		if !result.Changed {
			fmt.Printf("Analysis schema already at version %d.\n", result.ToVersion)
			return
		}
		fmt.Printf("Migrated analysis schema from version %d to %d.\n", result.FromVersion, result.ToVersion)
	},
}
