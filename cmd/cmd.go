// Package cmd defines the command-line interface for insight.
package cmd

import (
	"github.com/huangsam/insight/core"
	"github.com/huangsam/insight/internal/contract"
	"github.com/huangsam/insight/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// runExecutor adapts a core entry point to a cobra Run function.
func runExecutor(fn core.ExecutorFunc, failure string) func(*cobra.Command, []string) {
	return func(_ *cobra.Command, _ []string) {
		if err := fn(rootCtx, cfg, vcsClient, cacheManager); err != nil {
			contract.LogFatal(failure, err)
		}
	}
}

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(warningsCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(analysisCmd)
	rootCmd.AddCommand(mcpCmd)

	// Add the cache subcommands to the parent cache command
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheStatusCmd)

	// Add the analysis subcommands to the parent analysis command
	analysisCmd.AddCommand(analysisClearCmd)
	analysisCmd.AddCommand(analysisStatusCmd)
	analysisCmd.AddCommand(analysisExportCmd)
	analysisCmd.AddCommand(analysisMigrateCmd)

	// Bind all persistent flags of rootCmd to Viper
	flags := rootCmd.PersistentFlags()
	flags.String("backend", string(schema.GitBackend), "Version control system: git or svn")
	flags.String("exclude", "", "Comma-separated list of path prefixes or patterns to ignore")
	flags.StringP("filter", "f", "", "Filter files by repository-relative path prefix")
	flags.IntP("limit", "l", contract.DefaultResultLimit, "Number of results to display")
	flags.String("output", string(schema.TextOut), "Output format: text or csv or json or parquet")
	flags.String("output-file", "", "Optional path to write output to")
	flags.Int("precision", contract.DefaultPrecision, "Decimal precision for numeric columns (1 or 2)")
	flags.String("profile", "", "Enable profiling and write profiles to files with this prefix")
	flags.Int("workers", contract.DefaultWorkers, "Number of concurrent workers")
	flags.Int("width", 0, "Terminal width override (0 = auto-detect)")
	flags.String("cache-backend", string(schema.SQLiteBackend), "Log cache backend: sqlite or mysql or postgresql or badger or none")
	flags.String("cache-db-connect", "", "Connection string for mysql/postgresql, file for sqlite or directory for badger")
	flags.String("analysis-backend", "", "Analysis tracking backend: sqlite or mysql or postgresql or none")
	flags.String("analysis-db-connect", "", "Connection string for analysis tracking (must differ from cache-db-connect)")
	flags.String("color", "yes", "Enable colored labels in output (yes/no/true/false/1/0)")
	flags.String("log-level", contract.DefaultLogLevel, "Log level: debug or info or warn or error")
	flags.Bool("case-insensitive", false, "Treat local paths case-insensitively")
	flags.Int("noise-threshold", 0, "Skip changesets referencing at least this many work items (0 disables)")
	flags.String("work-item-regex", contract.DefaultWorkItemRegex, "Regular expression whose first group is a work item id")
	flags.String("known-files", "", "File listing known repository paths, one per line")
	flags.String("liveness", string(schema.TrackedLiveness), "How live files are detected: tracked or filesystem or none")
	flags.String("shared-history", string(schema.KeepSharedHistory), "Shared history policy: keep or copies")
	flags.String("config", "", "Path to config file")
	if err := viper.BindPFlags(flags); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	// Bind all flags of summaryCmd to Viper
	summaryCmd.Flags().Bool("detail", false, "Print per-file metrics (commits, committers, work items, size, age)")
	summaryCmd.Flags().Bool("explain", false, "Print the metrics contributing most to each score")
	if err := viper.BindPFlags(summaryCmd.Flags()); err != nil {
		contract.LogFatal("Error binding summary flags", err)
	}

	// Bind all flags of historyCmd to Viper
	historyCmd.Flags().String("artifact", "", "Only show the lineage of the file at this path")
	if err := viper.BindPFlags(historyCmd.Flags()); err != nil {
		contract.LogFatal("Error binding history flags", err)
	}

	// Bind all flags of analysisMigrateCmd to Viper
	analysisMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
	if err := viper.BindPFlags(analysisMigrateCmd.Flags()); err != nil {
		contract.LogFatal("Error binding analysis migrate flags", err)
	}
}
