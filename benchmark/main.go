// Package main times the insight CLI against real repositories.
// For each repository it measures summary, history and warnings runs without
// a cache (the log is exported every time), then syncs into each cache backend
// and measures a cold run (parse miss) followed by warm runs (parse hit).
//
// Prerequisites:
// - insight binary installed and available in PATH
// - Test repositories cloned to the specified base directory
//
// Usage: go run benchmark/main.go [repo-base-dir]
package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

// BenchmarkResult holds the timings of one command on one repository and backend.
type BenchmarkResult struct {
	Repository string
	Command    string
	Backend    string
	SyncTime   string
	ColdTime   string
	WarmTime   string
}

// BenchmarkConfig holds configuration for the benchmark run.
type BenchmarkConfig struct {
	RepoBase  string
	Timeout   time.Duration
	Runs      int
	TestRepos []string
	Commands  []string
	Backends  []string
}

func main() {
	if len(os.Args) != 2 {
		fmt.Printf("Usage: %s [repo-base-dir]\n", os.Args[0])
		os.Exit(1)
	}

	config := BenchmarkConfig{
		RepoBase:  os.Args[1],
		Timeout:   5 * time.Minute,
		Runs:      4,
		TestRepos: []string{"csv-parser", "fd", "git", "kubernetes"},
		Commands:  []string{"summary", "history", "warnings"},
		Backends:  []string{"none", "sqlite", "badger"},
	}

	if err := checkPrerequisites(config); err != nil {
		fmt.Printf("Prerequisites check failed: %v\n", err)
		os.Exit(1)
	}

	scratch, err := os.MkdirTemp("", "insight-benchmark-*")
	if err != nil {
		fmt.Printf("Failed to create scratch directory: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = os.RemoveAll(scratch) }()

	results := runBenchmarks(config, scratch)
	if err := saveResults(results); err != nil {
		fmt.Printf("Failed to save results: %v\n", err)
		os.Exit(1)
	}
	printSummary(config, results)
}

// checkPrerequisites verifies that the insight binary and test repositories exist.
func checkPrerequisites(config BenchmarkConfig) error {
	if _, err := exec.LookPath("insight"); err != nil {
		return fmt.Errorf("insight binary not found in PATH")
	}
	for _, repo := range config.TestRepos {
		repoPath := filepath.Join(config.RepoBase, repo)
		if _, err := os.Stat(repoPath); os.IsNotExist(err) {
			return fmt.Errorf("repository %s not found at %s", repo, repoPath)
		}
	}
	return nil
}

// storeFlags points a backend at a store inside scratch so runs never share state.
func storeFlags(scratch, repo, backend string) []string {
	conn := ""
	switch backend {
	case "sqlite":
		conn = filepath.Join(scratch, repo+".db")
	case "badger":
		conn = filepath.Join(scratch, repo+".badger")
	}
	return []string{"--cache-backend", backend, "--cache-db-connect", conn, "--output-file", os.DevNull}
}

func runBenchmarks(config BenchmarkConfig, scratch string) []BenchmarkResult {
	var results []BenchmarkResult
	fmt.Printf("Starting benchmark: %d repos, %v timeout, %d runs per phase\n",
		len(config.TestRepos), config.Timeout, config.Runs)

	for _, repo := range config.TestRepos {
		repoPath := filepath.Join(config.RepoBase, repo)
		for _, backend := range config.Backends {
			flags := storeFlags(scratch, repo, backend)

			syncTime := "-"
			if backend != "none" {
				if d, ok := timeRun(config, repoPath, append([]string{"sync"}, flags...)); ok {
					syncTime = fmt.Sprintf("%.3fs", d)
				} else {
					syncTime = "FAILED"
				}
			}

			for _, command := range config.Commands {
				fmt.Printf("Running %s on %s (%s)\n", command, repo, backend)
				times := runPhase(config, repoPath, append([]string{command}, flags...))
				result := BenchmarkResult{Repository: repo, Command: command, Backend: backend, SyncTime: syncTime}
				result.ColdTime, result.WarmTime = summarize(times, config.Runs)
				results = append(results, result)
			}
		}
	}
	return results
}

// runPhase runs the command config.Runs times and returns successful timings.
func runPhase(config BenchmarkConfig, repoPath string, args []string) []float64 {
	var times []float64
	for range config.Runs {
		if d, ok := timeRun(config, repoPath, args); ok {
			times = append(times, d)
		}
	}
	return times
}

// timeRun runs insight once and reports the wall time in seconds.
func timeRun(config BenchmarkConfig, repoPath string, args []string) (float64, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), config.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "insight", args...)
	cmd.Dir = repoPath
	start := time.Now()
	if output, err := cmd.CombinedOutput(); err != nil {
		fmt.Printf("  insight %v failed: %v\n%s", args, err, output)
		return 0, false
	}
	return time.Since(start).Seconds(), true
}

// summarize treats the first run as cold and averages the rest as warm.
func summarize(times []float64, want int) (cold, warm string) {
	if len(times) < want {
		return "FAILED", "FAILED"
	}
	cold = fmt.Sprintf("%.3fs", times[0])
	if len(times) == 1 {
		return cold, "-"
	}
	var sum float64
	for _, t := range times[1:] {
		sum += t
	}
	return cold, fmt.Sprintf("%.3fs", sum/float64(len(times)-1))
}

// saveResults writes benchmark results to a timestamped CSV file.
func saveResults(results []BenchmarkResult) error {
	filename := fmt.Sprintf("/tmp/insight_benchmark_%s.csv", time.Now().Format("20060102_150405"))

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			fmt.Printf("Warning: failed to close file %s: %v\n", filename, closeErr)
		}
	}()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"repo", "cmd", "backend", "sync", "cold", "warm_avg"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, r := range results {
		if err := writer.Write([]string{r.Repository, r.Command, r.Backend, r.SyncTime, r.ColdTime, r.WarmTime}); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}

	fmt.Printf("Results saved to %s\n", filename)
	return nil
}

// printSummary displays the final results grouped by command.
func printSummary(config BenchmarkConfig, results []BenchmarkResult) {
	fmt.Printf("Benchmark complete\n")
	for _, command := range config.Commands {
		fmt.Printf("%s:\n", command)
		for _, r := range results {
			if r.Command == command {
				fmt.Printf("  %-12s %-7s sync: %-8s cold: %-8s warm: %s\n", r.Repository, r.Backend, r.SyncTime, r.ColdTime, r.WarmTime)
			}
		}
	}
}
