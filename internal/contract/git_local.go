package contract

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/huangsam/insight/schema"
)

// Record markers wrapped around each commit header in the exported log.
const (
	GitHeaderStart = "START_HEADER"
	GitHeaderEnd   = "END_HEADER"
)

// gitLogFormat emits hash, author, strict ISO committer date, parents and the raw body between the markers.
const gitLogFormat = "--pretty=format:" + GitHeaderStart + "%n%H%n%an%n%cI%n%P%n%B%n" + GitHeaderEnd

// LocalGitClient implements the VCSClient interface by executing the
// local 'git' binary installed on the machine.
type LocalGitClient struct{}

var _ VCSClient = &LocalGitClient{} // Compile-time check

// NewLocalGitClient creates a new instance of the local Git client.
func NewLocalGitClient() *LocalGitClient {
	return &LocalGitClient{}
}

// Backend implements the VCSClient interface.
func (c *LocalGitClient) Backend() schema.VCSBackend {
	return schema.GitBackend
}

// Run executes a git command and returns its stdout output.
func (c *LocalGitClient) Run(ctx context.Context, repoPath string, args ...string) ([]byte, error) {
	fullArgs := append([]string{"-C", repoPath}, args...)
	cmd := exec.CommandContext(ctx, "git", fullArgs...)
	out, err := cmd.Output()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		stderr := strings.TrimSpace(string(exitErr.Stderr))
		return nil, fmt.Errorf("git command failed in %q: %s. If this is not a Git repository, verify the path or run 'git init'", repoPath, stderr)
	} else if err != nil {
		return nil, fmt.Errorf("git command failed: %w. Ensure Git is installed and available on your PATH", err)
	}
	return out, nil
}

// ExportLog implements the VCSClient interface.
// Renames and copies are detected so the parser can follow identities.
func (c *LocalGitClient) ExportLog(ctx context.Context, repoPath string) ([]byte, error) {
	args := []string{
		"log",
		gitLogFormat,
		"--name-status",
		"-M", "-C",
		"--no-color",
		"--date-order",
	}
	return c.Run(ctx, repoPath, args...)
}

// GetHeadRevision implements the VCSClient interface.
func (c *LocalGitClient) GetHeadRevision(ctx context.Context, repoPath string) (string, error) {
	out, err := c.Run(ctx, repoPath, "rev-parse", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// GetRepoRoot implements the VCSClient interface.
func (c *LocalGitClient) GetRepoRoot(ctx context.Context, contextPath string) (string, error) {
	out, err := c.Run(ctx, contextPath, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// GetServerPrefix implements the VCSClient interface.
// Git log paths are already relative to the repository root.
func (c *LocalGitClient) GetServerPrefix(context.Context, string) (string, error) {
	return "", nil
}

// ListTrackedFiles implements the VCSClient interface.
func (c *LocalGitClient) ListTrackedFiles(ctx context.Context, repoPath string) ([]string, error) {
	// NUL termination keeps paths unquoted.
	out, err := c.Run(ctx, repoPath, "ls-tree", "-r", "-z", "--name-only", "HEAD")
	if err != nil {
		return nil, err
	}
	return splitOutput(out, "\x00"), nil
}

// splitOutput splits command output on sep and drops empty entries.
func splitOutput(out []byte, sep string) []string {
	files := []string{}
	for f := range strings.SplitSeq(string(out), sep) {
		f = strings.TrimSuffix(f, "\r")
		if f != "" {
			files = append(files, f)
		}
	}
	return files
}
