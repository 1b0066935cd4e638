package contract

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/huangsam/insight/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// skipIfGitNotAvailable skips the test if git binary is not found in PATH
func skipIfGitNotAvailable(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skipf("git binary not found in PATH: %v", err)
	}
}

// initTestRepo creates a throwaway repository with an add, an edit and a rename.
func initTestRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	run := func(args ...string) {
		t.Helper()
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		cmd.Env = append(os.Environ(),
			"GIT_AUTHOR_NAME=Alice", "GIT_AUTHOR_EMAIL=alice@example.com",
			"GIT_COMMITTER_NAME=Alice", "GIT_COMMITTER_EMAIL=alice@example.com",
			"GIT_CONFIG_NOSYSTEM=1", "HOME="+dir,
		)
		out, err := cmd.CombinedOutput()
		require.NoError(t, err, string(out))
	}
	write := func(name, content string) {
		t.Helper()
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}

	run("init", "-q")
	write("a.txt", "one\ntwo\nthree\n")
	run("add", ".")
	run("commit", "-q", "-m", "add a #1")
	write("a.txt", "one\ntwo\nthree\nfour\n")
	run("commit", "-q", "-am", "edit a #2")
	run("mv", "a.txt", "b.txt")
	run("commit", "-q", "-m", "rename a to b")
	return dir
}

func TestMockVCSClient_Run(t *testing.T) {
	mockClient := new(MockVCSClient)
	ctx := context.Background()
	expectedErr := errors.New("mocked vcs error")

	mockClient.On("Run", ctx, "/path/to/repo", "log", "-1").Return([]byte("a1b2c3d"), expectedErr).Once()

	out, err := mockClient.Run(ctx, "/path/to/repo", "log", "-1")
	assert.Equal(t, []byte("a1b2c3d"), out)
	assert.Equal(t, expectedErr, err)
	mockClient.AssertExpectations(t)
}

func TestNewVCSClient(t *testing.T) {
	client, err := NewVCSClient(schema.GitBackend)
	require.NoError(t, err)
	assert.IsType(t, &LocalGitClient{}, client)
	assert.Equal(t, schema.GitBackend, client.Backend())

	client, err = NewVCSClient(schema.SVNBackend)
	require.NoError(t, err)
	assert.IsType(t, &LocalSVNClient{}, client)
	assert.Equal(t, schema.SVNBackend, client.Backend())

	_, err = NewVCSClient("hg")
	assert.Error(t, err)
}

func TestLocalGitClient_Run(t *testing.T) {
	skipIfGitNotAvailable(t)
	client := NewLocalGitClient()
	ctx := context.Background()

	_, err := client.Run(ctx, "/nonexistent/path", "status")
	assert.Error(t, err)

	repo := initTestRepo(t)
	_, err = client.Run(ctx, repo, "invalid-command")
	assert.Error(t, err)
}

func TestLocalGitClient_RepoQueries(t *testing.T) {
	skipIfGitNotAvailable(t)
	client := NewLocalGitClient()
	ctx := context.Background()
	repo := initTestRepo(t)

	root, err := client.GetRepoRoot(ctx, repo)
	require.NoError(t, err)
	resolved, err := filepath.EvalSymlinks(repo)
	require.NoError(t, err)
	assert.Equal(t, resolved, root)

	head, err := client.GetHeadRevision(ctx, repo)
	require.NoError(t, err)
	assert.Len(t, head, 40)

	prefix, err := client.GetServerPrefix(ctx, repo)
	require.NoError(t, err)
	assert.Empty(t, prefix)

	files, err := client.ListTrackedFiles(ctx, repo)
	require.NoError(t, err)
	assert.Equal(t, []string{"b.txt"}, files)
}

func TestLocalGitClient_ExportLog(t *testing.T) {
	skipIfGitNotAvailable(t)
	client := NewLocalGitClient()
	repo := initTestRepo(t)

	out, err := client.ExportLog(context.Background(), repo)
	require.NoError(t, err)

	text := string(out)
	assert.Equal(t, 3, strings.Count(text, GitHeaderStart))
	assert.Equal(t, 3, strings.Count(text, GitHeaderEnd))
	assert.Contains(t, text, "R100\ta.txt\tb.txt")
	assert.Contains(t, text, "M\ta.txt")
	assert.Contains(t, text, "A\ta.txt")
	// Newest first
	assert.Less(t, strings.Index(text, "rename a to b"), strings.Index(text, "add a #1"))
}

func TestServerPrefixFromRelativeURL(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"^/trunk", "/trunk", false},
		{"^/branches/feature%20x/", "/branches/feature x", false},
		{"^/", "", false},
		{"^/bad%zz", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ServerPrefixFromRelativeURL(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSplitOutput(t *testing.T) {
	assert.Equal(t, []string{"a", "b c"}, splitOutput([]byte("a\x00b c\x00"), "\x00"))
	assert.Equal(t, []string{"x", "y"}, splitOutput([]byte("x\r\ny\n"), "\n"))
	assert.Empty(t, splitOutput([]byte(""), "\n"))
}
