package contract

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"net/url"
	"os/exec"
	"strings"

	"github.com/huangsam/insight/schema"
)

// LocalSVNClient implements the VCSClient interface by executing the
// local 'svn' binary installed on the machine.
type LocalSVNClient struct{}

var _ VCSClient = &LocalSVNClient{} // Compile-time check

// NewLocalSVNClient creates a new instance of the local Subversion client.
func NewLocalSVNClient() *LocalSVNClient {
	return &LocalSVNClient{}
}

// svnInfo mirrors the parts of `svn info --xml` insight reads.
type svnInfo struct {
	Entry struct {
		Revision    string `xml:"revision,attr"`
		URL         string `xml:"url"`
		RelativeURL string `xml:"relative-url"`
		WCRoot      string `xml:"wc-info>wcroot-abspath"`
	} `xml:"entry"`
}

// Backend implements the VCSClient interface.
func (c *LocalSVNClient) Backend() schema.VCSBackend {
	return schema.SVNBackend
}

// Run executes an svn command inside repoPath and returns its stdout output.
func (c *LocalSVNClient) Run(ctx context.Context, repoPath string, args ...string) ([]byte, error) {
	fullArgs := append([]string{"--non-interactive"}, args...)
	cmd := exec.CommandContext(ctx, "svn", fullArgs...)
	cmd.Dir = repoPath
	out, err := cmd.Output()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		stderr := strings.TrimSpace(string(exitErr.Stderr))
		return nil, fmt.Errorf("svn command failed in %q: %s. Verify the path is an svn working copy", repoPath, stderr)
	} else if err != nil {
		return nil, fmt.Errorf("svn command failed: %w. Ensure Subversion is installed and available on your PATH", err)
	}
	return out, nil
}

func (c *LocalSVNClient) info(ctx context.Context, path string) (*svnInfo, error) {
	out, err := c.Run(ctx, path, "info", "--xml")
	if err != nil {
		return nil, err
	}
	var info svnInfo
	if err := xml.Unmarshal(out, &info); err != nil {
		return nil, fmt.Errorf("failed to read svn info: %w", err)
	}
	return &info, nil
}

// ExportLog implements the VCSClient interface.
func (c *LocalSVNClient) ExportLog(ctx context.Context, repoPath string) ([]byte, error) {
	return c.Run(ctx, repoPath, "log", "--xml", "--verbose")
}

// GetHeadRevision implements the VCSClient interface.
func (c *LocalSVNClient) GetHeadRevision(ctx context.Context, repoPath string) (string, error) {
	info, err := c.info(ctx, repoPath)
	if err != nil {
		return "", err
	}
	return info.Entry.Revision, nil
}

// GetRepoRoot implements the VCSClient interface.
func (c *LocalSVNClient) GetRepoRoot(ctx context.Context, contextPath string) (string, error) {
	info, err := c.info(ctx, contextPath)
	if err != nil {
		return "", err
	}
	if info.Entry.WCRoot == "" {
		return "", fmt.Errorf("%q is not inside an svn working copy", contextPath)
	}
	return info.Entry.WCRoot, nil
}

// GetServerPrefix implements the VCSClient interface.
// The relative URL looks like "^/trunk/sub%20dir" and maps to "/trunk/sub dir".
func (c *LocalSVNClient) GetServerPrefix(ctx context.Context, repoPath string) (string, error) {
	info, err := c.info(ctx, repoPath)
	if err != nil {
		return "", err
	}
	return ServerPrefixFromRelativeURL(info.Entry.RelativeURL)
}

// ServerPrefixFromRelativeURL converts an svn relative URL into a log path prefix.
func ServerPrefixFromRelativeURL(relativeURL string) (string, error) {
	prefix := strings.TrimPrefix(relativeURL, "^")
	unescaped, err := url.PathUnescape(prefix)
	if err != nil {
		return "", fmt.Errorf("invalid relative url %q: %w", relativeURL, err)
	}
	return strings.TrimSuffix(unescaped, "/"), nil
}

// ListTrackedFiles implements the VCSClient interface.
func (c *LocalSVNClient) ListTrackedFiles(ctx context.Context, repoPath string) ([]string, error) {
	out, err := c.Run(ctx, repoPath, "list", "--recursive")
	if err != nil {
		return nil, err
	}
	files := []string{}
	for _, f := range splitOutput(out, "\n") {
		if !strings.HasSuffix(f, "/") { // directories end with a slash
			files = append(files, f)
		}
	}
	return files, nil
}
