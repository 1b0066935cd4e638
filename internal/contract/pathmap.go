package contract

import (
	"path"
	"path/filepath"
	"strings"
)

// PathMapper resolves a server path from an exported log into a local filesystem path.
// It returns an empty string when the server path lies outside the working copy.
type PathMapper func(serverPath string) string

// NewPathMapper builds the mapper for a working copy rooted at repoRoot whose root
// corresponds to serverPrefix on the server. Git uses an empty prefix because its
// log paths are already relative to the repository root.
func NewPathMapper(repoRoot, serverPrefix string, caseInsensitive bool) PathMapper {
	prefix := strings.TrimSuffix(serverPrefix, "/")
	return func(serverPath string) string {
		rel := serverPath
		if prefix != "" {
			cleaned := path.Clean("/" + strings.TrimPrefix(serverPath, "/"))
			switch {
			case cleaned == prefix:
				return ""
			case strings.HasPrefix(cleaned, prefix+"/"):
				rel = strings.TrimPrefix(cleaned, prefix+"/")
			default:
				return ""
			}
		}
		local := filepath.Join(repoRoot, filepath.FromSlash(rel))
		if caseInsensitive {
			local = strings.ToLower(local)
		}
		return local
	}
}

// RelativePath returns localPath relative to repoRoot using forward slashes,
// the form exclude patterns and path filters are written in.
func RelativePath(repoRoot, localPath string) string {
	rel, err := filepath.Rel(repoRoot, localPath)
	if err != nil {
		return filepath.ToSlash(localPath)
	}
	return filepath.ToSlash(rel)
}
