package history

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/huangsam/insight/schema"
)

// Liveness decides whether the latest state of an artifact still exists.
type Liveness interface {
	Exists(item *schema.ChangeItem) bool
}

// KnownFiles is a set of local paths known to exist, compared case-insensitively.
type KnownFiles map[string]struct{}

// NewKnownFiles builds the set from local paths.
func NewKnownFiles(localPaths []string) KnownFiles {
	known := make(KnownFiles, len(localPaths))
	for _, p := range localPaths {
		known[knownKey(p)] = struct{}{}
	}
	return known
}

// LoadKnownFiles reads one path per line. Relative paths are resolved against root.
// Blank lines and lines starting with '#' are skipped.
func LoadKnownFiles(r io.Reader, root string) (KnownFiles, error) {
	var paths []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		p := filepath.FromSlash(line)
		if !filepath.IsAbs(p) {
			p = filepath.Join(root, p)
		}
		paths = append(paths, p)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read known files: %w", err)
	}
	return NewKnownFiles(paths), nil
}

func knownKey(localPath string) string {
	return strings.ToLower(filepath.Clean(localPath))
}

// Exists implements the Liveness interface.
func (k KnownFiles) Exists(item *schema.ChangeItem) bool {
	if item.LocalPath == "" {
		return false
	}
	_, ok := k[knownKey(item.LocalPath)]
	return ok
}

// DefaultFileSystemMemo is the number of stat results FileSystem remembers.
const DefaultFileSystemMemo = 4096

// FileSystem checks the local filesystem, remembering recent answers.
type FileSystem struct {
	memo *lru.Cache[string, bool]
}

// NewFileSystem creates a FileSystem liveness check remembering up to size paths.
func NewFileSystem(size int) (*FileSystem, error) {
	if size <= 0 {
		size = DefaultFileSystemMemo
	}
	memo, err := lru.New[string, bool](size)
	if err != nil {
		return nil, err
	}
	return &FileSystem{memo: memo}, nil
}

// Exists implements the Liveness interface. Directories do not count.
func (f *FileSystem) Exists(item *schema.ChangeItem) bool {
	if item.LocalPath == "" {
		return false
	}
	if live, ok := f.memo.Get(item.LocalPath); ok {
		return live
	}
	info, err := os.Stat(item.LocalPath)
	live := err == nil && !info.IsDir()
	f.memo.Add(item.LocalPath, live)
	return live
}
