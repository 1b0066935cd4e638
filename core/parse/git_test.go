package parse

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/huangsam/insight/core/history"
	"github.com/huangsam/insight/core/identity"
	"github.com/huangsam/insight/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

//go:embed testdata/git_log_basic.txt
var gitLogBasicFixture []byte

// sequentialIDs makes identities predictable: id-1, id-2, ...
func sequentialIDs() identity.Option {
	n := 0
	return identity.WithIdentityGenerator(func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	})
}

func testOptions(t *testing.T) Options {
	t.Helper()
	extractor, err := NewWorkItemExtractor(`#(\d+)`)
	require.NoError(t, err)
	return Options{
		PathMapper:     func(p string) string { return "/repo/" + p },
		WorkItems:      extractor,
		TrackerOptions: []identity.Option{sequentialIDs()},
	}
}

// idsByPath collects the identity of every item, keyed by "changeset:path".
func idsByPath(h *schema.History) map[string]string {
	ids := make(map[string]string)
	for _, cs := range h.ChangeSets {
		for _, item := range cs.Items {
			ids[cs.ID+":"+item.ServerPath] = item.ID
		}
	}
	return ids
}

func TestGitParserBasic(t *testing.T) {
	result, err := NewGitParser(testOptions(t)).Parse(bytes.NewReader(gitLogBasicFixture))
	require.NoError(t, err)
	require.NotNil(t, result.History)

	h := result.History
	require.Len(t, h.ChangeSets, 4)
	assert.NoError(t, h.Validate())

	newest := h.ChangeSets[0]
	assert.Equal(t, "4444444", newest.ID)
	assert.Equal(t, "Alice", newest.Committer)
	assert.Equal(t, "Fix parser #12 and #7", newest.Comment)
	assert.Equal(t, []string{"12", "7"}, newest.WorkItems)
	assert.Equal(t, 2024, newest.Date.Year())

	assert.Equal(t, "Rename util #12\n\nLonger body line.", h.ChangeSets[1].Comment)
	assert.Empty(t, h.ChangeSets[2].WorkItems)

	rename := h.ChangeSets[1].Items[0]
	assert.Equal(t, schema.Rename, rename.Kind)
	assert.Equal(t, "src/util.go", rename.FromServerPath)
	assert.Equal(t, "src/helpers.go", rename.ServerPath)
	assert.Equal(t, "/repo/src/helpers.go", rename.LocalPath)
	assert.Equal(t, "3333333", rename.ChangeSetID)

	quoted := h.ChangeSets[1].Items[1]
	assert.Equal(t, schema.Add, quoted.Kind)
	assert.Equal(t, "docs/über.md", quoted.ServerPath)

	copied := h.ChangeSets[2].Items[0]
	assert.Equal(t, schema.Copy, copied.Kind)
	assert.Equal(t, "src/parser.go", copied.FromServerPath)

	for _, cs := range h.ChangeSets {
		for _, item := range cs.Items {
			assert.NoError(t, item.Validate())
		}
	}
}

func TestGitParserIdentities(t *testing.T) {
	result, err := NewGitParser(testOptions(t)).Parse(bytes.NewReader(gitLogBasicFixture))
	require.NoError(t, err)

	ids := idsByPath(result.History)
	parser := ids["4444444:src/parser.go"]
	helpers := ids["3333333:src/helpers.go"]

	assert.Equal(t, parser, ids["1111111:src/parser.go"])
	assert.Equal(t, helpers, ids["2222222:src/util.go"], "rename carries identity back to the old name")
	assert.Equal(t, helpers, ids["1111111:src/util.go"])
	assert.Equal(t, ids["4444444:docs/old.md"], ids["1111111:docs/old.md"])
	assert.NotEqual(t, parser, ids["2222222:src/parser_v2.go"])

	require.Len(t, result.Branches, 1)
	bp := result.Branches[0]
	assert.Equal(t, ids["2222222:src/parser_v2.go"], bp.Identity)
	assert.Equal(t, parser, bp.SourceIdentity)
	assert.Equal(t, "2222222", bp.ChangeSetID)
	assert.Empty(t, result.Warnings)
}

func TestGitParserEdges(t *testing.T) {
	result, err := NewGitParser(testOptions(t)).Parse(bytes.NewReader(gitLogBasicFixture))
	require.NoError(t, err)

	assert.Equal(t, map[string][]string{
		"4444444": {"3333333"},
		"3333333": {"2222222"},
		"2222222": {"1111111"},
		"1111111": {},
	}, result.Edges)
}

// gitRecord renders one record the way the exporter prints it.
func gitRecord(hash, date, parents, comment string, files ...string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "START_HEADER\n%s\nDev\n%s\n%s\n%s\n\nEND_HEADER\n\n", hash, date, parents, comment)
	for _, f := range files {
		sb.WriteString(f + "\n")
	}
	return sb.String()
}

func TestGitParserMergeParents(t *testing.T) {
	log := gitRecord("m", "2024-01-03T00:00:00Z", "a b", "merge") +
		gitRecord("b", "2024-01-02T00:00:00Z", "a", "b", "M\tx") +
		gitRecord("a", "2024-01-01T00:00:00Z", "", "a", "A\tx")

	result, err := NewGitParser(Options{}).Parse(strings.NewReader(log))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, result.Edges["m"])
	assert.Empty(t, result.History.ChangeSets[0].Items)
	assert.Equal(t, "x", result.History.ChangeSets[1].Items[0].LocalPath, "default mapper keeps the server path")
}

func TestGitParserCopyOverReusedPath(t *testing.T) {
	log := gitRecord("d", "2024-01-04T00:00:00Z", "c", "d", "M\tx") +
		gitRecord("c", "2024-01-03T00:00:00Z", "b", "c", "C100\ty\tx") +
		gitRecord("b", "2024-01-02T00:00:00Z", "a", "b", "D\tx") +
		gitRecord("a", "2024-01-01T00:00:00Z", "", "a", "A\tx", "A\ty")

	result, err := NewGitParser(Options{TrackerOptions: []identity.Option{sequentialIDs()}}).Parse(strings.NewReader(log))
	require.NoError(t, err)

	ids := idsByPath(result.History)
	assert.Equal(t, ids["d:x"], ids["c:x"])
	assert.Equal(t, ids["c:x"], ids["a:y"], "the copy inherits its source history")
	assert.Equal(t, ids["b:x"], ids["a:x"])
	assert.NotEqual(t, ids["d:x"], ids["b:x"], "the deleted older x is a different file")

	history.Cleanup(result.History)
	artifacts := history.Summarize(result.History, history.Options{})
	require.Len(t, artifacts, 1)
	assert.Equal(t, "x", artifacts[0].LocalPath)
	assert.Equal(t, 3, artifacts[0].Commits)
}

func TestGitParserTypeChangeIsEdit(t *testing.T) {
	log := gitRecord("a", "2024-01-01T00:00:00Z", "", "chmod", "T\tscript.sh")
	result, err := NewGitParser(Options{}).Parse(strings.NewReader(log))
	require.NoError(t, err)
	assert.Equal(t, schema.Edit, result.History.ChangeSets[0].Items[0].Kind)
}

func TestGitParserFormatErrors(t *testing.T) {
	tests := []struct {
		name    string
		log     string
		wantMsg string
		wantID  string
	}{
		{
			name:    "unknown change code",
			log:     gitRecord("a", "2024-01-01T00:00:00Z", "", "x", "U\tconflicted.go"),
			wantMsg: "unknown change code",
			wantID:  "a",
		},
		{
			name:    "rename without destination",
			log:     gitRecord("a", "2024-01-01T00:00:00Z", "", "x", "R100\tonly.go"),
			wantMsg: "expects two paths",
			wantID:  "a",
		},
		{
			name:    "empty path",
			log:     gitRecord("a", "2024-01-01T00:00:00Z", "", "x", "M\t"),
			wantMsg: "empty server path",
			wantID:  "a",
		},
		{
			name:    "copy source lost to a bad escape",
			log:     gitRecord("a", "2024-01-01T00:00:00Z", "", "x", "C100\t\"\\9\"\tnew.go"),
			wantMsg: "rename or copy without source path",
			wantID:  "a",
		},
		{
			name:    "bad date",
			log:     gitRecord("a", "yesterday", "", "x"),
			wantMsg: "bad commit date",
			wantID:  "a",
		},
		{
			name:    "truncated header",
			log:     "START_HEADER\nabc\nDev\n",
			wantMsg: "unexpected end of export",
			wantID:  "abc",
		},
		{
			name:    "missing end marker",
			log:     "START_HEADER\nabc\nDev\n2024-01-01T00:00:00Z\n\ncomment\n",
			wantMsg: "inside commit message",
			wantID:  "abc",
		},
		{
			name:    "header closed early",
			log:     "START_HEADER\nabc\nEND_HEADER\n",
			wantMsg: "header ended before author",
			wantID:  "abc",
		},
		{
			name:    "file before header",
			log:     "M\tfile.go\n",
			wantMsg: "before any commit header",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := NewGitParser(Options{}).Parse(strings.NewReader(tt.log))
			assert.Nil(t, result)
			var formatErr *FormatError
			require.True(t, errors.As(err, &formatErr), "got %v", err)
			assert.Contains(t, formatErr.Msg, tt.wantMsg)
			assert.Equal(t, tt.wantID, formatErr.ChangeSetID)
			assert.Positive(t, formatErr.Line)
		})
	}
}

func TestGitParserEmptyInput(t *testing.T) {
	result, err := NewGitParser(Options{}).Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, result.History.ChangeSets)
	assert.Empty(t, result.Edges)
}

func TestGitParserMalformedQuotedPathIsKept(t *testing.T) {
	log := gitRecord("a", "2024-01-01T00:00:00Z", "", "x", "A\t\"dir/na\\9me.txt\"", "A\tnext.txt")
	result, err := NewGitParser(Options{}).Parse(strings.NewReader(log))
	require.NoError(t, err)

	items := result.History.ChangeSets[0].Items
	require.Len(t, items, 2, "one bad path must not lose the rest")
	assert.Equal(t, "dir/na", items[0].ServerPath)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, "a", result.Warnings[0].ChangeSetID)
}
