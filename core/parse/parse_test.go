package parse

import (
	"strings"
	"testing"

	"github.com/huangsam/insight/internal/contract"
	"github.com/huangsam/insight/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	p, err := New(schema.GitBackend, Options{})
	require.NoError(t, err)
	assert.IsType(t, &GitParser{}, p)

	p, err = New(schema.SVNBackend, Options{})
	require.NoError(t, err)
	assert.IsType(t, &SVNParser{}, p)

	_, err = New("hg", Options{})
	assert.Error(t, err)
}

func TestFormatErrorMessage(t *testing.T) {
	err := &FormatError{Record: 3, ChangeSetID: "abc", Line: 42, Msg: "boom"}
	assert.Equal(t, "malformed export at record 3 (abc), line 42: boom", err.Error())

	err = &FormatError{Record: 1, Msg: "boom"}
	assert.Equal(t, "malformed export at record 1: boom", err.Error())
}

func TestParsersReturnNewestFirst(t *testing.T) {
	unordered := gitRecord("old", "2024-01-01T00:00:00Z", "", "old", "A\tx") +
		gitRecord("new", "2024-01-05T00:00:00Z", "old", "new", "M\tx") +
		gitRecord("mid", "2024-01-03T00:00:00Z", "", "mid", "M\ty")

	if contract.StrictAssertions() {
		assert.Panics(t, func() { _, _ = NewGitParser(Options{}).Parse(strings.NewReader(unordered)) })
		return
	}

	result, err := NewGitParser(Options{}).Parse(strings.NewReader(unordered))
	require.NoError(t, err)

	h := result.History
	assert.NoError(t, h.Validate())
	for i := 0; i+1 < len(h.ChangeSets); i++ {
		assert.False(t, h.ChangeSets[i].Date.Before(h.ChangeSets[i+1].Date))
	}
	assert.Equal(t, []string{"new", "mid", "old"}, []string{h.ChangeSets[0].ID, h.ChangeSets[1].ID, h.ChangeSets[2].ID})

	require.NotEmpty(t, result.Warnings)
	assert.Contains(t, result.Warnings[len(result.Warnings)-1].Message, "re-sorted")
}

func TestDuplicateChangeSetIsSkipped(t *testing.T) {
	log := gitRecord("a", "2024-01-02T00:00:00Z", "", "first", "M\tx") +
		gitRecord("a", "2024-01-01T00:00:00Z", "", "again", "M\ty")

	if contract.StrictAssertions() {
		assert.Panics(t, func() { _, _ = NewGitParser(Options{}).Parse(strings.NewReader(log)) })
		return
	}

	result, err := NewGitParser(Options{}).Parse(strings.NewReader(log))
	require.NoError(t, err)
	require.Len(t, result.History.ChangeSets, 1)
	assert.Equal(t, "first", result.History.ChangeSets[0].Comment)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, "a", result.Warnings[0].ChangeSetID)
}
