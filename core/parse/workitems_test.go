package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkItemExtractor(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		comment string
		want    []string
	}{
		{"capture group", `#(\d+)`, "Fix #12, refs #7 and #12", []string{"12", "7"}},
		{"whole match", `[A-Z]+-\d+`, "JIRA-1 and OPS-22 then JIRA-1", []string{"JIRA-1", "OPS-22"}},
		{"no match", `#(\d+)`, "no references here", nil},
		{"empty comment", `#(\d+)`, "", nil},
		{"empty optional group", `#(\d*)`, "# and #5", []string{"5"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := NewWorkItemExtractor(tt.pattern)
			require.NoError(t, err)
			assert.Equal(t, tt.want, w.Extract(tt.comment))
		})
	}
}

func TestWorkItemExtractorInvalid(t *testing.T) {
	_, err := NewWorkItemExtractor(`#(\d+`)
	assert.Error(t, err)
}

func TestNilWorkItemExtractor(t *testing.T) {
	var w *WorkItemExtractor
	assert.Nil(t, w.Extract("#1"))
}
