package parse

import (
	"fmt"
	"regexp"
)

// WorkItemExtractor pulls work item references out of commit comments.
type WorkItemExtractor struct {
	re *regexp.Regexp
}

// NewWorkItemExtractor compiles pattern. When the pattern has a capture group,
// the first group is the work item; otherwise the whole match is.
func NewWorkItemExtractor(pattern string) (*WorkItemExtractor, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid work item pattern %q: %w", pattern, err)
	}
	return &WorkItemExtractor{re: re}, nil
}

// Extract returns the distinct work items of comment in first-seen order.
// A nil extractor finds nothing.
func (w *WorkItemExtractor) Extract(comment string) []string {
	if w == nil || comment == "" {
		return nil
	}
	var items []string
	seen := make(map[string]struct{})
	for _, m := range w.re.FindAllStringSubmatch(comment, -1) {
		value := m[0]
		if len(m) > 1 {
			value = m[1]
		}
		if value == "" {
			continue
		}
		if _, dup := seen[value]; dup {
			continue
		}
		seen[value] = struct{}{}
		items = append(items, value)
	}
	return items
}
