package outwriter

import (
	"os"

	"github.com/huangsam/insight/internal/contract"
	"golang.org/x/term"
)

// Path column bounds for table output.
const (
	minPathWidth = 15
	maxPathWidth = 70
)

// terminalWidth returns the override from cfg or the width of stdout, or 80.
func terminalWidth(cfg *contract.Config) int {
	if cfg.Width > 0 {
		return cfg.Width
	}
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	return 80 // Conservative default for narrow terminals and CI
}

// GetMaxTablePathWidth calculates the maximum width for paths in the summary
// table based on terminal width and which optional columns are shown.
func GetMaxTablePathWidth(cfg *contract.Config) int {
	used := 25 // Rank + Score + Label with borders/padding
	if cfg.Detail {
		used += 50 // Commits + Committers + Items + LOC + Lang + Age
	}
	if cfg.Explain {
		used += 35
	}
	used += 20 // borders and separators

	return min(max(terminalWidth(cfg)-used, minPathWidth), maxPathWidth)
}

// getMaxHistoryPathWidth is the path budget of the history table, which has
// no score columns but shows both the path and the moved-from path.
func getMaxHistoryPathWidth(cfg *contract.Config) int {
	used := 60 // Changeset + Date + Committer + Kind with borders
	return min(max((terminalWidth(cfg)-used)/2, minPathWidth), maxPathWidth)
}
