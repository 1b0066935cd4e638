package contract

import (
	"fmt"

	"go.uber.org/zap"
)

// Assert checks an invariant that only a parser or tracker bug can break.
// Builds tagged "debug" panic on a violation. Other builds log a warning and
// return false so the caller can skip the offending input and carry on.
func Assert(cond bool, format string, args ...any) bool {
	if cond {
		return true
	}
	msg := fmt.Sprintf(format, args...)
	if strictAssertions {
		panic("assertion failed: " + msg)
	}
	Logger().Warn("assertion failed", zap.String("detail", msg))
	return false
}

// StrictAssertions reports whether a failed Assert panics in this build.
func StrictAssertions() bool {
	return strictAssertions
}
