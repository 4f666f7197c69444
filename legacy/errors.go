package legacy

import "errors"

// Stage faults. None of them escapes DOCParser: each turns the stage that
// raised it into a failed Attempt and the pipeline moves on.
var (
	// ErrToolNotFound means the external executable is not installed.
	ErrToolNotFound = errors.New("legacy: tool not found")

	// ErrToolFailed is returned when a tool could not be started or exited
	// with a nonzero status.
	ErrToolFailed = errors.New("legacy: tool execution failed")

	// ErrToolTimeout is returned when a tool exceeded its time budget and
	// was killed.
	ErrToolTimeout = errors.New("legacy: tool timed out")

	// ErrNoOutput means a stage ran cleanly but produced nothing usable.
	ErrNoOutput = errors.New("legacy: stage produced no output")

	// ErrDecode means the input could not be read as the format a stage
	// expected.
	ErrDecode = errors.New("legacy: decode failed")

	// ErrStagePanicked is recorded when a stage or collaborator panicked.
	ErrStagePanicked = errors.New("legacy: stage panicked")

	// ErrExhausted is the terminal outcome when every strategy failed.
	ErrExhausted = errors.New("legacy: all extraction strategies exhausted")
)
