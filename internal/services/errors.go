package services

import "errors"

// Pipeline errors returned synchronously to callers of the dispatcher.
// Per-item failures are never surfaced as errors; they are ledger data.
var (
	// ErrTaskInactive is returned when a run is requested for a disabled task
	ErrTaskInactive = errors.New("import task is inactive")

	// ErrRunConflict is returned when a run is already in flight for the task
	ErrRunConflict = errors.New("a run is already in flight for this task")

	// ErrMissingSourceCategory is returned when a products task cannot
	// resolve a remote category to pull from
	ErrMissingSourceCategory = errors.New("products import requires a source category selector")
)
