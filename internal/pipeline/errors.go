package pipeline

import "errors"

var (
	// ErrAlreadyRunning is returned by Start when a run is already active.
	ErrAlreadyRunning = errors.New("pipeline: already running")
	// ErrInvalidState is returned by Reset while a run is in a non-terminal
	// stage.
	ErrInvalidState = errors.New("pipeline: invalid state for operation")
	// ErrNotReady is returned by Results before a report exists.
	ErrNotReady = errors.New("pipeline: results not ready")
	// ErrCancelled marks a run torn down by an explicit cancel request.
	ErrCancelled = errors.New("pipeline: cancelled")
	// ErrCollectionExhausted marks a run that ended collection with zero jobs.
	ErrCollectionExhausted = errors.New("pipeline: collection exhausted with no jobs")
	// ErrInsufficientInput marks an item (or the résumé) whose shape makes
	// scoring pointless. It is never retried.
	ErrInsufficientInput = errors.New("pipeline: insufficient input")
)
