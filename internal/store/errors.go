package store

import "errors"

var (
	// ErrNoConfiguration reports an action that needs a current configuration.
	ErrNoConfiguration = errors.New("no current configuration")
	// ErrNoExecution reports an action that needs a live execution.
	ErrNoExecution = errors.New("no active execution")
	// ErrStepNotFound reports a step id absent from the runtime list.
	ErrStepNotFound = errors.New("step not found")
	// ErrStaleWrite reports a patch derived from an outdated step version.
	ErrStaleWrite = errors.New("stale write rejected")
)
