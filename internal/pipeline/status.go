package pipeline

import "strings"

// StepStatus represents the lifecycle of a single pipeline step.
type StepStatus string

const (
	StepPending    StepStatus = "pending"
	StepInProgress StepStatus = "in-progress"
	StepSuccess    StepStatus = "success"
	StepError      StepStatus = "error"
)

var stepStatuses = map[StepStatus]struct{}{
	StepPending:    {},
	StepInProgress: {},
	StepSuccess:    {},
	StepError:      {},
}

// ParseStepStatus converts a string into a known StepStatus.
func ParseStepStatus(value string) (StepStatus, bool) {
	normalized := StepStatus(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := stepStatuses[normalized]
	return normalized, ok
}

// RunStatus represents the lifecycle of a pipeline execution.
type RunStatus string

const (
	RunIdle      RunStatus = "idle"
	RunRunning   RunStatus = "running"
	RunPaused    RunStatus = "paused"
	RunCompleted RunStatus = "completed"
	RunError     RunStatus = "error"
)

var runStatuses = map[RunStatus]struct{}{
	RunIdle:      {},
	RunRunning:   {},
	RunPaused:    {},
	RunCompleted: {},
	RunError:     {},
}

// ParseRunStatus converts a string into a known RunStatus.
func ParseRunStatus(value string) (RunStatus, bool) {
	normalized := RunStatus(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := runStatuses[normalized]
	return normalized, ok
}

// CanStart reports whether a new execution may begin from the given status.
// No run status is terminal for the UI: idle, completed, and error can all
// start a fresh execution.
func CanStart(status RunStatus) bool {
	switch status {
	case RunIdle, RunCompleted, RunError:
		return true
	default:
		return false
	}
}

// CanPause reports whether the execution can be paused.
func CanPause(status RunStatus) bool {
	return status == RunRunning
}

// CanResume reports whether the execution can be resumed.
func CanResume(status RunStatus) bool {
	return status == RunPaused
}

// IsActive reports whether the status implies a live execution id.
func (s RunStatus) IsActive() bool {
	return s == RunRunning || s == RunPaused
}
