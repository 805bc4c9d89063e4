package api

import (
	"fmt"
	"strings"

	"conveyor/internal/pipeline"
)

// ConfigurationDraft is a configuration submission without server-assigned
// identity, version, or timestamps.
type ConfigurationDraft struct {
	Name  string          `json:"name"`
	Steps []pipeline.Step `json:"steps"`
}

// Validate checks the draft for the fields the daemon requires.
func (d ConfigurationDraft) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return Errorf("configuration name is required")
	}
	if len(d.Steps) == 0 {
		return Errorf("configuration needs at least one step")
	}
	seen := make(map[string]struct{}, len(d.Steps))
	for _, step := range d.Steps {
		id := pipeline.NormalizeStepID(step.ID)
		if id == "" {
			return Errorf("step %q is missing an id", step.Name)
		}
		if _, dup := seen[id]; dup {
			return Errorf("duplicate step id %q", id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// ConfigurationListResponse wraps the full configuration listing.
type ConfigurationListResponse struct {
	Configurations []pipeline.Configuration `json:"configurations"`
}

// ConfigurationResponse wraps a single configuration.
type ConfigurationResponse struct {
	Configuration pipeline.Configuration `json:"configuration"`
}

// ExecuteRequest starts an execution of a stored configuration.
type ExecuteRequest struct {
	ConfigurationID string `json:"configurationId"`
}

// ExecuteResponse returns the server-assigned execution handle.
type ExecuteResponse struct {
	ExecutionID string `json:"executionId"`
}

// PayloadUpdateRequest replaces or merges a step's payload.
type PayloadUpdateRequest struct {
	Payload pipeline.Payload `json:"payload"`
}

// ExecutionState describes one execution as the daemon tracks it.
type ExecutionState struct {
	ID               string                 `json:"id"`
	ConfigurationID  string                 `json:"configurationId"`
	Status           pipeline.RunStatus     `json:"status"`
	CurrentStepIndex int                    `json:"currentStepIndex"`
	Steps            []pipeline.StepSummary `json:"steps"`
}

// StatusResponse reports daemon health.
type StatusResponse struct {
	Running          bool   `json:"running"`
	PID              int    `json:"pid"`
	DBPath           string `json:"db_path"`
	Configurations   int    `json:"configurations"`
	ActiveExecutions int    `json:"active_executions"`
}

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Error is a wire-level validation or request error.
type Error struct {
	Message string
}

func (e *Error) Error() string { return e.Message }

// Errorf builds a wire-level error.
func Errorf(format string, args ...any) error {
	return &Error{Message: fmt.Sprintf(format, args...)}
}
