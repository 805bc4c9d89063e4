package api

import "fmt"

// Route paths served by the daemon and consumed by the client.
const (
	RouteStatus         = "/api/status"
	RouteConfigurations = "/api/configurations"
	RouteExecute        = "/api/execute"
)

// ConfigurationPath returns the path for a single configuration.
func ConfigurationPath(configID string) string {
	return fmt.Sprintf("%s/%s", RouteConfigurations, configID)
}

// StepPayloadPath returns the path for updating a step payload.
func StepPayloadPath(configID, stepID string) string {
	return fmt.Sprintf("%s/%s/steps/%s/payload", RouteConfigurations, configID, stepID)
}

// ExecutionPath returns the base path for one execution.
func ExecutionPath(executionID string) string {
	return fmt.Sprintf("/api/executions/%s", executionID)
}

// ExecutionActionPath returns the path for pause, resume, or stop.
func ExecutionActionPath(executionID, action string) string {
	return fmt.Sprintf("%s/%s", ExecutionPath(executionID), action)
}

// StepRunPath returns the path for running a single step.
func StepRunPath(executionID, stepID string) string {
	return fmt.Sprintf("%s/steps/%s/run", ExecutionPath(executionID), stepID)
}

// StepRunFromPath returns the path for running from a step onward.
func StepRunFromPath(executionID, stepID string) string {
	return fmt.Sprintf("%s/steps/%s/run-from", ExecutionPath(executionID), stepID)
}

// StepUpdatePath returns the executor-facing ingest path for step updates.
func StepUpdatePath(executionID, stepID string) string {
	return fmt.Sprintf("%s/steps/%s/update", ExecutionPath(executionID), stepID)
}

// UpdatesPath returns the SSE stream path for an execution.
func UpdatesPath(executionID string) string {
	return fmt.Sprintf("%s/updates", ExecutionPath(executionID))
}
