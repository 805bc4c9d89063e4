package notify

import (
	"fmt"
	"time"
)

// Domain convenience methods: fixed-template wrappers with preset durations.

// PipelineStarted announces a new execution.
func (s *Service) PipelineStarted(configName string) string {
	return s.Info(Options{
		Category: CategoryPipeline,
		Title:    "Pipeline Started",
		Message:  fmt.Sprintf("Started conversion pipeline: %s", configName),
	})
}

// PipelineCompleted announces a finished execution.
func (s *Service) PipelineCompleted(configName string) string {
	return s.Success(Options{
		Category: CategoryPipeline,
		Title:    "Pipeline Complete",
		Message:  fmt.Sprintf("Conversion pipeline complete: %s", configName),
		Duration: 8 * time.Second,
	})
}

// PipelineError announces a failed execution.
func (s *Service) PipelineError(configName string, err error) string {
	detail := "unknown error"
	if err != nil {
		detail = err.Error()
	}
	return s.Error(Options{
		Category: CategoryPipeline,
		Title:    "Pipeline Failed",
		Message:  fmt.Sprintf("Pipeline %s failed: %s", configName, detail),
	})
}

// StepCompleted announces a finished step.
func (s *Service) StepCompleted(stepName string) string {
	return s.Success(Options{
		Category: CategoryStep,
		Title:    "Step Complete",
		Message:  fmt.Sprintf("%s finished", stepName),
		Duration: 3 * time.Second,
	})
}
