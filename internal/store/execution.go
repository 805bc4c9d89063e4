package store

import (
	"context"
	"fmt"

	"conveyor/internal/logging"
	"conveyor/internal/pipeline"
)

// StartPipeline starts a new execution of the current configuration. All
// step runtime fields reset, the execution id is adopted, and the update
// subscription opens. The store state is untouched when the backend call
// fails or when another start won the race while the call was in flight.
func (s *Store) StartPipeline(ctx context.Context) error {
	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		return ErrNoConfiguration
	}
	if !pipeline.CanStart(s.runStatus) {
		status := s.runStatus
		s.mu.Unlock()
		return fmt.Errorf("cannot start pipeline while %s", status)
	}
	configID := s.current.ID
	s.mu.Unlock()

	executionID, err := s.backend.StartExecution(ctx, configID)
	if err != nil {
		s.logger.Error("starting pipeline failed",
			logging.String(logging.FieldConfigID, configID), logging.Error(err))
		s.emit(Event{Kind: EventActionFailed, ConfigurationID: configID, Err: err})
		return fmt.Errorf("start pipeline: %w", err)
	}

	s.mu.Lock()
	if s.current == nil || s.current.ID != configID || s.runStatus.IsActive() {
		// The configuration changed or another execution started while the
		// request was in flight. The response no longer applies.
		s.mu.Unlock()
		s.logger.Warn("discarding stale start response",
			logging.String(logging.FieldExecutionID, executionID))
		return nil
	}
	for i := range s.steps {
		s.steps[i].ResetRuntime()
		s.steps[i].Version++
	}
	s.rebuildSummaries()
	s.executionID = executionID
	s.runStatus = pipeline.RunRunning
	s.currentStepIndex = 0
	s.lastUpdate = s.now()
	name := s.current.Name
	s.mu.Unlock()

	s.emit(Event{
		Kind:              EventPipelineStarted,
		ConfigurationID:   configID,
		ConfigurationName: name,
		ExecutionID:       executionID,
	})
	s.ConnectToUpdates()
	return nil
}

// PausePipeline pauses the live execution.
func (s *Store) PausePipeline(ctx context.Context) error {
	executionID, err := s.requireExecution(pipeline.CanPause, "pause")
	if err != nil {
		return err
	}
	if err := s.backend.PauseExecution(ctx, executionID); err != nil {
		return s.actionFailed("pause pipeline", executionID, err)
	}

	s.mu.Lock()
	if s.executionID != executionID {
		s.mu.Unlock()
		return nil
	}
	s.runStatus = pipeline.RunPaused
	s.lastUpdate = s.now()
	s.mu.Unlock()

	s.emit(Event{Kind: EventPipelinePaused, ExecutionID: executionID})
	return nil
}

// ResumePipeline resumes a paused execution.
func (s *Store) ResumePipeline(ctx context.Context) error {
	executionID, err := s.requireExecution(pipeline.CanResume, "resume")
	if err != nil {
		return err
	}
	if err := s.backend.ResumeExecution(ctx, executionID); err != nil {
		return s.actionFailed("resume pipeline", executionID, err)
	}

	s.mu.Lock()
	if s.executionID != executionID {
		s.mu.Unlock()
		return nil
	}
	s.runStatus = pipeline.RunRunning
	s.lastUpdate = s.now()
	s.mu.Unlock()

	s.emit(Event{Kind: EventPipelineResumed, ExecutionID: executionID})
	return nil
}

// StopPipeline stops the live execution, clears the execution identity, and
// tears down the update subscription. Step runtime data is kept for
// inspection until the next start.
func (s *Store) StopPipeline(ctx context.Context) error {
	s.mu.Lock()
	executionID := s.executionID
	s.mu.Unlock()
	if executionID == "" {
		return ErrNoExecution
	}

	if err := s.backend.StopExecution(ctx, executionID); err != nil {
		return s.actionFailed("stop pipeline", executionID, err)
	}

	s.mu.Lock()
	if s.executionID != executionID {
		s.mu.Unlock()
		return nil
	}
	s.executionID = ""
	s.runStatus = pipeline.RunIdle
	s.currentStepIndex = -1
	s.lastUpdate = s.now()
	s.mu.Unlock()

	s.DisconnectFromUpdates()
	s.emit(Event{Kind: EventPipelineStopped, ExecutionID: executionID})
	return nil
}

// RunStep asks the executor to run one step of the live execution. Step
// status is not mutated locally; changes arrive over the update stream.
func (s *Store) RunStep(ctx context.Context, stepID string) error {
	executionID, err := s.requireStepTarget(stepID)
	if err != nil {
		return err
	}
	if err := s.backend.RunStep(ctx, executionID, stepID); err != nil {
		return s.actionFailed("run step "+stepID, executionID, err)
	}
	return nil
}

// RunFromStep asks the executor to run from a step onward.
func (s *Store) RunFromStep(ctx context.Context, stepID string) error {
	executionID, err := s.requireStepTarget(stepID)
	if err != nil {
		return err
	}
	if err := s.backend.RunFromStep(ctx, executionID, stepID); err != nil {
		return s.actionFailed("run from step "+stepID, executionID, err)
	}
	return nil
}

func (s *Store) requireExecution(allowed func(pipeline.RunStatus) bool, action string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.executionID == "" {
		return "", ErrNoExecution
	}
	if !allowed(s.runStatus) {
		return "", fmt.Errorf("cannot %s pipeline while %s", action, s.runStatus)
	}
	return s.executionID, nil
}

func (s *Store) requireStepTarget(stepID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.executionID == "" {
		return "", ErrNoExecution
	}
	if s.stepIndex(stepID) < 0 {
		return "", fmt.Errorf("%w: %s", ErrStepNotFound, stepID)
	}
	return s.executionID, nil
}

func (s *Store) actionFailed(action, executionID string, err error) error {
	s.logger.Error(action+" failed",
		logging.String(logging.FieldExecutionID, executionID), logging.Error(err))
	s.emit(Event{Kind: EventActionFailed, ExecutionID: executionID, Err: err})
	return fmt.Errorf("%s: %w", action, err)
}
