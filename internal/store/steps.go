package store

import (
	"context"
	"fmt"

	"conveyor/internal/logging"
	"conveyor/internal/pipeline"
)

// HandleStepUpdate merges one server-push update into the runtime step list
// and the condensed summaries, then derives the execution-level transitions:
// an in-progress step moves the current index, success on the final step
// completes the run, and a step error fails the run unless the step payload
// opted into continue-on-error. Unknown step ids only stamp lastUpdate.
func (s *Store) HandleStepUpdate(update pipeline.StepUpdate) {
	s.mu.Lock()
	s.lastUpdate = s.now()

	i := s.stepIndex(update.StepID)
	if i < 0 {
		s.mu.Unlock()
		s.logger.Warn("dropping update for unknown step",
			logging.String(logging.FieldStepID, update.StepID))
		return
	}

	step := &s.steps[i]
	changed := step.ApplyUpdate(update)
	if !changed {
		s.mu.Unlock()
		return
	}
	s.syncSummary(i)

	events := []Event{{
		Kind:        EventStepUpdated,
		ExecutionID: s.executionID,
		StepID:      step.ID,
		StepName:    step.Name,
	}}

	switch step.Status {
	case pipeline.StepInProgress:
		s.currentStepIndex = i
	case pipeline.StepSuccess:
		events = append(events, Event{
			Kind:        EventStepCompleted,
			ExecutionID: s.executionID,
			StepID:      step.ID,
			StepName:    step.Name,
		})
		if i == len(s.steps)-1 && s.runStatus.IsActive() {
			// Completion keeps the execution id so late log lines and the
			// final state stay inspectable.
			s.runStatus = pipeline.RunCompleted
			s.currentStepIndex = len(s.steps)
			events = append(events, Event{Kind: EventPipelineCompleted, ExecutionID: s.executionID})
		}
	case pipeline.StepError:
		events = append(events, Event{
			Kind:        EventStepFailed,
			ExecutionID: s.executionID,
			StepID:      step.ID,
			StepName:    step.Name,
		})
		if !step.Payload.ContinueOnError() && s.runStatus.IsActive() {
			s.runStatus = pipeline.RunError
			events = append(events, Event{
				Kind:        EventPipelineFailed,
				ExecutionID: s.executionID,
				StepID:      step.ID,
				StepName:    step.Name,
			})
		}
	}

	s.mu.Unlock()
	s.emit(events...)
}

// UpdateStepData merges a local patch into one step. A patch that states a
// BaseVersion older than the step's current version is rejected with
// ErrStaleWrite and leaves the step untouched.
func (s *Store) UpdateStepData(stepID string, patch pipeline.StepPatch) error {
	s.mu.Lock()
	i := s.stepIndex(stepID)
	if i < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrStepNotFound, stepID)
	}
	step := &s.steps[i]
	if patch.BaseVersion != 0 && patch.BaseVersion < step.Version {
		s.mu.Unlock()
		return fmt.Errorf("%w: step %s is at version %d, patch based on %d",
			ErrStaleWrite, stepID, step.Version, patch.BaseVersion)
	}
	changed := step.ApplyPatch(patch)
	if changed {
		s.syncSummary(i)
		s.lastUpdate = s.now()
	}
	name := step.Name
	s.mu.Unlock()

	if changed {
		s.emit(Event{Kind: EventStepUpdated, StepID: stepID, StepName: name})
	}
	return nil
}

// UpdateStepPayload optimistically merges a payload edit into one step,
// persists it on the backend, and reverts to the previous confirmed payload
// when persistence fails. A replacement edit for a step that already has an
// unconfirmed edit keeps the original confirmed payload as the revert target.
func (s *Store) UpdateStepPayload(ctx context.Context, stepID string, payload pipeline.Payload, source PayloadSource) error {
	s.mu.Lock()
	i := s.stepIndex(stepID)
	if i < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrStepNotFound, stepID)
	}
	merged := s.steps[i].Payload.Merge(payload)
	s.applyOptimisticLocked(stepID, merged)
	s.lastPayloadSource = source
	s.lastUpdate = s.now()

	var configID string
	if s.current != nil {
		configID = s.current.ID
	}
	s.mu.Unlock()

	if configID == "" {
		// Unsaved configuration: the edit is local-only and confirmed as-is.
		s.CommitOptimisticUpdate(stepID)
		return nil
	}

	if err := s.backend.UpdateStepPayload(ctx, configID, stepID, merged); err != nil {
		s.RevertOptimisticUpdate(stepID)
		s.logger.Error("persisting step payload failed",
			logging.String(logging.FieldConfigID, configID),
			logging.String(logging.FieldStepID, stepID), logging.Error(err))
		s.emit(Event{Kind: EventActionFailed, ConfigurationID: configID, StepID: stepID, Err: err})
		return fmt.Errorf("update payload for step %s: %w", stepID, err)
	}

	s.CommitOptimisticUpdate(stepID)

	s.mu.Lock()
	if s.current != nil && s.current.ID == configID {
		if j := s.current.StepIndex(stepID); j >= 0 {
			s.current.Steps[j].Payload = merged.Clone()
		}
	}
	s.mu.Unlock()
	return nil
}

// UpdateAllStepPayloads merges per-step payload edits from the settings
// surface in one pass, without contacting the backend.
func (s *Store) UpdateAllStepPayloads(updates map[string]pipeline.Payload) {
	s.mu.Lock()
	changed := false
	for stepID, payload := range updates {
		i := s.stepIndex(stepID)
		if i < 0 {
			continue
		}
		s.steps[i].Payload = s.steps[i].Payload.Merge(payload)
		s.steps[i].Version++
		changed = true
	}
	if changed {
		s.lastPayloadSource = PayloadSourceSettings
		s.lastUpdate = s.now()
	}
	s.mu.Unlock()
}

// ToggleStepExpansion flips the expanded flag of one step panel.
func (s *Store) ToggleStepExpansion(stepID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.expandedSteps[stepID]; ok {
		delete(s.expandedSteps, stepID)
	} else {
		s.expandedSteps[stepID] = struct{}{}
	}
}

// StepExpanded reports whether a step panel is expanded.
func (s *Store) StepExpanded(stepID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.expandedSteps[stepID]
	return ok
}

// SetLeftPanelCollapsed sets the navigation panel state.
func (s *Store) SetLeftPanelCollapsed(collapsed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leftPanelCollapsed = collapsed
}

// SelectStep marks a step as selected. An empty id clears the selection; an
// unknown id is ignored.
func (s *Store) SelectStep(stepID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if stepID != "" && s.stepIndex(stepID) < 0 {
		return
	}
	s.selectedStepID = stepID
}
