package store

import "conveyor/internal/pipeline"

// ApplyOptimisticUpdate shows a proposed payload for a step before the
// backend confirmed it, recording the confirmed payload as the revert
// target. A second proposal for the same step replaces the shown value but
// keeps the original confirmed payload, so a revert always lands on
// confirmed state.
func (s *Store) ApplyOptimisticUpdate(stepID string, proposed pipeline.Payload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stepIndex(stepID) < 0 {
		return ErrStepNotFound
	}
	s.applyOptimisticLocked(stepID, proposed)
	s.lastUpdate = s.now()
	return nil
}

func (s *Store) applyOptimisticLocked(stepID string, proposed pipeline.Payload) {
	i := s.stepIndex(stepID)
	previous := s.steps[i].Payload.Clone()
	if existing, ok := s.pending[stepID]; ok {
		previous = existing.Previous
	}
	s.pending[stepID] = OptimisticUpdate{
		StepID:   stepID,
		Previous: previous,
		Proposed: proposed.Clone(),
	}
	s.steps[i].Payload = proposed.Clone()
	s.steps[i].Version++
}

// RevertOptimisticUpdate restores the confirmed payload for a step and drops
// the pending record. Unknown ids are a no-op.
func (s *Store) RevertOptimisticUpdate(stepID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	update, ok := s.pending[stepID]
	if !ok {
		return
	}
	delete(s.pending, stepID)
	if i := s.stepIndex(stepID); i >= 0 {
		s.steps[i].Payload = update.Previous.Clone()
		s.steps[i].Version++
	}
	s.lastUpdate = s.now()
}

// CommitOptimisticUpdate confirms a pending payload edit, keeping the shown
// value and dropping the revert record. Unknown ids are a no-op.
func (s *Store) CommitOptimisticUpdate(stepID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, stepID)
}

// PendingOptimisticUpdate returns the unconfirmed edit for a step, if any.
func (s *Store) PendingOptimisticUpdate(stepID string) (OptimisticUpdate, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	update, ok := s.pending[stepID]
	if !ok {
		return OptimisticUpdate{}, false
	}
	return OptimisticUpdate{
		StepID:   update.StepID,
		Previous: update.Previous.Clone(),
		Proposed: update.Proposed.Clone(),
	}, true
}
