package store

import (
	"time"

	"conveyor/internal/pipeline"
)

// Reset tears down the update subscription and returns the store to its
// initial state. Collections are rebuilt with fresh identities so references
// handed out earlier cannot alias the reset state.
func (s *Store) Reset() {
	s.DisconnectFromUpdates()

	s.mu.Lock()
	s.configurations = nil
	s.current = nil
	s.steps = nil
	s.summaries = nil
	s.executionID = ""
	s.runStatus = pipeline.RunIdle
	s.currentStepIndex = -1
	s.selectedStepID = ""
	s.expandedSteps = make(map[string]struct{})
	s.leftPanelCollapsed = false
	s.lastPayloadSource = ""
	s.lastUpdate = time.Time{}
	s.loading = false
	s.loadError = ""
	s.pending = make(map[string]OptimisticUpdate)
	s.mu.Unlock()

	s.emit(Event{Kind: EventReset})
}

// PersistedState is the subset of UI state worth carrying across sessions.
// ExpandedSteps keeps definition order for stable serialization.
type PersistedState struct {
	LeftPanelCollapsed bool     `json:"leftPanelCollapsed"`
	ExpandedSteps      []string `json:"expandedSteps"`
	SelectedStepID     string   `json:"selectedStepId,omitempty"`
}

// PersistedState extracts the persistable UI state.
func (s *Store) PersistedState() PersistedState {
	s.mu.Lock()
	defer s.mu.Unlock()

	expanded := make([]string, 0, len(s.expandedSteps))
	for _, step := range s.steps {
		if _, ok := s.expandedSteps[step.ID]; ok {
			expanded = append(expanded, step.ID)
		}
	}
	return PersistedState{
		LeftPanelCollapsed: s.leftPanelCollapsed,
		ExpandedSteps:      expanded,
		SelectedStepID:     s.selectedStepID,
	}
}

// Hydrate merges persisted UI state into the store. Runtime state, execution
// identity, and connection state are never hydrated, and the optimistic
// bookkeeping always starts empty regardless of what was persisted.
func (s *Store) Hydrate(state PersistedState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.leftPanelCollapsed = state.LeftPanelCollapsed
	s.expandedSteps = make(map[string]struct{}, len(state.ExpandedSteps))
	for _, stepID := range state.ExpandedSteps {
		s.expandedSteps[stepID] = struct{}{}
	}
	s.selectedStepID = state.SelectedStepID
	s.pending = make(map[string]OptimisticUpdate)
}
