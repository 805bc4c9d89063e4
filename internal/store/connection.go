package store

import (
	"context"

	"conveyor/internal/logging"
	"conveyor/internal/pipeline"
)

// ConnectToUpdates opens the update subscription for the live execution in a
// background goroutine. Without an execution, or with a subscription already
// open, it is a no-op. Updates for an execution that is no longer current
// are discarded before they touch any state.
func (s *Store) ConnectToUpdates() {
	s.mu.Lock()
	if s.executionID == "" || s.connCancel != nil {
		s.mu.Unlock()
		return
	}
	executionID := s.executionID
	ctx, cancel := context.WithCancel(context.Background())
	s.connCancel = cancel
	s.connGen++
	gen := s.connGen
	s.connected = true
	s.mu.Unlock()

	s.emit(Event{Kind: EventConnectionChanged, ExecutionID: executionID, Connected: true})
	s.logger.Info("update subscription opened",
		logging.String(logging.FieldExecutionID, executionID))

	go func() {
		err := s.backend.SubscribeUpdates(ctx, executionID, func(update pipeline.StepUpdate) {
			s.mu.Lock()
			stale := s.executionID != executionID
			s.mu.Unlock()
			if stale {
				return
			}
			s.HandleStepUpdate(update)
		})

		s.mu.Lock()
		if s.connGen != gen {
			// A newer subscription already replaced this one.
			s.mu.Unlock()
			return
		}
		s.connCancel = nil
		wasConnected := s.connected
		s.connected = false
		s.mu.Unlock()

		if err != nil {
			s.logger.Error("update subscription failed",
				logging.String(logging.FieldExecutionID, executionID), logging.Error(err))
		} else {
			s.logger.Info("update subscription closed",
				logging.String(logging.FieldExecutionID, executionID))
		}
		if wasConnected {
			s.emit(Event{Kind: EventConnectionChanged, ExecutionID: executionID, Err: err})
		}
	}()
}

// DisconnectFromUpdates cancels the update subscription if one is open.
func (s *Store) DisconnectFromUpdates() {
	s.mu.Lock()
	cancel := s.connCancel
	s.connCancel = nil
	wasConnected := s.connected
	s.connected = false
	executionID := s.executionID
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if wasConnected {
		s.emit(Event{Kind: EventConnectionChanged, ExecutionID: executionID})
	}
}
