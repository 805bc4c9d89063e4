package store

// EventKind identifies what changed in the store.
type EventKind string

const (
	EventConfigurationsLoaded EventKind = "configurations-loaded"
	EventConfigurationLoaded  EventKind = "configuration-loaded"
	EventConfigurationSaved   EventKind = "configuration-saved"
	EventPipelineStarted      EventKind = "pipeline-started"
	EventPipelinePaused       EventKind = "pipeline-paused"
	EventPipelineResumed      EventKind = "pipeline-resumed"
	EventPipelineStopped      EventKind = "pipeline-stopped"
	EventPipelineCompleted    EventKind = "pipeline-completed"
	EventPipelineFailed       EventKind = "pipeline-failed"
	EventStepUpdated          EventKind = "step-updated"
	EventStepCompleted        EventKind = "step-completed"
	EventStepFailed           EventKind = "step-failed"
	EventConnectionChanged    EventKind = "connection-changed"
	EventActionFailed         EventKind = "action-failed"
	EventReset                EventKind = "reset"
)

// Event is one change notification delivered to watchers. Fields beyond Kind
// are populated when they apply to the change.
type Event struct {
	Kind              EventKind
	ConfigurationID   string
	ConfigurationName string
	ExecutionID       string
	StepID            string
	StepName          string
	Connected         bool
	Err               error
}

// Watch registers fn for every subsequent store event and returns a cancel
// function. Events are delivered after the originating mutation released the
// store lock, so watchers may call back into the store.
func (s *Store) Watch(fn func(Event)) func() {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	id := s.nextWatcher
	s.nextWatcher++
	s.watchers[id] = fn
	return func() {
		s.watchMu.Lock()
		delete(s.watchers, id)
		s.watchMu.Unlock()
	}
}

func (s *Store) emit(events ...Event) {
	if len(events) == 0 {
		return
	}
	s.watchMu.Lock()
	fns := make([]func(Event), 0, len(s.watchers))
	for _, fn := range s.watchers {
		fns = append(fns, fn)
	}
	s.watchMu.Unlock()

	for _, event := range events {
		for _, fn := range fns {
			fn(event)
		}
	}
}
