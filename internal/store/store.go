package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"conveyor/internal/api"
	"conveyor/internal/logging"
	"conveyor/internal/pipeline"
)

// Backend is the remote surface the store drives. *client.Client satisfies
// it; tests substitute a stub.
type Backend interface {
	ListConfigurations(ctx context.Context) ([]pipeline.Configuration, error)
	GetConfiguration(ctx context.Context, configID string) (*pipeline.Configuration, error)
	CreateConfiguration(ctx context.Context, draft api.ConfigurationDraft) (*pipeline.Configuration, error)
	StartExecution(ctx context.Context, configID string) (string, error)
	PauseExecution(ctx context.Context, executionID string) error
	ResumeExecution(ctx context.Context, executionID string) error
	StopExecution(ctx context.Context, executionID string) error
	RunStep(ctx context.Context, executionID, stepID string) error
	RunFromStep(ctx context.Context, executionID, stepID string) error
	UpdateStepPayload(ctx context.Context, configID, stepID string, payload pipeline.Payload) error
	SubscribeUpdates(ctx context.Context, executionID string, handler func(pipeline.StepUpdate)) error
}

// PayloadSource records which editing surface last changed a step payload.
type PayloadSource string

const (
	PayloadSourceSettings   PayloadSource = "settings"
	PayloadSourceIndividual PayloadSource = "individual"
)

// OptimisticUpdate is the snapshot kept for one unconfirmed payload edit.
// Previous is the last confirmed payload; Proposed is the value shown while
// the save is in flight.
type OptimisticUpdate struct {
	StepID   string
	Previous pipeline.Payload
	Proposed pipeline.Payload
}

// Store holds all pipeline console state behind one mutex.
type Store struct {
	backend Backend
	logger  *slog.Logger
	now     func() time.Time

	mu             sync.Mutex
	configurations []pipeline.Configuration
	current        *pipeline.Configuration
	steps          []pipeline.Step
	summaries      []pipeline.StepSummary

	executionID      string
	runStatus        pipeline.RunStatus
	currentStepIndex int

	selectedStepID     string
	expandedSteps      map[string]struct{}
	leftPanelCollapsed bool
	lastPayloadSource  PayloadSource

	connected  bool
	connCancel context.CancelFunc
	connGen    uint64

	lastUpdate time.Time
	loading    bool
	loadError  string

	pending map[string]OptimisticUpdate

	watchMu     sync.Mutex
	watchers    map[int]func(Event)
	nextWatcher int
}

// New builds an empty store bound to a backend.
func New(backend Backend, logger *slog.Logger) *Store {
	return &Store{
		backend:          backend,
		logger:           logging.NewComponentLogger(logger, "store"),
		now:              time.Now,
		runStatus:        pipeline.RunIdle,
		currentStepIndex: -1,
		expandedSteps:    make(map[string]struct{}),
		pending:          make(map[string]OptimisticUpdate),
		watchers:         make(map[int]func(Event)),
	}
}

// Snapshot is an immutable copy of the full store state.
type Snapshot struct {
	Configurations     []pipeline.Configuration
	Current            *pipeline.Configuration
	Steps              []pipeline.Step
	StepSummaries      []pipeline.StepSummary
	ExecutionID        string
	PipelineStatus     pipeline.RunStatus
	CurrentStepIndex   int
	SelectedStepID     string
	ExpandedSteps      map[string]struct{}
	LeftPanelCollapsed bool
	LastPayloadSource  PayloadSource
	Connected          bool
	LastUpdate         time.Time
	Loading            bool
	LoadError          string
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ExecutionID:        s.executionID,
		PipelineStatus:     s.runStatus,
		CurrentStepIndex:   s.currentStepIndex,
		SelectedStepID:     s.selectedStepID,
		LeftPanelCollapsed: s.leftPanelCollapsed,
		LastPayloadSource:  s.lastPayloadSource,
		Connected:          s.connected,
		LastUpdate:         s.lastUpdate,
		Loading:            s.loading,
		LoadError:          s.loadError,
	}
	snap.Configurations = make([]pipeline.Configuration, len(s.configurations))
	for i, cfg := range s.configurations {
		snap.Configurations[i] = cfg.Clone()
	}
	if s.current != nil {
		current := s.current.Clone()
		snap.Current = &current
	}
	snap.Steps = cloneSteps(s.steps)
	snap.StepSummaries = append([]pipeline.StepSummary(nil), s.summaries...)
	snap.ExpandedSteps = make(map[string]struct{}, len(s.expandedSteps))
	for id := range s.expandedSteps {
		snap.ExpandedSteps[id] = struct{}{}
	}
	return snap
}

// Step returns a copy of one runtime step.
func (s *Store) Step(stepID string) (pipeline.Step, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.stepIndex(stepID); i >= 0 {
		return s.steps[i].Clone(), true
	}
	return pipeline.Step{}, false
}

// PipelineStatus returns the current run status.
func (s *Store) PipelineStatus() pipeline.RunStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runStatus
}

// ExecutionID returns the live execution handle, empty when none.
func (s *Store) ExecutionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.executionID
}

// Connected reports whether the update subscription is open.
func (s *Store) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// LastUpdate returns the timestamp of the last data mutation.
func (s *Store) LastUpdate() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUpdate
}

// LoadError returns the message of the last failed load, empty when none.
func (s *Store) LoadError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadError
}

func (s *Store) stepIndex(stepID string) int {
	for i := range s.steps {
		if s.steps[i].ID == stepID {
			return i
		}
	}
	return -1
}

// adoptConfiguration installs cfg as the current configuration and rebuilds
// the runtime step list and condensed summaries from its definition.
// Callers hold s.mu.
func (s *Store) adoptConfiguration(cfg pipeline.Configuration) {
	current := cfg.Clone()
	s.current = &current
	s.steps = adoptSteps(cfg.Steps)
	s.rebuildSummaries()
}

func (s *Store) rebuildSummaries() {
	s.summaries = make([]pipeline.StepSummary, len(s.steps))
	for i, step := range s.steps {
		s.summaries[i] = step.Summarize()
	}
}

func (s *Store) syncSummary(i int) {
	if i >= 0 && i < len(s.summaries) {
		s.summaries[i] = s.steps[i].Summarize()
	}
}

func cloneSteps(steps []pipeline.Step) []pipeline.Step {
	out := make([]pipeline.Step, len(steps))
	for i, step := range steps {
		out[i] = step.Clone()
	}
	return out
}

// adoptSteps clones definition steps into live runtime records. Live records
// carry version 1 upward so an unversioned patch (BaseVersion 0) stays
// distinguishable from a patch based on a read of a fresh step.
func adoptSteps(steps []pipeline.Step) []pipeline.Step {
	out := cloneSteps(steps)
	for i := range out {
		if out[i].Version == 0 {
			out[i].Version = 1
		}
	}
	return out
}
