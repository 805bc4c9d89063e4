package store

import (
	"context"
	"fmt"

	"conveyor/internal/api"
	"conveyor/internal/logging"
	"conveyor/internal/pipeline"
)

// LoadConfigurations fetches the configuration list from the backend and
// replaces the cached list. On failure the previous list is kept and the
// error is recorded in LoadError.
func (s *Store) LoadConfigurations(ctx context.Context) error {
	s.mu.Lock()
	s.loading = true
	s.loadError = ""
	s.mu.Unlock()

	configs, err := s.backend.ListConfigurations(ctx)

	s.mu.Lock()
	s.loading = false
	if err != nil {
		s.loadError = err.Error()
		s.mu.Unlock()
		s.logger.Error("loading configurations failed", logging.Error(err))
		s.emit(Event{Kind: EventActionFailed, Err: err})
		return fmt.Errorf("load configurations: %w", err)
	}
	s.configurations = configs
	s.lastUpdate = s.now()
	s.mu.Unlock()

	s.emit(Event{Kind: EventConfigurationsLoaded})
	return nil
}

// LoadConfiguration fetches one configuration and makes it current, deriving
// the runtime step list and condensed summaries from its definition. The
// previous current configuration survives a failed load.
func (s *Store) LoadConfiguration(ctx context.Context, configID string) error {
	s.mu.Lock()
	s.loading = true
	s.loadError = ""
	s.mu.Unlock()

	cfg, err := s.backend.GetConfiguration(ctx, configID)

	s.mu.Lock()
	s.loading = false
	if err != nil {
		s.loadError = err.Error()
		s.mu.Unlock()
		s.logger.Error("loading configuration failed",
			logging.String(logging.FieldConfigID, configID), logging.Error(err))
		s.emit(Event{Kind: EventActionFailed, ConfigurationID: configID, Err: err})
		return fmt.Errorf("load configuration %s: %w", configID, err)
	}
	s.adoptConfiguration(*cfg)
	s.lastUpdate = s.now()
	name := cfg.Name
	s.mu.Unlock()

	s.emit(Event{Kind: EventConfigurationLoaded, ConfigurationID: configID, ConfigurationName: name})
	return nil
}

// SaveConfiguration submits a draft, appends the stored result to the cached
// list, and makes it current. A failed save leaves the store untouched.
func (s *Store) SaveConfiguration(ctx context.Context, draft api.ConfigurationDraft) (*pipeline.Configuration, error) {
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	created, err := s.backend.CreateConfiguration(ctx, draft)
	if err != nil {
		s.mu.Lock()
		s.loadError = err.Error()
		s.mu.Unlock()
		s.logger.Error("saving configuration failed", logging.Error(err))
		s.emit(Event{Kind: EventActionFailed, ConfigurationName: draft.Name, Err: err})
		return nil, fmt.Errorf("save configuration: %w", err)
	}

	s.mu.Lock()
	s.loadError = ""
	s.configurations = append(s.configurations, created.Clone())
	s.adoptConfiguration(*created)
	s.lastUpdate = s.now()
	s.mu.Unlock()

	s.emit(Event{Kind: EventConfigurationSaved, ConfigurationID: created.ID, ConfigurationName: created.Name})
	result := created.Clone()
	return &result, nil
}

// ConfigurationPatch is a partial in-memory edit of the current
// configuration. Nil fields stay untouched.
type ConfigurationPatch struct {
	Name  *string
	Steps []pipeline.Step
}

// UpdateCurrentConfiguration shallow-merges a patch into the current
// configuration without contacting the backend. Replacing the step list also
// rebuilds the runtime views.
func (s *Store) UpdateCurrentConfiguration(patch ConfigurationPatch) error {
	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		return ErrNoConfiguration
	}
	if patch.Name != nil {
		s.current.Name = *patch.Name
	}
	if patch.Steps != nil {
		s.current.Steps = cloneSteps(patch.Steps)
		s.steps = adoptSteps(patch.Steps)
		s.rebuildSummaries()
	}
	s.lastUpdate = s.now()
	s.mu.Unlock()
	return nil
}
