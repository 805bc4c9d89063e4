// Package bridge turns store events into user-facing notifications. It is
// the only coupling between the state store and the notification service;
// neither side knows about the other.
package bridge

import (
	"fmt"
	"log/slog"

	"conveyor/internal/config"
	"conveyor/internal/logging"
	"conveyor/internal/notify"
	"conveyor/internal/store"
)

// Bridge watches one store and forwards notable events as notifications.
type Bridge struct {
	store    *store.Store
	notifier *notify.Service
	logger   *slog.Logger

	pipelineEnabled bool
	stepsEnabled    bool
	errorsEnabled   bool

	cancel func()
}

// New wires a bridge between a store and a notification service. Event
// classes follow the notification toggles in config; a nil config enables
// everything.
func New(st *store.Store, notifier *notify.Service, cfg *config.Config, logger *slog.Logger) *Bridge {
	b := &Bridge{
		store:           st,
		notifier:        notifier,
		logger:          logging.NewComponentLogger(logger, "bridge"),
		pipelineEnabled: true,
		stepsEnabled:    true,
		errorsEnabled:   true,
	}
	if cfg != nil {
		b.pipelineEnabled = cfg.Notifications.Pipeline
		b.stepsEnabled = cfg.Notifications.Steps
		b.errorsEnabled = cfg.Notifications.Errors
	}
	return b
}

// Start begins forwarding store events. Calling Start twice replaces the
// previous subscription.
func (b *Bridge) Start() {
	b.Stop()
	b.cancel = b.store.Watch(b.handle)
}

// Stop detaches the bridge from the store.
func (b *Bridge) Stop() {
	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
	}
}

func (b *Bridge) handle(event store.Event) {
	switch event.Kind {
	case store.EventPipelineStarted:
		if b.pipelineEnabled {
			b.notifier.PipelineStarted(b.configName(event))
		}
	case store.EventPipelineCompleted:
		if b.pipelineEnabled {
			b.notifier.PipelineCompleted(b.configName(event))
		}
	case store.EventPipelineFailed:
		if b.errorsEnabled {
			err := event.Err
			if err == nil && event.StepName != "" {
				err = fmt.Errorf("step %s failed", event.StepName)
			}
			b.notifier.PipelineError(b.configName(event), err)
		}
	case store.EventPipelineStopped:
		if b.pipelineEnabled {
			b.notifier.Info(notify.Options{
				Category: notify.CategoryPipeline,
				Title:    "Pipeline Stopped",
				Message:  "Execution stopped",
			})
		}
	case store.EventStepCompleted:
		if b.stepsEnabled {
			b.notifier.StepCompleted(event.StepName)
		}
	case store.EventStepFailed:
		if b.errorsEnabled {
			b.notifier.Warning(notify.Options{
				Category: notify.CategoryStep,
				Title:    "Step Failed",
				Message:  fmt.Sprintf("%s reported an error", event.StepName),
			})
		}
	case store.EventConnectionChanged:
		// Deliberate disconnects carry no error; only failures warrant a
		// warning.
		if !event.Connected && event.Err != nil && b.errorsEnabled {
			b.notifier.Warning(notify.Options{
				Category: notify.CategoryError,
				Title:    "Connection Lost",
				Message:  "Live updates disconnected",
			})
		}
	case store.EventActionFailed:
		if b.errorsEnabled && event.Err != nil {
			b.notifier.Error(notify.Options{
				Title:   "Action Failed",
				Message: event.Err.Error(),
			})
		}
	}
}

// configName resolves a display name for pipeline notices, preferring the
// event payload over a store lookup.
func (b *Bridge) configName(event store.Event) string {
	if event.ConfigurationName != "" {
		return event.ConfigurationName
	}
	if current := b.store.Snapshot().Current; current != nil {
		return current.Name
	}
	return "pipeline"
}
