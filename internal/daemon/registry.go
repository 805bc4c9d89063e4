package daemon

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"conveyor/internal/pipeline"
)

// Execution is the daemon-side record of one pipeline run. Step state is
// tracked so late-joining clients can resynchronize, and so the daemon can
// derive run-level status from ingested step updates.
type Execution struct {
	ID               string
	ConfigurationID  string
	Status           pipeline.RunStatus
	CurrentStepIndex int
	Steps            []pipeline.Step
	StartedAt        time.Time

	hub *UpdateHub
}

// Registry tracks live and finished executions in memory.
type Registry struct {
	mu         sync.Mutex
	executions map[string]*Execution
	hubSize    int
	now        func() time.Time
	newID      func() string
}

// NewRegistry builds an empty execution registry.
func NewRegistry(hubSize int) *Registry {
	return &Registry{
		executions: make(map[string]*Execution),
		hubSize:    hubSize,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// Start registers a new execution of a configuration, with every step reset
// to pending.
func (r *Registry) Start(cfg pipeline.Configuration) *Execution {
	steps := make([]pipeline.Step, len(cfg.Steps))
	for i, step := range cfg.Steps {
		steps[i] = step.Clone()
		steps[i].ResetRuntime()
	}

	exec := &Execution{
		ID:               r.newID(),
		ConfigurationID:  cfg.ID,
		Status:           pipeline.RunRunning,
		CurrentStepIndex: 0,
		Steps:            steps,
		StartedAt:        r.now().UTC(),
		hub:              NewUpdateHub(r.hubSize),
	}

	r.mu.Lock()
	r.executions[exec.ID] = exec
	r.mu.Unlock()
	return exec
}

// Get returns a snapshot of one execution.
func (r *Registry) Get(executionID string) (Execution, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	exec, ok := r.executions[executionID]
	if !ok {
		return Execution{}, false
	}
	return exec.snapshot(), true
}

// Hub returns the update hub for an execution.
func (r *Registry) Hub(executionID string) (*UpdateHub, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	exec, ok := r.executions[executionID]
	if !ok {
		return nil, false
	}
	return exec.hub, true
}

// ActiveCount reports how many executions are running or paused.
func (r *Registry) ActiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, exec := range r.executions {
		if exec.Status.IsActive() {
			count++
		}
	}
	return count
}

// Pause transitions a running execution to paused.
func (r *Registry) Pause(executionID string) error {
	return r.transition(executionID, pipeline.CanPause, pipeline.RunPaused, "pause")
}

// Resume transitions a paused execution back to running.
func (r *Registry) Resume(executionID string) error {
	return r.transition(executionID, pipeline.CanResume, pipeline.RunRunning, "resume")
}

// Stop ends an execution. Stopping a finished execution is a no-op. The
// update hub closes so stream subscribers drain and exit.
func (r *Registry) Stop(executionID string) error {
	r.mu.Lock()
	exec, ok := r.executions[executionID]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("execution %s not found", executionID)
	}
	if exec.Status.IsActive() {
		exec.Status = pipeline.RunIdle
		exec.CurrentStepIndex = -1
	}
	hub := exec.hub
	r.mu.Unlock()

	hub.Close()
	return nil
}

func (r *Registry) transition(executionID string, allowed func(pipeline.RunStatus) bool, to pipeline.RunStatus, action string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	exec, ok := r.executions[executionID]
	if !ok {
		return fmt.Errorf("execution %s not found", executionID)
	}
	if !allowed(exec.Status) {
		return fmt.Errorf("cannot %s execution while %s", action, exec.Status)
	}
	exec.Status = to
	return nil
}

// RunStep resets one step back to pending so the executor re-runs it, and
// publishes the reset to stream subscribers.
func (r *Registry) RunStep(executionID, stepID string) error {
	return r.resetSteps(executionID, stepID, false)
}

// RunFrom resets a step and every step after it back to pending.
func (r *Registry) RunFrom(executionID, stepID string) error {
	return r.resetSteps(executionID, stepID, true)
}

func (r *Registry) resetSteps(executionID, stepID string, onward bool) error {
	r.mu.Lock()
	exec, ok := r.executions[executionID]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("execution %s not found", executionID)
	}
	if exec.Status == pipeline.RunIdle {
		// Stopped executions stay inspectable but cannot restart steps.
		r.mu.Unlock()
		return fmt.Errorf("execution %s is stopped", executionID)
	}
	i := stepIndex(exec.Steps, stepID)
	if i < 0 {
		r.mu.Unlock()
		return fmt.Errorf("execution %s has no step %s", executionID, stepID)
	}

	end := i + 1
	if onward {
		end = len(exec.Steps)
	}
	resets := make([]pipeline.StepUpdate, 0, end-i)
	for j := i; j < end; j++ {
		exec.Steps[j].ResetRuntime()
		resets = append(resets, pipeline.StepUpdate{
			StepID: exec.Steps[j].ID,
			Status: pipeline.StepPending,
		})
	}
	exec.Status = pipeline.RunRunning
	exec.CurrentStepIndex = i
	hub := exec.hub
	r.mu.Unlock()

	for _, reset := range resets {
		hub.Publish(reset)
	}
	return nil
}

// Ingest merges an executor-reported step update into the execution record,
// derives run-level transitions, and publishes the stamped update to stream
// subscribers. Updates for unknown steps or finished executions are dropped.
func (r *Registry) Ingest(executionID string, update pipeline.StepUpdate) error {
	r.mu.Lock()
	exec, ok := r.executions[executionID]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("execution %s not found", executionID)
	}
	if !exec.Status.IsActive() {
		r.mu.Unlock()
		return fmt.Errorf("execution %s is %s", executionID, exec.Status)
	}

	i := stepIndex(exec.Steps, update.StepID)
	if i < 0 {
		r.mu.Unlock()
		return fmt.Errorf("execution %s has no step %s", executionID, update.StepID)
	}

	step := &exec.Steps[i]
	step.ApplyUpdate(update)
	switch step.Status {
	case pipeline.StepInProgress:
		exec.CurrentStepIndex = i
	case pipeline.StepSuccess:
		if i == len(exec.Steps)-1 {
			exec.Status = pipeline.RunCompleted
			exec.CurrentStepIndex = len(exec.Steps)
		}
	case pipeline.StepError:
		if !step.Payload.ContinueOnError() {
			exec.Status = pipeline.RunError
		}
	}
	hub := exec.hub
	r.mu.Unlock()

	hub.Publish(update)
	return nil
}

func (e *Execution) snapshot() Execution {
	out := Execution{
		ID:               e.ID,
		ConfigurationID:  e.ConfigurationID,
		Status:           e.Status,
		CurrentStepIndex: e.CurrentStepIndex,
		StartedAt:        e.StartedAt,
		Steps:            make([]pipeline.Step, len(e.Steps)),
	}
	for i, step := range e.Steps {
		out.Steps[i] = step.Clone()
	}
	return out
}

func stepIndex(steps []pipeline.Step, stepID string) int {
	for i := range steps {
		if steps[i].ID == stepID {
			return i
		}
	}
	return -1
}
