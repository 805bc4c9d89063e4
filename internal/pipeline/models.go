package pipeline

import (
	"strings"
	"time"
)

// Payload is the step-type-specific configuration a step consumes when it
// runs. The store treats it as opaque apart from the continue-on-error flag.
type Payload map[string]any

// Clone returns a shallow copy of the payload map. Nested values are shared;
// callers replace, not mutate, nested structures.
func (p Payload) Clone() Payload {
	if p == nil {
		return nil
	}
	out := make(Payload, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Merge returns a copy of p with the entries of overlay applied on top.
func (p Payload) Merge(overlay Payload) Payload {
	if len(overlay) == 0 {
		return p.Clone()
	}
	out := p.Clone()
	if out == nil {
		out = make(Payload, len(overlay))
	}
	for k, v := range overlay {
		out[k] = v
	}
	return out
}

// ContinueOnError reports whether the payload opts the step out of failing
// the whole execution when the step errors.
func (p Payload) ContinueOnError() bool {
	value, ok := p["continueOnError"]
	if !ok {
		return false
	}
	flag, ok := value.(bool)
	return ok && flag
}

// ChatConfig carries the optional per-step assistant settings.
type ChatConfig struct {
	Enabled   bool           `json:"enabled"`
	Assistant map[string]any `json:"assistant,omitempty"`
}

// Step is the full runtime record for one pipeline stage.
type Step struct {
	ID             string      `json:"id"`
	Name           string      `json:"name"`
	Status         StepStatus  `json:"status"`
	Progress       float64     `json:"progress"`
	FilesProcessed int         `json:"filesProcessed,omitempty"`
	TotalFiles     int         `json:"totalFiles,omitempty"`
	Warnings       int         `json:"warnings"`
	Errors         int         `json:"errors"`
	ElapsedTime    string      `json:"elapsedTime,omitempty"`
	ETA            string      `json:"eta,omitempty"`
	Logs           []string    `json:"logs,omitempty"`
	Payload        Payload     `json:"payload,omitempty"`
	Substeps       []Step      `json:"substeps,omitempty"`
	Chat           *ChatConfig `json:"chatConfig,omitempty"`

	// Version increases on every applied mutation and guards against
	// lost-update races between local edits and push updates. Stores that
	// adopt a step as a live runtime record start it at 1; 0 marks a bare
	// definition that has not been adopted yet.
	Version uint64 `json:"version"`
}

// Clone returns a deep copy of the step.
func (s Step) Clone() Step {
	out := s
	out.Logs = append([]string(nil), s.Logs...)
	out.Payload = s.Payload.Clone()
	if s.Chat != nil {
		chat := *s.Chat
		if s.Chat.Assistant != nil {
			chat.Assistant = make(map[string]any, len(s.Chat.Assistant))
			for k, v := range s.Chat.Assistant {
				chat.Assistant[k] = v
			}
		}
		out.Chat = &chat
	}
	if len(s.Substeps) > 0 {
		out.Substeps = make([]Step, len(s.Substeps))
		for i, sub := range s.Substeps {
			out.Substeps[i] = sub.Clone()
		}
	}
	return out
}

// ResetRuntime clears run-scoped fields back to their initial values while
// preserving identity, payload, and chat settings. Substeps reset too.
func (s *Step) ResetRuntime() {
	s.Status = StepPending
	s.Progress = 0
	s.FilesProcessed = 0
	s.TotalFiles = 0
	s.Warnings = 0
	s.Errors = 0
	s.ElapsedTime = ""
	s.ETA = ""
	s.Logs = nil
	for i := range s.Substeps {
		s.Substeps[i].ResetRuntime()
	}
}

// StepSummary is the condensed status-only view used for compact navigation.
type StepSummary struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Status   StepStatus `json:"status"`
	Progress float64    `json:"progress"`
	Warnings int        `json:"warnings"`
	Errors   int        `json:"errors"`
}

// Summarize derives the condensed view of a step.
func (s Step) Summarize() StepSummary {
	return StepSummary{
		ID:       s.ID,
		Name:     s.Name,
		Status:   s.Status,
		Progress: s.Progress,
		Warnings: s.Warnings,
		Errors:   s.Errors,
	}
}

// Configuration is a named, versioned definition of an ordered pipeline.
type Configuration struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Steps     []Step    `json:"steps"`
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Clone returns a deep copy of the configuration.
func (c Configuration) Clone() Configuration {
	out := c
	out.Steps = make([]Step, len(c.Steps))
	for i, step := range c.Steps {
		out.Steps[i] = step.Clone()
	}
	return out
}

// StepIndex returns the position of the step with the given id, or -1.
func (c Configuration) StepIndex(stepID string) int {
	for i, step := range c.Steps {
		if step.ID == stepID {
			return i
		}
	}
	return -1
}

// StepUpdate is one server-originated push message describing a step's new
// state. Warnings, errors, and logs are merged only when present.
type StepUpdate struct {
	Sequence uint64            `json:"seq,omitempty"`
	StepID   string            `json:"stepId"`
	Status   StepStatus        `json:"status"`
	Progress float64           `json:"progress"`
	Logs     []string          `json:"logs,omitempty"`
	Warnings *int              `json:"warnings,omitempty"`
	Errors   *int              `json:"errors,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// ApplyUpdate merges a push update into the step and reports whether any
// field changed. Progress never regresses while the step stays in-progress,
// and success forces progress to 100. Re-applying the same update is a no-op.
func (s *Step) ApplyUpdate(update StepUpdate) bool {
	changed := false

	status := update.Status
	if _, ok := stepStatuses[status]; !ok {
		status = s.Status
	}
	progress := update.Progress
	if status == StepSuccess {
		progress = 100
	}
	if status == s.Status && s.Status == StepInProgress && progress < s.Progress {
		progress = s.Progress
	}
	if progress < 0 {
		progress = 0
	} else if progress > 100 {
		progress = 100
	}

	if s.Status != status {
		s.Status = status
		changed = true
	}
	if s.Progress != progress {
		s.Progress = progress
		changed = true
	}
	if update.Warnings != nil && s.Warnings != *update.Warnings {
		s.Warnings = *update.Warnings
		changed = true
	}
	if update.Errors != nil && s.Errors != *update.Errors {
		s.Errors = *update.Errors
		changed = true
	}
	if update.Logs != nil && !equalStrings(s.Logs, update.Logs) {
		s.Logs = append([]string(nil), update.Logs...)
		changed = true
	}
	if elapsed, ok := update.Metadata["elapsedTime"]; ok && s.ElapsedTime != elapsed {
		s.ElapsedTime = elapsed
		changed = true
	}
	if eta, ok := update.Metadata["eta"]; ok && s.ETA != eta {
		s.ETA = eta
		changed = true
	}

	if changed {
		s.Version++
	}
	return changed
}

// StepPatch is a partial local mutation of a step's runtime fields. Nil
// fields are left untouched. BaseVersion, when non-zero, is the step version
// the caller derived the patch from; stale patches are rejected. Live
// runtime steps are versioned from 1, so 0 always means "unversioned".
type StepPatch struct {
	Status         *StepStatus
	Progress       *float64
	FilesProcessed *int
	TotalFiles     *int
	Warnings       *int
	Errors         *int
	ElapsedTime    *string
	ETA            *string
	Logs           []string
	BaseVersion    uint64
}

// ApplyPatch merges a local patch into the step and reports whether any
// field changed.
func (s *Step) ApplyPatch(patch StepPatch) bool {
	changed := false
	if patch.Status != nil && s.Status != *patch.Status {
		s.Status = *patch.Status
		changed = true
	}
	if patch.Progress != nil && s.Progress != *patch.Progress {
		s.Progress = *patch.Progress
		changed = true
	}
	if patch.FilesProcessed != nil && s.FilesProcessed != *patch.FilesProcessed {
		s.FilesProcessed = *patch.FilesProcessed
		changed = true
	}
	if patch.TotalFiles != nil && s.TotalFiles != *patch.TotalFiles {
		s.TotalFiles = *patch.TotalFiles
		changed = true
	}
	if patch.Warnings != nil && s.Warnings != *patch.Warnings {
		s.Warnings = *patch.Warnings
		changed = true
	}
	if patch.Errors != nil && s.Errors != *patch.Errors {
		s.Errors = *patch.Errors
		changed = true
	}
	if patch.ElapsedTime != nil && s.ElapsedTime != *patch.ElapsedTime {
		s.ElapsedTime = *patch.ElapsedTime
		changed = true
	}
	if patch.ETA != nil && s.ETA != *patch.ETA {
		s.ETA = *patch.ETA
		changed = true
	}
	if patch.Logs != nil && !equalStrings(s.Logs, patch.Logs) {
		s.Logs = append([]string(nil), patch.Logs...)
		changed = true
	}
	if changed {
		s.Version++
	}
	return changed
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// NormalizeStepID lowercases and trims a step identifier.
func NormalizeStepID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
