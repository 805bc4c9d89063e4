package pipeline

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.English)

// DisplayName renders a step identifier or name for human-facing output,
// turning "code-extraction" into "Code Extraction".
func DisplayName(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	replacer := strings.NewReplacer("-", " ", "_", " ", ".", " ")
	spaced := replacer.Replace(trimmed)
	spaced = strings.Join(strings.Fields(spaced), " ")
	return titleCaser.String(spaced)
}

// DefaultStepIDs lists the canonical conversion pipeline stages in order.
var DefaultStepIDs = []string{
	"extraction",
	"detection",
	"analysis",
	"chunking",
	"generation",
	"validation",
}

// NewDefaultConfiguration builds an unsaved configuration carrying the
// canonical conversion steps with empty payloads.
func NewDefaultConfiguration(name string) Configuration {
	steps := make([]Step, 0, len(DefaultStepIDs))
	for _, id := range DefaultStepIDs {
		steps = append(steps, Step{
			ID:      id,
			Name:    DisplayName(id),
			Status:  StepPending,
			Payload: Payload{},
		})
	}
	return Configuration{Name: name, Steps: steps}
}
