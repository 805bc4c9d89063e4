package pipeline

import "testing"

func TestDisplayName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"extraction", "Extraction"},
		{"code-extraction", "Code Extraction"},
		{"schema_detection", "Schema Detection"},
		{"  chunking  ", "Chunking"},
		{"", ""},
	}
	for _, tc := range tests {
		if got := DisplayName(tc.in); got != tc.want {
			t.Fatalf("DisplayName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNewDefaultConfiguration(t *testing.T) {
	cfg := NewDefaultConfiguration("legacy migration")
	if cfg.Name != "legacy migration" {
		t.Fatalf("unexpected name %q", cfg.Name)
	}
	if len(cfg.Steps) != len(DefaultStepIDs) {
		t.Fatalf("expected %d steps, got %d", len(DefaultStepIDs), len(cfg.Steps))
	}
	for i, step := range cfg.Steps {
		if step.ID != DefaultStepIDs[i] {
			t.Fatalf("step %d: expected id %q, got %q", i, DefaultStepIDs[i], step.ID)
		}
		if step.Status != StepPending {
			t.Fatalf("step %q must start pending", step.ID)
		}
		if step.Payload == nil {
			t.Fatalf("step %q must carry an empty payload", step.ID)
		}
	}
}
