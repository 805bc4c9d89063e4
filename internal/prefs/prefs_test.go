package prefs

import (
	"os"
	"path/filepath"
	"testing"

	"conveyor/internal/logging"
	"conveyor/internal/store"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "prefs.json")
	s := NewStore(path, logging.NewNop())

	state := store.PersistedState{
		LeftPanelCollapsed: true,
		ExpandedSteps:      []string{"extraction", "analysis"},
		SelectedStepID:     "analysis",
	}
	if err := s.Save(state); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := s.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !loaded.LeftPanelCollapsed || loaded.SelectedStepID != "analysis" {
		t.Fatalf("round trip lost fields: %+v", loaded)
	}
	if len(loaded.ExpandedSteps) != 2 || loaded.ExpandedSteps[0] != "extraction" {
		t.Fatalf("expanded steps lost order: %v", loaded.ExpandedSteps)
	}
}

func TestLoadMissingFileYieldsZeroState(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "absent.json"), logging.NewNop())
	state, err := s.Load()
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if state.LeftPanelCollapsed || len(state.ExpandedSteps) != 0 || state.SelectedStepID != "" {
		t.Fatalf("expected zero state, got %+v", state)
	}
}

func TestLoadCorruptFileYieldsZeroState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("seed corrupt file: %v", err)
	}
	s := NewStore(path, logging.NewNop())

	state, err := s.Load()
	if err != nil {
		t.Fatalf("corrupt file should not error: %v", err)
	}
	if state.SelectedStepID != "" || len(state.ExpandedSteps) != 0 {
		t.Fatalf("expected zero state, got %+v", state)
	}
}

func TestSaveOverwritesPrevious(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.json")
	s := NewStore(path, logging.NewNop())

	if err := s.Save(store.PersistedState{SelectedStepID: "one"}); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if err := s.Save(store.PersistedState{SelectedStepID: "two"}); err != nil {
		t.Fatalf("second save: %v", err)
	}

	loaded, err := s.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.SelectedStepID != "two" {
		t.Fatalf("expected latest state, got %+v", loaded)
	}
}
