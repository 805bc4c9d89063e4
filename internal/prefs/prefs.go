// Package prefs persists UI preferences between sessions as a small JSON
// file. Writes go through a temp file and rename so a crash mid-write never
// leaves a torn file behind.
package prefs

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"conveyor/internal/logging"
	"conveyor/internal/store"
)

// Store reads and writes the preference file at a fixed path.
type Store struct {
	path   string
	logger *slog.Logger
}

// NewStore builds a preference store for the given file path.
func NewStore(path string, logger *slog.Logger) *Store {
	return &Store{
		path:   path,
		logger: logging.NewComponentLogger(logger, "prefs"),
	}
}

// Path returns the backing file location.
func (s *Store) Path() string {
	return s.path
}

// Load reads the persisted state. A missing file yields the zero state with
// no error; a corrupt file is treated the same way, after a warning, so a
// damaged preference file never blocks startup.
func (s *Store) Load() (store.PersistedState, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return store.PersistedState{}, nil
	}
	if err != nil {
		return store.PersistedState{}, fmt.Errorf("read preferences: %w", err)
	}

	var state store.PersistedState
	if err := json.Unmarshal(data, &state); err != nil {
		s.logger.Warn("discarding corrupt preference file",
			logging.String("path", s.path), logging.Error(err))
		return store.PersistedState{}, nil
	}
	return state, nil
}

// Save writes the persisted state atomically.
func (s *Store) Save(state store.PersistedState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create preference directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".prefs-*.json")
	if err != nil {
		return fmt.Errorf("create temp preference file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write preferences: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp preference file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace preference file: %w", err)
	}
	return nil
}
