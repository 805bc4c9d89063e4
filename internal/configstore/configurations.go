package configstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"conveyor/internal/api"
	"conveyor/internal/pipeline"
)

// List returns all stored configurations ordered by creation time.
func (s *Store) List(ctx context.Context) ([]pipeline.Configuration, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, steps, version, created_at, updated_at
		 FROM configurations ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list configurations: %w", err)
	}
	defer rows.Close()

	var configs []pipeline.Configuration
	for rows.Next() {
		cfg, err := scanConfiguration(rows)
		if err != nil {
			return nil, err
		}
		configs = append(configs, cfg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list configurations: %w", err)
	}
	return configs, nil
}

// Get returns one configuration by id.
func (s *Store) Get(ctx context.Context, configID string) (*pipeline.Configuration, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, steps, version, created_at, updated_at
		 FROM configurations WHERE id = ?`, configID)
	cfg, err := scanConfiguration(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, configID)
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Create stores a draft and returns the configuration with server-assigned
// identity, version, and timestamps.
func (s *Store) Create(ctx context.Context, draft api.ConfigurationDraft) (*pipeline.Configuration, error) {
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	cfg := pipeline.Configuration{
		ID:        uuid.NewString(),
		Name:      draft.Name,
		Steps:     cloneSteps(draft.Steps),
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for i := range cfg.Steps {
		if cfg.Steps[i].Status == "" {
			cfg.Steps[i].Status = pipeline.StepPending
		}
		if cfg.Steps[i].Version == 0 {
			cfg.Steps[i].Version = 1
		}
	}

	steps, err := json.Marshal(cfg.Steps)
	if err != nil {
		return nil, fmt.Errorf("encode steps: %w", err)
	}
	_, err = s.execWithRetry(ctx,
		`INSERT INTO configurations (id, name, steps, version, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		cfg.ID, cfg.Name, string(steps), cfg.Version,
		now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("insert configuration: %w", err)
	}
	return &cfg, nil
}

// UpdateStepPayload merges a payload into one step of a stored
// configuration, bumping the configuration version and updated_at.
func (s *Store) UpdateStepPayload(ctx context.Context, configID, stepID string, payload pipeline.Payload) error {
	cfg, err := s.Get(ctx, configID)
	if err != nil {
		return err
	}
	i := cfg.StepIndex(stepID)
	if i < 0 {
		return fmt.Errorf("configuration %s has no step %s", configID, stepID)
	}
	cfg.Steps[i].Payload = cfg.Steps[i].Payload.Merge(payload)

	steps, err := json.Marshal(cfg.Steps)
	if err != nil {
		return fmt.Errorf("encode steps: %w", err)
	}
	now := time.Now().UTC()
	res, err := s.execWithRetry(ctx,
		`UPDATE configurations SET steps = ?, version = version + 1, updated_at = ?
		 WHERE id = ? AND version = ?`,
		string(steps), now.Format(time.RFC3339Nano), configID, cfg.Version)
	if err != nil {
		return fmt.Errorf("update configuration: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update configuration: %w", err)
	}
	if affected == 0 {
		// Another writer bumped the version between read and write.
		return fmt.Errorf("configuration %s changed concurrently", configID)
	}
	return nil
}

// Delete removes a configuration.
func (s *Store) Delete(ctx context.Context, configID string) error {
	res, err := s.execWithRetry(ctx, `DELETE FROM configurations WHERE id = ?`, configID)
	if err != nil {
		return fmt.Errorf("delete configuration: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete configuration: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, configID)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConfiguration(row rowScanner) (pipeline.Configuration, error) {
	var (
		cfg       pipeline.Configuration
		steps     string
		createdAt string
		updatedAt string
	)
	if err := row.Scan(&cfg.ID, &cfg.Name, &steps, &cfg.Version, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return pipeline.Configuration{}, err
		}
		return pipeline.Configuration{}, fmt.Errorf("scan configuration: %w", err)
	}
	if err := json.Unmarshal([]byte(steps), &cfg.Steps); err != nil {
		return pipeline.Configuration{}, fmt.Errorf("decode steps for %s: %w", cfg.ID, err)
	}
	cfg.CreatedAt = parseTime(createdAt)
	cfg.UpdatedAt = parseTime(updatedAt)
	return cfg, nil
}

func parseTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

func cloneSteps(steps []pipeline.Step) []pipeline.Step {
	out := make([]pipeline.Step, len(steps))
	for i, step := range steps {
		out[i] = step.Clone()
	}
	return out
}
