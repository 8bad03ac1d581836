package store

import (
	"encoding/json/v2"
	"fmt"
	"time"

	"github.com/emots/narrate-server/internal/narration"
)

// Key prefixes. Each record family lives under its own prefix so families
// can be listed independently.
const (
	runPrefix   = "run:"
	stalePrefix = "stale:"
)

// Run status values.
const (
	RunSucceeded = "succeeded"
	RunSkipped   = "skipped"
	RunFailed    = "failed"
)

// GenerationRun records one attempt to synthesize a post's narration.
type GenerationRun struct {
	ID         string    `json:"id"`
	Slug       string    `json:"slug"`
	Hash       string    `json:"hash"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
}

// PutRun persists a generation run record.
func (s *Store) PutRun(run *GenerationRun) error {
	if run.ID == "" {
		return narration.ErrInvalidInput.WithMessage("run ID is required")
	}
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}
	return s.Set(runPrefix+run.ID, data)
}

// GetRun retrieves a generation run by ID.
func (s *Store) GetRun(id string) (*GenerationRun, error) {
	raw, err := s.Get(runPrefix + id)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, narration.ErrNotFound.WithMessage("run not found")
	}
	var run GenerationRun
	if err := json.Unmarshal(raw, &run); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run: %w", err)
	}
	return &run, nil
}

// ListRuns returns all recorded runs, optionally filtered by slug.
func (s *Store) ListRuns(slug string) ([]*GenerationRun, error) {
	ids, err := s.ListKeys(runPrefix)
	if err != nil {
		return nil, err
	}

	runs := make([]*GenerationRun, 0, len(ids))
	for _, id := range ids {
		run, err := s.GetRun(id)
		if err != nil {
			return nil, err
		}
		if slug != "" && run.Slug != slug {
			continue
		}
		runs = append(runs, run)
	}
	return runs, nil
}

// MarkStale flags a slug whose source changed after its last generation.
func (s *Store) MarkStale(slug string, changedAt time.Time) error {
	data, err := json.Marshal(changedAt)
	if err != nil {
		return fmt.Errorf("failed to marshal timestamp: %w", err)
	}
	return s.Set(stalePrefix+slug, data)
}

// ClearStale removes a slug's stale flag after regeneration.
func (s *Store) ClearStale(slug string) error {
	return s.Delete(stalePrefix + slug)
}

// StaleSlugs returns the slugs currently flagged as stale.
func (s *Store) StaleSlugs() ([]string, error) {
	return s.ListKeys(stalePrefix)
}
