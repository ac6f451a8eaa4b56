// Package memory provides in-memory adapter implementations, used as the
// default run store and in tests.
package memory

import (
	"context"
	"sync"

	"github.com/loopforge/conveyor/pkg/domain"
	"github.com/loopforge/conveyor/pkg/ports"
)

// Store implements ports.RunStore with a mutex-guarded map. Summaries are
// deep-copied on the way in and out so callers never share state.
type Store struct {
	mu   sync.RWMutex
	runs map[string]domain.RunSummary
}

// NewStore creates an empty in-memory run store.
func NewStore() *Store {
	return &Store{runs: make(map[string]domain.RunSummary)}
}

var _ ports.RunStore = (*Store)(nil)

// Save persists the summary under its run ID.
func (s *Store) Save(ctx context.Context, summary *domain.RunSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[summary.ID] = copySummary(*summary)
	return nil
}

// Load retrieves a summary by run ID.
func (s *Store) Load(ctx context.Context, runID string) (*domain.RunSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary, ok := s.runs[runID]
	if !ok {
		return nil, domain.ErrRunNotFound
	}
	cp := copySummary(summary)
	return &cp, nil
}

// List returns the known run IDs.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.runs))
	for id := range s.runs {
		ids = append(ids, id)
	}
	return ids, nil
}

// Delete removes the summary for a run ID.
func (s *Store) Delete(ctx context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.runs, runID)
	return nil
}

func copySummary(in domain.RunSummary) domain.RunSummary {
	out := in
	out.Stages = make([]domain.StageResult, len(in.Stages))
	for i, st := range in.Stages {
		cp := st
		cp.Contexts = append([]domain.ContextResult(nil), st.Contexts...)
		cp.Outputs = st.Outputs.Clone()
		out.Stages[i] = cp
	}
	return out
}
