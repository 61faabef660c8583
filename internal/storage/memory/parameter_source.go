package memory

import (
	"context"
	"sync"

	"bragg-dose-lab/internal/domain"
	"bragg-dose-lab/internal/storage"
)

// ParameterSource is an in-memory implementation of storage.ParameterSource.
type ParameterSource struct {
	mu   sync.RWMutex
	sets map[string][]domain.ParameterRow // keyed by set name
}

// NewParameterSource creates an empty in-memory parameter source.
func NewParameterSource() *ParameterSource {
	return &ParameterSource{sets: make(map[string][]domain.ParameterRow)}
}

// Compile-time interface check.
var _ storage.ParameterSource = (*ParameterSource)(nil)

// Put registers the rows of a set, replacing any previous rows.
func (s *ParameterSource) Put(set string, rows []domain.ParameterRow) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sets[set] = append([]domain.ParameterRow(nil), rows...)
}

// Rows returns a copy of the rows of a set. Returns ErrNotFound if absent.
func (s *ParameterSource) Rows(_ context.Context, set string) ([]domain.ParameterRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, ok := s.sets[set]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return append([]domain.ParameterRow(nil), rows...), nil
}
