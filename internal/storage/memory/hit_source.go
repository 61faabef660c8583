package memory

import (
	"context"
	"sync"

	"bragg-dose-lab/internal/domain"
	"bragg-dose-lab/internal/storage"
)

// HitSource is an in-memory implementation of storage.HitSource.
type HitSource struct {
	mu       sync.RWMutex
	datasets map[string][]*domain.Hit // keyed by dataset name
}

// NewHitSource creates an empty in-memory hit source.
func NewHitSource() *HitSource {
	return &HitSource{datasets: make(map[string][]*domain.Hit)}
}

// Compile-time interface check.
var _ storage.HitSource = (*HitSource)(nil)

// Put registers the hits of a dataset, replacing any previous hits.
func (s *HitSource) Put(dataset string, hits []*domain.Hit) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]*domain.Hit, len(hits))
	for i, h := range hits {
		hitCopy := *h
		stored[i] = &hitCopy
	}
	s.datasets[dataset] = stored
}

// Hits returns copies of the hits of a dataset. Returns ErrNotFound if absent.
func (s *HitSource) Hits(_ context.Context, dataset string) ([]*domain.Hit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	hits, ok := s.datasets[dataset]
	if !ok {
		return nil, storage.ErrNotFound
	}

	out := make([]*domain.Hit, len(hits))
	for i, h := range hits {
		hitCopy := *h
		out[i] = &hitCopy
	}
	return out, nil
}
