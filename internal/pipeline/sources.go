package pipeline

import (
	"context"
	"time"

	"bragg-dose-lab/internal/domain"
	"bragg-dose-lab/internal/observability"
	"bragg-dose-lab/internal/storage"
)

// instrumentedParams records load latency and failures of a parameter source.
type instrumentedParams struct {
	src     storage.ParameterSource
	label   string
	metrics *observability.Metrics
}

var _ storage.ParameterSource = (*instrumentedParams)(nil)

func (s *instrumentedParams) Rows(ctx context.Context, set string) ([]domain.ParameterRow, error) {
	start := time.Now()
	rows, err := s.src.Rows(ctx, set)
	s.metrics.RecordSourceLoad(s.label, time.Since(start).Seconds(), err)
	return rows, err
}

// instrumentedHits records load latency, failures and hit counts of a hit source.
type instrumentedHits struct {
	src     storage.HitSource
	label   string
	metrics *observability.Metrics
}

var _ storage.HitSource = (*instrumentedHits)(nil)

func (s *instrumentedHits) Hits(ctx context.Context, dataset string) ([]*domain.Hit, error) {
	start := time.Now()
	hits, err := s.src.Hits(ctx, dataset)
	s.metrics.RecordSourceLoad(s.label, time.Since(start).Seconds(), err)
	if err == nil {
		s.metrics.HitsLoaded.Add(float64(len(hits)))
	}
	return hits, err
}
