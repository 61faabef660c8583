package storage

import (
	"context"

	"bragg-dose-lab/internal/domain"
)

// ParameterSource provides read access to flat parameter tables.
type ParameterSource interface {
	// Rows returns the rows of a parameter set in table order.
	// Returns ErrNotFound if the set does not exist.
	Rows(ctx context.Context, set string) ([]domain.ParameterRow, error)
}

// HitSource provides read access to raw detector hits.
type HitSource interface {
	// Hits returns all hits of a dataset in stored order.
	// Returns ErrNotFound if the dataset does not exist.
	Hits(ctx context.Context, dataset string) ([]*domain.Hit, error)
}
