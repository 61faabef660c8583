package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"bragg-dose-lab/internal/domain"
	"bragg-dose-lab/internal/storage"
)

// ParameterSource implements storage.ParameterSource over the
// model_parameters table.
type ParameterSource struct {
	pool *Pool
}

// NewParameterSource creates a new ParameterSource.
func NewParameterSource(pool *Pool) *ParameterSource {
	return &ParameterSource{pool: pool}
}

// Compile-time interface check.
var _ storage.ParameterSource = (*ParameterSource)(nil)

// Rows returns the rows of a set ordered by position.
// Returns ErrNotFound if the set has no rows.
func (s *ParameterSource) Rows(ctx context.Context, set string) ([]domain.ParameterRow, error) {
	query := `
		SELECT label, value, COALESCE(unit, '')
		FROM model_parameters
		WHERE set_name = $1
		ORDER BY position ASC
	`

	rows, err := s.pool.Query(ctx, query, set)
	if err != nil {
		return nil, fmt.Errorf("query parameter set: %w", err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.ParameterRow, error) {
		var r domain.ParameterRow
		err := row.Scan(&r.Label, &r.Value, &r.Unit)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan parameter row: %w", err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("parameter set %q: %w", set, storage.ErrNotFound)
	}
	return out, nil
}

// Sets lists the parameter set names.
func (s *ParameterSource) Sets(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT set_name FROM model_parameters ORDER BY set_name`)
	if err != nil {
		return nil, fmt.Errorf("query parameter sets: %w", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan parameter set name: %w", err)
	}
	return names, nil
}
