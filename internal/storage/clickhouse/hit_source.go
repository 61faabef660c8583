package clickhouse

import (
	"context"
	"fmt"

	"bragg-dose-lab/internal/domain"
	"bragg-dose-lab/internal/storage"
)

// HitSource implements storage.HitSource over the event_hits table.
type HitSource struct {
	conn *Conn
}

// NewHitSource creates a new HitSource.
func NewHitSource(conn *Conn) *HitSource {
	return &HitSource{conn: conn}
}

// Compile-time interface check.
var _ storage.HitSource = (*HitSource)(nil)

// chRows is the subset of driver.Rows used by scanHits.
type chRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

// Hits returns the hits of a dataset ordered by row_index.
// Returns ErrNotFound if the dataset has no rows.
func (s *HitSource) Hits(ctx context.Context, dataset string) ([]*domain.Hit, error) {
	query := `
		SELECT station, event, fibre, energy_deposit, x, y, z, depth, time
		FROM event_hits
		WHERE dataset = ?
		ORDER BY row_index ASC
	`

	rows, err := s.conn.Query(ctx, query, dataset)
	if err != nil {
		return nil, fmt.Errorf("query hits: %w", err)
	}
	defer rows.Close()

	hits, err := scanHits(rows)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return nil, fmt.Errorf("dataset %q: %w", dataset, storage.ErrNotFound)
	}
	return hits, nil
}

// Datasets lists the dataset names with their hit counts.
func (s *HitSource) Datasets(ctx context.Context) (map[string]uint64, error) {
	rows, err := s.conn.Query(ctx, `SELECT dataset, count() FROM event_hits GROUP BY dataset`)
	if err != nil {
		return nil, fmt.Errorf("query datasets: %w", err)
	}
	defer rows.Close()

	out := make(map[string]uint64)
	for rows.Next() {
		var name string
		var n uint64
		if err := rows.Scan(&name, &n); err != nil {
			return nil, fmt.Errorf("scan dataset: %w", err)
		}
		out[name] = n
	}
	return out, rows.Err()
}

func scanHits(rows chRows) ([]*domain.Hit, error) {
	var hits []*domain.Hit
	for rows.Next() {
		var h domain.Hit
		var station, event, fibre int32
		if err := rows.Scan(&station, &event, &fibre,
			&h.EnergyDeposit, &h.X, &h.Y, &h.Z, &h.Depth, &h.Time); err != nil {
			return nil, fmt.Errorf("scan hit: %w", err)
		}
		h.Station, h.Event, h.Fibre = int(station), int(event), int(fibre)
		hits = append(hits, &h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate hits: %w", err)
	}
	return hits, nil
}
