package migrations

import (
	"context"
	"fmt"

	"bragg-dose-lab/internal/storage/postgres"
)

// RunPostgresMigrations creates the parameter tables. Every file is
// idempotent, so running it against an existing schema is a no-op.
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool) error {
	files, err := load(PostgresFS, "postgres")
	if err != nil {
		return err
	}
	for _, m := range files {
		if _, err := pool.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("apply migration %s: %w", m.name, err)
		}
	}
	return nil
}
