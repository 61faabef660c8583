package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"bragg-dose-lab/internal/domain"
	"bragg-dose-lab/internal/storage"
	"bragg-dose-lab/internal/storage/migrations"
	"bragg-dose-lab/internal/storage/postgres"
)

// setupTestDB starts a PostgreSQL container and applies the parameter schema.
func setupTestDB(t *testing.T) (*postgres.Pool, func()) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:15-alpine",
		tcpostgres.WithDatabase("testdb"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "failed to get connection string")

	pool, err := postgres.NewPool(ctx, dsn)
	require.NoError(t, err, "failed to create pool")

	require.NoError(t, migrations.RunPostgresMigrations(ctx, pool))

	cleanup := func() {
		pool.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}
	return pool, cleanup
}

func TestParameterSource_Rows(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	_, err := pool.Exec(ctx, `
		INSERT INTO model_parameters (set_name, position, label, value, unit) VALUES
			('water', 2, 'Density', 1.0, 'g/cm^3'),
			('water', 1, 'Exponent of range-energy relation', 1.77, NULL),
			('lead', 1, 'Density', 11.35, 'g/cm^3')
	`)
	require.NoError(t, err)

	src := postgres.NewParameterSource(pool)

	rows, err := src.Rows(ctx, "water")
	require.NoError(t, err)
	assert.Equal(t, []domain.ParameterRow{
		{Label: "Exponent of range-energy relation", Value: 1.77},
		{Label: "Density", Value: 1.0, Unit: "g/cm^3"},
	}, rows)

	sets, err := src.Sets(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"lead", "water"}, sets)
}

func TestParameterSource_NotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := postgres.NewParameterSource(pool).Rows(context.Background(), "missing")
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}
