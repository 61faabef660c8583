// Package sources opens the parameter and hit backends selected by the
// command-line configuration.
package sources

import (
	"context"
	"fmt"
	"log"

	"bragg-dose-lab/internal/storage"
	chstore "bragg-dose-lab/internal/storage/clickhouse"
	"bragg-dose-lab/internal/storage/file"
	"bragg-dose-lab/internal/storage/migrations"
	pgstore "bragg-dose-lab/internal/storage/postgres"
)

// Options selects the backends. An empty DSN falls back to the file
// source rooted at the matching directory.
type Options struct {
	ParamsDir     string
	HitsDir       string
	PostgresDSN   string
	ClickhouseDSN string
	Migrate       bool        // apply embedded migrations before use
	Logger        *log.Logger // Default: log.Default()
}

// Set is an opened pair of sources.
type Set struct {
	Params      storage.ParameterSource
	Hits        storage.HitSource
	ParamsLabel string // backend name for metrics
	HitsLabel   string
}

// Open connects the configured backends. The returned cleanup closes
// every connection and must be called once the sources are no longer
// used.
func Open(ctx context.Context, opts Options) (*Set, func(), error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	set := &Set{}
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	// Parameters: PostgreSQL or CSV files
	if opts.PostgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, opts.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		closers = append(closers, pool.Close)
		if opts.Migrate {
			if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("postgres migrations: %w", err)
			}
		}
		set.Params, set.ParamsLabel = pgstore.NewParameterSource(pool), "postgres"
		logger.Printf("parameters from postgres")
	} else {
		set.Params, set.ParamsLabel = file.NewParameterSource(opts.ParamsDir), "file"
		logger.Printf("parameters from %q", opts.ParamsDir)
	}

	// Hits: ClickHouse or whitespace-delimited files
	if opts.ClickhouseDSN != "" {
		var (
			conn *chstore.Conn
			err  error
		)
		if opts.Migrate {
			conn, err = migrations.RunClickhouseMigrations(ctx, opts.ClickhouseDSN)
		} else {
			conn, err = chstore.NewConn(ctx, opts.ClickhouseDSN)
		}
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
		}
		closers = append(closers, func() { conn.Close() })
		set.Hits, set.HitsLabel = chstore.NewHitSource(conn), "clickhouse"
		logger.Printf("hits from clickhouse")
	} else {
		set.Hits, set.HitsLabel = file.NewHitSource(opts.HitsDir), "file"
		logger.Printf("hits from %q", opts.HitsDir)
	}

	return set, cleanup, nil
}
