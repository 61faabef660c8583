// Package main tabulates scattering spread and energy loss against depth
// for the projectile described by a parameter set.
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"

	"bragg-dose-lab/internal/config"
	"bragg-dose-lab/internal/params"
	"bragg-dose-lab/internal/physics/dedx"
	"bragg-dose-lab/internal/physics/mcs"
	"bragg-dose-lab/internal/reporting"
	"bragg-dose-lab/internal/storage/sources"
	"bragg-dose-lab/internal/trends"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", os.Getenv("BRAGG_CONFIG"), "TOML configuration file")
	paramsDir := flag.String("params-dir", os.Getenv("BRAGG_PARAMS_DIR"), "Directory holding parameter CSV files")
	parameterSet := flag.String("parameter-set", "", "Parameter set name (overrides config)")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string for parameter sets")
	output := flag.String("output", "", "CSV output path (default stdout)")
	flag.Parse()

	logger := log.New(os.Stderr, "[trends] ", log.LstdFlags|log.Lshortfile)

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			logger.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
	}
	if *parameterSet != "" {
		cfg.Analysis.ParameterSet = *parameterSet
	}

	ctx := context.Background()
	set, cleanup, err := sources.Open(ctx, sources.Options{
		ParamsDir:   *paramsDir,
		PostgresDSN: *postgresDSN,
		Logger:      logger,
	})
	if err != nil {
		logger.Fatalf("Failed to open sources: %v", err)
	}
	defer cleanup()

	rows, err := set.Params.Rows(ctx, cfg.Analysis.ParameterSet)
	if err != nil {
		logger.Fatalf("Failed to load parameters: %v", err)
	}
	mcsParams, err := params.ParseMCS(rows, logger)
	if err != nil {
		logger.Fatalf("Failed to parse scattering parameters: %v", err)
	}
	stopParams, err := params.ParseStopping(rows, logger)
	if err != nil {
		logger.Fatalf("Failed to parse stopping parameters: %v", err)
	}
	scatter, err := mcs.New(mcsParams)
	if err != nil {
		logger.Fatalf("Invalid scattering parameters: %v", err)
	}
	stopping, err := dedx.New(stopParams)
	if err != nil {
		logger.Fatalf("Invalid stopping parameters: %v", err)
	}

	table, err := trends.Run(scatter, stopping, cfg.TrendOptions())
	if err != nil {
		logger.Fatalf("Trend run failed: %v", err)
	}

	csv := reporting.RenderTrendsCSV(table)
	if *output == "" {
		os.Stdout.WriteString(csv)
		return
	}
	if err := os.WriteFile(*output, []byte(csv), 0o644); err != nil {
		logger.Fatalf("Failed to write %s: %v", *output, err)
	}
	logger.Printf("Wrote %d rows to %s", len(table), *output)
}
