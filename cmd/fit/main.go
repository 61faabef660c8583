// Package main runs one Bragg curve analysis: it loads a parameter set and
// a hit dataset, fits the depth-dose curve and writes the report files.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"bragg-dose-lab/internal/config"
	"bragg-dose-lab/internal/fit"
	"bragg-dose-lab/internal/pipeline"
	"bragg-dose-lab/internal/storage/sources"
)

func main() {
	// Load .env file if exists; real env vars win
	_ = godotenv.Load()

	configPath := flag.String("config", os.Getenv("BRAGG_CONFIG"), "TOML configuration file")
	outputDir := flag.String("output-dir", "output", "Output directory for report files")
	paramsDir := flag.String("params-dir", os.Getenv("BRAGG_PARAMS_DIR"), "Directory holding parameter CSV files")
	hitsDir := flag.String("hits-dir", os.Getenv("BRAGG_HITS_DIR"), "Directory holding hit datasets")
	parameterSet := flag.String("parameter-set", "", "Parameter set name (overrides config)")
	dataset := flag.String("dataset", "", "Hit dataset name (overrides config)")
	particle := flag.String("particle", "", "proton or carbon (overrides config)")
	energy := flag.Float64("energy", 0, "Nominal beam energy in MeV (overrides config)")
	diagnostics := flag.Bool("diagnostics", false, "Log per-step series diagnostics to stderr")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string for parameter sets")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string for hit datasets")
	migrate := flag.Bool("migrate", false, "Apply database migrations before reading")
	printConfig := flag.Bool("print-config", false, "Print the effective configuration and exit")
	flag.Parse()

	logger := log.New(os.Stdout, "[fit] ", log.LstdFlags|log.Lshortfile)

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			logger.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
	}

	// Only flags given on the command line override the file
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "parameter-set":
			cfg.Analysis.ParameterSet = *parameterSet
		case "dataset":
			cfg.Analysis.Dataset = *dataset
		case "particle":
			cfg.Analysis.Particle = *particle
		case "energy":
			cfg.Analysis.Energy = *energy
		}
	})

	if *printConfig {
		if err := cfg.Write(os.Stdout); err != nil {
			logger.Fatalf("Failed to print config: %v", err)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	set, cleanup, err := sources.Open(ctx, sources.Options{
		ParamsDir:     *paramsDir,
		HitsDir:       *hitsDir,
		PostgresDSN:   *postgresDSN,
		ClickhouseDSN: *clickhouseDSN,
		Migrate:       *migrate,
		Logger:        logger,
	})
	if err != nil {
		logger.Fatalf("Failed to open sources: %v", err)
	}
	defer cleanup()

	analysis := pipeline.NewAnalysis(set.Params, set.Hits, cfg, *outputDir).
		WithLogger(logger).
		WithSourceLabels(set.ParamsLabel, set.HitsLabel)
	if *diagnostics {
		analysis = analysis.WithDiagnostics(os.Stderr)
	}

	result, err := analysis.Run(ctx)
	switch {
	case errors.Is(err, fit.ErrFitDidNotConverge):
		logger.Printf("Fit did not converge; partial results written to %s/", *outputDir)
		cleanup()
		os.Exit(1)
	case err != nil:
		logger.Printf("Analysis failed: %v", err)
		cleanup()
		os.Exit(1)
	}

	p := result.Report.Result.Params
	logger.Printf("Fit %s: R0=%.4f cm sigma=%.4f cm epsilon=%.4f Phi0=%.4g chi2/ndf=%.4g",
		result.Report.FitID, p.R0, p.Sigma, p.Epsilon, p.Phi0, result.Report.ReducedChiSquare())
	for _, f := range result.Files {
		logger.Printf("  wrote %s", f)
	}
}
