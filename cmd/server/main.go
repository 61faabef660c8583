// Package main provides the HTTP service:
// - API: curve evaluation and fitting over one parameter set
// - Refit (scheduled, optional): full analysis of the configured dataset
// - Health, metrics and status endpoints
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/time/rate"

	"bragg-dose-lab/internal/api"
	"bragg-dose-lab/internal/bortfeld"
	"bragg-dose-lab/internal/config"
	"bragg-dose-lab/internal/fit"
	"bragg-dose-lab/internal/params"
	"bragg-dose-lab/internal/physics/mcs"
	"bragg-dose-lab/internal/pipeline"
	"bragg-dose-lab/internal/storage/sources"
)

// Server holds the components of the service.
type Server struct {
	// Configuration
	cfg           *config.Config
	outputDir     string
	refitInterval time.Duration

	sources *sources.Set
	logger  *log.Logger

	// State
	mu        sync.Mutex
	started   time.Time
	lastRefit time.Time
	lastFitID string
	lastError string
	refitting bool
	refitRuns int
}

func main() {
	// Load .env file if exists
	_ = godotenv.Load()

	// Parse flags (env vars as defaults)
	configPath := flag.String("config", os.Getenv("BRAGG_CONFIG"), "TOML configuration file")
	paramsDir := flag.String("params-dir", os.Getenv("BRAGG_PARAMS_DIR"), "Directory holding parameter CSV files")
	hitsDir := flag.String("hits-dir", os.Getenv("BRAGG_HITS_DIR"), "Directory holding hit datasets")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	migrate := flag.Bool("migrate", false, "Apply database migrations on start")
	outputDir := flag.String("output-dir", "output", "Output directory for scheduled reports")
	refitInterval := flag.Duration("refit-interval", 0, "Scheduled analysis interval (0 disables)")
	addr := flag.String("addr", ":8080", "HTTP listen address")
	rps := flag.Float64("rate-limit", 10, "Per-client requests per second on /api")
	burst := flag.Int("rate-burst", 20, "Per-client burst on /api")
	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			logger.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
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

	eval, scatter, err := loadModels(ctx, set, cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to load models: %v", err)
	}

	server := &Server{
		cfg:           cfg,
		outputDir:     *outputDir,
		refitInterval: *refitInterval,
		sources:       set,
		logger:        logger,
		started:       time.Now(),
	}

	handler := api.NewHandler(eval, scatter, cfg, api.Options{
		Logger: log.New(os.Stdout, "[api] ", log.LstdFlags|log.Lshortfile),
	})
	router := api.NewRouter(handler, api.NewIPRateLimiter(rate.Limit(*rps), *burst))
	router.HandleFunc("/status", server.handleStatus).Methods(http.MethodGet)

	httpServer := &http.Server{
		Addr:              *addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if server.refitInterval > 0 {
		go server.runRefitScheduler(ctx)
	}

	go func() {
		logger.Printf("Starting HTTP server on %s", *addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Printf("HTTP server error: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Printf("Graceful shutdown failed: %v", err)
	}
	logger.Println("Shutdown complete")
}

// loadModels builds the curve evaluator and scattering model from the
// configured parameter set.
func loadModels(ctx context.Context, set *sources.Set, cfg *config.Config, logger *log.Logger) (*bortfeld.Evaluator, *mcs.Model, error) {
	rows, err := set.Params.Rows(ctx, cfg.Analysis.ParameterSet)
	if err != nil {
		return nil, nil, fmt.Errorf("load parameter set: %w", err)
	}
	paramLog := log.New(logger.Writer(), "[params] ", logger.Flags())
	model, err := params.ParseModel(rows, paramLog)
	if err != nil {
		return nil, nil, err
	}
	mcsParams, err := params.ParseMCS(rows, paramLog)
	if err != nil {
		return nil, nil, err
	}
	eval, err := bortfeld.New(model)
	if err != nil {
		return nil, nil, err
	}
	scatter, err := mcs.New(mcsParams)
	if err != nil {
		return nil, nil, err
	}
	return eval, scatter, nil
}

// runRefitScheduler runs the analysis on schedule.
func (s *Server) runRefitScheduler(ctx context.Context) {
	s.logger.Printf("Starting refit scheduler (interval: %v)...", s.refitInterval)

	// Run immediately on start
	s.runRefit(ctx)

	ticker := time.NewTicker(s.refitInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runRefit(ctx)
		}
	}
}

// runRefit executes one analysis and records the outcome.
func (s *Server) runRefit(ctx context.Context) {
	s.mu.Lock()
	if s.refitting {
		s.mu.Unlock()
		s.logger.Println("Refit already running, skipping...")
		return
	}
	s.refitting = true
	s.mu.Unlock()

	start := time.Now()
	result, err := pipeline.NewAnalysis(s.sources.Params, s.sources.Hits, s.cfg, s.outputDir).
		WithLogger(log.New(os.Stdout, "[refit] ", log.LstdFlags|log.Lshortfile)).
		WithSourceLabels(s.sources.ParamsLabel, s.sources.HitsLabel).
		Run(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.refitting = false
	s.lastRefit = time.Now()
	s.refitRuns++
	s.lastError = ""
	if result != nil {
		s.lastFitID = result.Report.FitID
	}

	switch {
	case errors.Is(err, fit.ErrFitDidNotConverge):
		s.lastError = err.Error()
		s.logger.Printf("Refit did not converge after %v", time.Since(start))
	case err != nil:
		s.lastError = err.Error()
		s.logger.Printf("Refit error: %v", err)
	default:
		s.logger.Printf("Refit %s completed in %v", s.lastFitID, time.Since(start))
	}
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status    string    `json:"status"`
	Uptime    string    `json:"uptime"`
	Particle  string    `json:"particle"`
	Params    string    `json:"parameter_set"`
	Dataset   string    `json:"dataset"`
	LastRefit time.Time `json:"last_refit,omitempty"`
	LastFitID string    `json:"last_fit_id,omitempty"`
	LastError string    `json:"last_error,omitempty"`
	RefitRuns int       `json:"refit_runs"`
	Refitting bool      `json:"refitting"`
}

// handleStatus returns server status as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	resp := StatusResponse{
		Status:    "running",
		Uptime:    time.Since(s.started).Round(time.Second).String(),
		Particle:  s.cfg.Analysis.Particle,
		Params:    s.cfg.Analysis.ParameterSet,
		Dataset:   s.cfg.Analysis.Dataset,
		LastRefit: s.lastRefit,
		LastFitID: s.lastFitID,
		LastError: s.lastError,
		RefitRuns: s.refitRuns,
		Refitting: s.refitting,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
