package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"bragg-dose-lab/internal/bortfeld"
	"bragg-dose-lab/internal/config"
	"bragg-dose-lab/internal/domain"
	"bragg-dose-lab/internal/fit"
	"bragg-dose-lab/internal/histogram"
	"bragg-dose-lab/internal/idhash"
	"bragg-dose-lab/internal/observability"
	"bragg-dose-lab/internal/params"
	"bragg-dose-lab/internal/physics/mcs"
	"bragg-dose-lab/internal/reporting"
	"bragg-dose-lab/internal/storage"
)

// Output file names.
const (
	ReportFile  = "FIT_REPORT.md"
	SamplesFile = "samples.csv"
	OverlayFile = "overlay.csv"
	SeriesFile  = "series.csv"
	XLSXFile    = "fit.xlsx"
	PDFFile     = "fit.pdf"
)

// Analysis runs one dataset through aggregation, fit and reporting.
type Analysis struct {
	params    storage.ParameterSource
	hits      storage.HitSource
	cfg       *config.Config
	outputDir string
	clock     func() time.Time
	logger    *log.Logger
	metrics   *observability.Metrics
	diag      *log.Logger // per-sample series diagnostics, nil when disabled
	labels    sourceLabels
}

type sourceLabels struct {
	params string
	hits   string
}

// Result is what a run produced.
type Result struct {
	Report *reporting.Report
	Files  []string // written paths, in write order
}

// NewAnalysis creates an analysis. A nil cfg selects config.Default().
func NewAnalysis(
	paramSource storage.ParameterSource,
	hitSource storage.HitSource,
	cfg *config.Config,
	outputDir string,
) *Analysis {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Analysis{
		params:    paramSource,
		hits:      hitSource,
		cfg:       cfg,
		outputDir: outputDir,
		clock:     func() time.Time { return time.Now().UTC() },
		logger:    log.Default(),
		metrics:   observability.DefaultMetrics,
		labels:    sourceLabels{params: "params", hits: "hits"},
	}
}

// WithClock sets a custom clock function for deterministic output.
func (a *Analysis) WithClock(clock func() time.Time) *Analysis {
	a.clock = clock
	return a
}

// WithLogger sets the progress logger.
func (a *Analysis) WithLogger(logger *log.Logger) *Analysis {
	a.logger = logger
	return a
}

// WithMetrics sets the metrics sink.
func (a *Analysis) WithMetrics(m *observability.Metrics) *Analysis {
	a.metrics = m
	return a
}

// WithDiagnostics enables the per-sample series rows on w.
func (a *Analysis) WithDiagnostics(w io.Writer) *Analysis {
	a.diag = log.New(w, "", 0)
	return a
}

// WithSourceLabels names the parameter and hit backends in metrics.
func (a *Analysis) WithSourceLabels(paramLabel, hitLabel string) *Analysis {
	a.labels = sourceLabels{params: paramLabel, hits: hitLabel}
	return a
}

// Run executes the analysis and writes output files:
// - FIT_REPORT.md
// - samples.csv
// - overlay.csv
// - series.csv
// - fit.xlsx
// - fit.pdf
//
// A fit that ran out of iterations still writes every file and returns
// the result together with fit.ErrFitDidNotConverge.
func (a *Analysis) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	res, err := a.run(ctx)

	status := "success"
	switch {
	case errors.Is(err, fit.ErrFitDidNotConverge):
		status = "not_converged"
	case err != nil:
		status = "error"
	}
	a.metrics.RecordPipelineRun(status, time.Since(start).Seconds())
	return res, err
}

func (a *Analysis) run(ctx context.Context) (*Result, error) {
	if err := a.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := os.MkdirAll(a.outputDir, 0755); err != nil {
		return nil, err
	}

	// 1. Parameters
	paramSource := &instrumentedParams{src: a.params, label: a.labels.params, metrics: a.metrics}
	rows, err := paramSource.Rows(ctx, a.cfg.Analysis.ParameterSet)
	if err != nil {
		return nil, fmt.Errorf("load parameters: %w", err)
	}
	paramLog := prefixed(a.logger, "[params] ")
	model, err := params.ParseModel(rows, paramLog)
	if err != nil {
		return nil, err
	}
	mcsParams, err := params.ParseMCS(rows, paramLog)
	if err != nil {
		return nil, err
	}
	eval, err := bortfeld.New(model)
	if err != nil {
		return nil, err
	}
	scatter, err := mcs.New(mcsParams)
	if err != nil {
		return nil, err
	}

	// 2. Hits -> samples
	hitSource := &instrumentedHits{src: a.hits, label: a.labels.hits, metrics: a.metrics}
	samples, err := histogram.NewAggregator(hitSource, a.cfg.HistogramOptions()).Series(ctx, a.cfg.Analysis.Dataset)
	if err != nil {
		return nil, err
	}
	a.metrics.SamplesAggregated.Add(float64(len(samples)))
	a.logger.Printf("[pipeline] dataset %s: %d samples from %.4f to %.4f cm",
		a.cfg.Analysis.Dataset, len(samples), samples[0].Depth, samples[len(samples)-1].Depth)

	// 3. Seed and bounds
	seed, err := a.seed(samples)
	if err != nil {
		return nil, err
	}
	bounds := fit.DefaultBounds(seed, a.cfg.SeedOptions())

	// 4. Fit
	fitOpts := a.cfg.FitOptions()
	fitOpts.Logger = prefixed(a.logger, "[fit] ")
	fitStart := time.Now()
	result, fitErr := fit.NewFitter(eval, fitOpts).Fit(samples, seed, bounds)
	a.recordFit(result, fitErr, time.Since(fitStart).Seconds())
	if result == nil {
		return nil, fitErr
	}
	a.logger.Printf("[pipeline] fit: r0=%.4f sigma=%.4f cost=%.4g iterations=%d converged=%t",
		result.Params.R0, result.Params.Sigma, result.Cost, result.Iterations, result.Converged)

	// 5. Dose per effective volume
	seriesOpts := a.cfg.SeriesOptions()
	seriesOpts.Logger = a.diag
	seriesEval, err := bortfeld.NewSeriesEvaluator(eval, scatter, seriesOpts)
	if err != nil {
		return nil, err
	}
	series, err := seriesEval.EvaluateSeries(domain.Depths(samples), result.Params)
	if err != nil {
		return nil, fmt.Errorf("series: %w", err)
	}

	// 6. Overlay, raw and per effective volume
	grid, err := bortfeld.Grid(a.cfg.Overlay.Min, a.cfg.Overlay.Max, a.cfg.Overlay.Points)
	if err != nil {
		return nil, err
	}
	overlayEval, err := bortfeld.NewSeriesEvaluator(eval, scatter, a.cfg.SeriesOptions())
	if err != nil {
		return nil, err
	}
	overlaySeries, err := overlayEval.EvaluateSeries(grid, result.Params)
	if err != nil {
		return nil, fmt.Errorf("overlay series: %w", err)
	}
	a.metrics.RecordEvaluations("pipeline", 2*len(grid)+len(samples))

	// 7. Report
	fingerprint := idhash.ComputeSampleFingerprint(samples)
	report, err := reporting.NewGenerator(eval, grid).WithClock(a.clock).Generate(reporting.Input{
		FitID:       idhash.ComputeFitID(fingerprint, a.cfg.Particle(), a.cfg.Analysis.ParameterSet, seed),
		Dataset:     a.cfg.Analysis.Dataset,
		Fingerprint: fingerprint,
		Particle:    a.cfg.Particle(),
		Samples:     samples,
		Seed:        seed,
		Bounds:      bounds,
		Result:      result,
		FitErr:      fitErr,
		Series:      series,

		OverlaySeries: overlaySeries,
	})
	if err != nil {
		return nil, err
	}

	files, err := a.writeOutputs(report)
	if err != nil {
		return nil, err
	}
	return &Result{Report: report, Files: files}, fitErr
}

// seed applies the seeding rule; a configured nominal energy replaces the
// deepest-sample range estimate with the tabulated range.
func (a *Analysis) seed(samples []domain.DepthDoseSample) (domain.FitParameters, error) {
	particle := a.cfg.Particle()
	seed, err := fit.EstimateSeed(samples, particle, a.cfg.SeedOptions())
	if err != nil {
		return domain.FitParameters{}, err
	}
	if a.cfg.Analysis.Energy == 0 {
		return seed, nil
	}

	r0, err := fit.RangeForEnergy(particle, a.cfg.Analysis.Energy)
	if err != nil {
		return domain.FitParameters{}, err
	}
	sigma, err := fit.StragglingWidth(particle, r0)
	if err != nil {
		return domain.FitParameters{}, err
	}
	seed.R0, seed.Sigma = r0, sigma
	return seed, nil
}

func (a *Analysis) recordFit(result *domain.FitResult, err error, seconds float64) {
	particle := a.cfg.Particle().String()
	switch {
	case result == nil:
		a.metrics.RecordFit(particle, "error", 0, 0, seconds)
	case err != nil:
		a.metrics.RecordFit(particle, "not_converged", result.Iterations, result.Cost, seconds)
	default:
		a.metrics.RecordFit(particle, "converged", result.Iterations, result.Cost, seconds)
		a.metrics.LastSuccessfulFit.Set(float64(a.clock().Unix()))
	}
}

func (a *Analysis) writeOutputs(report *reporting.Report) ([]string, error) {
	text := []struct {
		name, format, body string
	}{
		{ReportFile, "markdown", reporting.RenderMarkdown(report)},
		{SamplesFile, "csv", reporting.RenderSamplesCSV(report.Samples)},
		{OverlayFile, "csv", reporting.RenderOverlayCSV(report.Overlay)},
		{SeriesFile, "csv", reporting.RenderSeriesCSV(report.Series)},
	}

	var files []string
	for _, out := range text {
		path := filepath.Join(a.outputDir, out.name)
		if err := os.WriteFile(path, []byte(out.body), 0644); err != nil {
			return nil, err
		}
		a.metrics.ReportsGenerated.WithLabelValues(out.format).Inc()
		files = append(files, path)
	}

	binary := []struct {
		name, format string
		write        func(io.Writer, *reporting.Report) error
	}{
		{XLSXFile, "xlsx", reporting.WriteXLSX},
		{PDFFile, "pdf", reporting.WritePDF},
	}
	for _, out := range binary {
		path := filepath.Join(a.outputDir, out.name)
		if err := writeFile(path, func(w io.Writer) error { return out.write(w, report) }); err != nil {
			return nil, fmt.Errorf("write %s: %w", out.name, err)
		}
		a.metrics.ReportsGenerated.WithLabelValues(out.format).Inc()
		files = append(files, path)
	}

	a.logger.Printf("[pipeline] wrote %s", strings.Join(files, ", "))
	return files, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func prefixed(logger *log.Logger, prefix string) *log.Logger {
	return log.New(logger.Writer(), prefix, logger.Flags())
}
