// Package api serves the Bragg curve evaluator and fitter over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sort"
	"time"

	"github.com/google/uuid"

	"bragg-dose-lab/internal/bortfeld"
	"bragg-dose-lab/internal/config"
	"bragg-dose-lab/internal/domain"
	"bragg-dose-lab/internal/fit"
	"bragg-dose-lab/internal/observability"
)

const (
	maxBodyBytes = 4 << 20
	maxPoints    = 100000
)

// Options configures a Handler. Zero values select defaults.
type Options struct {
	Logger  *log.Logger            // Default: log.Default()
	Metrics *observability.Metrics // Default: observability.DefaultMetrics
}

// Handler serves the evaluate, curve and fit endpoints for one set of
// model parameters.
type Handler struct {
	eval    *bortfeld.Evaluator
	scatter bortfeld.YPlaner
	cfg     *config.Config
	logger  *log.Logger
	metrics *observability.Metrics
	newID   func() string
	now     func() time.Time
}

// NewHandler creates a Handler. A nil cfg selects config.Default().
func NewHandler(eval *bortfeld.Evaluator, scatter bortfeld.YPlaner, cfg *config.Config, opts Options) *Handler {
	if cfg == nil {
		cfg = config.Default()
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = observability.DefaultMetrics
	}
	return &Handler{
		eval:    eval,
		scatter: scatter,
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
		newID:   uuid.NewString,
		now:     time.Now,
	}
}

// Evaluate handles POST /api/evaluate.
func (h *Handler) Evaluate(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	if !decode(w, r, &req) {
		return
	}
	if len(req.Depths) == 0 || len(req.Depths) > maxPoints {
		writeError(w, r, http.StatusBadRequest, fmt.Sprintf("depths must hold 1 to %d values", maxPoints))
		return
	}
	fp := req.Params.domain()

	var doses []float64
	var err error
	if req.Volumetric {
		doses, err = h.volumeDoses(req.Depths, fp)
	} else {
		doses, err = h.eval.Curve(req.Depths, fp)
	}
	if err != nil {
		writeError(w, r, statusFor(err), err.Error())
		return
	}
	h.metrics.RecordEvaluations("api", len(req.Depths))

	regions := make([]string, len(req.Depths))
	for i, z := range req.Depths {
		regions[i] = h.eval.Region(z, fp).String()
	}
	writeJSON(w, http.StatusOK, EvaluateResponse{Doses: doses, Regions: regions})
}

func (h *Handler) volumeDoses(zs []float64, fp domain.FitParameters) ([]float64, error) {
	opts := h.cfg.SeriesOptions()
	series, err := bortfeld.NewSeriesEvaluator(h.eval, h.scatter, opts)
	if err != nil {
		return nil, err
	}
	return series.VolumeDoses(zs, fp)
}

// Curve handles POST /api/curve.
func (h *Handler) Curve(w http.ResponseWriter, r *http.Request) {
	var req CurveRequest
	if !decode(w, r, &req) {
		return
	}
	lo, hi, n := h.cfg.Overlay.Min, h.cfg.Overlay.Max, h.cfg.Overlay.Points
	if req.Points != 0 || req.Min != 0 || req.Max != 0 {
		lo, hi, n = req.Min, req.Max, req.Points
	}
	if n > maxPoints {
		writeError(w, r, http.StatusBadRequest, fmt.Sprintf("points must not exceed %d", maxPoints))
		return
	}

	grid, err := bortfeld.Grid(lo, hi, n)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	doses, err := h.eval.Curve(grid, req.Params.domain())
	if err != nil {
		writeError(w, r, statusFor(err), err.Error())
		return
	}
	h.metrics.RecordEvaluations("api", len(grid))

	points := make([]Sample, len(grid))
	for i, z := range grid {
		points[i] = Sample{Depth: z, Dose: doses[i]}
	}
	writeJSON(w, http.StatusOK, CurveResponse{Points: points})
}

// Fit handles POST /api/fit. A fit that exhausts its budget is answered
// with 200, converged=false and the error text.
func (h *Handler) Fit(w http.ResponseWriter, r *http.Request) {
	var req FitRequest
	if !decode(w, r, &req) {
		return
	}
	if len(req.Samples) == 0 || len(req.Samples) > maxPoints {
		writeError(w, r, http.StatusBadRequest, fmt.Sprintf("samples must hold 1 to %d values", maxPoints))
		return
	}
	particle := h.cfg.Particle()
	if req.Particle != "" {
		particle = domain.Particle(req.Particle)
	}
	if !particle.IsValid() {
		writeError(w, r, http.StatusBadRequest, fmt.Sprintf("unknown particle %q", req.Particle))
		return
	}

	samples := make([]domain.DepthDoseSample, len(req.Samples))
	for i, s := range req.Samples {
		samples[i] = domain.DepthDoseSample{Depth: s.Depth, Dose: s.Dose}
	}
	sort.SliceStable(samples, func(i, j int) bool { return samples[i].Depth < samples[j].Depth })

	var seed domain.FitParameters
	if req.Seed != nil {
		seed = req.Seed.domain()
	} else {
		var err error
		seed, err = fit.EstimateSeed(samples, particle, h.cfg.SeedOptions())
		if err != nil {
			writeError(w, r, statusFor(err), err.Error())
			return
		}
	}
	bounds := fit.DefaultBounds(seed, h.cfg.SeedOptions())
	if req.Bounds != nil {
		bounds = req.Bounds.bounds()
	}

	id := h.newID()
	fitOpts := h.cfg.FitOptions()
	fitOpts.Logger = log.New(h.logger.Writer(), "[fit] ", h.logger.Flags())

	fitStart := h.now()
	res, err := fit.NewFitter(h.eval, fitOpts).Fit(samples, seed, bounds)
	elapsed := h.now().Sub(fitStart).Seconds()
	switch {
	case res == nil:
		h.metrics.RecordFit(particle.String(), "error", 0, 0, elapsed)
		writeError(w, r, statusFor(err), err.Error())
		return
	case err != nil:
		h.metrics.RecordFit(particle.String(), "not_converged", res.Iterations, res.Cost, elapsed)
	default:
		h.metrics.RecordFit(particle.String(), "converged", res.Iterations, res.Cost, elapsed)
	}

	out := fitResponse(id, res, seed, bounds)
	if err != nil {
		out.Error = err.Error()
	}
	h.logger.Printf("[api] fit %s: %d samples, r0=%.4f converged=%t", id, len(samples), res.Params.R0, res.Converged)
	writeJSON(w, http.StatusOK, out)
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request payload: "+err.Error())
		return false
	}
	return true
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument),
		errors.Is(err, fit.ErrUnknownParticle),
		errors.Is(err, fit.ErrUnknownEnergy):
		return http.StatusBadRequest
	case errors.Is(err, fit.ErrInvalidModelEvaluation):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg, RequestID: w.Header().Get(requestIDHeader)})
}
