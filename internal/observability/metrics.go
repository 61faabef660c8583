// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Fit metrics
	FitsTotal      *prometheus.CounterVec
	FitDuration    prometheus.Histogram
	FitIterations  prometheus.Histogram
	FitCost        prometheus.Gauge
	CurveEvaluated *prometheus.CounterVec

	// Source metrics
	SourceLoadDuration *prometheus.HistogramVec
	SourceLoadErrors   *prometheus.CounterVec
	HitsLoaded         prometheus.Counter
	SamplesAggregated  prometheus.Counter

	// Pipeline metrics
	PipelineRunsTotal *prometheus.CounterVec
	PipelineDuration  prometheus.Histogram
	ReportsGenerated  *prometheus.CounterVec

	// API metrics
	APIRequests        *prometheus.CounterVec
	APIRequestDuration *prometheus.HistogramVec
	APIRateLimited     prometheus.Counter

	// Health metrics
	LastSuccessfulFit prometheus.Gauge
}

// NewMetrics creates a new Metrics instance registered with the default
// registerer.
func NewMetrics(namespace string) *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer, namespace)
}

// NewMetricsWith creates a Metrics instance registered with reg.
func NewMetricsWith(reg prometheus.Registerer, namespace string) *Metrics {
	if namespace == "" {
		namespace = "bragg_dose_lab"
	}
	factory := promauto.With(reg)

	return &Metrics{
		// Fit metrics
		FitsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fit",
			Name:      "runs_total",
			Help:      "Total number of curve fits by outcome",
		}, []string{"particle", "status"}),
		FitDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "fit",
			Name:      "duration_seconds",
			Help:      "Duration of curve fits",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
		FitIterations: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "fit",
			Name:      "iterations",
			Help:      "Iterations used per fit",
			Buckets:   prometheus.LinearBuckets(0, 20, 11),
		}),
		FitCost: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "fit",
			Name:      "last_cost",
			Help:      "Sum of squared residuals of the last fit",
		}),
		CurveEvaluated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "evaluator",
			Name:      "points_total",
			Help:      "Total number of depth points evaluated by endpoint or caller",
		}, []string{"caller"}),

		// Source metrics
		SourceLoadDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "source",
			Name:      "load_duration_seconds",
			Help:      "Duration of source loads",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),
		SourceLoadErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "source",
			Name:      "load_errors_total",
			Help:      "Total number of failed source loads",
		}, []string{"source"}),
		HitsLoaded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "source",
			Name:      "hits_loaded_total",
			Help:      "Total number of detector hits loaded",
		}),
		SamplesAggregated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "histogram",
			Name:      "samples_total",
			Help:      "Total number of depth-dose samples produced",
		}),

		// Pipeline metrics
		PipelineRunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total number of analysis runs by status",
		}, []string{"status"}),
		PipelineDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "duration_seconds",
			Help:      "Duration of analysis runs",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}),
		ReportsGenerated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "reports_generated_total",
			Help:      "Total number of report files written by format",
		}, []string{"format"}),

		// API metrics
		APIRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total number of API requests by route and status code",
		}, []string{"route", "code"}),
		APIRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "API request latency by route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		APIRateLimited: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "rate_limited_total",
			Help:      "Total number of requests rejected by the rate limiter",
		}),

		// Health metrics
		LastSuccessfulFit: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_fit_timestamp",
			Help:      "Unix timestamp of last converged fit",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordFit records the outcome of a fit.
func (m *Metrics) RecordFit(particle, status string, iterations int, cost, seconds float64) {
	m.FitsTotal.WithLabelValues(particle, status).Inc()
	m.FitDuration.Observe(seconds)
	m.FitIterations.Observe(float64(iterations))
	m.FitCost.Set(cost)
}

// RecordEvaluations counts evaluated depth points.
func (m *Metrics) RecordEvaluations(caller string, points int) {
	m.CurveEvaluated.WithLabelValues(caller).Add(float64(points))
}

// RecordSourceLoad records a source load.
func (m *Metrics) RecordSourceLoad(source string, seconds float64, err error) {
	m.SourceLoadDuration.WithLabelValues(source).Observe(seconds)
	if err != nil {
		m.SourceLoadErrors.WithLabelValues(source).Inc()
	}
}

// RecordPipelineRun records an analysis run.
func (m *Metrics) RecordPipelineRun(status string, seconds float64) {
	m.PipelineRunsTotal.WithLabelValues(status).Inc()
	m.PipelineDuration.Observe(seconds)
}

// RecordAPIRequest records one API request.
func (m *Metrics) RecordAPIRequest(route, code string, seconds float64) {
	m.APIRequests.WithLabelValues(route, code).Inc()
	m.APIRequestDuration.WithLabelValues(route).Observe(seconds)
}

// RecordFit records a fit on DefaultMetrics.
func RecordFit(particle, status string, iterations int, cost, seconds float64) {
	DefaultMetrics.RecordFit(particle, status, iterations, cost, seconds)
}

// RecordPipelineRun records an analysis run on DefaultMetrics.
func RecordPipelineRun(status string, seconds float64) {
	DefaultMetrics.RecordPipelineRun(status, seconds)
}
