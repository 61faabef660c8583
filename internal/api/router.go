package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"bragg-dose-lab/internal/observability"
)

const requestIDHeader = "X-Request-ID"

// NewRouter wires the API, /health and /metrics. A nil limiter disables
// rate limiting.
func NewRouter(h *Handler, limiter *IPRateLimiter) *mux.Router {
	router := mux.NewRouter()
	router.Use(requestID, h.instrument)

	router.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	router.Handle("/metrics", observability.Handler()).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	if limiter != nil {
		limiter.onReject = h.metrics.APIRateLimited.Inc
		api.Use(limiter.LimitMiddleware)
	}
	api.HandleFunc("/evaluate", h.Evaluate).Methods(http.MethodPost)
	api.HandleFunc("/curve", h.Curve).Methods(http.MethodPost)
	api.HandleFunc("/fit", h.Fit).Methods(http.MethodPost)

	return router
}

// requestID propagates or assigns the X-Request-ID header.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (h *Handler) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		h.metrics.RecordAPIRequest(route, strconv.Itoa(rec.status), time.Since(start).Seconds())
	})
}
