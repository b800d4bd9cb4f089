// Package api wires the HTTP surface of the scan service.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	mw "github.com/mkurosawa/partscan/internal/api/middleware"
	"github.com/mkurosawa/partscan/internal/api/response"
)

// Dependencies holds all handler and middleware dependencies for the router.
// RateLimit is optional; without Redis the limiter stays off.
type Dependencies struct {
	RateLimit *mw.RateLimit

	HealthHandler      http.HandlerFunc
	SubmitJobHandler   http.HandlerFunc
	JobStatusHandler   http.HandlerFunc
	JobResultsHandler  http.HandlerFunc
	JobFailuresHandler http.HandlerFunc
	RetryJobHandler    http.HandlerFunc
	CandidatesHandler  http.HandlerFunc
	DownloadHandler    http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))

	r.Group(func(r chi.Router) {
		if deps.RateLimit != nil {
			r.Use(deps.RateLimit.Limit)
		}

		r.Post("/api/v1/jobs", orNotImplemented(deps.SubmitJobHandler))
		r.Get("/api/v1/jobs/{jobID}", orNotImplemented(deps.JobStatusHandler))
		r.Get("/api/v1/jobs/{jobID}/results", orNotImplemented(deps.JobResultsHandler))
		r.Get("/api/v1/jobs/{jobID}/failures", orNotImplemented(deps.JobFailuresHandler))
		r.Post("/api/v1/jobs/{jobID}/retry", orNotImplemented(deps.RetryJobHandler))
		r.Get("/api/v1/jobs/{jobID}/candidates", orNotImplemented(deps.CandidatesHandler))
		r.Get("/api/v1/jobs/{jobID}/download", orNotImplemented(deps.DownloadHandler))
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
