package api

import (
	"net/http"
)

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	chain := Chain(
		Recovery(h.logger),
		RequestID(),
		Logging(h.logger),
	)

	// Jobs
	mux.Handle("POST /api/v1/jobs", chain(http.HandlerFunc(h.SubmitJob)))
	mux.Handle("GET /api/v1/jobs", chain(http.HandlerFunc(h.ListJobs)))
	mux.Handle("GET /api/v1/jobs/{id}", chain(http.HandlerFunc(h.GetJob)))
	mux.Handle("GET /api/v1/jobs/{id}/steps", chain(http.HandlerFunc(h.ListJobSteps)))
}
