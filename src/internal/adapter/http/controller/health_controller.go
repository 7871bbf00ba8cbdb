package controller

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/api-sage/transfer-orchestrator/src/internal/metrics"
)

type HealthController struct{}

func NewHealthController() *HealthController {
	return &HealthController{}
}

func (c *HealthController) RegisterRoutes(r chi.Router) {
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "UP"})
	})
	r.Handle("/metrics", metrics.Handler())
}
