package controller

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/api-sage/transfer-orchestrator/src/internal/adapter/http/models"
	"github.com/api-sage/transfer-orchestrator/src/internal/usecase/service_interfaces"
)

type LedgerController struct {
	service service_interfaces.LedgerService
}

func NewLedgerController(service service_interfaces.LedgerService) *LedgerController {
	return &LedgerController{service: service}
}

func (c *LedgerController) RegisterRoutes(r chi.Router) {
	r.Post("/ledger/transfer", c.applyTransfer)
	r.Get("/ledger/transfers/{transferId}/entries", c.entries)
}

func (c *LedgerController) applyTransfer(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req models.PostingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err, start)
		return
	}
	logRequest(r, req)

	response, err := c.service.ApplyTransfer(r.Context(), req)
	if err != nil {
		writeError(w, r, err, start)
		return
	}

	writeJSON(w, http.StatusOK, response)
	logResponse(r, http.StatusOK, response, start)
}

func (c *LedgerController) entries(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	response, err := c.service.EntriesByTransfer(r.Context(), chi.URLParam(r, "transferId"))
	if err != nil {
		writeError(w, r, err, start)
		return
	}

	writeJSON(w, http.StatusOK, response)
	logResponse(r, http.StatusOK, response, start)
}
