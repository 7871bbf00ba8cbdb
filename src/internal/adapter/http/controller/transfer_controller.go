package controller

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/api-sage/transfer-orchestrator/src/internal/adapter/http/middleware"
	"github.com/api-sage/transfer-orchestrator/src/internal/adapter/http/models"
	"github.com/api-sage/transfer-orchestrator/src/internal/usecase/service_interfaces"
)

type TransferController struct {
	service service_interfaces.TransferService
}

func NewTransferController(service service_interfaces.TransferService) *TransferController {
	return &TransferController{service: service}
}

func (c *TransferController) RegisterRoutes(r chi.Router) {
	r.Post("/transfers", c.transfer)
	r.Post("/transfers/batch", c.batch)
	r.Get("/transfers/{transferId}", c.getTransfer)
}

func (c *TransferController) transfer(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req models.TransferRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err, start)
		return
	}
	logRequest(r, req)

	response, err := c.service.Transfer(r.Context(), r.Header.Get(IdempotencyKeyHeader), middleware.RequestIDFrom(r.Context()), req)
	if err != nil {
		writeError(w, r, err, start)
		return
	}

	writeJSON(w, http.StatusOK, response)
	logResponse(r, http.StatusOK, response, start)
}

func (c *TransferController) batch(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req models.BatchTransferRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err, start)
		return
	}
	logRequest(r, req)

	response, err := c.service.BatchTransfer(r.Context(), r.Header.Get(IdempotencyKeyHeader), middleware.RequestIDFrom(r.Context()), req)
	if err != nil {
		writeError(w, r, err, start)
		return
	}

	writeJSON(w, http.StatusOK, response)
	logResponse(r, http.StatusOK, response, start)
}

func (c *TransferController) getTransfer(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	response, err := c.service.GetTransfer(r.Context(), chi.URLParam(r, "transferId"))
	if err != nil {
		writeError(w, r, err, start)
		return
	}

	writeJSON(w, http.StatusOK, response)
	logResponse(r, http.StatusOK, response, start)
}
