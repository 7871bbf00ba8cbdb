package controller

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/api-sage/transfer-orchestrator/src/internal/adapter/http/models"
	"github.com/api-sage/transfer-orchestrator/src/internal/domain"
	"github.com/api-sage/transfer-orchestrator/src/internal/usecase/service_interfaces"
)

type AccountController struct {
	service service_interfaces.AccountService
}

func NewAccountController(service service_interfaces.AccountService) *AccountController {
	return &AccountController{service: service}
}

func (c *AccountController) RegisterRoutes(r chi.Router) {
	r.Post("/accounts", c.createAccount)
	r.Get("/accounts/{id}", c.getAccount)
}

func (c *AccountController) createAccount(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req models.CreateAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err, start)
		return
	}
	logRequest(r, req)

	response, err := c.service.CreateAccount(r.Context(), req)
	if err != nil {
		writeError(w, r, err, start)
		return
	}

	writeJSON(w, http.StatusCreated, response)
	logResponse(r, http.StatusCreated, response, start)
}

func (c *AccountController) getAccount(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, r, domain.Validation("id must be a number"), start)
		return
	}

	response, err := c.service.GetAccount(r.Context(), id)
	if err != nil {
		writeError(w, r, err, start)
		return
	}

	writeJSON(w, http.StatusOK, response)
	logResponse(r, http.StatusOK, response, start)
}
