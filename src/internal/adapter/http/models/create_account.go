package models

import (
	"strings"
	"time"

	"github.com/api-sage/transfer-orchestrator/src/internal/domain"
)

type CreateAccountRequest struct {
	Name           string `json:"name" validate:"required,max=120"`
	InitialBalance int64  `json:"initialBalance" validate:"gte=0"`
}

func (r CreateAccountRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	return validateStruct(r)
}

type AccountResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Balance   int64     `json:"balance"`
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
}

func NewAccountResponse(a domain.Account) AccountResponse {
	return AccountResponse{
		ID:        a.ID,
		Name:      a.Name,
		Balance:   a.Balance,
		Version:   a.Version,
		CreatedAt: a.CreatedAt,
	}
}
