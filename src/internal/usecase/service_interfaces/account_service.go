package service_interfaces

import (
	"context"

	"github.com/api-sage/transfer-orchestrator/src/internal/adapter/http/models"
)

type AccountService interface {
	CreateAccount(ctx context.Context, req models.CreateAccountRequest) (models.AccountResponse, error)
	GetAccount(ctx context.Context, id int64) (models.AccountResponse, error)
}
