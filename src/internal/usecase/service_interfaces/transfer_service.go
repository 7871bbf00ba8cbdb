package service_interfaces

import (
	"context"

	"github.com/api-sage/transfer-orchestrator/src/internal/adapter/http/models"
	"github.com/api-sage/transfer-orchestrator/src/internal/domain"
)

type TransferService interface {
	Transfer(ctx context.Context, idempotencyKey string, requestID string, req models.TransferRequest) (models.TransferResponse, error)
	GetTransfer(ctx context.Context, transferID string) (models.TransferResponse, error)
	BatchTransfer(ctx context.Context, idempotencyKey string, requestID string, reqs models.BatchTransferRequest) ([]models.TransferResponse, error)
}

// LedgerGateway applies a posting on the ledger authority.
type LedgerGateway interface {
	Transfer(ctx context.Context, requestID string, req models.PostingRequest) (models.TransferResponse, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, event domain.TransferCompleted) error
}
