package service_interfaces

import (
	"context"

	"github.com/api-sage/transfer-orchestrator/src/internal/adapter/http/models"
)

type LedgerService interface {
	ApplyTransfer(ctx context.Context, req models.PostingRequest) (models.TransferResponse, error)
	EntriesByTransfer(ctx context.Context, transferID string) ([]models.LedgerEntryResponse, error)
}
