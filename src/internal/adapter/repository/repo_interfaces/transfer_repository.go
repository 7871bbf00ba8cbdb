package repo_interfaces

import (
	"context"

	"github.com/api-sage/transfer-orchestrator/src/internal/domain"
)

type TransferRepository interface {
	// Record stores the terminal outcome for a transfer id. A FAILED record may
	// be replaced; replacing a SUCCESS record returns domain.ErrDuplicateKey.
	Record(ctx context.Context, transfer domain.Transfer) (domain.Transfer, error)
	GetByTransferID(ctx context.Context, transferID string) (domain.Transfer, error)
}
