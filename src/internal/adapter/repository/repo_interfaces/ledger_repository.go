package repo_interfaces

import (
	"context"

	"github.com/api-sage/transfer-orchestrator/src/internal/domain"
)

type LedgerRepository interface {
	// Transfer moves amount between two accounts and appends the DEBIT/CREDIT
	// pair in one transaction. A stale account version fails with
	// domain.ErrOptimisticConflict and nothing is written.
	Transfer(ctx context.Context, transferID string, fromID, toID, amount int64) (domain.Posting, error)
	EntriesByTransfer(ctx context.Context, transferID string) ([]domain.LedgerEntry, error)
}
