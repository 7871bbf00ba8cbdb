package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/api-sage/transfer-orchestrator/src/internal/domain"
	"github.com/api-sage/transfer-orchestrator/src/internal/logger"
)

type TransferRepository struct {
	db *sql.DB
}

func NewTransferRepository(db *sql.DB) *TransferRepository {
	return &TransferRepository{db: db}
}

func (r *TransferRepository) Record(ctx context.Context, transfer domain.Transfer) (domain.Transfer, error) {
	logger.Info("transfer repository record", logger.Fields{
		"transferId":    transfer.TransferID,
		"fromAccountId": transfer.FromAccountID,
		"toAccountId":   transfer.ToAccountID,
		"status":        transfer.Status,
	})

	// A FAILED outcome can be superseded by a later attempt; SUCCESS is final.
	const query = `
INSERT INTO transfers (
	transfer_id,
	status,
	message,
	from_account_id,
	to_account_id,
	amount
) VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (transfer_id) DO UPDATE
SET status = EXCLUDED.status,
    message = EXCLUDED.message,
    from_account_id = EXCLUDED.from_account_id,
    to_account_id = EXCLUDED.to_account_id,
    amount = EXCLUDED.amount,
    created_at = NOW()
WHERE transfers.status = 'FAILED'
RETURNING id, created_at`

	err := r.db.QueryRowContext(
		ctx,
		query,
		transfer.TransferID,
		transfer.Status,
		transfer.Message,
		transfer.FromAccountID,
		transfer.ToAccountID,
		transfer.Amount,
	).Scan(&transfer.ID, &transfer.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		logger.Warn("transfer repository record rejected, transfer already succeeded", logger.Fields{
			"transferId": transfer.TransferID,
		})
		return domain.Transfer{}, domain.ErrDuplicateKey
	}
	if err != nil {
		logger.Error("transfer repository record failed", err, logger.Fields{
			"transferId": transfer.TransferID,
		})
		return domain.Transfer{}, fmt.Errorf("record transfer: %w", err)
	}

	logger.Info("transfer repository record success", logger.Fields{
		"id":         transfer.ID,
		"transferId": transfer.TransferID,
		"status":     transfer.Status,
	})

	return transfer, nil
}

func (r *TransferRepository) GetByTransferID(ctx context.Context, transferID string) (domain.Transfer, error) {
	const query = `
SELECT id, transfer_id, status, message, from_account_id, to_account_id, amount, created_at
FROM transfers
WHERE transfer_id = $1`

	var transfer domain.Transfer
	err := r.db.QueryRowContext(ctx, query, transferID).Scan(
		&transfer.ID,
		&transfer.TransferID,
		&transfer.Status,
		&transfer.Message,
		&transfer.FromAccountID,
		&transfer.ToAccountID,
		&transfer.Amount,
		&transfer.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		logger.Info("transfer repository record not found", logger.Fields{
			"transferId": transferID,
		})
		return domain.Transfer{}, domain.ErrRecordNotFound
	}
	if err != nil {
		return domain.Transfer{}, fmt.Errorf("get transfer: %w", err)
	}

	return transfer, nil
}
