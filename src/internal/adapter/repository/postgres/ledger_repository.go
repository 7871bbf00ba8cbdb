package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/api-sage/transfer-orchestrator/src/internal/domain"
	"github.com/api-sage/transfer-orchestrator/src/internal/logger"
)

type LedgerRepository struct {
	db *sql.DB
}

func NewLedgerRepository(db *sql.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

func (r *LedgerRepository) Transfer(ctx context.Context, transferID string, fromID, toID, amount int64) (posting domain.Posting, err error) {
	if err := domain.CheckPosting(fromID, toID, amount); err != nil {
		return domain.Posting{}, err
	}

	logger.Info("ledger repository transfer", logger.Fields{
		"transferId":    transferID,
		"fromAccountId": fromID,
		"toAccountId":   toID,
		"amount":        amount,
	})

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Posting{}, fmt.Errorf("begin ledger transfer tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
			logger.Error("ledger repository transfer failed", err, logger.Fields{
				"transferId": transferID,
			})
		}
	}()

	from, err := accountInTx(ctx, tx, fromID, "From account not found")
	if err != nil {
		return domain.Posting{}, err
	}
	to, err := accountInTx(ctx, tx, toID, "To account not found")
	if err != nil {
		return domain.Posting{}, err
	}

	if from.Balance < amount {
		return domain.Posting{}, domain.InsufficientFunds("Insufficient funds")
	}

	from.Balance -= amount
	to.Balance += amount

	// Lower id first so two transfers over the same pair never wait on each other in reverse.
	first, second := &from, &to
	if to.ID < from.ID {
		first, second = &to, &from
	}
	if err = compareAndSwapBalance(ctx, tx, first); err != nil {
		return domain.Posting{}, err
	}
	if err = compareAndSwapBalance(ctx, tx, second); err != nil {
		return domain.Posting{}, err
	}

	debit, err := insertEntry(ctx, tx, domain.LedgerEntry{
		TransferID: transferID,
		AccountID:  from.ID,
		Amount:     amount,
		Type:       domain.LedgerEntryDebit,
	})
	if err != nil {
		return domain.Posting{}, err
	}
	credit, err := insertEntry(ctx, tx, domain.LedgerEntry{
		TransferID: transferID,
		AccountID:  to.ID,
		Amount:     amount,
		Type:       domain.LedgerEntryCredit,
	})
	if err != nil {
		return domain.Posting{}, err
	}

	if err = tx.Commit(); err != nil {
		if isSerializationFailure(err) {
			err = domain.OptimisticConflict("ledger transaction could not be serialized")
			return domain.Posting{}, err
		}
		return domain.Posting{}, fmt.Errorf("commit ledger transfer: %w", err)
	}

	logger.Info("ledger repository transfer success", logger.Fields{
		"transferId":  transferID,
		"fromBalance": from.Balance,
		"toBalance":   to.Balance,
	})

	return domain.Posting{
		TransferID: transferID,
		From:       from,
		To:         to,
		Debit:      debit,
		Credit:     credit,
	}, nil
}

func (r *LedgerRepository) EntriesByTransfer(ctx context.Context, transferID string) ([]domain.LedgerEntry, error) {
	const query = `
SELECT id, transfer_id, account_id, amount, entry_type, created_at
FROM ledger_entries
WHERE transfer_id = $1
ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, transferID)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.LedgerEntry, 0, 2)
	for rows.Next() {
		var entry domain.LedgerEntry
		if err := rows.Scan(&entry.ID, &entry.TransferID, &entry.AccountID, &entry.Amount, &entry.Type, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger entries: %w", err)
	}

	return entries, nil
}

func accountInTx(ctx context.Context, tx *sql.Tx, id int64, missing string) (domain.Account, error) {
	account, err := scanAccount(tx.QueryRowContext(ctx, selectAccountQuery, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Account{}, domain.NotFound(missing)
	}
	if err != nil {
		return domain.Account{}, fmt.Errorf("read account %d: %w", id, err)
	}
	return account, nil
}

// compareAndSwapBalance writes the new balance only if nobody bumped the
// version since it was read.
func compareAndSwapBalance(ctx context.Context, tx *sql.Tx, account *domain.Account) error {
	const query = `
UPDATE accounts
SET balance = $2,
    version = version + 1
WHERE id = $1
  AND version = $3`

	_, err := execRequiredRows(ctx, tx, query, account.ID, account.Balance, account.Version)
	switch {
	case errors.Is(err, errNoRowsAffected):
		return domain.OptimisticConflict(fmt.Sprintf("Account %d was modified concurrently", account.ID))
	case isSerializationFailure(err):
		return domain.OptimisticConflict(fmt.Sprintf("Account %d was modified concurrently", account.ID))
	case err != nil:
		return fmt.Errorf("update account %d: %w", account.ID, err)
	}

	account.Version++
	return nil
}

func insertEntry(ctx context.Context, tx *sql.Tx, entry domain.LedgerEntry) (domain.LedgerEntry, error) {
	const query = `
INSERT INTO ledger_entries (transfer_id, account_id, amount, entry_type)
VALUES ($1, $2, $3, $4)
RETURNING id, created_at`

	err := tx.QueryRowContext(ctx, query, entry.TransferID, entry.AccountID, entry.Amount, entry.Type).
		Scan(&entry.ID, &entry.CreatedAt)
	if isUniqueViolation(err) {
		return domain.LedgerEntry{}, domain.Conflict(fmt.Sprintf("Transfer %s already applied", entry.TransferID), err)
	}
	if err != nil {
		return domain.LedgerEntry{}, fmt.Errorf("insert %s entry: %w", entry.Type, err)
	}
	return entry, nil
}
