package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/api-sage/transfer-orchestrator/src/internal/domain"
	"github.com/api-sage/transfer-orchestrator/src/internal/logger"
)

type AccountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) Create(ctx context.Context, account domain.Account) (domain.Account, error) {
	logger.Info("account repository create", logger.Fields{
		"name":    account.Name,
		"balance": account.Balance,
	})

	const query = `
INSERT INTO accounts (name, balance, version)
VALUES ($1, $2, 0)
RETURNING id, version, created_at`

	if err := r.db.QueryRowContext(ctx, query, account.Name, account.Balance).
		Scan(&account.ID, &account.Version, &account.CreatedAt); err != nil {
		logger.Error("account repository create failed", err, logger.Fields{
			"name": account.Name,
		})
		return domain.Account{}, fmt.Errorf("create account: %w", err)
	}

	logger.Info("account repository create success", logger.Fields{
		"accountId": account.ID,
	})

	return account, nil
}

func (r *AccountRepository) Get(ctx context.Context, id int64) (domain.Account, error) {
	account, err := scanAccount(r.db.QueryRowContext(ctx, selectAccountQuery, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Account{}, domain.ErrRecordNotFound
	}
	if err != nil {
		logger.Error("account repository get failed", err, logger.Fields{
			"accountId": id,
		})
		return domain.Account{}, fmt.Errorf("get account: %w", err)
	}
	return account, nil
}

const selectAccountQuery = `
SELECT id, name, balance, version, created_at
FROM accounts
WHERE id = $1`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (domain.Account, error) {
	var account domain.Account
	if err := row.Scan(&account.ID, &account.Name, &account.Balance, &account.Version, &account.CreatedAt); err != nil {
		return domain.Account{}, err
	}
	return account, nil
}
