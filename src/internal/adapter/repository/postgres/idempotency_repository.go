package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/api-sage/transfer-orchestrator/src/internal/domain"
	"github.com/api-sage/transfer-orchestrator/src/internal/logger"
)

type IdempotencyRepository struct {
	db *sql.DB
}

func NewIdempotencyRepository(db *sql.DB) *IdempotencyRepository {
	return &IdempotencyRepository{db: db}
}

func (r *IdempotencyRepository) Get(ctx context.Context, key string) (domain.IdempotencyRecord, error) {
	const query = `
SELECT idem_key, request_fingerprint, response_body, created_at, expires_at
FROM transfer_idempotency
WHERE idem_key = $1`

	var record domain.IdempotencyRecord
	err := r.db.QueryRowContext(ctx, query, key).Scan(
		&record.Key,
		&record.RequestFingerprint,
		&record.ResponseBody,
		&record.CreatedAt,
		&record.ExpiresAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.IdempotencyRecord{}, domain.ErrRecordNotFound
	}
	if err != nil {
		return domain.IdempotencyRecord{}, fmt.Errorf("get idempotency record: %w", err)
	}

	return record, nil
}

func (r *IdempotencyRepository) Create(ctx context.Context, record domain.IdempotencyRecord) error {
	// Only an expired record may be overwritten; a live one keeps the key.
	const query = `
INSERT INTO transfer_idempotency (
	idem_key,
	request_fingerprint,
	response_body,
	created_at,
	expires_at
) VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (idem_key) DO UPDATE
SET request_fingerprint = EXCLUDED.request_fingerprint,
    response_body = EXCLUDED.response_body,
    created_at = EXCLUDED.created_at,
    expires_at = EXCLUDED.expires_at
WHERE transfer_idempotency.expires_at <= EXCLUDED.created_at`

	result, err := r.db.ExecContext(
		ctx,
		query,
		record.Key,
		record.RequestFingerprint,
		record.ResponseBody,
		record.CreatedAt,
		record.ExpiresAt,
	)
	if isUniqueViolation(err) {
		return domain.ErrDuplicateKey
	}
	if err != nil {
		logger.Error("idempotency repository create failed", err, logger.Fields{
			"idempotencyKey": record.Key,
		})
		return fmt.Errorf("create idempotency record: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("read rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrDuplicateKey
	}

	return nil
}

func (r *IdempotencyRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM transfer_idempotency WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired idempotency records: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("read rows affected: %w", err)
	}
	return rows, nil
}
