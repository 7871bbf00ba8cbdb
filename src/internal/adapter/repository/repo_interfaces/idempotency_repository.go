package repo_interfaces

import (
	"context"
	"time"

	"github.com/api-sage/transfer-orchestrator/src/internal/domain"
)

type IdempotencyRepository interface {
	Get(ctx context.Context, key string) (domain.IdempotencyRecord, error)
	// Create fails with domain.ErrDuplicateKey while a live record holds the key.
	// An expired record is overwritten.
	Create(ctx context.Context, record domain.IdempotencyRecord) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
