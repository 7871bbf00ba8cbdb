package repo_interfaces

import (
	"context"

	"github.com/api-sage/transfer-orchestrator/src/internal/domain"
)

type AccountRepository interface {
	Create(ctx context.Context, account domain.Account) (domain.Account, error)
	Get(ctx context.Context, id int64) (domain.Account, error)
}
