package memory

import (
	"context"
	"sync"
	"time"

	"github.com/api-sage/transfer-orchestrator/src/internal/domain"
)

type TransferRepository struct {
	mu        sync.Mutex
	nextID    int64
	transfers map[string]domain.Transfer
}

func NewTransferRepository() *TransferRepository {
	return &TransferRepository{transfers: make(map[string]domain.Transfer)}
}

func (r *TransferRepository) Record(_ context.Context, transfer domain.Transfer) (domain.Transfer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.transfers[transfer.TransferID]
	if ok && existing.Status != domain.TransferStatusFailed {
		return domain.Transfer{}, domain.ErrDuplicateKey
	}

	if ok {
		transfer.ID = existing.ID
	} else {
		r.nextID++
		transfer.ID = r.nextID
	}
	transfer.CreatedAt = time.Now().UTC()
	r.transfers[transfer.TransferID] = transfer

	return transfer, nil
}

func (r *TransferRepository) GetByTransferID(_ context.Context, transferID string) (domain.Transfer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	transfer, ok := r.transfers[transferID]
	if !ok {
		return domain.Transfer{}, domain.ErrRecordNotFound
	}
	return transfer, nil
}
