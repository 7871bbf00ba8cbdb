package memory

import (
	"context"
	"sync"
	"time"

	"github.com/api-sage/transfer-orchestrator/src/internal/domain"
)

type IdempotencyRepository struct {
	mu      sync.Mutex
	records map[string]domain.IdempotencyRecord
}

func NewIdempotencyRepository() *IdempotencyRepository {
	return &IdempotencyRepository{records: make(map[string]domain.IdempotencyRecord)}
}

func (r *IdempotencyRepository) Get(_ context.Context, key string) (domain.IdempotencyRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.records[key]
	if !ok {
		return domain.IdempotencyRecord{}, domain.ErrRecordNotFound
	}
	record.ResponseBody = append([]byte(nil), record.ResponseBody...)
	return record, nil
}

func (r *IdempotencyRepository) Create(_ context.Context, record domain.IdempotencyRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.records[record.Key]; ok && existing.Live(record.CreatedAt) {
		return domain.ErrDuplicateKey
	}

	record.ResponseBody = append([]byte(nil), record.ResponseBody...)
	r.records[record.Key] = record
	return nil
}

func (r *IdempotencyRepository) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var deleted int64
	for key, record := range r.records {
		if !record.Live(now) {
			delete(r.records, key)
			deleted++
		}
	}
	return deleted, nil
}
