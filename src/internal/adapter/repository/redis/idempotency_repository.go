package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/api-sage/transfer-orchestrator/src/internal/domain"
	"github.com/api-sage/transfer-orchestrator/src/internal/logger"
)

type cachedRecord struct {
	Fingerprint string    `json:"fingerprint"`
	Response    []byte    `json:"response"`
	CreatedAt   time.Time `json:"createdAt"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// IdempotencyRepository stores records under idem:v1:<key>. Expiry is left to
// Redis key TTLs.
type IdempotencyRepository struct {
	client *goredis.Client
}

func NewClient(ctx context.Context, addr, password string) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:            addr,
		Password:        password,
		PoolSize:        50,
		MinIdleConns:    5,
		PoolTimeout:     4 * time.Second,
		ConnMaxIdleTime: 5 * time.Minute,
		ConnMaxLifetime: 30 * time.Minute,
		MaxRetries:      3,
		MinRetryBackoff: 8 * time.Millisecond,
		MaxRetryBackoff: 512 * time.Millisecond,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	logger.Info("redis connected", logger.Fields{"addr": addr})
	return client, nil
}

func NewIdempotencyRepository(client *goredis.Client) *IdempotencyRepository {
	return &IdempotencyRepository{client: client}
}

func IdempotencyKey(key string) string {
	return fmt.Sprintf("idem:v1:%s", key)
}

func (r *IdempotencyRepository) Get(ctx context.Context, key string) (domain.IdempotencyRecord, error) {
	data, err := r.client.Get(ctx, IdempotencyKey(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return domain.IdempotencyRecord{}, domain.ErrRecordNotFound
	}
	if err != nil {
		return domain.IdempotencyRecord{}, fmt.Errorf("cache get: %w", err)
	}

	var cached cachedRecord
	if err := json.Unmarshal(data, &cached); err != nil {
		return domain.IdempotencyRecord{}, fmt.Errorf("decode idempotency record: %w", err)
	}

	return domain.IdempotencyRecord{
		Key:                key,
		RequestFingerprint: cached.Fingerprint,
		ResponseBody:       cached.Response,
		CreatedAt:          cached.CreatedAt,
		ExpiresAt:          cached.ExpiresAt,
	}, nil
}

func (r *IdempotencyRepository) Create(ctx context.Context, record domain.IdempotencyRecord) error {
	ttl := record.ExpiresAt.Sub(record.CreatedAt)
	if ttl <= 0 {
		return fmt.Errorf("idempotency record %q already expired", record.Key)
	}

	data, err := json.Marshal(cachedRecord{
		Fingerprint: record.RequestFingerprint,
		Response:    record.ResponseBody,
		CreatedAt:   record.CreatedAt,
		ExpiresAt:   record.ExpiresAt,
	})
	if err != nil {
		return fmt.Errorf("encode idempotency record: %w", err)
	}

	ok, err := r.client.SetNX(ctx, IdempotencyKey(record.Key), data, ttl).Result()
	if err != nil {
		logger.Error("idempotency cache set failed", err, logger.Fields{
			"idempotencyKey": record.Key,
		})
		return fmt.Errorf("cache setnx: %w", err)
	}
	if !ok {
		return domain.ErrDuplicateKey
	}
	return nil
}

func (r *IdempotencyRepository) DeleteExpired(context.Context, time.Time) (int64, error) {
	return 0, nil
}
