package services

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/api-sage/transfer-orchestrator/src/internal/adapter/repository/repo_interfaces"
	"github.com/api-sage/transfer-orchestrator/src/internal/domain"
	"github.com/api-sage/transfer-orchestrator/src/internal/logger"
)

const DefaultIdempotencyTTL = 24 * time.Hour

type IdempotencyService struct {
	repo           repo_interfaces.IdempotencyRepository
	ttl            time.Duration
	rejectMismatch bool
	now            func() time.Time
}

func NewIdempotencyService(repo repo_interfaces.IdempotencyRepository, ttl time.Duration, rejectMismatch bool) *IdempotencyService {
	if ttl <= 0 {
		ttl = DefaultIdempotencyTTL
	}
	return &IdempotencyService{
		repo:           repo,
		ttl:            ttl,
		rejectMismatch: rejectMismatch,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// Find returns the stored response for key when the record is live and was
// produced by an identical request.
func (s *IdempotencyService) Find(ctx context.Context, key string, request any) ([]byte, bool, error) {
	record, err := s.repo.Get(ctx, key)
	if errors.Is(err, domain.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, domain.Internal("Unable to read idempotency record", err)
	}

	if !record.Live(s.now()) {
		return nil, false, nil
	}

	fingerprint, err := Fingerprint(request)
	if err != nil {
		return nil, false, err
	}
	if record.RequestFingerprint != fingerprint {
		logger.Warn("idempotency key reused with a different request", logger.Fields{
			"idempotencyKey": key,
			"rejected":       s.rejectMismatch,
		})
		if s.rejectMismatch {
			return nil, false, domain.Conflict("Idempotency-Key was already used with a different request", nil)
		}
		return nil, false, nil
	}

	return record.ResponseBody, true, nil
}

// Save stores response under key. A concurrent winner surfaces as
// domain.ErrDuplicateKey.
func (s *IdempotencyService) Save(ctx context.Context, key string, request any, response any) error {
	fingerprint, err := Fingerprint(request)
	if err != nil {
		return err
	}

	body, err := json.Marshal(response)
	if err != nil {
		return domain.Internal("Serialization failed", err)
	}

	now := s.now()
	return s.repo.Create(ctx, domain.IdempotencyRecord{
		Key:                key,
		RequestFingerprint: fingerprint,
		ResponseBody:       body,
		CreatedAt:          now,
		ExpiresAt:          now.Add(s.ttl),
	})
}

func (s *IdempotencyService) PurgeExpired(ctx context.Context) (int64, error) {
	deleted, err := s.repo.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("purge idempotency records: %w", err)
	}
	return deleted, nil
}

// Fingerprint hashes the canonical JSON encoding of request with BLAKE2b-256.
func Fingerprint(request any) (string, error) {
	raw, err := json.Marshal(request)
	if err != nil {
		return "", domain.Internal("Serialization failed", err)
	}
	sum := blake2b.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}
