package services

import (
	"context"
	"encoding/json"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/api-sage/transfer-orchestrator/src/internal/adapter/http/models"
	"github.com/api-sage/transfer-orchestrator/src/internal/domain"
	"github.com/api-sage/transfer-orchestrator/src/internal/logger"
	"github.com/api-sage/transfer-orchestrator/src/internal/metrics"
)

// BatchTransfer runs every item through the single-transfer path on a bounded
// pool. Item failures are reported in place and never affect other items.
func (s *TransferService) BatchTransfer(ctx context.Context, idempotencyKey string, requestID string, reqs models.BatchTransferRequest) ([]models.TransferResponse, error) {
	logger.Info("transfer service batch request", logger.Fields{
		"idempotencyKey": idempotencyKey,
		"requestId":      requestID,
		"items":          len(reqs),
	})

	idempotencyKey = strings.TrimSpace(idempotencyKey)
	if idempotencyKey == "" {
		return nil, domain.Validation("Idempotency-Key header is required")
	}
	if err := reqs.Validate(s.opts.BatchMaxItems); err != nil {
		return nil, domain.Validation(err.Error())
	}

	items := make(models.BatchTransferRequest, len(reqs))
	for i, item := range reqs {
		item.TransferID = strings.TrimSpace(item.TransferID)
		items[i] = item
	}

	cached, hit, err := s.idempotency.Find(ctx, idempotencyKey, items)
	if err != nil {
		return nil, err
	}
	if hit {
		var resp []models.TransferResponse
		if err := json.Unmarshal(cached, &resp); err != nil {
			return nil, domain.Internal("Failed to deserialize idempotent response", err)
		}
		metrics.IdempotentReplay("batch")
		return resp, nil
	}

	// Item outcomes are cached, so a client disconnect must not turn
	// in-flight items into failures.
	workCtx := context.WithoutCancel(ctx)

	results := make([]models.TransferResponse, len(items))
	var g errgroup.Group
	g.SetLimit(min(s.opts.BatchWorkers, len(items)))

	for i, item := range items {
		g.Go(func() error {
			results[i] = s.runItem(workCtx, requestID, item)
			return nil
		})
	}
	_ = g.Wait()

	if err := s.idempotency.Save(workCtx, idempotencyKey, items, results); err != nil {
		s.logSaveFailure(idempotencyKey, err)
	}

	logger.Info("transfer service batch completed", logger.Fields{
		"idempotencyKey": idempotencyKey,
		"items":          len(results),
		"failed":         countFailed(results),
	})

	return results, nil
}

func (s *TransferService) runItem(ctx context.Context, requestID string, item models.TransferRequest) models.TransferResponse {
	resp, err := s.execute(ctx, requestID, item)
	if err != nil {
		failed := failedTransfer(item, err)
		s.record(ctx, failed)
		return models.NewTransferResponse(failed)
	}

	s.record(ctx, successTransfer(resp))
	return resp
}

func countFailed(results []models.TransferResponse) int {
	n := 0
	for _, r := range results {
		if r.Status == string(domain.TransferStatusFailed) {
			n++
		}
	}
	return n
}
