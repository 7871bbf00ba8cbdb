package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/api-sage/transfer-orchestrator/src/internal/adapter/http/models"
	"github.com/api-sage/transfer-orchestrator/src/internal/adapter/repository/repo_interfaces"
	"github.com/api-sage/transfer-orchestrator/src/internal/domain"
	"github.com/api-sage/transfer-orchestrator/src/internal/logger"
	"github.com/api-sage/transfer-orchestrator/src/internal/metrics"
	"github.com/api-sage/transfer-orchestrator/src/internal/usecase/service_interfaces"
)

type TransferOptions struct {
	MaxAttempts   int
	RetryBackoff  time.Duration
	BatchWorkers  int
	BatchMaxItems int
}

type TransferService struct {
	transferRepo repo_interfaces.TransferRepository
	idempotency  *IdempotencyService
	ledger       service_interfaces.LedgerGateway
	publisher    service_interfaces.EventPublisher
	opts         TransferOptions
}

func NewTransferService(
	transferRepo repo_interfaces.TransferRepository,
	idempotency *IdempotencyService,
	ledger service_interfaces.LedgerGateway,
	publisher service_interfaces.EventPublisher,
	opts TransferOptions,
) *TransferService {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 3
	}
	if opts.BatchMaxItems < 1 {
		opts.BatchMaxItems = 20
	}
	if opts.BatchWorkers < 1 {
		opts.BatchWorkers = opts.BatchMaxItems
	}

	return &TransferService{
		transferRepo: transferRepo,
		idempotency:  idempotency,
		ledger:       ledger,
		publisher:    publisher,
		opts:         opts,
	}
}

func (s *TransferService) Transfer(ctx context.Context, idempotencyKey string, requestID string, req models.TransferRequest) (models.TransferResponse, error) {
	logger.Info("transfer service transfer request", logger.Fields{
		"idempotencyKey": idempotencyKey,
		"requestId":      requestID,
		"payload":        logger.SanitizePayload(req),
	})

	idempotencyKey = strings.TrimSpace(idempotencyKey)
	if idempotencyKey == "" {
		return models.TransferResponse{}, domain.Validation("Idempotency-Key header is required")
	}
	if err := req.Validate(); err != nil {
		return models.TransferResponse{}, domain.Validation(err.Error())
	}
	req.TransferID = strings.TrimSpace(req.TransferID)

	cached, hit, err := s.idempotency.Find(ctx, idempotencyKey, req)
	if err != nil {
		return models.TransferResponse{}, err
	}
	if hit {
		var resp models.TransferResponse
		if err := json.Unmarshal(cached, &resp); err != nil {
			return models.TransferResponse{}, domain.Internal("Failed to deserialize idempotent response", err)
		}
		metrics.IdempotentReplay("transfer")
		logger.Info("transfer service idempotent replay", logger.Fields{
			"idempotencyKey": idempotencyKey,
			"transferId":     resp.TransferID,
		})
		return resp, nil
	}

	// Once the ledger may have been reached, the outcome has to be recorded
	// even if the caller is gone.
	workCtx := context.WithoutCancel(ctx)

	resp, err := s.execute(workCtx, requestID, req)
	if err != nil {
		s.record(workCtx, failedTransfer(req, err))
		return models.TransferResponse{}, err
	}

	s.record(workCtx, successTransfer(resp))
	if err := s.idempotency.Save(workCtx, idempotencyKey, req, resp); err != nil {
		s.logSaveFailure(idempotencyKey, err)
	}

	return resp, nil
}

func (s *TransferService) GetTransfer(ctx context.Context, transferID string) (models.TransferResponse, error) {
	transferID = strings.TrimSpace(transferID)
	if transferID == "" {
		return models.TransferResponse{}, domain.Validation("transferId is required")
	}

	transfer, err := s.transferRepo.GetByTransferID(ctx, transferID)
	if errors.Is(err, domain.ErrRecordNotFound) {
		return models.TransferResponse{}, domain.NotFound("Transfer id not found")
	}
	if err != nil {
		return models.TransferResponse{}, domain.Internal("Unable to fetch transfer right now", err)
	}

	return models.NewTransferResponse(transfer), nil
}

// execute runs the ledger call, retrying only on optimistic conflicts.
func (s *TransferService) execute(ctx context.Context, requestID string, req models.TransferRequest) (models.TransferResponse, error) {
	if req.FromAccountID == req.ToAccountID {
		return models.TransferResponse{}, domain.Conflict("fromAccountId and toAccountId must differ", nil)
	}

	posting := models.PostingRequest{
		TransferID:    req.TransferID,
		FromAccountID: req.FromAccountID,
		ToAccountID:   req.ToAccountID,
		Amount:        req.Amount,
	}

	for attempt := 1; attempt <= s.opts.MaxAttempts; attempt++ {
		resp, err := s.ledger.Transfer(ctx, requestID, posting)
		if err == nil {
			return resp, nil
		}
		if !errors.Is(err, domain.ErrOptimisticConflict) {
			return models.TransferResponse{}, err
		}

		logger.Warn("transfer service optimistic conflict", logger.Fields{
			"transferId": req.TransferID,
			"requestId":  requestID,
			"attempt":    attempt,
		})

		if attempt < s.opts.MaxAttempts {
			if err := sleepWithContext(ctx, retryDelay(s.opts.RetryBackoff, attempt-1)); err != nil {
				return models.TransferResponse{}, domain.Unavailable("Transfer retry interrupted", err)
			}
		}
	}

	return models.TransferResponse{}, domain.Conflict(
		fmt.Sprintf("Transfer %s could not be applied after %d attempts due to concurrent updates", req.TransferID, s.opts.MaxAttempts),
		nil,
	)
}

// record writes the audit row and emits the outcome event. Neither failure
// changes what the caller sees.
func (s *TransferService) record(ctx context.Context, transfer domain.Transfer) {
	metrics.TransferRecorded(string(transfer.Status))

	if _, err := s.transferRepo.Record(ctx, transfer); err != nil {
		if errors.Is(err, domain.ErrDuplicateKey) {
			logger.Warn("transfer service audit kept earlier success", logger.Fields{
				"transferId": transfer.TransferID,
				"status":     transfer.Status,
			})
		} else {
			logger.Error("transfer service audit write failed", err, logger.Fields{
				"transferId": transfer.TransferID,
				"status":     transfer.Status,
			})
		}
	}

	if s.publisher == nil {
		return
	}
	event := domain.TransferCompleted{
		EventID:       uuid.NewString(),
		TransferID:    transfer.TransferID,
		Status:        transfer.Status,
		Message:       transfer.Message,
		FromAccountID: transfer.FromAccountID,
		ToAccountID:   transfer.ToAccountID,
		Amount:        transfer.Amount,
		OccurredAt:    time.Now().UTC(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		logger.Error("transfer service publish event failed", err, logger.Fields{
			"transferId": transfer.TransferID,
		})
	}
}

func (s *TransferService) logSaveFailure(key string, err error) {
	if errors.Is(err, domain.ErrDuplicateKey) {
		logger.Warn("transfer service idempotency key already stored", logger.Fields{
			"idempotencyKey": key,
		})
		return
	}
	logger.Error("transfer service idempotency save failed", err, logger.Fields{
		"idempotencyKey": key,
	})
}

func successTransfer(resp models.TransferResponse) domain.Transfer {
	return domain.Transfer{
		TransferID:    resp.TransferID,
		Status:        domain.TransferStatusSuccess,
		Message:       resp.Message,
		FromAccountID: resp.FromAccountID,
		ToAccountID:   resp.ToAccountID,
		Amount:        resp.Amount,
	}
}

func failedTransfer(req models.TransferRequest, err error) domain.Transfer {
	return domain.Transfer{
		TransferID:    req.TransferID,
		Status:        domain.TransferStatusFailed,
		Message:       err.Error(),
		FromAccountID: req.FromAccountID,
		ToAccountID:   req.ToAccountID,
		Amount:        req.Amount,
	}
}
