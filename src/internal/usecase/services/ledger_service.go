package services

import (
	"context"
	"strings"

	"github.com/api-sage/transfer-orchestrator/src/internal/adapter/http/models"
	"github.com/api-sage/transfer-orchestrator/src/internal/adapter/repository/repo_interfaces"
	"github.com/api-sage/transfer-orchestrator/src/internal/domain"
	"github.com/api-sage/transfer-orchestrator/src/internal/logger"
)

type LedgerService struct {
	ledgerRepo repo_interfaces.LedgerRepository
}

func NewLedgerService(ledgerRepo repo_interfaces.LedgerRepository) *LedgerService {
	return &LedgerService{ledgerRepo: ledgerRepo}
}

func (s *LedgerService) ApplyTransfer(ctx context.Context, req models.PostingRequest) (models.TransferResponse, error) {
	logger.Info("ledger service apply transfer request", logger.Fields{
		"payload": logger.SanitizePayload(req),
	})

	if err := req.Validate(); err != nil {
		return models.TransferResponse{}, domain.Validation(err.Error())
	}

	posting, err := s.ledgerRepo.Transfer(ctx, strings.TrimSpace(req.TransferID), req.FromAccountID, req.ToAccountID, req.Amount)
	if err != nil {
		if !domain.IsBusiness(err) {
			logger.Error("ledger service apply transfer failed", err, logger.Fields{
				"transferId": req.TransferID,
			})
		}
		return models.TransferResponse{}, err
	}

	return models.TransferResponse{
		TransferID:    posting.TransferID,
		Status:        string(domain.TransferStatusSuccess),
		Message:       "OK",
		FromAccountID: posting.From.ID,
		ToAccountID:   posting.To.ID,
		Amount:        posting.Debit.Amount,
	}, nil
}

func (s *LedgerService) EntriesByTransfer(ctx context.Context, transferID string) ([]models.LedgerEntryResponse, error) {
	transferID = strings.TrimSpace(transferID)
	if transferID == "" {
		return nil, domain.Validation("transferId is required")
	}

	entries, err := s.ledgerRepo.EntriesByTransfer(ctx, transferID)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, domain.NotFound("No ledger entries for transfer " + transferID)
	}

	out := make([]models.LedgerEntryResponse, 0, len(entries))
	for _, entry := range entries {
		out = append(out, models.NewLedgerEntryResponse(entry))
	}
	return out, nil
}
