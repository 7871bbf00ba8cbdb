package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/api-sage/transfer-orchestrator/src/internal/adapter/http/models"
	"github.com/api-sage/transfer-orchestrator/src/internal/adapter/repository/repo_interfaces"
	"github.com/api-sage/transfer-orchestrator/src/internal/domain"
	"github.com/api-sage/transfer-orchestrator/src/internal/logger"
)

type AccountService struct {
	accountRepo repo_interfaces.AccountRepository
}

func NewAccountService(accountRepo repo_interfaces.AccountRepository) *AccountService {
	return &AccountService{accountRepo: accountRepo}
}

func (s *AccountService) CreateAccount(ctx context.Context, req models.CreateAccountRequest) (models.AccountResponse, error) {
	logger.Info("account service create account request", logger.Fields{
		"payload": logger.SanitizePayload(req),
	})

	if err := req.Validate(); err != nil {
		logger.Error("account service create account validation failed", err, nil)
		return models.AccountResponse{}, domain.Validation(err.Error())
	}

	created, err := s.accountRepo.Create(ctx, domain.Account{
		Name:    strings.TrimSpace(req.Name),
		Balance: req.InitialBalance,
	})
	if err != nil {
		return models.AccountResponse{}, domain.Internal("Unable to create account right now", err)
	}

	logger.Info("account service create account success", logger.Fields{
		"accountId": created.ID,
	})
	return models.NewAccountResponse(created), nil
}

func (s *AccountService) GetAccount(ctx context.Context, id int64) (models.AccountResponse, error) {
	if id <= 0 {
		return models.AccountResponse{}, domain.Validation("id must be > 0")
	}

	account, err := s.accountRepo.Get(ctx, id)
	if errors.Is(err, domain.ErrRecordNotFound) {
		return models.AccountResponse{}, domain.NotFound(fmt.Sprintf("Account %d not found", id))
	}
	if err != nil {
		return models.AccountResponse{}, domain.Internal("Unable to fetch account right now", err)
	}

	return models.NewAccountResponse(account), nil
}
