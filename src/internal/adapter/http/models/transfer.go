package models

import (
	"errors"
	"fmt"
	"strings"

	"github.com/api-sage/transfer-orchestrator/src/internal/domain"
)

type TransferRequest struct {
	TransferID    string `json:"transferId" validate:"required,max=64,printascii"`
	FromAccountID int64  `json:"fromAccountId" validate:"required,gt=0"`
	ToAccountID   int64  `json:"toAccountId" validate:"required,gt=0"`
	Amount        int64  `json:"amount" validate:"gt=0"`
}

// Validate checks shape only. Same-account requests are a business conflict
// and are rejected later so they leave an audit record.
func (r TransferRequest) Validate() error {
	r.TransferID = strings.TrimSpace(r.TransferID)
	return validateStruct(r)
}

type TransferResponse struct {
	TransferID    string `json:"transferId"`
	Status        string `json:"status"`
	Message       string `json:"message"`
	FromAccountID int64  `json:"fromAccountId"`
	ToAccountID   int64  `json:"toAccountId"`
	Amount        int64  `json:"amount"`
}

func NewTransferResponse(t domain.Transfer) TransferResponse {
	return TransferResponse{
		TransferID:    t.TransferID,
		Status:        string(t.Status),
		Message:       t.Message,
		FromAccountID: t.FromAccountID,
		ToAccountID:   t.ToAccountID,
		Amount:        t.Amount,
	}
}

type BatchTransferRequest []TransferRequest

func (b BatchTransferRequest) Validate(maxItems int) error {
	if len(b) == 0 {
		return errors.New("batch must contain at least 1 transfer")
	}
	if len(b) > maxItems {
		return fmt.Errorf("batch must contain at most %d transfers", maxItems)
	}

	var errs []string
	seen := make(map[string]int, len(b))
	for i, item := range b {
		if err := item.Validate(); err != nil {
			errs = append(errs, fmt.Sprintf("[%d] %s", i, err.Error()))
			continue
		}
		if prev, ok := seen[item.TransferID]; ok {
			errs = append(errs, fmt.Sprintf("[%d] transferId duplicates item %d", i, prev))
			continue
		}
		seen[item.TransferID] = i
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}
