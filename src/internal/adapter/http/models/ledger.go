package models

import (
	"time"

	"github.com/api-sage/transfer-orchestrator/src/internal/domain"
)

// PostingRequest is the body of POST /ledger/transfer. Amount and account
// pairing rules are enforced by the ledger itself.
type PostingRequest struct {
	TransferID    string `json:"transferId" validate:"required,max=64"`
	FromAccountID int64  `json:"fromAccountId" validate:"required"`
	ToAccountID   int64  `json:"toAccountId" validate:"required"`
	Amount        int64  `json:"amount"`
}

func (r PostingRequest) Validate() error {
	return validateStruct(r)
}

type LedgerEntryResponse struct {
	ID         int64     `json:"id"`
	TransferID string    `json:"transferId"`
	AccountID  int64     `json:"accountId"`
	Amount     int64     `json:"amount"`
	Type       string    `json:"type"`
	CreatedAt  time.Time `json:"createdAt"`
}

func NewLedgerEntryResponse(e domain.LedgerEntry) LedgerEntryResponse {
	return LedgerEntryResponse{
		ID:         e.ID,
		TransferID: e.TransferID,
		AccountID:  e.AccountID,
		Amount:     e.Amount,
		Type:       string(e.Type),
		CreatedAt:  e.CreatedAt,
	}
}
