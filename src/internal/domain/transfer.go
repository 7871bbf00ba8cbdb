package domain

import "time"

type TransferStatus string

const (
	TransferStatusSuccess TransferStatus = "SUCCESS"
	TransferStatusFailed  TransferStatus = "FAILED"
)

// Transfer is the orchestrator-side audit record of one attempted transfer.
type Transfer struct {
	ID            int64
	TransferID    string
	Status        TransferStatus
	Message       string
	FromAccountID int64
	ToAccountID   int64
	Amount        int64
	CreatedAt     time.Time
}

// TransferCompleted is emitted once per recorded terminal outcome.
type TransferCompleted struct {
	EventID       string         `json:"eventId"`
	TransferID    string         `json:"transferId"`
	Status        TransferStatus `json:"status"`
	Message       string         `json:"message"`
	FromAccountID int64          `json:"fromAccountId"`
	ToAccountID   int64          `json:"toAccountId"`
	Amount        int64          `json:"amount"`
	OccurredAt    time.Time      `json:"occurredAt"`
}
