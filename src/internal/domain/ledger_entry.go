package domain

import "time"

type LedgerEntryType string

const (
	LedgerEntryDebit  LedgerEntryType = "DEBIT"
	LedgerEntryCredit LedgerEntryType = "CREDIT"
)

// LedgerEntry is append-only. A committed transfer owns exactly one DEBIT and
// one CREDIT entry with equal amounts on distinct accounts.
type LedgerEntry struct {
	ID         int64
	TransferID string
	AccountID  int64
	Amount     int64
	Type       LedgerEntryType
	CreatedAt  time.Time
}

// Posting is the result of a committed ledger transfer.
type Posting struct {
	TransferID string
	From       Account
	To         Account
	Debit      LedgerEntry
	Credit     LedgerEntry
}

// CheckPosting enforces the transfer preconditions that hold before any
// account is read.
func CheckPosting(fromID, toID, amount int64) error {
	if fromID == toID {
		return Conflict("fromAccountId and toAccountId must differ", nil)
	}
	if amount <= 0 {
		return Conflict("amount must be > 0", nil)
	}
	return nil
}
