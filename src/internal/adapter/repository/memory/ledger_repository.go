package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/api-sage/transfer-orchestrator/src/internal/domain"
)

// LedgerRepository keeps accounts and ledger entries in process. Transfers
// read a snapshot, then commit with the same version check the SQL store uses.
type LedgerRepository struct {
	mu       sync.Mutex
	nextID   int64
	entryID  int64
	accounts map[int64]domain.Account
	entries  []domain.LedgerEntry
	applied  map[string]struct{}

	// afterRead runs between the snapshot and the commit.
	afterRead func()
}

func NewLedgerRepository() *LedgerRepository {
	return &LedgerRepository{
		accounts: make(map[int64]domain.Account),
		applied:  make(map[string]struct{}),
	}
}

func (r *LedgerRepository) Create(_ context.Context, account domain.Account) (domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	account.ID = r.nextID
	account.Version = 0
	account.CreatedAt = time.Now().UTC()
	r.accounts[account.ID] = account

	return account, nil
}

func (r *LedgerRepository) Get(_ context.Context, id int64) (domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	account, ok := r.accounts[id]
	if !ok {
		return domain.Account{}, domain.ErrRecordNotFound
	}
	return account, nil
}

func (r *LedgerRepository) Transfer(_ context.Context, transferID string, fromID, toID, amount int64) (domain.Posting, error) {
	if err := domain.CheckPosting(fromID, toID, amount); err != nil {
		return domain.Posting{}, err
	}

	r.mu.Lock()
	from, fromOK := r.accounts[fromID]
	to, toOK := r.accounts[toID]
	r.mu.Unlock()

	if !fromOK {
		return domain.Posting{}, domain.NotFound("From account not found")
	}
	if !toOK {
		return domain.Posting{}, domain.NotFound("To account not found")
	}
	if from.Balance < amount {
		return domain.Posting{}, domain.InsufficientFunds("Insufficient funds")
	}

	if r.afterRead != nil {
		r.afterRead()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, read := range []domain.Account{from, to} {
		if r.accounts[read.ID].Version != read.Version {
			return domain.Posting{}, domain.OptimisticConflict(fmt.Sprintf("Account %d was modified concurrently", read.ID))
		}
	}
	if _, ok := r.applied[transferID]; ok {
		return domain.Posting{}, domain.Conflict(fmt.Sprintf("Transfer %s already applied", transferID), nil)
	}

	from.Balance -= amount
	from.Version++
	to.Balance += amount
	to.Version++
	r.accounts[from.ID] = from
	r.accounts[to.ID] = to

	now := time.Now().UTC()
	debit := r.appendEntry(domain.LedgerEntry{TransferID: transferID, AccountID: from.ID, Amount: amount, Type: domain.LedgerEntryDebit, CreatedAt: now})
	credit := r.appendEntry(domain.LedgerEntry{TransferID: transferID, AccountID: to.ID, Amount: amount, Type: domain.LedgerEntryCredit, CreatedAt: now})
	r.applied[transferID] = struct{}{}

	return domain.Posting{
		TransferID: transferID,
		From:       from,
		To:         to,
		Debit:      debit,
		Credit:     credit,
	}, nil
}

func (r *LedgerRepository) EntriesByTransfer(_ context.Context, transferID string) ([]domain.LedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.LedgerEntry, 0, 2)
	for _, entry := range r.entries {
		if entry.TransferID == transferID {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (r *LedgerRepository) appendEntry(entry domain.LedgerEntry) domain.LedgerEntry {
	r.entryID++
	entry.ID = r.entryID
	r.entries = append(r.entries, entry)
	return entry
}
