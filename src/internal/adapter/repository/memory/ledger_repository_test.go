package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/api-sage/transfer-orchestrator/src/internal/domain"
)

func seed(t *testing.T, repo *LedgerRepository, balances ...int64) []domain.Account {
	t.Helper()

	out := make([]domain.Account, 0, len(balances))
	for i, balance := range balances {
		account, err := repo.Create(context.Background(), domain.Account{Name: fmt.Sprintf("acct-%d", i), Balance: balance})
		require.NoError(t, err)
		out = append(out, account)
	}
	return out
}

func TestTransferMovesBalanceAndWritesBothEntries(t *testing.T) {
	repo := NewLedgerRepository()
	accts := seed(t, repo, 100, 10)

	posting, err := repo.Transfer(context.Background(), "t-1", accts[0].ID, accts[1].ID, 25)
	require.NoError(t, err)
	assert.EqualValues(t, 75, posting.From.Balance)
	assert.EqualValues(t, 35, posting.To.Balance)
	assert.EqualValues(t, 1, posting.From.Version)

	entries, err := repo.EntriesByTransfer(context.Background(), "t-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, domain.LedgerEntryDebit, entries[0].Type)
	assert.Equal(t, accts[0].ID, entries[0].AccountID)
	assert.Equal(t, domain.LedgerEntryCredit, entries[1].Type)
	assert.Equal(t, accts[1].ID, entries[1].AccountID)
	assert.Equal(t, entries[0].Amount, entries[1].Amount)
}

func TestTransferInsufficientFundsWritesNothing(t *testing.T) {
	repo := NewLedgerRepository()
	accts := seed(t, repo, 10, 0)

	_, err := repo.Transfer(context.Background(), "t-2", accts[0].ID, accts[1].ID, 50)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInsufficientFunds))

	entries, err := repo.EntriesByTransfer(context.Background(), "t-2")
	require.NoError(t, err)
	assert.Empty(t, entries)

	from, err := repo.Get(context.Background(), accts[0].ID)
	require.NoError(t, err)
	assert.EqualValues(t, 10, from.Balance)
	assert.Zero(t, from.Version)
}

func TestTransferRejectsBadPreconditions(t *testing.T) {
	repo := NewLedgerRepository()
	accts := seed(t, repo, 10)

	_, err := repo.Transfer(context.Background(), "t-3", accts[0].ID, accts[0].ID, 5)
	assert.True(t, errors.Is(err, domain.ErrConflict))

	_, err = repo.Transfer(context.Background(), "t-4", accts[0].ID, 99, 0)
	assert.True(t, errors.Is(err, domain.ErrConflict))

	_, err = repo.Transfer(context.Background(), "t-5", accts[0].ID, 99, 5)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.Equal(t, "To account not found", err.Error())
}

func TestTransferRejectsDuplicateTransferID(t *testing.T) {
	repo := NewLedgerRepository()
	accts := seed(t, repo, 100, 0)

	_, err := repo.Transfer(context.Background(), "t-6", accts[0].ID, accts[1].ID, 10)
	require.NoError(t, err)

	_, err = repo.Transfer(context.Background(), "t-6", accts[0].ID, accts[1].ID, 10)
	assert.True(t, errors.Is(err, domain.ErrConflict))

	from, _ := repo.Get(context.Background(), accts[0].ID)
	assert.EqualValues(t, 90, from.Balance)
}

func TestTransferDetectsConcurrentModification(t *testing.T) {
	repo := NewLedgerRepository()
	accts := seed(t, repo, 100, 0, 0)

	repo.afterRead = func() {
		repo.afterRead = nil
		_, err := repo.Transfer(context.Background(), "racer", accts[0].ID, accts[2].ID, 1)
		require.NoError(t, err)
	}

	_, err := repo.Transfer(context.Background(), "t-7", accts[0].ID, accts[1].ID, 10)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrOptimisticConflict))

	entries, _ := repo.EntriesByTransfer(context.Background(), "t-7")
	assert.Empty(t, entries)
}

func TestConcurrentTransfersKeepInvariants(t *testing.T) {
	repo := NewLedgerRepository()
	accts := seed(t, repo, 50, 50, 50)

	var wg sync.WaitGroup
	var mu sync.Mutex
	committed := make([]string, 0)

	for i := 0; i < 60; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			from := accts[i%3].ID
			to := accts[(i+1)%3].ID
			id := fmt.Sprintf("c-%d", i)
			if _, err := repo.Transfer(context.Background(), id, from, to, 7); err == nil {
				mu.Lock()
				committed = append(committed, id)
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	var total int64
	for _, a := range accts {
		got, err := repo.Get(context.Background(), a.ID)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, got.Balance, int64(0))
		total += got.Balance
	}
	assert.EqualValues(t, 150, total)

	for _, id := range committed {
		entries, err := repo.EntriesByTransfer(context.Background(), id)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.NotEqual(t, entries[0].AccountID, entries[1].AccountID)
		assert.Equal(t, entries[0].Amount, entries[1].Amount)
	}
}
