package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/api-sage/transfer-orchestrator/src/internal/adapter/http/models"
	"github.com/api-sage/transfer-orchestrator/src/internal/adapter/repository/memory"
	"github.com/api-sage/transfer-orchestrator/src/internal/domain"
)

type inProcessLedger struct {
	svc   *LedgerService
	calls atomic.Int32
}

func (l *inProcessLedger) Transfer(ctx context.Context, _ string, req models.PostingRequest) (models.TransferResponse, error) {
	l.calls.Add(1)
	return l.svc.ApplyTransfer(ctx, req)
}

type scriptedLedger struct {
	mu         sync.Mutex
	errs       []error
	calls      int
	requestIDs []string
}

func (l *scriptedLedger) Transfer(_ context.Context, requestID string, req models.PostingRequest) (models.TransferResponse, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.calls++
	l.requestIDs = append(l.requestIDs, requestID)
	if idx := l.calls - 1; idx < len(l.errs) && l.errs[idx] != nil {
		return models.TransferResponse{}, l.errs[idx]
	}
	return models.TransferResponse{
		TransferID:    req.TransferID,
		Status:        "SUCCESS",
		Message:       "OK",
		FromAccountID: req.FromAccountID,
		ToAccountID:   req.ToAccountID,
		Amount:        req.Amount,
	}, nil
}

type capturingPublisher struct {
	mu     sync.Mutex
	events []domain.TransferCompleted
}

func (p *capturingPublisher) Publish(_ context.Context, event domain.TransferCompleted) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

type fixture struct {
	ledgerRepo  *memory.LedgerRepository
	ledger      *inProcessLedger
	transfers   *memory.TransferRepository
	idempotency *IdempotencyService
	publisher   *capturingPublisher
	svc         *TransferService
	accounts    []domain.Account
}

func newFixture(t *testing.T, balances ...int64) *fixture {
	t.Helper()

	f := &fixture{
		ledgerRepo: memory.NewLedgerRepository(),
		transfers:  memory.NewTransferRepository(),
		publisher:  &capturingPublisher{},
	}
	for i, b := range balances {
		acct, err := f.ledgerRepo.Create(context.Background(), domain.Account{Name: fmt.Sprintf("acct-%d", i), Balance: b})
		require.NoError(t, err)
		f.accounts = append(f.accounts, acct)
	}

	f.ledger = &inProcessLedger{svc: NewLedgerService(f.ledgerRepo)}
	f.idempotency = NewIdempotencyService(memory.NewIdempotencyRepository(), 24*time.Hour, true)
	f.svc = NewTransferService(f.transfers, f.idempotency, f.ledger, f.publisher, TransferOptions{
		MaxAttempts:   3,
		BatchWorkers:  4,
		BatchMaxItems: 20,
	})
	return f
}

func (f *fixture) balance(t *testing.T, i int) int64 {
	t.Helper()
	acct, err := f.ledgerRepo.Get(context.Background(), f.accounts[i].ID)
	require.NoError(t, err)
	return acct.Balance
}

func newScriptedService(ledger *scriptedLedger) (*TransferService, *memory.TransferRepository) {
	transfers := memory.NewTransferRepository()
	idem := NewIdempotencyService(memory.NewIdempotencyRepository(), time.Hour, true)
	return NewTransferService(transfers, idem, ledger, nil, TransferOptions{MaxAttempts: 3}), transfers
}

func TestTransferScenarioMovesFunds(t *testing.T) {
	f := newFixture(t, 100, 10)
	req := models.TransferRequest{TransferID: "t-1", FromAccountID: f.accounts[0].ID, ToAccountID: f.accounts[1].ID, Amount: 25}

	resp, err := f.svc.Transfer(context.Background(), "key-1", "req-1", req)
	require.NoError(t, err)
	assert.Equal(t, "SUCCESS", resp.Status)
	assert.EqualValues(t, 75, f.balance(t, 0))
	assert.EqualValues(t, 35, f.balance(t, 1))

	entries, err := f.ledgerRepo.EntriesByTransfer(context.Background(), "t-1")
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	audit, err := f.transfers.GetByTransferID(context.Background(), "t-1")
	require.NoError(t, err)
	assert.Equal(t, domain.TransferStatusSuccess, audit.Status)

	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, domain.TransferStatusSuccess, f.publisher.events[0].Status)
}

func TestTransferIsIdempotent(t *testing.T) {
	f := newFixture(t, 100, 10)
	req := models.TransferRequest{TransferID: "t-1", FromAccountID: f.accounts[0].ID, ToAccountID: f.accounts[1].ID, Amount: 25}

	first, err := f.svc.Transfer(context.Background(), "key-1", "", req)
	require.NoError(t, err)
	second, err := f.svc.Transfer(context.Background(), "key-1", "", req)
	require.NoError(t, err)

	firstBytes, _ := json.Marshal(first)
	secondBytes, _ := json.Marshal(second)
	assert.Equal(t, firstBytes, secondBytes)

	assert.EqualValues(t, 1, f.ledger.calls.Load())
	assert.EqualValues(t, 75, f.balance(t, 0))
	entries, _ := f.ledgerRepo.EntriesByTransfer(context.Background(), "t-1")
	assert.Len(t, entries, 2)
}

func TestTransferRejectsKeyReuseWithDifferentPayload(t *testing.T) {
	f := newFixture(t, 100, 10)
	req := models.TransferRequest{TransferID: "t-1", FromAccountID: f.accounts[0].ID, ToAccountID: f.accounts[1].ID, Amount: 25}

	_, err := f.svc.Transfer(context.Background(), "key-1", "", req)
	require.NoError(t, err)

	req.Amount = 30
	_, err = f.svc.Transfer(context.Background(), "key-1", "", req)
	require.Error(t, err)
	assert.Equal(t, domain.CodeConflict, domain.CodeOf(err))
	assert.EqualValues(t, 1, f.ledger.calls.Load())
}

func TestTransferKeyReuseIsMissWhenMismatchAllowed(t *testing.T) {
	f := newFixture(t, 100, 10)
	f.idempotency.rejectMismatch = false
	req := models.TransferRequest{TransferID: "t-1", FromAccountID: f.accounts[0].ID, ToAccountID: f.accounts[1].ID, Amount: 25}

	_, err := f.svc.Transfer(context.Background(), "key-1", "", req)
	require.NoError(t, err)

	req.TransferID = "t-2"
	resp, err := f.svc.Transfer(context.Background(), "key-1", "", req)
	require.NoError(t, err)
	assert.Equal(t, "t-2", resp.TransferID)
	assert.EqualValues(t, 2, f.ledger.calls.Load())
}

func TestTransferExpiredKeyExecutesAgain(t *testing.T) {
	f := newFixture(t, 100, 10)
	req := models.TransferRequest{TransferID: "t-1", FromAccountID: f.accounts[0].ID, ToAccountID: f.accounts[1].ID, Amount: 25}

	_, err := f.svc.Transfer(context.Background(), "key-1", "", req)
	require.NoError(t, err)

	f.idempotency.now = func() time.Time { return time.Now().UTC().Add(25 * time.Hour) }

	_, err = f.svc.Transfer(context.Background(), "key-1", "", req)
	require.Error(t, err, "ledger refuses the already applied transfer id")
	assert.Equal(t, domain.CodeConflict, domain.CodeOf(err))
	assert.EqualValues(t, 2, f.ledger.calls.Load())

	audit, err := f.transfers.GetByTransferID(context.Background(), "t-1")
	require.NoError(t, err)
	assert.Equal(t, domain.TransferStatusSuccess, audit.Status, "a success audit is never replaced")
}

func TestTransferRetriesOptimisticConflict(t *testing.T) {
	ledger := &scriptedLedger{errs: []error{
		domain.OptimisticConflict("stale"),
		domain.OptimisticConflict("stale"),
	}}
	svc, transfers := newScriptedService(ledger)

	resp, err := svc.Transfer(context.Background(), "key-1", "req-7", models.TransferRequest{TransferID: "t-1", FromAccountID: 1, ToAccountID: 2, Amount: 5})
	require.NoError(t, err)
	assert.Equal(t, "SUCCESS", resp.Status)
	assert.Equal(t, 3, ledger.calls)
	assert.Equal(t, []string{"req-7", "req-7", "req-7"}, ledger.requestIDs)

	audit, err := transfers.GetByTransferID(context.Background(), "t-1")
	require.NoError(t, err)
	assert.Equal(t, domain.TransferStatusSuccess, audit.Status)
}

func TestTransferRetryExhaustionIsConflict(t *testing.T) {
	ledger := &scriptedLedger{errs: []error{
		domain.OptimisticConflict("stale"),
		domain.OptimisticConflict("stale"),
		domain.OptimisticConflict("stale"),
	}}
	svc, transfers := newScriptedService(ledger)
	req := models.TransferRequest{TransferID: "t-1", FromAccountID: 1, ToAccountID: 2, Amount: 5}

	_, err := svc.Transfer(context.Background(), "key-1", "", req)
	require.Error(t, err)
	assert.Equal(t, domain.CodeConflict, domain.CodeOf(err))
	assert.Equal(t, 3, ledger.calls)

	audit, err := transfers.GetByTransferID(context.Background(), "t-1")
	require.NoError(t, err)
	assert.Equal(t, domain.TransferStatusFailed, audit.Status)

	// failures are not cached, so the same key reaches the ledger again
	_, err = svc.Transfer(context.Background(), "key-1", "", req)
	require.NoError(t, err)
	assert.Equal(t, 4, ledger.calls)
}

func TestTransferInsufficientFundsIsNotRetried(t *testing.T) {
	f := newFixture(t, 10, 0)
	req := models.TransferRequest{TransferID: "t-2", FromAccountID: f.accounts[0].ID, ToAccountID: f.accounts[1].ID, Amount: 50}

	_, err := f.svc.Transfer(context.Background(), "key-2", "", req)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInsufficientFunds))
	assert.EqualValues(t, 1, f.ledger.calls.Load())

	entries, _ := f.ledgerRepo.EntriesByTransfer(context.Background(), "t-2")
	assert.Empty(t, entries)

	audit, err := f.transfers.GetByTransferID(context.Background(), "t-2")
	require.NoError(t, err)
	assert.Equal(t, domain.TransferStatusFailed, audit.Status)
	assert.Equal(t, "Insufficient funds", audit.Message)

	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, domain.TransferStatusFailed, f.publisher.events[0].Status)
}

func TestTransferSameAccountNeverReachesLedger(t *testing.T) {
	ledger := &scriptedLedger{}
	svc, transfers := newScriptedService(ledger)

	_, err := svc.Transfer(context.Background(), "key-3", "", models.TransferRequest{TransferID: "t-3", FromAccountID: 4, ToAccountID: 4, Amount: 5})
	require.Error(t, err)
	assert.Equal(t, domain.CodeConflict, domain.CodeOf(err))
	assert.Zero(t, ledger.calls)

	audit, err := transfers.GetByTransferID(context.Background(), "t-3")
	require.NoError(t, err)
	assert.Equal(t, domain.TransferStatusFailed, audit.Status)
}

func TestTransferUnavailableIsRecordedFailed(t *testing.T) {
	ledger := &scriptedLedger{errs: []error{domain.Unavailable("Ledger service temporarily unavailable. Please retry later.", errors.New("open"))}}
	svc, transfers := newScriptedService(ledger)

	_, err := svc.Transfer(context.Background(), "key-4", "", models.TransferRequest{TransferID: "t-4", FromAccountID: 1, ToAccountID: 2, Amount: 5})
	require.Error(t, err)
	assert.Equal(t, domain.CodeUnavailable, domain.CodeOf(err))
	assert.Equal(t, 1, ledger.calls)

	audit, err := transfers.GetByTransferID(context.Background(), "t-4")
	require.NoError(t, err)
	assert.Equal(t, domain.TransferStatusFailed, audit.Status)
}

func TestTransferValidation(t *testing.T) {
	svc, _ := newScriptedService(&scriptedLedger{})

	_, err := svc.Transfer(context.Background(), " ", "", models.TransferRequest{TransferID: "t", FromAccountID: 1, ToAccountID: 2, Amount: 1})
	assert.Equal(t, domain.CodeValidation, domain.CodeOf(err))

	_, err = svc.Transfer(context.Background(), "k", "", models.TransferRequest{TransferID: "t", FromAccountID: 1, ToAccountID: 2, Amount: 0})
	assert.Equal(t, domain.CodeValidation, domain.CodeOf(err))
}

func TestGetTransfer(t *testing.T) {
	ledger := &scriptedLedger{}
	svc, _ := newScriptedService(ledger)

	_, err := svc.GetTransfer(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, domain.CodeNotFound, domain.CodeOf(err))
	assert.Equal(t, "Transfer id not found", err.Error())

	_, err = svc.Transfer(context.Background(), "k", "", models.TransferRequest{TransferID: "t-9", FromAccountID: 1, ToAccountID: 2, Amount: 7})
	require.NoError(t, err)

	got, err := svc.GetTransfer(context.Background(), "t-9")
	require.NoError(t, err)
	assert.Equal(t, "SUCCESS", got.Status)
	assert.EqualValues(t, 7, got.Amount)
}

// ctxTransferRepository fails like a database driver once its context ends.
type ctxTransferRepository struct {
	*memory.TransferRepository
}

func (r ctxTransferRepository) Record(ctx context.Context, transfer domain.Transfer) (domain.Transfer, error) {
	if err := ctx.Err(); err != nil {
		return domain.Transfer{}, err
	}
	return r.TransferRepository.Record(ctx, transfer)
}

type ctxIdempotencyRepository struct {
	*memory.IdempotencyRepository
}

func (r ctxIdempotencyRepository) Create(ctx context.Context, record domain.IdempotencyRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.IdempotencyRepository.Create(ctx, record)
}

// disconnectingLedger commits the posting and then loses its caller.
type disconnectingLedger struct {
	scriptedLedger
	cancel context.CancelFunc
}

func (l *disconnectingLedger) Transfer(ctx context.Context, requestID string, req models.PostingRequest) (models.TransferResponse, error) {
	resp, err := l.scriptedLedger.Transfer(ctx, requestID, req)
	l.cancel()
	return resp, err
}

func TestTransferOutcomeSurvivesCallerDisconnect(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ledger := &disconnectingLedger{cancel: cancel}
	transfers := ctxTransferRepository{memory.NewTransferRepository()}
	idem := NewIdempotencyService(ctxIdempotencyRepository{memory.NewIdempotencyRepository()}, time.Hour, true)
	svc := NewTransferService(transfers, idem, ledger, nil, TransferOptions{MaxAttempts: 3})
	req := models.TransferRequest{TransferID: "t-x", FromAccountID: 1, ToAccountID: 2, Amount: 5}

	resp, err := svc.Transfer(ctx, "key-x", "", req)
	require.NoError(t, err)
	assert.Equal(t, "SUCCESS", resp.Status)
	require.Error(t, ctx.Err())

	audit, err := transfers.GetByTransferID(context.Background(), "t-x")
	require.NoError(t, err)
	assert.Equal(t, domain.TransferStatusSuccess, audit.Status)

	replay, err := svc.Transfer(context.Background(), "key-x", "", req)
	require.NoError(t, err)
	assert.Equal(t, resp, replay)
	assert.Equal(t, 1, ledger.calls)
}

// gatedLedger holds every caller until all of them have arrived.
type gatedLedger struct {
	next    *inProcessLedger
	callers int32
	seen    atomic.Int32
	arrived sync.WaitGroup
}

func (l *gatedLedger) Transfer(ctx context.Context, requestID string, req models.PostingRequest) (models.TransferResponse, error) {
	if l.seen.Add(1) <= l.callers {
		l.arrived.Done()
		l.arrived.Wait()
	}
	return l.next.Transfer(ctx, requestID, req)
}

func TestTransferConcurrentSameKeyOneWins(t *testing.T) {
	f := newFixture(t, 100, 10)
	gate := &gatedLedger{next: f.ledger, callers: 2}
	gate.arrived.Add(2)
	svc := NewTransferService(f.transfers, f.idempotency, gate, nil, TransferOptions{MaxAttempts: 3})
	req := models.TransferRequest{TransferID: "t-1", FromAccountID: f.accounts[0].ID, ToAccountID: f.accounts[1].ID, Amount: 25}

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = svc.Transfer(context.Background(), "key-1", "", req)
		}()
	}
	wg.Wait()

	var won, lost int
	for _, err := range errs {
		if err == nil {
			won++
			continue
		}
		lost++
		assert.Equal(t, domain.CodeConflict, domain.CodeOf(err))
		assert.Contains(t, err.Error(), "already applied")
	}
	assert.Equal(t, 1, won)
	assert.Equal(t, 1, lost)
	assert.EqualValues(t, 75, f.balance(t, 0))

	audit, err := f.transfers.GetByTransferID(context.Background(), "t-1")
	require.NoError(t, err)
	assert.Equal(t, domain.TransferStatusSuccess, audit.Status)

	// the loser may have retried an optimistic conflict first
	calls := f.ledger.calls.Load()
	assert.GreaterOrEqual(t, calls, int32(2))

	replay, err := svc.Transfer(context.Background(), "key-1", "", req)
	require.NoError(t, err)
	assert.Equal(t, "SUCCESS", replay.Status)
	assert.Equal(t, calls, f.ledger.calls.Load())
}
