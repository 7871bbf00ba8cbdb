package ledgerclient

import (
	"context"
	"errors"

	"github.com/api-sage/transfer-orchestrator/src/internal/adapter/http/models"
	"github.com/api-sage/transfer-orchestrator/src/internal/circuitbreaker"
	"github.com/api-sage/transfer-orchestrator/src/internal/config"
	"github.com/api-sage/transfer-orchestrator/src/internal/domain"
	"github.com/api-sage/transfer-orchestrator/src/internal/logger"
	"github.com/api-sage/transfer-orchestrator/src/internal/metrics"
)

const UnavailableMessage = "Ledger service temporarily unavailable. Please retry later."

type Transferer interface {
	Transfer(ctx context.Context, requestID string, req models.PostingRequest) (models.TransferResponse, error)
}

// Guarded puts a circuit breaker in front of a Transferer.
type Guarded struct {
	next    Transferer
	breaker *circuitbreaker.Breaker
}

func NewGuarded(next Transferer, cfg config.BreakerConfig) *Guarded {
	breaker := circuitbreaker.New(circuitbreaker.Config{
		Name:          "ledger",
		WindowSize:    cfg.WindowSize,
		FailureRate:   cfg.FailureRate,
		MinCalls:      cfg.MinCalls,
		WaitDuration:  cfg.WaitDuration,
		HalfOpenCalls: cfg.HalfOpenCalls,
		PassThrough:   domain.IsBusiness,
		Ignore:        isCallerDone,
		Fallback:      fallback,
		OnStateChange: func(name string, _ circuitbreaker.State, to circuitbreaker.State) {
			metrics.BreakerState(name, string(to))
		},
	})
	metrics.BreakerState(breaker.Name(), string(breaker.State()))

	return &Guarded{next: next, breaker: breaker}
}

func (g *Guarded) Transfer(ctx context.Context, requestID string, req models.PostingRequest) (models.TransferResponse, error) {
	return circuitbreaker.Call(g.breaker, func() (models.TransferResponse, error) {
		resp, err := g.next.Transfer(ctx, requestID, req)
		if err != nil && ctx.Err() != nil {
			return resp, &callerDoneError{err: err}
		}
		return resp, err
	})
}

// callerDoneError marks a failure caused by the caller's own context ending,
// not by the ledger.
type callerDoneError struct {
	err error
}

func (e *callerDoneError) Error() string { return e.err.Error() }
func (e *callerDoneError) Unwrap() error { return e.err }

func isCallerDone(err error) bool {
	var done *callerDoneError
	return errors.As(err, &done)
}

func (g *Guarded) State() circuitbreaker.State {
	return g.breaker.State()
}

func fallback(err error) error {
	fields := logger.Fields{"shortCircuit": circuitbreaker.IsShortCircuit(err)}
	logger.Error("ledger call degraded to fallback", err, fields)
	return domain.Unavailable(UnavailableMessage, err)
}
