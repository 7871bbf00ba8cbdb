package circuitbreaker

import (
	"errors"
	"time"

	"github.com/sony/gobreaker"

	"github.com/api-sage/transfer-orchestrator/src/internal/logger"
)

type State string

const (
	StateClosed   State = "CLOSED"
	StateOpen     State = "OPEN"
	StateHalfOpen State = "HALF_OPEN"
)

// Config describes a count-based breaker. FailureRate is a percentage.
type Config struct {
	Name          string
	WindowSize    int
	FailureRate   float64
	MinCalls      int
	WaitDuration  time.Duration
	HalfOpenCalls int

	// PassThrough marks errors that are returned unchanged and recorded as
	// successful calls.
	PassThrough func(error) bool
	// Ignore marks failures the downstream did not cause, such as the caller
	// giving up. They are returned unchanged and never enter the window.
	Ignore func(error) bool
	// Fallback translates every other failure, including short-circuits.
	Fallback func(error) error

	OnStateChange func(name string, from, to State)
}

type Breaker struct {
	cfg    Config
	cb     *gobreaker.CircuitBreaker
	window *window
}

func New(cfg Config) *Breaker {
	if cfg.WindowSize < 1 {
		cfg.WindowSize = 5
	}
	if cfg.MinCalls < 1 {
		cfg.MinCalls = cfg.WindowSize
	}
	if cfg.FailureRate <= 0 {
		cfg.FailureRate = 50
	}
	if cfg.HalfOpenCalls < 1 {
		cfg.HalfOpenCalls = 3
	}
	if cfg.WaitDuration <= 0 {
		cfg.WaitDuration = 10 * time.Second
	}

	b := &Breaker{
		cfg:    cfg,
		window: newWindow(cfg.WindowSize),
	}

	b.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: uint32(cfg.HalfOpenCalls),
		Timeout:     cfg.WaitDuration,
		ReadyToTrip: func(gobreaker.Counts) bool {
			calls, rate := b.window.snapshot()
			return calls >= cfg.MinCalls && rate >= cfg.FailureRate
		},
		IsSuccessful: b.isSuccessful,
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			b.window.reset()

			logger.Warn("circuit breaker state changed", logger.Fields{
				"breaker": name,
				"from":    toState(from),
				"to":      toState(to),
			})
			if cfg.OnStateChange != nil {
				cfg.OnStateChange(name, toState(from), toState(to))
			}
		},
	})

	return b
}

// Execute runs fn through the breaker. While OPEN, fn is not called.
func (b *Breaker) Execute(fn func() (any, error)) (any, error) {
	result, err := b.cb.Execute(func() (any, error) {
		res, err := fn()
		if b.cb.State() == gobreaker.StateClosed && !b.ignored(err) {
			b.window.record(!b.isSuccessful(err))
		}
		return res, err
	})
	if err == nil {
		return result, nil
	}

	if b.ignored(err) {
		return result, err
	}
	if b.cfg.PassThrough != nil && b.cfg.PassThrough(err) {
		return result, err
	}
	if b.cfg.Fallback != nil {
		return result, b.cfg.Fallback(err)
	}
	return result, err
}

// Call is Execute with a typed result.
func Call[T any](b *Breaker, fn func() (T, error)) (T, error) {
	res, err := b.Execute(func() (any, error) {
		return fn()
	})

	var zero T
	if res == nil {
		return zero, err
	}
	typed, ok := res.(T)
	if !ok {
		return zero, err
	}
	return typed, err
}

func (b *Breaker) State() State {
	return toState(b.cb.State())
}

func (b *Breaker) Name() string {
	return b.cb.Name()
}

// IsShortCircuit reports whether err was produced by the breaker itself
// rather than by the guarded call.
func IsShortCircuit(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

// isSuccessful feeds gobreaker's half-open accounting. gobreaker v1 cannot
// exclude a call, so ignored failures count as successes there.
func (b *Breaker) isSuccessful(err error) bool {
	if err == nil || b.ignored(err) {
		return true
	}
	return b.cfg.PassThrough != nil && b.cfg.PassThrough(err)
}

func (b *Breaker) ignored(err error) bool {
	return err != nil && b.cfg.Ignore != nil && b.cfg.Ignore(err)
}

func toState(s gobreaker.State) State {
	switch s {
	case gobreaker.StateOpen:
		return StateOpen
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	default:
		return StateClosed
	}
}
