package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	transfersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transfers_total",
			Help: "Terminal transfer outcomes recorded by the orchestrator",
		},
		[]string{"status"},
	)

	ledgerCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_calls_total",
			Help: "Calls to the ledger authority by outcome code",
		},
		[]string{"outcome"},
	)

	idempotentReplaysTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "idempotent_replays_total",
			Help: "Responses served from the idempotency store",
		},
		[]string{"kind"},
	)

	circuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0 closed, 1 half-open, 2 open)",
		},
		[]string{"name"},
	)
)

func TransferRecorded(status string) {
	transfersTotal.WithLabelValues(status).Inc()
}

func LedgerCall(outcome string) {
	ledgerCallsTotal.WithLabelValues(outcome).Inc()
}

func IdempotentReplay(kind string) {
	idempotentReplaysTotal.WithLabelValues(kind).Inc()
}

func BreakerState(name string, state string) {
	var v float64
	switch state {
	case "HALF_OPEN":
		v = 1
	case "OPEN":
		v = 2
	}
	circuitBreakerState.WithLabelValues(name).Set(v)
}

func Handler() http.Handler {
	return promhttp.Handler()
}
