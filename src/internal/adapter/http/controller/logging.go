package controller

import (
	"maps"
	"net/http"
	"time"

	"github.com/api-sage/transfer-orchestrator/src/internal/adapter/http/middleware"
	"github.com/api-sage/transfer-orchestrator/src/internal/logger"
)

// exchangeFields identifies one HTTP exchange in every log line it produces.
func exchangeFields(r *http.Request, extra logger.Fields) logger.Fields {
	fields := logger.Fields{
		"method":    r.Method,
		"path":      r.URL.Path,
		"requestId": middleware.RequestIDFrom(r.Context()),
	}
	if key := r.Header.Get(IdempotencyKeyHeader); key != "" {
		fields["idempotencyKey"] = key
	}
	maps.Copy(fields, extra)
	return fields
}

func logRequest(r *http.Request, payload any) {
	logger.Info("http request", exchangeFields(r, logger.Fields{
		"query":   r.URL.RawQuery,
		"payload": logger.SanitizePayload(payload),
	}))
}

func logResponse(r *http.Request, status int, payload any, start time.Time) {
	logger.Info("http response", exchangeFields(r, logger.Fields{
		"status":     status,
		"durationMs": time.Since(start).Milliseconds(),
		"response":   logger.SanitizePayload(payload),
	}))
}

func logError(r *http.Request, err error, extra logger.Fields) {
	logger.Error("http handler error", err, exchangeFields(r, extra))
}
