package controller

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/api-sage/transfer-orchestrator/src/internal/commons"
	"github.com/api-sage/transfer-orchestrator/src/internal/domain"
	"github.com/api-sage/transfer-orchestrator/src/internal/logger"
)

const IdempotencyKeyHeader = "Idempotency-Key"

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError maps err to its wire code and status. Business outcomes are
// logged at info, everything else as an error.
func writeError(w http.ResponseWriter, r *http.Request, err error, start time.Time) {
	status, body := commons.ErrorFrom(err)
	if domain.IsBusiness(err) {
		logger.Info("http handler business error", exchangeFields(r, logger.Fields{
			"code":    body.Code,
			"message": body.Message,
		}))
	} else {
		logError(r, err, logger.Fields{"code": body.Code})
	}
	writeJSON(w, status, body)
	logResponse(r, status, body, start)
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return domain.Validation("invalid request body: " + err.Error())
	}
	return nil
}
