package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/api-sage/transfer-orchestrator/src/internal/logger"
)

const RequestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// RequestID reads X-Request-ID or generates one, echoes it on the response and
// exposes it to handlers through RequestIDFrom.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(RequestIDHeader))
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
			logger.Info("request id middleware generated id", logger.Fields{
				"method":    r.Method,
				"path":      r.URL.Path,
				"requestId": id,
			})
		}

		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
