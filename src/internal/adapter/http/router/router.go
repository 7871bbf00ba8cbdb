package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/api-sage/transfer-orchestrator/src/internal/adapter/http/controller"
	"github.com/api-sage/transfer-orchestrator/src/internal/adapter/http/middleware"
	"github.com/api-sage/transfer-orchestrator/src/internal/logger"
)

type RouteRegistrar interface {
	RegisterRoutes(r chi.Router)
}

// New builds the service router. Nil registrars are skipped.
func New(allowedOrigins []string, registrars ...RouteRegistrar) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(LoggerMiddleware)
	r.Use(chimiddleware.Recoverer)

	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", controller.IdempotencyKeyHeader, middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	controller.NewHealthController().RegisterRoutes(r)
	for _, registrar := range registrars {
		if registrar != nil {
			registrar.RegisterRoutes(r)
		}
	}

	return r
}

// LoggerMiddleware logs one line per completed request.
func LoggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		logger.Info("http request completed", logger.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"bytes":      ww.BytesWritten(),
			"durationMs": time.Since(start).Milliseconds(),
			"requestId":  middleware.RequestIDFrom(r.Context()),
			"remoteAddr": r.RemoteAddr,
		})
	})
}
