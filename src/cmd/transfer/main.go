package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/api-sage/transfer-orchestrator/src/internal/adapter/events/kafka"
	"github.com/api-sage/transfer-orchestrator/src/internal/adapter/http/controller"
	"github.com/api-sage/transfer-orchestrator/src/internal/adapter/http/router"
	"github.com/api-sage/transfer-orchestrator/src/internal/adapter/ledgerclient"
	"github.com/api-sage/transfer-orchestrator/src/internal/adapter/repository/memory"
	"github.com/api-sage/transfer-orchestrator/src/internal/adapter/repository/postgres"
	"github.com/api-sage/transfer-orchestrator/src/internal/adapter/repository/redis"
	"github.com/api-sage/transfer-orchestrator/src/internal/adapter/repository/repo_interfaces"
	"github.com/api-sage/transfer-orchestrator/src/internal/config"
	"github.com/api-sage/transfer-orchestrator/src/internal/logger"
	"github.com/api-sage/transfer-orchestrator/src/internal/usecase/service_interfaces"
	"github.com/api-sage/transfer-orchestrator/src/internal/usecase/services"
)

func main() {
	cfg, err := config.LoadTransfer()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := logger.Init("transfer", cfg.LogLevel); err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, stop, cfg); err != nil {
		logger.Error("transfer service exited", err, nil)
	}
}

func run(ctx context.Context, stop context.CancelFunc, cfg config.TransferConfig) error {
	db, err := postgres.Open(ctx, cfg.DatabaseDSN, cfg.DatabasePool)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := postgres.RunMigrations(ctx, db, cfg.MigrationsDir); err != nil {
		return err
	}

	idemRepo, closeIdem, err := idempotencyRepository(ctx, cfg, postgres.NewIdempotencyRepository(db))
	if err != nil {
		return err
	}
	defer closeIdem()
	idempotency := services.NewIdempotencyService(idemRepo, cfg.IdempotencyTTL, cfg.IdempotencyRejectMismatch)

	var publisher service_interfaces.EventPublisher
	if len(cfg.KafkaBrokers) > 0 {
		p := kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer p.Close()
		publisher = p
	}

	gateway := ledgerclient.NewGuarded(ledgerclient.New(cfg.LedgerBaseURL, cfg.LedgerTimeout), cfg.Breaker)
	transferService := services.NewTransferService(
		postgres.NewTransferRepository(db),
		idempotency,
		gateway,
		publisher,
		services.TransferOptions{
			MaxAttempts:   cfg.MaxAttempts,
			RetryBackoff:  cfg.RetryBackoff,
			BatchWorkers:  cfg.BatchWorkers,
			BatchMaxItems: cfg.BatchMaxItems,
		},
	)

	go purgeIdempotency(ctx, idempotency, cfg.IdempotencyPurgeInterval)

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router.New(cfg.CORSOrigins, controller.NewTransferController(transferService)),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("transfer server starting", logger.Fields{
			"addr":               cfg.HTTPAddr,
			"ledgerBaseUrl":      cfg.LedgerBaseURL,
			"idempotencyBackend": cfg.IdempotencyBackend,
			"kafka":              len(cfg.KafkaBrokers) > 0,
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("transfer server stopped unexpectedly", err, nil)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("transfer server shutting down", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func idempotencyRepository(ctx context.Context, cfg config.TransferConfig, pg *postgres.IdempotencyRepository) (repo_interfaces.IdempotencyRepository, func(), error) {
	switch cfg.IdempotencyBackend {
	case "redis":
		client, err := redis.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			return nil, nil, err
		}
		return redis.NewIdempotencyRepository(client), func() { _ = client.Close() }, nil
	case "memory":
		return memory.NewIdempotencyRepository(), func() {}, nil
	default:
		return pg, func() {}, nil
	}
}

func purgeIdempotency(ctx context.Context, idempotency *services.IdempotencyService, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := idempotency.PurgeExpired(ctx)
			if err != nil {
				logger.Error("idempotency purge failed", err, nil)
				continue
			}
			if deleted > 0 {
				logger.Info("idempotency purge completed", logger.Fields{"deleted": deleted})
			}
		}
	}
}
