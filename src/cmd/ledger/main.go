package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/api-sage/transfer-orchestrator/src/internal/adapter/http/controller"
	"github.com/api-sage/transfer-orchestrator/src/internal/adapter/http/router"
	"github.com/api-sage/transfer-orchestrator/src/internal/adapter/repository/postgres"
	"github.com/api-sage/transfer-orchestrator/src/internal/config"
	"github.com/api-sage/transfer-orchestrator/src/internal/logger"
	"github.com/api-sage/transfer-orchestrator/src/internal/usecase/services"
)

func main() {
	cfg, err := config.LoadLedger()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := logger.Init("ledger", cfg.LogLevel); err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(ctx, cfg.DatabaseDSN, cfg.DatabasePool)
	if err != nil {
		logger.Error("ledger database unavailable", err, nil)
		return
	}
	defer db.Close()

	if err := postgres.RunMigrations(ctx, db, cfg.MigrationsDir); err != nil {
		logger.Error("ledger migrations failed", err, logger.Fields{"dir": cfg.MigrationsDir})
		return
	}

	ledgerService := services.NewLedgerService(postgres.NewLedgerRepository(db))
	accountService := services.NewAccountService(postgres.NewAccountRepository(db))

	srv := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: router.New(cfg.CORSOrigins,
			controller.NewLedgerController(ledgerService),
			controller.NewAccountController(accountService),
		),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("ledger server starting", logger.Fields{"addr": cfg.HTTPAddr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("ledger server stopped unexpectedly", err, nil)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("ledger server shutting down", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("ledger server forced to shutdown", err, nil)
	}
}
