package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/api-sage/transfer-orchestrator/src/internal/adapter/repository/postgres"
	"github.com/api-sage/transfer-orchestrator/src/internal/config"
)

func main() {
	service := flag.String("service", "all", "ledger, transfer or all")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if *service == "all" || *service == "ledger" {
		cfg, err := config.LoadLedger()
		if err != nil {
			log.Fatalf("load ledger config: %v", err)
		}
		migrate(ctx, "ledger", cfg.DatabaseDSN, cfg.DatabasePool, cfg.MigrationsDir)
	}
	if *service == "all" || *service == "transfer" {
		cfg, err := config.LoadTransfer()
		if err != nil {
			log.Fatalf("load transfer config: %v", err)
		}
		migrate(ctx, "transfer", cfg.DatabaseDSN, cfg.DatabasePool, cfg.MigrationsDir)
	}
}

func migrate(ctx context.Context, name, dsn string, pool config.PoolConfig, dir string) {
	db, err := postgres.Open(ctx, dsn, pool)
	if err != nil {
		log.Fatalf("open %s database: %v", name, err)
	}
	defer db.Close()

	if err := postgres.RunMigrations(ctx, db, dir); err != nil {
		log.Fatalf("run %s migrations: %v", name, err)
	}
	log.Printf("%s migrations completed successfully", name)
}
