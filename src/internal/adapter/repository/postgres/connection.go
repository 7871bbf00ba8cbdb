package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/api-sage/transfer-orchestrator/src/internal/config"
	"github.com/api-sage/transfer-orchestrator/src/internal/logger"
)

// Open connects with lib/pq and sizes the pool before the first ping so the
// ping itself runs under the configured limits.
func Open(ctx context.Context, dsn string, pool config.PoolConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}

	if pool.MaxOpenConns > 0 {
		db.SetMaxOpenConns(pool.MaxOpenConns)
	}
	db.SetMaxIdleConns(pool.MaxIdleConns)
	db.SetConnMaxIdleTime(pool.ConnMaxIdleTime)
	db.SetConnMaxLifetime(pool.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	logger.Info("postgres connected", logger.Fields{
		"maxOpenConns": pool.MaxOpenConns,
		"maxIdleConns": pool.MaxIdleConns,
	})
	return db, nil
}
