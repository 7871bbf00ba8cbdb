package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultLedgerConnectionString = "Host=localhost;Port=5432;Database=ledger_db;Username=postgres;Password=postgres;Timeout=30;CommandTimeout=30"
const defaultTransferConnectionString = "Host=localhost;Port=5432;Database=transfer_db;Username=postgres;Password=postgres;Timeout=30;CommandTimeout=30"

// PoolConfig sizes the database/sql pool.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
}

type LedgerConfig struct {
	HTTPAddr      string
	DatabaseDSN   string
	DatabasePool  PoolConfig
	MigrationsDir string
	LogLevel      string
	CORSOrigins   []string
}

type BreakerConfig struct {
	WindowSize    int
	FailureRate   float64
	MinCalls      int
	WaitDuration  time.Duration
	HalfOpenCalls int
}

type TransferConfig struct {
	HTTPAddr      string
	DatabaseDSN   string
	DatabasePool  PoolConfig
	MigrationsDir string
	LogLevel      string
	CORSOrigins   []string

	LedgerBaseURL string
	LedgerTimeout time.Duration
	Breaker       BreakerConfig

	MaxAttempts   int
	RetryBackoff  time.Duration
	BatchWorkers  int
	BatchMaxItems int

	IdempotencyBackend        string
	IdempotencyTTL            time.Duration
	IdempotencyRejectMismatch bool
	IdempotencyPurgeInterval  time.Duration

	RedisAddr     string
	RedisPassword string

	KafkaBrokers []string
	KafkaTopic   string
}

func LoadLedger() (LedgerConfig, error) {
	if err := loadDotEnv(); err != nil {
		return LedgerConfig{}, err
	}

	var errs []error
	cfg := LedgerConfig{
		HTTPAddr:      getEnv("LEDGER_HTTP_ADDR", ":8081"),
		DatabaseDSN:   normalizeConnectionString(getEnv("LEDGER_DATABASE_DSN", defaultLedgerConnectionString)),
		DatabasePool:  loadPool(30, &errs),
		MigrationsDir: getEnv("LEDGER_MIGRATIONS_DIR", filepath.Join("src", "migrations", "ledger")),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		CORSOrigins:   getEnvSlice("CORS_ORIGINS", []string{"*"}),
	}

	if len(errs) > 0 {
		return LedgerConfig{}, errors.Join(errs...)
	}
	return cfg, nil
}

func LoadTransfer() (TransferConfig, error) {
	if err := loadDotEnv(); err != nil {
		return TransferConfig{}, err
	}

	var errs []error
	cfg := TransferConfig{
		HTTPAddr:      getEnv("TRANSFER_HTTP_ADDR", ":8080"),
		DatabaseDSN:   normalizeConnectionString(getEnv("TRANSFER_DATABASE_DSN", defaultTransferConnectionString)),
		DatabasePool:  loadPool(30, &errs),
		MigrationsDir: getEnv("TRANSFER_MIGRATIONS_DIR", filepath.Join("src", "migrations", "transfer")),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		CORSOrigins:   getEnvSlice("CORS_ORIGINS", []string{"*"}),

		LedgerBaseURL: strings.TrimRight(getEnv("LEDGER_BASE_URL", "http://localhost:8081"), "/"),
		LedgerTimeout: getEnvDuration("LEDGER_TIMEOUT", 5*time.Second, &errs),
		Breaker: BreakerConfig{
			WindowSize:    getEnvInt("BREAKER_WINDOW_SIZE", 5, &errs),
			FailureRate:   getEnvFloat("BREAKER_FAILURE_RATE", 50, &errs),
			MinCalls:      getEnvInt("BREAKER_MIN_CALLS", 5, &errs),
			WaitDuration:  getEnvDuration("BREAKER_WAIT", 10*time.Second, &errs),
			HalfOpenCalls: getEnvInt("BREAKER_HALF_OPEN_CALLS", 3, &errs),
		},

		MaxAttempts:   getEnvInt("TRANSFER_MAX_ATTEMPTS", 3, &errs),
		RetryBackoff:  getEnvDuration("TRANSFER_RETRY_BACKOFF", 25*time.Millisecond, &errs),
		BatchWorkers:  getEnvInt("BATCH_WORKERS", 20, &errs),
		BatchMaxItems: getEnvInt("BATCH_MAX_ITEMS", 20, &errs),

		IdempotencyBackend:        strings.ToLower(getEnv("IDEMPOTENCY_BACKEND", "postgres")),
		IdempotencyTTL:            getEnvDuration("IDEMPOTENCY_TTL", 24*time.Hour, &errs),
		IdempotencyRejectMismatch: getEnvBool("IDEMPOTENCY_REJECT_MISMATCH", true, &errs),
		IdempotencyPurgeInterval:  getEnvDuration("IDEMPOTENCY_PURGE_INTERVAL", 10*time.Minute, &errs),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		KafkaBrokers: getEnvSlice("KAFKA_BROKERS", nil),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "transfer_completed"),
	}

	switch cfg.IdempotencyBackend {
	case "postgres", "redis", "memory":
	default:
		errs = append(errs, fmt.Errorf("IDEMPOTENCY_BACKEND must be postgres, redis or memory, got %q", cfg.IdempotencyBackend))
	}
	if cfg.MaxAttempts < 1 {
		errs = append(errs, errors.New("TRANSFER_MAX_ATTEMPTS must be at least 1"))
	}
	if cfg.BatchWorkers < 1 {
		errs = append(errs, errors.New("BATCH_WORKERS must be at least 1"))
	}
	if cfg.Breaker.WindowSize < 1 || cfg.Breaker.HalfOpenCalls < 1 {
		errs = append(errs, errors.New("BREAKER_WINDOW_SIZE and BREAKER_HALF_OPEN_CALLS must be at least 1"))
	}

	if len(errs) > 0 {
		return TransferConfig{}, errors.Join(errs...)
	}
	return cfg, nil
}

// loadPool reads DB_* pool settings. Idle connections never exceed open ones.
func loadPool(defaultOpen int, errs *[]error) PoolConfig {
	pool := PoolConfig{
		MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", defaultOpen, errs),
		MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", defaultOpen*2/3, errs),
		ConnMaxIdleTime: getEnvDuration("DB_CONN_MAX_IDLE_TIME", 5*time.Minute, errs),
		ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 15*time.Minute, errs),
	}
	if pool.MaxOpenConns < 1 {
		*errs = append(*errs, errors.New("DB_MAX_OPEN_CONNS must be at least 1"))
	}
	pool.MaxIdleConns = min(pool.MaxIdleConns, pool.MaxOpenConns)
	return pool
}

func loadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getEnvSlice(key string, fallback []string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	out := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnvInt(key string, fallback int, errs *[]error) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return v
}

func getEnvFloat(key string, fallback float64, errs *[]error) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return v
}

func getEnvBool(key string, fallback bool, errs *[]error) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return v
}

func getEnvDuration(key string, fallback time.Duration, errs *[]error) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return v
}

func normalizeConnectionString(raw string) string {
	if strings.HasPrefix(raw, "postgres://") || strings.HasPrefix(raw, "postgresql://") {
		return raw
	}

	parts := strings.Split(raw, ";")
	out := make([]string, 0, len(parts))
	hasSSLMode := false

	for _, part := range parts {
		p := strings.TrimSpace(part)
		if p == "" {
			continue
		}

		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}

		key := strings.ToLower(strings.TrimSpace(kv[0]))
		val := strings.TrimSpace(kv[1])

		switch key {
		case "host":
			out = append(out, "host="+val)
		case "port":
			out = append(out, "port="+val)
		case "database":
			out = append(out, "dbname="+val)
		case "username":
			out = append(out, "user="+val)
		case "password":
			out = append(out, "password="+val)
		case "timeout", "connect timeout":
			out = append(out, "connect_timeout="+val)
		case "commandtimeout", "command timeout":
			out = append(out, "statement_timeout="+val+"s")
		case "sslmode":
			hasSSLMode = true
			out = append(out, "sslmode="+val)
		default:
			out = append(out, key+"="+val)
		}
	}

	if len(out) == 0 {
		return raw
	}

	if !hasSSLMode {
		out = append(out, "sslmode=disable")
	}

	return strings.Join(out, " ")
}
