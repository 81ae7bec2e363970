package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultLookbackDays      = 7
	defaultBackfillStart     = "2000-01-01"
	defaultChunkMonths       = 12
	defaultDailyBatchSize    = 5
	defaultBackfillBatchSize = 3
	defaultSitesBatchSize    = 5
	defaultBatchPause        = 10 * time.Second
	defaultRangePause        = time.Second
	defaultUpsertBatchSize   = 500
	defaultRequestTimeout    = 5 * time.Minute
	defaultMaxAttempts       = 3
	defaultRetryBaseDelay    = time.Second
	defaultMaxInFlight       = 5
)

// Config holds runtime configuration for the ingest service.
type Config struct {
	DatabaseURL string
	MetricsAddr string // empty disables the /metrics listener

	LookbackDays      int
	BackfillStart     time.Time
	ChunkMonths       int
	DailyBatchSize    int
	BackfillBatchSize int
	SitesBatchSize    int
	BatchPause        time.Duration
	RangePause        time.Duration
	UpsertBatchSize   int

	RequestTimeout time.Duration
	MaxAttempts    int
	RetryBaseDelay time.Duration
	MaxInFlight    int64

	PriorityOnly bool
	DryRun       bool
}

// Load reads configuration from environment variables (optionally .env).
func Load() (Config, error) {
	_ = godotenv.Load(".env")

	cfg := Config{
		LookbackDays:      defaultLookbackDays,
		ChunkMonths:       defaultChunkMonths,
		DailyBatchSize:    defaultDailyBatchSize,
		BackfillBatchSize: defaultBackfillBatchSize,
		SitesBatchSize:    defaultSitesBatchSize,
		BatchPause:        defaultBatchPause,
		RangePause:        defaultRangePause,
		UpsertBatchSize:   defaultUpsertBatchSize,
		RequestTimeout:    defaultRequestTimeout,
		MaxAttempts:       defaultMaxAttempts,
		RetryBaseDelay:    defaultRetryBaseDelay,
		MaxInFlight:       defaultMaxInFlight,
	}

	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if cfg.DatabaseURL == "" {
		return cfg, errors.New("DATABASE_URL is required")
	}

	cfg.MetricsAddr = strings.TrimSpace(os.Getenv("METRICS_ADDR"))

	var err error
	if cfg.LookbackDays, err = intEnv("INGEST_LOOKBACK_DAYS", cfg.LookbackDays); err != nil {
		return cfg, err
	}
	if cfg.ChunkMonths, err = intEnv("INGEST_CHUNK_MONTHS", cfg.ChunkMonths); err != nil {
		return cfg, err
	}
	if cfg.DailyBatchSize, err = intEnv("INGEST_DAILY_BATCH_SIZE", cfg.DailyBatchSize); err != nil {
		return cfg, err
	}
	if cfg.BackfillBatchSize, err = intEnv("INGEST_BACKFILL_BATCH_SIZE", cfg.BackfillBatchSize); err != nil {
		return cfg, err
	}
	if cfg.SitesBatchSize, err = intEnv("INGEST_SITES_BATCH_SIZE", cfg.SitesBatchSize); err != nil {
		return cfg, err
	}
	if cfg.UpsertBatchSize, err = intEnv("INGEST_UPSERT_BATCH_SIZE", cfg.UpsertBatchSize); err != nil {
		return cfg, err
	}
	if cfg.MaxAttempts, err = intEnv("INGEST_MAX_ATTEMPTS", cfg.MaxAttempts); err != nil {
		return cfg, err
	}

	if cfg.BatchPause, err = durationEnv("INGEST_BATCH_PAUSE", cfg.BatchPause); err != nil {
		return cfg, err
	}
	if cfg.RangePause, err = durationEnv("INGEST_RANGE_PAUSE", cfg.RangePause); err != nil {
		return cfg, err
	}
	if cfg.RequestTimeout, err = durationEnv("INGEST_REQUEST_TIMEOUT", cfg.RequestTimeout); err != nil {
		return cfg, err
	}
	if cfg.RetryBaseDelay, err = durationEnv("INGEST_RETRY_BASE_DELAY", cfg.RetryBaseDelay); err != nil {
		return cfg, err
	}

	maxInFlight, err := intEnv("INGEST_MAX_IN_FLIGHT", int(cfg.MaxInFlight))
	if err != nil {
		return cfg, err
	}
	cfg.MaxInFlight = int64(maxInFlight)

	start := defaultBackfillStart
	if v := strings.TrimSpace(os.Getenv("INGEST_BACKFILL_START")); v != "" {
		start = v
	}
	cfg.BackfillStart, err = time.Parse("2006-01-02", start)
	if err != nil {
		return cfg, fmt.Errorf("invalid INGEST_BACKFILL_START: %w", err)
	}

	cfg.PriorityOnly = boolEnv("INGEST_PRIORITY_ONLY", true)
	cfg.DryRun = boolEnv("DRY_RUN", false)

	return cfg, nil
}

func intEnv(name string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", name, v)
	}
	return n, nil
}

func durationEnv(name string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", name, v)
	}
	return d, nil
}

func boolEnv(name string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	return v == "1" || strings.EqualFold(v, "true")
}
