package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wellpulse/groundwater-viewer/services/ingest/internal/config"
	"github.com/wellpulse/groundwater-viewer/services/ingest/internal/counties"
	"github.com/wellpulse/groundwater-viewer/services/ingest/internal/db"
	"github.com/wellpulse/groundwater-viewer/services/ingest/internal/obs"
	"github.com/wellpulse/groundwater-viewer/services/ingest/internal/pipeline"
	"github.com/wellpulse/groundwater-viewer/services/ingest/internal/usgs"
)

func main() {
	mode := flag.String("mode", "daily", "pipeline mode: daily, historical, backfill or sites")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(*mode, flag.Args(), logger); err != nil {
		logger.Error("ingest failed", "mode", *mode, "error", err)
		os.Exit(1)
	}
}

func run(mode string, countyArgs []string, logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	list, err := selectCounties(mode, countyArgs, cfg)
	if err != nil {
		return err
	}

	store, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer store.Close()

	metrics := obs.NewMetrics()
	if cfg.MetricsAddr != "" {
		go serveMetrics(cfg.MetricsAddr, logger)
	}

	client := usgs.NewClient(logger,
		usgs.WithTimeout(cfg.RequestTimeout),
		usgs.WithMaxAttempts(cfg.MaxAttempts),
		usgs.WithBaseDelay(cfg.RetryBaseDelay),
		usgs.WithMaxInFlight(cfg.MaxInFlight),
	)

	p := pipeline.New(client, store, logger, metrics, nil, pipeline.Config{
		LookbackDays:      cfg.LookbackDays,
		BackfillStart:     cfg.BackfillStart,
		ChunkMonths:       cfg.ChunkMonths,
		DailyBatchSize:    cfg.DailyBatchSize,
		BackfillBatchSize: cfg.BackfillBatchSize,
		SitesBatchSize:    cfg.SitesBatchSize,
		BatchPause:        cfg.BatchPause,
		RangePause:        cfg.RangePause,
		UpsertBatchSize:   cfg.UpsertBatchSize,
		DryRun:            cfg.DryRun,
	})

	var summary pipeline.Summary
	switch mode {
	case "daily":
		summary, err = p.RunWithLog(ctx, "statewide_daily_groundwater_update", func(ctx context.Context) (pipeline.Summary, error) {
			return p.RunDaily(ctx, list)
		})
	case "historical":
		summary, err = p.RunWithLog(ctx, "statewide_historical_fetch", func(ctx context.Context) (pipeline.Summary, error) {
			return p.RunHistorical(ctx, list)
		})
	case "backfill":
		summary, err = p.RunWithLog(ctx, "statewide_historical_backfill", func(ctx context.Context) (pipeline.Summary, error) {
			return p.RunBackfill(ctx, list)
		})
	case "sites":
		summary, err = p.RunWithLog(ctx, "county_monitoring_sites_fetch", func(ctx context.Context) (pipeline.Summary, error) {
			return p.RunSites(ctx, list)
		})
	default:
		return fmt.Errorf("unknown mode %q", mode)
	}
	if err != nil {
		return err
	}

	printSummary(mode, summary)
	return nil
}

// selectCounties resolves explicit county-code arguments, or falls back to the
// mode's default scope: priority counties for daily (configurable), all 58
// counties otherwise.
func selectCounties(mode string, args []string, cfg config.Config) ([]counties.County, error) {
	if len(args) > 0 {
		selected, unknown := counties.Select(args)
		if len(unknown) > 0 {
			return nil, fmt.Errorf("unknown county codes: %s", strings.Join(unknown, ", "))
		}
		return selected, nil
	}

	if mode == "daily" && cfg.PriorityOnly {
		return counties.Priority(), nil
	}
	return counties.All(), nil
}

func printSummary(mode string, s pipeline.Summary) {
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("%s run complete\n", strings.ToUpper(mode))
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("Counties processed: %d/%d\n", s.CountiesProcessed, s.CountiesRequested)
	fmt.Printf("Records attempted:  %d\n", s.Records.Attempted)
	fmt.Printf("Records inserted:   %d\n", s.Records.Inserted)
}

func serveMetrics(addr string, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	logger.Info("metrics listener started", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Warn("metrics listener stopped", "error", err)
	}
}
