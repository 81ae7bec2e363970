// Package pipeline composes the fetch, normalize and upsert stages into the
// three groundwater ingestion modes (daily incremental, full historical,
// resumable backfill) plus the monitoring-site metadata loader.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/wellpulse/groundwater-viewer/services/ingest/internal/counties"
	"github.com/wellpulse/groundwater-viewer/services/ingest/internal/daterange"
	"github.com/wellpulse/groundwater-viewer/services/ingest/internal/obs"
	"github.com/wellpulse/groundwater-viewer/services/ingest/internal/usgs"
)

// UpsertStats reports how many records a write attempted versus how many rows
// were genuinely new to the store.
type UpsertStats struct {
	Attempted int
	Inserted  int
}

func (s *UpsertStats) add(other UpsertStats) {
	s.Attempted += other.Attempted
	s.Inserted += other.Inserted
}

// MeasurementStore is the conflict-aware write surface for measurements.
// Upserts must be idempotent on (monitoring_location_id, measurement_datetime,
// variable_code).
type MeasurementStore interface {
	UpsertMeasurements(ctx context.Context, records []usgs.Measurement) (UpsertStats, error)
	LatestMeasurementTime(ctx context.Context, countyCode string) (time.Time, bool, error)
}

// SiteStore is the conflict-aware write surface for monitoring sites, keyed by
// monitoring_location_id.
type SiteStore interface {
	UpsertSites(ctx context.Context, sites []usgs.Site) (UpsertStats, error)
}

// JobLogStore records pipeline invocation outcomes.
type JobLogStore interface {
	InsertJobLog(ctx context.Context, entry JobLog) error
}

// Store is the full storage surface the pipeline needs.
type Store interface {
	MeasurementStore
	SiteStore
	JobLogStore
}

// Fetcher is the retrying upstream HTTP surface (implemented by usgs.Client).
type Fetcher interface {
	GetJSON(ctx context.Context, url string, dest any) error
}

// Config tunes pipeline behavior. Zero fields fall back to defaults.
type Config struct {
	// LookbackDays rewinds the daily window to catch late-arriving
	// corrections to recently published data.
	LookbackDays int
	// BackfillStart is the left edge of historical fetches.
	BackfillStart time.Time
	// ChunkMonths is the partition width for chunked fetching.
	ChunkMonths int
	// DailyBatchSize / BackfillBatchSize are county group widths.
	DailyBatchSize    int
	BackfillBatchSize int
	SitesBatchSize    int
	// BatchPause is slept between county groups.
	BatchPause time.Duration
	// RangePause is slept between consecutive date-range fetches of one
	// county during chunked backfill.
	RangePause time.Duration
	// UpsertBatchSize bounds rows per store write call.
	UpsertBatchSize int
	// DryRun skips all writes and reports zero insertions.
	DryRun bool
}

func (c Config) withDefaults() Config {
	if c.LookbackDays <= 0 {
		c.LookbackDays = 7
	}
	if c.BackfillStart.IsZero() {
		c.BackfillStart = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	if c.ChunkMonths <= 0 {
		c.ChunkMonths = 12
	}
	if c.DailyBatchSize <= 0 {
		c.DailyBatchSize = 5
	}
	if c.BackfillBatchSize <= 0 {
		c.BackfillBatchSize = 3
	}
	if c.SitesBatchSize <= 0 {
		c.SitesBatchSize = 5
	}
	if c.BatchPause <= 0 {
		c.BatchPause = 10 * time.Second
	}
	if c.RangePause <= 0 {
		c.RangePause = time.Second
	}
	if c.UpsertBatchSize <= 0 {
		c.UpsertBatchSize = 500
	}
	return c
}

// Pipeline wires the fetch client, normalizer and store together.
type Pipeline struct {
	fetcher Fetcher
	store   Store
	logger  *slog.Logger
	metrics *obs.Metrics
	clock   clockwork.Clock
	cfg     Config
}

// New builds a Pipeline. A nil clock means real time.
func New(fetcher Fetcher, store Store, logger *slog.Logger, metrics *obs.Metrics, clock clockwork.Clock, cfg Config) *Pipeline {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Pipeline{
		fetcher: fetcher,
		store:   store,
		logger:  logger,
		metrics: metrics,
		clock:   clock,
		cfg:     cfg.withDefaults(),
	}
}

// CountyResult is the per-county outcome of a run.
type CountyResult struct {
	CountyCode string
	CountyName string
	Stats      UpsertStats
}

// Summary aggregates a full pipeline run.
type Summary struct {
	CountiesRequested int
	CountiesProcessed int
	Records           UpsertStats
}

// today returns the current calendar day per the injected clock.
func (p *Pipeline) today() time.Time {
	return daterange.Day(p.clock.Now())
}

// fetchCountyRange fetches one county's levels for one range (nil means full
// history), normalizes them and upserts in sub-batches.
func (p *Pipeline) fetchCountyRange(ctx context.Context, county counties.County, rng *daterange.Range) (UpsertStats, error) {
	url := usgs.LevelsURL(county.Code, rng)

	fetchStart := p.clock.Now()
	var resp usgs.LevelsResponse
	if err := p.fetcher.GetJSON(ctx, url, &resp); err != nil {
		return UpsertStats{}, fmt.Errorf("fetch levels for %s: %w", county.Code, err)
	}
	p.metrics.FetchDuration.Observe(p.clock.Since(fetchStart).Seconds())

	records := usgs.NormalizeLevels(&resp)
	if len(records) == 0 {
		p.logger.Info("no valid records", "county", county.Name, "county_code", county.Code)
		return UpsertStats{}, nil
	}

	return p.upsertMeasurements(ctx, county, records)
}

// upsertMeasurements writes records in sub-batches sized for the store's
// payload limits. A sub-batch write error is propagated: silently losing part
// of a normalized batch is a correctness bug, not a transient condition.
func (p *Pipeline) upsertMeasurements(ctx context.Context, county counties.County, records []usgs.Measurement) (UpsertStats, error) {
	if p.cfg.DryRun {
		p.logger.Info("dry-run: skipping measurement upsert",
			"county", county.Name, "candidates", len(records))
		return UpsertStats{Attempted: len(records)}, nil
	}

	var total UpsertStats
	upsertStart := p.clock.Now()
	for start := 0; start < len(records); start += p.cfg.UpsertBatchSize {
		end := start + p.cfg.UpsertBatchSize
		if end > len(records) {
			end = len(records)
		}

		stats, err := p.store.UpsertMeasurements(ctx, records[start:end])
		if err != nil {
			return total, fmt.Errorf("upsert measurements for %s: %w", county.Code, err)
		}
		total.add(stats)

		p.logger.Debug("measurement sub-batch stored",
			"county", county.Name,
			"processed", total.Attempted,
			"total", len(records),
		)
	}
	p.metrics.UpsertDuration.Observe(p.clock.Since(upsertStart).Seconds())

	p.metrics.RecordsAttempted.Add(float64(total.Attempted))
	p.metrics.RecordsInserted.Add(float64(total.Inserted))
	return total, nil
}

func summarize(requested int, results []CountyResult) Summary {
	s := Summary{CountiesRequested: requested, CountiesProcessed: len(results)}
	for _, r := range results {
		s.Records.add(r.Stats)
	}
	return s
}
