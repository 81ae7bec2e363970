package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/wellpulse/groundwater-viewer/services/ingest/internal/batch"
	"github.com/wellpulse/groundwater-viewer/services/ingest/internal/counties"
	"github.com/wellpulse/groundwater-viewer/services/ingest/internal/daterange"
)

// fallbackWindowDays is the daily window for counties with no stored data yet.
const fallbackWindowDays = 30

// RunDaily performs the incremental update: one work item per county, fetching
// from the county's most recent stored measurement minus the lookback window
// up to today. Counties with no prior data start 30 days back.
func (p *Pipeline) RunDaily(ctx context.Context, list []counties.County) (Summary, error) {
	p.logger.Info("starting daily groundwater update", "counties", len(list))

	results := batch.Run(ctx, p.scheduler(p.cfg.DailyBatchSize, p.cfg.BatchPause), list,
		func(ctx context.Context, county counties.County) (CountyResult, error) {
			return p.dailyCountyUpdate(ctx, county)
		})

	p.metrics.CountiesProcessed.Add(float64(len(results)))
	p.metrics.ItemFailures.Add(float64(len(list) - len(results)))
	return summarize(len(list), results), nil
}

func (p *Pipeline) dailyCountyUpdate(ctx context.Context, county counties.County) (CountyResult, error) {
	start, err := p.dailyWindowStart(ctx, county)
	if err != nil {
		return CountyResult{}, err
	}
	end := p.today()

	p.logger.Info("daily county update",
		"county", county.Name,
		"county_code", county.Code,
		"start", start.Format(daterange.DateLayout),
		"end", end.Format(daterange.DateLayout),
	)

	rng := &daterange.Range{Start: start, End: end}
	stats, err := p.fetchCountyRange(ctx, county, rng)
	if err != nil {
		return CountyResult{}, err
	}

	return CountyResult{CountyCode: county.Code, CountyName: county.Name, Stats: stats}, nil
}

// dailyWindowStart derives the fetch window's left edge from the latest stored
// measurement for the county, rewound by the lookback period so late-arriving
// upstream corrections are re-fetched.
func (p *Pipeline) dailyWindowStart(ctx context.Context, county counties.County) (time.Time, error) {
	latest, ok, err := p.store.LatestMeasurementTime(ctx, county.Code)
	if err != nil {
		return time.Time{}, fmt.Errorf("latest measurement for %s: %w", county.Code, err)
	}
	if !ok {
		return p.today().AddDate(0, 0, -fallbackWindowDays), nil
	}
	return daterange.Day(latest).AddDate(0, 0, -p.cfg.LookbackDays), nil
}

func (p *Pipeline) scheduler(width int, pause time.Duration) batch.Scheduler {
	return batch.Scheduler{
		Width:  width,
		Pause:  pause,
		Clock:  p.clock,
		Logger: p.logger,
	}
}
