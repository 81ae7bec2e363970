package pipeline

import (
	"context"
	"errors"

	"github.com/wellpulse/groundwater-viewer/services/ingest/internal/batch"
	"github.com/wellpulse/groundwater-viewer/services/ingest/internal/counties"
	"github.com/wellpulse/groundwater-viewer/services/ingest/internal/daterange"
)

// RunHistorical fetches each county's full available history. The fast path
// requests the whole history in one call; when that fails (the upstream times
// out on large counties), the county falls back to date-chunked fetching. The
// fallback is a per-county decision, not a global one.
func (p *Pipeline) RunHistorical(ctx context.Context, list []counties.County) (Summary, error) {
	p.logger.Info("starting historical groundwater fetch", "counties", len(list))

	results := batch.Run(ctx, p.scheduler(p.cfg.BackfillBatchSize, p.cfg.BatchPause), list,
		func(ctx context.Context, county counties.County) (CountyResult, error) {
			return p.historicalCounty(ctx, county)
		})

	p.metrics.CountiesProcessed.Add(float64(len(results)))
	p.metrics.ItemFailures.Add(float64(len(list) - len(results)))
	return summarize(len(list), results), nil
}

func (p *Pipeline) historicalCounty(ctx context.Context, county counties.County) (CountyResult, error) {
	stats, err := p.fetchCountyRange(ctx, county, nil)
	if err == nil {
		return CountyResult{CountyCode: county.Code, CountyName: county.Name, Stats: stats}, nil
	}
	if ctx.Err() != nil {
		return CountyResult{}, err
	}

	p.logger.Warn("whole-history fetch failed, falling back to chunked ranges",
		"county", county.Name,
		"county_code", county.Code,
		"error", err,
	)
	return p.chunkedCounty(ctx, county)
}

// chunkedCounty walks a county's history one partition at a time. Individual
// range failures are logged and skipped so one bad window does not lose the
// rest of the county; a county where every range fails is reported as failed.
func (p *Pipeline) chunkedCounty(ctx context.Context, county counties.County) (CountyResult, error) {
	ranges := daterange.Split(p.cfg.BackfillStart, p.today(), p.cfg.ChunkMonths)

	result := CountyResult{CountyCode: county.Code, CountyName: county.Name}
	failed := 0
	for i, rng := range ranges {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}

		p.logger.Info("processing county range",
			"county", county.Name,
			"range", i+1,
			"total_ranges", len(ranges),
			"start", rng.StartDate(),
			"end", rng.EndDate(),
		)

		stats, err := p.fetchCountyRange(ctx, county, &rng)
		if err != nil {
			failed++
			p.logger.Error("county range failed",
				"county", county.Name,
				"start", rng.StartDate(),
				"end", rng.EndDate(),
				"error", err,
			)
		} else {
			result.Stats.add(stats)
		}

		if i < len(ranges)-1 {
			p.clock.Sleep(p.cfg.RangePause)
		}
	}

	if len(ranges) > 0 && failed == len(ranges) {
		return result, errors.New("all date ranges failed")
	}
	return result, nil
}
