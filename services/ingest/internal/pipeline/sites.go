package pipeline

import (
	"context"
	"fmt"

	"github.com/wellpulse/groundwater-viewer/services/ingest/internal/batch"
	"github.com/wellpulse/groundwater-viewer/services/ingest/internal/counties"
	"github.com/wellpulse/groundwater-viewer/services/ingest/internal/usgs"
)

// RunSites ingests monitoring-site metadata county by county. Sites change
// rarely, so this runs on demand rather than on a schedule; writes are keyed
// by monitoring_location_id alone.
func (p *Pipeline) RunSites(ctx context.Context, list []counties.County) (Summary, error) {
	p.logger.Info("starting monitoring-site fetch", "counties", len(list))

	results := batch.Run(ctx, p.scheduler(p.cfg.SitesBatchSize, p.cfg.BatchPause), list,
		func(ctx context.Context, county counties.County) (CountyResult, error) {
			return p.sitesCounty(ctx, county)
		})

	p.metrics.CountiesProcessed.Add(float64(len(results)))
	p.metrics.ItemFailures.Add(float64(len(list) - len(results)))
	return summarize(len(list), results), nil
}

func (p *Pipeline) sitesCounty(ctx context.Context, county counties.County) (CountyResult, error) {
	url := usgs.SitesURL(county.Code)

	fetchStart := p.clock.Now()
	var resp usgs.SitesResponse
	if err := p.fetcher.GetJSON(ctx, url, &resp); err != nil {
		return CountyResult{}, fmt.Errorf("fetch sites for %s: %w", county.Code, err)
	}
	p.metrics.FetchDuration.Observe(p.clock.Since(fetchStart).Seconds())

	sites := usgs.NormalizeSites(&resp)
	p.logger.Info("sites fetched",
		"county", county.Name,
		"county_code", county.Code,
		"sites", len(sites),
	)
	if len(sites) == 0 {
		return CountyResult{CountyCode: county.Code, CountyName: county.Name}, nil
	}

	if p.cfg.DryRun {
		p.logger.Info("dry-run: skipping site upsert", "county", county.Name, "candidates", len(sites))
		return CountyResult{
			CountyCode: county.Code,
			CountyName: county.Name,
			Stats:      UpsertStats{Attempted: len(sites)},
		}, nil
	}

	stats, err := p.store.UpsertSites(ctx, sites)
	if err != nil {
		return CountyResult{}, fmt.Errorf("upsert sites for %s: %w", county.Code, err)
	}

	p.metrics.SitesAttempted.Add(float64(stats.Attempted))
	p.metrics.SitesInserted.Add(float64(stats.Inserted))
	return CountyResult{CountyCode: county.Code, CountyName: county.Name, Stats: stats}, nil
}
