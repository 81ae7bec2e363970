package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wellpulse/groundwater-viewer/services/ingest/internal/counties"
	"github.com/wellpulse/groundwater-viewer/services/ingest/internal/obs"
	"github.com/wellpulse/groundwater-viewer/services/ingest/internal/pipeline"
	"github.com/wellpulse/groundwater-viewer/services/ingest/internal/usgs"
)

// --- fakes ---

type fakeFetcher struct {
	mu      sync.Mutex
	urls    []string
	handler func(url string, dest any) error
}

func (f *fakeFetcher) GetJSON(_ context.Context, url string, dest any) error {
	f.mu.Lock()
	f.urls = append(f.urls, url)
	f.mu.Unlock()
	return f.handler(url, dest)
}

func (f *fakeFetcher) requestedURLs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.urls...)
}

type fakeStore struct {
	mu           sync.Mutex
	measurements map[string]usgs.Measurement
	sites        map[string]usgs.Site
	latest       map[string]time.Time
	logs         []pipeline.JobLog
	upsertErr    error
	logErr       error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		measurements: make(map[string]usgs.Measurement),
		sites:        make(map[string]usgs.Site),
		latest:       make(map[string]time.Time),
	}
}

func measurementKey(m usgs.Measurement) string {
	return fmt.Sprintf("%s|%s|%s", m.MonitoringLocationID, m.MeasurementTime.UTC().Format(time.RFC3339), m.VariableCode)
}

func (s *fakeStore) UpsertMeasurements(_ context.Context, records []usgs.Measurement) (pipeline.UpsertStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.upsertErr != nil {
		return pipeline.UpsertStats{}, s.upsertErr
	}

	stats := pipeline.UpsertStats{Attempted: len(records)}
	for _, m := range records {
		key := measurementKey(m)
		if _, exists := s.measurements[key]; !exists {
			stats.Inserted++
		}
		s.measurements[key] = m
		if m.CountyCode != nil && m.MeasurementTime.After(s.latest[*m.CountyCode]) {
			s.latest[*m.CountyCode] = m.MeasurementTime
		}
	}
	return stats, nil
}

func (s *fakeStore) LatestMeasurementTime(_ context.Context, countyCode string) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ts, ok := s.latest[countyCode]
	return ts, ok, nil
}

func (s *fakeStore) UpsertSites(_ context.Context, sites []usgs.Site) (pipeline.UpsertStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := pipeline.UpsertStats{Attempted: len(sites)}
	for _, site := range sites {
		if _, exists := s.sites[site.MonitoringLocationID]; !exists {
			stats.Inserted++
		}
		s.sites[site.MonitoringLocationID] = site
	}
	return stats, nil
}

func (s *fakeStore) InsertJobLog(_ context.Context, entry pipeline.JobLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.logErr != nil {
		return s.logErr
	}
	s.logs = append(s.logs, entry)
	return nil
}

func (s *fakeStore) measurementCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.measurements)
}

// levelsEnvelope builds an upstream envelope with one time series whose raw
// values are given as strings, so non-numeric sentinels can be included.
func levelsEnvelope(siteID, countyCode string, rawValues []string) usgs.LevelsResponse {
	var resp usgs.LevelsResponse
	series := usgs.TimeSeries{}
	series.SourceInfo.SiteName = "test well"
	series.SourceInfo.SiteCode = []usgs.SiteCode{{Value: siteID, AgencyCode: "USGS"}}
	series.SourceInfo.GeoLocation.GeogLocation.Latitude = 37.0
	series.SourceInfo.GeoLocation.GeogLocation.Longitude = -120.5
	series.SourceInfo.SiteProperty = []usgs.SiteProperty{
		{Name: "countyCd", Value: countyCode},
		{Name: "stateCd", Value: "06"},
	}
	series.Variable.VariableCode = []usgs.VariableCode{{Value: "72019"}}
	series.Variable.VariableName = "Depth to water level"

	values := make([]usgs.Value, len(rawValues))
	for i, raw := range rawValues {
		values[i] = usgs.Value{
			Value:    raw,
			DateTime: fmt.Sprintf("2024-06-%02dT12:00:00.000-08:00", i+1),
		}
	}
	series.Values = []usgs.ValueList{{Value: values}}

	resp.Value.TimeSeries = []usgs.TimeSeries{series}
	return resp
}

func newPipeline(fetcher pipeline.Fetcher, store pipeline.Store, cfg pipeline.Config) *pipeline.Pipeline {
	if cfg.BatchPause == 0 {
		cfg.BatchPause = time.Millisecond
	}
	if cfg.RangePause == 0 {
		cfg.RangePause = time.Millisecond
	}
	return pipeline.New(fetcher, store, slog.Default(), obs.NewMetricsForTesting(), nil, cfg)
}

func merced(t *testing.T) counties.County {
	t.Helper()
	c, ok := counties.ByCode("06047")
	require.True(t, ok)
	return c
}

// --- tests ---

func TestRunDailyIngestsAndIsIdempotent(t *testing.T) {
	store := newFakeStore()
	fetcher := &fakeFetcher{handler: func(_ string, dest any) error {
		*dest.(*usgs.LevelsResponse) = levelsEnvelope("well-1", "06047", []string{"12.3", "abc", "-4.5", "8.8"})
		return nil
	}}

	p := newPipeline(fetcher, store, pipeline.Config{})

	summary, err := p.RunDaily(context.Background(), []counties.County{merced(t)})
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Records.Attempted, "non-numeric value must be filtered before the writer")
	assert.Equal(t, 3, summary.Records.Inserted)
	assert.Equal(t, 3, store.measurementCount())

	// Second run over the same upstream data inserts nothing new.
	summary, err = p.RunDaily(context.Background(), []counties.County{merced(t)})
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Records.Attempted)
	assert.Equal(t, 0, summary.Records.Inserted)
	assert.Equal(t, 3, store.measurementCount())
}

func TestRunDailyWindowFromLatestMeasurement(t *testing.T) {
	store := newFakeStore()
	store.latest["06047"] = time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)

	fetcher := &fakeFetcher{handler: func(_ string, dest any) error {
		*dest.(*usgs.LevelsResponse) = usgs.LevelsResponse{}
		return nil
	}}
	p := newPipeline(fetcher, store, pipeline.Config{LookbackDays: 7})

	_, err := p.RunDaily(context.Background(), []counties.County{merced(t)})
	require.NoError(t, err)

	urls := fetcher.requestedURLs()
	require.Len(t, urls, 1)
	assert.Contains(t, urls[0], "startDT=2024-06-03", "window must rewind lookback days from the latest measurement")
}

func TestRunDailyFallbackWindowWhenNoData(t *testing.T) {
	store := newFakeStore()
	fetcher := &fakeFetcher{handler: func(_ string, dest any) error {
		*dest.(*usgs.LevelsResponse) = usgs.LevelsResponse{}
		return nil
	}}
	p := newPipeline(fetcher, store, pipeline.Config{})

	_, err := p.RunDaily(context.Background(), []counties.County{merced(t)})
	require.NoError(t, err)

	urls := fetcher.requestedURLs()
	require.Len(t, urls, 1)

	expected := time.Now().UTC().AddDate(0, 0, -30).Format("2006-01-02")
	assert.Contains(t, urls[0], "startDT="+expected)
}

func TestRunDailyIsolatesCountyFailures(t *testing.T) {
	store := newFakeStore()
	fetcher := &fakeFetcher{handler: func(url string, dest any) error {
		if strings.Contains(url, "countyCd=06019") {
			return errors.New("upstream exploded")
		}
		*dest.(*usgs.LevelsResponse) = levelsEnvelope("well-2", "06047", []string{"3.3"})
		return nil
	}}
	p := newPipeline(fetcher, store, pipeline.Config{})

	fresno, _ := counties.ByCode("06019")
	summary, err := p.RunDaily(context.Background(), []counties.County{fresno, merced(t)})
	require.NoError(t, err)

	assert.Equal(t, 2, summary.CountiesRequested)
	assert.Equal(t, 1, summary.CountiesProcessed, "failed county must not abort the run")
	assert.Equal(t, 1, summary.Records.Inserted)
}

func TestRunHistoricalWholeHistoryFastPath(t *testing.T) {
	store := newFakeStore()
	fetcher := &fakeFetcher{handler: func(_ string, dest any) error {
		*dest.(*usgs.LevelsResponse) = levelsEnvelope("well-3", "06047", []string{"1.0", "2.0"})
		return nil
	}}
	p := newPipeline(fetcher, store, pipeline.Config{})

	summary, err := p.RunHistorical(context.Background(), []counties.County{merced(t)})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Records.Inserted)

	urls := fetcher.requestedURLs()
	require.Len(t, urls, 1)
	assert.NotContains(t, urls[0], "startDT", "fast path must request the whole history")
}

func TestRunHistoricalFallsBackToChunkedRanges(t *testing.T) {
	store := newFakeStore()
	fetcher := &fakeFetcher{handler: func(url string, dest any) error {
		if !strings.Contains(url, "startDT") {
			return errors.New("response too large")
		}
		*dest.(*usgs.LevelsResponse) = usgs.LevelsResponse{}
		return nil
	}}
	p := newPipeline(fetcher, store, pipeline.Config{
		BackfillStart: time.Now().UTC().AddDate(-2, 0, 0),
		ChunkMonths:   12,
	})

	summary, err := p.RunHistorical(context.Background(), []counties.County{merced(t)})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.CountiesProcessed)

	urls := fetcher.requestedURLs()
	require.Greater(t, len(urls), 2, "fallback must fan out into date-chunked requests")
	assert.NotContains(t, urls[0], "startDT")
	for _, u := range urls[1:] {
		assert.Contains(t, u, "startDT")
	}
}

func TestRunBackfillCrossProductAndIsolation(t *testing.T) {
	store := newFakeStore()
	var mu sync.Mutex
	failedOnce := false
	fetcher := &fakeFetcher{handler: func(url string, dest any) error {
		mu.Lock()
		defer mu.Unlock()
		if !failedOnce {
			failedOnce = true
			return errors.New("transient wreckage")
		}
		*dest.(*usgs.LevelsResponse) = usgs.LevelsResponse{}
		return nil
	}}

	p := newPipeline(fetcher, store, pipeline.Config{
		BackfillStart:     time.Now().UTC().AddDate(-3, 0, 0),
		ChunkMonths:       12,
		BackfillBatchSize: 2,
	})

	summary, err := p.RunBackfill(context.Background(), []counties.County{merced(t)})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.CountiesRequested)
	assert.Equal(t, 1, summary.CountiesProcessed)
	// 3 yearly chunks were scheduled; one failed and was skipped.
	assert.Len(t, fetcher.requestedURLs(), 3)
}

func TestRunSites(t *testing.T) {
	store := newFakeStore()
	fetcher := &fakeFetcher{handler: func(_ string, dest any) error {
		resp := usgs.SitesResponse{Features: []usgs.SiteFeature{
			{ID: "USGS-1"},
			{ID: "USGS-2"},
		}}
		*dest.(*usgs.SitesResponse) = resp
		return nil
	}}
	p := newPipeline(fetcher, store, pipeline.Config{})

	summary, err := p.RunSites(context.Background(), []counties.County{merced(t)})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Records.Attempted)
	assert.Equal(t, 2, summary.Records.Inserted)

	// Re-running upserts the same keys without creating duplicates.
	summary, err = p.RunSites(context.Background(), []counties.County{merced(t)})
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Records.Inserted)
}

func TestUpsertErrorPropagates(t *testing.T) {
	store := newFakeStore()
	store.upsertErr = errors.New("disk on fire")
	fetcher := &fakeFetcher{handler: func(_ string, dest any) error {
		*dest.(*usgs.LevelsResponse) = levelsEnvelope("well-4", "06047", []string{"5.5"})
		return nil
	}}
	p := newPipeline(fetcher, store, pipeline.Config{})

	summary, err := p.RunDaily(context.Background(), []counties.County{merced(t)})
	require.NoError(t, err, "a store failure is item-level, not pipeline-level")
	assert.Equal(t, 0, summary.CountiesProcessed)
}

func TestDryRunSkipsWrites(t *testing.T) {
	store := newFakeStore()
	fetcher := &fakeFetcher{handler: func(_ string, dest any) error {
		*dest.(*usgs.LevelsResponse) = levelsEnvelope("well-5", "06047", []string{"1.1", "2.2"})
		return nil
	}}
	p := newPipeline(fetcher, store, pipeline.Config{DryRun: true})

	summary, err := p.RunDaily(context.Background(), []counties.County{merced(t)})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Records.Attempted)
	assert.Equal(t, 0, summary.Records.Inserted)
	assert.Equal(t, 0, store.measurementCount())
}

func TestRunWithLogRecordsSuccess(t *testing.T) {
	store := newFakeStore()
	fetcher := &fakeFetcher{handler: func(_ string, dest any) error {
		*dest.(*usgs.LevelsResponse) = levelsEnvelope("well-6", "06047", []string{"9.9"})
		return nil
	}}
	p := newPipeline(fetcher, store, pipeline.Config{})

	_, err := p.RunWithLog(context.Background(), "statewide_daily_groundwater_update", func(ctx context.Context) (pipeline.Summary, error) {
		return p.RunDaily(ctx, []counties.County{merced(t)})
	})
	require.NoError(t, err)

	require.Len(t, store.logs, 1)
	entry := store.logs[0]
	assert.Equal(t, "statewide_daily_groundwater_update", entry.JobName)
	assert.Equal(t, "success", entry.Status)
	assert.Equal(t, 1, entry.RecordsProcessed)
	require.NotNil(t, entry.CountiesProcessed)
	assert.Equal(t, 1, *entry.CountiesProcessed)
	assert.Nil(t, entry.ErrorMessage)
}

func TestRunWithLogRecordsError(t *testing.T) {
	store := newFakeStore()
	p := newPipeline(&fakeFetcher{}, store, pipeline.Config{})

	_, err := p.RunWithLog(context.Background(), "statewide_historical_backfill", func(context.Context) (pipeline.Summary, error) {
		return pipeline.Summary{}, errors.New("cannot enumerate work")
	})
	require.Error(t, err)

	require.Len(t, store.logs, 1)
	entry := store.logs[0]
	assert.Equal(t, "error", entry.Status)
	require.NotNil(t, entry.ErrorMessage)
	assert.Contains(t, *entry.ErrorMessage, "cannot enumerate work")
}

func TestRunWithLogNeverMasksOutcome(t *testing.T) {
	store := newFakeStore()
	store.logErr = errors.New("log table is gone")
	p := newPipeline(&fakeFetcher{}, store, pipeline.Config{})

	_, err := p.RunWithLog(context.Background(), "statewide_daily_groundwater_update", func(context.Context) (pipeline.Summary, error) {
		return pipeline.Summary{CountiesProcessed: 1, CountiesRequested: 1}, nil
	})
	assert.NoError(t, err, "a logging failure must not replace the pipeline's outcome")
}
