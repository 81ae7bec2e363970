// Package db implements the pipeline's storage surface on Postgres/PostGIS
// via pgx. All writes are conflict-aware batch upserts; the measurement and
// site tables carry the natural-key constraints the upserts target.
package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wellpulse/groundwater-viewer/services/ingest/internal/pipeline"
	"github.com/wellpulse/groundwater-viewer/services/ingest/internal/usgs"
)

// Store wraps a pgx pool and implements pipeline.Store.
type Store struct {
	pool *pgxpool.Pool
}

// New connects a Store to the database.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the pool resources.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

const upsertMeasurementSQL = `INSERT INTO groundwater_time_series (
    monitoring_location_id, site_name, agency_code, huc_code, state_code, county_code,
    latitude, longitude, geometry,
    variable_code, variable_name, variable_description, unit, variable_id,
    measurement_datetime, measurement_value, qualifiers, method_id,
    created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,
    CASE WHEN $7::double precision IS NOT NULL AND $8::double precision IS NOT NULL
         THEN ST_SetSRID(ST_MakePoint($8, $7), 4326) END,
    $9,$10,$11,$12,$13,$14,$15,$16,$17,NOW(),NOW())
ON CONFLICT (monitoring_location_id, measurement_datetime, variable_code) DO UPDATE
SET site_name = EXCLUDED.site_name,
    agency_code = EXCLUDED.agency_code,
    huc_code = EXCLUDED.huc_code,
    state_code = EXCLUDED.state_code,
    county_code = EXCLUDED.county_code,
    latitude = EXCLUDED.latitude,
    longitude = EXCLUDED.longitude,
    geometry = EXCLUDED.geometry,
    variable_name = EXCLUDED.variable_name,
    variable_description = EXCLUDED.variable_description,
    unit = EXCLUDED.unit,
    variable_id = EXCLUDED.variable_id,
    measurement_value = EXCLUDED.measurement_value,
    qualifiers = EXCLUDED.qualifiers,
    method_id = EXCLUDED.method_id,
    updated_at = NOW()
RETURNING (xmax = 0) AS inserted`

// UpsertMeasurements writes measurement records idempotently on the
// (monitoring_location_id, measurement_datetime, variable_code) key, merging
// non-key fields on conflict since upstream corrects data retroactively. The
// novel-insert count comes from the RETURNING clause (xmax = 0 marks rows the
// statement inserted rather than updated), which stays accurate under
// concurrent writers where before/after row-count deltas would not.
func (s *Store) UpsertMeasurements(ctx context.Context, records []usgs.Measurement) (pipeline.UpsertStats, error) {
	stats := pipeline.UpsertStats{Attempted: len(records)}
	if len(records) == 0 {
		return stats, nil
	}

	b := &pgx.Batch{}
	for _, m := range records {
		b.Queue(upsertMeasurementSQL,
			m.MonitoringLocationID,
			m.SiteName,
			m.AgencyCode,
			m.HUCCode,
			m.StateCode,
			m.CountyCode,
			m.Latitude,
			m.Longitude,
			m.VariableCode,
			m.VariableName,
			m.VariableDescription,
			m.Unit,
			m.VariableID,
			m.MeasurementTime,
			m.MeasurementValue,
			m.Qualifiers,
			m.MethodID,
		)
	}

	res := s.pool.SendBatch(ctx, b)
	defer res.Close()

	for range records {
		var inserted bool
		if err := res.QueryRow().Scan(&inserted); err != nil {
			return stats, fmt.Errorf("upsert measurement: %w", err)
		}
		if inserted {
			stats.Inserted++
		}
	}

	return stats, nil
}

// LatestMeasurementTime returns the most recent stored measurement timestamp
// for a county, or ok=false when the county has no data yet.
func (s *Store) LatestMeasurementTime(ctx context.Context, countyCode string) (time.Time, bool, error) {
	var ts time.Time
	err := s.pool.QueryRow(ctx, `
SELECT measurement_datetime
FROM groundwater_time_series
WHERE county_code = $1
ORDER BY measurement_datetime DESC
LIMIT 1`, countyCode).Scan(&ts)

	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return ts, true, nil
}

const upsertSiteSQL = `INSERT INTO groundwater_monitoring_sites (
    monitoring_location_id, agency_code, monitoring_location_number,
    monitoring_location_name, state_code, county_code, site_type_code,
    hydrologic_unit_code, aquifer_code, aquifer_type_code, altitude,
    vertical_datum, latitude, longitude, geometry, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,
    CASE WHEN $13::double precision IS NOT NULL AND $14::double precision IS NOT NULL
         THEN ST_SetSRID(ST_MakePoint($14, $13), 4326) END,
    NOW(),NOW())
ON CONFLICT (monitoring_location_id) DO UPDATE
SET agency_code = EXCLUDED.agency_code,
    monitoring_location_number = EXCLUDED.monitoring_location_number,
    monitoring_location_name = EXCLUDED.monitoring_location_name,
    state_code = EXCLUDED.state_code,
    county_code = EXCLUDED.county_code,
    site_type_code = EXCLUDED.site_type_code,
    hydrologic_unit_code = EXCLUDED.hydrologic_unit_code,
    aquifer_code = EXCLUDED.aquifer_code,
    aquifer_type_code = EXCLUDED.aquifer_type_code,
    altitude = EXCLUDED.altitude,
    vertical_datum = EXCLUDED.vertical_datum,
    latitude = EXCLUDED.latitude,
    longitude = EXCLUDED.longitude,
    geometry = EXCLUDED.geometry,
    updated_at = NOW()
RETURNING (xmax = 0) AS inserted`

// UpsertSites writes monitoring-site metadata idempotently, keyed by
// monitoring_location_id alone.
func (s *Store) UpsertSites(ctx context.Context, sites []usgs.Site) (pipeline.UpsertStats, error) {
	stats := pipeline.UpsertStats{Attempted: len(sites)}
	if len(sites) == 0 {
		return stats, nil
	}

	b := &pgx.Batch{}
	for _, site := range sites {
		b.Queue(upsertSiteSQL,
			site.MonitoringLocationID,
			site.AgencyCode,
			site.MonitoringLocationNumber,
			site.MonitoringLocationName,
			site.StateCode,
			site.CountyCode,
			site.SiteTypeCode,
			site.HydrologicUnitCode,
			site.AquiferCode,
			site.AquiferTypeCode,
			site.Altitude,
			site.VerticalDatum,
			site.Latitude,
			site.Longitude,
		)
	}

	res := s.pool.SendBatch(ctx, b)
	defer res.Close()

	for range sites {
		var inserted bool
		if err := res.QueryRow().Scan(&inserted); err != nil {
			return stats, fmt.Errorf("upsert site: %w", err)
		}
		if inserted {
			stats.Inserted++
		}
	}

	return stats, nil
}

// InsertJobLog appends one run-log row. The table is append-only; rows are
// never mutated or deleted by this service.
func (s *Store) InsertJobLog(ctx context.Context, entry pipeline.JobLog) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO job_logs (
    job_name, status, records_processed, counties_processed,
    duration_seconds, completed_at, details, error_message)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		entry.JobName,
		entry.Status,
		entry.RecordsProcessed,
		entry.CountiesProcessed,
		entry.DurationSeconds,
		entry.CompletedAt,
		entry.Details,
		entry.ErrorMessage,
	)
	return err
}

// CountMeasurements returns the total stored measurement rows. Exposed for
// operational checks and end-to-end verification.
func (s *Store) CountMeasurements(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM groundwater_time_series`).Scan(&count)
	return count, err
}
