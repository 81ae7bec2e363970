package db

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store wraps read-only database access for the REST API.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a Store backed by a pgx pool.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Close releases the pool resources.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Site represents a monitoring-site metadata record.
type Site struct {
	ID             string    `json:"id"`
	AgencyCode     *string   `json:"agency_code,omitempty"`
	SiteNumber     *string   `json:"site_number,omitempty"`
	Name           *string   `json:"name,omitempty"`
	StateCode      *string   `json:"state_code,omitempty"`
	CountyCode     *string   `json:"county_code,omitempty"`
	SiteTypeCode   *string   `json:"site_type_code,omitempty"`
	HydrologicUnit *string   `json:"hydrologic_unit_code,omitempty"`
	AquiferCode    *string   `json:"aquifer_code,omitempty"`
	AquiferType    *string   `json:"aquifer_type_code,omitempty"`
	Altitude       *float64  `json:"altitude,omitempty"`
	VerticalDatum  *string   `json:"vertical_datum,omitempty"`
	Lat            *float64  `json:"lat,omitempty"`
	Lon            *float64  `json:"lon,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

const siteColumns = `monitoring_location_id, agency_code, monitoring_location_number,
    monitoring_location_name, state_code, county_code, site_type_code,
    hydrologic_unit_code, aquifer_code, aquifer_type_code, altitude,
    vertical_datum, latitude, longitude, created_at, updated_at`

func scanSite(row pgx.Row) (Site, error) {
	var site Site
	err := row.Scan(
		&site.ID,
		&site.AgencyCode,
		&site.SiteNumber,
		&site.Name,
		&site.StateCode,
		&site.CountyCode,
		&site.SiteTypeCode,
		&site.HydrologicUnit,
		&site.AquiferCode,
		&site.AquiferType,
		&site.Altitude,
		&site.VerticalDatum,
		&site.Lat,
		&site.Lon,
		&site.CreatedAt,
		&site.UpdatedAt,
	)
	return site, err
}

// SiteQuery holds filters for listing monitoring sites.
type SiteQuery struct {
	CountyCode string
	Limit      int
}

// ListSites returns monitoring-site metadata, optionally filtered by county.
func (s *Store) ListSites(ctx context.Context, q SiteQuery) ([]Site, error) {
	sql := "SELECT " + siteColumns + " FROM groundwater_monitoring_sites"
	args := []any{}
	if q.CountyCode != "" {
		sql += " WHERE county_code = $1"
		args = append(args, q.CountyCode)
	}
	sql += " ORDER BY monitoring_location_id"
	if q.Limit > 0 {
		sql += " LIMIT $" + strconv.Itoa(len(args)+1)
		args = append(args, q.Limit)
	}

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sites := make([]Site, 0)
	for rows.Next() {
		site, err := scanSite(rows)
		if err != nil {
			return nil, err
		}
		sites = append(sites, site)
	}
	return sites, rows.Err()
}

// GetSite returns one monitoring site, or nil when it does not exist.
func (s *Store) GetSite(ctx context.Context, siteID string) (*Site, error) {
	row := s.pool.QueryRow(ctx,
		"SELECT "+siteColumns+" FROM groundwater_monitoring_sites WHERE monitoring_location_id = $1",
		siteID)

	site, err := scanSite(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &site, nil
}

// Level represents one groundwater-level measurement.
type Level struct {
	SiteID       string    `json:"site_id"`
	Timestamp    time.Time `json:"ts"`
	VariableCode string    `json:"variable_code"`
	VariableName *string   `json:"variable_name,omitempty"`
	Unit         *string   `json:"unit,omitempty"`
	Value        float64   `json:"value"`
	Qualifiers   []string  `json:"qualifiers,omitempty"`
	MethodID     *int      `json:"method_id,omitempty"`
}

// LevelQuery holds filters for retrieving a site's level history.
type LevelQuery struct {
	SiteID string
	Limit  int
	Since  *time.Time
	Until  *time.Time
}

const levelsBase = `
    SELECT monitoring_location_id, measurement_datetime, variable_code,
           variable_name, unit, measurement_value, qualifiers, method_id
    FROM groundwater_time_series
    WHERE monitoring_location_id = $1
`

// FetchLevels returns a site's measurements based on the query.
func (s *Store) FetchLevels(ctx context.Context, q LevelQuery) ([]Level, error) {
	args := []any{q.SiteID}
	clause := ""
	argPos := 2
	if q.Since != nil {
		clause += " AND measurement_datetime >= $" + strconv.Itoa(argPos)
		args = append(args, *q.Since)
		argPos++
	}
	if q.Until != nil {
		clause += " AND measurement_datetime <= $" + strconv.Itoa(argPos)
		args = append(args, *q.Until)
		argPos++
	}
	order := " ORDER BY measurement_datetime"
	limit := ""
	if q.Limit > 0 {
		limit = " LIMIT $" + strconv.Itoa(argPos)
		args = append(args, q.Limit)
	}

	sql := levelsBase + clause + order + limit

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	levels := make([]Level, 0)
	for rows.Next() {
		var l Level
		if err := rows.Scan(
			&l.SiteID,
			&l.Timestamp,
			&l.VariableCode,
			&l.VariableName,
			&l.Unit,
			&l.Value,
			&l.Qualifiers,
			&l.MethodID,
		); err != nil {
			return nil, err
		}
		levels = append(levels, l)
	}
	return levels, rows.Err()
}

// BrowseQuery holds filters for browsing measurements across sites.
type BrowseQuery struct {
	CountyCode string
	Since      *time.Time
	Until      *time.Time
	MinValue   *float64
	MaxValue   *float64
	Limit      int
}

// BrowseLevels returns measurements across all sites matching the filters,
// newest first.
func (s *Store) BrowseLevels(ctx context.Context, q BrowseQuery) ([]Level, error) {
	sql := `SELECT monitoring_location_id, measurement_datetime, variable_code,
           variable_name, unit, measurement_value, qualifiers, method_id
    FROM groundwater_time_series`

	args := []any{}
	clause := ""
	appendCond := func(cond string, val any) {
		if clause == "" {
			clause = " WHERE "
		} else {
			clause += " AND "
		}
		args = append(args, val)
		clause += cond + " $" + strconv.Itoa(len(args))
	}

	if q.CountyCode != "" {
		appendCond("county_code =", q.CountyCode)
	}
	if q.Since != nil {
		appendCond("measurement_datetime >=", *q.Since)
	}
	if q.Until != nil {
		appendCond("measurement_datetime <=", *q.Until)
	}
	if q.MinValue != nil {
		appendCond("measurement_value >=", *q.MinValue)
	}
	if q.MaxValue != nil {
		appendCond("measurement_value <=", *q.MaxValue)
	}

	sql += clause + " ORDER BY measurement_datetime DESC"
	if q.Limit > 0 {
		args = append(args, q.Limit)
		sql += " LIMIT $" + strconv.Itoa(len(args))
	}

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	levels := make([]Level, 0)
	for rows.Next() {
		var l Level
		if err := rows.Scan(
			&l.SiteID,
			&l.Timestamp,
			&l.VariableCode,
			&l.VariableName,
			&l.Unit,
			&l.Value,
			&l.Qualifiers,
			&l.MethodID,
		); err != nil {
			return nil, err
		}
		levels = append(levels, l)
	}
	return levels, rows.Err()
}

// SiteSnapshot represents a site with its most recent measurement, when one
// exists.
type SiteSnapshot struct {
	ID         string   `json:"id"`
	Name       *string  `json:"name,omitempty"`
	CountyCode *string  `json:"county_code,omitempty"`
	Lat        *float64 `json:"lat,omitempty"`
	Lon        *float64 `json:"lon,omitempty"`

	// Measurement fields (nil when the site has no stored measurements)
	Ts           *time.Time `json:"ts,omitempty"`
	Value        *float64   `json:"value,omitempty"`
	VariableCode *string    `json:"variable_code,omitempty"`
	Unit         *string    `json:"unit,omitempty"`
}

// LatestLevels returns one row per site with its most recent measurement,
// optionally restricted to a county. Sites that have never reported remain in
// the result with nil measurement fields so map clients can still plot them.
func (s *Store) LatestLevels(ctx context.Context, countyCode string) ([]SiteSnapshot, error) {
	sql := `SELECT sites.monitoring_location_id, sites.monitoring_location_name,
        sites.county_code, sites.latitude, sites.longitude,
        m.measurement_datetime, m.measurement_value, m.variable_code, m.unit
    FROM groundwater_monitoring_sites sites
    LEFT JOIN LATERAL (
        SELECT measurement_datetime, measurement_value, variable_code, unit
        FROM groundwater_time_series
        WHERE monitoring_location_id = sites.monitoring_location_id
        ORDER BY measurement_datetime DESC
        LIMIT 1
    ) m ON true`

	args := []any{}
	if countyCode != "" {
		sql += " WHERE sites.county_code = $1"
		args = append(args, countyCode)
	}
	sql += " ORDER BY sites.monitoring_location_id"

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]SiteSnapshot, 0)
	for rows.Next() {
		var rec SiteSnapshot
		if err := rows.Scan(
			&rec.ID,
			&rec.Name,
			&rec.CountyCode,
			&rec.Lat,
			&rec.Lon,
			&rec.Ts,
			&rec.Value,
			&rec.VariableCode,
			&rec.Unit,
		); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}

	return out, rows.Err()
}
