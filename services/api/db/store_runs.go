package db

import (
	"context"
	"strconv"
	"strings"
	"time"
)

// JobRun is one row of the ingestion run log.
type JobRun struct {
	ID                int       `json:"id"`
	JobName           string    `json:"job_name"`
	Status            string    `json:"status"`
	RecordsProcessed  int       `json:"records_processed"`
	CountiesProcessed *int      `json:"counties_processed,omitempty"`
	DurationSeconds   float64   `json:"duration_seconds"`
	CompletedAt       time.Time `json:"completed_at"`
	Details           *string   `json:"details,omitempty"`
	ErrorMessage      *string   `json:"error_message,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// JobRunsPage is a paginated slice of job runs.
type JobRunsPage struct {
	Runs       []JobRun `json:"runs"`
	TotalCount int      `json:"total_count"`
}

// ListJobRuns returns job-log entries newest first, optionally filtered by
// job name and status.
func (s *Store) ListJobRuns(ctx context.Context, limit, offset int, jobName, status string) (*JobRunsPage, error) {
	conditions := []string{}
	args := []any{}

	if jobName != "" {
		conditions = append(conditions, "job_name = $"+strconv.Itoa(len(args)+1))
		args = append(args, jobName)
	}
	if status != "" {
		conditions = append(conditions, "status = $"+strconv.Itoa(len(args)+1))
		args = append(args, status)
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	countSQL := "SELECT COUNT(*) FROM job_logs " + whereClause
	var totalCount int
	if err := s.pool.QueryRow(ctx, countSQL, args...).Scan(&totalCount); err != nil {
		return nil, err
	}

	limitPos := len(args) + 1
	offsetPos := len(args) + 2
	args = append(args, limit, offset)

	query := strings.Builder{}
	query.WriteString("SELECT id, job_name, status, records_processed, counties_processed, ")
	query.WriteString("duration_seconds, completed_at, details, error_message, created_at ")
	query.WriteString("FROM job_logs ")
	query.WriteString(whereClause + " ")
	query.WriteString("ORDER BY completed_at DESC ")
	query.WriteString("LIMIT $" + strconv.Itoa(limitPos) + " OFFSET $" + strconv.Itoa(offsetPos))

	rows, err := s.pool.Query(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]JobRun, 0, limit)
	for rows.Next() {
		var r JobRun
		if err := rows.Scan(
			&r.ID,
			&r.JobName,
			&r.Status,
			&r.RecordsProcessed,
			&r.CountiesProcessed,
			&r.DurationSeconds,
			&r.CompletedAt,
			&r.Details,
			&r.ErrorMessage,
			&r.CreatedAt,
		); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &JobRunsPage{Runs: runs, TotalCount: totalCount}, nil
}

// LatestJobRun returns the newest run for a job name, or nil when the job has
// never run.
func (s *Store) LatestJobRun(ctx context.Context, jobName string) (*JobRun, error) {
	page, err := s.ListJobRuns(ctx, 1, 0, jobName, "")
	if err != nil {
		return nil, err
	}
	if len(page.Runs) == 0 {
		return nil, nil
	}
	return &page.Runs[0], nil
}

// StatsResult summarizes the stored dataset for dashboard headers.
type StatsResult struct {
	SiteCount        int64    `json:"site_count"`
	MeasurementCount int64    `json:"measurement_count"`
	Avg30d           *float64 `json:"avg_30d,omitempty"`
	Avg90d           *float64 `json:"avg_90d,omitempty"`
	Avg365d          *float64 `json:"avg_365d,omitempty"`
}

const statsSQL = `
SELECT
  (SELECT COUNT(*) FROM groundwater_monitoring_sites) AS site_count,
  (SELECT COUNT(*) FROM groundwater_time_series) AS measurement_count,
  (SELECT AVG(measurement_value) FROM groundwater_time_series WHERE measurement_datetime >= now() - interval '30 days') AS avg_30d,
  (SELECT AVG(measurement_value) FROM groundwater_time_series WHERE measurement_datetime >= now() - interval '90 days') AS avg_90d,
  (SELECT AVG(measurement_value) FROM groundwater_time_series WHERE measurement_datetime >= now() - interval '365 days') AS avg_365d
`

// GetStats computes dataset-wide counts and windowed average water levels.
// Null averages are possible when no measurements exist in a window.
func (s *Store) GetStats(ctx context.Context) (*StatsResult, error) {
	row := s.pool.QueryRow(ctx, statsSQL)
	var res StatsResult
	if err := row.Scan(
		&res.SiteCount,
		&res.MeasurementCount,
		&res.Avg30d,
		&res.Avg90d,
		&res.Avg365d,
	); err != nil {
		return nil, err
	}
	return &res, nil
}
