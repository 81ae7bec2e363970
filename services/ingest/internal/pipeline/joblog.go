package pipeline

import (
	"context"
	"fmt"
	"time"
)

// JobLog is one row of the append-only run-log table: the durable record of a
// pipeline invocation's outcome, used for monitoring and alerting.
type JobLog struct {
	JobName           string
	Status            string // "success" or "error"
	RecordsProcessed  int
	CountiesProcessed *int
	DurationSeconds   float64
	CompletedAt       time.Time
	Details           *string
	ErrorMessage      *string
}

// RunWithLog executes fn, measures its wall-clock duration and writes exactly
// one job_logs entry once the terminal state is known. A logging failure is
// warned about but never replaces the pipeline's own outcome.
func (p *Pipeline) RunWithLog(ctx context.Context, jobName string, fn func(ctx context.Context) (Summary, error)) (Summary, error) {
	start := p.clock.Now()

	summary, err := fn(ctx)
	duration := p.clock.Since(start)
	p.metrics.RunDuration.WithLabelValues(jobName).Observe(duration.Seconds())

	entry := JobLog{
		JobName:         jobName,
		DurationSeconds: duration.Seconds(),
		CompletedAt:     p.clock.Now().UTC(),
	}

	if err != nil {
		msg := err.Error()
		entry.Status = "error"
		entry.ErrorMessage = &msg
	} else {
		processed := summary.CountiesProcessed
		details := jobDetails(summary)
		entry.Status = "success"
		entry.RecordsProcessed = summary.Records.Attempted
		entry.CountiesProcessed = &processed
		entry.Details = &details
	}

	if logErr := p.store.InsertJobLog(ctx, entry); logErr != nil {
		p.logger.Warn("failed to write job log", "job", jobName, "error", logErr)
	}

	if err != nil {
		p.logger.Error("pipeline run failed",
			"job", jobName,
			"duration_seconds", duration.Seconds(),
			"error", err,
		)
		return summary, err
	}

	p.logger.Info("pipeline run complete",
		"job", jobName,
		"counties_processed", summary.CountiesProcessed,
		"counties_requested", summary.CountiesRequested,
		"records_attempted", summary.Records.Attempted,
		"records_inserted", summary.Records.Inserted,
		"duration_seconds", duration.Seconds(),
	)
	return summary, nil
}

func jobDetails(s Summary) string {
	return fmt.Sprintf("processed %d/%d counties, %d records attempted, %d new",
		s.CountiesProcessed, s.CountiesRequested, s.Records.Attempted, s.Records.Inserted)
}
