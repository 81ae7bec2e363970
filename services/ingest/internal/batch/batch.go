// Package batch drives work items through a processing function in fixed-width
// concurrent groups, isolating per-item failures and pausing between groups to
// bound the sustained request rate against the upstream service.
package batch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Scheduler configures group width and inter-group pacing. A zero Scheduler is
// usable: width defaults to 1 and no pause is taken.
type Scheduler struct {
	// Width is the number of items processed concurrently per group. Group N
	// fully settles before group N+1 starts, which bounds peak concurrent
	// work to Width.
	Width int
	// Pause is slept between groups (never after the last one).
	Pause time.Duration
	// Clock is the time source for pauses; nil means the real clock.
	Clock clockwork.Clock
	// Logger receives per-item failure reports; nil means slog.Default().
	Logger *slog.Logger
}

// Describer lets work items name themselves in failure logs.
type Describer interface {
	Describe() string
}

// Run processes items in settle-all groups. Every item in a group runs
// concurrently and the group waits for all of them; one item's failure never
// cancels its siblings. Failed items are logged and contribute no result.
// Successful results are returned in submission order. The context is checked
// between groups, so cancellation stops scheduling further work but does not
// interrupt the group in flight.
func Run[T any, R any](ctx context.Context, s Scheduler, items []T, fn func(context.Context, T) (R, error)) []R {
	width := s.Width
	if width <= 0 {
		width = 1
	}
	clock := s.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}

	results := make([]R, 0, len(items))
	groups := (len(items) + width - 1) / width

	for start := 0; start < len(items); start += width {
		if ctx.Err() != nil {
			logger.Warn("batch run cancelled", "completed_groups", start/width, "total_groups", groups)
			break
		}

		end := start + width
		if end > len(items) {
			end = len(items)
		}
		group := items[start:end]

		logger.Info("processing batch group",
			"group", start/width+1,
			"total_groups", groups,
			"items", len(group),
		)

		type slot struct {
			result R
			err    error
		}
		slots := make([]slot, len(group))

		var wg sync.WaitGroup
		for i, item := range group {
			wg.Add(1)
			go func(i int, item T) {
				defer wg.Done()
				slots[i].result, slots[i].err = fn(ctx, item)
			}(i, item)
		}
		wg.Wait()

		for i, sl := range slots {
			if sl.err != nil {
				logger.Error("work item failed",
					"item", describe(group[i]),
					"error", sl.err,
				)
				continue
			}
			results = append(results, sl.result)
		}

		if end < len(items) && s.Pause > 0 {
			if !sleep(ctx, clock, s.Pause) {
				logger.Warn("batch run cancelled during pause", "completed_groups", start/width+1, "total_groups", groups)
				break
			}
		}
	}

	return results
}

func describe(item any) string {
	if d, ok := item.(Describer); ok {
		return d.Describe()
	}
	return "work item"
}

func sleep(ctx context.Context, clock clockwork.Clock, d time.Duration) bool {
	timer := clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}
