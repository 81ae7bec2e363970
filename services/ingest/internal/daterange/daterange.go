// Package daterange splits large fetch intervals into calendar-month chunks so
// individual upstream requests stay small enough to succeed reliably.
package daterange

import "time"

// DateLayout is the calendar-date format the USGS water services accept.
const DateLayout = "2006-01-02"

// Range is a half-open [Start, End) calendar interval. End of chunk i equals
// Start of chunk i+1, so concatenated chunks cover the full interval with no
// gap and no overlap.
type Range struct {
	Start time.Time
	End   time.Time
}

// StartDate returns Start formatted for upstream query parameters.
func (r Range) StartDate() string { return r.Start.Format(DateLayout) }

// EndDate returns End formatted for upstream query parameters.
func (r Range) EndDate() string { return r.End.Format(DateLayout) }

// Split partitions [start, end) into consecutive chunks of chunkMonths
// calendar months, the final chunk clipped to exactly end. start == end (or
// start after end) yields no chunks. chunkMonths must be positive.
func Split(start, end time.Time, chunkMonths int) []Range {
	if chunkMonths <= 0 {
		return nil
	}

	var ranges []Range
	cur := start
	for cur.Before(end) {
		next := cur.AddDate(0, chunkMonths, 0)
		if next.After(end) {
			next = end
		}
		ranges = append(ranges, Range{Start: cur, End: next})
		cur = next
	}
	return ranges
}

// Day truncates a time to midnight UTC, the granularity the partitioner and
// URL builders operate at.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
