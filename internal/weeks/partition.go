// Package weeks splits a global date interval into calendar-aligned week
// chunks. Ranges are inclusive on both ends, contiguous, and clipped to the
// configured [since, until] interval.
package weeks

import (
	"fmt"
	"time"

	"chanperf/internal/errors"
)

// Range is one inclusive week chunk. Start and End carry date precision only;
// time-of-day and location are normalized to midnight UTC.
type Range struct {
	Start time.Time
	End   time.Time
}

// Days returns the number of calendar days covered by the range.
func (r Range) Days() int {
	return int(r.End.Sub(r.Start).Hours()/24) + 1
}

// Label renders the range as "M/D-M/D" with no leading zeros and no year,
// the form used for the Dates/Week summary column.
func (r Range) Label() string {
	return fmt.Sprintf("%d/%d-%d/%d",
		int(r.Start.Month()), r.Start.Day(),
		int(r.End.Month()), r.End.Day())
}

// String renders the range as "YYYY-MM-DD..YYYY-MM-DD" for logs.
func (r Range) String() string {
	return r.Start.Format("2006-01-02") + ".." + r.End.Format("2006-01-02")
}

// weekAnchor returns the start of the calendar week containing d.
// weekStart follows the Monday=0 .. Sunday=6 convention.
func weekAnchor(d time.Time, weekStart int) time.Time {
	// Go's Weekday is Sunday-based; shift to Monday=0 before applying the
	// configured week start.
	mondayBased := (int(d.Weekday()) + 6) % 7
	delta := (mondayBased - weekStart + 7) % 7
	return d.AddDate(0, 0, -delta)
}

// Partition splits [since, until] into calendar-aligned week ranges. The
// first range may be shorter than a full week when since falls mid-week; the
// last range is clipped to until. Returns errors.ErrInvalidRange when until
// precedes since, and KindInvalidRange when weekStart is outside [0, 6].
func Partition(since, until time.Time, weekStart int) ([]Range, error) {
	if weekStart < 0 || weekStart > 6 {
		return nil, errors.New(errors.KindInvalidRange, "partition",
			fmt.Sprintf("week start day must be in [0,6], got %d", weekStart))
	}

	since = truncate(since)
	until = truncate(until)
	if until.Before(since) {
		return nil, errors.Wrap(errors.KindInvalidRange, "partition",
			fmt.Sprintf("until %s is before since %s",
				until.Format("2006-01-02"), since.Format("2006-01-02")), nil)
	}

	var ranges []Range
	for cur := since; !cur.After(until); {
		weekEnd := weekAnchor(cur, weekStart).AddDate(0, 0, 6)
		end := weekEnd
		if end.After(until) {
			end = until
		}
		ranges = append(ranges, Range{Start: cur, End: end})
		cur = end.AddDate(0, 0, 1)
	}
	return ranges, nil
}

// truncate drops time-of-day and pins the date to UTC so day arithmetic never
// crosses DST boundaries.
func truncate(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}
