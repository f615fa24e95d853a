package daterange

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidRange = errors.New("invalid date range: start after end")

const rollingWindowDays = 30

// Range is an inclusive time interval. Ranges built by the named
// constructors always span whole days: start at 00:00:00 of the first day,
// end at the last nanosecond of the last day.
type Range struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// New returns a range spanning [start, end] as given, without day normalization.
func New(start, end time.Time) (Range, error) {
	if start.After(end) {
		return Range{}, fmt.Errorf("%w: %s > %s", ErrInvalidRange, start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return Range{Start: start, End: end}, nil
}

// Days returns the whole-day range from the start of `from` to the end of `to`.
func Days(from, to time.Time) (Range, error) {
	return New(StartOfDay(from), EndOfDay(to))
}

// ThisWeek returns the Monday-to-Sunday week containing now.
func ThisWeek(now time.Time) Range {
	monday := StartOfDay(now).AddDate(0, 0, -daysSinceMonday(now.Weekday()))
	return Range{
		Start: monday,
		End:   EndOfDay(monday.AddDate(0, 0, 6)),
	}
}

// ThisMonth returns the calendar month containing now.
func ThisMonth(now time.Time) Range {
	return ForMonth(now.Year(), now.Month(), now.Location())
}

// ThisYear returns the calendar year containing now.
func ThisYear(now time.Time) Range {
	return ForYear(now.Year(), now.Location())
}

// Last30Days is the rolling window ending today, today included.
func Last30Days(now time.Time) Range {
	return Range{
		Start: StartOfDay(now).AddDate(0, 0, -(rollingWindowDays - 1)),
		End:   EndOfDay(now),
	}
}

// LastYear is the rolling 365 day window ending today.
func LastYear(now time.Time) Range {
	return Range{
		Start: StartOfDay(now).AddDate(0, 0, -364),
		End:   EndOfDay(now),
	}
}

// ForMonth returns the first through the last day of the given month.
// Months outside 1..12 are normalized, so ForMonth(2024, 13, loc) is January 2025.
func ForMonth(year int, month time.Month, loc *time.Location) Range {
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	// day 0 of the following month is the last day of this one
	last := time.Date(first.Year(), first.Month()+1, 0, 0, 0, 0, 0, loc)
	return Range{
		Start: first,
		End:   EndOfDay(last),
	}
}

func ForYear(year int, loc *time.Location) Range {
	return Range{
		Start: time.Date(year, time.January, 1, 0, 0, 0, 0, loc),
		End:   EndOfDay(time.Date(year, time.December, 31, 0, 0, 0, 0, loc)),
	}
}

// Contains reports whether t falls within the range, both ends inclusive.
func (r Range) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// DurationInDays is the number of calendar days touched by the range.
// Computed on the civil calendar so DST transitions do not shift the count.
func (r Range) DurationInDays() int {
	if r.End.Before(r.Start) {
		return 0
	}
	return civilDay(r.End) - civilDay(r.Start) + 1
}

// EachDay calls fn with the midnight of every day in the range, ascending.
func (r Range) EachDay(fn func(day time.Time)) {
	for d := StartOfDay(r.Start); !d.After(r.End); d = d.AddDate(0, 0, 1) {
		fn(d)
	}
}

func (r Range) String() string {
	return fmt.Sprintf("[%s .. %s]", r.Start.Format(time.DateTime), r.End.Format(time.DateTime))
}

func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func EndOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 999999999, t.Location())
}

// AddMonths returns the first day of the month `offset` months away from
// (year, month). Always computed relative to the anchor, never cumulatively.
func AddMonths(year int, month time.Month, offset int) (int, time.Month) {
	t := time.Date(year, month+time.Month(offset), 1, 0, 0, 0, 0, time.UTC)
	return t.Year(), t.Month()
}

func daysSinceMonday(wd time.Weekday) int {
	// Sunday is 0 in time.Weekday
	return (int(wd) + 6) % 7
}

func civilDay(t time.Time) int {
	return int(time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC).Unix() / 86400)
}
