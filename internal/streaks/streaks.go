// Package streaks computes consecutive-day activity streaks from sparse
// per-day counts.
package streaks

import (
	"sort"
	"time"
)

// Compute returns the current and the longest streak of consecutive days
// with a positive count.
//
// Map keys are interpreted as calendar dates: only year, month and day
// matter, so keys that are not normalized to midnight still land on their
// day. The current streak walks back from today and stops at the first day
// without activity; today itself without activity gives a current streak
// of 0.
func Compute(dailyCounts map[time.Time]int, today time.Time) (current, longest int) {
	if len(dailyCounts) == 0 {
		return 0, 0
	}

	active := make(map[civilDate]struct{}, len(dailyCounts))
	for day, count := range dailyCounts {
		if count > 0 {
			active[toCivil(day)] = struct{}{}
		}
	}
	if len(active) == 0 {
		return 0, 0
	}

	return currentStreak(active, toCivil(today)), longestStreak(active)
}

func longestStreak(active map[civilDate]struct{}) int {
	days := make([]civilDate, 0, len(active))
	for d := range active {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool {
		return days[i].before(days[j])
	})

	longest, running := 1, 1
	for i := 1; i < len(days); i++ {
		if days[i] == days[i-1].next() {
			running++
		} else {
			running = 1
		}
		if running > longest {
			longest = running
		}
	}
	return longest
}

func currentStreak(active map[civilDate]struct{}, today civilDate) int {
	current := 0
	for d := today; ; d = d.prev() {
		if _, ok := active[d]; !ok {
			return current
		}
		current++
	}
}

// civilDate is a zone-free calendar date; stepping by days on it is immune
// to DST transitions of the location the counts were recorded in.
type civilDate struct {
	year  int
	month time.Month
	day   int
}

func toCivil(t time.Time) civilDate {
	y, m, d := t.Date()
	return civilDate{year: y, month: m, day: d}
}

func (c civilDate) time() time.Time {
	return time.Date(c.year, c.month, c.day, 0, 0, 0, 0, time.UTC)
}

func (c civilDate) next() civilDate {
	return toCivil(c.time().AddDate(0, 0, 1))
}

func (c civilDate) prev() civilDate {
	return toCivil(c.time().AddDate(0, 0, -1))
}

func (c civilDate) before(o civilDate) bool {
	return c.time().Before(o.time())
}
