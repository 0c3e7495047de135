// Package resetclock computes time remaining until the next daily and monthly
// usage resets. All boundaries are UTC regardless of the input location.
// Durations have millisecond resolution.
package resetclock

import "time"

// Day is the length of a daily usage window.
const Day = 24 * time.Hour

const dayMillis = int64(Day / time.Millisecond)

// UntilNextDay returns the time left until the next UTC midnight.
// The result is in (0, Day]; exactly at midnight it is a full Day.
func UntilNextDay(now time.Time) time.Duration {
	ms := now.UnixMilli() % dayMillis
	if ms < 0 {
		ms += dayMillis
	}
	return time.Duration(dayMillis-ms) * time.Millisecond
}

// UntilNextMonth returns the time left until 00:00 UTC on the first day of
// the next calendar month. December rolls over to January of the next year.
func UntilNextMonth(now time.Time) time.Duration {
	return NextMonth(now).Sub(truncateMillis(now))
}

// NextDay returns the next UTC midnight strictly after now.
func NextDay(now time.Time) time.Time {
	return truncateMillis(now).Add(UntilNextDay(now))
}

// NextMonth returns the first instant of the next UTC calendar month.
func NextMonth(now time.Time) time.Time {
	u := now.UTC()
	return time.Date(u.Year(), u.Month()+1, 1, 0, 0, 0, 0, time.UTC)
}

func truncateMillis(t time.Time) time.Time {
	return time.UnixMilli(t.UnixMilli()).UTC()
}
