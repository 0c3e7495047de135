package resetclock

import (
	"testing"
	"time"
)

func TestUntilNextDay(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want time.Duration
	}{
		{"one minute before midnight", time.Date(2024, 3, 10, 23, 59, 0, 0, time.UTC), time.Minute},
		{"exactly midnight", time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), Day},
		{"noon", time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC), 12 * time.Hour},
		{"one ms after midnight", time.Date(2024, 3, 10, 0, 0, 0, int(time.Millisecond), time.UTC), Day - time.Millisecond},
		{"non-UTC input", time.Date(2024, 3, 10, 20, 0, 0, 0, time.FixedZone("EST", -5*3600)), 23 * time.Hour},
		{"before epoch", time.Date(1969, 12, 31, 18, 0, 0, 0, time.UTC), 6 * time.Hour},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := UntilNextDay(tc.now); got != tc.want {
				t.Errorf("UntilNextDay(%s) = %s, want %s", tc.now, got, tc.want)
			}
		})
	}
}

func TestUntilNextDay_Bounds(t *testing.T) {
	start := time.Date(2024, 2, 28, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 2*24*60; i += 7 {
		now := start.Add(time.Duration(i)*time.Minute + 13*time.Millisecond)
		d := UntilNextDay(now)
		if d <= 0 || d > Day {
			t.Fatalf("UntilNextDay(%s) = %s out of (0, 24h]", now, d)
		}
		next := now.Add(d).UTC()
		if next.Hour() != 0 || next.Minute() != 0 || next.Second() != 0 {
			t.Fatalf("now+d = %s is not midnight", next)
		}
	}
}

func TestUntilNextMonth(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want time.Duration
	}{
		{"one ms before new year", time.Date(2024, 12, 31, 23, 59, 59, int(999*time.Millisecond), time.UTC), time.Millisecond},
		{"first instant of month", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 31 * Day},
		{"leap february", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), 29 * Day},
		{"plain february", time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC), 28 * Day},
		{"mid april", time.Date(2024, 4, 30, 12, 0, 0, 0, time.UTC), 12 * time.Hour},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := UntilNextMonth(tc.now); got != tc.want {
				t.Errorf("UntilNextMonth(%s) = %s, want %s", tc.now, got, tc.want)
			}
		})
	}
}

func TestUntilNextMonth_LandsOnFirst(t *testing.T) {
	now := time.Date(2023, 1, 15, 8, 30, 0, 0, time.UTC)
	for i := 0; i < 24; i++ {
		d := UntilNextMonth(now)
		if d <= 0 {
			t.Fatalf("UntilNextMonth(%s) = %s, want > 0", now, d)
		}
		next := now.Add(d)
		if next.Day() != 1 || next.Hour() != 0 || next.Minute() != 0 {
			t.Fatalf("now+d = %s is not the first of a month", next)
		}
		now = now.AddDate(0, 1, 0)
	}
}

func TestNextMonth_DecemberRolls(t *testing.T) {
	got := NextMonth(time.Date(2025, 12, 31, 23, 0, 0, 0, time.UTC))
	want := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("NextMonth = %s, want %s", got, want)
	}
}

func TestNextDay(t *testing.T) {
	got := NextDay(time.Date(2024, 3, 10, 5, 0, 0, 0, time.UTC))
	want := time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("NextDay = %s, want %s", got, want)
	}
}
