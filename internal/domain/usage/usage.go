package usage

import (
	"fmt"
	"time"

	"github.com/kailas-cloud/tokenmeter/internal/domain/resetclock"
)

// Period names a usage counter.
type Period string

// Counter period constants. The values double as persisted field names.
const (
	PeriodDaily   Period = "daily"
	PeriodMonthly Period = "monthly"
)

// Periods lists every counter in evaluation order.
var Periods = []Period{PeriodDaily, PeriodMonthly}

// Validate checks that p is a known period.
func (p Period) Validate() error {
	switch p {
	case PeriodDaily, PeriodMonthly:
		return nil
	default:
		return fmt.Errorf("unknown usage period %q", p)
	}
}

// Record is a caller's token consumption in the current day and month.
// An absent record reads as zero.
type Record struct {
	daily   int64
	monthly int64
}

// NewRecord creates a usage record.
func NewRecord(daily, monthly int64) Record {
	return Record{daily: daily, monthly: monthly}
}

// Daily returns tokens consumed since the last daily reset.
func (r Record) Daily() int64 { return r.daily }

// Monthly returns tokens consumed since the last monthly reset.
func (r Record) Monthly() int64 { return r.monthly }

// Get returns the counter for p.
func (r Record) Get(p Period) int64 {
	if p == PeriodMonthly {
		return r.monthly
	}
	return r.daily
}

// Add returns a record with tokens added to both counters.
func (r Record) Add(tokens int64) Record {
	return Record{daily: r.daily + tokens, monthly: r.monthly + tokens}
}

// Snapshot is a usage record paired with countdowns to the next resets,
// computed at one evaluation instant.
type Snapshot struct {
	record       Record
	resetDaily   time.Duration
	resetMonthly time.Duration
}

// NewSnapshot evaluates reset countdowns at now.
func NewSnapshot(r Record, now time.Time) Snapshot {
	return Snapshot{
		record:       r,
		resetDaily:   resetclock.UntilNextDay(now),
		resetMonthly: resetclock.UntilNextMonth(now),
	}
}

// Record returns the usage counters.
func (s Snapshot) Record() Record { return s.record }

// ResetDaily returns the time left until the daily counter resets.
func (s Snapshot) ResetDaily() time.Duration { return s.resetDaily }

// ResetMonthly returns the time left until the monthly counter resets.
func (s Snapshot) ResetMonthly() time.Duration { return s.resetMonthly }

// WithTokens returns a snapshot whose counters include tokens.
func (s Snapshot) WithTokens(tokens int64) Snapshot {
	s.record = s.record.Add(tokens)
	return s
}
