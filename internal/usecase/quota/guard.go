// Package quota decides whether a caller may make a provider call, given
// the global limits and the caller's current usage.
package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/tokenmeter/internal/domain/payload"
	"github.com/kailas-cloud/tokenmeter/internal/domain/usage"
	"github.com/kailas-cloud/tokenmeter/internal/metrics"
)

// Guard evaluates limits in a fixed order: payload size, then daily, then
// monthly. The first violated limit decides.
type Guard struct {
	limits LimitsReader
	usage  UsageReader
	now    func() time.Time
}

// New creates a Guard.
func New(l LimitsReader, u UsageReader) *Guard {
	return &Guard{limits: l, usage: u, now: time.Now}
}

// WithClock overrides the time source used for reset countdowns.
func (g *Guard) WithClock(now func() time.Time) *Guard {
	g.now = now
	return g
}

// Evaluate checks the payload and the caller's usage against the limits.
// A denial is returned as a Decision, not an error; errors are store failures.
// The payload size check runs before usage is read.
func (g *Guard) Evaluate(ctx context.Context, callerID string, p payload.Object) (Decision, error) {
	lim, err := g.limits.Limits(ctx)
	if err != nil {
		return Decision{}, fmt.Errorf("load limits: %w", err)
	}

	d := Decision{Limits: lim}

	if maxSize, ok := lim.PayloadCap(); ok {
		size, err := p.Size()
		if err != nil {
			return Decision{}, fmt.Errorf("measure payload: %w", err)
		}
		d.PayloadSize = size
		if size > maxSize {
			d.Reason = ReasonPayloadTooLarge
			return record(d), nil
		}
	}

	rec, err := g.usage.Get(ctx, callerID)
	if err != nil {
		return Decision{}, fmt.Errorf("load usage: %w", err)
	}
	snap := usage.NewSnapshot(rec, g.now())
	d.Snapshot = &snap

	if daily, ok := lim.DailyCap(); ok && rec.Daily() >= daily {
		d.Reason = ReasonDailyLimit
		return record(d), nil
	}
	if monthly, ok := lim.MonthlyCap(); ok && rec.Monthly() >= monthly {
		d.Reason = ReasonMonthlyLimit
		return record(d), nil
	}

	return record(d), nil
}

func record(d Decision) Decision {
	decision := "allow"
	reason := "none"
	if !d.Allowed() {
		decision = "deny"
		reason = string(d.Reason)
	}
	metrics.QuotaDecisionsTotal.WithLabelValues(decision, reason).Inc()
	return d
}
