package tokenmeter

import (
	"encoding/json"
	"time"

	"github.com/kailas-cloud/tokenmeter/internal/domain/limits"
	"github.com/kailas-cloud/tokenmeter/internal/domain/usage"
)

// Usage is a caller's counters and the time left until each resets.
type Usage struct {
	Daily        int64
	Monthly      int64
	ResetDaily   time.Duration
	ResetMonthly time.Duration
}

// Limits are the global caps. A nil or non-positive field means no limit.
type Limits struct {
	MaxPayloadSize *int64
	Daily          *int64
	Monthly        *int64
}

// CallResult is the reply to a successful provider call.
type CallResult struct {
	// Usage includes the tokens consumed by this call.
	Usage  Usage
	Limits Limits
	// Result is the provider's reply body, verbatim.
	Result json.RawMessage
	// Tokens is the consumption reported by the provider.
	Tokens int64
}

// UsageReport is a caller's usage without a provider call.
type UsageReport struct {
	Usage  Usage
	Limits Limits
}

// Settings is the externally managed configuration. Nil fields are left
// unchanged by ApplySettings.
type Settings struct {
	Limits *Limits
	APIKey *string
	// Config is merged over every payload; its fields win on conflict.
	Config map[string]any
}

// Int returns a pointer to v, for Limits fields.
func Int(v int64) *int64 { return &v }

// String returns a pointer to v, for Settings.APIKey.
func String(v string) *string { return &v }

func usageFromSnapshot(s usage.Snapshot) Usage {
	rec := s.Record()
	return Usage{
		Daily:        rec.Daily(),
		Monthly:      rec.Monthly(),
		ResetDaily:   s.ResetDaily(),
		ResetMonthly: s.ResetMonthly(),
	}
}

func limitsFromDomain(l limits.Limits) Limits {
	return Limits{MaxPayloadSize: l.MaxPayloadSize, Daily: l.Daily, Monthly: l.Monthly}
}
