package quota

import (
	"fmt"
	"time"

	"github.com/kailas-cloud/tokenmeter/internal/domain"
	"github.com/kailas-cloud/tokenmeter/internal/domain/limits"
	"github.com/kailas-cloud/tokenmeter/internal/domain/usage"
)

// Reason names why a request was denied.
type Reason string

// Denial reasons. ReasonNone marks an allowed request.
const (
	ReasonNone            Reason = ""
	ReasonPayloadTooLarge Reason = "payload_too_large"
	ReasonDailyLimit      Reason = "daily_limit"
	ReasonMonthlyLimit    Reason = "monthly_limit"
)

// Decision is the outcome of a quota evaluation.
type Decision struct {
	Reason Reason
	Limits limits.Limits
	// Snapshot is nil when the request was denied before usage was read.
	Snapshot *usage.Snapshot
	// PayloadSize is the serialized payload length when a size cap applied.
	PayloadSize int64
}

// Allowed reports whether the request may proceed.
func (d Decision) Allowed() bool { return d.Reason == ReasonNone }

// Countdown returns the time until the exhausted window resets.
func (d Decision) Countdown() time.Duration {
	if d.Snapshot == nil {
		return 0
	}
	switch d.Reason {
	case ReasonDailyLimit:
		return d.Snapshot.ResetDaily()
	case ReasonMonthlyLimit:
		return d.Snapshot.ResetMonthly()
	default:
		return 0
	}
}

// DeniedError carries a denying decision up to the transport layer.
type DeniedError struct {
	Decision Decision
}

func (e *DeniedError) Error() string {
	d := e.Decision
	switch d.Reason {
	case ReasonPayloadTooLarge:
		maxSize, _ := d.Limits.PayloadCap()
		return fmt.Sprintf("The payload is too large: %d characters, maximum allowed: %d", d.PayloadSize, maxSize)
	case ReasonDailyLimit:
		return fmt.Sprintf("Daily usage limit reached. It will be reset in %d", d.Countdown().Milliseconds())
	case ReasonMonthlyLimit:
		return fmt.Sprintf("Monthly usage limit reached. It will be reset in %d", d.Countdown().Milliseconds())
	default:
		return "quota denied"
	}
}

func (e *DeniedError) Unwrap() error {
	switch e.Decision.Reason {
	case ReasonPayloadTooLarge:
		return domain.ErrPayloadTooLarge
	case ReasonDailyLimit:
		return domain.ErrDailyLimitReached
	case ReasonMonthlyLimit:
		return domain.ErrMonthlyLimitReached
	default:
		return nil
	}
}
