package tokenmeter

import (
	"errors"
	"time"

	"github.com/kailas-cloud/tokenmeter/internal/domain"
	"github.com/kailas-cloud/tokenmeter/internal/usecase/quota"
)

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrMissingPayload        = domain.ErrMissingPayload
	ErrMissingURLPath        = domain.ErrMissingURLPath
	ErrPayloadTooLarge       = domain.ErrPayloadTooLarge
	ErrDailyLimitReached     = domain.ErrDailyLimitReached
	ErrMonthlyLimitReached   = domain.ErrMonthlyLimitReached
	ErrUpstream              = domain.ErrUpstream
	ErrProviderNotConfigured = domain.ErrProviderNotConfigured
	ErrStore                 = domain.ErrStore
)

// QuotaError is returned by Call when the caller may not proceed.
type QuotaError struct {
	// Message is the human readable denial, as the HTTP server sends it.
	Message string
	// Usage is nil when the payload was rejected before usage was read.
	Usage  *Usage
	Limits Limits
	// RetryAfter is the time until the exhausted window resets; zero for
	// payload size denials.
	RetryAfter time.Duration

	sentinel error
}

func (e *QuotaError) Error() string { return e.Message }

// Unwrap returns ErrPayloadTooLarge, ErrDailyLimitReached or ErrMonthlyLimitReached.
func (e *QuotaError) Unwrap() error { return e.sentinel }

// translateError converts internal denials into QuotaError.
func translateError(err error) error {
	var denied *quota.DeniedError
	if !errors.As(err, &denied) {
		return err
	}
	d := denied.Decision
	qe := &QuotaError{
		Message:    denied.Error(),
		Limits:     limitsFromDomain(d.Limits),
		RetryAfter: d.Countdown(),
		sentinel:   denied.Unwrap(),
	}
	if d.Snapshot != nil {
		u := usageFromSnapshot(*d.Snapshot)
		qe.Usage = &u
	}
	return qe
}
