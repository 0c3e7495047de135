package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingPayload signals a request without a payload object.
	ErrMissingPayload = errors.New("missing payload")
	// ErrMissingURLPath signals a request without an upstream path.
	ErrMissingURLPath = errors.New("missing urlPath")

	// ErrPayloadTooLarge signals a payload above the configured size cap.
	ErrPayloadTooLarge = errors.New("payload too large")
	// ErrDailyLimitReached signals an exhausted daily allowance.
	ErrDailyLimitReached = errors.New("daily usage limit reached")
	// ErrMonthlyLimitReached signals an exhausted monthly allowance.
	ErrMonthlyLimitReached = errors.New("monthly usage limit reached")

	// ErrUpstream signals a provider transport failure or a non-2xx reply.
	ErrUpstream = errors.New("upstream error")
	// ErrProviderNotConfigured signals that no provider API key is stored.
	ErrProviderNotConfigured = errors.New("provider not configured")
	// ErrStore signals a usage store failure.
	ErrStore = errors.New("store error")

	// ErrMissingToken signals an absent or non-Bearer authorization header.
	ErrMissingToken = errors.New("missing auth token")
	// ErrInvalidToken signals a token the identity verifier rejected.
	ErrInvalidToken = errors.New("invalid token")
)

// UpstreamStatusError carries the status of a non-2xx provider reply.
type UpstreamStatusError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamStatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: status %d", ErrUpstream.Error(), e.StatusCode)
	}
	return fmt.Sprintf("%s: status %d: %s", ErrUpstream.Error(), e.StatusCode, e.Message)
}

func (e *UpstreamStatusError) Unwrap() error { return ErrUpstream }
