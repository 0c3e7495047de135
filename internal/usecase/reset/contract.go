package reset

import "context"

// UsageResetter mutates every caller's counters at once.
type UsageResetter interface {
	// ResetDaily sets the daily counter of every caller to zero.
	ResetDaily(ctx context.Context) (int, error)
	// RemoveAll deletes every caller's counters.
	RemoveAll(ctx context.Context) (int, error)
}
