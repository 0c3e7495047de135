package quota

import (
	"context"

	"github.com/kailas-cloud/tokenmeter/internal/domain/limits"
	"github.com/kailas-cloud/tokenmeter/internal/domain/usage"
)

// LimitsReader loads the global limits.
type LimitsReader interface {
	Limits(ctx context.Context) (limits.Limits, error)
}

// UsageReader loads a caller's counters.
type UsageReader interface {
	Get(ctx context.Context, callerID string) (usage.Record, error)
}
