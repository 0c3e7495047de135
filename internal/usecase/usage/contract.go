package usage

import (
	"context"

	"github.com/kailas-cloud/tokenmeter/internal/domain/limits"
	domusage "github.com/kailas-cloud/tokenmeter/internal/domain/usage"
)

// LimitsReader loads the global limits.
type LimitsReader interface {
	Limits(ctx context.Context) (limits.Limits, error)
}

// Repository reads caller counters.
type Repository interface {
	Get(ctx context.Context, callerID string) (domusage.Record, error)
	List(ctx context.Context) (map[string]domusage.Record, error)
}
