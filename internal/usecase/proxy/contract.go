package proxy

import (
	"context"

	"github.com/kailas-cloud/tokenmeter/internal/domain/payload"
	"github.com/kailas-cloud/tokenmeter/internal/domain/usage"
	"github.com/kailas-cloud/tokenmeter/internal/transport/upstream"
	"github.com/kailas-cloud/tokenmeter/internal/usecase/quota"
)

// QuotaEvaluator decides whether a call may proceed.
type QuotaEvaluator interface {
	Evaluate(ctx context.Context, callerID string, p payload.Object) (quota.Decision, error)
}

// Provider forwards a call to the generative AI provider.
type Provider interface {
	Call(ctx context.Context, urlPath string, p payload.Object) (upstream.Response, error)
}

// UsageRecorder applies atomic increments to a caller's counters.
type UsageRecorder interface {
	IncrBy(ctx context.Context, callerID string, period usage.Period, delta int64) (int64, error)
}
