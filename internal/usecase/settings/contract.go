package settings

import (
	"context"

	"github.com/kailas-cloud/tokenmeter/internal/domain/limits"
	"github.com/kailas-cloud/tokenmeter/internal/domain/payload"
)

// Writer persists the externally managed settings.
type Writer interface {
	SetLimits(ctx context.Context, l limits.Limits) error
	SetAPIKey(ctx context.Context, key string) error
	SetProviderConfig(ctx context.Context, cfg payload.Object) error
}
