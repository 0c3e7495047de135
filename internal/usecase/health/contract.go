package health

import "context"

// DBPinger checks database availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// UpstreamChecker checks that the provider accepts the stored API key.
type UpstreamChecker interface {
	HealthCheck(ctx context.Context) error
}
