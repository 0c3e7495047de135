package tokenmeter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/tokenmeter/internal/db"
	"github.com/kailas-cloud/tokenmeter/internal/db/dbopen"
	settingsrepo "github.com/kailas-cloud/tokenmeter/internal/repository/settings"
	usagerepo "github.com/kailas-cloud/tokenmeter/internal/repository/usage"
	"github.com/kailas-cloud/tokenmeter/internal/transport/upstream"
	healthuc "github.com/kailas-cloud/tokenmeter/internal/usecase/health"
	proxyuc "github.com/kailas-cloud/tokenmeter/internal/usecase/proxy"
	"github.com/kailas-cloud/tokenmeter/internal/usecase/quota"
	resetuc "github.com/kailas-cloud/tokenmeter/internal/usecase/reset"
	settingsuc "github.com/kailas-cloud/tokenmeter/internal/usecase/settings"
	usageuc "github.com/kailas-cloud/tokenmeter/internal/usecase/usage"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	defaultKeyPrefix        = "openai:"
)

// Internal interfaces so tests can substitute the use cases.
type proxyUseCase interface {
	Call(ctx context.Context, callerID string, req proxyuc.Request) (proxyuc.Result, error)
}

type usageUseCase interface {
	Report(ctx context.Context, callerID string) (usageuc.Report, error)
}

type resetUseCase interface {
	ResetDaily(ctx context.Context) (resetuc.Run, error)
	ResetMonthly(ctx context.Context) (resetuc.Run, error)
}

type settingsUseCase interface {
	Apply(ctx context.Context, doc settingsuc.Document) ([]string, error)
}

type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}

// Client is the tokenmeter SDK entry point. It is safe for concurrent use.
type Client struct {
	store       db.Store
	proxySvc    proxyUseCase
	usageSvc    usageUseCase
	resetSvc    resetUseCase
	settingsSvc settingsUseCase
	healthSvc   healthUseCase
	obs         *observer
}

// New creates a Client and connects to the configured store.
// The provided context is used for the initial readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{keyPrefix: defaultKeyPrefix}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.db.Driver == "" {
		return nil, errors.New("tokenmeter: storage required (use WithRedis, WithValkey, WithSQLite, WithPostgres or WithMemory)")
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	store, err := dbopen.Open(ctx, cfg.db)
	if err != nil {
		return nil, fmt.Errorf("tokenmeter: %w", err)
	}

	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("tokenmeter: database not ready: %w", err)
	}

	return wireClient(store, cfg, obs), nil
}

func wireClient(store db.Store, cfg *clientConfig, obs *observer) *Client {
	settings := settingsrepo.New(store, cfg.keyPrefix)
	usage := usagerepo.New(store, cfg.keyPrefix)

	gateway := upstream.NewGateway(settings, upstream.Config{
		BaseURL:    cfg.baseURL,
		HTTPClient: cfg.httpClient,
	})

	return &Client{
		store:       store,
		proxySvc:    proxyuc.New(quota.New(settings, usage), gateway, usage, nil),
		usageSvc:    usageuc.New(settings, usage),
		resetSvc:    resetuc.New(usage, nil),
		settingsSvc: settingsuc.New(settings, nil),
		healthSvc:   healthuc.New(store, gateway),
		obs:         obs,
	}
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}
