package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kailas-cloud/tokenmeter/internal/db"
	"github.com/kailas-cloud/tokenmeter/internal/domain"
	"github.com/kailas-cloud/tokenmeter/internal/domain/limits"
	"github.com/kailas-cloud/tokenmeter/internal/domain/payload"
)

// Persisted key names under the storage prefix.
const (
	KeyLimits = "limits"
	KeyAPIKey = "apiKey"
	KeyConfig = "config"
)

// store is the consumer interface for settings (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Repo reads and writes the global limits, provider API key and provider
// request overlay. Values are read on every call, so edits take effect
// without a restart.
type Repo struct {
	store  store
	prefix string
}

// New creates a settings repository rooted at keyPrefix.
func New(s store, keyPrefix string) *Repo {
	return &Repo{store: s, prefix: keyPrefix}
}

// Limits returns the global limits. Missing limits mean no limits.
func (r *Repo) Limits(ctx context.Context) (limits.Limits, error) {
	data, err := r.get(ctx, KeyLimits)
	if err != nil || data == nil {
		return limits.Limits{}, err
	}

	var l limits.Limits
	if err := json.Unmarshal(data, &l); err != nil {
		return limits.Limits{}, fmt.Errorf("%w: decode %s: %w", domain.ErrStore, KeyLimits, err)
	}
	return l, nil
}

// SetLimits replaces the global limits.
func (r *Repo) SetLimits(ctx context.Context, l limits.Limits) error {
	data, err := json.Marshal(l)
	if err != nil {
		return fmt.Errorf("encode %s: %w", KeyLimits, err)
	}
	return r.set(ctx, KeyLimits, data)
}

// APIKey returns the provider API key, or "" when none is stored.
func (r *Repo) APIKey(ctx context.Context) (string, error) {
	data, err := r.get(ctx, KeyAPIKey)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// SetAPIKey replaces the provider API key.
func (r *Repo) SetAPIKey(ctx context.Context, key string) error {
	return r.set(ctx, KeyAPIKey, []byte(key))
}

// ProviderConfig returns the request overlay merged over every payload.
// A missing overlay is empty.
func (r *Repo) ProviderConfig(ctx context.Context) (payload.Object, error) {
	data, err := r.get(ctx, KeyConfig)
	if err != nil {
		return nil, err
	}

	obj, err := payload.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", domain.ErrStore, KeyConfig, err)
	}
	if obj == nil {
		return payload.Object{}, nil
	}
	return obj, nil
}

// SetProviderConfig replaces the request overlay.
func (r *Repo) SetProviderConfig(ctx context.Context, cfg payload.Object) error {
	if cfg == nil {
		cfg = payload.Object{}
	}
	data, err := cfg.Encode()
	if err != nil {
		return fmt.Errorf("encode %s: %w", KeyConfig, err)
	}
	return r.set(ctx, KeyConfig, data)
}

// get returns nil data for a missing key.
func (r *Repo) get(ctx context.Context, name string) ([]byte, error) {
	data, err := r.store.Get(ctx, r.prefix+name)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: get %s: %w", domain.ErrStore, name, err)
	}
	return data, nil
}

func (r *Repo) set(ctx context.Context, name string, data []byte) error {
	if err := r.store.Set(ctx, r.prefix+name, data); err != nil {
		return fmt.Errorf("%w: set %s: %w", domain.ErrStore, name, err)
	}
	return nil
}
