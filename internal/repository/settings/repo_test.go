package settings

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/tokenmeter/internal/db"
	"github.com/kailas-cloud/tokenmeter/internal/db/memory"
	"github.com/kailas-cloud/tokenmeter/internal/domain"
	"github.com/kailas-cloud/tokenmeter/internal/domain/limits"
	"github.com/kailas-cloud/tokenmeter/internal/domain/payload"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	getFn func(ctx context.Context, key string) ([]byte, error)
	setFn func(ctx context.Context, key string, value []byte) error
}

func (m *mockStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	return nil, db.ErrKeyNotFound
}

func (m *mockStore) Set(ctx context.Context, key string, value []byte) error {
	if m.setFn != nil {
		return m.setFn(ctx, key, value)
	}
	return nil
}

func TestMissingValues(t *testing.T) {
	r := New(&mockStore{}, "openai:")
	ctx := context.Background()

	l, err := r.Limits(ctx)
	if err != nil {
		t.Fatalf("Limits: %v", err)
	}
	if !l.IsZero() {
		t.Errorf("expected no limits, got %+v", l)
	}

	key, err := r.APIKey(ctx)
	if err != nil || key != "" {
		t.Errorf("APIKey = %q, %v", key, err)
	}

	cfg, err := r.ProviderConfig(ctx)
	if err != nil {
		t.Fatalf("ProviderConfig: %v", err)
	}
	if cfg == nil || len(cfg) != 0 {
		t.Errorf("expected empty overlay, got %v", cfg)
	}
}

func TestLimits_Decode(t *testing.T) {
	var gotKey string
	r := New(&mockStore{
		getFn: func(_ context.Context, key string) ([]byte, error) {
			gotKey = key
			return []byte(`{"maxPayloadSize":1000,"daily":100,"monthly":1000}`), nil
		},
	}, "openai:")

	l, err := r.Limits(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if gotKey != "openai:limits" {
		t.Errorf("key = %q", gotKey)
	}
	if v, _ := l.DailyCap(); v != 100 {
		t.Errorf("DailyCap = %d", v)
	}
}

func TestLimits_Corrupt(t *testing.T) {
	r := New(&mockStore{
		getFn: func(context.Context, string) ([]byte, error) {
			return []byte(`{not json`), nil
		},
	}, "openai:")

	if _, err := r.Limits(context.Background()); !errors.Is(err, domain.ErrStore) {
		t.Errorf("expected ErrStore, got %v", err)
	}
}

func TestGet_StoreError(t *testing.T) {
	r := New(&mockStore{
		getFn: func(context.Context, string) ([]byte, error) {
			return nil, errors.New("connection reset")
		},
	}, "openai:")

	if _, err := r.APIKey(context.Background()); !errors.Is(err, domain.ErrStore) {
		t.Errorf("expected ErrStore, got %v", err)
	}
}

func TestProviderConfig_NotObject(t *testing.T) {
	r := New(&mockStore{
		getFn: func(context.Context, string) ([]byte, error) {
			return []byte(`["model"]`), nil
		},
	}, "openai:")

	if _, err := r.ProviderConfig(context.Background()); !errors.Is(err, domain.ErrStore) {
		t.Errorf("expected ErrStore, got %v", err)
	}
}

func TestRoundTrip_Memory(t *testing.T) {
	ctx := context.Background()
	r := New(memory.New(), "openai:")

	if err := r.SetLimits(ctx, limits.New(0, 100, 1000)); err != nil {
		t.Fatal(err)
	}
	if err := r.SetAPIKey(ctx, "sk-test\n"); err != nil {
		t.Fatal(err)
	}
	if err := r.SetProviderConfig(ctx, payload.Object{"model": "gpt-4o-mini"}); err != nil {
		t.Fatal(err)
	}

	l, err := r.Limits(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := l.PayloadCap(); ok {
		t.Error("payload cap should be unset")
	}
	if v, _ := l.MonthlyCap(); v != 1000 {
		t.Errorf("MonthlyCap = %d", v)
	}

	key, err := r.APIKey(ctx)
	if err != nil || key != "sk-test" {
		t.Errorf("APIKey = %q, %v", key, err)
	}

	cfg, err := r.ProviderConfig(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if cfg["model"] != "gpt-4o-mini" {
		t.Errorf("config = %v", cfg)
	}
}
