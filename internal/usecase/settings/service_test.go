package settings

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/kailas-cloud/tokenmeter/internal/db/memory"
	"github.com/kailas-cloud/tokenmeter/internal/domain/limits"
	"github.com/kailas-cloud/tokenmeter/internal/domain/payload"
	settingsrepo "github.com/kailas-cloud/tokenmeter/internal/repository/settings"
)

// --- Mocks ---

type mockWriter struct {
	mu      sync.Mutex
	limits  *limits.Limits
	apiKey  *string
	config  payload.Object
	applies int
	err     error
}

func (m *mockWriter) SetLimits(_ context.Context, l limits.Limits) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.applies++
	m.limits = &l
	return m.err
}

func (m *mockWriter) SetAPIKey(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.apiKey = &key
	return m.err
}

func (m *mockWriter) SetProviderConfig(_ context.Context, cfg payload.Object) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config = cfg
	return m.err
}

func (m *mockWriter) dailyCap() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.limits == nil {
		return 0
	}
	d, _ := m.limits.DailyCap()
	return d
}

// --- Tests ---

func TestParse(t *testing.T) {
	t.Setenv("TM_TEST_KEY", "sk-from-env")

	doc, err := Parse([]byte(`
limits:
  max_payload_size: 20000
  daily: 50000
api_key: ${TM_TEST_KEY}
config:
  model: gpt-4o-mini
  temperature: 0.2
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	lim := doc.Limits.Limits()
	if v, ok := lim.PayloadCap(); !ok || v != 20000 {
		t.Errorf("payload cap = %d,%v", v, ok)
	}
	if _, ok := lim.MonthlyCap(); ok {
		t.Error("monthly should be unset")
	}
	if doc.APIKey == nil || *doc.APIKey != "sk-from-env" {
		t.Errorf("api key = %v", doc.APIKey)
	}
	if doc.ProviderConfig()["model"] != "gpt-4o-mini" {
		t.Errorf("config = %v", doc.Config)
	}
}

func TestParse_Errors(t *testing.T) {
	if _, err := Parse([]byte("other: 1\n")); !errors.Is(err, ErrEmptyDocument) {
		t.Errorf("expected ErrEmptyDocument, got %v", err)
	}
	if _, err := Parse([]byte("limits: [1, 2\n")); err == nil {
		t.Error("expected YAML error")
	}
}

func TestApply_OnlyPresentSections(t *testing.T) {
	w := &mockWriter{}
	svc := New(w, nil)

	key := "sk-1"
	applied, err := svc.Apply(context.Background(), Document{APIKey: &key})
	if err != nil {
		t.Fatal(err)
	}
	if len(applied) != 1 || applied[0] != "api_key" {
		t.Errorf("applied = %v", applied)
	}
	if w.limits != nil || w.config != nil {
		t.Error("absent sections must not be written")
	}
}

func TestApply_Error(t *testing.T) {
	w := &mockWriter{err: errors.New("store down")}
	svc := New(w, nil)

	applied, err := svc.Apply(context.Background(), Document{Limits: &LimitsSection{}})
	if err == nil {
		t.Fatal("expected error")
	}
	if len(applied) != 0 {
		t.Errorf("nothing should be reported as applied, got %v", applied)
	}
}

func TestApplyFile_RoundTripThroughRepository(t *testing.T) {
	ctx := context.Background()
	repo := settingsrepo.New(memory.New(), "openai:")
	svc := New(repo, nil)

	path := filepath.Join(t.TempDir(), "settings.yaml")
	content := "limits:\n  daily: 100\n  monthly: 1000\napi_key: sk-file\nconfig:\n  model: gpt-4o\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.ApplyFile(ctx, path); err != nil {
		t.Fatalf("ApplyFile: %v", err)
	}

	lim, err := repo.Limits(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if d, _ := lim.DailyCap(); d != 100 {
		t.Errorf("daily cap = %d", d)
	}
	key, _ := repo.APIKey(ctx)
	if key != "sk-file" {
		t.Errorf("api key = %q", key)
	}
	cfg, _ := repo.ProviderConfig(ctx)
	if cfg["model"] != "gpt-4o" {
		t.Errorf("config = %v", cfg)
	}
}

func TestWatcher_ReappliesOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")
	if err := os.WriteFile(path, []byte("limits:\n  daily: 1\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	w := &mockWriter{}
	watcher := NewWatcher(New(w, nil), path, 20*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- watcher.Watch(ctx) }()

	// give the watcher time to register
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(path, []byte("limits:\n  daily: 42\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	// unrelated files in the directory are ignored
	if err := os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("limits:\n  daily: 7\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for w.dailyCap() != 42 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	if got := w.dailyCap(); got != 42 {
		t.Fatalf("daily cap after reload = %d, want 42", got)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatcher_MissingDirectory(t *testing.T) {
	watcher := NewWatcher(New(&mockWriter{}, nil), "/nonexistent/dir/settings.yaml", 0, nil)
	if err := watcher.Watch(context.Background()); err == nil {
		t.Fatal("expected error for missing directory")
	}
}
