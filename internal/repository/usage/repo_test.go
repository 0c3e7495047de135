package usage

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/kailas-cloud/tokenmeter/internal/db"
	"github.com/kailas-cloud/tokenmeter/internal/db/memory"
	"github.com/kailas-cloud/tokenmeter/internal/domain"
	"github.com/kailas-cloud/tokenmeter/internal/domain/usage"
)

func TestGet_Missing(t *testing.T) {
	r := New(&mockStore{}, "openai:")

	rec, err := r.Get(context.Background(), "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Daily() != 0 || rec.Monthly() != 0 {
		t.Errorf("expected zero record, got %+v", rec)
	}
}

func TestGet_Parses(t *testing.T) {
	var gotKey string
	r := New(&mockStore{
		hgetAllFn: func(_ context.Context, key string) (map[string]string, error) {
			gotKey = key
			return map[string]string{"daily": "5", "monthly": "50"}, nil
		},
	}, "openai:")

	rec, err := r.Get(context.Background(), "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotKey != "openai:usage:alice" {
		t.Errorf("key = %q", gotKey)
	}
	if rec.Daily() != 5 || rec.Monthly() != 50 {
		t.Errorf("unexpected record %d/%d", rec.Daily(), rec.Monthly())
	}
}

func TestGet_OnlyMonthly(t *testing.T) {
	r := New(&mockStore{
		hgetAllFn: func(context.Context, string) (map[string]string, error) {
			return map[string]string{"monthly": "7"}, nil
		},
	}, "openai:")

	rec, err := r.Get(context.Background(), "bob")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Daily() != 0 || rec.Monthly() != 7 {
		t.Errorf("unexpected record %d/%d", rec.Daily(), rec.Monthly())
	}
}

func TestGet_Corrupt(t *testing.T) {
	r := New(&mockStore{
		hgetAllFn: func(context.Context, string) (map[string]string, error) {
			return map[string]string{"daily": "abc"}, nil
		},
	}, "openai:")

	_, err := r.Get(context.Background(), "alice")
	if !errors.Is(err, domain.ErrStore) {
		t.Errorf("expected ErrStore, got %v", err)
	}
}

func TestGet_StoreError(t *testing.T) {
	r := New(&mockStore{
		hgetAllFn: func(context.Context, string) (map[string]string, error) {
			return nil, errors.New("connection refused")
		},
	}, "openai:")

	_, err := r.Get(context.Background(), "alice")
	if !errors.Is(err, domain.ErrStore) {
		t.Errorf("expected ErrStore, got %v", err)
	}
}

func TestIncrBy(t *testing.T) {
	var gotKey, gotField string
	var gotDelta int64
	r := New(&mockStore{
		hincrByFn: func(_ context.Context, key, field string, delta int64) (int64, error) {
			gotKey, gotField, gotDelta = key, field, delta
			return 53, nil
		},
	}, "openai:")

	n, err := r.IncrBy(context.Background(), "alice", usage.PeriodMonthly, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 53 {
		t.Errorf("n = %d", n)
	}
	if gotKey != "openai:usage:alice" || gotField != "monthly" || gotDelta != 3 {
		t.Errorf("HINCRBY %s %s %d", gotKey, gotField, gotDelta)
	}
}

func TestIncrBy_InvalidPeriod(t *testing.T) {
	called := false
	r := New(&mockStore{
		hincrByFn: func(context.Context, string, string, int64) (int64, error) {
			called = true
			return 0, nil
		},
	}, "openai:")

	if _, err := r.IncrBy(context.Background(), "alice", usage.Period("weekly"), 1); err == nil {
		t.Fatal("expected error")
	}
	if called {
		t.Error("store must not be called for an invalid period")
	}
}

func TestResetDaily(t *testing.T) {
	var gotPattern string
	var items []db.HashSetItem
	r := New(&mockStore{
		scanFn: func(_ context.Context, pattern string) ([]string, error) {
			gotPattern = pattern
			return []string{"openai:usage:a", "openai:usage:b"}, nil
		},
		hsetMultiFn: func(_ context.Context, in []db.HashSetItem) error {
			items = in
			return nil
		},
	}, "openai:")

	n, err := r.ResetDaily(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Errorf("n = %d", n)
	}
	if gotPattern != "openai:usage:*" {
		t.Errorf("pattern = %q", gotPattern)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	for _, it := range items {
		if len(it.Fields) != 1 || it.Fields["daily"] != "0" {
			t.Errorf("item %s fields = %v, want only daily=0", it.Key, it.Fields)
		}
	}
}

func TestResetDaily_Empty(t *testing.T) {
	r := New(&mockStore{
		hsetMultiFn: func(context.Context, []db.HashSetItem) error {
			t.Error("HSetMulti must not be called with no callers")
			return nil
		},
	}, "openai:")

	n, err := r.ResetDaily(context.Background())
	if err != nil || n != 0 {
		t.Errorf("ResetDaily = %d, %v", n, err)
	}
}

func TestRemoveAll_Error(t *testing.T) {
	r := New(&mockStore{
		scanFn: func(context.Context, string) ([]string, error) {
			return []string{"openai:usage:a"}, nil
		},
		delMultiFn: func(context.Context, []string) error {
			return errors.New("boom")
		},
	}, "openai:")

	_, err := r.RemoveAll(context.Background())
	if !errors.Is(err, domain.ErrStore) {
		t.Errorf("expected ErrStore, got %v", err)
	}
}

func TestScanPatternEscapesPrefix(t *testing.T) {
	var gotPattern string
	r := New(&mockStore{
		scanFn: func(_ context.Context, pattern string) ([]string, error) {
			gotPattern = pattern
			return nil, nil
		},
	}, "tenant[1]*:")

	if _, err := r.RemoveAll(context.Background()); err != nil {
		t.Fatal(err)
	}
	if gotPattern != `tenant\[1\]\*:usage:*` {
		t.Errorf("pattern = %q", gotPattern)
	}
}

// Resets against a real store: daily zeroing keeps monthly, removal clears all.
func TestResetLifecycle_Memory(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	r := New(s, "openai:")

	for _, id := range []string{"alice", "bob"} {
		if _, err := r.IncrBy(ctx, id, usage.PeriodDaily, 10); err != nil {
			t.Fatal(err)
		}
		if _, err := r.IncrBy(ctx, id, usage.PeriodMonthly, 100); err != nil {
			t.Fatal(err)
		}
	}
	// unrelated data under the same prefix must survive
	if err := s.Set(ctx, "openai:limits", []byte(`{"daily":5}`)); err != nil {
		t.Fatal(err)
	}

	n, err := r.ResetDaily(ctx)
	if err != nil || n != 2 {
		t.Fatalf("ResetDaily = %d, %v", n, err)
	}
	// idempotent
	if _, err := r.ResetDaily(ctx); err != nil {
		t.Fatal(err)
	}

	all, err := r.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	for id, rec := range all {
		if rec.Daily() != 0 || rec.Monthly() != 100 {
			t.Errorf("%s after daily reset = %d/%d, want 0/100", id, rec.Daily(), rec.Monthly())
		}
	}

	n, err = r.RemoveAll(ctx)
	if err != nil || n != 2 {
		t.Fatalf("RemoveAll = %d, %v", n, err)
	}
	rec, err := r.Get(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Daily() != 0 || rec.Monthly() != 0 {
		t.Errorf("after removal = %d/%d, want 0/0", rec.Daily(), rec.Monthly())
	}
	if _, err := s.Get(ctx, "openai:limits"); err != nil {
		t.Errorf("limits removed by usage reset: %v", err)
	}
}

func TestConcurrentIncrements_Memory(t *testing.T) {
	ctx := context.Background()
	r := New(memory.New(), "openai:")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = r.IncrBy(ctx, "alice", usage.PeriodDaily, 2)
			_, _ = r.IncrBy(ctx, "alice", usage.PeriodMonthly, 2)
		}()
	}
	wg.Wait()

	rec, err := r.Get(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Daily() != 100 || rec.Monthly() != 100 {
		t.Errorf("got %d/%d, want 100/100", rec.Daily(), rec.Monthly())
	}
}
