package reset

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kailas-cloud/tokenmeter/internal/db/memory"
	"github.com/kailas-cloud/tokenmeter/internal/domain/usage"
	"github.com/kailas-cloud/tokenmeter/internal/metrics"
	usagerepo "github.com/kailas-cloud/tokenmeter/internal/repository/usage"
)

// --- Mocks ---

type mockResetter struct {
	daily, monthly atomic.Int32
	callers        int
	err            error
}

func (m *mockResetter) ResetDaily(context.Context) (int, error) {
	m.daily.Add(1)
	return m.callers, m.err
}

func (m *mockResetter) RemoveAll(context.Context) (int, error) {
	m.monthly.Add(1)
	return m.callers, m.err
}

// --- Tests ---

func TestResetDaily(t *testing.T) {
	repo := &mockResetter{callers: 3}
	svc := New(repo, nil)

	before := testutil.ToFloat64(metrics.UsageResetCallersTotal.WithLabelValues("daily"))

	run, err := svc.ResetDaily(context.Background())
	if err != nil {
		t.Fatalf("ResetDaily: %v", err)
	}
	if run.Job != JobDaily || run.Callers != 3 || run.ID == "" {
		t.Errorf("unexpected run %+v", run)
	}
	if repo.daily.Load() != 1 || repo.monthly.Load() != 0 {
		t.Error("only the daily reset should run")
	}
	if got := testutil.ToFloat64(metrics.UsageResetCallersTotal.WithLabelValues("daily")) - before; got != 3 {
		t.Errorf("callers metric delta = %v", got)
	}
}

func TestResetMonthly(t *testing.T) {
	repo := &mockResetter{}
	svc := New(repo, nil)

	if _, err := svc.ResetMonthly(context.Background()); err != nil {
		t.Fatalf("ResetMonthly: %v", err)
	}
	if repo.monthly.Load() != 1 || repo.daily.Load() != 0 {
		t.Error("only the monthly reset should run")
	}
}

func TestReset_Error(t *testing.T) {
	storeErr := errors.New("store down")
	svc := New(&mockResetter{err: storeErr}, nil)

	before := testutil.ToFloat64(metrics.UsageResetsTotal.WithLabelValues("monthly", "error"))

	if _, err := svc.ResetMonthly(context.Background()); !errors.Is(err, storeErr) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
	if got := testutil.ToFloat64(metrics.UsageResetsTotal.WithLabelValues("monthly", "error")) - before; got != 1 {
		t.Errorf("error metric delta = %v", got)
	}
}

func TestRun_UnknownJob(t *testing.T) {
	svc := New(&mockResetter{}, nil)
	if _, err := svc.Run(context.Background(), "weekly"); err == nil {
		t.Fatal("expected error for unknown job")
	}
}

func TestResets_AgainstMemoryStore(t *testing.T) {
	ctx := context.Background()
	repo := usagerepo.New(memory.New(), "openai:")
	svc := New(repo, nil)

	for _, id := range []string{"alice", "bob"} {
		if _, err := repo.IncrBy(ctx, id, usage.PeriodDaily, 7); err != nil {
			t.Fatal(err)
		}
		if _, err := repo.IncrBy(ctx, id, usage.PeriodMonthly, 70); err != nil {
			t.Fatal(err)
		}
	}

	run, err := svc.ResetDaily(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if run.Callers != 2 {
		t.Errorf("daily reset touched %d callers, want 2", run.Callers)
	}
	rec, _ := repo.Get(ctx, "alice")
	if rec.Daily() != 0 || rec.Monthly() != 70 {
		t.Errorf("after daily reset = {%d,%d}, want {0,70}", rec.Daily(), rec.Monthly())
	}

	// idempotent
	if _, err := svc.ResetDaily(ctx); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.ResetMonthly(ctx); err != nil {
		t.Fatal(err)
	}
	all, err := repo.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 0 {
		t.Errorf("monthly reset should remove every caller, got %v", all)
	}
	if _, err := svc.ResetMonthly(ctx); err != nil {
		t.Fatalf("monthly reset on empty store: %v", err)
	}
}

func TestNewScheduler_InvalidSchedule(t *testing.T) {
	_, err := NewScheduler(New(&mockResetter{}, nil), Schedule{Daily: "nope", Monthly: "0 0 1 * *"}, nil)
	if err == nil {
		t.Fatal("expected error for invalid schedule")
	}
}

func TestScheduler_NextRuns(t *testing.T) {
	s, err := NewScheduler(New(&mockResetter{}, nil), Schedule{Daily: "0 0 * * *", Monthly: "0 0 1 * *"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(s.NextRuns()) != 0 {
		t.Error("no runs expected before Start")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := s.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer s.Stop()

	next := s.NextRuns()
	now := time.Now().UTC()

	daily := next[JobDaily].UTC()
	if daily.Hour() != 0 || daily.Minute() != 0 || !daily.After(now) || daily.Sub(now) > 24*time.Hour {
		t.Errorf("unexpected next daily run %v", daily)
	}
	monthly := next[JobMonthly].UTC()
	if monthly.Day() != 1 || monthly.Hour() != 0 || !monthly.After(now) {
		t.Errorf("unexpected next monthly run %v", monthly)
	}
}

func TestScheduler_FiresAndStops(t *testing.T) {
	repo := &mockResetter{}
	s, err := NewScheduler(New(repo, nil), Schedule{Daily: "@every 1s", Monthly: "0 0 1 1 *"}, nil)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := s.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if !s.IsRunning() {
		t.Fatal("scheduler should be running")
	}

	deadline := time.Now().Add(5 * time.Second)
	for repo.daily.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
	if repo.daily.Load() == 0 {
		t.Fatal("daily job never fired")
	}

	cancel()
	deadline = time.Now().Add(2 * time.Second)
	for s.IsRunning() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if s.IsRunning() {
		t.Error("scheduler should stop when the context is cancelled")
	}
}
