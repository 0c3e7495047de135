// Package reset implements the two calendar resets of the usage counters
// and the cron scheduler that triggers them.
package reset

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/tokenmeter/internal/metrics"
)

// Job names a reset operation.
type Job string

// Reset jobs.
const (
	JobDaily   Job = "daily"
	JobMonthly Job = "monthly"
)

// Run describes one completed reset.
type Run struct {
	ID       string
	Job      Job
	Callers  int
	Duration time.Duration
}

// Service runs resets. Both operations are idempotent.
type Service struct {
	repo   UsageResetter
	logger *zap.Logger
}

// New creates a Service. A nil logger discards output.
func New(repo UsageResetter, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, logger: logger}
}

// ResetDaily zeroes the daily counter of every known caller. Monthly
// counters are left untouched and no caller is removed.
func (s *Service) ResetDaily(ctx context.Context) (Run, error) {
	return s.run(ctx, JobDaily, s.repo.ResetDaily)
}

// ResetMonthly removes every caller's counters.
func (s *Service) ResetMonthly(ctx context.Context) (Run, error) {
	return s.run(ctx, JobMonthly, s.repo.RemoveAll)
}

// Run dispatches by job name.
func (s *Service) Run(ctx context.Context, job Job) (Run, error) {
	switch job {
	case JobDaily:
		return s.ResetDaily(ctx)
	case JobMonthly:
		return s.ResetMonthly(ctx)
	default:
		return Run{}, fmt.Errorf("unknown reset job %q", job)
	}
}

func (s *Service) run(ctx context.Context, job Job, fn func(context.Context) (int, error)) (Run, error) {
	r := Run{ID: uuid.NewString(), Job: job}
	log := s.logger.With(zap.String("run_id", r.ID), zap.String("job", string(job)))

	start := time.Now()
	n, err := fn(ctx)
	r.Duration = time.Since(start)
	r.Callers = n

	if err != nil {
		metrics.UsageResetsTotal.WithLabelValues(string(job), "error").Inc()
		log.Error("usage reset failed", zap.Error(err), zap.Duration("duration", r.Duration))
		return r, fmt.Errorf("%s reset: %w", job, err)
	}

	metrics.UsageResetsTotal.WithLabelValues(string(job), "ok").Inc()
	metrics.UsageResetCallersTotal.WithLabelValues(string(job)).Add(float64(n))
	log.Info("usage reset completed", zap.Int("callers", n), zap.Duration("duration", r.Duration))
	return r, nil
}
