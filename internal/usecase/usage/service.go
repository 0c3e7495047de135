// Package usage reports callers' counters without touching them.
package usage

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/tokenmeter/internal/domain/limits"
	domusage "github.com/kailas-cloud/tokenmeter/internal/domain/usage"
)

// Report is a caller's usage as of now.
type Report struct {
	Snapshot domusage.Snapshot
	Limits   limits.Limits
}

// Service handles usage reporting.
type Service struct {
	limits LimitsReader
	repo   Repository
	now    func() time.Time
}

// New creates a Service.
func New(l LimitsReader, repo Repository) *Service {
	return &Service{limits: l, repo: repo, now: time.Now}
}

// WithClock overrides the time source used for reset countdowns.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Report returns the caller's counters, countdowns and the current limits.
func (s *Service) Report(ctx context.Context, callerID string) (Report, error) {
	lim, err := s.limits.Limits(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("load limits: %w", err)
	}
	rec, err := s.repo.Get(ctx, callerID)
	if err != nil {
		return Report{}, fmt.Errorf("load usage: %w", err)
	}
	return Report{Snapshot: domusage.NewSnapshot(rec, s.now()), Limits: lim}, nil
}

// List returns the counters of every caller with a record.
func (s *Service) List(ctx context.Context) (map[string]domusage.Record, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list usage: %w", err)
	}
	return all, nil
}
