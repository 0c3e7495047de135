package reset

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Schedule holds the cron expressions for both jobs.
type Schedule struct {
	Daily    string
	Monthly  string
	Location *time.Location
}

// Scheduler fires the daily and monthly resets on their cron schedules.
type Scheduler struct {
	svc      *Service
	schedule Schedule
	cron     *cron.Cron
	entries  map[Job]cron.EntryID
	logger   *zap.Logger

	mu      sync.Mutex
	running bool
}

// NewScheduler validates the schedule and builds a stopped scheduler.
// A nil Location means UTC.
func NewScheduler(svc *Service, schedule Schedule, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if schedule.Location == nil {
		schedule.Location = time.UTC
	}

	s := &Scheduler{
		svc:      svc,
		schedule: schedule,
		cron:     cron.New(cron.WithLocation(schedule.Location)),
		entries:  make(map[Job]cron.EntryID, 2),
		logger:   logger,
	}

	for job, spec := range map[Job]string{JobDaily: schedule.Daily, JobMonthly: schedule.Monthly} {
		if _, err := cron.ParseStandard(spec); err != nil {
			return nil, fmt.Errorf("invalid %s schedule %q: %w", job, spec, err)
		}
	}

	return s, nil
}

// Start registers both jobs and starts the cron loop. Jobs run with ctx;
// cancelling it stops the scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	for _, job := range []Job{JobDaily, JobMonthly} {
		if _, ok := s.entries[job]; ok {
			continue
		}
		spec := s.schedule.Daily
		if job == JobMonthly {
			spec = s.schedule.Monthly
		}
		id, err := s.cron.AddFunc(spec, func() { s.fire(ctx, job) })
		if err != nil {
			return fmt.Errorf("schedule %s reset: %w", job, err)
		}
		s.entries[job] = id
	}

	s.cron.Start()
	s.running = true

	next := s.nextRunsLocked()
	s.logger.Info("reset scheduler started",
		zap.String("daily", s.schedule.Daily),
		zap.String("monthly", s.schedule.Monthly),
		zap.String("timezone", s.schedule.Location.String()),
		zap.Time("next_daily", next[JobDaily]),
		zap.Time("next_monthly", next[JobMonthly]),
	)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

func (s *Scheduler) fire(ctx context.Context, job Job) {
	// errors are logged and counted by the service
	_, _ = s.svc.Run(ctx, job)
}

// Stop stops the cron loop and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	<-s.cron.Stop().Done()
	s.running = false
	s.logger.Info("reset scheduler stopped")
}

// IsRunning reports whether the cron loop is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRuns returns the next fire time of each job. It is empty before Start.
func (s *Scheduler) NextRuns() map[Job]time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextRunsLocked()
}

func (s *Scheduler) nextRunsLocked() map[Job]time.Time {
	out := make(map[Job]time.Time, len(s.entries))
	for job, id := range s.entries {
		out[job] = s.cron.Entry(id).Next
	}
	return out
}
