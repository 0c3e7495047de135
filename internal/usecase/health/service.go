package health

import (
	"context"
	"sync"
	"time"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates the provider probe failed while the store is up.
	Degraded Status = "degraded"
	// Unhealthy indicates the store is unreachable.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Component names used as report keys.
const (
	ComponentDatabase = "database"
	ComponentUpstream = "upstream"
)

// DefaultTimeout bounds each individual probe.
const DefaultTimeout = 3 * time.Second

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
	// Errors holds the failure detail per component, for logging only.
	Errors map[string]error
}

// OK reports whether every component passed.
func (r Report) OK() bool { return r.Status == Healthy }

// Service coordinates health checks.
type Service struct {
	db       DBPinger
	upstream UpstreamChecker
	timeout  time.Duration
}

// New creates a Service. upstream can be nil.
func New(db DBPinger, upstream UpstreamChecker) *Service {
	return &Service{db: db, upstream: upstream, timeout: DefaultTimeout}
}

// WithTimeout overrides the per-probe timeout.
func (s *Service) WithTimeout(d time.Duration) *Service {
	if d > 0 {
		s.timeout = d
	}
	return s
}

// Check probes every component concurrently.
func (s *Service) Check(ctx context.Context) Report {
	probes := map[string]func(context.Context) error{
		ComponentDatabase: s.db.Ping,
	}
	if s.upstream != nil {
		probes[ComponentUpstream] = s.upstream.HealthCheck
	}

	var (
		mu   sync.Mutex
		wg   sync.WaitGroup
		errs = make(map[string]error)
	)
	for name, probe := range probes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pctx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()
			if err := probe(pctx); err != nil {
				mu.Lock()
				errs[name] = err
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	checks := make(map[string]CheckResult, len(probes))
	for name := range probes {
		checks[name] = CheckOK
		if errs[name] != nil {
			checks[name] = CheckError
		}
	}

	status := Healthy
	switch {
	case errs[ComponentDatabase] != nil:
		status = Unhealthy
	case len(errs) > 0:
		status = Degraded
	}

	return Report{Status: status, Checks: checks, Errors: errs}
}
