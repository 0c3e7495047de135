// Package chi is the HTTP transport: handlers, authentication and the
// {error:{c,m}} reply envelope.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/tokenmeter/internal/auth"
	"github.com/kailas-cloud/tokenmeter/internal/domain"
	"github.com/kailas-cloud/tokenmeter/internal/domain/payload"
	logpkg "github.com/kailas-cloud/tokenmeter/internal/logger"
	healthuc "github.com/kailas-cloud/tokenmeter/internal/usecase/health"
	proxyuc "github.com/kailas-cloud/tokenmeter/internal/usecase/proxy"
	"github.com/kailas-cloud/tokenmeter/internal/usecase/quota"
	usageuc "github.com/kailas-cloud/tokenmeter/internal/usecase/usage"
)

// Caller runs a metered provider call.
type Caller interface {
	Call(ctx context.Context, callerID string, req proxyuc.Request) (proxyuc.Result, error)
}

// UsageReporter reports a caller's usage.
type UsageReporter interface {
	Report(ctx context.Context, callerID string) (usageuc.Report, error)
}

// HealthChecker aggregates component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// DefaultMaxBodyBytes caps request bodies when no limit is configured.
const DefaultMaxBodyBytes = 10 << 20

// Server holds the HTTP handlers.
type Server struct {
	proxy        Caller
	usage        UsageReporter
	health       HealthChecker
	maxBodyBytes int64
}

// NewServer creates an HTTP API server.
func NewServer(proxy Caller, usage UsageReporter, health HealthChecker) *Server {
	return &Server{proxy: proxy, usage: usage, health: health, maxBodyBytes: DefaultMaxBodyBytes}
}

// WithMaxBodyBytes overrides the request body cap.
func (s *Server) WithMaxBodyBytes(n int64) *Server {
	if n > 0 {
		s.maxBodyBytes = n
	}
	return s
}

type callRequest struct {
	URLPath string          `json:"urlPath"`
	Payload json.RawMessage `json:"payload"`
}

// Call handles POST /v1/call.
func (s *Server) Call(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	callerID, ok := auth.CallerFromContext(ctx)
	if !ok {
		writeError(w, r, http.StatusForbidden, CodeMissingToken, "Missing auth token")
		return
	}

	var in callRequest
	body := http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&in); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, http.StatusForbidden, CodePayloadTooLarge,
				"The request body is too large, maximum allowed: "+formatInt(tooLarge.Limit)+" bytes")
			return
		}
		s.internalError(w, r, err)
		return
	}

	p, err := payload.Decode(in.Payload)
	if err != nil && !errors.Is(err, payload.ErrNotObject) {
		s.internalError(w, r, err)
		return
	}
	if p == nil {
		// absent, null and non-object payloads
		writeError(w, r, http.StatusUnauthorized, CodeMissingPayload, "Missing payload")
		return
	}

	res, err := s.proxy.Call(ctx, callerID, proxyuc.Request{URLPath: in.URLPath, Payload: p})
	if err != nil {
		s.handleCallError(w, r, err)
		return
	}

	logpkg.FromContext(ctx).Info("call completed",
		zap.String("url_path", in.URLPath),
		zap.Int64("daily", res.Snapshot.Record().Daily()),
		zap.Int64("monthly", res.Snapshot.Record().Monthly()),
	)

	lim := res.Limits
	writeJSON(w, http.StatusOK, Envelope{
		Usage:  usageToBody(res.Snapshot),
		Limits: &lim,
		Result: res.Body,
	})
}

func (s *Server) handleCallError(w http.ResponseWriter, r *http.Request, err error) {
	var denied *quota.DeniedError
	switch {
	case errors.As(err, &denied):
		logpkg.FromContext(r.Context()).Info("call denied", zap.String("reason", string(denied.Decision.Reason)))
		writeDenial(w, r, denied)
	case errors.Is(err, domain.ErrMissingPayload):
		writeError(w, r, http.StatusUnauthorized, CodeMissingPayload, "Missing payload")
	case errors.Is(err, domain.ErrMissingURLPath):
		writeError(w, r, http.StatusUnauthorized, CodeMissingURLPath, "Missing urlPath")
	default:
		s.internalError(w, r, err)
	}
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	logpkg.FromContext(r.Context()).Error("call failed", zap.Error(err))
	writeError(w, r, http.StatusNotImplemented, CodeInternal, internalMessage(err))
}

// Usage handles GET /v1/usage.
func (s *Server) Usage(w http.ResponseWriter, r *http.Request) {
	callerID, ok := auth.CallerFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusForbidden, CodeMissingToken, "Missing auth token")
		return
	}

	report, err := s.usage.Report(r.Context(), callerID)
	if err != nil {
		s.internalError(w, r, err)
		return
	}

	lim := report.Limits
	writeJSON(w, http.StatusOK, Envelope{Usage: usageToBody(report.Snapshot), Limits: &lim})
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}
	for k, err := range report.Errors {
		logpkg.FromContext(r.Context()).Warn("health check failed", zap.String("component", k), zap.Error(err))
	}

	httpStatus := http.StatusOK
	if !report.OK() {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{Status: string(report.Status), Checks: checks})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}
