// Package proxy runs a metered call: quota check, provider call, accounting.
package proxy

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tokenmeter/internal/domain"
	"github.com/kailas-cloud/tokenmeter/internal/domain/limits"
	"github.com/kailas-cloud/tokenmeter/internal/domain/payload"
	"github.com/kailas-cloud/tokenmeter/internal/domain/usage"
	"github.com/kailas-cloud/tokenmeter/internal/usecase/quota"
)

// Request is a parsed inbound call.
type Request struct {
	URLPath string
	// Payload is nil when the caller omitted it.
	Payload payload.Object
}

// Result is the reply to a successful call.
type Result struct {
	Snapshot usage.Snapshot
	Limits   limits.Limits
	Body     json.RawMessage
	// Tokens is the provider-reported consumption that was recorded.
	Tokens int64
}

// Service orchestrates metered provider calls.
type Service struct {
	guard    QuotaEvaluator
	provider Provider
	usage    UsageRecorder
	logger   *zap.Logger
}

// New creates a Service. A nil logger discards output.
func New(guard QuotaEvaluator, provider Provider, recorder UsageRecorder, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{guard: guard, provider: provider, usage: recorder, logger: logger}
}

// Call checks the caller's quota, forwards the payload and records the
// consumed tokens. A denial is returned as *quota.DeniedError.
//
// The quota check and the increments are separate store operations; a reset
// landing between them lets the increment count toward the new period.
func (s *Service) Call(ctx context.Context, callerID string, req Request) (Result, error) {
	if req.Payload == nil {
		return Result{}, domain.ErrMissingPayload
	}

	decision, err := s.guard.Evaluate(ctx, callerID, req.Payload)
	if err != nil {
		return Result{}, fmt.Errorf("evaluate quota: %w", err)
	}
	if !decision.Allowed() {
		return Result{}, &quota.DeniedError{Decision: decision}
	}

	// checked after quota so denials take precedence
	if req.URLPath == "" {
		return Result{}, domain.ErrMissingURLPath
	}

	resp, err := s.provider.Call(ctx, req.URLPath, req.Payload)
	if err != nil {
		return Result{}, fmt.Errorf("call provider: %w", err)
	}

	var snap usage.Snapshot
	if decision.Snapshot != nil {
		snap = *decision.Snapshot
	}
	if resp.ConsumedTokens > 0 {
		snap = snap.WithTokens(resp.ConsumedTokens)
		if err := s.account(ctx, callerID, resp.ConsumedTokens); err != nil {
			return Result{}, err
		}
	}

	return Result{Snapshot: snap, Limits: decision.Limits, Body: resp.Body, Tokens: resp.ConsumedTokens}, nil
}

// account issues one atomic increment per period; they are not combined.
func (s *Service) account(ctx context.Context, callerID string, tokens int64) error {
	for _, p := range usage.Periods {
		total, err := s.usage.IncrBy(ctx, callerID, p, tokens)
		if err != nil {
			return fmt.Errorf("record %s usage: %w", p, err)
		}
		s.logger.Debug("usage recorded",
			zap.String("caller_id", callerID),
			zap.String("period", string(p)),
			zap.Int64("tokens", tokens),
			zap.Int64("total", total),
		)
	}
	return nil
}
