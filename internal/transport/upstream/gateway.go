// Package upstream forwards caller payloads to the OpenAI-compatible provider.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/tokenmeter/internal/domain"
	"github.com/kailas-cloud/tokenmeter/internal/domain/payload"
	"github.com/kailas-cloud/tokenmeter/internal/metrics"
)

// DefaultBaseURL is the provider origin used when none is configured.
const DefaultBaseURL = "https://api.openai.com"

// maxResponseBytes caps how much of a provider reply is buffered.
const maxResponseBytes = 64 << 20

// Settings supplies the provider credentials and request overlay. Both are
// read on every call.
type Settings interface {
	APIKey(ctx context.Context) (string, error)
	ProviderConfig(ctx context.Context) (payload.Object, error)
}

// Config holds gateway settings.
type Config struct {
	BaseURL    string
	HTTPClient *http.Client // nil: a client without timeout
	Logger     *zap.Logger
}

// Response is a successful provider reply.
type Response struct {
	StatusCode int
	Body       json.RawMessage
	// ConsumedTokens is usage.total_tokens from the reply, or 0 when absent.
	ConsumedTokens int64
}

// Gateway issues POST requests against the provider.
type Gateway struct {
	baseURL  string
	client   *http.Client
	settings Settings
	logger   *zap.Logger
}

// NewGateway creates a provider gateway.
func NewGateway(s Settings, cfg Config) *Gateway {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{baseURL: baseURL, client: client, settings: s, logger: logger}
}

// Call merges the stored overlay over p (overlay wins), POSTs the result to
// baseURL+urlPath and returns the provider's JSON reply. Non-2xx replies,
// transport failures and non-JSON bodies are returned as errors wrapping
// domain.ErrUpstream.
func (g *Gateway) Call(ctx context.Context, urlPath string, p payload.Object) (Response, error) {
	if !strings.HasPrefix(urlPath, "/") {
		urlPath = "/" + urlPath
	}

	apiKey, err := g.settings.APIKey(ctx)
	if err != nil {
		return Response{}, fmt.Errorf("load api key: %w", err)
	}
	if apiKey == "" {
		return Response{}, domain.ErrProviderNotConfigured
	}
	overlay, err := g.settings.ProviderConfig(ctx)
	if err != nil {
		return Response{}, fmt.Errorf("load provider config: %w", err)
	}

	body, err := payload.Merge(p, overlay).Encode()
	if err != nil {
		return Response{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+urlPath, bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("build upstream request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := g.client.Do(req)
	if err != nil {
		g.observe("error", "error", start)
		return Response{}, fmt.Errorf("upstream POST %s: %w: %w", urlPath, domain.ErrUpstream, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		g.observe(strconv.Itoa(resp.StatusCode), "error", start)
		return Response{}, fmt.Errorf("read upstream reply: %w: %w", domain.ErrUpstream, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		g.observe(strconv.Itoa(resp.StatusCode), "error", start)
		g.logger.Warn("upstream rejected request",
			zap.String("path", urlPath),
			zap.Int("status", resp.StatusCode),
		)
		return Response{}, &domain.UpstreamStatusError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(raw),
		}
	}

	if !json.Valid(raw) {
		g.observe(strconv.Itoa(resp.StatusCode), "error", start)
		return Response{}, fmt.Errorf("upstream reply is not JSON: %w", domain.ErrUpstream)
	}

	g.observe(strconv.Itoa(resp.StatusCode), "success", start)

	tokens := totalTokens(raw)
	if tokens > 0 {
		metrics.UpstreamTokensTotal.Add(float64(tokens))
	}

	return Response{
		StatusCode:     resp.StatusCode,
		Body:           raw,
		ConsumedTokens: tokens,
	}, nil
}

// HealthCheck verifies provider availability via ListModels (free endpoint).
func (g *Gateway) HealthCheck(ctx context.Context) error {
	apiKey, err := g.settings.APIKey(ctx)
	if err != nil {
		return fmt.Errorf("load api key: %w", err)
	}
	if apiKey == "" {
		return domain.ErrProviderNotConfigured
	}

	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = g.baseURL + "/v1"
	cfg.HTTPClient = g.client

	if _, err := openai.NewClientWithConfig(cfg).ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

func (g *Gateway) observe(status, outcome string, start time.Time) {
	metrics.UpstreamRequestsTotal.WithLabelValues(status).Inc()
	metrics.UpstreamRequestDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
}

// totalTokens reads usage.total_tokens and nothing else from the reply, so
// sibling usage fields never affect accounting. Fractions are truncated;
// anything unparseable or negative counts as 0.
func totalTokens(raw []byte) int64 {
	var reply struct {
		Usage *struct {
			TotalTokens json.Number `json:"total_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(raw, &reply); err != nil || reply.Usage == nil {
		return 0
	}

	n, err := reply.Usage.TotalTokens.Int64()
	if err != nil {
		f, ferr := reply.Usage.TotalTokens.Float64()
		if ferr != nil || f >= math.MaxInt64 {
			return 0
		}
		n = int64(f)
	}
	if n < 0 {
		return 0
	}
	return n
}

// errorMessage extracts a human-readable message from an error reply body.
func errorMessage(body []byte) string {
	var resp openai.ErrorResponse
	if err := json.Unmarshal(body, &resp); err == nil && resp.Error != nil && resp.Error.Message != "" {
		return resp.Error.Message
	}

	var detail struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &detail) == nil && detail.Detail != "" {
		return detail.Detail
	}

	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}
