package tokenmeter

import (
	"context"
	"time"

	"github.com/kailas-cloud/tokenmeter/internal/domain/payload"
	proxyuc "github.com/kailas-cloud/tokenmeter/internal/usecase/proxy"
)

// Call checks callerID's quota, POSTs payload to urlPath at the provider
// and records the consumed tokens. A denial is returned as *QuotaError.
func (c *Client) Call(ctx context.Context, callerID, urlPath string, p map[string]any) (res CallResult, err error) {
	start := time.Now()
	defer func() { c.obs.observe("call", start, err) }()

	var obj payload.Object
	if p != nil {
		obj = payload.Object(p)
	}

	out, err := c.proxySvc.Call(ctx, callerID, proxyuc.Request{URLPath: urlPath, Payload: obj})
	if err != nil {
		return CallResult{}, translateError(err)
	}
	c.obs.tokens(out.Tokens)

	return CallResult{
		Usage:  usageFromSnapshot(out.Snapshot),
		Limits: limitsFromDomain(out.Limits),
		Result: out.Body,
		Tokens: out.Tokens,
	}, nil
}

// Usage reports callerID's counters without calling the provider.
func (c *Client) Usage(ctx context.Context, callerID string) (rep UsageReport, err error) {
	start := time.Now()
	defer func() { c.obs.observe("usage", start, err) }()

	r, err := c.usageSvc.Report(ctx, callerID)
	if err != nil {
		return UsageReport{}, err
	}
	return UsageReport{Usage: usageFromSnapshot(r.Snapshot), Limits: limitsFromDomain(r.Limits)}, nil
}
