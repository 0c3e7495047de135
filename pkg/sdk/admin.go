package tokenmeter

import (
	"context"
	"time"

	settingsuc "github.com/kailas-cloud/tokenmeter/internal/usecase/settings"
)

// ResetDaily zeroes every caller's daily counter and returns how many
// callers were touched.
func (c *Client) ResetDaily(ctx context.Context) (n int, err error) {
	start := time.Now()
	defer func() { c.obs.observe("reset_daily", start, err) }()

	run, err := c.resetSvc.ResetDaily(ctx)
	return run.Callers, err
}

// ResetMonthly removes every caller's counters and returns how many
// callers were removed.
func (c *Client) ResetMonthly(ctx context.Context) (n int, err error) {
	start := time.Now()
	defer func() { c.obs.observe("reset_monthly", start, err) }()

	run, err := c.resetSvc.ResetMonthly(ctx)
	return run.Callers, err
}

// ApplySettings writes the non-nil sections of s.
func (c *Client) ApplySettings(ctx context.Context, s Settings) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("apply_settings", start, err) }()

	doc := settingsuc.Document{APIKey: s.APIKey, Config: s.Config}
	if s.Limits != nil {
		doc.Limits = &settingsuc.LimitsSection{
			MaxPayloadSize: s.Limits.MaxPayloadSize,
			Daily:          s.Limits.Daily,
			Monthly:        s.Limits.Monthly,
		}
	}
	_, err = c.settingsSvc.Apply(ctx, doc)
	return err
}
