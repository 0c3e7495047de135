package usage

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/kailas-cloud/tokenmeter/internal/db"
	"github.com/kailas-cloud/tokenmeter/internal/domain"
	"github.com/kailas-cloud/tokenmeter/internal/domain/usage"
)

// store is the consumer interface for usage counters (ISP).
type store interface {
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HIncrBy(ctx context.Context, key, field string, delta int64) (int64, error)
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	Scan(ctx context.Context, pattern string) ([]string, error)
	DelMulti(ctx context.Context, keys []string) error
}

// Repo keeps one hash per caller at {prefix}usage:{callerID} with the
// fields "daily" and "monthly".
type Repo struct {
	store  store
	prefix string
}

// New creates a usage repository rooted at keyPrefix.
func New(s store, keyPrefix string) *Repo {
	return &Repo{store: s, prefix: keyPrefix + "usage:"}
}

func (r *Repo) key(callerID string) string {
	return r.prefix + callerID
}

// Get returns the caller's counters. A caller with no record reads as zero.
func (r *Repo) Get(ctx context.Context, callerID string) (usage.Record, error) {
	fields, err := r.store.HGetAll(ctx, r.key(callerID))
	if err != nil {
		return usage.Record{}, fmt.Errorf("%w: usage get %s: %w", domain.ErrStore, callerID, err)
	}
	rec, err := parseRecord(fields)
	if err != nil {
		return usage.Record{}, fmt.Errorf("%w: usage get %s: %w", domain.ErrStore, callerID, err)
	}
	return rec, nil
}

// IncrBy atomically adds delta to one of the caller's counters and returns
// the new value. Concurrent increments are never lost.
func (r *Repo) IncrBy(ctx context.Context, callerID string, period usage.Period, delta int64) (int64, error) {
	if err := period.Validate(); err != nil {
		return 0, err
	}
	n, err := r.store.HIncrBy(ctx, r.key(callerID), string(period), delta)
	if err != nil {
		return 0, fmt.Errorf("%w: usage incr %s/%s: %w", domain.ErrStore, callerID, period, err)
	}
	return n, nil
}

// List returns the counters of every caller with a record.
func (r *Repo) List(ctx context.Context) (map[string]usage.Record, error) {
	keys, err := r.scan(ctx)
	if err != nil {
		return nil, err
	}

	out := make(map[string]usage.Record, len(keys))
	for _, key := range keys {
		fields, err := r.store.HGetAll(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("%w: usage list %s: %w", domain.ErrStore, key, err)
		}
		rec, err := parseRecord(fields)
		if err != nil {
			return nil, fmt.Errorf("%w: usage list %s: %w", domain.ErrStore, key, err)
		}
		out[strings.TrimPrefix(key, r.prefix)] = rec
	}
	return out, nil
}

// ResetDaily sets the daily counter of every existing caller to zero and
// returns how many callers were touched. Monthly counters are kept.
func (r *Repo) ResetDaily(ctx context.Context) (int, error) {
	keys, err := r.scan(ctx)
	if err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}

	items := make([]db.HashSetItem, len(keys))
	for i, key := range keys {
		items[i] = db.HashSetItem{Key: key, Fields: map[string]string{string(usage.PeriodDaily): "0"}}
	}
	if err := r.store.HSetMulti(ctx, items); err != nil {
		return 0, fmt.Errorf("%w: usage reset daily: %w", domain.ErrStore, err)
	}
	return len(keys), nil
}

// RemoveAll deletes every caller record and returns how many were removed.
func (r *Repo) RemoveAll(ctx context.Context) (int, error) {
	keys, err := r.scan(ctx)
	if err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}

	if err := r.store.DelMulti(ctx, keys); err != nil {
		return 0, fmt.Errorf("%w: usage remove all: %w", domain.ErrStore, err)
	}
	return len(keys), nil
}

func (r *Repo) scan(ctx context.Context) ([]string, error) {
	keys, err := r.store.Scan(ctx, escapeGlob(r.prefix)+"*")
	if err != nil {
		return nil, fmt.Errorf("%w: usage scan: %w", domain.ErrStore, err)
	}
	return keys, nil
}

func parseRecord(fields map[string]string) (usage.Record, error) {
	var counts [2]int64
	for i, p := range usage.Periods {
		raw, ok := fields[string(p)]
		if !ok || raw == "" {
			continue
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return usage.Record{}, fmt.Errorf("parse %s %q: %w", p, raw, err)
		}
		counts[i] = n
	}
	return usage.NewRecord(counts[0], counts[1]), nil
}

func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
