// Package limits holds the global usage caps applied to every caller.
package limits

// Limits is the persisted limits object. A nil field means no limit.
// Zero and negative values are treated as unset as well.
type Limits struct {
	MaxPayloadSize *int64 `json:"maxPayloadSize,omitempty"`
	Daily          *int64 `json:"daily,omitempty"`
	Monthly        *int64 `json:"monthly,omitempty"`
}

// New builds Limits from plain values; non-positive values leave the field unset.
func New(maxPayloadSize, daily, monthly int64) Limits {
	return Limits{
		MaxPayloadSize: positive(maxPayloadSize),
		Daily:          positive(daily),
		Monthly:        positive(monthly),
	}
}

// PayloadCap returns the maximum serialized payload size, if set.
func (l Limits) PayloadCap() (int64, bool) { return capOf(l.MaxPayloadSize) }

// DailyCap returns the daily token allowance, if set.
func (l Limits) DailyCap() (int64, bool) { return capOf(l.Daily) }

// MonthlyCap returns the monthly token allowance, if set.
func (l Limits) MonthlyCap() (int64, bool) { return capOf(l.Monthly) }

// IsZero reports whether no limit is set.
func (l Limits) IsZero() bool {
	_, p := l.PayloadCap()
	_, d := l.DailyCap()
	_, m := l.MonthlyCap()
	return !p && !d && !m
}

func capOf(v *int64) (int64, bool) {
	if v == nil || *v <= 0 {
		return 0, false
	}
	return *v, true
}

func positive(v int64) *int64 {
	if v <= 0 {
		return nil
	}
	return &v
}
