package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/tokenmeter/internal/db"
	"github.com/kailas-cloud/tokenmeter/internal/db/dbtest"
)

func TestConformance(t *testing.T) {
	dbtest.RunConformance(t, func(*testing.T) db.Store { return New() })
}

func TestHIncrBy_NotInteger(t *testing.T) {
	s := New()
	ctx := context.Background()
	if err := s.HSet(ctx, "h", map[string]string{"daily": "lots"}); err != nil {
		t.Fatal(err)
	}

	_, err := s.HIncrBy(ctx, "h", "daily", 1)
	if !errors.Is(err, db.ErrNotInteger) {
		t.Errorf("expected ErrNotInteger, got %v", err)
	}
}

func TestHGetAll_ReturnsCopy(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, _ = s.HIncrBy(ctx, "h", "daily", 1)

	m, _ := s.HGetAll(ctx, "h")
	m["daily"] = "999"

	m2, _ := s.HGetAll(ctx, "h")
	if m2["daily"] != "1" {
		t.Errorf("store mutated through returned map: %v", m2)
	}
}

func TestMatchGlob(t *testing.T) {
	tests := []struct {
		pattern, name string
		want          bool
	}{
		{"*", "", true},
		{"*", "anything", true},
		{"openai:usage:*", "openai:usage:alice", true},
		{"openai:usage:*", "openai:usage:", true},
		{"openai:usage:*", "openai:limits", false},
		{"a?c", "abc", true},
		{"a?c", "ac", false},
		{"*:usage:*", "x:usage:y", true},
		{"a*b*c", "aXbYbZc", true},
		{"a*b*c", "aXbYbZ", false},
		{`p\*x`, "p*x", true},
		{`p\*x`, "pax", false},
		{"exact", "exact", true},
		{"exact", "exactly", false},
		{"caller/*", "caller/with/slash", true},
	}

	for _, tc := range tests {
		if got := matchGlob(tc.pattern, tc.name); got != tc.want {
			t.Errorf("matchGlob(%q, %q) = %v, want %v", tc.pattern, tc.name, got, tc.want)
		}
	}
}
