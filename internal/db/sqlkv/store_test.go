package sqlkv

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/tokenmeter/internal/db"
	"github.com/kailas-cloud/tokenmeter/internal/db/dbtest"
)

func newSQLite(t *testing.T) db.Store {
	t.Helper()
	s, err := OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func TestSQLite_Conformance(t *testing.T) {
	dbtest.RunConformance(t, newSQLite)
}

func TestSQLite_FileSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data", "usage.db")

	s, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	_, err = s.HIncrBy(ctx, "openai:usage:alice", "monthly", 42)
	require.NoError(t, err)
	s.Close()

	s, err = OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer s.Close()

	m, err := s.HGetAll(ctx, "openai:usage:alice")
	require.NoError(t, err)
	assert.Equal(t, "42", m["monthly"])
	assert.Equal(t, "sqlite", s.Dialect())
}

func TestSQLite_WaitForReady(t *testing.T) {
	s, err := OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.WaitForReady(context.Background(), time.Second))
}

func TestRebind(t *testing.T) {
	pg := &Store{d: postgresDialect}
	lite := &Store{d: sqliteDialect}

	query := `SELECT value FROM hash_fields WHERE hkey = ? AND field = ?`
	assert.Equal(t, `SELECT value FROM hash_fields WHERE hkey = $1 AND field = $2`, pg.q(query))
	assert.Equal(t, query, lite.q(query))
}

func TestGlobToLike(t *testing.T) {
	tests := []struct {
		glob string
		want string
	}{
		{"openai:usage:*", "openai:usage:%"},
		{"a?c", "a_c"},
		{"100%_done", `100\%\_done`},
		{`lit\*`, "lit*"},
		{`back\\slash`, `back\\slash`},
		{`trailing\`, `trailing\\`},
	}

	for _, tc := range tests {
		if got := globToLike(tc.glob); got != tc.want {
			t.Errorf("globToLike(%q) = %q, want %q", tc.glob, got, tc.want)
		}
	}
}

func TestGlobToSQLiteGlob(t *testing.T) {
	tests := []struct {
		glob string
		want string
	}{
		{"openai:usage:*", "openai:usage:*"},
		{`lit\*x`, "lit[*]x"},
		{`q\?`, "q[?]"},
		{"a_b%", "a_b%"},
		{"[abc]", "[[]abc]"},
	}

	for _, tc := range tests {
		if got := globToSQLiteGlob(tc.glob); got != tc.want {
			t.Errorf("globToSQLiteGlob(%q) = %q, want %q", tc.glob, got, tc.want)
		}
	}
}
