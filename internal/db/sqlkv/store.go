// Package sqlkv implements db.Store on top of database/sql, so the usage
// layout can live in SQLite or PostgreSQL instead of Redis.
//
// Plain values live in kv_entries, hashes in hash_fields (one row per field).
package sqlkv

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx"
	_ "modernc.org/sqlite"             // registers "sqlite"

	"github.com/kailas-cloud/tokenmeter/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

type dialect struct {
	name      string
	blobType  string
	incrExpr  string // new value for an existing hash field
	matchExpr string // %s is the column
	numbered  bool   // $1 placeholders instead of ?
	pattern   func(glob string) string
}

// Increment expressions only add to a stored integer; any other value is
// written back unchanged so HIncrBy can report db.ErrNotInteger.
// Postgres queries go through q, which rewrites every '?', so the pattern avoids it.
const (
	sqliteIncrExpr = `CASE WHEN (hash_fields.value GLOB '[0-9]*' OR hash_fields.value GLOB '-[0-9]*')
		AND substr(hash_fields.value, 2) NOT GLOB '*[^0-9]*'
		THEN CAST(CAST(hash_fields.value AS INTEGER) + CAST(excluded.value AS INTEGER) AS TEXT)
		ELSE hash_fields.value END`

	postgresIncrExpr = `CASE WHEN hash_fields.value ~ '^-{0,1}[0-9]+$'
		THEN (hash_fields.value::BIGINT + EXCLUDED.value::BIGINT)::TEXT
		ELSE hash_fields.value END`
)

var sqliteDialect = dialect{
	name:      "sqlite",
	blobType:  "BLOB",
	incrExpr:  sqliteIncrExpr,
	matchExpr: "%s GLOB ?",
	pattern:   globToSQLiteGlob,
}

var postgresDialect = dialect{
	name:      "postgres",
	blobType:  "BYTEA",
	incrExpr:  postgresIncrExpr,
	matchExpr: `%s LIKE ? ESCAPE '\'`,
	numbered:  true,
	pattern:   globToLike,
}

// PoolConfig holds connection pool settings. Zero values keep driver defaults.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Store implements db.Store over a SQL database.
type Store struct {
	db *sql.DB
	d  dialect
}

// OpenSQLite opens (or creates) a SQLite database. dsn is a file path,
// ":memory:", or a "file:" URI.
func OpenSQLite(ctx context.Context, dsn string) (*Store, error) {
	if dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite directory: %w", err)
		}
	}

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// SQLite allows a single writer; one connection also keeps :memory: databases alive.
	sqlDB.SetMaxOpenConns(1)

	for _, pragma := range []string{`PRAGMA journal_mode=WAL`, `PRAGMA busy_timeout=5000`} {
		if _, err := sqlDB.ExecContext(ctx, pragma); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	return newStore(ctx, sqlDB, sqliteDialect)
}

// OpenPostgres opens a PostgreSQL database through the pgx stdlib driver.
func OpenPostgres(ctx context.Context, dsn string, pool PoolConfig) (*Store, error) {
	sqlDB, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres db: %w", err)
	}

	if pool.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(pool.ConnMaxLifetime)
	}

	return newStore(ctx, sqlDB, postgresDialect)
}

func newStore(ctx context.Context, sqlDB *sql.DB, d dialect) (*Store, error) {
	s := &Store{db: sqlDB, d: d}
	if err := s.migrate(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS kv_entries (
			entry_key TEXT PRIMARY KEY,
			value %s NOT NULL
		)`, s.d.blobType),
		`CREATE TABLE IF NOT EXISTS hash_fields (
			hkey TEXT NOT NULL,
			field TEXT NOT NULL,
			value TEXT NOT NULL,
			PRIMARY KEY (hkey, field)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return &db.Error{Op: db.OpMigrate, Err: err}
		}
	}
	return nil
}

// Dialect returns the SQL dialect name ("sqlite" or "postgres").
func (s *Store) Dialect() string { return s.d.name }

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return &db.Error{Op: db.OpPing, Err: err}
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	_ = s.db.Close()
}

// WaitForReady polls Ping until the database responds or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := s.Ping(ctx); err == nil {
		return nil
	}

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for %s: %w", s.d.name, ctx.Err())
		case <-ticker.C:
			if err := s.Ping(ctx); err == nil {
				return nil
			}
		}
	}
}

// q rewrites ? placeholders for dialects with numbered parameters.
func (s *Store) q(query string) string {
	if !s.d.numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *Store) match(column string) string {
	return fmt.Sprintf(s.d.matchExpr, column)
}

func (s *Store) pattern(glob string) string {
	return s.d.pattern(glob)
}
