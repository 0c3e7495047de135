package sqlkv

import (
	"context"
	"database/sql"
	"errors"

	"github.com/kailas-cloud/tokenmeter/internal/db"
)

// Get retrieves a value by key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx,
		s.q(`SELECT value FROM kv_entries WHERE entry_key = ?`), key,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, db.ErrKeyNotFound
		}
		return nil, &db.Error{Op: db.OpGet, Err: err}
	}
	return value, nil
}

// Set stores a value at the given key.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO kv_entries (entry_key, value) VALUES (?, ?)
		ON CONFLICT (entry_key) DO UPDATE SET value = excluded.value`),
		key, value,
	)
	if err != nil {
		return &db.Error{Op: db.OpSet, Err: err}
	}
	return nil
}
