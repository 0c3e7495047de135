package sqlkv

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/kailas-cloud/tokenmeter/internal/db"
)

const upsertField = `
	INSERT INTO hash_fields (hkey, field, value) VALUES (?, ?, ?)
	ON CONFLICT (hkey, field) DO UPDATE SET value = excluded.value`

// HSet sets hash fields.
func (s *Store) HSet(ctx context.Context, key string, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	return s.HSetMulti(ctx, []db.HashSetItem{{Key: key, Fields: fields}})
}

// HSetMulti writes multiple hashes in one transaction.
func (s *Store) HSetMulti(ctx context.Context, items []db.HashSetItem) error {
	if len(items) == 0 {
		return nil
	}

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, s.q(upsertField))
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, item := range items {
			for field, value := range item.Fields {
				if _, err := stmt.ExecContext(ctx, item.Key, field, value); err != nil {
					return fmt.Errorf("key %s: %w", item.Key, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return &db.Error{Op: db.OpHSet, Err: err}
	}
	return nil
}

// HGetAll returns all fields of a hash. A missing key yields an empty map.
func (s *Store) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx,
		s.q(`SELECT field, value FROM hash_fields WHERE hkey = ?`), key)
	if err != nil {
		return nil, &db.Error{Op: db.OpHGetAll, Err: err}
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var field, value string
		if err := rows.Scan(&field, &value); err != nil {
			return nil, &db.Error{Op: db.OpHGetAll, Err: err}
		}
		out[field] = value
	}
	if err := rows.Err(); err != nil {
		return nil, &db.Error{Op: db.OpHGetAll, Err: err}
	}
	return out, nil
}

// HIncrBy atomically adds delta to a hash field and returns the new value.
// A single upsert statement keeps the read-modify-write inside the database.
func (s *Store) HIncrBy(ctx context.Context, key, field string, delta int64) (int64, error) {
	query := fmt.Sprintf(`
		INSERT INTO hash_fields (hkey, field, value) VALUES (?, ?, ?)
		ON CONFLICT (hkey, field) DO UPDATE SET value = %s
		RETURNING value`, s.d.incrExpr)

	var raw string
	err := s.db.QueryRowContext(ctx, s.q(query), key, field, strconv.FormatInt(delta, 10)).Scan(&raw)
	if err != nil {
		return 0, &db.Error{Op: db.OpHIncrBy, Err: err}
	}

	// incrExpr leaves a non-integer value untouched and returns it.
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, &db.Error{Op: db.OpHIncrBy, Err: db.ErrNotInteger}
	}
	return n, nil
}

// Del deletes a key, whether it holds a value or a hash.
func (s *Store) Del(ctx context.Context, key string) error {
	return s.DelMulti(ctx, []string{key})
}

// DelMulti deletes keys in one transaction.
func (s *Store) DelMulti(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		for _, key := range keys {
			if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM kv_entries WHERE entry_key = ?`), key); err != nil {
				return fmt.Errorf("key %s: %w", key, err)
			}
			if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM hash_fields WHERE hkey = ?`), key); err != nil {
				return fmt.Errorf("key %s: %w", key, err)
			}
		}
		return nil
	})
	if err != nil {
		return &db.Error{Op: db.OpDel, Err: err}
	}
	return nil
}

// Scan returns every key matching a Redis-style glob pattern.
func (s *Store) Scan(ctx context.Context, pattern string) ([]string, error) {
	query := fmt.Sprintf(`
		SELECT entry_key FROM kv_entries WHERE %s
		UNION
		SELECT DISTINCT hkey FROM hash_fields WHERE %s`,
		s.match("entry_key"), s.match("hkey"))

	p := s.pattern(pattern)
	rows, err := s.db.QueryContext(ctx, s.q(query), p, p)
	if err != nil {
		return nil, &db.Error{Op: db.OpScan, Err: err}
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, &db.Error{Op: db.OpScan, Err: err}
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, &db.Error{Op: db.OpScan, Err: err}
	}
	return keys, nil
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
