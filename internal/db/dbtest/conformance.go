// Package dbtest holds behaviour checks shared by every db.Store implementation.
package dbtest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/tokenmeter/internal/db"
)

// RunConformance exercises the db.Store contract against stores produced by newStore.
// Each subtest gets a fresh store.
func RunConformance(t *testing.T, newStore func(t *testing.T) db.Store) {
	t.Helper()

	t.Run("GetMissing", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Get(context.Background(), "nope")
		require.ErrorIs(t, err, db.ErrKeyNotFound)
	})

	t.Run("SetGetOverwrite", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.Set(ctx, "openai:apiKey", []byte("sk-1")))
		require.NoError(t, s.Set(ctx, "openai:apiKey", []byte("sk-2")))

		v, err := s.Get(ctx, "openai:apiKey")
		require.NoError(t, err)
		assert.Equal(t, "sk-2", string(v))
	})

	t.Run("HGetAllMissing", func(t *testing.T) {
		s := newStore(t)
		m, err := s.HGetAll(context.Background(), "openai:usage:ghost")
		require.NoError(t, err)
		assert.Empty(t, m)
	})

	t.Run("HIncrByNotInteger", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.HSet(ctx, "openai:usage:mallory", map[string]string{"daily": "n/a", "monthly": "7x"}))

		_, err := s.HIncrBy(ctx, "openai:usage:mallory", "daily", 5)
		require.ErrorIs(t, err, db.ErrNotInteger)
		_, err = s.HIncrBy(ctx, "openai:usage:mallory", "monthly", 5)
		require.ErrorIs(t, err, db.ErrNotInteger)

		m, err := s.HGetAll(ctx, "openai:usage:mallory")
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"daily": "n/a", "monthly": "7x"}, m)

		require.NoError(t, s.HSet(ctx, "openai:usage:mallory", map[string]string{"daily": "-2"}))
		n, err := s.HIncrBy(ctx, "openai:usage:mallory", "daily", 5)
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)
	})

	t.Run("HIncrByCreatesAndAdds", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		n, err := s.HIncrBy(ctx, "openai:usage:alice", "daily", 5)
		require.NoError(t, err)
		assert.Equal(t, int64(5), n)

		n, err = s.HIncrBy(ctx, "openai:usage:alice", "daily", 3)
		require.NoError(t, err)
		assert.Equal(t, int64(8), n)

		m, err := s.HGetAll(ctx, "openai:usage:alice")
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"daily": "8"}, m)
	})

	t.Run("HSetThenIncr", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.HSet(ctx, "h", map[string]string{"daily": "10", "monthly": "20"}))
		require.NoError(t, s.HSet(ctx, "h", map[string]string{"daily": "0"}))

		n, err := s.HIncrBy(ctx, "h", "daily", 2)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		m, err := s.HGetAll(ctx, "h")
		require.NoError(t, err)
		assert.Equal(t, "20", m["monthly"])
	})

	t.Run("HSetMultiAndScan", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.HSetMulti(ctx, []db.HashSetItem{
			{Key: "openai:usage:a", Fields: map[string]string{"daily": "1"}},
			{Key: "openai:usage:b_1", Fields: map[string]string{"daily": "2"}},
		}))
		require.NoError(t, s.Set(ctx, "openai:limits", []byte(`{}`)))
		require.NoError(t, s.HSet(ctx, "other:usage:c", map[string]string{"daily": "3"}))

		keys, err := s.Scan(ctx, "openai:usage:*")
		require.NoError(t, err)
		sort.Strings(keys)
		assert.Equal(t, []string{"openai:usage:a", "openai:usage:b_1"}, keys)

		keys, err = s.Scan(ctx, "openai:*")
		require.NoError(t, err)
		assert.Len(t, keys, 3)
	})

	t.Run("ScanLiteralWildcards", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.Set(ctx, "p*x", []byte("1")))
		require.NoError(t, s.Set(ctx, "p_y", []byte("1")))
		require.NoError(t, s.Set(ctx, "pax", []byte("1")))

		keys, err := s.Scan(ctx, `p\**`)
		require.NoError(t, err)
		assert.Equal(t, []string{"p*x"}, keys)

		keys, err = s.Scan(ctx, "p_?")
		require.NoError(t, err)
		assert.Equal(t, []string{"p_y"}, keys)
	})

	t.Run("DelMulti", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.HSet(ctx, "h1", map[string]string{"daily": "1"}))
		require.NoError(t, s.HSet(ctx, "h2", map[string]string{"daily": "1"}))
		require.NoError(t, s.Set(ctx, "k", []byte("v")))

		require.NoError(t, s.DelMulti(ctx, []string{"h1", "h2", "missing"}))
		require.NoError(t, s.Del(ctx, "k"))

		keys, err := s.Scan(ctx, "*")
		require.NoError(t, err)
		assert.Empty(t, keys)
	})

	t.Run("ConcurrentHIncrBy", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		const workers = 20
		const perWorker = 10

		var wg sync.WaitGroup
		errs := make(chan error, workers*perWorker)
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < perWorker; i++ {
					if _, err := s.HIncrBy(ctx, "openai:usage:hot", "monthly", 3); err != nil {
						errs <- fmt.Errorf("worker %d: %w", w, err)
					}
				}
			}()
		}
		wg.Wait()
		close(errs)

		for err := range errs {
			t.Error(err)
		}

		m, err := s.HGetAll(ctx, "openai:usage:hot")
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprint(workers*perWorker*3), m["monthly"])
	})

	t.Run("Ping", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Ping(context.Background()))
	})
}
