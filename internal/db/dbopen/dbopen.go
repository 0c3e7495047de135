// Package dbopen builds the configured db.Store.
package dbopen

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/tokenmeter/internal/config"
	"github.com/kailas-cloud/tokenmeter/internal/db"
	"github.com/kailas-cloud/tokenmeter/internal/db/memory"
	dbRedis "github.com/kailas-cloud/tokenmeter/internal/db/redis"
	"github.com/kailas-cloud/tokenmeter/internal/db/sqlkv"
)

// Open creates the store selected by cfg.Driver. It does not wait for the
// backend to become ready.
func Open(ctx context.Context, cfg config.DatabaseConfig) (db.Store, error) {
	switch cfg.Driver {
	case config.DriverRedis, config.DriverValkey:
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Addrs,
			Password: cfg.Password,
		})
		if err != nil {
			return nil, fmt.Errorf("open %s store: %w", cfg.Driver, err)
		}
		return s, nil
	case config.DriverSQLite:
		s, err := sqlkv.OpenSQLite(ctx, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return s, nil
	case config.DriverPostgres:
		s, err := sqlkv.OpenPostgres(ctx, cfg.DSN, sqlkv.PoolConfig{
			MaxOpenConns: cfg.MaxOpenConns,
			MaxIdleConns: cfg.MaxIdleConns,
		})
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		return s, nil
	case config.DriverMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}
