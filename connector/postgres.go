package connector

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Konsultn-Engineering/tabular/database"
)

func openPostgres(ctx context.Context, cfg Config) (database.Database, error) {
	poolCfg, err := pgxpool.ParseConfig(PostgresDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.Pool.MaxOpen)
	poolCfg.MinConns = int32(min(cfg.Pool.MaxIdle, cfg.Pool.MaxOpen))
	poolCfg.MaxConnLifetime = cfg.Pool.MaxLifetime
	poolCfg.MaxConnIdleTime = cfg.Pool.MaxIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return database.NewPgxDatabase(pool), nil
}
