package connector

import (
	"context"
	"database/sql"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"

	"github.com/Konsultn-Engineering/tabular/cache"
	"github.com/Konsultn-Engineering/tabular/database"
)

// openSQL returns a provider for a database/sql driver.
func openSQL(driver string, dsn func(Config) string) Provider {
	return func(ctx context.Context, cfg Config) (database.Database, error) {
		db, err := sql.Open(driver, dsn(cfg))
		if err != nil {
			return nil, err
		}
		db.SetMaxOpenConns(cfg.Pool.MaxOpen)
		db.SetMaxIdleConns(cfg.Pool.MaxIdle)
		db.SetConnMaxLifetime(cfg.Pool.MaxLifetime)
		db.SetConnMaxIdleTime(cfg.Pool.MaxIdleTime)
		if memoryDatabase(cfg) {
			// every connection would see its own empty database
			db.SetMaxOpenConns(1)
			db.SetConnMaxLifetime(0)
			db.SetConnMaxIdleTime(0)
		}

		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}

		var stmts *cache.StatementCache
		if cfg.StatementCacheSize > 0 {
			if stmts, err = cache.NewStatementCache(cfg.StatementCacheSize); err != nil {
				_ = db.Close()
				return nil, err
			}
		}
		return database.NewSqlDatabase(db, stmts), nil
	}
}

func memoryDatabase(cfg Config) bool {
	return cfg.Driver == DriverSQLite &&
		(cfg.Path == ":memory:" || strings.Contains(cfg.Path, "mode=memory"))
}
