// Package connector opens a database described by a Config and pairs it with
// the dialect statements for it are rendered in.
package connector

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/Konsultn-Engineering/tabular/database"
	"github.com/Konsultn-Engineering/tabular/dialect"
)

// Provider opens the database of one driver.
type Provider func(ctx context.Context, cfg Config) (database.Database, error)

type manager struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

var globalManager = &manager{providers: make(map[string]Provider)}

// Register makes a provider available under name, replacing any previous one.
func Register(name string, provider Provider) {
	globalManager.mu.Lock()
	defer globalManager.mu.Unlock()
	globalManager.providers[name] = provider
}

// Drivers lists the registered driver names in sorted order.
func Drivers() []string {
	globalManager.mu.RLock()
	defer globalManager.mu.RUnlock()
	names := make([]string, 0, len(globalManager.providers))
	for name := range globalManager.providers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func lookup(name string) (Provider, bool) {
	globalManager.mu.RLock()
	defer globalManager.mu.RUnlock()
	p, ok := globalManager.providers[name]
	return p, ok
}

func init() {
	Register(DriverPostgres, openPostgres)
	Register(DriverSQLite, openSQL("sqlite", SQLiteDSN))
	Register(DriverMySQL, openSQL("mysql", MySQLDSN))
}

// Connection is an open database with its dialect.
type Connection struct {
	DB      database.Database
	Dialect *dialect.Dialect
	Logger  *slog.Logger
	Config  Config
}

// Open connects to the database described by cfg, retrying as configured.
func Open(ctx context.Context, cfg Config) (*Connection, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	d, err := dialect.Get(cfg.DialectName())
	if err != nil {
		return nil, err
	}
	provider, ok := lookup(cfg.Driver)
	if !ok {
		return nil, fmt.Errorf("provider %s not registered", cfg.Driver)
	}

	log := NewLogger(cfg.Log, nil).With("driver", cfg.Driver)

	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}
	db, err := retry(ctx, cfg.Retry, log, func(ctx context.Context) (database.Database, error) {
		return provider(ctx, cfg)
	})
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.Driver, err)
	}

	log.Info("connected", "dialect", d.Name())
	return &Connection{DB: db, Dialect: d, Logger: log, Config: cfg}, nil
}

// Health pings the database.
func (c *Connection) Health(ctx context.Context) error { return c.DB.Ping(ctx) }

func (c *Connection) Close() error { return c.DB.Close() }

// ConnectionStats represents database connection pool statistics.
type ConnectionStats struct {
	OpenConnections int
	InUse           int
	Idle            int
}

// Stats reports pool statistics for the shipped database adapters.
func (c *Connection) Stats() ConnectionStats {
	switch db := c.DB.(type) {
	case *database.SqlDatabase:
		s := db.DB().Stats()
		return ConnectionStats{OpenConnections: s.OpenConnections, InUse: s.InUse, Idle: s.Idle}
	case *database.PgxDatabase:
		s := db.Pool().Stat()
		return ConnectionStats{
			OpenConnections: int(s.TotalConns()),
			InUse:           int(s.AcquiredConns()),
			Idle:            int(s.IdleConns()),
		}
	}
	return ConnectionStats{}
}
