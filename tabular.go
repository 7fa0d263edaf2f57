// Package tabular stores typed values in relational tables.
//
// Converters describe how a value maps onto columns, dialects render the
// statements built from them and the engine runs those statements against a
// database opened from a Config:
//
//	eng, err := tabular.Open(ctx, tabular.Config{Driver: tabular.SQLite, Path: "app.db"})
//	if err != nil {
//	    return err
//	}
//	defer eng.Close()
package tabular

import (
	"context"

	"github.com/Konsultn-Engineering/tabular/ast"
	"github.com/Konsultn-Engineering/tabular/connector"
	"github.com/Konsultn-Engineering/tabular/convert"
	"github.com/Konsultn-Engineering/tabular/dialect"
	"github.com/Konsultn-Engineering/tabular/engine"
	"github.com/Konsultn-Engineering/tabular/schema"
	"github.com/Konsultn-Engineering/tabular/value"
)

type Config = connector.Config
type Converter = convert.Converter

const (
	Postgres = connector.DriverPostgres
	MySQL    = connector.DriverMySQL
	SQLite   = connector.DriverSQLite
)

// Open connects to the database described by cfg and returns an engine
// speaking its dialect.
func Open(ctx context.Context, cfg Config) (*engine.Engine, error) {
	conn, err := connector.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return engine.New(conn.Dialect, conn.DB,
		engine.WithLogger(conn.Logger),
		engine.WithSlowQueryThreshold(conn.Config.SlowQueryThreshold),
	), nil
}

// SchemaOf returns the columns conv maps a value onto.
func SchemaOf(conv Converter) (*schema.Schema, error) { return convert.SchemaOf(conv) }

// Convert returns the column values of instance, in schema order.
func Convert(conv Converter, instance any) ([]value.Value, error) {
	return convert.Convert(conv, instance)
}

// Recover rebuilds a value from a row. A nil result means the row describes
// no value.
func Recover(conv Converter, row []any, provided any) (any, error) {
	return convert.Recover(conv, row, provided)
}

// Render transcribes n in dialect d, binding its literals to placeholders.
func Render(d *dialect.Dialect, n ast.Node) (*dialect.Statement, error) { return d.Render(n) }
