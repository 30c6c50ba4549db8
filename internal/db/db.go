// Package db moves mapped records between sheets and SQL tables. It speaks
// Postgres (pgx), SQL Server, MySQL and SQLite through database/sql and
// describes the differences between them with a Dialect. Postgres imports
// take the native COPY path; everything else inserts with a prepared
// statement inside a transaction.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/microsoft/go-mssqldb"
	_ "modernc.org/sqlite"
)

// UnknownDriverError is returned for a driver name with no dialect.
type UnknownDriverError struct{ Driver string }

func (e *UnknownDriverError) Error() string {
	return fmt.Sprintf("db: unknown driver %q (want postgres, mssql, mysql or sqlite)", e.Driver)
}

// Dialect captures what differs between the supported engines.
type Dialect struct {
	Name       string // postgres, mssql, mysql or sqlite
	DriverName string // database/sql driver

	// TimeAsText stores time values as text formatted by the column adapter.
	TimeAsText bool

	placeholder func(i int) string // 1-based
	quote       func(ident string) string
	types       map[sqlKind]string
}

var dialects = map[string]Dialect{
	"postgres": {
		Name:        "postgres",
		DriverName:  "pgx",
		placeholder: func(i int) string { return fmt.Sprintf("$%d", i) },
		quote:       doubleQuote,
		types: map[sqlKind]string{
			kindInt: "BIGINT", kindFloat: "DOUBLE PRECISION", kindBool: "BOOLEAN",
			kindString: "TEXT", kindTime: "TIMESTAMP", kindText: "TEXT",
		},
	},
	"mssql": {
		Name:        "mssql",
		DriverName:  "sqlserver",
		placeholder: func(i int) string { return fmt.Sprintf("@p%d", i) },
		quote: func(s string) string {
			return "[" + strings.ReplaceAll(s, "]", "]]") + "]"
		},
		types: map[sqlKind]string{
			kindInt: "BIGINT", kindFloat: "FLOAT", kindBool: "BIT",
			kindString: "NVARCHAR(MAX)", kindTime: "DATETIME2", kindText: "NVARCHAR(MAX)",
		},
	},
	"mysql": {
		Name:        "mysql",
		DriverName:  "mysql",
		placeholder: func(int) string { return "?" },
		quote: func(s string) string {
			return "`" + strings.ReplaceAll(s, "`", "``") + "`"
		},
		types: map[sqlKind]string{
			kindInt: "BIGINT", kindFloat: "DOUBLE", kindBool: "BOOLEAN",
			kindString: "TEXT", kindTime: "DATETIME", kindText: "TEXT",
		},
	},
	"sqlite": {
		Name:        "sqlite",
		DriverName:  "sqlite",
		TimeAsText:  true,
		placeholder: func(int) string { return "?" },
		quote:       doubleQuote,
		types: map[sqlKind]string{
			kindInt: "INTEGER", kindFloat: "REAL", kindBool: "INTEGER",
			kindString: "TEXT", kindTime: "TEXT", kindText: "TEXT",
		},
	},
}

func doubleQuote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// DialectFor returns the dialect for a driver name.
func DialectFor(driver string) (Dialect, error) {
	d, ok := dialects[driver]
	if !ok {
		return Dialect{}, &UnknownDriverError{Driver: driver}
	}
	return d, nil
}

// Quote quotes an identifier for the dialect.
func (d Dialect) Quote(ident string) string { return d.quote(ident) }

// Placeholder returns the i-th (1-based) bind parameter.
func (d Dialect) Placeholder(i int) string { return d.placeholder(i) }

// Open opens and pings a database. MySQL DSNs get parseTime so DATETIME
// columns scan as time.Time; SQLite is limited to one connection so that
// in-memory databases are shared and writes serialise.
func Open(ctx context.Context, driver, dsn string) (*sql.DB, Dialect, error) {
	d, err := DialectFor(driver)
	if err != nil {
		return nil, Dialect{}, err
	}
	if d.Name == "mysql" {
		if dsn, err = withParseTime(dsn); err != nil {
			return nil, Dialect{}, err
		}
	}

	conn, err := sql.Open(d.DriverName, dsn)
	if err != nil {
		return nil, Dialect{}, fmt.Errorf("db: open %s: %w", d.Name, err)
	}
	if d.Name == "sqlite" {
		conn.SetMaxOpenConns(1)
	}
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, Dialect{}, fmt.Errorf("db: ping %s: %w", d.Name, err)
	}
	return conn, d, nil
}

func withParseTime(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("db: mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	return cfg.FormatDSN(), nil
}
