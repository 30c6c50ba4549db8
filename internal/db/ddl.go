package db

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"strings"
	"time"
	"unicode"

	"sheetmap/pkg/column"
)

type sqlKind int

const (
	kindText sqlKind = iota // anything else, stored as adapter-formatted text
	kindInt
	kindFloat
	kindBool
	kindString
	kindTime
)

var timeType = reflect.TypeFor[time.Time]()

func kindOf(t reflect.Type) sqlKind {
	if t == timeType {
		return kindTime
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return kindInt
	case reflect.Float32, reflect.Float64:
		return kindFloat
	case reflect.Bool:
		return kindBool
	case reflect.String:
		return kindString
	}
	return kindText
}

// ColumnName derives the table column of a mapped field: the field name in
// snake case ("DatumOd" -> "datum_od", "KodSTK" -> "kod_stk").
func ColumnName(c column.Column) string {
	return snake(c.Field.Name)
}

// ColumnNames returns the table columns of m in column order.
func ColumnNames(m *column.Mapping) []string {
	out := make([]string, len(m.Columns))
	for i, c := range m.Columns {
		out[i] = ColumnName(c)
	}
	return out
}

func snake(s string) string {
	rs := []rune(s)
	var b strings.Builder
	for i, r := range rs {
		if i > 0 && unicode.IsUpper(r) {
			prev := rs[i-1]
			nextLower := i+1 < len(rs) && unicode.IsLower(rs[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				b.WriteByte('_')
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// CreateTableSQL renders the DDL for a table holding records of m. Pointer
// fields are nullable, everything else is NOT NULL.
func CreateTableSQL(d Dialect, table string, m *column.Mapping) string {
	defs := make([]string, len(m.Columns))
	for i, c := range m.Columns {
		def := d.Quote(ColumnName(c)) + " " + d.types[kindOf(c.Field.ValueType())]
		if !c.Field.Nullable() {
			def += " NOT NULL"
		}
		defs[i] = def
	}
	body := fmt.Sprintf("CREATE TABLE %s (\n\t%s\n)", d.Quote(table), strings.Join(defs, ",\n\t"))

	if d.Name == "mssql" {
		lit := strings.ReplaceAll(table, "'", "''")
		return fmt.Sprintf("IF OBJECT_ID(N'%s', N'U') IS NULL\n%s", lit, body)
	}
	return strings.Replace(body, "CREATE TABLE", "CREATE TABLE IF NOT EXISTS", 1)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// CreateTable creates the table for m unless it already exists.
func CreateTable(ctx context.Context, db execer, d Dialect, table string, m *column.Mapping) error {
	if _, err := db.ExecContext(ctx, CreateTableSQL(d, table, m)); err != nil {
		return fmt.Errorf("db: create table %s: %w", table, err)
	}
	return nil
}
