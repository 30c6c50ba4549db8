package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"sheetmap/pkg/column"
	"sheetmap/pkg/rowcodec"
)

// BatchSize is the number of rows handed to a Store per Insert call.
const BatchSize = 5000

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// SelectSQL renders a SELECT of cols from table. A negative limit selects
// everything.
func SelectSQL(d Dialect, table string, cols []string, limit int) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = d.Quote(c)
	}
	list := strings.Join(quoted, ", ")
	switch {
	case limit < 0:
		return fmt.Sprintf("SELECT %s FROM %s", list, d.Quote(table))
	case d.Name == "mssql":
		return fmt.Sprintf("SELECT TOP (%d) %s FROM %s", limit, list, d.Quote(table))
	default:
		return fmt.Sprintf("SELECT %s FROM %s LIMIT %d", list, d.Quote(table), limit)
	}
}

// Query returns up to limit rows of cols from table as driver values.
func Query(ctx context.Context, db queryer, d Dialect, table string, cols []string, limit int) ([][]any, error) {
	rows, err := db.QueryContext(ctx, SelectSQL(d, table, cols, limit))
	if err != nil {
		return nil, fmt.Errorf("db: query %s: %w", table, err)
	}
	defer rows.Close()

	var out [][]any
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return out, fmt.Errorf("db: scan %s: %w", table, err)
		}
		out = append(out, vals)
	}
	if err := rows.Err(); err != nil {
		return out, fmt.Errorf("db: read %s: %w", table, err)
	}
	return out, nil
}

// LoadRecords reads up to limit records of the mapping's type from table.
func LoadRecords[T any](ctx context.Context, db queryer, d Dialect, table string, m *column.Mapping, limit int) ([]T, error) {
	rows, err := Query(ctx, db, d, table, ColumnNames(m), limit)
	if err != nil {
		return nil, err
	}
	out := make([]T, len(rows))
	for i, row := range rows {
		if err := rowcodec.Assign(&out[i], m, row); err != nil {
			return nil, fmt.Errorf("db: %s row %d: %w", table, i+1, err)
		}
	}
	return out, nil
}

// InsertRecords writes recs to table through s in batches of BatchSize and
// returns the number of rows inserted. Batches already committed stay when a
// later one fails.
func InsertRecords[T any](ctx context.Context, s Store, d Dialect, table string, m *column.Mapping, recs []T) (int64, error) {
	cols := ColumnNames(m)
	var total int64
	for start := 0; start < len(recs); start += BatchSize {
		end := min(start+BatchSize, len(recs))
		rows := make([][]any, 0, end-start)
		for i := start; i < end; i++ {
			vals, err := rowcodec.Values(recs[i], m)
			if err != nil {
				return total, err
			}
			if err := bindRow(d, m, vals); err != nil {
				return total, err
			}
			rows = append(rows, vals)
		}
		n, err := s.Insert(ctx, table, cols, rows)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// bindRow converts values the driver cannot store natively into adapter
// text, in place.
func bindRow(d Dialect, m *column.Mapping, vals []any) error {
	for i, v := range vals {
		if v == nil {
			continue
		}
		c := m.Columns[i]
		k := kindOf(c.Field.ValueType())
		if k == kindText || (k == kindTime && d.TimeAsText) {
			s, err := c.Adapter.Format(v)
			if err != nil {
				return &rowcodec.FieldAccessError{Type: m.Type, Field: c.Field.Name, Err: err}
			}
			vals[i] = s
		}
	}
	return nil
}
