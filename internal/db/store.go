package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Store bulk-inserts rows into a table.
type Store interface {
	// Insert writes rows (one []any per row, in cols order) atomically and
	// returns the number of rows inserted.
	Insert(ctx context.Context, table string, cols []string, rows [][]any) (int64, error)
}

// NewStore picks the bulk path for the dialect: COPY for Postgres, prepared
// INSERTs for the rest.
func NewStore(db *sql.DB, d Dialect) Store {
	if d.Name == "postgres" {
		return newPgStore(db)
	}
	return newSQLStore(db, d)
}

// stmtCore is the subset of *sql.Stmt we use.
type stmtCore interface {
	ExecContext(ctx context.Context, args ...any) (sql.Result, error)
	Close() error
}

// sqlTxCore is the subset of *sql.Tx we use; tests inject fakes.
type sqlTxCore interface {
	PrepareContext(ctx context.Context, query string) (stmtCore, error)
	Commit() error
	Rollback() error
}

type realStmt struct{ s *sql.Stmt }

func (r realStmt) ExecContext(ctx context.Context, args ...any) (sql.Result, error) {
	return r.s.ExecContext(ctx, args...)
}
func (r realStmt) Close() error { return r.s.Close() }

type realSQLTx struct{ tx *sql.Tx }

func (r realSQLTx) PrepareContext(ctx context.Context, q string) (stmtCore, error) {
	st, err := r.tx.PrepareContext(ctx, q)
	if err != nil {
		return nil, err
	}
	return realStmt{st}, nil
}
func (r realSQLTx) Commit() error   { return r.tx.Commit() }
func (r realSQLTx) Rollback() error { return r.tx.Rollback() }

// sqlStore is the portable path: one transaction, one prepared INSERT, one
// Exec per row.
type sqlStore struct {
	d     Dialect
	begin func(ctx context.Context) (sqlTxCore, error)
}

func newSQLStore(db *sql.DB, d Dialect) *sqlStore {
	return &sqlStore{
		d: d,
		begin: func(ctx context.Context) (sqlTxCore, error) {
			tx, err := db.BeginTx(ctx, nil)
			if err != nil {
				return nil, err
			}
			return realSQLTx{tx}, nil
		},
	}
}

// InsertSQL renders the INSERT statement for table and cols.
func InsertSQL(d Dialect, table string, cols []string) string {
	quoted := make([]string, len(cols))
	ph := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = d.Quote(c)
		ph[i] = d.Placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		d.Quote(table), strings.Join(quoted, ","), strings.Join(ph, ","))
}

func (s *sqlStore) Insert(ctx context.Context, table string, cols []string, rows [][]any) (n int64, err error) {
	tx, err := s.begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("db: begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
			n = 0
		}
	}()

	stmt, err := tx.PrepareContext(ctx, InsertSQL(s.d, table, cols))
	if err != nil {
		return 0, fmt.Errorf("db: prepare insert into %s: %w", table, err)
	}
	defer stmt.Close()

	for i, row := range rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return 0, fmt.Errorf("db: insert row %d into %s: %w", i+1, table, err)
		}
		n++
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("db: commit %s: %w", table, err)
	}
	return n, nil
}
