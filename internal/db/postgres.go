package db

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
)

// pgConnLike is the subset of *pgx.Conn the COPY path uses.
type pgConnLike interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// pgStore loads rows with COPY FROM over the pgx connection underneath a
// database/sql pool.
type pgStore struct {
	acquire func(ctx context.Context, fn func(pgConnLike) error) error
}

func newPgStore(db *sql.DB) *pgStore {
	return &pgStore{acquire: func(ctx context.Context, fn func(pgConnLike) error) error {
		conn, err := db.Conn(ctx)
		if err != nil {
			return err
		}
		defer conn.Close()
		return conn.Raw(func(dc any) error {
			sc, ok := dc.(*stdlib.Conn)
			if !ok {
				return fmt.Errorf("db: driver connection is %T, want *stdlib.Conn", dc)
			}
			return fn(sc.Conn())
		})
	}}
}

func (s *pgStore) Insert(ctx context.Context, table string, cols []string, rows [][]any) (int64, error) {
	var n int64
	err := s.acquire(ctx, func(c pgConnLike) error {
		var err error
		n, err = copyInto(ctx, c, table, cols, rows)
		return err
	})
	return n, err
}

func copyInto(ctx context.Context, c pgConnLike, table string, cols []string, rows [][]any) (int64, error) {
	tx, err := c.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("db: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	n, err := tx.CopyFrom(ctx, pgx.Identifier{table}, cols, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, fmt.Errorf("db: copy into %s: %w", table, err)
	}
	if n != int64(len(rows)) {
		log.Printf("db: copy into %s inserted %d of %d rows", table, n, len(rows))
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("db: commit %s: %w", table, err)
	}
	return n, nil
}
