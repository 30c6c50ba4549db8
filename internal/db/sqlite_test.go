package db

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

type vehicle struct {
	ID     int        `sheet:"0,name=id"`
	Plate  *string    `sheet:"1,name=plate"`
	Active bool       `sheet:"2,name=active,adapter=bool.digit"`
	Since  *time.Time `sheet:"3,name=since,adapter=date.dmy"`
	Weight float64    `sheet:"4,name=weight"`
}

// TestSQLite_RoundTrip runs the portable store end to end on a real SQLite
// file: DDL, batched insert and typed load.
func TestSQLite_RoundTrip(t *testing.T) {
	ctx := context.Background()
	conn, d, err := Open(ctx, "sqlite", filepath.Join(t.TempDir(), "t.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer conn.Close()

	m := mappingFor[vehicle](t)
	for i := 0; i < 2; i++ {
		if err := CreateTable(ctx, conn, d, "vehicles", m); err != nil {
			t.Fatalf("CreateTable #%d: %v", i+1, err)
		}
	}

	plate := "1AB 2345"
	since := time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC)
	recs := []vehicle{
		{ID: 1, Plate: &plate, Active: true, Since: &since, Weight: 1250.5},
		{ID: 2},
	}
	n, err := InsertRecords(ctx, NewStore(conn, d), d, "vehicles", m, recs)
	if err != nil || n != 2 {
		t.Fatalf("InsertRecords = %d, %v", n, err)
	}

	var stored string
	if err := conn.QueryRowContext(ctx, `SELECT since FROM vehicles WHERE id = 1`).Scan(&stored); err != nil {
		t.Fatalf("raw select: %v", err)
	}
	if stored != "01.03.2020" {
		t.Fatalf("since stored as %q; want adapter text", stored)
	}

	got, err := LoadRecords[vehicle](ctx, conn, d, "vehicles", m, -1)
	if err != nil {
		t.Fatalf("LoadRecords: %v", err)
	}
	if !reflect.DeepEqual(got, recs) {
		t.Fatalf("round trip mismatch\ngot : %#v\nwant: %#v", got, recs)
	}

	got, err = LoadRecords[vehicle](ctx, conn, d, "vehicles", m, 1)
	if err != nil || len(got) != 1 {
		t.Fatalf("LoadRecords limit 1 = %d rows, %v", len(got), err)
	}
}

func TestSQLite_InsertFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	conn, d, err := Open(ctx, "sqlite", filepath.Join(t.TempDir(), "t.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, `CREATE TABLE t (id INTEGER PRIMARY KEY)`); err != nil {
		t.Fatalf("create: %v", err)
	}
	s := NewStore(conn, d)
	if _, err := s.Insert(ctx, "t", []string{"id"}, [][]any{{1}, {1}}); err == nil {
		t.Fatalf("duplicate key: want error")
	}
	var count int
	if err := conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM t`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("count = %d after rollback; want 0", count)
	}
}

func TestLoadRecords_MissingTable(t *testing.T) {
	ctx := context.Background()
	conn, d, err := Open(ctx, "sqlite", filepath.Join(t.TempDir(), "t.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer conn.Close()

	if _, err := LoadRecords[vehicle](ctx, conn, d, "nope", mappingFor[vehicle](t), -1); err == nil {
		t.Fatalf("missing table: want error")
	}
}
