package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"reflect"
	"text/tabwriter"

	"sheetmap/internal/config"
	"sheetmap/internal/db"
	"sheetmap/internal/domain"
	"sheetmap/internal/metrics"
	"sheetmap/internal/skiplog"
	"sheetmap/pkg/column"
	"sheetmap/pkg/sheet"
)

// env is what a dataset runner needs from the process.
type env struct {
	cfg      *config.Config
	conn     *sql.DB
	dialect  db.Dialect
	store    db.Store
	resolver *column.Resolver
}

type importStats struct {
	read, inserted, skipped int
}

// runner binds the generic export/import paths to one record type.
type runner struct {
	export     func(ctx context.Context, e *env, ds domain.Dataset) (sheet.Result, string, error)
	importFile func(ctx context.Context, e *env, ds domain.Dataset) (importStats, error)
}

type target struct {
	ds  domain.Dataset
	run runner
}

// runners maps a dataset's record type to its export and import paths.
var runners = map[reflect.Type]runner{}

func register[T any]() {
	runners[reflect.TypeFor[T]()] = runner{
		export:     exportDataset[T],
		importFile: importDataset[T],
	}
}

func init() {
	register[domain.Ownership]()
	register[domain.TechInspection]()
}

// selectTargets returns the named datasets in the given order, or every
// dataset when names is empty.
func selectTargets(names []string) ([]target, error) {
	sets := domain.Datasets()
	if len(names) > 0 {
		sets = sets[:0:0]
		for _, name := range names {
			ds, ok := domain.Lookup(name)
			if !ok {
				return nil, fmt.Errorf("unknown dataset %q", name)
			}
			sets = append(sets, ds)
		}
	}
	out := make([]target, 0, len(sets))
	for _, ds := range sets {
		r, ok := runners[ds.Type]
		if !ok {
			return nil, fmt.Errorf("dataset %q: no runner for %v", ds.Name, ds.Type)
		}
		out = append(out, target{ds: ds, run: r})
	}
	return out, nil
}

// exportDataset reads the dataset's table and writes <out_dir>/<name>.csv,
// appending when the sheet already exists.
func exportDataset[T any](ctx context.Context, e *env, ds domain.Dataset) (sheet.Result, string, error) {
	m, err := column.For[T](e.resolver)
	if err != nil {
		return sheet.Result{}, "", err
	}
	recs, err := db.LoadRecords[T](ctx, e.conn, e.dialect, ds.Table, m, e.cfg.RowLimit)
	if err != nil {
		return sheet.Result{}, "", err
	}
	if e.cfg.Verbose {
		log.Printf("export: %s: loaded %d records from %s", ds.Name, len(recs), ds.Table)
	}

	path := filepath.Join(e.cfg.OutDir, ds.Name+".csv")
	res, err := sheet.WriteFile(path, recs, sheet.Options{
		RowStartIndex: e.cfg.RowStart,
		RowLimit:      e.cfg.RowLimit,
		Lock:          e.cfg.Lock,
		Resolver:      e.resolver,
	})
	metrics.RecordRows(ds.Name, "written", int64(res.Rows))
	metrics.RecordBytes(ds.Name, res.Bytes)
	return res, path, err
}

// importDataset reads cfg.File and inserts the records into the dataset's
// table. Lenient imports skip bad rows and log them under skipped_dir.
func importDataset[T any](ctx context.Context, e *env, ds domain.Dataset) (importStats, error) {
	var st importStats
	m, err := column.For[T](e.resolver)
	if err != nil {
		return st, err
	}
	if e.cfg.CreateTable {
		if err := db.CreateTable(ctx, e.conn, e.dialect, ds.Table, m); err != nil {
			return st, err
		}
	}

	opt := sheet.ReadOptionsFor(e.cfg.RowStart)
	opt.RowLimit = e.cfg.RowLimit
	var skips *skiplog.Log
	if e.cfg.Lenient {
		if e.cfg.SkippedDir != "" {
			skips, err = skiplog.Create(filepath.Join(e.cfg.SkippedDir, ds.Name+".csv"))
			if err != nil {
				return st, err
			}
			defer func() {
				if err := skips.Close(); err != nil {
					log.Printf("import: %s: close skip log: %v", ds.Name, err)
				}
			}()
			opt.OnSkip = skips.Skip
		} else {
			opt.OnSkip = func(int, string, error) { st.skipped++ }
		}
	}

	recs, err := sheet.ReadFile[T](e.cfg.File, opt, e.resolver)
	if skips != nil {
		st.skipped = skips.Total()
		for _, r := range skips.Top(5) {
			log.Printf("import: %s: skipped %d rows: %s", ds.Name, r.Count, r.Reason)
		}
	}
	st.read = len(recs)
	metrics.RecordRows(ds.Name, "read", int64(st.read))
	metrics.RecordRows(ds.Name, "skipped", int64(st.skipped))
	if err != nil {
		return st, err
	}

	n, err := db.InsertRecords(ctx, e.store, e.dialect, ds.Table, m, recs)
	st.inserted = int(n)
	metrics.RecordRows(ds.Name, "inserted", n)
	return st, err
}

// describe prints the resolved column layout of each dataset.
func describe(w io.Writer, r *column.Resolver, targets []target) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for i, t := range targets {
		m, err := r.Resolve(t.ds.Type)
		if err != nil {
			return fmt.Errorf("describe %s: %w", t.ds.Name, err)
		}
		if i > 0 {
			fmt.Fprintln(tw)
		}
		fmt.Fprintf(tw, "%s (table %s, %d columns)\n", t.ds.Name, t.ds.Table, m.Len())
		fmt.Fprintln(tw, "#\tNAME\tFIELD\tTYPE\tADAPTER\tDB COLUMN")
		for _, c := range m.Columns {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%v\t%T\t%s\n",
				c.Descriptor.Index, c.Descriptor.Name, c.Field.Name, c.Field.Type, c.Adapter, db.ColumnName(c))
		}
	}
	return tw.Flush()
}
