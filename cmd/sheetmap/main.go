// Command sheetmap moves mapped records between SQL tables and CSV sheets.
//
//	sheetmap -mode=export -db_driver=postgres -dsn=... -datasets=ownership -row_start=3
//	sheetmap -mode=import -db_driver=sqlite -dsn=rsv.db -datasets=ownership -file=ownership.csv -lenient
//	sheetmap -mode=describe
//
// main stays tiny; run does the work with its side effects injected through
// Deps so tests can drive it against a throwaway SQLite file.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"sheetmap/internal/config"
	"sheetmap/internal/db"
	"sheetmap/internal/domain"
	"sheetmap/internal/metrics"
	"sheetmap/pkg/column"
)

// Deps holds the boundaries run talks to.
type Deps struct {
	OpenDB   func(ctx context.Context, driver, dsn string) (*sql.DB, db.Dialect, error)
	NewStore func(conn *sql.DB, d db.Dialect) db.Store
	Resolver *column.Resolver
	Stdout   io.Writer
}

func defaultDeps() Deps {
	return Deps{
		OpenDB:   db.Open,
		NewStore: db.NewStore,
		Resolver: column.Default(),
		Stdout:   os.Stdout,
	}
}

// run validates cfg and executes the selected mode over the selected
// datasets.
func run(ctx context.Context, cfg *config.Config, deps Deps) error {
	issues := config.Validate(cfg, domain.Names())
	for _, iss := range issues {
		log.Printf("config: %v", iss)
	}
	if config.HasErrors(issues) {
		return errors.New("invalid configuration")
	}

	targets, err := selectTargets(cfg.Datasets)
	if err != nil {
		return err
	}

	if cfg.Mode == config.ModeDescribe {
		return describe(deps.Stdout, deps.Resolver, targets)
	}

	conn, d, err := deps.OpenDB(ctx, cfg.DBDriver, cfg.DSN)
	if err != nil {
		return err
	}
	defer conn.Close()
	e := &env{cfg: cfg, conn: conn, dialect: d, resolver: deps.Resolver}

	switch cfg.Mode {
	case config.ModeExport:
		return exportAll(ctx, e, targets)
	case config.ModeImport:
		e.store = deps.NewStore(conn, d)
		t := targets[0]
		start := time.Now()
		st, err := t.run.importFile(ctx, e, t.ds)
		metrics.RecordStep(t.ds.Name, "import", err, time.Since(start))
		if err != nil {
			return fmt.Errorf("import %s: %w", t.ds.Name, err)
		}
		log.Printf("import: %s: read=%d inserted=%d skipped=%d in %s",
			t.ds.Name, st.read, st.inserted, st.skipped, time.Since(start).Truncate(time.Millisecond))
		return nil
	}
	return fmt.Errorf("unsupported mode %q", cfg.Mode)
}

// exportAll writes one sheet per dataset, cfg.Workers at a time. The first
// failure cancels the exports that have not started yet.
func exportAll(ctx context.Context, e *env, targets []target) error {
	if err := os.MkdirAll(e.cfg.OutDir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", e.cfg.OutDir, err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Workers)
	for _, t := range targets {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			res, path, err := t.run.export(ctx, e, t.ds)
			metrics.RecordStep(t.ds.Name, "export", err, time.Since(start))
			if err != nil {
				return fmt.Errorf("export %s: %w", t.ds.Name, err)
			}
			log.Printf("export: %s: %d rows, %d bytes to %s (xxh3 %016x)", t.ds.Name, res.Rows, res.Bytes, path, res.Digest)
			return nil
		})
	}
	return g.Wait()
}

// initMetrics installs the configured backend and returns the function that
// flushes it at exit.
func initMetrics(cfg *config.Config) func() {
	b, err := newMetricsBackend(cfg)
	if err != nil {
		log.Printf("metrics: %v; using nop", err)
		return func() {}
	}
	if b == nil {
		if cfg.Verbose {
			log.Printf("metrics: disabled (backend=%q)", cfg.MetricsBackend)
		}
		return func() {}
	}
	metrics.SetBackend(b)
	log.Printf("metrics: backend=%s job=%s", cfg.MetricsBackend, cfg.MetricsJob)
	return func() {
		if err := metrics.Flush(); err != nil {
			log.Printf("metrics: flush error: %v", err)
		}
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	flush := initMetrics(cfg)
	err = run(ctx, cfg, defaultDeps())
	flush()
	if err != nil {
		log.Fatal(err)
	}
}
