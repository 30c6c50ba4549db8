// Package config holds the sheetmap process configuration. Every knob is a
// command-line flag whose default is seeded from an environment variable, so
// `-help` lists everything and deployments can stay flag-free.
//
// Tests should use LoadFromArgs with a private FlagSet and a map-backed
// getenv:
//
//	fs := flag.NewFlagSet("test", flag.ContinueOnError)
//	cfg, err := config.LoadFromArgs(fs, func(k string) string { return env[k] }, []string{"-mode=describe"})
package config

import (
	"flag"
	"os"
	"strconv"
	"strings"
)

// Modes understood by the binary.
const (
	ModeExport   = "export"
	ModeImport   = "import"
	ModeDescribe = "describe"
)

// Config is plain data and safe to copy after Load.
type Config struct {
	Mode     string   // export, import or describe
	Datasets []string // dataset names; empty means all for export/describe

	// Files.
	File       string // sheet to import
	OutDir     string // export destination directory
	SkippedDir string // where lenient imports log skipped rows

	// Database.
	DBDriver string // postgres, mssql, mysql or sqlite
	DSN      string

	// Sheet layout.
	RowStart int // 1-based row of the first record
	RowLimit int // negative means no limit

	Workers     int  // concurrent dataset exports
	CreateTable bool // create the import table when missing
	Lenient     bool // skip unparsable rows instead of aborting
	Lock        bool // take an exclusive lock on export files

	// Metrics.
	MetricsBackend string // none, pushgateway or datadog
	PushgatewayURL string
	StatsdAddr     string
	MetricsJob     string

	Verbose bool
}

// LoadFromArgs defines the flags on fs, seeds their defaults through getenv
// and parses args. Environment values lose to explicit flags.
func LoadFromArgs(fs *flag.FlagSet, getenv func(string) string, args []string) (*Config, error) {
	cfg := &Config{}

	str := func(k, d string) string {
		if v := getenv(k); v != "" {
			return v
		}
		return d
	}
	num := func(k string, d int) int {
		if v := getenv(k); v != "" {
			if i, err := strconv.Atoi(v); err == nil {
				return i
			}
		}
		return d
	}
	boolean := func(k string, d bool) bool {
		switch strings.ToLower(getenv(k)) {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
		return d
	}

	var datasets string
	fs.StringVar(&cfg.Mode, "mode", str("SHEETMAP_MODE", ModeExport), "What to do: export, import or describe.")
	fs.StringVar(&datasets, "datasets", getenv("SHEETMAP_DATASETS"), "Comma-separated dataset names (default: all).")

	fs.StringVar(&cfg.File, "file", getenv("SHEETMAP_FILE"), "Sheet to import (import mode).")
	fs.StringVar(&cfg.OutDir, "out_dir", str("OUT_DIR", "./out"), "Directory for exported sheets.")
	fs.StringVar(&cfg.SkippedDir, "skipped_dir", str("SKIPPED_DIR", "./skipped"), "Directory for skipped-row CSV logs.")

	fs.StringVar(&cfg.DBDriver, "db_driver", str("DB_DRIVER", "postgres"), "Database driver: postgres, mssql, mysql or sqlite.")
	fs.StringVar(&cfg.DSN, "dsn", getenv("DB_DSN"), "Database DSN.")

	fs.IntVar(&cfg.RowStart, "row_start", num("ROW_START", 2), "1-based row of the first record; >1 adds a header.")
	fs.IntVar(&cfg.RowLimit, "row_limit", num("ROW_LIMIT", -1), "Maximum rows per sheet; negative for no limit.")
	fs.IntVar(&cfg.Workers, "workers", num("WORKERS", 4), "Number of datasets exported concurrently.")
	fs.BoolVar(&cfg.CreateTable, "create_table", boolean("CREATE_TABLE", true), "Create the import table if missing.")
	fs.BoolVar(&cfg.Lenient, "lenient", boolean("LENIENT", false), "Skip and log rows that fail to parse.")
	fs.BoolVar(&cfg.Lock, "lock", boolean("SHEET_LOCK", true), "Lock export files while writing.")

	fs.StringVar(&cfg.MetricsBackend, "metrics_backend", str("METRICS_BACKEND", "none"), "Metrics backend: none, pushgateway or datadog.")
	fs.StringVar(&cfg.PushgatewayURL, "pushgateway_url", getenv("PUSHGATEWAY_URL"), "Prometheus Pushgateway URL.")
	fs.StringVar(&cfg.StatsdAddr, "statsd_addr", str("DD_DOGSTATSD_ADDR", "127.0.0.1:8125"), "DogStatsD address.")
	fs.StringVar(&cfg.MetricsJob, "metrics_job", str("METRICS_JOB", "sheetmap"), "Job name used for metrics grouping.")

	fs.BoolVar(&cfg.Verbose, "v", boolean("VERBOSE", false), "Verbose progress logging.")

	if args == nil {
		args = []string{}
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	cfg.Datasets = splitList(datasets)
	return cfg, nil
}

// Load parses os.Args against flag.CommandLine and the process environment.
func Load() (*Config, error) {
	return LoadFromArgs(flag.CommandLine, os.Getenv, os.Args[1:])
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
