package config

import (
	"fmt"
	"slices"
	"strings"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError blocks execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is reported but does not block.
	SeverityWarning IssueSeverity = "warning"
)

// Issue is a single validation finding. Path is the flag name.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// Drivers lists the accepted db_driver values.
var Drivers = []string{"postgres", "mssql", "mysql", "sqlite"}

// Validate performs static checks on cfg. known lists the dataset names the
// binary can handle; unknown names are errors.
func Validate(cfg *Config, known []string) []Issue {
	var issues []Issue
	add := func(sev IssueSeverity, path, format string, args ...any) {
		issues = append(issues, Issue{Severity: sev, Path: path, Message: fmt.Sprintf(format, args...)})
	}

	switch cfg.Mode {
	case ModeExport, ModeImport, ModeDescribe:
	default:
		add(SeverityError, "mode", "unknown mode %q; want export, import or describe", cfg.Mode)
	}

	for _, d := range cfg.Datasets {
		if !slices.Contains(known, d) {
			add(SeverityError, "datasets", "unknown dataset %q; known: %s", d, strings.Join(known, ", "))
		}
	}

	if cfg.Mode == ModeImport {
		if strings.TrimSpace(cfg.File) == "" {
			add(SeverityError, "file", "import needs a file")
		}
		if len(cfg.Datasets) != 1 {
			add(SeverityError, "datasets", "import needs exactly one dataset, got %d", len(cfg.Datasets))
		}
	}

	if cfg.Mode == ModeExport || cfg.Mode == ModeImport {
		if !slices.Contains(Drivers, cfg.DBDriver) {
			add(SeverityError, "db_driver", "unsupported driver %q; want one of %s", cfg.DBDriver, strings.Join(Drivers, ", "))
		}
		if strings.TrimSpace(cfg.DSN) == "" {
			add(SeverityError, "dsn", "a DSN is required for %s", cfg.Mode)
		}
	}

	if cfg.Mode == ModeExport && strings.TrimSpace(cfg.OutDir) == "" {
		add(SeverityError, "out_dir", "export needs an output directory")
	}
	if cfg.Mode == ModeImport && cfg.Lenient && strings.TrimSpace(cfg.SkippedDir) == "" {
		add(SeverityWarning, "skipped_dir", "lenient import without skipped_dir; skipped rows are only counted")
	}

	if cfg.RowStart < 1 {
		add(SeverityWarning, "row_start", "row_start %d behaves like 1 (no padding, no header)", cfg.RowStart)
	}
	if cfg.RowLimit == 0 {
		add(SeverityWarning, "row_limit", "row_limit 0 writes no data rows; use a negative value for no limit")
	}
	if cfg.Workers < 1 {
		add(SeverityError, "workers", "workers must be >= 1, got %d", cfg.Workers)
	}

	switch cfg.MetricsBackend {
	case "", "none":
	case "pushgateway":
		if cfg.PushgatewayURL == "" {
			add(SeverityError, "pushgateway_url", "pushgateway backend needs a URL")
		}
	case "datadog":
		if cfg.StatsdAddr == "" {
			add(SeverityError, "statsd_addr", "datadog backend needs a DogStatsD address")
		}
	default:
		add(SeverityError, "metrics_backend", "unknown backend %q; want none, pushgateway or datadog", cfg.MetricsBackend)
	}

	return issues
}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}
