package config

import (
	"strings"
	"testing"
)

var known = []string{"ownership", "tech_inspections"}

func hasIssue(t *testing.T, issues []Issue, sev IssueSeverity, path, msgSubstr string) bool {
	t.Helper()
	for _, iss := range issues {
		if iss.Severity == sev && iss.Path == path && strings.Contains(iss.Message, msgSubstr) {
			return true
		}
	}
	return false
}

func validExport() *Config {
	return &Config{
		Mode:           ModeExport,
		DBDriver:       "sqlite",
		DSN:            "file:x.db",
		OutDir:         "out",
		RowStart:       2,
		RowLimit:       -1,
		Workers:        2,
		MetricsBackend: "none",
	}
}

func TestValidate_ValidExportHasNoIssues(t *testing.T) {
	if issues := Validate(validExport(), known); len(issues) != 0 {
		t.Fatalf("unexpected issues: %v", issues)
	}
}

func TestValidate_Errors(t *testing.T) {
	cfg := validExport()
	cfg.Mode = "sync"
	cfg.Datasets = []string{"ownership", "bogus"}
	cfg.Workers = 0
	cfg.MetricsBackend = "graphite"

	issues := Validate(cfg, known)
	if !HasErrors(issues) {
		t.Fatalf("want errors, got %v", issues)
	}
	for _, want := range []struct{ path, msg string }{
		{"mode", "unknown mode"},
		{"datasets", `"bogus"`},
		{"workers", ">= 1"},
		{"metrics_backend", "graphite"},
	} {
		if !hasIssue(t, issues, SeverityError, want.path, want.msg) {
			t.Errorf("missing error at %s containing %q in %v", want.path, want.msg, issues)
		}
	}
}

func TestValidate_Import(t *testing.T) {
	cfg := validExport()
	cfg.Mode = ModeImport
	cfg.DBDriver = "oracle"
	cfg.DSN = ""
	cfg.Lenient = true

	issues := Validate(cfg, known)
	for _, want := range []struct{ path, msg string }{
		{"file", "needs a file"},
		{"datasets", "exactly one"},
		{"db_driver", "oracle"},
		{"dsn", "required"},
	} {
		if !hasIssue(t, issues, SeverityError, want.path, want.msg) {
			t.Errorf("missing error at %s containing %q in %v", want.path, want.msg, issues)
		}
	}
	if !hasIssue(t, issues, SeverityWarning, "skipped_dir", "only counted") {
		t.Errorf("missing skipped_dir warning in %v", issues)
	}
}

func TestValidate_Warnings(t *testing.T) {
	cfg := validExport()
	cfg.RowStart = 0
	cfg.RowLimit = 0

	issues := Validate(cfg, known)
	if HasErrors(issues) {
		t.Fatalf("warnings only expected, got %v", issues)
	}
	if !hasIssue(t, issues, SeverityWarning, "row_start", "behaves like 1") ||
		!hasIssue(t, issues, SeverityWarning, "row_limit", "no data rows") {
		t.Fatalf("missing layout warnings: %v", issues)
	}
}

func TestValidate_DescribeNeedsNoDatabase(t *testing.T) {
	cfg := &Config{Mode: ModeDescribe, Workers: 1, RowStart: 1, RowLimit: -1}
	if issues := Validate(cfg, known); len(issues) != 0 {
		t.Fatalf("describe should not require db settings: %v", issues)
	}
}

func TestMetricsBackendRequirements(t *testing.T) {
	cfg := validExport()
	cfg.MetricsBackend = "pushgateway"
	if !hasIssue(t, Validate(cfg, known), SeverityError, "pushgateway_url", "needs a URL") {
		t.Fatalf("pushgateway without URL should fail")
	}
	cfg.PushgatewayURL = "http://pg:9091"
	if HasErrors(Validate(cfg, known)) {
		t.Fatalf("pushgateway with URL should pass")
	}
}
