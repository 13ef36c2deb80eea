package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Pipeline.RetryAttempts != 3 {
		t.Fatalf("expected default 3 attempts, got %d", cfg.Pipeline.RetryAttempts)
	}
	if cfg.RetryDelay() != 5*time.Second {
		t.Fatalf("expected default 5s delay, got %s", cfg.RetryDelay())
	}
	if cfg.Ledger.Backend != BackendFile {
		t.Fatalf("expected file backend by default, got %s", cfg.Ledger.Backend)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PIPELINE_RETRY_ATTEMPTS", "7")
	t.Setenv("LEDGER_PATH", "/tmp/fleet/ledger.csv")
	t.Setenv("SOURCE_URL", "http://dash.example:5000")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Pipeline.RetryAttempts != 7 {
		t.Fatalf("expected 7 attempts, got %d", cfg.Pipeline.RetryAttempts)
	}
	if cfg.Ledger.Path != "/tmp/fleet/ledger.csv" {
		t.Fatalf("expected overridden ledger path, got %s", cfg.Ledger.Path)
	}
	if cfg.Source.URL != "http://dash.example:5000" {
		t.Fatalf("expected overridden source url, got %s", cfg.Source.URL)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	content := `
pipeline:
  retry_attempts: 2
  retry_delay_seconds: 1
ledger:
  path: data/test-ledger.csv
intelligence:
  annotated_output: data/test-annotated.csv
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Pipeline.RetryAttempts != 2 || cfg.Pipeline.RetryDelaySeconds != 1 {
		t.Fatalf("yaml values not applied: %+v", cfg.Pipeline)
	}
	if cfg.Intelligence.AnnotatedOutput != "data/test-annotated.csv" {
		t.Fatalf("expected annotated output from yaml, got %s", cfg.Intelligence.AnnotatedOutput)
	}
}

func TestLoadReportsBadEnvValue(t *testing.T) {
	t.Setenv("PIPELINE_RETRY_ATTEMPTS", "plenty")
	_, err := Load()
	if err == nil {
		t.Fatalf("expected error for non-numeric attempts")
	}
	if got := err.Error(); !strings.Contains(got, "PIPELINE_RETRY_ATTEMPTS") {
		t.Fatalf("error should name the offending variable, got: %v", err)
	}
}

func TestLoadRejectsBadBackend(t *testing.T) {
	t.Setenv("LEDGER_BACKEND", "spreadsheet")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}

func TestLoadPostgresRequiresDSN(t *testing.T) {
	t.Setenv("LEDGER_BACKEND", "postgres")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error when postgres backend has no dsn")
	}
}

func TestLoadRejectsNonPositiveAttempts(t *testing.T) {
	t.Setenv("PIPELINE_RETRY_ATTEMPTS", "0")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for zero retry attempts")
	}
}
