package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name: "empty target url",
			mutate: func(cfg *Config) {
				cfg.TargetURL = ""
			},
			wantErr: "target URL",
		},
		{
			name: "invalid url format",
			mutate: func(cfg *Config) {
				cfg.TargetURL = "http://"
			},
			wantErr: "target URL",
		},
		{
			name: "unsupported scheme",
			mutate: func(cfg *Config) {
				cfg.TargetURL = "ftp://books.toscrape.com/"
			},
			wantErr: "scheme",
		},
		{
			name: "negative timeout",
			mutate: func(cfg *Config) {
				cfg.Timeout = -1 * time.Second
			},
			wantErr: "timeout",
		},
		{
			name: "blank user agent",
			mutate: func(cfg *Config) {
				cfg.UserAgent = "   "
			},
			wantErr: "user agent",
		},
		{
			name: "empty output file",
			mutate: func(cfg *Config) {
				cfg.OutputFile = ""
			},
			wantErr: "output file",
		},
		{
			name: "unknown format",
			mutate: func(cfg *Config) {
				cfg.OutputFormat = "xlsx"
			},
			wantErr: "output format",
		},
		{
			name: "unknown failure policy",
			mutate: func(cfg *Config) {
				cfg.FailurePolicy = "retry"
			},
			wantErr: "failure policy",
		},
		{
			name: "unknown log format",
			mutate: func(cfg *Config) {
				cfg.LogFormat = "xml"
			},
			wantErr: "log format",
		},
		{
			name: "metrics file clobbers output",
			mutate: func(cfg *Config) {
				cfg.MetricsFile = cfg.OutputFile
			},
			wantErr: "metrics file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestConfigValidateSentinels(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OutputFormat = "xlsx"
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidFormat) {
		t.Fatalf("expected ErrInvalidFormat, got %v", err)
	}

	cfg = DefaultConfig()
	cfg.FailurePolicy = "maybe"
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidPolicy) {
		t.Fatalf("expected ErrInvalidPolicy, got %v", err)
	}
}

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}
	if cfg.Timeout != 10*time.Second {
		t.Fatalf("timeout=%v, want 10s", cfg.Timeout)
	}
	if cfg.OutputFile != "extracted_data.csv" {
		t.Fatalf("output file=%q", cfg.OutputFile)
	}
	if !cfg.CRLF {
		t.Fatalf("csv rows should end in \\r\\n by default")
	}
}

func TestLoadFileOverlaysDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "extractor.yaml")
	content := `
target_url: https://example.test/catalogue/page-2.html
timeout: 3s
failure_policy: SKIP
output:
  file: out/products.csv
  format: Dual
  crlf: false
logging:
  verbose: true
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFile(path, DefaultConfig())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("loaded config should validate: %v", err)
	}

	if cfg.TargetURL != "https://example.test/catalogue/page-2.html" {
		t.Fatalf("target url=%q", cfg.TargetURL)
	}
	if cfg.Timeout != 3*time.Second {
		t.Fatalf("timeout=%v, want 3s", cfg.Timeout)
	}
	if cfg.FailurePolicy != PolicySkip || cfg.OutputFormat != FormatDual {
		t.Fatalf("policy=%q format=%q", cfg.FailurePolicy, cfg.OutputFormat)
	}
	if cfg.CRLF || !cfg.Verbose {
		t.Fatalf("crlf=%v verbose=%v, want file values false and true", cfg.CRLF, cfg.Verbose)
	}
	if cfg.UserAgent != DefaultUserAgent {
		t.Fatalf("unset keys must keep defaults, user agent=%q", cfg.UserAgent)
	}
}

func TestLoadFileErrors(t *testing.T) {
	dir := t.TempDir()

	if _, err := LoadFile(filepath.Join(dir, "missing.yaml"), nil); err == nil {
		t.Fatalf("expected error for missing file")
	}

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("timeout: soon\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadFile(bad, nil); err == nil || !strings.Contains(err.Error(), "timeout") {
		t.Fatalf("expected timeout parse error, got %v", err)
	}
}

func TestExampleConfigMatchesDefaults(t *testing.T) {
	cfg, err := LoadFile(filepath.Join("..", "configs", "extractor.example.yaml"), nil)
	if err != nil {
		t.Fatalf("load example config: %v", err)
	}
	if diff := cmp.Diff(DefaultConfig(), cfg); diff != "" {
		t.Fatalf("example config drifted from the defaults (-want +got):\n%s", diff)
	}
}
