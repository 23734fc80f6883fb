// Package config holds extractor configuration.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultTargetURL is the catalogue page fetched when nothing overrides it.
	DefaultTargetURL = "http://books.toscrape.com/catalogue/page-1.html"
	// DefaultOutputFile is the CSV written when nothing overrides it.
	DefaultOutputFile = "extracted_data.csv"
	// DefaultUserAgent impersonates a desktop browser.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
)

// Output formats.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
	FormatDual = "dual"
)

// Failure policies applied to malformed blocks.
const (
	PolicyAbort = "abort"
	PolicySkip  = "skip"
)

// Log formats. LogFormatAuto picks text on a terminal and JSON otherwise.
const (
	LogFormatAuto = "auto"
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Validation errors.
var (
	ErrEmptyTargetURL      = errors.New("target URL cannot be empty")
	ErrInvalidTimeout      = errors.New("timeout must be positive")
	ErrEmptyUserAgent      = errors.New("user agent cannot be empty")
	ErrEmptyOutputFile     = errors.New("output file cannot be empty")
	ErrInvalidFormat       = errors.New("output format must be csv, json, or dual")
	ErrInvalidPolicy       = errors.New("failure policy must be abort or skip")
	ErrInvalidLogFormat    = errors.New("log format must be auto, text, or json")
	ErrMetricsFileConflict = errors.New("metrics file and output file must differ")
)

// Config holds extractor configuration.
type Config struct {
	TargetURL     string
	Timeout       time.Duration
	UserAgent     string
	OutputFile    string
	OutputFormat  string // csv, json, or dual
	CRLF          bool
	SchemaFile    string
	FailurePolicy string // abort or skip
	MetricsAddr   string
	MetricsFile   string
	Verbose       bool
	LogFormat     string
}

// DefaultConfig returns the fixed single-page run.
func DefaultConfig() *Config {
	return &Config{
		TargetURL:     DefaultTargetURL,
		Timeout:       10 * time.Second,
		UserAgent:     DefaultUserAgent,
		OutputFile:    DefaultOutputFile,
		OutputFormat:  FormatCSV,
		CRLF:          true,
		SchemaFile:    "",
		FailurePolicy: PolicyAbort,
		MetricsAddr:   "",
		MetricsFile:   "",
		Verbose:       false,
		LogFormat:     LogFormatAuto,
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.TargetURL == "" {
		return ErrEmptyTargetURL
	}

	parsedURL, err := url.Parse(c.TargetURL)
	if err != nil {
		return fmt.Errorf("invalid target URL: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("target URL must include a host")
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("target URL scheme must be http or https, got %q", parsedURL.Scheme)
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if strings.TrimSpace(c.UserAgent) == "" {
		return ErrEmptyUserAgent
	}
	if c.OutputFile == "" {
		return ErrEmptyOutputFile
	}
	switch c.OutputFormat {
	case FormatCSV, FormatJSON, FormatDual:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidFormat, c.OutputFormat)
	}
	switch c.FailurePolicy {
	case PolicyAbort, PolicySkip:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidPolicy, c.FailurePolicy)
	}
	switch c.LogFormat {
	case LogFormatAuto, LogFormatText, LogFormatJSON:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, c.LogFormat)
	}
	if c.MetricsFile != "" && c.MetricsFile == c.OutputFile {
		return ErrMetricsFileConflict
	}

	return nil
}

// fileConfig mirrors Config for YAML files. Pointers distinguish unset keys
// from zero values so a file only overrides what it names.
type fileConfig struct {
	TargetURL     *string       `yaml:"target_url"`
	Timeout       *string       `yaml:"timeout"`
	UserAgent     *string       `yaml:"user_agent"`
	SchemaFile    *string       `yaml:"schema_file"`
	FailurePolicy *string       `yaml:"failure_policy"`
	Output        outputConfig  `yaml:"output"`
	Metrics       metricsConfig `yaml:"metrics"`
	Logging       loggingConfig `yaml:"logging"`
}

type outputConfig struct {
	File   *string `yaml:"file"`
	Format *string `yaml:"format"`
	CRLF   *bool   `yaml:"crlf"`
}

type metricsConfig struct {
	Addr *string `yaml:"addr"`
	File *string `yaml:"file"`
}

type loggingConfig struct {
	Verbose *bool   `yaml:"verbose"`
	Format  *string `yaml:"format"`
}

// LoadFile overlays the YAML file at path onto a copy of base. The result is
// not validated; callers apply flag overrides first.
func LoadFile(path string, base *Config) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}

	if base == nil {
		base = DefaultConfig()
	}
	cfg := *base

	setString(&cfg.TargetURL, fc.TargetURL)
	setString(&cfg.UserAgent, fc.UserAgent)
	setString(&cfg.SchemaFile, fc.SchemaFile)
	setString(&cfg.FailurePolicy, fc.FailurePolicy)
	setString(&cfg.OutputFile, fc.Output.File)
	setString(&cfg.OutputFormat, fc.Output.Format)
	setString(&cfg.MetricsAddr, fc.Metrics.Addr)
	setString(&cfg.MetricsFile, fc.Metrics.File)
	setString(&cfg.LogFormat, fc.Logging.Format)
	if fc.Output.CRLF != nil {
		cfg.CRLF = *fc.Output.CRLF
	}
	if fc.Logging.Verbose != nil {
		cfg.Verbose = *fc.Logging.Verbose
	}
	if fc.Timeout != nil {
		d, err := time.ParseDuration(*fc.Timeout)
		if err != nil {
			return nil, fmt.Errorf("parse timeout %q: %w", *fc.Timeout, err)
		}
		cfg.Timeout = d
	}

	cfg.OutputFormat = strings.ToLower(cfg.OutputFormat)
	cfg.FailurePolicy = strings.ToLower(cfg.FailurePolicy)
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	return &cfg, nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
