package main

import (
	"fmt"
	"os"

	"github.com/aluiziolira/go-scrape-catalog/config"
	"github.com/urfave/cli/v2"
)

// Process exit codes.
const (
	exitOK      = 0
	exitFailure = 1
	exitConfig  = 2
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		// cli.Exit errors have already been handled by the app.
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitFailure)
	}
}

func newApp() *cli.App {
	defaults := config.DefaultConfig()

	return &cli.App{
		Name:  "extractor",
		Usage: "fetch a product listing page, extract its items, and export them to CSV",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "YAML configuration file",
				EnvVars: []string{"EXTRACTOR_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "url",
				Usage:   "page to fetch",
				Value:   defaults.TargetURL,
				EnvVars: []string{"EXTRACTOR_URL"},
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "output file path",
				Value:   defaults.OutputFile,
				EnvVars: []string{"EXTRACTOR_OUTPUT"},
			},
			&cli.StringFlag{
				Name:    "format",
				Usage:   "output format: csv, json, or dual",
				Value:   defaults.OutputFormat,
				EnvVars: []string{"EXTRACTOR_FORMAT"},
			},
			&cli.BoolFlag{
				Name:    "crlf",
				Usage:   "terminate CSV rows with \\r\\n (--crlf=false for \\n)",
				Value:   defaults.CRLF,
				EnvVars: []string{"EXTRACTOR_CRLF"},
			},
			&cli.StringFlag{
				Name:    "schema",
				Usage:   "YAML extraction schema (defaults to the built-in product schema)",
				EnvVars: []string{"EXTRACTOR_SCHEMA"},
			},
			&cli.StringFlag{
				Name:    "policy",
				Usage:   "malformed block policy: abort or skip",
				Value:   defaults.FailurePolicy,
				EnvVars: []string{"EXTRACTOR_POLICY"},
			},
			&cli.DurationFlag{
				Name:    "timeout",
				Usage:   "request timeout",
				Value:   defaults.Timeout,
				EnvVars: []string{"EXTRACTOR_TIMEOUT"},
			},
			&cli.StringFlag{
				Name:    "user-agent",
				Usage:   "User-Agent header sent with the request",
				Value:   defaults.UserAgent,
				EnvVars: []string{"EXTRACTOR_USER_AGENT"},
			},
			&cli.StringFlag{
				Name:    "metrics-addr",
				Usage:   "Prometheus metrics listen address (e.g. :9090)",
				EnvVars: []string{"EXTRACTOR_METRICS_ADDR"},
			},
			&cli.StringFlag{
				Name:    "metrics-file",
				Usage:   "write metrics in text format to this file after the run",
				EnvVars: []string{"EXTRACTOR_METRICS_FILE"},
			},
			&cli.BoolFlag{
				Name:    "v",
				Aliases: []string{"verbose"},
				Usage:   "enable verbose logging",
				EnvVars: []string{"EXTRACTOR_VERBOSE"},
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "log format: auto, text, or json",
				Value:   defaults.LogFormat,
				EnvVars: []string{"EXTRACTOR_LOG_FORMAT"},
			},
		},
		Action: runAction,
		Commands: []*cli.Command{
			{
				Name:      "run",
				Usage:     "fetch, extract, and export once (default)",
				Action:    runAction,
				ArgsUsage: " ",
			},
			{
				Name:      "import",
				Usage:     "load an exported CSV file into a SQLite table",
				ArgsUsage: "<file.csv>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "db",
						Usage:   "SQLite database file",
						Value:   "catalog.db",
						EnvVars: []string{"EXTRACTOR_DB"},
					},
					&cli.StringFlag{
						Name:    "table",
						Usage:   "destination table",
						Value:   "products",
						EnvVars: []string{"EXTRACTOR_TABLE"},
					},
				},
				Action: importAction,
			},
		},
	}
}

// buildConfig layers defaults, the optional YAML file, and explicitly set
// flags or environment variables, in that order.
func buildConfig(c *cli.Context) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if path := c.String("config"); path != "" {
		loaded, err := config.LoadFile(path, cfg)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if c.IsSet("url") {
		cfg.TargetURL = c.String("url")
	}
	if c.IsSet("output") {
		cfg.OutputFile = c.String("output")
	}
	if c.IsSet("format") {
		cfg.OutputFormat = c.String("format")
	}
	if c.IsSet("crlf") {
		cfg.CRLF = c.Bool("crlf")
	}
	if c.IsSet("schema") {
		cfg.SchemaFile = c.String("schema")
	}
	if c.IsSet("policy") {
		cfg.FailurePolicy = c.String("policy")
	}
	if c.IsSet("timeout") {
		cfg.Timeout = c.Duration("timeout")
	}
	if c.IsSet("user-agent") {
		cfg.UserAgent = c.String("user-agent")
	}
	if c.IsSet("metrics-addr") {
		cfg.MetricsAddr = c.String("metrics-addr")
	}
	if c.IsSet("metrics-file") {
		cfg.MetricsFile = c.String("metrics-file")
	}
	if c.IsSet("v") {
		cfg.Verbose = c.Bool("v")
	}
	if c.IsSet("log-format") {
		cfg.LogFormat = c.String("log-format")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
