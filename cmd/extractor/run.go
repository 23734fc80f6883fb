package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aluiziolira/go-scrape-catalog/config"
	"github.com/aluiziolira/go-scrape-catalog/metrics"
	"github.com/aluiziolira/go-scrape-catalog/models"
	"github.com/aluiziolira/go-scrape-catalog/parser"
	"github.com/aluiziolira/go-scrape-catalog/pipeline"
	"github.com/aluiziolira/go-scrape-catalog/scraper"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
)

func runAction(c *cli.Context) error {
	cfg, err := buildConfig(c)
	if err != nil {
		return cli.Exit(fmt.Sprintf("invalid configuration: %v", err), exitConfig)
	}

	runID := uuid.NewString()
	logger, level := newLogger(os.Stdout, cfg.Verbose, cfg.LogFormat)
	slog.SetDefault(logger.With(slog.String("run_id", runID)))
	slog.SetLogLoggerLevel(level.Level())

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, code := execute(ctx, cfg, runID, nil)
	if result != nil {
		printSummary(c.App.Writer, result)
	}
	if code != exitOK {
		return cli.Exit("", code)
	}
	return nil
}

// execute performs one run and maps its outcome to an exit code. A nil
// transport uses the fetcher's default.
func execute(ctx context.Context, cfg *config.Config, runID string, transport http.RoundTripper) (*models.RunResult, int) {
	schema := parser.DefaultSchema()
	if cfg.SchemaFile != "" {
		loaded, err := parser.LoadSchema(cfg.SchemaFile)
		if err != nil {
			slog.Error("invalid schema", slog.String("schema", cfg.SchemaFile), slog.Any("error", err))
			return nil, exitConfig
		}
		schema = loaded
	}

	m := metrics.New()
	fetcher, err := scraper.NewFetcher(cfg, m)
	if err != nil {
		slog.Error("initialising fetcher", slog.Any("error", err))
		return nil, exitConfig
	}
	if transport != nil {
		fetcher.WithTransport(transport)
	}
	extractor, err := parser.NewExtractor(schema, cfg.FailurePolicy)
	if err != nil {
		slog.Error("initialising extractor", slog.Any("error", err))
		return nil, exitConfig
	}
	exporter, err := pipeline.NewExporter(cfg.OutputFormat, cfg.CRLF, m)
	if err != nil {
		slog.Error("initialising exporter", slog.Any("error", err))
		return nil, exitConfig
	}

	metricsServer := startMetricsServer(cfg.MetricsAddr, m)

	p := pipeline.NewPipeline(cfg, fetcher, extractor, exporter, m)
	p.RunID = runID
	result, runErr := p.Run(ctx)

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
		cancel()
	}
	if cfg.MetricsFile != "" {
		if err := m.WriteTextfile(cfg.MetricsFile); err != nil {
			slog.Error("metrics file write failed", slog.String("path", cfg.MetricsFile), slog.Any("error", err))
		}
	}

	slog.Info("process completed",
		slog.String("status", result.Status),
		slog.Int("records", result.RowsExported),
		slog.Duration("duration", result.Duration()),
	)
	if runErr != nil {
		return result, exitFailure
	}
	return result, exitOK
}

func startMetricsServer(addr string, m *metrics.Metrics) *http.Server {
	if addr == "" {
		return nil
	}
	server := &http.Server{
		Addr:              addr,
		Handler:           promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", slog.Any("error", err))
		}
	}()
	slog.Info("metrics server enabled", slog.String("addr", addr))
	return server
}
