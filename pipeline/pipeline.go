// Package pipeline runs fetch, extract and export in sequence and writes the
// collected records to disk.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aluiziolira/go-scrape-catalog/config"
	"github.com/aluiziolira/go-scrape-catalog/metrics"
	"github.com/aluiziolira/go-scrape-catalog/models"
	"github.com/aluiziolira/go-scrape-catalog/parser"
	"github.com/google/uuid"
)

// Fetcher retrieves the raw markup for a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Pipeline coordinates one fetch, extract and export run.
type Pipeline struct {
	cfg       *config.Config
	fetcher   Fetcher
	extractor *parser.Extractor
	exporter  *Exporter
	metrics   *metrics.Metrics

	// RunID tags the result; a random one is used when empty.
	RunID string
}

// NewPipeline wires the three stages. m may be nil.
func NewPipeline(cfg *config.Config, fetcher Fetcher, extractor *parser.Extractor, exporter *Exporter, m *metrics.Metrics) *Pipeline {
	return &Pipeline{
		cfg:       cfg,
		fetcher:   fetcher,
		extractor: extractor,
		exporter:  exporter,
		metrics:   m,
	}
}

// Run fetches cfg.TargetURL, extracts its records, and exports them to
// cfg.OutputFile. The returned result is always non-nil; err is non-nil when
// the fetch, extraction or export failed. An empty extraction is not an
// error: nothing is written and the result status is models.StatusEmpty.
func (p *Pipeline) Run(ctx context.Context) (*models.RunResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	runID := p.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	result := &models.RunResult{
		RunID:     runID,
		TargetURL: p.cfg.TargetURL,
		StartTime: time.Now(),
	}
	defer func() {
		result.EndTime = time.Now()
		p.metrics.MarkRun(result.Err == nil, result.EndTime)
	}()

	slog.Info("initializing extraction process",
		slog.String("url", p.cfg.TargetURL),
		slog.String("output", p.cfg.OutputFile),
	)

	markup, err := p.fetcher.Fetch(ctx, p.cfg.TargetURL)
	if err != nil {
		return p.finish(result, models.StatusFetchFailed, err)
	}
	result.BytesFetched = len(markup)

	records, report, err := p.extractor.Extract(nil, markup)
	result.Records = records
	result.BlocksFound = report.Blocks
	result.RecordsParsed = report.Parsed
	result.SkippedBlocks = len(report.Skipped)
	p.metrics.AddRecords(report.Parsed)
	for _, skipped := range report.Skipped {
		p.metrics.IncBlockFailure(skipped.Field)
		slog.Warn("skipped malformed block",
			slog.Int("block", skipped.Index),
			slog.String("field", skipped.Field),
			slog.Any("error", skipped),
		)
	}
	if err != nil {
		var blockErr *parser.BlockError
		if errors.As(err, &blockErr) {
			p.metrics.IncBlockFailure(blockErr.Field)
		}
		p.metrics.IncError("extract")
		slog.Error("extraction aborted",
			slog.Int("parsed_before_failure", report.Parsed),
			slog.Any("error", err),
		)
		return p.finish(result, models.StatusExtractFailed, fmt.Errorf("extract: %w", err))
	}
	slog.Info("successfully parsed items from source",
		slog.Int("items", report.Parsed),
		slog.Int("blocks", report.Blocks),
		slog.Int("skipped", len(report.Skipped)),
	)

	exported, err := p.exporter.Export(records, p.cfg.OutputFile)
	if err != nil {
		p.metrics.IncError("export")
		slog.Error("data export failed", slog.String("output", p.cfg.OutputFile), slog.Any("error", err))
		return p.finish(result, models.StatusExportFailed, fmt.Errorf("export: %w", err))
	}
	result.RowsExported = exported.Rows
	result.OutputFiles = exported.Files

	if len(records) == 0 {
		return p.finish(result, models.StatusEmpty, nil)
	}
	return p.finish(result, models.StatusOK, nil)
}

func (p *Pipeline) finish(result *models.RunResult, status string, err error) (*models.RunResult, error) {
	result.Status = status
	result.Err = err
	return result, err
}
