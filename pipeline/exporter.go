package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aluiziolira/go-scrape-catalog/config"
	"github.com/aluiziolira/go-scrape-catalog/metrics"
	"github.com/aluiziolira/go-scrape-catalog/models"
)

// OutputWriter defines the interface for data output.
type OutputWriter interface {
	Write(records models.Records) error
	Close() error
	Validate() error
	Files() []string
}

// ExportResult describes what Export wrote.
type ExportResult struct {
	Rows  int
	Files []string
}

// Exporter serialises a record sequence to disk in one scoped operation.
type Exporter struct {
	format  string
	crlf    bool
	metrics *metrics.Metrics
}

// NewExporter returns an exporter for format (csv, json, or dual).
func NewExporter(format string, crlf bool, m *metrics.Metrics) (*Exporter, error) {
	switch format {
	case config.FormatCSV, config.FormatJSON, config.FormatDual:
	case "":
		format = config.FormatCSV
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrInvalidFormat, format)
	}
	return &Exporter{format: format, crlf: crlf, metrics: m}, nil
}

// Export writes records to OutputPath(format, filename). An empty sequence
// writes nothing, leaves any existing file untouched, and logs a warning. The
// header comes from the first record's columns. A failed write may leave a
// partial file behind.
func (e *Exporter) Export(records models.Records, filename string) (ExportResult, error) {
	filename = OutputPath(e.format, filename)
	if len(records) == 0 {
		slog.Warn("no data extracted during the session", slog.String("output", filename))
		return ExportResult{}, nil
	}

	writer, err := NewWriter(e.format, filename, records.Columns(), e.crlf)
	if err != nil {
		return ExportResult{}, fmt.Errorf("create writer: %w", err)
	}

	if err := writer.Write(records); err != nil {
		return ExportResult{}, errors.Join(fmt.Errorf("write records: %w", err), writer.Close())
	}
	if err := writer.Validate(); err != nil {
		return ExportResult{}, errors.Join(fmt.Errorf("validate output: %w", err), writer.Close())
	}
	if err := writer.Close(); err != nil {
		return ExportResult{}, fmt.Errorf("close writer: %w", err)
	}

	files := writer.Files()
	e.metrics.AddRows(e.format, len(records))
	slog.Info("data export successful",
		slog.Int("records", len(records)),
		slog.String("output", filename),
		slog.String("format", e.format),
	)
	return ExportResult{Rows: len(records), Files: files}, nil
}

// OutputPath returns the file format writes for filename. JSON output swaps a
// trailing .csv for .jsonl; csv and dual keep filename.
func OutputPath(format, filename string) string {
	if format == config.FormatJSON && strings.HasSuffix(filename, ".csv") {
		return JSONLPath(filename)
	}
	return filename
}

// NewWriter builds the writer for format. header is only used by CSV output.
func NewWriter(format, filename string, header []string, crlf bool) (OutputWriter, error) {
	switch format {
	case config.FormatJSON:
		return NewJSONWriter(filename)
	case config.FormatCSV:
		return NewCSVWriter(filename, header, crlf)
	case config.FormatDual:
		return NewDualWriter(filename, header, crlf)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}
