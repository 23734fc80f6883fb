package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aluiziolira/go-scrape-catalog/models"
)

// DualWriter fans records out to a CSV file and a JSONL file beside it.
type DualWriter struct {
	writers []OutputWriter
}

// NewDualWriter creates both files. The JSONL path comes from JSONLPath.
func NewDualWriter(csvFilename string, header []string, crlf bool) (*DualWriter, error) {
	csvWriter, err := NewCSVWriter(csvFilename, header, crlf)
	if err != nil {
		return nil, err
	}
	jsonWriter, err := NewJSONWriter(JSONLPath(csvFilename))
	if err != nil {
		return nil, errors.Join(err, csvWriter.Close())
	}
	return &DualWriter{writers: []OutputWriter{csvWriter, jsonWriter}}, nil
}

// JSONLPath swaps a trailing .csv for .jsonl, or appends .jsonl.
func JSONLPath(csvFilename string) string {
	return strings.TrimSuffix(csvFilename, ".csv") + ".jsonl"
}

// Write stops at the first writer that fails.
func (dw *DualWriter) Write(records models.Records) error {
	for _, w := range dw.writers {
		if err := w.Write(records); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every writer and joins their errors.
func (dw *DualWriter) Close() error {
	return dw.each(OutputWriter.Close)
}

// Validate validates every output and joins their errors.
func (dw *DualWriter) Validate() error {
	return dw.each(OutputWriter.Validate)
}

func (dw *DualWriter) each(fn func(OutputWriter) error) error {
	var errs []error
	for _, w := range dw.writers {
		if err := fn(w); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", w.Files()[0], err))
		}
	}
	return errors.Join(errs...)
}

// Files returns the CSV path followed by the JSONL path.
func (dw *DualWriter) Files() []string {
	var files []string
	for _, w := range dw.writers {
		files = append(files, w.Files()...)
	}
	return files
}
