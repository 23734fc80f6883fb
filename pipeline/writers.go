package pipeline

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aluiziolira/go-scrape-catalog/models"
	jsoniter "github.com/json-iterator/go"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// sink is the buffered output file shared by the CSV and JSONL writers.
type sink struct {
	kind string
	file *os.File
	buf  *bufio.Writer
	rows int
}

func createSink(kind, filename string) (*sink, error) {
	if dir := filepath.Dir(filename); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create %s file: %w", kind, err)
	}
	return &sink{kind: kind, file: f, buf: bufio.NewWriter(f)}, nil
}

func (s *sink) flush() error {
	if err := s.buf.Flush(); err != nil {
		return fmt.Errorf("flush %s file: %w", s.kind, err)
	}
	return nil
}

func (s *sink) close() error {
	return errors.Join(s.flush(), s.file.Close())
}

// validate flushes pending output and checks that rows reached the file.
func (s *sink) validate() error {
	if err := s.flush(); err != nil {
		return err
	}
	info, err := s.file.Stat()
	if err != nil {
		return fmt.Errorf("stat %s file: %w", s.kind, err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("%s file is empty", s.kind)
	}
	if s.rows == 0 {
		return fmt.Errorf("%s file has no data rows", s.kind)
	}
	return nil
}

func (s *sink) files() []string {
	return []string{s.file.Name()}
}

// CSVWriter writes records as RFC 4180 rows under a fixed header.
type CSVWriter struct {
	*sink
	csv    *csv.Writer
	header []string
}

// NewCSVWriter creates filename and writes the header row. crlf selects
// \r\n line endings.
func NewCSVWriter(filename string, header []string, crlf bool) (*CSVWriter, error) {
	if len(header) == 0 {
		return nil, fmt.Errorf("csv header cannot be empty")
	}
	s, err := createSink("csv", filename)
	if err != nil {
		return nil, err
	}

	w := csv.NewWriter(s.buf)
	w.UseCRLF = crlf
	if err := w.Write(header); err != nil {
		s.file.Close()
		return nil, fmt.Errorf("write csv header: %w", err)
	}

	return &CSVWriter{
		sink:   s,
		csv:    w,
		header: append([]string(nil), header...),
	}, nil
}

// Write appends records. Every record must carry exactly the header's columns.
func (cw *CSVWriter) Write(records models.Records) error {
	for i, rec := range records {
		if rec.Len() != len(cw.header) {
			return fmt.Errorf("csv record %d has %d fields, header has %d", i, rec.Len(), len(cw.header))
		}
		if err := cw.csv.Write(rec.Values()); err != nil {
			return fmt.Errorf("write csv record %d: %w", i, err)
		}
		cw.rows++
	}
	cw.csv.Flush()
	return cw.csv.Error()
}

// Validate checks the file holds data rows besides the header.
func (cw *CSVWriter) Validate() error {
	cw.csv.Flush()
	if err := cw.csv.Error(); err != nil {
		return err
	}
	return cw.validate()
}

// Close flushes and closes the file.
func (cw *CSVWriter) Close() error {
	cw.csv.Flush()
	return errors.Join(cw.csv.Error(), cw.close())
}

// Files returns the path written.
func (cw *CSVWriter) Files() []string {
	return cw.files()
}

// JSONWriter writes one JSON object per record, keys in column order.
type JSONWriter struct {
	*sink
	encoder *jsoniter.Encoder
}

// NewJSONWriter creates filename for JSONL output.
func NewJSONWriter(filename string) (*JSONWriter, error) {
	s, err := createSink("json", filename)
	if err != nil {
		return nil, err
	}
	return &JSONWriter{sink: s, encoder: jsonAPI.NewEncoder(s.buf)}, nil
}

// Write appends records as JSON lines.
func (jw *JSONWriter) Write(records models.Records) error {
	for i, rec := range records {
		if err := jw.encoder.Encode(rec); err != nil {
			return fmt.Errorf("encode json record %d: %w", i, err)
		}
		jw.rows++
	}
	return jw.flush()
}

// Validate checks the file holds at least one record.
func (jw *JSONWriter) Validate() error {
	return jw.validate()
}

// Close flushes and closes the file.
func (jw *JSONWriter) Close() error {
	return jw.close()
}

// Files returns the path written.
func (jw *JSONWriter) Files() []string {
	return jw.files()
}
