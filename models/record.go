// Package models defines data structures for the extractor.
package models

import (
	"time"

	jsoniter "github.com/json-iterator/go"
)

// Column names produced by the default product schema.
const (
	ColumnTitle        = "Item Title"
	ColumnPrice        = "Price"
	ColumnAvailability = "Availability"
)

// Record is one extracted block: an ordered set of named text fields.
// Values are fixed at construction.
type Record struct {
	columns []string
	values  []string
}

// NewRecord builds a record from parallel column and value slices. Both are
// copied. Missing values are stored as empty strings and extra values are
// dropped.
func NewRecord(columns, values []string) Record {
	r := Record{
		columns: make([]string, len(columns)),
		values:  make([]string, len(columns)),
	}
	copy(r.columns, columns)
	copy(r.values, values)
	return r
}

// Columns returns the field names in schema order.
func (r Record) Columns() []string {
	out := make([]string, len(r.columns))
	copy(out, r.columns)
	return out
}

// Values returns the field values in schema order.
func (r Record) Values() []string {
	out := make([]string, len(r.values))
	copy(out, r.values)
	return out
}

// Len reports the number of fields.
func (r Record) Len() int {
	return len(r.columns)
}

// Get returns the value for a column and whether the column exists.
func (r Record) Get(column string) (string, bool) {
	for i, name := range r.columns {
		if name == column {
			return r.values[i], true
		}
	}
	return "", false
}

// Value returns the value for a column, or "" when absent.
func (r Record) Value(column string) string {
	v, _ := r.Get(column)
	return v
}

// Title, Price and Availability read the default product columns.
func (r Record) Title() string        { return r.Value(ColumnTitle) }
func (r Record) Price() string        { return r.Value(ColumnPrice) }
func (r Record) Availability() string { return r.Value(ColumnAvailability) }

// MarshalJSON encodes the record as an object with keys in column order.
func (r Record) MarshalJSON() ([]byte, error) {
	stream := jsoniter.ConfigCompatibleWithStandardLibrary.BorrowStream(nil)
	defer jsoniter.ConfigCompatibleWithStandardLibrary.ReturnStream(stream)

	stream.WriteObjectStart()
	for i, name := range r.columns {
		if i > 0 {
			stream.WriteMore()
		}
		stream.WriteObjectField(name)
		stream.WriteString(r.values[i])
	}
	stream.WriteObjectEnd()
	if stream.Error != nil {
		return nil, stream.Error
	}

	out := make([]byte, len(stream.Buffer()))
	copy(out, stream.Buffer())
	return out, nil
}

// Records is the ordered sequence collected during one run.
type Records []Record

// Append returns a new sequence with recs added after the existing ones.
// The receiver's backing array is never written to.
func (rs Records) Append(recs ...Record) Records {
	out := make(Records, 0, len(rs)+len(recs))
	out = append(out, rs...)
	return append(out, recs...)
}

// Columns returns the header derived from the first record.
func (rs Records) Columns() []string {
	if len(rs) == 0 {
		return nil
	}
	return rs[0].Columns()
}

// Run statuses reported in RunResult.
const (
	StatusOK            = "ok"
	StatusEmpty         = "empty"
	StatusFetchFailed   = "fetch_failed"
	StatusExtractFailed = "extract_failed"
	StatusExportFailed  = "export_failed"
)

// RunResult holds the overall result of one fetch, parse and export run.
type RunResult struct {
	RunID         string
	TargetURL     string
	Status        string
	Records       Records
	StartTime     time.Time
	EndTime       time.Time
	BytesFetched  int
	BlocksFound   int
	RecordsParsed int
	SkippedBlocks int
	RowsExported  int
	OutputFiles   []string
	Err           error
}

// Duration is the wall time between start and end.
func (r *RunResult) Duration() time.Duration {
	if r.EndTime.IsZero() {
		return 0
	}
	return r.EndTime.Sub(r.StartTime)
}
