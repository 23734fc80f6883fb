// Package parser turns catalogue markup into records using a Schema.
package parser

import (
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/aluiziolira/go-scrape-catalog/config"
	"github.com/aluiziolira/go-scrape-catalog/models"
)

// ErrMissingElement is wrapped by every BlockError.
var ErrMissingElement = errors.New("missing element")

// BlockError reports a block whose field could not be located.
type BlockError struct {
	Index    int // zero-based position among container blocks
	Field    string
	Selector string
	Attr     string
}

func (e *BlockError) Error() string {
	if e.Attr != "" {
		return fmt.Sprintf("block %d: field %q: %s: attribute %q on %q", e.Index, e.Field, ErrMissingElement, e.Attr, e.Selector)
	}
	return fmt.Sprintf("block %d: field %q: %s: %q", e.Index, e.Field, ErrMissingElement, e.Selector)
}

func (e *BlockError) Unwrap() error {
	return ErrMissingElement
}

// BlockResult is the outcome of one container block: a record or an error.
type BlockResult struct {
	Index  int
	Record models.Record
	Err    error
}

// Report summarises one Extract call.
type Report struct {
	Blocks  int // container blocks found
	Parsed  int // records appended by this call
	Skipped []*BlockError
}

// Extractor applies a Schema to markup.
type Extractor struct {
	schema  *Schema
	columns []string
	policy  string
}

// NewExtractor validates schema and returns an extractor using policy
// (config.PolicyAbort or config.PolicySkip).
func NewExtractor(schema *Schema, policy string) (*Extractor, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	switch policy {
	case config.PolicyAbort, config.PolicySkip:
	case "":
		policy = config.PolicyAbort
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrInvalidPolicy, policy)
	}
	return &Extractor{
		schema:  schema,
		columns: schema.Columns(),
		policy:  policy,
	}, nil
}

// Columns returns the header the extractor's records carry.
func (e *Extractor) Columns() []string {
	out := make([]string, len(e.columns))
	copy(out, e.columns)
	return out
}

// Blocks parses markup and extracts every container block in document order.
func (e *Extractor) Blocks(markup string) ([]BlockResult, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parse markup: %w", err)
	}

	var results []BlockResult
	doc.Find(e.schema.Container).Each(func(i int, block *goquery.Selection) {
		rec, err := e.extractBlock(i, block)
		results = append(results, BlockResult{Index: i, Record: rec, Err: err})
	})
	return results, nil
}

// Extract appends the records found in markup to records and returns the new
// sequence. Under the abort policy the first malformed block stops the call:
// the records parsed before it are returned together with its *BlockError.
// Under the skip policy malformed blocks are listed in Report.Skipped.
func (e *Extractor) Extract(records models.Records, markup string) (models.Records, Report, error) {
	var report Report

	results, err := e.Blocks(markup)
	if err != nil {
		return records, report, err
	}
	report.Blocks = len(results)

	parsed := make([]models.Record, 0, len(results))
	for _, res := range results {
		if res.Err != nil {
			var blockErr *BlockError
			if !errors.As(res.Err, &blockErr) {
				return records.Append(parsed...), report, res.Err
			}
			if e.policy == config.PolicyAbort {
				return records.Append(parsed...), report, blockErr
			}
			report.Skipped = append(report.Skipped, blockErr)
			continue
		}
		parsed = append(parsed, res.Record)
		report.Parsed++
	}

	return records.Append(parsed...), report, nil
}

func (e *Extractor) extractBlock(index int, block *goquery.Selection) (models.Record, error) {
	values := make([]string, len(e.schema.Fields))
	for i, f := range e.schema.Fields {
		v, err := readField(block, f)
		if err != nil {
			err.Index = index
			return models.Record{}, err
		}
		values[i] = v
	}
	return models.NewRecord(e.columns, values), nil
}

func readField(block *goquery.Selection, f Field) (string, *BlockError) {
	sel := block.Find(f.Selector).First()
	if sel.Length() == 0 {
		return "", &BlockError{Field: f.Name, Selector: f.Selector}
	}

	var value string
	if f.Attr != "" {
		v, ok := sel.Attr(f.Attr)
		if !ok {
			return "", &BlockError{Field: f.Name, Selector: f.Selector, Attr: f.Attr}
		}
		value = v
	} else {
		value = sel.Text()
	}

	if f.Trim {
		value = strings.TrimSpace(value)
	}
	return value, nil
}
