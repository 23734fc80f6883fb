package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/aluiziolira/go-scrape-catalog/models"
	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-runewidth"
)

const (
	previewRows  = 5
	previewWidth = 40
)

func printSummary(w io.Writer, result *models.RunResult) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("Extraction complete")
	t.SetStyle(table.StyleLight)
	t.AppendRows([]table.Row{
		{"Run ID", result.RunID},
		{"Status", result.Status},
		{"URL", result.TargetURL},
		{"Fetched", humanize.Bytes(uint64(result.BytesFetched))},
		{"Blocks", result.BlocksFound},
		{"Parsed", result.RecordsParsed},
		{"Skipped", result.SkippedBlocks},
		{"Exported", result.RowsExported},
		{"Duration", result.Duration().Round(time.Millisecond)},
	})
	for _, file := range result.OutputFiles {
		t.AppendRow(table.Row{"Output", fmt.Sprintf("%s (%s)", file, fileSize(file))})
	}
	if result.Err != nil {
		t.AppendRow(table.Row{"Error", result.Err.Error()})
	}
	t.Render()

	if len(result.Records) == 0 {
		return
	}
	preview := table.NewWriter()
	preview.SetOutputMirror(w)
	preview.SetStyle(table.StyleLight)
	preview.Style().Format.Footer = text.FormatDefault
	preview.AppendHeader(headerRow(result.Records.Columns()))
	for i, rec := range result.Records {
		if i == previewRows {
			break
		}
		preview.AppendRow(previewRow(rec.Values()))
	}
	if extra := len(result.Records) - previewRows; extra > 0 {
		preview.AppendFooter(table.Row{fmt.Sprintf("… %d more", extra)})
	}
	preview.Render()
}

func headerRow(columns []string) table.Row {
	row := make(table.Row, len(columns))
	for i, c := range columns {
		row[i] = c
	}
	return row
}

func previewRow(values []string) table.Row {
	row := make(table.Row, len(values))
	for i, v := range values {
		v = strings.Join(strings.Fields(v), " ")
		row[i] = runewidth.Truncate(v, previewWidth, "…")
	}
	return row
}

func fileSize(path string) string {
	info, err := os.Stat(path)
	if err != nil {
		return "unknown size"
	}
	return humanize.Bytes(uint64(info.Size()))
}
