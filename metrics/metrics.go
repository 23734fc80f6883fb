// Package metrics bundles the Prometheus collectors for an extraction run.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the extractor.
type Metrics struct {
	Registry            *prometheus.Registry
	RequestsTotal       *prometheus.CounterVec
	RequestDuration     prometheus.Histogram
	ResponseBytes       prometheus.Gauge
	RecordsExtracted    prometheus.Counter
	BlockFailuresTotal  *prometheus.CounterVec
	RowsExportedTotal   *prometheus.CounterVec
	ErrorsTotal         *prometheus.CounterVec
	LastRunSuccess      prometheus.Gauge
	LastRunTimestampSec prometheus.Gauge
}

// New constructs and registers all metrics on a dedicated registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "extractor_requests_total",
			Help: "HTTP requests issued by the fetcher, by outcome.",
		},
		[]string{"outcome"},
	)
	requestDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "extractor_request_duration_seconds",
			Help:    "HTTP request latency for the fetched page.",
			Buckets: prometheus.DefBuckets,
		},
	)
	responseBytes := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "extractor_response_bytes",
			Help: "Size of the last fetched page body.",
		},
	)
	records := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "extractor_records_extracted_total",
			Help: "Records extracted from product blocks.",
		},
	)
	blockFailures := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "extractor_block_failures_total",
			Help: "Blocks that could not be extracted, by missing field.",
		},
		[]string{"field"},
	)
	rows := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "extractor_rows_exported_total",
			Help: "Rows written by the exporter, by format.",
		},
		[]string{"format"},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "extractor_errors_total",
			Help: "Errors by type.",
		},
		[]string{"error_type"},
	)
	lastSuccess := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "extractor_last_run_success",
			Help: "1 if the last run finished without a fetch or extraction failure.",
		},
	)
	lastTimestamp := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "extractor_last_run_timestamp_seconds",
			Help: "Unix time the last run finished.",
		},
	)

	registry.MustRegister(requests, requestDuration, responseBytes, records, blockFailures, rows, errorsTotal, lastSuccess, lastTimestamp)

	return &Metrics{
		Registry:            registry,
		RequestsTotal:       requests,
		RequestDuration:     requestDuration,
		ResponseBytes:       responseBytes,
		RecordsExtracted:    records,
		BlockFailuresTotal:  blockFailures,
		RowsExportedTotal:   rows,
		ErrorsTotal:         errorsTotal,
		LastRunSuccess:      lastSuccess,
		LastRunTimestampSec: lastTimestamp,
	}
}

// IncRequest increments the requests counter for an outcome label.
func (m *Metrics) IncRequest(outcome string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(outcome).Inc()
}

// ObserveDuration records an HTTP request duration.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.Observe(d.Seconds())
}

// SetResponseBytes records the size of the fetched body.
func (m *Metrics) SetResponseBytes(n int) {
	if m == nil {
		return
	}
	m.ResponseBytes.Set(float64(n))
}

// AddRecords increments the extracted records counter.
func (m *Metrics) AddRecords(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.RecordsExtracted.Add(float64(n))
}

// IncBlockFailure counts a block that failed on field.
func (m *Metrics) IncBlockFailure(field string) {
	if m == nil {
		return
	}
	m.BlockFailuresTotal.WithLabelValues(field).Inc()
}

// AddRows increments the exported rows counter for a format.
func (m *Metrics) AddRows(format string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.RowsExportedTotal.WithLabelValues(format).Add(float64(n))
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}

// MarkRun records the outcome and completion time of a run.
func (m *Metrics) MarkRun(success bool, at time.Time) {
	if m == nil {
		return
	}
	if success {
		m.LastRunSuccess.Set(1)
	} else {
		m.LastRunSuccess.Set(0)
	}
	m.LastRunTimestampSec.Set(float64(at.Unix()))
}

// WriteTextfile dumps the registry in the text exposition format, for the
// node exporter textfile collector.
func (m *Metrics) WriteTextfile(filename string) error {
	if m == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(filename, m.Registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
