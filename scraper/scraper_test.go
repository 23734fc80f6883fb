package scraper

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aluiziolira/go-scrape-catalog/config"
	"github.com/aluiziolira/go-scrape-catalog/metrics"
	"github.com/jarcoal/httpmock"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

const testURL = "http://example.test/catalogue/page-1.html"

func newTestFetcher(t *testing.T) (*Fetcher, *httpmock.MockTransport) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.TargetURL = testURL

	f, err := NewFetcher(cfg, metrics.New())
	if err != nil {
		t.Fatalf("new fetcher: %v", err)
	}
	transport := httpmock.NewMockTransport()
	f.WithTransport(transport)
	return f, transport
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		statusCode int
		expected   string
	}{
		{name: "nil", err: nil, statusCode: 0, expected: "unknown"},
		{name: "context timeout", err: context.DeadlineExceeded, statusCode: 0, expected: "timeout"},
		{name: "net timeout", err: &net.DNSError{IsTimeout: true}, statusCode: 0, expected: "timeout"},
		{name: "dns failure", err: &net.DNSError{Err: "no such host", Name: "example.test"}, statusCode: 0, expected: "connection"},
		{name: "connection", err: &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, statusCode: 0, expected: "connection"},
		{name: "forbidden", err: nil, statusCode: http.StatusForbidden, expected: "forbidden"},
		{name: "not found", err: nil, statusCode: http.StatusNotFound, expected: "not_found"},
		{name: "rate limited", err: nil, statusCode: http.StatusTooManyRequests, expected: "rate_limited"},
		{name: "server error", err: nil, statusCode: http.StatusInternalServerError, expected: "http_status"},
		{name: "ok status", err: nil, statusCode: http.StatusOK, expected: "unknown"},
		{name: "other", err: errors.New("some other error"), statusCode: 0, expected: "other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errorTypeLabel(classifyError(tt.err, tt.statusCode)); got != tt.expected {
				t.Fatalf("classifyError(%v, %d) = %q, want %q", tt.err, tt.statusCode, got, tt.expected)
			}
		})
	}
}

func TestFetchReturnsBodyAndSendsUserAgent(t *testing.T) {
	f, transport := newTestFetcher(t)

	var gotUA string
	transport.RegisterResponder("GET", testURL, func(req *http.Request) (*http.Response, error) {
		gotUA = req.Header.Get("User-Agent")
		resp := httpmock.NewStringResponse(http.StatusOK, "<html><body>ok</body></html>")
		resp.Header.Set("Content-Type", "text/html; charset=utf-8")
		return resp, nil
	})

	body, err := f.Fetch(context.Background(), testURL)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if body != "<html><body>ok</body></html>" {
		t.Fatalf("body=%q", body)
	}
	if gotUA != config.DefaultUserAgent {
		t.Fatalf("user agent=%q, want %q", gotUA, config.DefaultUserAgent)
	}
	if got := testutil.ToFloat64(f.Metrics.RequestsTotal.WithLabelValues("success")); got != 1 {
		t.Fatalf("success requests=%v, want 1", got)
	}
	if got := transport.GetTotalCallCount(); got != 1 {
		t.Fatalf("calls=%d, want exactly one request", got)
	}
}

func TestFetchHTTPStatusClassification(t *testing.T) {
	tests := []struct {
		status   int
		expected string
	}{
		{status: http.StatusTooManyRequests, expected: "rate_limited"},
		{status: http.StatusForbidden, expected: "forbidden"},
		{status: http.StatusNotFound, expected: "not_found"},
		{status: http.StatusBadGateway, expected: "http_status"},
		{status: http.StatusMultipleChoices, expected: "http_status"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%d", tt.status), func(t *testing.T) {
			f, transport := newTestFetcher(t)
			transport.RegisterResponder("GET", testURL, httpmock.NewStringResponder(tt.status, "<html>blocked</html>"))

			body, err := f.Fetch(context.Background(), testURL)
			if body != "" {
				t.Fatalf("body=%q, want empty on failure", body)
			}
			if !errors.Is(err, ErrFetchFailed) {
				t.Fatalf("expected ErrFetchFailed, got %v", err)
			}
			if got := ErrorType(err); got != tt.expected {
				t.Fatalf("error type=%q, want %q", got, tt.expected)
			}
			if got := testutil.ToFloat64(f.Metrics.ErrorsTotal.WithLabelValues(tt.expected)); got != 1 {
				t.Fatalf("errors_total{%s}=%v, want 1", tt.expected, got)
			}
			if got := transport.GetTotalCallCount(); got != 1 {
				t.Fatalf("calls=%d, failures must not be retried", got)
			}
		})
	}
}

func TestFetchTransportError(t *testing.T) {
	f, transport := newTestFetcher(t)
	dialErr := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
	transport.RegisterResponder("GET", testURL, httpmock.NewErrorResponder(dialErr))

	body, err := f.Fetch(context.Background(), testURL)
	if body != "" {
		t.Fatalf("body=%q, want empty", body)
	}
	if !errors.Is(err, ErrFetchFailed) {
		t.Fatalf("expected ErrFetchFailed, got %v", err)
	}
	var conn ErrConnection
	if !errors.As(err, &conn) {
		t.Fatalf("expected ErrConnection in chain, got %v", err)
	}
}

func TestFetchCancelledContext(t *testing.T) {
	f, transport := newTestFetcher(t)
	transport.RegisterResponder("GET", testURL, httpmock.NewStringResponder(http.StatusOK, "ok"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := f.Fetch(ctx, testURL); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if got := transport.GetTotalCallCount(); got != 0 {
		t.Fatalf("calls=%d, cancelled fetch must not hit the network", got)
	}
}

func TestNewFetcherRejectsHostlessURL(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.TargetURL = "/relative/path"
	if _, err := NewFetcher(cfg, nil); err == nil {
		t.Fatalf("expected error for url without host")
	}
}

func TestFetchReturnsBodiesOverTenMiB(t *testing.T) {
	f, transport := newTestFetcher(t)
	page := "<html><body>" + strings.Repeat("x", 11<<20) + "</body></html>"
	transport.RegisterResponder("GET", testURL, httpmock.NewStringResponder(http.StatusOK, page))

	body, err := f.Fetch(context.Background(), testURL)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(body) != len(page) {
		t.Fatalf("body length=%d, want %d", len(body), len(page))
	}
}

func TestFetchTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer server.Close()

	cfg := config.DefaultConfig()
	cfg.TargetURL = server.URL
	cfg.Timeout = 200 * time.Millisecond
	f, err := NewFetcher(cfg, metrics.New())
	if err != nil {
		t.Fatalf("new fetcher: %v", err)
	}

	start := time.Now()
	body, err := f.Fetch(context.Background(), server.URL)
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("fetch took %v, timeout was %v", elapsed, cfg.Timeout)
	}
	if body != "" {
		t.Fatalf("body=%q, want empty", body)
	}
	if !errors.Is(err, ErrFetchFailed) {
		t.Fatalf("expected ErrFetchFailed, got %v", err)
	}
	var timeout ErrTimeout
	if !errors.As(err, &timeout) {
		t.Fatalf("expected ErrTimeout in chain, got %v", err)
	}
	if got := testutil.ToFloat64(f.Metrics.ErrorsTotal.WithLabelValues("timeout")); got != 1 {
		t.Fatalf("errors_total{timeout}=%v, want 1", got)
	}
}
