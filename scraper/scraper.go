// Package scraper retrieves the target page with a colly collector.
package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/aluiziolira/go-scrape-catalog/config"
	"github.com/aluiziolira/go-scrape-catalog/metrics"
	"github.com/gocolly/colly/v2"
)

// Fetcher wraps a synchronous colly collector that issues one GET per call.
type Fetcher struct {
	cfg       *config.Config
	collector *colly.Collector
	Metrics   *metrics.Metrics
}

// NewFetcher builds a fetcher configured from cfg. m may be nil.
func NewFetcher(cfg *config.Config, m *metrics.Metrics) (*Fetcher, error) {
	parsed, err := url.Parse(cfg.TargetURL)
	if err != nil {
		return nil, fmt.Errorf("parse target url: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("target url must include a host")
	}

	collector := colly.NewCollector(
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
		colly.ParseHTTPErrorResponse(),
		colly.MaxBodySize(0),
	)

	collector.SetRequestTimeout(cfg.Timeout)
	collector.IgnoreRobotsTxt = true
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: cfg.Timeout,
	})

	return &Fetcher{
		cfg:       cfg,
		collector: collector,
		Metrics:   m,
	}, nil
}

// WithTransport replaces the HTTP transport used by the collector.
func (f *Fetcher) WithTransport(rt http.RoundTripper) {
	f.collector.WithTransport(rt)
}

// Fetch issues a single GET against target and returns the body as text.
// Any transport failure, timeout or non-2xx status is logged, counted, and
// returned as an error wrapping ErrFetchFailed alongside an empty body.
func (f *Fetcher) Fetch(ctx context.Context, target string) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return "", f.fail(target, classifyError(err, 0))
	}

	// Clones share the HTTP backend but not callbacks.
	c := f.collector.Clone()

	var (
		body       []byte
		statusCode int
		respErr    error
	)

	c.OnResponse(func(r *colly.Response) {
		statusCode = r.StatusCode
		if !isSuccess(r.StatusCode) {
			return
		}
		body = r.Body
	})
	c.OnError(func(r *colly.Response, err error) {
		respErr = err
		if r != nil && r.StatusCode != 0 {
			statusCode = r.StatusCode
		}
	})

	start := time.Now()
	visitErr := c.Visit(target)
	f.Metrics.ObserveDuration(time.Since(start))

	if respErr == nil {
		respErr = visitErr
	}
	if respErr != nil || !isSuccess(statusCode) {
		return "", f.fail(target, classifyError(respErr, statusCode))
	}

	f.Metrics.IncRequest("success")
	f.Metrics.SetResponseBytes(len(body))
	slog.Debug("page fetched",
		slog.String("url", target),
		slog.Int("status", statusCode),
		slog.Int("bytes", len(body)),
		slog.Duration("elapsed", time.Since(start)),
	)
	return string(body), nil
}

func (f *Fetcher) fail(target string, cause error) error {
	if cause == nil {
		cause = fmt.Errorf("no response received")
	}
	category := errorTypeLabel(cause)
	f.Metrics.IncRequest("failure")
	f.Metrics.IncError(category)
	slog.Error("failed to retrieve data",
		slog.String("url", target),
		slog.String("category", category),
		slog.Any("error", cause),
	)
	return &fetchError{url: target, cause: cause}
}
