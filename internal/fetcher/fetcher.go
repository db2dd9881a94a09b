package fetcher

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/rs/zerolog"

	"sneakersync/internal/errx"
	"sneakersync/internal/observability"
)

// Fetcher downloads pages from the source storefront.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Page, error)
}

// Page is the raw content of one URL.
type Page struct {
	URL        string
	StatusCode int
	Body       []byte
}

// Options controls timeouts and the retry policy.
type Options struct {
	UserAgent    string
	Timeout      time.Duration
	MaxAttempts  int
	BaseDelay    time.Duration
	MaxBodyBytes int64
}

// HTTPFetcher retries 502/503/504 responses and transport errors with
// exponential backoff.
type HTTPFetcher struct {
	client       *http.Client
	userAgent    string
	maxAttempts  int
	baseDelay    time.Duration
	maxBodyBytes int64
	logger       zerolog.Logger
}

func New(opts Options, logger zerolog.Logger) *HTTPFetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 1
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 5 * 1024 * 1024
	}

	transport := &http.Transport{
		DialContext:           (&net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		MaxIdleConns:          20,
		IdleConnTimeout:       90 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &HTTPFetcher{
		client:       &http.Client{Timeout: opts.Timeout, Transport: transport},
		userAgent:    opts.UserAgent,
		maxAttempts:  opts.MaxAttempts,
		baseDelay:    opts.BaseDelay,
		maxBodyBytes: opts.MaxBodyBytes,
		logger:       logger,
	}
}

// Fetch returns the page body for a 2xx response. Anything else is a fetch error.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (*Page, error) {
	var lastErr error
	delay := f.baseDelay

	for attempt := 1; attempt <= f.maxAttempts; attempt++ {
		page, err := f.fetchOnce(ctx, url)
		if err == nil {
			return page, nil
		}
		lastErr = err

		var se *statusError
		if errors.As(err, &se) && !se.transient() {
			break
		}
		if ctx.Err() != nil || attempt == f.maxAttempts {
			break
		}

		f.logger.Warn().Err(err).Str("url", url).
			Int("attempt", attempt).Int("max_attempts", f.maxAttempts).Dur("delay", delay).
			Msg("fetch failed, retrying")
		observability.FetchRetriesTotal.Inc()

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, errx.New(errx.KindFetch, "fetch "+url, ctx.Err())
		}
		delay *= 2
	}

	return nil, errx.New(errx.KindFetch, "fetch "+url, lastErr)
}

func (f *HTTPFetcher) fetchOnce(ctx context.Context, url string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Encoding", "gzip, br")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
		return nil, &statusError{code: resp.StatusCode}
	}

	body, err := f.readBody(resp)
	if err != nil {
		return nil, err
	}
	return &Page{URL: url, StatusCode: resp.StatusCode, Body: body}, nil
}

func (f *HTTPFetcher) readBody(resp *http.Response) ([]byte, error) {
	reader := io.Reader(resp.Body)

	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("gzip decode: %w", err)
		}
		defer gz.Close()
		reader = gz
	case "br":
		reader = brotli.NewReader(resp.Body)
	}

	body, err := io.ReadAll(io.LimitReader(reader, f.maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > f.maxBodyBytes {
		return nil, fmt.Errorf("response body exceeds limit of %d bytes", f.maxBodyBytes)
	}
	return body, nil
}

type statusError struct {
	code int
}

func (e *statusError) Error() string { return fmt.Sprintf("unexpected status %d", e.code) }

func (e *statusError) transient() bool {
	switch e.code {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}
